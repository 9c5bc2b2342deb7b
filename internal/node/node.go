// Package node defines the stable, comparable handles used to reference
// simulation entities (users, providers, mix nodes) from messages and
// multicast bookkeeping without holding direct Go pointers to them.
//
// Per the teacher's cyclic-ownership problem (users <-> providers <->
// network <-> multicasts <-> applications, all reachable from each other),
// a systems-language port should arena-allocate entities inside their owner
// and refer to them via stable indices rather than let heap cycles form.
// ID is that handle: a (Kind, Index) pair, comparable and hashable, so it
// can be used directly as a map key (e.g. in Provider postboxes, the
// application's dedupe set, and LastSeen stacks) without ever dereferencing the entity it
// names.
package node

import "fmt"

// Kind identifies which arena an ID's Index refers into.
type Kind uint8

const (
	User Kind = iota
	Provider
	Mix
)

func (k Kind) String() string {
	switch k {
	case User:
		return "U"
	case Provider:
		return "P"
	case Mix:
		return "M"
	default:
		return "?"
	}
}

// ID is a stable, comparable reference to a simulation entity.
type ID struct {
	Kind  Kind
	Index int
}

// Zero is the nil-equivalent ID; no real entity ever has index -1.
var Zero = ID{Kind: User, Index: -1}

func (id ID) IsZero() bool {
	return id == Zero
}

func (id ID) String() string {
	return fmt.Sprintf("%s%d", id.Kind, id.Index)
}
