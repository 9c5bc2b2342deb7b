// Package multicast implements the application-layer group-messaging
// surface of spec §4.8/§4.12: an immutable Group, the Strategy abstraction
// a User installs per group, and the SequentialUnicast strategy. The
// Rollercoaster strategy lives in the sibling internal/multicast/
// rollercoaster package to keep its session/timeout machinery isolated.
//
// Grounded on original_source/simulation/multicast/base.py (Group) and
// original_source/simulation/multicast/unicast.py (SequentialUnicast) and
// original_source/simulation/rollercoaster.py (the Strategy contract every
// multicast strategy implements).
package multicast

import "github.com/rollercoaster-sim/loopix/internal/node"

// Group is an immutable named set of member users (spec §3).
type Group struct {
	ID      string
	Members []node.ID
}

// NewGroup copies members so the Group stays immutable regardless of later
// mutation of the caller's slice.
func NewGroup(id string, members []node.ID) *Group {
	cp := make([]node.ID, len(members))
	copy(cp, members)
	return &Group{ID: id, Members: cp}
}
