// Package schedule builds and queries the (k+1)-ary broadcast tree a
// Rollercoaster multicast session sends over (spec §4.10).
//
// Grounded on original_source/simulation/rollercoaster.py's Schedule class.
package schedule

import (
	"golang.org/x/exp/slices"

	"github.com/rollercoaster-sim/loopix/internal/node"
	"github.com/rollercoaster-sim/loopix/internal/simrandom"
)

// Schedule is the (k+1)-ary tree built over a fixed member ordering. It is
// immutable once built; a session builds a fresh one per (source, members,
// k, nonce) tuple.
type Schedule struct {
	Source  node.ID
	order   []node.ID // receivers in round-then-send-index appearance order (source not included)
	children map[node.ID][]node.ID
	parent   map[node.ID]node.ID
}

// Build orders members as [source] ++ (members \ {source}), shuffling the
// tail in place with a schedule-local RNG seeded by nonce whenever nonce !=
// 0, then assigns sender/receiver pairs round by round until every member
// has a place in the tree.
func Build(source node.ID, members []node.ID, k int, nonce int) *Schedule {
	ordered := make([]node.ID, 0, len(members))
	ordered = append(ordered, source)
	for _, m := range members {
		if m != source {
			ordered = append(ordered, m)
		}
	}

	if nonce != 0 {
		simrandom.SeededShuffle(ordered[1:], int64(nonce))
	}

	s := &Schedule{
		Source:   source,
		children: make(map[node.ID][]node.ID),
		parent:   make(map[node.ID]node.ID),
	}

	n := len(ordered)
	p := 1
	for p < n {
		w := k * p
		if rem := n - p; w > rem {
			w = rem
		}
		for i := 0; i < w; i++ {
			sender := ordered[i/k]
			receiver := ordered[p+i]
			s.children[sender] = append(s.children[sender], receiver)
			s.parent[receiver] = sender
			s.order = append(s.order, receiver)
		}
		p *= k + 1
	}

	return s
}

// DirectChildren returns role's children in the tree, in send order.
func (s *Schedule) DirectChildren(role node.ID) []node.ID {
	return s.children[role]
}

// RecursiveChildren returns role's pre-order descendants, excluding role.
func (s *Schedule) RecursiveChildren(role node.ID) []node.ID {
	var out []node.ID
	var walk func(node.ID)
	walk = func(r node.ID) {
		for _, c := range s.children[r] {
			out = append(out, c)
			walk(c)
		}
	}
	walk(role)
	return out
}

// Parents returns role's ancestors, nearest first, up to and including the
// source.
func (s *Schedule) Parents(role node.ID) []node.ID {
	var out []node.ID
	cur := role
	for cur != s.Source {
		cur = s.parent[cur]
		out = append(out, cur)
	}
	return out
}

// HopsBetween counts the tree edges on the path from root down to n.
func (s *Schedule) HopsBetween(root, n node.ID) int {
	hops := 0
	cur := n
	for cur != root {
		cur = s.parent[cur]
		hops++
	}
	return hops
}

// IsLeaf reports whether role has no children.
func (s *Schedule) IsLeaf(role node.ID) bool {
	return len(s.children[role]) == 0
}

// NextReceiver returns the deterministic fallback for a failed recipient:
// the element immediately after failed in [source] ++ order, wrapping back
// to source.
func (s *Schedule) NextReceiver(failed node.ID) node.ID {
	fallback := append([]node.ID{s.Source}, s.order...)
	i := slices.Index(fallback, failed)
	if i < 0 {
		return s.Source
	}
	return fallback[(i+1)%len(fallback)]
}

// EstimatedRTT accounts for: the message delay source->root [A]; then for
// final and each of its ancestors up to and including root, the node's own
// queueing delay plus a message delay [B/C/D] (do-while: final's own term is
// always included, even when root == final).
func (s *Schedule) EstimatedRTT(root, final node.ID, tMsg, tQueue float64) float64 {
	total := tMsg
	cur := final
	for {
		total += tMsg + tQueue*(1+float64(len(s.children[cur])))
		if cur == root {
			break
		}
		cur = s.parent[cur]
	}
	return total
}
