package rollercoaster

import "github.com/rollercoaster-sim/loopix/internal/node"

// lastSeen is the per-strategy LIFO of unique nodes a useful message was
// most recently received from, used to pick timeout substitutes (spec
// §4.11, §3 LastSeen). Push moves an existing entry to the top rather than
// duplicating it, so the stack never holds a node twice.
type lastSeen struct {
	stack []node.ID
}

func newLastSeen() *lastSeen {
	return &lastSeen{}
}

func (l *lastSeen) Push(id node.ID) {
	l.Remove(id)
	l.stack = append(l.stack, id)
}

// PopTop removes and returns the most recently pushed node, if any.
func (l *lastSeen) PopTop() (node.ID, bool) {
	if len(l.stack) == 0 {
		return node.Zero, false
	}
	top := l.stack[len(l.stack)-1]
	l.stack = l.stack[:len(l.stack)-1]
	return top, true
}

// Remove drops id from the stack if present, e.g. when id is marked
// failed (spec §3 invariant iii: failed entries are removed).
func (l *lastSeen) Remove(id node.ID) {
	for i, v := range l.stack {
		if v == id {
			l.stack = append(l.stack[:i], l.stack[i+1:]...)
			return
		}
	}
}

func (l *lastSeen) Clean() {
	l.stack = nil
}
