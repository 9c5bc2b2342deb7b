package rollercoaster

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rollercoaster-sim/loopix/internal/node"
)

func TestLastSeenPushDedupesToTop(t *testing.T) {
	l := newLastSeen()
	a := node.ID{Kind: node.User, Index: 1}
	b := node.ID{Kind: node.User, Index: 2}

	l.Push(a)
	l.Push(b)
	l.Push(a) // re-pushing a should move it to the top, not duplicate it.

	require.Equal(t, []node.ID{b, a}, l.stack)
}

func TestLastSeenPopTopLIFO(t *testing.T) {
	l := newLastSeen()
	a := node.ID{Kind: node.User, Index: 1}
	b := node.ID{Kind: node.User, Index: 2}
	l.Push(a)
	l.Push(b)

	top, ok := l.PopTop()
	require.True(t, ok)
	require.Equal(t, b, top)

	top, ok = l.PopTop()
	require.True(t, ok)
	require.Equal(t, a, top)

	_, ok = l.PopTop()
	require.False(t, ok)
}

func TestLastSeenRemove(t *testing.T) {
	l := newLastSeen()
	a := node.ID{Kind: node.User, Index: 1}
	b := node.ID{Kind: node.User, Index: 2}
	l.Push(a)
	l.Push(b)

	l.Remove(a)
	require.Equal(t, []node.ID{b}, l.stack)

	// Removing a non-member is a no-op, not an error.
	l.Remove(node.ID{Kind: node.User, Index: 99})
	require.Equal(t, []node.ID{b}, l.stack)
}

func TestLastSeenClean(t *testing.T) {
	l := newLastSeen()
	l.Push(node.ID{Kind: node.User, Index: 1})
	l.Clean()
	_, ok := l.PopTop()
	require.False(t, ok)
}
