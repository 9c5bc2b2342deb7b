package rollercoaster

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rollercoaster-sim/loopix/internal/message"
	"github.com/rollercoaster-sim/loopix/internal/node"
)

func TestMarkAckedNoopWithoutPriorState(t *testing.T) {
	s := newSession(node.ID{Kind: node.User, Index: 0}, 1, message.Payload{}, nil)
	s.markAcked(node.ID{Kind: node.User, Index: 1}, node.ID{Kind: node.User, Index: 1})
	require.Empty(t, s.state)
}

func TestMarkAckedSetsDeliveredAndClearsTimeout(t *testing.T) {
	s := newSession(node.ID{Kind: node.User, Index: 0}, 1, message.Payload{}, nil)
	member := node.ID{Kind: node.User, Index: 1}
	s.armTimeout(1000, member, member)
	require.Len(t, s.timeouts, 1)

	s.markAcked(member, member)
	require.Equal(t, stateDelivered, s.state[member])
	require.Empty(t, s.timeouts)
}

func TestRemoveTimeoutOnlyRemovesMatchingPair(t *testing.T) {
	s := newSession(node.ID{Kind: node.User, Index: 0}, 1, message.Payload{}, nil)
	a := node.ID{Kind: node.User, Index: 1}
	b := node.ID{Kind: node.User, Index: 2}
	s.armTimeout(10, a, a)
	s.armTimeout(20, b, b)

	s.removeTimeout(a, a)
	require.Len(t, s.timeouts, 1)
	require.Equal(t, b, s.timeouts[0].node)
}

func TestRemoveTimeoutsForNodeRemovesAllMatches(t *testing.T) {
	s := newSession(node.ID{Kind: node.User, Index: 0}, 1, message.Payload{}, nil)
	a := node.ID{Kind: node.User, Index: 1}
	s.armTimeout(10, a, a)
	s.armTimeout(20, a, node.ID{Kind: node.User, Index: 9})

	s.removeTimeoutsForNode(a)
	require.Empty(t, s.timeouts)
}

func TestPopExpiredOnlyReturnsDueEntries(t *testing.T) {
	s := newSession(node.ID{Kind: node.User, Index: 0}, 1, message.Payload{}, nil)
	a := node.ID{Kind: node.User, Index: 1}
	b := node.ID{Kind: node.User, Index: 2}
	s.armTimeout(10, a, a)
	s.armTimeout(30, b, b)

	expired := s.popExpired(20)
	require.Len(t, expired, 1)
	require.Equal(t, a, expired[0].node)
	require.Len(t, s.timeouts, 1)
	require.Equal(t, b, s.timeouts[0].node)
}

func TestSeenKeyDeterministicAndDistinct(t *testing.T) {
	source := node.ID{Kind: node.User, Index: 0}
	role1 := node.ID{Kind: node.User, Index: 1}
	role2 := node.ID{Kind: node.User, Index: 2}

	require.Equal(t, seenKey(source, 5, role1), seenKey(source, 5, role1))
	require.NotEqual(t, seenKey(source, 5, role1), seenKey(source, 5, role2))
	require.NotEqual(t, seenKey(source, 5, role1), seenKey(source, 6, role1))
}
