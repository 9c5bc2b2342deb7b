package rollercoaster

import (
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"

	"github.com/rollercoaster-sim/loopix/internal/engine"
	"github.com/rollercoaster-sim/loopix/internal/message"
	"github.com/rollercoaster-sim/loopix/internal/mixnet"
	"github.com/rollercoaster-sim/loopix/internal/multicast"
	"github.com/rollercoaster-sim/loopix/internal/node"
)

func testStrategy(deliverCount *int) (*Strategy, *mixnet.User, node.ID) {
	owner := mixnet.NewUser(node.ID{Kind: node.User, Index: 0}, "U0", node.ID{Kind: node.Provider, Index: 0}, 1, 1, 1, 1, 1, nil, log.Default())
	other := node.ID{Kind: node.User, Index: 1}
	group := multicast.NewGroup("G", []node.ID{owner.Self, other})
	deliver := func(ctx *engine.Context, recipient node.ID, env *message.Envelope, payload message.Payload) {
		*deliverCount++
	}
	s := NewStrategy(owner, group, 1, 1, 1.5, true, false, 2, deliver, log.Default())
	return s, owner, other
}

func TestOnReceiveDedupsBySourceNonceRole(t *testing.T) {
	var delivers int
	s, owner, other := testStrategy(&delivers)

	env := message.NewRollercoaster(owner.Self, message.Payload{Nonce: 1, CreatedAtMS: 0}, "G", other, 7, owner.Self, other)
	s.OnReceive(&engine.Context{Now: 100}, env)
	require.Equal(t, 1, delivers)

	dup := message.NewRollercoaster(owner.Self, message.Payload{Nonce: 1, CreatedAtMS: 0}, "G", other, 7, owner.Self, other)
	s.OnReceive(&engine.Context{Now: 200}, dup)
	require.Equal(t, 1, delivers, "a duplicate (source, nonce, role) must not be delivered twice")
}

func TestOnReceiveDropOfflineSkipsForwardAndAck(t *testing.T) {
	var delivers int
	s, owner, other := testStrategy(&delivers)
	s.dropOffline = true

	env := message.NewRollercoaster(owner.Self, message.Payload{Nonce: 1}, "G", other, 3, owner.Self, other)
	env.DeliveryState = message.DeliveryOffline
	s.OnReceive(&engine.Context{Now: 0}, env)

	require.Equal(t, 1, delivers)
	require.Empty(t, s.seen, "offline-drop delivers without marking the message seen")
}

func TestSendToGroupCreatesSessionPerNonce(t *testing.T) {
	var delivers int
	s, _, _ := testStrategy(&delivers)

	s.SendToGroup(message.Payload{Nonce: 1, CreatedAtMS: 10})
	require.Contains(t, s.sessions, 0)
	require.Equal(t, 0, s.nonceCounter-1)

	s.SendToGroup(message.Payload{Nonce: 2, CreatedAtMS: 20})
	require.Contains(t, s.sessions, 1)
	require.Len(t, s.sessions, 2)
}

func TestOnReceiveAckMarksSessionDelivered(t *testing.T) {
	var delivers int
	s, owner, other := testStrategy(&delivers)
	s.SendToGroup(message.Payload{Nonce: 1})
	sess := s.sessions[0]
	sess.armTimeout(5000, other, other)

	ack := message.NewRollercoaster(owner.Self, message.AckBody{}, "G", owner.Self, 0, other, other)
	s.OnReceive(&engine.Context{Now: 100}, ack)

	require.Equal(t, stateDelivered, sess.state[other])
	require.Empty(t, sess.timeouts)
}

func TestCleanClearsAllRuntimeState(t *testing.T) {
	var delivers int
	s, _, _ := testStrategy(&delivers)
	s.SendToGroup(message.Payload{Nonce: 1})
	s.lastSeen.Push(node.ID{Kind: node.User, Index: 9})
	s.seen[123] = true

	s.Clean()
	require.Empty(t, s.sessions)
	require.Empty(t, s.seen)
	_, ok := s.lastSeen.PopTop()
	require.False(t, ok)
}

func TestTickNoopWhenTimeoutsInactive(t *testing.T) {
	var delivers int
	s, _, _ := testStrategy(&delivers)
	s.timeoutsActive = false
	s.SendToGroup(message.Payload{Nonce: 1})
	require.NotPanics(t, func() { s.Tick(&engine.Context{Now: 999999}) })
}
