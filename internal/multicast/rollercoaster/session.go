package rollercoaster

import (
	"encoding/binary"

	"github.com/dchest/siphash"

	"github.com/rollercoaster-sim/loopix/internal/message"
	"github.com/rollercoaster-sim/loopix/internal/multicast/schedule"
	"github.com/rollercoaster-sim/loopix/internal/node"
)

// memberState is a session's per-member delivery state (spec §3
// MessagingSession).
type memberState int

const (
	stateInProgress memberState = iota
	stateDelivered
)

// timeoutEntry is an armed retransmission deadline for (node, role) within
// a session.
type timeoutEntry struct {
	deadline int64
	node     node.ID
	role     node.ID
}

// session is one send_to_group call's bookkeeping: the schedule it was
// sent over, per-member delivery state, and the armed timeouts (spec §3
// MessagingSession).
type session struct {
	source  node.ID
	nonce   int
	payload message.Payload

	state    map[node.ID]memberState
	timeouts []timeoutEntry
	sched    *schedule.Schedule
}

func newSession(source node.ID, nonce int, payload message.Payload, sched *schedule.Schedule) *session {
	return &session{
		source: source, nonce: nonce, payload: payload,
		state: make(map[node.ID]memberState),
		sched: sched,
	}
}

// markAcked sets member's state to delivered and removes any timeout entry
// matching (member, role). A member with no pending state is a no-op
// (spec §4.11 invariant ii).
func (s *session) markAcked(member, role node.ID) {
	if _, ok := s.state[member]; !ok {
		return
	}
	s.state[member] = stateDelivered
	s.removeTimeout(member, role)
}

func (s *session) armTimeout(deadline int64, n, role node.ID) {
	s.state[n] = stateInProgress
	s.timeouts = append(s.timeouts, timeoutEntry{deadline: deadline, node: n, role: role})
}

func (s *session) removeTimeout(n, role node.ID) {
	out := s.timeouts[:0]
	for _, t := range s.timeouts {
		if t.node == n && t.role == role {
			continue
		}
		out = append(out, t)
	}
	s.timeouts = out
}

// removeTimeoutsForNode removes every pending timeout entry whose node is
// n, whatever its role.
func (s *session) removeTimeoutsForNode(n node.ID) {
	out := s.timeouts[:0]
	for _, t := range s.timeouts {
		if t.node == n {
			continue
		}
		out = append(out, t)
	}
	s.timeouts = out
}

// popExpired removes and returns every timeout entry with deadline <= now.
func (s *session) popExpired(now int64) []timeoutEntry {
	var expired, remaining []timeoutEntry
	for _, t := range s.timeouts {
		if t.deadline <= now {
			expired = append(expired, t)
		} else {
			remaining = append(remaining, t)
		}
	}
	s.timeouts = remaining
	return expired
}

// seenKey computes a dedupe key for (source, nonce, role) using SipHash
// over a fixed-width little-endian encoding, so large multicast groups
// don't accumulate unbounded struct-keyed map buckets across long runs.
func seenKey(source node.ID, nonce int, role node.ID) uint64 {
	var buf [18]byte
	buf[0] = byte(source.Kind)
	binary.LittleEndian.PutUint32(buf[1:5], uint32(source.Index))
	binary.LittleEndian.PutUint64(buf[5:13], uint64(nonce))
	buf[13] = byte(role.Kind)
	binary.LittleEndian.PutUint32(buf[14:18], uint32(role.Index))
	return siphash.Hash(0x726f6c6c65722d31, 0x636f61737465722d, buf[:])
}
