// Package rollercoaster implements the tree-structured, acknowledged,
// timeout-retransmitted multicast strategy of spec §4.11.
//
// Grounded on original_source/simulation/rollercoaster.py's
// RollercoasterStrategy, MessagingSession and LastSeen, field-for-field.
package rollercoaster

import (
	"github.com/charmbracelet/log"

	"github.com/rollercoaster-sim/loopix/internal/engine"
	"github.com/rollercoaster-sim/loopix/internal/message"
	"github.com/rollercoaster-sim/loopix/internal/mixnet"
	"github.com/rollercoaster-sim/loopix/internal/multicast"
	"github.com/rollercoaster-sim/loopix/internal/multicast/schedule"
	"github.com/rollercoaster-sim/loopix/internal/node"
)

const baseFactor = 2

// Strategy is a per-user, per-group Rollercoaster instance. It implements
// multicast.Strategy.
type Strategy struct {
	owner   *mixnet.User
	group   *multicast.Group
	deliver multicast.DeliverFunc

	k                 int
	timeoutMultiplier float64
	timeoutsActive    bool
	dropOffline       bool

	msgDelay   float64
	queueDelay float64

	nonceCounter int
	sessions     map[int]*session
	lastSeen     *lastSeen
	seen         map[uint64]bool

	log *log.Logger
}

// NewStrategy constructs a Rollercoaster strategy bound to owner for
// group. It applies the split parameter p to owner via SetSplit, and
// derives msgDelay/queueDelay from owner's (now split-scaled) rates and
// the network's mix-layer count, per spec §4.11's construction-time
// derivation.
func NewStrategy(owner *mixnet.User, group *multicast.Group, k, p int, timeoutMultiplier float64, timeoutsActive, dropOffline bool, numLayers int, deliver multicast.DeliverFunc, logger *log.Logger) *Strategy {
	owner.SetSplit(p)
	return &Strategy{
		owner: owner, group: group, deliver: deliver,
		k: k, timeoutMultiplier: timeoutMultiplier,
		timeoutsActive: timeoutsActive, dropOffline: dropOffline,
		msgDelay:   1000 * baseFactor * float64(numLayers+1) / owner.RateDelay(),
		queueDelay: 1000 / owner.RatePayload(),
		sessions:   make(map[int]*session),
		lastSeen:   newLastSeen(),
		seen:       make(map[uint64]bool),
		log:        logger.WithPrefix("rollercoaster"),
	}
}

// SendToGroup starts a new session: it builds the broadcast schedule for
// this (source, members, k, nonce) and enqueues one envelope per direct
// child of the owner.
func (r *Strategy) SendToGroup(payload message.Payload) {
	nonce := r.nonceCounter
	r.nonceCounter++

	sched := schedule.Build(r.owner.Self, r.group.Members, r.k, nonce)
	sess := newSession(r.owner.Self, nonce, payload, sched)
	r.sessions[nonce] = sess

	for _, role := range sched.DirectChildren(r.owner.Self) {
		env := message.NewRollercoaster(role, payload, r.group.ID, r.owner.Self, nonce, role, r.owner.Self)
		r.attachCallback(env, sess, role)
		r.owner.ScheduleForSend(env)
	}
}

// attachCallback installs the generic send-callback every outgoing
// Rollercoaster envelope carries; it only has an effect when sess belongs
// to this node (spec §4.11 invariant iv: only the source arms timeouts).
func (r *Strategy) attachCallback(env *message.Envelope, sess *session, role node.ID) {
	env.Callback = &message.Callback{Fire: func(_ *message.Envelope, now int64) {
		r.onSendCallback(sess, role, now)
	}}
}

func (r *Strategy) onSendCallback(sess *session, role node.ID, now int64) {
	if sess.source != r.owner.Self || !r.timeoutsActive {
		return
	}
	if role != r.owner.Self {
		rtt := sess.sched.EstimatedRTT(role, role, r.msgDelay, r.queueDelay)
		sess.armTimeout(now+int64(r.timeoutMultiplier*rtt), role, role)
	}
	for _, c := range sess.sched.RecursiveChildren(role) {
		rtt := sess.sched.EstimatedRTT(role, c, r.msgDelay, r.queueDelay)
		sess.armTimeout(now+int64(r.timeoutMultiplier*rtt), c, c)
	}
}

// OnReceive handles both payload and ACK envelopes (spec §4.11).
func (r *Strategy) OnReceive(ctx *engine.Context, env *message.Envelope) {
	r.lastSeen.Push(env.Sender)

	if _, isAck := env.Body.(message.AckBody); isAck {
		if sess, ok := r.sessions[env.Nonce]; ok {
			sess.markAcked(env.Sender, env.Role)
		}
		return
	}

	payload := env.Body.(message.Payload)

	if r.dropOffline && env.DeliveryState == message.DeliveryOffline {
		r.deliver(ctx, r.owner.Self, env, payload)
		return
	}

	key := seenKey(env.Source, env.Nonce, env.Role)
	if r.seen[key] {
		r.sendAck(env)
		return
	}
	r.seen[key] = true
	r.deliver(ctx, r.owner.Self, env, payload)

	sched := schedule.Build(env.Source, r.group.Members, r.k, env.Nonce)
	for _, child := range sched.DirectChildren(env.Role) {
		if child == r.owner.Self {
			continue
		}
		fwd := env.Copy()
		fwd.Recipient = child
		fwd.Role = child
		fwd.Sender = r.owner.Self
		r.owner.ScheduleForSend(fwd)
	}

	r.sendAck(env)
}

func (r *Strategy) sendAck(env *message.Envelope) {
	ack := message.NewRollercoaster(env.Source, message.AckBody{}, r.group.ID, env.Source, env.Nonce, env.Role, r.owner.Self)
	r.owner.ScheduleForSend(ack)
}

// Tick handles timeout-driven retransmission with last-seen substitution
// (spec §4.11); a no-op unless timeouts are active.
func (r *Strategy) Tick(ctx *engine.Context) {
	if !r.timeoutsActive {
		return
	}
	for _, sess := range r.sessions {
		for _, t := range sess.popExpired(ctx.Now) {
			r.lastSeen.Remove(t.node)

			if sess.sched.IsLeaf(t.role) {
				continue
			}

			substitute, ok := r.lastSeen.PopTop()
			if !ok {
				substitute = sess.sched.NextReceiver(t.node)
			}

			env := message.NewRollercoaster(substitute, sess.payload, r.group.ID, sess.source, sess.nonce, t.role, r.owner.Self)
			r.attachCallback(env, sess, t.role)
			r.owner.ScheduleForSend(env)

			for _, c := range sess.sched.RecursiveChildren(t.role) {
				sess.removeTimeout(c, c)
			}
		}
	}
}

// Clean drops all sessions, last-seen state, and seen-message memoization
// (spec §4.11).
func (r *Strategy) Clean() {
	r.sessions = make(map[int]*session)
	r.lastSeen.Clean()
	r.seen = make(map[uint64]bool)
}
