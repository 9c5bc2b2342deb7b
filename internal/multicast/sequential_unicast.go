package multicast

import (
	"github.com/rollercoaster-sim/loopix/internal/engine"
	"github.com/rollercoaster-sim/loopix/internal/message"
	"github.com/rollercoaster-sim/loopix/internal/mixnet"
)

// SequentialUnicast fans a payload out as one Application envelope per
// group member (spec §4.12): no acknowledgement, no retransmission, no
// tree structure. It is the baseline strategy Rollercoaster is compared
// against.
type SequentialUnicast struct {
	owner   *mixnet.User
	group   *Group
	deliver DeliverFunc
}

// NewSequentialUnicast builds a strategy bound to owner for group, handing
// received payloads to deliver.
func NewSequentialUnicast(owner *mixnet.User, group *Group, deliver DeliverFunc) *SequentialUnicast {
	return &SequentialUnicast{owner: owner, group: group, deliver: deliver}
}

// SendToGroup enqueues one Application envelope per member other than the
// owner into the owner's outbound buffer.
func (s *SequentialUnicast) SendToGroup(payload message.Payload) {
	for _, m := range s.group.Members {
		if m == s.owner.Self {
			continue
		}
		env := message.NewApplication(m, s.group.ID, payload)
		s.owner.ScheduleForSend(env)
	}
}

// OnReceive delivers straight to the application; there is no
// acknowledgement path.
func (s *SequentialUnicast) OnReceive(ctx *engine.Context, env *message.Envelope) {
	payload := env.Body.(message.Payload)
	s.deliver(ctx, s.owner.Self, env, payload)
}

// Tick is a no-op; SequentialUnicast has no timeout machinery.
func (s *SequentialUnicast) Tick(ctx *engine.Context) { _ = ctx }

// Clean is a no-op; SequentialUnicast holds no per-run state.
func (s *SequentialUnicast) Clean() {}
