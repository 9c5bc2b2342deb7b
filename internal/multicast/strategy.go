package multicast

import (
	"github.com/rollercoaster-sim/loopix/internal/engine"
	"github.com/rollercoaster-sim/loopix/internal/message"
	"github.com/rollercoaster-sim/loopix/internal/node"
)

// DeliverFunc is how a strategy hands a payload up to the application
// layer, de-coupling internal/multicast from internal/simapp (which would
// otherwise need to import this package, and be imported by it, forming a
// cycle). simapp supplies one of these per (user, group) at construction.
type DeliverFunc func(ctx *engine.Context, recipient node.ID, env *message.Envelope, payload message.Payload)

// Strategy is what a User installs per multicast group (spec §4.7's
// per-group multicast strategy table). It is a strict superset of
// mixnet.MulticastStrategy: the OnReceive/Tick/Clean method set satisfies
// that interface structurally, with SendToGroup as the application-facing
// entry point the rest of the codebase is not otherwise aware of.
type Strategy interface {
	SendToGroup(payload message.Payload)
	OnReceive(ctx *engine.Context, env *message.Envelope)
	Tick(ctx *engine.Context)
	Clean()
}
