package simapp

import (
	"github.com/rollercoaster-sim/loopix/internal/engine"
	"github.com/rollercoaster-sim/loopix/internal/message"
	"github.com/rollercoaster-sim/loopix/internal/mixnet"
	"github.com/rollercoaster-sim/loopix/internal/node"
	"github.com/rollercoaster-sim/loopix/internal/simrandom"
)

// InteractiveApp triggers a new group message at a Poisson rate, picking
// an online sender weighted toward a configurable "heavy user" head
// segment of the group's member list (spec §4.8).
type InteractiveApp struct {
	*App

	initRatePerSecond   float64
	heavyUserPercentage float64
	heavyUserWeight     float64

	send func(ctx *engine.Context, sender node.ID)
}

// NewInteractiveApp wraps app with Poisson-triggered sending.
func NewInteractiveApp(app *App, initRatePerSecond, heavyUserPercentage, heavyUserWeight float64) *InteractiveApp {
	a := &InteractiveApp{
		App:                 app,
		initRatePerSecond:   initRatePerSecond,
		heavyUserPercentage: heavyUserPercentage,
		heavyUserWeight:     heavyUserWeight,
	}
	a.send = a.sendSingleMessage
	return a
}

// Tick fires at most one trigger per round, Poisson-gated at
// initRatePerSecond, picking the sender among currently-online group
// members.
func (a *InteractiveApp) Tick(ctx *engine.Context) {
	if !ctx.Rnd.PoissonEvent(a.initRatePerSecond) {
		return
	}
	sender, ok := a.pickOnlineSender(ctx)
	if !ok {
		return
	}
	a.send(ctx, sender)
}

func (a *InteractiveApp) pickOnlineSender(ctx *engine.Context) (node.ID, bool) {
	world := ctx.World.(*mixnet.World)
	members := a.Group.Members
	heavyCount := int(a.heavyUserPercentage * float64(len(members)))

	var online []node.ID
	var weights []float64
	for i, m := range members {
		u := world.UserEntity(m)
		if u == nil || !u.Online() {
			continue
		}
		online = append(online, m)
		if i < heavyCount {
			weights = append(weights, a.heavyUserWeight)
		} else {
			weights = append(weights, 1)
		}
	}
	if len(online) == 0 {
		return node.Zero, false
	}
	return simrandom.ChoiceWithWeights(ctx.Rnd, online, weights), true
}

func (a *InteractiveApp) sendSingleMessage(ctx *engine.Context, sender node.ID) {
	payload := a.CreatePayload(ctx.Now)
	a.SendPayloadToGroup(sender, payload)
}

// Deliver is a no-op; applications are never addressed directly, only
// reached via a user's multicast strategy.
func (a *InteractiveApp) Deliver(ctx *engine.Context, env *message.Envelope) {
	_ = ctx
	_ = env
}

// Clean is a no-op; InteractiveApp holds no per-run state beyond what its
// embedded App and the users' strategies already clean.
func (a *InteractiveApp) Clean() {}
