package mixnet

import (
	"github.com/charmbracelet/log"
	"github.com/eapache/queue"

	"github.com/rollercoaster-sim/loopix/internal/engine"
	"github.com/rollercoaster-sim/loopix/internal/message"
	"github.com/rollercoaster-sim/loopix/internal/node"
	"github.com/rollercoaster-sim/loopix/internal/simrandom"
)

const secondsInDay = 24 * 60 * 60

// MulticastStrategy is the interface a User's per-group strategy
// implements (internal/multicast.Strategy); declared here as a minimal
// method set to avoid a mixnet <-> multicast import cycle (multicast
// needs *User to call SendToGroup/OnReceive; mixnet needs the strategy to
// route inbound payloads and tick it).
type MulticastStrategy interface {
	OnReceive(ctx *engine.Context, env *message.Envelope)
	Tick(ctx *engine.Context)
	Clean()
}

// User is a persistent Loopix node behind a Provider. Grounded on
// original_source/simulation/loopix.py's User.
type User struct {
	Self     node.ID
	Name     string
	Provider node.ID

	multicast map[string]MulticastStrategy

	outBuffer       *queue.Queue // FIFO of *message.Envelope (application payload)
	waitingForSplit *queue.Queue // FIFO of *message.Envelope

	ratePayload float64
	rateDrop    float64
	rateLoop    float64
	rateDelay   float64

	timeBetweenPullsMS float64
	timeUntilPullMS    float64

	split int

	online         bool
	onlineSchedule []bool // len == secondsInDay, or nil

	multiplierLayer int // fan-out layer index for split batching (spec §4.9); default 2

	log *log.Logger
}

// NewUser constructs a user with the given Loopix rates, attached to
// provider, with an optional 86,400-entry online schedule.
func NewUser(self node.ID, name string, provider node.ID, ratePayload, rateDrop, rateLoop, rateDelay, ratePull float64, onlineSchedule []bool, logger *log.Logger) *User {
	u := &User{
		Self: self, Name: name, Provider: provider,
		multicast:          make(map[string]MulticastStrategy),
		outBuffer:          queue.New(),
		waitingForSplit:    queue.New(),
		ratePayload:        ratePayload,
		rateDrop:           rateDrop,
		rateLoop:           rateLoop,
		rateDelay:          rateDelay,
		timeBetweenPullsMS: 1000 / ratePull,
		split:              1,
		online:             true,
		multiplierLayer:    2,
		log:                logger.WithPrefix(name),
	}
	u.timeUntilPullMS = u.timeBetweenPullsMS
	if onlineSchedule != nil {
		u.onlineSchedule = onlineSchedule
		u.online = onlineSchedule[0]
	}
	return u
}

// AddMulticast registers a per-group multicast strategy, keyed by the
// group's ID; the User routes inbound payload envelopes to
// multicast[env.GroupID].
func (u *User) AddMulticast(groupID string, strategy MulticastStrategy) {
	u.multicast[groupID] = strategy
}

// SetSplit updates the split parameter p, scaling the three Poisson rates
// (payload, drop, loop) multiplicatively by p/oldSplit so the per-flush
// output rate matches the intended target (spec §4.7).
func (u *User) SetSplit(p int) {
	if u.split == p {
		return
	}
	ratio := float64(p) / float64(u.split)
	u.rateDrop *= ratio
	u.rateLoop *= ratio
	u.ratePayload *= ratio
	u.split = p
}

// RatePayload exposes the (possibly split-scaled) payload rate; used by a
// Rollercoaster strategy's queue_delay calculation (spec §4.11).
func (u *User) RatePayload() float64 { return u.ratePayload }

// RateDelay exposes the per-hop delay rate used in msg_delay calculations.
func (u *User) RateDelay() float64 { return u.rateDelay }

// ScheduleForSend enqueues an application-typed envelope for outbound
// batching. A user never sends individual application envelopes directly;
// all first-hop traffic leaves as a MultiWrapped envelope (spec §4.7
// invariant).
func (u *User) ScheduleForSend(env *message.Envelope) {
	u.outBuffer.Add(env)
}

// Online reports the user's current online/offline state as of the last
// tick.
func (u *User) Online() bool { return u.online }

// Deliver is invoked by the engine for any envelope addressed directly to
// this user, and ignores it. Application and loop traffic addressed to a
// user both reach it through the provider postbox pull in Tick.
func (u *User) Deliver(ctx *engine.Context, env *message.Envelope) {
	// Self-addressed loop traffic terminates silently; nothing to do.
	_ = ctx
	_ = env
}

// Tick performs the user's five duties in order (spec §4.7): pull, payload,
// drop, loop, flush, then ticks every owned multicast strategy. All duties
// are skipped while the online schedule says this second-of-day is
// offline.
func (u *User) Tick(ctx *engine.Context) {
	if u.onlineSchedule != nil {
		secOfDay := int((ctx.Now / 1000) % secondsInDay)
		u.online = u.onlineSchedule[secOfDay]
		if !u.online {
			return
		}
	}

	world := ctx.World.(*World)

	// DUTY: pull
	u.timeUntilPullMS -= float64(ctx.Delta)
	if u.timeUntilPullMS <= 0 {
		u.timeUntilPullMS = u.timeBetweenPullsMS
		u.processInbox(ctx, world)
	}

	// DUTY: payload
	if ctx.Rnd.PoissonEvent(u.ratePayload) {
		if u.outBuffer.Length() > 0 {
			env := u.outBuffer.Remove().(*message.Envelope)
			u.waitingForSplit.Add(env)
		} else {
			u.sendDrop(ctx, world)
		}
	}

	// DUTY: drop
	if ctx.Rnd.PoissonEvent(u.rateDrop) {
		u.sendDrop(ctx, world)
	}

	// DUTY: loop
	if ctx.Rnd.PoissonEvent(u.rateLoop) {
		u.sendLoop()
	}

	// DUTY: flush
	if u.waitingForSplit.Length() >= u.split {
		u.sendWaitingSplitMessages(ctx, world)
	}

	for _, m := range u.multicast {
		m.Tick(ctx)
	}
}

// processInbox drains the provider postbox for this user, tags each entry
// online/offline per the pull-boundary invariant (spec invariant 9),
// propagates that state into wrapped bodies, and routes payload envelopes
// to their group's multicast strategy.
func (u *User) processInbox(ctx *engine.Context, world *World) {
	provider := world.providerEntity(u.Provider)
	entries := provider.TakePostbox(u.Self)

	for _, e := range entries {
		state := message.DeliveryOffline
		if float64(e.deliveredAt) > float64(ctx.Now)-u.timeBetweenPullsMS {
			state = message.DeliveryOnline
		}
		e.env.SetDeliveryState(state)

		if e.env.Tag != message.TagPayload {
			continue
		}
		strategy, ok := u.multicast[e.env.GroupID]
		if !ok {
			continue
		}
		strategy.OnReceive(ctx, e.env)
	}
}

func (u *User) sendLoop() {
	env := message.NewPlain(u.Self, message.TagLoop, "")
	u.waitingForSplit.Add(env)
}

func (u *User) sendDrop(ctx *engine.Context, world *World) {
	provider := simrandom.Choice(ctx.Rnd, world.Network.Providers)
	env := message.NewPlain(provider, message.TagDrop, "")
	u.waitingForSplit.Add(env)
}

// sendWaitingSplitMessages pops the head `split` envelopes, fires each
// one's first-hop callback, and wraps the batch into a single MultiWrapped
// envelope addressed through [provider, mix0, mix1] with independent
// suffixes per message (spec §4.9).
func (u *User) sendWaitingSplitMessages(ctx *engine.Context, world *World) {
	batch := make([]*message.Envelope, 0, u.split)
	for i := 0; i < u.split; i++ {
		batch = append(batch, u.waitingForSplit.Remove().(*message.Envelope))
	}

	for _, env := range batch {
		env.FireCallbackAndReset(ctx.Now)
	}

	multi := u.wrapInMultiMessage(ctx, world, batch)
	ctx.Send(multi)
}

func (u *User) wrapInMultiMessage(ctx *engine.Context, world *World, batch []*message.Envelope) *message.Envelope {
	net := world.Network
	prefixLen := u.multiplierLayer
	if prefixLen > net.NumLayers() {
		prefixLen = net.NumLayers()
	}

	prefixChain := make([]node.ID, 0, prefixLen+1)
	prefixChain = append(prefixChain, u.Provider)
	for i := 0; i < prefixLen; i++ {
		prefixChain = append(prefixChain, simrandom.Choice(ctx.Rnd, net.Layers[i]))
	}

	suffixes := make([]message.SuffixChain, 0, len(batch))
	for _, env := range batch {
		var chain []node.ID
		for i := prefixLen; i < net.NumLayers(); i++ {
			chain = append(chain, simrandom.Choice(ctx.Rnd, net.Layers[i]))
		}
		if p, ok := world.ProviderOf(env.Recipient); ok {
			chain = append(chain, p)
		}
		suffixes = append(suffixes, message.SuffixChain{Chain: chain, Tag: env.Tag, Body: env})
	}

	return message.CreateWrappedMulti(prefixChain, suffixes, u.rateDelay, ctx.Rnd)
}

// Clean clears temporary per-run state before archival, including the
// post-run scrubbing behavior the original preserves deliberately (spec
// §9 open question 3): online is reset to true and the schedule cleared.
func (u *User) Clean() {
	u.outBuffer = queue.New()
	u.waitingForSplit = queue.New()
	u.onlineSchedule = nil
	u.online = true
	for _, m := range u.multicast {
		m.Clean()
	}
}
