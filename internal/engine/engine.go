// Package engine implements the fixed-Δ discrete-event core of spec §4.3:
// simulated time, the list of tickable entities, and a single-round
// in-transit message bus.
//
// Grounded on original_source/simulation/simulation.py's Simulation /
// SimulationObject / after_round. Per spec §9's design note on global
// mutable state, entities do not hold a long-lived back-reference to the
// Simulation; instead Tick/Deliver take a *Context explicitly.
package engine

import (
	"github.com/charmbracelet/log"

	"github.com/rollercoaster-sim/loopix/internal/message"
	"github.com/rollercoaster-sim/loopix/internal/node"
	"github.com/rollercoaster-sim/loopix/internal/simrandom"
)

// Entity is anything the engine ticks once per round and can deliver
// envelopes to. Implementations must not retain the *Context passed to
// them beyond the call.
type Entity interface {
	Tick(ctx *Context)
	Deliver(ctx *Context, env *message.Envelope)
}

// Cleaner is implemented by entities that hold round-scoped or
// schedule-scoped state that should be released before archival (spec
// §4.3 clean()).
type Cleaner interface {
	Clean()
}

// Context is passed explicitly to every Tick/Deliver call instead of being
// embedded in each entity, so entities never hold a standing reference to
// the simulation (spec §9).
type Context struct {
	Now   int64
	Delta int64
	Rnd   *simrandom.Source

	// World carries whatever shared, effectively-static topology an
	// entity needs (e.g. the mix network layers and provider list) without
	// it holding a standing reference to the Simulation itself. Entities
	// type-assert it to their own concrete world type; see internal/mixnet.
	World interface{}

	// Send enqueues an envelope onto the in-transit bus for delivery at
	// the end of the current round. It is the one capability Tick/Deliver
	// need from the Simulation; handing out this narrow closure (rather
	// than the Simulation itself) is what lets entities avoid holding a
	// long-lived back-reference to it (spec §9).
	Send func(env *message.Envelope)
}

// Resolver turns a node.ID back into the Entity that owns it. The engine
// itself never stores entities keyed by ID; that storage belongs to the
// package composing the simulation (internal/mixnet), which registers its
// lookup once via SetResolver.
type Resolver func(id node.ID) Entity

// Simulation owns simulated time, Δ, the ordered list of tickable
// entities, the in-transit bus, and the RNG.
type Simulation struct {
	log *log.Logger

	timeMS int64
	delta  int64

	entities []Entity
	inFlight []*message.Envelope

	rnd      *simrandom.Source
	resolve  Resolver
	world    interface{}
}

// SetWorld installs the shared, read-only topology value exposed to every
// entity via Context.World.
func (s *Simulation) SetWorld(w interface{}) {
	s.world = w
}

// New creates a Simulation with the given Δ (milliseconds) and seed.
func New(deltaMS int64, seed int64, logger *log.Logger) *Simulation {
	if logger == nil {
		logger = log.Default()
	}
	return &Simulation{
		log:   logger.WithPrefix("sim"),
		delta: deltaMS,
		rnd:   simrandom.New(seed, float64(deltaMS)/1000.0),
	}
}

// SetResolver installs the recipient-lookup function used when draining the
// in-transit bus at the end of a round.
func (s *Simulation) SetResolver(r Resolver) {
	s.resolve = r
}

// AddEntity appends an entity to the declared tick order. Order is
// significant: entities tick in this order every round (spec §5).
func (s *Simulation) AddEntity(e Entity) {
	s.entities = append(s.entities, e)
}

// Now returns the current simulated time in milliseconds.
func (s *Simulation) Now() int64 { return s.timeMS }

// Delta returns the fixed per-tick duration in milliseconds.
func (s *Simulation) Delta() int64 { return s.delta }

// Rnd returns the simulation's RNG service.
func (s *Simulation) Rnd() *simrandom.Source { return s.rnd }

// Send appends env to the in-transit bus; it will be delivered at the end
// of the current round, deferred by exactly one round from this call
// (spec §4.3).
func (s *Simulation) Send(env *message.Envelope) {
	s.inFlight = append(s.inFlight, env)
}

func (s *Simulation) context() *Context {
	return &Context{Now: s.timeMS, Delta: s.delta, Rnd: s.rnd, World: s.world, Send: s.Send}
}

// Tick advances the simulation by exactly one round: every entity's Tick is
// invoked in declared order, simulated time then advances by Δ, and
// finally afterRound() drains the in-transit bus.
func (s *Simulation) Tick() {
	ctx := s.context()
	for _, e := range s.entities {
		e.Tick(ctx)
	}
	s.timeMS += s.delta
	s.afterRound()
}

// afterRound delivers every envelope sent during the round just completed,
// in send order, to its recipient's Deliver, then clears the bus.
func (s *Simulation) afterRound() {
	ctx := s.context()
	pending := s.inFlight
	s.inFlight = nil
	for _, env := range pending {
		recipient := s.resolve(env.Recipient)
		recipient.Deliver(ctx, env)
	}
}

// Run performs floor(durationMS/Δ) ticks, logging a progress record every
// 100,000ms of simulated time (spec §4.3).
func (s *Simulation) Run(durationMS int64) {
	iterations := durationMS / s.delta
	for i := int64(0); i < iterations; i++ {
		s.Tick()
		if s.timeMS%100_000 == 0 {
			pct := 100 * float64(s.timeMS) / float64(durationMS)
			s.log.Infof("progress %.2f%%", pct)
		}
	}
}

// Clean invokes Clean() on every entity that implements Cleaner, releasing
// round-scoped or schedule-scoped state prior to archival.
func (s *Simulation) Clean() {
	for _, e := range s.entities {
		if c, ok := e.(Cleaner); ok {
			c.Clean()
		}
	}
}
