package mixnet

import (
	"github.com/charmbracelet/log"

	"github.com/rollercoaster-sim/loopix/internal/delayqueue"
	"github.com/rollercoaster-sim/loopix/internal/engine"
	"github.com/rollercoaster-sim/loopix/internal/message"
	"github.com/rollercoaster-sim/loopix/internal/node"
)

// MixNode injects loop traffic (at RateLoop with RateLoopDelay) and holds
// incoming messages according to their delay, then forwards them. Grounded
// on original_source/simulation/loopix.py's MixNode.
type MixNode struct {
	Self  node.ID
	Name  string
	Layer int

	inbox *delayqueue.Buffer

	rateLoop  float64
	rateDelay float64

	log *log.Logger
}

// NewMixNode constructs a mix node at the given layer.
func NewMixNode(self node.ID, layer int, rateLoop, rateLoopDelay float64, logger *log.Logger) *MixNode {
	name := mixName(layer, self.Index)
	return &MixNode{
		Self: self, Name: name, Layer: layer,
		inbox:     delayqueue.New(),
		rateLoop:  rateLoop,
		rateDelay: rateLoopDelay,
		log:       logger.WithPrefix(name),
	}
}

// Deliver appends the envelope to the inbox; its release deadline is
// computed from its DelayMS at insertion time.
func (m *MixNode) Deliver(ctx *engine.Context, env *message.Envelope) {
	m.inbox.Add(ctx.Now, env)
}

// Tick, per spec §4.5: with Poisson probability emit a loop envelope, then
// release and unwrap this round's envelopes, forwarding each inner
// envelope (or each child of a multi-wrapped body) to its recipient.
func (m *MixNode) Tick(ctx *engine.Context) {
	if ctx.Rnd.PoissonEvent(m.rateLoop) {
		m.sendLoop(ctx)
		// continue: loops are independent of forwarding
	}

	released := m.inbox.PopCurrentRound(ctx.Now)
	for _, env := range released {
		switch env.Kind {
		case message.KindWrapped:
			inner, ok := env.Unwrap().(*message.Envelope)
			if !ok {
				// Innermost layer of this mix's own loop: the loop ends here.
				continue
			}
			ctx.Send(inner)
		case message.KindMultiWrapped:
			for _, child := range env.Unwrap().([]*message.Envelope) {
				ctx.Send(child)
			}
		default:
			panic("mixnet: MixNode inbox released a non-wrapped envelope")
		}
	}
}

func (m *MixNode) sendLoop(ctx *engine.Context) {
	world := ctx.World.(*World)
	path := world.Network.LoopPathAround(m.Layer, ctx.Rnd)
	path = append(path, m.Self)

	env := message.CreateWrapped(message.TagLoop, "", path, m.rateDelay, ctx.Rnd)
	ctx.Send(env)
}
