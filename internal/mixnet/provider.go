package mixnet

import (
	"github.com/charmbracelet/log"
	"github.com/eapache/queue"

	"github.com/rollercoaster-sim/loopix/internal/delayqueue"
	"github.com/rollercoaster-sim/loopix/internal/engine"
	"github.com/rollercoaster-sim/loopix/internal/message"
	"github.com/rollercoaster-sim/loopix/internal/node"
)

// postboxEntry is a (delivery time, envelope) pair as appended to a user's
// postbox, per spec §3 Provider.postboxes.
type postboxEntry struct {
	deliveredAt int64
	env         *message.Envelope
}

// Provider relays traffic between its users and the mix network. Grounded
// on original_source/simulation/loopix.py's Provider.
type Provider struct {
	Self node.ID
	Name string

	inbox     *delayqueue.Buffer
	postboxes map[node.ID]*queue.Queue // user ID -> FIFO of postboxEntry

	log *log.Logger
}

// NewProvider constructs an empty provider with no registered users yet;
// call RegisterUser for each user assigned to it.
func NewProvider(self node.ID, name string, logger *log.Logger) *Provider {
	return &Provider{
		Self:      self,
		Name:      name,
		inbox:     delayqueue.New(),
		postboxes: make(map[node.ID]*queue.Queue),
		log:       logger.WithPrefix(name),
	}
}

// RegisterUser opens an empty postbox for a user assigned to this provider.
func (p *Provider) RegisterUser(user node.ID) {
	p.postboxes[user] = queue.New()
}

// Deliver discards drop-tagged envelopes early (spec §4.6); everything else
// is inserted into the inbox.
func (p *Provider) Deliver(ctx *engine.Context, env *message.Envelope) {
	if env.Tag == message.TagDrop {
		return
	}
	p.inbox.Add(ctx.Now, env)
}

// Tick releases this round's envelopes from the inbox, unwraps each once,
// and either appends the inner envelope to the destination user's postbox
// (if its recipient is one of this provider's users) or relays it onward
// to a mix node (the last-hop-through-a-provider case for a loop whose
// path happens to cross here).
func (p *Provider) Tick(ctx *engine.Context) {
	released := p.inbox.PopCurrentRound(ctx.Now)
	for _, env := range released {
		inner := unwrapOnce(env)

		if q, ok := p.postboxes[inner.Recipient]; ok {
			q.Add(postboxEntry{deliveredAt: ctx.Now, env: inner})
			continue
		}
		ctx.Send(inner)
	}
}

// TakePostbox atomically drains and clears a user's postbox, returning its
// contents in delivery order.
func (p *Provider) TakePostbox(user node.ID) []postboxEntry {
	q, ok := p.postboxes[user]
	if !ok {
		return nil
	}
	out := make([]postboxEntry, 0, q.Length())
	for q.Length() > 0 {
		out = append(out, q.Remove().(postboxEntry))
	}
	return out
}

func unwrapOnce(env *message.Envelope) *message.Envelope {
	switch env.Kind {
	case message.KindWrapped:
		return env.Unwrap().(*message.Envelope)
	default:
		panic("mixnet: Provider inbox released a non-wrapped envelope")
	}
}
