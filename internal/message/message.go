// Package message implements the envelope model of spec §3/§4.9: immutable-
// after-send, onion-like envelopes that are pattern-matched by recipients
// rather than dispatched through a class hierarchy.
//
// Grounded on original_source/simulation/messages.py: Message, WrappedMessage,
// WrappedMultiMessage, ApplicationMessage and the create_wrapped_message /
// create_wrapped_multi_message_multiple constructors, ported field-for-field.
package message

import (
	"github.com/rollercoaster-sim/loopix/internal/node"
	"github.com/rollercoaster-sim/loopix/internal/simrandom"
)

// Tag is the envelope's tracking tag; the alphabet is fixed (spec §3).
type Tag string

const (
	TagPayload Tag = "payload"
	TagDrop    Tag = "drop"
	TagLoop    Tag = "loop"
	TagMulti   Tag = "multi"
)

// Kind discriminates the envelope variant. Recipients pattern-match on Kind
// rather than using type assertions against a class hierarchy (design note
// in spec §9).
type Kind uint8

const (
	KindPlain Kind = iota
	KindWrapped
	KindMultiWrapped
	KindApplication
	KindRollercoaster
)

// DeliveryState records whether a message arrived to its final recipient
// while they were online or offline, propagated recursively into the bodies
// of wrapped chains (spec §4.7 _process_inbox).
type DeliveryState uint8

const (
	DeliveryUnset DeliveryState = iota
	DeliveryOnline
	DeliveryOffline
)

// Payload is the application-layer datum carried inside Application and
// Rollercoaster envelopes. Its nonce is monotonically increasing per
// (application, session).
type Payload struct {
	Nonce       int   `cbor:"nonce"`
	CreatedAtMS int64 `cbor:"created_at_ms"`
}

// AckBody marks a Rollercoaster envelope as carrying an acknowledgement
// rather than a payload (original_source's RollercoasterMessage.ACK).
type AckBody struct{}

// Callback wraps the hook to invoke when this envelope leaves the sender's
// first hop (i.e. is flushed out of User.waitingForSplit). It is excluded
// from serialization (see Envelope.Callback) and is simply absent after a
// snapshot is rehydrated, which is equivalent to the original's rebind-to-
// no-op behavior (spec §6, §9's design note on the send-callback).
type Callback struct {
	Fire func(env *Envelope, nowMS int64)
}

// Envelope is the single tagged-variant message type. Only the fields
// relevant to Kind are meaningful; see the Kind-specific constructors below
// for which fields each variant populates.
type Envelope struct {
	Kind      Kind   `cbor:"kind"`
	Recipient node.ID `cbor:"recipient"`
	Tag       Tag    `cbor:"tag"`

	// Plain: Body is a string (possibly empty, for drop/loop envelopes).
	// Wrapped: Body is *Envelope (the next inner layer).
	// MultiWrapped: Body is []*Envelope (fan-out children).
	// Application/Rollercoaster: Body is Payload or AckBody.
	Body interface{} `cbor:"body"`

	DeliveryState DeliveryState `cbor:"delivery_state"`

	// Wrapped/MultiWrapped only.
	DelayMS int64 `cbor:"delay_ms,omitempty"`

	// Application/Rollercoaster only.
	GroupID string `cbor:"group_id,omitempty"`

	// Rollercoaster only.
	Source node.ID `cbor:"source,omitempty"`
	Nonce  int     `cbor:"nonce,omitempty"`
	Role   node.ID `cbor:"role,omitempty"`
	Sender node.ID `cbor:"sender,omitempty"`

	// Callback fires exactly once, when this envelope is flushed from the
	// sender's first hop. Excluded from serialization (cbor:"-") and
	// rebound to nil after load, matching the original's __getstate__/
	// __setstate__ pair that drops the callback from pickling.
	Callback *Callback `cbor:"-"`
}

// NewPlain builds an un-wrapped envelope: payload/drop/loop traffic as it
// leaves a User before being batched, or a message already at its final hop.
func NewPlain(recipient node.ID, tag Tag, body interface{}) *Envelope {
	return &Envelope{Kind: KindPlain, Recipient: recipient, Tag: tag, Body: body}
}

// NewApplication builds a top-level application-typed envelope (used only by
// the SequentialUnicast strategy, spec §4.12).
func NewApplication(recipient node.ID, groupID string, payload Payload) *Envelope {
	return &Envelope{Kind: KindApplication, Recipient: recipient, Tag: TagPayload, Body: payload, GroupID: groupID}
}

// NewRollercoaster builds a Rollercoaster-tagged application envelope.
// recipient != sender and role != source are invariants enforced by the
// caller (spec §3); violating them is a programming error, not handled
// here.
func NewRollercoaster(recipient node.ID, body interface{}, groupID string, source node.ID, nonce int, role, sender node.ID) *Envelope {
	return &Envelope{
		Kind: KindRollercoaster, Recipient: recipient, Tag: TagPayload, Body: body,
		GroupID: groupID, Source: source, Nonce: nonce, Role: role, Sender: sender,
	}
}

// Copy returns a shallow copy of a Rollercoaster envelope suitable for
// re-addressing (role/sender rewritten by the caller), matching
// RollercoasterMessage.copy().
func (e *Envelope) Copy() *Envelope {
	cp := *e
	return &cp
}

// ID uniquely identifies a Rollercoaster message for dedup purposes: a
// message is safe to ignore if already handled for this (source, nonce,
// role) tuple.
func (e *Envelope) ID() (node.ID, int, node.ID) {
	return e.Source, e.Nonce, e.Role
}

// SetDeliveryState sets the delivery-online state and propagates it
// recursively into a Wrapped envelope's inner body, matching
// WrappedMessage.set_deliver_online_state.
func (e *Envelope) SetDeliveryState(state DeliveryState) {
	e.DeliveryState = state
	if e.Kind == KindWrapped {
		if inner, ok := e.Body.(*Envelope); ok {
			inner.SetDeliveryState(state)
		}
	}
}

// FireCallbackAndReset invokes the attached hook (if any) then clears it, so
// it fires exactly once.
func (e *Envelope) FireCallbackAndReset(nowMS int64) {
	cb := e.Callback
	e.Callback = nil
	if cb != nil && cb.Fire != nil {
		cb.Fire(e, nowMS)
	}
}

// Unwrap returns a Wrapped envelope's inner body, or a MultiWrapped
// envelope's list of children boxed as []*Envelope. It panics with a plain
// message if called on a non-wrapped envelope; only Wrapped/MultiWrapped envelopes are ever inserted into a
// delay buffer (spec §4.2), so this is only ever called on those kinds.
func (e *Envelope) Unwrap() interface{} {
	switch e.Kind {
	case KindWrapped:
		return e.Body
	case KindMultiWrapped:
		return e.Body
	default:
		panic("message: Unwrap called on a non-wrapped envelope")
	}
}

// CreateWrapped produces a nested Wrapped envelope addressed through chain,
// each layer's delay drawn i.i.d. from PoissonDelay(rateDelay). The
// outermost recipient is chain[0]; the innermost body is `body`, addressed
// finally to chain[len(chain)-1]. All layers share tag.
func CreateWrapped(tag Tag, body interface{}, chain []node.ID, rateDelay float64, rnd *simrandom.Source) *Envelope {
	if len(chain) == 0 {
		panic("message: CreateWrapped called with an empty chain")
	}
	last := len(chain) - 1
	env := &Envelope{
		Kind: KindWrapped, Recipient: chain[last], Tag: tag, Body: body,
		DelayMS: rnd.PoissonDelay(rateDelay),
	}
	for i := last - 1; i >= 0; i-- {
		env = &Envelope{
			Kind: KindWrapped, Recipient: chain[i], Tag: tag, Body: env,
			DelayMS: rnd.PoissonDelay(rateDelay),
		}
	}
	return env
}

// SuffixChain is one fan-out branch for CreateWrappedMulti: its own chain,
// tag and body, wrapped independently before being bundled.
type SuffixChain struct {
	Chain []node.ID
	Tag   Tag
	Body  interface{}
}

// CreateWrappedMulti builds independent Wrapped chains per suffix, bundles
// them into a single MultiWrapped envelope addressed to the last hop of
// prefixChain (tag=multi), then extends the prefix with further Wrapped
// layers addressed to each earlier prefix hop (tag=multi). Every layer's
// delay is drawn i.i.d. from PoissonDelay(rateDelay). A suffix with an
// empty chain whose body is an *Envelope adds no layer: that envelope is
// bundled as is and leaves the fan-out hop addressed to its own recipient.
func CreateWrappedMulti(prefixChain []node.ID, suffixes []SuffixChain, rateDelay float64, rnd *simrandom.Source) *Envelope {
	children := make([]*Envelope, len(suffixes))
	for i, sc := range suffixes {
		if inner, ok := sc.Body.(*Envelope); ok && len(sc.Chain) == 0 {
			children[i] = inner
			continue
		}
		children[i] = CreateWrapped(sc.Tag, sc.Body, sc.Chain, rateDelay, rnd)
	}

	multiplier := prefixChain[len(prefixChain)-1]
	env := &Envelope{
		Kind: KindMultiWrapped, Recipient: multiplier, Tag: TagMulti, Body: children,
		DelayMS: rnd.PoissonDelay(rateDelay),
	}

	for i := len(prefixChain) - 2; i >= 0; i-- {
		env = &Envelope{
			Kind: KindWrapped, Recipient: prefixChain[i], Tag: TagMulti, Body: env,
			DelayMS: rnd.PoissonDelay(rateDelay),
		}
	}
	return env
}
