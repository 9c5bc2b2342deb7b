// Package simapp implements the application layer of spec §4.8: payload
// generation, per-application de-duplication, and end-to-end delay
// recording on top of a per-user multicast strategy.
//
// Grounded on original_source/simulation/application.py's Application,
// InteractiveApp and InteractiveMultimessageApp.
package simapp

import (
	"github.com/charmbracelet/log"

	"github.com/rollercoaster-sim/loopix/internal/message"
	"github.com/rollercoaster-sim/loopix/internal/multicast"
	"github.com/rollercoaster-sim/loopix/internal/node"
	"github.com/rollercoaster-sim/loopix/internal/output"
)

type dedupeKey struct {
	recipient node.ID
	nonce     int
}

// App owns one multicast strategy instance per member of its group and
// records delivery outcomes into an Output.
type App struct {
	Name  string
	Group *multicast.Group

	nonce      int
	strategies map[node.ID]multicast.Strategy
	seen       map[dedupeKey]bool

	out *output.Output
	log *log.Logger
}

// New constructs an empty App for group, recording into out.
func New(name string, group *multicast.Group, out *output.Output, logger *log.Logger) *App {
	return &App{
		Name:       name,
		Group:      group,
		strategies: make(map[node.ID]multicast.Strategy),
		seen:       make(map[dedupeKey]bool),
		out:        out,
		log:        logger.WithPrefix(name),
	}
}

// RegisterStrategy associates userID's already-constructed multicast
// strategy with this application, so SendPayloadToGroup can reach it.
func (a *App) RegisterStrategy(userID node.ID, s multicast.Strategy) {
	a.strategies[userID] = s
}

// CreatePayload returns a fresh Payload with a monotonically increasing
// nonce, stamped at nowMS.
func (a *App) CreatePayload(nowMS int64) message.Payload {
	n := a.nonce
	a.nonce++
	return message.Payload{Nonce: n, CreatedAtMS: nowMS}
}

// SendPayloadToGroup delegates to sender's registered strategy for this
// application's group.
func (a *App) SendPayloadToGroup(sender node.ID, payload message.Payload) {
	s, ok := a.strategies[sender]
	if !ok {
		return
	}
	s.SendToGroup(payload)
}

// OnPayload de-duplicates by (recipient, payload.Nonce): the first
// occurrence is logged as an end-to-end delay sample (and into the
// online-only sublist iff env arrived while the recipient was online);
// every subsequent occurrence only increments the duplicate counter.
func (a *App) OnPayload(nowMS int64, recipient node.ID, env *message.Envelope, payload message.Payload) {
	key := dedupeKey{recipient: recipient, nonce: payload.Nonce}
	if a.seen[key] {
		a.out.LogAlreadySeen(a.Name)
		return
	}
	a.seen[key] = true
	delay := nowMS - payload.CreatedAtMS
	a.out.LogE2EDelay(a.Name, nowMS, delay, env.DeliveryState == message.DeliveryOnline)
}
