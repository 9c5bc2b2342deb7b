package simapp

import (
	"github.com/rollercoaster-sim/loopix/internal/engine"
	"github.com/rollercoaster-sim/loopix/internal/node"
)

// InteractiveMultimessageApp is an InteractiveApp whose triggered sends
// fan out MultiMessage independent payloads instead of one (spec §4.8).
type InteractiveMultimessageApp struct {
	*InteractiveApp

	multiMessage int
}

// NewInteractiveMultimessageApp wraps app so each trigger sends
// multiMessage independent payloads.
func NewInteractiveMultimessageApp(app *InteractiveApp, multiMessage int) *InteractiveMultimessageApp {
	m := &InteractiveMultimessageApp{InteractiveApp: app, multiMessage: multiMessage}
	m.send = m.sendMultipleMessages
	return m
}

func (m *InteractiveMultimessageApp) sendMultipleMessages(ctx *engine.Context, sender node.ID) {
	for i := 0; i < m.multiMessage; i++ {
		payload := m.CreatePayload(ctx.Now)
		m.SendPayloadToGroup(sender, payload)
	}
}
