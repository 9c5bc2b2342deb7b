package simapp

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rollercoaster-sim/loopix/internal/engine"
	"github.com/rollercoaster-sim/loopix/internal/simrandom"
)

func TestNewInteractiveMultimessageAppOverridesSend(t *testing.T) {
	interactive, _, members := testInteractiveApp([]bool{true})
	strat := interactive.strategies[members[0]].(*stubStrategy)

	m := NewInteractiveMultimessageApp(interactive, 3)
	m.sendMultipleMessages(&engine.Context{Now: 100}, members[0])

	require.Len(t, strat.sentPayloads, 3)
	require.Equal(t, 0, strat.sentPayloads[0].Nonce)
	require.Equal(t, 1, strat.sentPayloads[1].Nonce)
	require.Equal(t, 2, strat.sentPayloads[2].Nonce)
	for _, p := range strat.sentPayloads {
		require.Equal(t, int64(100), p.CreatedAtMS)
	}
}

func TestInteractiveMultimessageAppTickUsesOverriddenSend(t *testing.T) {
	interactive, world, members := testInteractiveApp([]bool{true})
	strat := interactive.strategies[members[0]].(*stubStrategy)
	interactive.initRatePerSecond = 1e6

	m := NewInteractiveMultimessageApp(interactive, 2)
	ctx := &engine.Context{Rnd: simrandom.New(1, 1.0), World: world}
	m.Tick(ctx)

	require.Len(t, strat.sentPayloads, 2)
}
