package simapp

import (
	"testing"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/rollercoaster-sim/loopix/internal/engine"
	"github.com/rollercoaster-sim/loopix/internal/mixnet"
	"github.com/rollercoaster-sim/loopix/internal/multicast"
	"github.com/rollercoaster-sim/loopix/internal/node"
	"github.com/rollercoaster-sim/loopix/internal/output"
	"github.com/rollercoaster-sim/loopix/internal/simrandom"
)

const testSecondsInDay = 24 * 60 * 60

// testInteractiveApp builds a group of len(onlineMask) users, each started
// with a schedule that pins its online state at simulated second 0 to the
// corresponding onlineMask entry (a nil mask leaves every member's default
// online=true untouched).
func testInteractiveApp(onlineMask []bool) (*InteractiveApp, *mixnet.World, []node.ID) {
	out := output.New(prometheus.NewRegistry())
	members := make([]node.ID, len(onlineMask))
	for i := range members {
		members[i] = node.ID{Kind: node.User, Index: i}
	}
	group := multicast.NewGroup("G", members)
	app := New("App_00", group, out, log.Default())

	world := &mixnet.World{Network: &mixnet.Network{}}
	for i, m := range members {
		schedule := make([]bool, testSecondsInDay)
		schedule[0] = onlineMask[i]
		u := mixnet.NewUser(m, "u", node.ID{Kind: node.Provider, Index: 0}, 1, 1, 1, 1, 1, schedule, log.Default())
		world.RegisterUser(m, u)
		app.RegisterStrategy(m, &stubStrategy{})
	}
	return NewInteractiveApp(app, 1.0, 0.0, 1.0), world, members
}

func TestPickOnlineSenderSkipsOfflineMembers(t *testing.T) {
	app, world, members := testInteractiveApp([]bool{false, true})
	ctx := &engine.Context{Rnd: simrandom.New(1, 1.0), World: world}

	for i := 0; i < 20; i++ {
		sender, ok := app.pickOnlineSender(ctx)
		require.True(t, ok)
		require.Equal(t, members[1], sender, "the offline member must never be picked")
	}
}

func TestPickOnlineSenderReturnsFalseWhenNoneOnline(t *testing.T) {
	app, world, _ := testInteractiveApp([]bool{false, false})
	ctx := &engine.Context{Rnd: simrandom.New(1, 1.0), World: world}
	_, ok := app.pickOnlineSender(ctx)
	require.False(t, ok)
}

func TestTickSkipsSendWhenPoissonRateZero(t *testing.T) {
	app, world, _ := testInteractiveApp([]bool{true})
	app.initRatePerSecond = 0

	var sent bool
	app.send = func(ctx *engine.Context, sender node.ID) { sent = true }
	ctx := &engine.Context{Rnd: simrandom.New(1, 1.0), World: world}
	app.Tick(ctx)
	require.False(t, sent)
}

func TestTickSendsWhenPoissonRateSaturated(t *testing.T) {
	app, world, _ := testInteractiveApp([]bool{true})
	app.initRatePerSecond = 1e6

	var sent bool
	app.send = func(ctx *engine.Context, sender node.ID) { sent = true }
	ctx := &engine.Context{Rnd: simrandom.New(1, 1.0), World: world}
	app.Tick(ctx)
	require.True(t, sent)
}

func TestSendSingleMessageDelegatesToSenderStrategy(t *testing.T) {
	app, _, members := testInteractiveApp([]bool{true})
	strat := app.strategies[members[0]].(*stubStrategy)

	app.sendSingleMessage(&engine.Context{Now: 500}, members[0])
	require.Len(t, strat.sentPayloads, 1)
	require.Equal(t, int64(500), strat.sentPayloads[0].CreatedAtMS)
}
