package mixnet

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rollercoaster-sim/loopix/internal/node"
	"github.com/rollercoaster-sim/loopix/internal/simrandom"
)

func testNetwork() *Network {
	return &Network{
		Layers: [][]node.ID{
			{{Kind: node.Mix, Index: 0}, {Kind: node.Mix, Index: 1}},
			{{Kind: node.Mix, Index: 2}, {Kind: node.Mix, Index: 3}},
			{{Kind: node.Mix, Index: 4}, {Kind: node.Mix, Index: 5}},
		},
		Providers: []node.ID{{Kind: node.Provider, Index: 0}, {Kind: node.Provider, Index: 1}},
	}
}

func TestGenRandomPathOneHopPerLayer(t *testing.T) {
	n := testNetwork()
	rnd := simrandom.New(1, 0.1)
	path := n.GenRandomPath(rnd)

	require.Len(t, path, 3)
	for i, hop := range path {
		require.Contains(t, n.Layers[i], hop)
	}
}

func TestLoopPathAroundOrdersAboveProviderBelow(t *testing.T) {
	n := testNetwork()
	rnd := simrandom.New(1, 0.1)
	path := n.LoopPathAround(1, rnd)

	// layer 1 of 3 (indices 0,1,2): above = layer 2 (1 hop), then a
	// provider, then below = layer 0 (1 hop) = 3 entries total.
	require.Len(t, path, 3)
	require.Contains(t, n.Layers[2], path[0])
	require.Contains(t, n.Providers, path[1])
	require.Contains(t, n.Layers[0], path[2])
}

func TestLoopPathAroundTopLayerHasNoAboveHops(t *testing.T) {
	n := testNetwork()
	rnd := simrandom.New(1, 0.1)
	path := n.LoopPathAround(2, rnd)

	// top layer: no layers above, one provider, two layers below.
	require.Len(t, path, 3)
	require.Contains(t, n.Providers, path[0])
}

func TestNumLayers(t *testing.T) {
	n := testNetwork()
	require.Equal(t, 3, n.NumLayers())
}
