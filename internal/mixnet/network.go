// Package mixnet implements the Loopix node state machines and topology of
// spec §4.4–§4.9: MixNode, Provider, User, and the layered mix Network.
//
// Grounded line-for-line on original_source/simulation/loopix.py
// (MixNode, Provider, User, LayeredMixNetwork, create_provider_with_users,
// create_loopix_simulation). Rate-field naming follows the teacher's
// client2/rates.go Rates{messageOrLoop, loop, drop}, itself derived from
// core/pki's cpki.Document{LambdaP, LambdaL, LambdaD}.
package mixnet

import (
	"fmt"

	"github.com/rollercoaster-sim/loopix/internal/node"
	"github.com/rollercoaster-sim/loopix/internal/simrandom"
)

// Network is the ordered list of mix layers, each an ordered list of mix
// node IDs, plus the provider IDs. It supplies uniform-random path
// construction (spec §4.4).
type Network struct {
	Layers    [][]node.ID
	Providers []node.ID
}

// GenRandomPath returns a forward path [l0, l1, ..., l_{L-1}] built by an
// independent uniform choice within each layer.
func (n *Network) GenRandomPath(rnd *simrandom.Source) []node.ID {
	path := make([]node.ID, len(n.Layers))
	for i, layer := range n.Layers {
		path[i] = simrandom.Choice(rnd, layer)
	}
	return path
}

// LoopPathAround builds the path a mix node at the given layer uses for its
// own loop traffic: layers strictly above (ascending), one uniformly chosen
// provider, layers strictly below (ascending), and finally the mix node
// itself as the terminal recipient (spec §4.5). It does not append self;
// the caller does that, since Network has no notion of "this" mix node.
func (n *Network) LoopPathAround(layer int, rnd *simrandom.Source) []node.ID {
	var path []node.ID
	for idx := layer + 1; idx < len(n.Layers); idx++ {
		path = append(path, simrandom.Choice(rnd, n.Layers[idx]))
	}
	path = append(path, simrandom.Choice(rnd, n.Providers))
	for idx := 0; idx < layer; idx++ {
		path = append(path, simrandom.Choice(rnd, n.Layers[idx]))
	}
	return path
}

// NumLayers reports the number of mix layers.
func (n *Network) NumLayers() int {
	return len(n.Layers)
}

func mixName(layer, idx int) string {
	return fmt.Sprintf("Mix_%01d_%02d", layer, idx)
}
