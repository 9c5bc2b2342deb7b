package mixnet

import (
	"github.com/rollercoaster-sim/loopix/config"
	"github.com/rollercoaster-sim/loopix/internal/node"
)

// World is the shared, effectively-static topology every mixnet entity
// needs during Tick/Deliver: the network layers, the provider list, a
// lookup from a User's ID to its Provider's ID (used to decide whether a
// final-mile provider hop is needed when fanning out a split batch), and
// the active LoopixConfig. It is installed once via
// engine.Simulation.SetWorld and reached through engine.Context.World
// (spec §9's "context containing RNG, now, network").
type World struct {
	Network      *Network
	UserProvider map[node.ID]node.ID
	Config       config.LoopixConfig

	providers map[node.ID]*Provider
	users     map[node.ID]*User
}

// ProviderOf returns (providerID, true) iff id names a User, else
// (zero, false). Mirrors the original's hasattr(m.recipient, 'provider').
func (w *World) ProviderOf(id node.ID) (node.ID, bool) {
	if id.Kind != node.User {
		return node.Zero, false
	}
	p, ok := w.UserProvider[id]
	return p, ok
}

// RegisterProvider makes a Provider's entity reachable via providerEntity,
// for the User pull duty's direct postbox access (spec §4.7); this is a
// narrow lookup table the World owns, not a back-reference any entity
// holds onto (spec §9).
func (w *World) RegisterProvider(id node.ID, p *Provider) {
	if w.providers == nil {
		w.providers = make(map[node.ID]*Provider)
	}
	w.providers[id] = p
}

func (w *World) providerEntity(id node.ID) *Provider {
	return w.providers[id]
}

// RegisterUser makes a User's entity reachable via UserEntity, for
// InteractiveApp's online-sender selection (spec §4.8).
func (w *World) RegisterUser(id node.ID, u *User) {
	if w.users == nil {
		w.users = make(map[node.ID]*User)
	}
	w.users[id] = u
}

// UserEntity returns the User entity behind id, or nil if id does not name
// a registered user.
func (w *World) UserEntity(id node.ID) *User {
	return w.users[id]
}
