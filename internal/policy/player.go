// Package policy connects the network to the table: a seat that plays by
// sampling from the network's card distribution.
package policy

import (
	"fmt"
	"math/rand/v2"

	"github.com/lox/skatbot/internal/deck"
	"github.com/lox/skatbot/internal/features"
	"github.com/lox/skatbot/internal/game"
	"github.com/lox/skatbot/internal/nn"
)

// DefaultHidden are the hidden layer widths of a freshly created policy.
var DefaultHidden = []int{161, 161, 100, 100}

// Architecture maps an encoded state to a distribution over all cards through
// the given hidden layers.
func Architecture(hidden []int) nn.Architecture {
	return nn.Architecture{
		Inputs:  features.Size,
		Hidden:  append([]int{}, hidden...),
		Outputs: deck.NumCards,
	}
}

// NewNetwork creates an untrained policy network.
func NewNetwork(hidden []int, rng *rand.Rand) (*nn.Network, error) {
	return nn.New(Architecture(hidden), rng)
}

// CheckNetwork verifies a loaded network fits the state encoding and deck.
func CheckNetwork(net *nn.Network) error {
	arch := net.Architecture()
	if arch.Inputs != features.Size {
		return fmt.Errorf("network expects %d inputs, encoder produces %d", arch.Inputs, features.Size)
	}
	if arch.Outputs != deck.NumCards {
		return fmt.Errorf("network has %d outputs, deck has %d cards", arch.Outputs, deck.NumCards)
	}
	return nil
}

// Player is a seat driven by a policy network. Several players may share the
// same network.
type Player struct {
	game.Recorder
	net *nn.Network
	rng *rand.Rand
}

// NewPlayer creates a seat sampling from net.
func NewPlayer(net *nn.Network, rng *rand.Rand) *Player {
	return &Player{net: net, rng: rng}
}

// QueryPolicy samples a card for the last observed state. Cards the engine
// has already rejected in this state are excluded.
func (p *Player) QueryPolicy() (deck.Card, error) {
	probs := p.net.Predict(features.Encode(p.LastState()))
	return SampleCard(probs, p.Rejected(), p.rng)
}

var _ game.Seat = (*Player)(nil)
