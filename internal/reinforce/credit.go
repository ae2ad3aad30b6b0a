// Package reinforce holds the REINFORCE pieces that sit between self-play
// and the network: credit assignment over a game's rewards and the policy
// gradient loss.
package reinforce

import (
	"fmt"
	"strings"
)

// CreditAssigner rewrites the raw per-decision rewards of one seat's game.
type CreditAssigner interface {
	Assign(rewards []float64) []float64
}

// BroadcastFinal credits every decision with the game's final reward.
type BroadcastFinal struct{}

// Assign returns a slice of the same length filled with the last reward.
func (BroadcastFinal) Assign(rewards []float64) []float64 {
	out := make([]float64, len(rewards))
	if len(rewards) == 0 {
		return out
	}
	final := rewards[len(rewards)-1]
	for i := range out {
		out[i] = final
	}
	return out
}

// DiscountedReturn credits each decision with the discounted sum of the
// rewards from that decision onwards.
type DiscountedReturn struct {
	Gamma float64
}

// Assign computes reward_t = Σ_{k>=t} γ^(k-t) r_k.
func (d DiscountedReturn) Assign(rewards []float64) []float64 {
	out := make([]float64, len(rewards))
	running := 0.0
	for i := len(rewards) - 1; i >= 0; i-- {
		running = rewards[i] + d.Gamma*running
		out[i] = running
	}
	return out
}

// Credit schemes accepted by NewCreditAssigner.
const (
	CreditBroadcast  = "broadcast"
	CreditDiscounted = "discounted"
)

// NewCreditAssigner maps a configuration name to an assigner.
func NewCreditAssigner(name string, gamma float64) (CreditAssigner, error) {
	switch strings.ToLower(name) {
	case "", CreditBroadcast:
		return BroadcastFinal{}, nil
	case CreditDiscounted:
		if gamma < 0 || gamma > 1 {
			return nil, fmt.Errorf("gamma must be in [0, 1], got %g", gamma)
		}
		return DiscountedReturn{Gamma: gamma}, nil
	default:
		return nil, fmt.Errorf("unknown credit scheme %q", name)
	}
}
