package policy

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/lox/skatbot/internal/deck"
	"gonum.org/v1/gonum/floats"
)

// ErrNoCandidates is returned when every card has been excluded.
var ErrNoCandidates = errors.New("policy: every card is excluded")

// SampleCard draws a card using probs as categorical weights. Cards in
// exclude are never returned; the remaining weights are renormalised, and if
// none remain the draw is uniform over the cards not excluded.
func SampleCard(probs []float64, exclude []deck.Card, rng *rand.Rand) (deck.Card, error) {
	if len(probs) != deck.NumCards {
		return 0, fmt.Errorf("policy: got %d probabilities, want %d", len(probs), deck.NumCards)
	}

	weights := make([]float64, deck.NumCards)
	for i, p := range probs {
		if p > 0 && !math.IsInf(p, 0) {
			weights[i] = p
		}
	}
	allowed := deck.NumCards
	for _, c := range exclude {
		if c.Valid() && weights[c] >= 0 {
			weights[c] = -1
		}
	}
	for i, w := range weights {
		if w < 0 {
			weights[i] = 0
			allowed--
		}
	}
	if allowed == 0 {
		return 0, ErrNoCandidates
	}

	cum := floats.CumSum(make([]float64, deck.NumCards), weights)
	total := cum[len(cum)-1]
	if total <= 0 {
		return uniformExcept(exclude, allowed, rng), nil
	}

	u := rng.Float64() * total
	idx := sort.Search(len(cum), func(i int) bool { return cum[i] > u })
	if idx == len(cum) {
		idx = len(cum) - 1
	}
	return deck.Card(idx), nil
}

func uniformExcept(exclude []deck.Card, allowed int, rng *rand.Rand) deck.Card {
	n := rng.IntN(allowed)
	for c := deck.Card(0); c < deck.NumCards; c++ {
		if deck.Contains(exclude, c) {
			continue
		}
		if n == 0 {
			return c
		}
		n--
	}
	panic("policy: uniform draw out of range")
}
