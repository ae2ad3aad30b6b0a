// Package bot contains scripted seats used as evaluation opponents.
package bot

import (
	"math/rand/v2"

	"github.com/charmbracelet/log"
	"github.com/lox/skatbot/internal/deck"
	"github.com/lox/skatbot/internal/game"
)

// RandBot plays a uniformly random card from its hand without checking
// whether it may follow suit. Rejected cards are not offered again.
type RandBot struct {
	game.Recorder
	rng    *rand.Rand
	logger *log.Logger
}

// NewRandBot creates a new RandBot instance
func NewRandBot(rng *rand.Rand, logger *log.Logger) *RandBot {
	return &RandBot{rng: rng, logger: logger.WithPrefix("randbot")}
}

func (r *RandBot) QueryPolicy() (deck.Card, error) {
	state := r.LastState()
	candidates := state.HoleCards
	for _, c := range r.Rejected() {
		candidates, _ = deck.Remove(candidates, c)
	}
	if len(candidates) == 0 {
		candidates = state.HoleCards
	}

	card := candidates[r.rng.IntN(len(candidates))]
	r.logger.Debug("random card", "card", card, "hand", len(state.HoleCards))
	return card, nil
}

// LegalBot plays a uniformly random legal card.
type LegalBot struct {
	game.Recorder
	rng    *rand.Rand
	logger *log.Logger
}

// NewLegalBot creates a new LegalBot instance
func NewLegalBot(rng *rand.Rand, logger *log.Logger) *LegalBot {
	return &LegalBot{rng: rng, logger: logger.WithPrefix("legalbot")}
}

func (b *LegalBot) QueryPolicy() (deck.Card, error) {
	state := b.LastState()
	legal := game.LegalCards(state.HoleCards, state.Trick)
	card := legal[b.rng.IntN(len(legal))]
	b.logger.Debug("legal card", "card", card, "options", len(legal))
	return card, nil
}

var (
	_ game.Seat = (*RandBot)(nil)
	_ game.Seat = (*LegalBot)(nil)
)
