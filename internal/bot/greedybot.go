package bot

import (
	"slices"

	"github.com/charmbracelet/log"
	"github.com/lox/skatbot/internal/deck"
	"github.com/lox/skatbot/internal/game"
)

// GreedyBot plays trick by trick: when it can take the trick it does so
// with the weakest winning card, otherwise it throws its cheapest card.
// It has no memory and ignores who owns the trick so far.
type GreedyBot struct {
	game.Recorder
	logger *log.Logger
}

// NewGreedyBot creates a new GreedyBot instance
func NewGreedyBot(logger *log.Logger) *GreedyBot {
	return &GreedyBot{logger: logger.WithPrefix("greedybot")}
}

func (b *GreedyBot) QueryPolicy() (deck.Card, error) {
	state := b.LastState()
	legal := game.LegalCards(state.HoleCards, state.Trick)
	slices.SortFunc(legal, compareCost)

	if len(state.Trick) > 0 {
		for _, c := range legal {
			if wins(state.Trick, c) {
				b.logger.Debug("taking trick", "card", c)
				return c, nil
			}
		}
	}

	b.logger.Debug("discarding", "card", legal[0])
	return legal[0], nil
}

// wins reports whether playing c would currently take the trick.
func wins(trick []deck.Card, c deck.Card) bool {
	next := append(slices.Clone(trick), c)
	pos, err := game.TrickWinner(next)
	return err == nil && pos == len(trick)
}

// compareCost orders cards by points, then trumps after plain cards so
// trump is kept for later, then by id for a stable order.
func compareCost(a, b deck.Card) int {
	if d := a.Points() - b.Points(); d != 0 {
		return d
	}
	ta, tb := game.IsTrump(a), game.IsTrump(b)
	if ta != tb {
		if ta {
			return 1
		}
		return -1
	}
	return int(a) - int(b)
}

var _ game.Seat = (*GreedyBot)(nil)
