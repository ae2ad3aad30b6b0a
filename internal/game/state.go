package game

import (
	"slices"

	"github.com/lox/skatbot/internal/deck"
)

// ObservableState is what a seat is allowed to see when it must play a card.
type ObservableState struct {
	HoleCards   []deck.Card // cards still in the seat's hand
	Trick       []deck.Card // cards already played to the current trick, in order
	WonFriendly []deck.Card // cards won so far by the seat's own team
	WonHostile  []deck.Card // cards won so far by the opposing team
	IsDeclarer  bool
}

// Clone returns a deep copy so recorded states stay immutable.
func (s ObservableState) Clone() ObservableState {
	return ObservableState{
		HoleCards:   cloneCards(s.HoleCards),
		Trick:       cloneCards(s.Trick),
		WonFriendly: cloneCards(s.WonFriendly),
		WonHostile:  cloneCards(s.WonHostile),
		IsDeclarer:  s.IsDeclarer,
	}
}

// Transition is a single recorded decision: the state the seat saw, the card
// it played and the reward credited to that decision.
type Transition struct {
	Before ObservableState
	Action deck.Card
	Reward float64
}

func cloneCards(cards []deck.Card) []deck.Card {
	if cards == nil {
		return []deck.Card{}
	}
	return slices.Clone(cards)
}
