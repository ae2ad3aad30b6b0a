package game

import (
	"errors"

	"github.com/lox/skatbot/internal/deck"
)

const (
	NumSeats     = 3
	CardsPerSeat = 10
	SkatSize     = 2

	// Trump is the trump suit; all four jacks are trump as well.
	Trump = deck.Clubs

	// WinThreshold is the number of card points the declarer needs.
	WinThreshold = 61
)

var errEmptyTrick = errors.New("game: empty trick")

// IsTrump reports whether c belongs to the trump suit.
func IsTrump(c deck.Card) bool {
	return c.IsJack() || c.Suit() == Trump
}

// LegalCards returns the cards in hand that may be played onto trick.
func LegalCards(hand, trick []deck.Card) []deck.Card {
	if len(trick) == 0 {
		return append([]deck.Card{}, hand...)
	}

	lead := trick[0]
	follow := make([]deck.Card, 0, len(hand))
	for _, c := range hand {
		if followsSuit(lead, c) {
			follow = append(follow, c)
		}
	}
	if len(follow) == 0 {
		return append([]deck.Card{}, hand...)
	}
	return follow
}

func followsSuit(lead, c deck.Card) bool {
	if IsTrump(lead) {
		return IsTrump(c)
	}
	return !c.IsJack() && c.Suit() == lead.Suit()
}

var jackOrder = [...]int{
	deck.Clubs:    4,
	deck.Spades:   3,
	deck.Hearts:   2,
	deck.Diamonds: 1,
}

var rankOrder = [...]int{
	deck.Seven: 1,
	deck.Eight: 2,
	deck.Nine:  3,
	deck.Queen: 4,
	deck.King:  5,
	deck.Ten:   6,
	deck.Ace:   7,
}

func strength(c deck.Card, suit deck.Suit) int {
	if c.IsJack() {
		return 100 + jackOrder[c.Suit()]
	}
	if c.Suit() != suit {
		return 0
	}
	return rankOrder[c.Rank()]
}

// TrickWinner returns the position within trick of the winning card. Jacks
// beat everything; otherwise the highest card of the trump suit wins when
// trump was played, and the highest card of the led suit when it was not.
func TrickWinner(trick []deck.Card) (int, error) {
	if len(trick) == 0 {
		return 0, errEmptyTrick
	}

	suit := trick[0].Suit()
	for _, c := range trick {
		if IsTrump(c) {
			suit = Trump
			break
		}
	}

	best, bestStrength := 0, strength(trick[0], suit)
	for i := 1; i < len(trick); i++ {
		if s := strength(trick[i], suit); s > bestStrength {
			best, bestStrength = i, s
		}
	}
	return best, nil
}

// matadorOrder lists the trump cards below the club jack from highest down.
var matadorOrder = []deck.Card{
	deck.NewCard(deck.Spades, deck.Jack),
	deck.NewCard(deck.Hearts, deck.Jack),
	deck.NewCard(deck.Diamonds, deck.Jack),
	deck.NewCard(Trump, deck.Ace),
	deck.NewCard(Trump, deck.Ten),
	deck.NewCard(Trump, deck.King),
	deck.NewCard(Trump, deck.Queen),
	deck.NewCard(Trump, deck.Nine),
	deck.NewCard(Trump, deck.Eight),
	deck.NewCard(Trump, deck.Seven),
}

// GameLevel counts matadors: starting at one, it adds one for every top trump
// below the club jack that matches the club jack's presence (held when the
// club jack is held, missing when it is missing), stopping at the first break.
func GameLevel(cards []deck.Card) int {
	withClubJack := deck.Contains(cards, deck.NewCard(deck.Clubs, deck.Jack))

	level := 1
	for _, c := range matadorOrder {
		if deck.Contains(cards, c) != withClubJack {
			break
		}
		level++
	}
	return level
}

// GameValue is the trump suit's base value times the matador level.
func GameValue(cards []deck.Card) int {
	return Trump.BaseValue() * GameLevel(cards)
}

// DeclarerWins reports whether a pile is worth at least WinThreshold points.
func DeclarerWins(pile []deck.Card) bool {
	return deck.TotalPoints(pile) >= WinThreshold
}

// DealScore returns the change to the declarer's score for a finished deal.
func DealScore(pile []deck.Card) int {
	value := GameValue(pile)
	if DeclarerWins(pile) {
		return value
	}
	return -2 * value
}
