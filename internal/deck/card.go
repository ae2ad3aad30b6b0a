package deck

import (
	"errors"
	"fmt"
	"strings"
)

// NumCards is the size of the Skat deck and the width of every card vector.
const NumCards = 32

// ErrInvalidOneHot is returned when a vector does not encode exactly one card.
var ErrInvalidOneHot = errors.New("deck: vector is not a one-hot card encoding")

// Suit represents a card suit
type Suit int

// Suits are ordered the way card ids are laid out, not by game value.
const (
	Clubs Suit = iota
	Spades
	Hearts
	Diamonds
)

// String returns the string representation of a suit
func (s Suit) String() string {
	switch s {
	case Spades:
		return "♠"
	case Hearts:
		return "♥"
	case Diamonds:
		return "♦"
	case Clubs:
		return "♣"
	default:
		return "?"
	}
}

// IsRed returns true if the suit is red (Hearts or Diamonds)
func (s Suit) IsRed() bool {
	return s == Hearts || s == Diamonds
}

// BaseValue is the Skat base value of a suit game played in this suit.
func (s Suit) BaseValue() int {
	switch s {
	case Clubs:
		return 12
	case Spades:
		return 11
	case Hearts:
		return 10
	case Diamonds:
		return 9
	default:
		return 0
	}
}

// Rank represents a card rank
type Rank int

const (
	Seven Rank = iota
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

// String returns the string representation of a rank
func (r Rank) String() string {
	switch r {
	case Seven:
		return "7"
	case Eight:
		return "8"
	case Nine:
		return "9"
	case Ten:
		return "T"
	case Jack:
		return "J"
	case Queen:
		return "Q"
	case King:
		return "K"
	case Ace:
		return "A"
	default:
		return "?"
	}
}

// Points returns the card points a rank is worth when won in a trick.
func (r Rank) Points() int {
	switch r {
	case Jack:
		return 2
	case Ace:
		return 11
	case Ten:
		return 10
	case King:
		return 4
	case Queen:
		return 3
	default:
		return 0
	}
}

// Card is a card identity in [0, NumCards). Only identity matters; the
// numeric order carries no game meaning.
type Card uint8

// NewCard creates a new card
func NewCard(suit Suit, rank Rank) Card {
	return Card(int(suit)*8 + int(rank))
}

// Suit returns the suit of the card.
func (c Card) Suit() Suit {
	return Suit(c / 8)
}

// Rank returns the rank of the card.
func (c Card) Rank() Rank {
	return Rank(c % 8)
}

// Valid reports whether c is one of the 32 cards.
func (c Card) Valid() bool {
	return c < NumCards
}

// Points returns the card points of c.
func (c Card) Points() int {
	return c.Rank().Points()
}

// IsJack reports whether c is one of the four jacks.
func (c Card) IsJack() bool {
	return c.Rank() == Jack
}

// IsRed returns true if the card is red
func (c Card) IsRed() bool {
	return c.Suit().IsRed()
}

// String returns the string representation of a card (e.g., "♣J")
func (c Card) String() string {
	if !c.Valid() {
		return "??"
	}
	return c.Suit().String() + c.Rank().String()
}

// OneHot returns the length-32 vector with a single 1 at the card's id.
// Cards outside the deck encode as all zeros.
func (c Card) OneHot() []float64 {
	v := make([]float64, NumCards)
	if c.Valid() {
		v[c] = 1
	}
	return v
}

// FromOneHot is the inverse of Card.OneHot.
func FromOneHot(v []float64) (Card, error) {
	if len(v) != NumCards {
		return 0, fmt.Errorf("%w: length %d", ErrInvalidOneHot, len(v))
	}
	idx := -1
	for i, x := range v {
		switch x {
		case 0:
		case 1:
			if idx >= 0 {
				return 0, fmt.Errorf("%w: more than one hot entry", ErrInvalidOneHot)
			}
			idx = i
		default:
			return 0, fmt.Errorf("%w: entry %d is %v", ErrInvalidOneHot, i, x)
		}
	}
	if idx < 0 {
		return 0, fmt.Errorf("%w: no hot entry", ErrInvalidOneHot)
	}
	return Card(idx), nil
}

// MultiHot returns a length-32 vector with a 1 for every card present.
// Duplicates are idempotent and cards outside the deck are skipped.
func MultiHot(cards []Card) []float64 {
	v := make([]float64, NumCards)
	for _, c := range cards {
		if c.Valid() {
			v[c] = 1
		}
	}
	return v
}

// TotalPoints sums the card points of cards.
func TotalPoints(cards []Card) int {
	sum := 0
	for _, c := range cards {
		sum += c.Points()
	}
	return sum
}

// ParseCard parses a two-character card code such as "CJ" or "hT".
// Suit letters are C, S, H, D; ranks are 7 8 9 T J Q K A.
func ParseCard(s string) (Card, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) != 2 {
		return 0, fmt.Errorf("invalid card %q: want suit and rank", s)
	}
	var suit Suit
	switch s[0] {
	case 'C':
		suit = Clubs
	case 'S':
		suit = Spades
	case 'H':
		suit = Hearts
	case 'D':
		suit = Diamonds
	default:
		return 0, fmt.Errorf("invalid suit in %q", s)
	}
	var rank Rank
	switch s[1] {
	case '7':
		rank = Seven
	case '8':
		rank = Eight
	case '9':
		rank = Nine
	case 'T':
		rank = Ten
	case 'J':
		rank = Jack
	case 'Q':
		rank = Queen
	case 'K':
		rank = King
	case 'A':
		rank = Ace
	default:
		return 0, fmt.Errorf("invalid rank in %q", s)
	}
	return NewCard(suit, rank), nil
}

// ParseCards parses a whitespace separated list of card codes.
func ParseCards(s string) ([]Card, error) {
	fields := strings.Fields(s)
	cards := make([]Card, 0, len(fields))
	for _, f := range fields {
		c, err := ParseCard(f)
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, nil
}

// FormatCards renders cards as a numbered list, matching the order a human
// picks from ("1. ♣J, 2. ♥T").
func FormatCards(cards []Card) string {
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = fmt.Sprintf("%d. %s", i+1, c)
	}
	return strings.Join(parts, ", ")
}

// Contains reports whether card is in cards.
func Contains(cards []Card, card Card) bool {
	for _, c := range cards {
		if c == card {
			return true
		}
	}
	return false
}

// Remove returns cards without the first occurrence of card and whether it was found.
// The input slice is not modified.
func Remove(cards []Card, card Card) ([]Card, bool) {
	for i, c := range cards {
		if c == card {
			out := make([]Card, 0, len(cards)-1)
			out = append(out, cards[:i]...)
			return append(out, cards[i+1:]...), true
		}
	}
	return cards, false
}
