package deck

import (
	"math/rand/v2"
)

// Deck represents the 32-card Skat deck
type Deck struct {
	cards []Card
	rng   *rand.Rand
}

// NewDeck creates a new unshuffled 32-card deck driven by rng
func NewDeck(rng *rand.Rand) *Deck {
	d := &Deck{
		cards: make([]Card, 0, NumCards),
		rng:   rng,
	}
	d.fill()
	return d
}

func (d *Deck) fill() {
	d.cards = d.cards[:0]
	for c := Card(0); c < NumCards; c++ {
		d.cards = append(d.cards, c)
	}
}

// Shuffle randomizes the order of cards in the deck
func (d *Deck) Shuffle() {
	d.rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

// DealN deals n cards from the deck
func (d *Deck) DealN(n int) []Card {
	if n > len(d.cards) {
		n = len(d.cards)
	}

	cards := make([]Card, n)
	copy(cards, d.cards[:n])
	d.cards = d.cards[n:]
	return cards
}

// CardsRemaining returns the number of cards left in the deck
func (d *Deck) CardsRemaining() int {
	return len(d.cards)
}

// Reset restores the deck to all 32 cards and shuffles it
func (d *Deck) Reset() {
	if cap(d.cards) < NumCards {
		d.cards = make([]Card, 0, NumCards)
	}
	d.fill()
	d.Shuffle()
}
