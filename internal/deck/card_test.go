package deck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOneHotRoundTrip(t *testing.T) {
	for c := Card(0); c < NumCards; c++ {
		v := c.OneHot()
		require.Len(t, v, NumCards)

		got, err := FromOneHot(v)
		require.NoError(t, err)
		assert.Equal(t, c, got, "round trip of %s", c)
	}
}

func TestOneHotDistinct(t *testing.T) {
	a := NewCard(Clubs, Jack).OneHot()
	b := NewCard(Hearts, Seven).OneHot()

	ones := 0
	for _, x := range a {
		if x == 1 {
			ones++
		}
	}
	assert.Equal(t, 1, ones)
	assert.NotEqual(t, a, b)
}

func TestCodecSkipsCardsOutsideDeck(t *testing.T) {
	zero := make([]float64, NumCards)
	assert.Equal(t, zero, Card(NumCards).OneHot())
	assert.Equal(t, zero, Card(255).OneHot())

	v := MultiHot([]Card{3, NumCards, 3, 200})
	want := make([]float64, NumCards)
	want[3] = 1
	assert.Equal(t, want, v)
}

func TestFromOneHotRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		vec  []float64
	}{
		{name: "short", vec: make([]float64, 31)},
		{name: "all zero", vec: make([]float64, NumCards)},
		{name: "two hot", vec: MultiHot([]Card{1, 2})},
		{name: "fractional", vec: func() []float64 {
			v := make([]float64, NumCards)
			v[3] = 0.5
			return v
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromOneHot(tt.vec)
			assert.ErrorIs(t, err, ErrInvalidOneHot)
		})
	}
}

func TestCardIdentity(t *testing.T) {
	seen := make(map[Card]bool)
	for s := Clubs; s <= Diamonds; s++ {
		for r := Seven; r <= Ace; r++ {
			c := NewCard(s, r)
			require.True(t, c.Valid())
			assert.Equal(t, s, c.Suit())
			assert.Equal(t, r, c.Rank())
			assert.False(t, seen[c], "duplicate id for %s", c)
			seen[c] = true
		}
	}
	assert.Len(t, seen, NumCards)
	assert.False(t, Card(NumCards).Valid())
}

func TestCardPoints(t *testing.T) {
	cards := []Card{
		NewCard(Clubs, Jack),
		NewCard(Hearts, Ten),
		NewCard(Diamonds, Nine),
		NewCard(Diamonds, Ten),
		NewCard(Spades, King),
	}
	assert.Equal(t, 2+10+0+10+4, TotalPoints(cards))

	all := make([]Card, 0, NumCards)
	for c := Card(0); c < NumCards; c++ {
		all = append(all, c)
	}
	assert.Equal(t, 120, TotalPoints(all))
}

func TestFormatCards(t *testing.T) {
	cards := []Card{
		NewCard(Clubs, Jack),
		NewCard(Hearts, Ten),
		NewCard(Diamonds, Nine),
		NewCard(Diamonds, Ten),
		NewCard(Spades, King),
	}
	assert.Equal(t, "1. ♣J, 2. ♥T, 3. ♦9, 4. ♦T, 5. ♠K", FormatCards(cards))
}

func TestParseCards(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []Card
		wantErr  bool
	}{
		{
			name:     "jacks",
			input:    "CJ SJ HJ DJ",
			expected: []Card{NewCard(Clubs, Jack), NewCard(Spades, Jack), NewCard(Hearts, Jack), NewCard(Diamonds, Jack)},
		},
		{
			name:     "case insensitive",
			input:    "ca hT d7",
			expected: []Card{NewCard(Clubs, Ace), NewCard(Hearts, Ten), NewCard(Diamonds, Seven)},
		},
		{name: "invalid rank", input: "C2", wantErr: true},
		{name: "invalid suit", input: "XJ", wantErr: true},
		{name: "too long", input: "CJJ", wantErr: true},
		{name: "empty string", input: "", expected: []Card{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCards(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestRemove(t *testing.T) {
	hand := []Card{1, 2, 3}
	out, ok := Remove(hand, 2)
	require.True(t, ok)
	assert.Equal(t, []Card{1, 3}, out)
	assert.Equal(t, []Card{1, 2, 3}, hand, "input must not be modified")

	_, ok = Remove(hand, 9)
	assert.False(t, ok)
}
