package policy

import (
	"io"
	"math/rand/v2"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/lox/skatbot/internal/deck"
	"github.com/lox/skatbot/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRNG() *rand.Rand {
	return rand.New(rand.NewPCG(21, 22))
}

func TestSampleCardCertain(t *testing.T) {
	rng := testRNG()
	probs := deck.Card(17).OneHot()
	for i := 0; i < 50; i++ {
		c, err := SampleCard(probs, nil, rng)
		require.NoError(t, err)
		assert.Equal(t, deck.Card(17), c)
	}
}

func TestSampleCardFollowsWeights(t *testing.T) {
	rng := testRNG()
	probs := make([]float64, deck.NumCards)
	probs[0] = 0.75
	probs[1] = 0.25

	counts := make(map[deck.Card]int)
	const draws = 20000
	for i := 0; i < draws; i++ {
		c, err := SampleCard(probs, nil, rng)
		require.NoError(t, err)
		counts[c]++
	}
	assert.Len(t, counts, 2)
	assert.InDelta(t, 0.75, float64(counts[0])/draws, 0.02)
}

func TestSampleCardExclusion(t *testing.T) {
	rng := testRNG()
	probs := make([]float64, deck.NumCards)
	probs[3] = 0.9
	probs[4] = 0.1

	for i := 0; i < 100; i++ {
		c, err := SampleCard(probs, []deck.Card{3}, rng)
		require.NoError(t, err)
		assert.Equal(t, deck.Card(4), c)
	}
}

func TestSampleCardUniformFallback(t *testing.T) {
	rng := testRNG()
	probs := deck.Card(5).OneHot()

	seen := make(map[deck.Card]bool)
	for i := 0; i < 500; i++ {
		c, err := SampleCard(probs, []deck.Card{5}, rng)
		require.NoError(t, err)
		assert.NotEqual(t, deck.Card(5), c)
		seen[c] = true
	}
	assert.Greater(t, len(seen), 10)
}

func TestSampleCardErrors(t *testing.T) {
	rng := testRNG()
	_, err := SampleCard(make([]float64, 3), nil, rng)
	assert.Error(t, err)

	all := make([]deck.Card, 0, deck.NumCards)
	for c := deck.Card(0); c < deck.NumCards; c++ {
		all = append(all, c)
	}
	_, err = SampleCard(make([]float64, deck.NumCards), all, rng)
	assert.ErrorIs(t, err, ErrNoCandidates)
}

func TestCheckNetwork(t *testing.T) {
	net, err := NewNetwork(DefaultHidden, testRNG())
	require.NoError(t, err)
	assert.NoError(t, CheckNetwork(net))
	assert.Equal(t, []int{161, 161, 100, 100}, net.Architecture().Hidden)
}

func TestPlayersShareNetworkAndCompleteGame(t *testing.T) {
	rng := testRNG()
	net, err := NewNetwork(DefaultHidden, rng)
	require.NoError(t, err)

	players := [game.NumSeats]*Player{
		NewPlayer(net, rand.New(rand.NewPCG(1, 0))),
		NewPlayer(net, rand.New(rand.NewPCG(2, 0))),
		NewPlayer(net, rand.New(rand.NewPCG(3, 0))),
	}
	cfg := game.DefaultConfig()
	cfg.RetryOnIllegalAction = true
	g, err := game.New(
		[game.NumSeats]game.Seat{players[0], players[1], players[2]},
		cfg,
		game.WithRNG(rng),
		game.WithLogger(log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})),
	)
	require.NoError(t, err)

	require.NoError(t, g.RunNewGame())
	assert.False(t, g.LastResult().Aborted)
	for _, p := range players {
		ts := p.DrainTransitions()
		assert.Len(t, ts, game.CardsPerSeat)
		for _, tr := range ts {
			assert.Contains(t, game.LegalCards(tr.Before.HoleCards, tr.Before.Trick), tr.Action)
		}
		assert.Empty(t, p.Transitions())
	}
}
