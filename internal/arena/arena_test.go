package arena

import (
	"bytes"
	"context"
	"io"
	"math/rand/v2"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/lox/skatbot/internal/game"
	"github.com/lox/skatbot/internal/nn"
	"github.com/lox/skatbot/internal/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testNetwork(t *testing.T) *nn.Network {
	t.Helper()
	net, err := policy.NewNetwork(policy.DefaultHidden, rand.New(rand.NewPCG(4, 2)))
	require.NoError(t, err)
	return net
}

func testConfig(opponent string, workers int) Config {
	cfg := Config{
		Games:    9,
		Opponent: opponent,
		Workers:  workers,
		Seed:     12345,
		Game:     game.DefaultConfig(),
		Logger:   log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel}),
	}
	cfg.Game.RetryOnIllegalAction = true
	return cfg
}

func TestNewValidates(t *testing.T) {
	net := testNetwork(t)

	cfg := testConfig("fold", 1)
	_, err := New(net, cfg)
	assert.Error(t, err)

	cfg = testConfig(OpponentLegal, 1)
	cfg.Games = 0
	_, err = New(net, cfg)
	assert.Error(t, err)

	wrong, err := nn.New(nn.Architecture{Inputs: 3, Outputs: 2}, rand.New(rand.NewPCG(1, 1)))
	require.NoError(t, err)
	_, err = New(wrong, testConfig(OpponentLegal, 1))
	assert.Error(t, err)
}

func TestRunEveryOpponent(t *testing.T) {
	net := testNetwork(t)
	for _, opp := range []string{OpponentRand, OpponentLegal, OpponentGreedy, OpponentSelf, OpponentMixed} {
		t.Run(opp, func(t *testing.T) {
			a, err := New(net, testConfig(opp, 2))
			require.NoError(t, err)

			stats, err := a.Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, 9, stats.Games)
			for _, ss := range stats.SeatResults {
				assert.Equal(t, 3, ss.Games, "the model rotates through every seat")
			}
			assert.Zero(t, stats.Aborts, "retries keep games alive")
		})
	}
}

func TestRunIndependentOfWorkers(t *testing.T) {
	net := testNetwork(t)

	one, err := New(net, testConfig(OpponentGreedy, 1))
	require.NoError(t, err)
	s1, err := one.Run(context.Background())
	require.NoError(t, err)

	three, err := New(net, testConfig(OpponentGreedy, 3))
	require.NoError(t, err)
	s3, err := three.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, s1.Wins, s3.Wins)
	assert.Equal(t, s1.SumPoints, s3.SumPoints)
	assert.ElementsMatch(t, s1.Values, s3.Values)
}

func TestRunCancelled(t *testing.T) {
	a, err := New(testNetwork(t), testConfig(OpponentLegal, 2))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = a.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPrintSummary(t *testing.T) {
	a, err := New(testNetwork(t), testConfig(OpponentLegal, 1))
	require.NoError(t, err)
	stats, err := a.Run(context.Background())
	require.NoError(t, err)

	var buf bytes.Buffer
	PrintSummary(&buf, stats, OpponentLegal)
	assert.Contains(t, buf.String(), "RESULTS vs legal")
	assert.Contains(t, buf.String(), "Games played: 9")
}
