package game

import (
	"errors"
	"io"
	"math/rand/v2"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/lox/skatbot/internal/deck"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedSeat plays the first legal card unless told to misbehave.
type scriptedSeat struct {
	Recorder
	alwaysIllegal bool
	illegalFirst  bool
	err           error
}

const notInDeck = deck.Card(deck.NumCards + 1)

func (s *scriptedSeat) QueryPolicy() (deck.Card, error) {
	if s.err != nil {
		return 0, s.err
	}
	if s.alwaysIllegal {
		return notInDeck, nil
	}
	if s.illegalFirst && len(s.Rejected()) == 0 {
		return notInDeck, nil
	}
	state := s.LastState()
	return LegalCards(state.HoleCards, state.Trick)[0], nil
}

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

func newTestGame(t *testing.T, seats [NumSeats]*scriptedSeat, cfg Config, opts ...Option) *Game {
	t.Helper()
	opts = append([]Option{WithRNG(rand.New(rand.NewPCG(11, 12))), WithLogger(testLogger())}, opts...)
	g, err := New([NumSeats]Seat{seats[0], seats[1], seats[2]}, cfg, opts...)
	require.NoError(t, err)
	return g
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	seats := [NumSeats]Seat{&scriptedSeat{}, &scriptedSeat{}, &scriptedSeat{}}

	cfg := DefaultConfig()
	cfg.Rounds = 0
	_, err := New(seats, cfg)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.Reward = "chips"
	_, err = New(seats, cfg)
	assert.Error(t, err)

	_, err = New([NumSeats]Seat{seats[0], nil, seats[2]}, DefaultConfig())
	assert.Error(t, err)
}

func TestRunNewGameSingleDeal(t *testing.T) {
	seats := [NumSeats]*scriptedSeat{{}, {}, {}}
	g := newTestGame(t, seats, DefaultConfig())

	require.NoError(t, g.RunNewGame())
	result := g.LastResult()

	assert.False(t, result.Aborted)
	assert.Equal(t, -1, result.Offender)
	assert.Equal(t, 1, result.Deals)
	assert.Equal(t, NumSeats*CardsPerSeat, result.Decisions)
	require.NotEmpty(t, result.Winners)

	nonZero := 0
	for _, p := range result.Points {
		if p != 0 {
			nonZero++
		}
	}
	assert.Equal(t, 1, nonZero, "only the declarer scores in a single deal")

	for i, s := range seats {
		ts := s.Transitions()
		require.Len(t, ts, CardsPerSeat, "seat %d", i)
		for j, tr := range ts[:len(ts)-1] {
			assert.Zero(t, tr.Reward, "seat %d transition %d", i, j)
		}
		assert.Equal(t, result.Rewards[i], ts[len(ts)-1].Reward)
		if result.Won(i) {
			assert.Equal(t, 1.0, result.Rewards[i])
		} else {
			assert.Equal(t, -1.0, result.Rewards[i])
		}

		assert.Len(t, ts[0].Before.HoleCards, CardsPerSeat)
		for _, tr := range ts {
			assert.Contains(t, tr.Before.HoleCards, tr.Action)
		}
	}
}

func TestRunNewGameMultipleDeals(t *testing.T) {
	seats := [NumSeats]*scriptedSeat{{}, {}, {}}
	cfg := DefaultConfig()
	cfg.Rounds = 3
	cfg.Reward = RewardPoints
	g := newTestGame(t, seats, cfg)

	require.NoError(t, g.RunNewGame())
	result := g.LastResult()
	assert.Equal(t, 3, result.Deals)

	for i, s := range seats {
		ts := s.Transitions()
		require.Len(t, ts, 3*CardsPerSeat)
		assert.Equal(t, float64(result.Points[i]), ts[len(ts)-1].Reward)
	}
}

func TestObservedStatesAreConsistent(t *testing.T) {
	seats := [NumSeats]*scriptedSeat{{}, {}, {}}
	g := newTestGame(t, seats, DefaultConfig())
	require.NoError(t, g.RunNewGame())

	for _, s := range seats {
		declarer := s.Transitions()[0].Before.IsDeclarer
		for n, tr := range s.Transitions() {
			st := tr.Before
			assert.Equal(t, declarer, st.IsDeclarer, "declarer does not change within a deal")
			assert.Len(t, st.HoleCards, CardsPerSeat-n)
			assert.Less(t, len(st.Trick), NumSeats)
			assert.Equal(t, 3*n, len(st.WonFriendly)+len(st.WonHostile))
			assert.Contains(t, LegalCards(st.HoleCards, st.Trick), tr.Action)
		}
	}
}

func TestIllegalActionAbortsGame(t *testing.T) {
	seats := [NumSeats]*scriptedSeat{{}, {}, {alwaysIllegal: true}}
	g := newTestGame(t, seats, DefaultConfig())

	require.NoError(t, g.RunNewGame())
	result := g.LastResult()

	assert.True(t, result.Aborted)
	assert.Equal(t, 2, result.Offender)
	assert.Equal(t, -1.0, result.Rewards[2])

	offender := seats[2].Transitions()
	require.Len(t, offender, 1)
	assert.Equal(t, -1.0, offender[0].Reward)
	assert.Equal(t, notInDeck, offender[0].Action)

	for _, s := range seats[:2] {
		ts := s.Transitions()
		assert.LessOrEqual(t, len(ts), 1)
		for _, tr := range ts {
			assert.Zero(t, tr.Reward)
		}
	}
}

func TestIllegalActionRetried(t *testing.T) {
	seats := [NumSeats]*scriptedSeat{{illegalFirst: true}, {}, {}}
	cfg := DefaultConfig()
	cfg.RetryOnIllegalAction = true
	g := newTestGame(t, seats, cfg)

	require.NoError(t, g.RunNewGame())
	result := g.LastResult()

	assert.False(t, result.Aborted)
	assert.Equal(t, CardsPerSeat, result.Retries)
	assert.Zero(t, result.Fallbacks)
	for _, tr := range seats[0].Transitions() {
		assert.NotEqual(t, notInDeck, tr.Action, "rejected cards are never recorded")
	}
}

func TestRetriesFallBackToLegalCard(t *testing.T) {
	seats := [NumSeats]*scriptedSeat{{alwaysIllegal: true}, {}, {}}
	cfg := DefaultConfig()
	cfg.RetryOnIllegalAction = true
	cfg.MaxRetries = 3
	g := newTestGame(t, seats, cfg)

	require.NoError(t, g.RunNewGame())
	result := g.LastResult()

	assert.False(t, result.Aborted)
	assert.Equal(t, CardsPerSeat, result.Fallbacks)
	assert.Equal(t, 3*CardsPerSeat, result.Retries)
	assert.Len(t, seats[0].Transitions(), CardsPerSeat)
}

func TestSeatErrorStopsGame(t *testing.T) {
	seats := [NumSeats]*scriptedSeat{{}, {err: ErrHumanQuit}, {}}
	g := newTestGame(t, seats, DefaultConfig())

	err := g.RunNewGame()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrHumanQuit))
}

func TestEventsPublished(t *testing.T) {
	seats := [NumSeats]*scriptedSeat{{}, {}, {}}
	counts := make(map[EventType]int)
	g := newTestGame(t, seats, DefaultConfig(), WithEventHandler(func(e Event) {
		counts[e.Type]++
	}))

	require.NoError(t, g.RunNewGame())
	assert.Equal(t, 1, counts[EventTypeGameStart])
	assert.Equal(t, 1, counts[EventTypeDealStart])
	assert.Equal(t, NumSeats*CardsPerSeat, counts[EventTypeCardPlayed])
	assert.Equal(t, CardsPerSeat, counts[EventTypeTrickWon])
	assert.Equal(t, 1, counts[EventTypeDealEnd])
	assert.Equal(t, 1, counts[EventTypeGameEnd])
}

func TestEveryDealUsesThirtyDistinctCards(t *testing.T) {
	seats := [NumSeats]*scriptedSeat{{}, {}, {}}
	cfg := DefaultConfig()
	cfg.Rounds = 3

	played := make(map[int][]deck.Card)
	trickPoints := make(map[int]int)
	g := newTestGame(t, seats, cfg, WithEventHandler(func(e Event) {
		switch e.Type {
		case EventTypeCardPlayed:
			played[e.Deal] = append(played[e.Deal], e.Card)
		case EventTypeTrickWon:
			assert.Len(t, e.Cards, NumSeats)
			trickPoints[e.Deal] += deck.TotalPoints(e.Cards)
		}
	}))
	require.NoError(t, g.RunNewGame())

	require.Len(t, played, 3)
	for d, cards := range played {
		require.Len(t, cards, NumSeats*CardsPerSeat, "deal %d", d)
		seen := make(map[deck.Card]bool)
		for _, c := range cards {
			assert.True(t, c.Valid())
			assert.False(t, seen[c], "deal %d: %s played twice", d, c)
			seen[c] = true
		}
		// the two skat cards carry the remaining points
		assert.GreaterOrEqual(t, trickPoints[d], 120-22, "deal %d", d)
		assert.LessOrEqual(t, trickPoints[d], 120, "deal %d", d)
	}
}

func TestSameSeedSameGame(t *testing.T) {
	run := func() Result {
		seats := [NumSeats]*scriptedSeat{{}, {}, {}}
		g := newTestGame(t, seats, DefaultConfig())
		require.NoError(t, g.RunNewGame())
		return g.LastResult()
	}
	assert.Equal(t, run(), run())
}

func TestRecorderPutTransitionWithoutDecision(t *testing.T) {
	var r Recorder
	r.PutTransition(1)
	assert.Empty(t, r.Transitions())

	r.Observe(ObservableState{HoleCards: []deck.Card{3}})
	r.Commit(3)
	r.PutTransition(0.5)
	r.PutTransition(9)

	ts := r.DrainTransitions()
	require.Len(t, ts, 1)
	assert.Equal(t, 0.5, ts[0].Reward)
	assert.Empty(t, r.DrainTransitions())
}

func TestBufferDrain(t *testing.T) {
	var b Buffer
	assert.Empty(t, b.Drain())

	b.Record(ObservableState{}, 1, 0)
	b.Record(ObservableState{}, 2, 1)
	assert.Equal(t, 2, b.Len())

	out := b.Drain()
	assert.Len(t, out, 2)
	assert.Zero(t, b.Len())
}
