package game

import (
	"fmt"
	"io"
	"math/rand/v2"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/lox/skatbot/internal/deck"
	"github.com/lox/skatbot/internal/randutil"
)

// RewardScheme selects how end-of-game rewards are computed.
type RewardScheme string

const (
	// RewardOutcome gives +1 to the seats with the highest total and -1 to the rest.
	RewardOutcome RewardScheme = "outcome"
	// RewardPoints gives every seat its raw accumulated game points.
	RewardPoints RewardScheme = "points"
)

// Config controls a single game.
type Config struct {
	Rounds               int          // deals per game
	RetryOnIllegalAction bool         // re-query a seat after an illegal card instead of aborting
	MaxRetries           int          // attempts before a uniformly random legal card is played
	Reward               RewardScheme // end-of-game reward
	IllegalPenalty       float64      // reward for the seat that aborts the game
}

// DefaultConfig returns the configuration used for self-play training.
func DefaultConfig() Config {
	return Config{
		Rounds:               1,
		RetryOnIllegalAction: false,
		MaxRetries:           32,
		Reward:               RewardOutcome,
		IllegalPenalty:       -1,
	}
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	if c.Rounds <= 0 {
		return fmt.Errorf("rounds must be positive, got %d", c.Rounds)
	}
	if c.RetryOnIllegalAction && c.MaxRetries <= 0 {
		return fmt.Errorf("max retries must be positive when retrying illegal actions, got %d", c.MaxRetries)
	}
	switch c.Reward {
	case RewardOutcome, RewardPoints:
	default:
		return fmt.Errorf("unknown reward scheme %q", c.Reward)
	}
	return nil
}

// Result summarises the last completed (or aborted) game.
type Result struct {
	Points    [NumSeats]int
	Rewards   [NumSeats]float64
	Winners   []int
	Aborted   bool
	Offender  int // seat that aborted the game, -1 otherwise
	Deals     int // completed deals
	Decisions int // accepted cards
	Retries   int // rejected cards
	Fallbacks int // cards chosen by the engine after MaxRetries

	DealsDeclared [NumSeats]int // deals each seat played as declarer
	DealsWon      [NumSeats]int // of those, deals the declarer won
}

// Won reports whether seat is among the winners.
func (r Result) Won(seat int) bool {
	return slices.Contains(r.Winners, seat)
}

// Game runs Half Skat games between three seats.
type Game struct {
	seats   [NumSeats]Seat
	cfg     Config
	rng     *rand.Rand
	logger  *log.Logger
	onEvent EventHandler
	deck    *deck.Deck

	hands      [NumSeats][]deck.Card
	won        [NumSeats][]deck.Card
	skat       []deck.Card
	trick      []deck.Card
	trickSeats []int
	points     [NumSeats]int
	dealer     int
	declarer   int
	current    int
	deal       int

	last Result
}

// Option configures a Game.
type Option func(*Game)

// WithRNG sets the source of randomness for dealing and seat selection.
func WithRNG(rng *rand.Rand) Option {
	return func(g *Game) { g.rng = rng }
}

// WithLogger sets the logger used for debug tracing.
func WithLogger(logger *log.Logger) Option {
	return func(g *Game) { g.logger = logger }
}

// WithEventHandler registers a callback for table events.
func WithEventHandler(h EventHandler) Option {
	return func(g *Game) { g.onEvent = h }
}

// New creates a game for the given seats.
func New(seats [NumSeats]Seat, cfg Config, opts ...Option) (*Game, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid game config: %w", err)
	}
	for i, s := range seats {
		if s == nil {
			return nil, fmt.Errorf("seat %d is nil", i)
		}
	}

	g := &Game{
		seats: seats,
		cfg:   cfg,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.rng == nil {
		g.rng = randutil.New(randutil.ResolveSeed(0))
	}
	if g.logger == nil {
		g.logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	g.deck = deck.NewDeck(g.rng)
	return g, nil
}

// Config returns the game configuration.
func (g *Game) Config() Config {
	return g.cfg
}

// LastResult returns the result of the most recent game.
func (g *Game) LastResult() Result {
	return g.last
}

// RunNewGame plays one complete game. Rewards are delivered to the seats as
// the game progresses. An error is returned only when a seat fails to
// produce a card; an aborted game is reported through LastResult.
func (g *Game) RunNewGame() error {
	g.points = [NumSeats]int{}
	g.declarer = g.rng.IntN(NumSeats)
	g.dealer = g.rng.IntN(NumSeats)
	g.current = (g.dealer + 1) % NumSeats

	result := Result{Offender: -1}
	g.emit(Event{Type: EventTypeGameStart, Declarer: g.declarer, Seat: g.dealer})
	g.logger.Debug("game start", "declarer", g.declarer, "dealer", g.dealer, "rounds", g.cfg.Rounds)

	for g.deal = 0; g.deal < g.cfg.Rounds; g.deal++ {
		g.startDeal()

		for t := 0; t < CardsPerSeat; t++ {
			for range NumSeats {
				seat := g.current
				card, ok, err := g.decide(seat, &result)
				if err != nil {
					return err
				}
				if !ok {
					g.abort(seat, card, &result)
					return nil
				}
				g.play(seat, card)
				g.current = (g.current + 1) % NumSeats
			}

			if err := g.finishTrick(); err != nil {
				return err
			}

			lastTrickOfGame := g.deal == g.cfg.Rounds-1 && t == CardsPerSeat-1
			if !lastTrickOfGame {
				for _, s := range g.seats {
					s.PutTransition(0)
				}
			}
		}

		g.finishDeal(&result)
	}

	result.Points = g.points
	result.Winners = winners(g.points)
	for i, s := range g.seats {
		result.Rewards[i] = g.reward(i, result.Winners)
		s.PutTransition(result.Rewards[i])
	}
	g.last = result

	g.emit(Event{Type: EventTypeGameEnd, Points: g.points})
	g.logger.Debug("game end", "points", g.points, "winners", result.Winners)
	return nil
}

func (g *Game) startDeal() {
	g.deck.Reset()
	for i := range g.hands {
		g.hands[i] = g.deck.DealN(CardsPerSeat)
		g.won[i] = g.won[i][:0]
	}
	g.skat = g.deck.DealN(SkatSize)
	g.trick = g.trick[:0]
	g.trickSeats = g.trickSeats[:0]

	g.emit(Event{Type: EventTypeDealStart, Deal: g.deal, Declarer: g.declarer, Seat: g.dealer})
	g.logger.Debug("deal start", "deal", g.deal, "declarer", g.declarer, "dealer", g.dealer,
		"skat", deck.FormatCards(g.skat))
}

// decide asks seat for a card until it offers a legal one. ok is false when
// the seat played an illegal card and retries are disabled.
func (g *Game) decide(seat int, result *Result) (deck.Card, bool, error) {
	s := g.seats[seat]
	s.Observe(g.observe(seat))
	legal := LegalCards(g.hands[seat], g.trick)

	for attempt := 1; ; attempt++ {
		card, err := s.QueryPolicy()
		if err != nil {
			return 0, false, fmt.Errorf("seat %d: %w", seat, err)
		}

		if deck.Contains(legal, card) {
			s.Commit(card)
			result.Decisions++
			return card, true, nil
		}

		g.logger.Debug("illegal card", "seat", seat, "card", card, "attempt", attempt)
		if !g.cfg.RetryOnIllegalAction {
			s.Commit(card)
			return card, false, nil
		}

		s.Reject(card)
		result.Retries++
		if attempt >= g.cfg.MaxRetries {
			card = legal[g.rng.IntN(len(legal))]
			g.logger.Debug("retries exhausted, playing random legal card", "seat", seat, "card", card)
			s.Commit(card)
			result.Decisions++
			result.Fallbacks++
			return card, true, nil
		}
	}
}

func (g *Game) abort(offender int, card deck.Card, result *Result) {
	g.logger.Debug("game aborted", "seat", offender, "card", card)

	result.Aborted = true
	result.Offender = offender
	result.Points = g.points
	for i, s := range g.seats {
		if i == offender {
			result.Rewards[i] = g.cfg.IllegalPenalty
		}
		s.PutTransition(result.Rewards[i])
	}
	g.last = *result

	g.emit(Event{Type: EventTypeAborted, Deal: g.deal, Seat: offender, Card: card, Points: g.points})
}

func (g *Game) play(seat int, card deck.Card) {
	g.hands[seat], _ = deck.Remove(g.hands[seat], card)
	g.trick = append(g.trick, card)
	g.trickSeats = append(g.trickSeats, seat)

	g.emit(Event{Type: EventTypeCardPlayed, Deal: g.deal, Seat: seat, Declarer: g.declarer, Card: card})
}

func (g *Game) finishTrick() error {
	pos, err := TrickWinner(g.trick)
	if err != nil {
		return err
	}
	winner := g.trickSeats[pos]
	trick := slices.Clone(g.trick)
	g.won[winner] = append(g.won[winner], trick...)

	g.emit(Event{Type: EventTypeTrickWon, Deal: g.deal, Seat: winner, Declarer: g.declarer, Cards: trick})
	g.logger.Debug("trick won", "seat", winner, "trick", deck.FormatCards(trick))

	g.trick = g.trick[:0]
	g.trickSeats = g.trickSeats[:0]
	g.current = winner
	return nil
}

func (g *Game) finishDeal(result *Result) {
	g.won[g.declarer] = append(g.won[g.declarer], g.skat...)
	pile := g.won[g.declarer]
	score := DealScore(pile)
	g.points[g.declarer] += score

	result.Deals++
	result.DealsDeclared[g.declarer]++
	if score > 0 {
		result.DealsWon[g.declarer]++
	}

	g.emit(Event{
		Type:     EventTypeDealEnd,
		Deal:     g.deal,
		Declarer: g.declarer,
		Points:   g.points,
		Score:    score,
		Won:      score > 0,
	})
	g.logger.Debug("deal end", "deal", g.deal, "declarer", g.declarer,
		"card_points", deck.TotalPoints(pile), "score", score, "points", g.points)

	g.declarer = (g.declarer + 1) % NumSeats
	g.dealer = (g.dealer + 1) % NumSeats
	g.current = (g.dealer + 1) % NumSeats
}

func (g *Game) observe(seat int) ObservableState {
	var friendly, hostile []deck.Card
	for i := range g.won {
		if (i == g.declarer) == (seat == g.declarer) {
			friendly = append(friendly, g.won[i]...)
		} else {
			hostile = append(hostile, g.won[i]...)
		}
	}

	return ObservableState{
		HoleCards:   cloneCards(g.hands[seat]),
		Trick:       cloneCards(g.trick),
		WonFriendly: cloneCards(friendly),
		WonHostile:  cloneCards(hostile),
		IsDeclarer:  seat == g.declarer,
	}
}

func (g *Game) reward(seat int, winners []int) float64 {
	if g.cfg.Reward == RewardPoints {
		return float64(g.points[seat])
	}
	if slices.Contains(winners, seat) {
		return 1
	}
	return -1
}

// winners returns every seat tied for the highest total.
func winners(points [NumSeats]int) []int {
	best := slices.Max(points[:])
	var out []int
	for i, p := range points {
		if p == best {
			out = append(out, i)
		}
	}
	return out
}

func (g *Game) emit(e Event) {
	if g.onEvent != nil {
		g.onEvent(e)
	}
}
