// Package arena measures a policy network against scripted opponents by
// running many independent games in parallel.
package arena

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"runtime"

	"github.com/charmbracelet/log"
	"github.com/lox/skatbot/internal/bot"
	"github.com/lox/skatbot/internal/game"
	"github.com/lox/skatbot/internal/nn"
	"github.com/lox/skatbot/internal/policy"
	"github.com/lox/skatbot/internal/randutil"
	"github.com/lox/skatbot/internal/statistics"
	"golang.org/x/sync/errgroup"
)

// Opponent types accepted by Config.Opponent.
const (
	OpponentRand   = "rand"
	OpponentLegal  = "legal"
	OpponentGreedy = "greedy"
	OpponentSelf   = "self"
	OpponentMixed  = "mixed"
)

// Config holds configuration for an evaluation run
type Config struct {
	Games    int
	Opponent string
	Workers  int
	Seed     int64
	Game     game.Config
	Logger   *log.Logger
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Games <= 0 {
		return fmt.Errorf("games must be positive, got %d", c.Games)
	}
	switch c.Opponent {
	case OpponentRand, OpponentLegal, OpponentGreedy, OpponentSelf, OpponentMixed:
	default:
		return fmt.Errorf("unknown opponent type %q", c.Opponent)
	}
	return c.Game.Validate()
}

// Arena plays a policy network against opponents.
type Arena struct {
	cfg    Config
	net    *nn.Network
	logger *log.Logger
}

// New creates an arena for net. The network is only read during Run.
func New(net *nn.Network, cfg Config) (*Arena, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := policy.CheckNetwork(net); err != nil {
		return nil, err
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	if cfg.Workers > cfg.Games {
		cfg.Workers = cfg.Games
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Arena{cfg: cfg, net: net, logger: logger.WithPrefix("arena")}, nil
}

// Run plays cfg.Games games and returns statistics for the network's seat.
// Game i is seeded with Seed+i and puts the network in seat i%3, so results
// do not depend on the number of workers.
func (a *Arena) Run(ctx context.Context) (*statistics.Statistics, error) {
	g, ctx := errgroup.WithContext(ctx)
	results := make([]*statistics.Statistics, a.cfg.Workers)

	for w := 0; w < a.cfg.Workers; w++ {
		g.Go(func() error {
			stats := &statistics.Statistics{}
			results[w] = stats
			for i := w; i < a.cfg.Games; i += a.cfg.Workers {
				if err := ctx.Err(); err != nil {
					return err
				}
				res, err := a.playGame(i)
				if err != nil {
					return fmt.Errorf("game %d: %w", i, err)
				}
				stats.Add(res)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := &statistics.Statistics{}
	for _, s := range results {
		total.Merge(s)
	}
	if err := total.Validate(); err != nil {
		return nil, fmt.Errorf("statistics validation failed: %w", err)
	}
	return total, nil
}

func (a *Arena) playGame(i int) (statistics.GameResult, error) {
	seed := a.cfg.Seed + int64(i)
	rng := randutil.New(seed)
	ours := i % game.NumSeats

	var seats [game.NumSeats]game.Seat
	for s := range seats {
		if s == ours {
			seats[s] = policy.NewPlayer(a.net, randutil.Derive(rng))
			continue
		}
		seats[s] = a.opponent(s, randutil.Derive(rng))
	}

	g, err := game.New(seats, a.cfg.Game, game.WithRNG(rng), game.WithLogger(a.logger))
	if err != nil {
		return statistics.GameResult{}, err
	}
	if err := g.RunNewGame(); err != nil {
		return statistics.GameResult{}, err
	}

	res := g.LastResult()
	a.logger.Debug("game finished", "game", i, "seat", ours, "reward", res.Rewards[ours], "aborted", res.Aborted)
	return statistics.FromResult(res, ours, seed), nil
}

func (a *Arena) opponent(seat int, rng *rand.Rand) game.Seat {
	kind := a.cfg.Opponent
	if kind == OpponentMixed {
		if seat%2 == 0 {
			kind = OpponentLegal
		} else {
			kind = OpponentGreedy
		}
	}

	switch kind {
	case OpponentRand:
		return bot.NewRandBot(rng, a.logger)
	case OpponentGreedy:
		return bot.NewGreedyBot(a.logger)
	case OpponentSelf:
		return policy.NewPlayer(a.net, rng)
	default:
		return bot.NewLegalBot(rng, a.logger)
	}
}

// PrintSummary writes a summary of evaluation results
func PrintSummary(w io.Writer, stats *statistics.Statistics, opponent string) {
	low, high := stats.ConfidenceInterval95()

	fmt.Fprintf(w, "\n=== RESULTS vs %s ===\n", opponent)
	fmt.Fprintf(w, "Games played: %d\n", stats.Games)
	fmt.Fprintf(w, "Win rate: %.1f%%\n", stats.WinRate()*100)
	fmt.Fprintf(w, "Aborted: %d (%d caused by the model)\n", stats.Aborts, stats.Offences)

	fmt.Fprintf(w, "\n=== REWARD ===\n")
	fmt.Fprintf(w, "Mean: %.4f per game\n", stats.Mean())
	fmt.Fprintf(w, "Median: %.4f\n", stats.Median())
	fmt.Fprintf(w, "Std Dev: %.4f\n", stats.StdDev())
	fmt.Fprintf(w, "95%% CI: [%.4f, %.4f]\n", low, high)

	fmt.Fprintf(w, "\n=== GAME POINTS ===\n")
	fmt.Fprintf(w, "Mean points: %.2f per game\n", stats.MeanPoints())
	fmt.Fprintf(w, "Declared deals: %d, won %.1f%%\n", stats.DealsDeclared, stats.DeclarerWinRate()*100)

	fmt.Fprintf(w, "\n=== SEAT ANALYSIS ===\n")
	for seat, ss := range stats.SeatResults {
		if ss.Games > 0 {
			fmt.Fprintf(w, "Seat %d: %d games, %.3f mean reward\n", seat, ss.Games, stats.SeatMean(seat))
		}
	}
}
