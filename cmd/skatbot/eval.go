package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/lox/skatbot/internal/arena"
	"github.com/lox/skatbot/internal/game"
	"github.com/lox/skatbot/internal/history"
	"github.com/lox/skatbot/internal/randutil"
	"github.com/lox/skatbot/internal/runid"
	"github.com/lox/skatbot/internal/trainer"
)

// EvalCmd plays a model against baseline bots and reports its rewards.
type EvalCmd struct {
	Model    string `help:"Checkpoint to evaluate" required:"" type:"existingfile"`
	Games    int    `help:"Number of games" default:"1000"`
	Opponent string `help:"Opponent type" default:"legal" enum:"rand,legal,greedy,self,mixed"`
	Workers  int    `help:"Parallel workers (0 uses GOMAXPROCS)" default:"0"`
	Seed     int64  `help:"Random seed; 0 uses a time seed" default:"0"`
	Rounds   int    `help:"Deals per game" default:"1"`
	Retry    bool   `help:"Retry illegal cards instead of aborting the game"`
	History  string `help:"SQLite history database (empty disables)" default:"skatbot.db"`
}

func (c *EvalCmd) Run(ctx context.Context, logger *log.Logger) error {
	net, err := trainer.LoadModel(c.Model)
	if err != nil {
		return err
	}

	gameCfg := game.DefaultConfig()
	gameCfg.Rounds = c.Rounds
	gameCfg.RetryOnIllegalAction = c.Retry

	seed := randutil.ResolveSeed(c.Seed)
	a, err := arena.New(net, arena.Config{
		Games:    c.Games,
		Opponent: c.Opponent,
		Workers:  c.Workers,
		Seed:     seed,
		Game:     gameCfg,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	logger.Info("evaluating", "model", c.Model, "games", c.Games, "opponent", c.Opponent, "seed", seed)
	clock := quartz.NewReal()
	start := clock.Now()
	stats, err := a.Run(ctx)
	if err != nil {
		return err
	}
	elapsed := clock.Since(start)

	fmt.Println(titleStyle.Render(" ♣ skatbot evaluation ♠ "))
	arena.PrintSummary(os.Stdout, stats, c.Opponent)
	fmt.Printf("\nCompleted in %s (%.0f games/sec)\n", elapsed.Round(time.Millisecond), float64(stats.Games)/elapsed.Seconds())

	if c.History == "" {
		return nil
	}
	store, err := history.Open(ctx, c.History)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()

	return store.RecordEval(ctx, history.Eval{
		ID:         runid.NewGenerator(clock, nil).Generate(),
		Model:      c.Model,
		Opponent:   c.Opponent,
		Games:      stats.Games,
		WinRate:    stats.WinRate(),
		MeanReward: stats.Mean(),
		AbortRate:  stats.AbortRate(),
		RecordedAt: clock.Now(),
	})
}
