package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lox/skatbot/internal/history"
)

// HistoryCmd prints the training ledger.
type HistoryCmd struct {
	DB    string `help:"SQLite history database" default:"skatbot.db"`
	RunID string `name:"run" help:"Show the episodes of one run"`
	Model string `help:"Show the evaluations of one model"`
}

func (c *HistoryCmd) Run(ctx context.Context, logger *log.Logger) error {
	if _, err := os.Stat(c.DB); err != nil {
		return fmt.Errorf("no history at %s: %w", c.DB, err)
	}
	logger.Debug("reading history", "db", c.DB)

	store, err := history.Open(ctx, c.DB)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()

	switch {
	case c.RunID != "":
		return c.printEpisodes(ctx, store)
	case c.Model != "":
		return c.printEvals(ctx, store)
	default:
		return c.printRuns(ctx, store)
	}
}

func (c *HistoryCmd) printRuns(ctx context.Context, store *history.Store) error {
	runs, err := store.Runs(ctx)
	if err != nil {
		return err
	}
	fmt.Println(titleStyle.Render(" Training runs "))
	for _, r := range runs {
		status := "running"
		if !r.FinishedAt.IsZero() {
			status = r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
		}
		fmt.Printf("%s  %s  seed=%d  episodes=%d  %s\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), r.Seed, r.Episodes, status)
	}
	return nil
}

func (c *HistoryCmd) printEpisodes(ctx context.Context, store *history.Store) error {
	run, err := store.Run(ctx, c.RunID)
	if err != nil {
		return err
	}
	episodes, err := store.Episodes(ctx, run.ID)
	if err != nil {
		return err
	}
	fmt.Println(titleStyle.Render(" Run " + run.ID + " "))
	for _, e := range episodes {
		skipped := ""
		if e.Skipped {
			skipped = "  skipped"
		}
		fmt.Printf("%6d  transitions=%-5d aborts=%-3d reward=%+.3f loss=%.4f  %s%s\n",
			e.Episode, e.Transitions, e.Aborts, e.MeanReward, e.Loss, e.Duration.Round(time.Millisecond), skipped)
	}
	return nil
}

func (c *HistoryCmd) printEvals(ctx context.Context, store *history.Store) error {
	evals, err := store.Evals(ctx, c.Model)
	if err != nil {
		return err
	}
	fmt.Println(titleStyle.Render(" Evaluations of " + c.Model + " "))
	for _, e := range evals {
		fmt.Printf("%s  vs %-7s games=%-6d win=%.1f%%  reward=%+.4f  aborts=%.1f%%\n",
			e.RecordedAt.Local().Format(time.DateTime), e.Opponent, e.Games, e.WinRate*100, e.MeanReward, e.AbortRate*100)
	}
	return nil
}
