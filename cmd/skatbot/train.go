package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/lox/skatbot/internal/history"
	"github.com/lox/skatbot/internal/trainer"
)

// TrainCmd trains a policy. Unset flags fall back to the config file, then
// to the built-in defaults.
type TrainCmd struct {
	Config     string `help:"HCL config file (ignored if missing)" default:"skatbot.hcl" type:"path"`
	StartModel string `help:"Checkpoint to continue training from" type:"existingfile"`
	History    string `help:"SQLite history database (empty disables)" default:"skatbot.db"`

	Out                *string        `help:"Checkpoint path (default skat_model.json)"`
	Episodes           *int           `help:"Episodes to run"`
	GamesPerEpisode    *int           `help:"Games collected before each update"`
	Seed               *int64         `help:"Random seed; 0 uses a time seed"`
	CheckpointEvery    *int           `help:"Save every N episodes (0 disables)"`
	CheckpointInterval *time.Duration `help:"Also save when this much time has passed"`
	Credit             *string        `help:"Credit assignment (broadcast, discounted)"`
	Rounds             *int           `help:"Deals per game"`
	Retry              *bool          `help:"Retry illegal cards instead of aborting the game"`
}

func (c *TrainCmd) Run(ctx context.Context, logger *log.Logger) error {
	cfg, err := trainer.LoadConfig(c.Config, trainer.DefaultConfig())
	if err != nil {
		return err
	}
	c.apply(&cfg)

	clock := quartz.NewReal()
	opts := []trainer.Option{trainer.WithLogger(logger), trainer.WithClock(clock)}

	var store *history.Store
	if c.History != "" {
		store, err = history.Open(ctx, c.History)
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer store.Close()
		opts = append(opts, trainer.WithHistory(store))
	}

	var t *trainer.Trainer
	if c.StartModel != "" {
		t, err = trainer.Resume(c.StartModel, cfg, opts...)
	} else {
		t, err = trainer.New(cfg, opts...)
	}
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render(" ♣ skatbot training ♠ "))

	if store != nil {
		cfgJSON, err := json.Marshal(cfg)
		if err != nil {
			return err
		}
		run := history.Run{
			ID:         t.RunID(),
			StartedAt:  clock.Now(),
			Seed:       t.Seed(),
			StartModel: c.StartModel,
			Config:     string(cfgJSON),
		}
		if err := store.StartRun(ctx, run); err != nil {
			return err
		}
	}

	runErr := t.Run(ctx, nil)

	if store != nil {
		if err := store.FinishRun(context.WithoutCancel(ctx), t.RunID(), t.Episode(), clock.Now()); err != nil {
			logger.Warn("failed to finish run", "run", t.RunID(), "error", err)
		}
	}

	if errors.Is(runErr, context.Canceled) {
		logger.Warn("training interrupted", "episode", t.Episode())
		if cfg.CheckpointPath == "" {
			return nil
		}
		if err := t.SaveCheckpoint(cfg.CheckpointPath); err != nil {
			return err
		}
		logger.Info("checkpoint saved", "path", cfg.CheckpointPath, "episode", t.Episode())
		return nil
	}
	return runErr
}

func (c *TrainCmd) apply(cfg *trainer.Config) {
	if c.Out != nil {
		cfg.CheckpointPath = *c.Out
	}
	if c.Episodes != nil {
		cfg.Episodes = *c.Episodes
	}
	if c.GamesPerEpisode != nil {
		cfg.GamesPerEpisode = *c.GamesPerEpisode
	}
	if c.Seed != nil {
		cfg.Seed = *c.Seed
	}
	if c.CheckpointEvery != nil {
		cfg.CheckpointEvery = *c.CheckpointEvery
	}
	if c.CheckpointInterval != nil {
		cfg.CheckpointInterval = *c.CheckpointInterval
	}
	if c.Credit != nil {
		cfg.Credit = *c.Credit
	}
	if c.Rounds != nil {
		cfg.Game.Rounds = *c.Rounds
	}
	if c.Retry != nil {
		cfg.Game.RetryOnIllegalAction = *c.Retry
	}
}
