package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/lox/skatbot/internal/bot"
	"github.com/lox/skatbot/internal/game"
	"github.com/lox/skatbot/internal/nn"
	"github.com/lox/skatbot/internal/policy"
	"github.com/lox/skatbot/internal/randutil"
	"github.com/lox/skatbot/internal/trainer"
	"github.com/lox/skatbot/internal/tui"
)

// PlayCmd seats a human against two computer players.
type PlayCmd struct {
	Model   string `help:"Checkpoint for the computer seats (greedy bots when empty)" type:"existingfile"`
	Rounds  int    `help:"Deals per game" default:"10"`
	Games   int    `help:"Games to play (0 plays until you quit)" default:"0"`
	Seat    int    `help:"Your seat (1-3)" default:"1"`
	Seed    int64  `help:"Random seed; 0 uses a time seed" default:"0"`
	LogFile string `help:"Debug log file, the terminal belongs to the UI" default:"skatbot-play.log"`
}

func (c *PlayCmd) Run(ctx context.Context, logger *log.Logger) error {
	if c.Seat < 1 || c.Seat > game.NumSeats {
		return fmt.Errorf("seat must be between 1 and %d, got %d", game.NumSeats, c.Seat)
	}

	var net *nn.Network
	if c.Model != "" {
		var err error
		if net, err = trainer.LoadModel(c.Model); err != nil {
			return err
		}
	}

	logFile, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create debug log: %w", err)
	}
	defer func() {
		if err := logFile.Close(); err != nil {
			logger.Error("Failed to close debug log", "error", err)
		}
	}()
	fileLogger := log.NewWithOptions(logFile, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
		Level:           logger.GetLevel(),
	})

	seed := randutil.ResolveSeed(c.Seed)
	rng := randutil.New(seed)
	human := c.Seat - 1
	fileLogger.Info("starting interactive game", "seed", seed, "seat", c.Seat, "model", c.Model)

	model := tui.NewModel(fileLogger, human)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	var seats [game.NumSeats]game.Seat
	for i := range seats {
		switch {
		case i == human:
			seats[i] = tui.NewHumanSeat(model, program)
		case net != nil:
			seats[i] = policy.NewPlayer(net, randutil.Derive(rng))
		default:
			seats[i] = bot.NewGreedyBot(fileLogger)
		}
	}

	cfg := game.DefaultConfig()
	cfg.Rounds = c.Rounds
	cfg.RetryOnIllegalAction = true

	g, err := game.New(seats, cfg,
		game.WithRNG(rng),
		game.WithLogger(fileLogger.WithPrefix("game")),
		game.WithEventHandler(tui.EventHandler(program)))
	if err != nil {
		return err
	}

	go func() {
		var err error
		for n := 0; c.Games == 0 || n < c.Games; n++ {
			if err = g.RunNewGame(); err != nil {
				break
			}
			for _, s := range seats {
				s.ClearTransitions()
			}
		}
		program.Send(tui.DoneMsg{Err: err})
	}()

	_, err = program.Run()
	model.Quit()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
