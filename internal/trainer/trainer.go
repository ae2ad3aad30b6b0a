// Package trainer runs REINFORCE self-play: three policy seats sharing one
// network play games, their transitions are credited and the network is
// updated once per episode.
package trainer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/lox/skatbot/internal/deck"
	"github.com/lox/skatbot/internal/features"
	"github.com/lox/skatbot/internal/game"
	"github.com/lox/skatbot/internal/history"
	"github.com/lox/skatbot/internal/nn"
	"github.com/lox/skatbot/internal/policy"
	"github.com/lox/skatbot/internal/randutil"
	"github.com/lox/skatbot/internal/reinforce"
	"github.com/lox/skatbot/internal/runid"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrEmptyEpisode is returned by Update when an episode produced no
// transitions. Run treats it as a skipped update.
var ErrEmptyEpisode = errors.New("trainer: episode has no transitions")

// Engine plays games between the trainer's seats.
type Engine interface {
	RunNewGame() error
	LastResult() game.Result
}

// EngineFactory builds the engine for a set of seats.
type EngineFactory func(seats [game.NumSeats]game.Seat, cfg game.Config, rng *rand.Rand, logger *log.Logger) (Engine, error)

// History receives one record per finished episode.
type History interface {
	RecordEpisode(ctx context.Context, e history.Episode) error
}

// Progress reports a finished episode.
type Progress struct {
	Episode     int // total episodes trained, including those before a resume
	Games       int
	Transitions int
	Aborts      int
	MeanReward  float64 // mean credited reward over the batch
	Loss        float64
	Skipped     bool
	Duration    time.Duration
	Checkpoint  string // path written after this episode, empty if none
}

// Trainer owns the shared network, the seats and the optimizer state.
type Trainer struct {
	cfg     Config
	logger  *log.Logger
	clock   quartz.Clock
	history History
	factory EngineFactory

	net     *nn.Network
	model   *nn.TrainingModel
	credit  reinforce.CreditAssigner
	players [game.NumSeats]*policy.Player
	engine  Engine

	rng   *rand.Rand
	seed  int64
	runID string

	episode      int
	savedEpisode int
	lastSave     time.Time
}

// Option configures a Trainer.
type Option func(*Trainer)

// WithLogger sets the logger. The trainer logs under the "trainer" prefix.
func WithLogger(logger *log.Logger) Option {
	return func(t *Trainer) { t.logger = logger }
}

// WithClock replaces the clock used for durations and checkpoint intervals.
func WithClock(clock quartz.Clock) Option {
	return func(t *Trainer) { t.clock = clock }
}

// WithHistory records every episode in h.
func WithHistory(h History) Option {
	return func(t *Trainer) { t.history = h }
}

// WithEngineFactory replaces the game engine.
func WithEngineFactory(f EngineFactory) Option {
	return func(t *Trainer) { t.factory = f }
}

// WithRunID fixes the run id instead of generating one.
func WithRunID(id string) Option {
	return func(t *Trainer) { t.runID = id }
}

// New creates a trainer with a freshly initialised network.
func New(cfg Config, opts ...Option) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid trainer config: %w", err)
	}

	t := newTrainer(cfg, opts)
	net, err := policy.NewNetwork(cfg.Hidden, randutil.Derive(t.rng))
	if err != nil {
		return nil, fmt.Errorf("create network: %w", err)
	}
	if err := t.init(net); err != nil {
		return nil, err
	}
	return t, nil
}

// Resume continues training from a checkpoint. Episode numbering carries on
// from the checkpoint; the optimizer starts with fresh state.
func Resume(path string, cfg Config, opts ...Option) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid trainer config: %w", err)
	}

	ck, err := LoadCheckpoint(path)
	if err != nil {
		return nil, err
	}
	net, err := ck.Model()
	if err != nil {
		return nil, err
	}

	t := newTrainer(cfg, opts)
	if err := t.init(net); err != nil {
		return nil, err
	}
	t.episode = ck.Episodes
	t.savedEpisode = ck.Episodes

	t.logger.Info("resumed from checkpoint", "path", path, "episodes", ck.Episodes, "previous_run", ck.RunID)
	return t, nil
}

func newTrainer(cfg Config, opts []Option) *Trainer {
	t := &Trainer{cfg: cfg}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	t.logger = t.logger.WithPrefix("trainer")
	if t.clock == nil {
		t.clock = quartz.NewReal()
	}
	if t.factory == nil {
		t.factory = defaultEngine
	}
	t.seed = randutil.ResolveSeed(cfg.Seed)
	t.rng = randutil.New(t.seed)
	if t.runID == "" {
		t.runID = runid.NewGenerator(t.clock, nil).Generate()
	}
	return t
}

func defaultEngine(seats [game.NumSeats]game.Seat, cfg game.Config, rng *rand.Rand, logger *log.Logger) (Engine, error) {
	return game.New(seats, cfg, game.WithRNG(rng), game.WithLogger(logger))
}

func (t *Trainer) init(net *nn.Network) error {
	if err := policy.CheckNetwork(net); err != nil {
		return err
	}
	model, err := nn.NewTrainingModel(net, reinforce.NewPolicyGradientLoss(), t.cfg.Optimizer)
	if err != nil {
		return err
	}
	credit, err := reinforce.NewCreditAssigner(t.cfg.Credit, t.cfg.Gamma)
	if err != nil {
		return err
	}

	var seats [game.NumSeats]game.Seat
	for i := range t.players {
		t.players[i] = policy.NewPlayer(net, randutil.Derive(t.rng))
		seats[i] = t.players[i]
	}
	engine, err := t.factory(seats, t.cfg.Game, randutil.Derive(t.rng), t.logger.WithPrefix("game"))
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}

	t.net = net
	t.model = model
	t.credit = credit
	t.engine = engine
	return nil
}

// Clock returns the clock used for timestamps, durations and checkpoint
// intervals.
func (t *Trainer) Clock() quartz.Clock { return t.clock }

// Network returns the shared policy network.
func (t *Trainer) Network() *nn.Network { return t.net }

// Episode returns the number of episodes trained so far.
func (t *Trainer) Episode() int { return t.episode }

// RunID returns the id of this training run.
func (t *Trainer) RunID() string { return t.runID }

// Seed returns the resolved seed.
func (t *Trainer) Seed() int64 { return t.seed }

// Run trains for cfg.Episodes episodes, calling progress after each one.
// When a checkpoint path is configured the final network is always saved.
func (t *Trainer) Run(ctx context.Context, progress func(Progress)) error {
	t.lastSave = t.clock.Now()
	t.logger.Info("training started",
		"run", t.runID,
		"seed", t.seed,
		"episodes", t.cfg.Episodes,
		"games_per_episode", t.cfg.GamesPerEpisode,
		"params", t.net.NumParams())

	for i := 0; i < t.cfg.Episodes; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		p, err := t.RunEpisode(ctx)
		if err != nil {
			return err
		}
		if progress != nil {
			progress(p)
		}
	}

	if t.cfg.CheckpointPath != "" && t.savedEpisode != t.episode {
		if err := t.SaveCheckpoint(t.cfg.CheckpointPath); err != nil {
			return err
		}
		t.logger.Info("checkpoint saved", "path", t.cfg.CheckpointPath, "episode", t.episode)
	}
	t.logger.Info("training finished", "run", t.runID, "episodes", t.episode)
	return nil
}

// RunEpisode collects GamesPerEpisode games, updates the network once and
// writes a checkpoint when one is due.
func (t *Trainer) RunEpisode(ctx context.Context) (Progress, error) {
	start := t.clock.Now()

	batch, aborts, err := t.collect(ctx)
	if err != nil {
		return Progress{}, err
	}
	t.episode++

	p := Progress{
		Episode:     t.episode,
		Games:       t.cfg.GamesPerEpisode,
		Transitions: batch.Len(),
		Aborts:      aborts,
	}
	if batch.Len() > 0 {
		p.MeanReward = floats.Sum(batch.Rewards) / float64(batch.Len())
	}

	loss, err := t.Update(batch)
	switch {
	case errors.Is(err, ErrEmptyEpisode):
		p.Skipped = true
		t.logger.Warn("episode produced no transitions, skipping update", "episode", t.episode)
	case err != nil:
		return p, fmt.Errorf("episode %d: %w", t.episode, err)
	default:
		p.Loss = loss
	}

	if t.checkpointDue() {
		if err := t.SaveCheckpoint(t.cfg.CheckpointPath); err != nil {
			return p, err
		}
		p.Checkpoint = t.cfg.CheckpointPath
	}
	p.Duration = t.clock.Now().Sub(start)

	t.logger.Info("episode complete",
		"episode", p.Episode,
		"transitions", p.Transitions,
		"aborts", p.Aborts,
		"mean_reward", fmt.Sprintf("%.3f", p.MeanReward),
		"loss", fmt.Sprintf("%.4f", p.Loss),
		"duration", p.Duration)

	if t.history != nil {
		rec := history.Episode{
			RunID:       t.runID,
			Episode:     p.Episode,
			Games:       p.Games,
			Transitions: p.Transitions,
			Aborts:      p.Aborts,
			MeanReward:  p.MeanReward,
			Loss:        p.Loss,
			Skipped:     p.Skipped,
			Duration:    p.Duration,
			Checkpoint:  p.Checkpoint,
			RecordedAt:  t.clock.Now().UTC(),
		}
		if err := t.history.RecordEpisode(ctx, rec); err != nil {
			t.logger.Warn("failed to record episode", "episode", p.Episode, "error", err)
		}
	}
	return p, nil
}

// collect plays the episode's games and turns every seat's transitions into
// one credited batch.
func (t *Trainer) collect(ctx context.Context) (Batch, int, error) {
	var batch Batch
	aborts := 0
	for g := 0; g < t.cfg.GamesPerEpisode; g++ {
		if err := ctx.Err(); err != nil {
			return batch, aborts, err
		}
		if err := t.engine.RunNewGame(); err != nil {
			for _, p := range t.players {
				p.ClearTransitions()
			}
			return batch, aborts, fmt.Errorf("game %d: %w", g, err)
		}
		if t.engine.LastResult().Aborted {
			aborts++
		}

		for _, p := range t.players {
			transitions := p.DrainTransitions()
			raw := make([]float64, len(transitions))
			for i, tr := range transitions {
				raw[i] = tr.Reward
			}
			credited := t.credit.Assign(raw)
			for i, tr := range transitions {
				batch.Add(tr, credited[i])
			}
		}
	}
	return batch, aborts, nil
}

// Update performs one gradient step over batch and returns the loss.
func (t *Trainer) Update(batch Batch) (float64, error) {
	n := batch.Len()
	if n == 0 {
		return 0, ErrEmptyEpisode
	}

	x := features.EncodeBatch(batch.States)
	targets := mat.NewDense(n, deck.NumCards, nil)
	for i, a := range batch.Actions {
		copy(targets.RawRowView(i), a.OneHot())
	}
	return t.model.TrainOnBatch(x, targets, batch.Rewards)
}

func (t *Trainer) checkpointDue() bool {
	if t.cfg.CheckpointPath == "" {
		return false
	}
	if t.cfg.CheckpointEvery > 0 && t.episode%t.cfg.CheckpointEvery == 0 {
		return true
	}
	return t.cfg.CheckpointInterval > 0 && t.clock.Now().Sub(t.lastSave) >= t.cfg.CheckpointInterval
}

// Batch is the training input of one episode: parallel slices of states,
// chosen cards and credited rewards.
type Batch struct {
	States  []game.ObservableState
	Actions []deck.Card
	Rewards []float64
}

// Add appends a transition with its credited reward.
func (b *Batch) Add(tr game.Transition, reward float64) {
	b.States = append(b.States, tr.Before)
	b.Actions = append(b.Actions, tr.Action)
	b.Rewards = append(b.Rewards, reward)
}

// Len returns the number of rows.
func (b *Batch) Len() int { return len(b.States) }
