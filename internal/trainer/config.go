package trainer

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/lox/skatbot/internal/game"
	"github.com/lox/skatbot/internal/nn"
	"github.com/lox/skatbot/internal/policy"
	"github.com/lox/skatbot/internal/reinforce"
)

// Config aggregates everything that controls a training run.
type Config struct {
	Episodes        int   // episodes to run in this invocation
	GamesPerEpisode int   // games collected before each update
	Seed            int64 // 0 derives a seed from the clock

	CheckpointPath     string
	CheckpointEvery    int           // save every n episodes; 0 disables
	CheckpointInterval time.Duration // save when this much time passed since the last save; 0 disables

	Credit string  // reinforce.CreditBroadcast or reinforce.CreditDiscounted
	Gamma  float64 // discount for the discounted credit scheme

	Hidden    []int
	Optimizer nn.RMSPropConfig
	Game      game.Config
}

// DefaultConfig returns the configuration used when nothing else is given.
func DefaultConfig() Config {
	return Config{
		Episodes:        1000,
		GamesPerEpisode: 1,
		CheckpointPath:  "skat_model.json",
		CheckpointEvery: 1,
		Credit:          reinforce.CreditBroadcast,
		Gamma:           0.99,
		Hidden:          append([]int{}, policy.DefaultHidden...),
		Optimizer:       nn.DefaultRMSPropConfig(),
		Game:            game.DefaultConfig(),
	}
}

// Validate ensures the configuration is safe to use.
func (c Config) Validate() error {
	if c.Episodes < 0 {
		return errors.New("episodes cannot be negative")
	}
	if c.GamesPerEpisode <= 0 {
		return errors.New("games per episode must be > 0")
	}
	if c.CheckpointEvery < 0 {
		return errors.New("checkpoint every cannot be negative")
	}
	if c.CheckpointInterval < 0 {
		return errors.New("checkpoint interval cannot be negative")
	}
	if _, err := reinforce.NewCreditAssigner(c.Credit, c.Gamma); err != nil {
		return err
	}
	for i, h := range c.Hidden {
		if h <= 0 {
			return fmt.Errorf("hidden[%d] must be > 0", i)
		}
	}
	if err := c.Optimizer.Validate(); err != nil {
		return fmt.Errorf("optimizer: %w", err)
	}
	if err := c.Game.Validate(); err != nil {
		return fmt.Errorf("game: %w", err)
	}
	return nil
}

// fileConfig mirrors the HCL layout. Pointers distinguish "unset" from zero.
type fileConfig struct {
	Training *trainingBlock `hcl:"training,block"`
	Model    *modelBlock    `hcl:"model,block"`
	Game     *gameBlock     `hcl:"game,block"`
}

type trainingBlock struct {
	Episodes           *int     `hcl:"episodes,optional"`
	GamesPerEpisode    *int     `hcl:"games_per_episode,optional"`
	Seed               *int64   `hcl:"seed,optional"`
	CheckpointPath     *string  `hcl:"checkpoint_path,optional"`
	CheckpointEvery    *int     `hcl:"checkpoint_every,optional"`
	CheckpointInterval *string  `hcl:"checkpoint_interval,optional"`
	Credit             *string  `hcl:"credit,optional"`
	Gamma              *float64 `hcl:"gamma,optional"`
}

type modelBlock struct {
	Hidden       []int    `hcl:"hidden,optional"`
	LearningRate *float64 `hcl:"learning_rate,optional"`
	Rho          *float64 `hcl:"rho,optional"`
	Epsilon      *float64 `hcl:"epsilon,optional"`
}

type gameBlock struct {
	Rounds               *int     `hcl:"rounds,optional"`
	RetryOnIllegalAction *bool    `hcl:"retry_on_illegal_action,optional"`
	MaxRetries           *int     `hcl:"max_retries,optional"`
	Reward               *string  `hcl:"reward,optional"`
	IllegalPenalty       *float64 `hcl:"illegal_penalty,optional"`
}

// LoadConfig applies the HCL file at filename on top of base. A missing file
// leaves base unchanged.
func LoadConfig(filename string, base Config) (Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return base, nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return base, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var fc fileConfig
	diags = gohcl.DecodeBody(file.Body, nil, &fc)
	if diags.HasErrors() {
		return base, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	cfg := base
	cfg.Hidden = append([]int{}, base.Hidden...)

	if tb := fc.Training; tb != nil {
		set(&cfg.Episodes, tb.Episodes)
		set(&cfg.GamesPerEpisode, tb.GamesPerEpisode)
		set(&cfg.Seed, tb.Seed)
		set(&cfg.CheckpointPath, tb.CheckpointPath)
		set(&cfg.CheckpointEvery, tb.CheckpointEvery)
		set(&cfg.Credit, tb.Credit)
		set(&cfg.Gamma, tb.Gamma)
		if tb.CheckpointInterval != nil {
			d, err := time.ParseDuration(*tb.CheckpointInterval)
			if err != nil {
				return base, fmt.Errorf("invalid checkpoint_interval: %w", err)
			}
			cfg.CheckpointInterval = d
		}
	}

	if mb := fc.Model; mb != nil {
		if len(mb.Hidden) > 0 {
			cfg.Hidden = append([]int{}, mb.Hidden...)
		}
		set(&cfg.Optimizer.LearningRate, mb.LearningRate)
		set(&cfg.Optimizer.Rho, mb.Rho)
		set(&cfg.Optimizer.Epsilon, mb.Epsilon)
	}

	if gb := fc.Game; gb != nil {
		set(&cfg.Game.Rounds, gb.Rounds)
		set(&cfg.Game.RetryOnIllegalAction, gb.RetryOnIllegalAction)
		set(&cfg.Game.MaxRetries, gb.MaxRetries)
		set(&cfg.Game.IllegalPenalty, gb.IllegalPenalty)
		if gb.Reward != nil {
			cfg.Game.Reward = game.RewardScheme(*gb.Reward)
		}
	}

	return cfg, nil
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
