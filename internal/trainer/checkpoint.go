package trainer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lox/skatbot/internal/fileutil"
	"github.com/lox/skatbot/internal/nn"
	"github.com/lox/skatbot/internal/policy"
)

const checkpointFileVersion = 1

// Checkpoint is the on-disk form of a trained policy together with the run
// that produced it.
type Checkpoint struct {
	Version  int         `json:"version"`
	RunID    string      `json:"run_id"`
	Episodes int         `json:"episodes"`
	Seed     int64       `json:"seed"`
	SavedAt  time.Time   `json:"saved_at"`
	Network  nn.Snapshot `json:"network"`
}

// Validate checks the version and that the network fits the card encoding.
func (c *Checkpoint) Validate() error {
	if c.Version != checkpointFileVersion {
		return fmt.Errorf("unsupported checkpoint version %d", c.Version)
	}
	if c.Episodes < 0 {
		return errors.New("checkpoint episode count cannot be negative")
	}
	_, err := c.Model()
	return err
}

// Model rebuilds the policy network stored in the checkpoint.
func (c *Checkpoint) Model() (*nn.Network, error) {
	net, err := nn.FromSnapshot(c.Network)
	if err != nil {
		return nil, fmt.Errorf("decode network: %w", err)
	}
	if err := policy.CheckNetwork(net); err != nil {
		return nil, err
	}
	return net, nil
}

// SaveCheckpoint writes the current network and run metadata to path.
func (t *Trainer) SaveCheckpoint(path string) error {
	snap := Checkpoint{
		Version:  checkpointFileVersion,
		RunID:    t.runID,
		Episodes: t.episode,
		Seed:     t.seed,
		SavedAt:  t.clock.Now().UTC(),
		Network:  t.net.Snapshot(),
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create checkpoint dir: %w", err)
		}
	}
	if err := fileutil.WriteJSONAtomic(path, snap, 0o644); err != nil {
		return fmt.Errorf("persist checkpoint: %w", err)
	}
	t.savedEpisode = t.episode
	t.lastSave = t.clock.Now()
	return nil
}

// LoadCheckpoint reads and validates a checkpoint written by SaveCheckpoint.
func LoadCheckpoint(path string) (*Checkpoint, error) {
	var c Checkpoint
	if err := fileutil.ReadJSON(path, &c); err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid checkpoint %s: %w", path, err)
	}
	return &c, nil
}

// LoadModel is a shortcut for loading a checkpoint and rebuilding its network.
func LoadModel(path string) (*nn.Network, error) {
	c, err := LoadCheckpoint(path)
	if err != nil {
		return nil, err
	}
	return c.Model()
}
