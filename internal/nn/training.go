package nn

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Loss scores a batch of predictions against per-row targets and weights.
// The returned gradient is with respect to pred and has pred's shape.
type Loss interface {
	Evaluate(pred, targets *mat.Dense, weights []float64) (float64, *mat.Dense)
}

// TrainingModel updates a Network in place. It holds the same *Network the
// policy uses, so every step is visible to inference immediately.
type TrainingModel struct {
	net  *Network
	loss Loss
	opt  *RMSProp
}

// NewTrainingModel wraps net with fresh optimizer state.
func NewTrainingModel(net *Network, loss Loss, cfg RMSPropConfig) (*TrainingModel, error) {
	if net == nil {
		return nil, fmt.Errorf("network is required")
	}
	if loss == nil {
		return nil, fmt.Errorf("loss is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid optimizer config: %w", err)
	}
	return &TrainingModel{net: net, loss: loss, opt: NewRMSProp(cfg, net)}, nil
}

// Network returns the shared network.
func (m *TrainingModel) Network() *Network {
	return m.net
}

// TrainOnBatch runs one forward pass, one backward pass and one optimizer
// step over the batch. It returns the loss measured before the update.
func (m *TrainingModel) TrainOnBatch(x, targets *mat.Dense, weights []float64) (float64, error) {
	rows, _ := x.Dims()
	if rows == 0 {
		return 0, fmt.Errorf("empty batch")
	}
	if tr, tc := targets.Dims(); tr != rows || tc != m.net.arch.Outputs {
		return 0, fmt.Errorf("targets are %dx%d, want %dx%d", tr, tc, rows, m.net.arch.Outputs)
	}
	if len(weights) != rows {
		return 0, fmt.Errorf("got %d weights for %d rows", len(weights), rows)
	}

	acts := m.net.forward(x)
	loss, grad := m.loss.Evaluate(acts[len(acts)-1], targets, weights)
	if math.IsNaN(loss) || math.IsInf(loss, 0) {
		return loss, fmt.Errorf("non-finite loss %v", loss)
	}

	m.opt.Step(m.net, m.net.backward(acts, grad))
	return loss, nil
}
