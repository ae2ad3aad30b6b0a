package nn

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// RMSPropConfig holds RMSprop hyper-parameters.
type RMSPropConfig struct {
	LearningRate float64 `hcl:"learning_rate,optional" json:"learning_rate"`
	Rho          float64 `hcl:"rho,optional" json:"rho"`
	Epsilon      float64 `hcl:"epsilon,optional" json:"epsilon"`
}

// DefaultRMSPropConfig returns the usual RMSprop defaults.
func DefaultRMSPropConfig() RMSPropConfig {
	return RMSPropConfig{
		LearningRate: 0.001,
		Rho:          0.9,
		Epsilon:      1e-7,
	}
}

// Validate checks the hyper-parameters.
func (c RMSPropConfig) Validate() error {
	if c.LearningRate <= 0 {
		return fmt.Errorf("learning rate must be positive, got %g", c.LearningRate)
	}
	if c.Rho < 0 || c.Rho >= 1 {
		return fmt.Errorf("rho must be in [0, 1), got %g", c.Rho)
	}
	if c.Epsilon <= 0 {
		return fmt.Errorf("epsilon must be positive, got %g", c.Epsilon)
	}
	return nil
}

// RMSProp scales each step by a running average of squared gradients.
type RMSProp struct {
	cfg RMSPropConfig
	w   []*mat.Dense
	b   [][]float64
}

// NewRMSProp creates optimizer state for net.
func NewRMSProp(cfg RMSPropConfig, net *Network) *RMSProp {
	o := &RMSProp{cfg: cfg}
	for _, l := range net.Layers() {
		r, c := l.W.Dims()
		o.w = append(o.w, mat.NewDense(r, c, nil))
		o.b = append(o.b, make([]float64, len(l.B)))
	}
	return o
}

// Step applies grads to net's parameters in place.
func (o *RMSProp) Step(net *Network, grads Gradients) {
	for i, l := range net.Layers() {
		o.update(l.W.RawMatrix().Data, grads.W[i].RawMatrix().Data, o.w[i].RawMatrix().Data)
		o.update(l.B, grads.B[i], o.b[i])
	}
}

func (o *RMSProp) update(params, grads, acc []float64) {
	lr, rho, eps := o.cfg.LearningRate, o.cfg.Rho, o.cfg.Epsilon
	for j, g := range grads {
		acc[j] = rho*acc[j] + (1-rho)*g*g
		params[j] -= lr * g / (math.Sqrt(acc[j]) + eps)
	}
}
