package nn

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Snapshot is the serialisable form of a Network.
type Snapshot struct {
	Architecture Architecture    `json:"architecture"`
	Layers       []LayerSnapshot `json:"layers"`
}

// LayerSnapshot stores a layer's weights in row-major order.
type LayerSnapshot struct {
	Rows       int        `json:"rows"`
	Cols       int        `json:"cols"`
	Weights    []float64  `json:"weights"`
	Biases     []float64  `json:"biases"`
	Activation Activation `json:"activation"`
}

// Snapshot copies the network's parameters.
func (n *Network) Snapshot() Snapshot {
	s := Snapshot{Architecture: n.Architecture()}
	for _, l := range n.layers {
		r, c := l.W.Dims()
		s.Layers = append(s.Layers, LayerSnapshot{
			Rows:       r,
			Cols:       c,
			Weights:    mat.DenseCopyOf(l.W).RawMatrix().Data,
			Biases:     append([]float64{}, l.B...),
			Activation: l.Activation,
		})
	}
	return s
}

// FromSnapshot rebuilds a network, checking that every layer matches the
// recorded architecture and that only the output layer is a softmax.
func FromSnapshot(s Snapshot) (*Network, error) {
	if err := s.Architecture.Validate(); err != nil {
		return nil, fmt.Errorf("invalid architecture: %w", err)
	}

	sizes := append(append([]int{s.Architecture.Inputs}, s.Architecture.Hidden...), s.Architecture.Outputs)
	if len(s.Layers) != len(sizes)-1 {
		return nil, fmt.Errorf("snapshot has %d layers, architecture needs %d", len(s.Layers), len(sizes)-1)
	}

	n := &Network{arch: cloneArch(s.Architecture)}
	for i, ls := range s.Layers {
		if ls.Rows != sizes[i] || ls.Cols != sizes[i+1] {
			return nil, fmt.Errorf("layer %d is %dx%d, want %dx%d", i, ls.Rows, ls.Cols, sizes[i], sizes[i+1])
		}
		if len(ls.Weights) != ls.Rows*ls.Cols || len(ls.Biases) != ls.Cols {
			return nil, fmt.Errorf("layer %d has %d weights and %d biases", i, len(ls.Weights), len(ls.Biases))
		}
		switch ls.Activation {
		case Linear, ReLU, Softmax:
		default:
			return nil, fmt.Errorf("layer %d has unknown activation %q", i, ls.Activation)
		}
		last := i == len(s.Layers)-1
		if last && ls.Activation != Softmax {
			return nil, fmt.Errorf("output layer must be %s, got %q", Softmax, ls.Activation)
		}
		if !last && ls.Activation == Softmax {
			return nil, fmt.Errorf("hidden layer %d cannot be %s", i, Softmax)
		}

		n.layers = append(n.layers, &Layer{
			W:          mat.NewDense(ls.Rows, ls.Cols, append([]float64{}, ls.Weights...)),
			B:          append([]float64{}, ls.Biases...),
			Activation: ls.Activation,
		})
	}
	return n, nil
}
