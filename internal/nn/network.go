// Package nn implements the small feed-forward network used as the card
// policy: dense layers with ReLU hidden activations and a softmax output,
// trained with manual backpropagation on gonum matrices.
package nn

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Activation names a layer's non-linearity.
type Activation string

const (
	Linear  Activation = "linear"
	ReLU    Activation = "relu"
	Softmax Activation = "softmax"
)

// Architecture describes the shape of a network.
type Architecture struct {
	Inputs  int   `json:"inputs"`
	Hidden  []int `json:"hidden"`
	Outputs int   `json:"outputs"`
}

// Validate checks the architecture for consistency.
func (a Architecture) Validate() error {
	if a.Inputs <= 0 {
		return fmt.Errorf("inputs must be positive, got %d", a.Inputs)
	}
	if a.Outputs <= 0 {
		return fmt.Errorf("outputs must be positive, got %d", a.Outputs)
	}
	for i, h := range a.Hidden {
		if h <= 0 {
			return fmt.Errorf("hidden layer %d must be positive, got %d", i, h)
		}
	}
	return nil
}

// Layer is a dense layer computing act(x·W + b).
type Layer struct {
	W          *mat.Dense // inputs x outputs
	B          []float64
	Activation Activation
}

// Network is a stack of dense layers. Predict may be called concurrently as
// long as no training step is running.
type Network struct {
	arch   Architecture
	layers []*Layer
}

// New builds a network with Glorot-uniform weights and zero biases.
func New(arch Architecture, rng *rand.Rand) (*Network, error) {
	if err := arch.Validate(); err != nil {
		return nil, fmt.Errorf("invalid architecture: %w", err)
	}
	if rng == nil {
		return nil, errors.New("nn: rng is required")
	}

	sizes := append(append([]int{arch.Inputs}, arch.Hidden...), arch.Outputs)
	n := &Network{arch: cloneArch(arch)}
	for i := 0; i < len(sizes)-1; i++ {
		in, out := sizes[i], sizes[i+1]
		limit := math.Sqrt(6 / float64(in+out))
		w := make([]float64, in*out)
		for j := range w {
			w[j] = (rng.Float64()*2 - 1) * limit
		}

		act := ReLU
		if i == len(sizes)-2 {
			act = Softmax
		}
		n.layers = append(n.layers, &Layer{
			W:          mat.NewDense(in, out, w),
			B:          make([]float64, out),
			Activation: act,
		})
	}
	return n, nil
}

// Architecture returns the network's shape.
func (n *Network) Architecture() Architecture {
	return cloneArch(n.arch)
}

// Layers exposes the layers for optimizers and serialisation.
func (n *Network) Layers() []*Layer {
	return n.layers
}

// NumParams returns the number of trainable parameters.
func (n *Network) NumParams() int {
	total := 0
	for _, l := range n.layers {
		r, c := l.W.Dims()
		total += r*c + len(l.B)
	}
	return total
}

// Predict returns the output distribution for a single input vector.
func (n *Network) Predict(x []float64) []float64 {
	out := n.PredictBatch(mat.NewDense(1, len(x), append([]float64{}, x...)))
	return append([]float64{}, out.RawRowView(0)...)
}

// PredictBatch returns one output row per input row.
func (n *Network) PredictBatch(x *mat.Dense) *mat.Dense {
	acts := n.forward(x)
	return acts[len(acts)-1]
}

// forward returns the input followed by every layer's activation.
func (n *Network) forward(x *mat.Dense) []*mat.Dense {
	if _, c := x.Dims(); c != n.arch.Inputs {
		panic(fmt.Sprintf("nn: input has %d columns, want %d", c, n.arch.Inputs))
	}

	acts := make([]*mat.Dense, 0, len(n.layers)+1)
	acts = append(acts, x)
	a := x
	for _, l := range n.layers {
		rows, _ := a.Dims()
		_, out := l.W.Dims()
		z := mat.NewDense(rows, out, nil)
		z.Mul(a, l.W)
		for i := 0; i < rows; i++ {
			floats.Add(z.RawRowView(i), l.B)
		}
		activate(z, l.Activation)
		acts = append(acts, z)
		a = z
	}
	return acts
}

// Gradients holds one gradient per parameter of a network.
type Gradients struct {
	W []*mat.Dense
	B [][]float64
}

// backward propagates dOut, the gradient of the loss with respect to the
// network output, through the activations recorded by forward.
func (n *Network) backward(acts []*mat.Dense, dOut *mat.Dense) Gradients {
	grads := Gradients{
		W: make([]*mat.Dense, len(n.layers)),
		B: make([][]float64, len(n.layers)),
	}

	dA := mat.DenseCopyOf(dOut)
	for i := len(n.layers) - 1; i >= 0; i-- {
		l := n.layers[i]
		dZ := activationGrad(acts[i+1], dA, l.Activation)

		in, out := l.W.Dims()
		dW := mat.NewDense(in, out, nil)
		dW.Mul(acts[i].T(), dZ)
		grads.W[i] = dW

		rows, _ := dZ.Dims()
		dB := make([]float64, out)
		for r := 0; r < rows; r++ {
			floats.Add(dB, dZ.RawRowView(r))
		}
		grads.B[i] = dB

		if i > 0 {
			next := mat.NewDense(rows, in, nil)
			next.Mul(dZ, l.W.T())
			dA = next
		}
	}
	return grads
}

func activate(z *mat.Dense, act Activation) {
	rows, _ := z.Dims()
	switch act {
	case ReLU:
		for i := 0; i < rows; i++ {
			row := z.RawRowView(i)
			for j, v := range row {
				if v < 0 {
					row[j] = 0
				}
			}
		}
	case Softmax:
		for i := 0; i < rows; i++ {
			softmax(z.RawRowView(i))
		}
	}
}

func softmax(row []float64) {
	m := floats.Max(row)
	for j, v := range row {
		row[j] = math.Exp(v - m)
	}
	floats.Scale(1/floats.Sum(row), row)
}

// activationGrad converts the gradient with respect to a layer's output a
// into the gradient with respect to its pre-activation.
func activationGrad(a, dA *mat.Dense, act Activation) *mat.Dense {
	rows, cols := a.Dims()
	dZ := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		out := dZ.RawRowView(i)
		av := a.RawRowView(i)
		g := dA.RawRowView(i)
		switch act {
		case ReLU:
			for j := range out {
				if av[j] > 0 {
					out[j] = g[j]
				}
			}
		case Softmax:
			dot := floats.Dot(g, av)
			for j := range out {
				out[j] = av[j] * (g[j] - dot)
			}
		default:
			copy(out, g)
		}
	}
	return dZ
}

func cloneArch(a Architecture) Architecture {
	a.Hidden = append([]int{}, a.Hidden...)
	return a
}
