package reinforce

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// DefaultEpsilon bounds the chosen-action probability away from zero.
const DefaultEpsilon = 1e-8

// PolicyGradientLoss is the REINFORCE objective -Σ_i r_i log p_i, where p_i
// is the probability the network gave to the card actually played.
type PolicyGradientLoss struct {
	Epsilon float64
}

// NewPolicyGradientLoss returns the loss with the default clamp.
func NewPolicyGradientLoss() PolicyGradientLoss {
	return PolicyGradientLoss{Epsilon: DefaultEpsilon}
}

// Evaluate returns the loss over the batch and its gradient with respect to
// pred. actions holds one-hot rows; rewards are treated as constants. Where
// p_i was clamped the gradient is zero.
func (l PolicyGradientLoss) Evaluate(pred, actions *mat.Dense, rewards []float64) (float64, *mat.Dense) {
	eps := l.Epsilon
	if eps <= 0 {
		eps = DefaultEpsilon
	}

	rows, cols := pred.Dims()
	grad := mat.NewDense(rows, cols, nil)
	loss := 0.0
	for i := 0; i < rows; i++ {
		a := actions.RawRowView(i)
		p := pred.RawRowView(i)

		chosen := 0.0
		for k := range a {
			chosen += a[k] * p[k]
		}

		clamped := chosen < eps
		if clamped {
			chosen = eps
		}
		loss -= rewards[i] * math.Log(chosen)

		if clamped {
			continue
		}
		g := grad.RawRowView(i)
		for k := range a {
			if a[k] != 0 {
				g[k] = -rewards[i] * a[k] / chosen
			}
		}
	}
	return loss, grad
}
