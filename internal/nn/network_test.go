package nn

import (
	"math"
	"math/rand/v2"
	"path/filepath"
	"testing"

	"github.com/lox/skatbot/internal/fileutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// crossEntropy is -Σ w_i Σ_k t_ik log p_ik.
type crossEntropy struct{}

func (crossEntropy) Evaluate(pred, targets *mat.Dense, weights []float64) (float64, *mat.Dense) {
	rows, cols := pred.Dims()
	grad := mat.NewDense(rows, cols, nil)
	loss := 0.0
	for i := 0; i < rows; i++ {
		for k := 0; k < cols; k++ {
			t := targets.At(i, k)
			if t == 0 {
				continue
			}
			p := pred.At(i, k)
			loss -= weights[i] * t * math.Log(p)
			grad.Set(i, k, -weights[i]*t/p)
		}
	}
	return loss, grad
}

func smallArch() Architecture {
	return Architecture{Inputs: 4, Hidden: []int{6, 5}, Outputs: 3}
}

func newSmall(t *testing.T, seed uint64) *Network {
	t.Helper()
	n, err := New(smallArch(), rand.New(rand.NewPCG(seed, seed+1)))
	require.NoError(t, err)
	return n
}

func batch() (*mat.Dense, *mat.Dense, []float64) {
	x := mat.NewDense(3, 4, []float64{
		0.5, -1, 0.25, 1,
		1, 0, -0.5, 0.3,
		-0.2, 0.7, 0.9, -1,
	})
	targets := mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, 0, 1,
		0, 1, 0,
	})
	return x, targets, []float64{1, 0.5, 2}
}

func TestNewValidatesArchitecture(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	_, err := New(Architecture{Inputs: 0, Outputs: 3}, rng)
	assert.Error(t, err)
	_, err = New(Architecture{Inputs: 3, Hidden: []int{0}, Outputs: 3}, rng)
	assert.Error(t, err)
	_, err = New(smallArch(), nil)
	assert.Error(t, err)
}

func TestPredictIsDistribution(t *testing.T) {
	n := newSmall(t, 3)
	assert.Equal(t, 4*6+6+6*5+5+5*3+3, n.NumParams())

	p := n.Predict([]float64{1, 2, 3, 4})
	require.Len(t, p, 3)
	assert.InDelta(t, 1.0, floats.Sum(p), 1e-12)
	for _, v := range p {
		assert.GreaterOrEqual(t, v, 0.0)
	}

	x, _, _ := batch()
	out := n.PredictBatch(x)
	r, c := out.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 3, c)
	assert.InDeltaSlice(t, n.Predict(x.RawRowView(1)), out.RawRowView(1), 1e-12)
}

func TestPredictPanicsOnWrongWidth(t *testing.T) {
	n := newSmall(t, 3)
	assert.Panics(t, func() { n.Predict([]float64{1, 2}) })
}

func TestSoftmaxStable(t *testing.T) {
	row := []float64{1000, 1000, -1000}
	softmax(row)
	assert.InDelta(t, 0.5, row[0], 1e-12)
	assert.InDelta(t, 0.5, row[1], 1e-12)
	assert.InDelta(t, 0.0, row[2], 1e-12)
}

func TestBackwardMatchesFiniteDifferences(t *testing.T) {
	n := newSmall(t, 5)
	x, targets, weights := batch()
	loss := crossEntropy{}

	lossAt := func() float64 {
		l, _ := loss.Evaluate(n.PredictBatch(x), targets, weights)
		return l
	}

	acts := n.forward(x)
	_, dOut := loss.Evaluate(acts[len(acts)-1], targets, weights)
	grads := n.backward(acts, dOut)

	const h = 1e-6
	for li, l := range n.Layers() {
		w := l.W.RawMatrix().Data
		gw := grads.W[li].RawMatrix().Data
		for j := range w {
			orig := w[j]
			w[j] = orig + h
			up := lossAt()
			w[j] = orig - h
			down := lossAt()
			w[j] = orig
			assert.InDelta(t, (up-down)/(2*h), gw[j], 1e-5, "layer %d weight %d", li, j)
		}
		for j := range l.B {
			orig := l.B[j]
			l.B[j] = orig + h
			up := lossAt()
			l.B[j] = orig - h
			down := lossAt()
			l.B[j] = orig
			assert.InDelta(t, (up-down)/(2*h), grads.B[li][j], 1e-5, "layer %d bias %d", li, j)
		}
	}
}

func TestTrainOnBatchReducesLoss(t *testing.T) {
	n := newSmall(t, 7)
	cfg := DefaultRMSPropConfig()
	cfg.LearningRate = 0.01
	m, err := NewTrainingModel(n, crossEntropy{}, cfg)
	require.NoError(t, err)
	assert.Same(t, n, m.Network())

	x, targets, weights := batch()
	before := n.Predict(x.RawRowView(0))

	first, err := m.TrainOnBatch(x, targets, weights)
	require.NoError(t, err)
	assert.NotEqual(t, before, n.Predict(x.RawRowView(0)), "training updates the shared network")

	last := first
	for i := 0; i < 200; i++ {
		last, err = m.TrainOnBatch(x, targets, weights)
		require.NoError(t, err)
	}
	assert.Less(t, last, first/2)
}

func TestTrainOnBatchValidatesShapes(t *testing.T) {
	m, err := NewTrainingModel(newSmall(t, 1), crossEntropy{}, DefaultRMSPropConfig())
	require.NoError(t, err)

	x, targets, _ := batch()
	_, err = m.TrainOnBatch(x, targets, []float64{1})
	assert.Error(t, err)
	_, err = m.TrainOnBatch(x, mat.NewDense(3, 2, nil), []float64{1, 1, 1})
	assert.Error(t, err)

	_, err = NewTrainingModel(newSmall(t, 1), crossEntropy{}, RMSPropConfig{})
	assert.Error(t, err)
}

func TestSnapshotRoundTrip(t *testing.T) {
	n := newSmall(t, 9)
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, fileutil.WriteJSONAtomic(path, n.Snapshot(), 0o644))

	var s Snapshot
	require.NoError(t, fileutil.ReadJSON(path, &s))
	loaded, err := FromSnapshot(s)
	require.NoError(t, err)
	assert.Equal(t, n.Architecture(), loaded.Architecture())

	in := []float64{0.1, 0.2, -0.3, 0.4}
	assert.Equal(t, n.Predict(in), loaded.Predict(in), "weights survive JSON exactly")
}

func TestFromSnapshotRejectsMismatch(t *testing.T) {
	s := newSmall(t, 9).Snapshot()
	s.Architecture.Hidden = []int{6, 4}
	_, err := FromSnapshot(s)
	assert.Error(t, err)

	s = newSmall(t, 9).Snapshot()
	s.Layers[0].Activation = "tanh"
	_, err = FromSnapshot(s)
	assert.Error(t, err)

	s = newSmall(t, 9).Snapshot()
	s.Layers = s.Layers[:2]
	_, err = FromSnapshot(s)
	assert.Error(t, err)
}

func TestFromSnapshotRequiresSoftmaxHead(t *testing.T) {
	for _, act := range []Activation{Linear, ReLU} {
		s := newSmall(t, 9).Snapshot()
		s.Layers[len(s.Layers)-1].Activation = act
		_, err := FromSnapshot(s)
		assert.Error(t, err, "output activation %s", act)
	}

	s := newSmall(t, 9).Snapshot()
	s.Layers[0].Activation = Softmax
	_, err := FromSnapshot(s)
	assert.Error(t, err, "softmax hidden layer")
}
