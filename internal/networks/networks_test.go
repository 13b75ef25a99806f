package networks

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/inferloop/stylegan/pkg/models"
)

func randomDense(rows, cols int, rng *rand.Rand) *mat.Dense {
	m := mat.NewDense(rows, cols, nil)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			m.Set(r, c, rng.NormFloat64())
		}
	}
	return m
}

// numericGradient computes (loss(x+eps) - loss(x-eps)) / (2*eps) for one
// parameter entry.
func numericGradient(t *testing.T, p *models.Parameter, r, c int, loss func() float64) float64 {
	t.Helper()
	const eps = 1e-6
	orig := p.Value.At(r, c)

	p.Value.Set(r, c, orig+eps)
	plus := loss()
	p.Value.Set(r, c, orig-eps)
	minus := loss()
	p.Value.Set(r, c, orig)

	return (plus - minus) / (2 * eps)
}

func TestGeneratorBackwardMatchesFiniteDifference(t *testing.T) {
	g, err := NewLinearGenerator(4, 3, 2, 1, 3, 3, 23)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(31))

	noise := &models.LatentBatch{Primary: randomDense(2, 4, rng)}
	weights := randomDense(2, 9, rng) // fixed linear readout of the output

	loss := func() float64 {
		images, err := g.Generate(noise)
		require.NoError(t, err)
		var sum float64
		for b := 0; b < 2; b++ {
			for p := 0; p < 9; p++ {
				sum += weights.At(b, p) * images.Data.At(b, p)
			}
		}
		return sum
	}

	models.ZeroGrads(g.Parameters())
	_, err = g.Generate(noise)
	require.NoError(t, err)
	outputGrad := &models.ImageBatch{Data: weights, Channels: 1, Height: 3, Width: 3}
	require.NoError(t, g.Backward(outputGrad))

	for _, p := range g.Parameters() {
		rows, cols := p.Value.Dims()
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				want := numericGradient(t, p, r, c, loss)
				assert.InDelta(t, want, p.Grad.At(r, c), 1e-5,
					"parameter %s gradient mismatch at (%d,%d)", p.Name, r, c)
			}
		}
	}
}

func TestGeneratorPathTraceBackwardMatchesFiniteDifference(t *testing.T) {
	g, err := NewLinearGenerator(4, 3, 2, 1, 3, 3, 23)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(37))

	noise := &models.LatentBatch{Primary: randomDense(2, 4, rng)}
	perturb := &models.ImageBatch{Data: randomDense(2, 9, rng), Channels: 1, Height: 3, Width: 3}
	upstream := randomDense(2, 2*3, rng) // fixed linear readout of the trace

	loss := func() float64 {
		_, trace, err := g.GenerateWithPathTrace(noise, perturb)
		require.NoError(t, err)
		var sum float64
		rows, cols := upstream.Dims()
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				sum += upstream.At(r, c) * trace.Gradients.At(r, c)
			}
		}
		return sum
	}

	models.ZeroGrads(g.Parameters())
	_, _, err = g.GenerateWithPathTrace(noise, perturb)
	require.NoError(t, err)
	traceGrad := &models.StyleTrace{Gradients: upstream, Layers: 2, StyleDim: 3}
	require.NoError(t, g.BackwardPathTrace(traceGrad))

	for _, p := range g.Parameters() {
		rows, cols := p.Value.Dims()
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				want := numericGradient(t, p, r, c, loss)
				assert.InDelta(t, want, p.Grad.At(r, c), 1e-5,
					"parameter %s trace gradient mismatch at (%d,%d)", p.Name, r, c)
			}
		}
	}
}

func TestGeneratorStyleMixing(t *testing.T) {
	g, err := NewLinearGenerator(4, 3, 4, 1, 3, 3, 23)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(41))

	primary := randomDense(2, 4, rng)
	secondary := randomDense(2, 4, rng)

	plain, err := g.Generate(&models.LatentBatch{Primary: primary})
	require.NoError(t, err)
	mixed, err := g.Generate(&models.LatentBatch{Primary: primary, Secondary: secondary})
	require.NoError(t, err)

	// A crossover below the top layer routes some synthesis layers to the
	// secondary style, changing the output.
	assert.NotEqual(t, plain.Data.At(0, 0), mixed.Data.At(0, 0))

	// Backward through a mixed forward accumulates into the mapping from
	// both draws without error.
	models.ZeroGrads(g.Parameters())
	outputGrad := &models.ImageBatch{Data: randomDense(2, 9, rng), Channels: 1, Height: 3, Width: 3}
	require.NoError(t, g.Backward(outputGrad))
}

func TestDiscriminatorBackwardMatchesFiniteDifference(t *testing.T) {
	d, err := NewLinearDiscriminator(1, 3, 3, 29)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(43))

	images := &models.ImageBatch{Data: randomDense(3, 9, rng), Channels: 1, Height: 3, Width: 3}
	readout := mat.NewVecDense(3, []float64{0.5, -1.25, 2.0})

	loss := func() float64 {
		scores, err := d.Score(images)
		require.NoError(t, err)
		var sum float64
		for b := 0; b < 3; b++ {
			sum += readout.AtVec(b) * scores.AtVec(b)
		}
		return sum
	}

	models.ZeroGrads(d.Parameters())
	_, err = d.Score(images)
	require.NoError(t, err)
	_, err = d.Backward(readout, true)
	require.NoError(t, err)

	for _, p := range d.Parameters() {
		rows, cols := p.Value.Dims()
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				want := numericGradient(t, p, r, c, loss)
				assert.InDelta(t, want, p.Grad.At(r, c), 1e-5,
					"parameter %s gradient mismatch at (%d,%d)", p.Name, r, c)
			}
		}
	}
}

func TestDiscriminatorInputGradient(t *testing.T) {
	d, err := NewLinearDiscriminator(1, 2, 2, 29)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(47))

	images := &models.ImageBatch{Data: randomDense(2, 4, rng), Channels: 1, Height: 2, Width: 2}
	scoreGrad := mat.NewVecDense(2, []float64{1.5, -0.5})

	_, err = d.Score(images)
	require.NoError(t, err)
	inputGrad, err := d.Backward(scoreGrad, false)
	require.NoError(t, err)

	// For a linear head the input gradient is the score gradient times the
	// weight row.
	weight := d.Parameters()[0].Value
	for b := 0; b < 2; b++ {
		for p := 0; p < 4; p++ {
			assert.InDelta(t, scoreGrad.AtVec(b)*weight.At(0, p), inputGrad.Data.At(b, p), 1e-12)
		}
	}

	// Parameter gradients untouched with intoParams=false
	for _, p := range d.Parameters() {
		rows, cols := p.Grad.Dims()
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				assert.Equal(t, 0.0, p.Grad.At(r, c))
			}
		}
	}
}

func TestDiscriminatorScoreWithInputGradients(t *testing.T) {
	d, err := NewLinearDiscriminator(1, 2, 2, 29)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(53))

	images := &models.ImageBatch{Data: randomDense(2, 4, rng), Channels: 1, Height: 2, Width: 2}
	scores, inputGrads, err := d.ScoreWithInputGradients(images)
	require.NoError(t, err)

	direct, err := d.Score(images)
	require.NoError(t, err)
	for b := 0; b < 2; b++ {
		assert.Equal(t, direct.AtVec(b), scores.AtVec(b))
	}

	weight := d.Parameters()[0].Value
	for b := 0; b < 2; b++ {
		for p := 0; p < 4; p++ {
			assert.Equal(t, weight.At(0, p), inputGrads.Data.At(b, p))
		}
	}
}
