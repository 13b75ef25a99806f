package training

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferloop/stylegan/internal/networks"
	"github.com/inferloop/stylegan/pkg/models"
)

func newTestPair(t *testing.T) (*networks.LinearGenerator, *networks.LinearDiscriminator) {
	t.Helper()
	g, err := networks.NewLinearGenerator(8, 4, 2, 1, 4, 4, 7)
	require.NoError(t, err)
	d, err := networks.NewLinearDiscriminator(1, 4, 4, 11)
	require.NoError(t, err)
	return g, d
}

func TestDiscriminatorAdversarialLossValue(t *testing.T) {
	g, d := newTestPair(t)
	sampler := NewNoiseSampler(3)

	real, err := NewSyntheticImageSource(1, 4, 1, 4, 4, 13).Batch(0)
	require.NoError(t, err)
	fake, err := g.Generate(sampler.Sample(4, 8, 0))
	require.NoError(t, err)

	// Expected non-saturating logistic loss from the raw scores
	realScores, err := d.Score(real)
	require.NoError(t, err)
	fakeScores, err := d.Score(fake)
	require.NoError(t, err)
	var want float64
	for b := 0; b < 4; b++ {
		want += softplus(-realScores.AtVec(b)) / 4
		want += softplus(fakeScores.AtVec(b)) / 4
	}

	models.ZeroGrads(d.Parameters())
	got, err := DiscriminatorAdversarialLoss(d, real, fake)
	require.NoError(t, err)
	assert.InDelta(t, want, got, 1e-12)

	// Gradient accumulated into the discriminator
	assert.True(t, anyNonZero(d.Parameters()))
}

func TestGeneratorAdversarialLossLeavesDiscriminatorGradientsUntouched(t *testing.T) {
	g, d := newTestPair(t)
	sampler := NewNoiseSampler(3)

	models.ZeroGrads(g.Parameters())
	models.ZeroGrads(d.Parameters())

	loss, err := GeneratorAdversarialLoss(g, d, sampler.Sample(4, 8, 0))
	require.NoError(t, err)
	assert.False(t, math.IsNaN(loss))
	assert.Greater(t, loss, 0.0)

	// The generator chain runs through a frozen discriminator
	assert.True(t, anyNonZero(g.Parameters()))
	assert.False(t, anyNonZero(d.Parameters()))
}

func TestSoftplusStable(t *testing.T) {
	// No overflow at large magnitudes
	assert.InDelta(t, 1000.0, softplus(1000), 1e-9)
	assert.InDelta(t, 0.0, softplus(-1000), 1e-9)
	assert.InDelta(t, math.Log(2), softplus(0), 1e-12)
}

func anyNonZero(params []*models.Parameter) bool {
	for _, p := range params {
		rows, cols := p.Grad.Dims()
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				if p.Grad.At(r, c) != 0 {
					return true
				}
			}
		}
	}
	return false
}
