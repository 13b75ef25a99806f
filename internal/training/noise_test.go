package training

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleNeverMixesAtZeroProbability(t *testing.T) {
	for _, seed := range []int64{1, 7, 42, 1234} {
		sampler := NewNoiseSampler(seed)
		for i := 0; i < 20; i++ {
			batch := sampler.Sample(8, 16, 0)
			require.False(t, batch.Mixed())
			assert.Equal(t, 8, batch.Rows())
			assert.Equal(t, 16, batch.Dim())
		}
	}
}

func TestSampleAlwaysMixesAtFullProbability(t *testing.T) {
	for _, seed := range []int64{1, 7, 42, 1234} {
		sampler := NewNoiseSampler(seed)
		for i := 0; i < 20; i++ {
			batch := sampler.Sample(8, 16, 1)
			require.True(t, batch.Mixed())

			r, c := batch.Primary.Dims()
			assert.Equal(t, 8, r)
			assert.Equal(t, 16, c)
			r, c = batch.Secondary.Dims()
			assert.Equal(t, 8, r)
			assert.Equal(t, 16, c)

			// Independent draws must differ
			assert.NotEqual(t, batch.Primary.At(0, 0), batch.Secondary.At(0, 0))
		}
	}
}

func TestSampleReproducibleUnderSeed(t *testing.T) {
	a := NewNoiseSampler(99).Sample(4, 8, 0)
	b := NewNoiseSampler(99).Sample(4, 8, 0)

	for r := 0; r < 4; r++ {
		for c := 0; c < 8; c++ {
			assert.Equal(t, a.Primary.At(r, c), b.Primary.At(r, c))
		}
	}
}

func TestPerturbationScale(t *testing.T) {
	sampler := NewNoiseSampler(5)
	perturb := sampler.Perturbation(4, 3, 8, 8)

	assert.Equal(t, 4, perturb.Batch())
	assert.Equal(t, 3*8*8, perturb.PixelCount())

	// Unit-variance noise scaled by 1/sqrt(64) keeps magnitudes small
	rows, cols := perturb.Data.Dims()
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			assert.Less(t, perturb.Data.At(r, c), 1.0)
			assert.Greater(t, perturb.Data.At(r, c), -1.0)
		}
	}
}
