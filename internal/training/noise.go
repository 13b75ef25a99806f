package training

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/inferloop/stylegan/pkg/models"
)

// NoiseSampler draws latent batches for the generator from a seeded random
// source, optionally as a pair of independent draws for style mixing.
type NoiseSampler struct {
	randSource *rand.Rand
}

// NewNoiseSampler creates a sampler over a seeded source so runs are
// reproducible.
func NewNoiseSampler(seed int64) *NoiseSampler {
	return &NoiseSampler{randSource: rand.New(rand.NewSource(seed))}
}

// Sample draws a standard-normal latent batch. With probability
// mixProbability a second independent batch is drawn alongside it; the
// generator blends the two at a random crossover layer.
func (ns *NoiseSampler) Sample(batchSize, latentDim int, mixProbability float64) *models.LatentBatch {
	if mixProbability > 0 && ns.randSource.Float64() < mixProbability {
		return &models.LatentBatch{
			Primary:   ns.normalDense(batchSize, latentDim),
			Secondary: ns.normalDense(batchSize, latentDim),
		}
	}
	return &models.LatentBatch{Primary: ns.normalDense(batchSize, latentDim)}
}

// SampleSingle draws a single latent batch regardless of mixing, used for
// the fixed sample latents established at initialization.
func (ns *NoiseSampler) SampleSingle(batchSize, latentDim int) *models.LatentBatch {
	return &models.LatentBatch{Primary: ns.normalDense(batchSize, latentDim)}
}

// Perturbation draws unit-variance image noise scaled by 1/sqrt(H*W), the
// perturbation applied to generator outputs during the path-length pass.
func (ns *NoiseSampler) Perturbation(batchSize, channels, height, width int) *models.ImageBatch {
	scale := 1.0 / math.Sqrt(float64(height*width))
	perturb := models.NewImageBatch(batchSize, channels, height, width)
	rows, cols := perturb.Data.Dims()
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			perturb.Data.Set(r, c, ns.randSource.NormFloat64()*scale)
		}
	}
	return perturb
}

func (ns *NoiseSampler) normalDense(rows, cols int) *mat.Dense {
	m := mat.NewDense(rows, cols, nil)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			m.Set(r, c, ns.randSource.NormFloat64())
		}
	}
	return m
}
