package interfaces

import (
	"gonum.org/v1/gonum/mat"

	"github.com/inferloop/stylegan/pkg/models"
)

// Generator defines the contract for a differentiable image generator.
// Forward passes cache the activations needed for the matching backward
// call; each Backward consumes the most recent forward of the same kind.
type Generator interface {
	// Generate maps a latent batch to an image batch. When the latent batch
	// carries a secondary draw the generator blends the two at a random
	// crossover layer (style mixing).
	Generate(noise *models.LatentBatch) (*models.ImageBatch, error)

	// GenerateWithPathTrace additionally returns the gradient of
	// (images * perturbation).sum() with respect to the per-layer style
	// codes, for path-length regularization.
	GenerateWithPathTrace(noise *models.LatentBatch, perturbation *models.ImageBatch) (*models.ImageBatch, *models.StyleTrace, error)

	// Backward accumulates parameter gradients given the loss gradient with
	// respect to the images produced by the last Generate call.
	Backward(outputGrad *models.ImageBatch) error

	// BackwardPathTrace accumulates parameter gradients given the loss
	// gradient with respect to the style-trace gradients returned by the
	// last GenerateWithPathTrace call.
	BackwardPathTrace(traceGrad *models.StyleTrace) error

	// Parameters returns the trainable parameters. The slice and its order
	// are stable across calls.
	Parameters() []*models.Parameter
}

// Discriminator defines the contract for a differentiable critic scoring
// images as real or fake. Scores are per-sample raw logits.
type Discriminator interface {
	// Score computes one scalar score per image.
	Score(images *models.ImageBatch) (*mat.VecDense, error)

	// Backward propagates the loss gradient with respect to the scores of
	// the last Score call. It returns the gradient with respect to the
	// input images; parameter gradients are accumulated only when
	// intoParams is true (the generator step chains through a frozen
	// discriminator).
	Backward(scoreGrad *mat.VecDense, intoParams bool) (*models.ImageBatch, error)

	// ScoreWithInputGradients computes scores together with the per-sample
	// gradient of the summed score with respect to the input images, for
	// the R1 gradient penalty.
	ScoreWithInputGradients(images *models.ImageBatch) (*mat.VecDense, *models.ImageBatch, error)

	// BackwardInputGradientPenalty accumulates parameter gradients given the
	// loss gradient with respect to the input gradients returned by the last
	// ScoreWithInputGradients call. This is the second-order chain required
	// by gradient penalties.
	BackwardInputGradientPenalty(upstream *models.ImageBatch) error

	// Parameters returns the trainable parameters. The slice and its order
	// are stable across calls.
	Parameters() []*models.Parameter
}

// DataSource provides a finite sequence of real image batches. Length is
// known up front so epoch averages can be computed.
type DataSource interface {
	// Len returns the number of batches available this epoch.
	Len() int

	// Batch returns the i-th image batch, 0 <= i < Len().
	Batch(i int) (*models.ImageBatch, error)
}
