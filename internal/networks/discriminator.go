package networks

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/inferloop/stylegan/pkg/errors"
	"github.com/inferloop/stylegan/pkg/models"
)

// LinearDiscriminator is the reference critic: a single linear scoring head
// over flattened pixels. Its analytic gradients cover both the adversarial
// chain and the second-order chain of the R1 gradient penalty.
type LinearDiscriminator struct {
	channels int
	height   int
	width    int

	weight *models.Parameter // 1 x pixels
	bias   *models.Parameter // 1 x 1

	// Forward cache for the matching backward call
	lastInput *models.ImageBatch
}

// NewLinearDiscriminator creates a reference discriminator with
// Xavier-initialized weights drawn from the seeded random source.
func NewLinearDiscriminator(channels, height, width int, seed int64) (*LinearDiscriminator, error) {
	if channels <= 0 || height <= 0 || width <= 0 {
		return nil, errors.NewConfigError(errors.CodeInvalidConfig, "image dimensions must be positive")
	}

	rng := rand.New(rand.NewSource(seed))
	pixels := channels * height * width

	return &LinearDiscriminator{
		channels: channels,
		height:   height,
		width:    width,
		weight:   models.NewParameter("discriminator.weight", xavierDense(1, pixels, rng)),
		bias:     models.NewParameter("discriminator.bias", mat.NewDense(1, 1, nil)),
	}, nil
}

// Score computes one raw logit per image.
func (d *LinearDiscriminator) Score(images *models.ImageBatch) (*mat.VecDense, error) {
	if images.PixelCount() != d.pixels() {
		return nil, errors.NewTrainingError(errors.CodeBatchMismatch, "image dimensions do not match discriminator configuration")
	}

	batch := images.Batch()
	scores := mat.NewVecDense(batch, nil)
	for b := 0; b < batch; b++ {
		var s float64
		for p := 0; p < d.pixels(); p++ {
			s += d.weight.Value.At(0, p) * images.Data.At(b, p)
		}
		scores.SetVec(b, s+d.bias.Value.At(0, 0))
	}

	d.lastInput = images
	return scores, nil
}

// Backward propagates the loss gradient with respect to the scores of the
// last Score call, returning the gradient with respect to the inputs.
// Parameter gradients accumulate only when intoParams is true.
func (d *LinearDiscriminator) Backward(scoreGrad *mat.VecDense, intoParams bool) (*models.ImageBatch, error) {
	if d.lastInput == nil {
		return nil, errors.NewInternalError("discriminator backward called without a cached forward pass")
	}
	batch := d.lastInput.Batch()
	if scoreGrad.Len() != batch {
		return nil, errors.NewTrainingError(errors.CodeBatchMismatch, "score gradient length does not match forward batch")
	}

	pixels := d.pixels()
	inputGrad := models.NewImageBatch(batch, d.channels, d.height, d.width)
	for b := 0; b < batch; b++ {
		ds := scoreGrad.AtVec(b)
		for p := 0; p < pixels; p++ {
			inputGrad.Data.Set(b, p, ds*d.weight.Value.At(0, p))
		}
	}

	if intoParams {
		for p := 0; p < pixels; p++ {
			var sum float64
			for b := 0; b < batch; b++ {
				sum += scoreGrad.AtVec(b) * d.lastInput.Data.At(b, p)
			}
			d.weight.Grad.Set(0, p, d.weight.Grad.At(0, p)+sum)
		}
		var bsum float64
		for b := 0; b < batch; b++ {
			bsum += scoreGrad.AtVec(b)
		}
		d.bias.Grad.Set(0, 0, d.bias.Grad.At(0, 0)+bsum)
	}

	return inputGrad, nil
}

// ScoreWithInputGradients computes scores together with the per-sample
// gradient of the summed score with respect to the inputs.
func (d *LinearDiscriminator) ScoreWithInputGradients(images *models.ImageBatch) (*mat.VecDense, *models.ImageBatch, error) {
	scores, err := d.Score(images)
	if err != nil {
		return nil, nil, err
	}

	// For a linear head the input gradient of every sample is the weight
	// row itself.
	batch := images.Batch()
	inputGrads := models.NewImageBatch(batch, d.channels, d.height, d.width)
	for b := 0; b < batch; b++ {
		for p := 0; p < d.pixels(); p++ {
			inputGrads.Data.Set(b, p, d.weight.Value.At(0, p))
		}
	}

	return scores, inputGrads, nil
}

// BackwardInputGradientPenalty accumulates parameter gradients given the loss
// gradient with respect to the input gradients of the last
// ScoreWithInputGradients call.
func (d *LinearDiscriminator) BackwardInputGradientPenalty(upstream *models.ImageBatch) error {
	if d.lastInput == nil {
		return errors.NewInternalError("penalty backward called without a cached forward pass")
	}
	if upstream.PixelCount() != d.pixels() {
		return errors.NewTrainingError(errors.CodeBatchMismatch, "penalty gradient dimensions do not match discriminator configuration")
	}

	// d(inputGrad_bp)/d(weight_p) = 1, so the weight gradient is the column
	// sum of the upstream gradient. The bias takes nothing.
	batch := upstream.Batch()
	for p := 0; p < d.pixels(); p++ {
		var sum float64
		for b := 0; b < batch; b++ {
			sum += upstream.Data.At(b, p)
		}
		d.weight.Grad.Set(0, p, d.weight.Grad.At(0, p)+sum)
	}

	return nil
}

// Parameters returns the weight and bias parameters in a stable order.
func (d *LinearDiscriminator) Parameters() []*models.Parameter {
	return []*models.Parameter{d.weight, d.bias}
}

func (d *LinearDiscriminator) pixels() int {
	return d.channels * d.height * d.width
}
