package training

import (
	"github.com/inferloop/stylegan/pkg/interfaces"
	"github.com/inferloop/stylegan/pkg/models"
)

// R1Penalty computes the gradient penalty on the discriminator: the squared
// L2 norm of the score gradient with respect to the real images, summed per
// sample and averaged over the batch. The backward pass runs on
// weight/2 * r1 * cadence; scaling by the cadence interval keeps the
// effective per-batch contribution constant when the penalty fires only once
// every cadence batches. The returned scalar is the unweighted r1 loss.
func R1Penalty(d interfaces.Discriminator, realImages *models.ImageBatch, weight float64, cadence int) (float64, error) {
	_, inputGrads, err := d.ScoreWithInputGradients(realImages)
	if err != nil {
		return 0, err
	}

	batch := inputGrads.Batch()
	pixels := inputGrads.PixelCount()

	var r1 float64
	for b := 0; b < batch; b++ {
		var perSample float64
		for p := 0; p < pixels; p++ {
			g := inputGrads.Data.At(b, p)
			perSample += g * g
		}
		r1 += perSample
	}
	r1 /= float64(batch)

	// d(coeff * r1)/d(inputGrad_bp) = coeff * 2 * inputGrad_bp / batch
	coeff := weight / 2 * float64(cadence)
	upstream := models.NewImageBatch(batch, inputGrads.Channels, inputGrads.Height, inputGrads.Width)
	for b := 0; b < batch; b++ {
		for p := 0; p < pixels; p++ {
			upstream.Data.Set(b, p, coeff*2*inputGrads.Data.At(b, p)/float64(batch))
		}
	}

	if err := d.BackwardInputGradientPenalty(upstream); err != nil {
		return 0, err
	}

	return r1, nil
}
