package training

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/inferloop/stylegan/pkg/interfaces"
	"github.com/inferloop/stylegan/pkg/models"
)

// DiscriminatorAdversarialLoss computes the non-saturating logistic loss for
// the discriminator, softplus(-realScore).mean + softplus(fakeScore).mean,
// and accumulates its gradient into the discriminator parameters only. The
// fake batch is treated as detached: no gradient reaches the generator.
func DiscriminatorAdversarialLoss(d interfaces.Discriminator, realImages, fakeImages *models.ImageBatch) (float64, error) {
	fakeScores, err := d.Score(fakeImages)
	if err != nil {
		return 0, err
	}
	fakeLoss := meanSoftplus(fakeScores, +1)
	if _, err := d.Backward(softplusMeanGrad(fakeScores, +1), true); err != nil {
		return 0, err
	}

	realScores, err := d.Score(realImages)
	if err != nil {
		return 0, err
	}
	realLoss := meanSoftplus(realScores, -1)
	if _, err := d.Backward(softplusMeanGrad(realScores, -1), true); err != nil {
		return 0, err
	}

	return realLoss + fakeLoss, nil
}

// GeneratorAdversarialLoss generates a fake batch from the noise, computes
// softplus(-fakeScore).mean and accumulates its gradient into the generator
// parameters only, chaining through a frozen discriminator.
func GeneratorAdversarialLoss(g interfaces.Generator, d interfaces.Discriminator, noise *models.LatentBatch) (float64, error) {
	fakeImages, err := g.Generate(noise)
	if err != nil {
		return 0, err
	}

	fakeScores, err := d.Score(fakeImages)
	if err != nil {
		return 0, err
	}
	loss := meanSoftplus(fakeScores, -1)

	imageGrad, err := d.Backward(softplusMeanGrad(fakeScores, -1), false)
	if err != nil {
		return 0, err
	}
	if err := g.Backward(imageGrad); err != nil {
		return 0, err
	}

	return loss, nil
}

// meanSoftplus returns mean_b softplus(sign * score_b) in a numerically
// stable form.
func meanSoftplus(scores *mat.VecDense, sign float64) float64 {
	n := scores.Len()
	var sum float64
	for b := 0; b < n; b++ {
		sum += softplus(sign * scores.AtVec(b))
	}
	return sum / float64(n)
}

// softplusMeanGrad returns d(mean_b softplus(sign * score_b))/d(score), which
// is sign * sigmoid(sign * score_b) / n per sample.
func softplusMeanGrad(scores *mat.VecDense, sign float64) *mat.VecDense {
	n := scores.Len()
	grad := mat.NewVecDense(n, nil)
	for b := 0; b < n; b++ {
		grad.SetVec(b, sign*sigmoid(sign*scores.AtVec(b))/float64(n))
	}
	return grad
}

// softplus computes log(1 + exp(x)) without overflow.
func softplus(x float64) float64 {
	return math.Max(x, 0) + math.Log1p(math.Exp(-math.Abs(x)))
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}
