package training

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/inferloop/stylegan/pkg/interfaces"
	"github.com/inferloop/stylegan/pkg/models"
)

// pathLengthDecay is the EMA coefficient for the running mean path length.
const pathLengthDecay = 0.01

// PathRegConfig carries the knobs of one path-length regularization pass.
type PathRegConfig struct {
	BatchSize        int
	LatentSize       int
	Mixing           float64
	BatchShrink      int
	RegularizeWeight float64
	Cadence          int
	Channels         int
	Height           int
	Width            int
}

// PathRegularize runs one path-length regularization pass on a batch shrunk
// by the configured factor (floored at one sample). It perturbs the generator
// output with 1/sqrt(H*W)-scaled noise, measures per-sample path lengths from
// the style-trace gradients, updates the running mean with exponential decay,
// and backpropagates regularizeWeight * cadence * pathLoss into the generator
// parameters. It returns the unweighted path loss, the detached updated mean
// and the raw per-sample path lengths.
func PathRegularize(g interfaces.Generator, sampler *NoiseSampler, cfg PathRegConfig, priorMeanPathLength float64) (float64, float64, *mat.VecDense, error) {
	shrunk := cfg.BatchSize / cfg.BatchShrink
	if shrunk < 1 {
		shrunk = 1
	}

	noise := sampler.Sample(shrunk, cfg.LatentSize, cfg.Mixing)
	perturbation := sampler.Perturbation(shrunk, cfg.Channels, cfg.Height, cfg.Width)

	_, trace, err := g.GenerateWithPathTrace(noise, perturbation)
	if err != nil {
		return 0, 0, nil, err
	}

	// path_length_b = sqrt(mean over layers of sum over style dims of g^2)
	pathLengths := mat.NewVecDense(shrunk, nil)
	for b := 0; b < shrunk; b++ {
		var sq float64
		for l := 0; l < trace.Layers; l++ {
			for s := 0; s < trace.StyleDim; s++ {
				v := trace.Gradients.At(b, l*trace.StyleDim+s)
				sq += v * v
			}
		}
		pathLengths.SetVec(b, math.Sqrt(sq/float64(trace.Layers)))
	}

	var lengthMean float64
	for b := 0; b < shrunk; b++ {
		lengthMean += pathLengths.AtVec(b)
	}
	lengthMean /= float64(shrunk)

	pathMean := priorMeanPathLength + pathLengthDecay*(lengthMean-priorMeanPathLength)

	var pathLoss float64
	for b := 0; b < shrunk; b++ {
		diff := pathLengths.AtVec(b) - pathMean
		pathLoss += diff * diff
	}
	pathLoss /= float64(shrunk)

	// Backward on regularizeWeight * cadence * pathLoss. The mean is
	// detached: it is treated as a constant in the derivative.
	//
	//   d(coeff * pathLoss)/d(g_bls)
	//     = coeff * 2*(pl_b - mean)/batch * g_bls / (layers * pl_b)
	coeff := cfg.RegularizeWeight * float64(cfg.Cadence)
	traceGrad := &models.StyleTrace{
		Gradients: mat.NewDense(shrunk, trace.Layers*trace.StyleDim, nil),
		Layers:    trace.Layers,
		StyleDim:  trace.StyleDim,
	}
	for b := 0; b < shrunk; b++ {
		pl := pathLengths.AtVec(b)
		if pl == 0 {
			continue
		}
		factor := coeff * 2 * (pl - pathMean) / float64(shrunk) / (float64(trace.Layers) * pl)
		for l := 0; l < trace.Layers; l++ {
			for s := 0; s < trace.StyleDim; s++ {
				idx := l*trace.StyleDim + s
				traceGrad.Gradients.Set(b, idx, factor*trace.Gradients.At(b, idx))
			}
		}
	}

	if err := g.BackwardPathTrace(traceGrad); err != nil {
		return 0, 0, nil, err
	}

	return pathLoss, pathMean, pathLengths, nil
}
