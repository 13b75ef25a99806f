package networks

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/inferloop/stylegan/pkg/errors"
	"github.com/inferloop/stylegan/pkg/models"
)

// LinearGenerator is the reference generator: a linear style mapping followed
// by a per-layer linear synthesis. It implements the Generator contract with
// exact analytic gradients, including the second-order chain needed by
// path-length regularization. Production architectures plug in through the
// same interface.
type LinearGenerator struct {
	latentSize int
	styleDim   int
	numLayers  int
	channels   int
	height     int
	width      int

	mapping   *models.Parameter   // styleDim x latentSize
	synthesis []*models.Parameter // per layer, pixels x styleDim
	bias      *models.Parameter   // 1 x pixels

	randSource *rand.Rand

	// Forward cache for the matching backward call
	fwd *generatorForward
}

type generatorForward struct {
	noise        *models.LatentBatch
	stylePrimary *mat.Dense // batch x styleDim
	styleSecond  *mat.Dense // nil unless mixed
	crossover    int        // first layer fed from the secondary style
	perturbation *mat.Dense // nil unless a path trace was requested
}

// NewLinearGenerator creates a reference generator with Xavier-initialized
// weights drawn from the seeded random source.
func NewLinearGenerator(latentSize, styleDim, numLayers, channels, height, width int, seed int64) (*LinearGenerator, error) {
	if latentSize <= 0 || styleDim <= 0 || numLayers <= 0 {
		return nil, errors.NewConfigError(errors.CodeInvalidConfig, "generator dimensions must be positive")
	}
	if channels <= 0 || height <= 0 || width <= 0 {
		return nil, errors.NewConfigError(errors.CodeInvalidConfig, "image dimensions must be positive")
	}

	rng := rand.New(rand.NewSource(seed))
	pixels := channels * height * width

	g := &LinearGenerator{
		latentSize: latentSize,
		styleDim:   styleDim,
		numLayers:  numLayers,
		channels:   channels,
		height:     height,
		width:      width,
		randSource: rng,
	}

	g.mapping = models.NewParameter("generator.mapping.weight", xavierDense(styleDim, latentSize, rng))
	g.synthesis = make([]*models.Parameter, numLayers)
	for l := 0; l < numLayers; l++ {
		name := synthesisName(l)
		g.synthesis[l] = models.NewParameter(name, xavierDense(pixels, styleDim, rng))
	}
	g.bias = models.NewParameter("generator.synthesis.bias", mat.NewDense(1, pixels, nil))

	return g, nil
}

// Generate maps the latent batch to images. With a secondary latent present,
// a crossover layer is drawn uniformly and layers at or above it take their
// style from the secondary draw.
func (g *LinearGenerator) Generate(noise *models.LatentBatch) (*models.ImageBatch, error) {
	images, _, err := g.forward(noise, nil)
	return images, err
}

// GenerateWithPathTrace runs a forward pass and additionally returns the
// gradient of (images * perturbation).sum() with respect to the per-layer
// style codes.
func (g *LinearGenerator) GenerateWithPathTrace(noise *models.LatentBatch, perturbation *models.ImageBatch) (*models.ImageBatch, *models.StyleTrace, error) {
	if perturbation.Batch() != noise.Rows() {
		return nil, nil, errors.NewTrainingError(errors.CodeBatchMismatch, "perturbation batch does not match noise batch")
	}
	return g.forward(noise, perturbation)
}

func (g *LinearGenerator) forward(noise *models.LatentBatch, perturbation *models.ImageBatch) (*models.ImageBatch, *models.StyleTrace, error) {
	if noise.Dim() != g.latentSize {
		return nil, nil, errors.NewTrainingError(errors.CodeBatchMismatch, "latent dimension does not match generator configuration")
	}

	batch := noise.Rows()
	pixels := g.channels * g.height * g.width

	// Style mapping: w = z * Wmap^T
	stylePrimary := &mat.Dense{}
	stylePrimary.Mul(noise.Primary, g.mapping.Value.T())

	var styleSecond *mat.Dense
	crossover := g.numLayers
	if noise.Mixed() && g.numLayers > 1 {
		styleSecond = &mat.Dense{}
		styleSecond.Mul(noise.Secondary, g.mapping.Value.T())
		// At least one layer always takes the secondary style
		crossover = 1 + g.randSource.Intn(g.numLayers-1)
	}

	g.fwd = &generatorForward{
		noise:        noise,
		stylePrimary: stylePrimary,
		styleSecond:  styleSecond,
		crossover:    crossover,
	}

	// Synthesis: x = (1/K) sum_l style_l * Wsyn_l^T + bias
	out := mat.NewDense(batch, pixels, nil)
	scale := 1.0 / float64(g.numLayers)
	layerOut := &mat.Dense{}
	for l := 0; l < g.numLayers; l++ {
		layerOut.Mul(g.styleForLayer(l), g.synthesis[l].Value.T())
		for b := 0; b < batch; b++ {
			for p := 0; p < pixels; p++ {
				out.Set(b, p, out.At(b, p)+scale*layerOut.At(b, p))
			}
		}
	}
	for b := 0; b < batch; b++ {
		for p := 0; p < pixels; p++ {
			out.Set(b, p, out.At(b, p)+g.bias.Value.At(0, p))
		}
	}

	images := &models.ImageBatch{Data: out, Channels: g.channels, Height: g.height, Width: g.width}

	if perturbation == nil {
		return images, nil, nil
	}

	// Path trace: d((x*n).sum)/d(style_l) = (1/K) * n * Wsyn_l
	g.fwd.perturbation = perturbation.Data
	trace := mat.NewDense(batch, g.numLayers*g.styleDim, nil)
	layerGrad := &mat.Dense{}
	for l := 0; l < g.numLayers; l++ {
		layerGrad.Mul(perturbation.Data, g.synthesis[l].Value)
		for b := 0; b < batch; b++ {
			for s := 0; s < g.styleDim; s++ {
				trace.Set(b, l*g.styleDim+s, scale*layerGrad.At(b, s))
			}
		}
	}

	return images, &models.StyleTrace{Gradients: trace, Layers: g.numLayers, StyleDim: g.styleDim}, nil
}

// Backward accumulates parameter gradients for the last Generate call given
// the loss gradient with respect to its output images.
func (g *LinearGenerator) Backward(outputGrad *models.ImageBatch) error {
	if g.fwd == nil {
		return errors.NewInternalError("generator backward called without a cached forward pass")
	}
	fwd := g.fwd
	batch := fwd.noise.Rows()
	if outputGrad.Batch() != batch {
		return errors.NewTrainingError(errors.CodeBatchMismatch, "output gradient batch does not match forward batch")
	}

	pixels := g.channels * g.height * g.width
	scale := 1.0 / float64(g.numLayers)
	dX := outputGrad.Data

	// Bias: column sums of dX
	for p := 0; p < pixels; p++ {
		var sum float64
		for b := 0; b < batch; b++ {
			sum += dX.At(b, p)
		}
		g.bias.Grad.Set(0, p, g.bias.Grad.At(0, p)+sum)
	}

	// Synthesis weights and style gradients per layer
	dStylePrimary := mat.NewDense(batch, g.styleDim, nil)
	var dStyleSecond *mat.Dense
	if fwd.styleSecond != nil {
		dStyleSecond = mat.NewDense(batch, g.styleDim, nil)
	}

	dSyn := &mat.Dense{}
	dStyle := &mat.Dense{}
	for l := 0; l < g.numLayers; l++ {
		// dWsyn_l = (1/K) * dX^T * style_l
		dSyn.Mul(dX.T(), g.styleForLayerCached(fwd, l))
		addScaled(g.synthesis[l].Grad, dSyn, scale)

		// dStyle_l = (1/K) * dX * Wsyn_l
		dStyle.Mul(dX, g.synthesis[l].Value)
		if fwd.styleSecond != nil && l >= fwd.crossover {
			addScaled(dStyleSecond, dStyle, scale)
		} else {
			addScaled(dStylePrimary, dStyle, scale)
		}
	}

	// dWmap = dStyle^T * z, per routed draw
	dMap := &mat.Dense{}
	dMap.Mul(dStylePrimary.T(), fwd.noise.Primary)
	addScaled(g.mapping.Grad, dMap, 1)
	if dStyleSecond != nil {
		dMap.Mul(dStyleSecond.T(), fwd.noise.Secondary)
		addScaled(g.mapping.Grad, dMap, 1)
	}

	return nil
}

// BackwardPathTrace accumulates parameter gradients for the last
// GenerateWithPathTrace call given the loss gradient with respect to the
// returned style-trace gradients.
func (g *LinearGenerator) BackwardPathTrace(traceGrad *models.StyleTrace) error {
	if g.fwd == nil || g.fwd.perturbation == nil {
		return errors.NewInternalError("path backward called without a cached path trace")
	}
	batch := g.fwd.noise.Rows()
	if traceGrad.Batch() != batch {
		return errors.NewTrainingError(errors.CodeBatchMismatch, "trace gradient batch does not match forward batch")
	}

	// trace_l = (1/K) * n * Wsyn_l, so dWsyn_l = (1/K) * n^T * upstream_l.
	// The mapping and bias take no gradient from the trace of a linear
	// synthesis.
	scale := 1.0 / float64(g.numLayers)
	upstreamLayer := mat.NewDense(batch, g.styleDim, nil)
	dSyn := &mat.Dense{}
	for l := 0; l < g.numLayers; l++ {
		for b := 0; b < batch; b++ {
			for s := 0; s < g.styleDim; s++ {
				upstreamLayer.Set(b, s, traceGrad.Gradients.At(b, l*g.styleDim+s))
			}
		}
		dSyn.Mul(g.fwd.perturbation.T(), upstreamLayer)
		addScaled(g.synthesis[l].Grad, dSyn, scale)
	}

	return nil
}

// Parameters returns the mapping, synthesis and bias parameters in a stable
// order.
func (g *LinearGenerator) Parameters() []*models.Parameter {
	params := make([]*models.Parameter, 0, g.numLayers+2)
	params = append(params, g.mapping)
	params = append(params, g.synthesis...)
	params = append(params, g.bias)
	return params
}

// NumLayers returns the synthesis layer count.
func (g *LinearGenerator) NumLayers() int {
	return g.numLayers
}

func (g *LinearGenerator) styleForLayer(l int) *mat.Dense {
	return g.styleForLayerCached(g.fwd, l)
}

func (g *LinearGenerator) styleForLayerCached(fwd *generatorForward, l int) *mat.Dense {
	if fwd.styleSecond != nil && l >= fwd.crossover {
		return fwd.styleSecond
	}
	return fwd.stylePrimary
}

func synthesisName(layer int) string {
	return fmt.Sprintf("generator.synthesis.%d.weight", layer)
}

// xavierDense allocates a rows x cols matrix with Xavier-scaled normal
// entries.
func xavierDense(rows, cols int, rng *rand.Rand) *mat.Dense {
	w := mat.NewDense(rows, cols, nil)
	scale := math.Sqrt(2.0 / float64(cols))
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			w.Set(r, c, rng.NormFloat64()*scale)
		}
	}
	return w
}

// addScaled adds scale*src into dst elementwise.
func addScaled(dst, src *mat.Dense, scale float64) {
	rows, cols := dst.Dims()
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			dst.Set(r, c, dst.At(r, c)+scale*src.At(r, c))
		}
	}
}
