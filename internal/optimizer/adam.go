package optimizer

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/inferloop/stylegan/pkg/models"
)

// Adam implements the Adam optimization algorithm over named parameters.
// Moment estimates are keyed by parameter name so the same optimizer can be
// handed the parameter slice of exactly one network across its lifetime.
type Adam struct {
	learningRate float64
	beta1        float64
	beta2        float64
	epsilon      float64
	t            int // time step
	m            map[string]*mat.Dense // first moment estimate
	v            map[string]*mat.Dense // second moment estimate
}

// NewAdam creates a new Adam optimizer with explicit decay rates.
func NewAdam(learningRate, beta1, beta2 float64) *Adam {
	return &Adam{
		learningRate: learningRate,
		beta1:        beta1,
		beta2:        beta2,
		epsilon:      1e-8,
		m:            make(map[string]*mat.Dense),
		v:            make(map[string]*mat.Dense),
	}
}

// Step applies one Adam update to every parameter using its accumulated
// gradient. Gradient buffers are left untouched; callers zero them before
// the next backward pass.
func (opt *Adam) Step(params []*models.Parameter) {
	opt.t++

	beta1Correction := 1 - math.Pow(opt.beta1, float64(opt.t))
	beta2Correction := 1 - math.Pow(opt.beta2, float64(opt.t))

	for _, p := range params {
		rows, cols := p.Value.Dims()

		m, ok := opt.m[p.Name]
		if !ok {
			m = mat.NewDense(rows, cols, nil)
			opt.m[p.Name] = m
		}
		v, ok := opt.v[p.Name]
		if !ok {
			v = mat.NewDense(rows, cols, nil)
			opt.v[p.Name] = v
		}

		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				g := p.Grad.At(r, c)

				// Update biased moment estimates
				mrc := opt.beta1*m.At(r, c) + (1-opt.beta1)*g
				vrc := opt.beta2*v.At(r, c) + (1-opt.beta2)*g*g
				m.Set(r, c, mrc)
				v.Set(r, c, vrc)

				// Bias-corrected update
				mHat := mrc / beta1Correction
				vHat := vrc / beta2Correction
				update := opt.learningRate * mHat / (math.Sqrt(vHat) + opt.epsilon)
				p.Value.Set(r, c, p.Value.At(r, c)-update)
			}
		}
	}
}

// GetLearningRate returns the current learning rate.
func (opt *Adam) GetLearningRate() float64 {
	return opt.learningRate
}

// SetLearningRate sets the learning rate.
func (opt *Adam) SetLearningRate(lr float64) {
	opt.learningRate = lr
}

// GetTimeStep returns the current time step.
func (opt *Adam) GetTimeStep() int {
	return opt.t
}

// Reset clears the optimizer state.
func (opt *Adam) Reset() {
	opt.t = 0
	opt.m = make(map[string]*mat.Dense)
	opt.v = make(map[string]*mat.Dense)
}
