package training

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/inferloop/stylegan/internal/optimizer"
	"github.com/inferloop/stylegan/pkg/errors"
	"github.com/inferloop/stylegan/pkg/interfaces"
	"github.com/inferloop/stylegan/pkg/models"
)

// TrainingState holds the mutable scalars that persist across batches. The
// running mean path length is updated only inside a path-regularization pass
// and is never reset mid-training; the last regularization losses are
// reported again on batches where the cadence skips recomputation.
type TrainingState struct {
	MeanPathLength float64
	PathLengths    *mat.VecDense // per-sample lengths from the last path pass
	R1Loss         float64
	PathLoss       float64
	Batches        int // total optimized batches
}

// PathLengthMean returns the mean of the last recorded path lengths, zero
// before the first path pass.
func (s *TrainingState) PathLengthMean() float64 {
	if s.PathLengths == nil || s.PathLengths.Len() == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < s.PathLengths.Len(); i++ {
		sum += s.PathLengths.AtVec(i)
	}
	return sum / float64(s.PathLengths.Len())
}

// Trainer orchestrates the alternating optimization of the generator and
// discriminator, including the conditional regularization passes.
type Trainer struct {
	config  *TrainerConfig
	logger  *logrus.Logger
	runID   string
	sampler *NoiseSampler

	generator     interfaces.Generator
	discriminator interfaces.Discriminator
	optimizerG    *optimizer.Adam
	optimizerD    *optimizer.Adam

	state *TrainingState
}

// NewTrainer creates a trainer over the given networks. The Adam
// hyperparameters are rescaled by regEvery/(regEvery+1) per network so lazy
// regularization keeps the effective optimization schedule unchanged.
func NewTrainer(config *TrainerConfig, g interfaces.Generator, d interfaces.Discriminator, logger *logrus.Logger) (*Trainer, error) {
	if config == nil {
		config = DefaultTrainerConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.New()
	}

	gRegRatio := float64(config.GRegEvery) / float64(config.GRegEvery+1)
	dRegRatio := float64(config.DRegEvery) / float64(config.DRegEvery+1)

	t := &Trainer{
		config:        config,
		logger:        logger,
		runID:         uuid.New().String(),
		sampler:       NewNoiseSampler(config.Seed),
		generator:     g,
		discriminator: d,
		optimizerG:    optimizer.NewAdam(config.LearningRate*gRegRatio, math.Pow(0, gRegRatio), math.Pow(0.99, gRegRatio)),
		optimizerD:    optimizer.NewAdam(config.LearningRate*dRegRatio, math.Pow(0, dRegRatio), math.Pow(0.99, dRegRatio)),
		state:         &TrainingState{},
	}

	logger.WithFields(logrus.Fields{
		"run_id":      t.runID,
		"batch_size":  config.BatchSize,
		"latent_size": config.LatentSize,
		"g_reg_every": config.GRegEvery,
		"d_reg_every": config.DRegEvery,
		"mixing":      config.Mixing,
	}).Info("Trainer initialized")

	return t, nil
}

// Optimize runs one strictly ordered per-batch optimization pass and returns
// the per-batch loss report. A NaN or Inf loss aborts training: continuing
// would optimize a corrupted objective.
func (t *Trainer) Optimize(batchIdx int, realImages *models.ImageBatch) (models.LossReport, error) {
	var report models.LossReport

	// Discriminator adversarial step
	models.ZeroGrads(t.discriminator.Parameters())
	noise := t.sampler.Sample(t.config.BatchSize, t.config.LatentSize, t.config.Mixing)
	fakeImages, err := t.generator.Generate(noise)
	if err != nil {
		return report, err
	}
	dAdv, err := DiscriminatorAdversarialLoss(t.discriminator, realImages, fakeImages)
	if err != nil {
		return report, err
	}
	t.optimizerD.Step(t.discriminator.Parameters())

	// Discriminator R1 step, on cadence
	if batchIdx%t.config.DRegEvery == 0 {
		models.ZeroGrads(t.discriminator.Parameters())
		r1, err := R1Penalty(t.discriminator, realImages, t.config.R1Weight, t.config.DRegEvery)
		if err != nil {
			return report, err
		}
		t.optimizerD.Step(t.discriminator.Parameters())
		t.state.R1Loss = r1
	}

	// Generator adversarial step
	models.ZeroGrads(t.generator.Parameters())
	noise = t.sampler.Sample(t.config.BatchSize, t.config.LatentSize, t.config.Mixing)
	gAdv, err := GeneratorAdversarialLoss(t.generator, t.discriminator, noise)
	if err != nil {
		return report, err
	}
	t.optimizerG.Step(t.generator.Parameters())

	// Generator path-length step, on cadence
	if batchIdx%t.config.GRegEvery == 0 {
		models.ZeroGrads(t.generator.Parameters())
		pathLoss, pathMean, pathLengths, err := PathRegularize(t.generator, t.sampler, PathRegConfig{
			BatchSize:        t.config.BatchSize,
			LatentSize:       t.config.LatentSize,
			Mixing:           t.config.Mixing,
			BatchShrink:      t.config.PathBatchShrink,
			RegularizeWeight: t.config.PathRegularizeWeight,
			Cadence:          t.config.GRegEvery,
			Channels:         realImages.Channels,
			Height:           realImages.Height,
			Width:            realImages.Width,
		}, t.state.MeanPathLength)
		if err != nil {
			return report, err
		}
		t.optimizerG.Step(t.generator.Parameters())
		t.state.PathLoss = pathLoss
		t.state.MeanPathLength = pathMean
		t.state.PathLengths = pathLengths
	}

	t.state.Batches++

	report = models.LossReport{
		DAdv:           dAdv,
		R1:             t.state.R1Loss,
		GAdv:           gAdv,
		Path:           t.state.PathLoss,
		PathLengthMean: t.state.PathLengthMean(),
		MeanPathLength: t.state.MeanPathLength,
	}

	if !report.Finite() {
		return report, errors.WrapError(errors.ErrDiverged, errors.ErrorTypeTraining, errors.CodeDiverged, "loss is NaN or Inf").
			WithContext("batch", batchIdx)
	}

	return report, nil
}

// Train runs one epoch over the data source and returns the elementwise
// average loss report. Steps inside the epoch are strictly sequential; the
// context is consulted only at the epoch boundary, the natural suspension
// point.
func (t *Trainer) Train(ctx context.Context, source interfaces.DataSource) (models.LossReport, error) {
	var running models.LossReport

	if err := ctx.Err(); err != nil {
		return running, err
	}

	n := source.Len()
	if n == 0 {
		return running, errors.WrapError(errors.ErrEmptyDataSource, errors.ErrorTypeData, errors.CodeEmptyData, "cannot average over zero batches")
	}

	windowStart := time.Now()
	for batchIdx := 0; batchIdx < n; batchIdx++ {
		realImages, err := source.Batch(batchIdx)
		if err != nil {
			return running, errors.WrapError(err, errors.ErrorTypeData, errors.CodeTrainingFailed, "failed to fetch batch")
		}

		report, err := t.Optimize(batchIdx, realImages)
		if err != nil {
			return running, err
		}
		running.Add(report)

		if batchIdx%100 == 0 {
			t.logger.WithFields(logrus.Fields{
				"run_id":       t.runID,
				"batch":        batchIdx,
				"elapsed_time": time.Since(windowStart).Seconds(),
			}).Info("Training progress")
			windowStart = time.Now()
		}
	}

	running.Scale(1 / float64(n))
	return running, nil
}

// State returns the mutable training state.
func (t *Trainer) State() *TrainingState {
	return t.state
}

// Config returns the trainer configuration.
func (t *Trainer) Config() *TrainerConfig {
	return t.config
}

// RunID returns the unique identifier of this training run.
func (t *Trainer) RunID() string {
	return t.runID
}
