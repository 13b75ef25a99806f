package training

import (
	"github.com/inferloop/stylegan/pkg/errors"
)

// TrainerConfig contains the full configuration surface of the trainer.
type TrainerConfig struct {
	// Artifacts
	LogDir string `json:"log_dir" yaml:"log_dir"`

	// Data and sampling
	BatchSize   int `json:"batch_size" yaml:"batch_size"`
	SampleCount int `json:"sample_count" yaml:"sample_count"` // fixed sample grid size
	ImageSize   int `json:"image_size" yaml:"image_size"`     // square resolution
	Channels    int `json:"channels" yaml:"channels"`
	LatentSize  int `json:"latent_size" yaml:"latent_size"`
	StyleLayers int `json:"style_layers" yaml:"style_layers"`

	// Optimization
	LearningRate float64 `json:"learning_rate" yaml:"learning_rate"`

	// Regularization
	R1Weight             float64 `json:"r1_weight" yaml:"r1_weight"`
	PathRegularizeWeight float64 `json:"path_regularize_weight" yaml:"path_regularize_weight"`
	PathBatchShrink      int     `json:"path_batch_shrink" yaml:"path_batch_shrink"`
	GRegEvery            int     `json:"g_reg_every" yaml:"g_reg_every"` // generator cadence
	DRegEvery            int     `json:"d_reg_every" yaml:"d_reg_every"` // discriminator cadence
	Mixing               float64 `json:"mixing" yaml:"mixing"`

	// Reproducibility
	Seed int64 `json:"seed" yaml:"seed"`
}

// DefaultTrainerConfig returns the standard StyleGAN2 training
// hyperparameters.
func DefaultTrainerConfig() *TrainerConfig {
	return &TrainerConfig{
		LogDir:               "logs",
		BatchSize:            16,
		SampleCount:          16,
		ImageSize:            64,
		Channels:             3,
		LatentSize:           512,
		StyleLayers:          8,
		LearningRate:         0.001,
		R1Weight:             10,
		PathRegularizeWeight: 2,
		PathBatchShrink:      2,
		GRegEvery:            4,
		DRegEvery:            16,
		Mixing:               0.9,
		Seed:                 42,
	}
}

// Validate checks the configuration; failures are fatal at construction.
func (c *TrainerConfig) Validate() error {
	if c.BatchSize <= 0 {
		return errors.WrapError(errors.ErrInvalidBatchSize, errors.ErrorTypeConfiguration, errors.CodeInvalidBatchSize, "batch_size must be positive")
	}
	if c.GRegEvery <= 0 || c.DRegEvery <= 0 {
		return errors.WrapError(errors.ErrInvalidCadence, errors.ErrorTypeConfiguration, errors.CodeInvalidCadence, "regularization cadences must be positive")
	}
	if c.LatentSize <= 0 {
		return errors.WrapError(errors.ErrInvalidLatentSize, errors.ErrorTypeConfiguration, errors.CodeInvalidConfig, "latent_size must be positive")
	}
	if c.StyleLayers <= 0 {
		return errors.NewConfigError(errors.CodeInvalidConfig, "style_layers must be positive")
	}
	if c.PathBatchShrink <= 0 {
		return errors.WrapError(errors.ErrInvalidShrink, errors.ErrorTypeConfiguration, errors.CodeOutOfRange, "path_batch_shrink must be positive")
	}
	if c.Mixing < 0 || c.Mixing > 1 {
		return errors.WrapError(errors.ErrInvalidMixing, errors.ErrorTypeConfiguration, errors.CodeOutOfRange, "mixing must be between 0 and 1")
	}
	if c.SampleCount <= 0 {
		return errors.WrapError(errors.ErrInvalidSampleCount, errors.ErrorTypeConfiguration, errors.CodeOutOfRange, "sample_count must be positive")
	}
	if c.ImageSize <= 0 || c.Channels <= 0 {
		return errors.NewConfigError(errors.CodeInvalidConfig, "image_size and channels must be positive")
	}
	if c.LearningRate <= 0 {
		return errors.NewConfigError(errors.CodeOutOfRange, "learning_rate must be positive")
	}
	return nil
}
