package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/stylegan/pkg/errors"
	"github.com/inferloop/stylegan/pkg/interfaces"
	"github.com/inferloop/stylegan/pkg/models"
)

// Network labels used in checkpoint artifact names.
const (
	GeneratorLabel     = "Generator"
	DiscriminatorLabel = "Discriminator"
)

// Manager persists and restores the generator and discriminator parameter
// sets at epoch boundaries, and renders sample grids from a fixed latent
// batch so grids stay visually comparable across epochs.
type Manager struct {
	logDir        string
	logger        *logrus.Logger
	generator     interfaces.Generator
	discriminator interfaces.Discriminator
	sampleLatents *models.LatentBatch
}

// artifact is the on-disk checkpoint payload for one network.
type artifact struct {
	Network   string         `json:"network"`
	Epoch     string         `json:"epoch"`
	CreatedAt time.Time      `json:"created_at"`
	Weights   []weightTensor `json:"weights"`
}

// weightTensor is one named parameter matrix in row-major order.
type weightTensor struct {
	Name string    `json:"name"`
	Rows int       `json:"rows"`
	Cols int       `json:"cols"`
	Data []float64 `json:"data"`
}

// NewManager creates a checkpoint manager. The sample latents are fixed for
// the manager's lifetime.
func NewManager(logDir string, g interfaces.Generator, d interfaces.Discriminator, sampleLatents *models.LatentBatch, logger *logrus.Logger) (*Manager, error) {
	if logDir == "" {
		return nil, errors.NewConfigError(errors.CodeInvalidConfig, "log directory is required")
	}
	if logger == nil {
		logger = logrus.New()
	}
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeCheckpoint, errors.CodeWriteFailed,
			fmt.Sprintf("failed to create log directory: %s", logDir))
	}

	return &Manager{
		logDir:        logDir,
		logger:        logger,
		generator:     g,
		discriminator: d,
		sampleLatents: sampleLatents,
	}, nil
}

// Save persists both parameter sets to artifacts keyed by network label and
// epoch label.
func (m *Manager) Save(epochLabel string) error {
	if err := m.saveNetwork(GeneratorLabel, m.generator.Parameters(), epochLabel); err != nil {
		return err
	}
	if err := m.saveNetwork(DiscriminatorLabel, m.discriminator.Parameters(), epochLabel); err != nil {
		return err
	}

	m.logger.WithFields(logrus.Fields{
		"epoch":   epochLabel,
		"log_dir": m.logDir,
	}).Info("Checkpoint saved")

	return nil
}

// Load restores both parameter sets from artifacts keyed the same way as
// Save. A missing artifact for the given label is a NotFound failure.
func (m *Manager) Load(epochLabel string) error {
	if err := m.loadNetwork(GeneratorLabel, m.generator.Parameters(), epochLabel); err != nil {
		return err
	}
	if err := m.loadNetwork(DiscriminatorLabel, m.discriminator.Parameters(), epochLabel); err != nil {
		return err
	}

	m.logger.WithFields(logrus.Fields{
		"epoch":   epochLabel,
		"log_dir": m.logDir,
	}).Info("Checkpoint loaded")

	return nil
}

// GenerateSamples runs the generator on the fixed latent batch, arranges the
// outputs into a square-ish grid and writes `{epochLabel}.png` under the log
// directory.
func (m *Manager) GenerateSamples(epochLabel string) error {
	images, err := m.generator.Generate(m.sampleLatents)
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypeCheckpoint, errors.CodeTrainingFailed, "sample generation failed")
	}

	grid := renderGrid(images)
	path := filepath.Join(m.logDir, fmt.Sprintf("%s.png", epochLabel))
	if err := writePNG(path, grid); err != nil {
		return errors.WrapError(err, errors.ErrorTypeCheckpoint, errors.CodeWriteFailed,
			fmt.Sprintf("failed to write sample grid: %s", path))
	}

	m.logger.WithFields(logrus.Fields{
		"epoch": epochLabel,
		"path":  path,
	}).Info("Sample grid written")

	return nil
}

// ArtifactPath returns the checkpoint file path for a network and epoch
// label.
func (m *Manager) ArtifactPath(networkLabel, epochLabel string) string {
	return filepath.Join(m.logDir, fmt.Sprintf("%s_net_%s.json", networkLabel, epochLabel))
}

func (m *Manager) saveNetwork(networkLabel string, params []*models.Parameter, epochLabel string) error {
	art := artifact{
		Network:   networkLabel,
		Epoch:     epochLabel,
		CreatedAt: time.Now().UTC(),
		Weights:   make([]weightTensor, 0, len(params)),
	}
	for _, p := range params {
		rows, cols := p.Value.Dims()
		data := make([]float64, rows*cols)
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				data[r*cols+c] = p.Value.At(r, c)
			}
		}
		art.Weights = append(art.Weights, weightTensor{Name: p.Name, Rows: rows, Cols: cols, Data: data})
	}

	payload, err := json.Marshal(art)
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypeCheckpoint, errors.CodeWriteFailed, "failed to encode checkpoint")
	}

	path := m.ArtifactPath(networkLabel, epochLabel)
	if err := os.WriteFile(path, payload, 0644); err != nil {
		return errors.WrapError(err, errors.ErrorTypeCheckpoint, errors.CodeWriteFailed,
			fmt.Sprintf("failed to write checkpoint: %s", path))
	}

	return nil
}

func (m *Manager) loadNetwork(networkLabel string, params []*models.Parameter, epochLabel string) error {
	path := m.ArtifactPath(networkLabel, epochLabel)

	payload, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.WrapError(errors.ErrCheckpointNotFound, errors.ErrorTypeCheckpoint, errors.CodeCheckpointNotFound,
				fmt.Sprintf("no checkpoint for %s at epoch %s", networkLabel, epochLabel))
		}
		return errors.WrapError(err, errors.ErrorTypeCheckpoint, errors.CodeCheckpointCorrupt,
			fmt.Sprintf("failed to read checkpoint: %s", path))
	}

	var art artifact
	if err := json.Unmarshal(payload, &art); err != nil {
		return errors.WrapError(errors.ErrCheckpointCorrupt, errors.ErrorTypeCheckpoint, errors.CodeCheckpointCorrupt,
			fmt.Sprintf("failed to decode checkpoint: %s", path))
	}

	byName := make(map[string]weightTensor, len(art.Weights))
	for _, w := range art.Weights {
		byName[w.Name] = w
	}

	for _, p := range params {
		w, ok := byName[p.Name]
		if !ok {
			return errors.WrapError(errors.ErrShapeMismatch, errors.ErrorTypeCheckpoint, errors.CodeShapeMismatch,
				fmt.Sprintf("checkpoint is missing parameter %s", p.Name))
		}
		rows, cols := p.Value.Dims()
		if w.Rows != rows || w.Cols != cols || len(w.Data) != rows*cols {
			return errors.WrapError(errors.ErrShapeMismatch, errors.ErrorTypeCheckpoint, errors.CodeShapeMismatch,
				fmt.Sprintf("parameter %s has shape %dx%d, checkpoint holds %dx%d", p.Name, rows, cols, w.Rows, w.Cols))
		}
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				p.Value.Set(r, c, w.Data[r*cols+c])
			}
		}
	}

	return nil
}
