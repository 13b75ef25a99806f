package training

import (
	"math"
	"math/rand"

	"github.com/inferloop/stylegan/pkg/errors"
	"github.com/inferloop/stylegan/pkg/models"
)

// SliceDataSource serves a fixed slice of image batches, the simplest
// finite data source.
type SliceDataSource struct {
	batches []*models.ImageBatch
}

// NewSliceDataSource wraps pre-built batches.
func NewSliceDataSource(batches []*models.ImageBatch) *SliceDataSource {
	return &SliceDataSource{batches: batches}
}

// Len returns the number of batches.
func (s *SliceDataSource) Len() int {
	return len(s.batches)
}

// Batch returns the i-th batch.
func (s *SliceDataSource) Batch(i int) (*models.ImageBatch, error) {
	if i < 0 || i >= len(s.batches) {
		return nil, errors.NewDataError(errors.CodeOutOfRange, "batch index out of range")
	}
	return s.batches[i], nil
}

// SyntheticImageSource produces seeded pseudo-random image batches with
// values in [-1, 1], used for smoke training runs and tests where no real
// dataset is wired in.
type SyntheticImageSource struct {
	numBatches int
	batchSize  int
	channels   int
	height     int
	width      int
	randSource *rand.Rand
	cache      []*models.ImageBatch
}

// NewSyntheticImageSource creates a source of numBatches seeded batches.
func NewSyntheticImageSource(numBatches, batchSize, channels, height, width int, seed int64) *SyntheticImageSource {
	return &SyntheticImageSource{
		numBatches: numBatches,
		batchSize:  batchSize,
		channels:   channels,
		height:     height,
		width:      width,
		randSource: rand.New(rand.NewSource(seed)),
		cache:      make([]*models.ImageBatch, numBatches),
	}
}

// Len returns the number of batches per epoch.
func (s *SyntheticImageSource) Len() int {
	return s.numBatches
}

// Batch returns the i-th batch, generating and caching it on first access so
// repeated epochs see identical data.
func (s *SyntheticImageSource) Batch(i int) (*models.ImageBatch, error) {
	if i < 0 || i >= s.numBatches {
		return nil, errors.NewDataError(errors.CodeOutOfRange, "batch index out of range")
	}
	if s.cache[i] == nil {
		batch := models.NewImageBatch(s.batchSize, s.channels, s.height, s.width)
		rows, cols := batch.Data.Dims()
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				batch.Data.Set(r, c, math.Tanh(s.randSource.NormFloat64()))
			}
		}
		s.cache[i] = batch
	}
	return s.cache[i], nil
}
