package models

import (
	"gonum.org/v1/gonum/mat"
)

// LatentBatch holds one or two batches of latent vectors used as generator
// input. Secondary is non-nil when style mixing is active, in which case the
// generator blends the two draws at a random crossover layer.
type LatentBatch struct {
	Primary   *mat.Dense
	Secondary *mat.Dense
}

// Mixed reports whether the batch carries a second latent draw.
func (lb *LatentBatch) Mixed() bool {
	return lb.Secondary != nil
}

// Rows returns the batch size.
func (lb *LatentBatch) Rows() int {
	r, _ := lb.Primary.Dims()
	return r
}

// Dim returns the latent dimension.
func (lb *LatentBatch) Dim() int {
	_, c := lb.Primary.Dims()
	return c
}

// ImageBatch holds a batch of fixed-resolution multi-channel images with
// pixel values nominally in [-1, 1]. Rows index samples, columns index
// flattened channel-major pixels.
type ImageBatch struct {
	Data     *mat.Dense
	Channels int
	Height   int
	Width    int
}

// NewImageBatch allocates a zero-valued image batch.
func NewImageBatch(batchSize, channels, height, width int) *ImageBatch {
	return &ImageBatch{
		Data:     mat.NewDense(batchSize, channels*height*width, nil),
		Channels: channels,
		Height:   height,
		Width:    width,
	}
}

// Batch returns the number of images in the batch.
func (ib *ImageBatch) Batch() int {
	r, _ := ib.Data.Dims()
	return r
}

// PixelCount returns the flattened per-image element count.
func (ib *ImageBatch) PixelCount() int {
	return ib.Channels * ib.Height * ib.Width
}

// SameShape reports whether two batches share resolution and channel count.
func (ib *ImageBatch) SameShape(other *ImageBatch) bool {
	return ib.Channels == other.Channels && ib.Height == other.Height && ib.Width == other.Width
}

// StyleTrace carries the gradient of a perturbed generator output sum with
// respect to the per-layer style codes, as returned by the generator's
// path-trace mode. Gradients rows index samples; columns are layer-major
// flattened style dimensions (Layers x StyleDim).
type StyleTrace struct {
	Gradients *mat.Dense
	Layers    int
	StyleDim  int
}

// Batch returns the number of samples in the trace.
func (st *StyleTrace) Batch() int {
	r, _ := st.Gradients.Dims()
	return r
}
