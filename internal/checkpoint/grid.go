package checkpoint

import (
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"github.com/inferloop/stylegan/pkg/models"
)

// renderGrid lays a batch of images out in a grid with int(sqrt(n)) images
// per row, mapping pixel values from [-1, 1] to the displayable [0, 255]
// range. Single-channel batches render as grayscale; the first three
// channels render as RGB otherwise.
func renderGrid(images *models.ImageBatch) *image.RGBA {
	n := images.Batch()
	perRow := int(math.Sqrt(float64(n)))
	if perRow < 1 {
		perRow = 1
	}
	gridRows := (n + perRow - 1) / perRow

	h, w := images.Height, images.Width
	canvas := image.NewRGBA(image.Rect(0, 0, perRow*w, gridRows*h))

	plane := h * w
	for i := 0; i < n; i++ {
		offsetX := (i % perRow) * w
		offsetY := (i / perRow) * h
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				px := y*w + x
				r := displayValue(images.Data.At(i, px))
				g, b := r, r
				if images.Channels >= 3 {
					g = displayValue(images.Data.At(i, plane+px))
					b = displayValue(images.Data.At(i, 2*plane+px))
				}
				canvas.Set(offsetX+x, offsetY+y, color.RGBA{R: r, G: g, B: b, A: 255})
			}
		}
	}

	return canvas
}

// displayValue maps a nominal [-1, 1] value to a clamped byte.
func displayValue(v float64) uint8 {
	scaled := (v + 1) / 2 * 255
	if scaled < 0 {
		scaled = 0
	}
	if scaled > 255 {
		scaled = 255
	}
	return uint8(math.Round(scaled))
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}
