package pipeline

import (
	"bytes"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
)

const (
	bankIDRenderDPI = 150

	// topBandRatio is the slice of page 1 submitted for logo detection:
	// the top 20% carries the letterhead.
	topBandRatio = 0.2
)

// renderTopBand rasterizes page 1 and crops its top band for the vision
// logo-detection step.
func renderTopBand(doc document) ([]byte, error) {
	raw, err := doc.RenderPage(1, bankIDRenderDPI)
	if err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	cropped := imaging.Crop(img, image.Rect(
		bounds.Min.X, bounds.Min.Y,
		bounds.Max.X, bounds.Min.Y+int(float64(bounds.Dy())*topBandRatio),
	))

	var buf bytes.Buffer
	if err := png.Encode(&buf, cropped); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
