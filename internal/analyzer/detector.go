// Package analyzer finds regions of interest on raster pictures, such as
// text blocks on a PDF page, so a camera tour can visit them.
package analyzer

import (
	"fmt"
	"image"
)

// Region is a detected area of a picture in image pixel coordinates.
type Region struct {
	Rect       image.Rectangle
	Confidence float64 // 0.0-1.0
}

// Detector finds regions on an image.
type Detector interface {
	Detect(img image.Image) ([]Region, error)
}

// NewDetector creates a detector by name. Only "contrast" exists today; the
// empty name selects it.
func NewDetector(variant string) (Detector, error) {
	switch variant {
	case "contrast", "":
		return NewContrastDetector(), nil
	default:
		return nil, fmt.Errorf("unknown detector variant: %s", variant)
	}
}
