package analyzer

import (
	"image"
	"image/draw"
	"math"
)

// ContrastDetector finds regions by Sobel edge detection, dilation and
// connected components.
type ContrastDetector struct {
	MinArea       int     // minimum region area, pixels²
	EdgeThreshold float64 // gradient magnitude threshold
	DilateRadius  int
	DilatePasses  int
}

// NewContrastDetector returns a detector with settings tuned for slides.
func NewContrastDetector() *ContrastDetector {
	return &ContrastDetector{
		MinArea:       500, // ~22x22
		EdgeThreshold: 30,
		DilateRadius:  2,
		DilatePasses:  2,
	}
}

// Detect returns regions in scan order (top to bottom, then left to right
// by first pixel). Rectangles are relative to img.Bounds().Min.
func (d *ContrastDetector) Detect(img image.Image) ([]Region, error) {
	gray := toGray(img)
	mask := sobel(gray, d.EdgeThreshold)
	for i := 0; i < d.DilatePasses; i++ {
		mask = dilate(mask, d.DilateRadius)
	}

	var regions []Region
	for _, r := range components(mask) {
		if r.Dx()*r.Dy() < d.MinArea {
			continue
		}
		regions = append(regions, Region{Rect: r, Confidence: 0.7})
	}
	return regions, nil
}

// binary is a w x h mask stored row-major.
type binary struct {
	w, h int
	px   []bool
}

func (b *binary) at(x, y int) bool { return b.px[y*b.w+x] }

func toGray(img image.Image) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Rect, img, b.Min, draw.Src)
	return gray
}

var (
	sobelX = [3][3]float64{{-1, 0, 1}, {-2, 0, 2}, {-1, 0, 1}}
	sobelY = [3][3]float64{{-1, -2, -1}, {0, 0, 0}, {1, 2, 1}}
)

func sobel(gray *image.Gray, threshold float64) *binary {
	w, h := gray.Rect.Dx(), gray.Rect.Dy()
	out := &binary{w: w, h: h, px: make([]bool, w*h)}
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			var gx, gy float64
			for ky := -1; ky <= 1; ky++ {
				row := gray.Pix[(y+ky)*gray.Stride:]
				for kx := -1; kx <= 1; kx++ {
					v := float64(row[x+kx])
					gx += v * sobelX[ky+1][kx+1]
					gy += v * sobelY[ky+1][kx+1]
				}
			}
			out.px[y*w+x] = math.Hypot(gx, gy) > threshold
		}
	}
	return out
}

// dilate grows set pixels by radius in every direction.
func dilate(m *binary, radius int) *binary {
	out := &binary{w: m.w, h: m.h, px: make([]bool, len(m.px))}
	for y := 0; y < m.h; y++ {
		for x := 0; x < m.w; x++ {
			if !m.at(x, y) {
				continue
			}
			for ny := max(0, y-radius); ny <= min(m.h-1, y+radius); ny++ {
				for nx := max(0, x-radius); nx <= min(m.w-1, x+radius); nx++ {
					out.px[ny*m.w+nx] = true
				}
			}
		}
	}
	return out
}

// components returns the bounding boxes of 4-connected set regions.
func components(m *binary) []image.Rectangle {
	visited := make([]bool, len(m.px))
	var rects []image.Rectangle
	var stack []int

	for start, set := range m.px {
		if !set || visited[start] {
			continue
		}
		minX, minY := m.w, m.h
		maxX, maxY := -1, -1

		stack = append(stack[:0], start)
		visited[start] = true
		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := i%m.w, i/m.w
			minX, maxX = min(minX, x), max(maxX, x)
			minY, maxY = min(minY, y), max(maxY, y)

			for _, n := range [4][2]int{{x + 1, y}, {x - 1, y}, {x, y + 1}, {x, y - 1}} {
				nx, ny := n[0], n[1]
				if nx < 0 || ny < 0 || nx >= m.w || ny >= m.h {
					continue
				}
				j := ny*m.w + nx
				if m.px[j] && !visited[j] {
					visited[j] = true
					stack = append(stack, j)
				}
			}
		}
		rects = append(rects, image.Rect(minX, minY, maxX+1, maxY+1))
	}
	return rects
}
