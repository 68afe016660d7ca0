package vector

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/skip2/go-qrcode"
)

// Grid builds one closed square subpath per set cell of cells, each cell
// being cell units wide, with the grid's top-left corner at (x, y).
func Grid(id int, cells [][]bool, x, y, cell float64) *Shape {
	s := &Shape{ID: id, Style: DefaultStyle()}
	for row, line := range cells {
		for col, set := range line {
			if !set {
				continue
			}
			x0, y0 := x+float64(col)*cell, y+float64(row)*cell
			s.Paths = append(s.Paths, Polyline(true,
				Point{x0, y0}, Point{x0 + cell, y0}, Point{x0 + cell, y0 + cell}, Point{x0, y0 + cell}))
		}
	}
	return s
}

// QRCode renders content as a size x size grid of dark modules with its
// top-left corner at (x, y), quiet zone included.
func QRCode(id int, content string, x, y, size float64) (*Shape, error) {
	q, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("qrcode %q: %w", content, err)
	}

	bitmap := q.Bitmap()
	if len(bitmap) == 0 {
		return nil, fmt.Errorf("qrcode %q: empty bitmap", content)
	}

	s := Grid(id, bitmap, x, y, size/float64(len(bitmap)))
	s.Style.Fill = colorful.Color{}
	return s, nil
}
