package vector

import (
	"image"

	"github.com/ivlev/animscene/internal/scene"
)

// Picture places a raster image in the scene, typically a PDF page used as a
// backdrop. Image is shared between copies and must not be modified.
type Picture struct {
	ID      int
	Source  string
	Image   image.Image
	X, Y    float64
	W, H    float64
	Opacity float64
}

// NewPicture fits img into the box (x, y, w, h). A zero w or h keeps the
// image's own size for that axis.
func NewPicture(id int, img image.Image, x, y, w, h float64) *Picture {
	b := img.Bounds()
	if w == 0 {
		w = float64(b.Dx())
	}
	if h == 0 {
		h = float64(b.Dy())
	}
	return &Picture{ID: id, Image: img, X: x, Y: y, W: w, H: h, Opacity: 1}
}

func (p *Picture) Index() int { return p.ID }

func (p *Picture) WithIndex(index int) scene.Object {
	c := *p
	c.ID = index
	return &c
}

func (p *Picture) Clone() scene.Object {
	c := *p
	return &c
}

func (p *Picture) Center() Point {
	return Point{p.X + p.W/2, p.Y + p.H/2}
}
