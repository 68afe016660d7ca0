// Package vector holds the objects a scene animates: bezier shapes, QR codes
// and raster pictures.
package vector

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/ivlev/animscene/internal/scene"
)

var (
	_ scene.Object = (*Shape)(nil)
	_ scene.Object = (*Picture)(nil)
)

// Style is the paint of a shape. Opacities are in [0,1].
type Style struct {
	Fill          colorful.Color
	FillOpacity   float64
	Stroke        colorful.Color
	StrokeOpacity float64
	StrokeWidth   float64
}

// DefaultStyle is an opaque white fill with no stroke.
func DefaultStyle() Style {
	return Style{
		Fill:          colorful.Color{R: 1, G: 1, B: 1},
		FillOpacity:   1,
		Stroke:        colorful.Color{R: 1, G: 1, B: 1},
		StrokeOpacity: 1,
	}
}

// Shape is a set of bezier paths painted with one Style.
type Shape struct {
	ID    int
	Paths []Path
	Style Style
}

func (s *Shape) Index() int { return s.ID }

func (s *Shape) WithIndex(index int) scene.Object {
	c := s.copy()
	c.ID = index
	return c
}

func (s *Shape) Clone() scene.Object { return s.copy() }

func (s *Shape) copy() *Shape {
	c := &Shape{ID: s.ID, Style: s.Style, Paths: make([]Path, len(s.Paths))}
	for i, p := range s.Paths {
		c.Paths[i] = p.clone()
	}
	return c
}

func (s *Shape) mapPoints(fn func(Point) Point) *Shape {
	c := &Shape{ID: s.ID, Style: s.Style, Paths: make([]Path, len(s.Paths))}
	for i, p := range s.Paths {
		c.Paths[i] = p.mapPoints(fn)
	}
	return c
}

// Bounds returns the box around every control point.
func (s *Shape) Bounds() (min, max Point) {
	first := true
	visit := func(p Point) Point {
		if first {
			min, max = p, p
			first = false
			return p
		}
		min.X, min.Y = math.Min(min.X, p.X), math.Min(min.Y, p.Y)
		max.X, max.Y = math.Max(max.X, p.X), math.Max(max.Y, p.Y)
		return p
	}
	s.mapPoints(visit)
	return min, max
}

func (s *Shape) Center() Point {
	min, max := s.Bounds()
	return min.Lerp(max, 0.5)
}

func (s *Shape) Translate(dx, dy float64) *Shape {
	d := Point{dx, dy}
	return s.mapPoints(func(p Point) Point { return p.Add(d) })
}

// Scale grows the shape by f around about.
func (s *Shape) Scale(f float64, about Point) *Shape {
	return s.mapPoints(func(p Point) Point { return about.Add(p.Sub(about).Mul(f)) })
}

// Rotate turns the shape by angle radians around about.
func (s *Shape) Rotate(angle float64, about Point) *Shape {
	return s.mapPoints(func(p Point) Point { return p.Rotate(angle, about) })
}

// WithStyle returns a copy painted with st.
func (s *Shape) WithStyle(st Style) *Shape {
	c := s.copy()
	c.Style = st
	return c
}

// CanMorph reports whether Lerp between s and target moves points.
func (s *Shape) CanMorph(target *Shape) bool {
	if len(s.Paths) != len(target.Paths) {
		return false
	}
	for i := range s.Paths {
		if !s.Paths[i].sameTopology(target.Paths[i]) {
			return false
		}
	}
	return true
}

// Lerp interpolates geometry and paint towards target. Geometry only moves
// when CanMorph holds; otherwise the shape snaps to target at t >= 1.
// The result keeps the receiver's index.
func (s *Shape) Lerp(target *Shape, t float64) *Shape {
	var out *Shape
	switch {
	case s.CanMorph(target):
		out = &Shape{Paths: make([]Path, len(s.Paths))}
		for i := range s.Paths {
			out.Paths[i] = s.Paths[i].lerp(target.Paths[i], t)
		}
	case t >= 1:
		out = target.copy()
	default:
		out = s.copy()
	}
	out.ID = s.ID
	out.Style = s.Style.Lerp(target.Style, t)
	return out
}

// Lerp blends two styles; colours are mixed in Lab space.
func (st Style) Lerp(to Style, t float64) Style {
	return Style{
		Fill:          st.Fill.BlendLab(to.Fill, t),
		FillOpacity:   lerp(st.FillOpacity, to.FillOpacity, t),
		Stroke:        st.Stroke.BlendLab(to.Stroke, t),
		StrokeOpacity: lerp(st.StrokeOpacity, to.StrokeOpacity, t),
		StrokeWidth:   lerp(st.StrokeWidth, to.StrokeWidth, t),
	}
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func Rectangle(id int, x, y, w, h float64) *Shape {
	return &Shape{
		ID:    id,
		Style: DefaultStyle(),
		Paths: []Path{Polyline(true, Point{x, y}, Point{x + w, y}, Point{x + w, y + h}, Point{x, y + h})},
	}
}

func Circle(id int, cx, cy, r float64) *Shape {
	return &Shape{ID: id, Style: DefaultStyle(), Paths: []Path{Ellipse(cx, cy, r, r)}}
}

func Polygon(id int, pts ...Point) *Shape {
	return &Shape{ID: id, Style: DefaultStyle(), Paths: []Path{Polyline(true, pts...)}}
}

// Line is an open stroked path from a to b.
func Line(id int, a, b Point, width float64) *Shape {
	st := DefaultStyle()
	st.FillOpacity = 0
	st.StrokeWidth = width
	return &Shape{ID: id, Style: st, Paths: []Path{Polyline(false, a, b)}}
}
