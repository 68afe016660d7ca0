package vector

import "math"

// kappa places cubic control points for a quarter circle.
const kappa = 0.5522847498307936

type Point struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

func (p Point) Add(q Point) Point         { return Point{p.X + q.X, p.Y + q.Y} }
func (p Point) Sub(q Point) Point         { return Point{p.X - q.X, p.Y - q.Y} }
func (p Point) Mul(f float64) Point       { return Point{p.X * f, p.Y * f} }
func (p Point) Lerp(q Point, t float64) Point {
	return Point{p.X + (q.X-p.X)*t, p.Y + (q.Y-p.Y)*t}
}

// Rotate turns p by angle radians around c.
func (p Point) Rotate(angle float64, c Point) Point {
	sin, cos := math.Sincos(angle)
	d := p.Sub(c)
	return Point{c.X + d.X*cos - d.Y*sin, c.Y + d.X*sin + d.Y*cos}
}

// Segment is one cubic bezier piece ending at To.
type Segment struct {
	C1 Point
	C2 Point
	To Point
}

// Path is a start point followed by cubic segments.
type Path struct {
	Start    Point
	Segments []Segment
	Closed   bool
}

func (p Path) clone() Path {
	p.Segments = append([]Segment(nil), p.Segments...)
	return p
}

func (p Path) mapPoints(fn func(Point) Point) Path {
	out := Path{Start: fn(p.Start), Closed: p.Closed, Segments: make([]Segment, len(p.Segments))}
	for i, s := range p.Segments {
		out.Segments[i] = Segment{C1: fn(s.C1), C2: fn(s.C2), To: fn(s.To)}
	}
	return out
}

// sameTopology reports whether two paths can be interpolated point by point.
func (p Path) sameTopology(q Path) bool {
	return len(p.Segments) == len(q.Segments) && p.Closed == q.Closed
}

func (p Path) lerp(q Path, t float64) Path {
	out := Path{Start: p.Start.Lerp(q.Start, t), Closed: p.Closed, Segments: make([]Segment, len(p.Segments))}
	for i := range p.Segments {
		a, b := p.Segments[i], q.Segments[i]
		out.Segments[i] = Segment{
			C1: a.C1.Lerp(b.C1, t),
			C2: a.C2.Lerp(b.C2, t),
			To: a.To.Lerp(b.To, t),
		}
	}
	return out
}

func lineSegment(a, b Point) Segment {
	return Segment{C1: a.Lerp(b, 1.0/3), C2: a.Lerp(b, 2.0/3), To: b}
}

// Polyline builds a path of straight segments through pts.
func Polyline(closed bool, pts ...Point) Path {
	if len(pts) == 0 {
		return Path{}
	}
	p := Path{Start: pts[0], Closed: closed}
	for i := 1; i < len(pts); i++ {
		p.Segments = append(p.Segments, lineSegment(pts[i-1], pts[i]))
	}
	if closed && len(pts) > 1 {
		p.Segments = append(p.Segments, lineSegment(pts[len(pts)-1], pts[0]))
	}
	return p
}

// Ellipse approximates an ellipse with four cubic arcs.
func Ellipse(cx, cy, rx, ry float64) Path {
	kx, ky := rx*kappa, ry*kappa
	return Path{
		Start:  Point{cx + rx, cy},
		Closed: true,
		Segments: []Segment{
			{C1: Point{cx + rx, cy + ky}, C2: Point{cx + kx, cy + ry}, To: Point{cx, cy + ry}},
			{C1: Point{cx - kx, cy + ry}, C2: Point{cx - rx, cy + ky}, To: Point{cx - rx, cy}},
			{C1: Point{cx - rx, cy - ky}, C2: Point{cx - kx, cy - ry}, To: Point{cx, cy - ry}},
			{C1: Point{cx + kx, cy - ry}, C2: Point{cx + rx, cy - ky}, To: Point{cx + rx, cy}},
		},
	}
}
