package vector

import (
	"image"
	"math"
	"testing"

	"github.com/lucasb-eyer/go-colorful"
)

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestRectangleBounds(t *testing.T) {
	r := Rectangle(1, 10, 20, 30, 40)
	min, max := r.Bounds()
	if min != (Point{10, 20}) || max != (Point{40, 60}) {
		t.Errorf("Bounds = %v %v, want {10 20} {40 60}", min, max)
	}
	if c := r.Center(); c != (Point{25, 40}) {
		t.Errorf("Center = %v", c)
	}
	if n := len(r.Paths[0].Segments); n != 4 {
		t.Errorf("Expected 4 segments, got %d", n)
	}
}

func TestCircleBounds(t *testing.T) {
	c := Circle(1, 50, 50, 10)
	min, max := c.Bounds()
	if !near(min.X, 40) || !near(min.Y, 40) || !near(max.X, 60) || !near(max.Y, 60) {
		t.Errorf("Bounds = %v %v", min, max)
	}
}

func TestTransformsReturnCopies(t *testing.T) {
	r := Rectangle(3, 0, 0, 10, 10)

	moved := r.Translate(5, -5)
	if c := moved.Center(); c != (Point{10, 0}) {
		t.Errorf("Translate center = %v", c)
	}
	if c := r.Center(); c != (Point{5, 5}) {
		t.Errorf("original changed: %v", c)
	}

	scaled := r.Scale(2, r.Center())
	min, max := scaled.Bounds()
	if min != (Point{-5, -5}) || max != (Point{15, 15}) {
		t.Errorf("Scale bounds = %v %v", min, max)
	}

	rotated := r.Rotate(math.Pi, Point{0, 0})
	c := rotated.Center()
	if !near(c.X, -5) || !near(c.Y, -5) {
		t.Errorf("Rotate center = %v", c)
	}
	if moved.ID != 3 || scaled.ID != 3 || rotated.ID != 3 {
		t.Error("transforms must keep the index")
	}
}

func TestCloneIsDeep(t *testing.T) {
	r := Rectangle(1, 0, 0, 10, 10)
	c := r.Clone().(*Shape)
	c.Paths[0].Segments[0].To = Point{99, 99}
	c.Paths[0].Start = Point{-1, -1}

	if r.Paths[0].Segments[0].To == (Point{99, 99}) {
		t.Error("Clone shares segment storage")
	}
	if r.Paths[0].Start == (Point{-1, -1}) {
		t.Error("Clone shares path start")
	}

	w := r.WithIndex(7).(*Shape)
	if w.ID != 7 || r.ID != 1 {
		t.Errorf("WithIndex: got %d, original %d", w.ID, r.ID)
	}
}

func TestLerpMorphsGeometry(t *testing.T) {
	a := Rectangle(1, 0, 0, 10, 10)
	b := Rectangle(2, 10, 10, 10, 10)
	b.Style.Fill = colorful.Color{R: 0, G: 0, B: 0}
	b.Style.FillOpacity = 0

	if !a.CanMorph(b) {
		t.Fatal("rectangles should morph")
	}
	mid := a.Lerp(b, 0.5)
	if c := mid.Center(); !near(c.X, 10) || !near(c.Y, 10) {
		t.Errorf("mid center = %v", c)
	}
	if mid.ID != 1 {
		t.Errorf("Lerp must keep receiver index, got %d", mid.ID)
	}
	if !near(mid.Style.FillOpacity, 0.5) {
		t.Errorf("FillOpacity = %f", mid.Style.FillOpacity)
	}
}

func TestLerpSnapsWithoutMatchingTopology(t *testing.T) {
	a := Rectangle(1, 0, 0, 10, 10)
	b := Polygon(2, Point{90, 90}, Point{110, 90}, Point{100, 110})
	if a.CanMorph(Line(3, Point{}, Point{1, 1}, 1)) {
		t.Error("open and closed paths should not morph")
	}

	if c := a.Lerp(b, 0.5).Center(); c != a.Center() {
		t.Errorf("before end: center = %v", c)
	}
	end := a.Lerp(b, 1)
	if c := end.Center(); !near(c.X, 100) || !near(c.Y, 100) {
		t.Errorf("at end: center = %v", c)
	}
	if end.ID != 1 {
		t.Errorf("index = %d", end.ID)
	}
}

func TestQRCode(t *testing.T) {
	q, err := QRCode(4, "https://example.com", 0, 0, 290)
	if err != nil {
		t.Fatalf("QRCode failed: %v", err)
	}
	if q.ID != 4 {
		t.Errorf("ID = %d", q.ID)
	}
	if len(q.Paths) == 0 {
		t.Fatal("Expected dark modules")
	}
	_, max := q.Bounds()
	if max.X > 290+1e-9 || max.Y > 290+1e-9 {
		t.Errorf("modules exceed requested size: %v", max)
	}
}

func TestPicture(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	p := NewPicture(2, img, 5, 5, 0, 0)
	if p.W != 40 || p.H != 20 || p.Opacity != 1 {
		t.Errorf("unexpected picture %+v", p)
	}
	if c := p.Center(); c != (Point{25, 15}) {
		t.Errorf("Center = %v", c)
	}
	c := p.WithIndex(9).(*Picture)
	c.X = 100
	if p.X != 5 || c.ID != 9 {
		t.Error("WithIndex must copy")
	}
}

func TestGrid(t *testing.T) {
	g := Grid(1, [][]bool{{true, false}, {false, true}}, 10, 10, 5)
	if len(g.Paths) != 2 {
		t.Fatalf("Expected 2 cells, got %d", len(g.Paths))
	}
	min, max := g.Bounds()
	if min != (Point{10, 10}) || max != (Point{20, 20}) {
		t.Errorf("Bounds = %v %v", min, max)
	}
}
