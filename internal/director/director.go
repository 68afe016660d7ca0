// Package director plans camera tours over a picture: a full view, a stop
// at each detected region in reading order, and back to the full view.
package director

import (
	"image"
	"math"
	"sort"

	"github.com/ivlev/animscene/internal/analyzer"
	"github.com/ivlev/animscene/internal/animation"
	"github.com/ivlev/animscene/internal/vector"
)

// Director turns regions into keyframes for a viewport.
type Director struct {
	ViewportWidth  int
	ViewportHeight int
	MinDwell       float64 // minimum time per region (seconds)
	MaxDwell       float64 // maximum time per region (seconds)
	MaxZoom        float64
	RowThreshold   int // regions whose tops differ by less are on one row
}

// NewDirector creates a Director with default settings.
func NewDirector(viewportWidth, viewportHeight int) *Director {
	return &Director{
		ViewportWidth:  viewportWidth,
		ViewportHeight: viewportHeight,
		MinDwell:       1.0,
		MaxDwell:       3.0,
		MaxZoom:        3.0,
		RowThreshold:   20,
	}
}

// Tour plans keyframes for pic lasting duration seconds. Keyframe times are
// returned as progress in [0,1]. With no regions the picture stays put.
func (d *Director) Tour(pic *vector.Picture, regions []analyzer.Region, duration float64) []animation.Keyframe {
	still := []animation.Keyframe{{At: 0, Zoom: 1}, {At: 1, Zoom: 1}}
	if len(regions) == 0 || duration <= 0 || pic.Image == nil {
		return still
	}

	sorted := d.sortRegions(regions)
	dwell := d.dwellTime(duration, len(sorted))

	// 1s intro on the full view, then one stop per region, then the outro.
	times := make([]float64, 0, len(sorted)+2)
	frames := make([]animation.Keyframe, 0, len(sorted)+2)
	times = append(times, 0)
	frames = append(frames, animation.Keyframe{Zoom: 1})

	current := math.Min(1.0, duration/4)
	for _, r := range sorted {
		times = append(times, current)
		frames = append(frames, d.focus(pic, r.Rect))
		current += dwell
	}
	times = append(times, current)
	frames = append(frames, animation.Keyframe{Zoom: 1})

	// Squeeze the plan if clamped dwell times overflow the duration.
	span := math.Max(current, duration)
	for i := range frames {
		frames[i].At = times[i] / span
	}
	return frames
}

// focus centres region (image pixels) of pic in the viewport.
func (d *Director) focus(pic *vector.Picture, region image.Rectangle) animation.Keyframe {
	b := pic.Image.Bounds()
	sx := pic.W / float64(b.Dx())
	sy := pic.H / float64(b.Dy())

	w := float64(region.Dx()) * sx
	h := float64(region.Dy()) * sy
	zoom := d.zoomFor(w, h)

	// Region centre in scene coordinates, then where the zoom about the
	// picture centre moves it.
	rc := vector.Point{
		X: pic.X + (float64(region.Min.X)+float64(region.Dx())/2)*sx,
		Y: pic.Y + (float64(region.Min.Y)+float64(region.Dy())/2)*sy,
	}
	pc := pic.Center()
	zoomed := pc.Add(rc.Sub(pc).Mul(zoom))
	view := vector.Point{X: float64(d.ViewportWidth) / 2, Y: float64(d.ViewportHeight) / 2}

	return animation.Keyframe{Offset: view.Sub(zoomed), Zoom: zoom}
}

// sortRegions orders regions for reading: top to bottom, left to right
// within a row.
func (d *Director) sortRegions(regions []analyzer.Region) []analyzer.Region {
	sorted := append([]analyzer.Region(nil), regions...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Rect.Min, sorted[j].Rect.Min
		if abs(a.Y-b.Y) > d.RowThreshold {
			return a.Y < b.Y
		}
		return a.X < b.X
	})
	return sorted
}

// dwellTime splits what is left after intro and outro between regions.
func (d *Director) dwellTime(duration float64, count int) float64 {
	available := duration - 2.0
	if available <= 0 {
		available = duration
	}
	dwell := available / float64(count)
	return math.Max(d.MinDwell, math.Min(d.MaxDwell, dwell))
}

// zoomFor fits a w x h box into 90% of the viewport.
func (d *Director) zoomFor(w, h float64) float64 {
	if w <= 0 || h <= 0 {
		return 1.0
	}
	zoom := math.Min(float64(d.ViewportWidth)*0.9/w, float64(d.ViewportHeight)*0.9/h)
	return math.Max(1.0, math.Min(d.MaxZoom, zoom))
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
