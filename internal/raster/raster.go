// Package raster paints scene objects into frames with gogpu/gg's software
// renderer.
package raster

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/gogpu/gg"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/ivlev/animscene/internal/scene"
	"github.com/ivlev/animscene/internal/vector"
)

var ErrUnsupportedObject = errors.New("raster: unsupported object")

var _ scene.Renderer = (*Renderer)(nil)

// Renderer draws a full frame per call. It keeps one gg context and rebuilds
// it only when the frame size changes. Safe for concurrent use.
type Renderer struct {
	background colorful.Color

	mu sync.Mutex
	dc *gg.Context
}

// New returns a Renderer painting background under every frame.
func New(background colorful.Color) *Renderer {
	return &Renderer{background: background}
}

// RenderAll paints objects in order onto a cleared frame and presents the
// result to surface when it is not nil. The returned image is owned by the
// caller.
func (r *Renderer) RenderAll(objects []scene.Object, width, height int, surface scene.Surface) (image.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("raster: invalid frame size %dx%d", width, height)
	}

	r.mu.Lock()
	dc := r.context(width, height)
	dc.ClearWithColor(toRGBA(r.background, 1))

	for _, obj := range objects {
		var err error
		switch o := obj.(type) {
		case *vector.Shape:
			err = drawShape(dc, o)
		case *vector.Picture:
			drawPicture(dc, o)
		default:
			err = fmt.Errorf("%w: %T", ErrUnsupportedObject, obj)
		}
		if err != nil {
			r.mu.Unlock()
			return nil, fmt.Errorf("raster: object %d: %w", obj.Index(), err)
		}
	}

	frame := dc.Image()
	r.mu.Unlock()

	if surface != nil {
		if err := surface.Present(frame); err != nil {
			return nil, fmt.Errorf("raster: present frame: %w", err)
		}
	}
	return frame, nil
}

// Close releases the gg context.
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dc == nil {
		return nil
	}
	err := r.dc.Close()
	r.dc = nil
	return err
}

func (r *Renderer) context(width, height int) *gg.Context {
	if r.dc != nil && r.dc.Width() == width && r.dc.Height() == height {
		return r.dc
	}
	if r.dc != nil {
		_ = r.dc.Close()
	}
	r.dc = gg.NewContext(width, height)
	return r.dc
}

func drawShape(dc *gg.Context, s *vector.Shape) error {
	if len(s.Paths) == 0 {
		return nil
	}

	closed := false
	dc.ClearPath()
	for _, p := range s.Paths {
		dc.MoveTo(p.Start.X, p.Start.Y)
		for _, seg := range p.Segments {
			dc.CubicTo(seg.C1.X, seg.C1.Y, seg.C2.X, seg.C2.Y, seg.To.X, seg.To.Y)
		}
		if p.Closed {
			dc.ClosePath()
			closed = true
		}
	}
	defer dc.ClearPath()

	st := s.Style
	// Open paths (lines) are stroke-only.
	if closed && st.FillOpacity > 0 {
		dc.SetRGBA(st.Fill.R, st.Fill.G, st.Fill.B, clamp01(st.FillOpacity))
		if err := dc.FillPreserve(); err != nil {
			return fmt.Errorf("fill: %w", err)
		}
	}
	if st.StrokeWidth > 0 && st.StrokeOpacity > 0 {
		dc.SetLineWidth(st.StrokeWidth)
		dc.SetRGBA(st.Stroke.R, st.Stroke.G, st.Stroke.B, clamp01(st.StrokeOpacity))
		if err := dc.StrokePreserve(); err != nil {
			return fmt.Errorf("stroke: %w", err)
		}
	}
	return nil
}

func drawPicture(dc *gg.Context, p *vector.Picture) {
	// gg treats a zero opacity as "unset" and draws opaque.
	if p.Image == nil || p.Opacity <= 0 || p.W <= 0 || p.H <= 0 {
		return
	}
	dc.DrawImageEx(gg.ImageBufFromImage(p.Image), gg.DrawImageOptions{
		X:         p.X,
		Y:         p.Y,
		DstWidth:  p.W,
		DstHeight: p.H,
		Opacity:   clamp01(p.Opacity),
	})
}

func toRGBA(c colorful.Color, a float64) gg.RGBA {
	r, g, b := c.Clamped().RGB255()
	return gg.RGBA{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255, A: a}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
