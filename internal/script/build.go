package script

import (
	"fmt"
	"image"
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/ivlev/animscene/internal/analyzer"
	"github.com/ivlev/animscene/internal/animation"
	"github.com/ivlev/animscene/internal/director"
	"github.com/ivlev/animscene/internal/scene"
	"github.com/ivlev/animscene/internal/vector"
)

// PictureLoader resolves picture references such as "slides.pdf#2".
type PictureLoader interface {
	Load(ref string) (image.Image, error)
}

// Build creates the object o describes. pictures may be nil when the
// script has no picture objects.
func (o ObjectSpec) Build(pictures PictureLoader) (scene.Object, error) {
	if o.Kind == KindPicture {
		return o.buildPicture(pictures)
	}
	return o.buildShape()
}

func (o ObjectSpec) buildShape() (*vector.Shape, error) {
	var s *vector.Shape
	switch o.Kind {
	case KindRectangle:
		s = vector.Rectangle(o.ID, o.X, o.Y, o.W, o.H)
	case KindCircle:
		s = vector.Circle(o.ID, o.X, o.Y, o.R)
	case KindPolygon:
		s = vector.Polygon(o.ID, o.Points...)
	case KindLine:
		width := o.StrokeWidth
		if width <= 0 {
			width = 2
		}
		s = vector.Line(o.ID, *o.From, *o.To, width)
	case KindQRCode:
		q, err := vector.QRCode(o.ID, o.Content, o.X, o.Y, o.Size)
		if err != nil {
			return nil, err
		}
		s = q
	default:
		return nil, fmt.Errorf("unknown kind %q", o.Kind)
	}

	st := s.Style
	if o.Fill != "" {
		c, err := colorful.Hex(o.Fill)
		if err != nil {
			return nil, err
		}
		st.Fill = c
	}
	if o.FillOpacity != nil {
		st.FillOpacity = *o.FillOpacity
	}
	if o.Stroke != "" {
		c, err := colorful.Hex(o.Stroke)
		if err != nil {
			return nil, err
		}
		st.Stroke = c
	}
	if o.StrokeWidth > 0 {
		st.StrokeWidth = o.StrokeWidth
	}
	if o.StrokeOpacity != nil {
		st.StrokeOpacity = *o.StrokeOpacity
	}
	s.Style = st
	return s, nil
}

func (o ObjectSpec) buildPicture(pictures PictureLoader) (*vector.Picture, error) {
	if pictures == nil {
		return nil, fmt.Errorf("picture %q: no picture loader", o.Source)
	}
	img, err := pictures.Load(o.Source)
	if err != nil {
		return nil, fmt.Errorf("picture %q: %w", o.Source, err)
	}
	p := vector.NewPicture(o.ID, img, o.X, o.Y, o.W, o.H)
	p.Source = o.Source
	if o.Opacity != nil {
		p.Opacity = *o.Opacity
	}
	return p, nil
}

// tourPlanner builds camera tours for pictures on a viewport.
type tourPlanner struct {
	width, height int
}

// animation builds the function for a. current is the target as it stands
// in the scene when the step starts; seconds is the play length.
func (a AnimationSpec) animation(current scene.Object, seconds float64, tours tourPlanner) (scene.AnimationFunc, error) {
	var fns []scene.AnimationFunc

	if a.Shift != nil {
		fns = append(fns, animation.Shift(a.Shift.X, a.Shift.Y))
	}
	if a.MoveTo != nil {
		fns = append(fns, animation.MoveTo(a.MoveTo.X, a.MoveTo.Y))
	}
	if a.Scale != 0 {
		fns = append(fns, animation.ScaleBy(a.Scale))
	}
	if a.Rotate != 0 {
		fns = append(fns, animation.Rotate(a.Rotate*math.Pi/180))
	}
	if a.FadeIn {
		fns = append(fns, animation.FadeIn())
	}
	if a.FadeOut {
		fns = append(fns, animation.FadeOut())
	}
	if a.FadeTo != nil {
		fns = append(fns, animation.FadeTo(*a.FadeTo))
	}
	if a.Fill != "" {
		c, err := colorful.Hex(a.Fill)
		if err != nil {
			return nil, err
		}
		fns = append(fns, animation.FillTo(c))
	}
	if a.Stroke != "" {
		c, err := colorful.Hex(a.Stroke)
		if err != nil {
			return nil, err
		}
		fns = append(fns, animation.StrokeTo(c))
	}
	if a.Transform != nil {
		target, err := a.Transform.buildShape()
		if err != nil {
			return nil, fmt.Errorf("transform: %w", err)
		}
		fns = append(fns, animation.Transform(target))
	}
	if len(a.Keyframes) > 0 {
		fns = append(fns, animation.Keyframes(a.Keyframes))
	}
	if a.Tour != nil {
		fn, err := tours.tour(current, a.Tour, seconds)
		if err != nil {
			return nil, err
		}
		fns = append(fns, fn)
	}

	if len(fns) == 0 {
		return nil, ErrUnknownAnimation
	}
	if len(fns) == 1 {
		return fns[0], nil
	}
	if a.Sequence {
		return animation.Sequence(fns...), nil
	}
	return animation.Compose(fns...), nil
}

func (p tourPlanner) tour(current scene.Object, spec *TourSpec, seconds float64) (scene.AnimationFunc, error) {
	pic, ok := current.(*vector.Picture)
	if !ok {
		return nil, fmt.Errorf("tour needs a picture target, got %T", current)
	}
	det, err := analyzer.NewDetector(spec.Detector)
	if err != nil {
		return nil, err
	}
	regions, err := det.Detect(pic.Image)
	if err != nil {
		return nil, fmt.Errorf("detect regions: %w", err)
	}
	kfs := director.NewDirector(p.width, p.height).Tour(pic, regions, seconds)
	return animation.Keyframes(kfs), nil
}
