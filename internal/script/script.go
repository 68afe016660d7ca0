// Package script reads declarative YAML scene scripts and plays them on a
// scene: objects to create, then a timeline of add, play, wait and remove
// steps.
package script

import (
	"errors"
	"fmt"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/ivlev/animscene/internal/animation"
	"github.com/ivlev/animscene/internal/vector"
)

var (
	ErrInvalidScript    = errors.New("invalid script")
	ErrUnknownAnimation = errors.New("unknown animation")
)

// Object kinds.
const (
	KindRectangle = "rectangle"
	KindCircle    = "circle"
	KindPolygon   = "polygon"
	KindLine      = "line"
	KindQRCode    = "qrcode"
	KindPicture   = "picture"
)

// Script is a complete scene description.
type Script struct {
	Version  string       `yaml:"version"`
	Canvas   Canvas       `yaml:"canvas,omitempty"`
	Objects  []ObjectSpec `yaml:"objects"`
	Timeline []Step       `yaml:"timeline"`
}

// Canvas optionally pins the output format. Zero fields leave the choice to
// the configuration.
type Canvas struct {
	Width      int    `yaml:"width,omitempty"`
	Height     int    `yaml:"height,omitempty"`
	FPS        int    `yaml:"fps,omitempty"`
	Background string `yaml:"background,omitempty"`
}

// ObjectSpec describes one object. Which fields apply depends on Kind.
type ObjectSpec struct {
	ID     int    `yaml:"id"`
	Kind   string `yaml:"kind"`
	Hidden bool   `yaml:"hidden,omitempty"` // created by an add step instead of at start

	X    float64 `yaml:"x,omitempty"`
	Y    float64 `yaml:"y,omitempty"`
	W    float64 `yaml:"w,omitempty"`
	H    float64 `yaml:"h,omitempty"`
	R    float64 `yaml:"r,omitempty"`    // circle radius
	Size float64 `yaml:"size,omitempty"` // qrcode edge

	Points  []vector.Point `yaml:"points,omitempty"`  // polygon
	From    *vector.Point  `yaml:"from,omitempty"`    // line
	To      *vector.Point  `yaml:"to,omitempty"`      // line
	Content string         `yaml:"content,omitempty"` // qrcode
	Source  string         `yaml:"source,omitempty"`  // picture reference, "file.pdf#page"

	Fill          string   `yaml:"fill,omitempty"`
	FillOpacity   *float64 `yaml:"fill_opacity,omitempty"`
	Stroke        string   `yaml:"stroke,omitempty"`
	StrokeWidth   float64  `yaml:"stroke_width,omitempty"`
	StrokeOpacity *float64 `yaml:"stroke_opacity,omitempty"`
	Opacity       *float64 `yaml:"opacity,omitempty"` // picture
}

// Step is one timeline entry. Exactly one of Add, Play, Wait or Remove is
// set.
type Step struct {
	Add    []int     `yaml:"add,omitempty"`
	Remove []int     `yaml:"remove,omitempty"`
	Wait   *float64  `yaml:"wait,omitempty"` // seconds
	Play   *PlaySpec `yaml:"play,omitempty"`
}

// PlaySpec animates targets together for Duration seconds.
type PlaySpec struct {
	Duration   float64         `yaml:"duration"`
	Frames     *int            `yaml:"frames,omitempty"` // overrides Duration
	Rate       string          `yaml:"rate,omitempty"`
	Animations []AnimationSpec `yaml:"animations"`
}

// AnimationSpec animates one object. Every set effect is applied, in the
// order of the fields below. With Sequence the effects run one after another,
// each over an equal share of the play, instead of together.
type AnimationSpec struct {
	Target   int  `yaml:"target"`
	Sequence bool `yaml:"sequence,omitempty"`

	Shift     *vector.Point        `yaml:"shift,omitempty"`
	MoveTo    *vector.Point        `yaml:"move_to,omitempty"`
	Scale     float64              `yaml:"scale,omitempty"`
	Rotate    float64              `yaml:"rotate,omitempty"` // degrees
	FadeIn    bool                 `yaml:"fade_in,omitempty"`
	FadeOut   bool                 `yaml:"fade_out,omitempty"`
	FadeTo    *float64             `yaml:"fade_to,omitempty"`
	Fill      string               `yaml:"fill,omitempty"`
	Stroke    string               `yaml:"stroke,omitempty"`
	Transform *ObjectSpec          `yaml:"transform,omitempty"`
	Keyframes []animation.Keyframe `yaml:"keyframes,omitempty"`
	Tour      *TourSpec            `yaml:"tour,omitempty"`
}

// TourSpec zooms through the regions detected on a picture.
type TourSpec struct {
	Detector string `yaml:"detector,omitempty"`
}

func (a AnimationSpec) empty() bool {
	return a.Shift == nil && a.MoveTo == nil && a.Scale == 0 && a.Rotate == 0 &&
		!a.FadeIn && !a.FadeOut && a.FadeTo == nil && a.Fill == "" && a.Stroke == "" &&
		a.Transform == nil && len(a.Keyframes) == 0 && a.Tour == nil
}

// Validate checks the script without loading pictures. Errors name the
// offending object or timeline step.
func (s *Script) Validate() error {
	ids := make(map[int]bool, len(s.Objects))
	for i, o := range s.Objects {
		if ids[o.ID] {
			return fmt.Errorf("%w: object %d: duplicate id %d", ErrInvalidScript, i, o.ID)
		}
		ids[o.ID] = true
		if err := o.validate(); err != nil {
			return fmt.Errorf("%w: object %d (id %d): %w", ErrInvalidScript, i, o.ID, err)
		}
	}
	if s.Canvas.Background != "" {
		if _, err := colorful.Hex(s.Canvas.Background); err != nil {
			return fmt.Errorf("%w: canvas background %q: %v", ErrInvalidScript, s.Canvas.Background, err)
		}
	}

	for i, st := range s.Timeline {
		if err := st.validate(ids); err != nil {
			return fmt.Errorf("%w: timeline step %d: %w", ErrInvalidScript, i, err)
		}
	}
	return nil
}

func (o ObjectSpec) validate() error {
	switch o.Kind {
	case KindRectangle:
		if o.W <= 0 || o.H <= 0 {
			return errors.New("rectangle needs positive w and h")
		}
	case KindCircle:
		if o.R <= 0 {
			return errors.New("circle needs a positive r")
		}
	case KindPolygon:
		if len(o.Points) < 3 {
			return errors.New("polygon needs at least 3 points")
		}
	case KindLine:
		if o.From == nil || o.To == nil {
			return errors.New("line needs from and to")
		}
	case KindQRCode:
		if o.Content == "" || o.Size <= 0 {
			return errors.New("qrcode needs content and a positive size")
		}
	case KindPicture:
		if o.Source == "" {
			return errors.New("picture needs a source")
		}
	case "":
		return errors.New("missing kind")
	default:
		return fmt.Errorf("unknown kind %q", o.Kind)
	}

	for _, c := range []string{o.Fill, o.Stroke} {
		if c == "" {
			continue
		}
		if _, err := colorful.Hex(c); err != nil {
			return fmt.Errorf("colour %q: %v", c, err)
		}
	}
	return nil
}

func (st Step) validate(ids map[int]bool) error {
	set := 0
	if st.Add != nil {
		set++
	}
	if st.Remove != nil {
		set++
	}
	if st.Wait != nil {
		set++
	}
	if st.Play != nil {
		set++
	}
	if set != 1 {
		return fmt.Errorf("expected exactly one of add, remove, wait, play; got %d", set)
	}

	for _, id := range append(append([]int(nil), st.Add...), st.Remove...) {
		if !ids[id] {
			return fmt.Errorf("unknown object id %d", id)
		}
	}
	if st.Wait != nil && *st.Wait < 0 {
		return fmt.Errorf("negative wait %v", *st.Wait)
	}
	if st.Play != nil {
		return st.Play.validate(ids)
	}
	return nil
}

func (p *PlaySpec) validate(ids map[int]bool) error {
	if p.Duration < 0 {
		return fmt.Errorf("negative duration %v", p.Duration)
	}
	if p.Frames != nil && *p.Frames < 0 {
		return fmt.Errorf("negative frames %d", *p.Frames)
	}
	if _, err := animation.Rate(p.Rate); err != nil {
		return err
	}
	for j, a := range p.Animations {
		if !ids[a.Target] {
			return fmt.Errorf("animation %d: unknown target %d", j, a.Target)
		}
		if a.empty() {
			return fmt.Errorf("animation %d: %w: no effect set", j, ErrUnknownAnimation)
		}
		for _, c := range []string{a.Fill, a.Stroke} {
			if c == "" {
				continue
			}
			if _, err := colorful.Hex(c); err != nil {
				return fmt.Errorf("animation %d: colour %q: %v", j, c, err)
			}
		}
		if a.Transform != nil {
			if a.Transform.Kind == KindPicture {
				return fmt.Errorf("animation %d: cannot transform into a picture", j)
			}
			if err := a.Transform.validate(); err != nil {
				return fmt.Errorf("animation %d: transform: %v", j, err)
			}
		}
	}
	return nil
}

// Frames converts seconds to a frame count at fps.
func Frames(seconds float64, fps int) int {
	if seconds <= 0 {
		return 0
	}
	return int(seconds*float64(fps) + 0.5)
}
