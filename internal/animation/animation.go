// Package animation builds scene.AnimationFunc values for vector objects.
//
// Every builder returns a function of (snapshot, t) only: the same inputs
// always give the same frame, whatever was rendered before.
package animation

import (
	"github.com/lucasb-eyer/go-colorful"

	"github.com/ivlev/animscene/internal/scene"
	"github.com/ivlev/animscene/internal/vector"
)

// Shift moves an object by (dx, dy) over the animation.
func Shift(dx, dy float64) scene.AnimationFunc {
	return func(obj scene.Object, t float64) scene.Object {
		switch o := obj.(type) {
		case *vector.Shape:
			return o.Translate(dx*t, dy*t)
		case *vector.Picture:
			o.X += dx * t
			o.Y += dy * t
			return o
		}
		return obj
	}
}

// MoveTo moves an object's center to (x, y).
func MoveTo(x, y float64) scene.AnimationFunc {
	return func(obj scene.Object, t float64) scene.Object {
		switch o := obj.(type) {
		case *vector.Shape:
			c := o.Center()
			return o.Translate((x-c.X)*t, (y-c.Y)*t)
		case *vector.Picture:
			c := o.Center()
			o.X += (x - c.X) * t
			o.Y += (y - c.Y) * t
			return o
		}
		return obj
	}
}

// ScaleBy grows an object by factor around its center.
func ScaleBy(factor float64) scene.AnimationFunc {
	return func(obj scene.Object, t float64) scene.Object {
		f := 1 + (factor-1)*t
		switch o := obj.(type) {
		case *vector.Shape:
			return o.Scale(f, o.Center())
		case *vector.Picture:
			c := o.Center()
			o.W *= f
			o.H *= f
			o.X = c.X - o.W/2
			o.Y = c.Y - o.H/2
			return o
		}
		return obj
	}
}

// Rotate turns a shape by angle radians around its center. Pictures are left
// as they are.
func Rotate(angle float64) scene.AnimationFunc {
	return func(obj scene.Object, t float64) scene.Object {
		if o, ok := obj.(*vector.Shape); ok {
			return o.Rotate(angle*t, o.Center())
		}
		return obj
	}
}

// FadeTo moves fill and stroke opacity towards opacity.
func FadeTo(opacity float64) scene.AnimationFunc {
	return func(obj scene.Object, t float64) scene.Object {
		switch o := obj.(type) {
		case *vector.Shape:
			st := o.Style
			st.FillOpacity = lerp(st.FillOpacity, opacity, t)
			st.StrokeOpacity = lerp(st.StrokeOpacity, opacity, t)
			return o.WithStyle(st)
		case *vector.Picture:
			o.Opacity = lerp(o.Opacity, opacity, t)
			return o
		}
		return obj
	}
}

// FadeIn reveals an object from transparent to its own opacity.
func FadeIn() scene.AnimationFunc {
	return opacityScale(func(t float64) float64 { return t })
}

// FadeOut hides an object from its own opacity to transparent.
func FadeOut() scene.AnimationFunc {
	return opacityScale(func(t float64) float64 { return 1 - t })
}

func opacityScale(k func(float64) float64) scene.AnimationFunc {
	return func(obj scene.Object, t float64) scene.Object {
		f := k(t)
		switch o := obj.(type) {
		case *vector.Shape:
			st := o.Style
			st.FillOpacity *= f
			st.StrokeOpacity *= f
			return o.WithStyle(st)
		case *vector.Picture:
			o.Opacity *= f
			return o
		}
		return obj
	}
}

// FillTo blends a shape's fill colour towards c.
func FillTo(c colorful.Color) scene.AnimationFunc {
	return func(obj scene.Object, t float64) scene.Object {
		if o, ok := obj.(*vector.Shape); ok {
			st := o.Style
			st.Fill = st.Fill.BlendLab(c, t)
			return o.WithStyle(st)
		}
		return obj
	}
}

// StrokeTo blends a shape's stroke colour towards c.
func StrokeTo(c colorful.Color) scene.AnimationFunc {
	return func(obj scene.Object, t float64) scene.Object {
		if o, ok := obj.(*vector.Shape); ok {
			st := o.Style
			st.Stroke = st.Stroke.BlendLab(c, t)
			return o.WithStyle(st)
		}
		return obj
	}
}

// Transform morphs a shape into target, keeping its own index.
func Transform(target *vector.Shape) scene.AnimationFunc {
	return func(obj scene.Object, t float64) scene.Object {
		if o, ok := obj.(*vector.Shape); ok {
			return o.Lerp(target, t)
		}
		return obj
	}
}

// Compose applies fns one after another with the same progress.
func Compose(fns ...scene.AnimationFunc) scene.AnimationFunc {
	return func(obj scene.Object, t float64) scene.Object {
		for _, fn := range fns {
			obj = fn(obj, t)
		}
		return obj
	}
}

// Sequence runs fns one after another, each over an equal share of the
// progress. Finished steps stay at t=1 so their effect is kept.
func Sequence(fns ...scene.AnimationFunc) scene.AnimationFunc {
	return func(obj scene.Object, t float64) scene.Object {
		n := float64(len(fns))
		for i, fn := range fns {
			local := clamp01(t*n - float64(i))
			if local <= 0 && i > 0 {
				break
			}
			obj = fn(obj, local)
		}
		return obj
	}
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
