package animation

import (
	"sort"

	"github.com/fogleman/ease"

	"github.com/ivlev/animscene/internal/scene"
	"github.com/ivlev/animscene/internal/vector"
)

// Keyframe pins an offset and zoom at a point of the animation.
type Keyframe struct {
	At     float64      `yaml:"at"`     // progress in [0,1]
	Offset vector.Point `yaml:"offset"` // displacement from the snapshot position
	Zoom   float64      `yaml:"zoom"`   // 1.0 = snapshot size
}

// CameraState is the offset and zoom between two keyframes.
type CameraState struct {
	Offset vector.Point
	Zoom   float64
}

// Interpolate finds the state at t. Segments between keyframes are eased
// with InOutCubic; before the first and after the last keyframe the end
// values hold.
func Interpolate(keyframes []Keyframe, t float64) CameraState {
	if len(keyframes) == 0 {
		return CameraState{Zoom: 1}
	}

	first, last := keyframes[0], keyframes[len(keyframes)-1]
	if t <= first.At {
		return stateOf(first)
	}
	if t >= last.At {
		return stateOf(last)
	}

	var prev, next Keyframe
	for i := 0; i < len(keyframes)-1; i++ {
		if t >= keyframes[i].At && t < keyframes[i+1].At {
			prev, next = keyframes[i], keyframes[i+1]
			break
		}
	}

	span := next.At - prev.At
	if span == 0 {
		return stateOf(next)
	}
	local := ease.InOutCubic((t - prev.At) / span)

	a, b := stateOf(prev), stateOf(next)
	return CameraState{
		Offset: a.Offset.Lerp(b.Offset, local),
		Zoom:   lerp(a.Zoom, b.Zoom, local),
	}
}

func stateOf(kf Keyframe) CameraState {
	zoom := kf.Zoom
	if zoom == 0 {
		zoom = 1
	}
	return CameraState{Offset: kf.Offset, Zoom: zoom}
}

// Keyframes moves and zooms an object along a keyframe path. Keyframes are
// sorted by At; the input slice is not modified.
func Keyframes(keyframes []Keyframe) scene.AnimationFunc {
	kfs := append([]Keyframe(nil), keyframes...)
	sort.SliceStable(kfs, func(i, j int) bool { return kfs[i].At < kfs[j].At })

	return func(obj scene.Object, t float64) scene.Object {
		st := Interpolate(kfs, t)
		switch o := obj.(type) {
		case *vector.Shape:
			return o.Scale(st.Zoom, o.Center()).Translate(st.Offset.X, st.Offset.Y)
		case *vector.Picture:
			c := o.Center()
			o.W *= st.Zoom
			o.H *= st.Zoom
			o.X = c.X - o.W/2 + st.Offset.X
			o.Y = c.Y - o.H/2 + st.Offset.Y
			return o
		}
		return obj
	}
}
