package script

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ivlev/animscene/internal/animation"
	"github.com/ivlev/animscene/internal/scene"
)

// Runner plays scripts on a scene.
type Runner struct {
	Pictures PictureLoader
	Log      *zap.Logger
	// OnStep is called before each timeline step with its position.
	OnStep   func(step, total int)
}

// Run plays s on sc with a default Runner.
func (s *Script) Run(ctx context.Context, sc *scene.Scene, pictures PictureLoader) error {
	r := &Runner{Pictures: pictures}
	return r.Run(ctx, s, sc)
}

// Run builds every object, adds the visible ones to sc in script order and
// plays the timeline. It stops at the first failing step.
func (r *Runner) Run(ctx context.Context, s *Script, sc *scene.Scene) error {
	log := r.Log
	if log == nil {
		log = zap.NewNop()
	}
	if err := s.Validate(); err != nil {
		return err
	}

	built := make(map[int]scene.Object, len(s.Objects))
	for i, o := range s.Objects {
		obj, err := o.Build(r.Pictures)
		if err != nil {
			return fmt.Errorf("object %d (id %d): %w", i, o.ID, err)
		}
		built[o.ID] = obj
	}

	// Script ids to scene indices; they differ when the scene had to
	// reassign an index.
	index := make(map[int]int, len(s.Objects))
	for _, o := range s.Objects {
		if !o.Hidden {
			index[o.ID] = sc.Add(built[o.ID])
		}
	}

	tours := tourPlanner{width: sc.Width(), height: sc.Height()}
	for i, st := range s.Timeline {
		if err := ctx.Err(); err != nil {
			return err
		}
		if r.OnStep != nil {
			r.OnStep(i, len(s.Timeline))
		}

		var err error
		switch {
		case st.Add != nil:
			for _, id := range st.Add {
				if _, ok := index[id]; ok {
					log.Warn("object already in scene", zap.Int("step", i), zap.Int("id", id))
					continue
				}
				index[id] = sc.Add(built[id])
			}
		case st.Remove != nil:
			for _, id := range st.Remove {
				if idx, ok := index[id]; ok {
					sc.Remove(idx)
					delete(index, id)
				}
			}
		case st.Wait != nil:
			err = sc.Wait(ctx, Frames(*st.Wait, sc.FPS()))
		case st.Play != nil:
			err = r.play(ctx, sc, st.Play, index, tours, log.With(zap.Int("step", i)))
		}
		if err != nil {
			return fmt.Errorf("timeline step %d: %w", i, err)
		}
	}
	return nil
}

func (r *Runner) play(ctx context.Context, sc *scene.Scene, p *PlaySpec, index map[int]int, tours tourPlanner, log *zap.Logger) error {
	frames := Frames(p.Duration, sc.FPS())
	if p.Frames != nil {
		frames = *p.Frames
	}
	seconds := float64(frames) / float64(sc.FPS())

	rate, err := animation.Rate(p.Rate)
	if err != nil {
		return err
	}

	funcs := make([]scene.AnimationFunc, 0, len(p.Animations))
	indices := make([]int, 0, len(p.Animations))
	for j, a := range p.Animations {
		idx, ok := index[a.Target]
		if !ok {
			log.Warn("animation target not in scene, skipped", zap.Int("target", a.Target))
			continue
		}
		current := sc.ObjectsFromIndices([]int{idx})
		if len(current) == 0 {
			continue
		}
		fn, err := a.animation(current[0], seconds, tours)
		if err != nil {
			return fmt.Errorf("animation %d: %w", j, err)
		}
		funcs = append(funcs, fn)
		indices = append(indices, idx)
	}

	return sc.Play(ctx, funcs, indices, frames, rate)
}
