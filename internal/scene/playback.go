package scene

import (
	"context"
	"fmt"
	"image"
	"time"

	"go.uber.org/zap"
)

// playback is the state of one Play call: the frozen snapshot paired with the
// animation functions that consume it.
type playback struct {
	scene    *Scene
	funcs    []AnimationFunc
	snapshot []Object
	frames   int
	rate     RateFunc
	dropped  bool
}

// Play animates the objects at indices with funcs over frames frames. The i-th
// function receives a fresh copy of the snapshot of the object at indices[i]
// on every frame, together with rate(f/frames).
//
// In durable mode the frames are written as one segment; in interactive mode
// they are drawn to the bound surface at the scene frame rate. Either way the
// call ends with one extra settling frame at f == frames so the registry holds
// the final state. A collaborator failure aborts the call before the frame and
// segment counters move. Cancelling ctx mid-play stops it the same way and
// leaves the objects at the last rendered frame.
func (s *Scene) Play(ctx context.Context, funcs []AnimationFunc, indices []int, frames int, rate RateFunc) error {
	if frames < 0 {
		return fmt.Errorf("scene: negative duration %d", frames)
	}
	if rate == nil {
		rate = Identity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := &playback{
		scene:    s,
		funcs:    funcs,
		snapshot: s.snapshot(indices),
		frames:   frames,
		rate:     rate,
	}

	switch m := s.mode.(type) {
	case Durable:
		return s.playDurable(ctx, p, m)
	default:
		return s.playInteractive(ctx, p)
	}
}

// Wait re-renders the unchanged scene for frames frames.
func (s *Scene) Wait(ctx context.Context, frames int) error {
	return s.Play(ctx, nil, nil, frames, Identity)
}

// Finish joins every segment written so far into the durable output path.
// It leaves the scene state untouched and may be called repeatedly.
func (s *Scene) Finish(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.mode.(Durable)
	if !ok {
		return ErrNotDurable
	}
	if s.concat == nil {
		return fmt.Errorf("%w: concatenator", ErrMissingCollaborator)
	}

	segments := SegmentPaths(d.Path, s.segmentCount)
	s.log.Info("joining segments",
		zap.Int("segments", len(segments)),
		zap.String("output", d.Path))
	if err := s.concat.Concatenate(ctx, segments, d.Path); err != nil {
		return fmt.Errorf("scene: concatenate %s: %w", d.Path, err)
	}
	return nil
}

func (s *Scene) playDurable(ctx context.Context, p *playback, m Durable) error {
	if s.video == nil {
		return fmt.Errorf("%w: video renderer", ErrMissingCollaborator)
	}

	path := SegmentPath(m.Path, s.segmentCount)
	s.log.Debug("rendering segment",
		zap.String("path", path),
		zap.Int("frames", p.frames),
		zap.Int("start_frame", s.currentFrame))

	if err := s.video.RenderVideo(ctx, p.frame, s.width, s.height, s.fps, p.frames, path); err != nil {
		return fmt.Errorf("scene: render segment %s: %w", path, err)
	}

	s.segmentCount++
	s.currentFrame += p.frames

	if _, err := p.frame(p.frames); err != nil {
		return fmt.Errorf("scene: settle segment %s: %w", path, err)
	}
	return nil
}

func (s *Scene) playInteractive(ctx context.Context, p *playback) error {
	interval := time.Duration(1000/s.fps) * time.Millisecond

	for f := 0; f < p.frames; f++ {
		if _, err := p.frame(f); err != nil {
			return err
		}
		if err := s.pacer.Pause(ctx, interval); err != nil {
			return fmt.Errorf("scene: pacing frame %d: %w", f, err)
		}
	}

	s.currentFrame += p.frames

	_, err := p.frame(p.frames)
	return err
}

// snapshot resolves indices positionally. A slot is nil when its index has no
// object, so the matching animation function is skipped.
func (s *Scene) snapshot(indices []int) []Object {
	out := make([]Object, len(indices))
	for i, idx := range indices {
		for _, obj := range s.objects {
			if obj.Index() == idx {
				out[i] = obj.Clone()
				break
			}
		}
		if out[i] == nil {
			s.log.Warn("animation target not found", zap.Int("index", idx))
		}
	}
	return out
}

func (p *playback) progress(f int) float64 {
	if p.frames == 0 {
		return p.rate(0)
	}
	return p.rate(float64(f) / float64(p.frames))
}

// frame computes, merges and renders frame f. It runs with the scene lock held.
func (p *playback) frame(f int) (image.Image, error) {
	t := p.progress(f)

	candidates := make([]Object, 0, len(p.funcs))
	for i, fn := range p.funcs {
		if i >= len(p.snapshot) || p.snapshot[i] == nil || fn == nil {
			continue
		}
		if next := fn(p.snapshot[i].Clone(), t); next != nil {
			candidates = append(candidates, next)
		}
	}

	if unmatched := p.scene.merge(candidates); unmatched > 0 && !p.dropped {
		p.dropped = true
		p.scene.log.Warn("animation output dropped, index not in scene",
			zap.Int("objects", unmatched),
			zap.Int("frame", f))
	}
	return p.scene.render()
}

// merge replaces every registry entry whose index matches a candidate and
// reports how many candidates matched nothing. Unmatched candidates are not
// added.
func (s *Scene) merge(candidates []Object) int {
	if len(candidates) == 0 {
		return 0
	}

	unmatched := 0
	for _, c := range candidates {
		if !s.hasIndex(c.Index()) {
			unmatched++
		}
	}

	for i, obj := range s.objects {
		for _, c := range candidates {
			if c.Index() == obj.Index() {
				s.objects[i] = c
				break
			}
		}
	}
	return unmatched
}

func (s *Scene) render() (image.Image, error) {
	if s.renderer == nil {
		return nil, fmt.Errorf("%w: renderer", ErrMissingCollaborator)
	}
	if _, live := s.mode.(Interactive); live && s.surface == nil {
		return nil, ErrSurfaceNotBound
	}

	img, err := s.renderer.RenderAll(cloneAll(s.objects), s.width, s.height, s.surface)
	if err != nil {
		return nil, fmt.Errorf("scene: render frame: %w", err)
	}
	return img, nil
}
