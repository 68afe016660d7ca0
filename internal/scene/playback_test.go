package scene

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func addTen(obj Object, t float64) Object {
	s := obj.(*stub)
	s.value += t * 10
	return s
}

func TestPlayMergeReplacesOnlyTarget(t *testing.T) {
	s, r, _ := newInteractive(t)
	s.Add(&stub{idx: 1, value: 1})
	s.Add(&stub{idx: 2, value: 2})
	s.Add(&stub{idx: 3, value: 3})

	replace := func(obj Object, _ float64) Object {
		return &stub{idx: obj.Index(), value: 200}
	}
	require.NoError(t, s.Play(context.Background(), []AnimationFunc{replace}, []int{2}, 1, Identity))

	objs := s.Objects()
	assert.Equal(t, []int{1, 2, 3}, indices(objs))
	assert.Equal(t, 1.0, objs[0].(*stub).value)
	assert.Equal(t, 200.0, objs[1].(*stub).value)
	assert.Equal(t, 3.0, objs[2].(*stub).value)

	first := r.frames[0]
	assert.Equal(t, []int{1, 2, 3}, indices(first))
	assert.Equal(t, 200.0, first[1].(*stub).value)
}

func TestPlayUsesOriginalSnapshot(t *testing.T) {
	s, r, _ := newInteractive(t)
	s.Add(&stub{idx: 1, value: 0})

	require.NoError(t, s.Play(context.Background(), []AnimationFunc{addTen}, []int{1}, 10, Identity))

	// 10 frames plus the settling frame.
	require.Equal(t, 11, r.calls())
	assert.InDelta(t, 5.0, r.frames[5][0].(*stub).value, 1e-9)
	assert.InDelta(t, 9.0, r.frames[9][0].(*stub).value, 1e-9)
	assert.InDelta(t, 10.0, r.frames[10][0].(*stub).value, 1e-9)
	assert.InDelta(t, 10.0, s.Objects()[0].(*stub).value, 1e-9)
}

func TestPlayAppliesRate(t *testing.T) {
	s, r, _ := newInteractive(t)
	s.Add(&stub{idx: 1})

	square := func(t float64) float64 { return t * t }
	require.NoError(t, s.Play(context.Background(), []AnimationFunc{addTen}, []int{1}, 4, square))

	assert.InDelta(t, 2.5, r.frames[2][0].(*stub).value, 1e-9)
	assert.InDelta(t, 10.0, r.frames[4][0].(*stub).value, 1e-9)
}

func TestPlayPairsFunctionsPositionally(t *testing.T) {
	s, _, _ := newInteractive(t)
	s.Add(&stub{idx: 1})
	s.Add(&stub{idx: 2})

	set := func(v float64) AnimationFunc {
		return func(obj Object, _ float64) Object {
			o := obj.(*stub)
			o.value = v
			return o
		}
	}
	funcs := []AnimationFunc{set(10), set(20), set(30)}
	require.NoError(t, s.Play(context.Background(), funcs, []int{2, 9, 1}, 1, Identity))

	objs := s.Objects()
	assert.Equal(t, 30.0, objs[0].(*stub).value)
	assert.Equal(t, 10.0, objs[1].(*stub).value)
}

func TestPlayZeroDuration(t *testing.T) {
	s, r, p := newInteractive(t)

	require.NoError(t, s.Play(context.Background(), nil, nil, 0, Identity))
	assert.Equal(t, 1, r.calls())
	assert.Empty(t, p.pauses)
	assert.Equal(t, 0, s.CurrentFrame())
}

func TestPlayZeroDurationUsesRateAtZero(t *testing.T) {
	s, _, _ := newInteractive(t)
	s.Add(&stub{idx: 1})

	var seen []float64
	probe := func(obj Object, t float64) Object {
		seen = append(seen, t)
		return obj
	}
	require.NoError(t, s.Play(context.Background(), []AnimationFunc{probe}, []int{1}, 0, func(t float64) float64 { return t + 0.25 }))
	assert.Equal(t, []float64{0.25}, seen)
}

func TestPlayDropsUnmatchedReplacement(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	s, _, _ := newInteractive(t, WithLogger(zap.New(core)))
	s.Add(&stub{idx: 1, value: 1})
	s.Add(&stub{idx: 2, value: 2})

	stray := func(Object, float64) Object { return &stub{idx: 99} }
	require.NoError(t, s.Play(context.Background(), []AnimationFunc{stray}, []int{1}, 3, Identity))

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []int{1, 2}, indices(s.Objects()))
	assert.Equal(t, 1, logs.FilterMessage("animation output dropped, index not in scene").Len())
}

func TestInteractivePacing(t *testing.T) {
	s, r, p := newInteractive(t)

	require.NoError(t, s.Wait(context.Background(), 3))
	assert.Equal(t, 4, r.calls())
	assert.Equal(t, []time.Duration{33 * time.Millisecond, 33 * time.Millisecond, 33 * time.Millisecond}, p.pauses)
	assert.Equal(t, 3, s.CurrentFrame())
	assert.Equal(t, 0, s.SegmentCount())
	for _, surf := range r.surf {
		assert.NotNil(t, surf)
	}
}

func TestInteractiveRequiresSurface(t *testing.T) {
	r := &recordingRenderer{}
	s, err := New(10, 10, 30, Interactive{}, WithRenderer(r), WithPacer(&countingPacer{}))
	require.NoError(t, err)

	err = s.Wait(context.Background(), 2)
	assert.ErrorIs(t, err, ErrSurfaceNotBound)
	assert.Equal(t, 0, r.calls())
	assert.Equal(t, 0, s.CurrentFrame())

	s.BindSurface(nopSurface{})
	require.NoError(t, s.Wait(context.Background(), 2))
	assert.Equal(t, 2, s.CurrentFrame())
}

func TestInteractivePacingCancelled(t *testing.T) {
	r := &recordingRenderer{}
	s, err := New(10, 10, 30, Interactive{}, WithRenderer(r), WithSurface(nopSurface{}))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = s.Wait(ctx, 5)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, s.CurrentFrame())
}

func TestTimerPacerWaits(t *testing.T) {
	const d = 20 * time.Millisecond
	start := time.Now()
	require.NoError(t, TimerPacer{}.Pause(context.Background(), d))
	assert.GreaterOrEqual(t, time.Since(start), d)
}

func TestInteractiveRealTime(t *testing.T) {
	r := &recordingRenderer{}
	s, err := New(10, 10, 100, Interactive{}, WithRenderer(r), WithSurface(nopSurface{}))
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, s.Wait(context.Background(), 3))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond, "3 frames at 10ms")
}

// cancelAfter cancels its context on the n-th pause.
type cancelAfter struct {
	n      int
	cancel context.CancelFunc
}

func (p *cancelAfter) Pause(ctx context.Context, _ time.Duration) error {
	p.n--
	if p.n == 0 {
		p.cancel()
	}
	return ctx.Err()
}

func TestInteractiveCancelKeepsLastFrame(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := &recordingRenderer{}
	s, err := New(10, 10, 30, Interactive{}, WithRenderer(r), WithSurface(nopSurface{}),
		WithPacer(&cancelAfter{n: 3, cancel: cancel}))
	require.NoError(t, err)
	s.Add(&stub{idx: 1})

	err = s.Play(ctx, []AnimationFunc{addTen}, []int{1}, 10, Identity)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, r.calls())
	assert.Equal(t, 0, s.CurrentFrame())
	assert.InDelta(t, 2.0, s.Objects()[0].(*stub).value, 1e-9, "state of frame 2")
}

func TestDurableBookkeeping(t *testing.T) {
	s, r, v, _ := newDurable(t)
	s.Add(&stub{idx: 1})

	ctx := context.Background()
	require.NoError(t, s.Play(ctx, []AnimationFunc{addTen}, []int{1}, 5, Identity))
	assert.Equal(t, 1, s.SegmentCount())
	assert.Equal(t, 5, s.CurrentFrame())
	assert.Equal(t, 6, r.calls())

	require.NoError(t, s.Wait(ctx, 0))
	assert.Equal(t, 2, s.SegmentCount())
	assert.Equal(t, 5, s.CurrentFrame())

	require.NoError(t, s.Wait(ctx, 7))
	assert.Equal(t, 3, s.SegmentCount())
	assert.Equal(t, 12, s.CurrentFrame())

	assert.Equal(t, []string{"out/movie_0.mp4", "out/movie_1.mp4", "out/movie_2.mp4"}, v.paths)
	assert.InDelta(t, 10.0, s.Objects()[0].(*stub).value, 1e-9)
}

func TestDurableRendersWithoutSurface(t *testing.T) {
	s, r, _, _ := newDurable(t)
	require.NoError(t, s.Wait(context.Background(), 2))
	for _, surf := range r.surf {
		assert.Nil(t, surf)
	}
}

func TestDurableVideoFailureLeavesCounters(t *testing.T) {
	s, _, v, _ := newDurable(t)
	require.NoError(t, s.Wait(context.Background(), 2))

	v.err = errors.New("disk full")
	err := s.Wait(context.Background(), 4)
	require.Error(t, err)
	assert.ErrorIs(t, err, v.err)
	assert.Equal(t, 1, s.SegmentCount())
	assert.Equal(t, 2, s.CurrentFrame())
}

func TestRenderFailurePropagates(t *testing.T) {
	s, r, _ := newInteractive(t)
	r.err = errors.New("raster broke")

	err := s.Wait(context.Background(), 3)
	assert.ErrorIs(t, err, r.err)
	assert.Equal(t, 0, s.CurrentFrame())
}

func TestMissingCollaborators(t *testing.T) {
	s, err := New(10, 10, 30, Durable{Path: "a.mp4"})
	require.NoError(t, err)

	assert.ErrorIs(t, s.Wait(context.Background(), 1), ErrMissingCollaborator)
	assert.ErrorIs(t, s.Finish(context.Background()), ErrMissingCollaborator)
}

func TestFinish(t *testing.T) {
	s, _, _, c := newDurable(t)
	ctx := context.Background()

	require.NoError(t, s.Finish(ctx))
	require.Len(t, c.segments, 1)
	assert.Empty(t, c.segments[0])

	require.NoError(t, s.Wait(ctx, 1))
	require.NoError(t, s.Wait(ctx, 1))
	require.NoError(t, s.Finish(ctx))
	require.NoError(t, s.Finish(ctx))

	assert.Equal(t, []string{"out/movie_0.mp4", "out/movie_1.mp4"}, c.segments[2])
	assert.Equal(t, "out/movie.mp4", c.output)
	assert.Equal(t, 2, s.SegmentCount())
	assert.Equal(t, 2, s.CurrentFrame())
}

func TestFinishInteractive(t *testing.T) {
	s, _, _ := newInteractive(t)
	assert.ErrorIs(t, s.Finish(context.Background()), ErrNotDurable)
}

func TestCountersNeverDecrease(t *testing.T) {
	s, _, v, _ := newDurable(t)
	s.Add(&stub{idx: 1})
	ctx := context.Background()

	lastFrame, lastSegments := 0, 0
	for i, frames := range []int{3, 0, 1, 4, 2} {
		if i == 3 {
			v.err = errors.New("encoder crashed")
		} else {
			v.err = nil
		}
		_ = s.Play(ctx, []AnimationFunc{addTen}, []int{1}, frames, Identity)
		_ = s.Finish(ctx)

		assert.GreaterOrEqual(t, s.CurrentFrame(), lastFrame)
		assert.GreaterOrEqual(t, s.SegmentCount(), lastSegments)
		lastFrame, lastSegments = s.CurrentFrame(), s.SegmentCount()
	}
	assert.Equal(t, 6, s.CurrentFrame())
	assert.Equal(t, 4, s.SegmentCount())
}

func TestConcurrentPlaysSerialise(t *testing.T) {
	s, _, _ := newInteractive(t)
	s.Add(&stub{idx: 1})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Play(context.Background(), []AnimationFunc{addTen}, []int{1}, 5, Identity))
		}()
	}
	wg.Wait()

	assert.Equal(t, 40, s.CurrentFrame())
	assert.Equal(t, 1, s.Len())
}
