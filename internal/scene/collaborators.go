package scene

import (
	"context"
	"image"
	"time"
)

// Surface is a live drawing target used in interactive mode.
type Surface interface {
	Present(frame image.Image) error
}

// Renderer turns the full object set into a frame. When surface is non-nil the
// frame is also drawn to it.
type Renderer interface {
	RenderAll(objects []Object, width, height int, surface Surface) (image.Image, error)
}

// FrameFunc produces the pixels of the given frame index.
type FrameFunc func(frame int) (image.Image, error)

// VideoRenderer persists a batch of frames as one segment file.
// RenderVideo must call next once per frame index, in order.
type VideoRenderer interface {
	RenderVideo(ctx context.Context, next FrameFunc, width, height, fps, frames int, path string) error
}

// Concatenator joins segment files into the final output.
type Concatenator interface {
	Concatenate(ctx context.Context, segments []string, output string) error
}

// Pacer suspends the calling goroutine between interactive frames.
type Pacer interface {
	Pause(ctx context.Context, d time.Duration) error
}

// TimerPacer paces frames with a timer. Other goroutines (HTTP handlers,
// MQTT callbacks) keep running while a frame waits.
type TimerPacer struct{}

func (TimerPacer) Pause(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
