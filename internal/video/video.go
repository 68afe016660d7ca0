// Package video drives ffmpeg: one process per segment fed raw RGBA frames
// over stdin, and a concat demuxer pass joining segments into the output.
package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/animscene/internal/scene"
	"github.com/ivlev/animscene/internal/system"
)

var ErrNoSegments = errors.New("video: no segments to concatenate")

var (
	_ scene.VideoRenderer = (*FFmpegEncoder)(nil)
	_ scene.Concatenator  = (*FFmpegEncoder)(nil)
)

// FFmpegEncoder encodes segments and joins them with the ffmpeg binary.
type FFmpegEncoder struct {
	Binary    string // defaults to "ffmpeg"
	Encoder   string // h264_videotoolbox, h264_nvenc or libx264
	Quality   int
	AudioPath string  // muxed into the final output when set
	Fade      float64 // seconds of fade in/out on the final output, 0 for none
	TempDir   string  // concat list location, os.TempDir() when empty

	log      *zap.Logger
	poolOnce sync.Once
	pool     *system.ImagePool

	mu     sync.Mutex
	frames map[string]int // frames written per segment path
	fps    int
}

// NewFFmpegEncoder returns an encoder using the given codec and quality. A
// zero quality picks the codec's default.
func NewFFmpegEncoder(encoder string, quality int, log *zap.Logger) *FFmpegEncoder {
	if encoder == "" {
		encoder = "libx264"
	}
	if quality == 0 {
		quality = system.DefaultQuality(encoder)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &FFmpegEncoder{
		Binary:  "ffmpeg",
		Encoder: encoder,
		Quality: quality,
		log:     log,
	}
}

// RenderVideo pulls frames 0..frames-1 from next and encodes them into path.
// A segment of zero frames writes no file and removes one left at path.
func (e *FFmpegEncoder) RenderVideo(ctx context.Context, next scene.FrameFunc, width, height, fps, frames int, path string) error {
	if frames <= 0 {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove stale segment: %w", err)
		}
		e.logger().Debug("empty segment skipped", zap.String("path", path))
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create segment dir: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.binary(), e.buildRenderArgs(width, height, fps, path)...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe error: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe error: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg start error: %w", err)
	}

	var out bytes.Buffer
	var g errgroup.Group
	g.Go(func() error {
		_, err := io.Copy(&out, stderr)
		return err
	})
	g.Go(func() error {
		defer stdin.Close()
		for f := 0; f < frames; f++ {
			img, err := next(f)
			if err != nil {
				cancel()
				return fmt.Errorf("frame %d: %w", f, err)
			}
			if err := e.writeFrame(stdin, img, width, height); err != nil {
				cancel()
				return fmt.Errorf("write frame %d: %w", f, err)
			}
		}
		return nil
	})

	groupErr := g.Wait()
	waitErr := cmd.Wait()
	if groupErr != nil {
		if msg := strings.TrimSpace(out.String()); msg != "" {
			return fmt.Errorf("%w, output: %s", groupErr, msg)
		}
		return groupErr
	}
	if waitErr != nil {
		return fmt.Errorf("ffmpeg wait error: %w, output: %s", waitErr, strings.TrimSpace(out.String()))
	}

	e.recordSegment(path, frames, fps)
	e.logger().Debug("segment encoded",
		zap.String("path", path), zap.Int("frames", frames), zap.String("encoder", e.Encoder))
	return nil
}

func (e *FFmpegEncoder) buildRenderArgs(width, height, fps int, path string) []string {
	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", width, height),
		"-framerate", fmt.Sprintf("%d", fps),
		"-i", "-",
		"-pix_fmt", "yuv420p",
		"-c:v", e.Encoder,
	}
	args = append(args, qualityArgs(e.Encoder, e.Quality)...)
	return append(args, path)
}

func qualityArgs(encoder string, quality int) []string {
	switch encoder {
	case "h264_videotoolbox":
		// VideoToolbox не везде понимает -q:v, задаем битрейт.
		return []string{"-b:v", fmt.Sprintf("%dk", quality*100)}
	case "h264_nvenc":
		return []string{"-cq", fmt.Sprintf("%d", quality)}
	default: // libx264
		return []string{"-crf", fmt.Sprintf("%d", quality), "-preset", "medium"}
	}
}

// writeFrame writes img as width*height*4 bytes of RGBA. Frames of another
// size or pixel layout go through a pooled buffer first.
func (e *FFmpegEncoder) writeFrame(w io.Writer, img image.Image, width, height int) error {
	if img == nil {
		return errors.New("nil frame")
	}
	b := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && rgba.Stride == width*4 && b == image.Rect(0, 0, width, height) {
		_, err := w.Write(rgba.Pix)
		return err
	}

	e.poolOnce.Do(func() { e.pool = system.NewImagePool() })
	buf := e.pool.Get(width, height)
	defer e.pool.Put(buf)
	if b.Dx() == width && b.Dy() == height {
		draw.Draw(buf, buf.Rect, img, b.Min, draw.Src)
	} else {
		draw.ApproxBiLinear.Scale(buf, buf.Rect, img, b, draw.Src, nil)
	}
	_, err := w.Write(buf.Pix)
	return err
}

// Concatenate joins segments into output with the concat demuxer. Only
// segments this encoder wrote are joined; empty plays and files left by
// earlier runs are skipped.
func (e *FFmpegEncoder) Concatenate(ctx context.Context, segments []string, output string) error {
	var existing []string
	for _, p := range segments {
		if !e.recorded(p) {
			e.logger().Debug("segment not written by this run, skipped", zap.String("path", p))
			continue
		}
		if _, err := os.Stat(p); err != nil {
			e.logger().Warn("segment missing, skipped", zap.String("path", p))
			continue
		}
		existing = append(existing, p)
	}
	if len(existing) == 0 {
		return ErrNoSegments
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	listPath, err := e.writeConcatList(existing)
	if err != nil {
		return err
	}
	defer os.Remove(listPath)

	filter := fadeFilter(e.outputDuration(existing), e.Fade)
	cmd := exec.CommandContext(ctx, e.binary(), e.buildConcatArgs(listPath, output, filter)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg concat error: %w, output: %s", err, strings.TrimSpace(string(out)))
	}
	e.logger().Info("video assembled", zap.String("output", output), zap.Int("segments", len(existing)))
	return nil
}

// buildConcatArgs joins with stream copy unless a filter forces a video
// re-encode.
func (e *FFmpegEncoder) buildConcatArgs(listPath, output, filter string) []string {
	args := []string{"-y", "-f", "concat", "-safe", "0", "-i", listPath}
	videoArgs := []string{"-c:v", "copy"}
	if filter != "" {
		videoArgs = e.filterArgs(filter)
	}

	if e.AudioPath == "" {
		if filter == "" {
			return append(args, "-c", "copy", output)
		}
		args = append(args, videoArgs...)
		return append(args, output)
	}

	args = append(args, "-i", e.AudioPath, "-map", "0:v", "-map", "1:a")
	args = append(args, videoArgs...)
	return append(args, "-c:a", "aac", "-shortest", output)
}

func (e *FFmpegEncoder) writeConcatList(segments []string) (string, error) {
	f, err := os.CreateTemp(e.TempDir, "animscene_inputs_*.txt")
	if err != nil {
		return "", fmt.Errorf("create concat list: %w", err)
	}
	defer f.Close()

	for _, p := range segments {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}
		if _, err := fmt.Fprintf(f, "file '%s'\n", strings.ReplaceAll(abs, "'", `'\''`)); err != nil {
			os.Remove(f.Name())
			return "", fmt.Errorf("write concat list: %w", err)
		}
	}
	return f.Name(), nil
}

func (e *FFmpegEncoder) logger() *zap.Logger {
	if e.log == nil {
		return zap.NewNop()
	}
	return e.log
}

func (e *FFmpegEncoder) binary() string {
	if e.Binary == "" {
		return "ffmpeg"
	}
	return e.Binary
}

// RemoveSegments deletes segment files left after a successful join.
func RemoveSegments(segments []string) error {
	var errs []error
	for _, p := range segments {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
