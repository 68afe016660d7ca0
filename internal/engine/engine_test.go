package engine

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ivlev/animscene/internal/config"
	"github.com/ivlev/animscene/internal/scene"
	"github.com/ivlev/animscene/internal/script"
)

const testScript = `
version: "1"
canvas:
  width: 64
  height: 36
  fps: 10
  background: "#202020"
objects:
  - id: 1
    kind: rectangle
    x: 2
    y: 2
    w: 10
    h: 10
    fill: "#ff8800"
timeline:
  - play:
      duration: 0.5
      animations:
        - target: 1
          shift: {x: 30, y: 10}
  - wait: 0.3
`

type fakeEncoder struct {
	mu       sync.Mutex
	segments []string
	frames   []int
	joined   []string
	output   string
}

func (e *fakeEncoder) RenderVideo(_ context.Context, next scene.FrameFunc, _, _, _, frames int, path string) error {
	for f := 0; f < frames; f++ {
		if _, err := next(f); err != nil {
			return err
		}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.segments = append(e.segments, path)
	e.frames = append(e.frames, frames)
	return nil
}

func (e *fakeEncoder) Concatenate(_ context.Context, segments []string, output string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.joined = segments
	e.output = output
	return nil
}

type countingSurface struct {
	mu     sync.Mutex
	frames int
}

func (s *countingSurface) Present(image.Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames++
	return nil
}

type nopPacer struct{}

func (nopPacer) Pause(context.Context, time.Duration) error { return nil }

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRunVideo(t *testing.T) {
	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "demo.yaml")
	writeFile(t, scriptPath, testScript)

	cfg := config.Default()
	cfg.ScriptPath = scriptPath
	cfg.OutputVideo = filepath.Join(dir, "out", "demo.mp4")
	cfg.ShowStats = true
	cfg.BuildVersion = "test"

	enc := &fakeEncoder{}
	var console bytes.Buffer
	p := NewProject(cfg, nil)
	p.Encoder = enc
	p.Out = &console
	p.BenchmarkPath = filepath.Join(dir, "benchmark.log")

	report, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if cfg.Width != 64 || cfg.FPS != 10 || cfg.Background != "#202020" {
		t.Errorf("script canvas not applied: %dx%d@%d %s", cfg.Width, cfg.Height, cfg.FPS, cfg.Background)
	}
	if report.Frames != 8 || report.Segments != 2 {
		t.Errorf("report frames=%d segments=%d, want 8 and 2", report.Frames, report.Segments)
	}
	if len(enc.frames) != 2 || enc.frames[0] != 5 || enc.frames[1] != 3 {
		t.Errorf("segment frames = %v", enc.frames)
	}
	if enc.output != cfg.OutputVideo || len(enc.joined) != 2 {
		t.Errorf("joined %v into %q", enc.joined, enc.output)
	}
	if _, err := os.Stat(filepath.Dir(cfg.OutputVideo)); err != nil {
		t.Errorf("output dir not created: %v", err)
	}

	if !strings.Contains(console.String(), "[>] Шаг 2/2") {
		t.Errorf("console lacks step progress:\n%s", console.String())
	}
	if !strings.Contains(console.String(), "PERFORMANCE REPORT") {
		t.Error("stats requested but report not printed")
	}
	data, err := os.ReadFile(p.BenchmarkPath)
	if err != nil {
		t.Fatalf("benchmark log: %v", err)
	}
	if !strings.Contains(string(data), "Build: test | Script: demo.yaml | Frames: 8") {
		t.Errorf("unexpected benchmark entry %q", data)
	}
}

func TestRunLive(t *testing.T) {
	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "demo.yaml")
	writeFile(t, scriptPath, testScript)

	cfg := config.Default()
	cfg.ScriptPath = scriptPath
	cfg.Mode = config.ModeLive
	cfg.Listen = ""

	surf := &countingSurface{}
	p := NewProject(cfg, nil)
	p.Surfaces = []scene.Surface{surf}
	p.Pacer = nopPacer{}
	p.Out = &bytes.Buffer{}

	report, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Segments != 0 {
		t.Errorf("live mode wrote %d segments", report.Segments)
	}
	// 5 + 1 settling, 3 + 1 settling.
	if surf.frames != 10 {
		t.Errorf("presented %d frames, want 10", surf.frames)
	}
}

func TestRunLiveWithoutSurfaces(t *testing.T) {
	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "demo.yaml")
	writeFile(t, scriptPath, testScript)

	cfg := config.Default()
	cfg.ScriptPath = scriptPath
	cfg.Mode = config.ModeLive
	cfg.Listen = ""

	p := NewProject(cfg, nil)
	p.Out = &bytes.Buffer{}
	if _, err := p.Run(context.Background()); !errors.Is(err, ErrNoSurfaces) {
		t.Errorf("expected ErrNoSurfaces, got %v", err)
	}
}

func TestRunBadScript(t *testing.T) {
	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "bad.yaml")
	writeFile(t, scriptPath, "timeline:\n  - remove: [3]\n")

	cfg := config.Default()
	cfg.ScriptPath = scriptPath
	cfg.OutputVideo = filepath.Join(dir, "out.mp4")

	p := NewProject(cfg, nil)
	p.Encoder = &fakeEncoder{}
	p.Out = &bytes.Buffer{}
	if _, err := p.Run(context.Background()); !errors.Is(err, script.ErrInvalidScript) {
		t.Errorf("expected ErrInvalidScript, got %v", err)
	}
}

func writePage(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 128, 72))
	for y := 0; y < 72; y++ {
		for x := 0; x < 128; x++ {
			img.Set(x, y, color.White)
		}
	}
	for y := 20; y < 50; y++ {
		for x := 30; x < 90; x++ {
			img.Set(x, y, color.Black)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestGenerateScript(t *testing.T) {
	dir := t.TempDir()
	pages := filepath.Join(dir, "pages")
	if err := os.Mkdir(pages, 0o755); err != nil {
		t.Fatal(err)
	}
	writePage(t, filepath.Join(pages, "01.png"))
	writePage(t, filepath.Join(pages, "02.png"))

	cfg := config.Default()
	cfg.Width, cfg.Height, cfg.FPS = 64, 36, 10
	cfg.InputPath = pages
	cfg.ScriptOutput = filepath.Join(dir, "scripts", "slides.yaml")
	cfg.PageDuration = 1
	cfg.FadeDuration = 0.2

	p := NewProject(cfg, nil)
	p.Out = &bytes.Buffer{}
	path, err := p.GenerateScript()
	if err != nil {
		t.Fatalf("GenerateScript: %v", err)
	}

	sc, err := script.ReadScript(path)
	if err != nil {
		t.Fatalf("generated script does not read back: %v", err)
	}
	if len(sc.Objects) != 2 || sc.Objects[0].Hidden || !sc.Objects[1].Hidden {
		t.Fatalf("unexpected objects %+v", sc.Objects)
	}
	if o := sc.Objects[0]; o.W != 64 || o.H != 36 || o.X != 0 {
		t.Errorf("page not fitted to canvas: %+v", o)
	}
	// play, add, fade, remove, play
	if len(sc.Timeline) != 5 {
		t.Fatalf("timeline has %d steps", len(sc.Timeline))
	}
	if sc.Timeline[2].Play == nil || !sc.Timeline[2].Play.Animations[0].FadeIn {
		t.Errorf("step 2 is not the fade: %+v", sc.Timeline[2])
	}
	if len(sc.Timeline[0].Play.Animations[0].Keyframes) < 2 {
		t.Error("first page has no tour keyframes")
	}

	// The generated script plays on its own.
	cfg.ScriptPath = path
	cfg.OutputVideo = filepath.Join(dir, "slides.mp4")
	enc := &fakeEncoder{}
	p.Encoder = enc
	report, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run generated script: %v", err)
	}
	if report.Segments != 3 {
		t.Errorf("segments = %d, want 3", report.Segments)
	}
}

func TestPageDurations(t *testing.T) {
	const total, fade, count = 100.0, 0.5, 10
	durations := pageDurations(total, fade, count, rand.New(rand.NewSource(7)))
	if len(durations) != count {
		t.Fatalf("expected %d durations, got %d", count, len(durations))
	}

	sum := 0.0
	for _, d := range durations {
		sum += d
	}
	expected := total - float64(count-1)*fade
	if math.Abs(sum-expected) > 1e-6 {
		t.Errorf("expected sum %f, got %f", expected, sum)
	}

	for i := 1; i < count; i++ {
		variation := durations[i]/durations[i-1] - 1
		if math.Abs(variation) > 0.1501 {
			t.Errorf("clip %d variation too high: %f", i, variation)
		}
	}

	if pageDurations(10, 0.5, 0, nil) != nil {
		t.Error("no pages must give no durations")
	}
}

func TestFit(t *testing.T) {
	x, y, w, h := fit(100, 100, 160, 90)
	if w != 90 || h != 90 || x != 35 || y != 0 {
		t.Errorf("fit = %v %v %v %v", x, y, w, h)
	}
}
