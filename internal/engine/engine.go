// Package engine wires a script, a scene and its collaborators into one
// project run.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"go.uber.org/zap"

	"github.com/ivlev/animscene/internal/config"
	"github.com/ivlev/animscene/internal/raster"
	"github.com/ivlev/animscene/internal/scene"
	"github.com/ivlev/animscene/internal/script"
	"github.com/ivlev/animscene/internal/source"
	"github.com/ivlev/animscene/internal/surface"
	"github.com/ivlev/animscene/internal/system"
	"github.com/ivlev/animscene/internal/video"
)

var ErrNoSurfaces = errors.New("engine: live mode without surfaces")

// Encoder writes segments and joins them.
type Encoder interface {
	scene.VideoRenderer
	scene.Concatenator
}

type Project struct {
	Config *config.Config
	Log    *zap.Logger
	Out    io.Writer // console progress, os.Stdout when nil

	Encoder  Encoder         // ffmpeg when nil
	Surfaces []scene.Surface // added to the configured live surfaces
	Pacer    scene.Pacer     // real time when nil

	BenchmarkPath string // "benchmark.log" when empty
}

func NewProject(cfg *config.Config, log *zap.Logger) *Project {
	if log == nil {
		log = zap.NewNop()
	}
	return &Project{Config: cfg, Log: log}
}

// Run plays the configured script. In video mode the segments are joined
// into the output file and removed unless KeepSegments is set.
func (p *Project) Run(ctx context.Context) (*Report, error) {
	startTime := time.Now()
	cfg := p.Config
	log := p.logger()
	out := p.out()

	s, err := script.ReadScript(cfg.ScriptPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения сценария: %w", err)
	}
	applyCanvas(cfg, s.Canvas)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	bg, err := colorful.Hex(cfg.Background)
	if err != nil {
		return nil, fmt.Errorf("цвет фона %q: %w", cfg.Background, err)
	}
	renderer := raster.New(bg)
	defer renderer.Close()

	opts := []scene.Option{scene.WithLogger(log), scene.WithRenderer(renderer)}
	if p.Pacer != nil {
		opts = append(opts, scene.WithPacer(p.Pacer))
	}

	output := cfg.OutputVideo
	if cfg.Mode == config.ModeLive {
		output = ""
	}
	mode := scene.ModeFor(output)
	switch m := mode.(type) {
	case scene.Interactive:
		surf, closeSurfaces, err := p.openSurfaces()
		if err != nil {
			return nil, err
		}
		defer closeSurfaces()
		opts = append(opts, scene.WithSurface(surf))
	case scene.Durable:
		enc := p.encoder()
		opts = append(opts, scene.WithVideo(enc), scene.WithConcatenator(enc))
		if err := os.MkdirAll(filepath.Dir(m.Path), 0o755); err != nil {
			return nil, err
		}
	}

	sc, err := scene.New(cfg.Width, cfg.Height, cfg.FPS, mode, opts...)
	if err != nil {
		return nil, err
	}

	loader := source.NewLoader(p.picturesDir(), cfg.DPI)
	defer loader.Close()

	fmt.Fprintln(out, "--- [PROJECT: ANIMSCENE] ---")
	fmt.Fprintf(out, "[*] Сценарий: %s | Объектов: %d | Шагов: %d\n", cfg.ScriptPath, len(s.Objects), len(s.Timeline))
	fmt.Fprintf(out, "[*] Разрешение: %dx%d @ %d FPS | Режим: %s\n", cfg.Width, cfg.Height, cfg.FPS, cfg.Mode)
	fmt.Fprintln(out, "-----------------------------")

	runner := &script.Runner{
		Pictures: loader,
		Log:      log,
		OnStep: func(step, total int) {
			fmt.Fprintf(out, "[>] Шаг %d/%d\n", step+1, total)
		},
	}

	report := &Report{Build: cfg.BuildVersion, Script: cfg.ScriptPath}
	renderStart := time.Now()
	if err := runner.Run(ctx, s, sc); err != nil {
		return nil, fmt.Errorf("ошибка воспроизведения: %w", err)
	}
	report.Render = time.Since(renderStart)
	report.Frames = sc.CurrentFrame()
	report.Segments = sc.SegmentCount()

	if _, ok := mode.(scene.Durable); ok {
		fmt.Fprintln(out, "[*] Сборка финального видео...")
		concatStart := time.Now()
		if err := sc.Finish(ctx); err != nil {
			return nil, fmt.Errorf("ошибка сборки финального видео: %w", err)
		}
		report.Concat = time.Since(concatStart)

		if !cfg.KeepSegments {
			if err := video.RemoveSegments(scene.SegmentPaths(cfg.OutputVideo, sc.SegmentCount())); err != nil {
				log.Warn("segments not removed", zap.Error(err))
			}
		}
	}

	report.Total = time.Since(startTime)
	if report.Host, err = system.CollectHostStats(); err != nil {
		log.Debug("host stats incomplete", zap.Error(err))
	}

	if cfg.ShowStats {
		fmt.Fprint(out, report.String())
		if err := report.Append(p.benchmarkPath()); err != nil {
			fmt.Fprintf(out, "[!] Не удалось записать benchmark.log: %v\n", err)
		}
	}
	return report, nil
}

// applyCanvas lets the script pin its own format.
func applyCanvas(cfg *config.Config, c script.Canvas) {
	if c.Width > 0 && c.Height > 0 {
		cfg.Width, cfg.Height = c.Width, c.Height
	}
	if c.FPS > 0 {
		cfg.FPS = c.FPS
	}
	if c.Background != "" {
		cfg.Background = c.Background
	}
}

func (p *Project) openSurfaces() (scene.Surface, func(), error) {
	cfg := p.Config
	log := p.logger()
	surfaces := append(surface.Multi(nil), p.Surfaces...)
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.Listen != "" {
		ws := surface.NewWebSocket(cfg.PreviewWidth, log)
		addr, err := ws.Start(cfg.Listen)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = ws.Close(ctx)
		})
		surfaces = append(surfaces, ws)
		fmt.Fprintf(p.out(), "[*] Просмотр: http://%s/\n", addr)
	}

	if cfg.MQTT != nil {
		mcfg := *cfg.MQTT
		if mcfg.PreviewWidth == 0 {
			mcfg.PreviewWidth = cfg.PreviewWidth
		}
		m, err := surface.DialMQTT(mcfg, log)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		closers = append(closers, m.Close)
		surfaces = append(surfaces, m)
		fmt.Fprintf(p.out(), "[*] MQTT: %s -> %s\n", mcfg.URL, mcfg.Topic)
	}

	switch len(surfaces) {
	case 0:
		return nil, nil, ErrNoSurfaces
	case 1:
		return surfaces[0], closeAll, nil
	default:
		return surfaces, closeAll, nil
	}
}

func (p *Project) encoder() Encoder {
	if p.Encoder != nil {
		return p.Encoder
	}
	cfg := p.Config
	enc := video.NewFFmpegEncoder(cfg.VideoEncoder, cfg.Quality, p.logger())
	enc.AudioPath = cfg.AudioPath
	enc.Fade = cfg.FadeDuration
	return enc
}

func (p *Project) picturesDir() string {
	if p.Config.PicturesDir != "" {
		return p.Config.PicturesDir
	}
	return filepath.Dir(p.Config.ScriptPath)
}

func (p *Project) benchmarkPath() string {
	if p.BenchmarkPath != "" {
		return p.BenchmarkPath
	}
	return "benchmark.log"
}

func (p *Project) logger() *zap.Logger {
	if p.Log == nil {
		return zap.NewNop()
	}
	return p.Log
}

func (p *Project) out() io.Writer {
	if p.Out == nil {
		return os.Stdout
	}
	return p.Out
}
