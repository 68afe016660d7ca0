package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ivlev/animscene/internal/system"
)

// Report is the outcome of one project run.
type Report struct {
	Build    string
	Script   string
	Frames   int
	Segments int
	Total    time.Duration
	Render   time.Duration // timeline playback, encoding included
	Concat   time.Duration
	Host     system.HostStats
}

// EffectiveFPS is frames per second of wall time.
func (r *Report) EffectiveFPS() float64 {
	if r.Total <= 0 {
		return 0
	}
	return float64(r.Frames) / r.Total.Seconds()
}

func (r *Report) String() string {
	return fmt.Sprintf(
		"--- [PERFORMANCE REPORT] ---\n"+
			"Build: %s\n"+
			"Total Time: %.2fs\n"+
			"Playback: %.2fs\n"+
			"Concatenation: %.2fs\n"+
			"Frames: %d | Segments: %d\n"+
			"Effective FPS: %.2f\n"+
			"Host: %s\n"+
			"----------------------------\n",
		r.Build, r.Total.Seconds(), r.Render.Seconds(), r.Concat.Seconds(),
		r.Frames, r.Segments, r.EffectiveFPS(), r.Host,
	)
}

// Append adds a one-line entry to the benchmark log at path.
func (r *Report) Append(path string) error {
	entry := fmt.Sprintf("[%s] Build: %s | Script: %s | Frames: %d | Segments: %d | Total: %.2fs | Playback: %.2fs | FPS: %.2f\n",
		time.Now().Format("2006-01-02 15:04:05"),
		r.Build,
		filepath.Base(r.Script),
		r.Frames,
		r.Segments,
		r.Total.Seconds(),
		r.Render.Seconds(),
		r.EffectiveFPS(),
	)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(entry); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
