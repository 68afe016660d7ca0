package scene

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Mode selects where playback output goes. It is either Durable or Interactive.
type Mode interface {
	isMode()
}

// Durable writes one video segment per Play call next to Path and joins them
// into Path on Finish.
type Durable struct {
	Path string
}

// Interactive draws frames to a bound Surface in real time.
type Interactive struct{}

func (Durable) isMode()     {}
func (Interactive) isMode() {}

// ModeFor picks Durable for a non-empty output path and Interactive otherwise.
func ModeFor(output string) Mode {
	if output == "" {
		return Interactive{}
	}
	return Durable{Path: output}
}

// SegmentPath names the i-th segment of output: "out.mp4" -> "out_3.mp4".
func SegmentPath(output string, i int) string {
	ext := filepath.Ext(output)
	base := strings.TrimSuffix(output, ext)
	if ext == "" {
		ext = ".mp4"
	}
	return fmt.Sprintf("%s_%d%s", base, i, ext)
}

// SegmentPaths lists the first n segment names of output in ascending order.
func SegmentPaths(output string, n int) []string {
	paths := make([]string, 0, n)
	for i := 0; i < n; i++ {
		paths = append(paths, SegmentPath(output, i))
	}
	return paths
}
