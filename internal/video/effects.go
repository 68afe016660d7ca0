package video

import "fmt"

// fadeFilter fades the output in from black over fade seconds and out to
// black over the last fade seconds of a total-second video. The fade is
// shortened to half the video when the video is too short for both.
func fadeFilter(total, fade float64) string {
	if fade <= 0 || total <= 0 {
		return ""
	}
	if fade > total/2 {
		fade = total / 2
	}
	return fmt.Sprintf("fade=t=in:st=0:d=%.3f,fade=t=out:st=%.3f:d=%.3f", fade, total-fade, fade)
}

// outputDuration sums the recorded length of segments in seconds.
func (e *FFmpegEncoder) outputDuration(segments []string) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fps <= 0 {
		return 0
	}
	frames := 0
	for _, p := range segments {
		frames += e.frames[p]
	}
	return float64(frames) / float64(e.fps)
}

func (e *FFmpegEncoder) recorded(path string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.frames[path]
	return ok
}

func (e *FFmpegEncoder) recordSegment(path string, frames, fps int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.frames == nil {
		e.frames = make(map[string]int)
	}
	e.frames[path] = frames
	e.fps = fps
}

// filterArgs re-encodes the joined video through filter.
func (e *FFmpegEncoder) filterArgs(filter string) []string {
	args := []string{"-vf", filter, "-pix_fmt", "yuv420p", "-c:v", e.Encoder}
	args = append(args, qualityArgs(e.Encoder, e.Quality)...)
	return args
}
