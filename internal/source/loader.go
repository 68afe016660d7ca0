package source

import (
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// Loader resolves picture references to images. A reference is a file path
// with an optional 1-based page: "slides.pdf#3", "photos/#2", "cover.png".
// Opened sources and rendered pages are cached until Close.
type Loader struct {
	BaseDir string // relative paths are resolved against it
	DPI     int

	mu      sync.Mutex
	sources map[string]Source
	pages   map[string]image.Image
}

// NewLoader returns a Loader rendering PDF pages at dpi.
func NewLoader(baseDir string, dpi int) *Loader {
	if dpi <= 0 {
		dpi = 150
	}
	return &Loader{
		BaseDir: baseDir,
		DPI:     dpi,
		sources: make(map[string]Source),
		pages:   make(map[string]image.Image),
	}
}

// ParseRef splits a reference into path and 0-based page index. The page
// follows the last '#', so paths may contain '#' themselves.
func ParseRef(ref string) (string, int, error) {
	path, page := ref, ""
	if i := strings.LastIndex(ref, "#"); i >= 0 && !strings.ContainsAny(ref[i+1:], `/\`) {
		path, page = ref[:i], ref[i+1:]
	}
	if path == "" {
		return "", 0, fmt.Errorf("empty picture reference %q", ref)
	}
	if path == ref {
		return path, 0, nil
	}
	n, err := strconv.Atoi(page)
	if err != nil || n < 1 {
		return "", 0, fmt.Errorf("picture reference %q: page must be a positive number", ref)
	}
	return path, n - 1, nil
}

// Load returns the image ref points at.
func (l *Loader) Load(ref string) (image.Image, error) {
	path, page, err := ParseRef(ref)
	if err != nil {
		return nil, err
	}
	if l.BaseDir != "" && !filepath.IsAbs(path) {
		path = filepath.Join(l.BaseDir, path)
	}
	key := fmt.Sprintf("%s#%d", path, page)

	l.mu.Lock()
	defer l.mu.Unlock()

	if img, ok := l.pages[key]; ok {
		return img, nil
	}
	src, err := l.source(path)
	if err != nil {
		return nil, err
	}
	img, err := src.RenderPage(page, l.DPI)
	if err != nil {
		return nil, err
	}
	l.pages[key] = img
	return img, nil
}

func (l *Loader) source(path string) (Source, error) {
	if src, ok := l.sources[path]; ok {
		return src, nil
	}
	src, err := Open(path)
	if err != nil {
		return nil, err
	}
	l.sources[path] = src
	return src, nil
}

// Close closes every opened source and drops the page cache.
func (l *Loader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	var errs []error
	for path, src := range l.sources {
		if err := src.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", path, err))
		}
	}
	l.sources = make(map[string]Source)
	l.pages = make(map[string]image.Image)
	return errors.Join(errs...)
}

// Open picks a PDF or image source by extension.
func Open(path string) (Source, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return OpenPDF(path)
	}
	return OpenImages(path)
}
