package source

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ivlev/animscene/internal/system"
)

// Images serves one image file, or the images of a directory in name
// order, as pages. The dpi passed to RenderPage is ignored.
type Images struct {
	name  string
	files []string
}

func OpenImages(path string) (*Images, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return &Images{name: path, files: []string{path}}, nil
	}
	files, err := listImages(path)
	if err != nil {
		return nil, err
	}
	return &Images{name: path, files: files}, nil
}

// listImages returns the image files directly under dir, sorted.
func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.Type().IsRegular() && slices.Contains(system.ImageExts, ext) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	slices.Sort(files)
	return files, nil
}

func (s *Images) PageCount() int { return len(s.files) }

func (s *Images) PageSize(page int) (image.Point, error) {
	var size image.Point
	err := s.decode(page, func(f *os.File) error {
		cfg, _, err := image.DecodeConfig(f)
		size = image.Pt(cfg.Width, cfg.Height)
		return err
	})
	return size, err
}

func (s *Images) RenderPage(page int, _ int) (image.Image, error) {
	var img image.Image
	err := s.decode(page, func(f *os.File) (err error) {
		img, _, err = image.Decode(f)
		return err
	})
	return img, err
}

func (s *Images) decode(page int, fn func(*os.File) error) error {
	if err := pageInRange(s.name, page, len(s.files)); err != nil {
		return err
	}
	f, err := os.Open(s.files[page])
	if err != nil {
		return err
	}
	defer f.Close()
	if err := fn(f); err != nil {
		return fmt.Errorf("decode %s: %w", s.files[page], err)
	}
	return nil
}

func (s *Images) Close() error { return nil }
