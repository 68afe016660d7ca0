// Package source loads raster pictures from PDF pages and image files.
package source

import (
	"fmt"
	"image"
	"sync"

	"github.com/gen2brain/go-fitz"
)

// Source is a paged picture provider: a PDF document or a set of images.
// Pages are 0-based.
type Source interface {
	PageCount() int
	PageSize(page int) (image.Point, error)
	RenderPage(page int, dpi int) (image.Image, error)
	Close() error
}

func pageInRange(name string, page, count int) error {
	if page < 0 || page >= count {
		return fmt.Errorf("%s: page %d out of range (1-%d)", name, page+1, count)
	}
	return nil
}

// PDF renders document pages with MuPDF. The fitz handle is not safe for
// concurrent use, every call takes the lock.
type PDF struct {
	path  string
	pages int

	mu  sync.Mutex
	doc *fitz.Document
}

func OpenPDF(path string) (*PDF, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	return &PDF{path: path, pages: doc.NumPage(), doc: doc}, nil
}

func (p *PDF) PageCount() int { return p.pages }

// PageSize reports the page bounds in points.
func (p *PDF) PageSize(page int) (image.Point, error) {
	if err := pageInRange(p.path, page, p.pages); err != nil {
		return image.Point{}, err
	}
	p.mu.Lock()
	bounds, err := p.doc.Bound(page)
	p.mu.Unlock()
	if err != nil {
		return image.Point{}, fmt.Errorf("%s page %d: %w", p.path, page+1, err)
	}
	return bounds.Size(), nil
}

func (p *PDF) RenderPage(page int, dpi int) (image.Image, error) {
	if err := pageInRange(p.path, page, p.pages); err != nil {
		return nil, err
	}
	p.mu.Lock()
	img, err := p.doc.ImageDPI(page, float64(dpi))
	p.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("render %s page %d: %w", p.path, page+1, err)
	}
	return img, nil
}

func (p *PDF) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.doc.Close()
}
