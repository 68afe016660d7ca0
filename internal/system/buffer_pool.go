package system

import (
	"image"
	"sync"
)

// ImagePool recycles *image.RGBA frame buffers by size so the render loop
// does not allocate a fresh frame per tick.
type ImagePool struct {
	mu    sync.RWMutex
	pools map[image.Point]*sync.Pool
}

// NewImagePool returns an empty pool.
func NewImagePool() *ImagePool {
	return &ImagePool{pools: make(map[image.Point]*sync.Pool)}
}

// Get returns a w x h buffer anchored at the origin. The contents are
// whatever the previous user left; callers clear or overwrite it.
func (p *ImagePool) Get(w, h int) *image.RGBA {
	return p.poolFor(image.Pt(w, h)).Get().(*image.RGBA)
}

// Put hands a buffer back. Buffers not anchored at the origin are dropped.
func (p *ImagePool) Put(img *image.RGBA) {
	if img == nil || img.Rect.Min != (image.Point{}) {
		return
	}
	size := img.Rect.Size()
	p.mu.RLock()
	pool, ok := p.pools[size]
	p.mu.RUnlock()
	if ok {
		pool.Put(img)
	}
}

func (p *ImagePool) poolFor(size image.Point) *sync.Pool {
	p.mu.RLock()
	pool, ok := p.pools[size]
	p.mu.RUnlock()
	if ok {
		return pool
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	// Double check
	if pool, ok = p.pools[size]; ok {
		return pool
	}
	pool = &sync.Pool{
		New: func() interface{} {
			return image.NewRGBA(image.Rectangle{Max: size})
		},
	}
	p.pools[size] = pool
	return pool
}
