// Package surface implements live drawing surfaces for interactive scenes:
// a browser viewer over WebSocket, an MQTT publisher and a fan-out.
package surface

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"sync"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/image/draw"

	"github.com/ivlev/animscene/internal/scene"
	"github.com/ivlev/animscene/internal/system"
)

var ErrClosed = errors.New("surface: closed")

// encoder turns frames into PNG payloads, scaled down to a preview width.
type encoder struct {
	previewWidth int
	pool         *system.ImagePool
	png          png.Encoder
}

func newEncoder(previewWidth int) *encoder {
	return &encoder{
		previewWidth: previewWidth,
		pool:         system.NewImagePool(),
		png:          png.Encoder{CompressionLevel: png.BestSpeed},
	}
}

func (e *encoder) encode(img image.Image) ([]byte, error) {
	b := img.Bounds()
	if e.previewWidth > 0 && b.Dx() > e.previewWidth {
		h := b.Dy() * e.previewWidth / b.Dx()
		if h < 1 {
			h = 1
		}
		dst := e.pool.Get(e.previewWidth, h)
		defer e.pool.Put(dst)
		draw.CatmullRom.Scale(dst, dst.Rect, img, b, draw.Src, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := e.png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// dedup remembers the digest of the last payload sent.
type dedup struct {
	mu   sync.Mutex
	last uint64
	seen bool
}

// changed reports whether payload differs from the previous one and records
// it.
func (d *dedup) changed(payload []byte) bool {
	sum := xxhash.Sum64(payload)
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen && sum == d.last {
		return false
	}
	d.last, d.seen = sum, true
	return true
}

// Multi presents each frame to every surface in order. All surfaces see the
// frame even if one fails; the errors are joined.
type Multi []scene.Surface

func (m Multi) Present(frame image.Image) error {
	var errs []error
	for _, s := range m {
		if err := s.Present(frame); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
