// Package scene owns the authoritative set of renderable objects and drives the
// frame clock that animates them.
//
// A Scene is used by one caller at a time. Play, Wait and Finish hold the scene
// lock for their whole duration, so overlapping calls run one after another.
package scene

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Object is a renderable value identified by an integer index. The scene only
// reads the index; everything else belongs to the renderer and to animations.
type Object interface {
	Index() int
	// WithIndex returns a copy of the object carrying a new index.
	WithIndex(index int) Object
	// Clone returns a deep copy sharing no mutable state with the receiver.
	Clone() Object
}

// AnimationFunc computes an object's state at progress t from the snapshot
// taken before playback started. It must not depend on earlier frames.
type AnimationFunc func(obj Object, t float64) Object

// RateFunc remaps linear progress in [0,1] to eased progress.
type RateFunc func(t float64) float64

// Identity is the linear rate function.
func Identity(t float64) float64 { return t }

type Scene struct {
	mu sync.Mutex

	objects []Object
	width   int
	height  int
	fps     int
	mode    Mode
	surface Surface

	currentFrame int
	segmentCount int

	renderer Renderer
	video    VideoRenderer
	concat   Concatenator
	pacer    Pacer
	log      *zap.Logger
}

// Option configures a Scene at construction.
type Option func(*Scene)

func WithLogger(l *zap.Logger) Option {
	return func(s *Scene) {
		if l != nil {
			s.log = l
		}
	}
}

func WithRenderer(r Renderer) Option {
	return func(s *Scene) { s.renderer = r }
}

func WithVideo(v VideoRenderer) Option {
	return func(s *Scene) { s.video = v }
}

func WithConcatenator(c Concatenator) Option {
	return func(s *Scene) { s.concat = c }
}

func WithPacer(p Pacer) Option {
	return func(s *Scene) {
		if p != nil {
			s.pacer = p
		}
	}
}

// WithSurface binds the live surface up front instead of via BindSurface.
func WithSurface(surf Surface) Option {
	return func(s *Scene) { s.surface = surf }
}

// New creates an empty scene. A nil mode means Interactive.
func New(width, height, fps int, mode Mode, opts ...Option) (*Scene, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("scene: invalid dimensions %dx%d", width, height)
	}
	if fps <= 0 {
		return nil, fmt.Errorf("scene: invalid fps %d", fps)
	}
	if mode == nil {
		mode = Interactive{}
	}
	if d, ok := mode.(Durable); ok && d.Path == "" {
		mode = Interactive{}
	}

	s := &Scene{
		width:  width,
		height: height,
		fps:    fps,
		mode:   mode,
		pacer:  TimerPacer{},
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// BindSurface attaches the live drawing surface used in interactive mode.
func (s *Scene) BindSurface(surf Surface) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.surface = surf
}

// Add stores a copy of obj. If its index is already taken, the copy gets
// max(index)+1 instead. The stored index is returned.
func (s *Scene) Add(obj Object) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := obj.Clone()
	if s.hasIndex(stored.Index()) {
		requested := stored.Index()
		stored = stored.WithIndex(s.maxIndex() + 1)
		s.log.Warn("index collision, object reassigned",
			zap.Int("requested", requested),
			zap.Int("assigned", stored.Index()))
	}
	s.objects = append(s.objects, stored)
	return stored.Index()
}

// Remove drops every object with the given index. Unknown indices are ignored.
func (s *Scene) Remove(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.objects[:0]
	for _, obj := range s.objects {
		if obj.Index() != index {
			kept = append(kept, obj)
		}
	}
	for i := len(kept); i < len(s.objects); i++ {
		s.objects[i] = nil
	}
	s.objects = kept
}

// ObjectsFromIndices returns copies of the objects matching indices, in the
// order requested. Repeated indices repeat; unknown indices are skipped.
func (s *Scene) ObjectsFromIndices(indices []int) []Object {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookup(indices)
}

// Objects returns copies of all objects in registry order.
func (s *Scene) Objects() []Object {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.objects)
}

func (s *Scene) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

func (s *Scene) Width() int  { return s.width }
func (s *Scene) Height() int { return s.height }
func (s *Scene) FPS() int    { return s.fps }
func (s *Scene) Mode() Mode  { return s.mode }

// CurrentFrame is the total number of frames advanced so far.
func (s *Scene) CurrentFrame() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentFrame
}

// SegmentCount is the number of segments written in durable mode.
func (s *Scene) SegmentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.segmentCount
}

func (s *Scene) lookup(indices []int) []Object {
	out := make([]Object, 0, len(indices))
	for _, idx := range indices {
		for _, obj := range s.objects {
			if obj.Index() == idx {
				out = append(out, obj.Clone())
			}
		}
	}
	return out
}

func (s *Scene) hasIndex(index int) bool {
	for _, obj := range s.objects {
		if obj.Index() == index {
			return true
		}
	}
	return false
}

func (s *Scene) maxIndex() int {
	max := 0
	for i, obj := range s.objects {
		if i == 0 || obj.Index() > max {
			max = obj.Index()
		}
	}
	return max
}

func cloneAll(objs []Object) []Object {
	out := make([]Object, len(objs))
	for i, obj := range objs {
		out[i] = obj.Clone()
	}
	return out
}
