// Package stage implements the ordered collection of layers and their
// tweened transforms, and the per-tick protocol that pulls every layer
// in parallel and assembles a FrameBundle for the mixer (spec §4.3).
package stage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/zsiec/compositor/executor"
	"github.com/zsiec/compositor/layer"
	"github.com/zsiec/compositor/producer"
	"github.com/zsiec/compositor/transform"
	"github.com/zsiec/compositor/videoformat"
)

// Stage owns layer_index → Layer and layer_index → tweened FrameTransform,
// both mutated only from the stage's own executor (Design Note "PIMPL
// and private state").
type Stage struct {
	log  *slog.Logger
	exec *executor.Executor

	mu         sync.Mutex
	format     videoformat.Format
	layers     map[int]*layer.Layer
	transforms map[int]*transform.Tweened[transform.FrameTransform]
	factory    producer.FrameFactory
}

// New creates an empty stage for the given output format.
func New(format videoformat.Format, factory producer.FrameFactory, log *slog.Logger) *Stage {
	if log == nil {
		log = slog.Default()
	}
	return &Stage{
		log:        log.With("component", "stage"),
		exec:       executor.New(),
		format:     format,
		layers:     make(map[int]*layer.Layer),
		transforms: make(map[int]*transform.Tweened[transform.FrameTransform]),
		factory:    factory,
	}
}

// Format returns the stage's output video format.
func (s *Stage) Format() videoformat.Format {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.format
}

// SetVideoFormatDesc replaces the output format. Issued like any other
// stage operation (normal priority): it takes effect before the next
// queued tick but does not preempt a tick already running.
func (s *Stage) SetVideoFormatDesc(ctx context.Context, format videoformat.Format) error {
	return s.exec.Invoke(ctx, func() {
		s.mu.Lock()
		s.format = format
		s.mu.Unlock()
	})
}

// layerLocked returns the layer at index, creating it if absent. Caller
// must be running on the stage executor (all callers in this package
// are).
func (s *Stage) layerLocked(index int) *layer.Layer {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.layers[index]
	if !ok {
		l = layer.New(index, s.log)
		l.BindFrameFactory(s.factory)
		s.layers[index] = l
		s.transforms[index] = ptr(transform.NewTweened(transform.Identity()))
	}
	return l
}

func ptr[T any](v T) *T { return &v }

// Info reports a small diagnostic tree: one entry per layer.
func (s *Stage) Info() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	layers := make(map[string]any, len(s.layers))
	for idx, l := range s.layers {
		layers[fmt.Sprintf("%d", idx)] = map[string]any{
			"state": l.State().String(),
		}
	}
	return map[string]any{"format": s.format.Name, "layers": layers}
}

// Abort stops the stage's executor and every layer's producers.
func (s *Stage) Abort() {
	s.mu.Lock()
	layers := make([]*layer.Layer, 0, len(s.layers))
	for _, l := range s.layers {
		layers = append(layers, l)
	}
	s.mu.Unlock()

	for _, l := range layers {
		l.Clear()
	}
	s.exec.Abort()
}
