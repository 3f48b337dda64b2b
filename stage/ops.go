package stage

import (
	"context"
	"fmt"
	"unsafe"

	"github.com/zsiec/compositor/producer"
	"github.com/zsiec/compositor/transform"
)

// Load arms a producer on the layer at index (spec §4.2/§4.3 load op).
func (s *Stage) Load(ctx context.Context, index int, p producer.Producer, preview bool, autoPlayDelta uint32) error {
	return s.exec.Invoke(ctx, func() {
		s.layerLocked(index).Load(p, preview, autoPlayDelta)
	})
}

// Play resumes or promotes the layer at index.
func (s *Stage) Play(ctx context.Context, index int) error {
	return s.exec.Invoke(ctx, func() {
		s.layerLocked(index).Play()
	})
}

// Pause freezes the layer at index.
func (s *Stage) Pause(ctx context.Context, index int) error {
	return s.exec.Invoke(ctx, func() {
		s.layerLocked(index).Pause()
	})
}

// Stop halts the layer at index.
func (s *Stage) Stop(ctx context.Context, index int) error {
	return s.exec.Invoke(ctx, func() {
		s.layerLocked(index).Stop()
	})
}

// Clear releases the layer at index back to empty, and drops its tween.
func (s *Stage) Clear(ctx context.Context, index int) error {
	return s.exec.Invoke(ctx, func() {
		s.layerLocked(index).Clear()
		s.mu.Lock()
		delete(s.layers, index)
		delete(s.transforms, index)
		s.mu.Unlock()
	})
}

// Call issues a producer-specific command to the layer's foreground,
// reaching the producer.Producer.Call capability (spec §4.1/§4.3).
func (s *Stage) Call(ctx context.Context, index int, params []string) (string, error) {
	var out string
	var callErr error
	err := s.exec.Invoke(ctx, func() {
		out, callErr = s.layerLocked(index).Call(ctx, params)
	})
	if err != nil {
		return "", err
	}
	return out, callErr
}

// Foreground reports the layer's foreground producer's Print()/Info()
// introspection, or "" if the layer has none (spec §4.3/§6 foreground
// query, caspar's FOREGROUND).
func (s *Stage) Foreground(ctx context.Context, index int) (string, error) {
	var out string
	err := s.exec.Invoke(ctx, func() {
		out = describeProducer(s.layerLocked(index).ForegroundProducer())
	})
	return out, err
}

// Background reports the layer's armed background producer's
// Print()/Info() introspection, or "" if none is armed (spec §4.3/§6
// background query, caspar's BACKGROUND).
func (s *Stage) Background(ctx context.Context, index int) (string, error) {
	var out string
	err := s.exec.Invoke(ctx, func() {
		out = describeProducer(s.layerLocked(index).BackgroundProducer())
	})
	return out, err
}

func describeProducer(p producer.Producer, ok bool) string {
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s %v", p.Print(), p.Info())
}

// SetTransform replaces the layer's transform tween, animating from its
// current destination to dest over durationFrames using the named
// tweener. Issued at high priority: it precedes any already-queued tick
// (spec §4.3).
func (s *Stage) SetTransform(ctx context.Context, index int, dest transform.FrameTransform, durationFrames int64, tweenerName string) error {
	return s.exec.InvokeHigh(ctx, func() {
		s.layerLocked(index)
		s.mu.Lock()
		cur := s.transforms[index]
		s.transforms[index] = ptr(transform.NewAnimatedTween(cur.Dest(), dest, durationFrames, tweenerName))
		s.mu.Unlock()
	})
}

// ApplyTransform computes a new destination transform from the layer's
// current one via fn, then animates to it like SetTransform.
func (s *Stage) ApplyTransform(ctx context.Context, index int, fn func(transform.FrameTransform) transform.FrameTransform, durationFrames int64, tweenerName string) error {
	return s.exec.InvokeHigh(ctx, func() {
		s.layerLocked(index)
		s.mu.Lock()
		cur := s.transforms[index]
		next := fn(cur.Dest())
		s.transforms[index] = ptr(transform.NewAnimatedTween(cur.Dest(), next, durationFrames, tweenerName))
		s.mu.Unlock()
	})
}

// ClearTransforms resets the layer's tween to Identity immediately.
func (s *Stage) ClearTransforms(ctx context.Context, index int) error {
	return s.exec.InvokeHigh(ctx, func() {
		s.layerLocked(index)
		s.mu.Lock()
		s.transforms[index] = ptr(transform.NewTweened(transform.Identity()))
		s.mu.Unlock()
	})
}

// ClearAllTransforms resets every layer's tween to Identity immediately.
func (s *Stage) ClearAllTransforms(ctx context.Context) error {
	return s.exec.InvokeHigh(ctx, func() {
		s.mu.Lock()
		for idx := range s.transforms {
			s.transforms[idx] = ptr(transform.NewTweened(transform.Identity()))
		}
		s.mu.Unlock()
	})
}

// SwapLayer exchanges the layer and tween entries at indices a and b
// within this stage.
func (s *Stage) SwapLayer(ctx context.Context, a, b int) error {
	return s.exec.Invoke(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.layers[a], s.layers[b] = s.layers[b], s.layers[a]
		s.transforms[a], s.transforms[b] = s.transforms[b], s.transforms[a]
	})
}

// SwapLayers exchanges this stage's entire layer set with other's.
// Acquires both stages' executors in a deterministic address order to
// avoid deadlock against a concurrent reverse swap (spec §4.3). A no-op
// when other is this same stage.
func (s *Stage) SwapLayers(ctx context.Context, other *Stage) error {
	if s == other {
		return nil
	}
	first, second := s, other
	if uintptr(unsafe.Pointer(second)) < uintptr(unsafe.Pointer(first)) {
		first, second = second, first
	}

	return first.exec.Invoke(ctx, func() {
		second.exec.Invoke(ctx, func() {
			s.mu.Lock()
			other.mu.Lock()
			s.layers, other.layers = other.layers, s.layers
			s.transforms, other.transforms = other.transforms, s.transforms
			other.mu.Unlock()
			s.mu.Unlock()
		})
	})
}
