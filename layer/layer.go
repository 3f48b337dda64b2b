// Package layer implements the per-index Layer state machine from
// spec §4.2: a foreground/background producer pair driven through
// load/play/pause/stop/clear, with end-of-media auto-promotion.
package layer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/zsiec/compositor/fault"
	"github.com/zsiec/compositor/frame"
	"github.com/zsiec/compositor/producer"
)

// State names the layer's current position in the state machine.
type State int

const (
	Empty State = iota
	Foreground
	Background
	Paused
	Stopped
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Foreground:
		return "foreground"
	case Background:
		return "background"
	case Paused:
		return "paused"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Layer wraps a foreground producer and an optional armed background
// producer behind a single mutex, matching the teacher's
// mutex-guarded-map-of-state style (internal/stream.Manager) narrowed to
// one slot's state machine instead of a key-indexed registry.
type Layer struct {
	log   *slog.Logger
	Index int

	mu             sync.Mutex
	state          State
	foreground     producer.Producer
	background     producer.Producer
	autoPlayDelta  uint32
	framesReceived uint64
	lastFrame      frame.DrawFrame
	factory        producer.FrameFactory
}

// New creates an empty layer at the given stage index.
func New(index int, log *slog.Logger) *Layer {
	if log == nil {
		log = slog.Default()
	}
	return &Layer{
		log:       log.With("component", "layer", "index", index),
		Index:     index,
		state:     Empty,
		lastFrame: frame.Empty(),
	}
}

// BindFrameFactory records the factory new producers are initialized
// with. Called once by the owning stage before any Load.
func (l *Layer) BindFrameFactory(f producer.FrameFactory) {
	l.mu.Lock()
	l.factory = f
	l.mu.Unlock()
}

func (l *Layer) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Layer) AutoPlayDelta() uint32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.autoPlayDelta
}

func (l *Layer) SetAutoPlayDelta(delta uint32) {
	l.mu.Lock()
	l.autoPlayDelta = delta
	l.mu.Unlock()
}

// ForegroundProducer returns the active foreground producer and whether
// one is loaded, for introspection (stage's foreground(index) query).
func (l *Layer) ForegroundProducer() (producer.Producer, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.foreground, l.foreground != nil
}

// BackgroundProducer returns the armed background producer and whether
// one is loaded, for introspection (stage's background(index) query).
func (l *Layer) BackgroundProducer() (producer.Producer, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.background, l.background != nil
}

// Call forwards params to the foreground producer's Call method,
// reaching the producer.Producer.Call capability (spec §4.1/§4.3).
func (l *Layer) Call(ctx context.Context, params []string) (string, error) {
	l.mu.Lock()
	fg := l.foreground
	l.mu.Unlock()
	if fg == nil {
		return "", fmt.Errorf("layer: no foreground producer loaded")
	}
	return fg.Call(ctx, params)
}

// CurrentProducerFramesLeft reports how many frames the current
// foreground producer has left, mirroring stage.cpp's
// layer::current_producer_frames_left. ok is false when there is no
// foreground or it is an infinite/looping source.
func (l *Layer) CurrentProducerFramesLeft() (left uint32, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.foreground == nil {
		return 0, false
	}
	nb := l.foreground.NumFrames()
	if nb == producer.NumFramesInfinite || uint64(nb) < l.framesReceived {
		return 0, false
	}
	return nb - uint32(l.framesReceived), true
}

// Load arms p as the next producer. If there is no foreground yet, p
// becomes the foreground directly (state Stopped, unless preview, in
// which case the layer holds at Paused; no frame is pulled from p, so
// Receive returns empty until Play). If a
// foreground is already active, p is armed as the background with the
// given auto-play delta.
func (l *Layer) Load(p producer.Producer, preview bool, autoPlayDelta uint32) {
	l.mu.Lock()
	factory := l.factory
	l.mu.Unlock()
	if factory != nil {
		p.Initialize(factory)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.foreground == nil {
		l.foreground = p
		l.framesReceived = 0
		if preview {
			l.state = Paused
		} else {
			l.state = Stopped
		}
		return
	}

	if l.background != nil {
		l.background.Abort()
	}
	l.background = p
	l.autoPlayDelta = autoPlayDelta
	l.state = Background
}

// Play promotes an armed background to foreground, or resumes/starts
// the current foreground if there is no background armed.
func (l *Layer) Play() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.background != nil {
		l.promoteLocked()
		return
	}
	if l.foreground != nil {
		l.state = Foreground
	}
}

// Pause freezes the foreground; Receive will repeat the last frame.
func (l *Layer) Pause() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.foreground != nil {
		l.state = Paused
	}
}

// Stop halts the foreground. Its producer is aborted exactly once on
// the transition into Stopped (spec §3 Layer invariant b).
func (l *Layer) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopLocked()
}

func (l *Layer) stopLocked() {
	if l.state == Stopped {
		return
	}
	if l.foreground != nil {
		l.foreground.Abort()
	}
	l.state = Stopped
	l.lastFrame = frame.Empty()
}

// Clear releases both producers and returns the layer to Empty.
func (l *Layer) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.clearLocked()
}

func (l *Layer) clearLocked() {
	if l.foreground != nil {
		l.foreground.Abort()
		l.foreground = nil
	}
	if l.background != nil {
		l.background.Abort()
		l.background = nil
	}
	l.autoPlayDelta = 0
	l.framesReceived = 0
	l.state = Empty
	l.lastFrame = frame.Empty()
}

// safeReceive calls p.Receive, recovering a panicking producer
// (spec §7's ProducerFatal: "producer raised from receive") into the
// empty sentinel plus a fatal signal, rather than letting one
// misbehaving producer bring down the stage's tick goroutine.
func (l *Layer) safeReceive(ctx context.Context, p producer.Producer, flags producer.Flags) (df frame.DrawFrame, fatal bool) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("producer panicked in receive", "fault", fault.New(fault.ProducerFatal, fmt.Errorf("%v", r)))
			df, fatal = frame.Empty(), true
		}
	}()
	return p.Receive(ctx, flags), false
}

// promoteLocked makes the armed background the new foreground,
// discarding (aborting) the previous foreground. Caller holds l.mu.
func (l *Layer) promoteLocked() {
	if l.foreground != nil {
		l.foreground.Abort()
	}
	l.foreground = l.background
	l.background = nil
	l.autoPlayDelta = 0
	l.framesReceived = 0
	l.state = Foreground
}

// Receive delegates to the active foreground producer, handling
// auto-play promotion and end-of-media per spec §4.2. When the
// foreground reports eof with a background armed, the promoted producer
// is also asked for a frame in the same call.
func (l *Layer) Receive(ctx context.Context, flags producer.Flags) frame.DrawFrame {
	l.mu.Lock()

	switch l.state {
	case Empty, Stopped:
		l.mu.Unlock()
		return frame.Empty()
	case Paused:
		df := l.lastFrame
		l.mu.Unlock()
		return df
	}

	if l.background != nil {
		if left, ok := l.CurrentProducerFramesLeftLocked(); ok && left <= l.autoPlayDelta {
			l.promoteLocked()
		}
	}

	fg := l.foreground
	if fg == nil {
		l.mu.Unlock()
		return frame.Empty()
	}
	l.mu.Unlock()

	df, fatal := l.safeReceive(ctx, fg, flags)

	l.mu.Lock()
	defer l.mu.Unlock()
	if fg != l.foreground {
		// A concurrent control op (stop/clear/play) replaced the
		// foreground while this receive was in flight; drop the stale
		// result rather than caching it against the new state.
		return frame.Empty()
	}
	if fatal {
		l.clearLocked()
		return frame.Empty()
	}

	switch {
	case df.IsEOF():
		if l.background != nil {
			l.promoteLocked()
			df2, fatal2 := l.safeReceive(ctx, l.foreground, flags)
			if fatal2 {
				l.clearLocked()
				return frame.Empty()
			}
			l.framesReceived++
			if !df2.IsEmpty() && !df2.IsEOF() {
				l.lastFrame = df2
			}
			return df2
		}
		l.stopLocked()
		return frame.Empty()
	case df.IsEmpty():
		l.framesReceived++
		return df
	default:
		l.framesReceived++
		l.lastFrame = df
		return df
	}
}

// CurrentProducerFramesLeftLocked is CurrentProducerFramesLeft without
// acquiring l.mu, for use by callers that already hold it.
func (l *Layer) CurrentProducerFramesLeftLocked() (left uint32, ok bool) {
	if l.foreground == nil {
		return 0, false
	}
	nb := l.foreground.NumFrames()
	if nb == producer.NumFramesInfinite || uint64(nb) < l.framesReceived {
		return 0, false
	}
	return nb - uint32(l.framesReceived), true
}
