package layer

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/zsiec/compositor/frame"
	"github.com/zsiec/compositor/producer"
	"github.com/zsiec/compositor/transform"
)

type fakeProducer struct {
	name      string
	numFrames uint32
	remaining atomic.Int64
	aborted   atomic.Bool
	eofSent   atomic.Bool
}

func newFakeProducer(name string, numFrames uint32) *fakeProducer {
	p := &fakeProducer{name: name, numFrames: numFrames}
	if numFrames != producer.NumFramesInfinite {
		p.remaining.Store(int64(numFrames))
	}
	return p
}

func (p *fakeProducer) Initialize(producer.FrameFactory) {}

func (p *fakeProducer) Receive(ctx context.Context, flags producer.Flags) frame.DrawFrame {
	if p.numFrames != producer.NumFramesInfinite {
		if p.eofSent.Load() {
			return frame.Empty()
		}
		if p.remaining.Add(-1) < 0 {
			p.eofSent.Store(true)
			return frame.EOF()
		}
	}
	return frame.Leaf(frame.Textures{}, transform.Identity(), transform.BlendNormal)
}

func (p *fakeProducer) Call(ctx context.Context, params []string) (string, error) { return "", nil }
func (p *fakeProducer) Info() map[string]any                                      { return map[string]any{"name": p.name} }
func (p *fakeProducer) Print() string                                             { return p.name }
func (p *fakeProducer) NumFrames() uint32                                         { return p.numFrames }
func (p *fakeProducer) Abort()                                                    { p.aborted.Store(true) }

func TestLoadIntoEmptyLayerGoesToStoppedWithoutPreview(t *testing.T) {
	t.Parallel()

	l := New(0, nil)
	l.Load(newFakeProducer("a", producer.NumFramesInfinite), false, 0)

	if l.State() != Stopped {
		t.Errorf("state = %v, want Stopped", l.State())
	}
	df := l.Receive(context.Background(), producer.FlagNone)
	if !df.IsEmpty() {
		t.Error("stopped layer should receive empty")
	}
}

func TestLoadWithPreviewGoesToPaused(t *testing.T) {
	t.Parallel()

	l := New(0, nil)
	l.Load(newFakeProducer("a", producer.NumFramesInfinite), true, 0)

	if l.State() != Paused {
		t.Errorf("state = %v, want Paused", l.State())
	}
}

func TestPlayResumesStoppedForeground(t *testing.T) {
	t.Parallel()

	l := New(0, nil)
	l.Load(newFakeProducer("a", producer.NumFramesInfinite), false, 0)
	l.Play()

	if l.State() != Foreground {
		t.Errorf("state = %v, want Foreground", l.State())
	}
	df := l.Receive(context.Background(), producer.FlagNone)
	if df.IsEmpty() {
		t.Error("playing foreground should deliver a real frame")
	}
}

func TestLoadBackgroundThenPlayPromotesAndDropsPreviousForeground(t *testing.T) {
	t.Parallel()

	l := New(0, nil)
	fg := newFakeProducer("fg", producer.NumFramesInfinite)
	bg := newFakeProducer("bg", producer.NumFramesInfinite)

	l.Load(fg, false, 0)
	l.Play()
	l.Load(bg, false, 0)
	if l.State() != Background {
		t.Fatalf("state after loading background = %v, want Background", l.State())
	}

	l.Play()
	if l.State() != Foreground {
		t.Errorf("state after play = %v, want Foreground", l.State())
	}
	if !fg.aborted.Load() {
		t.Error("previous foreground should be aborted on promotion")
	}
}

func TestPauseRepeatsLastFrame(t *testing.T) {
	t.Parallel()

	l := New(0, nil)
	l.Load(newFakeProducer("a", producer.NumFramesInfinite), false, 0)
	l.Play()
	first := l.Receive(context.Background(), producer.FlagNone)

	l.Pause()
	second := l.Receive(context.Background(), producer.FlagNone)
	third := l.Receive(context.Background(), producer.FlagNone)

	if second.IsEmpty() || third.IsEmpty() {
		t.Fatal("paused layer should keep repeating the last frame, not go empty")
	}
	_ = first
}

func TestStopAbortsForegroundOnce(t *testing.T) {
	t.Parallel()

	l := New(0, nil)
	fg := newFakeProducer("a", producer.NumFramesInfinite)
	l.Load(fg, false, 0)
	l.Play()

	l.Stop()
	l.Stop()

	if !fg.aborted.Load() {
		t.Error("stop should abort the foreground")
	}
	if l.State() != Stopped {
		t.Errorf("state = %v, want Stopped", l.State())
	}
	if df := l.Receive(context.Background(), producer.FlagNone); !df.IsEmpty() {
		t.Error("stopped layer must receive empty")
	}
}

func TestClearReleasesBothProducersAndNoFurtherReceive(t *testing.T) {
	t.Parallel()

	l := New(0, nil)
	fg := newFakeProducer("fg", producer.NumFramesInfinite)
	bg := newFakeProducer("bg", producer.NumFramesInfinite)
	l.Load(fg, false, 0)
	l.Play()
	l.Load(bg, false, 0)

	l.Clear()

	if !fg.aborted.Load() || !bg.aborted.Load() {
		t.Error("clear should abort both foreground and background")
	}
	if l.State() != Empty {
		t.Errorf("state = %v, want Empty", l.State())
	}
	if df := l.Receive(context.Background(), producer.FlagNone); !df.IsEmpty() {
		t.Error("cleared layer must receive empty")
	}
}

func TestEOFWithoutBackgroundTransitionsToStopped(t *testing.T) {
	t.Parallel()

	l := New(0, nil)
	l.Load(newFakeProducer("a", 1), false, 0)
	l.Play()

	first := l.Receive(context.Background(), producer.FlagNone)
	if first.IsEmpty() || first.IsEOF() {
		t.Fatal("first receive should be a real frame")
	}
	second := l.Receive(context.Background(), producer.FlagNone)
	if !second.IsEmpty() {
		t.Error("receive after eof-with-no-background should be empty")
	}
	if l.State() != Stopped {
		t.Errorf("state = %v, want Stopped", l.State())
	}
}

func TestAutoPlayPromotesBeforeExhaustionWithNoEmptyFrames(t *testing.T) {
	t.Parallel()

	l := New(0, nil)
	fg := newFakeProducer("a", 5)
	bg := newFakeProducer("b", producer.NumFramesInfinite)

	l.Load(fg, false, 0)
	l.Play()
	l.Load(bg, false, 5)

	for i := 0; i < 5; i++ {
		df := l.Receive(context.Background(), producer.FlagNone)
		if df.IsEmpty() {
			t.Fatalf("tick %d: unexpected empty frame during auto-play window", i)
		}
	}
	if l.State() != Foreground {
		t.Errorf("state after auto-play promotion = %v, want Foreground", l.State())
	}
	if !fg.aborted.Load() {
		t.Error("producer a should have been aborted on promotion")
	}
}

type panickingProducer struct{ *fakeProducer }

func (p *panickingProducer) Receive(ctx context.Context, flags producer.Flags) frame.DrawFrame {
	panic("simulated producer fault")
}

func TestReceiveRecoversPanickingProducerAndClearsLayer(t *testing.T) {
	t.Parallel()

	l := New(0, nil)
	p := &panickingProducer{fakeProducer: newFakeProducer("bad", producer.NumFramesInfinite)}
	l.Load(p, false, 0)
	l.Play()

	df := l.Receive(context.Background(), producer.FlagNone)
	if !df.IsEmpty() {
		t.Error("receive from a panicking producer should yield the empty sentinel")
	}
	if l.State() != Empty {
		t.Errorf("state after a producer fault = %v, want Empty (cleared)", l.State())
	}
}
