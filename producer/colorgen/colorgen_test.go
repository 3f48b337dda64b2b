package colorgen

import (
	"context"
	"testing"

	"github.com/zsiec/compositor/frame"
	"github.com/zsiec/compositor/pixfmt"
	"github.com/zsiec/compositor/producer"
	"github.com/zsiec/compositor/transform"
)

type fakeTexture struct{ w, h int }

func (f fakeTexture) Width() int  { return f.w }
func (f fakeTexture) Height() int { return f.h }
func (f fakeTexture) Ready() bool { return true }

type fakeFactory struct{ calls int }

func (f *fakeFactory) CreateFrame(ctx context.Context, desc pixfmt.Desc, width, height int, planes [][]byte) (frame.DrawFrame, error) {
	f.calls++
	tex := fakeTexture{w: width, h: height}
	return frame.Leaf(frame.Textures{Planes: []frame.Texture{tex}, PixDesc: desc}, transform.Identity(), transform.BlendNormal), nil
}

func TestInfiniteProducerNeverReachesEOF(t *testing.T) {
	t.Parallel()

	p := New("bars", 64, 36, ColorBars, producer.NumFramesInfinite)
	p.Initialize(&fakeFactory{})

	for i := 0; i < 100; i++ {
		df := p.Receive(context.Background(), producer.FlagNone)
		if df.IsEOF() {
			t.Fatalf("infinite producer reported eof at tick %d", i)
		}
	}
}

func TestFiniteProducerReachesEOFExactlyOnce(t *testing.T) {
	t.Parallel()

	p := New("flash", 8, 8, Color([4]byte{0, 0, 255, 255}), 3)
	p.Initialize(&fakeFactory{})

	var eofCount int
	for i := 0; i < 6; i++ {
		df := p.Receive(context.Background(), producer.FlagNone)
		if df.IsEOF() {
			eofCount++
		}
	}
	if eofCount != 1 {
		t.Errorf("eof reported %d times, want exactly 1", eofCount)
	}
}

func TestEmptyAfterEOFIdempotence(t *testing.T) {
	t.Parallel()

	p := New("flash", 8, 8, Color([4]byte{0, 0, 255, 255}), 1)
	p.Initialize(&fakeFactory{})

	first := p.Receive(context.Background(), producer.FlagNone)
	if first.IsEOF() {
		t.Fatal("first receive should be a real frame, not eof")
	}
	eof := p.Receive(context.Background(), producer.FlagNone)
	if !eof.IsEOF() {
		t.Fatal("second receive should be eof")
	}
	for i := 0; i < 5; i++ {
		after := p.Receive(context.Background(), producer.FlagNone)
		if !after.IsEmpty() {
			t.Fatalf("receive %d after eof should be empty, got non-empty", i)
		}
	}
}

func TestCachedFrameReusedAcrossReceives(t *testing.T) {
	t.Parallel()

	ff := &fakeFactory{}
	p := New("bars", 16, 16, ColorBars, producer.NumFramesInfinite)
	p.Initialize(ff)

	p.Receive(context.Background(), producer.FlagNone)
	p.Receive(context.Background(), producer.FlagNone)
	p.Receive(context.Background(), producer.FlagNone)

	if ff.calls != 1 {
		t.Errorf("factory called %d times, want 1 (frame should be cached)", ff.calls)
	}
}

func TestColorBarsProducesSevenDistinctColumns(t *testing.T) {
	t.Parallel()

	px := ColorBars(140, 10)
	seen := map[[4]byte]bool{}
	for bar := 0; bar < 7; bar++ {
		x := bar*20 + 5
		i := x * 4
		seen[[4]byte{px[i], px[i+1], px[i+2], px[i+3]}] = true
	}
	if len(seen) != 7 {
		t.Errorf("saw %d distinct bar colors, want 7", len(seen))
	}
}
