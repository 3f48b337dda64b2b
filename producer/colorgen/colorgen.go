// Package colorgen is the reference producer: a solid-color or
// color-bars test-card generator needing no I/O, grounded on
// core/producer/image/image_producer.cpp's "load once, return the same
// frame forever" shape, generalized so the bitmap comes from an
// in-process generator rather than a file load (concrete file decoding
// is out of scope per spec §1).
package colorgen

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/zsiec/compositor/frame"
	"github.com/zsiec/compositor/pixfmt"
	"github.com/zsiec/compositor/producer"
)

// Generator fills width*height BGRA pixels. Color returns a flat fill;
// ColorBars returns an SMPTE-ish 7-bar test card.
type Generator func(width, height int) []byte

// Color returns a Generator that fills every pixel with c (B,G,R,A).
func Color(c [4]byte) Generator {
	return func(width, height int) []byte {
		out := make([]byte, width*height*4)
		for i := 0; i < width*height; i++ {
			copy(out[i*4:i*4+4], c[:])
		}
		return out
	}
}

// colorBars are the seven classic SMPTE bars, in BGRA.
var colorBars = [7][4]byte{
	{192, 192, 192, 255}, // gray
	{0, 192, 192, 255},   // yellow
	{192, 192, 0, 255},   // cyan
	{0, 192, 0, 255},     // green
	{192, 0, 192, 255},   // magenta
	{0, 0, 192, 255},     // red
	{192, 0, 0, 255},     // blue
}

// ColorBars is a Generator producing a seven-vertical-bar test card.
func ColorBars(width, height int) []byte {
	out := make([]byte, width*height*4)
	barWidth := width / len(colorBars)
	if barWidth == 0 {
		barWidth = 1
	}
	for y := 0; y < height; y++ {
		row := y * width * 4
		for x := 0; x < width; x++ {
			bar := x / barWidth
			if bar >= len(colorBars) {
				bar = len(colorBars) - 1
			}
			copy(out[row+x*4:row+x*4+4], colorBars[bar][:])
		}
	}
	return out
}

// Producer generates frames from a Generator. With numFrames ==
// producer.NumFramesInfinite it never reaches eof (a looping source,
// e.g. an on-air background); with a finite count it reports eof
// exactly once after that many Receive calls, then empty forever,
// satisfying spec §8's producer idempotence invariant.
type Producer struct {
	name      string
	width     int
	height    int
	gen       Generator
	numFrames uint32

	mu      sync.Mutex
	factory producer.FrameFactory
	cached  frame.DrawFrame
	built   bool

	remaining atomic.Int64
	eofSent   atomic.Bool
}

// New creates a colorgen producer. numFrames is the nominal length
// (producer.NumFramesInfinite for an unbounded/looping source).
func New(name string, width, height int, gen Generator, numFrames uint32) *Producer {
	p := &Producer{name: name, width: width, height: height, gen: gen, numFrames: numFrames}
	if numFrames != producer.NumFramesInfinite {
		p.remaining.Store(int64(numFrames))
	}
	return p
}

func (p *Producer) Initialize(factory producer.FrameFactory) {
	p.mu.Lock()
	p.factory = factory
	p.mu.Unlock()
}

func (p *Producer) Receive(ctx context.Context, flags producer.Flags) frame.DrawFrame {
	if p.numFrames != producer.NumFramesInfinite {
		if p.eofSent.Load() {
			return frame.Empty()
		}
		if p.remaining.Add(-1) < 0 {
			p.eofSent.Store(true)
			return frame.EOF()
		}
	}

	p.mu.Lock()
	factory := p.factory
	cached := p.cached
	built := p.built
	p.mu.Unlock()

	if factory == nil {
		return frame.Empty()
	}
	if built && !flags.AlphaOnly() {
		return cached
	}

	pixels := p.gen(p.width, p.height)
	if flags.AlphaOnly() {
		pixels = alphaOnly(pixels)
	}

	df, err := factory.CreateFrame(ctx, pixfmt.PackedBGRA(p.width, p.height), p.width, p.height, [][]byte{pixels})
	if err != nil {
		return frame.Empty()
	}

	if !flags.AlphaOnly() {
		p.mu.Lock()
		p.cached = df
		p.built = true
		p.mu.Unlock()
	}
	return df
}

// alphaOnly zeroes BGR, leaving only each pixel's alpha byte, for
// FlagAlphaOnly key producers.
func alphaOnly(bgra []byte) []byte {
	out := make([]byte, len(bgra))
	for i := 0; i+3 < len(bgra); i += 4 {
		out[i+3] = bgra[i+3]
	}
	return out
}

func (p *Producer) Call(ctx context.Context, params []string) (string, error) {
	return "", fmt.Errorf("colorgen: no commands supported")
}

func (p *Producer) Info() map[string]any {
	return map[string]any{
		"type":   "colorgen",
		"name":   p.name,
		"width":  p.width,
		"height": p.height,
	}
}

func (p *Producer) Print() string {
	return fmt.Sprintf("colorgen[%s] %dx%d", p.name, p.width, p.height)
}

func (p *Producer) NumFrames() uint32 { return p.numFrames }

func (p *Producer) Abort() {}

var _ producer.Producer = (*Producer)(nil)
