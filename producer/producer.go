// Package producer defines the frame-source capability the stage pulls
// from once per tick, plus a frame factory producers use to turn raw
// pixels into GPU-backed DrawFrame leaves.
package producer

import (
	"context"
	"math"

	"github.com/zsiec/compositor/frame"
	"github.com/zsiec/compositor/pixfmt"
)

// Flags requested of a producer's Receive call.
type Flags uint8

const (
	FlagNone Flags = 0
	// FlagDeinterlace asks the producer to deliver progressive content
	// even when the channel's field mode is interlaced, because the
	// layer's fill transform is scaling or translating vertically.
	FlagDeinterlace Flags = 1 << iota
	// FlagAlphaOnly asks the producer to deliver only the alpha channel
	// of its content, used when the layer is a key producer.
	FlagAlphaOnly
)

func (f Flags) Deinterlace() bool { return f&FlagDeinterlace != 0 }
func (f Flags) AlphaOnly() bool   { return f&FlagAlphaOnly != 0 }

// NumFramesInfinite is returned by NumFrames for producers with no
// inherent length (live ingest, looping generators).
const NumFramesInfinite = math.MaxUint32

// FrameFactory lets a producer turn host-side pixel planes into a
// DrawFrame leaf backed by the channel's GPU device. A producer obtains
// one on Initialize and must not retain it past Abort (design note:
// "cyclic producer↔factory coupling" — a non-owning capability handle).
type FrameFactory interface {
	CreateFrame(ctx context.Context, desc pixfmt.Desc, width, height int, planes [][]byte) (frame.DrawFrame, error)
}

// Producer produces one DrawFrame per Receive call. Implementations own
// whatever background I/O or decoding they need and must make Abort
// idempotent and prompt: it has to unblock any pending internal queue
// so a caller blocked in Receive returns quickly.
type Producer interface {
	// Initialize binds the producer to the channel's frame factory. It
	// is called exactly once before the first Receive.
	Initialize(factory FrameFactory)

	// Receive produces the next frame. It must return the eof sentinel
	// exactly once at end-of-media, then the empty sentinel thereafter,
	// and must not block past one output-frame budget.
	Receive(ctx context.Context, flags Flags) frame.DrawFrame

	// Call issues a producer-specific command (seek, loop, ...) and
	// returns a textual result or an error.
	Call(ctx context.Context, params []string) (string, error)

	// Info reports a small diagnostic tree and Print a one-line summary,
	// mirroring caspar's info()/print() producer introspection.
	Info() map[string]any
	Print() string

	// NumFrames is the nominal length, or NumFramesInfinite for an
	// infinite or looping source.
	NumFrames() uint32

	// Abort cancels any background I/O. Idempotent.
	Abort()
}
