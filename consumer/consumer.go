// Package consumer defines the frame sink capability a channel fans
// mixed frames out to (spec §4.6), plus two reference implementations:
// consumer/nullfile, a best-effort disk sink, and consumer/quicpreview,
// the clock-owning network sink.
package consumer

import (
	"context"

	"github.com/zsiec/compositor/gpu"
)

// Consumer is the frame sink capability. Consume must be safe to call
// concurrently with any other Consumer method; the channel invokes it
// from a fan-out goroutine, never serialized through an executor of its
// own (spec §4.5 step 3).
type Consumer interface {
	// Consume delivers one mixed frame. The returned error is logged and
	// otherwise ignored by the channel — a failing consumer never stalls
	// or aborts the tick loop (spec §7's local-recovery rule).
	Consume(ctx context.Context, target gpu.Texture) error

	// HasSynchronizationClock reports whether this consumer's Consume
	// latency should pace the channel's tick rate. At most one consumer
	// per channel should return true (spec §4.6).
	HasSynchronizationClock() bool

	// BufferDepth reports how many frames this consumer holds queued
	// internally, for diagnostics (spec §4.6).
	BufferDepth() uint32

	// Print returns a short human-readable description for info().
	Print() string

	// Abort releases the consumer's resources. Idempotent.
	Abort()
}
