// Package nullfile implements a best-effort disk-writing Consumer: it
// has no synchronization clock and simply snapshots every Nth mixed
// frame to a PNG file for inspection, in the spirit of the teacher's
// io.Pipe-oriented "write what arrives, track what happened" plumbing.
package nullfile

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/zsiec/compositor/consumer"
	"github.com/zsiec/compositor/gpu"
)

// Consumer writes every everyNth mixed frame to dir as a PNG. It never
// owns the synchronization clock: a disk write never paces ticks.
type Consumer struct {
	log    *slog.Logger
	dir    string
	device gpu.Device
	everyN int64

	seen          atomic.Int64
	framesWritten atomic.Int64
	bytesWritten  atomic.Int64
	errors        atomic.Int64
}

// New creates a Consumer that writes one PNG per everyN frames into dir
// (created if absent), reading pixels back via device. everyN <= 0 is
// treated as 1 (every frame).
func New(dir string, device gpu.Device, everyN int, log *slog.Logger) *Consumer {
	if everyN <= 0 {
		everyN = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &Consumer{
		log:    log.With("component", "nullfile", "dir", dir),
		dir:    dir,
		device: device,
		everyN: int64(everyN),
	}
}

// Consume writes target to disk if this frame falls on the sampling
// boundary. Errors are counted but never escalated — a failing disk
// write must not stall the channel (spec §7).
func (c *Consumer) Consume(ctx context.Context, target gpu.Texture) error {
	n := c.seen.Add(1) - 1
	if n%c.everyN != 0 {
		return nil
	}

	data, width, height, err := c.device.Download(ctx, target)
	if err != nil {
		c.errors.Add(1)
		return fmt.Errorf("nullfile: download: %w", err)
	}

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		c.errors.Add(1)
		return fmt.Errorf("nullfile: mkdir: %w", err)
	}

	path := filepath.Join(c.dir, fmt.Sprintf("frame-%08d.png", n))
	f, err := os.Create(path)
	if err != nil {
		c.errors.Add(1)
		return fmt.Errorf("nullfile: create: %w", err)
	}
	defer f.Close()

	img := &image.RGBA{Pix: data, Stride: width * 4, Rect: image.Rect(0, 0, width, height)}
	if err := png.Encode(f, img); err != nil {
		c.errors.Add(1)
		return fmt.Errorf("nullfile: encode: %w", err)
	}

	c.framesWritten.Add(1)
	c.bytesWritten.Add(int64(len(data)))
	c.log.Debug("wrote frame", "path", path, "bytes", len(data))
	return nil
}

// HasSynchronizationClock is always false: a best-effort disk sink never
// paces ticks (spec §4.6).
func (c *Consumer) HasSynchronizationClock() bool { return false }

// BufferDepth is always 0: Consume is synchronous, nothing is queued.
func (c *Consumer) BufferDepth() uint32 { return 0 }

func (c *Consumer) Print() string {
	return fmt.Sprintf("nullfile(dir=%s, written=%d, errors=%d)",
		c.dir, c.framesWritten.Load(), c.errors.Load())
}

// Abort is a no-op: nullfile holds no persistent handles between calls.
func (c *Consumer) Abort() {}

var _ consumer.Consumer = (*Consumer)(nil)
