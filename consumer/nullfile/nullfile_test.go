package nullfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/zsiec/compositor/gpu/softdevice"
)

func solidBGRA(w, h int, c [4]byte) []byte {
	out := make([]byte, w*h*4)
	for i := 0; i < w*h; i++ {
		copy(out[i*4:i*4+4], c[:])
	}
	return out
}

func TestConsumeWritesEveryFrameWhenEveryNIsOne(t *testing.T) {
	t.Parallel()

	d := softdevice.New(0)
	defer d.Abort()
	ctx := context.Background()
	tex, err := d.Upload(ctx, 4, 4, 16, 8, solidBGRA(4, 4, [4]byte{1, 2, 3, 255}))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	dir := t.TempDir()
	c := New(dir, d, 1, nil)
	defer c.Abort()

	for i := 0; i < 3; i++ {
		if err := c.Consume(ctx, tex); err != nil {
			t.Fatalf("Consume %d: %v", i, err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("wrote %d files, want 3", len(entries))
	}
	if _, err := os.Stat(filepath.Join(dir, "frame-00000000.png")); err != nil {
		t.Errorf("expected frame-00000000.png: %v", err)
	}
}

func TestConsumeSamplesEveryNthFrame(t *testing.T) {
	t.Parallel()

	d := softdevice.New(0)
	defer d.Abort()
	ctx := context.Background()
	tex, _ := d.Upload(ctx, 2, 2, 8, 8, solidBGRA(2, 2, [4]byte{0, 0, 0, 255}))

	dir := t.TempDir()
	c := New(dir, d, 5, nil)
	defer c.Abort()

	for i := 0; i < 11; i++ {
		if err := c.Consume(ctx, tex); err != nil {
			t.Fatalf("Consume %d: %v", i, err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	// frames 0, 5, 10 out of 11 seen.
	if len(entries) != 3 {
		t.Fatalf("wrote %d files, want 3", len(entries))
	}
}

func TestNeverOwnsSynchronizationClock(t *testing.T) {
	t.Parallel()

	c := New(t.TempDir(), softdevice.New(0), 1, nil)
	defer c.Abort()
	if c.HasSynchronizationClock() {
		t.Error("nullfile must never report owning the synchronization clock")
	}
	if c.BufferDepth() != 0 {
		t.Errorf("BufferDepth() = %d, want 0", c.BufferDepth())
	}
}
