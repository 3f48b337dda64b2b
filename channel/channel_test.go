package channel

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zsiec/compositor/consumer"
	"github.com/zsiec/compositor/gpu"
	"github.com/zsiec/compositor/gpu/softdevice"
	"github.com/zsiec/compositor/producer"
	"github.com/zsiec/compositor/videoformat"
)

func testFormat() videoformat.Format {
	return videoformat.Format{
		Name:      "test",
		Width:     4,
		Height:    4,
		FieldMode: videoformat.Progressive,
		FrameRate: videoformat.NewRational(1000, 1),
		TimeScale: videoformat.NewRational(1000, 1),
	}
}

type countingConsumer struct {
	clock bool
	count atomic.Int64
}

func (c *countingConsumer) Consume(ctx context.Context, target gpu.Texture) error {
	c.count.Add(1)
	return nil
}
func (c *countingConsumer) HasSynchronizationClock() bool { return c.clock }
func (c *countingConsumer) BufferDepth() uint32           { return 0 }
func (c *countingConsumer) Print() string                 { return "counting" }
func (c *countingConsumer) Abort()                        {}

var _ consumer.Consumer = (*countingConsumer)(nil)

func TestAddConsumerThenRemoveConsumerAbortsIt(t *testing.T) {
	t.Parallel()

	d := softdevice.New(0)
	defer d.Abort()
	ch := New(testFormat(), producer.NewDeviceFrameFactory(d), d, nil)

	cons := &countingConsumer{}
	ch.AddConsumer(1, cons)
	if len(ch.snapshotConsumers()) != 1 {
		t.Fatalf("expected 1 registered consumer")
	}

	ch.RemoveConsumer(1)
	if len(ch.snapshotConsumers()) != 0 {
		t.Fatalf("expected 0 registered consumers after remove")
	}
}

func TestAddConsumerReplacingAbortsThePrevious(t *testing.T) {
	t.Parallel()

	d := softdevice.New(0)
	defer d.Abort()
	ch := New(testFormat(), producer.NewDeviceFrameFactory(d), d, nil)

	first := &abortTrackingConsumer{}
	ch.AddConsumer(1, first)
	ch.AddConsumer(1, &countingConsumer{})

	if !first.aborted.Load() {
		t.Error("replaced consumer should have been aborted")
	}
}

type abortTrackingConsumer struct {
	aborted atomic.Bool
}

func (c *abortTrackingConsumer) Consume(ctx context.Context, target gpu.Texture) error { return nil }
func (c *abortTrackingConsumer) HasSynchronizationClock() bool                         { return false }
func (c *abortTrackingConsumer) BufferDepth() uint32                                   { return 0 }
func (c *abortTrackingConsumer) Print() string                                         { return "tracking" }
func (c *abortTrackingConsumer) Abort()                                                { c.aborted.Store(true) }

func TestTickOnceDrawsAndReleasesTicketAfterConsumersFinish(t *testing.T) {
	t.Parallel()

	d := softdevice.New(0)
	defer d.Abort()
	ch := New(testFormat(), producer.NewDeviceFrameFactory(d), d, nil)

	cons := &countingConsumer{}
	ch.AddConsumer(0, cons)

	ctx := context.Background()
	ticket, target, err := ch.tickOnce(ctx, ch.snapshotConsumers())
	if err != nil {
		t.Fatalf("tickOnce: %v", err)
	}
	if target == nil {
		t.Fatal("tickOnce should return the render target it drew into")
	}

	select {
	case <-ticket.Done():
	case <-time.After(time.Second):
		t.Fatal("ticket never fully released")
	}
	if cons.count.Load() != 1 {
		t.Errorf("consumer.Consume called %d times, want 1", cons.count.Load())
	}
}

func TestRunSelfPacesWithoutClockOwnerAndStopsOnCancel(t *testing.T) {
	t.Parallel()

	d := softdevice.New(0)
	defer d.Abort()
	ch := New(testFormat(), producer.NewDeviceFrameFactory(d), d, nil)

	cons := &countingConsumer{}
	ch.AddConsumer(0, cons)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := ch.Run(ctx); err == nil {
		t.Error("Run should return a non-nil error when the context is cancelled")
	}
	if cons.count.Load() == 0 {
		t.Error("expected at least one tick to have run before cancellation")
	}
}

func TestRunWithClockOwnerDisablesSelfPacingTicker(t *testing.T) {
	t.Parallel()

	d := softdevice.New(0)
	defer d.Abort()
	ch := New(testFormat(), producer.NewDeviceFrameFactory(d), d, nil)

	cons := &countingConsumer{clock: true}
	ch.AddConsumer(0, cons)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_ = ch.Run(ctx)
	if cons.count.Load() == 0 {
		t.Error("expected the clock-owning consumer to have been consulted at least once")
	}
}

func TestHasClockOwnerDetectsAnyOwner(t *testing.T) {
	t.Parallel()

	consumers := map[int]consumer.Consumer{
		0: &countingConsumer{clock: false},
		1: &countingConsumer{clock: true},
	}
	if !hasClockOwner(consumers) {
		t.Error("expected hasClockOwner to find the clock-owning consumer")
	}
	delete(consumers, 1)
	if hasClockOwner(consumers) {
		t.Error("expected hasClockOwner to report false with no clock owner registered")
	}
}

func TestRenderTargetMatchesFormatDimensions(t *testing.T) {
	t.Parallel()

	d := softdevice.New(0)
	defer d.Abort()
	ch := New(testFormat(), producer.NewDeviceFrameFactory(d), d, nil)

	target, err := ch.renderTarget(context.Background(), testFormat())
	if err != nil {
		t.Fatalf("renderTarget: %v", err)
	}
	if target.Width() != 4 || target.Height() != 4 {
		t.Errorf("target dims = %dx%d, want 4x4", target.Width(), target.Height())
	}
}

func TestRunReleasesEachTickTargetBackToTheDevicePool(t *testing.T) {
	t.Parallel()

	d := softdevice.New(0)
	defer d.Abort()
	ch := New(testFormat(), producer.NewDeviceFrameFactory(d), d, nil)

	cons := &countingConsumer{}
	ch.AddConsumer(0, cons)

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()
	_ = ch.Run(ctx)

	if cons.count.Load() < 2 {
		t.Fatal("expected at least two ticks to have run")
	}

	// A fresh Upload for the same shape should come back from the pool
	// a released target left behind rather than forcing a brand new
	// allocation every tick (spec §5 Shared Resources).
	if got := d.PoolLen(4, 4, 16, 8); got == 0 {
		t.Errorf("pool for the render target shape has %d entries, want at least 1 released target", got)
	}
}
