// Package channel binds one Stage+Mixer pair to a set of Consumers and
// drives the tick loop spec §4.5 describes: draw, composite, fan out to
// consumers in parallel, wait for the bundle's ticket to fully release,
// tick again. It is the Go analog of original_source/core/channel.cpp's
// implementation::tick(), with the per-layer parallel_for already
// folded into Stage.Tick and the ticket-wait gate living here instead of
// inside the stage (spec §5's back-pressure protocol is a property of
// the channel loop, not of any single component).
package channel

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/zsiec/compositor/consumer"
	"github.com/zsiec/compositor/fault"
	"github.com/zsiec/compositor/frame"
	"github.com/zsiec/compositor/gpu"
	"github.com/zsiec/compositor/mixer"
	"github.com/zsiec/compositor/producer"
	"github.com/zsiec/compositor/stage"
	"github.com/zsiec/compositor/videoformat"
)

// Channel owns a Stage, a Mixer bound to a shared GPU device, and a set
// of index-keyed Consumers. The device itself is injected and not owned:
// a server may run several channels against one device, so Abort leaves
// the device running (spec §5's dependency-ordered teardown stops at
// "producers" for a channel; the device is the caller's to stop once
// every channel referencing it has joined).
type Channel struct {
	log    *slog.Logger
	device gpu.Device
	st     *stage.Stage
	mx     *mixer.Mixer

	mu        sync.Mutex
	consumers map[int]consumer.Consumer
}

// New creates a Channel producing at format via factory, drawing onto
// device. Call Run to start the tick loop.
func New(format videoformat.Format, factory producer.FrameFactory, device gpu.Device, log *slog.Logger) *Channel {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "channel", "format", format.Name)
	return &Channel{
		log:       log,
		device:    device,
		st:        stage.New(format, factory, log),
		mx:        mixer.New(device, log),
		consumers: make(map[int]consumer.Consumer),
	}
}

// Stage returns the underlying Stage for layer operations (Load, Play,
// SetTransform, ...). The channel adds no forwarding wrapper around
// these — original_source/core/channel.cpp's begin_invoke-per-method
// delegation exists because C++ channel and layer live in different
// translation units behind a pimpl; Go has no equivalent need to hide
// Stage behind Channel.
func (c *Channel) Stage() *stage.Stage { return c.st }

// AddConsumer registers cons at index, aborting and replacing whatever
// consumer previously held that index.
func (c *Channel) AddConsumer(index int, cons consumer.Consumer) {
	c.mu.Lock()
	old := c.consumers[index]
	c.consumers[index] = cons
	c.mu.Unlock()
	if old != nil {
		old.Abort()
	}
}

// RemoveConsumer unregisters and aborts the consumer at index, if any.
func (c *Channel) RemoveConsumer(index int) {
	c.mu.Lock()
	old := c.consumers[index]
	delete(c.consumers, index)
	c.mu.Unlock()
	if old != nil {
		old.Abort()
	}
}

func (c *Channel) snapshotConsumers() map[int]consumer.Consumer {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[int]consumer.Consumer, len(c.consumers))
	for idx, cons := range c.consumers {
		out[idx] = cons
	}
	return out
}

func hasClockOwner(consumers map[int]consumer.Consumer) bool {
	for _, cons := range consumers {
		if cons.HasSynchronizationClock() {
			return true
		}
	}
	return false
}

// Run drives the tick loop until ctx is cancelled; a failed tick is
// logged and the loop goes on to the next one. It self-paces with a time.Ticker at the
// stage's frame rate only when no registered consumer owns the
// synchronization clock; with a clock owner registered, the ticket
// protocol alone governs tick rate, down to that consumer's own
// completion latency (spec §4.6).
func (c *Channel) Run(ctx context.Context) error {
	var prevTicket frame.Ticket
	var prevTarget gpu.Texture
	waiting := false

	var ticker *time.Ticker
	defer func() {
		if ticker != nil {
			ticker.Stop()
		}
	}()

	for {
		if waiting {
			select {
			case <-prevTicket.Done():
			case <-ctx.Done():
				return ctx.Err()
			}
			// Every consumer clone has released by the time the ticket's
			// refcount reaches zero, so the previous tick's render target
			// is no longer bound anywhere and can return to the pool
			// (spec §5 Shared Resources).
			if prevTarget != nil {
				if err := c.device.Release(ctx, prevTarget); err != nil {
					c.log.Warn("failed to release render target to pool", "error", err)
				}
				prevTarget = nil
			}
		}

		consumers := c.snapshotConsumers()
		if hasClockOwner(consumers) {
			if ticker != nil {
				ticker.Stop()
				ticker = nil
			}
		} else if ticker == nil {
			ticker = time.NewTicker(c.frameDuration())
		}
		if ticker != nil {
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		ticket, target, err := c.tickOnce(ctx, consumers)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Error("tick failed", "error", err)
			waiting = false
			continue
		}
		prevTicket, prevTarget, waiting = ticket, target, true
	}
}

func (c *Channel) frameDuration() time.Duration {
	fps := c.st.Format().FrameRate.Float64()
	if fps <= 0 {
		return time.Second / 25
	}
	return time.Duration(float64(time.Second) / fps)
}

// tickOnce runs one full spec §4.5 cycle and returns the bundle's
// ticket and render target: the caller waits on the ticket before
// starting the next cycle, then releases the target back to the
// device's pool once that wait completes.
func (c *Channel) tickOnce(ctx context.Context, consumers map[int]consumer.Consumer) (frame.Ticket, gpu.Texture, error) {
	bundle, err := c.st.Tick(ctx)
	if err != nil {
		return frame.Ticket{}, nil, fmt.Errorf("channel: stage tick: %w", err)
	}

	clones := make(map[int]frame.Ticket, len(consumers))
	for idx := range consumers {
		clones[idx] = bundle.Ticket.Clone()
	}

	format := c.st.Format()
	target, err := c.renderTarget(ctx, format)
	if err != nil {
		bundle.Ticket.Release()
		for _, clone := range clones {
			clone.Release()
		}
		// GpuDeviceFatal (spec §7): a render-target allocation failure
		// means the device itself is unusable. Rebuild the mixer so the
		// next tick starts from a clean device-facing state; the stage
		// and its producers are untouched.
		c.mx = mixer.New(c.device, c.log)
		return frame.Ticket{}, nil, fault.New(fault.GpuDeviceFatal, err)
	}

	if err := c.mx.Composite(ctx, bundle, target, format.FieldMode.Interlaced()); err != nil {
		// MixerDrawFatal (spec §7): drop this bundle only, ticket still
		// releases normally so the next tick is not blocked.
		c.log.Error("mixer draw failed, dropping bundle", "fault", fault.New(fault.MixerDrawFatal, err))
	}
	bundle.Ticket.Release()

	for idx, cons := range consumers {
		idx, cons := idx, cons
		clone := clones[idx]
		go func() {
			defer clone.Release()
			if err := cons.Consume(ctx, target); err != nil {
				c.log.Warn("consumer failed", "index", idx, "error", err)
			}
		}()
	}

	return bundle.Ticket, target, nil
}

// renderTarget requests a zero-filled accumulator texture sized to
// format for this tick from the device's texture pool. Upload misses
// the pool only for shapes not already released by a previous tick
// (spec §5 Shared Resources); Run releases each tick's target back to
// the pool once every consumer's clone of that tick's ticket has
// released.
func (c *Channel) renderTarget(ctx context.Context, format videoformat.Format) (gpu.Texture, error) {
	blank := make([]byte, format.Width*format.Height*4)
	target, err := c.device.Upload(ctx, format.Width, format.Height, format.Width*4, 8, blank)
	if err != nil {
		return nil, err
	}
	return target, nil
}

// Abort stops every registered consumer, then the stage (which in turn
// clears every layer's producers), in the dependency order spec §5
// names for shutdown: consumers, mixer, stage, producers, GPU device
// last. The mixer itself holds no resources of its own to release, and
// the device is the caller's to stop once every channel using it has
// joined.
func (c *Channel) Abort() {
	for _, cons := range c.snapshotConsumers() {
		cons.Abort()
	}
	c.st.Abort()
}
