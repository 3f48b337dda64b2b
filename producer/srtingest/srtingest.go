// Package srtingest is the reference network producer: it listens for a
// single SRT contribution feed and turns its liveness into placeholder
// DrawFrame leaves at the resolution given to New. MPEG-TS demuxing
// and codec decode are explicitly out of scope (spec §1: concrete
// producers are seen only through the Producer capability) — this
// package grounds only the connection/session lifecycle plumbing of
// ingest/srt/server.go and ingest/srt/caller.go, replacing their pipe-to-demuxer
// wiring with a pipe-to-placeholder-frame one.
package srtingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	srtgo "github.com/zsiec/srtgo"

	"github.com/zsiec/compositor/frame"
	"github.com/zsiec/compositor/pixfmt"
	"github.com/zsiec/compositor/producer"
)

// readBufferSize mirrors the teacher's ingest/srt sizing: 1316 bytes is
// 7 MPEG-TS packets, the standard SRT payload size; the buffer holds
// ten such payloads.
const readBufferSize = 1316 * 10

// latencyNs is the SRT receiver latency, in nanoseconds (120ms).
const latencyNs = 120_000_000

// Stats is a snapshot of the ingest connection's liveness counters.
type Stats struct {
	BytesReceived int64
	ReadCount     int64
	Connected     bool
}

// Producer listens on addr for one incoming SRT publish connection and
// reports a solid placeholder frame at width x height for as long as the
// feed is connected, empty otherwise. It never reaches eof on its own:
// a dropped connection is transient, not end-of-media.
type Producer struct {
	log    *slog.Logger
	addr   string
	width  int
	height int

	mu      sync.Mutex
	factory producer.FrameFactory
	cached  frame.DrawFrame
	built   bool

	connected atomic.Bool
	bytes     atomic.Int64
	reads     atomic.Int64

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates an SRT ingest producer that will listen on addr once
// Start is called. width and height describe the placeholder frame
// emitted while connected.
func New(addr string, width, height int, log *slog.Logger) *Producer {
	if log == nil {
		log = slog.Default()
	}
	return &Producer{
		log:    log.With("component", "srtingest", "addr", addr),
		addr:   addr,
		width:  width,
		height: height,
		done:   make(chan struct{}),
	}
}

// Start begins listening in the background. Returns once the listener
// is bound, or an error if it could not bind.
func (p *Producer) Start(ctx context.Context) error {
	cfg := srtgo.DefaultConfig()
	cfg.Latency = latencyNs

	l, err := srtgo.Listen(p.addr, cfg)
	if err != nil {
		return fmt.Errorf("srtingest: listen on %s: %w", p.addr, err)
	}
	p.log.Info("listening")

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	go func() {
		<-runCtx.Done()
		l.Close()
	}()

	go func() {
		defer close(p.done)
		for {
			conn, err := l.Accept()
			if err != nil {
				if runCtx.Err() != nil {
					return
				}
				p.log.Warn("accept error", "error", err)
				continue
			}
			p.log.Info("publish", "remote", conn.RemoteAddr())
			p.handleConnection(runCtx, conn)
		}
	}()
	return nil
}

func (p *Producer) handleConnection(ctx context.Context, conn *srtgo.Conn) {
	defer conn.Close()
	p.connected.Store(true)
	defer p.connected.Store(false)

	buf := make([]byte, readBufferSize)
	for ctx.Err() == nil {
		n, err := conn.Read(buf)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				p.log.Debug("read error", "error", err)
			}
			return
		}
		p.bytes.Add(int64(n))
		p.reads.Add(1)
	}
}

// Stats reports the current connection counters.
func (p *Producer) Stats() Stats {
	return Stats{
		BytesReceived: p.bytes.Load(),
		ReadCount:     p.reads.Load(),
		Connected:     p.connected.Load(),
	}
}

func (p *Producer) Initialize(factory producer.FrameFactory) {
	p.mu.Lock()
	p.factory = factory
	p.mu.Unlock()
}

func (p *Producer) Receive(ctx context.Context, flags producer.Flags) frame.DrawFrame {
	if !p.connected.Load() {
		return frame.Empty()
	}

	p.mu.Lock()
	factory := p.factory
	cached := p.cached
	built := p.built
	p.mu.Unlock()

	if factory == nil {
		return frame.Empty()
	}
	if built {
		return cached
	}

	pixels := make([]byte, p.width*p.height*4)
	for i := 0; i < p.width*p.height; i++ {
		pixels[i*4], pixels[i*4+1], pixels[i*4+2], pixels[i*4+3] = 64, 64, 64, 255
	}
	df, err := factory.CreateFrame(ctx, pixfmt.PackedBGRA(p.width, p.height), p.width, p.height, [][]byte{pixels})
	if err != nil {
		return frame.Empty()
	}

	p.mu.Lock()
	p.cached = df
	p.built = true
	p.mu.Unlock()
	return df
}

func (p *Producer) Call(ctx context.Context, params []string) (string, error) {
	return "", fmt.Errorf("srtingest: no commands supported")
}

func (p *Producer) Info() map[string]any {
	st := p.Stats()
	return map[string]any{
		"type":      "srtingest",
		"addr":      p.addr,
		"connected": st.Connected,
		"bytes":     st.BytesReceived,
	}
}

func (p *Producer) Print() string {
	return fmt.Sprintf("srtingest[%s] connected=%v", p.addr, p.connected.Load())
}

// NumFrames is always infinite: a live feed has no nominal length.
func (p *Producer) NumFrames() uint32 { return producer.NumFramesInfinite }

// Abort cancels the listener and waits for its accept loop to exit.
// Idempotent: a second call with no Start is a no-op.
func (p *Producer) Abort() {
	if p.cancel != nil {
		p.cancel()
		<-p.done
	}
}

var _ producer.Producer = (*Producer)(nil)
