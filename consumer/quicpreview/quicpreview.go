// Package quicpreview implements a Consumer that pushes every mixed
// frame to a single connected preview client over a raw QUIC stream, in
// the spirit of the teacher's internal/distribution.Server session
// lifecycle — minus the WebTransport upgrade, HTTP/3 routing, and MoQ
// catalog/subscription machinery, none of which the consumer capability
// needs.
package quicpreview

import (
	"context"
	"crypto/tls"
	"encoding/binary"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/quic-go/quic-go"

	"github.com/zsiec/compositor/certs"
	"github.com/zsiec/compositor/consumer"
	"github.com/zsiec/compositor/gpu"
)

// Consumer accepts a single preview client over QUIC and writes each
// frame it is given as a length-prefixed packed-RGBA stream write. It
// owns the synchronization clock: Consume blocks until the write
// completes, so a slow client paces the channel down to its own speed
// (spec §4.6). With no client connected, Consume returns at once.
type Consumer struct {
	log    *slog.Logger
	device gpu.Device

	listener *quic.Listener

	mu     sync.Mutex
	stream quic.SendStream
	conn   quic.Connection

	framesSent atomic.Int64
	bytesSent  atomic.Int64
	errors     atomic.Int64
	pending    atomic.Int32
}

// Config holds the listener parameters. Cert defaults to a freshly
// generated self-signed certificate (certs.Generate) when nil.
type Config struct {
	Addr string
	Cert *certs.CertInfo
}

// New starts listening on cfg.Addr and starts accepting client
// connections right away; each newly accepted client replaces the
// previous one. log may be nil.
func New(ctx context.Context, cfg Config, device gpu.Device, log *slog.Logger) (*Consumer, error) {
	if log == nil {
		log = slog.Default()
	}
	cert := cfg.Cert
	if cert == nil {
		var err error
		cert, err = certs.Generate(0)
		if err != nil {
			return nil, fmt.Errorf("quicpreview: generate cert: %w", err)
		}
	}

	tlsConf := &tls.Config{
		Certificates: []tls.Certificate{cert.TLSCert},
		NextProtos:   []string{"compositor-preview"},
	}
	qConf := &quic.Config{MaxIdleTimeout: 30 * time.Second}

	ln, err := quic.ListenAddr(cfg.Addr, tlsConf, qConf)
	if err != nil {
		return nil, fmt.Errorf("quicpreview: listen %s: %w", cfg.Addr, err)
	}

	c := &Consumer{
		log:      log.With("component", "quicpreview", "addr", cfg.Addr),
		device:   device,
		listener: ln,
	}
	go c.acceptLoop(ctx)
	return c, nil
}

// acceptLoop holds at most one live client connection at a time: a new
// connection replaces whatever preview session was previously attached.
func (c *Consumer) acceptLoop(ctx context.Context) {
	for {
		conn, err := c.listener.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Warn("accept failed", "error", err)
			continue
		}
		stream, err := conn.OpenUniStreamSync(ctx)
		if err != nil {
			c.log.Warn("open preview stream failed", "error", err)
			conn.CloseWithError(0, "stream open failed")
			continue
		}
		c.log.Info("preview client attached", "remote", conn.RemoteAddr())

		c.mu.Lock()
		if c.conn != nil {
			c.conn.CloseWithError(0, "superseded by new preview client")
		}
		c.conn, c.stream = conn, stream
		c.mu.Unlock()
	}
}

// Consume downloads target's pixels and writes them to the attached
// preview client as [4-byte width][4-byte height][8-byte length]payload.
// With no client attached, it is a fast no-op: the clock it owns should
// not stall the channel on an idle preview socket (spec §7).
func (c *Consumer) Consume(ctx context.Context, target gpu.Texture) error {
	c.mu.Lock()
	stream := c.stream
	c.mu.Unlock()
	if stream == nil {
		return nil
	}

	data, width, height, err := c.device.Download(ctx, target)
	if err != nil {
		c.errors.Add(1)
		return fmt.Errorf("quicpreview: download: %w", err)
	}

	c.pending.Add(1)
	defer c.pending.Add(-1)

	header := make([]byte, 16)
	binary.BigEndian.PutUint32(header[0:4], uint32(width))
	binary.BigEndian.PutUint32(header[4:8], uint32(height))
	binary.BigEndian.PutUint64(header[8:16], uint64(len(data)))

	if _, err := stream.Write(header); err != nil {
		c.errors.Add(1)
		c.detach(stream)
		return fmt.Errorf("quicpreview: write header: %w", err)
	}
	if _, err := stream.Write(data); err != nil {
		c.errors.Add(1)
		c.detach(stream)
		return fmt.Errorf("quicpreview: write frame: %w", err)
	}

	c.framesSent.Add(1)
	c.bytesSent.Add(int64(len(data)))
	return nil
}

// detach drops the client if it is still the one that just failed; a
// newer connection may already have replaced it concurrently.
func (c *Consumer) detach(failed quic.SendStream) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream == failed {
		c.stream = nil
		c.conn = nil
	}
}

// HasSynchronizationClock is always true: quicpreview's write latency
// to a real network client is the reference clock for the channel
// (spec §4.6).
func (c *Consumer) HasSynchronizationClock() bool { return true }

// BufferDepth reports in-flight writes, always 0 or 1 since Consume
// writes synchronously.
func (c *Consumer) BufferDepth() uint32 { return uint32(c.pending.Load()) }

func (c *Consumer) Print() string {
	c.mu.Lock()
	attached := c.stream != nil
	c.mu.Unlock()
	return fmt.Sprintf("quicpreview(attached=%t, sent=%d, errors=%d)",
		attached, c.framesSent.Load(), c.errors.Load())
}

// Abort closes the listener and any attached client connection.
func (c *Consumer) Abort() {
	c.mu.Lock()
	if c.conn != nil {
		c.conn.CloseWithError(0, "aborted")
	}
	c.mu.Unlock()
	c.listener.Close()
}

var _ consumer.Consumer = (*Consumer)(nil)
