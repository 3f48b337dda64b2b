// Package server is the outer binding that owns a shared GPU device and a
// registry of running Channels, wired the way cmd/prism/main.go wires its
// registry/distSrv/srtCaller trio: a mutex-guarded map keyed by name, with
// RegisterStream/UnregisterStream-style create/remove entry points
// (internal/distribution/server.go) rather than a fixed, statically wired
// set of components.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/zsiec/compositor/channel"
	"github.com/zsiec/compositor/gpu"
	"github.com/zsiec/compositor/producer"
	"github.com/zsiec/compositor/videoformat"
)

// Server owns the GPU device every channel draws onto and the set of
// currently running channels, keyed by name. The device is constructed by
// whoever builds the Server and is stopped last, by Server.Abort, once
// every channel referencing it has joined.
type Server struct {
	log    *slog.Logger
	device gpu.Device

	mu       sync.Mutex
	channels map[string]*entry
}

type entry struct {
	ch     *channel.Channel
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Server driving device. log may be nil.
func New(device gpu.Device, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		log:      log.With("component", "server"),
		device:   device,
		channels: make(map[string]*entry),
	}
}

// CreateChannel registers a new channel called name at format and starts
// its tick loop in the background under ctx. The channel keeps running
// until ctx is cancelled, the server is aborted, or RemoveChannel is
// called for name.
func (s *Server) CreateChannel(ctx context.Context, name string, format videoformat.Format) (*channel.Channel, error) {
	s.mu.Lock()
	if _, exists := s.channels[name]; exists {
		s.mu.Unlock()
		return nil, fmt.Errorf("server: channel %q already exists", name)
	}

	factory := producer.NewDeviceFrameFactory(s.device)
	ch := channel.New(format, factory, s.device, s.log.With("channel", name))
	runCtx, cancel := context.WithCancel(ctx)
	e := &entry{ch: ch, cancel: cancel, done: make(chan struct{})}
	s.channels[name] = e
	s.mu.Unlock()

	go func() {
		defer close(e.done)
		if err := ch.Run(runCtx); err != nil && runCtx.Err() == nil {
			s.log.Error("channel stopped", "channel", name, "error", err)
		}
	}()

	return ch, nil
}

// Channel returns the named channel's control surface and whether it
// exists.
func (s *Server) Channel(name string) (*channel.Channel, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.channels[name]
	if !ok {
		return nil, false
	}
	return e.ch, true
}

// ChannelNames lists every currently registered channel.
func (s *Server) ChannelNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.channels))
	for name := range s.channels {
		names = append(names, name)
	}
	return names
}

// RemoveChannel unregisters name, stops its tick loop and waits for the
// loop goroutine to return, then aborts its consumers and stage.
func (s *Server) RemoveChannel(name string) {
	s.mu.Lock()
	e, ok := s.channels[name]
	if ok {
		delete(s.channels, name)
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	e.cancel()
	<-e.done
	e.ch.Abort()
}

// Abort stops every registered channel, in no particular order since they
// share nothing but the device, then stops the device itself — the
// outermost step of spec §5's dependency-ordered shutdown, owned here
// because the Server is what constructed the device.
func (s *Server) Abort() {
	s.mu.Lock()
	names := make([]string, 0, len(s.channels))
	for name := range s.channels {
		names = append(names, name)
	}
	s.mu.Unlock()

	for _, name := range names {
		s.RemoveChannel(name)
	}
	s.device.Abort()
}
