package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zsiec/compositor/certs"
	"github.com/zsiec/compositor/consumer/nullfile"
	"github.com/zsiec/compositor/consumer/quicpreview"
	"github.com/zsiec/compositor/gpu/softdevice"
	"github.com/zsiec/compositor/producer"
	"github.com/zsiec/compositor/producer/colorgen"
	"github.com/zsiec/compositor/server"
	"github.com/zsiec/compositor/videoformat"
)

var version = "dev"

func main() {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	formatName := envOr("FORMAT", videoformat.HD1080p5000.Name)
	format, ok := videoformat.Lookup(formatName)
	if !ok {
		log.Error("unknown video format", "format", formatName)
		os.Exit(1)
	}
	previewAddr := envOr("PREVIEW_ADDR", ":4443")
	nullfileDir := os.Getenv("NULLFILE_DIR")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	log.Info("compositor starting",
		"version", version,
		"format", format.Name,
		"preview", previewAddr,
	)

	device := softdevice.New(0)
	srv := server.New(device, log)
	defer srv.Abort()

	ch, err := srv.CreateChannel(ctx, "main", format)
	if err != nil {
		log.Error("failed to create channel", "error", err)
		os.Exit(1)
	}

	bars := colorgen.New("bars", format.Width, format.Height, colorgen.ColorBars, producer.NumFramesInfinite)
	if err := ch.Stage().Load(ctx, 0, bars, false, 0); err != nil {
		log.Error("failed to load default test card", "error", err)
		os.Exit(1)
	}
	if err := ch.Stage().Play(ctx, 0); err != nil {
		log.Error("failed to play default test card", "error", err)
		os.Exit(1)
	}

	log.Info("generating self-signed certificate for preview listener")
	cert, err := certs.Generate(14 * 24 * time.Hour)
	if err != nil {
		log.Error("failed to generate cert", "error", err)
		os.Exit(1)
	}
	log.Info("certificate generated", "fingerprint", cert.FingerprintBase64(), "expires", cert.NotAfter.Format(time.RFC3339))

	preview, err := quicpreview.New(ctx, quicpreview.Config{Addr: previewAddr, Cert: cert}, device, log)
	if err != nil {
		log.Error("failed to start preview listener", "error", err)
		os.Exit(1)
	}
	ch.AddConsumer(0, preview)

	if nullfileDir != "" {
		ch.AddConsumer(1, nullfile.New(nullfileDir, device, 1, log))
	}

	<-ctx.Done()
	log.Info("compositor stopped")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
