package server

import (
	"context"
	"testing"
	"time"

	"github.com/zsiec/compositor/gpu/softdevice"
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

func TestCreateChannelThenLookupByName(t *testing.T) {
	t.Parallel()

	s := New(softdevice.New(0), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := s.CreateChannel(ctx, "main", testFormat())
	if err != nil {
		t.Fatalf("CreateChannel: %v", err)
	}
	got, ok := s.Channel("main")
	if !ok || got != ch {
		t.Fatal("Channel should return the just-created channel")
	}
	if names := s.ChannelNames(); len(names) != 1 || names[0] != "main" {
		t.Errorf("ChannelNames = %v, want [main]", names)
	}
}

func TestCreateChannelDuplicateNameFails(t *testing.T) {
	t.Parallel()

	s := New(softdevice.New(0), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := s.CreateChannel(ctx, "main", testFormat()); err != nil {
		t.Fatalf("first CreateChannel: %v", err)
	}
	if _, err := s.CreateChannel(ctx, "main", testFormat()); err == nil {
		t.Error("second CreateChannel with the same name should fail")
	}
}

func TestRemoveChannelStopsLoopAndUnregisters(t *testing.T) {
	t.Parallel()

	s := New(softdevice.New(0), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := s.CreateChannel(ctx, "main", testFormat()); err != nil {
		t.Fatalf("CreateChannel: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	s.RemoveChannel("main")

	if _, ok := s.Channel("main"); ok {
		t.Error("channel should be unregistered after RemoveChannel")
	}
}

func TestAbortStopsEveryChannelAndTheDevice(t *testing.T) {
	t.Parallel()

	device := softdevice.New(0)
	s := New(device, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := s.CreateChannel(ctx, "a", testFormat()); err != nil {
		t.Fatalf("CreateChannel a: %v", err)
	}
	if _, err := s.CreateChannel(ctx, "b", testFormat()); err != nil {
		t.Fatalf("CreateChannel b: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	s.Abort()

	if names := s.ChannelNames(); len(names) != 0 {
		t.Errorf("ChannelNames after Abort = %v, want none", names)
	}
}
