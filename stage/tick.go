package stage

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/zsiec/compositor/fault"
	"github.com/zsiec/compositor/frame"
	"github.com/zsiec/compositor/producer"
	"github.com/zsiec/compositor/transform"
	"github.com/zsiec/compositor/videoformat"
)

// Tick runs the spec §4.3 tick protocol on the stage's executor at
// normal priority, so it never starts ahead of a queued high-priority
// transform op, and returns the assembled FrameBundle.
func (s *Stage) Tick(ctx context.Context) (frame.Bundle, error) {
	var bundle frame.Bundle
	err := s.exec.Invoke(ctx, func() {
		bundle = s.tickLocked(ctx)
	})
	return bundle, err
}

func (s *Stage) tickLocked(ctx context.Context) frame.Bundle {
	s.mu.Lock()
	format := s.format
	indices := make([]int, 0, len(s.layers))
	for idx := range s.layers {
		indices = append(indices, idx)
	}
	s.mu.Unlock()
	sortInts(indices)

	leaves := make([]frame.DrawFrame, len(indices))
	g, gctx := errgroup.WithContext(ctx)
	for i, idx := range indices {
		i, idx := i, idx
		g.Go(func() error {
			leaves[i] = s.tickLayer(gctx, idx, format)
			return nil
		})
	}
	g.Wait()

	frames := make([]frame.LayerFrame, len(indices))
	for i, idx := range indices {
		frames[i] = frame.LayerFrame{Index: idx, Frame: leaves[i]}
	}
	return frame.Bundle{Frames: frames, Ticket: frame.NewTicket()}
}

// tickLayer fetches-and-ticks idx's transform by one frame, derives
// flags, and pulls one (or, if the format is interlaced, two) frames
// from the layer, wrapping the result as a leaf or upper/lower
// composite under the fetched transform (spec §4.3 steps 1-2).
func (s *Stage) tickLayer(ctx context.Context, idx int, format videoformat.Format) frame.DrawFrame {
	s.mu.Lock()
	l := s.layers[idx]
	tw := s.transforms[idx]
	s.mu.Unlock()
	if l == nil || tw == nil {
		return frame.Empty()
	}

	interlaced := format.FieldMode.Interlaced()

	t1 := tw.FetchAndTick(1)
	flags := deriveFlags(t1, interlaced)
	leaf1 := l.Receive(ctx, flags)
	s.logUnderflow(idx, leaf1)

	if !interlaced {
		return wrapLeaf(leaf1, t1)
	}

	t1.FieldMode = videoformat.Upper
	df1 := wrapLeaf(leaf1, t1)

	t2 := tw.FetchAndTick(1)
	flags2 := deriveFlags(t2, true)
	leaf2 := l.Receive(ctx, flags2)
	s.logUnderflow(idx, leaf2)
	t2.FieldMode = videoformat.Lower
	df2 := wrapLeaf(leaf2, t2)

	return frame.Composite(transform.Identity(), df1, df2)
}

// logUnderflow records a TransientProducer fault (spec §7): a layer
// producing the empty sentinel this tick is never escalated, only
// logged for diagnostics.
func (s *Stage) logUnderflow(idx int, df frame.DrawFrame) {
	if df.IsEmpty() {
		s.log.Debug("layer underflow", "layer", idx, "fault", fault.New(fault.TransientProducer, nil))
	}
}

func wrapLeaf(df frame.DrawFrame, t transform.FrameTransform) frame.DrawFrame {
	if df.IsEmpty() || df.IsEOF() {
		return df
	}
	return frame.Composite(t, df)
}

// deriveFlags implements spec §4.3's flag derivation: DEINTERLACE iff
// the format is interlaced and the transform's fill placement deviates
// from identity in Y; ALPHA_ONLY iff the transform is a key.
func deriveFlags(t transform.FrameTransform, interlaced bool) producer.Flags {
	var f producer.Flags
	if t.DeinterlaceNeeded(interlaced) {
		f |= producer.FlagDeinterlace
	}
	if t.IsKey {
		f |= producer.FlagAlphaOnly
	}
	return f
}

func sortInts(s []int) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
