// Package videoformat describes the immutable output video format a
// channel is bound to: dimensions, field mode, and an exact-rational
// frame rate used for all PTS/frame-index arithmetic.
package videoformat

// FieldMode selects progressive or interlaced field handling. The same
// enum is reused by FrameTransform for a per-layer override.
type FieldMode int

const (
	Progressive FieldMode = iota
	Upper
	Lower
)

func (m FieldMode) String() string {
	switch m {
	case Progressive:
		return "progressive"
	case Upper:
		return "upper"
	case Lower:
		return "lower"
	default:
		return "unknown"
	}
}

// Interlaced reports whether m requires the two-fetch-per-tick field
// handling described in spec §4.3.
func (m FieldMode) Interlaced() bool {
	return m == Upper || m == Lower
}

// Format is the immutable description of a channel's output video
// format. Two Formats are considered equal for routing purposes when
// their Width, Height, FieldMode, and FrameRate all match.
type Format struct {
	Name      string
	Width     int
	Height    int
	FieldMode FieldMode

	// FrameRate is output frames per second, as an exact rational. For
	// interlaced formats this is the frame rate, not the field rate.
	FrameRate Rational

	// TimeScale is the PTS clock rate in ticks per second: one PTS unit
	// on this channel lasts 1/TimeScale seconds.
	TimeScale Rational

	// Duration is the nominal duration of a full program in frames, zero
	// for "not applicable" (most live channels).
	Duration int64
}

// IsHD reports whether the format is commonly treated as "HD" for shader
// selection purposes (image_kernel.cpp's is_hd flag): height > 700.
func (f Format) IsHD() bool {
	return f.Height > 700
}

// FrameDuration returns the exact duration of one output frame in
// TimeScale units.
func (f Format) FrameDuration() int64 {
	return Rescale(1, f.FrameRate.Inverse(), f.TimeScale.Inverse())
}

// FrameToPTS converts a frame index to a PTS in TimeScale units.
func (f Format) FrameToPTS(frameIndex int64) int64 {
	return Rescale(frameIndex, f.FrameRate.Inverse(), f.TimeScale.Inverse())
}

// PTSToFrame converts a PTS in TimeScale units to a frame index.
func (f Format) PTSToFrame(pts int64) int64 {
	return Rescale(pts, f.TimeScale.Inverse(), f.FrameRate.Inverse())
}

// Known output video formats, per spec §6. TimeScale is 1000 ticks per
// frame for integer rates (25 fps → 25000) and the rate's numerator for
// the 1001-denominator rates (30000/1001 → 30000, 1001 ticks per frame).
var (
	PAL = Format{
		Name: "PAL", Width: 720, Height: 576, FieldMode: Upper,
		FrameRate: NewRational(25, 1), TimeScale: NewRational(25000, 1),
	}
	NTSC = Format{
		Name: "NTSC", Width: 720, Height: 486, FieldMode: Lower,
		FrameRate: NewRational(30000, 1001), TimeScale: NewRational(30000, 1),
	}
	HD720p5000 = Format{
		Name: "720p50", Width: 1280, Height: 720, FieldMode: Progressive,
		FrameRate: NewRational(50, 1), TimeScale: NewRational(50000, 1),
	}
	HD720p5994 = Format{
		Name: "720p59.94", Width: 1280, Height: 720, FieldMode: Progressive,
		FrameRate: NewRational(60000, 1001), TimeScale: NewRational(60000, 1),
	}
	HD1080i5000 = Format{
		Name: "1080i50", Width: 1920, Height: 1080, FieldMode: Upper,
		FrameRate: NewRational(25, 1), TimeScale: NewRational(25000, 1),
	}
	HD1080i5994 = Format{
		Name: "1080i59.94", Width: 1920, Height: 1080, FieldMode: Upper,
		FrameRate: NewRational(30000, 1001), TimeScale: NewRational(30000, 1),
	}
	HD1080p2500 = Format{
		Name: "1080p25", Width: 1920, Height: 1080, FieldMode: Progressive,
		FrameRate: NewRational(25, 1), TimeScale: NewRational(25000, 1),
	}
	HD1080p2997 = Format{
		Name: "1080p29.97", Width: 1920, Height: 1080, FieldMode: Progressive,
		FrameRate: NewRational(30000, 1001), TimeScale: NewRational(30000, 1),
	}
	HD1080p5000 = Format{
		Name: "1080p50", Width: 1920, Height: 1080, FieldMode: Progressive,
		FrameRate: NewRational(50, 1), TimeScale: NewRational(50000, 1),
	}
	HD1080p5994 = Format{
		Name: "1080p59.94", Width: 1920, Height: 1080, FieldMode: Progressive,
		FrameRate: NewRational(60000, 1001), TimeScale: NewRational(60000, 1),
	}
	UHD2160p2500 = Format{
		Name: "2160p25", Width: 3840, Height: 2160, FieldMode: Progressive,
		FrameRate: NewRational(25, 1), TimeScale: NewRational(25000, 1),
	}
	UHD2160p5000 = Format{
		Name: "2160p50", Width: 3840, Height: 2160, FieldMode: Progressive,
		FrameRate: NewRational(50, 1), TimeScale: NewRational(50000, 1),
	}
	UHD2160p5994 = Format{
		Name: "2160p59.94", Width: 3840, Height: 2160, FieldMode: Progressive,
		FrameRate: NewRational(60000, 1001), TimeScale: NewRational(60000, 1),
	}
)

// registry maps format names to their Format for lookup by config/CLI.
var registry = map[string]Format{
	PAL.Name: PAL, NTSC.Name: NTSC,
	HD720p5000.Name: HD720p5000, HD720p5994.Name: HD720p5994,
	HD1080i5000.Name: HD1080i5000, HD1080i5994.Name: HD1080i5994,
	HD1080p2500.Name: HD1080p2500, HD1080p2997.Name: HD1080p2997,
	HD1080p5000.Name: HD1080p5000, HD1080p5994.Name: HD1080p5994,
	UHD2160p2500.Name: UHD2160p2500, UHD2160p5000.Name: UHD2160p5000,
	UHD2160p5994.Name: UHD2160p5994,
}

// Lookup returns the named format and true, or the zero Format and false.
func Lookup(name string) (Format, bool) {
	f, ok := registry[name]
	return f, ok
}
