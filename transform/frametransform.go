// Package transform holds the per-layer rendering parameters
// (FrameTransform), the tween machinery that animates them frame by
// frame, and the small set of named easing curves layers are animated
// through.
package transform

import "github.com/zsiec/compositor/videoformat"

// FrameTransform is the full set of per-layer rendering parameters from
// spec §3. The zero value is NOT identity for Opacity/Brightness/etc
// (Go zero-values default to 0, not 1), so callers must start from
// Identity() rather than a bare struct literal.
type FrameTransform struct {
	Opacity    float64
	Brightness float64
	Saturation float64
	Contrast   float64
	Levels     Levels

	FillTranslation Vec2
	FillScale       Vec2
	ClipTranslation Vec2
	ClipScale       Vec2

	FieldMode videoformat.FieldMode

	IsKey     bool
	BlendMode BlendMode

	AudioGain float64
}

// Identity returns the default FrameTransform: full opacity, unity
// color adjustments, full-frame fill, no clip, progressive, normal
// blend, unity audio gain. Composing two Identity transforms yields
// Identity (spec §3 invariant).
func Identity() FrameTransform {
	return FrameTransform{
		Opacity:         1,
		Brightness:      1,
		Saturation:      1,
		Contrast:        1,
		Levels:          IdentityLevels,
		FillTranslation: IdentityTranslation,
		FillScale:       IdentityScale,
		ClipTranslation: IdentityTranslation,
		ClipScale:       IdentityScale,
		FieldMode:       videoformat.Progressive,
		BlendMode:       BlendNormal,
		AudioGain:       1,
	}
}

// Compose returns the transform produced by applying child on top of
// parent: opacity/gain multiply, fill/clip placement nests inside the
// parent's placement, color adjustments multiply. Composing with an
// Identity parent or child returns the other side unchanged, satisfying
// the associativity invariant in spec §3.
func Compose(parent, child FrameTransform) FrameTransform {
	out := child
	out.Opacity = parent.Opacity * child.Opacity
	out.Brightness = parent.Brightness * child.Brightness
	out.Saturation = parent.Saturation * child.Saturation
	out.Contrast = parent.Contrast * child.Contrast
	out.AudioGain = parent.AudioGain * child.AudioGain

	out.FillTranslation = Vec2{
		X: parent.FillTranslation.X + child.FillTranslation.X*parent.FillScale.X,
		Y: parent.FillTranslation.Y + child.FillTranslation.Y*parent.FillScale.Y,
	}
	out.FillScale = Vec2{
		X: parent.FillScale.X * child.FillScale.X,
		Y: parent.FillScale.Y * child.FillScale.Y,
	}
	out.ClipTranslation = Vec2{
		X: parent.ClipTranslation.X + child.ClipTranslation.X*parent.ClipScale.X,
		Y: parent.ClipTranslation.Y + child.ClipTranslation.Y*parent.ClipScale.Y,
	}
	out.ClipScale = Vec2{
		X: parent.ClipScale.X * child.ClipScale.X,
		Y: parent.ClipScale.Y * child.ClipScale.Y,
	}
	if child.FieldMode == videoformat.Progressive {
		out.FieldMode = parent.FieldMode
	}
	out.IsKey = parent.IsKey || child.IsKey
	if child.BlendMode == BlendNormal {
		out.BlendMode = parent.BlendMode
	}
	if child.Levels.IsIdentity() {
		out.Levels = parent.Levels
	}
	return out
}

// DeinterlaceNeeded reports whether, per spec §4.3's flag derivation,
// interlaced format plus this transform's fill placement deviating from
// identity in Y requires deinterlacing the producer's frame before draw.
func (t FrameTransform) DeinterlaceNeeded(formatInterlaced bool) bool {
	if !formatInterlaced {
		return false
	}
	return !closeTo(t.FillScale.Y, 1) || !closeTo(t.FillTranslation.Y, 0)
}
