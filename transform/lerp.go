package transform

// Lerp linearly interpolates every field of t toward dest at t∈[0,1].
// BlendMode, IsKey, and FieldMode are discrete and snap to dest once
// progress crosses the midpoint, matching how a C++ tween over a struct
// with enum members would have to special-case non-numeric fields.
func (t FrameTransform) Lerp(dest FrameTransform, p float64) FrameTransform {
	out := FrameTransform{
		Opacity:         lerp(t.Opacity, dest.Opacity, p),
		Brightness:      lerp(t.Brightness, dest.Brightness, p),
		Saturation:      lerp(t.Saturation, dest.Saturation, p),
		Contrast:        lerp(t.Contrast, dest.Contrast, p),
		Levels:          t.Levels.lerp(dest.Levels, p),
		FillTranslation: t.FillTranslation.Lerp(dest.FillTranslation, p),
		FillScale:       t.FillScale.Lerp(dest.FillScale, p),
		ClipTranslation: t.ClipTranslation.Lerp(dest.ClipTranslation, p),
		ClipScale:       t.ClipScale.Lerp(dest.ClipScale, p),
		AudioGain:       lerp(t.AudioGain, dest.AudioGain, p),
	}
	if p < 0.5 {
		out.FieldMode = t.FieldMode
		out.IsKey = t.IsKey
		out.BlendMode = t.BlendMode
	} else {
		out.FieldMode = dest.FieldMode
		out.IsKey = dest.IsKey
		out.BlendMode = dest.BlendMode
	}
	return out
}

func (l Levels) lerp(dest Levels, p float64) Levels {
	return Levels{
		MinInput:  lerp(l.MinInput, dest.MinInput, p),
		MaxInput:  lerp(l.MaxInput, dest.MaxInput, p),
		MinOutput: lerp(l.MinOutput, dest.MinOutput, p),
		MaxOutput: lerp(l.MaxOutput, dest.MaxOutput, p),
		Gamma:     lerp(l.Gamma, dest.Gamma, p),
	}
}

func lerp(a, b, p float64) float64 {
	return a + (b-a)*p
}
