package transform

// Vec2 is a pair of normalized [0,1] output-space coordinates, used for
// both translation and scale fields of FrameTransform.
type Vec2 struct {
	X, Y float64
}

// IdentityTranslation is the zero vector.
var IdentityTranslation = Vec2{0, 0}

// IdentityScale is the unit vector.
var IdentityScale = Vec2{1, 1}

// Lerp linearly interpolates between a and b at t ∈ [0,1].
func (a Vec2) Lerp(b Vec2, t float64) Vec2 {
	return Vec2{
		X: a.X + (b.X-a.X)*t,
		Y: a.Y + (b.Y-a.Y)*t,
	}
}
