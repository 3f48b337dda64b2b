package frame

import "github.com/zsiec/compositor/transform"

// RenderItem is the flattened leaf the mixer's image kernel draws
// (spec §3). Textures are shared with the GPU device's texture pool.
// Drawing an item does not release them; a texture goes back to the
// pool only through gpu.Device.Release.
type RenderItem struct {
	Textures  Textures
	Transform transform.FrameTransform
	BlendMode transform.BlendMode
}

// Skip reports whether the image kernel should skip this item entirely
// without touching the GPU device (spec §4.4 step 1, §8 boundary):
// no textures, or composed opacity below epsilon.
func (r RenderItem) Skip() bool {
	if len(r.Textures.Planes) == 0 {
		return true
	}
	op := r.Transform.Opacity
	return op < transform.Epsilon && op > -transform.Epsilon
}
