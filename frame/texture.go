package frame

import "github.com/zsiec/compositor/pixfmt"

// Texture is an opaque handle to a GPU-resident plane, as produced by a
// gpu.Device's Upload. The frame package only needs to carry the handle
// through DrawFrame/RenderItem; it never dereferences GPU state itself
// (Design Note: "Raw GPU handles... encapsulated behind an owning handle").
type Texture interface {
	// Width and Height are the plane's pixel dimensions.
	Width() int
	Height() int
	// Ready reports whether the host→device upload has completed. The
	// mixer consults this before binding (spec §4.4 step 2).
	Ready() bool
}

// Textures is the ordered set of planes backing one leaf frame, matching
// pix_desc.NumPlanes() in count (spec §3 invariant).
type Textures struct {
	Planes  []Texture
	PixDesc pixfmt.Desc
}
