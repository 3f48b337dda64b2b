// Package frame holds the recursive DrawFrame composition, its flattened
// RenderItem form, and the FrameBundle+Ticket back-pressure handoff
// between the stage and the mixer.
package frame

import "github.com/zsiec/compositor/transform"

// kind tags which of the four DrawFrame shapes a value holds: empty,
// eof, leaf, or composite.
type kind int

const (
	kindEmpty kind = iota
	kindEOF
	kindLeaf
	kindComposite
)

// DrawFrame is the recursive value from spec §3: either a sentinel
// (empty/eof), a leaf referencing GPU textures, or a composite of child
// DrawFrames. Construct one with Empty, EOF, Leaf, or Composite; the
// zero value is the empty sentinel, equal to Empty().
type DrawFrame struct {
	kind      kind
	textures  Textures
	transform transform.FrameTransform
	blend     transform.BlendMode
	children  []DrawFrame
}

// Empty returns the sentinel a stopped/cleared layer or a not-yet-ready
// producer reports.
func Empty() DrawFrame { return DrawFrame{kind: kindEmpty} }

// EOF returns the sentinel a producer reports exactly once at end of
// media (spec §4.1).
func EOF() DrawFrame { return DrawFrame{kind: kindEOF} }

// Leaf returns a DrawFrame referencing GPU textures under t, blended
// with mode.
func Leaf(tex Textures, t transform.FrameTransform, mode transform.BlendMode) DrawFrame {
	return DrawFrame{kind: kindLeaf, textures: tex, transform: t, blend: mode}
}

// Composite returns a DrawFrame whose children are drawn under t
// composed with each child's own transform (spec §3).
func Composite(t transform.FrameTransform, children ...DrawFrame) DrawFrame {
	return DrawFrame{kind: kindComposite, transform: t, children: children}
}

func (f DrawFrame) IsEmpty() bool     { return f.kind == kindEmpty }
func (f DrawFrame) IsEOF() bool       { return f.kind == kindEOF }
func (f DrawFrame) IsLeaf() bool      { return f.kind == kindLeaf }
func (f DrawFrame) IsComposite() bool { return f.kind == kindComposite }

// Flatten reduces any DrawFrame to its sequence of leaf RenderItems
// under the composed transform, satisfying spec §8's composition
// invariant: flattening a composite yields the same sequence as issuing
// each child with the composed transform directly.
func (f DrawFrame) Flatten() []RenderItem {
	var out []RenderItem
	f.flattenInto(transform.Identity(), &out)
	return out
}

func (f DrawFrame) flattenInto(parent transform.FrameTransform, out *[]RenderItem) {
	switch f.kind {
	case kindEmpty, kindEOF:
		return
	case kindLeaf:
		composed := transform.Compose(parent, f.transform)
		*out = append(*out, RenderItem{
			Textures:  f.textures,
			Transform: composed,
			BlendMode: f.blend,
		})
	case kindComposite:
		composed := transform.Compose(parent, f.transform)
		for _, child := range f.children {
			child.flattenInto(composed, out)
		}
	}
}
