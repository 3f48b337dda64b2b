package frame

// Bundle is what the stage hands the mixer once per tick: the ordered
// per-layer DrawFrames plus the ticket back-pressure token (spec §3).
type Bundle struct {
	Frames []LayerFrame
	Ticket Ticket
}

// LayerFrame pairs a layer index with the DrawFrame the stage produced
// for it this tick. Ordered map semantics (spec §3's "ordered map") are
// satisfied by keeping this as an ordered slice rather than a Go map,
// which has no defined iteration order.
type LayerFrame struct {
	Index int
	Frame DrawFrame
}

// Flatten concatenates the flattened RenderItems of every layer, in
// layer order, with no cross-layer parent transform (layers are siblings
// in the final composite, not nested).
func (b Bundle) Flatten() []RenderItem {
	var out []RenderItem
	for _, lf := range b.Frames {
		out = append(out, lf.Frame.Flatten()...)
	}
	return out
}
