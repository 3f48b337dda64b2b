// Package mixer implements the image kernel: the per-RenderItem draw
// sequence that composites a FrameBundle onto a GPU device's render
// target (spec §4.4). It depends only on the gpu.Device capability,
// never a concrete backend.
package mixer

import (
	"context"
	"log/slog"

	"github.com/zsiec/compositor/frame"
	"github.com/zsiec/compositor/gpu"
	"github.com/zsiec/compositor/transform"
)

// Mixer draws a FrameBundle's flattened RenderItems onto a device
// target, following image_kernel.cpp's per-item sequence.
type Mixer struct {
	log    *slog.Logger
	device gpu.Device
}

// New creates a Mixer bound to device.
func New(device gpu.Device, log *slog.Logger) *Mixer {
	if log == nil {
		log = slog.Default()
	}
	return &Mixer{log: log.With("component", "mixer"), device: device}
}

// Composite draws every RenderItem in bundle onto target, in order. Each
// drawn item sets or clears stipple for itself and disables any scissor
// it enabled; the stipple state left by the last item is not reset.
// Items are drawn back-to-front: bundle.Flatten() preserves
// layer index order, which spec §4.3 defines as the compositing order.
func (m *Mixer) Composite(ctx context.Context, bundle frame.Bundle, target gpu.Texture, formatInterlaced bool) error {
	if err := m.device.Attach(ctx, target); err != nil {
		return err
	}
	if err := m.device.Viewport(ctx, target.Width(), target.Height()); err != nil {
		return err
	}

	for _, item := range bundle.Flatten() {
		if err := m.draw(ctx, item, target); err != nil {
			return err
		}
	}
	return nil
}

// draw runs image_kernel.cpp's draw() for a single RenderItem.
func (m *Mixer) draw(ctx context.Context, item frame.RenderItem, target gpu.Texture) error {
	if item.Skip() {
		return nil
	}

	if !allReady(item.Textures.Planes) {
		m.log.Warn("host to device transfer not complete, yielding")
		m.device.Yield(ctx)
	}

	for n, tex := range item.Textures.Planes {
		if err := m.device.Bind(ctx, tex, n); err != nil {
			return err
		}
	}

	if err := m.device.Use(ctx, gpu.ShaderImage); err != nil {
		return err
	}

	blendMode := item.BlendMode
	if item.Transform.IsKey {
		blendMode = transform.BlendNormal
	}

	uniforms := gpu.Uniforms{
		PixelFormat: int(item.Textures.PixDesc.Tag),
		Opacity:     opacityFor(item.Transform),
		IsHD:        item.Textures.PixDesc.Planes[0].Height > 700,
		BlendMode:   int(blendMode),
		LevelsActive: !item.Transform.Levels.IsIdentity(),
		CSBActive:    csbActive(item.Transform),
	}
	if err := m.device.SetUniform(ctx, uniforms); err != nil {
		return err
	}

	if m.device.Capabilities()&gpu.CapBlendModes == 0 {
		f := gpu.NormalBlendFunc
		if blendMode == transform.BlendReplace {
			f = gpu.ReplaceBlendFunc
		}
		if err := m.device.BlendFuncSeparate(ctx, f); err != nil {
			return err
		}
	} else {
		if err := m.device.Bind(ctx, target, 6); err != nil {
			return err
		}
	}

	if err := m.setStipple(ctx, item.Transform); err != nil {
		return err
	}

	scissored, rect := scissorRect(item.Transform, target.Width(), target.Height())
	if scissored {
		if err := m.device.EnableScissor(ctx, rect); err != nil {
			return err
		}
	}

	if err := m.device.DrawQuad(ctx, texCoords(item.Transform), positions(item.Transform)); err != nil {
		return err
	}

	if scissored {
		if err := m.device.DisableScissor(ctx); err != nil {
			return err
		}
	}

	m.device.Yield(ctx)

	if m.device.Capabilities()&gpu.CapBlendModes != 0 {
		if err := m.device.TextureBarrier(ctx); err != nil {
			return err
		}
	}
	return nil
}

// opacityFor mirrors image_kernel.cpp: a key layer always renders at
// full opacity, the alpha channel itself carries its coverage.
func opacityFor(t transform.FrameTransform) float64 {
	if t.IsKey {
		return 1
	}
	return t.Opacity
}

func csbActive(t transform.FrameTransform) bool {
	return !closeTo(t.Brightness, 1) || !closeTo(t.Saturation, 1) || !closeTo(t.Contrast, 1)
}

func (m *Mixer) setStipple(ctx context.Context, t transform.FrameTransform) error {
	if !t.FieldMode.Interlaced() {
		return m.device.DisableStipple(ctx)
	}
	return m.device.EnableStipple(ctx, gpu.StipplePattern(t.FieldMode))
}

// scissorRect implements image_kernel.cpp's scissor derivation: enabled
// iff the clip placement deviates from "whole frame" by more than
// epsilon, in which case the box is the clip rect scaled to target
// pixels.
func scissorRect(t transform.FrameTransform, w, h int) (bool, gpu.Rect) {
	enabled := !closeTo(t.ClipTranslation.X, 0) || !closeTo(t.ClipTranslation.Y, 0) ||
		!closeTo(t.ClipScale.X, 1) || !closeTo(t.ClipScale.Y, 1)
	if !enabled {
		return false, gpu.Rect{}
	}
	return true, gpu.Rect{
		X: int(t.ClipTranslation.X * float64(w)),
		Y: int(t.ClipTranslation.Y * float64(h)),
		W: int(t.ClipScale.X * float64(w)),
		H: int(t.ClipScale.Y * float64(h)),
	}
}

// texCoords and positions both place the fill rectangle on the unit
// quad, matching image_kernel.cpp's glMultiTexCoord2d/glVertex2d pairs
// (texture-space [0,1], clip-space [-1,1]).
func texCoords(t transform.FrameTransform) [4][2]float64 {
	p, s := t.FillTranslation, t.FillScale
	return [4][2]float64{
		{p.X, p.Y},
		{p.X + s.X, p.Y},
		{p.X + s.X, p.Y + s.Y},
		{p.X, p.Y + s.Y},
	}
}

func positions(t transform.FrameTransform) [4][2]float64 {
	p, s := t.FillTranslation, t.FillScale
	return [4][2]float64{
		{p.X*2 - 1, p.Y*2 - 1},
		{(p.X + s.X) * 2 - 1, p.Y*2 - 1},
		{(p.X + s.X) * 2 - 1, (p.Y + s.Y) * 2 - 1},
		{p.X*2 - 1, (p.Y + s.Y) * 2 - 1},
	}
}

func allReady(planes []frame.Texture) bool {
	for _, p := range planes {
		if !p.Ready() {
			return false
		}
	}
	return true
}

func closeTo(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= transform.Epsilon
}
