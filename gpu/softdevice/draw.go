package softdevice

import (
	"context"

	"github.com/gogpu/gg"

	"github.com/zsiec/compositor/gpu"
)

// uploadPixels copies an 8-bit interleaved BGRA/RGBA byte buffer into
// tex's pixmap. Planar/YCbCr conversion is a producer-side concern in
// this reference device (spec §1: GPU driver specifics are out of the
// core's scope; this is the illustrative backend, not a color pipeline).
func uploadPixels(tex *texture, data []byte, width, height int) {
	stride := width * 4
	for y := 0; y < height; y++ {
		row := y * stride
		if row+stride > len(data) {
			break
		}
		for x := 0; x < width; x++ {
			i := row + x*4
			c := gg.RGBA{
				R: float64(data[i+0]) / 255,
				G: float64(data[i+1]) / 255,
				B: float64(data[i+2]) / 255,
				A: float64(data[i+3]) / 255,
			}
			tex.setPixel(x, y, c)
		}
	}
}

// DrawQuad draws the quad described by positions (clip-space corners,
// [-1,1]²) sampling texCoords from the unit 0 texture, following the
// per-item algorithm in spec §4.4: stipple masking, scissor clamp,
// opacity and blend-mode application against the attached target.
func (d *Device) DrawQuad(ctx context.Context, texCoords, positions [4][2]float64) error {
	return d.exec.Invoke(ctx, func() {
		d.drawQuadLocked(texCoords, positions)
	})
}

func (d *Device) drawQuadLocked(texCoords, positions [4][2]float64) {
	d.mu.Lock()
	target := d.target
	src := d.bound[0]
	u := d.uniforms
	scissorOn, scissorRect := d.scissorOn, d.scissorRect
	stippleOn, pattern := d.stippleOn, d.stipplePattern
	blendFunc := d.blendFunc
	d.mu.Unlock()

	if target == nil || src == nil {
		return
	}

	destRect := clipQuadToPixels(positions, target.Width(), target.Height())
	srcRect := clipQuadToPixels(texCoords01(texCoords), src.Width(), src.Height())

	for y := destRect.minY; y < destRect.maxY; y++ {
		if stippleOn && !stippleAllowsRow(pattern, y) {
			continue
		}
		if scissorOn && (y < scissorRect.Y || y >= scissorRect.Y+scissorRect.H) {
			continue
		}
		for x := destRect.minX; x < destRect.maxX; x++ {
			if scissorOn && (x < scissorRect.X || x >= scissorRect.X+scissorRect.W) {
				continue
			}
			u0 := lerpCoord(x, destRect.minX, destRect.maxX, srcRect.minX, srcRect.maxX, src.Width())
			v0 := lerpCoord(y, destRect.minY, destRect.maxY, srcRect.minY, srcRect.maxY, src.Height())
			srcColor := src.getPixel(u0, v0)
			srcColor.A *= u.Opacity
			dstColor := target.getPixel(x, y)
			target.setPixel(x, y, blend(srcColor, dstColor, blendFunc))
		}
	}
}

type pixelRect struct{ minX, minY, maxX, maxY int }

// clipQuadToPixels converts clip-space [-1,1]² corners to an
// axis-aligned pixel rectangle. FrameTransform's fill placement is a
// pure translate+scale (spec §3), so the quad is always axis-aligned;
// rotation is not part of this model.
func clipQuadToPixels(corners [4][2]float64, width, height int) pixelRect {
	minCX, minCY, maxCX, maxCY := corners[0][0], corners[0][1], corners[0][0], corners[0][1]
	for _, c := range corners[1:] {
		if c[0] < minCX {
			minCX = c[0]
		}
		if c[0] > maxCX {
			maxCX = c[0]
		}
		if c[1] < minCY {
			minCY = c[1]
		}
		if c[1] > maxCY {
			maxCY = c[1]
		}
	}
	minX := int((minCX + 1) / 2 * float64(width))
	maxX := int((maxCX + 1) / 2 * float64(width))
	// Clip space Y points up; pixel space Y points down.
	minY := int((1 - maxCY) / 2 * float64(height))
	maxY := int((1 - minCY) / 2 * float64(height))
	return clampRect(pixelRect{minX, minY, maxX, maxY}, width, height)
}

// texCoords01 treats texture coordinates as already living in [0,1]²
// and maps them into the same [-1,1]² convention clipQuadToPixels
// expects, so both positions and texCoords can share one conversion.
func texCoords01(tc [4][2]float64) [4][2]float64 {
	var out [4][2]float64
	for i, c := range tc {
		out[i] = [2]float64{c[0]*2 - 1, c[1]*2 - 1}
	}
	return out
}

func clampRect(r pixelRect, w, h int) pixelRect {
	if r.minX < 0 {
		r.minX = 0
	}
	if r.minY < 0 {
		r.minY = 0
	}
	if r.maxX > w {
		r.maxX = w
	}
	if r.maxY > h {
		r.maxY = h
	}
	if r.maxX < r.minX {
		r.maxX = r.minX
	}
	if r.maxY < r.minY {
		r.maxY = r.minY
	}
	return r
}

func lerpCoord(v, srcMin, srcMax, dstMin, dstMax, dstBound int) int {
	if srcMax == srcMin {
		return clampIndex(dstMin, dstBound)
	}
	t := float64(v-srcMin) / float64(srcMax-srcMin)
	out := dstMin + int(t*float64(dstMax-dstMin))
	return clampIndex(out, dstBound)
}

func clampIndex(v, bound int) int {
	if v < 0 {
		return 0
	}
	if v >= bound {
		return bound - 1
	}
	return v
}

// stippleAllowsRow reports whether row y in device pixel space is set
// in pattern, using y mod 32 to tile the 32-row mask across a
// taller-than-32 target (spec §6: the pattern is a 32×32 tile).
func stippleAllowsRow(pattern [128]byte, y int) bool {
	row := y % 32
	return pattern[row*4] != 0
}

// blend applies the fixed-function Porter-Duff equation described by f
// to src-over-dst, in premultiplied-alpha-equivalent float math (spec
// §4.4 step 6).
func blend(src, dst gg.RGBA, f gpu.BlendFunc) gg.RGBA {
	srcFactor := factorValue(f.SrcRGB, src, dst)
	dstFactor := factorValue(f.DstRGB, src, dst)
	srcAlphaFactor := factorValue(f.SrcAlpha, src, dst)
	dstAlphaFactor := factorValue(f.DstAlpha, src, dst)

	return gg.RGBA{
		R: src.R*src.A*srcFactor + dst.R*dstFactor,
		G: src.G*src.A*srcFactor + dst.G*dstFactor,
		B: src.B*src.A*srcFactor + dst.B*dstFactor,
		A: src.A*srcAlphaFactor + dst.A*dstAlphaFactor,
	}
}

func factorValue(f gpu.Factor, src, dst gg.RGBA) float64 {
	switch f {
	case gpu.FactorZero:
		return 0
	case gpu.FactorOne:
		return 1
	case gpu.FactorOneMinusSrcAlpha:
		return 1 - src.A
	default:
		return 0
	}
}
