package softdevice

import (
	"sync"

	"github.com/gogpu/gg"

	"github.com/zsiec/compositor/executor"
	"github.com/zsiec/compositor/gpu"
	"github.com/zsiec/compositor/internal/pool"
)

// Device is the reference software-backed gpu.Device. All calls
// serialize through a single executor, matching spec §5's "The GPU
// device runs its own serial executor; all GPU calls serialize through
// it".
type Device struct {
	exec *executor.Executor
	pool *pool.Pool[*texture]

	mu        sync.Mutex
	shader    gpu.Shader
	uniforms  gpu.Uniforms
	bound     map[int]*texture
	target    *texture
	viewportW int
	viewportH int

	scissorOn   bool
	scissorRect gpu.Rect

	stippleOn      bool
	stipplePattern [128]byte

	blendFunc gpu.BlendFunc
	caps      gpu.Capability
}

// New creates a software device with capabilities cap (pass 0 for a
// fixed-function-only device, gpu.CapBlendModes for one that supports
// in-shader background sampling).
func New(caps gpu.Capability) *Device {
	d := &Device{
		exec:      executor.New(),
		bound:     make(map[int]*texture),
		blendFunc: gpu.NormalBlendFunc,
		caps:      caps,
	}
	d.pool = pool.New(func(k pool.Key) *texture {
		t := newTexture(k.Width, k.Height)
		t.key = k
		return t
	})
	return d
}

// Capabilities is pure metadata set at construction, safe to read
// without going through the executor.
func (d *Device) Capabilities() gpu.Capability {
	return d.caps
}

// PoolLen reports how many textures are currently pooled (released, not
// in use) for the given shape, for tests and diagnostics.
func (d *Device) PoolLen(width, height, stride, bitDepth int) int {
	return d.pool.Len(pool.Key{Width: width, Height: height, Stride: stride, Format: bitDepth})
}

// Pixel reads back the color at (x,y) of a texture this device
// produced. It exists for tests and diagnostics that need to verify
// what landed on a render target; no mixer code path calls it.
func (d *Device) Pixel(tex gpu.Texture, x, y int) gg.RGBA {
	t, ok := tex.(*texture)
	if !ok {
		return gg.RGBA{}
	}
	return t.getPixel(x, y)
}
