// Package softdevice is the reference gpu.Device implementation used
// when no real GPU backend is configured: it backs every texture with a
// *gg.Pixmap from github.com/gogpu/gg and performs blending, scissor,
// and stipple masking against that pixmap in software, mirroring the
// owning-handle + lazy-init idiom of gogpu-gg's backend/native/texture.go
// and the software/hardware backend split in backend/backend.go.
package softdevice

import (
	"sync"

	"github.com/gogpu/gg"

	"github.com/zsiec/compositor/internal/pool"
)

// texture is the softdevice.Device's gpu.Texture implementation: an
// owning handle around a *gg.Pixmap. Ready flips to true once Upload's
// simulated host→device copy has completed; draws on a not-ready texture
// Yield before binding it (spec §4.4 step 2). key records the pool
// bucket it was allocated from, so Release can return it to that same
// bucket.
type texture struct {
	mu     sync.RWMutex
	pixmap *gg.Pixmap
	ready  bool
	key    pool.Key
}

func newTexture(width, height int) *texture {
	return &texture{pixmap: gg.NewPixmap(width, height)}
}

func (t *texture) Width() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.pixmap.Width()
}

func (t *texture) Height() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.pixmap.Height()
}

func (t *texture) Ready() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ready
}

func (t *texture) markReady() {
	t.mu.Lock()
	t.ready = true
	t.mu.Unlock()
}

// sample returns the color at normalized coordinates (u,v) ∈ [0,1]²,
// nearest-neighbor, clamped at the edges.
func (t *texture) sample(u, v float64) gg.RGBA {
	t.mu.RLock()
	defer t.mu.RUnlock()
	w, h := t.pixmap.Width(), t.pixmap.Height()
	if w == 0 || h == 0 {
		return gg.RGBA{}
	}
	x := int(u * float64(w))
	y := int(v * float64(h))
	if x < 0 {
		x = 0
	}
	if x >= w {
		x = w - 1
	}
	if y < 0 {
		y = 0
	}
	if y >= h {
		y = h - 1
	}
	return t.pixmap.GetPixel(x, y)
}

func (t *texture) setPixel(x, y int, c gg.RGBA) {
	t.mu.Lock()
	t.pixmap.SetPixel(x, y, c)
	t.mu.Unlock()
}

func (t *texture) getPixel(x, y int) gg.RGBA {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.pixmap.GetPixel(x, y)
}
