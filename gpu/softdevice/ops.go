package softdevice

import (
	"context"

	"github.com/zsiec/compositor/gpu"
	"github.com/zsiec/compositor/internal/pool"
)

func (d *Device) Upload(ctx context.Context, width, height, stride, bitDepth int, data []byte) (gpu.Texture, error) {
	k := pool.Key{Width: width, Height: height, Stride: stride, Format: bitDepth}
	tex := d.pool.Get(k)

	err := d.exec.Invoke(ctx, func() {
		uploadPixels(tex, data, width, height)
		tex.markReady()
	})
	if err != nil {
		return nil, err
	}
	return tex, nil
}

// Release returns tex to the pool bucket it was allocated from, marking
// it not-ready so a reused texture is never bound before its next
// Upload completes.
func (d *Device) Release(ctx context.Context, tex gpu.Texture) error {
	t, ok := tex.(*texture)
	if !ok {
		return errNotOurTexture
	}
	return d.exec.Invoke(ctx, func() {
		t.mu.Lock()
		t.ready = false
		t.mu.Unlock()
		d.pool.Put(t.key, t)
	})
}

func (d *Device) Download(ctx context.Context, tex gpu.Texture) ([]byte, int, int, error) {
	t, ok := tex.(*texture)
	if !ok {
		return nil, 0, 0, errNotOurTexture
	}
	var data []byte
	var w, h int
	err := d.exec.Invoke(ctx, func() {
		t.mu.RLock()
		defer t.mu.RUnlock()
		w, h = t.pixmap.Width(), t.pixmap.Height()
		data = make([]byte, len(t.pixmap.Data()))
		copy(data, t.pixmap.Data())
	})
	if err != nil {
		return nil, 0, 0, err
	}
	return data, w, h, nil
}

func (d *Device) Use(ctx context.Context, s gpu.Shader) error {
	return d.exec.Invoke(ctx, func() {
		d.mu.Lock()
		d.shader = s
		d.mu.Unlock()
	})
}

func (d *Device) SetUniform(ctx context.Context, u gpu.Uniforms) error {
	return d.exec.Invoke(ctx, func() {
		d.mu.Lock()
		d.uniforms = u
		d.mu.Unlock()
	})
}

func (d *Device) Bind(ctx context.Context, tex gpu.Texture, unit int) error {
	t, ok := tex.(*texture)
	if !ok && tex != nil {
		return errNotOurTexture
	}
	return d.exec.Invoke(ctx, func() {
		d.mu.Lock()
		if t == nil {
			delete(d.bound, unit)
		} else {
			d.bound[unit] = t
		}
		d.mu.Unlock()
	})
}

func (d *Device) Attach(ctx context.Context, target gpu.Texture) error {
	t, ok := target.(*texture)
	if !ok {
		return errNotOurTexture
	}
	return d.exec.Invoke(ctx, func() {
		d.mu.Lock()
		d.target = t
		d.mu.Unlock()
	})
}

func (d *Device) Viewport(ctx context.Context, w, h int) error {
	return d.exec.Invoke(ctx, func() {
		d.mu.Lock()
		d.viewportW, d.viewportH = w, h
		d.mu.Unlock()
	})
}

func (d *Device) EnableScissor(ctx context.Context, rect gpu.Rect) error {
	return d.exec.Invoke(ctx, func() {
		d.mu.Lock()
		d.scissorOn = true
		d.scissorRect = rect
		d.mu.Unlock()
	})
}

func (d *Device) DisableScissor(ctx context.Context) error {
	return d.exec.Invoke(ctx, func() {
		d.mu.Lock()
		d.scissorOn = false
		d.mu.Unlock()
	})
}

func (d *Device) EnableStipple(ctx context.Context, pattern [128]byte) error {
	return d.exec.Invoke(ctx, func() {
		d.mu.Lock()
		d.stippleOn = true
		d.stipplePattern = pattern
		d.mu.Unlock()
	})
}

func (d *Device) DisableStipple(ctx context.Context) error {
	return d.exec.Invoke(ctx, func() {
		d.mu.Lock()
		d.stippleOn = false
		d.mu.Unlock()
	})
}

func (d *Device) BlendFuncSeparate(ctx context.Context, f gpu.BlendFunc) error {
	return d.exec.Invoke(ctx, func() {
		d.mu.Lock()
		d.blendFunc = f
		d.mu.Unlock()
	})
}

func (d *Device) TextureBarrier(ctx context.Context) error {
	// The software device composites directly against the target
	// pixmap under its own mutex, so there is no separate barrier to
	// issue; this is a no-op that still goes through the executor so
	// ordering relative to other submitted ops is preserved.
	return d.exec.Invoke(ctx, func() {})
}

func (d *Device) Yield(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		d.exec.Invoke(ctx, func() {})
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

func (d *Device) Abort() {
	d.exec.Abort()
}

var errNotOurTexture = &textureKindError{}

type textureKindError struct{}

func (*textureKindError) Error() string {
	return "softdevice: texture was not created by this device"
}

// ensure Device satisfies gpu.Device at compile time.
var _ gpu.Device = (*Device)(nil)
