package softdevice

import (
	"context"
	"testing"

	"github.com/zsiec/compositor/gpu"
	"github.com/zsiec/compositor/videoformat"
)

func solidBGRA(w, h int, c [4]byte) []byte {
	out := make([]byte, w*h*4)
	for i := 0; i < w*h; i++ {
		copy(out[i*4:i*4+4], c[:])
	}
	return out
}

func TestUploadThenReady(t *testing.T) {
	t.Parallel()

	d := New(0)
	defer d.Abort()

	tex, err := d.Upload(context.Background(), 4, 4, 16, 8, solidBGRA(4, 4, [4]byte{10, 20, 30, 255}))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if !tex.Ready() {
		t.Error("texture should be ready after synchronous Upload completes")
	}
	if tex.Width() != 4 || tex.Height() != 4 {
		t.Errorf("dims = %dx%d, want 4x4", tex.Width(), tex.Height())
	}
}

func TestReleaseReturnsTextureToPoolForReuse(t *testing.T) {
	t.Parallel()

	d := New(0)
	defer d.Abort()
	ctx := context.Background()

	tex, err := d.Upload(ctx, 4, 4, 16, 8, solidBGRA(4, 4, [4]byte{1, 2, 3, 255}))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if got := d.PoolLen(4, 4, 16, 8); got != 0 {
		t.Fatalf("pool should be empty before Release, got %d", got)
	}

	if err := d.Release(ctx, tex); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if got := d.PoolLen(4, 4, 16, 8); got != 1 {
		t.Fatalf("pool should hold 1 entry after Release, got %d", got)
	}
	if tex.Ready() {
		t.Error("a released texture should not report Ready until re-Uploaded")
	}

	reused, err := d.Upload(ctx, 4, 4, 16, 8, solidBGRA(4, 4, [4]byte{9, 9, 9, 255}))
	if err != nil {
		t.Fatalf("Upload after Release: %v", err)
	}
	if reused != tex {
		t.Error("Upload for a matching shape should reuse the released texture")
	}
	if got := d.PoolLen(4, 4, 16, 8); got != 0 {
		t.Errorf("pool should be drained again after reuse, got %d", got)
	}
}

func TestDrawQuadNormalBlendOverTarget(t *testing.T) {
	t.Parallel()

	d := New(0)
	defer d.Abort()

	ctx := context.Background()
	target, _ := d.Upload(ctx, 8, 8, 32, 8, solidBGRA(8, 8, [4]byte{0, 0, 0, 255}))
	src, _ := d.Upload(ctx, 8, 8, 32, 8, solidBGRA(8, 8, [4]byte{255, 255, 255, 255}))

	if err := d.Attach(ctx, target); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if err := d.Bind(ctx, src, 0); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if err := d.SetUniform(ctx, gpu.Uniforms{Opacity: 1}); err != nil {
		t.Fatalf("SetUniform: %v", err)
	}
	if err := d.BlendFuncSeparate(ctx, gpu.NormalBlendFunc); err != nil {
		t.Fatalf("BlendFuncSeparate: %v", err)
	}

	full := [4][2]float64{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	texFull := [4][2]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}}
	if err := d.DrawQuad(ctx, texFull, full); err != nil {
		t.Fatalf("DrawQuad: %v", err)
	}

	tt := target.(*texture)
	got := tt.getPixel(4, 4)
	if got.R < 0.9 {
		t.Errorf("pixel after full-opacity white-over-black draw: %+v, want ~white", got)
	}
}

func TestDrawQuadSkippedWithoutTargetOrSource(t *testing.T) {
	t.Parallel()

	d := New(0)
	defer d.Abort()

	full := [4][2]float64{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	// Attach nothing, bind nothing: DrawQuad must be a safe no-op.
	if err := d.DrawQuad(context.Background(), full, full); err != nil {
		t.Fatalf("DrawQuad with no target/source: %v", err)
	}
}

func TestScissorRestrictsDraw(t *testing.T) {
	t.Parallel()

	d := New(0)
	defer d.Abort()

	ctx := context.Background()
	target, _ := d.Upload(ctx, 10, 10, 40, 8, solidBGRA(10, 10, [4]byte{0, 0, 0, 255}))
	src, _ := d.Upload(ctx, 10, 10, 40, 8, solidBGRA(10, 10, [4]byte{255, 255, 255, 255}))
	d.Attach(ctx, target)
	d.Bind(ctx, src, 0)
	d.SetUniform(ctx, gpu.Uniforms{Opacity: 1})
	d.BlendFuncSeparate(ctx, gpu.NormalBlendFunc)
	d.EnableScissor(ctx, gpu.Rect{X: 0, Y: 0, W: 2, H: 2})

	full := [4][2]float64{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	d.DrawQuad(ctx, full, full)

	tt := target.(*texture)
	inside := tt.getPixel(1, 1)
	outside := tt.getPixel(8, 8)
	if inside.R < 0.9 {
		t.Errorf("pixel inside scissor should be drawn, got %+v", inside)
	}
	if outside.R > 0.1 {
		t.Errorf("pixel outside scissor should be untouched, got %+v", outside)
	}
}

func TestStippleSkipsOddRows(t *testing.T) {
	t.Parallel()

	d := New(0)
	defer d.Abort()

	ctx := context.Background()
	target, _ := d.Upload(ctx, 4, 4, 16, 8, solidBGRA(4, 4, [4]byte{0, 0, 0, 255}))
	src, _ := d.Upload(ctx, 4, 4, 16, 8, solidBGRA(4, 4, [4]byte{255, 255, 255, 255}))
	d.Attach(ctx, target)
	d.Bind(ctx, src, 0)
	d.SetUniform(ctx, gpu.Uniforms{Opacity: 1})
	d.BlendFuncSeparate(ctx, gpu.NormalBlendFunc)
	d.EnableStipple(ctx, gpu.StipplePattern(videoformat.Upper))

	full := [4][2]float64{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	d.DrawQuad(ctx, full, full)

	tt := target.(*texture)
	evenRow := tt.getPixel(1, 0)
	oddRow := tt.getPixel(1, 1)
	if evenRow.R < 0.9 {
		t.Errorf("even row should be drawn under upper stipple, got %+v", evenRow)
	}
	if oddRow.R > 0.1 {
		t.Errorf("odd row should be skipped under upper stipple, got %+v", oddRow)
	}
}

