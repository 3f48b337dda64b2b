// Package gpu defines the GPU device capability the mixer depends on
// (spec §6): upload, shader use, draw, scissor, stipple, texture
// barrier. The mixer package imports only this interface, never a
// concrete backend, per spec §1's "GPU driver specifics... seen only
// through the GPU capability".
package gpu

import "context"

// Shader selects which fragment program the device should bind before a
// draw call. The core only needs to name the shader, not author GLSL —
// concrete backends map this to their own compiled program.
type Shader int

const (
	ShaderImage Shader = iota
)

// BlendFunc is the fixed-function fallback blend equation
// (src factor, dst factor, src alpha factor, dst alpha factor), used
// when the device does not advertise the BlendModes capability
// (spec §4.4 step 6).
type BlendFunc struct {
	SrcRGB, DstRGB     Factor
	SrcAlpha, DstAlpha Factor
}

// Factor is one of the small set of blend factors the image kernel
// needs: ONE, ZERO, ONE_MINUS_SRC_ALPHA.
type Factor int

const (
	FactorZero Factor = iota
	FactorOne
	FactorOneMinusSrcAlpha
)

// ReplaceBlendFunc and NormalBlendFunc are the two fixed-function blend
// equations spec §4.4 step 6 names explicitly.
var (
	ReplaceBlendFunc = BlendFunc{SrcRGB: FactorOne, DstRGB: FactorZero, SrcAlpha: FactorOne, DstAlpha: FactorOne}
	NormalBlendFunc  = BlendFunc{SrcRGB: FactorOne, DstRGB: FactorOneMinusSrcAlpha, SrcAlpha: FactorOne, DstAlpha: FactorOneMinusSrcAlpha}
)

// Capability flags a Device may advertise.
type Capability int

const (
	// CapBlendModes indicates the device supports programmable in-shader
	// blending against the current background (spec §4.4 step 6).
	CapBlendModes Capability = 1 << iota
)

// Rect is an integer pixel rectangle used for the scissor box.
type Rect struct {
	X, Y, W, H int
}

// Uniforms bundles the per-draw shader parameters spec §4.4 step 5 lists.
type Uniforms struct {
	PixelFormat  int
	Opacity      float64
	HasLocalKey  bool
	HasLayerKey  bool
	IsHD         bool
	BlendMode    int
	LevelsActive bool
	CSBActive    bool
}

// Device is the GPU device capability from spec §6. Every call must be
// safe to invoke from any goroutine; implementations serialize through
// their own executor (spec §5: "The GPU device runs its own serial
// executor; all GPU calls serialize through it").
type Device interface {
	// Upload transfers plane_bytes to a new device-local texture,
	// allocating from the device's texture pool (spec §5 Shared
	// Resources).
	Upload(ctx context.Context, width, height, stride int, bitDepth int, data []byte) (Texture, error)

	// Release returns tex to the device's texture pool for reuse by a
	// later Upload requesting the same (width, height, stride, bitDepth)
	// shape, bounding the steady-state tick rate's allocation churn
	// (spec §5 Shared Resources). The caller must not use tex again
	// after calling Release.
	Release(ctx context.Context, tex Texture) error

	// Download reads a render target back to host memory as packed
	// 8-bit RGBA, stride width*4. This is how a Consumer gets at the
	// mixer's output frame (spec §4.5's "hands it to consumers as an
	// immutable read-only view") without the core depending on a
	// concrete backend's readback mechanism.
	Download(ctx context.Context, tex Texture) (data []byte, width, height int, err error)

	// Use selects the fragment shader for the next draw.
	Use(ctx context.Context, s Shader) error
	// SetUniform programs the shader for the next draw.
	SetUniform(ctx context.Context, u Uniforms) error
	// Bind attaches a texture to a texture unit for the next draw.
	Bind(ctx context.Context, tex Texture, unit int) error
	// Attach selects the render target subsequent draws write to.
	Attach(ctx context.Context, target Texture) error
	// Viewport sets the device viewport in pixels.
	Viewport(ctx context.Context, w, h int) error

	// EnableScissor/DisableScissor toggle the scissor test.
	EnableScissor(ctx context.Context, rect Rect) error
	DisableScissor(ctx context.Context) error

	// EnableStipple/DisableStipple toggle polygon stippling for
	// interlaced field masking (spec §4.4 step 7, §6 stipple patterns).
	EnableStipple(ctx context.Context, pattern [128]byte) error
	DisableStipple(ctx context.Context) error

	// BlendFuncSeparate programs the fixed-function blend equation, used
	// when CapBlendModes is not advertised.
	BlendFuncSeparate(ctx context.Context, f BlendFunc) error

	// DrawQuad draws a textured quad. texCoords and positions are both
	// 4 corners of (x,y) in their respective spaces (spec §4.4 step 9).
	DrawQuad(ctx context.Context, texCoords, positions [4][2]float64) error

	// TextureBarrier is required before a draw that samples the same
	// target it writes to, used only when CapBlendModes is set
	// (spec §4.4 step 6).
	TextureBarrier(ctx context.Context) error

	// Yield asks the device to give other pending work a chance to run,
	// called when a bind would otherwise stall on a pending upload
	// (spec §4.4 step 2).
	Yield(ctx context.Context)

	// Capabilities reports the bitwise-or of this device's Capability
	// flags.
	Capabilities() Capability

	// Abort releases device resources and unblocks any pending call.
	// Idempotent (spec §5 Cancellation).
	Abort()
}

// Texture is an owning handle to a device-resident plane. Dropping the
// last reference does not return the backing allocation to the device's
// pool; only Device.Release does (spec §5 Shared Resources; Design Note
// "Raw GPU handles").
type Texture interface {
	Width() int
	Height() int
	Ready() bool
}
