// Package fault names the error kinds spec §7 distinguishes for the
// pipeline's local-recovery rule: most faults are logged and contained
// at the component that saw them, never propagated past it. Modeled as
// a small struct-plus-Kind-enum error, in the teacher's
// internal/moq.ParseError style (a typed wrapper with Error/Unwrap)
// rather than sentinel errors, since callers classify on Kind, not on
// errors.Is against a fixed set of values.
package fault

import "fmt"

// Kind distinguishes how a fault should be handled (spec §7).
type Kind int

const (
	// TransientProducer: a producer returned no frame this tick.
	// Surfaced as empty to the mixer, logged, never propagated.
	TransientProducer Kind = iota
	// ProducerFatal: a producer failed irrecoverably during receive.
	// The owning layer is cleared; the pipeline continues.
	ProducerFatal
	// MixerDrawFatal: a single bundle's draw failed. The bundle is
	// dropped, its ticket still released, and the next tick proceeds.
	MixerDrawFatal
	// GpuDeviceFatal: the device itself is lost or unusable. The
	// channel aborts and re-initializes its mixer; producers remain.
	GpuDeviceFatal
	// Abort: shutdown in progress, propagated only through bounded
	// queue abort signals.
	Abort
)

func (k Kind) String() string {
	switch k {
	case TransientProducer:
		return "transient_producer"
	case ProducerFatal:
		return "producer_fatal"
	case MixerDrawFatal:
		return "mixer_draw_fatal"
	case GpuDeviceFatal:
		return "gpu_device_fatal"
	case Abort:
		return "abort"
	default:
		return "unknown"
	}
}

// Fault pairs a Kind with the underlying error, if any, so a log site
// can record both the handling category and the cause in one value.
type Fault struct {
	Kind Kind
	Err  error
}

// New wraps err under kind. err may be nil for kinds like
// TransientProducer that carry no underlying error.
func New(kind Kind, err error) *Fault {
	return &Fault{Kind: kind, Err: err}
}

func (f *Fault) Error() string {
	if f.Err == nil {
		return f.Kind.String()
	}
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *Fault) Unwrap() error { return f.Err }
