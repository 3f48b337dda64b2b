package transform

// Interpolatable is the constraint TweenedTransform's value type must
// satisfy: a Lerp from the receiver toward dest at progress p∈[0,1].
type Interpolatable[T any] interface {
	Lerp(dest T, p float64) T
}

// Tweened is the generic (source, dest, duration, time, tweener) tuple
// from spec §3. FetchAndTick(n) is the only mutator; everything else is
// a constructor or a read.
type Tweened[T Interpolatable[T]] struct {
	source   T
	dest     T
	duration int64
	time     int64
	tweener  Tweener
}

// NewTweened constructs a Tweened fixed at dest (duration 0): the very
// first FetchAndTick returns dest immediately, matching spec §8's
// round-trip "set_transform(T, 0, ...) causes the very next tick to draw
// with T".
func NewTweened[T Interpolatable[T]](dest T) Tweened[T] {
	return Tweened[T]{dest: dest, duration: 0, tweener: Linear}
}

// NewAnimatedTween constructs a Tweened that animates from source to
// dest over durationFrames ticks using the named tweener.
func NewAnimatedTween[T Interpolatable[T]](source, dest T, durationFrames int64, tweenerName string) Tweened[T] {
	if durationFrames < 0 {
		durationFrames = 0
	}
	return Tweened[T]{
		source: source, dest: dest, duration: durationFrames,
		tweener: Tween(tweenerName),
	}
}

// Dest returns the tween's target value, used by ApplyTransform-style
// operations that want to chain a new tween from the current target.
func (tw Tweened[T]) Dest() T { return tw.dest }

// Done reports whether the tween has reached its destination.
func (tw Tweened[T]) Done() bool { return tw.time >= tw.duration }

// FetchAndTick advances time by n frames, saturating at duration, and
// returns the interpolated value for the new time — dest exactly once
// time reaches duration (spec §3, §8 monotonicity invariant).
func (tw *Tweened[T]) FetchAndTick(n int64) T {
	tw.time += n
	if tw.time >= tw.duration {
		tw.time = tw.duration
		return tw.dest
	}
	if tw.duration <= 0 {
		return tw.dest
	}
	p := tw.tweener(float64(tw.time) / float64(tw.duration))
	return tw.source.Lerp(tw.dest, p)
}
