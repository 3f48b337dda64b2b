// Package pool implements the device-local resource pool spec §5
// describes for GPU textures: items are keyed by their allocation shape
// and returned to the pool on release rather than freed, bounding
// allocation churn for the steady-state tick rate.
package pool

import "sync"

// Key identifies one pool bucket: texture width, height, stride, and a
// caller-defined format tag (spec §5: "keyed by (width, height, stride,
// format)").
type Key struct {
	Width, Height, Stride int
	Format                int
}

// Pool holds reusable V values bucketed by Key. New is called to
// allocate a fresh V when no pooled instance is available for a key.
type Pool[V any] struct {
	mu      sync.Mutex
	buckets map[Key][]V
	New     func(k Key) V
}

// New creates a Pool whose misses are filled by newFn.
func New[V any](newFn func(k Key) V) *Pool[V] {
	return &Pool[V]{buckets: make(map[Key][]V), New: newFn}
}

// Get returns a pooled instance for k, or allocates one via New if the
// bucket is empty.
func (p *Pool[V]) Get(k Key) V {
	p.mu.Lock()
	bucket := p.buckets[k]
	if len(bucket) > 0 {
		v := bucket[len(bucket)-1]
		p.buckets[k] = bucket[:len(bucket)-1]
		p.mu.Unlock()
		return v
	}
	p.mu.Unlock()
	return p.New(k)
}

// Put returns v to the pool under k for reuse by a later Get.
func (p *Pool[V]) Put(k Key, v V) {
	p.mu.Lock()
	p.buckets[k] = append(p.buckets[k], v)
	p.mu.Unlock()
}

// Len reports the number of pooled (not in-use) instances under k, for
// tests and diagnostics.
func (p *Pool[V]) Len(k Key) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buckets[k])
}
