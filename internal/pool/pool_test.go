package pool

import "testing"

func TestGetAllocatesOnMiss(t *testing.T) {
	t.Parallel()

	calls := 0
	p := New(func(k Key) int {
		calls++
		return k.Width * k.Height
	})

	v := p.Get(Key{Width: 4, Height: 4})
	if v != 16 || calls != 1 {
		t.Fatalf("got v=%d calls=%d, want v=16 calls=1", v, calls)
	}
}

func TestPutThenGetReusesInstance(t *testing.T) {
	t.Parallel()

	calls := 0
	p := New(func(k Key) int {
		calls++
		return calls
	})

	k := Key{Width: 8, Height: 8}
	v := p.Get(k)
	p.Put(k, v)

	if got := p.Get(k); got != v {
		t.Errorf("Get after Put = %d, want reused %d", got, v)
	}
	if calls != 1 {
		t.Errorf("New called %d times, want 1 (second Get should reuse)", calls)
	}
}

func TestDifferentKeysDoNotShare(t *testing.T) {
	t.Parallel()

	p := New(func(k Key) Key { return k })
	a := Key{Width: 1}
	b := Key{Width: 2}

	p.Put(a, p.Get(a))
	if p.Len(b) != 0 {
		t.Errorf("Len(b) = %d, want 0", p.Len(b))
	}
	if p.Len(a) != 1 {
		t.Errorf("Len(a) = %d, want 1", p.Len(a))
	}
}
