package environment

import (
	"sync"
	"sync/atomic"

	"github.com/hemlang/hemlock/internal/metrics"
	"github.com/hemlang/hemlock/internal/value"
)

// Pool is a free-list of pre-allocated Frames, adapted from the warm-VM
// pool's acquire/release discipline: a mutex-guarded slice acts as a LIFO
// free stack, with an overflow path for callers beyond the configured
// capacity rather than blocking them. Unlike a warm-VM pool there is no
// idle eviction timer — a Frame is always released synchronously when
// its scope exits, so the only lifecycle events are Acquire and Release.
type Pool struct {
	mu       sync.Mutex
	free     []*Frame
	capacity int

	acquired  atomic.Int64
	released  atomic.Int64
	overflow  atomic.Int64
	inUse     atomic.Int64
}

// NewPool creates a Frame pool pre-populated with capacity frames of
// DefaultCapacity name slots each.
func NewPool(capacity int) *Pool {
	if capacity <= 0 {
		capacity = 64
	}
	p := &Pool{capacity: capacity}
	p.free = make([]*Frame, 0, capacity)
	for i := 0; i < capacity; i++ {
		p.free = append(p.free, newFrame(DefaultCapacity))
	}
	return p
}

// Acquire pops a frame off the free list, or allocates a fresh one (an
// "overflow" allocation, tracked in Stats) if the pool is exhausted.
func (p *Pool) Acquire() *Frame {
	p.mu.Lock()
	n := len(p.free)
	if n == 0 {
		p.mu.Unlock()
		p.overflow.Add(1)
		p.acquired.Add(1)
		inUse := p.inUse.Add(1)
		if m := metrics.Global(); m != nil {
			m.AddEnvironmentOverflow(1)
			m.SetEnvironmentInUse(inUse)
		}
		f := newFrame(DefaultCapacity)
		f.pool = p
		return f
	}
	f := p.free[n-1]
	p.free = p.free[:n-1]
	p.mu.Unlock()
	p.acquired.Add(1)
	inUse := p.inUse.Add(1)
	if m := metrics.Global(); m != nil {
		m.SetEnvironmentInUse(inUse)
	}
	f.pool = p
	return f
}

// Release returns f to the pool, shrinking its backing slices to
// DefaultCapacity if a large scope grew them, then releasing every
// binding f still owns. A frame released twice, or one never acquired
// from a pool, is handled safely: the latter simply has its bindings
// released without being returned anywhere.
func (p *Pool) Release(f *Frame) {
	if f == nil {
		return
	}
	f.releaseBindings()
	f.Parent = nil
	if f.pool != p {
		return
	}
	f.pool = nil
	f.reset(DefaultCapacity)

	p.mu.Lock()
	if len(p.free) < p.capacity {
		p.free = append(p.free, f)
	}
	p.mu.Unlock()

	p.released.Add(1)
	inUse := p.inUse.Add(-1)
	if m := metrics.Global(); m != nil {
		m.SetEnvironmentInUse(inUse)
	}
}

// Stats reports cumulative pool activity counters for internal/metrics.
type Stats struct {
	Acquired int64
	Released int64
	Overflowed int64
	InUse    int64
}

func (p *Pool) Stats() Stats {
	return Stats{
		Acquired:   p.acquired.Load(),
		Released:   p.released.Load(),
		Overflowed: p.overflow.Load(),
		InUse:      p.inUse.Load(),
	}
}

// NewRoot creates an unpooled top-level frame for a module's global
// scope; it is not subject to Acquire/Release pooling since it lives for
// the duration of the program.
func NewRoot() *Frame {
	return newFrame(DefaultCapacity)
}

// NewChild creates an unpooled frame chained to parent; used for scopes
// (e.g. the single frame backing an entire for-loop across iterations)
// where pooling overhead is not worth it because the frame's lifetime
// already matches its enclosing pooled frame's.
func NewChild(parent *Frame) *Frame {
	f := newFrame(DefaultCapacity)
	f.Parent = parent
	return f
}

// Teardown implements the two-phase root-environment teardown for
// reference cycles rooted in closures: it walks f's bindings looking for
// captured function values whose closure chain points back into f (or
// below), and clears each such function's captured-environment link
// before ordinary refcounting runs. This breaks cycles between a
// function value and the frame that captured it without needing a
// tracing collector.
func (f *Frame) Teardown() {
	for _, v := range f.values {
		fn, ok := v.Heap.(*value.FunctionObj)
		if !ok {
			continue
		}
		env, _ := fn.Captured.(*Frame)
		for fr := env; fr != nil; fr = fr.Parent {
			if fr == f {
				fn.Captured = nil
				break
			}
		}
	}
	f.releaseBindings()
}
