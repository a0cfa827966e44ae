package pool

import (
	"math/bits"
	"sync"
	"sync/atomic"

	"github.com/ajitpratap0/featline/pkg/example"
)

// Pool represents a generic object pool with type safety.
// It wraps sync.Pool with hit/miss statistics and an optional reset
// function that runs before an object goes back into the pool. The pool is
// safe for concurrent use.
type Pool[T any] struct {
	pool  sync.Pool
	reset func(T)
	stats struct {
		allocated int64
		inUse     int64
		hits      int64
		misses    int64
	}
	// set by sync.Pool.New so Get can tell a miss from a hit
	fresh atomic.Bool
}

// New creates a new typed pool. newFn runs when the pool is empty; reset
// runs on every object passed to Put.
func New[T any](newFn func() T, reset func(T)) *Pool[T] {
	p := &Pool[T]{reset: reset}
	p.pool.New = func() interface{} {
		atomic.AddInt64(&p.stats.allocated, 1)
		p.fresh.Store(true)
		return newFn()
	}
	return p
}

// Get retrieves an object from the pool or allocates a new one.
func (p *Pool[T]) Get() T {
	atomic.AddInt64(&p.stats.inUse, 1)
	obj := p.pool.Get().(T)
	if p.fresh.Swap(false) {
		atomic.AddInt64(&p.stats.misses, 1)
	} else {
		atomic.AddInt64(&p.stats.hits, 1)
	}
	return obj
}

// Put resets obj and returns it to the pool.
func (p *Pool[T]) Put(obj T) {
	if p.reset != nil {
		p.reset(obj)
	}
	atomic.AddInt64(&p.stats.inUse, -1)
	p.pool.Put(obj)
}

// Stats returns a snapshot of the pool counters. Under concurrent Gets the
// hit/miss split is approximate.
func (p *Pool[T]) Stats() Stats {
	return Stats{
		Allocated: atomic.LoadInt64(&p.stats.allocated),
		InUse:     atomic.LoadInt64(&p.stats.inUse),
		Hits:      atomic.LoadInt64(&p.stats.hits),
		Misses:    atomic.LoadInt64(&p.stats.misses),
	}
}

// Stats represents pool statistics for monitoring.
type Stats struct {
	// Allocated is the total number of objects created by the pool
	Allocated int64
	// InUse is the current number of objects checked out from the pool
	InUse int64
	// Hits is the number of retrievals served from recycled objects
	Hits int64
	// Misses is the number of times a new object had to be created
	Misses int64
}

// ExamplePool recycles parsed examples. Examples come out empty and keep
// their backing arrays, so steady-state parsing does not allocate.
type ExamplePool struct {
	*Pool[*example.Example]
}

// NewExamplePool creates a pool whose new examples come from newFn,
// typically (*parser.Parser).NewExample so they carry the right label type.
func NewExamplePool(newFn func() *example.Example) *ExamplePool {
	return &ExamplePool{
		Pool: New(newFn, func(ex *example.Example) {
			ex.Reset()
		}),
	}
}

// PutAll returns every example in exs and clears the slice entries.
func (p *ExamplePool) PutAll(exs []*example.Example) {
	for i, ex := range exs {
		if ex != nil {
			p.Put(ex)
			exs[i] = nil
		}
	}
}

// Buffer buckets grow by 4x from minBuffer to maxBuffer.
const (
	minBufferShift = 10 // 1KB
	bufferBuckets  = 8  // up to 16MB
)

// BufferPool hands out byte slices from power-of-4 capacity buckets.
// Buffers come out with zero length and at least the requested capacity.
type BufferPool struct {
	buckets [bufferBuckets]*Pool[[]byte]
}

// NewBufferPool creates a buffer pool with buckets from 1KB to 16MB.
// Larger requests are allocated directly and never pooled.
func NewBufferPool() *BufferPool {
	p := &BufferPool{}
	for i := range p.buckets {
		capacity := bucketCap(i)
		p.buckets[i] = New(func() []byte { return make([]byte, 0, capacity) }, nil)
	}
	return p
}

func bucketCap(i int) int {
	return 1 << (minBufferShift + 2*i)
}

// bucketFor returns the smallest bucket holding size bytes, or -1.
func bucketFor(size int) int {
	if size <= 1<<minBufferShift {
		return 0
	}
	// ceil(log4(size / 1KB))
	i := (bits.Len(uint(size-1)) - minBufferShift + 1) / 2
	if i >= bufferBuckets {
		return -1
	}
	return i
}

// Get returns an empty buffer with capacity of at least size.
func (p *BufferPool) Get(size int) []byte {
	if i := bucketFor(size); i >= 0 {
		return p.buckets[i].Get()[:0]
	}
	return make([]byte, 0, size)
}

// Put returns buf to the bucket matching its capacity. Buffers that grew
// past their bucket are left to the garbage collector.
func (p *BufferPool) Put(buf []byte) {
	if i := bucketFor(cap(buf)); i >= 0 && bucketCap(i) == cap(buf) {
		p.buckets[i].Put(buf[:0])
	}
}

// GlobalBufferPool serves output and read buffers across the process.
var GlobalBufferPool = NewBufferPool()
