package pool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/featline/pkg/example"
	"github.com/ajitpratap0/featline/pkg/label"
)

func TestPoolResetsOnPut(t *testing.T) {
	p := New(func() *[]int {
		s := make([]int, 0, 4)
		return &s
	}, func(s *[]int) {
		*s = (*s)[:0]
	})

	s := p.Get()
	*s = append(*s, 1, 2, 3)
	p.Put(s)

	stats := p.Stats()
	assert.Equal(t, int64(1), stats.Allocated)
	assert.Equal(t, int64(0), stats.InUse)
	assert.Equal(t, int64(1), stats.Misses)

	again := p.Get()
	assert.Empty(t, *again)
	assert.Equal(t, int64(1), p.Stats().InUse)
}

func TestExamplePoolReturnsCleanExamples(t *testing.T) {
	p := NewExamplePool(func() *example.Example {
		return example.New(label.Simple{}.NewLabel())
	})

	ex := p.Get()
	require.IsType(t, &label.SimpleLabel{}, ex.Label)
	ex.Indices = append(ex.Indices, 'a')
	ex.FeatureSpace['a'].PushBack(2, 7)
	ex.Tag = append(ex.Tag, "t"...)
	ex.Label.(*label.SimpleLabel).Label = 1
	p.Put(ex)

	for i := 0; i < 4; i++ {
		got := p.Get()
		assert.Empty(t, got.Indices)
		assert.True(t, got.FeatureSpace['a'].Empty())
		assert.Empty(t, got.Tag)
		assert.False(t, got.Label.(*label.SimpleLabel).IsLabeled())
	}
}

func TestExamplePoolPutAll(t *testing.T) {
	p := NewExamplePool(func() *example.Example { return example.New(nil) })
	exs := []*example.Example{p.Get(), nil, p.Get()}

	p.PutAll(exs)

	assert.Equal(t, []*example.Example{nil, nil, nil}, exs)
	assert.Equal(t, int64(0), p.Stats().InUse)
}

func TestBufferPoolBuckets(t *testing.T) {
	bp := NewBufferPool()

	tests := []struct {
		size    int
		wantCap int
	}{
		{size: 0, wantCap: 1024},
		{size: 1000, wantCap: 1024},
		{size: 1025, wantCap: 4096},
		{size: 1 << 20, wantCap: 1 << 20},
		{size: 32 << 20, wantCap: 32 << 20},
	}
	for _, tt := range tests {
		buf := bp.Get(tt.size)
		assert.Len(t, buf, 0)
		assert.Equal(t, tt.wantCap, cap(buf), "size %d", tt.size)
		bp.Put(buf)
	}
}

func TestBucketFor(t *testing.T) {
	assert.Equal(t, 0, bucketFor(1024))
	assert.Equal(t, 1, bucketFor(4096))
	assert.Equal(t, 2, bucketFor(4097))
	assert.Equal(t, 7, bucketFor(16<<20))
	assert.Equal(t, -1, bucketFor(16<<20+1))
}

func TestBufferPoolDropsGrownBuffers(t *testing.T) {
	bp := NewBufferPool()
	buf := bp.Get(10)
	buf = append(buf, make([]byte, 5000)...)
	bp.Put(buf)

	assert.Equal(t, int64(1), bp.buckets[0].Stats().InUse)
}

func TestPoolConcurrentUse(t *testing.T) {
	p := NewExamplePool(func() *example.Example { return example.New(nil) })

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				ex := p.Get()
				ex.FeatureSpace[byte(g)].PushBack(1, uint64(i))
				ex.Indices = append(ex.Indices, byte(g))
				p.Put(ex)
			}
		}(g)
	}
	wg.Wait()

	assert.Equal(t, int64(0), p.Stats().InUse)
}
