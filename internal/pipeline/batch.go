package pipeline

import (
	"github.com/ajitpratap0/featline/pkg/example"
)

// batch owns a copy of its lines so the reader can move on while the
// batch is parsed. All lines share one backing array.
type batch struct {
	id    uint64
	first uint64
	data  []byte
	ends  []int
	exs   []*example.Example
	errs  []error
}

func newBatch(size int) *batch {
	return &batch{
		data: make([]byte, 0, size*128),
		ends: make([]int, 0, size),
		exs:  make([]*example.Example, 0, size),
		errs: make([]error, 0, size),
	}
}

func (b *batch) add(line []byte) {
	b.data = append(b.data, line...)
	b.ends = append(b.ends, len(b.data))
}

func (b *batch) len() int {
	return len(b.ends)
}

func (b *batch) line(i int) []byte {
	start := 0
	if i > 0 {
		start = b.ends[i-1]
	}
	return b.data[start:b.ends[i]]
}

func (b *batch) reset() {
	b.id, b.first = 0, 0
	b.data = b.data[:0]
	b.ends = b.ends[:0]
	for i := range b.exs {
		b.exs[i] = nil
	}
	b.exs = b.exs[:0]
	for i := range b.errs {
		b.errs[i] = nil
	}
	b.errs = b.errs[:0]
}
