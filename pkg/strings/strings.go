// Package strings turns the parser's borrowed byte slices into owned
// strings. Audit names and diagnostics are built in pooled buffers and
// copied out once, so building them costs one allocation each.
package strings

import (
	"fmt"
	"strconv"
	"sync"
	"unsafe"
)

// BytesToString views b as a string without copying. The string is only
// valid while b is left unmodified; use it for lookups and number parsing,
// never for values that outlive the line.
func BytesToString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(unsafe.SliceData(b), len(b))
}

// Builder accumulates bytes for one string.
type Builder struct {
	buf []byte
}

// NewBuilder creates a builder with room for capacity bytes.
func NewBuilder(capacity int) *Builder {
	return &Builder{buf: make([]byte, 0, capacity)}
}

func (b *Builder) WriteString(s string) {
	b.buf = append(b.buf, s...)
}

func (b *Builder) WriteBytes(data []byte) {
	b.buf = append(b.buf, data...)
}

// WriteByte never fails; the error satisfies io.ByteWriter.
func (b *Builder) WriteByte(c byte) error {
	b.buf = append(b.buf, c)
	return nil
}

// Write lets fmt.Fprintf target the builder.
func (b *Builder) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	return len(p), nil
}

// AppendUint writes n in base 10.
func (b *Builder) AppendUint(n uint64) {
	b.buf = strconv.AppendUint(b.buf, n, 10)
}

// String views the contents without copying. It is invalidated by the
// next write or Reset.
func (b *Builder) String() string {
	return BytesToString(b.buf)
}

func (b *Builder) Len() int {
	return len(b.buf)
}

func (b *Builder) Reset() {
	b.buf = b.buf[:0]
}

// BuilderSize selects a pool bucket.
type BuilderSize int

const (
	Small  BuilderSize = iota // audit names, short diagnostics
	Medium                    // diagnostics quoting typical lines
	Large                     // diagnostics quoting very long lines
)

var bucketCaps = [...]int{Small: 1024, Medium: 16 * 1024, Large: 64 * 1024}

var builders [len(bucketCaps)]sync.Pool

func init() {
	for i := range builders {
		capacity := bucketCaps[i]
		builders[i].New = func() interface{} { return NewBuilder(capacity) }
	}
}

// SizeFor picks the bucket for an expected output length.
func SizeFor(n int) BuilderSize {
	switch {
	case n > bucketCaps[Medium]:
		return Large
	case n > bucketCaps[Small]:
		return Medium
	default:
		return Small
	}
}

func getBuilder(size BuilderSize) *Builder {
	b := builders[size].Get().(*Builder)
	b.Reset()
	return b
}

func putBuilder(b *Builder, size BuilderSize) {
	// builders that grew past four times their bucket are dropped
	if cap(b.buf) > 4*bucketCaps[size] {
		return
	}
	builders[size].Put(b)
}

// BuildString runs fn against a pooled builder and returns an owned copy
// of what it wrote.
func BuildString(size BuilderSize, fn func(*Builder)) string {
	b := getBuilder(size)
	defer putBuilder(b, size)
	fn(b)
	return string(b.buf)
}

// Sprintf is fmt.Sprintf through a pooled builder.
func Sprintf(format string, args ...interface{}) string {
	if len(args) == 0 {
		return format
	}
	return BuildString(SizeFor(len(format)+len(args)*16), func(b *Builder) {
		fmt.Fprintf(b, format, args...)
	})
}
