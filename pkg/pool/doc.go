// Package pool provides typed object pooling for featline.
//
// The parser is built around reuse: an Example keeps every backing array
// across Reset, so recycling examples through a pool lets a long-running
// pipeline parse without steady-state allocation. The package offers:
//   - Pool[T], a type-safe sync.Pool wrapper with reset hooks and statistics
//   - ExamplePool, which hands out empty examples and satisfies the
//     parser's ExampleSource
//   - BufferPool, size-bucketed byte buffers for output rendering
//
// Example usage:
//
//	p := parser.New(ctx)
//	examples := pool.NewExamplePool(p.NewExample)
//
//	ex := examples.Get()
//	defer examples.Put(ex)
//	err := p.ParseLine(line, ex, ordinal)
package pool
