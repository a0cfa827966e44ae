// Package pipeline parses line streams into examples in parallel while
// keeping input order. Lines are grouped into batches; each batch is parsed
// by a bounded set of workers and then handed to the caller one example at
// a time, in the order the lines were read. Examples are pooled and only
// valid for the duration of the emit callback.
//
// # Basic Usage
//
//	p := parser.New(pctx)
//	pl := pipeline.New(p, pipeline.Config{Source: "train.txt", BatchSize: 256})
//	stats, err := pl.Run(ctx, source.NewReader(f, 0, 0), func(ex *example.Example, ordinal uint64) error {
//	    return learner.Learn(ex)
//	})
package pipeline

import (
	"context"
	"io"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/featline/pkg/config"
	"github.com/ajitpratap0/featline/pkg/errors"
	"github.com/ajitpratap0/featline/pkg/example"
	"github.com/ajitpratap0/featline/pkg/logger"
	"github.com/ajitpratap0/featline/pkg/metrics"
	"github.com/ajitpratap0/featline/pkg/observability"
	"github.com/ajitpratap0/featline/pkg/parser"
	"github.com/ajitpratap0/featline/pkg/pool"
	"github.com/ajitpratap0/featline/pkg/source"
)

// EmitFunc receives each successfully parsed example in input order. The
// example goes back to the pool when the call returns. A non-nil error
// stops the run.
type EmitFunc func(ex *example.Example, ordinal uint64) error

// Config controls batching and failure handling.
type Config struct {
	// Source names the input in logs, metrics and spans
	Source string
	// BatchSize is the number of lines parsed together (default 256)
	BatchSize int
	// Workers bounds parse goroutines per batch (default NumCPU)
	Workers int
	// MaxLineBytes skips longer lines; 0 means no limit
	MaxLineBytes int
	// FailFast aborts the run on the first line that fails to parse
	FailFast bool
	// FirstOrdinal numbers the first example, for multi-input runs
	FirstOrdinal uint64
}

// ConfigFrom builds a pipeline config from the performance section.
func ConfigFrom(source string, perf config.PerformanceConfig) Config {
	return Config{
		Source:       source,
		BatchSize:    perf.BatchSize,
		Workers:      perf.GetWorkers(),
		MaxLineBytes: perf.GetMaxLineBytes(),
		FailFast:     perf.FailFast,
	}
}

// Stats summarizes one run.
type Stats struct {
	// Lines is the number of non-blank lines read, skipped ones included.
	// Skipped lines do not consume an ordinal.
	Lines int64 `json:"lines"`
	// Examples is the number of examples handed to the emit callback
	Examples int64 `json:"examples"`
	Failed   int64 `json:"failed"`
	Skipped  int64 `json:"skipped"`
	Features int64 `json:"features"`
	Batches  int64 `json:"batches"`
	// NextOrdinal is the ordinal the next input should start from
	NextOrdinal uint64        `json:"next_ordinal"`
	Duration    time.Duration `json:"duration"`
}

// Add accumulates o into s. NextOrdinal is taken from o.
func (s *Stats) Add(o Stats) {
	s.Lines += o.Lines
	s.Examples += o.Examples
	s.Failed += o.Failed
	s.Skipped += o.Skipped
	s.Features += o.Features
	s.Batches += o.Batches
	s.NextOrdinal = o.NextOrdinal
	s.Duration += o.Duration
}

// Pipeline runs a parser over line readers. It is safe to reuse across
// runs but not to run concurrently with itself.
type Pipeline struct {
	parser   *parser.Parser
	cfg      Config
	examples *pool.ExamplePool
	batches  *pool.Pool[*batch]
}

// New creates a pipeline around p.
func New(p *parser.Parser, cfg Config) *Pipeline {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 256
	}
	if cfg.Workers <= 0 {
		cfg.Workers = (&config.PerformanceConfig{}).GetWorkers()
	}
	return &Pipeline{
		parser:   p,
		cfg:      cfg,
		examples: pool.NewExamplePool(p.NewExample),
		batches: pool.New(func() *batch {
			return newBatch(cfg.BatchSize)
		}, func(b *batch) {
			b.reset()
		}),
	}
}

// Examples exposes the example pool, mainly for inspection in tests.
func (p *Pipeline) Examples() *pool.ExamplePool {
	return p.examples
}

// counters are shared by the reader and the parse stage.
type counters struct {
	lines, examples, failed, skipped, features, batches int64
}

// Run reads r to the end, parsing and emitting every line. It returns the
// first read or emit error, the first parse error when FailFast is set, or
// the context's error when ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context, r parser.LineReader, emit EmitFunc) (Stats, error) {
	start := time.Now()
	ctx, cancel := context.WithCancel(context.WithValue(ctx, logger.SourceKey, p.cfg.Source))
	defer cancel()
	log := logger.WithContext(ctx)
	log.Info("starting pipeline",
		zap.Int("batch_size", p.cfg.BatchSize),
		zap.Int("workers", p.cfg.Workers))

	var c counters
	var next uint64
	tracker := metrics.NewThroughputTracker(p.cfg.Source)
	batches := make(chan *batch, 1)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(batches)
		var err error
		next, err = p.read(gctx, r, batches, &c)
		return err
	})
	g.Go(func() error {
		for b := range batches {
			err := p.process(gctx, b, emit, &c)
			tracker.Increment(int64(b.len()))
			p.batches.Put(b)
			if err != nil {
				return err
			}
		}
		return nil
	})
	err := g.Wait()
	for b := range batches {
		p.batches.Put(b)
	}

	stats := Stats{
		Lines:       atomic.LoadInt64(&c.lines),
		Examples:    atomic.LoadInt64(&c.examples),
		Failed:      atomic.LoadInt64(&c.failed),
		Skipped:     atomic.LoadInt64(&c.skipped),
		Features:    atomic.LoadInt64(&c.features),
		Batches:     atomic.LoadInt64(&c.batches),
		NextOrdinal: next,
		Duration:    time.Since(start),
	}
	tracker.GetAndReset()

	if err != nil {
		log.Error("pipeline failed", zap.Error(err), zap.Int64("examples", stats.Examples))
		return stats, err
	}
	log.Info("pipeline completed",
		zap.Int64("lines", stats.Lines),
		zap.Int64("examples", stats.Examples),
		zap.Int64("failed", stats.Failed),
		zap.Int64("skipped", stats.Skipped),
		zap.Duration("duration", stats.Duration))
	return stats, nil
}

// read fills batches from r and returns the ordinal after the last line.
func (p *Pipeline) read(ctx context.Context, r parser.LineReader, out chan<- *batch, c *counters) (uint64, error) {
	log := logger.WithContext(ctx)
	ordinal := p.cfg.FirstOrdinal
	var id uint64

	b := p.batches.Get()
	b.id, b.first = id, ordinal
	send := func() error {
		select {
		case out <- b:
		case <-ctx.Done():
			p.batches.Put(b)
			return ctx.Err()
		}
		id++
		b = p.batches.Get()
		b.id, b.first = id, ordinal
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			p.batches.Put(b)
			return ordinal, err
		}

		raw, err := r.ReadChunk()
		line, _ := parser.Frame(raw)
		switch {
		case errors.Is(err, source.ErrLineTooLong), p.cfg.MaxLineBytes > 0 && len(line) > p.cfg.MaxLineBytes:
			atomic.AddInt64(&c.lines, 1)
			atomic.AddInt64(&c.skipped, 1)
			metrics.LinesParsed.WithLabelValues(p.cfg.Source, metrics.StatusSkipped).Inc()
			log.Warn("skipping line over size limit",
				zap.Uint64("ordinal", ordinal),
				zap.Int("max_line_bytes", p.cfg.MaxLineBytes))
			continue
		case err != nil && !errors.Is(err, io.EOF):
			p.batches.Put(b)
			return ordinal, err
		}

		if len(line) > 0 {
			atomic.AddInt64(&c.lines, 1)
			b.add(line)
			ordinal++
			if b.len() == p.cfg.BatchSize {
				if serr := send(); serr != nil {
					return ordinal, serr
				}
			}
		}

		if err != nil || len(raw) == 0 {
			break
		}
	}

	if b.len() == 0 {
		p.batches.Put(b)
		return ordinal, nil
	}
	return ordinal, send()
}

// process parses one batch with bounded workers and emits it in order.
func (p *Pipeline) process(ctx context.Context, b *batch, emit EmitFunc, c *counters) (err error) {
	ctx = context.WithValue(ctx, logger.BatchIDKey, b.id)
	ctx, span := observability.StartBatchSpan(ctx, p.cfg.Source, b.id, b.len())
	timer := metrics.BatchTimer(p.cfg.Source)
	var emitted, failed, features int
	defer func() {
		observability.EndSpan(span, err,
			attribute.Int("featline.batch.examples", emitted),
			attribute.Int("featline.batch.failed", failed))
		timer.ObserveDuration()
		p.examples.PutAll(b.exs)
	}()

	n := b.len()
	for i := 0; i < n; i++ {
		b.exs = append(b.exs, p.examples.Get())
	}
	b.errs = append(b.errs, make([]error, n)...)

	if err = p.parse(ctx, b); err != nil {
		return err
	}

	atomic.AddInt64(&c.batches, 1)
	log := logger.WithContext(ctx)
	for i := 0; i < n; i++ {
		ordinal := b.first + uint64(i)
		if perr := b.errs[i]; perr != nil {
			failed++
			atomic.AddInt64(&c.failed, 1)
			metrics.LinesParsed.WithLabelValues(p.cfg.Source, metrics.StatusFailed).Inc()
			if p.cfg.FailFast {
				return errors.Wrap(perr, errors.ErrorTypeData, "line failed to parse").
					WithDetail("source", p.cfg.Source).
					WithDetail("ordinal", ordinal)
			}
			log.Warn("line failed to parse", zap.Uint64("ordinal", ordinal), zap.Error(perr))
			continue
		}

		ex := b.exs[i]
		nf := ex.NumFeatures()
		if err = emit(ex, ordinal); err != nil {
			return err
		}
		emitted++
		features += nf
		atomic.AddInt64(&c.examples, 1)
		atomic.AddInt64(&c.features, int64(nf))
	}

	metrics.LinesParsed.WithLabelValues(p.cfg.Source, metrics.StatusOK).Add(float64(emitted))
	metrics.FeaturesEmitted.WithLabelValues(p.cfg.Source).Add(float64(features))
	return nil
}

// parse splits the batch into contiguous chunks, one per worker.
func (p *Pipeline) parse(ctx context.Context, b *batch) error {
	n := b.len()
	if n == 0 {
		return nil
	}
	workers := p.cfg.Workers
	if workers > n {
		workers = n
	}
	chunk := (n + workers - 1) / workers

	var g errgroup.Group
	for lo := 0; lo < n; lo += chunk {
		lo, hi := lo, min(lo+chunk, n)
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				b.errs[i] = p.parser.ParseLine(b.line(i), b.exs[i], b.first+uint64(i))
			}
			return nil
		})
	}
	return g.Wait()
}
