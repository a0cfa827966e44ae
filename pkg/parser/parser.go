// Package parser turns text lines of the form
//
//	[label] ['tag] |ns[:w] f1[:v] f2 ... |ns2 ...
//
// into sparse examples. Feature and namespace names are hashed with the
// context's hash function, zero-valued features are dropped and optional
// affix, spelling and dictionary features are derived per namespace.
//
// A Parser is immutable after construction and safe for concurrent use as
// long as every goroutine parses into its own Example.
package parser

import (
	"bytes"
	"io"

	"go.uber.org/multierr"

	"github.com/ajitpratap0/featline/pkg/errors"
	"github.com/ajitpratap0/featline/pkg/example"
	"github.com/ajitpratap0/featline/pkg/label"
	"github.com/ajitpratap0/featline/pkg/logger"
)

// ErrEndOfInput is returned by ReadExample once the reader has no more lines.
var ErrEndOfInput = errors.New(errors.ErrorTypeData, "end of input")

// LineReader yields one raw line per call, including its '\n' when present.
// The slice is only valid until the next call. At end of input it returns
// an empty slice, usually with io.EOF.
type LineReader interface {
	ReadChunk() ([]byte, error)
}

// ExampleSource hands out clean examples when ReadLines needs more.
type ExampleSource interface {
	Get() *example.Example
}

// Option configures a Parser.
type Option func(*Parser)

// WithLabelParser sets the label parser. nil disables label parsing.
func WithLabelParser(lp label.Parser) Option {
	return func(p *Parser) {
		p.labels = lp
	}
}

// WithWarningSink sets where permissive-mode diagnostics go.
func WithWarningSink(sink WarningSink) Option {
	return func(p *Parser) {
		p.sink = sink
	}
}

// Parser parses lines against a fixed Context.
type Parser struct {
	ctx    *Context
	labels label.Parser
	sink   WarningSink
	rec    recorder
}

// New creates a parser. By default it uses the simple label parser and
// logs diagnostics through the global logger.
func New(ctx *Context, opts ...Option) *Parser {
	p := &Parser{
		ctx:    ctx,
		labels: label.Simple{},
		rec:    silentRecorder{},
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.sink == nil {
		p.sink = LogSink(logger.Get())
	}
	if ctx.Audit {
		p.rec = auditRecorder{}
	}
	return p
}

// Context returns the parser's configuration.
func (p *Parser) Context() *Context {
	return p.ctx
}

// NewExample returns an empty example carrying this parser's label type.
func (p *Parser) NewExample() *example.Example {
	if p.labels == nil {
		return example.New(nil)
	}
	return example.New(p.labels.NewLabel())
}

// ParseLine parses one raw or framed line into ex. Trailing '\n' bytes are
// stripped and the line is framed, so a byte order mark or "\r\n" never
// reaches the grammar. ordinal only appears in diagnostics. ex should be
// empty on entry. In strict mode the first diagnostic aborts the line and ex
// is left partially filled.
func (p *Parser) ParseLine(line []byte, ex *example.Example, ordinal uint64) error {
	for len(line) > 1 && line[len(line)-1] == '\n' && line[len(line)-2] == '\n' {
		line = line[:len(line)-1]
	}
	line, _ = Frame(line)
	return p.parse(line, ex, ordinal)
}

// ReadLines parses every non-empty line of buf. examples is reused in order
// and grown from src when buf has more lines than examples. The returned
// slice holds exactly the populated examples. Per-line failures are joined
// into the returned error; the remaining lines are still parsed.
func (p *Parser) ReadLines(buf []byte, examples []*example.Example, src ExampleSource, firstOrdinal uint64) ([]*example.Example, error) {
	var errs error
	n := 0
	for len(buf) > 0 {
		var raw []byte
		if i := bytes.IndexByte(buf, '\n'); i >= 0 {
			raw, buf = buf[:i+1], buf[i+1:]
		} else {
			raw, buf = buf, nil
		}

		line, _ := Frame(raw)
		if len(line) == 0 {
			continue
		}
		if n == len(examples) {
			examples = append(examples, src.Get())
		}
		if err := p.parse(line, examples[n], firstOrdinal+uint64(n)); err != nil {
			errs = multierr.Append(errs, err)
		}
		n++
	}
	return examples[:n], errs
}

// ReadExample reads one line from r into ex and returns the number of raw
// bytes consumed. An empty read ends the input with ErrEndOfInput; a blank
// line is not the end and leaves ex empty.
func (p *Parser) ReadExample(r LineReader, ex *example.Example, ordinal uint64) (int, error) {
	raw, err := r.ReadChunk()
	if len(raw) == 0 {
		if err == nil || errors.Is(err, io.EOF) {
			return 0, ErrEndOfInput
		}
		return 0, errors.Wrap(err, errors.ErrorTypeFile, "failed to read line")
	}

	line, consumed := Frame(raw)
	return consumed, p.parse(line, ex, ordinal)
}

func (p *Parser) parse(line []byte, ex *example.Example, ordinal uint64) error {
	if ex.Label == nil && p.labels != nil {
		ex.Label = p.labels.NewLabel()
	} else if ex.Label != nil {
		ex.Label.Reset()
	}

	diag := reporter{
		strict:  p.ctx.Strict,
		sink:    p.sink,
		line:    line,
		ordinal: ordinal,
	}

	bar := bytes.IndexByte(line, '|')
	if bar != 0 {
		segment := line
		if bar > 0 {
			segment = line[:bar]
		}
		var buf [8][]byte
		words, tag, hasTag := splitLabel(segment, buf[:0])
		if hasTag {
			ex.Tag = append(ex.Tag, tag...)
		}
		if len(words) > 0 && p.labels != nil {
			if err := p.labels.Parse(words, ex.Label); err != nil {
				if !errors.IsMalformed(err) {
					return err
				}
				var le *errors.Error
				errors.As(err, &le)
				if rerr := diag.report(diag.diagnose(errors.ErrorTypeLabel, le.Message, nil, "")); rerr != nil {
					return rerr
				}
			}
		}
	}
	if bar < 0 {
		return nil
	}

	diag.line = line[bar:]
	lp := lineParser{
		ctx:  p.ctx,
		line: line[bar:],
		ex:   ex,
		rec:  p.rec,
		diag: &diag,
	}
	return lp.listNameSpace()
}
