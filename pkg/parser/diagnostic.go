package parser

import (
	"bytes"
	"strconv"

	"go.uber.org/zap"

	"github.com/ajitpratap0/featline/pkg/errors"
	"github.com/ajitpratap0/featline/pkg/metrics"
	stringpool "github.com/ajitpratap0/featline/pkg/strings"
)

// Diagnostic describes one malformed-input condition found in a line.
type Diagnostic struct {
	// Kind is errors.ErrorTypeSyntax, errors.ErrorTypeNumeric or errors.ErrorTypeLabel
	Kind    errors.ErrorType
	Message string
	Ordinal uint64
}

func (d *Diagnostic) Error() string {
	return d.Message
}

// WarningSink receives diagnostics in permissive mode. Implementations must
// be safe for concurrent use when one Parser is shared across goroutines.
type WarningSink interface {
	Warn(d *Diagnostic)
}

// SinkFunc adapts a function to WarningSink.
type SinkFunc func(d *Diagnostic)

// Warn calls f(d).
func (f SinkFunc) Warn(d *Diagnostic) {
	f(d)
}

// Discard drops every diagnostic.
var Discard WarningSink = SinkFunc(func(*Diagnostic) {})

type logSink struct {
	logger *zap.Logger
}

// LogSink writes diagnostics as warnings to l and counts them.
func LogSink(l *zap.Logger) WarningSink {
	return logSink{logger: l}
}

func (s logSink) Warn(d *Diagnostic) {
	metrics.Diagnostics.WithLabelValues(string(d.Kind)).Inc()
	s.logger.Warn(d.Message,
		zap.String("kind", string(d.Kind)),
		zap.Uint64("example", d.Ordinal))
}

// reporter turns diagnostics into errors or warnings depending on the mode.
type reporter struct {
	strict  bool
	sink    WarningSink
	line    []byte
	ordinal uint64
}

// diagnose formats message, the context bytes and message2, followed by the
// example ordinal and the line quoted up to its first NUL byte.
func (r *reporter) diagnose(kind errors.ErrorType, message string, context []byte, message2 string) *Diagnostic {
	line := r.line
	if i := bytes.IndexByte(line, 0); i >= 0 {
		line = line[:i]
	}
	size := stringpool.SizeFor(len(message) + len(context) + len(message2) + len(line) + 32)
	text := stringpool.BuildString(size, func(b *stringpool.Builder) {
		b.WriteString(message)
		b.WriteBytes(context)
		b.WriteString(message2)
		b.WriteString(" in Example #")
		b.WriteString(strconv.FormatUint(r.ordinal, 10))
		b.WriteString(`: "`)
		b.WriteBytes(line)
		b.WriteString(`"`)
	})
	return &Diagnostic{Kind: kind, Message: text, Ordinal: r.ordinal}
}

// report is a no-op for nil. In strict mode it returns the diagnostic as an
// error; otherwise it hands it to the sink and parsing continues.
func (r *reporter) report(d *Diagnostic) error {
	if d == nil {
		return nil
	}
	if r.strict {
		return errors.New(d.Kind, d.Message).WithDetail("ordinal", d.Ordinal)
	}
	r.sink.Warn(d)
	return nil
}
