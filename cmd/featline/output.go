package main

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ajitpratap0/featline/pkg/compression"
	"github.com/ajitpratap0/featline/pkg/config"
	"github.com/ajitpratap0/featline/pkg/errors"
	"github.com/ajitpratap0/featline/pkg/example"
	"github.com/ajitpratap0/featline/pkg/json"
	"github.com/ajitpratap0/featline/pkg/label"
	"github.com/ajitpratap0/featline/pkg/pool"
)

// exampleWriter renders examples in emit order. Write is only called from
// the pipeline's emit goroutine.
type exampleWriter interface {
	Write(ex *example.Example, ordinal uint64) error
	Close() error
}

func openOutput(format, path string, stdout io.Writer) (exampleWriter, error) {
	switch format {
	case "none":
		return discardWriter{}, nil
	case "text", "", "json":
	default:
		return nil, errors.New(errors.ErrorTypeConfig, "unknown output format").WithDetail("output", format)
	}

	var sink io.Writer = stdout
	var closers []io.Closer
	if path != "" {
		f, err := os.Create(path) //nolint:gosec // output path comes from the user
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create output").WithDetail("path", path)
		}
		zw, err := compression.NewWriter(f, compression.Detect(path), compression.Default)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		sink = zw
		closers = append(closers, zw, f)
	}
	bw := bufio.NewWriterSize(sink, 64*1024)
	base := bufferedOutput{w: bw, closers: closers}

	if format == "json" {
		enc, err := json.NewStreamingEncoder(bw, false)
		if err != nil {
			_ = base.Close()
			return nil, err
		}
		return &jsonWriter{bufferedOutput: base, enc: enc}, nil
	}
	return &textWriter{bufferedOutput: base, buf: pool.GlobalBufferPool.Get(4096)}, nil
}

// parseDictionaryFlag splits "namespaces:path". Without a colon the
// dictionary applies to the default namespace.
func parseDictionaryFlag(spec string) (config.DictionaryConfig, error) {
	ns, path, found := strings.Cut(spec, ":")
	if !found {
		return config.DictionaryConfig{Path: spec}, nil
	}
	// s3:// and gs:// paths carry their own colon
	if strings.HasPrefix(path, "//") {
		return config.DictionaryConfig{Path: spec}, nil
	}
	if path == "" {
		return config.DictionaryConfig{}, errors.New(errors.ErrorTypeConfig, "dictionary path is empty").
			WithDetail("dictionary", spec)
	}
	return config.DictionaryConfig{Namespaces: ns, Path: path}, nil
}

type bufferedOutput struct {
	w       *bufio.Writer
	closers []io.Closer
}

func (o bufferedOutput) Close() error {
	err := o.w.Flush()
	for _, c := range o.closers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// textWriter prints one example per line:
//
//	ordinal [label weight] ['tag] |ns index:value ... |ns ...
//
// With audit names the feature reads name:index:value.
type textWriter struct {
	bufferedOutput
	buf []byte
}

func (t *textWriter) Write(ex *example.Example, ordinal uint64) error {
	t.buf = appendText(t.buf[:0], ex, ordinal)
	_, err := t.w.Write(t.buf)
	return err
}

func (t *textWriter) Close() error {
	pool.GlobalBufferPool.Put(t.buf)
	t.buf = nil
	return t.bufferedOutput.Close()
}

func appendText(b []byte, ex *example.Example, ordinal uint64) []byte {
	b = strconv.AppendUint(b, ordinal, 10)
	if sl, ok := ex.Label.(*label.SimpleLabel); ok && sl.IsLabeled() {
		b = append(b, ' ')
		b = strconv.AppendFloat(b, float64(sl.Label), 'g', -1, 32)
		b = append(b, ' ')
		b = strconv.AppendFloat(b, float64(sl.Weight), 'g', -1, 32)
	}
	if len(ex.Tag) > 0 {
		b = append(b, " '"...)
		b = append(b, ex.Tag...)
	}
	for _, ns := range ex.Indices {
		fs := &ex.FeatureSpace[ns]
		b = append(b, " |"...)
		b = append(b, json.NamespaceName(ns)...)
		for i := range fs.Values {
			b = append(b, ' ')
			if i < len(fs.SpaceNames) {
				b = append(b, fs.SpaceNames[i].String()...)
				b = append(b, ':')
			}
			b = strconv.AppendUint(b, fs.Indices[i], 10)
			b = append(b, ':')
			b = strconv.AppendFloat(b, float64(fs.Values[i]), 'g', -1, 32)
		}
	}
	return append(b, '\n')
}

type jsonWriter struct {
	bufferedOutput
	enc *json.StreamingEncoder
}

func (j *jsonWriter) Write(ex *example.Example, ordinal uint64) error {
	return j.enc.EncodeExample(ex, ordinal)
}

func (j *jsonWriter) Close() error {
	err := j.enc.Close()
	if cerr := j.bufferedOutput.Close(); err == nil {
		err = cerr
	}
	return err
}

type discardWriter struct{}

func (discardWriter) Write(*example.Example, uint64) error { return nil }
func (discardWriter) Close() error                         { return nil }
