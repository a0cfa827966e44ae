// Package dictionary loads feature dictionaries: files that map a word to a
// precomputed feature vector. When a namespace has dictionaries attached,
// every named feature found in one of them has the dictionary's features
// copied into the dictionary namespace of the example.
//
// A dictionary file holds one entry per line:
//
//	word features...
//
// The word runs up to the first space or tab. The rest of the line is
// parsed like the feature segment of an input line; a leading '|' is
// optional and, when missing, the features land in the default namespace.
// All namespaces of an entry are flattened into one vector. Lines without
// features are skipped.
package dictionary

import (
	"bytes"
	"context"
	"io"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ajitpratap0/featline/pkg/config"
	"github.com/ajitpratap0/featline/pkg/errors"
	"github.com/ajitpratap0/featline/pkg/example"
	"github.com/ajitpratap0/featline/pkg/logger"
	"github.com/ajitpratap0/featline/pkg/metrics"
	"github.com/ajitpratap0/featline/pkg/observability"
	"github.com/ajitpratap0/featline/pkg/parser"
	"github.com/ajitpratap0/featline/pkg/source"
)

// Dict is an immutable word to features map.
type Dict struct {
	name    string
	entries map[string]*example.Features
}

// New creates an empty dictionary.
func New(name string) *Dict {
	return &Dict{name: name, entries: make(map[string]*example.Features)}
}

// Name returns the path the dictionary was loaded from.
func (d *Dict) Name() string {
	return d.name
}

// Len returns the number of words.
func (d *Dict) Len() int {
	return len(d.entries)
}

// Add stores features for word, replacing an earlier entry.
func (d *Dict) Add(word string, features *example.Features) {
	d.entries[word] = features
}

// Lookup implements parser.Dictionary. The precomputed hash is not needed
// because entries are keyed by the word itself.
func (d *Dict) Lookup(name []byte, _ uint64) *example.Features {
	return d.entries[string(name)]
}

// Read parses dictionary lines from r under the hashing and derived
// feature settings of pctx. Dictionaries already attached to pctx are not
// consulted. Entries keep only values and indices. Malformed entries are
// logged and, when pctx is strict, fail the load.
func Read(name string, r parser.LineReader, pctx *parser.Context) (*Dict, error) {
	dctx := *pctx
	dctx.Dictionaries = [256][]parser.Dictionary{}
	dctx.Audit = false
	p := parser.New(&dctx, parser.WithLabelParser(nil))

	d := New(name)
	ex := example.New(nil)

	var buf []byte
	var ordinal uint64
	for {
		raw, err := r.ReadChunk()
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read dictionary").
				WithDetail("path", name)
		}

		line, _ := parser.Frame(raw)
		word, rest := splitEntry(line)
		if len(word) > 0 && len(rest) > 0 {
			buf = append(append(buf[:0], '|'), rest...)

			ex.Reset()
			if perr := p.ParseLine(buf, ex, ordinal); perr != nil {
				return nil, errors.Wrap(perr, errors.ErrorTypeData, "malformed dictionary entry").
					WithDetail("path", name).
					WithDetail("word", string(word))
			}
			if fs := flatten(ex); fs != nil {
				d.Add(string(word), fs)
			}
		}
		ordinal++

		if err != nil {
			return d, nil
		}
	}
}

// splitEntry returns the word and everything after it, starting at the
// separating blank so the feature list parses with its leading space.
func splitEntry(line []byte) (word, rest []byte) {
	line = bytes.TrimLeft(line, " \t")
	i := bytes.IndexAny(line, " \t")
	if i <= 0 {
		return nil, nil
	}
	return line[:i], line[i:]
}

func flatten(ex *example.Example) *example.Features {
	n := ex.NumFeatures()
	if n == 0 {
		return nil
	}
	fs := &example.Features{
		Values:  make([]float32, 0, n),
		Indices: make([]uint64, 0, n),
	}
	for _, ns := range ex.Indices {
		src := &ex.FeatureSpace[ns]
		fs.Values = append(fs.Values, src.Values...)
		fs.Indices = append(fs.Indices, src.Indices...)
		fs.SumFeatSq += src.SumFeatSq
	}
	return fs
}

// LoadAll opens every configured dictionary and attaches it to pctx. pctx
// must not be in use by running parsers yet.
func LoadAll(ctx context.Context, dicts []config.DictionaryConfig, opener *source.Opener, pctx *parser.Context) error {
	var errs error
	for _, dc := range dicts {
		d, err := Load(ctx, dc.Path, opener, pctx)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		pctx.AddDictionary(dc.Namespaces, d)
	}
	return errs
}

// Load reads one dictionary file, local or remote, compressed or not.
func Load(ctx context.Context, path string, opener *source.Opener, pctx *parser.Context) (d *Dict, err error) {
	ctx, span := observability.StartDictionarySpan(ctx, path)
	defer func() {
		var n int
		if d != nil {
			n = d.Len()
		}
		observability.EndSpan(span, err, attribute.Int("featline.dictionary.entries", n))
	}()

	rc, err := opener.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	d, err = Read(path, source.NewReader(rc, 0, 0), pctx)
	if err != nil {
		return nil, err
	}

	metrics.DictionaryEntries.WithLabelValues(path).Set(float64(d.Len()))
	logger.Info("loaded feature dictionary",
		zap.String("path", path),
		zap.Int("entries", d.Len()))
	return d, nil
}
