// Package json provides JSON serialization of parsed examples on top of
// goccy/go-json, with pooled buffers and streaming output.
package json

import (
	"io"
	"strconv"

	gojson "github.com/goccy/go-json"

	"github.com/ajitpratap0/featline/pkg/example"
	"github.com/ajitpratap0/featline/pkg/pool"
)

// Unmarshal is a drop-in replacement for json.Unmarshal
func Unmarshal(data []byte, v interface{}) error {
	return gojson.Unmarshal(data, v)
}

// Marshal is a drop-in replacement for json.Marshal
func Marshal(v interface{}) ([]byte, error) {
	return gojson.Marshal(v)
}

// labeled is implemented by labels that can be in an unset state.
type labeled interface {
	IsLabeled() bool
}

// Feature is one (index, value) pair with its audit name when available.
type Feature struct {
	Index uint64  `json:"index"`
	Value float32 `json:"value"`
	Audit string  `json:"audit,omitempty"`
}

// Namespace is the JSON form of one active namespace.
type Namespace struct {
	Name      string    `json:"ns"`
	SumFeatSq float32   `json:"sum_feat_sq"`
	Features  []Feature `json:"features"`
}

// Document is the JSON form of one parsed example.
type Document struct {
	Ordinal    uint64      `json:"ordinal"`
	Tag        string      `json:"tag,omitempty"`
	Label      interface{} `json:"label,omitempty"`
	Namespaces []Namespace `json:"namespaces"`
}

// NamespaceName renders a namespace byte: printable ASCII as itself,
// anything else as its decimal value.
func NamespaceName(ns byte) string {
	if ns > ' ' && ns < 0x7f {
		return string(rune(ns))
	}
	if ns == ' ' {
		return " "
	}
	return strconv.Itoa(int(ns))
}

// FromExample builds the document for ex. The result does not alias ex.
func FromExample(ex *example.Example, ordinal uint64) *Document {
	doc := &Document{
		Ordinal:    ordinal,
		Tag:        string(ex.Tag),
		Namespaces: make([]Namespace, 0, len(ex.Indices)),
	}
	if ex.Label != nil {
		if l, ok := ex.Label.(labeled); !ok || l.IsLabeled() {
			doc.Label = ex.Label
		}
	}

	for _, ns := range ex.Indices {
		fs := &ex.FeatureSpace[ns]
		n := Namespace{
			Name:      NamespaceName(ns),
			SumFeatSq: fs.SumFeatSq,
			Features:  make([]Feature, fs.Len()),
		}
		for i := range fs.Values {
			n.Features[i] = Feature{Index: fs.Indices[i], Value: fs.Values[i]}
			if i < len(fs.SpaceNames) {
				n.Features[i].Audit = fs.SpaceNames[i].String()
			}
		}
		doc.Namespaces = append(doc.Namespaces, n)
	}
	return doc
}

// MarshalExample renders one example as a single JSON object.
func MarshalExample(ex *example.Example, ordinal uint64) ([]byte, error) {
	return gojson.Marshal(FromExample(ex, ordinal))
}

// AppendExamplesLines appends exs to dst as line-delimited JSON. The i-th
// example gets ordinal firstOrdinal+i.
func AppendExamplesLines(dst []byte, exs []*example.Example, firstOrdinal uint64) ([]byte, error) {
	for i, ex := range exs {
		data, err := gojson.Marshal(FromExample(ex, firstOrdinal+uint64(i)))
		if err != nil {
			return dst, err
		}
		dst = append(dst, data...)
		dst = append(dst, '\n')
	}
	return dst, nil
}

// MarshalExamplesLines renders exs as line-delimited JSON.
func MarshalExamplesLines(exs []*example.Example, firstOrdinal uint64) ([]byte, error) {
	// Estimate 256 bytes per example
	buf := pool.GlobalBufferPool.Get(len(exs) * 256)
	defer func() { pool.GlobalBufferPool.Put(buf) }()

	var err error
	buf, err = AppendExamplesLines(buf, exs, firstOrdinal)
	if err != nil {
		return nil, err
	}

	result := make([]byte, len(buf))
	copy(result, buf)
	return result, nil
}

// StreamingEncoder writes values as line-delimited JSON or as one array.
type StreamingEncoder struct {
	writer      io.Writer
	encoder     *gojson.Encoder
	firstRecord bool
	isArray     bool
}

// NewStreamingEncoder creates a new streaming encoder. In array mode the
// opening bracket is written immediately.
func NewStreamingEncoder(w io.Writer, isArray bool) (*StreamingEncoder, error) {
	enc := gojson.NewEncoder(w)
	enc.SetEscapeHTML(false)

	se := &StreamingEncoder{
		writer:      w,
		encoder:     enc,
		firstRecord: true,
		isArray:     isArray,
	}
	if isArray {
		if _, err := w.Write([]byte{'['}); err != nil {
			return nil, err
		}
	}
	return se, nil
}

// Encode encodes a single value
func (se *StreamingEncoder) Encode(v interface{}) error {
	if se.isArray {
		if !se.firstRecord {
			if _, err := se.writer.Write([]byte{','}); err != nil {
				return err
			}
		}
		se.firstRecord = false
	}
	return se.encoder.Encode(v)
}

// EncodeExample encodes ex under ordinal.
func (se *StreamingEncoder) EncodeExample(ex *example.Example, ordinal uint64) error {
	return se.Encode(FromExample(ex, ordinal))
}

// Close finalizes the encoding. It does not close the writer.
func (se *StreamingEncoder) Close() error {
	if se.isArray {
		_, err := se.writer.Write([]byte{']'})
		return err
	}
	return nil
}
