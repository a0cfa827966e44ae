package json

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/featline/pkg/example"
	"github.com/ajitpratap0/featline/pkg/label"
)

func sampleExample() *example.Example {
	ex := example.New(label.Simple{}.NewLabel())
	lbl := ex.Label.(*label.SimpleLabel)
	lbl.Label = 1
	lbl.Weight = 2
	ex.Tag = append(ex.Tag, "row1"...)
	ex.Indices = append(ex.Indices, 'a', example.AffixNamespace)
	ex.FeatureSpace['a'].PushBack(2, 10)
	ex.FeatureSpace['a'].SpaceNames = append(ex.FeatureSpace['a'].SpaceNames,
		example.AuditStrings{Namespace: "a", Feature: "x"})
	ex.FeatureSpace[example.AffixNamespace].PushBack(1, 11)
	return ex
}

func TestFromExample(t *testing.T) {
	doc := FromExample(sampleExample(), 4)

	assert.Equal(t, uint64(4), doc.Ordinal)
	assert.Equal(t, "row1", doc.Tag)
	require.Len(t, doc.Namespaces, 2)
	assert.Equal(t, Namespace{
		Name:      "a",
		SumFeatSq: 4,
		Features:  []Feature{{Index: 10, Value: 2, Audit: "a^x"}},
	}, doc.Namespaces[0])
	assert.Equal(t, "132", doc.Namespaces[1].Name)
	assert.Empty(t, doc.Namespaces[1].Features[0].Audit)
}

func TestFromExampleOmitsUnsetLabel(t *testing.T) {
	ex := example.New(label.Simple{}.NewLabel())
	doc := FromExample(ex, 0)
	assert.Nil(t, doc.Label)

	data, err := Marshal(doc)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "label")
	assert.NotContains(t, string(data), "tag")
}

func TestMarshalExample(t *testing.T) {
	data, err := MarshalExample(sampleExample(), 0)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, Unmarshal(data, &got))
	assert.Equal(t, "row1", got["tag"])
	lbl := got["label"].(map[string]interface{})
	assert.Equal(t, float64(1), lbl["label"])
	assert.Equal(t, float64(2), lbl["weight"])
}

func TestMarshalExamplesLines(t *testing.T) {
	exs := []*example.Example{sampleExample(), example.New(nil)}
	data, err := MarshalExamplesLines(exs, 10)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 2)

	var second Document
	require.NoError(t, Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, uint64(11), second.Ordinal)
	assert.Empty(t, second.Namespaces)
}

func TestStreamingEncoderArray(t *testing.T) {
	var buf bytes.Buffer
	se, err := NewStreamingEncoder(&buf, true)
	require.NoError(t, err)
	require.NoError(t, se.EncodeExample(example.New(nil), 0))
	require.NoError(t, se.EncodeExample(example.New(nil), 1))
	require.NoError(t, se.Close())

	var docs []Document
	require.NoError(t, Unmarshal(buf.Bytes(), &docs))
	require.Len(t, docs, 2)
	assert.Equal(t, uint64(1), docs[1].Ordinal)
}

func TestNamespaceName(t *testing.T) {
	assert.Equal(t, " ", NamespaceName(' '))
	assert.Equal(t, "z", NamespaceName('z'))
	assert.Equal(t, "0", NamespaceName(0))
	assert.Equal(t, "135", NamespaceName(example.DictionaryNamespace))
	assert.Equal(t, "255", NamespaceName(math.MaxUint8))
}
