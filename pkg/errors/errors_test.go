package errors

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCapturesCaller(t *testing.T) {
	err := New(ErrorTypeConfig, "bad bits")
	require.NotEmpty(t, err.Stack)
	assert.True(t, strings.HasSuffix(err.Stack[0].Function, "TestNewCapturesCaller"), err.Stack[0].Function)
}

func TestWrapKeepsInnerStack(t *testing.T) {
	inner := New(ErrorTypeSyntax, "':' expected")
	outer := Wrap(inner, ErrorTypeData, "line failed to parse")

	assert.Equal(t, inner.Stack, outer.Stack)
	assert.Equal(t, "data: line failed to parse: syntax: ':' expected", outer.Error())
	assert.True(t, IsMalformed(outer))
	assert.True(t, IsType(outer, ErrorTypeData))
	assert.Nil(t, Wrap(nil, ErrorTypeData, "unused"))

	twice := fmt.Errorf("batch 2: %w", Wrap(outer, ErrorTypeInternal, "flush"))
	assert.True(t, IsMalformed(twice))
	assert.False(t, IsMalformed(Wrap(New(ErrorTypeFile, "closed"), ErrorTypeData, "read")))
}

func TestDetailWalksChain(t *testing.T) {
	inner := New(ErrorTypeNumeric, "Float expected").WithDetail("ordinal", uint64(9))
	outer := fmt.Errorf("reading: %w", Wrap(inner, ErrorTypeData, "failed").WithDetail("source", "in.txt"))

	v, ok := Detail(outer, "ordinal")
	require.True(t, ok)
	assert.Equal(t, uint64(9), v)

	v, ok = Detail(outer, "source")
	require.True(t, ok)
	assert.Equal(t, "in.txt", v)

	_, ok = Detail(io.EOF, "ordinal")
	assert.False(t, ok)
}
