package hash

import (
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/featline/pkg/errors"
)

func TestUniformKnownVectors(t *testing.T) {
	assert.Equal(t, uint64(0), Uniform(nil, 0))
	assert.Equal(t, uint64(0x514E28B7), Uniform([]byte{}, 1))
	assert.Equal(t, uint64(0x81F16F39), Uniform([]byte{}, 0xffffffff))
	// tail lengths 1..3 and full blocks
	assert.Equal(t, uint64(0xB3DD93FA), Uniform([]byte("abc"), 0))
	assert.Equal(t, uint64(0xBA6BD213), Uniform([]byte("test"), 0))
	assert.Equal(t, uint64(0x2E4FF723), Uniform([]byte("The quick brown fox jumps over the lazy dog"), 0))
}

func TestUniformUnalignedInput(t *testing.T) {
	buf := []byte("xxThe quick brown fox jumps over the lazy dog")
	for off := 0; off < 2; off++ {
		name := buf[off:]
		assert.Equal(t, Uniform(append([]byte(nil), name...), 9), Uniform(name, 9))
	}
	assert.Equal(t, uint64(0x2E4FF723), Uniform(buf[2:], 0))
}

func TestUniformTruncatesSeed(t *testing.T) {
	name := []byte("price")
	assert.Equal(t, Uniform(name, 7), Uniform(name, 7+(1<<32)))
}

func TestStringsNumericNames(t *testing.T) {
	assert.Equal(t, uint64(128), Strings([]byte("123"), 5))
	assert.Equal(t, uint64(42), Strings([]byte(" 42\t"), 0))
	assert.Equal(t, uint64(9), Strings([]byte(""), 9))
}

func TestStringsFallsBackToMurmur(t *testing.T) {
	for _, name := range []string{"4a", "-1", "1.5", "word"} {
		assert.Equal(t, Uniform([]byte(name), 11), Strings([]byte(name), 11), name)
	}
	// trimming applies before hashing
	assert.Equal(t, Uniform([]byte("word"), 3), Strings([]byte("  word "), 3))
}

func TestAllHashesDigits(t *testing.T) {
	assert.Equal(t, Uniform([]byte("123"), 5), All([]byte("123"), 5))
	assert.NotEqual(t, uint64(128), All([]byte("123"), 5))
}

func TestXXHash(t *testing.T) {
	assert.Equal(t, xxhash.Sum64([]byte("word")), XXHash([]byte("word"), 0))
	assert.NotEqual(t, XXHash([]byte("word"), 0), XXHash([]byte("word"), 1))
}

func TestLookup(t *testing.T) {
	for _, name := range []string{"", "strings", "all", "xxhash"} {
		fn, err := Lookup(name)
		require.NoError(t, err, name)
		assert.NotNil(t, fn)
	}

	_, err := Lookup("sha1")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}
