package source

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/featline/pkg/errors"
)

func collect(t *testing.T, r *Reader) ([]string, int) {
	t.Helper()
	var lines []string
	tooLong := 0
	for {
		chunk, err := r.ReadChunk()
		if errors.Is(err, ErrLineTooLong) {
			tooLong++
			continue
		}
		if len(chunk) > 0 {
			lines = append(lines, string(chunk))
		}
		if err == io.EOF {
			return lines, tooLong
		}
		require.NoError(t, err)
	}
}

func TestReaderSplitsLines(t *testing.T) {
	r := NewReader(strings.NewReader("a\n\nb\r\nc"), 0, 0)
	lines, _ := collect(t, r)
	assert.Equal(t, []string{"a\n", "\n", "b\r\n", "c"}, lines)
}

func TestReaderLongLines(t *testing.T) {
	long := strings.Repeat("x", 100)
	r := NewReader(strings.NewReader("short\n"+long+"\nend\n"), 16, 0)
	lines, tooLong := collect(t, r)
	assert.Equal(t, []string{"short\n", long + "\n", "end\n"}, lines)
	assert.Zero(t, tooLong)
}

func TestReaderSkipsLinesOverLimit(t *testing.T) {
	long := strings.Repeat("x", 100)
	r := NewReader(strings.NewReader("ok\n"+long+"\nfine\n"+long), 16, 50)
	lines, tooLong := collect(t, r)
	assert.Equal(t, []string{"ok\n", "fine\n"}, lines)
	assert.Equal(t, 2, tooLong)
}

func TestReaderLimitExcludesLineTerminator(t *testing.T) {
	r := NewReader(strings.NewReader("abc\nab\nabcd\nxyz\r\n\xEF\xBB\xBFuvw\n"), 0, 3)
	lines, tooLong := collect(t, r)
	assert.Equal(t, []string{"abc\n", "ab\n", "xyz\r\n", "\xEF\xBB\xBFuvw\n"}, lines)
	assert.Equal(t, 1, tooLong)
}

func TestReaderLimitAcrossBufferRefills(t *testing.T) {
	exact := strings.Repeat("x", 40)
	over := strings.Repeat("y", 41)
	r := NewReader(strings.NewReader(exact+"\r\n"+over+"\n"+exact), 16, 40)
	lines, tooLong := collect(t, r)
	assert.Equal(t, []string{exact + "\r\n", exact}, lines)
	assert.Equal(t, 1, tooLong)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, io.ErrClosedPipe
}

func TestReaderPropagatesErrors(t *testing.T) {
	_, err := NewReader(failingReader{}, 0, 0).ReadChunk()
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeFile))
	assert.True(t, errors.Is(err, io.ErrClosedPipe))
}
