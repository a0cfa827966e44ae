package source

import (
	"bufio"
	"bytes"
	"io"

	"github.com/ajitpratap0/featline/pkg/errors"
)

// ErrLineTooLong is returned by Reader.ReadChunk for a line longer than the
// configured limit. The line has been consumed; the next call continues
// with the following line.
var ErrLineTooLong = errors.New(errors.ErrorTypeData, "line exceeds max_line_bytes")

// DefaultBufferSize is the read buffer used when none is configured.
const DefaultBufferSize = 64 * 1024

// Reader splits a stream into raw lines, '\n' included. Lines that fit in
// the buffer are returned without copying.
type Reader struct {
	br      *bufio.Reader
	maxLine int
	long    []byte
}

// NewReader wraps r. maxLine <= 0 disables the length limit.
func NewReader(r io.Reader, bufferSize, maxLine int) *Reader {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Reader{
		br:      bufio.NewReaderSize(r, bufferSize),
		maxLine: maxLine,
	}
}

// ReadChunk returns the next raw line. The slice is only valid until the
// next call. The final line may come back together with io.EOF. The limit
// applies to the line without its byte order mark and "\r\n" or "\n".
func (r *Reader) ReadChunk() ([]byte, error) {
	r.long = r.long[:0]
	tooLong := false
	for {
		line, err := r.br.ReadSlice('\n')
		if err == bufio.ErrBufferFull {
			// a partial line that already exceeds the limit plus framing bytes
			// can be dropped without buffering the rest
			if !tooLong && r.maxLine > 0 && len(r.long)+len(line) > r.maxLine+maxFramingBytes {
				tooLong = true
				r.long = r.long[:0]
			}
			if !tooLong {
				r.long = append(r.long, line...)
			}
			continue
		}
		if err != nil && err != io.EOF {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read input")
		}

		if !tooLong && len(r.long) > 0 {
			r.long = append(r.long, line...)
			line = r.long
		}
		if tooLong || (r.maxLine > 0 && contentLen(line) > r.maxLine) {
			return nil, ErrLineTooLong
		}
		return line, err
	}
}

// maxFramingBytes is a byte order mark plus "\r\n".
var maxFramingBytes = len(utf8BOM) + 2

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// contentLen is the length of line once its byte order mark and line
// terminator are stripped, matching what the parser sees.
func contentLen(line []byte) int {
	n := len(line)
	if bytes.HasPrefix(line, utf8BOM) {
		n -= len(utf8BOM)
	}
	if n > 0 && line[len(line)-1] == '\n' {
		n--
		line = line[:len(line)-1]
	}
	if n > 0 && line[len(line)-1] == '\r' {
		n--
	}
	return n
}
