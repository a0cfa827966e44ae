// Package mmap reads local input files through a read-only memory map.
// Lines come back as slices of the mapping, so nothing is copied until the
// pipeline batches them.
package mmap

import (
	"bytes"
	"io"
	"os"
	"sync"

	"github.com/ajitpratap0/featline/pkg/errors"
)

// File is a read-only memory-mapped file.
type File struct {
	mu   sync.Mutex
	file *os.File
	data []byte
}

// Open maps path into memory. Empty files are valid and map to nothing.
func Open(path string) (*File, error) {
	f, err := os.Open(path) //nolint:gosec // inputs are user supplied
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open input").
			WithDetail("input", path)
	}

	stat, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to stat input").
			WithDetail("input", path)
	}

	m := &File{file: f}
	if size := stat.Size(); size > 0 {
		if int64(int(size)) != size {
			_ = f.Close()
			return nil, errors.New(errors.ErrorTypeFile, "input too large to map").
				WithDetail("input", path)
		}
		m.data, err = mapFile(f, int(size))
		if err != nil {
			_ = f.Close()
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to mmap input").
				WithDetail("input", path)
		}
	}
	return m, nil
}

// Bytes returns the mapped contents. The slice is invalid after Close.
func (m *File) Bytes() []byte {
	return m.data
}

// Len returns the file size.
func (m *File) Len() int {
	return len(m.data)
}

// Lines returns a reader over the mapped lines.
func (m *File) Lines() *LineReader {
	return &LineReader{data: m.data}
}

// Close unmaps and closes the file. It is safe to call more than once.
func (m *File) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	if m.data != nil {
		err = unmap(m.data)
		m.data = nil
	}
	if m.file != nil {
		if cerr := m.file.Close(); cerr != nil && err == nil {
			err = cerr
		}
		m.file = nil
	}
	return err
}

// LineReader walks a byte slice one line at a time. It satisfies the
// parser's LineReader.
type LineReader struct {
	data   []byte
	offset int
}

// NewLineReader reads lines from data without copying.
func NewLineReader(data []byte) *LineReader {
	return &LineReader{data: data}
}

// ReadChunk returns the next line with its '\n', or io.EOF at the end.
func (lr *LineReader) ReadChunk() ([]byte, error) {
	if lr.offset >= len(lr.data) {
		return nil, io.EOF
	}
	rest := lr.data[lr.offset:]
	end := len(rest)
	if i := bytes.IndexByte(rest, '\n'); i >= 0 {
		end = i + 1
	}
	lr.offset += end
	return rest[:end], nil
}

// Offset returns the number of bytes consumed so far.
func (lr *LineReader) Offset() int {
	return lr.offset
}
