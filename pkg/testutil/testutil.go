// Package testutil provides testing utilities for featline
package testutil

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// SampleLines is a small well-formed input used across package tests.
var SampleLines = []string{
	"1 |a x:2 y",
	"-1 0.5 'second |b z |a x",
	"|c 123 w:3",
	"0 'fourth|d only",
}

// ObservedLogger returns a logger that records entries at or above level
// so tests can assert on warnings.
func ObservedLogger(level zapcore.Level) (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return zap.New(core), logs
}

// TestContext creates a test context with a 30-second timeout.
// The caller must call the returned cancel function to avoid leaks.
func TestContext(_ *testing.T) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// WriteFile writes lines joined by '\n' to a temp file and returns its path.
func WriteFile(t *testing.T, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	content := strings.Join(lines, "\n")
	if len(lines) > 0 {
		content += "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// ChunkReader replays fixed chunks, then reports io.EOF.
type ChunkReader struct {
	Chunks [][]byte
	Err    error
	next   int
}

// NewChunkReader splits s after every '\n', keeping the terminators.
func NewChunkReader(s string) *ChunkReader {
	r := &ChunkReader{}
	for _, line := range strings.SplitAfter(s, "\n") {
		if line != "" {
			r.Chunks = append(r.Chunks, []byte(line))
		}
	}
	return r
}

// ReadChunk returns the next chunk. Once the chunks run out it returns Err
// when set, io.EOF otherwise.
func (r *ChunkReader) ReadChunk() ([]byte, error) {
	if r.next >= len(r.Chunks) {
		if r.Err != nil {
			return nil, r.Err
		}
		return nil, io.EOF
	}
	chunk := r.Chunks[r.next]
	r.next++
	return chunk, nil
}
