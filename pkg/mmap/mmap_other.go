//go:build !linux && !darwin

package mmap

import "os"

// mapFile falls back to reading the whole file where mmap is unavailable.
func mapFile(f *os.File, size int) ([]byte, error) {
	buf := make([]byte, size)
	n, err := f.ReadAt(buf, 0)
	if err != nil && n < size {
		return nil, err
	}
	return buf, nil
}

func unmap([]byte) error {
	return nil
}
