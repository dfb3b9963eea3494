//go:build windows

package mmap

import (
	"io"
	"os"
)

// Windows reads the file into memory instead of mapping it.
func mmap(f *os.File, size int) ([]byte, bool, error) {
	data := make([]byte, size)
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, false, err
	}
	return data, false, nil
}

func munmap([]byte) error { return nil }
