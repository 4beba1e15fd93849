//go:build !unix

package mapio

import (
	"fmt"
	"io"
	"os"
)

// mapFile reads f into memory on platforms without mmap.
func mapFile(f *os.File, size int64) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return data, nil
}

func unmap([]byte) error { return nil }
