// Package fileutil provides file helpers with write-to-temp-then-rename
// semantics, so readers never observe a partially written map.
package fileutil

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/eunmann/crushtool/pkg/logging"
)

// tmpSuffix marks in-progress files.
const tmpSuffix = ".tmp"

// tmpPattern is the CreateTemp pattern for path. Temp files are hidden
// siblings of their target so the rename stays on one filesystem.
func tmpPattern(path string) string {
	return "." + filepath.Base(path) + ".*" + tmpSuffix
}

// WriteAtomic writes a file by streaming into a temporary file in the same
// directory, syncing it, and renaming it over path. On any error the
// temporary file is removed and path is left untouched.
func WriteAtomic(path string, perm os.FileMode, write func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	f, err := os.CreateTemp(dir, tmpPattern(path))
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := f.Name()
	cleanup := func() {
		f.Close()
		os.Remove(tmpPath)
	}

	if err := write(f); err != nil {
		cleanup()
		return err
	}
	if err := f.Chmod(perm); err != nil {
		cleanup()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp to final: %w", err)
	}
	return nil
}

// WriteFileAtomic is WriteAtomic for an in-memory payload.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	return WriteAtomic(path, perm, func(w io.Writer) error {
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		return nil
	})
}

// CleanupStale removes temporary files left next to path by interrupted
// writes of path. Temp files of other targets in the same directory are
// left alone. It returns the number of files removed.
func CleanupStale(path string) (int, error) {
	dir := filepath.Dir(path)
	prefix := "." + filepath.Base(path) + "."
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("read dir: %w", err)
	}

	var removed int
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, tmpSuffix) {
			continue
		}
		if os.Remove(filepath.Join(dir, name)) == nil {
			removed++
		}
	}

	if removed > 0 {
		logging.L().Debug().Int("files_removed", removed).Str("target", path).Msg("cleaned up tmp files")
	}
	return removed, nil
}
