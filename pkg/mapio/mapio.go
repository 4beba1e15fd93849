// Package mapio loads and saves encoded CRUSH maps on local disk,
// handling optional zstd or LZ4 framing.
//
// Plain files are memory-mapped. The decoder copies every string it
// keeps, so a Source can be released as soon as decoding finishes.
package mapio

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/zeebo/blake3"

	"github.com/eunmann/crushtool/pkg/fileutil"
)

// Source is a loaded map file. Data is valid until Release.
type Source struct {
	path   string
	data   []byte
	mapped []byte
	comp   Compression
}

// Load opens path, detects its framing, and returns the encoded map bytes.
// Plain files are mapped read-only; compressed files are decompressed onto
// the heap and the mapping is dropped before Load returns.
func Load(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open map: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat map: %w", err)
	}

	mapped, err := mapFile(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	comp := Detect(mapped)
	if comp == CompressionNone {
		return &Source{path: path, data: mapped, mapped: mapped, comp: comp}, nil
	}

	data, err := Decompress(mapped, comp)
	if uerr := unmap(mapped); uerr != nil && err == nil {
		err = uerr
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return &Source{path: path, data: data, comp: comp}, nil
}

// FromBytes wraps an in-memory payload such as stdin or an S3 object,
// decompressing it if it carries a known frame magic.
func FromBytes(name string, raw []byte) (*Source, error) {
	comp := Detect(raw)
	if comp == CompressionNone {
		return &Source{path: name, data: raw, comp: comp}, nil
	}
	data, err := Decompress(raw, comp)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	return &Source{path: name, data: data, comp: comp}, nil
}

// Data returns the uncompressed encoded map.
func (s *Source) Data() []byte { return s.data }

// Path returns the name the source was loaded from.
func (s *Source) Path() string { return s.path }

// Compression reports the framing the source was stored with.
func (s *Source) Compression() Compression { return s.comp }

// Mapped reports whether Data is backed by a file mapping.
func (s *Source) Mapped() bool { return s.mapped != nil }

// Release unmaps the file, if mapped. Data must not be used afterwards.
// Release is idempotent.
func (s *Source) Release() error {
	m := s.mapped
	s.mapped = nil
	s.data = nil
	return unmap(m)
}

// Save frames data with c and writes it to path atomically.
func Save(path string, data []byte, c Compression) error {
	out, err := Compress(data, c)
	if err != nil {
		return err
	}
	if err := fileutil.WriteFileAtomic(path, out, 0o644); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// Digest returns the hex blake3-256 digest of data.
func Digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
