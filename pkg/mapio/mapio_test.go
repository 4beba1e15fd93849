package mapio

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/eunmann/crushtool/pkg/benchutil"
	"github.com/eunmann/crushtool/pkg/crush"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	data := benchutil.EncodedInput(t, 48)
	tmpDir := t.TempDir()

	tests := []struct {
		name string
		comp Compression
	}{
		{"map.bin", CompressionNone},
		{"map.bin.zst", CompressionZstd},
		{"map.bin.lz4", CompressionLZ4},
	}

	for _, tt := range tests {
		t.Run(tt.comp.String(), func(t *testing.T) {
			path := filepath.Join(tmpDir, tt.name)
			if err := Save(path, data, tt.comp); err != nil {
				t.Fatalf("Save error: %v", err)
			}

			raw, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			if Detect(raw) != tt.comp {
				t.Errorf("Detect = %s, want %s", Detect(raw), tt.comp)
			}

			src, err := Load(path)
			if err != nil {
				t.Fatalf("Load error: %v", err)
			}
			defer src.Release()

			if src.Compression() != tt.comp {
				t.Errorf("Compression() = %s, want %s", src.Compression(), tt.comp)
			}
			if src.Mapped() != (tt.comp == CompressionNone) {
				t.Errorf("Mapped() = %v", src.Mapped())
			}
			if !bytes.Equal(src.Data(), data) {
				t.Errorf("loaded %d bytes differ from saved %d bytes", len(src.Data()), len(data))
			}
			if _, err := crush.Decode(src.Data()); err != nil {
				t.Errorf("Decode of loaded data: %v", err)
			}
		})
	}
}

func TestDecodedMapOutlivesRelease(t *testing.T) {
	data := benchutil.EncodedInput(t, 48)
	path := filepath.Join(t.TempDir(), "map.bin")
	if err := Save(path, data, CompressionNone); err != nil {
		t.Fatal(err)
	}

	src, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	m, err := crush.Decode(src.Data())
	if err != nil {
		t.Fatal(err)
	}
	if err := src.Release(); err != nil {
		t.Fatalf("Release error: %v", err)
	}
	if err := src.Release(); err != nil {
		t.Fatalf("second Release error: %v", err)
	}

	out, err := crush.Encode(m)
	if err != nil {
		t.Fatalf("Encode after Release: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Error("re-encoded map differs after the source was released")
	}
}

func TestLoadEmptyAndMissing(t *testing.T) {
	tmpDir := t.TempDir()
	empty := filepath.Join(tmpDir, "empty.bin")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	src, err := Load(empty)
	if err != nil {
		t.Fatalf("Load(empty) error: %v", err)
	}
	if len(src.Data()) != 0 || src.Mapped() {
		t.Errorf("empty source: len=%d mapped=%v", len(src.Data()), src.Mapped())
	}
	if _, err := crush.Decode(src.Data()); !errors.Is(err, crush.ErrTruncated) {
		t.Errorf("Decode(empty) error = %v, want ErrTruncated", err)
	}

	if _, err := Load(filepath.Join(tmpDir, "missing.bin")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load(missing) error = %v, want ErrNotExist", err)
	}
}

func TestFromBytes(t *testing.T) {
	data := benchutil.EncodedInput(t, 48)
	for _, c := range []Compression{CompressionNone, CompressionZstd, CompressionLZ4} {
		framed, err := Compress(data, c)
		if err != nil {
			t.Fatalf("Compress(%s) error: %v", c, err)
		}
		src, err := FromBytes("stdin", framed)
		if err != nil {
			t.Fatalf("FromBytes(%s) error: %v", c, err)
		}
		if src.Compression() != c || !bytes.Equal(src.Data(), data) {
			t.Errorf("FromBytes(%s): compression=%s, equal=%v", c, src.Compression(), bytes.Equal(src.Data(), data))
		}
		if src.Path() != "stdin" {
			t.Errorf("Path() = %q", src.Path())
		}
	}
}

func TestDecompressCorrupt(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		comp Compression
	}{
		{"zstd", append(append([]byte{}, zstdMagic...), 0xFF, 0xFF, 0xFF), CompressionZstd},
		{"lz4", append(append([]byte{}, lz4Magic...), 0xFF, 0xFF, 0xFF), CompressionLZ4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decompress(tt.data, tt.comp); err == nil {
				t.Error("expected error for corrupt frame")
			}
			if _, err := FromBytes("corrupt", tt.data); err == nil {
				t.Error("FromBytes accepted a corrupt frame")
			}
		})
	}
}

func TestDecompressTruncatedLZ4Header(t *testing.T) {
	framed, err := Compress(benchutil.EncodedInput(t, 12), CompressionLZ4)
	if err != nil {
		t.Fatal(err)
	}
	for _, n := range []int{len(lz4Magic), len(lz4Magic) + 1, len(lz4Magic) + 3} {
		if out, err := Decompress(framed[:n], CompressionLZ4); err == nil {
			t.Errorf("Decompress(%d byte prefix) = %d bytes, want an error", n, len(out))
		}
		if _, err := FromBytes("truncated.lz4", framed[:n]); err == nil {
			t.Errorf("FromBytes(%d byte prefix) accepted a truncated frame", n)
		}
	}
	out, err := Decompress(framed, CompressionLZ4)
	if err != nil || len(out) == 0 {
		t.Errorf("Decompress(full frame) = %d bytes, %v", len(out), err)
	}
}

func TestDecompressHeaderCutShort(t *testing.T) {
	_, err := Decompress(append(append([]byte{}, lz4Magic...), 0xFF, 0xFF, 0xFF), CompressionLZ4)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("Decompress error = %v, want io.ErrUnexpectedEOF", err)
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want Compression
	}{
		{"crush magic", []byte{0x00, 0x00, 0x01, 0x00, 0, 0}, CompressionNone},
		{"zstd", []byte{0x28, 0xB5, 0x2F, 0xFD, 0x04}, CompressionZstd},
		{"lz4", []byte{0x04, 0x22, 0x4D, 0x18, 0x64}, CompressionLZ4},
		{"short", []byte{0x28, 0xB5}, CompressionNone},
		{"empty", nil, CompressionNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detect(tt.data); got != tt.want {
				t.Errorf("Detect() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParseCompression(t *testing.T) {
	tests := []struct {
		in      string
		want    Compression
		wantErr bool
	}{
		{"", CompressionNone, false},
		{"none", CompressionNone, false},
		{"zstd", CompressionZstd, false},
		{"ZST", CompressionZstd, false},
		{"lz4", CompressionLZ4, false},
		{"gzip", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCompression(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCompression(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseCompression(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
	if Compression(9).String() != "unknown(9)" {
		t.Errorf("String() = %q", Compression(9).String())
	}
}

func TestCompressionFromPath(t *testing.T) {
	tests := map[string]Compression{
		"map.bin":     CompressionNone,
		"map.bin.zst": CompressionZstd,
		"a/b.zstd":    CompressionZstd,
		"map.lz4":     CompressionLZ4,
	}
	for path, want := range tests {
		if got := CompressionFromPath(path); got != want {
			t.Errorf("CompressionFromPath(%q) = %s, want %s", path, got, want)
		}
	}
}

func TestDigest(t *testing.T) {
	data := benchutil.EncodedInput(t, 48)
	d1 := Digest(data)
	if len(d1) != 64 {
		t.Errorf("digest length = %d, want 64", len(d1))
	}
	if Digest(bytes.Clone(data)) != d1 {
		t.Error("digest not stable across copies")
	}
	flipped := bytes.Clone(data)
	flipped[len(flipped)-1] ^= 1
	if Digest(flipped) == d1 {
		t.Error("digest unchanged after flipping a byte")
	}
	// Known vector for the empty input.
	if got := Digest(nil); got != "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262" {
		t.Errorf("Digest(nil) = %s", got)
	}
}
