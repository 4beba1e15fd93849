package mapio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// ErrTooLarge indicates a compressed input that expands past MaxDecodedSize.
var ErrTooLarge = errors.New("decompressed map exceeds size limit")

// MaxDecodedSize bounds decompression output. Real maps are a few MiB.
const MaxDecodedSize = 1 << 30

// Compression identifies the framing of a map file.
type Compression uint8

const (
	// CompressionNone is a raw encoded map.
	CompressionNone Compression = iota
	// CompressionZstd is a single zstd frame.
	CompressionZstd
	// CompressionLZ4 is an LZ4 frame (not the block format).
	CompressionLZ4
)

var (
	zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}
	lz4Magic  = []byte{0x04, 0x22, 0x4D, 0x18}
)

// String returns the flag spelling of c.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// ParseCompression parses a compression name. The empty string is none.
func ParseCompression(name string) (Compression, error) {
	switch strings.ToLower(name) {
	case "", "none":
		return CompressionNone, nil
	case "zstd", "zst":
		return CompressionZstd, nil
	case "lz4":
		return CompressionLZ4, nil
	default:
		return 0, fmt.Errorf("unknown compression: %q", name)
	}
}

// CompressionFromPath guesses the compression from a file extension.
func CompressionFromPath(path string) Compression {
	switch {
	case strings.HasSuffix(path, ".zst"), strings.HasSuffix(path, ".zstd"):
		return CompressionZstd
	case strings.HasSuffix(path, ".lz4"):
		return CompressionLZ4
	default:
		return CompressionNone
	}
}

// Detect inspects the leading magic bytes. An encoded CRUSH map starts
// with 00 00 01 00, so it never collides with either frame magic.
func Detect(data []byte) Compression {
	switch {
	case bytes.HasPrefix(data, zstdMagic):
		return CompressionZstd
	case bytes.HasPrefix(data, lz4Magic):
		return CompressionLZ4
	default:
		return CompressionNone
	}
}

// zstd.Encoder and zstd.Decoder are safe for concurrent use through
// EncodeAll/DecodeAll, so one of each serves the process.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("mapio: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxDecodedSize))
	if err != nil {
		panic("mapio: zstd decoder initialization failed: " + err.Error())
	}
}

// Compress frames data with c. CompressionNone returns data unchanged.
func Compress(data []byte, c Compression) ([]byte, error) {
	switch c {
	case CompressionNone:
		return data, nil
	case CompressionZstd:
		return zstdEncoder.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
	case CompressionLZ4:
		var buf bytes.Buffer
		zw := lz4.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("compress: unsupported compression %s", c)
	}
}

// Decompress reverses Compress. The result is always a fresh slice.
func Decompress(data []byte, c Compression) ([]byte, error) {
	switch c {
	case CompressionNone:
		return bytes.Clone(data), nil
	case CompressionZstd:
		out, err := zstdDecoder.DecodeAll(data, nil)
		if err != nil {
			if errors.Is(err, zstd.ErrDecoderSizeExceeded) || errors.Is(err, zstd.ErrWindowSizeExceeded) {
				return nil, fmt.Errorf("zstd decompress: %w", ErrTooLarge)
			}
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		return out, nil
	case CompressionLZ4:
		zr := lz4.NewReader(bytes.NewReader(data))
		out, err := io.ReadAll(io.LimitReader(zr, MaxDecodedSize+1))
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		if len(out) > MaxDecodedSize {
			return nil, fmt.Errorf("lz4 decompress: %w", ErrTooLarge)
		}
		// The reader reports a frame cut inside its header as a clean EOF.
		if len(out) == 0 && len(data) > 0 {
			return nil, fmt.Errorf("lz4 decompress: empty or truncated frame: %w", io.ErrUnexpectedEOF)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("decompress: unsupported compression %s", c)
	}
}
