package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/eunmann/crushtool/internal/logctx"
	"github.com/eunmann/crushtool/pkg/crush"
	"github.com/eunmann/crushtool/pkg/fileutil"
	"github.com/eunmann/crushtool/pkg/mapio"
	"github.com/eunmann/crushtool/pkg/s3store"
)

const stdio = "-"

// readSource fetches loc: "-" is stdin, s3:// goes through the object
// store, and anything else is a local file.
func (a *app) readSource(ctx context.Context, loc string) (*mapio.Source, error) {
	switch {
	case loc == stdio:
		raw, err := io.ReadAll(a.stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return mapio.FromBytes("stdin", raw)
	case s3store.IsS3URI(loc):
		store, err := a.objectStore(ctx)
		if err != nil {
			return nil, err
		}
		raw, err := store.Get(ctx, loc)
		if err != nil {
			return nil, err
		}
		return mapio.FromBytes(loc, raw)
	default:
		return mapio.Load(loc)
	}
}

// loadedMap is a decoded map plus facts about its encoding.
type loadedMap struct {
	Map         *crush.Map
	Size        int
	Digest      string
	Compression mapio.Compression
	Elapsed     time.Duration
}

// loadMap reads and decodes the map at loc. The source is released before
// returning.
func (a *app) loadMap(ctx context.Context, loc string) (*loadedMap, error) {
	log := logctx.FromContext(ctx)
	start := time.Now()

	src, err := a.readSource(ctx, loc)
	if err != nil {
		return nil, err
	}
	defer src.Release()

	data := src.Data()
	m, err := crush.Decode(data, crush.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", loc, err)
	}
	return &loadedMap{
		Map:         m,
		Size:        len(data),
		Digest:      mapio.Digest(data),
		Compression: src.Compression(),
		Elapsed:     time.Since(start),
	}, nil
}

// writeOutput stores data at loc, framed with c. "-" writes to stdout.
func (a *app) writeOutput(ctx context.Context, loc string, data []byte, c mapio.Compression) error {
	switch {
	case loc == stdio:
		out, err := mapio.Compress(data, c)
		if err != nil {
			return err
		}
		if _, err := a.stdout.Write(out); err != nil {
			return fmt.Errorf("write stdout: %w", err)
		}
		return nil
	case s3store.IsS3URI(loc):
		out, err := mapio.Compress(data, c)
		if err != nil {
			return err
		}
		store, err := a.objectStore(ctx)
		if err != nil {
			return err
		}
		return store.Put(ctx, loc, out)
	default:
		clearStale(ctx, loc)
		return mapio.Save(loc, data, c)
	}
}

// writeStream streams to a local file through an atomic temp file, or to
// stdout for "-". S3 outputs are buffered first.
func (a *app) writeStream(ctx context.Context, loc string, write func(w io.Writer) error) error {
	switch {
	case loc == stdio:
		return write(a.stdout)
	case s3store.IsS3URI(loc):
		var buf bytes.Buffer
		if err := write(&buf); err != nil {
			return err
		}
		return a.writeOutput(ctx, loc, buf.Bytes(), mapio.CompressionNone)
	default:
		clearStale(ctx, loc)
		return fileutil.WriteAtomic(loc, 0o644, write)
	}
}

// clearStale drops temp files an interrupted earlier write of loc left behind.
func clearStale(ctx context.Context, loc string) {
	if _, err := fileutil.CleanupStale(loc); err != nil {
		log := logctx.FromContext(ctx)
		log.Warn().Err(err).Str("output", loc).Msg("stale temp cleanup failed")
	}
}

func requireOutput(out string) error {
	if out == "" {
		return fmt.Errorf("--output (-o) is required; use %q for stdout", stdio)
	}
	return nil
}

// refuseBinaryTTY rejects writing binary output to an interactive terminal.
func (a *app) refuseBinaryTTY(out string) error {
	if out == stdio && isTerminal(a.stdout) {
		return fmt.Errorf("refusing to write binary output to a terminal; redirect stdout or use -o <file>")
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}
