package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/eunmann/crushtool/internal/logctx"
	"github.com/eunmann/crushtool/pkg/crush"
	"github.com/eunmann/crushtool/pkg/export"
	"github.com/eunmann/crushtool/pkg/logging"
	"github.com/eunmann/crushtool/pkg/mapio"
	"github.com/eunmann/crushtool/pkg/render"
)

func singleInput(fs *pflag.FlagSet, cmd string) (string, error) {
	args := fs.Args()
	switch len(args) {
	case 1:
		return args[0], nil
	case 0:
		return "", fmt.Errorf("%s: an input map is required (path, %q, or s3://bucket/key)", cmd, stdio)
	default:
		return "", fmt.Errorf("%s: expected 1 input, got %d", cmd, len(args))
	}
}

func (a *app) runDecompile(ctx context.Context, args []string) error {
	fs, g := a.newFlagSet("decompile")
	format := fs.String("format", "", "document format: json, yaml, or cbor (default from output extension, else json)")
	out := fs.StringP("output", "o", stdio, "output path, s3://bucket/key, or - for stdout")

	ctx, log, err := a.parse(ctx, fs, g, args)
	if err != nil {
		return helpOK(err)
	}
	in, err := singleInput(fs, "decompile")
	if err != nil {
		return err
	}
	f := render.FormatFromPath(*out, render.FormatJSON)
	if *format != "" {
		if f, err = render.ParseFormat(*format); err != nil {
			return fmt.Errorf("--format: %w", err)
		}
	}

	ctx = logctx.WithStr(ctx, "input", in)
	loaded, err := a.loadMap(ctx, in)
	if err != nil {
		return err
	}

	start := time.Now()
	doc, err := render.Marshal(render.FromMap(loaded.Map), f)
	if err != nil {
		return err
	}
	if err := a.writeOutput(ctx, *out, doc, mapio.CompressionNone); err != nil {
		return err
	}

	logging.FileWritten(log, "decompile", time.Since(start)).
		Str("input", in).
		Str("output", *out).
		Str("format", string(f)).
		Bytes("input_bytes", int64(loaded.Size)).
		Bytes("output_bytes", int64(len(doc))).
		Log("wrote document")
	return nil
}

func (a *app) runCompile(ctx context.Context, args []string) error {
	fs, g := a.newFlagSet("compile")
	format := fs.String("format", "", "document format: json, yaml, or cbor (default from input extension, else json)")
	compress := fs.String("compress", "", "output compression: none, zstd, or lz4 (default from $"+envCompression+" or output extension)")
	out := fs.StringP("output", "o", "", "output path, s3://bucket/key, or - for stdout")

	ctx, log, err := a.parse(ctx, fs, g, args)
	if err != nil {
		return helpOK(err)
	}
	in, err := singleInput(fs, "compile")
	if err != nil {
		return err
	}
	if err := requireOutput(*out); err != nil {
		return err
	}
	if err := a.refuseBinaryTTY(*out); err != nil {
		return err
	}
	f := render.FormatFromPath(in, render.FormatJSON)
	if *format != "" {
		if f, err = render.ParseFormat(*format); err != nil {
			return fmt.Errorf("--format: %w", err)
		}
	}
	comp, err := determineCompression(*compress, *out)
	if err != nil {
		return err
	}

	start := time.Now()
	ctx = logctx.WithStr(ctx, "input", in)
	src, err := a.readSource(ctx, in)
	if err != nil {
		return err
	}
	doc, err := render.Unmarshal(src.Data(), f)
	src.Release()
	if err != nil {
		return fmt.Errorf("%s: %w", in, err)
	}
	m, err := doc.ToMap()
	if err != nil {
		return fmt.Errorf("%s: %w", in, err)
	}

	data, err := crush.Encode(m, crush.WithLogger(log))
	if err != nil {
		return fmt.Errorf("encode %s: %w", in, err)
	}
	if err := a.writeOutput(ctx, *out, data, comp); err != nil {
		return err
	}

	logging.FileWritten(log, "compile", time.Since(start)).
		Str("input", in).
		Str("output", *out).
		Str("compression", comp.String()).
		Bytes("output_bytes", int64(len(data))).
		Str("digest", mapio.Digest(data)).
		Log("wrote map")
	return nil
}

func (a *app) runTunables(ctx context.Context, args []string) error {
	fs, g := a.newFlagSet("tunables")
	profile := fs.String("profile", "", "tunables profile: "+strings.Join(crush.Profiles(), ", "))
	list := fs.Bool("list", false, "list profiles and exit")
	compress := fs.String("compress", "", "output compression: none, zstd, or lz4")
	out := fs.StringP("output", "o", "", "output path, s3://bucket/key, or - for stdout")

	ctx, log, err := a.parse(ctx, fs, g, args)
	if err != nil {
		return helpOK(err)
	}
	if *list {
		return a.listProfiles()
	}
	if *profile == "" {
		return errors.New("--profile is required")
	}
	if _, err := crush.ProfileTunables(*profile); err != nil {
		return err
	}
	in, err := singleInput(fs, "tunables")
	if err != nil {
		return err
	}
	if err := requireOutput(*out); err != nil {
		return err
	}
	if err := a.refuseBinaryTTY(*out); err != nil {
		return err
	}
	comp, err := determineCompression(*compress, *out)
	if err != nil {
		return err
	}

	ctx = logctx.WithStr(ctx, "input", in)
	loaded, err := a.loadMap(ctx, in)
	if err != nil {
		return err
	}
	before := crush.MatchProfiles(loaded.Map.Tunables)

	m, err := crush.ApplyProfile(loaded.Map, *profile)
	if err != nil {
		return err
	}
	start := time.Now()
	data, err := crush.Encode(m, crush.WithLogger(log))
	if err != nil {
		return fmt.Errorf("encode %s: %w", in, err)
	}
	if err := a.writeOutput(ctx, *out, data, comp); err != nil {
		return err
	}

	logging.FileWritten(log, "tunables", time.Since(start)).
		Str("input", in).
		Str("output", *out).
		Str("profile", *profile).
		Str("previous_profiles", strings.Join(before, ",")).
		Bytes("output_bytes", int64(len(data))).
		Log("applied tunables profile")
	return nil
}

func (a *app) runExport(ctx context.Context, args []string) error {
	fs, g := a.newFlagSet("export")
	table := fs.String("table", string(export.TableItems), "table to export: items or steps")
	out := fs.StringP("output", "o", "", "output .parquet path, s3://bucket/key, or - for stdout")

	ctx, log, err := a.parse(ctx, fs, g, args)
	if err != nil {
		return helpOK(err)
	}
	tbl, err := export.ParseTable(*table)
	if err != nil {
		return fmt.Errorf("--table: %w", err)
	}
	in, err := singleInput(fs, "export")
	if err != nil {
		return err
	}
	if err := requireOutput(*out); err != nil {
		return err
	}
	if err := a.refuseBinaryTTY(*out); err != nil {
		return err
	}

	ctx = logctx.WithStr(ctx, "input", in)
	loaded, err := a.loadMap(ctx, in)
	if err != nil {
		return err
	}

	start := time.Now()
	var rows int
	err = a.writeStream(ctx, *out, func(w io.Writer) error {
		n, err := export.Write(w, loaded.Map, tbl)
		rows = n
		return err
	})
	if err != nil {
		return err
	}

	logging.FileWritten(log, "export", time.Since(start)).
		Str("input", in).
		Str("output", *out).
		Str("table", string(tbl)).
		Count("rows", int64(rows)).
		Log("wrote parquet")
	return nil
}
