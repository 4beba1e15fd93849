// Package cli implements the command-line interface for crushtool.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/eunmann/crushtool/internal/logctx"
	"github.com/eunmann/crushtool/pkg/logging"
	"github.com/eunmann/crushtool/pkg/s3store"
)

const usage = `usage: crushtool <command> [options]
commands: decompile, compile, verify, tunables, export, info`

// ObjectStore reads and writes whole objects at s3:// locations.
type ObjectStore interface {
	Get(ctx context.Context, uri string) ([]byte, error)
	Put(ctx context.Context, uri string, data []byte) error
}

type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	newStore func(ctx context.Context) (ObjectStore, error)

	storeMu sync.Mutex
	store   ObjectStore
}

// Run executes the CLI with the given arguments.
func Run(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		newStore: func(ctx context.Context) (ObjectStore, error) {
			return s3store.NewClient(ctx, s3store.TransferConfig{})
		},
	}
	return a.run(ctx, args)
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New(usage)
	}

	switch args[0] {
	case "decompile":
		return a.runDecompile(ctx, args[1:])
	case "compile":
		return a.runCompile(ctx, args[1:])
	case "verify":
		return a.runVerify(ctx, args[1:])
	case "tunables":
		return a.runTunables(ctx, args[1:])
	case "export":
		return a.runExport(ctx, args[1:])
	case "info":
		return a.runInfo(ctx, args[1:])
	case "help", "-h", "--help":
		fmt.Fprintln(a.stdout, usage)
		return nil
	default:
		return fmt.Errorf("unknown command: %s\n%s", args[0], usage)
	}
}

// objectStore creates the S3 client on first use.
func (a *app) objectStore(ctx context.Context) (ObjectStore, error) {
	a.storeMu.Lock()
	defer a.storeMu.Unlock()
	if a.store != nil {
		return a.store, nil
	}
	if a.newStore == nil {
		return nil, errors.New("no object store configured")
	}
	s, err := a.newStore(ctx)
	if err != nil {
		return nil, err
	}
	a.store = s
	return s, nil
}

type globalFlags struct {
	debug bool
	trace bool
	human bool
}

func (a *app) newFlagSet(name string) (*pflag.FlagSet, *globalFlags) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(a.stderr)

	g := &globalFlags{}
	fs.BoolVar(&g.debug, "debug", false, "enable debug logging")
	fs.BoolVar(&g.trace, "trace", false, "enable per-record trace logging")
	fs.BoolVar(&g.human, "human", false, "human-readable log output instead of JSON")
	return fs, g
}

// parse parses args and sets up logging for the command. A help request
// returns errHelp so callers can exit cleanly.
func (a *app) parse(ctx context.Context, fs *pflag.FlagSet, g *globalFlags, args []string) (context.Context, zerolog.Logger, error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return ctx, zerolog.Nop(), errHelp
		}
		return ctx, zerolog.Nop(), err
	}

	level, err := determineLogLevel(g)
	if err != nil {
		return ctx, zerolog.Nop(), err
	}
	human, err := determineLogFormat(g)
	if err != nil {
		return ctx, zerolog.Nop(), err
	}
	logging.InitWriter(a.stderr, level, human)

	log := logging.WithCommand(fs.Name())
	return logctx.WithLogger(ctx, log), log, nil
}

var errHelp = errors.New("help requested")

// helpOK maps errHelp to success.
func helpOK(err error) error {
	if errors.Is(err, errHelp) {
		return nil
	}
	return err
}
