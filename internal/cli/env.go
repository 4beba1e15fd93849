package cli

import (
	"fmt"
	"os"
	"runtime"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/eunmann/crushtool/pkg/humanfmt"
	"github.com/eunmann/crushtool/pkg/logging"
	"github.com/eunmann/crushtool/pkg/mapio"
	"github.com/eunmann/crushtool/pkg/membudget"
)

// Environment defaults. Flags always take priority.
const (
	envLogLevel    = "CRUSHTOOL_LOG_LEVEL"
	envLogFormat   = "CRUSHTOOL_LOG_FORMAT"
	envConcurrency = "CRUSHTOOL_CONCURRENCY"
	envCompression = "CRUSHTOOL_COMPRESSION"
	envMemBudget   = "CRUSHTOOL_MEM_BUDGET"
)

func determineLogLevel(g *globalFlags) (zerolog.Level, error) {
	switch {
	case g.trace:
		return zerolog.TraceLevel, nil
	case g.debug:
		return zerolog.DebugLevel, nil
	}
	level, err := logging.ParseLevel(os.Getenv(envLogLevel))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("%s: %w", envLogLevel, err)
	}
	return level, nil
}

func determineLogFormat(g *globalFlags) (bool, error) {
	if g.human {
		return true, nil
	}
	human, err := logging.ParseFormat(os.Getenv(envLogFormat))
	if err != nil {
		return false, fmt.Errorf("%s: %w", envLogFormat, err)
	}
	return human, nil
}

// determineConcurrency resolves the worker count: flag, then environment,
// then the number of CPUs.
func determineConcurrency(flagVal int) (int, error) {
	if flagVal > 0 {
		return flagVal, nil
	}
	if flagVal < 0 {
		return 0, fmt.Errorf("--concurrency must be positive, got %d", flagVal)
	}
	if s := os.Getenv(envConcurrency); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("%s: invalid worker count %q", envConcurrency, s)
		}
		return n, nil
	}
	return runtime.NumCPU(), nil
}

// determineCompression resolves output framing: flag, then environment,
// then the output file extension.
func determineCompression(flagVal, outPath string) (mapio.Compression, error) {
	if flagVal != "" {
		c, err := mapio.ParseCompression(flagVal)
		if err != nil {
			return 0, fmt.Errorf("--compress: %w", err)
		}
		return c, nil
	}
	if s := os.Getenv(envCompression); s != "" {
		c, err := mapio.ParseCompression(s)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", envCompression, err)
		}
		return c, nil
	}
	return mapio.CompressionFromPath(outPath), nil
}

// determineMemoryBudget resolves the verify memory budget: flag, then
// environment, then a share of system RAM.
func determineMemoryBudget(flagVal string) (*membudget.Budget, error) {
	if flagVal != "" {
		n, err := humanfmt.ParseBytes(flagVal)
		if err != nil || n == 0 {
			return nil, fmt.Errorf("--mem-budget: invalid size %q", flagVal)
		}
		return membudget.New(n, membudget.SourceCLI), nil
	}
	if s := os.Getenv(envMemBudget); s != "" {
		n, err := humanfmt.ParseBytes(s)
		if err != nil || n == 0 {
			return nil, fmt.Errorf("%s: invalid size %q", envMemBudget, s)
		}
		return membudget.New(n, membudget.SourceEnv), nil
	}
	return membudget.FromSystemRAM(), nil
}
