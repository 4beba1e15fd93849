package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/eunmann/crushtool/internal/logctx"
	"github.com/eunmann/crushtool/pkg/crush"
	"github.com/eunmann/crushtool/pkg/humanfmt"
	"github.com/eunmann/crushtool/pkg/logging"
	"github.com/eunmann/crushtool/pkg/mapio"
	"github.com/eunmann/crushtool/pkg/memdiag"
	"github.com/eunmann/crushtool/pkg/s3store"
)

// Verification outcomes.
const (
	statusExact  = "exact"
	statusLossy  = "lossy"
	statusFailed = "failed"
)

type verifyResult struct {
	Input    string
	Status   string
	Size     int
	Digest   string
	Detail   string
	Duration time.Duration
}

// verifyMap decodes data, re-encodes it, and compares. A lossy map is one
// that re-encodes to different bytes whose own round trip is stable.
func verifyMap(data []byte, opts ...crush.Option) verifyResult {
	res := verifyResult{Size: len(data), Digest: mapio.Digest(data)}

	m, err := crush.Decode(data, opts...)
	if err != nil {
		res.Status, res.Detail = statusFailed, err.Error()
		return res
	}
	first, err := crush.Encode(m, opts...)
	if err != nil {
		res.Status, res.Detail = statusFailed, "re-encode: "+encodeFailure(err)
		return res
	}
	if bytes.Equal(first, data) {
		res.Status = statusExact
		return res
	}

	m2, err := crush.Decode(first, opts...)
	if err != nil {
		res.Status, res.Detail = statusFailed, "decode of re-encoding: "+err.Error()
		return res
	}
	second, err := crush.Encode(m2, opts...)
	if err != nil {
		res.Status, res.Detail = statusFailed, "second re-encode: "+err.Error()
		return res
	}
	if !bytes.Equal(first, second) {
		res.Status, res.Detail = statusFailed, "re-encoding is not stable"
		return res
	}

	res.Status = statusLossy
	res.Detail = lossReason(m, len(data), len(first))
	return res
}

// encodeFailure explains re-encode errors that valid input can cause.
func encodeFailure(err error) string {
	if errors.Is(err, crush.ErrEmptyName) {
		return err.Error() + " (an empty name stored in the extended length form has no short form to write)"
	}
	return err.Error()
}

func lossReason(m *crush.Map, before, after int) string {
	var unrec int
	for _, b := range m.Buckets {
		if u, ok := b.(*crush.UnrecognizedBucket); ok && u.Tag != 0 {
			unrec++
		}
	}
	reason := fmt.Sprintf("%d -> %d bytes", before, after)
	if unrec > 0 {
		reason += fmt.Sprintf(", %d unrecognized buckets dropped", unrec)
	}
	if n := m.Tunables.Present(); n < 8 {
		reason += fmt.Sprintf(", %d absent tunables zero-filled", 8-n)
	}
	return reason
}

func (a *app) runVerify(ctx context.Context, args []string) error {
	fs, g := a.newFlagSet("verify")
	concurrency := fs.Int("concurrency", 0, "parallel verifications (default $"+envConcurrency+" or NumCPU)")
	strict := fs.Bool("strict", false, "treat lossy round trips as failures")
	memBudget := fs.String("mem-budget", "", "memory shared by workers, e.g. 2GiB (default $"+envMemBudget+" or 25% of RAM)")

	ctx, log, err := a.parse(ctx, fs, g, args)
	if err != nil {
		return helpOK(err)
	}
	inputs := fs.Args()
	if len(inputs) == 0 {
		return fmt.Errorf("verify: at least one input map is required")
	}
	workers, err := determineConcurrency(*concurrency)
	if err != nil {
		return err
	}

	budget, err := determineMemoryBudget(*memBudget)
	if err != nil {
		return err
	}

	log.Info().
		Int("inputs", len(inputs)).
		Int("concurrency", workers).
		Str("mem_budget", humanfmt.Bytes(int64(budget.Total()))).
		Str("mem_budget_source", string(budget.Source())).
		Msg("verifying maps")
	start := time.Now()
	progress := logging.NewProgressTracker("verify", int64(len(inputs)), max(1, int64(len(inputs)/10)), log)

	mem := memdiag.NewTracker()
	results := make([]verifyResult, len(inputs))
	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(workers)
	for i, in := range inputs {
		grp.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			reserved, err := budget.Reserve(gctx, footprint(in))
			if err != nil {
				return err
			}
			defer budget.Release(reserved)

			wctx := logctx.WithInt(logctx.WithStr(gctx, "input", in), "index", i)
			results[i] = a.verifyOne(wctx, in)
			mem.Sample()
			if results[i].Status == statusFailed {
				progress.RecordFailure()
			} else {
				progress.RecordSuccess(results[i].Duration)
			}
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return err
	}

	var exact, lossy, failed int
	var total int64
	for _, r := range results {
		total += int64(r.Size)
		switch r.Status {
		case statusExact:
			exact++
		case statusLossy:
			lossy++
		default:
			failed++
		}
	}
	if err := writeVerifyTable(a.stdout, results); err != nil {
		return err
	}
	mem.LogWithBudget(log, "verify", budget.Total())

	logging.StageComplete(log, "verify", time.Since(start)).
		Int("exact", exact).
		Int("lossy", lossy).
		Int("failed", failed).
		Bytes("bytes", total).
		Throughput(total).
		Log("verification complete")

	if failed > 0 {
		return fmt.Errorf("%d of %d maps failed verification", failed, len(inputs))
	}
	if *strict && lossy > 0 {
		return fmt.Errorf("%d of %d maps did not round-trip exactly", lossy, len(inputs))
	}
	return nil
}

// Verification holds the input, the decoded map, and two encodings.
const (
	footprintFactor  = 4
	footprintDefault = 4 * 1024 * 1024
)

// footprint estimates the memory one verification of loc needs. Only local
// files have a size before they are read.
func footprint(loc string) uint64 {
	if loc == stdio || s3store.IsS3URI(loc) {
		return footprintDefault
	}
	info, err := os.Stat(loc)
	if err != nil {
		return footprintDefault
	}
	n := uint64(info.Size()) * footprintFactor
	if mapio.CompressionFromPath(loc) != mapio.CompressionNone {
		// Compressed maps typically expand several times over.
		n *= footprintFactor
	}
	return max(n, 64*1024)
}

func (a *app) verifyOne(ctx context.Context, in string) verifyResult {
	log := logctx.FromContext(ctx)
	start := time.Now()

	src, err := a.readSource(ctx, in)
	if err != nil {
		log.Warn().Err(err).Msg("read failed")
		return verifyResult{Input: in, Status: statusFailed, Detail: err.Error(), Duration: time.Since(start)}
	}
	res := verifyMap(src.Data(), crush.WithLogger(log))
	src.Release()

	res.Input = in
	res.Duration = time.Since(start)
	ev := log.Debug()
	if res.Status == statusFailed {
		ev = log.Warn()
	}
	ev.Str("status", res.Status).Str("detail", res.Detail).Dur("elapsed", res.Duration).Msg("verified")
	return res
}

func writeVerifyTable(w io.Writer, results []verifyResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STATUS\tINPUT\tSIZE\tBLAKE3\tDETAIL")
	for _, r := range results {
		digest := r.Digest
		if len(digest) > 16 {
			digest = digest[:16]
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Status, r.Input, humanfmt.Bytes(int64(r.Size)), digest, r.Detail)
	}
	return tw.Flush()
}
