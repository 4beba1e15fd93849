package export

import (
	"errors"
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"

	"github.com/eunmann/crushtool/pkg/crush"
)

// ErrUnknownTable indicates a table name other than items or steps.
var ErrUnknownTable = errors.New("unknown export table")

// Table selects which rows Write produces.
type Table string

const (
	TableItems Table = "items"
	TableSteps Table = "steps"
)

// ParseTable validates a table name.
func ParseTable(s string) (Table, error) {
	switch t := Table(s); t {
	case TableItems, TableSteps:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTable, s)
	}
}

// rowGroupSize caps rows per row group. Even large maps fit in one.
const rowGroupSize = 64 * 1024

// Write encodes the chosen table of m as a zstd-compressed Parquet file and
// returns the number of rows written.
func Write(w io.Writer, m *crush.Map, table Table) (int, error) {
	switch table {
	case TableItems:
		return writeRows(w, ItemRows(m))
	case TableSteps:
		return writeRows(w, StepRows(m))
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownTable, string(table))
	}
}

func writeRows[T any](w io.Writer, rows []T) (int, error) {
	pw := parquet.NewGenericWriter[T](w,
		parquet.Compression(&parquet.Zstd),
		parquet.MaxRowsPerRowGroup(rowGroupSize),
	)

	written := 0
	for start := 0; start < len(rows); start += rowGroupSize {
		end := min(start+rowGroupSize, len(rows))
		n, err := pw.Write(rows[start:end])
		written += n
		if err != nil {
			pw.Close()
			return written, fmt.Errorf("write parquet rows: %w", err)
		}
	}
	if err := pw.Close(); err != nil {
		return written, fmt.Errorf("close parquet writer: %w", err)
	}
	return written, nil
}
