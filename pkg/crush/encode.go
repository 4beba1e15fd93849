package crush

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/eunmann/crushtool/pkg/wire"
)

// Encode serializes m. Absent tunables are written as zero and unrecognized
// buckets as empty slots; names are never written. m is not modified.
func Encode(m *Map, opts ...Option) ([]byte, error) {
	o := newOptions(opts)
	w, err := encode(m, o.log)
	if err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// WriteTo serializes m to dst. Nothing is written unless encoding succeeds.
func WriteTo(dst io.Writer, m *Map, opts ...Option) (int64, error) {
	o := newOptions(opts)
	w, err := encode(m, o.log)
	if err != nil {
		return 0, err
	}
	n, err := w.WriteTo(dst)
	if err != nil {
		return n, fmt.Errorf("%w: %w", ErrWriteFailure, err)
	}
	if n != int64(w.Len()) {
		return n, fmt.Errorf("%w: wrote %d of %d bytes", ErrWriteFailure, n, w.Len())
	}
	return n, nil
}

func encode(m *Map, log zerolog.Logger) (*wire.Writer, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil map", ErrInvalidValue)
	}
	if m.MaxBuckets < 0 || int64(len(m.Buckets)) != int64(m.MaxBuckets) {
		return nil, fmt.Errorf("%w: %d buckets, max_buckets %d", ErrCountMismatch, len(m.Buckets), m.MaxBuckets)
	}
	if uint64(len(m.Rules)) != uint64(m.MaxRules) {
		return nil, fmt.Errorf("%w: %d rules, max_rules %d", ErrCountMismatch, len(m.Rules), m.MaxRules)
	}

	w := wire.NewWriter(EncodedSizeHint(m))
	w.U32(Magic)
	w.I32(m.MaxBuckets)
	w.U32(m.MaxRules)
	w.I32(m.MaxDevices)

	lossy := 0
	for i, b := range m.Buckets {
		if b == nil {
			return nil, fmt.Errorf("%w: bucket slot %d is nil", ErrInvalidValue, i)
		}
		if u, ok := b.(*UnrecognizedBucket); ok && (u.Tag != 0 || u.Header != nil) {
			lossy++
			log.Warn().Int("slot", i).Uint32("tag", u.Tag).Msg("writing unrecognized bucket as empty slot")
		}
		if err := encodeBucket(w, b); err != nil {
			return nil, fmt.Errorf("bucket %d: %w", i, err)
		}
	}

	for i, rule := range m.Rules {
		if err := encodeRule(w, rule); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
	}

	if err := m.Types.Encode(w); err != nil {
		return nil, fmt.Errorf("type names: %w", err)
	}
	if err := m.Names.Encode(w); err != nil {
		return nil, fmt.Errorf("item names: %w", err)
	}
	if err := m.RuleNames.Encode(w); err != nil {
		return nil, fmt.Errorf("rule names: %w", err)
	}

	if !m.Tunables.Complete() {
		log.Debug().Int("present", m.Tunables.Present()).Msg("padding absent tunables with zero")
	}
	encodeTunables(w, m.Tunables)

	log.Debug().Int("bytes", w.Len()).Int("lossy_buckets", lossy).Msg("encoded map")
	return w, nil
}

// EncodedSizeHint estimates the encoded size of m for buffer sizing.
func EncodedSizeHint(m *Map) int {
	n := preambleSize + tunablesSize
	for _, b := range m.Buckets {
		n += 4
		if b == nil {
			continue
		}
		if h := b.Head(); h != nil {
			n += bucketHeaderSize + 4*len(h.Items) + 8*len(h.Items) + 1
		}
	}
	for _, r := range m.Rules {
		n += 4
		if r != nil {
			n += 8 + stepSize*len(r.Steps)
		}
	}
	return n + m.Types.EncodedSize() + m.Names.EncodedSize() + m.RuleNames.EncodedSize()
}
