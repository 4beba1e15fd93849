package crush

import (
	"fmt"

	"github.com/eunmann/crushtool/pkg/symtab"
	"github.com/eunmann/crushtool/pkg/wire"
)

// Decode parses an encoded map and resolves item and step-argument names.
// The result owns all of its memory; buf may be reused or unmapped as soon
// as Decode returns.
//
// Decode either returns a complete map or an error. Bytes following a
// complete tunables block are ignored.
func Decode(buf []byte, opts ...Option) (*Map, error) {
	o := newOptions(opts)
	log := o.log
	r := wire.NewReader(buf)

	m, err := decodePreamble(r)
	if err != nil {
		return nil, err
	}
	log.Debug().
		Int32("max_buckets", m.MaxBuckets).
		Uint32("max_rules", m.MaxRules).
		Int32("max_devices", m.MaxDevices).
		Int("input_bytes", len(buf)).
		Msg("decoding map")

	m.Buckets = make([]Bucket, m.MaxBuckets)
	for i := range m.Buckets {
		start := r.Offset()
		b, err := decodeBucket(r)
		if err != nil {
			return nil, fmt.Errorf("bucket %d at offset %d: %w", i, start, err)
		}
		m.Buckets[i] = b
		if e := log.Trace(); e.Enabled() {
			e.Int("slot", i).Uint32("tag", b.RecordTag()).Int("offset", start)
			if h := b.Head(); h != nil {
				e.Int32("id", h.ID).Uint32("size", h.Size)
			}
			e.Msg("bucket")
		}
	}

	m.Rules = make([]*Rule, m.MaxRules)
	for i := range m.Rules {
		start := r.Offset()
		rule, err := decodeRule(r)
		if err != nil {
			return nil, fmt.Errorf("rule %d at offset %d: %w", i, start, err)
		}
		m.Rules[i] = rule
		if e := log.Trace(); e.Enabled() {
			e.Int("slot", i).Bool("present", rule != nil).Int("offset", start)
			if rule != nil {
				e.Int("steps", len(rule.Steps))
			}
			e.Msg("rule")
		}
	}

	tables := []struct {
		name string
		dst  *symtab.Table
	}{
		{"type names", &m.Types},
		{"item names", &m.Names},
		{"rule names", &m.RuleNames},
	}
	for _, tbl := range tables {
		start := r.Offset()
		t, err := symtab.Decode(r)
		if err != nil {
			return nil, fmt.Errorf("%s at offset %d: %w", tbl.name, start, err)
		}
		*tbl.dst = t
		log.Trace().Str("table", tbl.name).Int("entries", len(t)).Int("offset", start).Msg("symbol table")
	}

	m.Tunables = decodeTunables(r)
	log.Debug().Int("tunables", m.Tunables.Present()).Msg("decoded tunables")
	if r.Remaining() > 0 {
		log.Debug().Int("bytes", r.Remaining()).Int("offset", r.Offset()).Msg("ignoring trailing bytes")
	}

	resolve(m, log)
	return m, nil
}

func decodePreamble(r *wire.Reader) (*Map, error) {
	if err := r.Need(1, preambleSize); err != nil {
		return nil, fmt.Errorf("preamble: %w", err)
	}
	magic, _ := r.U32()
	if magic != Magic {
		return nil, fmt.Errorf("%w: got 0x%08x, want 0x%08x", ErrMagicMismatch, magic, Magic)
	}
	maxBuckets, _ := r.I32()
	maxRules, _ := r.U32()
	maxDevices, _ := r.I32()

	if maxBuckets < 0 {
		return nil, fmt.Errorf("%w: max_buckets %d", ErrInvalidCount, maxBuckets)
	}
	// Every bucket and rule slot takes at least one word, and three table
	// counts follow them.
	if err := r.Need(uint64(maxBuckets)+uint64(maxRules)+3, 4); err != nil {
		return nil, fmt.Errorf("%d bucket and %d rule slots: %w", maxBuckets, maxRules, err)
	}

	return &Map{
		Magic:      magic,
		MaxBuckets: maxBuckets,
		MaxRules:   maxRules,
		MaxDevices: maxDevices,
	}, nil
}
