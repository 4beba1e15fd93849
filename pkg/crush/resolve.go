package crush

import (
	"github.com/rs/zerolog"

	"github.com/eunmann/crushtool/pkg/symtab"
)

// indexThreshold is the table size above which lookups go through a
// perfect-hash index instead of a linear scan.
const indexThreshold = 64

type lookupFunc func(id int32) (string, bool)

// lookupFor returns a first-match lookup over t.
func lookupFor(t symtab.Table, log zerolog.Logger) lookupFunc {
	if len(t) < indexThreshold {
		return t.Lookup
	}
	ix, err := symtab.NewIndex(t)
	if err != nil {
		log.Debug().Err(err).Int("entries", len(t)).Msg("symbol index unavailable, scanning table")
		return t.Lookup
	}
	return ix.Lookup
}

// resolve attaches names to bucket items from the item name table and to
// step arguments from the type name table. Ids are never changed, and ids
// with no entry keep a nil name.
func resolve(m *Map, log zerolog.Logger) {
	names := lookupFor(m.Names, log)
	types := lookupFor(m.Types, log)

	var resolved, missing int
	for _, b := range m.Buckets {
		h := b.Head()
		if h == nil {
			continue
		}
		for i := range h.Items {
			if name, ok := names(h.Items[i].ID); ok {
				h.Items[i].Name = &name
				resolved++
			} else {
				missing++
			}
		}
	}

	for _, rule := range m.Rules {
		if rule == nil {
			continue
		}
		for i := range rule.Steps {
			st := &rule.Steps[i]
			if name, ok := types(st.Arg1.Value); ok {
				st.Arg1.Name = &name
			}
			if name, ok := types(st.Arg2.Value); ok {
				st.Arg2.Name = &name
			}
		}
	}

	log.Debug().Int("resolved_items", resolved).Int("unnamed_items", missing).Msg("resolved names")
}
