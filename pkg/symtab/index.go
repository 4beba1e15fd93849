package symtab

import (
	"fmt"

	"github.com/relab/bbhash"
)

// Index answers id lookups against a Table in constant time using a minimal
// perfect hash over the distinct ids. When an id appears more than once, the
// first entry wins, matching Table.Lookup.
//
// An Index is immutable after construction and safe for concurrent use.
type Index struct {
	mph   *bbhash.BBHash2
	ids   []int32  // ids[pos] is the id that hashes to pos
	names []string // names[pos] is its first name
}

// NewIndex builds an index over t. An empty table yields an index that
// reports every id as missing.
func NewIndex(t Table) (*Index, error) {
	seen := make(map[int32]struct{}, len(t))
	first := make([]Entry, 0, len(t))
	for _, e := range t {
		if _, dup := seen[e.ID]; dup {
			continue
		}
		seen[e.ID] = struct{}{}
		first = append(first, e)
	}

	if len(first) == 0 {
		return &Index{}, nil
	}

	keys := make([]uint64, len(first))
	for i, e := range first {
		keys[i] = idKey(e.ID)
	}

	mph, err := bbhash.New(keys, bbhash.Gamma(2.0))
	if err != nil {
		return nil, fmt.Errorf("build symbol index: %w", err)
	}

	// bbhash positions are 1-indexed; 0 means not found.
	ids := make([]int32, len(first))
	names := make([]string, len(first))
	for _, e := range first {
		hashVal := mph.Find(idKey(e.ID))
		if hashVal == 0 || hashVal > uint64(len(first)) {
			return nil, fmt.Errorf("symbol index lookup failed for id %d", e.ID)
		}
		pos := hashVal - 1
		ids[pos] = e.ID
		names[pos] = e.Name
	}

	return &Index{mph: mph, ids: ids, names: names}, nil
}

// Lookup returns the name for id, or ok=false if the table has no such id.
func (ix *Index) Lookup(id int32) (name string, ok bool) {
	if ix == nil || ix.mph == nil {
		return "", false
	}
	hashVal := ix.mph.Find(idKey(id))
	if hashVal == 0 || hashVal > uint64(len(ix.ids)) {
		return "", false
	}
	pos := hashVal - 1

	// Non-members can land on a valid slot; the stored id settles it.
	if ix.ids[pos] != id {
		return "", false
	}
	return ix.names[pos], true
}

// Len returns the number of distinct ids.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.ids)
}

func idKey(id int32) uint64 {
	return uint64(uint32(id))
}
