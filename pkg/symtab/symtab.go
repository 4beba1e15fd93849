// Package symtab encodes and decodes the id/name tables that trail a CRUSH
// map: item names, hierarchy type names, and rule names.
package symtab

import (
	"errors"
	"fmt"

	"github.com/eunmann/crushtool/pkg/wire"
)

// ErrEmptyName indicates an entry that cannot be encoded: a zero length
// prefix is read back as the extended length form. Decode still accepts an
// empty name written as (0, 0), so a table read from such input decodes but
// fails to re-encode.
var ErrEmptyName = errors.New("empty symbol name")

// minEntrySize is an id plus a single-word length.
const minEntrySize = 8

// Entry is one id/name pair.
type Entry struct {
	ID   int32
	Name string
}

// Table is an ordered symbol table. Order is preserved on the wire.
type Table []Entry

// Decode reads a count followed by that many entries. Names may use either
// length form, and an extended-form name may be empty; see Encode.
func Decode(r *wire.Reader) (Table, error) {
	count, err := r.U32()
	if err != nil {
		return nil, fmt.Errorf("read count: %w", err)
	}
	if err := r.Need(uint64(count), minEntrySize); err != nil {
		return nil, fmt.Errorf("%d entries: %w", count, err)
	}

	t := make(Table, 0, count)
	for i := uint32(0); i < count; i++ {
		id, err := r.I32()
		if err != nil {
			return nil, fmt.Errorf("entry %d id: %w", i, err)
		}
		name, err := r.Text()
		if err != nil {
			return nil, fmt.Errorf("entry %d name: %w", i, err)
		}
		t = append(t, Entry{ID: id, Name: name})
	}
	return t, nil
}

// Encode writes the table in order with single-word lengths. An empty name
// has no short form, so any table holding one, including one decoded from an
// extended (0, 0) name, fails with ErrEmptyName before anything is written.
func (t Table) Encode(w *wire.Writer) error {
	for i, e := range t {
		if e.Name == "" {
			return fmt.Errorf("entry %d (id %d): %w", i, e.ID, ErrEmptyName)
		}
	}
	w.U32(uint32(len(t)))
	for _, e := range t {
		w.I32(e.ID)
		w.Text(e.Name)
	}
	return nil
}

// EncodedSize returns the number of bytes Encode writes.
func (t Table) EncodedSize() int {
	n := 4
	for _, e := range t {
		n += minEntrySize + len(e.Name)
	}
	return n
}

// Lookup returns the name of the first entry with the given id.
func (t Table) Lookup(id int32) (string, bool) {
	for _, e := range t {
		if e.ID == id {
			return e.Name, true
		}
	}
	return "", false
}

// ByName returns the id of the first entry with the given name.
func (t Table) ByName(name string) (int32, bool) {
	for _, e := range t {
		if e.Name == name {
			return e.ID, true
		}
	}
	return 0, false
}
