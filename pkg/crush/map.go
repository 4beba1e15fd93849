// Package crush decodes and encodes binary CRUSH maps: the weighted bucket
// hierarchy, placement rules, symbol tables, and tunables of a distributed
// storage cluster.
//
// Decode resolves item and step-argument ids to names after the symbol
// tables are read, because the tables follow the structures that reference
// them. Encode writes the same layout back and never serializes names.
package crush

import (
	"github.com/rs/zerolog"

	"github.com/eunmann/crushtool/pkg/symtab"
)

// Magic is the first word of every encoded map.
const Magic uint32 = 0x00010000

// preambleSize is magic, max_buckets, max_rules, and max_devices.
const preambleSize = 16

// Map is a decoded CRUSH map. Buckets and Rules keep the slot counts
// declared in the preamble; a nil rule is an empty slot.
type Map struct {
	Magic      uint32
	MaxBuckets int32
	MaxRules   uint32
	MaxDevices int32

	Buckets []Bucket
	Rules   []*Rule

	Types     symtab.Table
	Names     symtab.Table
	RuleNames symtab.Table

	Tunables Tunables
}

// NewMap returns an empty map with the given slot counts. Bucket slots start
// as empty records and rule slots as absent rules.
func NewMap(maxBuckets int32, maxRules uint32, maxDevices int32) *Map {
	if maxBuckets < 0 {
		maxBuckets = 0
	}
	m := &Map{
		Magic:      Magic,
		MaxBuckets: maxBuckets,
		MaxRules:   maxRules,
		MaxDevices: maxDevices,
		Buckets:    make([]Bucket, maxBuckets),
		Rules:      make([]*Rule, maxRules),
	}
	for i := range m.Buckets {
		m.Buckets[i] = &UnrecognizedBucket{}
	}
	return m
}

// RuleName returns the name recorded for rule slot i.
func (m *Map) RuleName(i int) (string, bool) {
	return m.RuleNames.Lookup(int32(i))
}

// TypeName returns the hierarchy type name for a bucket type tag.
func (m *Map) TypeName(t uint16) (string, bool) {
	return m.Types.Lookup(int32(t))
}

type options struct {
	log zerolog.Logger
}

// Option configures Decode, Encode, and WriteTo.
type Option func(*options)

// WithLogger sends diagnostic tracing to l. Per-record events are logged at
// trace level, summaries at debug, and lossy encodes at warn.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

func newOptions(opts []Option) options {
	o := options{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
