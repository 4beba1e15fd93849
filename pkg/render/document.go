// Package render converts decoded CRUSH maps to and from a document form
// that serializes as JSON, YAML, or CBOR.
//
// A Document keeps every field the binary carries, so compiling a document
// produced by FromMap yields the same bytes the map encodes to. Resolved
// names are included for readers and ignored by the binary encoder.
package render

import (
	"errors"
	"fmt"

	"github.com/eunmann/crushtool/pkg/crush"
	"github.com/eunmann/crushtool/pkg/symtab"
)

// ErrInvalidDocument indicates a document that does not describe a valid map.
var ErrInvalidDocument = errors.New("invalid document")

// Algorithm name used for slots whose record tag is not a known algorithm.
const algUnrecognized = "unrecognized"

// Document is the serializable form of a crush.Map.
type Document struct {
	MaxBuckets int32       `json:"max_buckets" yaml:"max_buckets"`
	MaxRules   uint32      `json:"max_rules" yaml:"max_rules"`
	MaxDevices int32       `json:"max_devices" yaml:"max_devices"`
	Buckets    []BucketDoc `json:"buckets" yaml:"buckets"`
	Rules      []*RuleDoc  `json:"rules" yaml:"rules"`
	Types      []SymbolDoc `json:"types" yaml:"types"`
	Names      []SymbolDoc `json:"names" yaml:"names"`
	RuleNames  []SymbolDoc `json:"rule_names" yaml:"rule_names"`
	Tunables   TunablesDoc `json:"tunables" yaml:"tunables"`
}

// BucketDoc is one bucket slot. Algorithm selects which payload fields are
// meaningful.
type BucketDoc struct {
	Algorithm string     `json:"algorithm" yaml:"algorithm"`
	Tag       uint32     `json:"tag,omitempty" yaml:"tag,omitempty"`
	Header    *HeaderDoc `json:"header,omitempty" yaml:"header,omitempty"`

	ItemWeight   *uint32          `json:"item_weight,omitempty" yaml:"item_weight,omitempty"`
	Weights      []uint32         `json:"weights,omitempty" yaml:"weights,omitempty"`
	ListWeights  []ListWeightDoc  `json:"list_weights,omitempty" yaml:"list_weights,omitempty"`
	StrawWeights []StrawWeightDoc `json:"straw_weights,omitempty" yaml:"straw_weights,omitempty"`
	NumNodes     *uint8           `json:"num_nodes,omitempty" yaml:"num_nodes,omitempty"`
	NodeWeights  []uint32         `json:"node_weights,omitempty" yaml:"node_weights,omitempty"`
}

// HeaderDoc mirrors crush.BucketHeader. Alg and Hash are the raw header
// bytes, which may disagree with the record tag.
type HeaderDoc struct {
	ID       int32     `json:"id" yaml:"id"`
	Type     uint16    `json:"type" yaml:"type"`
	TypeName string    `json:"type_name,omitempty" yaml:"type_name,omitempty"`
	Alg      uint8     `json:"alg" yaml:"alg"`
	Hash     uint8     `json:"hash" yaml:"hash"`
	Weight   uint32    `json:"weight" yaml:"weight"`
	Items    []ItemDoc `json:"items" yaml:"items"`
}

// ItemDoc is a bucket member.
type ItemDoc struct {
	ID   int32   `json:"id" yaml:"id"`
	Name *string `json:"name,omitempty" yaml:"name,omitempty"`
}

// ListWeightDoc is a list bucket weight pair.
type ListWeightDoc struct {
	Item uint32 `json:"item" yaml:"item"`
	Sum  uint32 `json:"sum" yaml:"sum"`
}

// StrawWeightDoc is a straw bucket weight pair.
type StrawWeightDoc struct {
	Item  uint32 `json:"item" yaml:"item"`
	Straw uint32 `json:"straw" yaml:"straw"`
}

// RuleDoc is a present rule slot. Absent slots are null.
type RuleDoc struct {
	Ruleset uint8     `json:"ruleset" yaml:"ruleset"`
	Type    string    `json:"type" yaml:"type"`
	MinSize uint8     `json:"min_size" yaml:"min_size"`
	MaxSize uint8     `json:"max_size" yaml:"max_size"`
	Steps   []StepDoc `json:"steps" yaml:"steps"`
}

// StepDoc is a rule step with its opcode by name.
type StepDoc struct {
	Op       string  `json:"op" yaml:"op"`
	Arg1     int32   `json:"arg1" yaml:"arg1"`
	Arg1Name *string `json:"arg1_name,omitempty" yaml:"arg1_name,omitempty"`
	Arg2     int32   `json:"arg2" yaml:"arg2"`
	Arg2Name *string `json:"arg2_name,omitempty" yaml:"arg2_name,omitempty"`
}

// SymbolDoc is a symbol table entry.
type SymbolDoc struct {
	ID   int32  `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// TunablesDoc mirrors crush.Tunables; absent fields are omitted.
type TunablesDoc struct {
	ChooseLocalTries         *uint32 `json:"choose_local_tries,omitempty" yaml:"choose_local_tries,omitempty"`
	ChooseLocalFallbackTries *uint32 `json:"choose_local_fallback_tries,omitempty" yaml:"choose_local_fallback_tries,omitempty"`
	ChooseTotalTries         *uint32 `json:"choose_total_tries,omitempty" yaml:"choose_total_tries,omitempty"`
	ChooseleafDescendOnce    *uint32 `json:"chooseleaf_descend_once,omitempty" yaml:"chooseleaf_descend_once,omitempty"`
	ChooseleafVaryR          *uint8  `json:"chooseleaf_vary_r,omitempty" yaml:"chooseleaf_vary_r,omitempty"`
	StrawCalcVersion         *uint8  `json:"straw_calc_version,omitempty" yaml:"straw_calc_version,omitempty"`
	AllowedBucketAlgs        *uint32 `json:"allowed_bucket_algs,omitempty" yaml:"allowed_bucket_algs,omitempty"`
	ChooseleafStable         *uint8  `json:"chooseleaf_stable,omitempty" yaml:"chooseleaf_stable,omitempty"`
}

// FromMap builds the document form of m.
func FromMap(m *crush.Map) *Document {
	doc := &Document{
		MaxBuckets: m.MaxBuckets,
		MaxRules:   m.MaxRules,
		MaxDevices: m.MaxDevices,
		Buckets:    make([]BucketDoc, len(m.Buckets)),
		Rules:      make([]*RuleDoc, len(m.Rules)),
		Types:      symbolsFrom(m.Types),
		Names:      symbolsFrom(m.Names),
		RuleNames:  symbolsFrom(m.RuleNames),
		Tunables:   TunablesDoc(m.Tunables),
	}

	for i, b := range m.Buckets {
		doc.Buckets[i] = bucketFrom(m, b)
	}
	for i, r := range m.Rules {
		if r != nil {
			doc.Rules[i] = ruleFrom(r)
		}
	}
	return doc
}

func bucketFrom(m *crush.Map, b crush.Bucket) BucketDoc {
	var d BucketDoc
	if h := b.Head(); h != nil {
		d.Header = headerFrom(m, h)
	}

	switch v := b.(type) {
	case *crush.UniformBucket:
		w := v.ItemWeight
		d.ItemWeight = &w
	case *crush.ListBucket:
		d.ListWeights = make([]ListWeightDoc, len(v.Weights))
		for i, lw := range v.Weights {
			d.ListWeights[i] = ListWeightDoc(lw)
		}
	case *crush.TreeBucket:
		n := v.NumNodes
		d.NumNodes = &n
		d.NodeWeights = append([]uint32(nil), v.NodeWeights...)
	case *crush.StrawBucket:
		d.StrawWeights = make([]StrawWeightDoc, len(v.Weights))
		for i, sw := range v.Weights {
			d.StrawWeights[i] = StrawWeightDoc(sw)
		}
	case *crush.Straw2Bucket:
		d.Weights = append([]uint32(nil), v.Weights...)
	case *crush.UnrecognizedBucket:
		d.Algorithm = algUnrecognized
		d.Tag = v.Tag
		return d
	}
	d.Algorithm = crush.Algorithm(b.RecordTag()).String()
	return d
}

func headerFrom(m *crush.Map, h *crush.BucketHeader) *HeaderDoc {
	d := &HeaderDoc{
		ID:     h.ID,
		Type:   h.Type,
		Alg:    uint8(h.Alg),
		Hash:   uint8(h.Hash),
		Weight: h.Weight,
		Items:  make([]ItemDoc, len(h.Items)),
	}
	d.TypeName, _ = m.TypeName(h.Type)
	for i, it := range h.Items {
		d.Items[i] = ItemDoc{ID: it.ID, Name: it.Name}
	}
	return d
}

func ruleFrom(r *crush.Rule) *RuleDoc {
	d := &RuleDoc{
		Ruleset: r.Mask.Ruleset,
		Type:    r.Mask.Type.String(),
		MinSize: r.Mask.MinSize,
		MaxSize: r.Mask.MaxSize,
		Steps:   make([]StepDoc, len(r.Steps)),
	}
	for i, st := range r.Steps {
		d.Steps[i] = StepDoc{
			Op:       st.Op.String(),
			Arg1:     st.Arg1.Value,
			Arg1Name: st.Arg1.Name,
			Arg2:     st.Arg2.Value,
			Arg2Name: st.Arg2.Name,
		}
	}
	return d
}

func symbolsFrom(t symtab.Table) []SymbolDoc {
	out := make([]SymbolDoc, len(t))
	for i, e := range t {
		out[i] = SymbolDoc(e)
	}
	return out
}

// ToMap converts the document back to a map. Names in the document are
// carried over as they are; nothing is re-resolved.
func (doc *Document) ToMap() (*crush.Map, error) {
	if doc.MaxBuckets < 0 || int64(len(doc.Buckets)) != int64(doc.MaxBuckets) {
		return nil, fmt.Errorf("%w: %d buckets, max_buckets %d", ErrInvalidDocument, len(doc.Buckets), doc.MaxBuckets)
	}
	if uint64(len(doc.Rules)) != uint64(doc.MaxRules) {
		return nil, fmt.Errorf("%w: %d rules, max_rules %d", ErrInvalidDocument, len(doc.Rules), doc.MaxRules)
	}

	m := &crush.Map{
		Magic:      crush.Magic,
		MaxBuckets: doc.MaxBuckets,
		MaxRules:   doc.MaxRules,
		MaxDevices: doc.MaxDevices,
		Buckets:    make([]crush.Bucket, len(doc.Buckets)),
		Rules:      make([]*crush.Rule, len(doc.Rules)),
		Types:      tableFrom(doc.Types),
		Names:      tableFrom(doc.Names),
		RuleNames:  tableFrom(doc.RuleNames),
		Tunables:   crush.Tunables(doc.Tunables),
	}

	for i, bd := range doc.Buckets {
		b, err := bd.toBucket()
		if err != nil {
			return nil, fmt.Errorf("bucket %d: %w", i, err)
		}
		m.Buckets[i] = b
	}
	for i, rd := range doc.Rules {
		if rd == nil {
			continue
		}
		r, err := rd.toRule()
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		m.Rules[i] = r
	}
	return m, nil
}

func (bd BucketDoc) toBucket() (crush.Bucket, error) {
	if bd.Algorithm == algUnrecognized {
		u := &crush.UnrecognizedBucket{Tag: bd.Tag}
		if bd.Header != nil {
			h := bd.Header.toHeader()
			u.Header = &h
		}
		return u, nil
	}

	alg, err := crush.ParseAlgorithm(bd.Algorithm)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	if bd.Header == nil {
		return nil, fmt.Errorf("%w: %s bucket without header", ErrInvalidDocument, alg)
	}
	h := bd.Header.toHeader()

	switch alg {
	case crush.AlgUniform:
		if bd.ItemWeight == nil {
			return nil, fmt.Errorf("%w: uniform bucket %d without item_weight", ErrInvalidDocument, h.ID)
		}
		return &crush.UniformBucket{BucketHeader: h, ItemWeight: *bd.ItemWeight}, nil
	case crush.AlgList:
		weights := make([]crush.ListWeight, len(bd.ListWeights))
		for i, lw := range bd.ListWeights {
			weights[i] = crush.ListWeight(lw)
		}
		return &crush.ListBucket{BucketHeader: h, Weights: weights}, nil
	case crush.AlgTree:
		if bd.NumNodes == nil {
			return nil, fmt.Errorf("%w: tree bucket %d without num_nodes", ErrInvalidDocument, h.ID)
		}
		nodes := append([]uint32{}, bd.NodeWeights...)
		return &crush.TreeBucket{BucketHeader: h, NumNodes: *bd.NumNodes, NodeWeights: nodes}, nil
	case crush.AlgStraw:
		weights := make([]crush.StrawWeight, len(bd.StrawWeights))
		for i, sw := range bd.StrawWeights {
			weights[i] = crush.StrawWeight(sw)
		}
		return &crush.StrawBucket{BucketHeader: h, Weights: weights}, nil
	default:
		return &crush.Straw2Bucket{BucketHeader: h, Weights: append([]uint32{}, bd.Weights...)}, nil
	}
}

// toHeader derives Size from the item list.
func (hd *HeaderDoc) toHeader() crush.BucketHeader {
	h := crush.BucketHeader{
		ID:     hd.ID,
		Type:   hd.Type,
		Alg:    crush.Algorithm(hd.Alg),
		Hash:   crush.Hash(hd.Hash),
		Weight: hd.Weight,
		Size:   uint32(len(hd.Items)),
		Items:  make([]crush.Item, len(hd.Items)),
		Perm:   uint32(len(hd.Items)),
	}
	for i, it := range hd.Items {
		h.Items[i] = crush.Item{ID: it.ID, Name: it.Name}
	}
	return h
}

func (rd *RuleDoc) toRule() (*crush.Rule, error) {
	typ, err := crush.ParseRuleType(rd.Type)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	r := &crush.Rule{
		Mask:  crush.Mask{Ruleset: rd.Ruleset, Type: typ, MinSize: rd.MinSize, MaxSize: rd.MaxSize},
		Steps: make([]crush.Step, len(rd.Steps)),
	}
	for i, sd := range rd.Steps {
		op, err := crush.ParseOp(sd.Op)
		if err != nil {
			return nil, fmt.Errorf("%w: step %d: %w", ErrInvalidDocument, i, err)
		}
		r.Steps[i] = crush.Step{
			Op:   op,
			Arg1: crush.Arg{Value: sd.Arg1, Name: sd.Arg1Name},
			Arg2: crush.Arg{Value: sd.Arg2, Name: sd.Arg2Name},
		}
	}
	return r, nil
}

func tableFrom(syms []SymbolDoc) symtab.Table {
	t := make(symtab.Table, len(syms))
	for i, s := range syms {
		t[i] = symtab.Entry(s)
	}
	return t
}
