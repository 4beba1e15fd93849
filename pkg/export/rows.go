// Package export flattens a decoded map into Parquet tables: one row per
// bucket item and one row per rule step.
package export

import (
	"github.com/eunmann/crushtool/pkg/crush"
)

// ItemRow is one bucket member. Weight is the member's 16.16 weight as the
// bucket's algorithm stores it, and is null for unrecognized buckets.
type ItemRow struct {
	BucketID   int32   `parquet:"bucket_id"`
	BucketType string  `parquet:"bucket_type"`
	BucketAlg  string  `parquet:"bucket_alg"`
	Position   int32   `parquet:"position"`
	ItemID     int32   `parquet:"item_id"`
	ItemName   *string `parquet:"item_name,optional"`
	Weight     *int64  `parquet:"weight,optional"`
}

// StepRow is one rule step.
type StepRow struct {
	RuleIndex int32   `parquet:"rule_index"`
	RuleName  *string `parquet:"rule_name,optional"`
	RuleType  string  `parquet:"rule_type"`
	Step      int32   `parquet:"step"`
	Op        string  `parquet:"op"`
	Arg1      int32   `parquet:"arg1"`
	Arg1Name  *string `parquet:"arg1_name,optional"`
	Arg2      int32   `parquet:"arg2"`
	Arg2Name  *string `parquet:"arg2_name,optional"`
}

// ItemRows lists every item of every non-empty bucket in slot order.
func ItemRows(m *crush.Map) []ItemRow {
	var rows []ItemRow
	for _, b := range m.Buckets {
		if b == nil {
			continue
		}
		h := b.Head()
		if h == nil {
			continue
		}
		// The record tag picks the payload layout; the header byte may disagree.
		alg := crush.Algorithm(b.RecordTag()).String()
		if _, ok := b.(*crush.UnrecognizedBucket); ok {
			alg = "unrecognized"
		}
		typeName, _ := m.TypeName(h.Type)
		for i, it := range h.Items {
			rows = append(rows, ItemRow{
				BucketID:   h.ID,
				BucketType: typeName,
				BucketAlg:  alg,
				Position:   int32(i),
				ItemID:     it.ID,
				ItemName:   it.Name,
				Weight:     itemWeight(b, i),
			})
		}
	}
	return rows
}

// itemWeight returns the stored weight of the i'th item, if the bucket
// stores one.
func itemWeight(b crush.Bucket, i int) *int64 {
	var w uint32
	switch b := b.(type) {
	case *crush.UniformBucket:
		w = b.ItemWeight
	case *crush.ListBucket:
		if i >= len(b.Weights) {
			return nil
		}
		w = b.Weights[i].Item
	case *crush.TreeBucket:
		// Leaves sit at the odd node indexes.
		node := ((i + 1) << 1) - 1
		if node >= len(b.NodeWeights) {
			return nil
		}
		w = b.NodeWeights[node]
	case *crush.StrawBucket:
		if i >= len(b.Weights) {
			return nil
		}
		w = b.Weights[i].Item
	case *crush.Straw2Bucket:
		if i >= len(b.Weights) {
			return nil
		}
		w = b.Weights[i]
	default:
		return nil
	}
	v := int64(w)
	return &v
}

// StepRows lists every step of every present rule in slot order.
func StepRows(m *crush.Map) []StepRow {
	var rows []StepRow
	for i, r := range m.Rules {
		if r == nil {
			continue
		}
		var name *string
		if n, ok := m.RuleName(i); ok {
			name = &n
		}
		for j, s := range r.Steps {
			rows = append(rows, StepRow{
				RuleIndex: int32(i),
				RuleName:  name,
				RuleType:  r.Mask.Type.String(),
				Step:      int32(j),
				Op:        s.Op.String(),
				Arg1:      s.Arg1.Value,
				Arg1Name:  s.Arg1.Name,
				Arg2:      s.Arg2.Value,
				Arg2Name:  s.Arg2.Name,
			})
		}
	}
	return rows
}
