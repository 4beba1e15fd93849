package export

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/parquet-go/parquet-go"

	"github.com/eunmann/crushtool/pkg/benchutil"
	"github.com/eunmann/crushtool/pkg/crush"
	"github.com/eunmann/crushtool/pkg/symtab"
)

func decodedMap(t *testing.T, numOSDs int) *crush.Map {
	t.Helper()
	gen, err := benchutil.NewGenerator(benchutil.MixedConfig(numOSDs)).Generate()
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	data, err := crush.Encode(gen)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	m, err := crush.Decode(data)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	return m
}

func strp(s string) *string { return &s }

func i64p(v int64) *int64 { return &v }

func TestItemRowsPerAlgorithm(t *testing.T) {
	hdr := func(id int32, alg crush.Algorithm, items ...int32) crush.BucketHeader {
		h := crush.BucketHeader{ID: id, Type: 1, Alg: alg, Size: uint32(len(items))}
		for _, it := range items {
			h.Items = append(h.Items, crush.Item{ID: it})
		}
		return h
	}
	m := crush.NewMap(7, 0, 2)
	m.Buckets[0] = &crush.UniformBucket{BucketHeader: hdr(-1, crush.AlgUniform, 0, 1), ItemWeight: 0x10000}
	m.Buckets[1] = &crush.ListBucket{BucketHeader: hdr(-2, crush.AlgList, 0), Weights: []crush.ListWeight{{Item: 0x20000, Sum: 0x20000}}}
	m.Buckets[2] = &crush.TreeBucket{BucketHeader: hdr(-3, crush.AlgTree, 0, 1), NumNodes: 4, NodeWeights: []uint32{0, 0x30000, 0, 0x40000}}
	m.Buckets[3] = &crush.StrawBucket{BucketHeader: hdr(-4, crush.AlgStraw, 1), Weights: []crush.StrawWeight{{Item: 0x50000, Straw: 7}}}
	m.Buckets[4] = &crush.Straw2Bucket{BucketHeader: hdr(-5, crush.AlgStraw2, 0), Weights: []uint32{0x60000}}
	unrec := hdr(-6, crush.Algorithm(9), 1)
	m.Buckets[5] = &crush.UnrecognizedBucket{Tag: 9, Header: &unrec}
	// Slot 6 stays empty.
	m.Types = symtab.Table{{ID: 1, Name: "host"}}

	got := ItemRows(m)
	want := []ItemRow{
		{BucketID: -1, BucketType: "host", BucketAlg: "uniform", Position: 0, ItemID: 0, Weight: i64p(0x10000)},
		{BucketID: -1, BucketType: "host", BucketAlg: "uniform", Position: 1, ItemID: 1, Weight: i64p(0x10000)},
		{BucketID: -2, BucketType: "host", BucketAlg: "list", Position: 0, ItemID: 0, Weight: i64p(0x20000)},
		{BucketID: -3, BucketType: "host", BucketAlg: "tree", Position: 0, ItemID: 0, Weight: i64p(0x30000)},
		{BucketID: -3, BucketType: "host", BucketAlg: "tree", Position: 1, ItemID: 1, Weight: i64p(0x40000)},
		{BucketID: -4, BucketType: "host", BucketAlg: "straw", Position: 0, ItemID: 1, Weight: i64p(0x50000)},
		{BucketID: -5, BucketType: "host", BucketAlg: "straw2", Position: 0, ItemID: 0, Weight: i64p(0x60000)},
		{BucketID: -6, BucketType: "host", BucketAlg: "unrecognized", Position: 0, ItemID: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ItemRows mismatch\n got: %+v\nwant: %+v", got, want)
	}
}

func TestItemRowsAlgFollowsRecordTag(t *testing.T) {
	m := crush.NewMap(1, 0, 1)
	m.Buckets[0] = &crush.Straw2Bucket{
		BucketHeader: crush.BucketHeader{ID: -1, Alg: crush.AlgStraw, Size: 1, Items: []crush.Item{{ID: 0}}},
		Weights:      []uint32{0x10000},
	}

	rows := ItemRows(m)
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if rows[0].BucketAlg != "straw2" {
		t.Errorf("BucketAlg = %q, want straw2 from the record tag", rows[0].BucketAlg)
	}
	if rows[0].Weight == nil || *rows[0].Weight != 0x10000 {
		t.Errorf("Weight = %v, want 0x10000", rows[0].Weight)
	}
}

func TestStepRows(t *testing.T) {
	m := decodedMap(t, 12)
	rows := StepRows(m)

	// Rule 0 has 3 steps, slot 1 is absent, rule 2 has 5 steps.
	if len(rows) != 8 {
		t.Fatalf("len(rows) = %d, want 8", len(rows))
	}
	first := rows[0]
	want := StepRow{
		RuleIndex: 0,
		RuleName:  strp("replicated_rule"),
		RuleType:  "replicated",
		Step:      0,
		Op:        "take",
		Arg1:      -1,
		Arg1Name:  nil,
		Arg2:      0,
		Arg2Name:  strp("osd"),
	}
	if !reflect.DeepEqual(first, want) {
		t.Errorf("rows[0] = %+v, want %+v", first, want)
	}
	for _, r := range rows[3:] {
		if r.RuleIndex != 2 || r.RuleType != "erasure" || r.RuleName == nil || *r.RuleName != "ec_rule" {
			t.Errorf("erasure row = %+v", r)
		}
	}
}

func TestWriteReadBack(t *testing.T) {
	m := decodedMap(t, 60)

	t.Run("items", func(t *testing.T) {
		var buf bytes.Buffer
		n, err := Write(&buf, m, TableItems)
		if err != nil {
			t.Fatalf("Write error: %v", err)
		}
		want := ItemRows(m)
		if n != len(want) {
			t.Errorf("wrote %d rows, want %d", n, len(want))
		}
		got, err := parquet.Read[ItemRow](bytes.NewReader(buf.Bytes()), int64(buf.Len()))
		if err != nil {
			t.Fatalf("Read error: %v", err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("read back %d rows that differ from the %d written", len(got), len(want))
		}
	})

	t.Run("steps", func(t *testing.T) {
		var buf bytes.Buffer
		n, err := Write(&buf, m, TableSteps)
		if err != nil {
			t.Fatalf("Write error: %v", err)
		}
		want := StepRows(m)
		if n != len(want) {
			t.Errorf("wrote %d rows, want %d", n, len(want))
		}
		got, err := parquet.Read[StepRow](bytes.NewReader(buf.Bytes()), int64(buf.Len()))
		if err != nil {
			t.Fatalf("Read error: %v", err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("read back rows differ:\n got: %+v\nwant: %+v", got, want)
		}
	})
}

func TestParseTable(t *testing.T) {
	for _, s := range []string{"items", "steps"} {
		if got, err := ParseTable(s); err != nil || string(got) != s {
			t.Errorf("ParseTable(%q) = %q, %v", s, got, err)
		}
	}
	if _, err := ParseTable("buckets"); !errors.Is(err, ErrUnknownTable) {
		t.Errorf("ParseTable(buckets) error = %v, want ErrUnknownTable", err)
	}
	if _, err := Write(&bytes.Buffer{}, crush.NewMap(0, 0, 0), Table("rules")); !errors.Is(err, ErrUnknownTable) {
		t.Errorf("Write(rules) error = %v, want ErrUnknownTable", err)
	}
}
