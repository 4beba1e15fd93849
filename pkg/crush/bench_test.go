package crush_test

import (
	"fmt"
	"testing"

	"github.com/eunmann/crushtool/pkg/benchutil"
	"github.com/eunmann/crushtool/pkg/crush"
)

/*
Benchmark Categories for the map codec:

1. BenchmarkDecode - decode plus name resolution
   - Sizes: benchutil.ClusterSizes devices
   - Large tables take the perfect-hash lookup path

2. BenchmarkEncode - serialization of a decoded map

3. BenchmarkDecode_Scaling - large clusters (gated)
   - Run separately with: CRUSHTOOL_LONG_BENCH=1 go test -bench=Scaling ./pkg/crush/...
*/

// BenchmarkDecode benchmarks decoding generated clusters.
func BenchmarkDecode(b *testing.B) {
	for _, size := range benchutil.ClusterSizes {
		buf := benchutil.EncodedInput(b, size)
		b.Run(fmt.Sprintf("osds=%d", size), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(buf)))
			for i := 0; i < b.N; i++ {
				if _, err := crush.Decode(buf); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkEncode benchmarks encoding generated clusters.
func BenchmarkEncode(b *testing.B) {
	for _, size := range benchutil.ClusterSizes {
		m, err := crush.Decode(benchutil.EncodedInput(b, size))
		if err != nil {
			b.Fatal(err)
		}
		b.Run(fmt.Sprintf("osds=%d", size), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := crush.Encode(m); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkDecode_Scaling runs decode at larger sizes (gated).
func BenchmarkDecode_Scaling(b *testing.B) {
	benchutil.SkipIfNoLongBench(b)

	for _, size := range benchutil.ScalingSizes {
		buf := benchutil.EncodedInput(b, size)
		b.Run(fmt.Sprintf("osds=%d", size), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(buf)))
			for i := 0; i < b.N; i++ {
				if _, err := crush.Decode(buf); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
