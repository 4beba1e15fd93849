package benchutil

import (
	"os"
	"testing"
)

// SkipIfNoLongBench skips the benchmark if CRUSHTOOL_LONG_BENCH is not set.
func SkipIfNoLongBench(b *testing.B) {
	if os.Getenv("CRUSHTOOL_LONG_BENCH") == "" {
		b.Skip("set CRUSHTOOL_LONG_BENCH=1 to run scaling benchmark")
	}
}

// EncodedInput returns an encoded default cluster with osds devices,
// failing tb if generation fails.
func EncodedInput(tb testing.TB, osds int) []byte {
	tb.Helper()
	buf, err := GenerateEncoded(osds)
	if err != nil {
		tb.Fatalf("generate %d-osd map: %v", osds, err)
	}
	return buf
}
