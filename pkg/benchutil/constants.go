package benchutil

// Shared constants for benchmarks across packages.

// BenchmarkSeed is the default seed for reproducible benchmark data generation.
const BenchmarkSeed = 42

// ClusterSizes are device counts for quick benchmark runs.
var ClusterSizes = []int{100, 1000, 10000}

// ScalingSizes are larger device counts for scaling tests.
// Used with CRUSHTOOL_LONG_BENCH=1 environment variable.
var ScalingSizes = []int{50000, 100000, 250000}
