// Package benchutil provides synthetic CRUSH maps for benchmarks and tests.
package benchutil

import (
	"fmt"
	"math/rand"

	"github.com/eunmann/crushtool/pkg/crush"
	"github.com/eunmann/crushtool/pkg/symtab"
)

// Hierarchy type ids used by generated maps.
const (
	TypeOSD  = 0
	TypeHost = 1
	TypeRack = 3
	TypeRoot = 10
)

// GeneratorConfig configures synthetic map generation.
type GeneratorConfig struct {
	// NumOSDs is the total number of devices.
	NumOSDs int
	// OSDsPerHost is the number of devices under each host bucket.
	OSDsPerHost int
	// HostsPerRack groups hosts under rack buckets. 0 puts hosts directly
	// under the root.
	HostsPerRack int
	// Alg is the algorithm of every bucket. 0 picks one per host at random.
	Alg crush.Algorithm
	// Profile names the tunables preset. Empty leaves tunables absent.
	Profile string
	// Seed for reproducible generation. 0 = use default seed.
	Seed int64
}

// DefaultConfig returns a straw2 cluster with racks and current tunables.
func DefaultConfig(numOSDs int) GeneratorConfig {
	return GeneratorConfig{
		NumOSDs:      numOSDs,
		OSDsPerHost:  12,
		HostsPerRack: 8,
		Alg:          crush.AlgStraw2,
		Profile:      "default",
		Seed:         BenchmarkSeed,
	}
}

// MixedConfig returns a rackless cluster whose hosts use every algorithm.
func MixedConfig(numOSDs int) GeneratorConfig {
	return GeneratorConfig{
		NumOSDs:     numOSDs,
		OSDsPerHost: 6,
		Profile:     "hammer",
		Seed:        BenchmarkSeed,
	}
}

// Generator generates synthetic CRUSH maps.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand

	buckets []crush.Bucket
	names   symtab.Table
}

// NewGenerator creates a new map generator.
func NewGenerator(cfg GeneratorConfig) *Generator {
	seed := cfg.Seed
	if seed == 0 {
		seed = BenchmarkSeed
	}
	if cfg.OSDsPerHost <= 0 {
		cfg.OSDsPerHost = 1
	}
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(seed)),
	}
}

type child struct {
	id     int32
	weight uint32
}

// Generate builds a map with a root bucket, optional racks, hosts, and
// devices, plus a replicated rule, an empty rule slot, and an erasure rule.
// Bucket id -n is stored in slot n-1.
func (g *Generator) Generate() (*crush.Map, error) {
	g.buckets = nil
	g.names = nil

	// Root takes id -1; its contents are filled in last.
	g.buckets = append(g.buckets, nil)
	g.names = append(g.names, symtab.Entry{ID: -1, Name: "default"})

	var hosts []child
	for osd := 0; osd < g.cfg.NumOSDs; {
		var devices []child
		for i := 0; i < g.cfg.OSDsPerHost && osd < g.cfg.NumOSDs; i++ {
			devices = append(devices, child{id: int32(osd), weight: g.deviceWeight()})
			g.names = append(g.names, symtab.Entry{ID: int32(osd), Name: fmt.Sprintf("osd.%d", osd)})
			osd++
		}
		alg := g.cfg.Alg
		if alg == 0 {
			alg = crush.Algorithm(1 + g.rng.Intn(5))
		}
		hosts = append(hosts, g.addBucket(fmt.Sprintf("host-%d", len(hosts)), TypeHost, alg, devices))
	}

	top := hosts
	if g.cfg.HostsPerRack > 0 {
		top = nil
		for start := 0; start < len(hosts); start += g.cfg.HostsPerRack {
			end := min(start+g.cfg.HostsPerRack, len(hosts))
			top = append(top, g.addBucket(fmt.Sprintf("rack-%d", len(top)), TypeRack, crush.AlgStraw2, hosts[start:end]))
		}
	}
	rootAlg := g.cfg.Alg
	if rootAlg == 0 || rootAlg == crush.AlgUniform || rootAlg == crush.AlgTree {
		rootAlg = crush.AlgStraw2
	}
	g.buckets[0] = buildBucket(-1, TypeRoot, rootAlg, top)

	m := crush.NewMap(int32(len(g.buckets)), 3, int32(g.cfg.NumOSDs))
	copy(m.Buckets, g.buckets)

	failureDomain := int32(TypeHost)
	if g.cfg.HostsPerRack > 0 {
		failureDomain = TypeRack
	}
	m.Rules[0] = &crush.Rule{
		Mask: crush.Mask{Ruleset: 0, Type: crush.RuleReplicated, MinSize: 1, MaxSize: 10},
		Steps: []crush.Step{
			{Op: crush.OpTake, Arg1: crush.Arg{Value: -1}},
			{Op: crush.OpChooseLeafFirstN, Arg2: crush.Arg{Value: failureDomain}},
			{Op: crush.OpEmit},
		},
	}
	m.Rules[2] = &crush.Rule{
		Mask: crush.Mask{Ruleset: 2, Type: crush.RuleErasure, MinSize: 3, MaxSize: 20},
		Steps: []crush.Step{
			{Op: crush.OpSetChooseLeafTries, Arg1: crush.Arg{Value: 5}},
			{Op: crush.OpSetChooseTries, Arg1: crush.Arg{Value: 100}},
			{Op: crush.OpTake, Arg1: crush.Arg{Value: -1}},
			{Op: crush.OpChooseLeafIndep, Arg2: crush.Arg{Value: int32(TypeHost)}},
			{Op: crush.OpEmit},
		},
	}

	m.Types = symtab.Table{
		{ID: TypeOSD, Name: "osd"},
		{ID: TypeHost, Name: "host"},
		{ID: TypeRack, Name: "rack"},
		{ID: TypeRoot, Name: "root"},
	}
	m.Names = g.names
	m.RuleNames = symtab.Table{{ID: 0, Name: "replicated_rule"}, {ID: 2, Name: "ec_rule"}}

	if g.cfg.Profile != "" {
		tun, err := crush.ProfileTunables(g.cfg.Profile)
		if err != nil {
			return nil, err
		}
		m.Tunables = tun
	}
	return m, nil
}

func (g *Generator) addBucket(name string, typ uint16, alg crush.Algorithm, items []child) child {
	id := -int32(len(g.buckets) + 1)
	b := buildBucket(id, typ, alg, items)
	g.buckets = append(g.buckets, b)
	g.names = append(g.names, symtab.Entry{ID: id, Name: name})
	return child{id: id, weight: b.Head().Weight}
}

// deviceWeight returns a 16.16 weight between 0.5 and 8.
func (g *Generator) deviceWeight() uint32 {
	return 0x8000 * uint32(1+g.rng.Intn(16))
}

func buildBucket(id int32, typ uint16, alg crush.Algorithm, items []child) crush.Bucket {
	h := crush.BucketHeader{
		ID:    id,
		Type:  typ,
		Alg:   alg,
		Hash:  crush.HashRjenkins1,
		Size:  uint32(len(items)),
		Items: make([]crush.Item, len(items)),
		Perm:  uint32(len(items)),
	}
	for i, c := range items {
		h.Items[i].ID = c.id
		h.Weight += c.weight
	}

	switch alg {
	case crush.AlgUniform:
		var w uint32
		if len(items) > 0 {
			w = items[0].weight
		}
		h.Weight = w * uint32(len(items))
		return &crush.UniformBucket{BucketHeader: h, ItemWeight: w}

	case crush.AlgList:
		weights := make([]crush.ListWeight, len(items))
		var sum uint32
		for i, c := range items {
			sum += c.weight
			weights[i] = crush.ListWeight{Item: c.weight, Sum: sum}
		}
		return &crush.ListBucket{BucketHeader: h, Weights: weights}

	case crush.AlgTree:
		// Leaves sit at odd node indices.
		n := min(2*len(items), 255)
		nodes := make([]uint32, n)
		for i, c := range items {
			if 2*i+1 < n {
				nodes[2*i+1] = c.weight
			}
		}
		return &crush.TreeBucket{BucketHeader: h, NumNodes: uint8(n), NodeWeights: nodes}

	case crush.AlgStraw:
		weights := make([]crush.StrawWeight, len(items))
		for i, c := range items {
			weights[i] = crush.StrawWeight{Item: c.weight, Straw: c.weight}
		}
		return &crush.StrawBucket{BucketHeader: h, Weights: weights}

	default:
		weights := make([]uint32, len(items))
		for i, c := range items {
			weights[i] = c.weight
		}
		h.Alg = crush.AlgStraw2
		return &crush.Straw2Bucket{BucketHeader: h, Weights: weights}
	}
}

// GenerateEncoded builds a map with DefaultConfig and returns its encoding.
func GenerateEncoded(numOSDs int) ([]byte, error) {
	m, err := NewGenerator(DefaultConfig(numOSDs)).Generate()
	if err != nil {
		return nil, err
	}
	return crush.Encode(m)
}
