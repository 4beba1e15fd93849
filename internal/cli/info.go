package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/eunmann/crushtool/internal/logctx"
	"github.com/eunmann/crushtool/pkg/crush"
	"github.com/eunmann/crushtool/pkg/humanfmt"
)

type infoReport struct {
	Source       string         `json:"source"`
	SizeBytes    int            `json:"size_bytes"`
	Compression  string         `json:"compression"`
	Blake3       string         `json:"blake3"`
	MaxBuckets   int32          `json:"max_buckets"`
	Buckets      int            `json:"buckets"`
	Unrecognized int            `json:"unrecognized_buckets"`
	Items        int            `json:"items"`
	Algorithms   map[string]int `json:"algorithms"`
	MaxRules     uint32         `json:"max_rules"`
	Rules        int            `json:"rules"`
	Steps        int            `json:"steps"`
	MaxDevices   int32          `json:"max_devices"`
	TypeNames    int            `json:"type_names"`
	ItemNames    int            `json:"item_names"`
	RuleNames    int            `json:"rule_names"`
	Tunables     int            `json:"tunables_present"`
	Profiles     []string       `json:"matching_profiles"`
	Roots        []rootInfo     `json:"roots"`
}

// rootInfo is a bucket that no other bucket contains.
type rootInfo struct {
	ID     int32  `json:"id"`
	Name   string `json:"name,omitempty"`
	Weight string `json:"weight"`
}

func newInfoReport(src string, l *loadedMap) infoReport {
	m := l.Map
	r := infoReport{
		Source:      src,
		SizeBytes:   l.Size,
		Compression: l.Compression.String(),
		Blake3:      l.Digest,
		MaxBuckets:  m.MaxBuckets,
		Algorithms:  map[string]int{},
		MaxRules:    m.MaxRules,
		MaxDevices:  m.MaxDevices,
		TypeNames:   len(m.Types),
		ItemNames:   len(m.Names),
		RuleNames:   len(m.RuleNames),
		Tunables:    m.Tunables.Present(),
		Profiles:    crush.MatchProfiles(m.Tunables),
	}

	children := map[int32]bool{}
	for _, b := range m.Buckets {
		if h := b.Head(); h != nil {
			for _, it := range h.Items {
				children[it.ID] = true
			}
		}
	}

	for _, b := range m.Buckets {
		h := b.Head()
		if h == nil {
			continue
		}
		if !children[h.ID] {
			name, _ := m.Names.Lookup(h.ID)
			r.Roots = append(r.Roots, rootInfo{ID: h.ID, Name: name, Weight: humanfmt.Weight(h.Weight)})
		}
		r.Buckets++
		r.Items += len(h.Items)
		if _, ok := b.(*crush.UnrecognizedBucket); ok {
			r.Unrecognized++
			continue
		}
		r.Algorithms[h.Alg.String()]++
	}
	for _, rule := range m.Rules {
		if rule != nil {
			r.Rules++
			r.Steps += len(rule.Steps)
		}
	}
	return r
}

func (r infoReport) writeText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "source\t%s\n", r.Source)
	fmt.Fprintf(tw, "size\t%s (%d bytes, %s)\n", humanfmt.Bytes(int64(r.SizeBytes)), r.SizeBytes, r.Compression)
	fmt.Fprintf(tw, "blake3\t%s\n", r.Blake3)
	fmt.Fprintf(tw, "buckets\t%d of %d slots", r.Buckets, r.MaxBuckets)
	if r.Unrecognized > 0 {
		fmt.Fprintf(tw, ", %d unrecognized", r.Unrecognized)
	}
	fmt.Fprintln(tw)
	fmt.Fprintf(tw, "items\t%s\n", humanfmt.Count(int64(r.Items)))

	algs := make([]string, 0, len(r.Algorithms))
	for name := range r.Algorithms {
		algs = append(algs, name)
	}
	sort.Strings(algs)
	for _, name := range algs {
		fmt.Fprintf(tw, "  %s\t%d\n", name, r.Algorithms[name])
	}

	for _, root := range r.Roots {
		fmt.Fprintf(tw, "root\t%d %s weight %s\n", root.ID, root.Name, root.Weight)
	}
	fmt.Fprintf(tw, "rules\t%d of %d slots, %d steps\n", r.Rules, r.MaxRules, r.Steps)
	fmt.Fprintf(tw, "max_devices\t%d\n", r.MaxDevices)
	fmt.Fprintf(tw, "names\t%d types, %d items, %d rules\n", r.TypeNames, r.ItemNames, r.RuleNames)

	profiles := "none"
	if len(r.Profiles) > 0 {
		profiles = strings.Join(r.Profiles, ", ")
	}
	fmt.Fprintf(tw, "tunables\t%d of 8 present, matches %s\n", r.Tunables, profiles)
	return tw.Flush()
}

func (a *app) runInfo(ctx context.Context, args []string) error {
	fs, g := a.newFlagSet("info")
	asJSON := fs.Bool("json", false, "print the report as JSON")

	ctx, _, err := a.parse(ctx, fs, g, args)
	if err != nil {
		return helpOK(err)
	}
	in, err := singleInput(fs, "info")
	if err != nil {
		return err
	}

	ctx = logctx.WithStr(ctx, "input", in)
	loaded, err := a.loadMap(ctx, in)
	if err != nil {
		return err
	}

	report := newInfoReport(in, loaded)
	if *asJSON {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	return report.writeText(a.stdout)
}

func (a *app) listProfiles() error {
	tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PROFILE\tLOCAL\tFALLBACK\tTOTAL\tDESCEND_ONCE\tVARY_R\tSTRAW_CALC\tALLOWED_ALGS\tSTABLE")
	for _, name := range crush.Profiles() {
		t, _ := crush.ProfileTunables(name)
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%#x\t%d\n",
			name, *t.ChooseLocalTries, *t.ChooseLocalFallbackTries, *t.ChooseTotalTries,
			*t.ChooseleafDescendOnce, *t.ChooseleafVaryR, *t.StrawCalcVersion,
			*t.AllowedBucketAlgs, *t.ChooseleafStable)
	}
	return tw.Flush()
}
