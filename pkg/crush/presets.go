package crush

import (
	"fmt"
	"sort"
)

type preset struct {
	localTries         uint32
	localFallbackTries uint32
	totalTries         uint32
	descendOnce        uint32
	varyR              uint8
	strawCalc          uint8
	allowed            uint32
	stable             uint8
}

// Allowed-algorithm masks: bit n enables algorithm n.
const (
	allowedLegacy = 1<<AlgUniform | 1<<AlgList | 1<<AlgStraw
	allowedStraw2 = allowedLegacy | 1<<AlgStraw2
)

var presets = func() map[string]preset {
	legacy := preset{localTries: 2, localFallbackTries: 5, totalTries: 19, allowed: allowedLegacy}

	bobtail := legacy
	bobtail.localTries = 0
	bobtail.localFallbackTries = 0
	bobtail.totalTries = 50
	bobtail.descendOnce = 1

	firefly := bobtail
	firefly.varyR = 1
	firefly.strawCalc = 1

	hammer := firefly
	hammer.allowed = allowedStraw2

	jewel := hammer
	jewel.stable = 1

	return map[string]preset{
		"legacy":   legacy,
		"argonaut": legacy,
		"bobtail":  bobtail,
		"firefly":  firefly,
		"hammer":   hammer,
		"jewel":    jewel,
		"optimal":  jewel,
		"default":  jewel,
	}
}()

// Profiles returns the names accepted by ProfileTunables, sorted.
func Profiles() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ProfileTunables returns a complete tunables block for a named profile.
func ProfileTunables(name string) (Tunables, error) {
	p, ok := presets[name]
	if !ok {
		return Tunables{}, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	return Tunables{
		ChooseLocalTries:         &p.localTries,
		ChooseLocalFallbackTries: &p.localFallbackTries,
		ChooseTotalTries:         &p.totalTries,
		ChooseleafDescendOnce:    &p.descendOnce,
		ChooseleafVaryR:          &p.varyR,
		StrawCalcVersion:         &p.strawCalc,
		AllowedBucketAlgs:        &p.allowed,
		ChooseleafStable:         &p.stable,
	}, nil
}

// ApplyProfile returns a shallow copy of m whose tunables are replaced by
// the named profile. m itself is left unchanged.
func ApplyProfile(m *Map, name string) (*Map, error) {
	t, err := ProfileTunables(name)
	if err != nil {
		return nil, err
	}
	out := *m
	out.Tunables = t
	return &out, nil
}

// MatchProfiles returns the sorted names of every profile whose tunables
// equal t. Only complete tunables can match.
func MatchProfiles(t Tunables) []string {
	if !t.Complete() {
		return nil
	}
	var names []string
	for _, name := range Profiles() {
		p, _ := ProfileTunables(name)
		if t.Equal(p) {
			names = append(names, name)
		}
	}
	return names
}
