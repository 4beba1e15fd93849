package crush

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
)

func TestProfileTunables(t *testing.T) {
	tests := []struct {
		profile string
		want    preset
	}{
		{"legacy", preset{2, 5, 19, 0, 0, 0, 22, 0}},
		{"argonaut", preset{2, 5, 19, 0, 0, 0, 22, 0}},
		{"bobtail", preset{0, 0, 50, 1, 0, 0, 22, 0}},
		{"firefly", preset{0, 0, 50, 1, 1, 1, 22, 0}},
		{"hammer", preset{0, 0, 50, 1, 1, 1, 54, 0}},
		{"jewel", preset{0, 0, 50, 1, 1, 1, 54, 1}},
		{"optimal", preset{0, 0, 50, 1, 1, 1, 54, 1}},
		{"default", preset{0, 0, 50, 1, 1, 1, 54, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.profile, func(t *testing.T) {
			got, err := ProfileTunables(tt.profile)
			if err != nil {
				t.Fatalf("ProfileTunables error: %v", err)
			}
			if !got.Complete() {
				t.Fatal("profile tunables are incomplete")
			}
			want := Tunables{
				ChooseLocalTries:         u32p(tt.want.localTries),
				ChooseLocalFallbackTries: u32p(tt.want.localFallbackTries),
				ChooseTotalTries:         u32p(tt.want.totalTries),
				ChooseleafDescendOnce:    u32p(tt.want.descendOnce),
				ChooseleafVaryR:          u8p(tt.want.varyR),
				StrawCalcVersion:         u8p(tt.want.strawCalc),
				AllowedBucketAlgs:        u32p(tt.want.allowed),
				ChooseleafStable:         u8p(tt.want.stable),
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("tunables = %s, want %s", dumpTunables(got), dumpTunables(want))
			}
		})
	}
}

func dumpTunables(t Tunables) string {
	return fmt.Sprintf("%d/%d/%d/%d/%d/%d/%d/%d",
		deref(t.ChooseLocalTries), deref(t.ChooseLocalFallbackTries),
		deref(t.ChooseTotalTries), deref(t.ChooseleafDescendOnce),
		deref(t.ChooseleafVaryR), deref(t.StrawCalcVersion),
		deref(t.AllowedBucketAlgs), deref(t.ChooseleafStable))
}

func TestProfileTunablesDoNotAlias(t *testing.T) {
	a, _ := ProfileTunables("jewel")
	*a.ChooseTotalTries = 99
	b, _ := ProfileTunables("jewel")
	if *b.ChooseTotalTries != 50 {
		t.Errorf("ChooseTotalTries = %d after mutating an earlier result", *b.ChooseTotalTries)
	}
}

func TestApplyProfile(t *testing.T) {
	m := NewMap(0, 0, 0)
	out, err := ApplyProfile(m, "hammer")
	if err != nil {
		t.Fatalf("ApplyProfile error: %v", err)
	}
	if m.Tunables.Present() != 0 {
		t.Error("ApplyProfile modified its input")
	}
	if !out.Tunables.Allows(AlgStraw2) || out.Tunables.Allows(AlgTree) {
		t.Error("hammer should allow straw2 and not tree")
	}

	legacy, _ := ApplyProfile(m, "legacy")
	if legacy.Tunables.Allows(AlgStraw2) {
		t.Error("legacy should not allow straw2")
	}

	if _, err := ApplyProfile(m, "reef"); !errors.Is(err, ErrUnknownProfile) {
		t.Errorf("ApplyProfile error = %v, want ErrUnknownProfile", err)
	}
}

func TestProfiles(t *testing.T) {
	names := Profiles()
	if len(names) != 8 {
		t.Errorf("len(Profiles()) = %d, want 8", len(names))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Errorf("Profiles() not sorted: %v", names)
		}
	}
}

func TestAllowsAbsentMask(t *testing.T) {
	if (Tunables{}).Allows(AlgUniform) {
		t.Error("absent mask should allow nothing")
	}
}

func TestMatchProfiles(t *testing.T) {
	jewel, _ := ProfileTunables("jewel")
	if got := MatchProfiles(jewel); !reflect.DeepEqual(got, []string{"default", "jewel", "optimal"}) {
		t.Errorf("MatchProfiles(jewel) = %v", got)
	}
	legacy, _ := ProfileTunables("argonaut")
	if got := MatchProfiles(legacy); !reflect.DeepEqual(got, []string{"argonaut", "legacy"}) {
		t.Errorf("MatchProfiles(argonaut) = %v", got)
	}

	custom, _ := ProfileTunables("firefly")
	tries := uint32(75)
	custom.ChooseTotalTries = &tries
	if got := MatchProfiles(custom); got != nil {
		t.Errorf("MatchProfiles(custom) = %v, want none", got)
	}

	partial := jewel
	partial.ChooseleafStable = nil
	if got := MatchProfiles(partial); got != nil {
		t.Errorf("MatchProfiles(partial) = %v, want none", got)
	}
	if partial.Equal(jewel) || !partial.Equal(partial) {
		t.Error("Equal must distinguish an absent field from a present zero")
	}
}
