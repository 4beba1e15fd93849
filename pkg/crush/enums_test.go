package crush

import (
	"errors"
	"testing"
)

func TestEnumNamesRoundTrip(t *testing.T) {
	for a := range algNames {
		got, err := ParseAlgorithm(a.String())
		if err != nil || got != a {
			t.Errorf("ParseAlgorithm(%q) = %v, %v", a.String(), got, err)
		}
	}
	for rt := range ruleTypeNames {
		got, err := ParseRuleType(rt.String())
		if err != nil || got != rt {
			t.Errorf("ParseRuleType(%q) = %v, %v", rt.String(), got, err)
		}
	}
	for op := range opNames {
		got, err := ParseOp(op.String())
		if err != nil || got != op {
			t.Errorf("ParseOp(%q) = %v, %v", op.String(), got, err)
		}
	}
	if h, err := ParseHash("rjenkins1"); err != nil || h != HashRjenkins1 {
		t.Errorf("ParseHash(rjenkins1) = %v, %v", h, err)
	}
}

func TestEnumUnknown(t *testing.T) {
	if Op(5).Known() {
		t.Error("opcode 5 should be unassigned")
	}
	if got := Op(5).String(); got != "op(5)" {
		t.Errorf("Op(5).String() = %q", got)
	}
	if Algorithm(0).Known() || Algorithm(6).Known() {
		t.Error("algorithms 0 and 6 should be unknown")
	}
	if RuleType(0).Known() {
		t.Error("rule type 0 should be unknown")
	}
	if Hash(1).Known() {
		t.Error("hash 1 should be unknown")
	}

	for _, parse := range []func() error{
		func() error { _, err := ParseAlgorithm("straw3"); return err },
		func() error { _, err := ParseRuleType("mirror"); return err },
		func() error { _, err := ParseOp("choose"); return err },
		func() error { _, err := ParseHash("crc32"); return err },
	} {
		if err := parse(); !errors.Is(err, ErrUnknownTag) {
			t.Errorf("parse error = %v, want ErrUnknownTag", err)
		}
	}
}
