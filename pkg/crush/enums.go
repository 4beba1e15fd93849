package crush

import "fmt"

// Algorithm selects a bucket's item-choice strategy. On the wire it is the
// u32 record tag before a bucket and the u8 alg byte inside its header.
type Algorithm uint8

// Bucket algorithms.
const (
	AlgUniform Algorithm = 1
	AlgList    Algorithm = 2
	AlgTree    Algorithm = 3
	AlgStraw   Algorithm = 4
	AlgStraw2  Algorithm = 5
)

var algNames = map[Algorithm]string{
	AlgUniform: "uniform",
	AlgList:    "list",
	AlgTree:    "tree",
	AlgStraw:   "straw",
	AlgStraw2:  "straw2",
}

// Known reports whether a is one of the defined algorithms.
func (a Algorithm) Known() bool {
	_, ok := algNames[a]
	return ok
}

func (a Algorithm) String() string {
	if s, ok := algNames[a]; ok {
		return s
	}
	return fmt.Sprintf("alg(%d)", uint8(a))
}

// ParseAlgorithm converts a name such as "straw2" to an Algorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	for a, name := range algNames {
		if name == s {
			return a, nil
		}
	}
	return 0, fmt.Errorf("%w: algorithm %q", ErrUnknownTag, s)
}

// Hash identifies the hash function a bucket uses.
type Hash uint8

// HashRjenkins1 is the only hash function defined by the format.
const HashRjenkins1 Hash = 0

// Known reports whether h is a defined hash.
func (h Hash) Known() bool {
	return h == HashRjenkins1
}

func (h Hash) String() string {
	if h == HashRjenkins1 {
		return "rjenkins1"
	}
	return fmt.Sprintf("hash(%d)", uint8(h))
}

// ParseHash converts a hash name to a Hash.
func ParseHash(s string) (Hash, error) {
	if s == "rjenkins1" {
		return HashRjenkins1, nil
	}
	return 0, fmt.Errorf("%w: hash %q", ErrUnknownTag, s)
}

// RuleType is the pool kind a rule serves.
type RuleType uint8

// Rule types.
const (
	RuleReplicated RuleType = 1
	RuleRaid4      RuleType = 2
	RuleErasure    RuleType = 3
)

var ruleTypeNames = map[RuleType]string{
	RuleReplicated: "replicated",
	RuleRaid4:      "raid4",
	RuleErasure:    "erasure",
}

// Known reports whether t is a defined rule type.
func (t RuleType) Known() bool {
	_, ok := ruleTypeNames[t]
	return ok
}

func (t RuleType) String() string {
	if s, ok := ruleTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("ruletype(%d)", uint8(t))
}

// ParseRuleType converts a name such as "erasure" to a RuleType.
func ParseRuleType(s string) (RuleType, error) {
	for t, name := range ruleTypeNames {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: rule type %q", ErrUnknownTag, s)
}

// Op is a rule step opcode. Opcode 5 is not assigned.
type Op uint32

// Rule step opcodes.
const (
	OpNoop                        Op = 0
	OpTake                        Op = 1
	OpChooseFirstN                Op = 2
	OpChooseIndep                 Op = 3
	OpEmit                        Op = 4
	OpChooseLeafFirstN            Op = 6
	OpChooseLeafIndep             Op = 7
	OpSetChooseTries              Op = 8
	OpSetChooseLeafTries          Op = 9
	OpSetChooseLocalTries         Op = 10
	OpSetChooseLocalFallbackTries Op = 11
	OpSetChooseLeafVaryR          Op = 12
	OpSetChooseLeafStable         Op = 13
)

var opNames = map[Op]string{
	OpNoop:                        "noop",
	OpTake:                        "take",
	OpChooseFirstN:                "choose_firstn",
	OpChooseIndep:                 "choose_indep",
	OpEmit:                        "emit",
	OpChooseLeafFirstN:            "chooseleaf_firstn",
	OpChooseLeafIndep:             "chooseleaf_indep",
	OpSetChooseTries:              "set_choose_tries",
	OpSetChooseLeafTries:          "set_chooseleaf_tries",
	OpSetChooseLocalTries:         "set_choose_local_tries",
	OpSetChooseLocalFallbackTries: "set_choose_local_fallback_tries",
	OpSetChooseLeafVaryR:          "set_chooseleaf_vary_r",
	OpSetChooseLeafStable:         "set_chooseleaf_stable",
}

// Known reports whether op is an assigned opcode.
func (op Op) Known() bool {
	_, ok := opNames[op]
	return ok
}

func (op Op) String() string {
	if s, ok := opNames[op]; ok {
		return s
	}
	return fmt.Sprintf("op(%d)", uint32(op))
}

// ParseOp converts a name such as "chooseleaf_firstn" to an Op.
func ParseOp(s string) (Op, error) {
	for op, name := range opNames {
		if name == s {
			return op, nil
		}
	}
	return 0, fmt.Errorf("%w: opcode %q", ErrUnknownTag, s)
}
