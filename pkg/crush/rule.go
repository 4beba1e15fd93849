package crush

import (
	"fmt"

	"github.com/eunmann/crushtool/pkg/wire"
)

// stepSize is op, arg1, and arg2.
const stepSize = 12

// Mask limits which pools a rule applies to.
type Mask struct {
	Ruleset uint8
	Type    RuleType
	MinSize uint8
	MaxSize uint8
}

// Arg is a step argument. Name is filled by the resolution pass when the
// type table has the value.
type Arg struct {
	Value int32
	Name  *string
}

// Step is one instruction of a placement rule.
type Step struct {
	Op   Op
	Arg1 Arg
	Arg2 Arg
}

// Rule is a placement rule.
type Rule struct {
	Mask  Mask
	Steps []Step
}

// decodeRule reads one rule slot. A zero presence word is an absent rule
// and yields nil.
func decodeRule(r *wire.Reader) (*Rule, error) {
	present, err := r.U32()
	if err != nil {
		return nil, fmt.Errorf("read presence: %w", err)
	}
	if present == 0 {
		return nil, nil
	}

	n, err := r.U32()
	if err != nil {
		return nil, fmt.Errorf("read step count: %w", err)
	}
	if err := r.Need(1, 4); err != nil {
		return nil, fmt.Errorf("read mask: %w", err)
	}
	var rule Rule
	rule.Mask.Ruleset, _ = r.U8()
	typ, _ := r.U8()
	rule.Mask.MinSize, _ = r.U8()
	rule.Mask.MaxSize, _ = r.U8()
	rule.Mask.Type = RuleType(typ)
	if !rule.Mask.Type.Known() {
		return nil, fmt.Errorf("%w: rule type %d", ErrUnknownTag, typ)
	}

	if err := r.Need(uint64(n), stepSize); err != nil {
		return nil, fmt.Errorf("%d steps: %w", n, err)
	}
	rule.Steps = make([]Step, n)
	for i := range rule.Steps {
		op, _ := r.U32()
		a1, _ := r.I32()
		a2, _ := r.I32()
		if !Op(op).Known() {
			return nil, fmt.Errorf("%w: opcode %d in step %d", ErrUnknownTag, op, i)
		}
		rule.Steps[i] = Step{Op: Op(op), Arg1: Arg{Value: a1}, Arg2: Arg{Value: a2}}
	}
	return &rule, nil
}

// encodeRule writes one rule slot; nil writes an absent rule.
func encodeRule(w *wire.Writer, rule *Rule) error {
	if rule == nil {
		w.U32(0)
		return nil
	}
	if !rule.Mask.Type.Known() {
		return fmt.Errorf("%w: rule type %d", ErrInvalidValue, uint8(rule.Mask.Type))
	}
	for i, st := range rule.Steps {
		if !st.Op.Known() {
			return fmt.Errorf("%w: opcode %d in step %d", ErrInvalidValue, uint32(st.Op), i)
		}
	}

	w.U32(1)
	w.U32(uint32(len(rule.Steps)))
	w.U8(rule.Mask.Ruleset)
	w.U8(uint8(rule.Mask.Type))
	w.U8(rule.Mask.MinSize)
	w.U8(rule.Mask.MaxSize)
	for _, st := range rule.Steps {
		w.U32(uint32(st.Op))
		w.I32(st.Arg1.Value)
		w.I32(st.Arg2.Value)
	}
	return nil
}
