package crush

import "github.com/eunmann/crushtool/pkg/wire"

// tunablesSize is the encoded size of a complete tunables block.
const tunablesSize = 4*4 + 1 + 1 + 4 + 1

// Tunables are the optional trailing settings. Older maps end early, so each
// field is independently absent (nil).
type Tunables struct {
	ChooseLocalTries         *uint32
	ChooseLocalFallbackTries *uint32
	ChooseTotalTries         *uint32
	ChooseleafDescendOnce    *uint32
	ChooseleafVaryR          *uint8
	StrawCalcVersion         *uint8
	AllowedBucketAlgs        *uint32 // bit n set allows algorithm n
	ChooseleafStable         *uint8
}

// Complete reports whether every field is present. Only then does a map
// re-encode to the bytes it was decoded from.
func (t Tunables) Complete() bool {
	return t.ChooseLocalTries != nil &&
		t.ChooseLocalFallbackTries != nil &&
		t.ChooseTotalTries != nil &&
		t.ChooseleafDescendOnce != nil &&
		t.ChooseleafVaryR != nil &&
		t.StrawCalcVersion != nil &&
		t.AllowedBucketAlgs != nil &&
		t.ChooseleafStable != nil
}

// Present counts the fields that are set.
func (t Tunables) Present() int {
	n := 0
	for _, set := range []bool{
		t.ChooseLocalTries != nil,
		t.ChooseLocalFallbackTries != nil,
		t.ChooseTotalTries != nil,
		t.ChooseleafDescendOnce != nil,
		t.ChooseleafVaryR != nil,
		t.StrawCalcVersion != nil,
		t.AllowedBucketAlgs != nil,
		t.ChooseleafStable != nil,
	} {
		if set {
			n++
		}
	}
	return n
}

// Allows reports whether the allowed-algorithms mask permits a. An absent
// mask reports false.
func (t Tunables) Allows(a Algorithm) bool {
	if t.AllowedBucketAlgs == nil || a >= 32 {
		return false
	}
	return *t.AllowedBucketAlgs&(1<<a) != 0
}

// Equal reports whether t and o have the same fields present with the same
// values.
func (t Tunables) Equal(o Tunables) bool {
	return ptrEqual(t.ChooseLocalTries, o.ChooseLocalTries) &&
		ptrEqual(t.ChooseLocalFallbackTries, o.ChooseLocalFallbackTries) &&
		ptrEqual(t.ChooseTotalTries, o.ChooseTotalTries) &&
		ptrEqual(t.ChooseleafDescendOnce, o.ChooseleafDescendOnce) &&
		ptrEqual(t.ChooseleafVaryR, o.ChooseleafVaryR) &&
		ptrEqual(t.StrawCalcVersion, o.StrawCalcVersion) &&
		ptrEqual(t.AllowedBucketAlgs, o.AllowedBucketAlgs) &&
		ptrEqual(t.ChooseleafStable, o.ChooseleafStable)
}

func ptrEqual[T uint8 | uint32](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func decodeTunables(r *wire.Reader) Tunables {
	u32 := func() *uint32 {
		if r.Remaining() < 4 {
			return nil
		}
		v, _ := r.U32()
		return &v
	}
	u8 := func() *uint8 {
		if r.Remaining() < 1 {
			return nil
		}
		v, _ := r.U8()
		return &v
	}

	var t Tunables
	t.ChooseLocalTries = u32()
	t.ChooseLocalFallbackTries = u32()
	t.ChooseTotalTries = u32()
	t.ChooseleafDescendOnce = u32()
	t.ChooseleafVaryR = u8()
	t.StrawCalcVersion = u8()
	t.AllowedBucketAlgs = u32()
	t.ChooseleafStable = u8()
	return t
}

// encodeTunables writes all eight fields, with zero for any that are absent.
func encodeTunables(w *wire.Writer, t Tunables) {
	w.U32(deref(t.ChooseLocalTries))
	w.U32(deref(t.ChooseLocalFallbackTries))
	w.U32(deref(t.ChooseTotalTries))
	w.U32(deref(t.ChooseleafDescendOnce))
	w.U8(deref(t.ChooseleafVaryR))
	w.U8(deref(t.StrawCalcVersion))
	w.U32(deref(t.AllowedBucketAlgs))
	w.U8(deref(t.ChooseleafStable))
}

func deref[T uint8 | uint32](p *T) T {
	if p == nil {
		return 0
	}
	return *p
}
