package sim

import "testing"

func mustParse(t *testing.T, s string) LogicState {
	t.Helper()
	state, _, err := ParseLogicState(s)
	if err != nil {
		t.Fatalf("ParseLogicState(%q): unexpected error: %v", s, err)
	}
	return state
}

func TestAndOrXorTruthTables(t *testing.T) {
	cases := []struct {
		op       func(int, LogicState, LogicState) LogicState
		a, b     string
		want     string
	}{
		{And, "1", "1", "1"},
		{And, "1", "0", "0"},
		{And, "0", "X", "0"}, // a false dominates regardless of b
		{And, "1", "X", "X"},
		{Or, "0", "0", "0"},
		{Or, "1", "0", "1"},
		{Or, "1", "X", "1"}, // a true dominates regardless of b
		{Or, "0", "X", "X"},
		{Xor, "1", "1", "0"},
		{Xor, "1", "0", "1"},
		{Xor, "0", "X", "X"}, // sr = 0^1 = 1, vr = 0: encodes X
	}
	for _, c := range cases {
		got := c.op(1, mustParse(t, c.a), mustParse(t, c.b)).String(1)
		if got != c.want {
			t.Fatalf("op(%s, %s): got=%s, want=%s", c.a, c.b, got, c.want)
		}
	}
}

// TestXorUndefinedPropagation: a 1-bit XOR of
// UNDEFINED against LOGIC-0 settles to UNDEFINED.
func TestXorUndefinedPropagation(t *testing.T) {
	undef := mustParse(t, "X")
	zero := mustParse(t, "0")
	got := Xor(1, undef, zero).String(1)
	if got != "X" {
		t.Fatalf("Xor(X, 0): got=%s, want=X", got)
	}
}

// TestXorRawBitFormula documents that XOR's formula (sr = sa^sb, vr =
// va&vb) operates on the raw state/valid lanes, not on a semantic "is
// this bit known" predicate: XORing a defined bit against an
// all-undefined operand of the same width does not uniformly produce
// undefined bits, since sa^sb depends on the defined bit's own state.
func TestXorRawBitFormula(t *testing.T) {
	a := mustParse(t, "1010")
	b := mustParse(t, "XXXX")
	got := Xor(4, a, b).String(4)
	if got != "ZXZX" {
		t.Fatalf("Xor(1010, XXXX): got=%s, want=ZXZX", got)
	}
}

func TestNot(t *testing.T) {
	got := Not(4, mustParse(t, "1010")).String(4)
	if got != "0101" {
		t.Fatalf("Not(1010): got=%s, want=0101", got)
	}
	// NOT flips the state lane unconditionally and carries valid through
	// unchanged, so an X input (state=1, valid=0) flips to state=0,
	// valid=0, i.e. Z, not X.
	got = Not(4, mustParse(t, "10X0")).String(4)
	if got != "01Z1" {
		t.Fatalf("Not(10X0): got=%s, want=01Z1", got)
	}
}

func TestBufferGate(t *testing.T) {
	input := mustParse(t, "1010")
	if got := BufferGate(4, input, FromBool(true)).String(4); got != "1010" {
		t.Fatalf("BufferGate enabled: got=%s, want=1010", got)
	}
	if got := BufferGate(4, input, FromBool(false)).String(4); got != "ZZZZ" {
		t.Fatalf("BufferGate disabled: got=%s, want=ZZZZ", got)
	}
	undef := mustParse(t, "X")
	if got := BufferGate(4, input, undef).String(4); got != "XXXX" {
		t.Fatalf("BufferGate undefined enable: got=%s, want=XXXX", got)
	}
}

func TestHorizontalReductions(t *testing.T) {
	allOnes := mustParse(t, "1111")
	mixed := mustParse(t, "1101")
	if got := HAnd(4, allOnes).String(1); got != "1" {
		t.Fatalf("HAnd(1111): got=%s, want=1", got)
	}
	if got := HAnd(4, mixed).String(1); got != "0" {
		t.Fatalf("HAnd(1101): got=%s, want=0", got)
	}
	if got := HOr(4, mustParse(t, "0000")).String(1); got != "0" {
		t.Fatalf("HOr(0000): got=%s, want=0", got)
	}
	if got := HXor(4, mixed).String(1); got != "1" {
		t.Fatalf("HXor(1101): got=%s, want=1", got)
	}
}

func TestAdd8Bit200Plus100(t *testing.T) {
	a, err := FromInt(8, 200)
	if err != nil {
		t.Fatalf("FromInt: unexpected error: %v", err)
	}
	b, err := FromInt(8, 100)
	if err != nil {
		t.Fatalf("FromInt: unexpected error: %v", err)
	}
	sum := Add(8, a, b)
	got, err := sum.ToInt(8)
	if err != nil {
		t.Fatalf("ToInt: unexpected error: %v", err)
	}
	if got != 44 {
		t.Fatalf("Add(200, 100) mod 256: got=%d, want=44", got)
	}
}

func TestSubNeg(t *testing.T) {
	a, _ := FromInt(8, 5)
	b, _ := FromInt(8, 3)
	got, err := Sub(8, a, b).ToInt(8)
	if err != nil {
		t.Fatalf("Sub: unexpected error: %v", err)
	}
	if got != 2 {
		t.Fatalf("Sub(5,3): got=%d, want=2", got)
	}
	negOne, _ := FromInt(8, 1)
	got, err = Neg(8, negOne).ToInt(8)
	if err != nil {
		t.Fatalf("Neg: unexpected error: %v", err)
	}
	if got != 255 {
		t.Fatalf("Neg(1) mod 256: got=%d, want=255", got)
	}
}

func TestShifts(t *testing.T) {
	a, _ := FromInt(8, 0x0F)
	amt, _ := FromInt(8, 2)
	if got, _ := Lsh(8, a, amt).ToInt(8); got != 0x3C {
		t.Fatalf("Lsh(0x0F, 2): got=%#x, want=%#x", got, 0x3C)
	}
	if got, _ := Lrsh(8, a, amt).ToInt(8); got != 0x03 {
		t.Fatalf("Lrsh(0x0F, 2): got=%#x, want=%#x", got, 0x03)
	}
	neg, _ := FromInt(8, 0x80)
	if got, _ := Arsh(8, neg, amt).ToInt(8); got != 0xE0 {
		t.Fatalf("Arsh(0x80, 2): got=%#x, want=%#x", got, 0xE0)
	}
}

func TestComparisons(t *testing.T) {
	five, _ := FromInt(8, 5)
	three, _ := FromInt(8, 3)
	if got := CmpUgt(8, five, three).String(1); got != "1" {
		t.Fatalf("CmpUgt(5,3): got=%s, want=1", got)
	}
	if got := CmpEq(8, five, five).String(1); got != "1" {
		t.Fatalf("CmpEq(5,5): got=%s, want=1", got)
	}
	negOne, _ := FromInt(8, 0xFF)
	one, _ := FromInt(8, 1)
	if got := CmpSlt(8, negOne, one).String(1); got != "1" {
		t.Fatalf("CmpSlt(-1,1): got=%s, want=1", got)
	}
	if got := CmpUlt(8, negOne, one).String(1); got != "0" {
		t.Fatalf("CmpUlt(0xFF,1): got=%s, want=0", got)
	}
}
