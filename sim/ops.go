package sim

// This file implements the per-bit truth tables and wider arithmetic/shift/
// compare operators. Every operator is defined over the
// ceil(width/32) meaningful atoms of its operands; the result is always
// masked back down to width bits so callers never observe garbage beyond
// a wire's declared width.

// binaryAtomOp combines a and b atom-wise across the meaningful atoms of
// width using atomFn, then masks the result to width.
func binaryAtomOp(width int, a, b LogicState, atomFn func(LogicStateAtom, LogicStateAtom) LogicStateAtom) LogicState {
	var out LogicState
	n := atomCount(width)
	for i := 0; i < n; i++ {
		out.Atoms[i] = atomFn(a.Atoms[i], b.Atoms[i])
	}
	out.maskToWidth(width)
	return out
}

// And, Or, Xor, Nand, Nor, Xnor implement the binary logic operators.
func And(width int, a, b LogicState) LogicState  { return binaryAtomOp(width, a, b, andAtom) }
func Or(width int, a, b LogicState) LogicState   { return binaryAtomOp(width, a, b, orAtom) }
func Xor(width int, a, b LogicState) LogicState  { return binaryAtomOp(width, a, b, xorAtom) }
func Nand(width int, a, b LogicState) LogicState { return binaryAtomOp(width, a, b, nandAtom) }
func Nor(width int, a, b LogicState) LogicState  { return binaryAtomOp(width, a, b, norAtom) }
func Xnor(width int, a, b LogicState) LogicState { return binaryAtomOp(width, a, b, xnorAtom) }

// Not flips every meaningful bit's state; non-valid bits remain non-valid.
func Not(width int, a LogicState) LogicState {
	var out LogicState
	n := atomCount(width)
	for i := 0; i < n; i++ {
		out.Atoms[i] = notAtom(a.Atoms[i])
	}
	out.maskToWidth(width)
	return out
}

// BufferGate implements the tri-state buffer operator: enable's bit 0
// gates the whole input width identically (one enable line per buffer
// component).
func BufferGate(width int, input LogicState, enable LogicState) LogicState {
	en := enable.bit(0)
	var out LogicState
	n := atomCount(width)
	for i := 0; i < n; i++ {
		out.Atoms[i] = bufferAtom(input.Atoms[i], en)
	}
	out.maskToWidth(width)
	return out
}

// horizontalReduce folds every bit of a (within width) through atomFn,
// returning a single-bit LogicState.
func horizontalReduce(width int, a LogicState, identity LogicStateAtom, atomFn func(LogicStateAtom, LogicStateAtom) LogicStateAtom, invert bool) LogicState {
	// Fold bit-by-bit through the scalar operator so width need not be a
	// multiple of 32; each bit is promoted to a 1-bit atom pair.
	accBit := bitFromAtom(identity)
	for i := 0; i < width; i++ {
		b := a.bit(i)
		accBit = reduceScalar(accBit, b, atomFn)
	}
	if invert {
		accBit = invertBit(accBit)
	}
	var out LogicState
	out.setBit(0, accBit)
	return out
}

func bitFromAtom(a LogicStateAtom) bitState {
	switch {
	case a.Valid&1 == 1 && a.State&1 == 1:
		return bitOne
	case a.Valid&1 == 1 && a.State&1 == 0:
		return bitZero
	case a.Valid&1 == 0 && a.State&1 == 1:
		return bitX
	default:
		return bitZ
	}
}

func atomFromBit(b bitState) LogicStateAtom {
	switch b {
	case bitOne:
		return LogicStateAtom{State: 1, Valid: 1}
	case bitZero:
		return LogicStateAtom{State: 0, Valid: 1}
	case bitX:
		return LogicStateAtom{State: 1, Valid: 0}
	default:
		return LogicStateAtom{State: 0, Valid: 0}
	}
}

func reduceScalar(acc, next bitState, atomFn func(LogicStateAtom, LogicStateAtom) LogicStateAtom) bitState {
	r := atomFn(atomFromBit(acc), atomFromBit(next))
	return bitFromAtom(r)
}

func invertBit(b bitState) bitState {
	switch b {
	case bitOne:
		return bitZero
	case bitZero:
		return bitOne
	default:
		return b // X/Z has no valid state lane to flip
	}
}

// HAnd, HOr, HXor, HNand, HNor, HXnor are the horizontal reductions.
func HAnd(width int, a LogicState) LogicState  { return horizontalReduce(width, a, AtomLogic1, andAtom, false) }
func HOr(width int, a LogicState) LogicState   { return horizontalReduce(width, a, AtomLogic0, orAtom, false) }
func HXor(width int, a LogicState) LogicState  { return horizontalReduce(width, a, AtomLogic0, xorAtom, false) }
func HNand(width int, a LogicState) LogicState { return horizontalReduce(width, a, AtomLogic1, andAtom, true) }
func HNor(width int, a LogicState) LogicState  { return horizontalReduce(width, a, AtomLogic0, orAtom, true) }
func HXnor(width int, a LogicState) LogicState { return horizontalReduce(width, a, AtomLogic0, xorAtom, true) }

// --- Arithmetic ---

// toWords extracts width's meaningful bits as little-endian 32-bit words,
// reporting ok=false if any bit in range is non-valid.
func toWords(width int, s LogicState) (words []uint32, ok bool) {
	n := atomCount(width)
	words = make([]uint32, n)
	for i := 0; i < n; i++ {
		a := maskAtomForWidth(s.Atoms[i], i, width)
		m := widthMask(width - i*AtomBits)
		if (a.Valid & m) != m {
			return nil, false
		}
		words[i] = a.State
	}
	return words, true
}

func fromWords(width int, words []uint32) LogicState {
	var s LogicState
	for i, w := range words {
		s.Atoms[i] = atomFromUint(w)
	}
	s.maskToWidth(width)
	return s
}

func allXState(width int) LogicState {
	var s LogicState
	n := atomCount(width)
	for i := 0; i < n; i++ {
		s.Atoms[i] = AtomUndef
	}
	s.maskToWidth(width)
	return s
}

func addWords(a, b []uint32, width int) []uint32 {
	n := len(a)
	out := make([]uint32, n)
	var carry uint64
	for i := 0; i < n; i++ {
		sum := uint64(a[i]) + uint64(b[i]) + carry
		out[i] = uint32(sum)
		carry = sum >> 32
	}
	maskLastWord(out, width)
	return out
}

func notWords(a []uint32) []uint32 {
	out := make([]uint32, len(a))
	for i, w := range a {
		out[i] = ^w
	}
	return out
}

func negWords(a []uint32, width int) []uint32 {
	inv := notWords(a)
	one := make([]uint32, len(a))
	one[0] = 1
	return addWords(inv, one, width)
}

func subWords(a, b []uint32, width int) []uint32 {
	return addWords(a, negWords(b, width), width)
}

func maskLastWord(words []uint32, width int) {
	n := len(words)
	for i := 0; i < n; i++ {
		bitsInWord := width - i*AtomBits
		if bitsInWord < AtomBits {
			words[i] &= widthMask(bitsInWord)
		}
	}
}

// Add, Sub, Neg implement the arithmetic operators mod 2^width.
func Add(width int, a, b LogicState) LogicState {
	aw, ok1 := toWords(width, a)
	bw, ok2 := toWords(width, b)
	if !ok1 || !ok2 {
		return allXState(width)
	}
	return fromWords(width, addWords(aw, bw, width))
}

func Sub(width int, a, b LogicState) LogicState {
	aw, ok1 := toWords(width, a)
	bw, ok2 := toWords(width, b)
	if !ok1 || !ok2 {
		return allXState(width)
	}
	return fromWords(width, subWords(aw, bw, width))
}

func Neg(width int, a LogicState) LogicState {
	aw, ok := toWords(width, a)
	if !ok {
		return allXState(width)
	}
	return fromWords(width, negWords(aw, width))
}

// --- Shifts ---

// shiftAmount interprets b as an unsigned shift amount; it is
// representable only up to 32 bits of range before the result is
// guaranteed to shift everything out, so anything beyond width bits is
// simply "shift by a lot".
func shiftAmount(width int, b LogicState) (amount int, ok bool) {
	bw, ok := toWords(width, b)
	if !ok {
		return 0, false
	}
	// Saturate to width (or more) so a too-large valid shift amount still
	// behaves like "shift everything out" instead of overflowing int.
	amt := uint64(0)
	for i := len(bw) - 1; i >= 0; i-- {
		amt = amt<<32 | uint64(bw[i])
		if amt > uint64(width) {
			return width, true
		}
	}
	if amt > uint64(width) {
		amt = uint64(width)
	}
	return int(amt), true
}

// Lsh shifts left, filling with 0.
func Lsh(width int, a, b LogicState) LogicState {
	amt, ok := shiftAmount(width, b)
	if !ok {
		return allXState(width)
	}
	aw, ok := toWords(width, a)
	if !ok {
		return allXState(width)
	}
	return fromWords(width, shiftWordsLeft(aw, width, amt))
}

// Lrsh shifts right logically, filling with 0.
func Lrsh(width int, a, b LogicState) LogicState {
	amt, ok := shiftAmount(width, b)
	if !ok {
		return allXState(width)
	}
	aw, ok := toWords(width, a)
	if !ok {
		return allXState(width)
	}
	return fromWords(width, shiftWordsRight(aw, width, amt, false))
}

// Arsh shifts right arithmetically, filling with the dividend's sign bit.
func Arsh(width int, a, b LogicState) LogicState {
	amt, ok := shiftAmount(width, b)
	if !ok {
		return allXState(width)
	}
	aw, ok := toWords(width, a)
	if !ok {
		return allXState(width)
	}
	sign := bitOfWords(aw, width-1)
	return fromWords(width, shiftWordsRight(aw, width, amt, sign))
}

func bitOfWords(words []uint32, i int) bool {
	return (words[i/AtomBits]>>(uint(i)%AtomBits))&1 == 1
}

func shiftWordsLeft(a []uint32, width, amt int) []uint32 {
	n := len(a)
	out := make([]uint32, n)
	for i := 0; i < width; i++ {
		src := i - amt
		if src < 0 {
			continue
		}
		if bitOfWords(a, src) {
			out[i/AtomBits] |= 1 << uint(i%AtomBits)
		}
	}
	maskLastWord(out, width)
	return out
}

func shiftWordsRight(a []uint32, width, amt int, signFill bool) []uint32 {
	n := len(a)
	out := make([]uint32, n)
	for i := 0; i < width; i++ {
		src := i + amt
		var bit bool
		if src < width {
			bit = bitOfWords(a, src)
		} else {
			bit = signFill
		}
		if bit {
			out[i/AtomBits] |= 1 << uint(i%AtomBits)
		}
	}
	maskLastWord(out, width)
	return out
}

// --- Comparisons ---

func cmpUnsigned(a, b []uint32) int {
	for i := len(a) - 1; i >= 0; i-- {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

func cmpSigned(a, b []uint32, width int) int {
	signA := bitOfWords(a, width-1)
	signB := bitOfWords(b, width-1)
	if signA != signB {
		if signA {
			return -1 // a is negative, b is not
		}
		return 1
	}
	return cmpUnsigned(a, b)
}

// cmpOp evaluates a binary comparator, returning X if either operand has a
// non-valid bit.
func cmpOp(width int, a, b LogicState, signed bool, pred func(int) bool) LogicState {
	aw, ok1 := toWords(width, a)
	bw, ok2 := toWords(width, b)
	if !ok1 || !ok2 {
		return allXState(1)
	}
	var c int
	if signed {
		c = cmpSigned(aw, bw, width)
	} else {
		c = cmpUnsigned(aw, bw)
	}
	out := FromBool(pred(c))
	out.maskToWidth(1)
	return out
}

func CmpEq(width int, a, b LogicState) LogicState {
	return cmpOp(width, a, b, false, func(c int) bool { return c == 0 })
}
func CmpNe(width int, a, b LogicState) LogicState {
	return cmpOp(width, a, b, false, func(c int) bool { return c != 0 })
}
func CmpUlt(width int, a, b LogicState) LogicState {
	return cmpOp(width, a, b, false, func(c int) bool { return c < 0 })
}
func CmpUgt(width int, a, b LogicState) LogicState {
	return cmpOp(width, a, b, false, func(c int) bool { return c > 0 })
}
func CmpUle(width int, a, b LogicState) LogicState {
	return cmpOp(width, a, b, false, func(c int) bool { return c <= 0 })
}
func CmpUge(width int, a, b LogicState) LogicState {
	return cmpOp(width, a, b, false, func(c int) bool { return c >= 0 })
}
func CmpSlt(width int, a, b LogicState) LogicState {
	return cmpOp(width, a, b, true, func(c int) bool { return c < 0 })
}
func CmpSgt(width int, a, b LogicState) LogicState {
	return cmpOp(width, a, b, true, func(c int) bool { return c > 0 })
}
func CmpSle(width int, a, b LogicState) LogicState {
	return cmpOp(width, a, b, true, func(c int) bool { return c <= 0 })
}
func CmpSge(width int, a, b LogicState) LogicState {
	return cmpOp(width, a, b, true, func(c int) bool { return c >= 0 })
}
