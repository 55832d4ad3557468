package sim

import (
	"fmt"
	"strings"
)

// LogicState is a fixed-capacity sequence of MaxAtomCount atoms (256 bits).
// Only the first ceil(width/32) atoms are meaningful for a given wire;
// callers always pass the width alongside a LogicState.
type LogicState struct {
	Atoms [MaxAtomCount]LogicStateAtom
}

// HighZ returns a LogicState with every bit High-Z.
func HighZ() LogicState {
	return LogicState{}
}

// Undefined returns a LogicState with every bit Undefined.
func Undefined() LogicState {
	var s LogicState
	for i := range s.Atoms {
		s.Atoms[i] = AtomUndef
	}
	return s
}

// bit extracts bit i (0 = least significant) as a bitState.
func (s LogicState) bit(i int) bitState {
	atom := s.Atoms[i/AtomBits]
	shift := uint(i % AtomBits)
	st := (atom.State >> shift) & 1
	va := (atom.Valid >> shift) & 1
	switch {
	case va == 1 && st == 1:
		return bitOne
	case va == 1 && st == 0:
		return bitZero
	case va == 0 && st == 1:
		return bitX
	default:
		return bitZ
	}
}

// setBit sets bit i to the given bitState.
func (s *LogicState) setBit(i int, b bitState) {
	atomIdx := i / AtomBits
	shift := uint(i % AtomBits)
	mask := uint32(1) << shift
	st, va := &s.Atoms[atomIdx].State, &s.Atoms[atomIdx].Valid
	switch b {
	case bitOne:
		*st |= mask
		*va |= mask
	case bitZero:
		*st &^= mask
		*va |= mask
	case bitX:
		*st |= mask
		*va &^= mask
	case bitZ:
		*st &^= mask
		*va &^= mask
	}
}

// maskToWidth clears bits beyond width across every atom; bits beyond
// width are don't-care but by convention 0.
func (s *LogicState) maskToWidth(width int) {
	for i := 0; i < MaxAtomCount; i++ {
		s.Atoms[i] = maskAtomForWidth(s.Atoms[i], i, width)
	}
}

// ParseLogicState parses a big-endian (MSB-first) bit string of 1..256
// characters drawn from {0,1,X,x,Z,z}. The resulting width is len(s).
func ParseLogicState(s string) (LogicState, int, error) {
	width := len(s)
	if width < MinWireWidth || width > MaxWireWidth {
		return LogicState{}, 0, fmt.Errorf("sim: parse logic state: %w", ErrInvalidWidth)
	}
	var out LogicState
	for pos, ch := range s {
		var b bitState
		switch ch {
		case '0':
			b = bitZero
		case '1':
			b = bitOne
		case 'X', 'x':
			b = bitX
		case 'Z', 'z':
			b = bitZ
		default:
			return LogicState{}, 0, fmt.Errorf("sim: parse logic state: %w", &IllegalCharacterError{Byte: byte(ch)})
		}
		// s is MSB-first; bit index 0 is the least significant bit, i.e.
		// the last character of s.
		bitIndex := width - 1 - pos
		out.setBit(bitIndex, b)
	}
	return out, width, nil
}

// String formats the first width bits MSB-first using the documented
// {0,1,X,Z} alphabet.
func (s LogicState) String(width int) string {
	var sb strings.Builder
	sb.Grow(width)
	for i := width - 1; i >= 0; i-- {
		switch s.bit(i) {
		case bitZero:
			sb.WriteByte('0')
		case bitOne:
			sb.WriteByte('1')
		case bitX:
			sb.WriteByte('X')
		case bitZ:
			sb.WriteByte('Z')
		}
	}
	return sb.String()
}

// FromInt builds a LogicState of the given width (1..32) from an unsigned
// integer value, truncated to width bits.
func FromInt(width int, value uint32) (LogicState, error) {
	if width < 1 || width > 32 {
		return LogicState{}, fmt.Errorf("sim: from_int: %w", ErrInvalidWidth)
	}
	var s LogicState
	s.Atoms[0] = atomFromUint(value & widthMask(width))
	return s, nil
}

// ToInt extracts an unsigned integer from the first width (1..32) bits.
// Returns ErrUnrepresentable if any of those bits is X or Z.
func (s LogicState) ToInt(width int) (uint32, error) {
	if width < 1 || width > 32 {
		return 0, fmt.Errorf("sim: to_int: %w", ErrInvalidWidth)
	}
	mask := widthMask(width)
	a := s.Atoms[0]
	if (a.Valid & mask) != mask {
		return 0, ErrUnrepresentable
	}
	return a.State & mask, nil
}

// FromBigInt builds a LogicState of the given width (1..256) from a little
// -endian sequence of 32-bit words (length 1..8).
func FromBigInt(width int, words []uint32) (LogicState, error) {
	if width < MinWireWidth || width > MaxWireWidth {
		return LogicState{}, fmt.Errorf("sim: from_big_int: %w", ErrInvalidWidth)
	}
	if len(words) < 1 || len(words) > MaxAtomCount {
		return LogicState{}, fmt.Errorf("sim: from_big_int: %w", ErrInvalidWidth)
	}
	var s LogicState
	for i, w := range words {
		s.Atoms[i] = atomFromUint(w)
	}
	s.maskToWidth(width)
	return s, nil
}

// ToBigInt extracts the first width (1..256) bits as little-endian 32-bit
// words. Returns ErrUnrepresentable if any bit in range is X or Z.
func (s LogicState) ToBigInt(width int) ([]uint32, error) {
	if width < MinWireWidth || width > MaxWireWidth {
		return nil, fmt.Errorf("sim: to_big_int: %w", ErrInvalidWidth)
	}
	n := atomCount(width)
	words := make([]uint32, n)
	for i := 0; i < n; i++ {
		a := maskAtomForWidth(s.Atoms[i], i, width)
		fullMask := widthMask(width - i*AtomBits)
		if (a.Valid & fullMask) != fullMask {
			return nil, ErrUnrepresentable
		}
		words[i] = a.State
	}
	return words, nil
}

// ToBool reports the single bit's boolean value; ok is false if the bit is
// X or Z.
func (s LogicState) ToBool() (value bool, ok bool) {
	switch s.bit(0) {
	case bitOne:
		return true, true
	case bitZero:
		return false, true
	default:
		return false, false
	}
}

// FromBool builds a 1-bit LogicState.
func FromBool(value bool) LogicState {
	if value {
		s, _ := FromInt(1, 1)
		return s
	}
	s, _ := FromInt(1, 0)
	return s
}
