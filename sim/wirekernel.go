package sim

// This file implements the wire-update kernel as a plain
// Go function over one wire's slot. gpu.SoftDevice calls it once per wire
// per inner pass; gpu/shaders.go's wire compute shader is a GLSL
// transliteration of the same merge rule so the two backends can never
// silently disagree on documented behavior.

// mergeBit implements the driver-merge rule:
//   - if one side is High-Z, the result is the other side;
//   - if both are High-Z, the result is High-Z;
//   - if both are non-Z and equal (both 0 or both 1), the result is that
//     value;
//   - otherwise (X on either side, or two disagreeing non-Z drivers) the
//     result is Undefined.
//
// conflict is true only for the last case when neither side was X: a
// genuine bus conflict between two driven, disagreeing values.
func mergeBit(a, b bitState) (result bitState, conflict bool) {
	if a == bitZ {
		return b, false
	}
	if b == bitZ {
		return a, false
	}
	if a == bitX || b == bitX {
		return bitX, false
	}
	if a == b {
		return a, false
	}
	return bitX, true
}

// mergeAtoms merges driver atom d into accumulator acc across atomCount
// atoms representing width meaningful bits, bit by bit. It returns the
// merged atoms and whether any bit position saw a genuine conflict.
func mergeAtoms(acc []LogicStateAtom, d []LogicStateAtom, width int) (result []LogicStateAtom, conflict bool) {
	out := make([]LogicStateAtom, len(acc))
	copy(out, acc)
	for i := 0; i < width; i++ {
		accState := stateAtBit(out, i)
		drvState := stateAtBit(d, i)
		merged, c := mergeBit(accState, drvState)
		setStateAtBit(out, i, merged)
		if c {
			conflict = true
		}
	}
	return out, conflict
}

func stateAtBit(atoms []LogicStateAtom, i int) bitState {
	a := atoms[i/AtomBits]
	shift := uint(i % AtomBits)
	st := (a.State >> shift) & 1
	va := (a.Valid >> shift) & 1
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

func setStateAtBit(atoms []LogicStateAtom, i int, b bitState) {
	idx := i / AtomBits
	shift := uint(i % AtomBits)
	mask := uint32(1) << shift
	switch b {
	case bitOne:
		atoms[idx].State |= mask
		atoms[idx].Valid |= mask
	case bitZero:
		atoms[idx].State &^= mask
		atoms[idx].Valid |= mask
	case bitX:
		atoms[idx].State |= mask
		atoms[idx].Valid &^= mask
	case bitZ:
		atoms[idx].State &^= mask
		atoms[idx].Valid &^= mask
	}
}

func atomsEqual(a, b []LogicStateAtom, n int) bool {
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// WireKernelStep evaluates wire wireIdx: it merges the base drive, the
// inline first driver (if any) and the additional drivers in the
// singly-linked list, writes the merged state back into layout.WireState,
// and reports whether the value changed and whether a genuine conflict
// was observed on this wire.
func WireKernelStep(layout *BufferLayout, wireIdx uint32) (changed bool, conflict bool) {
	wire, ok := layout.Wires.Get(wireIdx)
	if !ok {
		return false, false
	}
	n := wire.AtomCount()

	acc := make([]LogicStateAtom, n)
	copy(acc, layout.WireDrive.Get(wire.DriveOffset, n))

	if wire.FirstDriverOffset != Invalid {
		driver := layout.OutputState.Get(wire.FirstDriverOffset, n)
		var c bool
		acc, c = mergeAtoms(acc, driver, wire.Width)
		conflict = conflict || c
	}

	nodeIdx := wire.DriverList
	for nodeIdx != Invalid {
		node, ok := layout.WireDrivers.Get(nodeIdx)
		if !ok {
			break
		}
		driver := layout.OutputState.Get(node.OutputStateOffset, n)
		var c bool
		acc, c = mergeAtoms(acc, driver, wire.Width)
		conflict = conflict || c
		nodeIdx = node.NextDriverIndex
	}

	old := layout.WireState.Get(wire.StateOffset, n)
	changed = !atomsEqual(old, acc, n)
	dst := layout.WireState.GetMut(wire.StateOffset, n)
	copy(dst, acc)
	return changed, conflict
}
