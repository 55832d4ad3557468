package sim

import (
	"errors"
	"testing"
)

func TestAddWireWidthOutOfRange(t *testing.T) {
	b := NewBuilder()
	for _, width := range []int{0, -1, 257, 1000} {
		if _, err := b.AddWire(width); !errors.Is(err, ErrWidthOutOfRange) {
			t.Errorf("AddWire(%d): got err=%v, want ErrWidthOutOfRange", width, err)
		}
	}
	for _, width := range []int{1, 32, 33, 256} {
		if _, err := b.AddWire(width); err != nil {
			t.Errorf("AddWire(%d): unexpected error: %v", width, err)
		}
	}
}

func TestSetWireDriveInvalidID(t *testing.T) {
	b := NewBuilder()
	if err := b.SetWireDrive(WireID(99), HighZ()); !errors.Is(err, ErrInvalidWireID) {
		t.Fatalf("SetWireDrive(99): got err=%v, want ErrInvalidWireID", err)
	}
	if _, err := b.GetWireDrive(WireID(99)); !errors.Is(err, ErrInvalidWireID) {
		t.Fatalf("GetWireDrive(99): got err=%v, want ErrInvalidWireID", err)
	}
}

func TestAddComponentInvalidWire(t *testing.T) {
	b := NewBuilder()
	a, _ := b.AddWire(1)
	if _, err := b.AddBinary(KindAnd, a, a, WireID(42)); !errors.Is(err, ErrInvalidWireID) {
		t.Fatalf("AddBinary with bogus output: got err=%v, want ErrInvalidWireID", err)
	}
	if _, err := b.AddBinary(KindAnd, WireID(42), a, a); !errors.Is(err, ErrInvalidWireID) {
		t.Fatalf("AddBinary with bogus input: got err=%v, want ErrInvalidWireID", err)
	}
	if _, err := b.AddUnary(KindNot, WireID(42), a); !errors.Is(err, ErrInvalidWireID) {
		t.Fatalf("AddUnary with bogus input: got err=%v, want ErrInvalidWireID", err)
	}
	if _, err := b.AddBuffer(a, WireID(42), a); !errors.Is(err, ErrInvalidWireID) {
		t.Fatalf("AddBuffer with bogus enable: got err=%v, want ErrInvalidWireID", err)
	}
}

// TestDriverRegistrationInvariant checks the inline-first-driver shape:
// zero drivers leave FirstDriverOffset at Invalid, one driver stays
// inline with an empty list, and only the second and later drivers
// allocate linked WireDriver nodes, appended in registration order.
func TestDriverRegistrationInvariant(t *testing.T) {
	b := NewBuilder()
	in, _ := b.AddWire(1)
	bus, _ := b.AddWire(1)

	w, _ := b.wires.Get(uint32(bus))
	if w.FirstDriverOffset != Invalid || w.DriverList != Invalid {
		t.Fatalf("fresh wire: first=%#x list=%#x, want both Invalid", w.FirstDriverOffset, w.DriverList)
	}

	if _, err := b.AddUnary(KindNot, in, bus); err != nil {
		t.Fatalf("AddUnary: unexpected error: %v", err)
	}
	w, _ = b.wires.Get(uint32(bus))
	if w.FirstDriverOffset == Invalid {
		t.Fatalf("one driver: FirstDriverOffset still Invalid")
	}
	if w.DriverList != Invalid {
		t.Fatalf("one driver: DriverList=%#x, want Invalid", w.DriverList)
	}

	if _, err := b.AddUnary(KindNot, in, bus); err != nil {
		t.Fatalf("AddUnary (second): unexpected error: %v", err)
	}
	if _, err := b.AddUnary(KindNot, in, bus); err != nil {
		t.Fatalf("AddUnary (third): unexpected error: %v", err)
	}
	w, _ = b.wires.Get(uint32(bus))
	if w.DriverList == Invalid {
		t.Fatalf("three drivers: DriverList still Invalid")
	}
	first, ok := b.wireDrivers.Get(w.DriverList)
	if !ok {
		t.Fatalf("three drivers: DriverList node %d missing", w.DriverList)
	}
	if first.NextDriverIndex == Invalid {
		t.Fatalf("three drivers: list has one node, want two")
	}
	second, ok := b.wireDrivers.Get(first.NextDriverIndex)
	if !ok {
		t.Fatalf("three drivers: second node %d missing", first.NextDriverIndex)
	}
	if second.NextDriverIndex != Invalid {
		t.Fatalf("three drivers: list longer than two nodes")
	}
	if first.OutputStateOffset >= second.OutputStateOffset {
		t.Fatalf("driver list out of registration order: %d then %d", first.OutputStateOffset, second.OutputStateOffset)
	}
}

// TestArenaIndicesStableAcrossFinalize checks that
// offsets and indices issued while Building still resolve to the same
// slot after Finalize.
func TestArenaIndicesStableAcrossFinalize(t *testing.T) {
	var buf Buffer[Wire]
	idx, err := buf.Push(Wire{Width: 7})
	if err != nil {
		t.Fatalf("Push: unexpected error: %v", err)
	}
	buf.Finalize()
	w, ok := buf.Get(idx)
	if !ok || w.Width != 7 {
		t.Fatalf("Get after Finalize: got=(%v,%v), want width 7", w, ok)
	}
	if !buf.Dirty() {
		t.Fatalf("Finalize: buffer not marked dirty for initial upload")
	}

	var states LogicStateBuffer
	off, err := states.Push(3)
	if err != nil {
		t.Fatalf("Push: unexpected error: %v", err)
	}
	for _, a := range states.Get(off, 3) {
		if a != AtomHighZ {
			t.Fatalf("fresh state atoms: got=%v, want High-Z", a)
		}
	}
	states.Finalize()
	states.ClearDirty()
	states.GetMut(off, 1)[0] = AtomLogic1
	if !states.Dirty() {
		t.Fatalf("GetMut after Finalize: buffer not marked dirty")
	}
	states.Reset()
	if states.Get(off, 1)[0] != AtomHighZ {
		t.Fatalf("Reset: atom not returned to High-Z")
	}
}

func TestMergeBitTable(t *testing.T) {
	cases := []struct {
		a, b     bitState
		want     bitState
		conflict bool
	}{
		{bitZ, bitZ, bitZ, false},
		{bitZ, bitOne, bitOne, false},
		{bitZero, bitZ, bitZero, false},
		{bitOne, bitOne, bitOne, false},
		{bitZero, bitZero, bitZero, false},
		{bitX, bitOne, bitX, false},
		{bitZero, bitX, bitX, false},
		{bitX, bitX, bitX, false},
		{bitZero, bitOne, bitX, true},
		{bitOne, bitZero, bitX, true},
	}
	for _, c := range cases {
		got, conflict := mergeBit(c.a, c.b)
		if got != c.want || conflict != c.conflict {
			t.Errorf("mergeBit(%v, %v): got=(%v,%v), want=(%v,%v)", c.a, c.b, got, conflict, c.want, c.conflict)
		}
	}
}
