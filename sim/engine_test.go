package sim_test

import (
	"errors"
	"testing"

	"github.com/nandgate/gsim/gpu"
	"github.com/nandgate/gsim/sim"
)

func buildSim(t *testing.T, build func(b *sim.Builder)) *sim.Simulator {
	t.Helper()
	b := sim.NewBuilder()
	build(b)
	s, err := b.Build(gpu.NewSoftDevice())
	if err != nil {
		t.Fatalf("Build: unexpected error: %v", err)
	}
	return s
}

func setInt(t *testing.T, s *sim.Simulator, id sim.WireID, width int, value uint32) {
	t.Helper()
	state, err := sim.FromInt(width, value)
	if err != nil {
		t.Fatalf("FromInt: unexpected error: %v", err)
	}
	if err := s.SetWireDrive(id, state); err != nil {
		t.Fatalf("SetWireDrive: unexpected error: %v", err)
	}
}

// TestAndGateSettles: a 1-bit AND gate with a=LOGIC-0, b=LOGIC-1 settles
// with its output LOGIC-0 within 3 steps.
func TestAndGateSettles(t *testing.T) {
	var a, b, out sim.WireID
	s := buildSim(t, func(bld *sim.Builder) {
		a, _ = bld.AddWire(1)
		b, _ = bld.AddWire(1)
		out, _ = bld.AddWire(1)
		bld.AddBinary(sim.KindAnd, a, b, out)
	})
	defer s.Close()

	setInt(t, s, a, 1, 0)
	setInt(t, s, b, 1, 1)
	if err := s.Run(3); err != nil {
		t.Fatalf("Run: unexpected error: %v", err)
	}
	got, err := s.GetWireState(out)
	if err != nil {
		t.Fatalf("GetWireState: unexpected error: %v", err)
	}
	if v, err := got.ToInt(1); err != nil || v != 0 {
		t.Fatalf("AND(0,1): got=%v err=%v, want=0", v, err)
	}
}

// TestXorUndefinedPropagationEndToEnd: a 1-bit XOR of UNDEFINED against
// LOGIC-0 settles to UNDEFINED, driven end to end through a simulator
// rather than calling Xor directly (see ops_test.go for the formula-level
// check).
func TestXorUndefinedPropagationEndToEnd(t *testing.T) {
	var undef, zero, out sim.WireID
	s := buildSim(t, func(bld *sim.Builder) {
		undef, _ = bld.AddWire(1)
		zero, _ = bld.AddWire(1)
		out, _ = bld.AddWire(1)
		bld.AddBinary(sim.KindXor, undef, zero, out)
	})
	defer s.Close()

	undefState, _, err := sim.ParseLogicState("X")
	if err != nil {
		t.Fatalf("ParseLogicState: unexpected error: %v", err)
	}
	if err := s.SetWireDrive(undef, undefState); err != nil {
		t.Fatalf("SetWireDrive: unexpected error: %v", err)
	}
	setInt(t, s, zero, 1, 0)
	if err := s.Run(1000); err != nil {
		t.Fatalf("Run: unexpected error: %v", err)
	}
	got, err := s.GetWireState(out)
	if err != nil {
		t.Fatalf("GetWireState: unexpected error: %v", err)
	}
	if got.String(1) != "X" {
		t.Fatalf("Xor(X, 0): got=%s, want=X", got.String(1))
	}
}

// TestTriStateMergeNoConflict: two tri-state buffers drive the same bus
// with mutually exclusive enables; no conflict is reported and the bus
// settles to the active driver's value.
func TestTriStateMergeNoConflict(t *testing.T) {
	var inA, enA, inB, enB, bus sim.WireID
	s := buildSim(t, func(bld *sim.Builder) {
		inA, _ = bld.AddWire(1)
		enA, _ = bld.AddWire(1)
		inB, _ = bld.AddWire(1)
		enB, _ = bld.AddWire(1)
		bus, _ = bld.AddWire(1)
		bld.AddBuffer(inA, enA, bus)
		bld.AddBuffer(inB, enB, bus)
	})
	defer s.Close()

	setInt(t, s, inA, 1, 1)
	setInt(t, s, enA, 1, 1)
	setInt(t, s, inB, 1, 0)
	setInt(t, s, enB, 1, 0)

	if err := s.Run(1000); err != nil {
		t.Fatalf("Run: unexpected error: %v", err)
	}
	got, err := s.GetWireState(bus)
	if err != nil {
		t.Fatalf("GetWireState: unexpected error: %v", err)
	}
	if v, err := got.ToInt(1); err != nil || v != 1 {
		t.Fatalf("tri-state bus: got=%v err=%v, want=1", v, err)
	}
}

// TestConflictDetection: two always-enabled buffers drive the same bus
// with disagreeing values; Run reports a ConflictError naming the bus.
func TestConflictDetection(t *testing.T) {
	var inA, enA, inB, enB, bus sim.WireID
	s := buildSim(t, func(bld *sim.Builder) {
		inA, _ = bld.AddWire(1)
		enA, _ = bld.AddWire(1)
		inB, _ = bld.AddWire(1)
		enB, _ = bld.AddWire(1)
		bus, _ = bld.AddWire(1)
		bld.AddBuffer(inA, enA, bus)
		bld.AddBuffer(inB, enB, bus)
	})
	defer s.Close()

	setInt(t, s, inA, 1, 1)
	setInt(t, s, enA, 1, 1)
	setInt(t, s, inB, 1, 0)
	setInt(t, s, enB, 1, 1)

	err := s.Run(1000)
	var conflict *sim.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("Run: got err=%v, want a *sim.ConflictError", err)
	}
	found := false
	for _, id := range conflict.ConflictingWires {
		if id == bus {
			found = true
		}
	}
	if !found {
		t.Fatalf("ConflictError.ConflictingWires: got=%v, want to contain bus=%v", conflict.ConflictingWires, bus)
	}
}

// TestAdd8BitWraps: an 8-bit ADD of 200 and 100 settles to 44 (mod 256).
func TestAdd8BitWraps(t *testing.T) {
	var a, b, out sim.WireID
	s := buildSim(t, func(bld *sim.Builder) {
		a, _ = bld.AddWire(8)
		b, _ = bld.AddWire(8)
		out, _ = bld.AddWire(8)
		bld.AddBinary(sim.KindAdd, a, b, out)
	})
	defer s.Close()

	setInt(t, s, a, 8, 200)
	setInt(t, s, b, 8, 100)
	if err := s.Run(1000); err != nil {
		t.Fatalf("Run: unexpected error: %v", err)
	}
	got, err := s.GetWireState(out)
	if err != nil {
		t.Fatalf("GetWireState: unexpected error: %v", err)
	}
	if v, err := got.ToInt(8); err != nil || v != 44 {
		t.Fatalf("ADD(200,100) mod 256: got=%v err=%v, want=44", v, err)
	}
}

// TestNotOscillatorMaxSteps: a NOT gate feeding its own input never
// settles; Run reports ErrMaxStepsReached.
func TestNotOscillatorMaxSteps(t *testing.T) {
	var wire sim.WireID
	s := buildSim(t, func(bld *sim.Builder) {
		wire, _ = bld.AddWire(1)
		bld.AddUnary(sim.KindNot, wire, wire)
	})
	defer s.Close()

	err := s.Run(64)
	if !errors.Is(err, sim.ErrMaxStepsReached) {
		t.Fatalf("Run: got err=%v, want ErrMaxStepsReached", err)
	}
}

// TestResetIdempotence: resetting a settled simulator returns every wire
// to HIGH-Z, and resetting twice in a row is indistinguishable from once.
func TestResetIdempotence(t *testing.T) {
	var a, b, out sim.WireID
	s := buildSim(t, func(bld *sim.Builder) {
		a, _ = bld.AddWire(1)
		b, _ = bld.AddWire(1)
		out, _ = bld.AddWire(1)
		bld.AddBinary(sim.KindOr, a, b, out)
	})
	defer s.Close()

	setInt(t, s, a, 1, 1)
	if err := s.Run(1000); err != nil {
		t.Fatalf("Run: unexpected error: %v", err)
	}
	if err := s.Reset(); err != nil {
		t.Fatalf("Reset: unexpected error: %v", err)
	}
	if err := s.Reset(); err != nil {
		t.Fatalf("Reset (second): unexpected error: %v", err)
	}
	got, err := s.GetWireState(out)
	if err != nil {
		t.Fatalf("GetWireState: unexpected error: %v", err)
	}
	if got != sim.HighZ() {
		t.Fatalf("Reset: out=%v, want HIGH-Z", got.String(1))
	}
}

// TestFixedPointRerun: once Run returns Ok, re-running without changing
// any drive returns Ok again with identical wire states.
func TestFixedPointRerun(t *testing.T) {
	var a, b, out sim.WireID
	s := buildSim(t, func(bld *sim.Builder) {
		a, _ = bld.AddWire(4)
		b, _ = bld.AddWire(4)
		out, _ = bld.AddWire(4)
		bld.AddBinary(sim.KindXor, a, b, out)
	})
	defer s.Close()

	setInt(t, s, a, 4, 0b1100)
	setInt(t, s, b, 4, 0b1010)
	if err := s.Run(1000); err != nil {
		t.Fatalf("Run: unexpected error: %v", err)
	}
	first, err := s.GetWireState(out)
	if err != nil {
		t.Fatalf("GetWireState: unexpected error: %v", err)
	}
	if err := s.Run(1000); err != nil {
		t.Fatalf("Run (rerun): unexpected error: %v", err)
	}
	second, err := s.GetWireState(out)
	if err != nil {
		t.Fatalf("GetWireState (rerun): unexpected error: %v", err)
	}
	if first != second {
		t.Fatalf("fixed point: first=%s, second=%s", first.String(4), second.String(4))
	}
}

// TestWideAddAcrossAtoms: a 40-bit ADD whose carry crosses the 32-bit
// atom boundary, checked through the big-int accessors; bits beyond the
// declared width stay masked out (width monotonicity).
func TestWideAddAcrossAtoms(t *testing.T) {
	var a, b, out sim.WireID
	s := buildSim(t, func(bld *sim.Builder) {
		a, _ = bld.AddWire(40)
		b, _ = bld.AddWire(40)
		out, _ = bld.AddWire(40)
		bld.AddBinary(sim.KindAdd, a, b, out)
	})
	defer s.Close()

	aState, err := sim.FromBigInt(40, []uint32{0xFFFFFFFF, 0})
	if err != nil {
		t.Fatalf("FromBigInt: unexpected error: %v", err)
	}
	bState, err := sim.FromBigInt(40, []uint32{0x00000001, 0})
	if err != nil {
		t.Fatalf("FromBigInt: unexpected error: %v", err)
	}
	if err := s.SetWireDrive(a, aState); err != nil {
		t.Fatalf("SetWireDrive: unexpected error: %v", err)
	}
	if err := s.SetWireDrive(b, bState); err != nil {
		t.Fatalf("SetWireDrive: unexpected error: %v", err)
	}
	if err := s.Run(1000); err != nil {
		t.Fatalf("Run: unexpected error: %v", err)
	}
	got, err := s.GetWireState(out)
	if err != nil {
		t.Fatalf("GetWireState: unexpected error: %v", err)
	}
	words, err := got.ToBigInt(40)
	if err != nil {
		t.Fatalf("ToBigInt: unexpected error: %v", err)
	}
	if words[0] != 0 || words[1] != 1 {
		t.Fatalf("40-bit add with carry: got=[%#x %#x], want=[0 1]", words[0], words[1])
	}
}

// TestThreeDriversOneEnabled: three tri-state buffers share one bus,
// exercising both the inline first driver and the two linked list nodes;
// only the last-registered buffer is enabled.
func TestThreeDriversOneEnabled(t *testing.T) {
	var in0, in1, in2, en0, en1, en2, bus sim.WireID
	s := buildSim(t, func(bld *sim.Builder) {
		in0, _ = bld.AddWire(1)
		in1, _ = bld.AddWire(1)
		in2, _ = bld.AddWire(1)
		en0, _ = bld.AddWire(1)
		en1, _ = bld.AddWire(1)
		en2, _ = bld.AddWire(1)
		bus, _ = bld.AddWire(1)
		bld.AddBuffer(in0, en0, bus)
		bld.AddBuffer(in1, en1, bus)
		bld.AddBuffer(in2, en2, bus)
	})
	defer s.Close()

	setInt(t, s, in0, 1, 0)
	setInt(t, s, in1, 1, 0)
	setInt(t, s, in2, 1, 1)
	setInt(t, s, en0, 1, 0)
	setInt(t, s, en1, 1, 0)
	setInt(t, s, en2, 1, 1)

	if err := s.Run(1000); err != nil {
		t.Fatalf("Run: unexpected error: %v", err)
	}
	got, err := s.GetWireState(bus)
	if err != nil {
		t.Fatalf("GetWireState: unexpected error: %v", err)
	}
	if v, err := got.ToInt(1); err != nil || v != 1 {
		t.Fatalf("three-driver bus: got=%v err=%v, want=1", v, err)
	}
}

// TestDeterminism: running the same netlist twice from the same drives
// produces the same settled state.
func TestDeterminism(t *testing.T) {
	build := func(bld *sim.Builder) (a, b, out sim.WireID) {
		a, _ = bld.AddWire(8)
		b, _ = bld.AddWire(8)
		out, _ = bld.AddWire(8)
		bld.AddBinary(sim.KindAdd, a, b, out)
		return
	}

	var a1, b1, out1 sim.WireID
	s1 := buildSim(t, func(bld *sim.Builder) { a1, b1, out1 = build(bld) })
	defer s1.Close()
	setInt(t, s1, a1, 8, 17)
	setInt(t, s1, b1, 8, 25)
	if err := s1.Run(1000); err != nil {
		t.Fatalf("Run: unexpected error: %v", err)
	}
	got1, _ := s1.GetWireState(out1)

	var a2, b2, out2 sim.WireID
	s2 := buildSim(t, func(bld *sim.Builder) { a2, b2, out2 = build(bld) })
	defer s2.Close()
	setInt(t, s2, a2, 8, 17)
	setInt(t, s2, b2, 8, 25)
	if err := s2.Run(1000); err != nil {
		t.Fatalf("Run: unexpected error: %v", err)
	}
	got2, _ := s2.GetWireState(out2)

	if got1 != got2 {
		t.Fatalf("determinism: got1=%v, got2=%v", got1.String(8), got2.String(8))
	}
}
