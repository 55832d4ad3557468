package sim

import "github.com/golang/glog"

// Simulator binds a finalized netlist to a Device and drives it through
// the settle loop.
type Simulator struct {
	device Device
	layout *BufferLayout

	wireStateSynced bool
	memorySynced    bool
}

func newSimulator(device Device, layout *BufferLayout) *Simulator {
	return &Simulator{device: device, layout: layout}
}

// innerPassesPerSweep bounds how many wire/component iterations happen
// between host round-trips: dispatch cost dominates small circuits, so
// chunking inner passes amortizes the control-block readback, while still
// bounding how long a RunSweep call can go without the host checking for
// conflicts or quiescence.
const innerPassesPerSweep = 32

// Run drives the netlist to a fixed point, performing at most maxSteps
// total inner passes. It returns nil once quiescent, a
// *ConflictError if any wire saw a genuine driver conflict, or
// ErrMaxStepsReached if maxSteps passes elapsed without settling.
func (s *Simulator) Run(maxSteps uint64) error {
	if err := s.device.PushDirty(s.layout); err != nil {
		return err
	}

	control := ControlBlock{WiresChanged: 1, ComponentsChanged: 1}
	var steps uint64
	for steps < maxSteps {
		remaining := maxSteps - steps
		passes := innerPassesPerSweep
		if remaining < uint64(passes) {
			passes = int(remaining)
		}

		next, err := s.device.RunSweep(control, passes, s.layout)
		if err != nil {
			return err
		}
		control = next
		steps += uint64(passes)

		s.wireStateSynced = false
		s.memorySynced = false

		if control.HasConflicts != 0 {
			// ConflictListLen can exceed the list's capacity when more
			// conflicts occurred than fit; only the stored slots are read.
			n := int(control.ConflictListLen)
			if n > MaxConflictSlots {
				glog.Warningf("sim: %d conflicting wires exceed the %d-slot conflict list, truncating", n, MaxConflictSlots)
				n = MaxConflictSlots
			}
			ids, err := s.device.ReadConflicts(n)
			if err != nil {
				return err
			}
			return &ConflictError{ConflictingWires: ids}
		}
		if control.Quiescent() {
			return nil
		}
		glog.Infof("sim: sweep of %d inner passes did not settle (%d/%d steps used)", passes, steps, maxSteps)
	}
	return ErrMaxStepsReached
}

// Reset returns every wire, output and memory cell to High-Z, preserving
// the netlist's structure.
func (s *Simulator) Reset() error {
	if err := s.device.ResetState(s.layout); err != nil {
		return err
	}
	s.wireStateSynced = false
	s.memorySynced = false
	return nil
}

// syncWireStates performs the lazy device->host wire-state readback on
// first use after a Run/Reset.
func (s *Simulator) syncWireStates() error {
	if s.wireStateSynced {
		return nil
	}
	glog.Infof("sim: syncing wire states from device")
	if err := s.device.SyncWireStates(s.layout); err != nil {
		return err
	}
	s.wireStateSynced = true
	return nil
}

// GetWireState returns the current settled state of a wire.
func (s *Simulator) GetWireState(id WireID) (LogicState, error) {
	if err := s.syncWireStates(); err != nil {
		return LogicState{}, err
	}
	w, ok := s.layout.Wires.Get(uint32(id))
	if !ok {
		return LogicState{}, ErrInvalidWireID
	}
	n := w.AtomCount()
	src := s.layout.WireState.Get(w.StateOffset, n)
	var out LogicState
	copy(out.Atoms[:], src)
	return out, nil
}

// SetWireDrive sets the user-applied base drive of a wire and marks the
// wire-drive buffer dirty so the next Run pushes it to the device.
func (s *Simulator) SetWireDrive(id WireID, state LogicState) error {
	w, ok := s.layout.Wires.Get(uint32(id))
	if !ok {
		return ErrInvalidWireID
	}
	n := w.AtomCount()
	dst := s.layout.WireDrive.GetMut(w.DriveOffset, n)
	for i := 0; i < n; i++ {
		dst[i] = maskAtomForWidth(state.Atoms[i], i, w.Width)
	}
	return nil
}

// GetWireDrive returns the current base drive of a wire.
func (s *Simulator) GetWireDrive(id WireID) (LogicState, error) {
	w, ok := s.layout.Wires.Get(uint32(id))
	if !ok {
		return LogicState{}, ErrInvalidWireID
	}
	n := w.AtomCount()
	src := s.layout.WireDrive.Get(w.DriveOffset, n)
	var out LogicState
	copy(out.Atoms[:], src)
	return out, nil
}

// WireWidth returns the declared width of a wire.
func (s *Simulator) WireWidth(id WireID) (int, error) {
	w, ok := s.layout.Wires.Get(uint32(id))
	if !ok {
		return 0, ErrInvalidWireID
	}
	return w.Width, nil
}

// Close releases the underlying device's resources.
func (s *Simulator) Close() error {
	return s.device.Close()
}
