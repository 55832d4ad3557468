// Package gpu provides the two sim.Device implementations: SoftDevice,
// a sequential reference backend used by every test in this module, and
// GLDevice, a real OpenGL 4.3+ compute-shader backend standing in for
// the native Vulkan/Metal backend a production build would ship.
package gpu

import (
	"sort"

	"github.com/golang/glog"

	"github.com/nandgate/gsim/sim"
)

// SoftDevice runs the wire and component kernels sequentially in Go,
// calling the exact functions sim.WireKernelStep and
// sim.ComponentKernelStep that GLDevice's shaders transliterate, so the
// two backends can never silently disagree on documented behavior.
type SoftDevice struct {
	layout    *sim.BufferLayout
	conflicts []sim.WireID
}

// NewSoftDevice returns a SoftDevice. It has no setup cost: unlike
// GLDevice it needs no context, window, or compiled program.
func NewSoftDevice() *SoftDevice {
	return &SoftDevice{}
}

func (d *SoftDevice) Build(layout *sim.BufferLayout) error {
	d.layout = layout
	return nil
}

// PushDirty uploads nothing, since SoftDevice reads the arenas in place;
// it only clears every arena's dirty flag.
func (d *SoftDevice) PushDirty(layout *sim.BufferLayout) error {
	layout.Wires.ClearDirty()
	layout.WireDrivers.ClearDirty()
	layout.Components.ClearDirty()
	layout.ComponentOutputs.ClearDirty()
	layout.ComponentInputs.ClearDirty()
	layout.WireState.ClearDirty()
	layout.WireDrive.ClearDirty()
	layout.OutputState.ClearDirty()
	layout.Memory.ClearDirty()
	return nil
}

func (d *SoftDevice) RunSweep(control sim.ControlBlock, innerPasses int, layout *sim.BufferLayout) (sim.ControlBlock, error) {
	conflicts := make(map[sim.WireID]bool)
	wireCount := layout.Wires.Len()
	compCount := layout.Components.Len()

	for pass := 0; pass < innerPasses; pass++ {
		control.WiresChanged = 0
		for i := 0; i < wireCount; i++ {
			changed, conflict := sim.WireKernelStep(layout, uint32(i))
			if changed {
				control.WiresChanged++
			}
			if conflict {
				control.HasConflicts = 1
				conflicts[sim.WireID(i)] = true
			}
		}

		control.ComponentsChanged = 0
		for i := 0; i < compCount; i++ {
			if sim.ComponentKernelStep(layout, uint32(i)) {
				control.ComponentsChanged++
			}
		}

		if control.Quiescent() {
			break
		}
	}

	d.conflicts = d.conflicts[:0]
	for id := range conflicts {
		d.conflicts = append(d.conflicts, id)
	}
	// Map iteration order is random; sort so repeated runs report the same
	// list.
	sort.Slice(d.conflicts, func(i, j int) bool { return d.conflicts[i] < d.conflicts[j] })
	if len(d.conflicts) > sim.MaxConflictSlots {
		glog.Warningf("gpu: %d conflicting wires exceed the %d-slot conflict list, truncating", len(d.conflicts), sim.MaxConflictSlots)
		d.conflicts = d.conflicts[:sim.MaxConflictSlots]
	}
	control.ConflictListLen = uint32(len(d.conflicts))
	return control, nil
}

func (d *SoftDevice) ReadConflicts(n int) ([]sim.WireID, error) {
	if n > len(d.conflicts) {
		n = len(d.conflicts)
	}
	out := make([]sim.WireID, n)
	copy(out, d.conflicts[:n])
	return out, nil
}

func (d *SoftDevice) SyncWireStates(layout *sim.BufferLayout) error { return nil }
func (d *SoftDevice) SyncMemory(layout *sim.BufferLayout) error     { return nil }

func (d *SoftDevice) ResetState(layout *sim.BufferLayout) error {
	layout.WireState.Reset()
	layout.OutputState.Reset()
	layout.Memory.Reset()
	return nil
}

func (d *SoftDevice) Close() error { return nil }
