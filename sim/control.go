package sim

// ControlBlock mirrors the four atomic counters in the GPU control
// block: two changed-flags, the conflict list length, and the
// has-conflicts flag.
type ControlBlock struct {
	WiresChanged      uint32
	ComponentsChanged uint32
	ConflictListLen   uint32
	HasConflicts      uint32
}

// Quiescent reports whether a sweep produced no further changes.
func (c ControlBlock) Quiescent() bool {
	return c.WiresChanged == 0 && c.ComponentsChanged == 0
}

// MaxConflictSlots is the fixed capacity of the diagnostic conflict list
//: it is diagnostic, not authoritative, and
// HasConflicts remains set even if more conflicts occurred than fit.
const MaxConflictSlots = 256

// BufferLayout bundles pointers to every arena a Device needs to read or
// write. It stands in for the device's storage buffers: Wires,
// WireDrivers, Components, ComponentOutputs and ComponentInputs are the
// read-mostly structural records; WireState, WireDrive, OutputState and
// Memory are the mutable per-kernel state.
type BufferLayout struct {
	Wires            *Buffer[Wire]
	WireDrivers      *Buffer[WireDriver]
	Components       *Buffer[Component]
	ComponentOutputs *Buffer[ComponentOutput]
	ComponentInputs  *Buffer[ComponentInput]

	WireState   *LogicStateBuffer
	WireDrive   *LogicStateBuffer
	OutputState *LogicStateBuffer
	Memory      *LogicStateBuffer
}

// Device is the host<->device collaborator behind the engine: it owns
// the compiled kernels and the uploaded copies of the arenas in
// BufferLayout, and performs the sweep dispatch the settle loop in
// engine.go drives. gpu.GLDevice realizes it over
// real OpenGL compute shaders; gpu.SoftDevice realizes it by running the
// same per-wire/per-component functions sequentially in Go, which is
// what this package's tests run against.
type Device interface {
	// Build binds the device to the finalized layout and uploads it.
	// Kernel compilation, where a device has any, happens when the device
	// is constructed, not here.
	Build(layout *BufferLayout) error

	// PushDirty re-uploads any buffers in layout marked dirty since the
	// last call.
	PushDirty(layout *BufferLayout) error

	// RunSweep performs up to innerPasses iterations of
	// reset-wires-changed -> wire kernel -> reset-components-changed ->
	// component kernel, returning the control block observed after the
	// final iteration.
	RunSweep(control ControlBlock, innerPasses int, layout *BufferLayout) (ControlBlock, error)

	// ReadConflicts reads back up to n conflicting wire ids recorded this
	// sweep.
	ReadConflicts(n int) ([]WireID, error)

	// SyncWireStates and SyncMemory perform the lazy device->host
	// readbacks, deferred until first observation after a run.
	SyncWireStates(layout *BufferLayout) error
	SyncMemory(layout *BufferLayout) error

	// ResetState clears wire-state, output-state and memory to High-Z on
	// the device and marks them dirty.
	ResetState(layout *BufferLayout) error

	// Close releases any device resources (context, compiled programs,
	// staging buffers).
	Close() error
}
