package sim

// Builder accumulates wires and components into typed append-only arenas
//. Every append-sequence that can fail is arranged so the
// Component record is pushed last: if a later allocation fails, earlier
// output/input allocations for that call are leaked but every wire's
// driver list and every already-committed component stay consistent
//.
type Builder struct {
	wires            Buffer[Wire]
	wireDrivers      Buffer[WireDriver]
	components       Buffer[Component]
	componentOutputs Buffer[ComponentOutput]
	componentInputs  Buffer[ComponentInput]

	wireState   LogicStateBuffer
	wireDrive   LogicStateBuffer
	outputState LogicStateBuffer
	memory      LogicStateBuffer
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// AddWire allocates a new wire of the given width, with both its state
// and base-drive atoms initialized to High-Z.
func (b *Builder) AddWire(width int) (WireID, error) {
	if width < MinWireWidth || width > MaxWireWidth {
		return 0, ErrWidthOutOfRange
	}
	n := atomCount(width)
	stateOffset, err := b.wireState.Push(n)
	if err != nil {
		return 0, err
	}
	driveOffset, err := b.wireDrive.Push(n)
	if err != nil {
		return 0, err
	}
	idx, err := b.wires.Push(Wire{
		Width:             width,
		StateOffset:       stateOffset,
		DriveOffset:       driveOffset,
		FirstDriverOffset: Invalid,
		DriverList:        Invalid,
	})
	if err != nil {
		return 0, err
	}
	return WireID(idx), nil
}

// SetWireDrive sets the user-applied base drive of a wire.
func (b *Builder) SetWireDrive(id WireID, s LogicState) error {
	w, ok := b.wires.Get(uint32(id))
	if !ok {
		return ErrInvalidWireID
	}
	n := w.AtomCount()
	dst := b.wireDrive.GetMut(w.DriveOffset, n)
	for i := 0; i < n; i++ {
		dst[i] = maskAtomForWidth(s.Atoms[i], i, w.Width)
	}
	return nil
}

// GetWireDrive returns the current base drive of a wire.
func (b *Builder) GetWireDrive(id WireID) (LogicState, error) {
	w, ok := b.wires.Get(uint32(id))
	if !ok {
		return LogicState{}, ErrInvalidWireID
	}
	n := w.AtomCount()
	src := b.wireDrive.Get(w.DriveOffset, n)
	var out LogicState
	copy(out.Atoms[:], src)
	return out, nil
}

// registerDriver records a new component-output driver on a wire,
// preserving the inline-first-driver invariant: the
// first driver is always stored inline, and only a second or later
// driver allocates a singly-linked WireDriver node. A second driver
// allocates the list's sole node directly off the wire; a third or later
// driver is appended to the tail via O(n) traversal of the existing
// nodes, matching the order components were registered in.
func (b *Builder) registerDriver(id WireID, width int, outputStateOffset uint32) error {
	w, ok := b.wires.GetMut(uint32(id))
	if !ok {
		return ErrInvalidWireID
	}
	if w.FirstDriverOffset == Invalid {
		w.FirstDriverWidth = width
		w.FirstDriverOffset = outputStateOffset
		return nil
	}
	if w.DriverList == Invalid {
		idx, err := b.wireDrivers.Push(WireDriver{Width: width, OutputStateOffset: outputStateOffset, NextDriverIndex: Invalid})
		if err != nil {
			return err
		}
		w.DriverList = idx
		return nil
	}
	nodeIdx := w.DriverList
	for {
		node, _ := b.wireDrivers.GetMut(nodeIdx)
		if node.NextDriverIndex == Invalid {
			idx, err := b.wireDrivers.Push(WireDriver{Width: width, OutputStateOffset: outputStateOffset, NextDriverIndex: Invalid})
			if err != nil {
				return err
			}
			node.NextDriverIndex = idx
			return nil
		}
		nodeIdx = node.NextDriverIndex
	}
}

// createSingleOutput allocates the output-state atoms for a single-output
// component and registers them as a driver of wireID.
func (b *Builder) createSingleOutput(width int, wireID WireID) (offset uint32, err error) {
	offset, err = b.outputState.Push(atomCount(width))
	if err != nil {
		return 0, err
	}
	if err := b.registerDriver(wireID, width, offset); err != nil {
		return offset, err
	}
	return offset, nil
}

// createInputs copies (width, wire_state_offset) for every input wire.
func (b *Builder) createInputs(wires []WireID) (count int, first uint32, err error) {
	if len(wires) > 255 {
		return 0, Invalid, ErrTooManyInputs
	}
	first = Invalid
	for i, id := range wires {
		w, ok := b.wires.Get(uint32(id))
		if !ok {
			return 0, Invalid, ErrInvalidWireID
		}
		idx, err := b.componentInputs.Push(ComponentInput{Width: w.Width, WireStateOffset: w.StateOffset})
		if err != nil {
			return 0, Invalid, err
		}
		if i == 0 {
			first = idx
		}
	}
	return len(wires), first, nil
}

// AddBinary adds a two-input, single-output component (AND, OR, XOR,
// NAND, NOR, XNOR, ADD, SUB, LSH, LRSH, ARSH, and the comparisons).
// Comparison kinds produce a 1-bit output regardless of inA/inB's width.
func (b *Builder) AddBinary(kind ComponentKind, inA, inB, output WireID) (ComponentID, error) {
	outW, ok := b.wires.Get(uint32(output))
	if !ok {
		return 0, ErrInvalidWireID
	}
	outputOffset, err := b.createSingleOutput(outW.Width, output)
	if err != nil {
		return 0, err
	}
	inCount, firstInput, err := b.createInputs([]WireID{inA, inB})
	if err != nil {
		return 0, err
	}
	idx, err := b.components.Push(Component{
		Kind:              kind,
		OutputCount:       1,
		InlineOutputWidth: outW.Width,
		InlineOutputState: outputOffset,
		FirstOutput:       Invalid,
		InputCount:        inCount,
		FirstInput:        firstInput,
	})
	if err != nil {
		return 0, err
	}
	return ComponentID(idx), nil
}

// AddUnary adds a one-input, single-output component (NOT, NEG, and the
// horizontal reductions). The horizontal reductions always produce a
// 1-bit output regardless of in's width.
func (b *Builder) AddUnary(kind ComponentKind, in, output WireID) (ComponentID, error) {
	outW, ok := b.wires.Get(uint32(output))
	if !ok {
		return 0, ErrInvalidWireID
	}
	outputOffset, err := b.createSingleOutput(outW.Width, output)
	if err != nil {
		return 0, err
	}
	inCount, firstInput, err := b.createInputs([]WireID{in})
	if err != nil {
		return 0, err
	}
	idx, err := b.components.Push(Component{
		Kind:              kind,
		OutputCount:       1,
		InlineOutputWidth: outW.Width,
		InlineOutputState: outputOffset,
		FirstOutput:       Invalid,
		InputCount:        inCount,
		FirstInput:        firstInput,
	})
	if err != nil {
		return 0, err
	}
	return ComponentID(idx), nil
}

// AddBuffer adds a tri-state BUFFER component: output = input when enable
// is Logic 1, High-Z when enable is Logic 0, otherwise X.
func (b *Builder) AddBuffer(input, enable, output WireID) (ComponentID, error) {
	outW, ok := b.wires.Get(uint32(output))
	if !ok {
		return 0, ErrInvalidWireID
	}
	outputOffset, err := b.createSingleOutput(outW.Width, output)
	if err != nil {
		return 0, err
	}
	inCount, firstInput, err := b.createInputs([]WireID{input, enable})
	if err != nil {
		return 0, err
	}
	idx, err := b.components.Push(Component{
		Kind:              KindBuffer,
		OutputCount:       1,
		InlineOutputWidth: outW.Width,
		InlineOutputState: outputOffset,
		FirstOutput:       Invalid,
		InputCount:        inCount,
		FirstInput:        firstInput,
	})
	if err != nil {
		return 0, err
	}
	return ComponentID(idx), nil
}

// Build finalizes every arena and binds the netlist to device, returning
// a ready-to-run Simulator. device is typically gpu.NewGLDevice() for a
// real run or gpu.NewSoftDevice() for tests.
func (b *Builder) Build(device Device) (*Simulator, error) {
	b.wires.Finalize()
	b.wireDrivers.Finalize()
	b.components.Finalize()
	b.componentOutputs.Finalize()
	b.componentInputs.Finalize()
	b.wireState.Finalize()
	b.wireDrive.Finalize()
	b.outputState.Finalize()
	b.memory.Finalize()

	layout := &BufferLayout{
		Wires:            &b.wires,
		WireDrivers:      &b.wireDrivers,
		Components:       &b.components,
		ComponentOutputs: &b.componentOutputs,
		ComponentInputs:  &b.componentInputs,
		WireState:        &b.wireState,
		WireDrive:        &b.wireDrive,
		OutputState:      &b.outputState,
		Memory:           &b.memory,
	}
	if err := device.Build(layout); err != nil {
		return nil, err
	}
	return newSimulator(device, layout), nil
}
