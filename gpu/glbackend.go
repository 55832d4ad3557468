package gpu

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/go-gl/gl/v4.3-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/golang/glog"

	"github.com/nandgate/gsim/sim"
)

// compileComputeShader compiles and links a single-stage compute
// program, surfacing the driver's info log on compile or link failure.
func compileComputeShader(source string) (uint32, error) {
	shader := gl.CreateShader(gl.COMPUTE_SHADER)
	csource, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csource, nil)
	free()
	gl.CompileShader(shader)
	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var length int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &length)
		log := strings.Repeat("\x00", int(length+1))
		gl.GetShaderInfoLog(shader, length, nil, gl.Str(log))
		return 0, fmt.Errorf("gpu: failed to compile compute shader: %v", log)
	}

	program := gl.CreateProgram()
	gl.AttachShader(program, shader)
	gl.LinkProgram(program)
	var linked int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &linked)
	if linked == gl.FALSE {
		var length int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &length)
		log := strings.Repeat("\x00", int(length+1))
		gl.GetProgramInfoLog(program, length, nil, gl.Str(log))
		return 0, fmt.Errorf("gpu: failed to link compute program: %v", log)
	}
	gl.DeleteShader(shader)
	return program, nil
}

// ssbo is one shader storage buffer object mirroring one host-side arena.
type ssbo struct {
	id      uint32
	binding uint32
}

func newSSBO(binding uint32) ssbo {
	var id uint32
	gl.GenBuffers(1, &id)
	return ssbo{id: id, binding: binding}
}

func (s ssbo) upload(data unsafe.Pointer, size int) {
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, s.id)
	gl.BufferData(gl.SHADER_STORAGE_BUFFER, size, data, gl.DYNAMIC_DRAW)
	gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, s.binding, s.id)
}

func (s ssbo) uploadWords(words []uint32) {
	if len(words) == 0 {
		s.upload(nil, 0)
		return
	}
	s.upload(unsafe.Pointer(&words[0]), len(words)*4)
}

func (s ssbo) download(data unsafe.Pointer, size int) {
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, s.id)
	gl.GetBufferSubData(gl.SHADER_STORAGE_BUFFER, 0, size, data)
}

func (s ssbo) downloadAt(offset, size int, data unsafe.Pointer) {
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, s.id)
	gl.GetBufferSubData(gl.SHADER_STORAGE_BUFFER, offset, size, data)
}

func (s ssbo) uploadAt(offset, size int, data unsafe.Pointer) {
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, s.id)
	gl.BufferSubData(gl.SHADER_STORAGE_BUFFER, offset, size, data)
}

// Binding points are distinct across every buffer, even though the wire
// and component kernel programs each only read a subset: a binding point
// is global context state, and reusing one between buffers would have the
// second upload silently rebind a slot the first program still expects to
// see its own buffer in.
const (
	bindWires = iota
	bindWireDrivers
	bindComponents
	bindComponentOutputs
	bindComponentInputs
	bindWireState
	bindWireDrive
	bindOutputState
	bindMemory
	bindControl
)

const resetModeUniformLocation = 0

const (
	resetModeState                  = 0
	resetModeClearWiresChanged      = 1
	resetModeClearComponentsChanged = 2
	resetModeSeedControl            = 3
)

// GLDevice is a sim.Device backed by OpenGL 4.3+ compute shaders, run
// against a hidden GLFW window (no swapchain, no rendering: the window
// exists only to own a current context). It stands in for the native
// Vulkan/Metal compute backend a production build would ship.
type GLDevice struct {
	window *glfw.Window

	wireProgram  uint32
	compProgram  uint32
	resetProgram uint32

	wires, wireDrivers, components, componentOutputs, componentInputs ssbo
	wireState, wireDrive, outputState, memory                         ssbo
	control                                                            ssbo

	layout *sim.BufferLayout
}

// NewGLDevice creates a hidden-window OpenGL context and compiles the
// reset, wire and component kernels. Callers must call Close when done.
func NewGLDevice() (*GLDevice, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("gpu: glfw init: %w", err)
	}
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 3)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.Visible, glfw.False)

	window, err := glfw.CreateWindow(1, 1, "gsim", nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("gpu: create hidden window: %w", err)
	}
	window.MakeContextCurrent()
	if err := gl.Init(); err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("gpu: gl init: %w", err)
	}

	d := &GLDevice{window: window}
	if d.resetProgram, err = compileComputeShader(resetShaderSource); err != nil {
		return nil, err
	}
	if d.wireProgram, err = compileComputeShader(wireKernelShaderSource); err != nil {
		return nil, err
	}
	if d.compProgram, err = compileComputeShader(componentKernelShaderSource); err != nil {
		return nil, err
	}
	glog.V(1).Infoln("gpu: compute kernels compiled")
	return d, nil
}

// controlBytes is the control block's on-device size: four scalar counters
// plus the 256-slot conflict list.
const controlBytes = controlWords * 4

func (d *GLDevice) Build(layout *sim.BufferLayout) error {
	d.layout = layout
	d.wires = newSSBO(bindWires)
	d.wireDrivers = newSSBO(bindWireDrivers)
	d.components = newSSBO(bindComponents)
	d.componentOutputs = newSSBO(bindComponentOutputs)
	d.componentInputs = newSSBO(bindComponentInputs)
	d.wireState = newSSBO(bindWireState)
	d.wireDrive = newSSBO(bindWireDrive)
	d.outputState = newSSBO(bindOutputState)
	d.memory = newSSBO(bindMemory)
	d.control = newSSBO(bindControl)

	zero := make([]uint32, controlWords)
	d.control.uploadWords(zero)

	return d.PushDirty(layout)
}

func (d *GLDevice) PushDirty(layout *sim.BufferLayout) error {
	if layout.Wires.Dirty() {
		d.wires.uploadWords(packWires(layout.Wires.Items()))
		layout.Wires.ClearDirty()
	}
	if layout.WireDrivers.Dirty() {
		d.wireDrivers.uploadWords(packDrivers(layout.WireDrivers.Items()))
		layout.WireDrivers.ClearDirty()
	}
	if layout.Components.Dirty() {
		d.components.uploadWords(packComponents(layout.Components.Items()))
		layout.Components.ClearDirty()
	}
	if layout.ComponentInputs.Dirty() {
		d.componentInputs.uploadWords(packInputs(layout.ComponentInputs.Items()))
		layout.ComponentInputs.ClearDirty()
	}
	if layout.ComponentOutputs.Dirty() {
		d.componentOutputs.uploadWords(packOutputs(layout.ComponentOutputs.Items()))
		layout.ComponentOutputs.ClearDirty()
	}
	if layout.WireState.Dirty() {
		items := layout.WireState.Items()
		if len(items) > 0 {
			d.wireState.upload(unsafe.Pointer(&items[0]), len(items)*int(unsafe.Sizeof(items[0])))
		}
		layout.WireState.ClearDirty()
	}
	if layout.WireDrive.Dirty() {
		items := layout.WireDrive.Items()
		if len(items) > 0 {
			d.wireDrive.upload(unsafe.Pointer(&items[0]), len(items)*int(unsafe.Sizeof(items[0])))
		}
		layout.WireDrive.ClearDirty()
	}
	if layout.OutputState.Dirty() {
		items := layout.OutputState.Items()
		if len(items) > 0 {
			d.outputState.upload(unsafe.Pointer(&items[0]), len(items)*int(unsafe.Sizeof(items[0])))
		}
		layout.OutputState.ClearDirty()
	}
	if layout.Memory.Dirty() {
		items := layout.Memory.Items()
		if len(items) > 0 {
			d.memory.upload(unsafe.Pointer(&items[0]), len(items)*int(unsafe.Sizeof(items[0])))
		}
		layout.Memory.ClearDirty()
	}
	return nil
}

func workgroups(n int) int32 {
	const localSize = 64
	if n <= 0 {
		return 1
	}
	return int32((n + localSize - 1) / localSize)
}

func (d *GLDevice) dispatchResetMode(mode uint32, groups int32) {
	gl.UseProgram(d.resetProgram)
	gl.Uniform1ui(resetModeUniformLocation, mode)
	gl.DispatchCompute(uint32(groups), 1, 1)
	gl.MemoryBarrier(gl.SHADER_STORAGE_BARRIER_BIT)
}

// uploadControlCounters writes the four scalar counters (not the conflict
// list) into the device's control buffer.
func (d *GLDevice) uploadControlCounters(c sim.ControlBlock) {
	words := [4]uint32{c.WiresChanged, c.ComponentsChanged, c.ConflictListLen, c.HasConflicts}
	d.control.uploadAt(0, len(words)*4, unsafe.Pointer(&words[0]))
}

// RunSweep seeds the control block from the caller's prior value, then
// dispatches innerPasses alternations of reset-wires-changed -> wire
// kernel -> reset-components-changed -> component kernel, each kernel preceded by a memory barrier so one stage's
// writes are visible to the next.
func (d *GLDevice) RunSweep(control sim.ControlBlock, innerPasses int, layout *sim.BufferLayout) (sim.ControlBlock, error) {
	d.uploadControlCounters(control)

	wireGroups := workgroups(layout.Wires.Len())
	compGroups := workgroups(layout.Components.Len())

	for pass := 0; pass < innerPasses; pass++ {
		d.dispatchResetMode(resetModeClearWiresChanged, 1)
		gl.UseProgram(d.wireProgram)
		gl.DispatchCompute(uint32(wireGroups), 1, 1)
		gl.MemoryBarrier(gl.SHADER_STORAGE_BARRIER_BIT)

		d.dispatchResetMode(resetModeClearComponentsChanged, 1)
		gl.UseProgram(d.compProgram)
		gl.DispatchCompute(uint32(compGroups), 1, 1)
		gl.MemoryBarrier(gl.SHADER_STORAGE_BARRIER_BIT)
	}

	var out [4]uint32
	d.control.downloadAt(0, len(out)*4, unsafe.Pointer(&out[0]))
	return sim.ControlBlock{
		WiresChanged:      out[0],
		ComponentsChanged: out[1],
		ConflictListLen:   out[2],
		HasConflicts:      out[3],
	}, nil
}

func (d *GLDevice) ReadConflicts(n int) ([]sim.WireID, error) {
	if n > sim.MaxConflictSlots {
		n = sim.MaxConflictSlots
	}
	if n <= 0 {
		return nil, nil
	}
	ids := make([]uint32, n)
	// Conflict wire ids follow the four scalar counters in the control
	// block's layout.
	d.control.downloadAt(4*4, n*4, unsafe.Pointer(&ids[0]))
	out := make([]sim.WireID, n)
	for i, id := range ids {
		out[i] = sim.WireID(id)
	}
	return out, nil
}

func (d *GLDevice) SyncWireStates(layout *sim.BufferLayout) error {
	items := layout.WireState.Items()
	if len(items) == 0 {
		return nil
	}
	d.wireState.download(unsafe.Pointer(&items[0]), len(items)*int(unsafe.Sizeof(items[0])))
	return nil
}

func (d *GLDevice) SyncMemory(layout *sim.BufferLayout) error {
	items := layout.Memory.Items()
	if len(items) == 0 {
		return nil
	}
	d.memory.download(unsafe.Pointer(&items[0]), len(items)*int(unsafe.Sizeof(items[0])))
	return nil
}

// ResetState dispatches the reset kernel over wire-state, output-state and
// memory, reseeds the control block to all-zero, and resets the host-side
// copies of the same arenas so a later PushDirty or readback agrees with
// the device.
func (d *GLDevice) ResetState(layout *sim.BufferLayout) error {
	targets := []struct {
		buf   ssbo
		atoms int
	}{
		{d.wireState, layout.WireState.Len()},
		{d.outputState, layout.OutputState.Len()},
		{d.memory, layout.Memory.Len()},
	}
	for _, t := range targets {
		gl.UseProgram(d.resetProgram)
		gl.Uniform1ui(resetModeUniformLocation, resetModeState)
		gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, 8, t.buf.id)
		gl.DispatchCompute(uint32(workgroups(t.atoms)), 1, 1)
		gl.MemoryBarrier(gl.SHADER_STORAGE_BARRIER_BIT)
	}
	d.dispatchResetMode(resetModeSeedControl, 1)

	// Mirror the reset on the host copies: they are what PushDirty uploads
	// next Run, and what a lazy readback would otherwise overwrite with
	// pre-reset values.
	layout.WireState.Reset()
	layout.OutputState.Reset()
	layout.Memory.Reset()
	return nil
}

func (d *GLDevice) Close() error {
	gl.DeleteProgram(d.wireProgram)
	gl.DeleteProgram(d.compProgram)
	gl.DeleteProgram(d.resetProgram)
	d.window.Destroy()
	glfw.Terminate()
	return nil
}
