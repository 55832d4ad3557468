package gpu

// This file packs the sim package's host-side records (which use
// platform-width `int` fields, convenient for Go arithmetic) into flat
// uint32 words matching the fixed-width layout the GLSL shaders in
// shaders.go declare. Uploading a sim.Wire/sim.Component slice's raw bytes
// directly would not produce the documented uvec4 layout on every
// platform, since Go's `int` is 8 bytes on amd64/arm64; packing here is
// the one place that distinction is bridged.

import "github.com/nandgate/gsim/sim"

// wireWords is the number of uint32 words per packed wire record:
// (width, stateOffset, driveOffset, firstDriverOffset, firstDriverWidth,
// driverListHead, pad, pad), two uvec4s.
const wireWords = 8

// driverWords is the number of uint32 words per packed WireDriver node:
// (width, outputStateOffset, nextIndex, pad), one uvec4.
const driverWords = 4

// componentWords is the number of uint32 words per packed component
// record: (kind, outputCount, inlineOutputWidth, inlineOutputState,
// firstOutput, inputCount, firstInput, memoryOffset, memorySize, pad,
// pad, pad), three uvec4s.
const componentWords = 12

// inputWords is the number of uint32 words per packed ComponentInput:
// (width, wireStateOffset, pad, pad), one uvec4.
const inputWords = 4

// outputWords is the number of uint32 words per packed ComponentOutput:
// (width, stateOffset, pad, pad), one uvec4.
const outputWords = 4

// controlWords is the fixed size of the control block: four scalar
// counters plus the 256-slot conflict list.
const controlWords = 4 + sim.MaxConflictSlots

func packWires(ws []sim.Wire) []uint32 {
	out := make([]uint32, len(ws)*wireWords)
	for i, w := range ws {
		o := out[i*wireWords : (i+1)*wireWords]
		o[0] = uint32(w.Width)
		o[1] = w.StateOffset
		o[2] = w.DriveOffset
		o[3] = w.FirstDriverOffset
		o[4] = uint32(w.FirstDriverWidth)
		o[5] = w.DriverList
	}
	return out
}

func packDrivers(ds []sim.WireDriver) []uint32 {
	out := make([]uint32, len(ds)*driverWords)
	for i, d := range ds {
		o := out[i*driverWords : (i+1)*driverWords]
		o[0] = uint32(d.Width)
		o[1] = d.OutputStateOffset
		o[2] = d.NextDriverIndex
	}
	return out
}

func packOutputs(outs []sim.ComponentOutput) []uint32 {
	out := make([]uint32, len(outs)*outputWords)
	for i, o := range outs {
		w := out[i*outputWords : (i+1)*outputWords]
		w[0] = uint32(o.Width)
		w[1] = o.StateOffset
	}
	return out
}

func packComponents(cs []sim.Component) []uint32 {
	out := make([]uint32, len(cs)*componentWords)
	for i, c := range cs {
		o := out[i*componentWords : (i+1)*componentWords]
		o[0] = uint32(c.Kind)
		o[1] = uint32(c.OutputCount)
		o[2] = uint32(c.InlineOutputWidth)
		o[3] = c.InlineOutputState
		o[4] = c.FirstOutput
		o[5] = uint32(c.InputCount)
		o[6] = c.FirstInput
		o[7] = c.MemoryOffset
		o[8] = uint32(c.MemorySize)
	}
	return out
}

func packInputs(ins []sim.ComponentInput) []uint32 {
	out := make([]uint32, len(ins)*inputWords)
	for i, in := range ins {
		o := out[i*inputWords : (i+1)*inputWords]
		o[0] = uint32(in.Width)
		o[1] = in.WireStateOffset
	}
	return out
}
