package sim

// This file implements the component-update kernel: one
// work-item per component, reading input wire-state snapshots written by
// the previous wire pass and writing fresh output-state atoms consumed by
// the next wire pass. gpu.SoftDevice calls ComponentKernelStep once per
// component per inner pass; gpu/shaders.go's component compute shader
// dispatches the same per-kind operator table in GLSL.

// outputDescriptor returns the width and output-state offset of a
// component's (sole, for every kind this engine defines) output.
func outputDescriptor(comp Component) (width int, offset uint32) {
	if comp.OutputCount == 1 {
		return comp.InlineOutputWidth, comp.InlineOutputState
	}
	// Reserved for future multi-output kinds; none of the defined
	// kinds use it yet.
	return 0, Invalid
}

// ComponentKernelStep evaluates component compIdx: it reads its inputs'
// wire-state snapshots, applies the kind's operator, and writes the
// result into the component's output-state slice. It reports whether the
// output changed.
func ComponentKernelStep(layout *BufferLayout, compIdx uint32) bool {
	comp, ok := layout.Components.Get(compIdx)
	if !ok {
		return false
	}

	inputs := make([]LogicState, comp.InputCount)
	inputWidth := 0
	for i := 0; i < comp.InputCount; i++ {
		in, ok := layout.ComponentInputs.Get(comp.FirstInput + uint32(i))
		if !ok {
			continue
		}
		if i == 0 {
			inputWidth = in.Width
		}
		n := atomCount(in.Width)
		src := layout.WireState.Get(in.WireStateOffset, n)
		var s LogicState
		copy(s.Atoms[:], src)
		inputs[i] = s
	}

	outWidth, outOffset := outputDescriptor(comp)
	result := evaluateComponent(comp.Kind, outWidth, inputWidth, inputs)

	n := atomCount(outWidth)
	old := layout.OutputState.Get(outOffset, n)
	changed := !atomsEqual(old, result.Atoms[:n], n)
	dst := layout.OutputState.GetMut(outOffset, n)
	copy(dst, result.Atoms[:n])
	return changed
}

// evaluateComponent dispatches on kind.
// outWidth is the declared width of the component's output; inputWidth is
// the declared width of its first (or only) input, used by kinds whose
// output width differs from their operand width (horizontal reductions
// and comparisons both always produce 1 bit).
func evaluateComponent(kind ComponentKind, outWidth, inputWidth int, in []LogicState) LogicState {
	switch kind {
	case KindAnd:
		return And(outWidth, in[0], in[1])
	case KindOr:
		return Or(outWidth, in[0], in[1])
	case KindXor:
		return Xor(outWidth, in[0], in[1])
	case KindNand:
		return Nand(outWidth, in[0], in[1])
	case KindNor:
		return Nor(outWidth, in[0], in[1])
	case KindXnor:
		return Xnor(outWidth, in[0], in[1])
	case KindNot:
		return Not(outWidth, in[0])
	case KindBuffer:
		return BufferGate(outWidth, in[0], in[1])
	case KindAdd:
		return Add(outWidth, in[0], in[1])
	case KindSub:
		return Sub(outWidth, in[0], in[1])
	case KindNeg:
		return Neg(outWidth, in[0])
	case KindLsh:
		return Lsh(outWidth, in[0], in[1])
	case KindLrsh:
		return Lrsh(outWidth, in[0], in[1])
	case KindArsh:
		return Arsh(outWidth, in[0], in[1])
	case KindHAnd:
		return HAnd(inputWidth, in[0])
	case KindHOr:
		return HOr(inputWidth, in[0])
	case KindHXor:
		return HXor(inputWidth, in[0])
	case KindHNand:
		return HNand(inputWidth, in[0])
	case KindHNor:
		return HNor(inputWidth, in[0])
	case KindHXnor:
		return HXnor(inputWidth, in[0])
	case KindCmpEq:
		return CmpEq(inputWidth, in[0], in[1])
	case KindCmpNe:
		return CmpNe(inputWidth, in[0], in[1])
	case KindCmpUlt:
		return CmpUlt(inputWidth, in[0], in[1])
	case KindCmpUgt:
		return CmpUgt(inputWidth, in[0], in[1])
	case KindCmpUle:
		return CmpUle(inputWidth, in[0], in[1])
	case KindCmpUge:
		return CmpUge(inputWidth, in[0], in[1])
	case KindCmpSlt:
		return CmpSlt(inputWidth, in[0], in[1])
	case KindCmpSgt:
		return CmpSgt(inputWidth, in[0], in[1])
	case KindCmpSle:
		return CmpSle(inputWidth, in[0], in[1])
	case KindCmpSge:
		return CmpSge(inputWidth, in[0], in[1])
	default:
		return Undefined()
	}
}
