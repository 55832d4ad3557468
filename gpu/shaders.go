package gpu

// These GLSL 4.30 compute shaders are transliterations of the exact
// merge rule and operator table in sim/wirekernel.go, sim/componentkernel.go
// and sim/ops.go. There is no separate SPIR-V build step: the sources are
// string constants compiled at device construction time.
//
// Every record buffer is a flat run of uint words, packed by gpu/pack.go
// into the layout each struct below declares; Atom stays a plain
// (state, valid) pair of uints throughout, identical to sim.LogicStateAtom,
// so the four logic-state buffers upload directly with no packing step.

const controlBufferDecl = `
layout(std430, binding = 9) buffer Control {
	uint wiresChanged;
	uint componentsChanged;
	uint conflictListLen;
	uint hasConflicts;
	uint conflictWires[256];
};
`

const wireKernelShaderSource = `
#version 430

layout(local_size_x = 64) in;

struct Atom { uint state; uint valid; };

// Packed per gpu/pack.go: width, stateOffset, driveOffset,
// firstDriverOffset, firstDriverWidth, driverListHead, pad, pad.
struct WireRec { uint width; uint stateOffset; uint driveOffset; uint firstDriverOffset;
	uint firstDriverWidth; uint driverListHead; uint pad0; uint pad1; };
// Packed: width, outputStateOffset, nextIndex, pad.
struct DriverRec { uint width; uint outputStateOffset; uint nextIndex; uint pad0; };

layout(std430, binding = 0) buffer WireBuf    { WireRec wires[]; };
layout(std430, binding = 1) buffer DriverBuf  { DriverRec drivers[]; };
layout(std430, binding = 5) buffer StateBuf   { Atom wireState[]; };
layout(std430, binding = 6) buffer DriveBuf   { Atom wireDrive[]; };
layout(std430, binding = 7) buffer OutBuf     { Atom outputState[]; };
` + controlBufferDecl + `

const uint INVALID = 0xFFFFFFFFu;

// mergeBit mirrors sim.mergeBit bit for bit: Z yields the other side, X on
// either side (or disagreement) yields X; two driven, disagreeing bits are
// a genuine conflict.
void mergeBit(inout uint accState, inout uint accValid, uint dState, uint dValid, out bool conflict) {
	conflict = false;
	bool accZ = (accState == 0u) && (accValid == 0u);
	bool dZ = (dState == 0u) && (dValid == 0u);
	if (accZ) { accState = dState; accValid = dValid; return; }
	if (dZ) { return; }
	bool accX = (accValid == 0u);
	bool dX = (dValid == 0u);
	if (accX || dX) { accState = 1u; accValid = 0u; return; }
	if (accState != dState) { accState = 1u; accValid = 0u; conflict = true; }
}

// mergeAtomRange folds driver atoms at driverOffset into wireState[stateOffset..]
// across the wire's meaningful atoms, bit by bit (sim.mergeAtoms). Returns
// whether any bit position saw a genuine conflict.
bool mergeAtomRange(uint stateOffset, uint driverOffset, uint width) {
	bool anyConflict = false;
	uint nAtoms = (width + 31u) / 32u;
	for (uint a = 0u; a < nAtoms; a++) {
		uint bitsInAtom = min(32u, width - a * 32u);
		uint accState = wireState[stateOffset + a].state;
		uint accValid = wireState[stateOffset + a].valid;
		uint dState = outputState[driverOffset + a].state;
		uint dValid = outputState[driverOffset + a].valid;
		for (uint b = 0u; b < bitsInAtom; b++) {
			uint mask = 1u << b;
			uint as = (accState & mask) != 0u ? 1u : 0u;
			uint av = (accValid & mask) != 0u ? 1u : 0u;
			uint ds = (dState & mask) != 0u ? 1u : 0u;
			uint dv = (dValid & mask) != 0u ? 1u : 0u;
			bool conflict;
			uint rs, rv;
			rs = as; rv = av;
			mergeBit(rs, rv, ds, dv, conflict);
			if (conflict) anyConflict = true;
			accState = rs != 0u ? (accState | mask) : (accState & ~mask);
			accValid = rv != 0u ? (accValid | mask) : (accValid & ~mask);
		}
		wireState[stateOffset + a].state = accState;
		wireState[stateOffset + a].valid = accValid;
	}
	return anyConflict;
}

void main() {
	uint i = gl_GlobalInvocationID.x;
	if (i >= wires.length()) return;

	WireRec w = wires[i];
	uint width = w.width;
	uint stateOffset = w.stateOffset;
	uint nAtoms = (width + 31u) / 32u;

	Atom old[8];
	for (uint a = 0u; a < nAtoms; a++) old[a] = wireState[stateOffset + a];

	bool conflict = false;
	for (uint a = 0u; a < nAtoms; a++) {
		wireState[stateOffset + a].state = wireDrive[w.driveOffset + a].state;
		wireState[stateOffset + a].valid = wireDrive[w.driveOffset + a].valid;
	}

	if (w.firstDriverOffset != INVALID) {
		if (mergeAtomRange(stateOffset, w.firstDriverOffset, width)) conflict = true;
	}

	uint node = w.driverListHead;
	while (node != INVALID) {
		DriverRec d = drivers[node];
		if (mergeAtomRange(stateOffset, d.outputStateOffset, width)) conflict = true;
		node = d.nextIndex;
	}

	if (conflict) {
		atomicOr(hasConflicts, 1u);
		uint slot = atomicAdd(conflictListLen, 1u);
		if (slot < 256u) conflictWires[slot] = i;
	}

	bool changed = false;
	for (uint a = 0u; a < nAtoms; a++) {
		if (wireState[stateOffset + a].state != old[a].state || wireState[stateOffset + a].valid != old[a].valid) {
			changed = true;
		}
	}
	if (changed) atomicOr(wiresChanged, 1u);
}
`

const componentKernelShaderSource = `
#version 430

layout(local_size_x = 64) in;

struct Atom { uint state; uint valid; };

// Packed per gpu/pack.go: kind, outputCount, inlineOutputWidth,
// inlineOutputState, firstOutput, inputCount, firstInput, memoryOffset,
// memorySize, pad, pad, pad.
struct CompRec { uint kind; uint outputCount; uint inlineOutputWidth; uint inlineOutputState;
	uint firstOutput; uint inputCount; uint firstInput; uint memoryOffset; uint memorySize;
	uint pad0; uint pad1; uint pad2; };
// Packed: width, wireStateOffset, pad, pad.
struct InputRec { uint width; uint wireStateOffset; uint pad0; uint pad1; };

layout(std430, binding = 2) buffer CompBuf  { CompRec components[]; };
layout(std430, binding = 4) buffer InputBuf { InputRec inputs[]; };
layout(std430, binding = 5) buffer StateBuf { Atom wireState[]; };
layout(std430, binding = 7) buffer OutBuf   { Atom outputState[]; };
` + controlBufferDecl + `

// Per-atom truth tables, identical to sim/logic.go.
Atom andAtom(Atom a, Atom b) {
	Atom r;
	r.state = a.state & b.state;
	r.valid = (a.valid & b.valid) | (a.valid & ~a.state) | (b.valid & ~b.state);
	return r;
}
Atom orAtom(Atom a, Atom b) {
	Atom r;
	r.state = a.state | b.state;
	r.valid = (a.valid & b.valid) | (a.valid & a.state) | (b.valid & b.state);
	return r;
}
Atom xorAtom(Atom a, Atom b) {
	Atom r;
	r.state = a.state ^ b.state;
	r.valid = a.valid & b.valid;
	return r;
}
Atom notAtom(Atom a) {
	Atom r;
	r.state = ~a.state;
	r.valid = a.valid;
	return r;
}

const uint KIND_AND = 0u, KIND_OR = 1u, KIND_XOR = 2u, KIND_NAND = 3u, KIND_NOR = 4u,
	KIND_XNOR = 5u, KIND_NOT = 6u, KIND_BUFFER = 7u,
	KIND_ADD = 8u, KIND_SUB = 9u, KIND_NEG = 10u,
	KIND_LSH = 11u, KIND_LRSH = 12u, KIND_ARSH = 13u,
	KIND_HAND = 14u, KIND_HOR = 15u, KIND_HXOR = 16u,
	KIND_HNAND = 17u, KIND_HNOR = 18u, KIND_HXNOR = 19u,
	KIND_CMP_EQ = 20u, KIND_CMP_NE = 21u,
	KIND_CMP_ULT = 22u, KIND_CMP_UGT = 23u, KIND_CMP_ULE = 24u, KIND_CMP_UGE = 25u,
	KIND_CMP_SLT = 26u, KIND_CMP_SGT = 27u, KIND_CMP_SLE = 28u, KIND_CMP_SGE = 29u;

// atomMaskFor returns the meaningful-bit mask of atom a for width.
uint atomMaskFor(uint width, uint a) {
	uint lo = a * 32u;
	if (width >= lo + 32u) return 0xFFFFFFFFu;
	return (1u << (width - lo)) - 1u;
}

// inputAtom reads atom a of an input's wire state, yielding High-Z beyond
// the input's own atoms so a narrow input never reads a neighbor's state.
Atom inputAtom(uint inputIdx, uint a) {
	InputRec rec = inputs[inputIdx];
	uint nIn = (rec.width + 31u) / 32u;
	if (a >= nIn) {
		Atom z;
		z.state = 0u;
		z.valid = 0u;
		return z;
	}
	return wireState[rec.wireStateOffset + a];
}

// inputBit reads four-valued bit i of an input as 1-bit (state, valid) lanes.
Atom inputBit(uint inputIdx, uint i) {
	Atom at = inputAtom(inputIdx, i / 32u);
	uint sh = i % 32u;
	Atom r;
	r.state = (at.state >> sh) & 1u;
	r.valid = (at.valid >> sh) & 1u;
	return r;
}

// loadWords extracts evalWidth's meaningful bits of an input as plain
// binary words (sim.toWords): false if any bit in range is X or Z.
bool loadWords(uint inputIdx, uint evalWidth, out uint w[8]) {
	uint nEval = (evalWidth + 31u) / 32u;
	for (uint a = 0u; a < 8u; a++) w[a] = 0u;
	bool ok = true;
	for (uint a = 0u; a < nEval; a++) {
		uint m = atomMaskFor(evalWidth, a);
		Atom at = inputAtom(inputIdx, a);
		if ((at.valid & m) != m) ok = false;
		w[a] = at.state & m;
	}
	return ok;
}

bool wordBit(uint w[8], uint i) {
	return ((w[i / 32u] >> (i % 32u)) & 1u) != 0u;
}

// addInto adds b into a mod 2^width with cross-atom carries (sim.addWords).
void addInto(inout uint a[8], uint b[8], uint width) {
	uint n = (width + 31u) / 32u;
	uint carry = 0u;
	for (uint i = 0u; i < n; i++) {
		uint s = a[i] + b[i];
		uint c1 = s < a[i] ? 1u : 0u;
		uint s2 = s + carry;
		uint c2 = s2 < s ? 1u : 0u;
		a[i] = s2;
		carry = c1 + c2;
	}
	a[n - 1u] &= atomMaskFor(width, n - 1u);
}

// negInto two's-complements a mod 2^width (sim.negWords).
void negInto(inout uint a[8], uint width) {
	uint n = (width + 31u) / 32u;
	uint one[8];
	for (uint i = 0u; i < 8u; i++) one[i] = 0u;
	one[0] = 1u;
	for (uint i = 0u; i < n; i++) a[i] = ~a[i];
	addInto(a, one, width);
}

// shiftLeft/shiftRight shift a's low width bits in place, filling with 0
// (or the sign bit for an arithmetic right shift), per sim.shiftWordsLeft
// and sim.shiftWordsRight.
void shiftLeft(inout uint a[8], uint width, uint amt) {
	uint r[8];
	for (uint i = 0u; i < 8u; i++) r[i] = 0u;
	for (uint i = 0u; i < width; i++) {
		if (i >= amt && wordBit(a, i - amt)) r[i / 32u] |= 1u << (i % 32u);
	}
	for (uint i = 0u; i < 8u; i++) a[i] = r[i];
}

void shiftRight(inout uint a[8], uint width, uint amt, bool signFill) {
	uint r[8];
	for (uint i = 0u; i < 8u; i++) r[i] = 0u;
	for (uint i = 0u; i < width; i++) {
		uint src = i + amt;
		bool bit = (src < width) ? wordBit(a, src) : signFill;
		if (bit) r[i / 32u] |= 1u << (i % 32u);
	}
	for (uint i = 0u; i < 8u; i++) a[i] = r[i];
}

// cmpUnsignedWords/cmpSignedWords order two word vectors, mirroring
// sim.cmpUnsigned and sim.cmpSigned: -1 if a < b, 0 if equal, 1 if a > b.
int cmpUnsignedWords(uint a[8], uint b[8], uint n) {
	for (uint i = n; i > 0u; i--) {
		uint j = i - 1u;
		if (a[j] != b[j]) return a[j] < b[j] ? -1 : 1;
	}
	return 0;
}

int cmpSignedWords(uint a[8], uint b[8], uint width) {
	bool sa = wordBit(a, width - 1u);
	bool sb = wordBit(b, width - 1u);
	if (sa != sb) return sa ? -1 : 1;
	return cmpUnsignedWords(a, b, (width + 31u) / 32u);
}

void main() {
	uint i = gl_GlobalInvocationID.x;
	if (i >= components.length()) return;

	CompRec c = components[i];
	uint kind = c.kind;
	uint outWidth = c.inlineOutputWidth;
	uint outOffset = c.inlineOutputState;
	uint firstInput = c.firstInput;
	uint inputWidth = inputs[firstInput].width;
	uint nAtoms = (outWidth + 31u) / 32u;

	Atom result[8];
	for (uint a = 0u; a < 8u; a++) {
		result[a].state = 0u;
		result[a].valid = 0u;
	}

	if (kind <= KIND_BUFFER) {
		// Bitwise-logic kinds evaluate atom at a time (sim/logic.go).
		for (uint a = 0u; a < nAtoms; a++) {
			Atom r;
			if (kind == KIND_NOT) {
				r = notAtom(inputAtom(firstInput, a));
			} else if (kind == KIND_BUFFER) {
				Atom en = inputAtom(firstInput + 1u, 0u);
				Atom x = inputAtom(firstInput, a);
				bool enOne = (en.valid & 1u) != 0u && (en.state & 1u) != 0u;
				bool enZero = (en.valid & 1u) != 0u && (en.state & 1u) == 0u;
				if (enOne) {
					r = x;
				} else if (enZero) {
					r.state = 0u;
					r.valid = 0u;
				} else {
					r.state = 0xFFFFFFFFu;
					r.valid = 0u;
				}
			} else {
				Atom x = inputAtom(firstInput, a);
				Atom y = inputAtom(firstInput + 1u, a);
				if (kind == KIND_AND || kind == KIND_NAND) r = andAtom(x, y);
				else if (kind == KIND_OR || kind == KIND_NOR) r = orAtom(x, y);
				else r = xorAtom(x, y);
				if (kind == KIND_NAND || kind == KIND_NOR || kind == KIND_XNOR) r.state = ~r.state;
			}
			result[a] = r;
		}
	} else if (kind <= KIND_ARSH) {
		// Arithmetic and shifts operate on the state words; any X/Z bit in
		// an operand makes every output bit X (sim/ops.go).
		uint aw[8];
		bool ok = loadWords(firstInput, outWidth, aw);
		if (kind == KIND_NEG) {
			if (ok) negInto(aw, outWidth);
		} else if (kind == KIND_ADD || kind == KIND_SUB) {
			uint bw[8];
			if (!loadWords(firstInput + 1u, outWidth, bw)) ok = false;
			if (ok) {
				if (kind == KIND_SUB) negInto(bw, outWidth);
				addInto(aw, bw, outWidth);
			}
		} else {
			uint bw[8];
			if (!loadWords(firstInput + 1u, outWidth, bw)) ok = false;
			if (ok) {
				// Saturate the shift amount to width (sim.shiftAmount).
				uint amt = outWidth;
				bool big = false;
				for (uint k = 1u; k < 8u; k++) {
					if (bw[k] != 0u) big = true;
				}
				if (!big && bw[0] <= outWidth) amt = bw[0];
				if (kind == KIND_LSH) {
					shiftLeft(aw, outWidth, amt);
				} else {
					bool signFill = kind == KIND_ARSH && wordBit(aw, outWidth - 1u);
					shiftRight(aw, outWidth, amt, signFill);
				}
			}
		}
		for (uint a = 0u; a < nAtoms; a++) {
			uint m = atomMaskFor(outWidth, a);
			if (ok) {
				result[a].state = aw[a];
				result[a].valid = m;
			} else {
				result[a].state = m;
				result[a].valid = 0u;
			}
		}
	} else if (kind <= KIND_HXNOR) {
		// Horizontal reductions fold the first input's bits through the
		// scalar truth table into one output bit (sim.horizontalReduce).
		Atom acc;
		acc.state = (kind == KIND_HAND || kind == KIND_HNAND) ? 1u : 0u;
		acc.valid = 1u;
		for (uint b = 0u; b < inputWidth; b++) {
			Atom bitA = inputBit(firstInput, b);
			if (kind == KIND_HAND || kind == KIND_HNAND) acc = andAtom(acc, bitA);
			else if (kind == KIND_HOR || kind == KIND_HNOR) acc = orAtom(acc, bitA);
			else acc = xorAtom(acc, bitA);
			acc.state &= 1u;
			acc.valid &= 1u;
		}
		// The inverting variants leave an X/Z accumulator unchanged
		// (sim.invertBit).
		if (kind >= KIND_HNAND && acc.valid == 1u) acc.state ^= 1u;
		result[0] = acc;
	} else {
		// Comparisons evaluate over the first input's declared width and
		// produce one boolean bit, or X on any non-valid operand bit.
		uint aw[8];
		uint bw[8];
		bool ok = loadWords(firstInput, inputWidth, aw);
		if (!loadWords(firstInput + 1u, inputWidth, bw)) ok = false;
		if (!ok) {
			result[0].state = 1u;
			result[0].valid = 0u;
		} else {
			int cmp;
			if (kind >= KIND_CMP_SLT) cmp = cmpSignedWords(aw, bw, inputWidth);
			else cmp = cmpUnsignedWords(aw, bw, (inputWidth + 31u) / 32u);
			bool v;
			if (kind == KIND_CMP_EQ) v = cmp == 0;
			else if (kind == KIND_CMP_NE) v = cmp != 0;
			else if (kind == KIND_CMP_ULT || kind == KIND_CMP_SLT) v = cmp < 0;
			else if (kind == KIND_CMP_UGT || kind == KIND_CMP_SGT) v = cmp > 0;
			else if (kind == KIND_CMP_ULE || kind == KIND_CMP_SLE) v = cmp <= 0;
			else v = cmp >= 0;
			result[0].state = v ? 1u : 0u;
			result[0].valid = 1u;
		}
	}

	bool changed = false;
	for (uint a = 0u; a < nAtoms; a++) {
		uint m = atomMaskFor(outWidth, a);
		result[a].state &= m;
		result[a].valid &= m;
		if (outputState[outOffset + a].state != result[a].state || outputState[outOffset + a].valid != result[a].valid) {
			changed = true;
		}
		outputState[outOffset + a].state = result[a].state;
		outputState[outOffset + a].valid = result[a].valid;
	}
	if (changed) atomicOr(componentsChanged, 1u);
}
`

// resetShaderSource implements both the state-reset kernel (atoms -> High-Z,
// dispatched one work-item per atom over wire-state/output-state/memory)
// and the two per-inner-pass control-flag-clear kernels the settle loop
// drives between dispatches. conflict_list_len/has_conflicts are seeded to
// zero once per Run, not cleared per inner pass, so
// MODE_CLEAR_WIRES_CHANGED leaves them alone. Only gl_GlobalInvocationID.x
// == 0's single invocation touches the scalar flags.
const resetShaderSource = `
#version 430

layout(local_size_x = 64) in;

struct Atom { uint state; uint valid; };

layout(std430, binding = 8) buffer StateBuf { Atom atoms[]; };
` + controlBufferDecl + `

layout(location = 0) uniform uint mode;

const uint MODE_STATE = 0u;
const uint MODE_CLEAR_WIRES_CHANGED = 1u;
const uint MODE_CLEAR_COMPONENTS_CHANGED = 2u;
const uint MODE_SEED_CONTROL = 3u;

void main() {
	if (mode == MODE_CLEAR_WIRES_CHANGED) {
		if (gl_GlobalInvocationID.x == 0u) { wiresChanged = 0u; }
		return;
	}
	if (mode == MODE_CLEAR_COMPONENTS_CHANGED) {
		if (gl_GlobalInvocationID.x == 0u) { componentsChanged = 0u; }
		return;
	}
	if (mode == MODE_SEED_CONTROL) {
		if (gl_GlobalInvocationID.x == 0u) {
			wiresChanged = 0u; componentsChanged = 0u; conflictListLen = 0u; hasConflicts = 0u;
		}
		return;
	}
	uint i = gl_GlobalInvocationID.x;
	if (i >= atoms.length()) return;
	atoms[i].state = 0u;
	atoms[i].valid = 0u;
}
`
