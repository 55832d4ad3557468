package sim

import (
	"errors"
	"fmt"
)

// Builder and arena errors.
var (
	ErrWidthOutOfRange = errors.New("sim: wire width out of range")
	ErrOutOfMemory     = errors.New("sim: arena out of memory")
	ErrInvalidWireID   = errors.New("sim: invalid wire id")
	ErrTooManyInputs   = errors.New("sim: too many inputs")

	// LogicState conversion errors.
	ErrUnrepresentable = errors.New("sim: state is not representable as an integer")
	ErrInvalidWidth    = errors.New("sim: width out of range")

	// ErrMaxStepsReached is returned by Simulator.Run when max_steps was
	// exhausted with changes still pending.
	ErrMaxStepsReached = errors.New("sim: max steps reached without settling")
)

// IllegalCharacterError identifies the offending byte found while parsing
// a LogicState string; callers match it with errors.As.
type IllegalCharacterError struct {
	Byte byte
}

func (e *IllegalCharacterError) Error() string {
	return fmt.Sprintf("sim: illegal character %q", e.Byte)
}

// ConflictError is returned by Run when one or more wires settled with two
// non-Z, non-X drivers disagreeing at some bit.
// ConflictingWires is truncated to the 256-slot conflict buffer; its
// absence of a wire does not mean that wire has no conflict.
type ConflictError struct {
	ConflictingWires []WireID
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("sim: %d wire(s) report conflicting drivers", len(e.ConflictingWires))
}
