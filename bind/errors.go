package bind

import (
	"fmt"
	"reflect"

	"github.com/tethervm/tether/stack"
)

// ---------------------------------------------------------------------------
// Error taxonomy
// ---------------------------------------------------------------------------
//
// Call-time errors (TypeMismatchError, OutOfRangeError, InvalidReceiverError)
// surface through the runtime's error-signalling unwind; generation-time
// errors (AmbiguousCodecError, NoCodecError and friends) are returned from
// the generator and prevent the trampoline from being produced at all.

// TypeMismatchError reports a slot whose dynamic kind does not match the
// codec being applied.
type TypeMismatchError struct {
	Slot int
	Want reflect.Type
	Got  stack.Kind
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("slot %d: expected %s, got %s", e.Slot, e.Want, e.Got)
}

// OutOfRangeError reports a slot index outside the valid call-frame range.
type OutOfRangeError struct {
	Slot int
	Top  int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("slot %d out of range (frame has %d slots)", e.Slot, e.Top)
}

// AmbiguousCodecError reports a type that would end up with more than one
// registered codec. Detected at registration time, never at call time.
type AmbiguousCodecError struct {
	Type reflect.Type
}

func (e *AmbiguousCodecError) Error() string {
	return fmt.Sprintf("codec for %s already registered", e.Type)
}

// NoCodecError reports a signature type with no registered codec.
type NoCodecError struct {
	Type reflect.Type
}

func (e *NoCodecError) Error() string {
	return fmt.Sprintf("no codec registered for %s", e.Type)
}

// InvalidReceiverError reports a member trampoline's receiver slot that does
// not decode to an instance of the expected type.
type InvalidReceiverError struct {
	Slot int
	Want string
	Got  string
}

func (e *InvalidReceiverError) Error() string {
	return fmt.Sprintf("slot %d: receiver is %s, expected %s", e.Slot, e.Got, e.Want)
}
