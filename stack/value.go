package stack

import (
	"math"
)

// Value represents one dynamically typed runtime value using NaN-boxing.
//
// All values are 64-bit IEEE 754 doubles. Non-float values live in the
// quiet-NaN space, distinguished by tag bits in the mantissa.
//
// Encoding scheme:
//   - Float: native IEEE 754 double (any non-tagged bit pattern)
//   - Int: quiet NaN + tagInt + 48-bit signed payload
//   - Special: quiet NaN + tagSpecial + special ID (nil/true/false)
//   - Handle: quiet NaN + tagHandle + marker byte + 24-bit registry ID
//     (strings and boxed native objects live behind handles)
type Value uint64

const (
	// Quiet NaN prefix: exponent all 1s, quiet bit set, sign bit 0.
	nanBits uint64 = 0x7FF8000000000000

	// Tag mask: 3 bits within the NaN mantissa space.
	tagMask uint64 = 0x0007000000000000

	// Payload mask: 48 bits.
	payloadMask uint64 = 0x0000FFFFFFFFFFFF

	tagInt     uint64 = 0x0001000000000000 // 48-bit signed integer
	tagSpecial uint64 = 0x0002000000000000 // nil, true, false
	tagHandle  uint64 = 0x0003000000000000 // registry handle (marker | id)

	// Sign bit and extension mask for 48-bit integers.
	intSignBit    uint64 = 0x0000800000000000
	intSignExtend uint64 = 0xFFFF000000000000
)

// Special value payloads.
const (
	specialNil   uint64 = 0
	specialTrue  uint64 = 1
	specialFalse uint64 = 2
)

// Pre-defined special values.
const (
	Nil   Value = Value(nanBits | tagSpecial | specialNil)
	True  Value = Value(nanBits | tagSpecial | specialTrue)
	False Value = Value(nanBits | tagSpecial | specialFalse)
)

// Int range (48-bit signed).
const (
	MaxInt int64 = (1 << 47) - 1
	MinInt int64 = -(1 << 47)
)

// Handle markers occupy the top byte of the 32-bit handle payload.
// The remaining 24 bits are the registry ID.
const (
	stringMarker uint32 = 1 << 24
	boxedMarker  uint32 = 2 << 24
	markerMask   uint32 = 0xFF << 24
)

// Kind classifies a Value for diagnostics and codec checks.
type Kind int

const (
	KindNil Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindBoxed
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "boolean"
	case KindInt:
		return "integer"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBoxed:
		return "boxed object"
	default:
		return "unknown"
	}
}

// ---------------------------------------------------------------------------
// Type checking
// ---------------------------------------------------------------------------

// IsFloat returns true if v represents a float64 value.
// A value is a float unless it is one of our tagged quiet NaNs.
func (v Value) IsFloat() bool {
	bits := uint64(v)
	if (bits & 0x7FF0000000000000) != 0x7FF0000000000000 {
		return true // exponent not all 1s: ordinary float
	}
	if (bits & 0x000FFFFFFFFFFFFF) == 0 {
		return true // +/-Inf
	}
	if (bits & nanBits) != nanBits {
		return true // signaling NaN, treat as float
	}
	return (bits & tagMask) == 0 // untagged quiet NaN is a real NaN
}

// IsInt returns true if v represents a small integer.
func (v Value) IsInt() bool {
	return (uint64(v) & (nanBits | tagMask)) == (nanBits | tagInt)
}

// IsHandle returns true if v is a registry handle (string or boxed object).
func (v Value) IsHandle() bool {
	return (uint64(v) & (nanBits | tagMask)) == (nanBits | tagHandle)
}

// IsNil returns true if v is the nil value.
func (v Value) IsNil() bool { return v == Nil }

// IsBool returns true if v is true or false.
func (v Value) IsBool() bool { return v == True || v == False }

// IsString returns true if v is a string handle.
func (v Value) IsString() bool {
	return v.IsHandle() && (v.handleID()&markerMask) == stringMarker
}

// IsBoxed returns true if v is a boxed native object handle.
func (v Value) IsBoxed() bool {
	return v.IsHandle() && (v.handleID()&markerMask) == boxedMarker
}

// Kind returns the dynamic kind of v.
func (v Value) Kind() Kind {
	switch {
	case v == Nil:
		return KindNil
	case v == True, v == False:
		return KindBool
	case v.IsInt():
		return KindInt
	case v.IsString():
		return KindString
	case v.IsBoxed():
		return KindBoxed
	default:
		return KindFloat
	}
}

// ---------------------------------------------------------------------------
// Float operations
// ---------------------------------------------------------------------------

// Float64 returns v as a float64. Panics if v is not a float.
func (v Value) Float64() float64 {
	if !v.IsFloat() {
		panic("Value.Float64: not a float")
	}
	return math.Float64frombits(uint64(v))
}

// FromFloat64 creates a Value from a float64.
func FromFloat64(f float64) Value {
	return Value(math.Float64bits(f))
}

// ---------------------------------------------------------------------------
// Int operations
// ---------------------------------------------------------------------------

// Int returns v as an int64. Panics if v is not an integer.
func (v Value) Int() int64 {
	if !v.IsInt() {
		panic("Value.Int: not an integer")
	}
	payload := uint64(v) & payloadMask
	if (payload & intSignBit) != 0 {
		payload |= intSignExtend
	}
	return int64(payload)
}

// FromInt creates a Value from an int64. Panics if n is out of range.
func FromInt(n int64) Value {
	if n > MaxInt || n < MinInt {
		panic("FromInt: value out of range")
	}
	return Value(nanBits | tagInt | (uint64(n) & payloadMask))
}

// TryFromInt creates a Value from an int64, returning false if out of range.
func TryFromInt(n int64) (Value, bool) {
	if n > MaxInt || n < MinInt {
		return Nil, false
	}
	return Value(nanBits | tagInt | (uint64(n) & payloadMask)), true
}

// ---------------------------------------------------------------------------
// Boolean operations
// ---------------------------------------------------------------------------

// Bool returns v as a bool. Panics if v is not true or false.
func (v Value) Bool() bool {
	switch v {
	case True:
		return true
	case False:
		return false
	default:
		panic("Value.Bool: not a boolean")
	}
}

// FromBool creates a Value from a bool.
func FromBool(b bool) Value {
	if b {
		return True
	}
	return False
}

// ---------------------------------------------------------------------------
// Handle operations
// ---------------------------------------------------------------------------

// handleID returns the marker|id payload of a handle value.
func (v Value) handleID() uint32 {
	return uint32(uint64(v) & payloadMask)
}

// fromHandleID creates a Value from a marker|id payload.
func fromHandleID(id uint32) Value {
	return Value(nanBits | tagHandle | uint64(id))
}

// IsTruthy returns true if v is considered truthy in conditionals.
// Only nil and false are falsy.
func (v Value) IsTruthy() bool {
	return v != False && v != Nil
}
