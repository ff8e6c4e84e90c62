// Package snapshot captures a call frame's slots for crash reports. When a
// marshalling error unwinds a native call, the embedder can record what the
// stack actually held. Encoding is canonical CBOR so snapshots of the same
// frame are byte-identical.
package snapshot

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/tethervm/tether/stack"
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("snapshot: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Slot records one stack slot's kind and payload. Boxed objects record only
// their type name; the native value never leaves the process.
type Slot struct {
	Index    int     `cbor:"1,keyasint"`
	Kind     string  `cbor:"2,keyasint"`
	Int      int64   `cbor:"3,keyasint,omitempty"`
	Float    float64 `cbor:"4,keyasint,omitempty"`
	Bool     bool    `cbor:"5,keyasint,omitempty"`
	Str      string  `cbor:"6,keyasint,omitempty"`
	TypeName string  `cbor:"7,keyasint,omitempty"`
}

// Frame is a point-in-time picture of a call frame.
type Frame struct {
	Top   int    `cbor:"1,keyasint"`
	Slots []Slot `cbor:"2,keyasint"`
	Err   string `cbor:"3,keyasint,omitempty"`
}

// Capture snapshots every occupied slot of s. err, when non-nil, is the
// failure that prompted the capture.
func Capture(s *stack.State, err error) *Frame {
	f := &Frame{Top: s.Top()}
	if err != nil {
		f.Err = err.Error()
	}
	for i := 1; i <= s.Top(); i++ {
		v, _ := s.Get(i)
		slot := Slot{Index: i, Kind: v.Kind().String()}
		switch v.Kind() {
		case stack.KindInt:
			slot.Int = v.Int()
		case stack.KindFloat:
			slot.Float = v.Float64()
		case stack.KindBool:
			slot.Bool = v.Bool()
		case stack.KindString:
			slot.Str, _ = s.StringAt(i)
		case stack.KindBoxed:
			if obj, ok := s.BoxedAt(i); ok {
				slot.TypeName = obj.TypeName
			}
		}
		f.Slots = append(f.Slots, slot)
	}
	return f
}

// Marshal serializes a Frame to canonical CBOR bytes.
func Marshal(f *Frame) ([]byte, error) {
	return cborEncMode.Marshal(f)
}

// Unmarshal deserializes a Frame from CBOR bytes.
func Unmarshal(data []byte) (*Frame, error) {
	var f Frame
	if err := cbor.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("snapshot: unmarshal frame: %w", err)
	}
	return &f, nil
}
