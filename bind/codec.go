// Package bind is the marshalling core between statically typed Go callables
// and the runtime's stack calling convention. It converts values between
// native types and stack slots, and generates calling-convention-conformant
// trampolines from plain functions, methods, field accessors, and closures.
package bind

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/tethervm/tether/stack"
)

// Codec converts between one native type and one stack slot. Write pushes
// the value and returns the number of slots used; Read decodes the slot at
// idx or fails with a TypeMismatchError / OutOfRangeError.
type Codec struct {
	Type  reflect.Type
	Write func(s *stack.State, v reflect.Value) int
	Read  func(s *stack.State, idx int) (reflect.Value, error)
}

// Registry maps native types to their codecs. It is process-wide
// configuration: populate it eagerly, then generate trampolines. The first
// generation seals the registry; registration after that point is an error,
// so a trampoline can never bind to a codec registered behind its back.
type Registry struct {
	mu     sync.RWMutex
	codecs map[reflect.Type]*Codec
	sealed bool
}

// NewRegistry creates a registry pre-populated with the built-in codecs
// for bool, int, int64, float64, and string.
func NewRegistry() *Registry {
	r := &Registry{codecs: make(map[reflect.Type]*Codec)}
	r.installBuiltins()
	return r
}

// Register installs a codec for a native type. Registering a second codec
// for the same type fails with an AmbiguousCodecError; registering after
// the registry is sealed fails outright.
func (r *Registry) Register(t reflect.Type, c *Codec) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return fmt.Errorf("registry sealed: cannot register codec for %s after trampoline generation", t)
	}
	if _, ok := r.codecs[t]; ok {
		return &AmbiguousCodecError{Type: t}
	}
	cc := *c
	cc.Type = t
	r.codecs[t] = &cc
	return nil
}

// RegisterBoxed installs a boxed-handle codec for a pointer-to-struct type,
// taken from a sample value (e.g. (*Vec2)(nil)). The type occupies one slot
// holding an opaque boxed reference; aggregates are never flattened across
// slots.
func (r *Registry) RegisterBoxed(sample any) error {
	t := reflect.TypeOf(sample)
	if t == nil || t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("RegisterBoxed: want pointer to struct, got %v", t)
	}
	name := t.String()
	return r.Register(t, &Codec{
		Write: func(s *stack.State, v reflect.Value) int {
			s.PushBoxed(name, v.Interface())
			return 1
		},
		Read: func(s *stack.State, idx int) (reflect.Value, error) {
			v, ok := s.Get(idx)
			if !ok {
				return reflect.Value{}, &OutOfRangeError{Slot: s.AbsIndex(idx), Top: s.Top()}
			}
			obj := s.Registry().GetBoxed(v)
			if obj == nil {
				return reflect.Value{}, &TypeMismatchError{Slot: s.AbsIndex(idx), Want: t, Got: v.Kind()}
			}
			rv := reflect.ValueOf(obj.Native)
			if !rv.Type().AssignableTo(t) {
				return reflect.Value{}, &TypeMismatchError{Slot: s.AbsIndex(idx), Want: t, Got: stack.KindBoxed}
			}
			return rv, nil
		},
	})
}

// seal freezes the registry. Called by the trampoline generator.
func (r *Registry) seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// resolve selects the codec for a signature type, stripping one level of
// pointer indirection for pointers to codec-bearing value types. Resolution
// happens once per distinct type, at generation time; there is no per-call
// type selection.
func (r *Registry) resolve(t reflect.Type) (*Codec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.codecs[t]; ok {
		return c, nil
	}
	if t.Kind() == reflect.Pointer {
		if c, ok := r.codecs[t.Elem()]; ok {
			return c, nil
		}
	}
	return nil, &NoCodecError{Type: t}
}

// resolveAll resolves codecs for a parameter type list.
func (r *Registry) resolveAll(types []reflect.Type) ([]*Codec, error) {
	codecs := make([]*Codec, len(types))
	for i, t := range types {
		c, err := r.resolve(t)
		if err != nil {
			return nil, fmt.Errorf("parameter %d: %w", i+1, err)
		}
		codecs[i] = c
	}
	return codecs, nil
}

// ---------------------------------------------------------------------------
// Built-in codecs
// ---------------------------------------------------------------------------

func (r *Registry) installBuiltins() {
	reg := func(t reflect.Type, c *Codec) {
		c.Type = t
		r.codecs[t] = c
	}

	reg(reflect.TypeOf(false), &Codec{
		Write: func(s *stack.State, v reflect.Value) int {
			s.PushBool(v.Bool())
			return 1
		},
		Read: func(s *stack.State, idx int) (reflect.Value, error) {
			v, err := slotAt(s, idx)
			if err != nil {
				return reflect.Value{}, err
			}
			if !v.IsBool() {
				return reflect.Value{}, &TypeMismatchError{Slot: s.AbsIndex(idx), Want: reflect.TypeOf(false), Got: v.Kind()}
			}
			return reflect.ValueOf(v.Bool()), nil
		},
	})

	reg(reflect.TypeOf(int(0)), intCodec(func(n int64) reflect.Value { return reflect.ValueOf(int(n)) }, reflect.TypeOf(int(0))))
	reg(reflect.TypeOf(int64(0)), intCodec(func(n int64) reflect.Value { return reflect.ValueOf(n) }, reflect.TypeOf(int64(0))))

	reg(reflect.TypeOf(float64(0)), &Codec{
		Write: func(s *stack.State, v reflect.Value) int {
			s.PushFloat(v.Float())
			return 1
		},
		Read: func(s *stack.State, idx int) (reflect.Value, error) {
			v, err := slotAt(s, idx)
			if err != nil {
				return reflect.Value{}, err
			}
			// Integer-to-float widening is runtime-native, not a codec coercion.
			switch v.Kind() {
			case stack.KindFloat:
				return reflect.ValueOf(v.Float64()), nil
			case stack.KindInt:
				return reflect.ValueOf(float64(v.Int())), nil
			}
			return reflect.Value{}, &TypeMismatchError{Slot: s.AbsIndex(idx), Want: reflect.TypeOf(float64(0)), Got: v.Kind()}
		},
	})

	reg(reflect.TypeOf(""), &Codec{
		Write: func(s *stack.State, v reflect.Value) int {
			s.PushString(v.String())
			return 1
		},
		Read: func(s *stack.State, idx int) (reflect.Value, error) {
			v, err := slotAt(s, idx)
			if err != nil {
				return reflect.Value{}, err
			}
			str, ok := s.Registry().StringContent(v)
			if !ok {
				return reflect.Value{}, &TypeMismatchError{Slot: s.AbsIndex(idx), Want: reflect.TypeOf(""), Got: v.Kind()}
			}
			return reflect.ValueOf(str), nil
		},
	})
}

// intCodec builds an integer codec that converts through the given
// constructor, so int and int64 share one read/write shape.
func intCodec(mk func(int64) reflect.Value, want reflect.Type) *Codec {
	return &Codec{
		Write: func(s *stack.State, v reflect.Value) int {
			s.PushInt(v.Int())
			return 1
		},
		Read: func(s *stack.State, idx int) (reflect.Value, error) {
			v, err := slotAt(s, idx)
			if err != nil {
				return reflect.Value{}, err
			}
			if !v.IsInt() {
				return reflect.Value{}, &TypeMismatchError{Slot: s.AbsIndex(idx), Want: want, Got: v.Kind()}
			}
			return mk(v.Int()), nil
		},
	}
}

// slotAt fetches the value at idx or fails with an OutOfRangeError.
func slotAt(s *stack.State, idx int) (stack.Value, error) {
	v, ok := s.Get(idx)
	if !ok {
		return stack.Nil, &OutOfRangeError{Slot: s.AbsIndex(idx), Top: s.Top()}
	}
	return v, nil
}
