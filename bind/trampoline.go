package bind

import (
	"fmt"
	"reflect"

	"github.com/tethervm/tether/stack"
)

// ---------------------------------------------------------------------------
// Trampoline generation
// ---------------------------------------------------------------------------
//
// A trampoline is a stack.NativeFunc closing over a native callable and the
// codecs its signature resolved to. Everything type-shaped is decided here,
// once; the generated function does no type selection per call. Trampolines
// are immutable after generation and safe to share across runtime instances.
//
// Four callable shapes exist: plain function, member method, member field
// accessor, and generic closure. The shape is chosen by which constructor
// the caller uses; there is no runtime dispatch hierarchy.

// Func generates a trampoline for a plain function. Arguments occupy slots
// 1..N of the frame; results are pushed and their count returned.
func (r *Registry) Func(fn any) (stack.NativeFunc, error) {
	fv := reflect.ValueOf(fn)
	if !fv.IsValid() || fv.Kind() != reflect.Func {
		return nil, fmt.Errorf("Func: want a function, got %v", reflect.TypeOf(fn))
	}
	return r.buildCall(fv, nil)
}

// Closure generates a trampoline for an arbitrary callable value (lambda,
// method value, bound closure). The layout is identical to Func; the only
// difference is that the invocation target is the captured value rather
// than a declared function.
func (r *Registry) Closure(fn any) (stack.NativeFunc, error) {
	return r.Func(fn)
}

// Method generates a trampoline for a method of the receiver type given by
// sample (e.g. (*Counter)(nil)). Slot 1 decodes to the receiver; slots
// 2..N+1 decode the method's own parameters.
//
// The receiver binding is fixed at generation time. For a member inherited
// from an embedded type, use MethodOf so the derived/owner choice is
// explicit and checked; generating from the base type produces a trampoline
// that only accepts base-type receivers.
func (r *Registry) Method(sample any, name string) (stack.NativeFunc, error) {
	rt, err := receiverType(sample)
	if err != nil {
		return nil, err
	}
	m, ok := rt.MethodByName(name)
	if !ok {
		return nil, fmt.Errorf("Method: %s has no method %s", rt, name)
	}
	return r.buildCall(m.Func, &receiverSpec{recvType: rt})
}

// MethodOf generates a trampoline for a member declared on owner but
// invoked through derived. Generation fails unless derived actually reaches
// owner through its embedded fields and owner declares the method, so an
// inherited member can never silently bind the wrong receiver decoding.
// The produced trampoline expects derived-type receivers.
func (r *Registry) MethodOf(derived, owner any, name string) (stack.NativeFunc, error) {
	dt, err := receiverType(derived)
	if err != nil {
		return nil, err
	}
	ot, err := receiverType(owner)
	if err != nil {
		return nil, err
	}
	if _, ok := ot.MethodByName(name); !ok {
		return nil, fmt.Errorf("MethodOf: owner %s does not declare method %s", ot, name)
	}
	if dt != ot && !embedsType(dt.Elem(), ot.Elem()) {
		return nil, fmt.Errorf("MethodOf: %s does not embed %s; receiver layouts are incompatible", dt, ot)
	}
	m, ok := dt.MethodByName(name)
	if !ok {
		return nil, fmt.Errorf("MethodOf: method %s not reachable from %s", name, dt)
	}
	return r.buildCall(m.Func, &receiverSpec{recvType: dt})
}

// Field generates a dual read/write trampoline for a struct field. Invoked
// with only the receiver slot it pushes the field's current value (1
// result); invoked with receiver plus one value slot it assigns the field
// (0 results). Arity selects get vs set.
func (r *Registry) Field(sample any, name string) (stack.NativeFunc, error) {
	rt, err := receiverType(sample)
	if err != nil {
		return nil, err
	}
	return r.buildField(rt, name)
}

// FieldOf is the field analog of MethodOf: owner must declare the field and
// derived must embed owner. The trampoline expects derived-type receivers.
func (r *Registry) FieldOf(derived, owner any, name string) (stack.NativeFunc, error) {
	dt, err := receiverType(derived)
	if err != nil {
		return nil, err
	}
	ot, err := receiverType(owner)
	if err != nil {
		return nil, err
	}
	if _, ok := ot.Elem().FieldByName(name); !ok {
		return nil, fmt.Errorf("FieldOf: owner %s has no field %s", ot, name)
	}
	if dt != ot && !embedsType(dt.Elem(), ot.Elem()) {
		return nil, fmt.Errorf("FieldOf: %s does not embed %s; receiver layouts are incompatible", dt, ot)
	}
	return r.buildField(dt, name)
}

// ---------------------------------------------------------------------------
// Shared generation machinery
// ---------------------------------------------------------------------------

// receiverSpec marks a callable whose first parameter is the distinguished
// receiver rather than an ordinary argument. Its decoding rule differs:
// the slot must hold a boxed instance assignable to recvType.
type receiverSpec struct {
	recvType reflect.Type
}

// buildCall assembles unpack -> invoke -> pack for a callable value. When
// recv is non-nil the callable's first parameter is the receiver, read from
// slot 1 with receiver decoding; ordinary parameters follow.
func (r *Registry) buildCall(fv reflect.Value, recv *receiverSpec) (stack.NativeFunc, error) {
	t := fv.Type()
	if t.IsVariadic() {
		return nil, fmt.Errorf("variadic callables are not supported")
	}

	skip := 0
	if recv != nil {
		skip = 1
	}
	codecs, err := r.resolveAll(paramTypes(t, skip))
	if err != nil {
		return nil, err
	}
	plan, err := r.planResults(t)
	if err != nil {
		return nil, err
	}
	// Sealing happens only once a trampoline actually exists; a failed
	// generation leaves the registry open for the missing codec.
	r.seal()

	if recv == nil {
		return func(s *stack.State) int {
			args, err := unpackArgs(s, 1, codecs)
			if err != nil {
				s.Raise(err)
			}
			return plan.pack(s, fv.Call(args))
		}, nil
	}

	rt := recv.recvType
	return func(s *stack.State) int {
		self := readReceiver(s, 1, rt)
		args, err := unpackArgs(s, 2, codecs)
		if err != nil {
			s.Raise(err)
		}
		return plan.pack(s, fv.Call(append([]reflect.Value{self}, args...)))
	}, nil
}

// buildField assembles the get/set trampoline for a field accessed through
// recvType receivers. Promoted fields resolve through their embedding path.
func (r *Registry) buildField(recvType reflect.Type, name string) (stack.NativeFunc, error) {
	sf, ok := recvType.Elem().FieldByName(name)
	if !ok {
		return nil, fmt.Errorf("%s has no field %s", recvType, name)
	}
	c, err := r.resolve(sf.Type)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", name, err)
	}
	index := sf.Index
	r.seal()

	return func(s *stack.State) int {
		self := readReceiver(s, 1, recvType)
		// A field promoted through a pointer embed is unreachable when
		// that pointer is nil; surface it as a bad receiver, not a panic.
		field, ferr := self.Elem().FieldByIndexErr(index)
		if ferr != nil {
			s.Raise(&InvalidReceiverError{Slot: 1, Want: recvType.String(), Got: "nil embedded pointer"})
		}
		if s.Top() <= 1 {
			return c.Write(s, field) // read: push current value
		}
		v, err := c.Read(s, 2)
		if err != nil {
			s.Raise(fmt.Errorf("field %s: %w", name, err))
		}
		field.Set(v)
		return 0
	}, nil
}

// readReceiver decodes the receiver slot. Failures raise through the
// runtime: the receiver either is not a boxed instance at all or is an
// instance of an unrelated type.
func readReceiver(s *stack.State, idx int, want reflect.Type) reflect.Value {
	v, ok := s.Get(idx)
	if !ok {
		s.Raise(&OutOfRangeError{Slot: idx, Top: s.Top()})
	}
	obj := s.Registry().GetBoxed(v)
	if obj == nil {
		s.Raise(&InvalidReceiverError{Slot: idx, Want: want.String(), Got: v.Kind().String()})
	}
	rv := reflect.ValueOf(obj.Native)
	if !rv.Type().AssignableTo(want) {
		s.Raise(&InvalidReceiverError{Slot: idx, Want: want.String(), Got: obj.TypeName})
	}
	return rv
}

// receiverType validates a receiver sample and returns its pointer type.
func receiverType(sample any) (reflect.Type, error) {
	t := reflect.TypeOf(sample)
	if t == nil || t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("receiver: want pointer to struct sample, got %v", t)
	}
	return t, nil
}

// embedsType reports whether struct type d reaches struct type o through
// anonymous (embedded) fields, directly or transitively.
func embedsType(d, o reflect.Type) bool {
	if d.Kind() != reflect.Struct {
		return false
	}
	for i := 0; i < d.NumField(); i++ {
		f := d.Field(i)
		if !f.Anonymous {
			continue
		}
		ft := f.Type
		if ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if ft == o {
			return true
		}
		if ft.Kind() == reflect.Struct && embedsType(ft, o) {
			return true
		}
	}
	return false
}
