package bind

import (
	"fmt"
	"reflect"

	"github.com/tethervm/tether/stack"
)

// Apply invokes an arbitrary callable with its leading parameters taken
// from extra (prepended positionally) and the remaining trailing parameters
// read from stack slots base, base+1, ... . The native result is returned
// to the caller, not pushed, so the result types need no registered codecs.
// A callable returning (T, error) yields T and the error separately;
// multiple non-error results come back as []any.
func (r *Registry) Apply(s *stack.State, base int, fn any, extra ...any) (any, error) {
	out, t, err := r.applyCall(s, base, fn, extra)
	if err != nil {
		return nil, err
	}
	if n := t.NumOut(); n > 0 && t.Out(n-1) == errType {
		last := out[n-1]
		if !last.IsNil() {
			return nil, last.Interface().(error)
		}
		out = out[:n-1]
	}
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		return out[0].Interface(), nil
	default:
		results := make([]any, len(out))
		for i, v := range out {
			results[i] = v.Interface()
		}
		return results, nil
	}
}

// Map performs the same extraction and invocation as Apply but pushes the
// results through the result packer and reports the produced slot count,
// for composition inside a trampoline body.
func (r *Registry) Map(s *stack.State, base int, fn any, extra ...any) (int, error) {
	out, t, err := r.applyCall(s, base, fn, extra)
	if err != nil {
		return 0, err
	}
	plan, err := r.planResults(t)
	if err != nil {
		return 0, err
	}
	if plan.trailErr {
		last := out[len(out)-1]
		if !last.IsNil() {
			return 0, last.Interface().(error)
		}
		out = out[:len(out)-1]
		plan.trailErr = false
	}
	return plan.pack(s, out), nil
}

// applyCall assembles the full argument list and invokes fn. The codecs for
// the stack-read tail are resolved here because the callable is supplied at
// the call site rather than at generation time.
func (r *Registry) applyCall(s *stack.State, base int, fn any, extra []any) ([]reflect.Value, reflect.Type, error) {
	fv := reflect.ValueOf(fn)
	if !fv.IsValid() || fv.Kind() != reflect.Func {
		return nil, nil, fmt.Errorf("apply: want a function, got %v", reflect.TypeOf(fn))
	}
	t := fv.Type()
	if t.IsVariadic() {
		return nil, nil, fmt.Errorf("apply: variadic callables are not supported")
	}
	if len(extra) > t.NumIn() {
		return nil, nil, fmt.Errorf("apply: %d extra arguments for a %d-parameter callable", len(extra), t.NumIn())
	}

	args := make([]reflect.Value, 0, t.NumIn())
	for i, e := range extra {
		ev := reflect.ValueOf(e)
		if !ev.IsValid() || !ev.Type().AssignableTo(t.In(i)) {
			return nil, nil, fmt.Errorf("apply: extra argument %d is not assignable to %s", i+1, t.In(i))
		}
		args = append(args, ev)
	}

	codecs, err := r.resolveAll(paramTypes(t, len(extra)))
	if err != nil {
		return nil, nil, err
	}
	tail, err := unpackArgs(s, base, codecs)
	if err != nil {
		return nil, nil, err
	}
	args = append(args, tail...)

	return fv.Call(args), t, nil
}
