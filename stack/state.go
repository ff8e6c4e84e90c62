// Package stack provides the host runtime surface the marshalling layer
// is written against: a call frame's operand stack with the runtime's
// 1-based/negative addressing convention, handle storage for strings and
// boxed native objects, and the error-signalling unwind protocol.
package stack

import (
	"fmt"
	"sync"
)

// NativeFunc is the fixed entry signature for native functions: it receives
// the runtime handle and returns the number of result slots it pushed.
type NativeFunc func(*State) int

// State is one runtime call frame: an operand stack plus the object storage
// its handles point into. A State is accessed by exactly one logical call
// at a time; whether independent States run on separate goroutines is the
// embedder's business.
type State struct {
	stack    []Value
	registry *ObjectRegistry
}

// NewState creates an empty call frame with its own object storage.
func NewState() *State {
	return &State{registry: NewObjectRegistry()}
}

// Registry returns the frame's object storage.
func (s *State) Registry() *ObjectRegistry { return s.registry }

// Top returns the number of occupied slots.
func (s *State) Top() int { return len(s.stack) }

// SetTop truncates or nil-extends the stack to n slots.
func (s *State) SetTop(n int) {
	if n < 0 {
		n = 0
	}
	for len(s.stack) < n {
		s.stack = append(s.stack, Nil)
	}
	s.stack = s.stack[:n]
}

// AbsIndex converts an index to its positive form. Positive indices count
// 1-based from the frame bottom; negative indices count from the top
// (-1 is the topmost slot). Zero is never valid.
func (s *State) AbsIndex(idx int) int {
	if idx >= 0 {
		return idx
	}
	return len(s.stack) + 1 + idx
}

// InRange reports whether idx addresses an occupied slot.
func (s *State) InRange(idx int) bool {
	abs := s.AbsIndex(idx)
	return abs >= 1 && abs <= len(s.stack)
}

// Get returns the value at idx. The second result is false when idx is
// outside the occupied range.
func (s *State) Get(idx int) (Value, bool) {
	abs := s.AbsIndex(idx)
	if abs < 1 || abs > len(s.stack) {
		return Nil, false
	}
	return s.stack[abs-1], true
}

// Set overwrites the value at an occupied slot.
func (s *State) Set(idx int, v Value) bool {
	abs := s.AbsIndex(idx)
	if abs < 1 || abs > len(s.stack) {
		return false
	}
	s.stack[abs-1] = v
	return true
}

// ---------------------------------------------------------------------------
// Push helpers
// ---------------------------------------------------------------------------

// Push appends a value to the stack.
func (s *State) Push(v Value) {
	s.stack = append(s.stack, v)
}

// PushNil pushes the nil value.
func (s *State) PushNil() { s.Push(Nil) }

// PushBool pushes a boolean.
func (s *State) PushBool(b bool) { s.Push(FromBool(b)) }

// PushInt pushes an integer.
func (s *State) PushInt(n int64) { s.Push(FromInt(n)) }

// PushFloat pushes a float.
func (s *State) PushFloat(f float64) { s.Push(FromFloat64(f)) }

// PushString interns a string and pushes its handle.
func (s *State) PushString(str string) { s.Push(s.registry.NewString(str)) }

// PushBoxed boxes a native value and pushes its handle.
func (s *State) PushBoxed(typeName string, native any) Value {
	v := s.registry.NewBoxed(&BoxedObject{TypeName: typeName, Native: native})
	s.Push(v)
	return v
}

// ---------------------------------------------------------------------------
// Typed reads (handle resolution)
// ---------------------------------------------------------------------------

// StringAt resolves the string behind the slot at idx.
func (s *State) StringAt(idx int) (string, bool) {
	v, ok := s.Get(idx)
	if !ok {
		return "", false
	}
	return s.registry.StringContent(v)
}

// BoxedAt resolves the boxed object behind the slot at idx.
func (s *State) BoxedAt(idx int) (*BoxedObject, bool) {
	v, ok := s.Get(idx)
	if !ok {
		return nil, false
	}
	obj := s.registry.GetBoxed(v)
	return obj, obj != nil
}

// KindAt returns the dynamic kind of the slot at idx.
func (s *State) KindAt(idx int) (Kind, bool) {
	v, ok := s.Get(idx)
	if !ok {
		return KindNil, false
	}
	return v.Kind(), true
}

// ---------------------------------------------------------------------------
// Error signalling (panic/recover unwind, intercepted by ProtectedCall)
// ---------------------------------------------------------------------------

// ScriptError is the unwind payload for runtime-level errors raised while
// a native call is in flight.
type ScriptError struct {
	Message string
	Cause   error
}

func (e *ScriptError) Error() string { return e.Message }

// Unwrap exposes the underlying typed error, if any.
func (e *ScriptError) Unwrap() error { return e.Cause }

// RaiseError signals a runtime error. It never returns.
func (s *State) RaiseError(format string, args ...any) {
	panic(&ScriptError{Message: fmt.Sprintf(format, args...)})
}

// Raise signals a runtime error carrying a typed cause. It never returns.
func (s *State) Raise(err error) {
	panic(&ScriptError{Message: err.Error(), Cause: err})
}

// ProtectedCall invokes a native function, intercepting the error unwind.
// On error the stack is restored to its height at entry, so a failed call
// never leaves partial results behind.
func (s *State) ProtectedCall(fn NativeFunc) (results int, err error) {
	saved := len(s.stack)
	defer func() {
		if r := recover(); r != nil {
			se, ok := r.(*ScriptError)
			if !ok {
				panic(r) // not a runtime error, re-panic
			}
			s.stack = s.stack[:saved]
			results = 0
			err = se
		}
	}()
	return fn(s), nil
}

// ---------------------------------------------------------------------------
// Namespace: name -> native function registration table
// ---------------------------------------------------------------------------

// Namespace is the runtime's registration table for native functions.
// The marshalling layer only produces NativeFunc values; storing them under
// names is the runtime's side of the contract.
type Namespace struct {
	mu      sync.RWMutex
	entries map[string]NativeFunc
}

// NewNamespace creates an empty registration table.
func NewNamespace() *Namespace {
	return &Namespace{entries: make(map[string]NativeFunc)}
}

// Register stores fn under name, replacing any previous entry.
func (ns *Namespace) Register(name string, fn NativeFunc) {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	ns.entries[name] = fn
}

// Lookup returns the function registered under name.
func (ns *Namespace) Lookup(name string) (NativeFunc, bool) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	fn, ok := ns.entries[name]
	return fn, ok
}

// Names returns the registered names, unordered.
func (ns *Namespace) Names() []string {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	names := make([]string, 0, len(ns.entries))
	for name := range ns.entries {
		names = append(names, name)
	}
	return names
}
