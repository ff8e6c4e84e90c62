package stack

import (
	"sync"
)

// ---------------------------------------------------------------------------
// Object storage: strings and boxed native objects behind handles
// ---------------------------------------------------------------------------

// BoxedObject holds an opaque native value together with its type name.
// The stack owns the handle; the native value itself stays a Go reference.
type BoxedObject struct {
	TypeName string
	Native   any
}

// ObjectRegistry stores the heap-like values a frame's slots can point to.
// Handles are marker-tagged 24-bit IDs; the registry keeps Go references
// alive for as long as the runtime instance exists.
type ObjectRegistry struct {
	mu      sync.RWMutex
	strings map[uint32]string
	boxed   map[uint32]*BoxedObject
	nextStr uint32
	nextBox uint32
}

// NewObjectRegistry creates an empty registry.
func NewObjectRegistry() *ObjectRegistry {
	return &ObjectRegistry{
		strings: make(map[uint32]string),
		boxed:   make(map[uint32]*BoxedObject),
		nextStr: 1, // 0 means invalid
		nextBox: 1,
	}
}

// NewString interns a Go string and returns its handle value.
func (r *ObjectRegistry) NewString(s string) Value {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextStr
	r.nextStr++
	r.strings[id] = s
	return fromHandleID(id | stringMarker)
}

// StringContent returns the Go string behind a string handle.
func (r *ObjectRegistry) StringContent(v Value) (string, bool) {
	if !v.IsString() {
		return "", false
	}
	id := v.handleID() &^ markerMask
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.strings[id]
	return s, ok
}

// NewBoxed wraps a native value and returns its handle value.
func (r *ObjectRegistry) NewBoxed(obj *BoxedObject) Value {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextBox
	r.nextBox++
	r.boxed[id] = obj
	return fromHandleID(id | boxedMarker)
}

// GetBoxed returns the BoxedObject behind a boxed handle.
func (r *ObjectRegistry) GetBoxed(v Value) *BoxedObject {
	if !v.IsBoxed() {
		return nil
	}
	id := v.handleID() &^ markerMask
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.boxed[id]
}

// Release drops a handle's backing object so Go can collect it.
func (r *ObjectRegistry) Release(v Value) {
	if !v.IsHandle() {
		return
	}
	id := v.handleID()
	r.mu.Lock()
	defer r.mu.Unlock()
	switch id & markerMask {
	case stringMarker:
		delete(r.strings, id&^markerMask)
	case boxedMarker:
		delete(r.boxed, id&^markerMask)
	}
}

// Counts returns the number of live strings and boxed objects.
func (r *ObjectRegistry) Counts() (strings, boxed int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.strings), len(r.boxed)
}
