package bind

import (
	"errors"
	"strings"
	"testing"

	"github.com/tethervm/tether/stack"
)

type counter struct {
	Count int64
	Label string
}

func (c *counter) Add(n int64) int64 {
	c.Count += n
	return c.Count
}

func (c *counter) Reset() {
	c.Count = 0
}

type namedCounter struct {
	counter
	Name string
}

type lazyCounter struct {
	*counter
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	if err := r.RegisterBoxed((*counter)(nil)); err != nil {
		t.Fatal(err)
	}
	if err := r.RegisterBoxed((*namedCounter)(nil)); err != nil {
		t.Fatal(err)
	}
	return r
}

func TestFunc_MatchesNativeCall(t *testing.T) {
	r := NewRegistry()
	concat := func(a string, b string, n int) string {
		return strings.Repeat(a+b, n)
	}

	tramp, err := r.Func(concat)
	if err != nil {
		t.Fatal(err)
	}

	s := stack.NewState()
	s.PushString("ab")
	s.PushString("cd")
	s.PushInt(2)

	n, err := s.ProtectedCall(tramp)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("results = %d, want 1", n)
	}
	got, _ := s.StringAt(-1)
	if want := concat("ab", "cd", 2); got != want {
		t.Errorf("trampoline result %q, native result %q", got, want)
	}
}

func TestFunc_VoidProducesZero(t *testing.T) {
	r := NewRegistry()
	called := false
	tramp, err := r.Func(func() { called = true })
	if err != nil {
		t.Fatal(err)
	}
	s := stack.NewState()
	n, err := s.ProtectedCall(tramp)
	if err != nil || n != 0 {
		t.Fatalf("void call = %d, %v", n, err)
	}
	if !called {
		t.Error("native function did not run")
	}
}

func TestFunc_TypeMismatchAbortsBeforeInvocation(t *testing.T) {
	r := NewRegistry()
	invoked := false
	tramp, err := r.Func(func(a int, b int) int {
		invoked = true
		return a + b
	})
	if err != nil {
		t.Fatal(err)
	}

	s := stack.NewState()
	s.PushInt(1)
	s.PushBool(true) // wrong kind for parameter 2

	_, callErr := s.ProtectedCall(tramp)
	var tm *TypeMismatchError
	if !errors.As(callErr, &tm) {
		t.Fatalf("err = %v, want TypeMismatchError", callErr)
	}
	if !strings.Contains(callErr.Error(), "argument 2") {
		t.Errorf("error should name the offending parameter: %v", callErr)
	}
	if invoked {
		t.Error("native callable must not run after a failed unpack")
	}
}

func TestFunc_TrailingErrorRaises(t *testing.T) {
	r := NewRegistry()
	boom := errors.New("boom")
	tramp, err := r.Func(func(ok bool) (int64, error) {
		if !ok {
			return 0, boom
		}
		return 7, nil
	})
	if err != nil {
		t.Fatal(err)
	}

	s := stack.NewState()
	s.PushBool(true)
	n, callErr := s.ProtectedCall(tramp)
	if callErr != nil || n != 1 {
		t.Fatalf("success path = %d, %v", n, callErr)
	}

	s2 := stack.NewState()
	s2.PushBool(false)
	_, callErr = s2.ProtectedCall(tramp)
	if !errors.Is(callErr, boom) {
		t.Fatalf("err = %v, want boom", callErr)
	}
}

func TestMethod_ReceiverThreading(t *testing.T) {
	r := newTestRegistry(t)
	tramp, err := r.Method((*counter)(nil), "Add")
	if err != nil {
		t.Fatal(err)
	}

	c := &counter{Count: 10}
	s := stack.NewState()
	s.PushBoxed("*bind.counter", c)
	s.PushInt(5)

	n, callErr := s.ProtectedCall(tramp)
	if callErr != nil || n != 1 {
		t.Fatalf("call = %d, %v", n, callErr)
	}
	if v, _ := s.Get(-1); v.Int() != 15 {
		t.Errorf("result = %d, want 15", v.Int())
	}
	if c.Count != 15 {
		t.Errorf("receiver state = %d, want 15", c.Count)
	}
}

func TestMethod_VoidMethod(t *testing.T) {
	r := newTestRegistry(t)
	tramp, err := r.Method((*counter)(nil), "Reset")
	if err != nil {
		t.Fatal(err)
	}

	c := &counter{Count: 99}
	s := stack.NewState()
	s.PushBoxed("*bind.counter", c)

	n, callErr := s.ProtectedCall(tramp)
	if callErr != nil || n != 0 {
		t.Fatalf("call = %d, %v", n, callErr)
	}
	if c.Count != 0 {
		t.Error("Reset did not run")
	}
}

func TestMethod_InvalidReceiver(t *testing.T) {
	r := newTestRegistry(t)
	tramp, err := r.Method((*counter)(nil), "Add")
	if err != nil {
		t.Fatal(err)
	}

	s := stack.NewState()
	s.PushInt(1) // not a boxed instance at all
	s.PushInt(5)

	_, callErr := s.ProtectedCall(tramp)
	var ir *InvalidReceiverError
	if !errors.As(callErr, &ir) {
		t.Fatalf("err = %v, want InvalidReceiverError", callErr)
	}
}

func TestMethod_WrongReceiverType(t *testing.T) {
	type other struct{ X int }
	r := newTestRegistry(t)
	if err := r.RegisterBoxed((*other)(nil)); err != nil {
		t.Fatal(err)
	}
	tramp, err := r.Method((*counter)(nil), "Add")
	if err != nil {
		t.Fatal(err)
	}

	s := stack.NewState()
	s.PushBoxed("*bind.other", &other{})
	s.PushInt(5)

	_, callErr := s.ProtectedCall(tramp)
	var ir *InvalidReceiverError
	if !errors.As(callErr, &ir) {
		t.Fatalf("err = %v, want InvalidReceiverError", callErr)
	}
}

func TestMethodOf_InheritedMember(t *testing.T) {
	r := newTestRegistry(t)

	// Add is declared on counter, invoked through namedCounter.
	tramp, err := r.MethodOf((*namedCounter)(nil), (*counter)(nil), "Add")
	if err != nil {
		t.Fatal(err)
	}

	nc := &namedCounter{Name: "n"}
	s := stack.NewState()
	s.PushBoxed("*bind.namedCounter", nc)
	s.PushInt(3)

	n, callErr := s.ProtectedCall(tramp)
	if callErr != nil || n != 1 {
		t.Fatalf("call = %d, %v", n, callErr)
	}
	if nc.Count != 3 {
		t.Errorf("inherited method did not mutate derived receiver: %d", nc.Count)
	}
}

func TestMethodOf_DerivedReceiverRequired(t *testing.T) {
	r := newTestRegistry(t)
	tramp, err := r.MethodOf((*namedCounter)(nil), (*counter)(nil), "Add")
	if err != nil {
		t.Fatal(err)
	}

	// A base-only receiver is out of contract for a derived-bound trampoline.
	s := stack.NewState()
	s.PushBoxed("*bind.counter", &counter{})
	s.PushInt(3)

	_, callErr := s.ProtectedCall(tramp)
	var ir *InvalidReceiverError
	if !errors.As(callErr, &ir) {
		t.Fatalf("err = %v, want InvalidReceiverError", callErr)
	}
}

func TestMethodOf_RejectsUnrelatedTypes(t *testing.T) {
	type stranger struct{ Z int }
	r := newTestRegistry(t)
	if _, err := r.MethodOf((*stranger)(nil), (*counter)(nil), "Add"); err == nil {
		t.Fatal("generation must fail when derived does not embed owner")
	}
}

func TestMethodOf_RejectsUndeclaredMember(t *testing.T) {
	r := newTestRegistry(t)
	if _, err := r.MethodOf((*namedCounter)(nil), (*counter)(nil), "Missing"); err == nil {
		t.Fatal("generation must fail for an unknown member")
	}
}

func TestField_ReadWriteDual(t *testing.T) {
	r := newTestRegistry(t)
	tramp, err := r.Field((*counter)(nil), "Label")
	if err != nil {
		t.Fatal(err)
	}

	c := &counter{Label: "before"}

	// receiver only: read
	s := stack.NewState()
	s.PushBoxed("*bind.counter", c)
	n, callErr := s.ProtectedCall(tramp)
	if callErr != nil || n != 1 {
		t.Fatalf("get = %d, %v", n, callErr)
	}
	if got, _ := s.StringAt(-1); got != "before" {
		t.Errorf("get = %q", got)
	}

	// receiver + value: write, zero results
	s2 := stack.NewState()
	s2.PushBoxed("*bind.counter", c)
	s2.PushString("after")
	n, callErr = s2.ProtectedCall(tramp)
	if callErr != nil || n != 0 {
		t.Fatalf("set = %d, %v", n, callErr)
	}
	if c.Label != "after" {
		t.Errorf("field = %q after set", c.Label)
	}

	// subsequent read reflects the new value
	s3 := stack.NewState()
	s3.PushBoxed("*bind.counter", c)
	n, callErr = s3.ProtectedCall(tramp)
	if callErr != nil || n != 1 {
		t.Fatalf("re-get = %d, %v", n, callErr)
	}
	if got, _ := s3.StringAt(-1); got != "after" {
		t.Errorf("re-get = %q", got)
	}
}

func TestFieldOf_PromotedField(t *testing.T) {
	r := newTestRegistry(t)
	tramp, err := r.FieldOf((*namedCounter)(nil), (*counter)(nil), "Count")
	if err != nil {
		t.Fatal(err)
	}

	nc := &namedCounter{}
	s := stack.NewState()
	s.PushBoxed("*bind.namedCounter", nc)
	s.PushInt(41)
	if n, callErr := s.ProtectedCall(tramp); callErr != nil || n != 0 {
		t.Fatalf("set = %d, %v", n, callErr)
	}
	if nc.Count != 41 {
		t.Errorf("promoted field = %d", nc.Count)
	}
}

func TestField_SetTypeMismatch(t *testing.T) {
	r := newTestRegistry(t)
	tramp, err := r.Field((*counter)(nil), "Count")
	if err != nil {
		t.Fatal(err)
	}

	c := &counter{Count: 5}
	s := stack.NewState()
	s.PushBoxed("*bind.counter", c)
	s.PushString("not an int")

	_, callErr := s.ProtectedCall(tramp)
	var tm *TypeMismatchError
	if !errors.As(callErr, &tm) {
		t.Fatalf("err = %v, want TypeMismatchError", callErr)
	}
	if c.Count != 5 {
		t.Error("failed set must not modify the field")
	}
}

func TestFieldOf_NilEmbeddedPointer(t *testing.T) {
	r := newTestRegistry(t)
	if err := r.RegisterBoxed((*lazyCounter)(nil)); err != nil {
		t.Fatal(err)
	}
	tramp, err := r.FieldOf((*lazyCounter)(nil), (*counter)(nil), "Count")
	if err != nil {
		t.Fatal(err)
	}

	s := stack.NewState()
	s.PushBoxed("*bind.lazyCounter", &lazyCounter{})
	_, callErr := s.ProtectedCall(tramp)
	var ir *InvalidReceiverError
	if !errors.As(callErr, &ir) {
		t.Fatalf("err = %v, want InvalidReceiverError", callErr)
	}

	// the same trampoline reads fine once the embed is populated
	s.SetTop(0)
	s.PushBoxed("*bind.lazyCounter", &lazyCounter{counter: &counter{Count: 7}})
	n, callErr := s.ProtectedCall(tramp)
	if callErr != nil || n != 1 {
		t.Fatalf("get = %d, %v", n, callErr)
	}
	if v, _ := s.Get(-1); v.Int() != 7 {
		t.Errorf("promoted read = %d", v.Int())
	}
}

func TestGeneration_FailureLeavesRegistryOpen(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Func(func(c *counter) int64 { return c.Count }); err == nil {
		t.Fatal("generation without a counter codec must fail")
	}
	if err := r.RegisterBoxed((*counter)(nil)); err != nil {
		t.Fatalf("registering after a failed generation: %v", err)
	}
	if _, err := r.Func(func(c *counter) int64 { return c.Count }); err != nil {
		t.Fatalf("retry after registration: %v", err)
	}
}

func TestClosure_AdHocLambda(t *testing.T) {
	r := NewRegistry()
	captured := int64(100)
	tramp, err := r.Closure(func(n int64) int64 { return captured + n })
	if err != nil {
		t.Fatal(err)
	}

	s := stack.NewState()
	s.PushInt(11)
	n, callErr := s.ProtectedCall(tramp)
	if callErr != nil || n != 1 {
		t.Fatalf("call = %d, %v", n, callErr)
	}
	if v, _ := s.Get(-1); v.Int() != 111 {
		t.Errorf("result = %d", v.Int())
	}
}

func TestGeneration_RejectsNonFunctions(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Func(42); err == nil {
		t.Error("Func(42) must fail")
	}
	if _, err := r.Func(nil); err == nil {
		t.Error("Func(nil) must fail")
	}
	if _, err := r.Method(42, "X"); err == nil {
		t.Error("Method on non-struct sample must fail")
	}
}
