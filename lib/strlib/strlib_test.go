package strlib

import (
	"testing"

	"github.com/tethervm/tether/bind"
	"github.com/tethervm/tether/stack"
)

func TestRegister(t *testing.T) {
	r := bind.NewRegistry()
	ns := stack.NewNamespace()
	if err := Register(r, ns); err != nil {
		t.Fatal(err)
	}

	tramp, ok := ns.Lookup("str.substring")
	if !ok {
		t.Fatal("str.substring not registered")
	}

	s := stack.NewState()
	s.PushString("My Own String")
	s.PushInt(5)
	n, err := s.ProtectedCall(tramp)
	if err != nil || n != 1 {
		t.Fatalf("call = %d, %v", n, err)
	}
	if got, _ := s.StringAt(-1); got != "My Ow" {
		t.Errorf("substring = %q", got)
	}
}

func TestApplyWithStackExtraction(t *testing.T) {
	r := bind.NewRegistry()
	s := stack.NewState()
	s.PushNil()
	s.PushInt(5) // slot 2

	result, err := r.Apply(s, 2, Substring, "My Own String")
	if err != nil {
		t.Fatal(err)
	}
	if result.(string) != "My Ow" {
		t.Errorf("apply result = %q", result)
	}
}

func TestSubstringRuneBoundaries(t *testing.T) {
	cases := []struct {
		s    string
		n    int
		want string
	}{
		{"héllo wörld", 5, "héllo"},
		{"日本語テキスト", 3, "日本語"},
		{"日本語", 10, "日本語"},
		{"héllo", 0, ""},
	}
	for _, c := range cases {
		if got := Substring(c.s, c.n); got != c.want {
			t.Errorf("Substring(%q, %d) = %q, want %q", c.s, c.n, got, c.want)
		}
	}
}

func TestHelpers(t *testing.T) {
	if Substring("abc", 10) != "abc" {
		t.Error("Substring past end should clamp")
	}
	if Repeat("ab", 2) != "abab" {
		t.Error("Repeat wrong")
	}
	if Index("hello", "ll") != 3 {
		t.Error("Index should be 1-based")
	}
	if Index("hello", "zz") != 0 {
		t.Error("Index miss should be 0")
	}
}
