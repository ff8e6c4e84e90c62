// Package strlib exposes native string helpers to the runtime through
// generated trampolines. It is the smallest end-to-end user of the bind
// core: plain-function shapes only.
package strlib

import (
	"fmt"
	"strings"

	"github.com/tethervm/tether/bind"
	"github.com/tethervm/tether/stack"
)

// Substring returns the first n characters of s, or all of s when n
// exceeds its length. Characters are runes, so multi-byte text is never
// cut mid-sequence.
func Substring(s string, n int) string {
	if n < 0 {
		n = 0
	}
	runes := []rune(s)
	if n > len(runes) {
		n = len(runes)
	}
	return string(runes[:n])
}

// Repeat returns s repeated n times.
func Repeat(s string, n int) string {
	if n < 0 {
		n = 0
	}
	return strings.Repeat(s, n)
}

// Index returns the 1-based position of sub in s, or 0 when absent.
func Index(s, sub string) int {
	return strings.Index(s, sub) + 1
}

// Upper returns s upper-cased.
func Upper(s string) string { return strings.ToUpper(s) }

// Lower returns s lower-cased.
func Lower(s string) string { return strings.ToLower(s) }

// Register generates trampolines for all helpers and stores them in ns
// under "str."-prefixed names.
func Register(r *bind.Registry, ns *stack.Namespace) error {
	fns := []struct {
		name string
		fn   any
	}{
		{"str.substring", Substring},
		{"str.repeat", Repeat},
		{"str.index", Index},
		{"str.upper", Upper},
		{"str.lower", Lower},
	}
	for _, f := range fns {
		tramp, err := r.Func(f.fn)
		if err != nil {
			return fmt.Errorf("strlib: wrapping %s: %w", f.name, err)
		}
		ns.Register(f.name, tramp)
	}
	return nil
}
