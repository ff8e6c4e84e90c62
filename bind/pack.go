package bind

import (
	"reflect"

	"github.com/tethervm/tether/stack"
)

var errType = reflect.TypeOf((*error)(nil)).Elem()

// resultPlan is the generation-time analysis of a callable's result list:
// one codec per pushed value, plus whether a trailing error is split off.
// A non-nil trailing error raises through the runtime instead of being
// pushed as a slot.
type resultPlan struct {
	codecs   []*Codec
	trailErr bool
}

// planResults resolves codecs for a function type's results.
func (r *Registry) planResults(t reflect.Type) (resultPlan, error) {
	n := t.NumOut()
	plan := resultPlan{}
	if n > 0 && t.Out(n-1) == errType {
		plan.trailErr = true
		n--
	}
	for i := 0; i < n; i++ {
		c, err := r.resolve(t.Out(i))
		if err != nil {
			return resultPlan{}, err
		}
		plan.codecs = append(plan.codecs, c)
	}
	return plan, nil
}

// pack pushes a call's results and returns the produced slot count.
// A void callable produces 0. A trailing non-nil error aborts the call
// through the runtime's error signalling.
func (p resultPlan) pack(s *stack.State, out []reflect.Value) int {
	if p.trailErr {
		last := out[len(out)-1]
		if !last.IsNil() {
			s.Raise(last.Interface().(error))
		}
		out = out[:len(out)-1]
	}
	n := 0
	for i, c := range p.codecs {
		n += c.Write(s, out[i])
	}
	return n
}
