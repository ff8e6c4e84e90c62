package bind

import (
	"fmt"
	"reflect"

	"github.com/tethervm/tether/stack"
)

// unpackArgs reads one argument per codec from slots base, base+1, ...,
// left to right. The first failure aborts the whole unpack: no partial
// argument tuple is ever handed to a native callable. The returned error
// names the offending parameter position and expected type.
func unpackArgs(s *stack.State, base int, codecs []*Codec) ([]reflect.Value, error) {
	args := make([]reflect.Value, len(codecs))
	for i, c := range codecs {
		v, err := c.Read(s, base+i)
		if err != nil {
			return nil, fmt.Errorf("argument %d (%s): %w", i+1, c.Type, err)
		}
		args[i] = v
	}
	return args, nil
}

// paramTypes lists a function type's parameter types from position lo.
func paramTypes(t reflect.Type, lo int) []reflect.Type {
	types := make([]reflect.Type, 0, t.NumIn()-lo)
	for i := lo; i < t.NumIn(); i++ {
		types = append(types, t.In(i))
	}
	return types
}
