// Package wrapgen introspects Go packages and generates tether binding
// registration code: one Go file per package whose Register function feeds
// every wrappable exported symbol through the bind trampoline generators.
package wrapgen

// SlotType classifies a Go type by the runtime codec that can carry it.
// Classification happens during introspection, so the model already knows
// which symbols the trampoline generators will accept.
type SlotType int

const (
	SlotUnsupported SlotType = iota
	SlotBool
	SlotInt
	SlotInt64
	SlotFloat64
	SlotString
	SlotBoxed // pointer to one of the package's own struct types
)

// Slot is one value position: a parameter, a result, or a struct field.
type Slot struct {
	Name  string
	Type  SlotType
	Boxed string // struct name when Type is SlotBoxed
	GoStr string // Go spelling of the original type, for skip notes
}

// SkipReason records why a symbol cannot be wrapped. Skipped symbols stay
// in the model so the generator can note them; SkipNone means wrappable.
type SkipReason int

const (
	SkipNone SkipReason = iota
	SkipVariadic
	SkipParam
	SkipResult
)

func (r SkipReason) String() string {
	switch r {
	case SkipNone:
		return ""
	case SkipVariadic:
		return "variadic"
	case SkipParam:
		return "unsupported parameter type"
	case SkipResult:
		return "unsupported result type"
	}
	return "unknown"
}

// Func is a package function or a pointer-receiver method.
type Func struct {
	Name     string
	Recv     string // struct name for methods, empty for package functions
	Params   []Slot
	Results  []Slot // trailing error stripped into TrailErr
	TrailErr bool
	Skip     SkipReason
}

// Struct is an exported struct type. Every modeled struct gets a boxed
// codec; its methods and fields bind through Method/Field trampolines.
type Struct struct {
	Name    string
	Fields  []Slot
	Methods []Func
}

// Const is an exported constant, carried for the record; the generator
// does not register constants.
type Const struct {
	Name  string
	Value string
}

// Package is the wrappable surface of one Go package.
type Package struct {
	ImportPath string
	Name       string
	Funcs      []Func
	Structs    []Struct
	Consts     []Const
}
