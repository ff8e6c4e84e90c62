package wrapgen

import (
	"fmt"
	"go/types"

	"golang.org/x/tools/go/packages"
)

var errorType = types.Universe.Lookup("error").Type()

// IntrospectPackage loads importPath and models the slice of its exported
// API that the trampoline generators can carry. Symbols whose signatures
// fall outside the codec surface stay in the model with a skip reason, so
// the generator can say what it left behind. include, when non-nil,
// restricts which top-level names enter the model; a struct excluded by
// the filter gets no boxed codec, and signatures mentioning it become
// unsupported along with it.
func IntrospectPackage(importPath string, include map[string]bool) (*Package, error) {
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedTypes,
	}
	loaded, err := packages.Load(cfg, importPath)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", importPath, err)
	}
	if len(loaded) == 0 {
		return nil, fmt.Errorf("no packages found for %s", importPath)
	}
	pkg := loaded[0]
	if len(pkg.Errors) > 0 {
		return nil, fmt.Errorf("package errors in %s: %v", importPath, pkg.Errors)
	}
	if pkg.Types == nil {
		return nil, fmt.Errorf("no type information for %s", importPath)
	}

	scope := pkg.Types.Scope()
	w := walker{
		pkgPath: pkg.Types.Path(),
		structs: make(map[string]bool),
	}

	// The boxed-type set must be complete before any signature is read:
	// whether *T is a slot depends on whether T itself enters the model.
	for _, name := range scope.Names() {
		if include != nil && !include[name] {
			continue
		}
		if tn, ok := scope.Lookup(name).(*types.TypeName); ok && tn.Exported() && !tn.IsAlias() {
			if _, isNamed := tn.Type().(*types.Named); !isNamed {
				continue
			}
			if _, isStruct := tn.Type().Underlying().(*types.Struct); isStruct {
				w.structs[name] = true
			}
		}
	}

	out := &Package{ImportPath: importPath, Name: pkg.Name}
	for _, name := range scope.Names() {
		if include != nil && !include[name] {
			continue
		}
		obj := scope.Lookup(name)
		if !obj.Exported() {
			continue
		}
		switch o := obj.(type) {
		case *types.Func:
			out.Funcs = append(out.Funcs, w.fn("", o.Name(), o.Type().(*types.Signature)))
		case *types.TypeName:
			if w.structs[name] {
				out.Structs = append(out.Structs, w.structOf(o))
			}
		case *types.Const:
			out.Consts = append(out.Consts, Const{Name: o.Name(), Value: o.Val().ExactString()})
		}
	}
	return out, nil
}

// walker carries the context slot classification needs: the package path
// (boxed codecs only cover the package's own types) and the set of struct
// names that made it into the model.
type walker struct {
	pkgPath string
	structs map[string]bool
}

// fn models one function or method. The first problem found decides the
// skip reason; slots keep classifying afterwards so the model stays whole.
func (w walker) fn(recv, name string, sig *types.Signature) Func {
	f := Func{Name: name, Recv: recv}
	if sig.Variadic() {
		f.Skip = SkipVariadic
	}

	params := sig.Params()
	for i := 0; i < params.Len(); i++ {
		s := w.slot(params.At(i).Name(), params.At(i).Type())
		if s.Type == SlotUnsupported && f.Skip == SkipNone {
			f.Skip = SkipParam
		}
		f.Params = append(f.Params, s)
	}

	results := sig.Results()
	n := results.Len()
	if n > 0 && types.Identical(results.At(n-1).Type(), errorType) {
		f.TrailErr = true
		n--
	}
	for i := 0; i < n; i++ {
		s := w.slot(results.At(i).Name(), results.At(i).Type())
		if s.Type == SlotUnsupported && f.Skip == SkipNone {
			f.Skip = SkipResult
		}
		f.Results = append(f.Results, s)
	}
	return f
}

// structOf models a struct type: exported fields plus directly declared
// pointer-receiver methods. Promoted methods are left out; the receiver a
// generated trampoline decodes is the type named here, and inherited
// members need an explicit derived/owner pairing.
func (w walker) structOf(tn *types.TypeName) Struct {
	named := tn.Type().(*types.Named)
	st := named.Underlying().(*types.Struct)

	out := Struct{Name: tn.Name()}
	for i := 0; i < st.NumFields(); i++ {
		fld := st.Field(i)
		if fld.Exported() && !fld.Anonymous() {
			out.Fields = append(out.Fields, w.slot(fld.Name(), fld.Type()))
		}
	}

	mset := types.NewMethodSet(types.NewPointer(named))
	for i := 0; i < mset.Len(); i++ {
		sel := mset.At(i)
		m, ok := sel.Obj().(*types.Func)
		if !ok || !m.Exported() {
			continue
		}
		if len(sel.Index()) > 1 { // promoted
			continue
		}
		out.Methods = append(out.Methods, w.fn(tn.Name(), m.Name(), sel.Type().(*types.Signature)))
	}
	return out
}

// slot classifies one value position against the codec surface: the
// built-in basic kinds, or a pointer to a struct from this package's own
// modeled set. Everything else is SlotUnsupported.
func (w walker) slot(name string, t types.Type) Slot {
	s := Slot{Name: name, GoStr: t.String()}

	if basic, ok := t.Underlying().(*types.Basic); ok {
		if _, isNamed := t.(*types.Named); isNamed {
			return s // named basics don't resolve to the built-in codecs
		}
		switch basic.Kind() {
		case types.Bool:
			s.Type = SlotBool
		case types.Int:
			s.Type = SlotInt
		case types.Int64:
			s.Type = SlotInt64
		case types.Float64:
			s.Type = SlotFloat64
		case types.String:
			s.Type = SlotString
		}
		return s
	}

	if ptr, ok := t.(*types.Pointer); ok {
		if named, ok := ptr.Elem().(*types.Named); ok {
			obj := named.Obj()
			if obj.Pkg() != nil && obj.Pkg().Path() == w.pkgPath && w.structs[obj.Name()] {
				s.Type = SlotBoxed
				s.Boxed = obj.Name()
			}
		}
	}
	return s
}
