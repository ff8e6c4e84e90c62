package wrapgen

import (
	"fmt"
	"strings"
)

// GenerateBindings emits a Go source file that registers a package's
// wrappable API through the bind trampoline generators. Boxed type codecs
// come first: the codec registry seals at the first trampoline generation,
// so every receiver type must be registered before any Func/Method call.
// Skipped symbols are noted in the output so a reader can see what the
// codec surface left behind.
func GenerateBindings(pkg *Package, prefix string) (string, error) {
	ns := PackageNamespace(prefix, pkg.ImportPath)

	var b strings.Builder
	fmt.Fprintf(&b, "// Code generated by tether-wrap. DO NOT EDIT.\n")
	fmt.Fprintf(&b, "//\n// Bindings for %s.\n", pkg.ImportPath)
	fmt.Fprintf(&b, "package wrap_%s\n\n", sanitize(pkg.Name))
	fmt.Fprintf(&b, "import (\n")
	fmt.Fprintf(&b, "\t\"fmt\"\n\n")
	fmt.Fprintf(&b, "\tpkg %q\n\n", pkg.ImportPath)
	fmt.Fprintf(&b, "\t\"github.com/tethervm/tether/bind\"\n")
	fmt.Fprintf(&b, "\t\"github.com/tethervm/tether/stack\"\n")
	fmt.Fprintf(&b, ")\n\n")
	fmt.Fprintf(&b, "// Register wraps the exported API of %s into ns.\n", pkg.ImportPath)
	fmt.Fprintf(&b, "func Register(r *bind.Registry, ns *stack.Namespace) error {\n")

	for _, st := range pkg.Structs {
		fmt.Fprintf(&b, "\tif err := r.RegisterBoxed((*pkg.%s)(nil)); err != nil {\n", st.Name)
		fmt.Fprintf(&b, "\t\treturn fmt.Errorf(\"registering %s: %%w\", err)\n", st.Name)
		fmt.Fprintf(&b, "\t}\n")
	}

	for _, fn := range pkg.Funcs {
		if fn.Skip != SkipNone {
			emitSkip(&b, fn.Name, fn.Skip.String())
			continue
		}
		emitWrap(&b, fmt.Sprintf("r.Func(pkg.%s)", fn.Name), fn.Name, FunctionName(ns, fn.Name))
	}

	for _, st := range pkg.Structs {
		for _, m := range st.Methods {
			if m.Skip != SkipNone {
				emitSkip(&b, st.Name+"."+m.Name, m.Skip.String())
				continue
			}
			emitWrap(&b,
				fmt.Sprintf("r.Method((*pkg.%s)(nil), %q)", st.Name, m.Name),
				st.Name+"."+m.Name,
				MethodName(ns, st.Name, m.Name))
		}
		for _, f := range st.Fields {
			if f.Type == SlotUnsupported {
				emitSkip(&b, st.Name+"."+f.Name, "unsupported field type "+f.GoStr)
				continue
			}
			emitWrap(&b,
				fmt.Sprintf("r.Field((*pkg.%s)(nil), %q)", st.Name, f.Name),
				st.Name+"."+f.Name,
				FieldName(ns, st.Name, f.Name))
		}
	}

	fmt.Fprintf(&b, "\treturn nil\n")
	fmt.Fprintf(&b, "}\n")
	return b.String(), nil
}

// emitWrap writes one generate-and-register block.
func emitWrap(b *strings.Builder, call, what, regName string) {
	fmt.Fprintf(b, "\t{\n")
	fmt.Fprintf(b, "\t\tfn, err := %s\n", call)
	fmt.Fprintf(b, "\t\tif err != nil {\n")
	fmt.Fprintf(b, "\t\t\treturn fmt.Errorf(\"wrapping %s: %%w\", err)\n", what)
	fmt.Fprintf(b, "\t\t}\n")
	fmt.Fprintf(b, "\t\tns.Register(%q, fn)\n", regName)
	fmt.Fprintf(b, "\t}\n")
}

// emitSkip records an unwrappable symbol in the generated file.
func emitSkip(b *strings.Builder, what, reason string) {
	fmt.Fprintf(b, "\t// skipped %s: %s\n", what, reason)
}
