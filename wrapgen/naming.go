package wrapgen

import (
	"strings"
	"unicode"
)

// PackageNamespace converts a Go import path to a registered-name namespace.
// e.g., prefix "go.", "encoding/json" → "go.json"; "strings" → "go.strings".
func PackageNamespace(prefix, importPath string) string {
	parts := strings.Split(importPath, "/")
	return prefix + sanitize(parts[len(parts)-1])
}

// FunctionName converts a Go function name to its registered name within a
// namespace. Go uses PascalCase; registered names use lowerCamel.
// e.g., namespace "go.json", "Marshal" → "go.json.marshal".
func FunctionName(namespace, goName string) string {
	return namespace + "." + lowerCamel(goName)
}

// MethodName converts a method to its registered name, qualified by its
// receiver type. e.g., "go.strings", "Builder", "WriteString" →
// "go.strings.builder.writeString".
func MethodName(namespace, typeName, goName string) string {
	return namespace + "." + lowerCamel(typeName) + "." + lowerCamel(goName)
}

// FieldName converts a struct field to its registered accessor name, the
// same shape as MethodName.
func FieldName(namespace, typeName, goName string) string {
	return namespace + "." + lowerCamel(typeName) + "." + lowerCamel(goName)
}

// lowerCamel lowers the leading run of upper-case characters, so acronyms
// stay readable: "ReadAll" → "readAll", "URL" → "url", "URLPath" → "urlPath".
func lowerCamel(name string) string {
	if name == "" {
		return name
	}
	runes := []rune(name)
	n := 0
	for n < len(runes) && unicode.IsUpper(runes[n]) {
		n++
	}
	if n == 0 {
		return name
	}
	// keep the last upper of a run that prefixes a lower-case tail
	if n > 1 && n < len(runes) && unicode.IsLower(runes[n]) {
		n--
	}
	for i := 0; i < n; i++ {
		runes[i] = unicode.ToLower(runes[i])
	}
	return string(runes)
}

// sanitize lowers a path segment and strips characters that cannot appear
// in a registered name.
func sanitize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if r == '-' || r == '_' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
