// Package codegen provides code generation helpers and constants.
package codegen

import (
	"unicode"
	"unicode/utf8"
)

// Identifiers used in generated code
const (
	ResafeImport   = "github.com/KromDaniel/resafe/pkg/resafe"
	TestingImport  = "testing"
	DefaultName    = "ResafeGuard"
	PatternsSuffix = "Patterns"
	CaseName       = "tt"
	ResultName     = "res"
	TName          = "t"
)

// Fields of the generated pattern table
const (
	FieldName      = "name"
	FieldPattern   = "pattern"
	FieldThreshold = "threshold"
)

// TestFuncName returns the generated test function name for name.
func TestFuncName(name string) string {
	return "Test" + UpperFirst(name)
}

// TableName returns the unexported pattern table variable for name.
func TableName(name string) string {
	return LowerFirst(name) + PatternsSuffix
}

// LowerFirst converts the first rune of a string to lowercase.
// Runes without case, such as '_', are left unchanged.
func LowerFirst(s string) string {
	return mapFirst(s, unicode.ToLower)
}

// UpperFirst converts the first rune of a string to uppercase.
func UpperFirst(s string) string {
	return mapFirst(s, unicode.ToUpper)
}

func mapFirst(s string, fn func(rune) rune) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 || r == utf8.RuneError {
		return s
	}
	return string(fn(r)) + s[size:]
}
