// Package util holds SQL identifier helpers shared by the compiler and the
// commands.
package util

import (
	"strings"
	"unicode"
)

// PostgreSQL reserved words that need quoting when used as identifiers.
var reservedWords = map[string]bool{
	"all":     true,
	"and":     true,
	"check":   true,
	"default": true,
	"from":    true,
	"group":   true,
	"order":   true,
	"primary": true,
	"select":  true,
	"table":   true,
	"user":    true,
	"where":   true,
}

// NeedsQuoting reports whether an identifier cannot appear unquoted: reserved
// words, uppercase letters (PostgreSQL folds unquoted names to lowercase),
// and anything outside [a-z0-9_] or starting with a digit.
func NeedsQuoting(identifier string) bool {
	if identifier == "" {
		return false
	}
	if reservedWords[strings.ToLower(identifier)] {
		return true
	}
	for i, r := range identifier {
		if unicode.IsUpper(r) {
			return true
		}
		if i == 0 && !unicode.IsLetter(r) && r != '_' {
			return true
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return true
		}
	}
	return false
}

// QuoteIdentifier quotes an identifier if it needs it.
func QuoteIdentifier(identifier string) string {
	if NeedsQuoting(identifier) {
		return `"` + identifier + `"`
	}
	return identifier
}

// Qualify joins a schema and an object name, quoting each part as needed. An
// empty schema yields the bare name.
func Qualify(schema, name string) string {
	if schema == "" {
		return QuoteIdentifier(name)
	}
	return QuoteIdentifier(schema) + "." + QuoteIdentifier(name)
}
