package schema

import (
	"strings"
	"unicode"
)

// NamingStyle controls how a requested property name is matched against Go
// field and method names. Go names are converted to the style and compared
// to the request, so with NamingSnakeCase "first_name" finds FirstName.
type NamingStyle uint8

const (
	NamingExact           NamingStyle = iota // FirstName
	NamingSnakeCase                          // first_name
	NamingCamelCase                          // firstName
	NamingCaseInsensitive                    // FIRSTNAME, firstname, ...
)

func (s NamingStyle) String() string {
	switch s {
	case NamingExact:
		return "exact"
	case NamingSnakeCase:
		return "snake_case"
	case NamingCamelCase:
		return "camelCase"
	case NamingCaseInsensitive:
		return "case-insensitive"
	default:
		return "unknown"
	}
}

// PropertyName converts a Go identifier to this style.
func (s NamingStyle) PropertyName(goName string) string {
	switch s {
	case NamingSnakeCase:
		return toSnakeCase(goName)
	case NamingCamelCase:
		return toCamelCase(goName)
	default:
		return goName
	}
}

// Matches reports whether the Go identifier goName answers to requested.
// An exact match always counts, whatever the style.
func (s NamingStyle) Matches(goName, requested string) bool {
	if goName == requested {
		return true
	}
	switch s {
	case NamingSnakeCase, NamingCamelCase:
		return s.PropertyName(goName) == requested
	case NamingCaseInsensitive:
		return strings.EqualFold(goName, requested)
	}
	return false
}

// commonInitialisms are kept whole when converting to snake_case.
var commonInitialisms = map[string]string{
	"ID":    "id",
	"UUID":  "uuid",
	"URL":   "url",
	"HTTP":  "http",
	"HTTPS": "https",
	"API":   "api",
	"JSON":  "json",
	"XML":   "xml",
	"SQL":   "sql",
	"HTML":  "html",
}

// toSnakeCase converts an identifier to snake_case. Acronyms stay together:
// UserID -> user_id, HTTPServer -> http_server.
func toSnakeCase(name string) string {
	if name == "" {
		return ""
	}
	if s, ok := commonInitialisms[name]; ok {
		return s
	}
	if strings.Contains(name, "_") && !hasUpperCase(name) {
		return name
	}

	var b strings.Builder
	b.Grow(len(name) + 4)
	runes := []rune(name)

	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			// aB -> a_b, a1B -> a1_b, ABc -> a_bc
			if unicode.IsLower(prev) || unicode.IsDigit(prev) ||
				(unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1])) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// toCamelCase converts an identifier to camelCase via its snake_case form:
// UserID -> userId, HTTPServer -> httpServer.
func toCamelCase(name string) string {
	parts := strings.Split(toSnakeCase(name), "_")

	var b strings.Builder
	b.Grow(len(name))
	for i, part := range parts {
		if part == "" {
			continue
		}
		if i == 0 {
			b.WriteString(part)
			continue
		}
		r := []rune(part)
		r[0] = unicode.ToUpper(r[0])
		b.WriteString(string(r))
	}
	return b.String()
}

func hasUpperCase(s string) bool {
	for _, r := range s {
		if unicode.IsUpper(r) {
			return true
		}
	}
	return false
}
