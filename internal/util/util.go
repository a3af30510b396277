// Package util provides small string helpers shared by the control surface.
package util

import "strings"

// TrimQuotes removes leading and trailing double quotes from a string.
func TrimQuotes(s string) string {
	return strings.Trim(s, `"`)
}

// FixEscapeQuotes replaces escaped double quotes ("") with single double quotes (").
func FixEscapeQuotes(s string) string {
	return strings.ReplaceAll(s, `""`, `"`)
}

// CleanArgs returns a copy of args with surrounding whitespace and quotes
// removed and escaped quotes restored.
func CleanArgs(args []string) []string {
	out := make([]string, len(args))
	for i, v := range args {
		out[i] = FixEscapeQuotes(TrimQuotes(strings.TrimSpace(v)))
	}
	return out
}

// SplitCommand splits a command line like `:ACTION: red_1 fire_missile 10 20`
// into the command and its arguments. Quoted arguments keep inner spaces.
func SplitCommand(line string) (string, []string) {
	var fields []string
	var b strings.Builder
	inQuote := false
	flush := func() {
		if b.Len() > 0 {
			fields = append(fields, b.String())
			b.Reset()
		}
	}
	for _, r := range strings.TrimSpace(line) {
		switch {
		case r == '"':
			inQuote = !inQuote
		case (r == ' ' || r == '\t') && !inQuote:
			flush()
		default:
			b.WriteRune(r)
		}
	}
	flush()
	if len(fields) == 0 {
		return "", nil
	}
	return fields[0], fields[1:]
}
