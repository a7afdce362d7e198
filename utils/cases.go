package utils

import (
	"unicode"
	"unicode/utf8"
)

// PascalToCamel converts a PascalCase identifier to camelCase by lowering the
// first letter. Leading non-letter characters (such as the underscore in
// "_Status") are preserved and the first letter after them is lowered instead.
func PascalToCamel(s string) string {
	for i, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		if unicode.IsLower(r) {
			return s
		}
		lower := unicode.ToLower(r)
		return s[:i] + string(lower) + s[i+utf8.RuneLen(r):]
	}
	return s
}
