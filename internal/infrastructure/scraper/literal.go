package scraper

import (
	"strings"
	"unicode"
)

// balancedArray returns the array literal starting at s[start] == '['.
// Brackets inside string literals are ignored. ok is false when the literal
// is unterminated or longer than max bytes.
func balancedArray(s string, start, max int) (string, bool) {
	if start < 0 || start >= len(s) || s[start] != '[' {
		return "", false
	}

	depth := 0
	var quote byte
	escaped := false
	for i := start; i < len(s); i++ {
		if max > 0 && i-start >= max {
			return "", false
		}
		c := s[i]
		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'', '`':
			quote = c
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// relaxJSON rewrites a JavaScript array/object literal into JSON: bare keys
// are quoted, single-quoted and template strings become double-quoted,
// trailing commas are dropped, and unknown bare identifiers become null.
func relaxJSON(src string) string {
	var b strings.Builder
	b.Grow(len(src) + len(src)/8)

	n := len(src)
	for i := 0; i < n; {
		c := src[i]
		switch {
		case c == '"' || c == '\'' || c == '`':
			j := i + 1
			b.WriteByte('"')
			for j < n && src[j] != c {
				if src[j] == '\\' && j+1 < n {
					if src[j+1] == '\'' {
						b.WriteByte('\'')
					} else {
						b.WriteByte('\\')
						b.WriteByte(src[j+1])
					}
					j += 2
					continue
				}
				if src[j] == '"' {
					b.WriteString(`\"`)
				} else if src[j] == '\n' {
					b.WriteString(`\n`)
				} else {
					b.WriteByte(src[j])
				}
				j++
			}
			b.WriteByte('"')
			i = j + 1

		case c == ',':
			k := skipSpace(src, i+1)
			if k < n && (src[k] == ']' || src[k] == '}') {
				i++
				continue
			}
			b.WriteByte(c)
			i++

		case c >= '0' && c <= '9':
			j := i + 1
			for j < n && isNumberPart(src[j], src[j-1]) {
				j++
			}
			b.WriteString(src[i:j])
			i = j

		case isIdentStart(c):
			j := i
			for j < n && isIdentPart(src[j]) {
				j++
			}
			word := src[i:j]
			k := skipSpace(src, j)
			switch {
			case k < n && src[k] == ':':
				b.WriteByte('"')
				b.WriteString(word)
				b.WriteByte('"')
			case word == "true" || word == "false" || word == "null":
				b.WriteString(word)
			default:
				b.WriteString("null")
			}
			i = j

		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

func skipSpace(s string, i int) int {
	for i < len(s) && unicode.IsSpace(rune(s[i])) {
		i++
	}
	return i
}

func isNumberPart(c, prev byte) bool {
	switch {
	case c >= '0' && c <= '9', c == '.', c == 'e', c == 'E':
		return true
	case c == '+' || c == '-':
		return prev == 'e' || prev == 'E'
	}
	return false
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
