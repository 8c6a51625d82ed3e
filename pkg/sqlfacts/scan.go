package sqlfacts

import "strings"

// clauseKeywords end a select-list expression when found outside parentheses.
var clauseKeywords = map[string]bool{
	"FROM":      true,
	"WHERE":     true,
	"GROUP":     true,
	"HAVING":    true,
	"ORDER":     true,
	"LIMIT":     true,
	"OFFSET":    true,
	"FETCH":     true,
	"UNION":     true,
	"INTERSECT": true,
	"EXCEPT":    true,
	"WINDOW":    true,
	"QUALIFY":   true,
	"INTO":      true,
}

var fromKeyword = map[string]bool{"FROM": true}

// spanEnd returns the offset where the span starting at start ends: the first
// top-level ';', unbalanced ')', comma (when commas is set), or stop keyword.
// Quoted text and comments are never inspected.
func spanEnd(text string, start int, stop map[string]bool, commas bool) int {
	depth := 0
	i := start
	for i < len(text) {
		if j := skipOpaque(text, i); j != i {
			i = j
			continue
		}

		c := text[i]
		switch {
		case c == '(' || c == '[':
			depth++
		case c == ')' || c == ']':
			if depth == 0 {
				return i
			}
			depth--
		case depth == 0 && c == ';':
			return i
		case depth == 0 && commas && c == ',':
			return i
		case isIdentStart(c) && (i == 0 || !isIdentChar(text[i-1])):
			j := i
			for j < len(text) && isIdentChar(text[j]) {
				j++
			}
			if depth == 0 && stop[strings.ToUpper(text[i:j])] {
				return i
			}
			i = j
			continue
		}
		i++
	}
	return len(text)
}

// splitTopLevel splits text on commas that are not nested in parentheses,
// quotes, or comments. Pieces are trimmed and empty pieces dropped.
func splitTopLevel(text string) []string {
	var parts []string
	depth := 0
	last := 0
	i := 0
	for i < len(text) {
		if j := skipOpaque(text, i); j != i {
			i = j
			continue
		}
		switch text[i] {
		case '(', '[':
			depth++
		case ')', ']':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = appendPiece(parts, text[last:i])
				last = i + 1
			}
		}
		i++
	}
	return appendPiece(parts, text[last:])
}

func appendPiece(parts []string, piece string) []string {
	if p := strings.TrimSpace(piece); p != "" {
		return append(parts, p)
	}
	return parts
}

// stripComments removes line and block comments that sit outside quoted
// text. Each comment leaves one space behind and the result is trimmed.
func stripComments(text string) string {
	var b strings.Builder
	i := 0
	for i < len(text) {
		j := skipOpaque(text, i)
		switch {
		case j == i:
			b.WriteByte(text[i])
			i++
			continue
		case text[i] == '-' || text[i] == '/':
			b.WriteByte(' ')
		default:
			b.WriteString(text[i:j])
		}
		i = j
	}
	return strings.TrimSpace(b.String())
}

// skipOpaque returns the offset just past a quoted string or comment that
// begins at i, or i itself when none begins there.
func skipOpaque(text string, i int) int {
	switch c := text[i]; {
	case c == '\'' || c == '"' || c == '`':
		j := i + 1
		for j < len(text) {
			if text[j] == c {
				// doubled quote is an escaped quote
				if j+1 < len(text) && text[j+1] == c {
					j += 2
					continue
				}
				return j + 1
			}
			j++
		}
		return len(text)
	case c == '-' && i+1 < len(text) && text[i+1] == '-':
		if nl := strings.IndexByte(text[i:], '\n'); nl >= 0 {
			return i + nl + 1
		}
		return len(text)
	case c == '/' && i+1 < len(text) && text[i+1] == '*':
		if end := strings.Index(text[i+2:], "*/"); end >= 0 {
			return i + 2 + end + 2
		}
		return len(text)
	}
	return i
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9') || c == '$'
}
