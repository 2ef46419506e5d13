package compress

import "strings"

// breakLines inserts a newline after breakAfter once the current line is
// longer than width columns. A negative width disables breaking; zero breaks
// after every occurrence. Quoted strings are never split.
func breakLines(s string, width int, breakAfter byte) string {
	if width < 0 || breakAfter == 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + len(s)/64)
	lineStart := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		b.WriteByte(c)
		switch {
		case quote != 0:
			if c == '\\' && i+1 < len(s) {
				i++
				b.WriteByte(s[i])
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'' || c == '`':
			quote = c
		case c == '\n':
			lineStart = b.Len()
		case c == breakAfter && i < len(s)-1 && b.Len()-lineStart > width:
			b.WriteByte('\n')
			lineStart = b.Len()
		}
	}
	return b.String()
}
