package lexer

import (
	"fmt"
	"strconv"
	"strings"
)

// SyntaxError is the runtime failure raised when a throwing rule matches. It
// carries the offending token (nil for internal protocol failures) and a
// multi-line diagnostic produced by FormatError.
type SyntaxError struct {
	Token *Token
	msg   string
}

func (e *SyntaxError) Error() string {
	return e.msg
}

// contextLines is how many source lines FormatError shows on each side of
// the offending line.
const contextLines = 2

// FormatError renders a diagnostic pointing at a token:
//
//	invalid syntax at line 2 col 5:
//
//	1  first line
//	2  bad token here
//	       ^
//	3  next line
//
// A nil token stands for end-of-input at the current cursor position.
func (l *Lexer) FormatError(tok *Token, message string) string {
	if tok == nil {
		text := l.buffer[l.index:]
		tok = &Token{
			Text:       text,
			Offset:     l.index,
			LineBreaks: strings.Count(text, "\n"),
			Line:       l.line,
			Col:        l.col,
		}
	}

	first := tok.Line - contextLines
	if first < 1 {
		first = 1
	}
	last := tok.Line + contextLines
	digits := len(strconv.Itoa(last))

	out := []string{
		fmt.Sprintf("%s at line %d col %d:", message, tok.Line, tok.Col),
		"",
	}
	lines := strings.Split(l.buffer, "\n")
	if last > len(lines) {
		last = len(lines)
	}
	for no := first; no <= last; no++ {
		out = append(out, fmt.Sprintf("%*d  %s", digits, no, lines[no-1]))
		if no == tok.Line {
			out = append(out, strings.Repeat(" ", digits+tok.Col+1)+"^")
		}
	}
	return strings.Join(out, "\n")
}
