package loader

import (
	"fmt"
	"strings"
)

// Line is one source line tagged with its origin, grounded on
// original_source/src/source_line.h's SourceLine: a raw line plus the
// derived facts the loader needs repeatedly (its comment-stripped form,
// whether it uses the spaced grid layout, and per-cell text extraction).
type Line struct {
	File   string
	Number int
	Raw    string
}

// NewLine wraps a raw source line with its file and 1-based line number.
func NewLine(file string, number int, raw string) Line {
	return Line{File: file, Number: number, Raw: raw}
}

// Stripped returns the line with any trailing "#…" comment removed and
// trailing whitespace trimmed. It does not trim leading whitespace: a
// spaced grid row's cell boundaries are significant from column 0.
func (l Line) Stripped() string {
	s := l.Raw
	if i := strings.IndexByte(s, '#'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimRight(s, " \t\r\n")
}

// IsInclude reports whether the line is a #include directive. The check is
// a literal prefix on the raw line, with no leading-whitespace tolerance:
// an indented "#include" inside a grid row's comment is not a directive.
func (l Line) IsInclude() bool {
	return strings.HasPrefix(l.Raw, "#include")
}

// IncludePath returns the whitespace-trimmed path argument of a #include
// directive. Only meaningful when IsInclude reports true.
func (l Line) IncludePath() string {
	return strings.TrimSpace(strings.TrimPrefix(l.Raw, "#include"))
}

// IsBoardDirective reports whether the stripped line opens a new board
// declaration (":NAME").
func (l Line) IsBoardDirective() bool {
	return strings.HasPrefix(l.Stripped(), ":")
}

// BoardName returns the name argument of a ":NAME" directive line.
func (l Line) BoardName() string {
	return strings.TrimSpace(strings.TrimPrefix(l.Stripped(), ":"))
}

// Spaced reports whether this grid row uses the spaced cell layout: a
// single-space run somewhere in the row and no two-space run anywhere
// (spec §4.6).
func (l Line) Spaced() bool {
	s := l.Stripped()
	return strings.Contains(s, " ") && !strings.Contains(s, "  ")
}

// Width returns the number of 2-character cells this row encodes, given
// its already-determined spaced-ness, or an error if the row's length is
// inconsistent with that layout.
func (l Line) Width(spaced bool) (int, error) {
	s := l.Stripped()
	if spaced {
		if (len(s)+1)%3 != 0 {
			return 0, l.errorf("%w: spaced row length %d is not 3n-1", ErrLex, len(s))
		}
		return (len(s) + 1) / 3, nil
	}
	if len(s)%2 != 0 {
		return 0, l.errorf("%w: unspaced row length %d is odd", ErrLex, len(s))
	}
	return len(s) / 2, nil
}

// CellText returns the 2-character cell text at column x, given the row's
// spaced-ness.
func (l Line) CellText(x int, spaced bool) (string, error) {
	s := l.Stripped()
	var start int
	if spaced {
		start = 3 * x
		if start+2 > len(s) {
			return "", l.errorf("%w: column %d out of range", ErrLex, x)
		}
		if start+2 < len(s) && s[start+2] != ' ' {
			return "", l.errorf("%w: expected space separator after column %d", ErrLex, x)
		}
	} else {
		start = 2 * x
		if start+2 > len(s) {
			return "", l.errorf("%w: column %d out of range", ErrLex, x)
		}
	}
	return s[start : start+2], nil
}

func (l Line) errorf(format string, args ...any) error {
	prefix := fmt.Sprintf("%s:%d: ", l.File, l.Number)
	return fmt.Errorf(prefix+format, args...)
}

// Errorf builds a diagnostic error prefixed with this line's file and line
// number ("file:line: "). It adds no column; a column appears only where
// the message text itself names one.
func (l Line) Errorf(format string, args ...any) error {
	return l.errorf(format, args...)
}
