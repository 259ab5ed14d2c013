// Package span provides source position and span types shared by the front end and the runtime.
package span

import "fmt"

// Position represents a position in source code.
type Position struct {
	Offset int `json:"offset" yaml:"offset"` // byte offset from beginning of source
	Line   int `json:"line" yaml:"line"`     // 1-based line number
	Column int `json:"column" yaml:"column"` // 1-based column number
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// IsZero reports whether the position was never set (line numbers start at 1).
func (p Position) IsZero() bool {
	return p.Line == 0
}

// Span represents a range in source code [Start, End).
type Span struct {
	Start Position `json:"start" yaml:"start"`
	End   Position `json:"end" yaml:"end"`
}

func (s Span) String() string {
	return fmt.Sprintf("%s..%s", s.Start, s.End)
}

// Join returns the smallest span covering both a and b.
func Join(a, b Span) Span {
	return Span{Start: a.Start, End: b.End}
}
