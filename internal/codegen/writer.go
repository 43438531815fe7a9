package codegen

import (
	"fmt"
	"strings"
)

const indentUnit = "  "

// writer accumulates indented lines of emitted code.
type writer struct {
	b     strings.Builder
	depth int
}

func (w *writer) line(format string, args ...any) {
	for i := 0; i < w.depth; i++ {
		w.b.WriteString(indentUnit)
	}
	if len(args) == 0 {
		w.b.WriteString(format)
	} else {
		fmt.Fprintf(&w.b, format, args...)
	}
	w.b.WriteByte('\n')
}

// open writes a line ending a block opener and indents.
func (w *writer) open(format string, args ...any) {
	w.line(format, args...)
	w.depth++
}

// close dedents and writes the closing line.
func (w *writer) close(text string) {
	w.depth--
	w.line(text)
}

func (w *writer) String() string {
	return w.b.String()
}
