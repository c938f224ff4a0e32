// Package asm holds assembly text while it is being generated.
package asm

import (
	"fmt"
	"strings"
)

// Buffer is an ordered list of assembly lines. Instructions are indented,
// labels and directives are written as given.
type Buffer struct {
	indent  string
	comment string
	lines   []string
}

// NewBuffer creates a buffer that indents instructions with indent and
// prefixes comments with commentMarker.
func NewBuffer(indent, commentMarker string) *Buffer {
	return &Buffer{indent: indent, comment: commentMarker}
}

// Emit appends instruction lines.
func (b *Buffer) Emit(lines ...string) {
	for _, l := range lines {
		b.lines = append(b.lines, b.indent+l)
	}
}

// EmitRaw appends lines without indentation.
func (b *Buffer) EmitRaw(lines ...string) {
	b.lines = append(b.lines, lines...)
}

// Comment appends an indented comment line.
func (b *Buffer) Comment(format string, args ...interface{}) {
	b.lines = append(b.lines, b.indent+b.comment+" "+fmt.Sprintf(format, args...))
}

// Append copies the lines of other onto b.
func (b *Buffer) Append(other *Buffer) {
	if other == nil {
		return
	}
	b.lines = append(b.lines, other.lines...)
}

// Lines returns a copy of the buffered lines.
func (b *Buffer) Lines() []string {
	out := make([]string, len(b.lines))
	copy(out, b.lines)
	return out
}

func (b *Buffer) Len() int { return len(b.lines) }

// String joins the lines with a trailing newline.
func (b *Buffer) String() string {
	if len(b.lines) == 0 {
		return ""
	}
	return strings.Join(b.lines, "\n") + "\n"
}
