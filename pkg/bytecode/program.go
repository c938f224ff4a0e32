// Package bytecode implements the stack-machine IR and its AST compiler.
//
// Design: one ordered instruction list per method, stored by value in a
// Program. Lists are copied on the way in and out, so a stored method never
// changes after AddMethod.
package bytecode

import (
	"fmt"
	"io"
)

// Signature describes the calling shape of a compiled method.
type Signature struct {
	Params      int
	ReturnSlots int
}

// Program maps method names to bytecode and, optionally, native assembly.
type Program struct {
	order      []string
	methods    map[string][]Instruction
	signatures map[string]Signature

	nativeOrder []string
	native      map[string]string
}

func NewProgram() *Program {
	return &Program{
		methods:    make(map[string][]Instruction),
		signatures: make(map[string]Signature),
		native:     make(map[string]string),
	}
}

// AddMethod stores a copy of code under name, replacing any previous entry.
// A replaced method keeps its original position.
func (p *Program) AddMethod(name string, code []Instruction) {
	if _, ok := p.methods[name]; !ok {
		p.order = append(p.order, name)
	}
	stored := make([]Instruction, len(code))
	copy(stored, code)
	p.methods[name] = stored
}

// Method returns a copy of the instructions stored under name.
func (p *Program) Method(name string) ([]Instruction, bool) {
	code, ok := p.methods[name]
	if !ok {
		return nil, false
	}
	out := make([]Instruction, len(code))
	copy(out, code)
	return out, true
}

// Methods returns method names in insertion order.
func (p *Program) Methods() []string {
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

func (p *Program) SetSignature(name string, sig Signature) {
	p.signatures[name] = sig
}

// Signature returns the recorded signature of name, or the zero value.
func (p *Program) Signature(name string) Signature {
	return p.signatures[name]
}

// AddNative stores generated assembly text for name.
func (p *Program) AddNative(name, asm string) {
	if _, ok := p.native[name]; !ok {
		p.nativeOrder = append(p.nativeOrder, name)
	}
	p.native[name] = asm
}

func (p *Program) Native(name string) (string, bool) {
	asm, ok := p.native[name]
	return asm, ok
}

func (p *Program) HasNative(name string) bool {
	_, ok := p.native[name]
	return ok
}

// NativeMethods returns the names with native text in insertion order.
func (p *Program) NativeMethods() []string {
	out := make([]string, len(p.nativeOrder))
	copy(out, p.nativeOrder)
	return out
}

// Disassemble writes every method as index, opcode and operand lines.
func (p *Program) Disassemble(w io.Writer) error {
	for _, name := range p.order {
		if err := DisassembleMethod(w, name, p.methods[name]); err != nil {
			return err
		}
	}
	return nil
}

// DisassembleMethod writes one method listing.
func DisassembleMethod(w io.Writer, name string, code []Instruction) error {
	if _, err := fmt.Fprintf(w, "Method: %s\n", name); err != nil {
		return err
	}
	for i, in := range code {
		operand := ""
		if in.Operand != nil {
			operand = in.Operand.String()
		}
		if _, err := fmt.Fprintf(w, "  %04d: %-15s %s\n", i, in.Op, operand); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}

// DisassembleNative writes every native method separated by blank lines.
func (p *Program) DisassembleNative(w io.Writer) error {
	for _, name := range p.nativeOrder {
		if _, err := fmt.Fprintf(w, "%s\n\n", p.native[name]); err != nil {
			return err
		}
	}
	return nil
}
