package bytecode

import (
	"fmt"
	"strconv"
)

// Operand is the immediate argument of an instruction. The set of variants
// is closed.
type Operand interface {
	operand()
	String() string
}

type Int int64

func (Int) operand()         {}
func (v Int) String() string { return strconv.FormatInt(int64(v), 10) }

type Float float64

func (Float) operand()         {}
func (v Float) String() string { return strconv.FormatFloat(float64(v), 'g', -1, 64) }

type Str string

func (Str) operand()         {}
func (v Str) String() string { return strconv.Quote(string(v)) }

type Bool bool

func (Bool) operand()         {}
func (v Bool) String() string { return strconv.FormatBool(bool(v)) }

// Label names a jump target. LoopDepth is the loop nesting depth of the code
// that follows the label; jump operands carry the depth of their target.
type Label struct {
	Name      string
	LoopDepth int
}

func (Label) operand() {}
func (l Label) String() string {
	if l.LoopDepth == 0 {
		return l.Name
	}
	return fmt.Sprintf("%s (depth %d)", l.Name, l.LoopDepth)
}

// MethodRef is the qualified name of a called method.
type MethodRef string

func (MethodRef) operand()         {}
func (m MethodRef) String() string { return string(m) }

// SlotIndex addresses a local, parameter or return slot.
type SlotIndex int

func (SlotIndex) operand()         {}
func (s SlotIndex) String() string { return "#" + strconv.Itoa(int(s)) }

// SlotCall is the operand of CALL_SLOTS.
type SlotCall struct {
	Method string
	Slots  int
}

func (SlotCall) operand()         {}
func (c SlotCall) String() string { return fmt.Sprintf("%s/%d", c.Method, c.Slots) }

// FieldRef names a receiver field.
type FieldRef string

func (FieldRef) operand()         {}
func (f FieldRef) String() string { return "." + string(f) }

// TypeRef names the value type read by READ_INPUT.
type TypeRef string

func (TypeRef) operand()         {}
func (t TypeRef) String() string { return string(t) }

// Instruction is one opcode with its optional operand.
type Instruction struct {
	Op      Opcode
	Operand Operand
}

func (in Instruction) String() string {
	if in.Operand == nil {
		return in.Op.String()
	}
	return in.Op.String() + " " + in.Operand.String()
}

// I builds an instruction without an operand.
func I(op Opcode) Instruction { return Instruction{Op: op} }

// With builds an instruction carrying an operand.
func With(op Opcode, operand Operand) Instruction {
	return Instruction{Op: op, Operand: operand}
}

// LabelOperand returns the label of a LABEL or jump instruction.
func (in Instruction) LabelOperand() (Label, bool) {
	l, ok := in.Operand.(Label)
	return l, ok
}

// Slot returns the slot index of a local or slot instruction.
func (in Instruction) Slot() (int, bool) {
	s, ok := in.Operand.(SlotIndex)
	return int(s), ok
}

// CallTarget returns the callee name of CALL and CALL_SLOTS.
func (in Instruction) CallTarget() (string, bool) {
	switch o := in.Operand.(type) {
	case MethodRef:
		return string(o), true
	case SlotCall:
		return o.Method, true
	}
	return "", false
}
