package bytecode

import (
	"github.com/pkg/errors"
)

var (
	ErrUnresolvedLabel = errors.New("unresolved label")
	ErrDuplicateLabel  = errors.New("duplicate label")
	ErrStackUnderflow  = errors.New("operand stack underflow")
	ErrStackMismatch   = errors.New("inconsistent operand stack depth")
)

// Effects holds the stack effect of every instruction of one method.
type Effects struct {
	pops   []int
	pushes []int
}

// ComputeEffects works out the stack effect of every instruction in code in a
// single forward pass. A call's arity is inferred from the effects already
// recorded for the instructions before it, so each call is scanned once.
func ComputeEffects(code []Instruction) *Effects {
	e := &Effects{pops: make([]int, len(code)), pushes: make([]int, len(code))}
	for i, in := range code {
		switch in.Op {
		case OpCall:
			e.pops[i], e.pushes[i] = e.arity(code, i), 1
		case OpCallSlots:
			if c, ok := in.Operand.(SlotCall); ok {
				e.pushes[i] = c.Slots
			}
			e.pops[i] = e.arity(code, i)
		default:
			if in.Op >= 0 && in.Op < numOpcodes {
				e.pops[i], e.pushes[i] = fixedEffect[in.Op][0], fixedEffect[in.Op][1]
			}
		}
	}
	return e
}

// At returns how many values code[i] pops and pushes.
func (e *Effects) At(i int) (pops, pushes int) {
	return e.pops[i], e.pushes[i]
}

// Arity returns the inferred argument count of the call at i.
func (e *Effects) Arity(i int) int { return e.pops[i] }

// arity walks backwards from the call at index at. Values pushed beyond what
// later instructions still need are arguments; the scan stops at the first
// JMP, LABEL or RET.
func (e *Effects) arity(code []Instruction, at int) int {
	required, args := 0, 0
	for j := at - 1; j >= 0; j-- {
		op := code[j].Op
		if op == OpJmp || op == OpLabel || op == OpRet {
			break
		}
		required -= e.pushes[j]
		if required < 0 {
			args += -required
			required = 0
		}
		required += e.pops[j]
	}
	return args
}

// StackEffect returns how many values code[i] pops and pushes. Callers that
// need the effect of many instructions should use ComputeEffects.
func StackEffect(code []Instruction, i int) (pops, pushes int) {
	return ComputeEffects(code[:i+1]).At(i)
}

// InferCallArity counts the arguments consumed by the call at index at.
func InferCallArity(code []Instruction, at int) int {
	return ComputeEffects(code[:at]).arity(code, at)
}

// VerifyLabels checks that every label is defined exactly once and that every
// jump names a defined label.
func VerifyLabels(code []Instruction) error {
	defined := make(map[string]int)
	for i, in := range code {
		if in.Op != OpLabel {
			continue
		}
		l, ok := in.LabelOperand()
		if !ok || l.Name == "" {
			return errors.Wrapf(ErrUnresolvedLabel, "LABEL at %d has no name", i)
		}
		if prev, dup := defined[l.Name]; dup {
			return errors.Wrapf(ErrDuplicateLabel, "%q at %d and %d", l.Name, prev, i)
		}
		defined[l.Name] = i
	}
	for i, in := range code {
		if !in.Op.IsJump() {
			continue
		}
		l, ok := in.LabelOperand()
		if !ok {
			return errors.Wrapf(ErrUnresolvedLabel, "%s at %d has no label operand", in.Op, i)
		}
		if _, ok := defined[l.Name]; !ok {
			return errors.Wrapf(ErrUnresolvedLabel, "%s at %d targets %q", in.Op, i, l.Name)
		}
	}
	return nil
}

// LabelIndex maps label names to the index of their LABEL instruction.
func LabelIndex(code []Instruction) map[string]int {
	out := make(map[string]int)
	for i, in := range code {
		if l, ok := in.LabelOperand(); ok && in.Op == OpLabel {
			out[l.Name] = i
		}
	}
	return out
}

// StackDepths simulates the operand stack over every control-flow path and
// returns the depth before each instruction, or -1 for unreachable ones.
// Paths that meet with different depths are an error.
func StackDepths(code []Instruction) ([]int, error) {
	if err := VerifyLabels(code); err != nil {
		return nil, err
	}
	labels := LabelIndex(code)
	effects := ComputeEffects(code)
	depths := make([]int, len(code))
	for i := range depths {
		depths[i] = -1
	}
	if len(code) == 0 {
		return depths, nil
	}

	depths[0] = 0
	work := []int{0}
	for len(work) > 0 {
		i := work[len(work)-1]
		work = work[:len(work)-1]

		in := code[i]
		pops, pushes := effects.At(i)
		if depths[i] < pops {
			return nil, errors.Wrapf(ErrStackUnderflow, "%s at %d needs %d, has %d", in.Op, i, pops, depths[i])
		}
		next := depths[i] - pops + pushes

		var succ []int
		switch {
		case in.Op == OpRet:
		case in.Op == OpJmp:
			l, _ := in.LabelOperand()
			succ = append(succ, labels[l.Name])
		case in.Op.IsConditionalJump():
			l, _ := in.LabelOperand()
			succ = append(succ, i+1, labels[l.Name])
		default:
			succ = append(succ, i+1)
		}

		for _, s := range succ {
			if s >= len(code) {
				continue
			}
			switch depths[s] {
			case -1:
				depths[s] = next
				work = append(work, s)
			case next:
			default:
				return nil, errors.Wrapf(ErrStackMismatch, "at %d: %d vs %d", s, depths[s], next)
			}
		}
	}
	return depths, nil
}
