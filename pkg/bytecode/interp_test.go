package bytecode

import (
	"fmt"
)

// interp executes integer-only bytecode. Calls, strings, fields and arrays
// are outside what it models.
type interp struct {
	locals  map[int]int64
	stack   []int64
	printed []int64
	steps   int
}

func run(code []Instruction) (*interp, error) {
	vm := &interp{locals: make(map[int]int64)}
	labels := LabelIndex(code)

	for pc := 0; pc < len(code); pc++ {
		vm.steps++
		if vm.steps > 100000 {
			return vm, fmt.Errorf("step limit at %d", pc)
		}
		in := code[pc]
		switch in.Op {
		case OpPushInt:
			vm.push(int64(in.Operand.(Int)))
		case OpPushBool:
			vm.push(b2i(bool(in.Operand.(Bool))))
		case OpPushNull:
			vm.push(0)
		case OpPop:
			vm.pop()
		case OpDup:
			v := vm.pop()
			vm.push(v)
			vm.push(v)
		case OpSwap:
			b, a := vm.pop(), vm.pop()
			vm.push(b)
			vm.push(a)
		case OpNegInt:
			vm.push(-vm.pop())
		case OpLoadLocal:
			slot, _ := in.Slot()
			vm.push(vm.locals[slot])
		case OpStoreLocal, OpStoreSlot:
			slot, _ := in.Slot()
			vm.locals[slot] = vm.pop()
		case OpPrint:
			vm.printed = append(vm.printed, vm.pop())
		case OpLabel:
		case OpJmp:
			l, _ := in.LabelOperand()
			pc = labels[l.Name]
		case OpJmpIfTrue, OpJmpIfFalse:
			l, _ := in.LabelOperand()
			if (vm.pop() != 0) == (in.Op == OpJmpIfTrue) {
				pc = labels[l.Name]
			}
		case OpRet:
			return vm, nil
		default:
			if !in.Op.IsBinary() {
				return vm, fmt.Errorf("unsupported %s at %d", in.Op, pc)
			}
			b, a := vm.pop(), vm.pop()
			vm.push(binop(in.Op, a, b))
		}
	}
	return vm, nil
}

func (vm *interp) push(v int64) { vm.stack = append(vm.stack, v) }

func (vm *interp) pop() int64 {
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v
}

func binop(op Opcode, a, b int64) int64 {
	switch op {
	case OpAddInt:
		return a + b
	case OpSubInt:
		return a - b
	case OpMulInt:
		return a * b
	case OpDivInt:
		return a / b
	case OpModInt:
		return a % b
	case OpCmpEqInt:
		return b2i(a == b)
	case OpCmpNeInt:
		return b2i(a != b)
	case OpCmpLtInt:
		return b2i(a < b)
	case OpCmpLeInt:
		return b2i(a <= b)
	case OpCmpGtInt:
		return b2i(a > b)
	case OpCmpGeInt:
		return b2i(a >= b)
	}
	panic(op.String())
}

func b2i(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
