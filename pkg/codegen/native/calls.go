package native

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/GriffinCanCode/cdrv-compiler/pkg/arch"
	"github.com/GriffinCanCode/cdrv-compiler/pkg/bytecode"
	"github.com/GriffinCanCode/cdrv-compiler/pkg/codegen/asm"
)

// runtimeCall describes an opcode implemented by a runtime routine.
type runtimeCall struct {
	symbol  string
	args    int
	results int
}

// Runtime symbols
var runtimeCalls = map[bytecode.Opcode]runtimeCall{
	bytecode.OpPrint:        {"runtime_print", 1, 0},
	bytecode.OpConcatString: {"string_concat", 2, 1},
	bytecode.OpIntToString:  {"runtime_int_to_string", 1, 1},
	bytecode.OpArrayNew:     {"array_new", 1, 1},
	bytecode.OpArrayLoad:    {"array_load", 2, 1},
	bytecode.OpArrayStore:   {"array_store", 3, 0},
	bytecode.OpArrayLength:  {"array_length", 1, 1},
	bytecode.OpReadInput:    {"runtime_read_input", 1, 1},
}

// RuntimeSymbols returns the names of the runtime routines generated code
// may call, sorted.
func RuntimeSymbols() []string {
	out := make([]string, 0, len(runtimeCalls))
	for _, rt := range runtimeCalls {
		out = append(out, rt.symbol)
	}
	sort.Strings(out)
	return out
}

func (st *methodState) runtimeCall(out *asm.Buffer, in bytecode.Instruction, rt runtimeCall) error {
	if in.Op == bytecode.OpReadInput {
		// The type name is passed as a string.
		t, _ := in.Operand.(bytecode.TypeRef)
		if err := st.address(out, st.stringLabel(string(t))); err != nil {
			return err
		}
	}
	return st.call(out, rt.symbol, rt.args, false, rt.results)
}

func (st *methodState) methodCall(out *asm.Buffer, in bytecode.Instruction) error {
	target, ok := in.CallTarget()
	if !ok {
		return errors.Errorf("%s has no target", in.Op)
	}
	pops, pushes := st.effects.At(st.index)
	return st.call(out, Symbol(target), pops, true, pushes)
}

// call spills live caller-saved registers, moves nargs values from the
// operand stack into argument registers, calls symbol, restores the spilled
// registers and pushes results values taken from the return registers.
func (st *methodState) call(out *asm.Buffer, symbol string, nargs int, receiver bool, results int) error {
	regs := &st.p.Registers
	argRegs := regs.Arguments
	retRegs := regs.ReturnRegisters()

	first := 0
	if receiver {
		first = 1
	}
	if first+nargs > len(argRegs) {
		return errors.Errorf("call to %s passes %d arguments, only %d fit in registers", symbol, nargs, len(argRegs)-first)
	}
	if results > len(retRegs) {
		return errors.Errorf("call to %s returns %d values, only %d return registers", symbol, results, len(retRegs))
	}
	if nargs > len(st.stack) {
		return errors.Wrapf(errStackEmpty, "call to %s needs %d arguments", symbol, nargs)
	}

	vals := make([]string, nargs)
	for i := nargs - 1; i >= 0; i-- {
		reg, err := st.pop(out, vals[i+1:]...)
		if err != nil {
			return err
		}
		vals[i] = reg
	}

	var spilled []string
	for _, r := range st.g.alloc.Used() {
		if !st.p.IsCallerSaved(r) || contains(vals, r) || contains(argRegs, r) || st.g.spill.IsSpilled(r) {
			continue
		}
		if err := st.g.spill.ForceSpill(out, r); err != nil {
			return err
		}
		spilled = append(spilled, r)
	}

	var marshalled []string
	if receiver {
		st.g.alloc.MarkUsed(argRegs[0])
		marshalled = append(marshalled, argRegs[0])
		if err := st.moveReg(out, argRegs[0], regs.Receiver); err != nil {
			return err
		}
	}
	for i, v := range vals {
		dst := argRegs[first+i]
		st.g.alloc.MarkUsed(dst)
		marshalled = append(marshalled, dst)
		if err := st.moveReg(out, dst, v); err != nil {
			return err
		}
		st.free(v)
	}

	if err := st.emitOp(out, arch.Call, arch.Vars{"name": symbol}); err != nil {
		return err
	}
	st.free(marshalled...)

	sort.Strings(spilled)
	for _, r := range spilled {
		if !st.g.alloc.IsUsed(r) {
			continue
		}
		if err := st.g.spill.Fill(out, r); err != nil {
			return err
		}
	}

	for i := 0; i < results; i++ {
		st.g.alloc.MarkUsed(retRegs[i])
	}
	for i := 0; i < results; i++ {
		dest, err := st.temp(out)
		if err != nil {
			return err
		}
		if err := st.moveReg(out, dest, retRegs[i]); err != nil {
			return err
		}
		st.define(dest)
		st.push(dest)
	}
	st.free(retRegs[:results]...)
	return nil
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
