package native

import (
	"strconv"

	"github.com/pkg/errors"

	"github.com/GriffinCanCode/cdrv-compiler/pkg/arch"
	"github.com/GriffinCanCode/cdrv-compiler/pkg/bytecode"
	"github.com/GriffinCanCode/cdrv-compiler/pkg/codegen/asm"
	"github.com/GriffinCanCode/cdrv-compiler/pkg/diag"
)

var binaryPatterns = map[bytecode.Opcode]string{
	bytecode.OpAddInt:   arch.AddInt,
	bytecode.OpSubInt:   arch.SubInt,
	bytecode.OpMulInt:   arch.MulInt,
	bytecode.OpDivInt:   arch.DivInt,
	bytecode.OpModInt:   arch.ModInt,
	bytecode.OpCmpEqInt: arch.CmpEqInt,
	bytecode.OpCmpNeInt: arch.CmpNeInt,
	bytecode.OpCmpLtInt: arch.CmpLtInt,
	bytecode.OpCmpLeInt: arch.CmpLeInt,
	bytecode.OpCmpGtInt: arch.CmpGtInt,
	bytecode.OpCmpGeInt: arch.CmpGeInt,
}

func malformed(in bytecode.Instruction) error {
	return errors.Wrapf(ErrMalformedOperand, "%s has operand %v", in.Op, in.Operand)
}

// lower emits the code of one instruction.
func (st *methodState) lower(out *asm.Buffer, in bytecode.Instruction) error {
	if pattern, ok := binaryPatterns[in.Op]; ok {
		return st.binary(out, pattern)
	}
	if rt, ok := runtimeCalls[in.Op]; ok {
		return st.runtimeCall(out, in, rt)
	}

	switch in.Op {
	case bytecode.OpPushInt:
		v, ok := in.Operand.(bytecode.Int)
		if !ok {
			return malformed(in)
		}
		return st.immediate(out, int64(v))

	case bytecode.OpPushBool:
		b, ok := in.Operand.(bytecode.Bool)
		if !ok {
			return malformed(in)
		}
		if b {
			return st.immediate(out, 1)
		}
		return st.immediate(out, 0)

	case bytecode.OpPushNull:
		return st.immediate(out, 0)

	case bytecode.OpPushString:
		s, ok := in.Operand.(bytecode.Str)
		if !ok {
			return malformed(in)
		}
		return st.address(out, st.stringLabel(string(s)))

	case bytecode.OpPushFloat:
		f, ok := in.Operand.(bytecode.Float)
		if !ok {
			return malformed(in)
		}
		st.report(diag.Info, "float constants are loaded by address")
		return st.address(out, st.floatLabel(float64(f)))

	case bytecode.OpPop:
		return st.drop()

	case bytecode.OpDup:
		return st.dup(out)

	case bytecode.OpSwap:
		n := len(st.stack)
		if n < 2 {
			return errStackEmpty
		}
		st.stack[n-1], st.stack[n-2] = st.stack[n-2], st.stack[n-1]
		return nil

	case bytecode.OpNegInt:
		src, err := st.pop(out)
		if err != nil {
			return err
		}
		dest, err := st.temp(out, src)
		if err != nil {
			return err
		}
		if err := st.emitOp(out, arch.NegInt, arch.Vars{"dest": dest, "src": src}); err != nil {
			return err
		}
		st.free(src)
		st.define(dest)
		st.push(dest)
		return nil

	case bytecode.OpJmp:
		label, err := st.target(in)
		if err != nil {
			return err
		}
		return st.emitOp(out, arch.Jmp, arch.Vars{"label": label})

	case bytecode.OpJmpIfTrue, bytecode.OpJmpIfFalse:
		return st.branch(out, in)

	case bytecode.OpLabel:
		l, _ := in.LabelOperand()
		st.depth = l.LoopDepth
		out.EmitRaw(arch.Fill(st.p.Syntax.LabelDirective, arch.Vars{"name": st.labels[l.Name]}))
		return nil

	case bytecode.OpRet:
		// The return sequence is emitted once, after the body.
		return nil

	case bytecode.OpLoadLocal:
		return st.loadLocal(out, in)

	case bytecode.OpStoreLocal, bytecode.OpStoreSlot:
		return st.storeLocal(out, in)

	case bytecode.OpLoadField:
		return st.loadField(out, in)

	case bytecode.OpStoreField:
		return st.storeField(out, in)

	case bytecode.OpCall, bytecode.OpCallSlots:
		return st.methodCall(out, in)
	}

	out.Comment("unhandled %s", in.Op)
	st.report(diag.Warning, "unhandled opcode %s", in.Op)
	return nil
}

// binary pops the right then the left operand and pushes the result.
func (st *methodState) binary(out *asm.Buffer, pattern string) error {
	right, err := st.pop(out)
	if err != nil {
		return err
	}
	left, err := st.pop(out, right)
	if err != nil {
		return err
	}
	dest, err := st.temp(out, left, right)
	if err != nil {
		return err
	}
	vars := arch.Vars{"dest": dest, "src1": left, "src2": right}
	if err := st.emitOp(out, pattern, vars); err != nil {
		return err
	}
	st.free(left, right)
	st.define(dest)
	st.push(dest)
	return nil
}

func (st *methodState) immediate(out *asm.Buffer, v int64) error {
	op := arch.LoadImmediate
	if !st.p.FitsImmediate(v) {
		if st.p.Has(arch.LoadImmediateWide) {
			op = arch.LoadImmediateWide
		} else {
			st.report(diag.Warning, "constant %d is wider than %d bits", v, st.p.ImmediateBits)
		}
	}
	dest, err := st.temp(out)
	if err != nil {
		return err
	}
	if err := st.emitOp(out, op, arch.Vars{"dest": dest, "value": strconv.FormatInt(v, 10)}); err != nil {
		return err
	}
	st.define(dest)
	st.push(dest)
	return nil
}

func (st *methodState) address(out *asm.Buffer, label string) error {
	dest, err := st.temp(out)
	if err != nil {
		return err
	}
	if err := st.emitOp(out, arch.LoadAddress, arch.Vars{"dest": dest, "label": label}); err != nil {
		return err
	}
	st.define(dest)
	st.push(dest)
	return nil
}

func (st *methodState) dup(out *asm.Buffer) error {
	src, err := st.pop(out)
	if err != nil {
		return err
	}
	st.push(src)
	dest, err := st.temp(out, src)
	if err != nil {
		return err
	}
	if err := st.moveReg(out, dest, src); err != nil {
		return err
	}
	st.define(dest)
	st.push(dest)
	return nil
}

func (st *methodState) target(in bytecode.Instruction) (string, error) {
	l, ok := in.LabelOperand()
	if !ok {
		return "", errors.Wrapf(bytecode.ErrUnresolvedLabel, "%s has no label", in.Op)
	}
	name, ok := st.labels[l.Name]
	if !ok {
		return "", errors.Wrapf(bytecode.ErrUnresolvedLabel, "%q", l.Name)
	}
	return name, nil
}

func (st *methodState) branch(out *asm.Buffer, in bytecode.Instruction) error {
	label, err := st.target(in)
	if err != nil {
		return err
	}
	cond, err := st.pop(out)
	if err != nil {
		return err
	}
	op := arch.JmpIfTrue
	if in.Op == bytecode.OpJmpIfFalse {
		op = arch.JmpIfFalse
	}
	if err := st.emitOp(out, op, arch.Vars{"condition": cond, "label": label}); err != nil {
		return err
	}
	st.free(cond)
	return nil
}

func (st *methodState) loadLocal(out *asm.Buffer, in bytecode.Instruction) error {
	slot, ok := in.Slot()
	if !ok {
		return malformed(in)
	}
	loc, ok := st.g.spill.SlotLocation(slot)
	if !ok {
		return errors.Wrapf(ErrUnknownSlot, "local #%d", slot)
	}
	if loc.Spilled {
		dest, err := st.temp(out)
		if err != nil {
			return err
		}
		vars := arch.Offset(loc.Offset).Merge(arch.Vars{"dest_reg": dest})
		if err := st.emitOp(out, arch.LoadFromStack, vars); err != nil {
			return err
		}
		st.define(dest)
		st.push(dest)
		return nil
	}

	if err := st.g.spill.Fill(out, loc.Register); err != nil {
		return err
	}
	dest, err := st.temp(out, loc.Register)
	if err != nil {
		return err
	}
	if err := st.moveReg(out, dest, loc.Register); err != nil {
		return err
	}
	st.define(dest)
	st.push(dest)
	return nil
}

func (st *methodState) storeLocal(out *asm.Buffer, in bytecode.Instruction) error {
	slot, ok := in.Slot()
	if !ok {
		return malformed(in)
	}
	loc, ok := st.g.spill.SlotLocation(slot)
	if !ok {
		return errors.Wrapf(ErrUnknownSlot, "local #%d", slot)
	}
	src, err := st.pop(out)
	if err != nil {
		return err
	}
	if loc.Spilled {
		vars := arch.Offset(loc.Offset).Merge(arch.Vars{"src_reg": src})
		if err := st.emitOp(out, arch.StoreToStack, vars); err != nil {
			return err
		}
		st.free(src)
		return nil
	}

	if err := st.moveReg(out, loc.Register, src); err != nil {
		return err
	}
	st.free(src)
	st.define(loc.Register)
	return nil
}

func (st *methodState) loadField(out *asm.Buffer, in bytecode.Instruction) error {
	f, ok := in.Operand.(bytecode.FieldRef)
	if !ok {
		return malformed(in)
	}
	dest, err := st.temp(out)
	if err != nil {
		return err
	}
	vars := arch.Offset(st.fieldOffset(string(f))).Merge(arch.Vars{
		"dest_reg": dest,
		"base_reg": st.p.Registers.Receiver,
	})
	if err := st.emitOp(out, arch.LoadField, vars); err != nil {
		return err
	}
	st.define(dest)
	st.push(dest)
	return nil
}

func (st *methodState) storeField(out *asm.Buffer, in bytecode.Instruction) error {
	f, ok := in.Operand.(bytecode.FieldRef)
	if !ok {
		return malformed(in)
	}
	src, err := st.pop(out)
	if err != nil {
		return err
	}
	vars := arch.Offset(st.fieldOffset(string(f))).Merge(arch.Vars{
		"src_reg":  src,
		"base_reg": st.p.Registers.Receiver,
	})
	if err := st.emitOp(out, arch.StoreField, vars); err != nil {
		return err
	}
	st.free(src)
	return nil
}
