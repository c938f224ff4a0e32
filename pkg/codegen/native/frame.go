package native

import (
	"strconv"

	"github.com/pkg/errors"

	"github.com/GriffinCanCode/cdrv-compiler/pkg/arch"
	"github.com/GriffinCanCode/cdrv-compiler/pkg/bytecode"
	"github.com/GriffinCanCode/cdrv-compiler/pkg/codegen/asm"
	"github.com/GriffinCanCode/cdrv-compiler/pkg/codegen/regalloc"
)

// Stack frame
//
//	fp + 16 - FrameBase + 8k   incoming stack argument k
//	fp - FrameBase             prologue area ends here
//	...                        spill slots, 8 bytes each, growing down
//	...                        callee-saved register area
//	sp                         16-byte aligned

// localSlots returns the slots the method touches: parameters first, then
// every other slot in order of first use.
func (st *methodState) localSlots() []int {
	seen := make(map[int]bool)
	var slots []int
	for i := 0; i < st.sig.Params; i++ {
		seen[i] = true
		slots = append(slots, i)
	}
	for _, in := range st.code {
		switch in.Op {
		case bytecode.OpLoadLocal, bytecode.OpStoreLocal, bytecode.OpStoreSlot:
			if s, ok := in.Slot(); ok && !seen[s] {
				seen[s] = true
				slots = append(slots, s)
			}
		}
	}
	return slots
}

// enter pins the receiver, gives every local a home and moves the incoming
// parameters there. Locals beyond the register budget live in the frame.
func (st *methodState) enter(out *asm.Buffer) error {
	regs := &st.p.Registers
	alloc, spill := st.g.alloc, st.g.spill

	alloc.Pin(regs.Receiver)
	spill.UpdateDefinitionDepth(regs.Receiver, 0)

	budget := len(alloc.Available()) - tempReserve
	for _, slot := range st.localSlots() {
		if budget <= 0 {
			spill.MapSlotToOffset(slot, spill.NewStackSlot())
			continue
		}
		home, err := alloc.Allocate(out)
		if err != nil {
			return err
		}
		alloc.Pin(home)
		spill.MapSlotToRegister(slot, home)
		budget--
	}

	inRegs := len(regs.Arguments) - 1
	for i := 0; i < st.sig.Params; i++ {
		loc, _ := spill.SlotLocation(i)
		if i < inRegs {
			arg := regs.Arguments[i+1]
			alloc.MarkUsed(arg)
			spill.UpdateDefinitionDepth(arg, 0)
			if err := st.storeHome(out, loc, arg); err != nil {
				return err
			}
			st.free(arg)
			continue
		}

		off := 16 - st.p.FrameBase + 8*(i-inRegs)
		if !loc.Spilled {
			vars := arch.Offset(off).Merge(arch.Vars{"dest_reg": loc.Register})
			if err := st.emitOp(out, arch.LoadFromStack, vars); err != nil {
				return err
			}
			st.define(loc.Register)
			continue
		}
		tmp, err := st.temp(out)
		if err != nil {
			return err
		}
		vars := arch.Offset(off).Merge(arch.Vars{"dest_reg": tmp})
		if err := st.emitOp(out, arch.LoadFromStack, vars); err != nil {
			return err
		}
		if err := st.storeHome(out, loc, tmp); err != nil {
			return err
		}
		st.free(tmp)
	}
	return nil
}

func (st *methodState) storeHome(out *asm.Buffer, loc regalloc.Location, src string) error {
	if loc.Spilled {
		vars := arch.Offset(loc.Offset).Merge(arch.Vars{"src_reg": src})
		return st.emitOp(out, arch.StoreToStack, vars)
	}
	if err := st.moveReg(out, loc.Register, src); err != nil {
		return err
	}
	st.define(loc.Register)
	return nil
}

// returnSection places the method's results in the return registers.
func (st *methodState) returnSection(out *asm.Buffer) error {
	rets := st.p.Registers.ReturnRegisters()

	if n := st.sig.ReturnSlots; n > 0 {
		if n > len(rets) {
			return errors.Wrapf(ErrTooManyReturns, "%d slots, %d return registers", n, len(rets))
		}
		out.Comment("Return slots")
		for i := 0; i < n; i++ {
			slot := st.sig.Params + i
			loc, ok := st.g.spill.SlotLocation(slot)
			if !ok {
				return errors.Wrapf(ErrUnknownSlot, "return slot %d (#%d) is never assigned", i, slot)
			}
			if loc.Spilled {
				vars := arch.Offset(loc.Offset).Merge(arch.Vars{"dest_reg": rets[i]})
				if err := st.emitOp(out, arch.LoadFromStack, vars); err != nil {
					return err
				}
				continue
			}
			if err := st.moveReg(out, rets[i], loc.Register); err != nil {
				return err
			}
		}
		return nil
	}

	if len(st.stack) > 0 {
		reg, err := st.pop(out)
		if err != nil {
			return err
		}
		if err := st.moveReg(out, rets[0], reg); err != nil {
			return err
		}
		st.free(reg)
		return nil
	}
	return st.emitOp(out, arch.LoadImmediate, arch.Vars{"dest": rets[0], "value": "0"})
}

// calleeSaves lists the registers the prologue must preserve: the receiver
// and every callee-saved register the body wrote.
func (st *methodState) calleeSaves() []string {
	receiver := st.p.Registers.Receiver
	written := st.g.spill.WrittenCalleeSaved()
	var out []string
	if !st.p.IsCalleeSaved(receiver) {
		out = append(out, receiver)
	}
	for _, r := range st.p.Registers.CalleeSaved {
		if r == receiver || contains(written, r) {
			out = append(out, r)
		}
	}
	return out
}

// frameSize is the 16-byte aligned size of spill plus callee-saved area.
func frameSize(spillBytes, saved int) int {
	return (spillBytes + 8*saved + 15) &^ 15
}

type saveOp struct {
	op   string
	vars arch.Vars
}

// saveOps lays out the callee-saved area directly below the spill area,
// pairing registers when the profile has a pair pattern.
func (st *methodState) saveOps(regs []string, pairOp, singleOp string) []saveOp {
	base := -(st.p.FrameBase + st.g.spill.SpillAreaSize())
	pairs := st.p.Has(pairOp)
	var ops []saveOp
	for i := 0; i < len(regs); {
		if pairs && i+1 < len(regs) {
			vars := arch.Offset(base - 8*(i+2)).Merge(arch.Vars{"reg1": regs[i], "reg2": regs[i+1]})
			ops = append(ops, saveOp{pairOp, vars})
			i += 2
			continue
		}
		vars := arch.Offset(base - 8*(i+1)).Merge(arch.Vars{"reg1": regs[i]})
		ops = append(ops, saveOp{singleOp, vars})
		i++
	}
	return ops
}

// assemble wraps body and ret with the data section, symbol directives and
// frame code.
func (st *methodState) assemble(body, ret *asm.Buffer) (*asm.Buffer, error) {
	syn := &st.p.Syntax
	regs := &st.p.Registers
	out := asm.NewBuffer(syn.Indent, syn.CommentMarker)
	sym := arch.Vars{"name": st.symbol}

	if len(st.data) > 0 {
		out.EmitRaw(syn.DataSection)
		out.EmitRaw(st.data...)
	}
	out.EmitRaw(syn.TextSection)
	out.EmitRaw(arch.Fill(syn.GlobalDirective, sym))
	out.EmitRaw(arch.Fill(syn.LabelDirective, sym))

	saves := st.calleeSaves()
	size := frameSize(st.g.spill.SpillAreaSize(), len(saves))
	sizeVars := arch.Vars{"size": strconv.Itoa(size)}

	if err := st.emitOp(out, arch.Prologue, nil); err != nil {
		return nil, err
	}
	if size > 0 {
		if err := st.emitOp(out, arch.AllocStackFrame, sizeVars); err != nil {
			return nil, err
		}
	}
	if len(saves) > 0 {
		out.Comment("Saving callee-saved registers: %v", saves)
		for _, s := range st.saveOps(saves, arch.SaveCalleePair, arch.SaveCalleeReg) {
			if err := st.emitOp(out, s.op, s.vars); err != nil {
				return nil, err
			}
		}
	}
	if err := st.moveReg(out, regs.Receiver, regs.Arguments[0]); err != nil {
		return nil, err
	}

	out.Append(body)
	out.Append(ret)

	if len(saves) > 0 {
		out.Comment("Restoring callee-saved registers: %v", saves)
		restores := st.saveOps(saves, arch.RestoreCalleePair, arch.RestoreCalleeReg)
		for i := len(restores) - 1; i >= 0; i-- {
			if err := st.emitOp(out, restores[i].op, restores[i].vars); err != nil {
				return nil, err
			}
		}
	}
	if size > 0 {
		if err := st.emitOp(out, arch.DeallocFrame, sizeVars); err != nil {
			return nil, err
		}
	}
	if err := st.emitOp(out, arch.Epilogue, nil); err != nil {
		return nil, err
	}
	return out, nil
}
