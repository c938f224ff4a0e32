package arch

// RISC-V calling convention
var (
	// Argument registers
	riscvArgs = []string{"a0", "a1", "a2", "a3", "a4", "a5", "a6", "a7"}
	// Callee-saved registers (s0 is the frame pointer)
	riscvSaved = []string{"s1", "s2", "s3", "s4", "s5", "s6", "s7", "s8", "s9", "s10", "s11"}
	// Temporary registers
	riscvTemps = []string{"t0", "t1", "t2", "t3", "t4", "t5", "t6"}
)

// RISCV64 returns the built-in profile for RV64GC with GNU assembler syntax.
// The prologue stores ra and s0 in the 16 bytes directly below the new
// frame pointer, so the frame base is 16. The frame is allocated through t0,
// which holds nothing at entry, since addi only reaches 2047 bytes.
func RISCV64() *Profile {
	gp := append(cloneStrings(riscvSaved), riscvTemps...)
	caller := append(cloneStrings(riscvArgs), riscvTemps...)
	return &Profile{
		Name: "riscv64",
		Registers: RegisterFile{
			GeneralPurpose: gp,
			Arguments:      cloneStrings(riscvArgs),
			StackPointer:   "sp",
			FramePointer:   "s0",
			Receiver:       "s1",
			CalleeSaved:    cloneStrings(riscvSaved),
			CallerSaved:    caller,
		},
		FrameBase: 16,
		Patterns: map[string]Template{
			Prologue:         {"addi sp, sp, -16", "sd ra, 8(sp)", "sd s0, 0(sp)", "addi s0, sp, 16"},
			Epilogue:         {"ld ra, 8(sp)", "ld s0, 0(sp)", "addi sp, sp, 16", "ret"},
			AllocStackFrame:  {"li t0, {size}", "sub sp, sp, t0"},
			DeallocFrame:     {"addi sp, s0, -16"},
			SaveCalleeReg:    {"sd {reg1}, {offset}(s0)"},
			RestoreCalleeReg: {"ld {reg1}, {offset}(s0)"},
			MoveReg:          {"mv {dest}, {src}"},
			LoadImmediate:    {"li {dest}, {value}"},
			LoadAddress:      {"la {dest}, {label}"},
			AddInt:           {"add {dest}, {src1}, {src2}"},
			SubInt:           {"sub {dest}, {src1}, {src2}"},
			MulInt:           {"mul {dest}, {src1}, {src2}"},
			DivInt:           {"div {dest}, {src1}, {src2}"},
			ModInt:           {"rem {dest}, {src1}, {src2}"},
			NegInt:           {"neg {dest}, {src}"},
			CmpEqInt:         {"sub {dest}, {src1}, {src2}", "seqz {dest}, {dest}"},
			CmpNeInt:         {"sub {dest}, {src1}, {src2}", "snez {dest}, {dest}"},
			CmpLtInt:         {"slt {dest}, {src1}, {src2}"},
			CmpLeInt:         {"slt {dest}, {src2}, {src1}", "xori {dest}, {dest}, 1"},
			CmpGtInt:         {"slt {dest}, {src2}, {src1}"},
			CmpGeInt:         {"slt {dest}, {src1}, {src2}", "xori {dest}, {dest}, 1"},
			Jmp:              {"j {label}"},
			JmpIfFalse:       {"beqz {condition}, {label}"},
			JmpIfTrue:        {"bnez {condition}, {label}"},
			Call:             {"call {name}"},
			StoreToStack:     {"sd {src_reg}, {offset}(s0)"},
			LoadFromStack:    {"ld {dest_reg}, {offset}(s0)"},
			LoadField:        {"ld {dest_reg}, {offset}({base_reg})"},
			StoreField:       {"sd {src_reg}, {offset}({base_reg})"},
		},
		Syntax: Syntax{
			CommentMarker:   "#",
			TextSection:     "\t.text",
			DataSection:     "\t.data",
			GlobalDirective: "\t.globl {name}",
			LabelDirective:  "{name}:",
			LocalLabel:      ".L{name}_{index}",
			StringDirective: `{label}: .asciz "{value}"`,
			FloatDirective:  "{label}: .float {value}",
			Indent:          "\t",
		},
	}
}
