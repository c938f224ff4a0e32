package arch

// AArch64 calling convention (AAPCS64)
var (
	aarch64Args        = []string{"x0", "x1", "x2", "x3", "x4", "x5", "x6", "x7"}
	aarch64CalleeSaved = []string{"x19", "x20", "x21", "x22", "x23", "x24", "x25", "x26", "x27", "x28"}
	aarch64CallerSaved = []string{
		"x0", "x1", "x2", "x3", "x4", "x5", "x6", "x7",
		"x9", "x10", "x11", "x12", "x13", "x14", "x15",
	}
)

// AArch64 returns the built-in profile for 64-bit ARM with GNU assembler syntax.
func AArch64() *Profile {
	return &Profile{
		Name: "aarch64",
		Registers: RegisterFile{
			// Callee-saved registers first so values survive calls without spilling.
			GeneralPurpose: []string{
				"x19", "x20", "x21", "x22", "x23", "x24", "x25", "x26", "x27", "x28",
				"x9", "x10", "x11", "x12", "x13", "x14", "x15",
			},
			Arguments:    cloneStrings(aarch64Args),
			StackPointer: "sp",
			FramePointer: "x29",
			Receiver:     "x19",
			CalleeSaved:  cloneStrings(aarch64CalleeSaved),
			CallerSaved:  cloneStrings(aarch64CallerSaved),
			Scratch:      []string{"x16", "x17"},
		},
		// mov takes what one movz or movn can build
		ImmediateBits: 17,
		Patterns: map[string]Template{
			Prologue:          {"stp x29, x30, [sp, #-16]!", "mov x29, sp"},
			Epilogue:          {"ldp x29, x30, [sp], #16", "ret"},
			AllocStackFrame:   {"sub sp, sp, #{size}"},
			DeallocFrame:      {"mov sp, x29"},
			SaveCalleePair:    {"stp {reg1}, {reg2}, [x29, #{offset}]"},
			SaveCalleeReg:     {"str {reg1}, [x29, #{offset}]"},
			RestoreCalleePair: {"ldp {reg1}, {reg2}, [x29, #{offset}]"},
			RestoreCalleeReg:  {"ldr {reg1}, [x29, #{offset}]"},
			MoveReg:           {"mov {dest}, {src}"},
			LoadImmediate:     {"mov {dest}, #{value}"},
			LoadImmediateWide: {"ldr {dest}, ={value}"},
			LoadAddress:       {"adrp {dest}, {label}", "add {dest}, {dest}, :lo12:{label}"},
			AddInt:            {"add {dest}, {src1}, {src2}"},
			SubInt:            {"sub {dest}, {src1}, {src2}"},
			MulInt:            {"mul {dest}, {src1}, {src2}"},
			DivInt:            {"sdiv {dest}, {src1}, {src2}"},
			ModInt:            {"sdiv x16, {src1}, {src2}", "mul x16, x16, {src2}", "sub {dest}, {src1}, x16"},
			NegInt:            {"neg {dest}, {src}"},
			CmpEqInt:          {"cmp {src1}, {src2}", "cset {dest}, eq"},
			CmpNeInt:          {"cmp {src1}, {src2}", "cset {dest}, ne"},
			CmpLtInt:          {"cmp {src1}, {src2}", "cset {dest}, lt"},
			CmpLeInt:          {"cmp {src1}, {src2}", "cset {dest}, le"},
			CmpGtInt:          {"cmp {src1}, {src2}", "cset {dest}, gt"},
			CmpGeInt:          {"cmp {src1}, {src2}", "cset {dest}, ge"},
			Jmp:               {"b {label}"},
			JmpIfFalse:        {"cmp {condition}, #0", "b.eq {label}"},
			JmpIfTrue:         {"cmp {condition}, #0", "b.ne {label}"},
			Call:              {"bl {name}"},
			StoreToStack:      {"str {src_reg}, [x29, #{offset}]"},
			LoadFromStack:     {"ldr {dest_reg}, [x29, #{offset}]"},
			LoadField:         {"ldr {dest_reg}, [{base_reg}, #{offset}]"},
			StoreField:        {"str {src_reg}, [{base_reg}, #{offset}]"},
		},
		Syntax: Syntax{
			CommentMarker:   "//",
			TextSection:     "    .text",
			DataSection:     "    .data",
			GlobalDirective: "    .global {name}",
			LabelDirective:  "{name}:",
			LocalLabel:      "L_{name}_{index}",
			StringDirective: `{label}: .asciz "{value}"`,
			FloatDirective:  "{label}: .float {value}",
			Indent:          "    ",
		},
	}
}
