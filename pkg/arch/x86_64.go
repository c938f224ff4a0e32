package arch

// System V calling convention
var (
	// Argument registers (order matters)
	x86Args = []string{"%rdi", "%rsi", "%rdx", "%rcx", "%r8", "%r9"}
	// Return registers; slots past the second follow the argument order
	x86Returns = []string{"%rax", "%rdx", "%rcx", "%rsi", "%rdi", "%r8", "%r9"}
	// Caller-saved
	x86CallerSaved = []string{"%rax", "%rcx", "%rdx", "%rsi", "%rdi", "%r8", "%r9", "%r10", "%r11"}
	// Callee-saved
	x86CalleeSaved = []string{"%rbx", "%r12", "%r13", "%r14", "%r15"}
)

// X86_64 returns the built-in profile for x86-64 with AT&T syntax.
func X86_64() *Profile {
	return &Profile{
		Name: "x86_64",
		Registers: RegisterFile{
			GeneralPurpose: []string{"%rbx", "%r12", "%r13", "%r14", "%r15", "%r10", "%r11"},
			Arguments:      cloneStrings(x86Args),
			Returns:        cloneStrings(x86Returns),
			StackPointer:   "%rsp",
			FramePointer:   "%rbp",
			Receiver:       "%rbx",
			CalleeSaved:    cloneStrings(x86CalleeSaved),
			CallerSaved:    cloneStrings(x86CallerSaved),
			// Clobbered by division and comparison patterns
			Scratch: []string{"%rax", "%rdx"},
		},
		// movq sign-extends a 32-bit immediate
		ImmediateBits: 32,
		Patterns: map[string]Template{
			Prologue:          {"pushq %rbp", "movq %rsp, %rbp"},
			Epilogue:          {"popq %rbp", "retq"},
			AllocStackFrame:   {"subq ${size}, %rsp"},
			DeallocFrame:      {"movq %rbp, %rsp"},
			SaveCalleeReg:     {"movq {reg1}, {offset}(%rbp)"},
			RestoreCalleeReg:  {"movq {offset}(%rbp), {reg1}"},
			MoveReg:           {"movq {src}, {dest}"},
			LoadImmediate:     {"movq ${value}, {dest}"},
			LoadImmediateWide: {"movabsq ${value}, {dest}"},
			LoadAddress:       {"leaq {label}(%rip), {dest}"},
			AddInt:            {"movq {src1}, {dest}", "addq {src2}, {dest}"},
			SubInt:            {"movq {src1}, {dest}", "subq {src2}, {dest}"},
			MulInt:            {"movq {src1}, {dest}", "imulq {src2}, {dest}"},
			DivInt:            {"movq {src1}, %rax", "cqto", "idivq {src2}", "movq %rax, {dest}"},
			ModInt:            {"movq {src1}, %rax", "cqto", "idivq {src2}", "movq %rdx, {dest}"},
			NegInt:            {"movq {src}, {dest}", "negq {dest}"},
			CmpEqInt:          {"cmpq {src2}, {src1}", "sete %al", "movzbq %al, {dest}"},
			CmpNeInt:          {"cmpq {src2}, {src1}", "setne %al", "movzbq %al, {dest}"},
			CmpLtInt:          {"cmpq {src2}, {src1}", "setl %al", "movzbq %al, {dest}"},
			CmpLeInt:          {"cmpq {src2}, {src1}", "setle %al", "movzbq %al, {dest}"},
			CmpGtInt:          {"cmpq {src2}, {src1}", "setg %al", "movzbq %al, {dest}"},
			CmpGeInt:          {"cmpq {src2}, {src1}", "setge %al", "movzbq %al, {dest}"},
			Jmp:               {"jmp {label}"},
			JmpIfFalse:        {"testq {condition}, {condition}", "jz {label}"},
			JmpIfTrue:         {"testq {condition}, {condition}", "jnz {label}"},
			Call:              {"callq {name}"},
			StoreToStack:      {"movq {src_reg}, {offset}(%rbp)"},
			LoadFromStack:     {"movq {offset}(%rbp), {dest_reg}"},
			LoadField:         {"movq {offset}({base_reg}), {dest_reg}"},
			StoreField:        {"movq {src_reg}, {offset}({base_reg})"},
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
