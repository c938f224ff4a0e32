package native

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/GriffinCanCode/cdrv-compiler/pkg/arch"
	"github.com/GriffinCanCode/cdrv-compiler/pkg/bytecode"
	"github.com/GriffinCanCode/cdrv-compiler/pkg/codegen/asm"
	"github.com/GriffinCanCode/cdrv-compiler/pkg/codegen/regalloc"
	"github.com/GriffinCanCode/cdrv-compiler/pkg/diag"
	"github.com/GriffinCanCode/cdrv-compiler/pkg/frontend"
)

func pushInt(n int64) bytecode.Instruction {
	return bytecode.With(bytecode.OpPushInt, bytecode.Int(n))
}

func label(name string, depth int) bytecode.Instruction {
	return bytecode.With(bytecode.OpLabel, bytecode.Label{Name: name, LoopDepth: depth})
}

func slot(op bytecode.Opcode, n int) bytecode.Instruction {
	return bytecode.With(op, bytecode.SlotIndex(n))
}

func generate(t *testing.T, p *arch.Profile, sig bytecode.Signature, code ...bytecode.Instruction) (string, *diag.List) {
	t.Helper()
	text, diags, err := NewGenerator(p).GenerateWithValidation("main", sig, code)
	require.NoError(t, err)
	return text, diags
}

func lines(text string) []string {
	var out []string
	for _, l := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		out = append(out, strings.TrimSpace(l))
	}
	return out
}

// assertSequence checks that want appears in got in order, not necessarily
// adjacent.
func assertSequence(t *testing.T, got []string, want ...string) {
	t.Helper()
	i := 0
	for _, l := range got {
		if i < len(want) && l == want[i] {
			i++
		}
	}
	if i < len(want) {
		t.Fatalf("missing %q (after %d of %d) in:\n%s", want[i], i, len(want), strings.Join(got, "\n"))
	}
}

func compileMethod(t *testing.T, m *frontend.Method) *bytecode.Method {
	t.Helper()
	bm, err := bytecode.NewCompiler().CompileMethod(m)
	require.NoError(t, err)
	return bm
}

func TestStraightLineArithmetic(t *testing.T) {
	text, _ := generate(t, arch.AArch64(), bytecode.Signature{},
		pushInt(2), pushInt(3), bytecode.I(bytecode.OpAddInt), bytecode.I(bytecode.OpRet))

	assert.Equal(t, []string{
		".text",
		".global main",
		"main:",
		"stp x29, x30, [sp, #-16]!",
		"mov x29, sp",
		"sub sp, sp, #32",
		"// Saving callee-saved registers: [x19 x20 x21 x22]",
		"stp x19, x20, [x29, #-16]",
		"stp x21, x22, [x29, #-32]",
		"mov x19, x0",
		"mov x20, #2",
		"mov x21, #3",
		"add x22, x20, x21",
		"mov x0, x22",
		"// Restoring callee-saved registers: [x19 x20 x21 x22]",
		"ldp x21, x22, [x29, #-32]",
		"ldp x19, x20, [x29, #-16]",
		"mov sp, x29",
		"ldp x29, x30, [sp], #16",
		"ret",
	}, lines(text))
}

func TestEmptyStackReturnsZero(t *testing.T) {
	text, _ := generate(t, arch.AArch64(), bytecode.Signature{}, bytecode.I(bytecode.OpRet))
	assertSequence(t, lines(text), "mov x19, x0", "mov x0, #0", "ret")
}

func TestMultiSlotReturn(t *testing.T) {
	p := arch.AArch64()
	text, _ := generate(t, p, bytecode.Signature{ReturnSlots: 2},
		pushInt(7), slot(bytecode.OpStoreSlot, 0),
		pushInt(9), slot(bytecode.OpStoreSlot, 1),
		bytecode.I(bytecode.OpPushNull), bytecode.I(bytecode.OpRet))

	assertSequence(t, lines(text),
		"mov x22, #7", "mov x20, x22",
		"mov x22, #9", "mov x21, x22",
		"// Return slots", "mov x0, x20", "mov x1, x21",
		"ret")

	m := newMachine()
	require.NoError(t, m.run(text))
	assert.Equal(t, int64(7), m.regs["x0"])
	assert.Equal(t, int64(9), m.regs["x1"])
}

func TestMultiSlotReturnFromFrame(t *testing.T) {
	// Few registers: both slots live in the frame.
	p := arch.X86_64()
	text, _ := generate(t, p, bytecode.Signature{Params: 1, ReturnSlots: 2},
		slot(bytecode.OpLoadLocal, 0), slot(bytecode.OpStoreSlot, 2),
		pushInt(4), slot(bytecode.OpStoreSlot, 1),
		bytecode.I(bytecode.OpRet))

	got := lines(text)
	// homes in first-use order: the parameter, slot 2, then slot 1 in the frame
	assertSequence(t, got, "movq %rdi, %rbx", "movq %rsi, %r12")
	assertSequence(t, got, "# Return slots", "movq -8(%rbp), %rax", "movq %r13, %rdx")
}

func TestUnassignedReturnSlotIsFatal(t *testing.T) {
	_, _, err := NewGenerator(arch.AArch64()).CompileMethod("main", bytecode.Signature{ReturnSlots: 1},
		[]bytecode.Instruction{bytecode.I(bytecode.OpPushNull), bytecode.I(bytecode.OpRet)})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownSlot)

	var merr *MethodError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, "main", merr.Method)
}

func TestCallMarshalsReceiverAndArguments(t *testing.T) {
	text, _ := generate(t, arch.AArch64(), bytecode.Signature{},
		pushInt(1), pushInt(2),
		bytecode.With(bytecode.OpCall, bytecode.MethodRef("Math.add")),
		bytecode.I(bytecode.OpRet))

	assertSequence(t, lines(text),
		"mov x20, #1", "mov x21, #2",
		"mov x0, x19", "mov x1, x20", "mov x2, x21",
		"bl Math_add",
		"mov x21, x0",
		"mov x0, x21")
}

func TestCallerSavedValuesSurviveCalls(t *testing.T) {
	p := arch.AArch64()
	p.Registers.GeneralPurpose = []string{"x19", "x9", "x10", "x11", "x12"}

	text, _ := generate(t, p, bytecode.Signature{},
		pushInt(5),
		label("after", 0),
		pushInt(1),
		bytecode.With(bytecode.OpCall, bytecode.MethodRef("f")),
		bytecode.I(bytecode.OpAddInt),
		bytecode.I(bytecode.OpRet))

	assertSequence(t, lines(text),
		"mov x9, #5",
		"L_main_0:",
		"mov x10, #1",
		"str x9, [x29, #-8]",
		"mov x0, x19", "mov x1, x10",
		"bl f",
		"ldr x9, [x29, #-8]",
		"mov x10, x0",
		"add x11, x9, x10")

	m := newMachine()
	m.funcs["f"] = func(m *machine) { m.regs["x0"] = m.regs["x1"] * 100 }
	require.NoError(t, m.run(text))
	assert.Equal(t, int64(105), m.regs["x0"])
}

func TestEvictionUnderPressure(t *testing.T) {
	p := arch.AArch64()
	p.Registers.GeneralPurpose = []string{"x19", "x20", "x21", "x22"}

	text, _ := generate(t, p, bytecode.Signature{},
		pushInt(1), pushInt(2), pushInt(3), pushInt(4),
		bytecode.I(bytecode.OpAddInt),
		bytecode.I(bytecode.OpAddInt),
		bytecode.I(bytecode.OpAddInt),
		bytecode.I(bytecode.OpRet))

	assertSequence(t, lines(text),
		"str x20, [x29, #-8]",
		"mov x20, #4",
		"str x21, [x29, #-16]",
		"add x21, x22, x20",
		"ldr x20, [x29, #-16]",
		"ldr x21, [x29, #-8]")

	m := newMachine()
	require.NoError(t, m.run(text))
	assert.Equal(t, int64(10), m.regs["x0"])
}

func TestNoVictimIsFatal(t *testing.T) {
	p := arch.AArch64()
	p.Registers.GeneralPurpose = []string{"x19", "x20"}

	_, _, err := NewGenerator(p).CompileMethod("main", bytecode.Signature{}, []bytecode.Instruction{
		pushInt(1), pushInt(2), bytecode.I(bytecode.OpAddInt), bytecode.I(bytecode.OpRet),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, regalloc.ErrNoVictim)

	var merr *MethodError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, 2, merr.Index)
	assert.Equal(t, "ADD_INT", merr.Op)
}

func TestMissingMandatoryPatternIsFatal(t *testing.T) {
	p := arch.AArch64()
	delete(p.Patterns, arch.Jmp)

	_, _, err := NewGenerator(p).CompileMethod("main", bytecode.Signature{}, []bytecode.Instruction{
		bytecode.With(bytecode.OpJmp, bytecode.Label{Name: "end"}),
		label("end", 0),
		bytecode.I(bytecode.OpRet),
	})
	assert.ErrorIs(t, err, arch.ErrMissingPattern)
}

func TestMissingOptionalPatternKeepsGoing(t *testing.T) {
	p := arch.AArch64()
	delete(p.Patterns, arch.ModInt)

	text, diags, err := NewGenerator(p).CompileMethod("main", bytecode.Signature{}, []bytecode.Instruction{
		pushInt(7), pushInt(2), bytecode.I(bytecode.OpModInt), bytecode.I(bytecode.OpRet),
	})
	require.NoError(t, err)
	assertSequence(t, lines(text), "// no pattern for mod_int", "mov x0, x22")
	require.Equal(t, 1, diags.Count(diag.Warning))
	assert.Equal(t, 2, diags.Items()[0].Index)
}

func TestUnresolvedLabelIsFatal(t *testing.T) {
	_, _, err := NewGenerator(arch.AArch64()).CompileMethod("main", bytecode.Signature{}, []bytecode.Instruction{
		bytecode.With(bytecode.OpJmp, bytecode.Label{Name: "nowhere"}),
		bytecode.I(bytecode.OpRet),
	})
	assert.ErrorIs(t, err, bytecode.ErrUnresolvedLabel)
}

func TestMalformedOperandIsFatal(t *testing.T) {
	tests := []struct {
		name string
		in   bytecode.Instruction
	}{
		{"push int without value", bytecode.I(bytecode.OpPushInt)},
		{"push int with string", bytecode.With(bytecode.OpPushInt, bytecode.Str("7"))},
		{"push bool without value", bytecode.I(bytecode.OpPushBool)},
		{"push string without value", bytecode.I(bytecode.OpPushString)},
		{"load local without slot", bytecode.I(bytecode.OpLoadLocal)},
		{"load local with field", bytecode.With(bytecode.OpLoadLocal, bytecode.FieldRef("x"))},
		{"load field without name", bytecode.I(bytecode.OpLoadField)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := NewGenerator(arch.AArch64()).CompileMethod("main", bytecode.Signature{},
				[]bytecode.Instruction{tt.in, bytecode.I(bytecode.OpRet)})
			require.ErrorIs(t, err, ErrMalformedOperand)

			var me *MethodError
			require.ErrorAs(t, err, &me)
			assert.Equal(t, 0, me.Index)
			assert.Equal(t, tt.in.Op.String(), me.Op)
		})
	}
}

func TestStackUnderflowIsRecovered(t *testing.T) {
	text, diags, err := NewGenerator(arch.AArch64()).CompileMethod("main", bytecode.Signature{}, []bytecode.Instruction{
		bytecode.I(bytecode.OpAddInt), bytecode.I(bytecode.OpRet),
	})
	require.NoError(t, err)
	assert.Contains(t, text, "// ERROR at 0000 ADD_INT : operand stack is empty")
	assert.Equal(t, 1, diags.Count(diag.Error))
}

func TestFrameIsAligned(t *testing.T) {
	p := arch.AArch64()
	p.Registers.GeneralPurpose = []string{"x19", "x9", "x10", "x11", "x12"}

	// one spill slot and one saved register: 16 bytes
	text, _ := generate(t, p, bytecode.Signature{},
		pushInt(5), label("l", 0), pushInt(1),
		bytecode.With(bytecode.OpCall, bytecode.MethodRef("f")),
		bytecode.I(bytecode.OpAddInt), bytecode.I(bytecode.OpRet))
	assertSequence(t, lines(text), "sub sp, sp, #16", "str x19, [x29, #-16]", "ldr x19, [x29, #-16]")
}

func TestStringsAreDeduplicated(t *testing.T) {
	text, _ := generate(t, arch.AArch64(), bytecode.Signature{},
		bytecode.With(bytecode.OpPushString, bytecode.Str("hi")),
		bytecode.I(bytecode.OpPrint),
		bytecode.With(bytecode.OpPushString, bytecode.Str("hi")),
		bytecode.I(bytecode.OpPrint),
		bytecode.With(bytecode.OpPushString, bytecode.Str(`say "x"`)),
		bytecode.I(bytecode.OpPrint),
		bytecode.I(bytecode.OpRet))

	got := lines(text)
	assert.Equal(t, ".data", got[0])
	assert.Equal(t, `str_main_0: .asciz "hi"`, got[1])
	assert.Equal(t, `str_main_1: .asciz "say \"x\""`, got[2])
	assert.Equal(t, ".text", got[3])
	assert.Equal(t, 2, strings.Count(text, "adrp x20, str_main_0"))
	assert.Equal(t, 3, strings.Count(text, "bl runtime_print"))
}

func TestFieldsUseReceiverOffsets(t *testing.T) {
	text, _ := generate(t, arch.AArch64(), bytecode.Signature{},
		bytecode.With(bytecode.OpLoadField, bytecode.FieldRef("count")),
		bytecode.With(bytecode.OpLoadField, bytecode.FieldRef("total")),
		bytecode.I(bytecode.OpAddInt),
		bytecode.With(bytecode.OpStoreField, bytecode.FieldRef("total")),
		bytecode.I(bytecode.OpRet))

	assertSequence(t, lines(text),
		"ldr x20, [x19, #0]",
		"ldr x21, [x19, #8]",
		"add x22, x20, x21",
		"str x22, [x19, #8]")
}

func TestRuntimeCalls(t *testing.T) {
	text, _ := generate(t, arch.AArch64(), bytecode.Signature{},
		pushInt(3),
		bytecode.I(bytecode.OpArrayNew),
		bytecode.I(bytecode.OpDup),
		pushInt(0),
		pushInt(42),
		bytecode.I(bytecode.OpArrayStore),
		bytecode.I(bytecode.OpArrayLength),
		bytecode.I(bytecode.OpPop),
		bytecode.With(bytecode.OpReadInput, bytecode.TypeRef("number")),
		bytecode.I(bytecode.OpRet))

	got := lines(text)
	assertSequence(t, got, "bl array_new", "bl array_store", "bl array_length", "bl runtime_read_input")
	assert.NotContains(t, text, "mov x0, x19", "runtime calls take no receiver")
	assertSequence(t, got, `str_main_0: .asciz "number"`, "adrp x20, str_main_0")
}

func TestCallSlotsCollectsReturnRegisters(t *testing.T) {
	text, _ := generate(t, arch.AArch64(), bytecode.Signature{},
		pushInt(6),
		bytecode.With(bytecode.OpCallSlots, bytecode.SlotCall{Method: "divmod", Slots: 2}),
		slot(bytecode.OpStoreLocal, 1),
		slot(bytecode.OpStoreLocal, 0),
		slot(bytecode.OpLoadLocal, 0),
		slot(bytecode.OpLoadLocal, 1),
		bytecode.I(bytecode.OpSubInt),
		bytecode.I(bytecode.OpRet))

	assertSequence(t, lines(text), "bl divmod", "mov x22, x0", "mov x23, x1", "mov x20, x23", "mov x21, x22")

	m := newMachine()
	m.funcs["divmod"] = func(m *machine) {
		m.regs["x0"], m.regs["x1"] = m.regs["x1"]/4, m.regs["x1"]%4
	}
	require.NoError(t, m.run(text))
	assert.Equal(t, int64(1-2), m.regs["x0"])
}

func TestStackParameters(t *testing.T) {
	p := arch.AArch64()
	p.Registers.Arguments = []string{"x0", "x1"}

	text, _ := generate(t, p, bytecode.Signature{Params: 3},
		slot(bytecode.OpLoadLocal, 2), bytecode.I(bytecode.OpRet))

	assertSequence(t, lines(text),
		"mov x20, x1",
		"ldr x21, [x29, #16]",
		"ldr x22, [x29, #24]")
}

func TestRISCVIncomingStackArguments(t *testing.T) {
	p := arch.RISCV64()
	p.Registers.Arguments = []string{"a0", "a1"}

	text, _ := generate(t, p, bytecode.Signature{Params: 2},
		slot(bytecode.OpLoadLocal, 1), bytecode.I(bytecode.OpRet))

	assertSequence(t, lines(text), "mv s2, a1", "ld s3, 0(s0)")
}

func TestForLoopsExecute(t *testing.T) {
	tests := []struct {
		name string
		loop *frontend.For
		want []int64
	}{
		{
			name: "counting up",
			loop: &frontend.For{Iterator: "i", Start: &frontend.IntLit{Value: 1}, End: &frontend.IntLit{Value: 5}},
			want: []int64{1, 2, 3, 4, 5},
		},
		{
			name: "counting down",
			loop: &frontend.For{Iterator: "i", Start: &frontend.IntLit{Value: 3}, End: &frontend.IntLit{Value: 1}},
			want: []int64{3, 2, 1},
		},
		{
			name: "negative step",
			loop: &frontend.For{
				Iterator: "i",
				Start:    &frontend.IntLit{Value: 10},
				End:      &frontend.IntLit{Value: 1},
				Step:     &frontend.Unary{Op: "-", X: &frontend.IntLit{Value: 2}},
			},
			want: []int64{10, 8, 6, 4, 2},
		},
		{
			name: "multiplicative step",
			loop: &frontend.For{
				Iterator: "i",
				Start:    &frontend.IntLit{Value: 1},
				End:      &frontend.IntLit{Value: 100},
				Step:     &frontend.StepOp{Text: "*2"},
			},
			want: []int64{1, 2, 4, 8, 16, 32, 64},
		},
		{
			name: "runtime direction",
			loop: &frontend.For{Iterator: "i", Start: &frontend.Ident{Name: "n"}, End: &frontend.IntLit{Value: 2}},
			want: []int64{4, 3, 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.loop.Body = []frontend.Stmt{&frontend.Output{Args: []frontend.Expr{&frontend.Ident{Name: "i"}}}}
			bm := compileMethod(t, &frontend.Method{
				Name: "loop",
				Body: []frontend.Stmt{
					&frontend.VarDecl{Name: "n", Value: &frontend.IntLit{Value: 4}},
					tt.loop,
				},
			})

			for _, p := range []*arch.Profile{arch.AArch64(), squeezed()} {
				text, _, err := NewGenerator(p).GenerateWithValidation(bm.Name, bm.Signature, bm.Code)
				require.NoError(t, err)

				m := newMachine()
				require.NoError(t, m.run(text))
				assert.Equal(t, tt.want, m.printed, p.Name)
			}
		})
	}
}

// squeezed is aarch64 with so few registers that locals live in the frame.
func squeezed() *arch.Profile {
	p := arch.AArch64()
	p.Name = "aarch64-squeezed"
	p.Registers.GeneralPurpose = []string{"x19", "x9", "x10", "x11", "x12"}
	return p
}

func TestLabelsTrackLoopDepth(t *testing.T) {
	bm := compileMethod(t, &frontend.Method{
		Name: "nested",
		Body: []frontend.Stmt{
			&frontend.For{
				Iterator: "i", Start: &frontend.IntLit{Value: 1}, End: &frontend.IntLit{Value: 2},
				Body: []frontend.Stmt{
					&frontend.For{
						Iterator: "j", Start: &frontend.IntLit{Value: 1}, End: &frontend.IntLit{Value: 2},
						Body: []frontend.Stmt{&frontend.Output{Args: []frontend.Expr{&frontend.Ident{Name: "j"}}}},
					},
				},
			},
		},
	})

	g := NewGenerator(arch.AArch64())
	st := g.newMethodState(bm.Name, bm.Signature, bm.Code)
	st.mapLabels()
	body := asm.NewBuffer(g.profile.Syntax.Indent, g.profile.Syntax.CommentMarker)
	require.NoError(t, st.enter(body))

	maxDepth := 0
	for i, in := range bm.Code {
		st.index = i
		require.NoError(t, st.lower(body, in))
		if st.depth > maxDepth {
			maxDepth = st.depth
		}
	}
	assert.Equal(t, 2, maxDepth)
	assert.Equal(t, 0, st.depth)
}

func TestDeterministicOutput(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 40).Draw(t, "n")
		var code []bytecode.Instruction
		depth := 0
		ops := []bytecode.Opcode{bytecode.OpAddInt, bytecode.OpSubInt, bytecode.OpMulInt, bytecode.OpCmpLtInt}
		for i := 0; i < n; i++ {
			if depth >= 2 && rapid.Bool().Draw(t, "binary") {
				code = append(code, bytecode.I(rapid.SampledFrom(ops).Draw(t, "op")))
				depth--
				continue
			}
			code = append(code, pushInt(rapid.Int64Range(-50, 50).Draw(t, "v")))
			depth++
		}
		code = append(code, bytecode.I(bytecode.OpRet))

		p := squeezed()
		a, _, errA := NewGenerator(p).CompileMethod("m", bytecode.Signature{}, code)
		b, _, errB := NewGenerator(p).CompileMethod("m", bytecode.Signature{}, code)
		if errA != nil || errB != nil {
			t.Fatalf("compile: %v / %v", errA, errB)
		}
		if a != b {
			t.Fatalf("outputs differ:\n%s\n---\n%s", a, b)
		}
		if err := NewValidator(p).Validate(a); err != nil {
			t.Fatalf("validate: %v", err)
		}
	})
}

func TestCompileProgram(t *testing.T) {
	prog := bytecode.NewProgram()
	prog.AddMethod("ok", []bytecode.Instruction{pushInt(1), bytecode.I(bytecode.OpRet)})
	prog.AddMethod("broken", []bytecode.Instruction{
		bytecode.With(bytecode.OpJmp, bytecode.Label{Name: "missing"}),
	})
	prog.AddMethod("slots", []bytecode.Instruction{bytecode.I(bytecode.OpRet)})
	prog.SetSignature("slots", bytecode.Signature{ReturnSlots: 1})

	_, err := NewGenerator(arch.AArch64()).Compile(prog)
	require.Error(t, err)
	assert.ErrorIs(t, err, bytecode.ErrUnresolvedLabel)
	assert.ErrorIs(t, err, ErrUnknownSlot)

	assert.True(t, prog.HasNative("ok"))
	assert.False(t, prog.HasNative("broken"))
	assert.False(t, prog.HasNative("slots"))
}

func TestCompileProgramValidates(t *testing.T) {
	p := arch.AArch64()
	p.Patterns[arch.Jmp] = arch.Template{"b L_nowhere_9"}
	code := []bytecode.Instruction{
		bytecode.With(bytecode.OpJmp, bytecode.Label{Name: "end"}),
		label("end", 0),
		pushInt(1),
		bytecode.I(bytecode.OpRet),
	}

	prog := bytecode.NewProgram()
	prog.AddMethod("m", code)
	_, err := NewGenerator(p).Compile(prog)
	require.NoError(t, err)
	assert.True(t, prog.HasNative("m"))

	prog = bytecode.NewProgram()
	prog.AddMethod("m", code)
	g := NewGenerator(p)
	g.Validate = true
	_, err = g.Compile(prog)
	assert.ErrorIs(t, err, ErrInvalidAssembly)
	assert.False(t, prog.HasNative("m"))
}

func TestOtherTargets(t *testing.T) {
	code := []bytecode.Instruction{
		pushInt(6), pushInt(7), bytecode.I(bytecode.OpMulInt),
		bytecode.I(bytecode.OpPrint),
		bytecode.With(bytecode.OpJmp, bytecode.Label{Name: "end"}),
		label("end", 0),
		bytecode.I(bytecode.OpRet),
	}

	tests := []struct {
		profile *arch.Profile
		want    []string
	}{
		{arch.X86_64(), []string{
			"pushq %rbp",
			"movq %rdi, %rbx",
			"movq $6, %r12",
			"movq $7, %r13",
			"movq %r12, %r14",
			"imulq %r13, %r14",
			"movq %r14, %rdi",
			"callq runtime_print",
			"jmp .Lmain_0",
			".Lmain_0:",
			"movq $0, %rax",
			"retq",
		}},
		{arch.RISCV64(), []string{
			"addi s0, sp, 16",
			"li t0, 16",
			"sub sp, sp, t0",
			"mv s1, a0",
			"li s2, 6",
			"li s3, 7",
			"mul s4, s2, s3",
			"mv a0, s4",
			"call runtime_print",
			"j .Lmain_0",
			".Lmain_0:",
			"li a0, 0",
			"ret",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.profile.Name, func(t *testing.T) {
			text, _ := generate(t, tt.profile, bytecode.Signature{}, code...)
			assertSequence(t, lines(text), tt.want...)
		})
	}
}

func TestSymbol(t *testing.T) {
	assert.Equal(t, "Shape_area", Symbol("Shape.area"))
	assert.Equal(t, "a_b_c", Symbol("a-b c"))
}

func TestManySequentialCalls(t *testing.T) {
	var body []frontend.Stmt
	for i := 0; i < 150; i++ {
		body = append(body, &frontend.CallStmt{Call: &frontend.Call{
			Name: "tick", Qualified: "Clock.tick", Args: []frontend.Expr{&frontend.IntLit{Value: int64(i)}},
		}})
	}
	bm := compileMethod(t, &frontend.Method{Name: "Clock.run", Body: body})

	start := time.Now()
	text, diags, err := NewGenerator(arch.AArch64()).GenerateWithValidation(bm.Name, bm.Signature, bm.Code)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Zero(t, diags.Count(diag.Error))
	assert.Equal(t, 150, strings.Count(text, "bl Clock_tick"))
}

func TestWideConstants(t *testing.T) {
	code := []bytecode.Instruction{
		pushInt(65535), pushInt(-65536), bytecode.I(bytecode.OpAddInt),
		pushInt(1 << 40), bytecode.I(bytecode.OpAddInt),
		bytecode.I(bytecode.OpRet),
	}

	tests := []struct {
		profile *arch.Profile
		narrow  []string
		wide    string
	}{
		{arch.AArch64(), []string{"#65535", "#-65536"}, "=1099511627776"},
		{arch.X86_64(), []string{"movq $65535,", "movq $-65536,"}, "movabsq $1099511627776,"},
		{arch.RISCV64(), []string{", 65535", ", -65536"}, ", 1099511627776"},
	}

	for _, tt := range tests {
		t.Run(tt.profile.Name, func(t *testing.T) {
			text, diags := generate(t, tt.profile, bytecode.Signature{}, code...)
			for _, n := range tt.narrow {
				assert.Contains(t, text, n)
			}
			assert.Contains(t, text, tt.wide)
			assert.Zero(t, diags.Count(diag.Warning))
		})
	}
}

func TestWideConstantWithoutPattern(t *testing.T) {
	p := arch.AArch64()
	delete(p.Patterns, arch.LoadImmediateWide)

	text, diags := generate(t, p, bytecode.Signature{}, pushInt(1<<40), bytecode.I(bytecode.OpRet))
	assert.Contains(t, text, "#1099511627776")
	require.Equal(t, 1, diags.Count(diag.Warning))
	assert.Contains(t, diags.Items()[0].Message, "wider than 17 bits")
}
