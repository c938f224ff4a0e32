package arch

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinsValidate(t *testing.T) {
	for _, name := range Builtins() {
		t.Run(name, func(t *testing.T) {
			p, err := Lookup(name)
			require.NoError(t, err)
			assert.NoError(t, p.Validate())
			assert.Equal(t, name, p.Name)
		})
	}
}

func TestLookupAliases(t *testing.T) {
	tests := []struct {
		alias string
		want  string
	}{
		{"arm64", "aarch64"},
		{"AMD64", "x86_64"},
		{" rv64 ", "riscv64"},
		{"x86_64", "x86_64"},
	}

	for _, tt := range tests {
		t.Run(tt.alias, func(t *testing.T) {
			p, err := Lookup(tt.alias)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Name)
		})
	}

	_, err := Lookup("pdp11")
	assert.ErrorIs(t, err, ErrUnknownProfile)
}

func TestLookupReturnsFreshCopy(t *testing.T) {
	a, err := Lookup("aarch64")
	require.NoError(t, err)
	a.Registers.GeneralPurpose[0] = "x99"
	delete(a.Patterns, Call)

	b, err := Lookup("aarch64")
	require.NoError(t, err)
	assert.Equal(t, "x19", b.Registers.GeneralPurpose[0])
	assert.True(t, b.Has(Call))
}

func TestRender(t *testing.T) {
	p := AArch64()

	lines, err := p.Render(AddInt, Vars{"dest": "x19", "src1": "x20", "src2": "x21"})
	require.NoError(t, err)
	assert.Equal(t, []string{"add x19, x20, x21"}, lines)

	lines, err = p.Render(StoreToStack, Offset(-16).Merge(Vars{"src_reg": "x20"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"str x20, [x29, #-16]"}, lines)

	_, err = p.Render("vector_add", nil)
	assert.ErrorIs(t, err, ErrMissingPattern)
}

func TestOffset(t *testing.T) {
	assert.Equal(t, Vars{"offset": "-8", "soffset": "-8"}, Offset(-8))
	assert.Equal(t, Vars{"offset": "16", "soffset": "+16"}, Offset(16))
}

func TestFitsImmediate(t *testing.T) {
	arm := AArch64()
	assert.True(t, arm.FitsImmediate(65535))
	assert.True(t, arm.FitsImmediate(-65536))
	assert.False(t, arm.FitsImmediate(65536))
	assert.False(t, arm.FitsImmediate(-65537))

	x86 := X86_64()
	assert.True(t, x86.FitsImmediate(-1<<31))
	assert.False(t, x86.FitsImmediate(1<<31))

	assert.True(t, RISCV64().FitsImmediate(1<<62))
}

func TestFillSimilarKeys(t *testing.T) {
	got := Fill("{src} {src1} {src_reg}", Vars{"src": "a", "src1": "b", "src_reg": "c"})
	assert.Equal(t, "a b c", got)
}

func TestReturnRegistersDefaultToArguments(t *testing.T) {
	arm := AArch64()
	assert.Equal(t, arm.Registers.Arguments, arm.Registers.ReturnRegisters())

	x86 := X86_64()
	assert.Equal(t, "%rax", x86.Registers.ReturnRegisters()[0])
}

func TestValidateReportsEveryProblem(t *testing.T) {
	p := AArch64()
	delete(p.Patterns, Call)
	delete(p.Patterns, JmpIfTrue)
	p.Patterns[MoveReg] = Template{"mov {dst}, {src}"}
	p.Registers.Receiver = "x0"
	p.Syntax.LocalLabel = "L_{name}"

	err := p.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidProfile)

	msg := err.Error()
	for _, want := range []string{
		"missing mandatory pattern call",
		"missing mandatory pattern jmp_if_true",
		"unknown placeholder {dst}",
		"receiver x0",
		"local_label must contain {index}",
	} {
		assert.Contains(t, msg, want)
	}
}

func TestDumpLoadRoundTrip(t *testing.T) {
	for _, name := range Builtins() {
		t.Run(name, func(t *testing.T) {
			p, err := Lookup(name)
			require.NoError(t, err)

			var buf bytes.Buffer
			require.NoError(t, Dump(&buf, p))

			loaded, err := Load(&buf)
			require.NoError(t, err)
			assert.Equal(t, p, loaded)
		})
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	_, err := Load(strings.NewReader("name: toy\nregisterz: {}\n"))
	assert.Error(t, err)
}

func TestLoadValidates(t *testing.T) {
	doc := `
name: toy
registers:
  general_purpose: [r1, r2]
  arguments: [r0]
  frame_pointer: fp
  receiver: r1
patterns:
  jmp: ["jmp {label}"]
syntax:
  comment_marker: ";"
  text_section: .text
  global_directive: .globl {name}
  label_directive: "{name}:"
  local_label: "L{index}"
`
	_, err := Load(strings.NewReader(doc))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidProfile)
	assert.Contains(t, err.Error(), "store_to_stack")
}

func TestLoadFileFallsBackToBuiltin(t *testing.T) {
	p, err := LoadFile("riscv64")
	require.NoError(t, err)
	assert.Equal(t, 16, p.FrameBase)

	_, err = LoadFile("/nonexistent/profile.yaml")
	assert.Error(t, err)
}
