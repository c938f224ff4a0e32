package native

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/GriffinCanCode/cdrv-compiler/pkg/arch"
	"github.com/GriffinCanCode/cdrv-compiler/pkg/bytecode"
	"github.com/GriffinCanCode/cdrv-compiler/pkg/codegen/asm"
	"github.com/GriffinCanCode/cdrv-compiler/pkg/diag"
)

// tempReserve is how many allocatable registers are kept out of local homes
// for operand stack temporaries.
const tempReserve = 4

// value is one entry of the emulated operand stack.
type value struct {
	reg     string
	offset  int
	spilled bool
}

// methodState lives for one CompileMethod call.
type methodState struct {
	g       *Generator
	p       *arch.Profile
	name    string
	symbol  string
	sig     bytecode.Signature
	code    []bytecode.Instruction
	effects *bytecode.Effects

	stack  []value
	labels map[string]string
	depth  int
	index  int

	strs   map[string]string
	data   []string
	floats int
	fields map[string]int

	diags *diag.List
}

func (g *Generator) newMethodState(name string, sig bytecode.Signature, code []bytecode.Instruction) *methodState {
	st := &methodState{
		g:      g,
		p:      g.profile,
		name:   name,
		symbol: Symbol(name),
		sig:    sig,
		code:   code,
		labels: make(map[string]string),
		index:  diag.NoIndex,
		strs:   make(map[string]string),
		fields: make(map[string]int),
		diags:  &diag.List{},
	}
	st.effects = bytecode.ComputeEffects(code)
	g.spill.Reset(name)
	g.alloc.Reset()
	g.spill.OnEvict = st.relocate
	return st
}

func (st *methodState) opName() string {
	if st.index < 0 || st.index >= len(st.code) {
		return ""
	}
	return st.code[st.index].Op.String()
}

func (st *methodState) report(sev diag.Severity, format string, args ...interface{}) {
	st.diags.Add(diag.Diagnostic{
		Phase:    diag.PhaseNative,
		Method:   st.name,
		Index:    st.index,
		Op:       st.opName(),
		Severity: sev,
		Message:  fmt.Sprintf(format, args...),
	})
}

// mapLabels gives every LABEL its assembly name.
func (st *methodState) mapLabels() {
	n := 0
	for _, in := range st.code {
		if in.Op != bytecode.OpLabel {
			continue
		}
		l, _ := in.LabelOperand()
		st.labels[l.Name] = arch.Fill(st.p.Syntax.LocalLabel, arch.Vars{
			"name":  st.symbol,
			"index": strconv.Itoa(n),
		})
		n++
	}
}

// emitOp renders op into out. A missing optional pattern becomes a comment
// and a diagnostic; a missing mandatory one is returned as an error.
func (st *methodState) emitOp(out *asm.Buffer, op string, vars arch.Vars) error {
	lines, err := st.p.Render(op, vars)
	if err != nil {
		if arch.IsMandatory(op) {
			return err
		}
		out.Comment("no pattern for %s", op)
		st.report(diag.Warning, "no pattern for %s", op)
		return nil
	}
	out.Emit(lines...)
	return nil
}

func (st *methodState) moveReg(out *asm.Buffer, dest, src string) error {
	if dest == src {
		return nil
	}
	return st.emitOp(out, arch.MoveReg, arch.Vars{"dest": dest, "src": src})
}

func (st *methodState) push(reg string) {
	st.stack = append(st.stack, value{reg: reg})
}

// pop removes the top value and returns the register holding it, reloading
// a spilled value into a fresh register.
func (st *methodState) pop(out *asm.Buffer, avoid ...string) (string, error) {
	if len(st.stack) == 0 {
		return "", errStackEmpty
	}
	v := st.stack[len(st.stack)-1]
	st.stack = st.stack[:len(st.stack)-1]
	if !v.spilled {
		return v.reg, nil
	}
	reg, err := st.g.alloc.Allocate(out, avoid...)
	if err != nil {
		return "", err
	}
	if err := st.g.spill.FillFromOffset(out, reg, v.offset, st.depth); err != nil {
		return "", err
	}
	return reg, nil
}

// drop discards the top value without loading it.
func (st *methodState) drop() error {
	if len(st.stack) == 0 {
		return errStackEmpty
	}
	v := st.stack[len(st.stack)-1]
	st.stack = st.stack[:len(st.stack)-1]
	if !v.spilled {
		st.g.alloc.Free(v.reg)
	}
	return nil
}

// relocate is the spiller's eviction hook.
func (st *methodState) relocate(reg string, offset int) {
	for i := range st.stack {
		if !st.stack[i].spilled && st.stack[i].reg == reg {
			st.stack[i] = value{offset: offset, spilled: true}
		}
	}
}

// temp allocates a register for a new value.
func (st *methodState) temp(out *asm.Buffer, avoid ...string) (string, error) {
	return st.g.alloc.Allocate(out, avoid...)
}

// define records that reg now holds a value produced at the current depth.
func (st *methodState) define(reg string) {
	st.g.spill.MarkModified(reg)
	st.g.spill.UpdateDefinitionDepth(reg, st.depth)
}

func (st *methodState) free(regs ...string) {
	for _, r := range regs {
		st.g.alloc.Free(r)
	}
}

// stringLabel returns the data label of s, declaring it on first use.
func (st *methodState) stringLabel(s string) string {
	if l, ok := st.strs[s]; ok {
		return l
	}
	l := fmt.Sprintf("str_%s_%d", st.symbol, len(st.strs))
	st.strs[s] = l
	st.data = append(st.data, arch.Fill(st.p.Syntax.StringDirective, arch.Vars{
		"label": l,
		"value": escape(s),
	}))
	return l
}

func (st *methodState) floatLabel(f float64) string {
	l := fmt.Sprintf("flt_%s_%d", st.symbol, st.floats)
	st.floats++
	st.data = append(st.data, arch.Fill(st.p.Syntax.FloatDirective, arch.Vars{
		"label": l,
		"value": strconv.FormatFloat(f, 'g', -1, 64),
	}))
	return l
}

// fieldOffset gives fields 8-byte offsets from the receiver in first-use order.
func (st *methodState) fieldOffset(name string) int {
	if off, ok := st.fields[name]; ok {
		return off
	}
	off := 8 * len(st.fields)
	st.fields[name] = off
	return off
}

var escaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\t", `\t`)

func escape(s string) string { return escaper.Replace(s) }
