// Package arch describes target machines for the native code generator.
//
// Design: a Profile is plain data. The generator never branches on the
// architecture name; everything it emits comes from the register file, the
// pattern table and the syntax fragments held here.
package arch

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrMissingPattern is returned when a profile has no template for an operation.
var ErrMissingPattern = errors.New("missing instruction pattern")

// Operation names used as pattern table keys.
const (
	Prologue          = "prologue"
	Epilogue          = "epilogue"
	AllocStackFrame   = "alloc_stack_frame"
	DeallocFrame      = "dealloc_stack_frame"
	SaveCalleePair    = "save_callee_reg_pair"
	SaveCalleeReg     = "save_callee_reg_single"
	RestoreCalleePair = "restore_callee_reg_pair"
	RestoreCalleeReg  = "restore_callee_reg_single"
	MoveReg           = "move_reg"
	LoadImmediate     = "load_immediate_int"
	LoadImmediateWide = "load_immediate_wide"
	LoadAddress       = "load_address"
	AddInt            = "add_int"
	SubInt            = "sub_int"
	MulInt            = "mul_int"
	DivInt            = "div_int"
	ModInt            = "mod_int"
	NegInt            = "neg_int"
	CmpEqInt          = "cmp_eq_int"
	CmpNeInt          = "cmp_ne_int"
	CmpLtInt          = "cmp_lt_int"
	CmpLeInt          = "cmp_le_int"
	CmpGtInt          = "cmp_gt_int"
	CmpGeInt          = "cmp_ge_int"
	Jmp               = "jmp"
	JmpIfTrue         = "jmp_if_true"
	JmpIfFalse        = "jmp_if_false"
	Call              = "call"
	StoreToStack      = "store_to_stack"
	LoadFromStack     = "load_from_stack"
	LoadField         = "load_field_offset"
	StoreField        = "store_field_offset"
)

// Mandatory lists the operations without which generated code would be
// silently wrong.
var Mandatory = []string{StoreToStack, LoadFromStack, Call, Jmp, JmpIfTrue, JmpIfFalse}

// IsMandatory reports whether op is in Mandatory.
func IsMandatory(op string) bool {
	for _, m := range Mandatory {
		if m == op {
			return true
		}
	}
	return false
}

// RegisterFile names the registers of a target and their calling-convention roles.
type RegisterFile struct {
	// GeneralPurpose is in allocation order: the first entry is handed out first.
	GeneralPurpose []string `yaml:"general_purpose"`
	Arguments      []string `yaml:"arguments"`
	// Returns defaults to Arguments when empty.
	Returns      []string `yaml:"returns,omitempty"`
	StackPointer string   `yaml:"stack_pointer"`
	FramePointer string   `yaml:"frame_pointer"`
	// Receiver holds the method receiver for the whole body.
	Receiver    string   `yaml:"receiver"`
	CalleeSaved []string `yaml:"callee_saved"`
	CallerSaved []string `yaml:"caller_saved"`
	// Scratch registers are used inside patterns and never allocated.
	Scratch []string `yaml:"scratch,omitempty"`
}

// ReturnRegisters returns the ABI return registers.
func (r *RegisterFile) ReturnRegisters() []string {
	if len(r.Returns) > 0 {
		return r.Returns
	}
	return r.Arguments
}

// Syntax holds assembler directive fragments. Fields containing {name},
// {label} or {value} are templates.
type Syntax struct {
	CommentMarker   string `yaml:"comment_marker"`
	TextSection     string `yaml:"text_section"`
	DataSection     string `yaml:"data_section"`
	GlobalDirective string `yaml:"global_directive"`
	LabelDirective  string `yaml:"label_directive"`
	// LocalLabel renders method-local jump targets from {name} and {index}.
	LocalLabel      string `yaml:"local_label"`
	StringDirective string `yaml:"string_directive"`
	FloatDirective  string `yaml:"float_directive"`
	Indent          string `yaml:"indent"`
}

// Template is the ordered assembly lines of one operation.
type Template []string

// Profile is a complete target description.
type Profile struct {
	Name      string       `yaml:"name"`
	Registers RegisterFile `yaml:"registers"`
	FrameBase int          `yaml:"frame_base"`
	// ImmediateBits is the signed width load_immediate_int can encode.
	// Wider constants use load_immediate_wide. Zero means any width.
	ImmediateBits int                 `yaml:"immediate_bits,omitempty"`
	Patterns      map[string]Template `yaml:"patterns"`
	Syntax        Syntax              `yaml:"syntax"`
}

// Vars are the placeholder values substituted into a template.
type Vars map[string]string

// Pattern returns the template for op.
func (p *Profile) Pattern(op string) (Template, bool) {
	t, ok := p.Patterns[op]
	return t, ok && len(t) > 0
}

// Has reports whether the profile defines op.
func (p *Profile) Has(op string) bool {
	_, ok := p.Pattern(op)
	return ok
}

// Render substitutes vars into the template for op.
func (p *Profile) Render(op string, vars Vars) ([]string, error) {
	t, ok := p.Pattern(op)
	if !ok {
		return nil, errors.Wrapf(ErrMissingPattern, "%s: %s", p.Name, op)
	}
	return t.Render(vars), nil
}

// Render substitutes every {key} in the template.
func (t Template) Render(vars Vars) []string {
	r := vars.replacer()
	out := make([]string, len(t))
	for i, line := range t {
		out[i] = r.Replace(line)
	}
	return out
}

// Fill substitutes vars into a single syntax fragment.
func Fill(fragment string, vars Vars) string {
	return vars.replacer().Replace(fragment)
}

func (v Vars) replacer() *strings.Replacer {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		pairs = append(pairs, "{"+k+"}", v[k])
	}
	return strings.NewReplacer(pairs...)
}

// Offset returns the {offset} and {soffset} renderings of a frame displacement.
func Offset(disp int) Vars {
	s := strconv.Itoa(disp)
	if disp >= 0 {
		s = "+" + s
	}
	return Vars{"offset": strconv.Itoa(disp), "soffset": s}
}

// Merge returns a new Vars holding v overlaid with other.
func (v Vars) Merge(other Vars) Vars {
	out := make(Vars, len(v)+len(other))
	for k, val := range v {
		out[k] = val
	}
	for k, val := range other {
		out[k] = val
	}
	return out
}

// FitsImmediate reports whether load_immediate_int can encode v.
func (p *Profile) FitsImmediate(v int64) bool {
	if p.ImmediateBits <= 0 || p.ImmediateBits >= 64 {
		return true
	}
	limit := int64(1) << (p.ImmediateBits - 1)
	return v >= -limit && v < limit
}

// IsGeneralPurpose reports whether reg is allocatable.
func (p *Profile) IsGeneralPurpose(reg string) bool {
	return contains(p.Registers.GeneralPurpose, reg)
}

func (p *Profile) IsCalleeSaved(reg string) bool {
	return contains(p.Registers.CalleeSaved, reg)
}

func (p *Profile) IsCallerSaved(reg string) bool {
	return contains(p.Registers.CallerSaved, reg)
}

// IsKnown reports whether reg appears anywhere in the register file.
func (p *Profile) IsKnown(reg string) bool {
	r := &p.Registers
	return contains(r.GeneralPurpose, reg) || contains(r.Arguments, reg) ||
		contains(r.ReturnRegisters(), reg) || reg == r.StackPointer ||
		reg == r.FramePointer || reg == r.Receiver
}

// Comment renders text as an assembly comment.
func (p *Profile) Comment(text string) string {
	return p.Syntax.CommentMarker + " " + text
}

// Clone returns a deep copy that can be modified freely.
func (p *Profile) Clone() *Profile {
	c := *p
	r := p.Registers
	c.Registers = RegisterFile{
		GeneralPurpose: cloneStrings(r.GeneralPurpose),
		Arguments:      cloneStrings(r.Arguments),
		Returns:        cloneStrings(r.Returns),
		StackPointer:   r.StackPointer,
		FramePointer:   r.FramePointer,
		Receiver:       r.Receiver,
		CalleeSaved:    cloneStrings(r.CalleeSaved),
		CallerSaved:    cloneStrings(r.CallerSaved),
		Scratch:        cloneStrings(r.Scratch),
	}
	c.Patterns = make(map[string]Template, len(p.Patterns))
	for k, t := range p.Patterns {
		c.Patterns[k] = Template(cloneStrings(t))
	}
	return &c
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
