// Package native lowers bytecode to assembly text for a target profile.
//
// Design: one linear pass per method. The bytecode operand stack is emulated
// with a stack of registers; values pushed out of registers by the allocator
// are tracked at their spill slot and reloaded when popped. The method body is
// compiled into its own buffer first and wrapped with the frame code once the
// spill area and the set of callee-saved registers are known.
package native

import (
	"fmt"
	"regexp"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/GriffinCanCode/cdrv-compiler/pkg/arch"
	"github.com/GriffinCanCode/cdrv-compiler/pkg/bytecode"
	"github.com/GriffinCanCode/cdrv-compiler/pkg/codegen/asm"
	"github.com/GriffinCanCode/cdrv-compiler/pkg/codegen/regalloc"
	"github.com/GriffinCanCode/cdrv-compiler/pkg/diag"
	"github.com/GriffinCanCode/cdrv-compiler/pkg/logger"
)

var (
	// ErrUnknownSlot means a local slot has neither a register nor a frame offset.
	ErrUnknownSlot = errors.New("slot has no location")

	// ErrTooManyReturns means a method returns more values than the ABI has registers for.
	ErrTooManyReturns = errors.New("too many return values")

	// ErrMalformedOperand means an instruction lacks the operand its opcode needs.
	ErrMalformedOperand = errors.New("malformed operand")

	errStackEmpty = errors.New("operand stack is empty")
)

// MethodError is a fatal failure while generating one method.
type MethodError struct {
	Method string
	Index  int
	Op     string
	Err    error
}

func (e *MethodError) Error() string {
	if e.Index == diag.NoIndex {
		return fmt.Sprintf("%s: %v", e.Method, e.Err)
	}
	return fmt.Sprintf("%s: %04d %s: %v", e.Method, e.Index, e.Op, e.Err)
}

func (e *MethodError) Unwrap() error { return e.Err }

// Cause lets errors.Cause reach the underlying error.
func (e *MethodError) Cause() error { return e.Err }

// isFatal reports whether err must abort the whole method.
func isFatal(err error) bool {
	for _, target := range []error{
		regalloc.ErrExhausted,
		regalloc.ErrNoVictim,
		arch.ErrMissingPattern,
		bytecode.ErrUnresolvedLabel,
		ErrUnknownSlot,
		ErrTooManyReturns,
		ErrMalformedOperand,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Generator produces assembly for one target profile. It is not safe for
// concurrent use; every method resets the allocator and spiller.
type Generator struct {
	// Validate makes Compile check every method with a Validator.
	Validate bool

	profile *arch.Profile
	alloc   *regalloc.Allocator
	spill   *regalloc.Spiller
}

// NewGenerator creates a generator for profile.
func NewGenerator(profile *arch.Profile) *Generator {
	spill := regalloc.NewSpiller(profile)
	return &Generator{
		profile: profile,
		alloc:   regalloc.NewAllocator(profile, spill),
		spill:   spill,
	}
}

func (g *Generator) Profile() *arch.Profile { return g.profile }

// Compile generates every method of prog and stores the text with AddNative.
// A failed method gets no native entry; the failures are returned together.
func (g *Generator) Compile(prog *bytecode.Program) (*diag.List, error) {
	all := &diag.List{}
	var result error
	generate := g.CompileMethod
	if g.Validate {
		generate = g.GenerateWithValidation
	}
	for _, name := range prog.Methods() {
		code, _ := prog.Method(name)
		text, diags, err := generate(name, prog.Signature(name), code)
		all.Append(diags)
		if err != nil {
			logger.LogError(diag.PhaseNative, name, err)
			result = multierror.Append(result, err)
			continue
		}
		prog.AddNative(name, text)
	}
	return all, result
}

// CompileMethod generates the assembly of one method.
func (g *Generator) CompileMethod(name string, sig bytecode.Signature, code []bytecode.Instruction) (string, *diag.List, error) {
	st := g.newMethodState(name, sig, code)
	fail := func(err error) (string, *diag.List, error) {
		merr := &MethodError{Method: name, Index: st.index, Op: st.opName(), Err: err}
		return "", st.diags, merr
	}

	if err := bytecode.VerifyLabels(code); err != nil {
		return fail(err)
	}
	st.mapLabels()

	body := asm.NewBuffer(g.profile.Syntax.Indent, g.profile.Syntax.CommentMarker)
	if err := st.enter(body); err != nil {
		return fail(err)
	}

	for i, in := range code {
		st.index = i
		if err := st.lower(body, in); err != nil {
			if isFatal(err) {
				return fail(err)
			}
			st.recover(body, in, err)
		}
	}
	st.index = diag.NoIndex

	ret := asm.NewBuffer(g.profile.Syntax.Indent, g.profile.Syntax.CommentMarker)
	if err := st.returnSection(ret); err != nil {
		return fail(err)
	}

	out, err := st.assemble(body, ret)
	if err != nil {
		return fail(err)
	}
	logger.LogCodeGen(g.profile.Name, name, out.Len())
	return out.String(), st.diags, nil
}

// GenerateWithValidation runs CompileMethod and checks the result.
func (g *Generator) GenerateWithValidation(name string, sig bytecode.Signature, code []bytecode.Instruction) (string, *diag.List, error) {
	text, diags, err := g.CompileMethod(name, sig, code)
	if err != nil {
		return "", diags, err
	}
	if err := NewValidator(g.profile).Validate(text); err != nil {
		return "", diags, &MethodError{Method: name, Index: diag.NoIndex, Err: err}
	}
	return text, diags, nil
}

// recover replaces a failed instruction with a comment and keeps going.
func (st *methodState) recover(out *asm.Buffer, in bytecode.Instruction, err error) {
	operand := ""
	if in.Operand != nil {
		operand = in.Operand.String()
	}
	out.Comment("ERROR at %04d %s %s: %v", st.index, in.Op, operand, err)
	st.report(diag.Error, "%v", err)
}

var symbolRe = regexp.MustCompile(`[^A-Za-z0-9_]`)

// Symbol turns a method name into an assembler symbol.
func Symbol(name string) string {
	return symbolRe.ReplaceAllString(name, "_")
}
