package bytecode

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/GriffinCanCode/cdrv-compiler/pkg/diag"
	"github.com/GriffinCanCode/cdrv-compiler/pkg/frontend"
	"github.com/GriffinCanCode/cdrv-compiler/pkg/logger"
)

var ErrInvalidMethod = errors.New("invalid method")

// Method is the bytecode produced for one method body.
type Method struct {
	Name        string
	Code        []Instruction
	Slots       *SlotTable
	Signature   Signature
	Diagnostics *diag.List
}

// Compiler lowers frontend methods to bytecode. It keeps no state between
// methods; every call builds a fresh method context.
type Compiler struct{}

func NewCompiler() *Compiler {
	return &Compiler{}
}

// methodContext is everything that lives for exactly one method compilation.
type methodContext struct {
	method      *frontend.Method
	code        []Instruction
	slots       *SlotTable
	returnSlots map[string]int
	labelID     int
	loopDepth   int
	diags       *diag.List
}

// CompileUnit compiles every method of u into a new Program. Methods that
// fail are left out of the program and reported in the returned error.
func (c *Compiler) CompileUnit(u *frontend.Unit) (*Program, *diag.List, error) {
	prog := NewProgram()
	all := &diag.List{}
	var result error
	for _, m := range u.Methods() {
		logger.Debug("Compiling method", "method", methodName(m), "nodes", countNodes(m))
		bm, err := c.CompileMethod(m)
		if err != nil {
			logger.LogError(diag.PhaseBytecode, methodName(m), err)
			result = multierror.Append(result, err)
			continue
		}
		all.Append(bm.Diagnostics)
		prog.AddMethod(bm.Name, bm.Code)
		prog.SetSignature(bm.Name, bm.Signature)
	}
	logger.Info("Bytecode build complete", "unit", u.Name, "methods", len(prog.Methods()))
	return prog, all, result
}

func countNodes(m *frontend.Method) int {
	if m == nil {
		return 0
	}
	n := 0
	frontend.Walk(m.Body, func(frontend.Node) bool {
		n++
		return true
	})
	return n
}

func methodName(m *frontend.Method) string {
	if m == nil {
		return ""
	}
	return m.Name
}

// CompileMethod compiles one method body.
func (c *Compiler) CompileMethod(m *frontend.Method) (*Method, error) {
	if m == nil {
		return nil, errors.Wrap(ErrInvalidMethod, "nil method")
	}
	if m.Name == "" {
		return nil, errors.Wrap(ErrInvalidMethod, "method has no name")
	}

	ctx := &methodContext{
		method:      m,
		slots:       NewSlotTable(),
		returnSlots: make(map[string]int),
		diags:       &diag.List{},
	}

	for _, p := range m.Params {
		ctx.slots.Declare(p.Name)
	}
	for _, s := range m.ReturnSlots {
		ctx.returnSlots[s.Name] = ctx.slots.Declare(s.Name)
	}

	for _, s := range m.Body {
		ctx.stmt(s)
	}

	if len(m.ReturnSlots) > 0 {
		ctx.note("return slots are materialised by STORE_SLOT; pushing placeholder")
	}
	ctx.emit(OpPushNull)
	ctx.emit(OpRet)

	if err := VerifyLabels(ctx.code); err != nil {
		return nil, errors.Wrapf(err, "method %s", m.Name)
	}

	logger.LogBytecode(m.Name, len(ctx.code), ctx.slots.Len())
	sig := Signature{Params: len(m.Params), ReturnSlots: len(m.ReturnSlots)}
	return &Method{
		Name:        m.Name,
		Code:        ctx.code,
		Slots:       ctx.slots,
		Signature:   sig,
		Diagnostics: ctx.diags,
	}, nil
}

func (ctx *methodContext) emit(op Opcode) {
	ctx.code = append(ctx.code, I(op))
}

func (ctx *methodContext) emitWith(op Opcode, operand Operand) {
	ctx.code = append(ctx.code, With(op, operand))
}

// newLabel returns a unique label for code running at loop depth depth.
func (ctx *methodContext) newLabel(prefix string, depth int) Label {
	l := Label{Name: fmt.Sprintf("%s_%d", prefix, ctx.labelID), LoopDepth: depth}
	ctx.labelID++
	return l
}

func (ctx *methodContext) mark(l Label) {
	ctx.emitWith(OpLabel, l)
}

func (ctx *methodContext) report(sev diag.Severity, format string, args ...any) {
	ctx.diags.Add(diag.Diagnostic{
		Phase:    diag.PhaseBytecode,
		Method:   ctx.method.Name,
		Index:    len(ctx.code),
		Severity: sev,
		Message:  fmt.Sprintf(format, args...),
	})
}

func (ctx *methodContext) warn(format string, args ...any) {
	ctx.report(diag.Warning, format, args...)
}

func (ctx *methodContext) note(format string, args ...any) {
	ctx.report(diag.Info, format, args...)
}

func (ctx *methodContext) stmts(list []frontend.Stmt) {
	for _, s := range list {
		ctx.stmt(s)
	}
}

func (ctx *methodContext) stmt(s frontend.Stmt) {
	switch s := s.(type) {
	case *frontend.VarDecl:
		slot := ctx.slots.Declare(s.Name)
		if s.Value != nil {
			ctx.expr(s.Value)
		} else {
			ctx.emit(OpPushNull)
		}
		ctx.emitWith(OpStoreLocal, SlotIndex(slot))

	case *frontend.Assign:
		ctx.assign(s)

	case *frontend.SlotAssign:
		ctx.expr(s.Value)
		slot, ok := ctx.returnSlots[s.Slot]
		if !ok {
			ctx.warn("assignment to undeclared return slot %q", s.Slot)
			ctx.emit(OpPop)
			return
		}
		ctx.emitWith(OpStoreSlot, SlotIndex(slot))

	case *frontend.Output:
		if len(s.Args) == 0 {
			ctx.emitWith(OpPushString, Str(""))
			ctx.emit(OpPrint)
			return
		}
		for _, a := range s.Args {
			ctx.expr(a)
			ctx.emit(OpPrint)
		}

	case *frontend.If:
		ctx.ifStmt(s)

	case *frontend.For:
		ctx.forStmt(s)

	case *frontend.CallStmt:
		ctx.call(s.Call)
		if s.Call == nil || len(s.Call.SlotNames) == 0 && s.Call.Name != "main" {
			ctx.emit(OpPop)
		}

	case *frontend.ReturnSlotAssign:
		if s.Call == nil {
			ctx.warn("slot assignment without a call")
			return
		}
		for _, a := range s.Call.Args {
			ctx.expr(a)
		}
		ctx.emitWith(OpCallSlots, SlotCall{Method: s.Call.Target(), Slots: len(s.Names)})
		for i := len(s.Names) - 1; i >= 0; i-- {
			ctx.emitWith(OpStoreLocal, SlotIndex(ctx.slots.Declare(s.Names[i])))
		}

	case *frontend.Input:
		ctx.emitWith(OpReadInput, TypeRef(s.TargetType))
		ctx.emitWith(OpStoreLocal, SlotIndex(ctx.slots.Declare(s.Name)))

	case *frontend.FieldDecl:
		// Fields get their storage from the receiver layout.

	case *frontend.ExprStmt:
		ctx.expr(s.X)
		ctx.emit(OpPop)

	default:
		ctx.warn("unsupported statement %T", s)
	}
}

func (ctx *methodContext) assign(s *frontend.Assign) {
	switch t := s.Target.(type) {
	case *frontend.Index:
		ctx.expr(t.Array)
		ctx.expr(t.Index)
		ctx.expr(s.Value)
		ctx.emit(OpArrayStore)
	case *frontend.Ident:
		ctx.expr(s.Value)
		ctx.emitWith(OpStoreLocal, SlotIndex(ctx.slots.Declare(t.Name)))
	case *frontend.Field:
		ctx.expr(s.Value)
		ctx.emitWith(OpStoreField, FieldRef(t.Name))
	default:
		ctx.warn("unsupported assignment target %T", s.Target)
		ctx.expr(s.Value)
		ctx.emit(OpPop)
	}
}

func (ctx *methodContext) ifStmt(s *frontend.If) {
	elseL := ctx.newLabel("else", ctx.loopDepth)
	endL := ctx.newLabel("endif", ctx.loopDepth)

	ctx.expr(s.Cond)
	ctx.emitWith(OpJmpIfFalse, elseL)
	ctx.stmts(s.Then)
	ctx.emitWith(OpJmp, endL)
	ctx.mark(elseL)
	ctx.stmts(s.Else)
	ctx.mark(endL)
}
