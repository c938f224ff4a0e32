package bytecode

import (
	"github.com/GriffinCanCode/cdrv-compiler/pkg/frontend"
)

var binaryOps = map[string]Opcode{
	"-":  OpSubInt,
	"*":  OpMulInt,
	"/":  OpDivInt,
	"%":  OpModInt,
	"==": OpCmpEqInt,
	"!=": OpCmpNeInt,
	"<":  OpCmpLtInt,
	"<=": OpCmpLeInt,
	">":  OpCmpGtInt,
	">=": OpCmpGeInt,
}

func (ctx *methodContext) expr(e frontend.Expr) {
	switch e := e.(type) {
	case *frontend.IntLit:
		ctx.emitWith(OpPushInt, Int(e.Value))
	case *frontend.FloatLit:
		ctx.emitWith(OpPushFloat, Float(e.Value))
	case *frontend.StringLit:
		ctx.emitWith(OpPushString, Str(unquote(e.Value)))
	case *frontend.BoolLit:
		ctx.emitWith(OpPushBool, Bool(e.Value))
	case *frontend.NullLit:
		ctx.emit(OpPushNull)

	case *frontend.Ident:
		if slot, ok := ctx.slots.Lookup(e.Name); ok {
			ctx.emitWith(OpLoadLocal, SlotIndex(slot))
			return
		}
		ctx.warn("unresolved variable %q, loading as field", e.Name)
		ctx.emitWith(OpLoadField, FieldRef(e.Name))

	case *frontend.Field:
		ctx.emitWith(OpLoadField, FieldRef(e.Name))

	case *frontend.Unary:
		ctx.expr(e.X)
		switch e.Op {
		case "-":
			ctx.emit(OpNegInt)
		case "+":
		default:
			ctx.warn("unsupported unary operator %q", e.Op)
			ctx.emit(OpPop)
			ctx.emit(OpPushNull)
		}

	case *frontend.Binary:
		ctx.binary(e)

	case *frontend.ArrayLit:
		ctx.emitWith(OpPushInt, Int(len(e.Elems)))
		ctx.emit(OpArrayNew)
		for i, el := range e.Elems {
			ctx.emit(OpDup)
			ctx.emitWith(OpPushInt, Int(i))
			ctx.expr(el)
			ctx.emit(OpArrayStore)
		}

	case *frontend.Index:
		ctx.expr(e.Array)
		ctx.expr(e.Index)
		ctx.emit(OpArrayLoad)

	case *frontend.Call:
		ctx.call(e)

	case *frontend.Cast:
		ctx.expr(e.X)
		if isStringType(e.Type) {
			ctx.emit(OpIntToString)
			return
		}
		ctx.note("cast to %s compiled as its operand", e.Type)

	case *frontend.StepOp:
		ctx.warn("operator token %q outside a loop step", e.Text)
		ctx.emit(OpPushNull)

	default:
		ctx.warn("unsupported expression %T", e)
		ctx.emit(OpPushNull)
	}
}

func (ctx *methodContext) binary(e *frontend.Binary) {
	ctx.expr(e.Left)
	ctx.expr(e.Right)

	if e.Op == "+" {
		left, right := mightBeString(e.Left), mightBeString(e.Right)
		switch {
		case left && right:
			ctx.emit(OpConcatString)
		case left:
			ctx.emit(OpIntToString)
			ctx.emit(OpConcatString)
		case right:
			ctx.emit(OpSwap)
			ctx.emit(OpIntToString)
			ctx.emit(OpSwap)
			ctx.emit(OpConcatString)
		default:
			ctx.emit(OpAddInt)
		}
		return
	}

	if op, ok := binaryOps[e.Op]; ok {
		ctx.emit(op)
		return
	}
	ctx.warn("unsupported binary operator %q", e.Op)
	ctx.emit(OpPop)
	ctx.emit(OpPop)
	ctx.emit(OpPushNull)
}

// call compiles the arguments left to right and a CALL. The result stays on
// the stack.
func (ctx *methodContext) call(c *frontend.Call) {
	if c == nil {
		ctx.warn("missing call expression")
		ctx.emit(OpPushNull)
		return
	}
	for _, a := range c.Args {
		ctx.expr(a)
	}
	ctx.emitWith(OpCall, MethodRef(c.Target()))
}

// mightBeString is a syntactic guess; it never looks at types.
func mightBeString(e frontend.Expr) bool {
	switch e := e.(type) {
	case *frontend.StringLit:
		return true
	case *frontend.Binary:
		return e.Op == "+"
	case *frontend.Call:
		return true
	case *frontend.Cast:
		return isStringType(e.Type)
	}
	return false
}

func isStringType(name string) bool {
	return name == "string" || name == "text"
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
