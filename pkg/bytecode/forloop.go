package bytecode

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/GriffinCanCode/cdrv-compiler/pkg/frontend"
)

// For-loop lowering
//
// Every loop stores its start into the iterator slot and its end into a
// hidden slot, then enters at the continuation test so an empty range never
// runs the body. Labels inside the loop carry the inner loop depth; the exit
// label carries the depth of the enclosing code.

var compoundOps = map[string]Opcode{
	"+=": OpAddInt,
	"-=": OpSubInt,
	"*=": OpMulInt,
	"/=": OpDivInt,
}

var stepArithOps = map[string]Opcode{
	"+": OpAddInt,
	"-": OpSubInt,
	"*": OpMulInt,
	"/": OpDivInt,
}

func (ctx *methodContext) forStmt(s *frontend.For) {
	iter := ctx.slots.Declare(s.Iterator)
	end := ctx.slots.Fresh(s.Iterator + "$end")

	ctx.expr(s.Start)
	ctx.emitWith(OpStoreLocal, SlotIndex(iter))
	ctx.expr(s.End)
	ctx.emitWith(OpStoreLocal, SlotIndex(end))

	if s.Step != nil {
		ctx.steppedLoop(s, iter, end)
		return
	}

	from, okFrom := constInt(s.Start)
	to, okTo := constInt(s.End)
	if okFrom && okTo {
		ctx.countingLoop(s, iter, end, from <= to)
		return
	}
	ctx.dualLoop(s, iter, end)
}

// countingLoop emits a loop whose direction is known at compile time.
func (ctx *methodContext) countingLoop(s *frontend.For, iter, end int, up bool) {
	outer := ctx.loopDepth
	dir := "down"
	if up {
		dir = "up"
	}
	body := ctx.newLabel("loop_body_"+dir, outer+1)
	check := ctx.newLabel("loop_check_"+dir, outer+1)
	exit := ctx.newLabel("loop_end", outer)

	ctx.emitWith(OpJmp, check)
	ctx.mark(body)
	ctx.loopBody(s.Body)
	ctx.unitStep(iter, up)
	ctx.mark(check)
	ctx.continueTest(iter, end, !up, body)
	ctx.mark(exit)
}

// dualLoop picks the direction at run time and jumps into one of two copies
// of the loop.
func (ctx *methodContext) dualLoop(s *frontend.For, iter, end int) {
	outer := ctx.loopDepth
	downBody := ctx.newLabel("loop_body_down", outer+1)
	downCheck := ctx.newLabel("loop_check_down", outer+1)
	upBody := ctx.newLabel("loop_body_up", outer+1)
	upCheck := ctx.newLabel("loop_check_up", outer+1)
	exit := ctx.newLabel("loop_end", outer)

	ctx.emitWith(OpLoadLocal, SlotIndex(iter))
	ctx.emitWith(OpLoadLocal, SlotIndex(end))
	ctx.emit(OpCmpLeInt)
	ctx.emitWith(OpJmpIfTrue, upCheck)
	ctx.emitWith(OpJmp, downCheck)

	ctx.mark(downBody)
	ctx.loopBody(s.Body)
	ctx.unitStep(iter, false)
	ctx.mark(downCheck)
	ctx.continueTest(iter, end, true, downBody)
	ctx.emitWith(OpJmp, exit)

	ctx.mark(upBody)
	ctx.loopBody(s.Body)
	ctx.unitStep(iter, true)
	ctx.mark(upCheck)
	ctx.continueTest(iter, end, false, upBody)

	ctx.mark(exit)
}

// steppedLoop emits a loop driven by an explicit step expression.
func (ctx *methodContext) steppedLoop(s *frontend.For, iter, end int) {
	outer := ctx.loopDepth
	start := ctx.newLabel("loop_start", outer+1)
	cont := ctx.newLabel("loop_cont", outer+1)
	exit := ctx.newLabel("loop_end", outer)
	step := ctx.checkStep(s)
	down := stepDescends(step, s.Iterator)

	ctx.emitWith(OpJmp, cont)
	ctx.mark(start)
	ctx.loopBody(s.Body)
	ctx.applyStep(step, iter)
	ctx.emitWith(OpStoreLocal, SlotIndex(iter))
	ctx.mark(cont)
	ctx.continueTest(iter, end, down, start)
	ctx.mark(exit)
}

// checkStep returns the step to compile. A step that assigns to something
// other than the iterator, or that takes a remainder, falls back to 1.
func (ctx *methodContext) checkStep(s *frontend.For) frontend.Expr {
	if b, ok := s.Step.(*frontend.Binary); ok && isStepAssign(b.Op) {
		if id, ok := b.Left.(*frontend.Ident); !ok || id.Name != s.Iterator {
			ctx.warn("step %s assigns to %s, not the iterator %s, using 1", b.Op, targetName(b.Left), s.Iterator)
			return &frontend.IntLit{Value: 1}
		}
	}
	if usesRemainder(s.Step) {
		ctx.warn("remainder step on %s is not supported, using 1", s.Iterator)
		return &frontend.IntLit{Value: 1}
	}
	return s.Step
}

func targetName(e frontend.Expr) string {
	switch e := e.(type) {
	case *frontend.Ident:
		return e.Name
	case *frontend.Field:
		return "field " + e.Name
	}
	return fmt.Sprintf("%T", e)
}

func usesRemainder(e frontend.Expr) bool {
	switch e := e.(type) {
	case *frontend.Binary:
		return e.Op == "%" || e.Op == "%=" || usesRemainder(e.Left) || usesRemainder(e.Right)
	case *frontend.Unary:
		return usesRemainder(e.X)
	case *frontend.StepOp:
		return strings.HasPrefix(strings.TrimSpace(e.Text), "%")
	}
	return false
}

func (ctx *methodContext) loopBody(body []frontend.Stmt) {
	ctx.loopDepth++
	ctx.stmts(body)
	ctx.loopDepth--
}

func (ctx *methodContext) unitStep(iter int, up bool) {
	delta := Int(-1)
	if up {
		delta = 1
	}
	ctx.emitWith(OpLoadLocal, SlotIndex(iter))
	ctx.emitWith(OpPushInt, delta)
	ctx.emit(OpAddInt)
	ctx.emitWith(OpStoreLocal, SlotIndex(iter))
}

// continueTest jumps back to body while iter has not passed end.
func (ctx *methodContext) continueTest(iter, end int, down bool, body Label) {
	ctx.emitWith(OpLoadLocal, SlotIndex(iter))
	ctx.emitWith(OpLoadLocal, SlotIndex(end))
	if down {
		ctx.emit(OpCmpGeInt)
	} else {
		ctx.emit(OpCmpLeInt)
	}
	ctx.emitWith(OpJmpIfTrue, body)
}

// applyStep leaves the next iterator value on the stack.
func (ctx *methodContext) applyStep(step frontend.Expr, iter int) {
	if b, ok := step.(*frontend.Binary); ok && isStepAssign(b.Op) {
		if b.Op == "=" {
			ctx.stepOperand(b.Right, iter)
			return
		}
		ctx.emitWith(OpLoadLocal, SlotIndex(iter))
		ctx.stepOperand(b.Right, iter)
		ctx.emit(compoundOps[b.Op])
		return
	}

	if isMultiplicative(step) {
		ctx.stepOperand(step, iter)
		return
	}
	ctx.emitWith(OpLoadLocal, SlotIndex(iter))
	ctx.stepOperand(step, iter)
	ctx.emit(OpAddInt)
}

// stepOperand compiles one value of a step expression.
func (ctx *methodContext) stepOperand(e frontend.Expr, iter int) {
	switch e := e.(type) {
	case *frontend.Binary:
		if isStepAssign(e.Op) {
			ctx.stepOperand(e.Right, iter)
			return
		}
		ctx.stepOperand(e.Left, iter)
		ctx.stepOperand(e.Right, iter)
		if op, ok := stepArithOps[e.Op]; ok {
			ctx.emit(op)
			return
		}
		ctx.warn("unsupported step operator %q", e.Op)
		ctx.emit(OpPop)

	case *frontend.Unary:
		ctx.stepOperand(e.X, iter)
		if e.Op == "-" {
			ctx.emit(OpNegInt)
		}

	case *frontend.StepOp:
		ctx.operatorToken(e.Text, iter)

	case *frontend.Ident:
		if slot, ok := ctx.slots.Lookup(e.Name); ok {
			ctx.emitWith(OpLoadLocal, SlotIndex(slot))
			return
		}
		ctx.warn("unknown step operand %q, using 1", e.Name)
		ctx.emitWith(OpPushInt, Int(1))

	case *frontend.IntLit, *frontend.FloatLit, *frontend.StringLit, *frontend.BoolLit,
		*frontend.NullLit, *frontend.Field, *frontend.Call, *frontend.Index,
		*frontend.Cast, *frontend.ArrayLit:
		ctx.expr(e)

	default:
		ctx.warn("unsupported step expression %T, using 1", e)
		ctx.emitWith(OpPushInt, Int(1))
	}
}

// operatorToken compiles tokens such as "*2", "/-1", "*n", "+3" or "-1".
func (ctx *methodContext) operatorToken(text string, iter int) {
	t := strings.TrimSpace(text)
	if strings.HasPrefix(t, "*") || strings.HasPrefix(t, "/") {
		op := OpMulInt
		if t[0] == '/' {
			op = OpDivInt
		}
		ctx.emitWith(OpLoadLocal, SlotIndex(iter))
		operand := strings.TrimSpace(t[1:])
		if operand == "" {
			ctx.warn("step %q has no operand, using 1", t)
			ctx.emitWith(OpPushInt, Int(1))
		} else {
			ctx.tokenOperand(operand)
		}
		ctx.emit(op)
		return
	}
	ctx.tokenOperand(strings.TrimPrefix(t, "+"))
}

func (ctx *methodContext) tokenOperand(operand string) {
	if slot, ok := ctx.slots.Lookup(operand); ok {
		ctx.emitWith(OpLoadLocal, SlotIndex(slot))
		return
	}
	if n, err := strconv.ParseInt(operand, 10, 64); err == nil {
		ctx.emitWith(OpPushInt, Int(n))
		return
	}
	ctx.warn("cannot resolve step operand %q, using 1", operand)
	ctx.emitWith(OpPushInt, Int(1))
}

func isStepAssign(op string) bool {
	if op == "=" {
		return true
	}
	_, ok := compoundOps[op]
	return ok
}

// isMultiplicative reports whether a step replaces the iterator rather than
// being added to it.
func isMultiplicative(e frontend.Expr) bool {
	switch e := e.(type) {
	case *frontend.StepOp:
		t := strings.TrimSpace(e.Text)
		return strings.HasPrefix(t, "*") || strings.HasPrefix(t, "/")
	case *frontend.Binary:
		switch e.Op {
		case "*", "/":
			return true
		}
		return isMultiplicative(e.Left) || isMultiplicative(e.Right)
	}
	return false
}

// stepDescends guesses the loop direction from the shape of the step.
// Anything it cannot classify counts as ascending.
func stepDescends(e frontend.Expr, iter string) bool {
	if n, ok := constInt(e); ok {
		return n < 0
	}
	switch e := e.(type) {
	case *frontend.Unary:
		return e.Op == "-"

	case *frontend.Binary:
		switch e.Op {
		case "-=", "/=", "-", "/":
			return true
		case "=":
			if r, ok := e.Right.(*frontend.Binary); ok && (r.Op == "-" || r.Op == "/") {
				if id, ok := r.Left.(*frontend.Ident); ok && id.Name == iter {
					return true
				}
			}
			n, ok := constInt(e.Right)
			return ok && n < 0
		case "+", "*", "+=", "*=":
			n, ok := constInt(e.Right)
			return ok && n < 0
		}

	case *frontend.StepOp:
		t := strings.TrimSpace(e.Text)
		switch {
		case strings.HasPrefix(t, "-"), strings.HasPrefix(t, "/"):
			return true
		case strings.HasPrefix(t, "*"):
			n, err := strconv.ParseInt(strings.TrimSpace(t[1:]), 10, 64)
			return err == nil && n < 0
		}
		n, err := strconv.ParseInt(t, 10, 64)
		return err == nil && n < 0
	}
	return false
}

// constInt folds an integer literal, optionally under unary minus or plus.
func constInt(e frontend.Expr) (int64, bool) {
	switch e := e.(type) {
	case *frontend.IntLit:
		return e.Value, true
	case *frontend.Unary:
		n, ok := constInt(e.X)
		if !ok {
			return 0, false
		}
		switch e.Op {
		case "-":
			return -n, true
		case "+":
			return n, true
		}
	}
	return 0, false
}
