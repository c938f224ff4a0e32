// Package frontend defines the typed syntax tree handed to the backend.
//
// Design: statements and expressions are closed sum types. Every variant
// implements an unexported marker method, so a type switch in the backend
// lists the complete set of shapes it has to handle.
package frontend

// AST node types
type Node interface {
	node()
}

type Stmt interface {
	Node
	stmt()
}

type Expr interface {
	Node
	expr()
}

// Unit is one compilation unit: a set of types and their methods.
type Unit struct {
	Name  string
	Types []*Type
}

// Type groups fields and methods.
type Type struct {
	Name    string
	Fields  []*FieldDecl
	Methods []*Method
}

// Method is a typed method body.
type Method struct {
	Name        string
	Params      []Param
	ReturnSlots []Slot
	Body        []Stmt
}

func (*Method) node() {}

// Methods returns every method of the unit in declaration order.
func (u *Unit) Methods() []*Method {
	var out []*Method
	for _, t := range u.Types {
		out = append(out, t.Methods...)
	}
	return out
}

// Supporting types
type Param struct {
	Name string
	Type string
}

type Slot struct {
	Name string
	Type string
}

// Statements

type VarDecl struct {
	Name  string
	Type  string
	Value Expr // nil when declared without initialiser
}

func (*VarDecl) node() {}
func (*VarDecl) stmt() {}

// Assign stores Value into Target (Ident, Field or Index).
type Assign struct {
	Target Expr
	Value  Expr
}

func (*Assign) node() {}
func (*Assign) stmt() {}

// SlotAssign writes a declared return slot.
type SlotAssign struct {
	Slot  string
	Value Expr
}

func (*SlotAssign) node() {}
func (*SlotAssign) stmt() {}

type Output struct {
	Args []Expr
}

func (*Output) node() {}
func (*Output) stmt() {}

type If struct {
	Cond Expr
	Then []Stmt
	Else []Stmt
}

func (*If) node() {}
func (*If) stmt() {}

// For iterates Iterator from Start to End, optionally by Step.
type For struct {
	Iterator string
	Start    Expr
	End      Expr
	Step     Expr // nil for an implicit +1/-1 step
	Body     []Stmt
}

func (*For) node() {}
func (*For) stmt() {}

type CallStmt struct {
	Call *Call
}

func (*CallStmt) node() {}
func (*CallStmt) stmt() {}

// ReturnSlotAssign binds the return slots of Call to Names, in order.
type ReturnSlotAssign struct {
	Names []string
	Call  *Call
}

func (*ReturnSlotAssign) node() {}
func (*ReturnSlotAssign) stmt() {}

// Input reads a value of TargetType into the local Name.
type Input struct {
	Name       string
	TargetType string
}

func (*Input) node() {}
func (*Input) stmt() {}

type FieldDecl struct {
	Name string
	Type string
}

func (*FieldDecl) node() {}
func (*FieldDecl) stmt() {}

type ExprStmt struct {
	X Expr
}

func (*ExprStmt) node() {}
func (*ExprStmt) stmt() {}

// Expressions

type IntLit struct {
	Value int64
}

func (*IntLit) node() {}
func (*IntLit) expr() {}

type FloatLit struct {
	Value float64
}

func (*FloatLit) node() {}
func (*FloatLit) expr() {}

// StringLit holds the literal text; surrounding quotes are stripped by the backend.
type StringLit struct {
	Value string
}

func (*StringLit) node() {}
func (*StringLit) expr() {}

type BoolLit struct {
	Value bool
}

func (*BoolLit) node() {}
func (*BoolLit) expr() {}

type NullLit struct{}

func (*NullLit) node() {}
func (*NullLit) expr() {}

type Ident struct {
	Name string
}

func (*Ident) node() {}
func (*Ident) expr() {}

// Field is a field of the receiver.
type Field struct {
	Name string
}

func (*Field) node() {}
func (*Field) expr() {}

type Unary struct {
	Op string
	X  Expr
}

func (*Unary) node() {}
func (*Unary) expr() {}

// Binary covers arithmetic, comparison and the step assignment forms
// "=", "+=", "-=", "*=", "/=".
type Binary struct {
	Op    string
	Left  Expr
	Right Expr
}

func (*Binary) node() {}
func (*Binary) expr() {}

type ArrayLit struct {
	Elems []Expr
}

func (*ArrayLit) node() {}
func (*ArrayLit) expr() {}

type Index struct {
	Array Expr
	Index Expr
}

func (*Index) node() {}
func (*Index) expr() {}

// Call invokes a method. SlotNames lists requested return slots.
type Call struct {
	Name      string
	Qualified string
	Args      []Expr
	SlotNames []string
}

func (*Call) node() {}
func (*Call) expr() {}

// Target returns the name the call is emitted against.
func (c *Call) Target() string {
	if c.Qualified != "" {
		return c.Qualified
	}
	return c.Name
}

type Cast struct {
	Type string
	X    Expr
}

func (*Cast) node() {}
func (*Cast) expr() {}

// StepOp is a leading operator-string token in a loop step, e.g. "*2", "/-1", "*n".
type StepOp struct {
	Text string
}

func (*StepOp) node() {}
func (*StepOp) expr() {}
