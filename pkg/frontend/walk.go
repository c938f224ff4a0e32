package frontend

// Walk calls fn for every node reachable from body in source order.
// Returning false from fn skips the node's children.
func Walk(body []Stmt, fn func(Node) bool) {
	for _, s := range body {
		walkNode(s, fn)
	}
}

func walkNode(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	switch n := n.(type) {
	case *VarDecl:
		walkExpr(n.Value, fn)
	case *Assign:
		walkExpr(n.Target, fn)
		walkExpr(n.Value, fn)
	case *SlotAssign:
		walkExpr(n.Value, fn)
	case *Output:
		for _, a := range n.Args {
			walkExpr(a, fn)
		}
	case *If:
		walkExpr(n.Cond, fn)
		Walk(n.Then, fn)
		Walk(n.Else, fn)
	case *For:
		walkExpr(n.Start, fn)
		walkExpr(n.End, fn)
		walkExpr(n.Step, fn)
		Walk(n.Body, fn)
	case *CallStmt:
		walkExpr(n.Call, fn)
	case *ReturnSlotAssign:
		walkExpr(n.Call, fn)
	case *ExprStmt:
		walkExpr(n.X, fn)
	case *Unary:
		walkExpr(n.X, fn)
	case *Binary:
		walkExpr(n.Left, fn)
		walkExpr(n.Right, fn)
	case *ArrayLit:
		for _, e := range n.Elems {
			walkExpr(e, fn)
		}
	case *Index:
		walkExpr(n.Array, fn)
		walkExpr(n.Index, fn)
	case *Call:
		for _, a := range n.Args {
			walkExpr(a, fn)
		}
	case *Cast:
		walkExpr(n.X, fn)
	}
}

func walkExpr(e Expr, fn func(Node) bool) {
	if e == nil {
		return
	}
	// A typed nil pointer inside a non-nil interface is not a node.
	if c, ok := e.(*Call); ok && c == nil {
		return
	}
	walkNode(e, fn)
}
