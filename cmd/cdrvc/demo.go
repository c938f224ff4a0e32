package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/cdrv-compiler/pkg/arch"
	"github.com/GriffinCanCode/cdrv-compiler/pkg/compiler"
	"github.com/GriffinCanCode/cdrv-compiler/pkg/frontend"
)

func newDemoCmd() *cobra.Command {
	var target string
	var noValidate bool
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Compile a built-in sample unit and print bytecode and assembly",
		Long: "Compile a built-in sample unit and print bytecode and assembly.\n\n" +
			"--arch takes a built-in profile name or the path of a YAML profile.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := arch.LoadFile(target)
			if err != nil {
				return err
			}
			res, err := compiler.Compile(demoUnit(), compiler.Options{Profile: p, Validate: !noValidate})

			out := cmd.OutOrStdout()
			if derr := res.Program.Disassemble(out); derr != nil {
				return derr
			}
			if derr := res.Program.DisassembleNative(out); derr != nil {
				return derr
			}
			for _, d := range res.Diagnostics.Items() {
				fmt.Fprintln(cmd.ErrOrStderr(), d)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&target, "arch", "aarch64", "Target profile name or profile file")
	cmd.Flags().BoolVar(&noValidate, "no-validate", false, "Skip assembly validation")
	return cmd
}

// demoUnit exercises loops in every form, calls with return slots, fields and
// the runtime library.
func demoUnit() *frontend.Unit {
	ident := func(name string) frontend.Expr { return &frontend.Ident{Name: name} }
	num := func(n int64) frontend.Expr { return &frontend.IntLit{Value: n} }
	output := func(e frontend.Expr) frontend.Stmt { return &frontend.Output{Args: []frontend.Expr{e}} }

	return &frontend.Unit{
		Name: "demo",
		Types: []*frontend.Type{{
			Name:   "Shapes",
			Fields: []*frontend.FieldDecl{{Name: "total", Type: "number"}},
			Methods: []*frontend.Method{
				{
					Name:        "Shapes.divmod",
					Params:      []frontend.Param{{Name: "a", Type: "number"}, {Name: "b", Type: "number"}},
					ReturnSlots: []frontend.Slot{{Name: "q", Type: "number"}, {Name: "r", Type: "number"}},
					Body: []frontend.Stmt{
						&frontend.SlotAssign{Slot: "q", Value: &frontend.Binary{Op: "/", Left: ident("a"), Right: ident("b")}},
						&frontend.SlotAssign{Slot: "r", Value: &frontend.Binary{Op: "%", Left: ident("a"), Right: ident("b")}},
					},
				},
				{
					Name: "Shapes.main",
					Body: []frontend.Stmt{
						&frontend.For{
							Iterator: "i", Start: num(1), End: num(5),
							Body: []frontend.Stmt{
								&frontend.Assign{
									Target: &frontend.Field{Name: "total"},
									Value:  &frontend.Binary{Op: "+", Left: &frontend.Field{Name: "total"}, Right: ident("i")},
								},
							},
						},
						&frontend.For{
							Iterator: "j", Start: num(10), End: num(1),
							Step: &frontend.Unary{Op: "-", X: num(3)},
							Body: []frontend.Stmt{output(ident("j"))},
						},
						&frontend.For{
							Iterator: "k", Start: num(1), End: num(64),
							Step: &frontend.StepOp{Text: "*2"},
							Body: []frontend.Stmt{output(ident("k"))},
						},
						&frontend.ReturnSlotAssign{
							Names: []string{"q", "r"},
							Call:  &frontend.Call{Name: "divmod", Qualified: "Shapes.divmod", Args: []frontend.Expr{num(17), num(5)}},
						},
						output(&frontend.Binary{Op: "+", Left: &frontend.StringLit{Value: `"q="`}, Right: ident("q")}),
						&frontend.VarDecl{Name: "xs", Type: "array", Value: &frontend.ArrayLit{Elems: []frontend.Expr{ident("q"), ident("r")}}},
						output(&frontend.Index{Array: ident("xs"), Index: num(1)}),
						&frontend.Input{Name: "n", TargetType: "number"},
						&frontend.If{
							Cond: &frontend.Binary{Op: ">", Left: ident("n"), Right: num(0)},
							Then: []frontend.Stmt{output(ident("n"))},
							Else: []frontend.Stmt{output(&frontend.StringLit{Value: `"none"`})},
						},
					},
				},
			},
		}},
	}
}
