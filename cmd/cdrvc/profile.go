package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/cdrv-compiler/pkg/arch"
	"github.com/GriffinCanCode/cdrv-compiler/pkg/codegen/native"
)

func newProfilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List the built-in architecture profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range arch.Builtins() {
				p, err := arch.Lookup(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-10s %2d registers, %2d argument registers\n",
					name, len(p.Registers.GeneralPurpose), len(p.Registers.Arguments))
			}
			return nil
		},
	}
}

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Inspect and check architecture profiles",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show <name>",
		Short: "Print a built-in profile as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := arch.Lookup(args[0])
			if err != nil {
				return err
			}
			return arch.Dump(cmd.OutOrStdout(), p)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "check <file>",
		Short: "Load and validate a profile file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := arch.LoadFile(args[0])
			if err != nil {
				return errors.Wrapf(err, "checking %s", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: profile %s is valid\n", args[0], p.Name)
			return nil
		},
	})
	return cmd
}

func newRuntimeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "runtime",
		Short: "List the runtime symbols generated code links against",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, sym := range native.RuntimeSymbols() {
				fmt.Fprintln(cmd.OutOrStdout(), sym)
			}
		},
	}
}
