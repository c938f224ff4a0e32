package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/cdrv-compiler/pkg/logger"
)

const version = "0.1.0"

func newRootCmd() *cobra.Command {
	var logLevel, logFormat, logFile string
	cmd := &cobra.Command{
		Use:           "cdrvc",
		Short:         "cdrv compiler backend",
		Long:          "cdrvc compiles typed method bodies to bytecode and to assembly for a target profile.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := logger.DefaultConfig()
			cfg.Level = logger.ParseLevel(logLevel)
			cfg.Format = logFormat
			cfg.Output = cmd.ErrOrStderr()
			cfg.LogFile = logFile
			return logger.Init(cfg)
		},
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text or json)")
	cmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Append logs to this file instead of stderr")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newProfilesCmd())
	cmd.AddCommand(newProfileCmd())
	cmd.AddCommand(newRuntimeCmd())
	cmd.AddCommand(newDemoCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the compiler version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "cdrvc version %s\n", version)
		},
	}
}
