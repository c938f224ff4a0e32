// Package compiler runs the backend pipeline: AST unit to bytecode program,
// then bytecode to native assembly for one target profile.
//
// Design: methods are isolated. A method that fails in either phase is left
// out of the result and its error is collected; every other method is still
// compiled.
package compiler

import (
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/GriffinCanCode/cdrv-compiler/pkg/arch"
	"github.com/GriffinCanCode/cdrv-compiler/pkg/bytecode"
	"github.com/GriffinCanCode/cdrv-compiler/pkg/codegen/native"
	"github.com/GriffinCanCode/cdrv-compiler/pkg/diag"
	"github.com/GriffinCanCode/cdrv-compiler/pkg/frontend"
	"github.com/GriffinCanCode/cdrv-compiler/pkg/logger"
)

// Options configures one compilation.
type Options struct {
	// Profile selects the target. Nil stops after bytecode.
	Profile *arch.Profile
	// Validate checks every generated method with native.Validator.
	Validate bool
}

// Result is everything a compilation produced, including partial output.
type Result struct {
	Program     *bytecode.Program
	Diagnostics *diag.List
}

// Compile lowers unit. The returned Result is never nil; err aggregates
// every per-method failure.
func Compile(unit *frontend.Unit, opts Options) (*Result, error) {
	start := time.Now()
	res := &Result{Program: bytecode.NewProgram(), Diagnostics: &diag.List{}}
	if unit == nil {
		return res, errors.New("nil unit")
	}

	if opts.Profile != nil {
		if err := opts.Profile.Validate(); err != nil {
			return res, errors.Wrapf(err, "profile %s", opts.Profile.Name)
		}
	}

	logger.LogPhase(diag.PhaseBytecode)
	var result error
	prog, diags, err := bytecode.NewCompiler().CompileUnit(unit)
	res.Program = prog
	res.Diagnostics.Append(diags)
	if err != nil {
		result = multierror.Append(result, err)
	}
	logger.LogPhaseComplete(diag.PhaseBytecode)

	if opts.Profile != nil {
		logger.LogPhase(diag.PhaseNative)
		gen := native.NewGenerator(opts.Profile)
		gen.Validate = opts.Validate
		diags, err := gen.Compile(res.Program)
		res.Diagnostics.Append(diags)
		if err != nil {
			result = multierror.Append(result, err)
		}
		logger.LogPhaseComplete(diag.PhaseNative)
	}

	logger.LogCompilerComplete(result == nil, len(res.Program.Methods()), time.Since(start).String())
	return res, result
}
