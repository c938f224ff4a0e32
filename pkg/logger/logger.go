// Package logger provides standardized logging utilities for the cdrv backend
package logger

import (
	"io"
	"log/slog"
	"os"
)

// Global logger instance
var defaultLogger *slog.Logger

// LogLevel represents the logging level
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Config holds logger configuration
type Config struct {
	Level     LogLevel
	Format    string // "text" or "json"
	Output    io.Writer
	AddSource bool
	LogFile   string
}

// DefaultConfig returns the default logger configuration
func DefaultConfig() Config {
	return Config{
		Level:     LevelWarn,
		Format:    "text",
		Output:    os.Stderr,
		AddSource: false,
	}
}

// Init initializes the global logger with the given configuration
func Init(cfg Config) error {
	var handler slog.Handler

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.LogFile != "" {
		file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return err
		}
		output = file
	}

	opts := &slog.HandlerOptions{
		Level:     toSlogLevel(cfg.Level),
		AddSource: cfg.AddSource,
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}

	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)

	return nil
}

// ParseLevel maps a level name to a LogLevel, defaulting to warn.
func ParseLevel(name string) LogLevel {
	switch name {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "error":
		return LevelError
	default:
		return LevelWarn
	}
}

func toSlogLevel(level LogLevel) slog.Level {
	switch level {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Debug logs a debug message
func Debug(msg string, args ...any) {
	if defaultLogger != nil {
		defaultLogger.Debug(msg, args...)
	}
}

// Info logs an info message
func Info(msg string, args ...any) {
	if defaultLogger != nil {
		defaultLogger.Info(msg, args...)
	}
}

// Warn logs a warning message
func Warn(msg string, args ...any) {
	if defaultLogger != nil {
		defaultLogger.Warn(msg, args...)
	}
}

// Error logs an error message
func Error(msg string, args ...any) {
	if defaultLogger != nil {
		defaultLogger.Error(msg, args...)
	}
}

// With returns a new logger with the given attributes
func With(args ...any) *slog.Logger {
	if defaultLogger != nil {
		return defaultLogger.With(args...)
	}
	return slog.Default().With(args...)
}

// Compiler-specific logging helpers

// LogPhase logs the start of a compilation phase
func LogPhase(phase string) {
	Info("Starting compilation phase", "phase", phase)
}

// LogPhaseComplete logs the completion of a compilation phase
func LogPhaseComplete(phase string) {
	Info("Completed compilation phase", "phase", phase)
}

// LogBytecode logs bytecode generation for one method
func LogBytecode(method string, instructionCount, slotCount int) {
	Debug("Bytecode generation complete",
		"method", method,
		"instructions", instructionCount,
		"slots", slotCount)
}

// LogCodeGen logs code generation
func LogCodeGen(arch string, method string, lineCount int) {
	Debug("Code generation complete",
		"arch", arch,
		"method", method,
		"lines", lineCount)
}

// LogSpill logs a register eviction
func LogSpill(method string, reg string, offset int, depth int) {
	Debug("Register spilled",
		"method", method,
		"register", reg,
		"offset", offset,
		"depth", depth)
}

// LogDiagnostic logs a recoverable compilation problem
func LogDiagnostic(phase string, method string, index int, op string, msg string) {
	Warn("Compilation diagnostic",
		"phase", phase,
		"method", method,
		"index", index,
		"op", op,
		"message", msg)
}

// LogError logs a compilation error
func LogError(phase string, method string, err error) {
	Error("Compilation error",
		"phase", phase,
		"method", method,
		"error", err)
}

// LogCompilerComplete logs compiler completion
func LogCompilerComplete(success bool, methods int, duration string) {
	if success {
		Info("Compilation successful", "methods", methods, "duration", duration)
	} else {
		Error("Compilation failed", "methods", methods, "duration", duration)
	}
}
