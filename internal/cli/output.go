package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/xsjk/Sklearn-Freezer/internal/errs"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Pipeline failure (unsupported model, build failed, bad batch input)
	ExitCommandError = 2 // Command error (invalid paths, bad flags, unreadable config)
)

// Error codes shown to users. E0xx are command errors, E2xx map the
// pipeline error taxonomy.
const (
	ErrCodeGeneric          = "E001"
	ErrCodeNotFound         = "E005"
	ErrCodeWriteFailed      = "E007"
	ErrCodeConfig           = "E008"
	ErrCodeInvalidInput     = "E009"
	ErrCodeUnsupportedModel = "E201"
	ErrCodeUnknownBackend   = "E202"
	ErrCodeTypeMismatch     = "E203"
	ErrCodeBuildFailed      = "E204"
	ErrCodeToolchain        = "E205"
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Logs go to ErrWriter so JSON output stays parseable.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// Fail reports err and returns the ExitError the command should return.
// Pipeline errors keep their taxonomy code; build diagnostics are shown
// verbatim on the error writer in text mode and as details in JSON.
func (f *OutputFormatter) Fail(err error) error {
	code, exit := classify(err)
	diagnostics := errs.Diagnostics(err)

	var details any
	if diagnostics != "" && f.Format == "json" {
		details = map[string]string{"diagnostics": diagnostics}
	}
	_ = f.Error(code, err.Error(), details)
	if diagnostics != "" && f.Format != "json" {
		fmt.Fprint(f.GetErrWriter(), diagnostics)
	}
	return WrapExitError(exit, code, err)
}

// FailWith reports a command error with an explicit code.
func (f *OutputFormatter) FailWith(code, message string, err error) error {
	if err != nil {
		message = fmt.Sprintf("%s: %v", message, err)
	}
	_ = f.Error(code, message, nil)
	return WrapExitError(ExitCommandError, code, err)
}

func classify(err error) (string, int) {
	var e *errs.Error
	if !errors.As(err, &e) {
		return ErrCodeGeneric, ExitCommandError
	}
	switch e.Code {
	case errs.CodeUnsupportedModel:
		return ErrCodeUnsupportedModel, ExitFailure
	case errs.CodeUnknownBackend:
		return ErrCodeUnknownBackend, ExitCommandError
	case errs.CodeTypeMismatch:
		return ErrCodeTypeMismatch, ExitFailure
	case errs.CodeBuild:
		return ErrCodeBuildFailed, ExitFailure
	case errs.CodeToolchainUnavailable:
		return ErrCodeToolchain, ExitFailure
	default:
		return ErrCodeGeneric, ExitFailure
	}
}
