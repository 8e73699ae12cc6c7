// Package errs defines the error taxonomy shared by every stage of the
// freezer pipeline.
//
// All stage errors are *Error values carrying a Code. Callers match them
// either with the IsXxx helpers or with errors.Is against the exported
// sentinels:
//
//	if errors.Is(err, errs.ErrBuild) { ... }
//
// Errors are never retried or swallowed by the pipeline. The only automatic
// recovery path lives in the build manager (persistent cache hit whose
// artifact fails to load triggers a rebuild).
package errs

import (
	"errors"
	"fmt"
)

// Code categorizes pipeline errors.
type Code string

const (
	// CodeUnsupportedModel indicates an unregistered or non-binary model.
	CodeUnsupportedModel Code = "UNSUPPORTED_MODEL"

	// CodeUnknownBackend indicates an unrecognized backend id.
	CodeUnknownBackend Code = "UNKNOWN_BACKEND"

	// CodeTypeMismatch indicates a batch buffer shape, dtype or layout violation.
	CodeTypeMismatch Code = "TYPE_MISMATCH"

	// CodeBuild indicates the external build invocation failed.
	CodeBuild Code = "BUILD_FAILED"

	// CodeToolchainUnavailable indicates a required external tool is missing.
	CodeToolchainUnavailable Code = "TOOLCHAIN_UNAVAILABLE"
)

// Error is the structured error returned by extraction, emission, batch
// validation and the build manager.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Message is a human-readable description.
	Message string

	// Backend names the backend involved, if any.
	Backend string

	// Diagnostics holds the raw toolchain output for build errors.
	Diagnostics string

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// Sentinels for errors.Is matching. Only the Code is compared.
var (
	ErrUnsupportedModel     = &Error{Code: CodeUnsupportedModel}
	ErrUnknownBackend       = &Error{Code: CodeUnknownBackend}
	ErrTypeMismatch         = &Error{Code: CodeTypeMismatch}
	ErrBuild                = &Error{Code: CodeBuild}
	ErrToolchainUnavailable = &Error{Code: CodeToolchainUnavailable}
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Backend != "" {
		msg = fmt.Sprintf("%s (backend=%s)", msg, e.Backend)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// UnsupportedModel creates an error for models the pipeline cannot freeze.
func UnsupportedModel(format string, args ...any) *Error {
	return &Error{
		Code:    CodeUnsupportedModel,
		Message: fmt.Sprintf(format, args...),
	}
}

// UnknownBackend creates an error for an unrecognized backend id.
func UnknownBackend(backend string, known []string) *Error {
	return &Error{
		Code:    CodeUnknownBackend,
		Message: fmt.Sprintf("unknown backend %q: must be one of %v", backend, known),
		Backend: backend,
	}
}

// TypeMismatch creates an error for a batch buffer that violates the
// calling convention.
func TypeMismatch(format string, args ...any) *Error {
	return &Error{
		Code:    CodeTypeMismatch,
		Message: fmt.Sprintf(format, args...),
	}
}

// Build creates an error for a failed external build. diagnostics is the
// toolchain's raw output and is kept verbatim.
func Build(backend, diagnostics string, err error) *Error {
	return &Error{
		Code:        CodeBuild,
		Message:     "external build failed",
		Backend:     backend,
		Diagnostics: diagnostics,
		Err:         err,
	}
}

// ToolchainUnavailable creates an error for a missing external tool.
func ToolchainUnavailable(backend, tool string, err error) *Error {
	return &Error{
		Code:    CodeToolchainUnavailable,
		Message: fmt.Sprintf("required tool %q not found", tool),
		Backend: backend,
		Details: map[string]string{"tool": tool},
		Err:     err,
	}
}

// IsUnsupportedModel returns true if err is an unsupported-model error.
// Uses errors.As to handle wrapped errors.
func IsUnsupportedModel(err error) bool {
	return hasCode(err, CodeUnsupportedModel)
}

// IsUnknownBackend returns true if err is an unknown-backend error.
func IsUnknownBackend(err error) bool {
	return hasCode(err, CodeUnknownBackend)
}

// IsTypeMismatch returns true if err is a batch buffer validation error.
func IsTypeMismatch(err error) bool {
	return hasCode(err, CodeTypeMismatch)
}

// IsBuild returns true if err is an external build failure.
func IsBuild(err error) bool {
	return hasCode(err, CodeBuild)
}

// IsToolchainUnavailable returns true if a required tool was missing.
func IsToolchainUnavailable(err error) bool {
	return hasCode(err, CodeToolchainUnavailable)
}

// Diagnostics returns the raw toolchain output carried by a build error,
// or "" if err is not one.
func Diagnostics(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Code == CodeBuild {
		return e.Diagnostics
	}
	return ""
}

func hasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
