package codegen

import (
	"fmt"

	"github.com/xsjk/Sklearn-Freezer/internal/errs"
)

// Backend identifies a target representation.
type Backend string

const (
	// Interpreted emits CUE evaluated in-process; no build step.
	Interpreted Backend = "interpreted"

	// ManagedNative emits a Go plugin built with the go toolchain.
	ManagedNative Backend = "managed-native"

	// UnmanagedNative emits a C shared library built with a C compiler.
	UnmanagedNative Backend = "unmanaged-native"
)

// Backends returns every backend in a stable order.
func Backends() []Backend {
	return []Backend{Interpreted, ManagedNative, UnmanagedNative}
}

// ParseBackend validates a backend id.
func ParseBackend(s string) (Backend, error) {
	for _, b := range Backends() {
		if string(b) == s {
			return b, nil
		}
	}
	return "", errs.UnknownBackend(s, backendNames(Backends()))
}

func backendNames(bs []Backend) []string {
	out := make([]string, len(bs))
	for i, b := range bs {
		out[i] = string(b)
	}
	return out
}

// Convention is the invocation contract of a generated entry point.
type Convention string

const (
	// Scalar evaluates one sample per call.
	Scalar Convention = "scalar"

	// Batch evaluates a row-major [N, F] buffer per call.
	Batch Convention = "batch"
)

// ParseConvention validates a calling convention name.
func ParseConvention(s string) (Convention, error) {
	switch Convention(s) {
	case Scalar, Batch:
		return Convention(s), nil
	default:
		return "", fmt.Errorf("unknown calling convention %q: must be scalar or batch", s)
	}
}
