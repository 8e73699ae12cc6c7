package build

import (
	"context"

	"github.com/xsjk/Sklearn-Freezer/internal/codegen"
	"github.com/xsjk/Sklearn-Freezer/internal/config"
)

// ScalarFunc evaluates one sample. len(x) is the feature count.
type ScalarFunc func(x []float64) (float64, error)

// BatchFunc evaluates rows samples from the row-major data into out.
// Inputs are validated by the caller.
type BatchFunc func(data []float64, rows, cols int, out []float64) error

// Callable is a loaded entry point. Exactly one of Scalar and Batch is set,
// matching the artifact's calling convention.
type Callable struct {
	Scalar ScalarFunc
	Batch  BatchFunc

	// Release frees loader resources. It may be nil.
	Release func() error
}

// Driver builds and loads artifacts for one backend.
type Driver interface {
	// Backend returns the backend served.
	Backend() codegen.Backend

	// Check reports ToolchainUnavailable if the external tool is missing.
	Check(ctx context.Context) error

	// ArtifactSuffix is appended to the module name to form the artifact
	// file name. An empty suffix means the backend has no build step.
	ArtifactSuffix() string

	// Build compiles src into out. Failures are errs.Build carrying the
	// toolchain output.
	Build(ctx context.Context, src, out string, art *codegen.Artifact) error

	// Load opens the artifact at path and resolves art.Entry. Drivers
	// without a build step ignore path and evaluate art.Source.
	Load(ctx context.Context, path string, art *codegen.Artifact) (*Callable, error)
}

// DefaultDrivers returns the three built-in drivers configured from tc.
func DefaultDrivers(tc config.Toolchain) []Driver {
	return []Driver{
		NewCUEDriver(),
		NewGoDriver(tc.Go, tc.GoFlags),
		NewCDriver(tc.CC, tc.CFlags, tc.LDFlags, tc.OpenMP),
	}
}
