package treefreeze

import (
	"github.com/xsjk/Sklearn-Freezer/internal/build"
	"github.com/xsjk/Sklearn-Freezer/internal/codegen"
	"github.com/xsjk/Sklearn-Freezer/internal/errs"
	"github.com/xsjk/Sklearn-Freezer/internal/model"
	"github.com/xsjk/Sklearn-Freezer/internal/tensor"
)

type (
	// Model is a fitted model accepted by Compile.
	Model = model.Model

	// DecisionTree is a fitted tree in node-array form.
	DecisionTree = model.DecisionTree

	// Forest is an unweighted ensemble of trees or nested forests.
	Forest = model.Forest

	// Backend selects the generated language and loader.
	Backend = codegen.Backend

	// Convention selects the entry point signature.
	Convention = codegen.Convention

	// Artifact is generated source with its entry symbol and identity.
	Artifact = codegen.Artifact

	// Unit is a loaded, callable artifact.
	Unit = build.Unit

	// Buffer is a batch input. *Array and FromDense values implement it.
	Buffer = tensor.Buffer

	// Array is a strided float buffer.
	Array = tensor.Array

	// Error is the structured error returned by every stage.
	Error = errs.Error
)

const (
	Interpreted     = codegen.Interpreted
	ManagedNative   = codegen.ManagedNative
	UnmanagedNative = codegen.UnmanagedNative

	Scalar = codegen.Scalar
	Batch  = codegen.Batch
)

// Sentinels for errors.Is.
var (
	ErrUnsupportedModel     = errs.ErrUnsupportedModel
	ErrUnknownBackend       = errs.ErrUnknownBackend
	ErrTypeMismatch         = errs.ErrTypeMismatch
	ErrBuild                = errs.ErrBuild
	ErrToolchainUnavailable = errs.ErrToolchainUnavailable
)

var (
	// LoadModel reads a YAML or JSON model document.
	LoadModel = model.LoadFile

	// Rows copies rows into a contiguous [len(rows), F] batch buffer.
	Rows = tensor.FromRows

	// FromDense exposes a gonum matrix as a batch buffer without copying.
	FromDense = tensor.FromDense
)
