package treefreeze

import (
	"context"

	"github.com/xsjk/Sklearn-Freezer/internal/build"
	"github.com/xsjk/Sklearn-Freezer/internal/codegen"
	"github.com/xsjk/Sklearn-Freezer/internal/errs"
	"github.com/xsjk/Sklearn-Freezer/internal/model"
	"github.com/xsjk/Sklearn-Freezer/internal/registry"
	"github.com/xsjk/Sklearn-Freezer/internal/tensor"
)

// ScalarFunc evaluates one sample, one argument per feature.
type ScalarFunc func(x ...float64) (float64, error)

// BatchFunc evaluates every row of a contiguous [N, F] float64 buffer.
type BatchFunc func(b tensor.Buffer) (*tensor.Array, error)

// Compile freezes m for backend and returns the loaded unit. The model is
// read, never modified.
func Compile(ctx context.Context, m model.Model, backend codegen.Backend, opts ...Option) (*build.Unit, error) {
	o := newOptions(opts)
	art, err := generate(o.Registry, m, backend, o.Convention)
	if err != nil {
		o.Logger.Debug("compile rejected",
			"backend", backend,
			"convention", o.Convention,
			"error", err,
		)
		return nil, err
	}
	o.Logger.Debug("source generated",
		"module", o.ModuleName,
		"backend", art.Backend,
		"convention", art.Convention,
		"features", art.FeatureCount,
		"source_hash", art.SourceHash,
		"model_hash", art.ModelHash,
	)
	return o.manager().Load(ctx, art, build.LoadOptions{
		ModuleName:        o.ModuleName,
		ReuseOutputBuffer: o.ReuseOutputBuffer,
	})
}

// CompileScalar compiles m with the scalar convention and returns its
// entry point. The artifact stays loaded for the life of the process.
func CompileScalar(ctx context.Context, m model.Model, backend codegen.Backend, opts ...Option) (ScalarFunc, error) {
	u, err := Compile(ctx, m, backend, append(opts, WithConvention(codegen.Scalar))...)
	if err != nil {
		return nil, err
	}
	return u.Scalar, nil
}

// CompileBatch compiles m with the batch convention and returns its entry
// point. The artifact stays loaded for the life of the process.
func CompileBatch(ctx context.Context, m model.Model, backend codegen.Backend, opts ...Option) (BatchFunc, error) {
	u, err := Compile(ctx, m, backend, append(opts, WithBatch())...)
	if err != nil {
		return nil, err
	}
	return u.Batch, nil
}

// Generate returns the source m freezes to, without building it.
func Generate(m model.Model, backend codegen.Backend, conv codegen.Convention) (*codegen.Artifact, error) {
	return generate(registry.Default(), m, backend, conv)
}

func generate(r *registry.Registry, m model.Model, backend codegen.Backend, conv codegen.Convention) (*codegen.Artifact, error) {
	if _, err := codegen.ParseBackend(string(backend)); err != nil {
		return nil, err
	}
	if _, err := codegen.ParseConvention(string(conv)); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errs.UnsupportedModel("model is nil")
	}
	extract, dialect, err := r.Resolve(m.Kind(), backend)
	if err != nil {
		return nil, err
	}
	tree, err := extract(m)
	if err != nil {
		return nil, err
	}
	return codegen.Generate(dialect, tree, conv, m.FeatureNames())
}
