package treefreeze

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/xsjk/Sklearn-Freezer/internal/build"
	"github.com/xsjk/Sklearn-Freezer/internal/codegen"
	"github.com/xsjk/Sklearn-Freezer/internal/model"
	"github.com/xsjk/Sklearn-Freezer/internal/registry"
	"github.com/xsjk/Sklearn-Freezer/internal/store"
	"github.com/xsjk/Sklearn-Freezer/internal/tensor"
	"github.com/xsjk/Sklearn-Freezer/internal/testutil"
)

func testOptions(t *testing.T, extra ...Option) []Option {
	t.Helper()
	return append([]Option{
		WithWorkDir(t.TempDir()),
		WithTempDir(t.TempDir()),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, extra...)
}

func TestCompile_DepthOneScalar(t *testing.T) {
	predict, err := CompileScalar(context.Background(), testutil.DepthOneTree(), Interpreted, testOptions(t)...)
	require.NoError(t, err)

	got, err := predict(0.1)
	require.NoError(t, err)
	assert.Equal(t, 0.2, got)

	got, err = predict(0.9)
	require.NoError(t, err)
	assert.Equal(t, 0.9, got)

	got, err = predict(0.5)
	require.NoError(t, err)
	assert.Equal(t, 0.2, got, "equality takes the left branch")
}

func TestCompile_DepthOneBatch(t *testing.T) {
	predict, err := CompileBatch(context.Background(), testutil.DepthOneTree(), Interpreted, testOptions(t)...)
	require.NoError(t, err)

	in, err := Rows([][]float64{{0.1}, {0.9}})
	require.NoError(t, err)
	out, err := predict(in)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, out.Shape())
	assert.Equal(t, []float64{0.2, 0.9}, out.Float64s())
}

func TestCompile_BatchFromDense(t *testing.T) {
	predict, err := CompileBatch(context.Background(), testutil.DepthOneTree(), Interpreted, testOptions(t)...)
	require.NoError(t, err)

	out, err := predict(FromDense(mat.NewDense(2, 1, []float64{0.1, 0.9})))
	require.NoError(t, err)
	assert.Equal(t, []float64{0.2, 0.9}, out.Float64s())

	wide := mat.NewDense(2, 2, []float64{0.1, 0, 0.9, 0})
	view := wide.Slice(0, 2, 0, 1).(*mat.Dense)
	_, err = predict(FromDense(view))
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestCompile_Forest(t *testing.T) {
	m := testutil.TwoTreeForest()
	u, err := Compile(context.Background(), m, Interpreted, testOptions(t)...)
	require.NoError(t, err)

	for _, x := range [][]float64{{0, 0}, {-2, 2}, {3, 1}, {2, 1.5}} {
		want, err := m.PositiveProba(x)
		require.NoError(t, err)
		got, err := u.Scalar(x...)
		require.NoError(t, err)
		assert.InDelta(t, want, got, 1e-10, "x=%v", x)
	}
}

func TestCompile_NestedForest(t *testing.T) {
	m := testutil.NestedForest()
	u, err := Compile(context.Background(), m, Interpreted, testOptions(t)...)
	require.NoError(t, err)

	x := []float64{3, 1}
	want, err := m.PositiveProba(x)
	require.NoError(t, err)
	got, err := u.Scalar(x...)
	require.NoError(t, err)
	assert.InDelta(t, want, got, 1e-10)
}

func TestCompile_NonBinaryWritesNothing(t *testing.T) {
	workDir, tempDir := t.TempDir(), t.TempDir()
	m := testutil.DepthOneTree()
	m.Value = [][]float64{{1, 2, 3}, {1, 0, 0}, {0, 0, 1}}

	_, err := Compile(context.Background(), m, UnmanagedNative,
		WithWorkDir(workDir), WithTempDir(tempDir), WithModuleName("multi"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedModel)
	assertEmpty(t, workDir)
	assertEmpty(t, tempDir)
}

type gradientBoosting struct{}

func (gradientBoosting) Kind() model.Kind       { return "gradient_boosting" }
func (gradientBoosting) NumFeatures() int       { return 1 }
func (gradientBoosting) FeatureNames() []string { return nil }

func TestCompile_UnregisteredKind(t *testing.T) {
	workDir := t.TempDir()
	_, err := Compile(context.Background(), gradientBoosting{}, ManagedNative,
		WithWorkDir(workDir), WithModuleName("gb"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedModel)
	assertEmpty(t, workDir)

	_, err = Compile(context.Background(), nil, Interpreted)
	assert.ErrorIs(t, err, ErrUnsupportedModel)
}

func TestCompile_TypedNilModel(t *testing.T) {
	for _, m := range []Model{(*DecisionTree)(nil), (*Forest)(nil)} {
		assert.NotPanics(t, func() {
			_, err := Compile(context.Background(), m, Interpreted, testOptions(t)...)
			assert.ErrorIs(t, err, ErrUnsupportedModel, "%T", m)
		})
	}
}

func TestCompile_UnknownBackend(t *testing.T) {
	_, err := Compile(context.Background(), testutil.DepthOneTree(), Backend("fortran"), testOptions(t)...)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownBackend)

	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, "fortran", e.Backend)
}

func TestCompile_CustomRegistryWithoutBackend(t *testing.T) {
	r := registry.New(map[model.Kind]registry.Entry{
		model.KindDecisionTree: {
			Extract:  registry.Default().Extract,
			Dialects: map[codegen.Backend]codegen.Dialect{codegen.Interpreted: codegen.CUE{}},
		},
	})

	_, err := Compile(context.Background(), testutil.DepthOneTree(), UnmanagedNative,
		testOptions(t, WithRegistry(r))...)
	assert.ErrorIs(t, err, ErrUnknownBackend)

	_, err = Compile(context.Background(), testutil.TwoTreeForest(), Interpreted,
		testOptions(t, WithRegistry(r))...)
	assert.ErrorIs(t, err, ErrUnsupportedModel)
}

func TestCompile_InterpretedModuleTouchesNoDisk(t *testing.T) {
	workDir := t.TempDir()
	u, err := Compile(context.Background(), testutil.DepthOneTree(), Interpreted,
		testOptions(t, WithWorkDir(workDir), WithModuleName("stump"))...)
	require.NoError(t, err)

	assert.Equal(t, "stump", u.Identity())
	assert.Equal(t, build.Persistent, u.Persistence())
	assert.Empty(t, u.ArtifactPath())
	assertEmpty(t, workDir)
}

func TestCompile_InvalidModuleName(t *testing.T) {
	_, err := Compile(context.Background(), testutil.DepthOneTree(), Interpreted,
		testOptions(t, WithModuleName("../escape"))...)
	require.Error(t, err)
}

func TestCompile_FeatureNames(t *testing.T) {
	m := testutil.DepthTwoTree()
	m.Names = []string{"Age", "income"}
	u, err := Compile(context.Background(), m, Interpreted, testOptions(t)...)
	require.NoError(t, err)

	assert.Equal(t, []string{"age", "income"}, u.FeatureNames())
	assert.Equal(t, 2, u.FeatureCount())
	assert.Equal(t, []string{"Age", "income"}, m.Names, "model is not modified")
}

func TestCompile_RecordsManifest(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "manifest.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	_, err = Compile(context.Background(), testutil.DepthOneTree(), Interpreted, testOptions(t, WithStore(s))...)
	require.NoError(t, err)

	recs, err := s.ListBuilds(context.Background(), store.Filter{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, store.OutcomeEvaluated, recs[0].Outcome)
	assert.Equal(t, string(Interpreted), recs[0].Backend)
}

func TestCompile_SharedManager(t *testing.T) {
	m := build.NewManager(build.Config{
		TempDir: t.TempDir(),
		Drivers: []build.Driver{build.NewCUEDriver()},
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	_, err := Compile(context.Background(), testutil.DepthOneTree(), Interpreted, WithManager(m))
	require.NoError(t, err)

	_, err = Compile(context.Background(), testutil.DepthOneTree(), UnmanagedNative, WithManager(m))
	assert.ErrorIs(t, err, ErrUnknownBackend, "manager has no native driver")
}

func TestCompile_ReuseOutputBuffer(t *testing.T) {
	u, err := Compile(context.Background(), testutil.DepthOneTree(), Interpreted,
		testOptions(t, WithBatch(), WithReuseOutputBuffer(true))...)
	require.NoError(t, err)

	in := tensor.New(3, 1)
	a, err := u.Batch(in)
	require.NoError(t, err)
	b, err := u.Batch(in)
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestGenerate(t *testing.T) {
	art, err := Generate(testutil.DepthOneTree(), UnmanagedNative, Batch)
	require.NoError(t, err)

	assert.Equal(t, UnmanagedNative, art.Backend)
	assert.Equal(t, "c", art.SourceExt)
	assert.Equal(t, codegen.CBatchEntry, art.Entry)
	assert.Contains(t, string(art.Source), codegen.Header)

	again, err := Generate(testutil.DepthOneTree(), UnmanagedNative, Batch)
	require.NoError(t, err)
	assert.Equal(t, art.SourceHash, again.SourceHash)

	_, err = Generate(testutil.DepthOneTree(), Interpreted, Convention("vector"))
	assert.Error(t, err)
}

func assertEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no files written to %s", dir)
}
