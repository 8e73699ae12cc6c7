package codegen

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xsjk/Sklearn-Freezer/internal/errs"
	"github.com/xsjk/Sklearn-Freezer/internal/ir"
	"github.com/xsjk/Sklearn-Freezer/internal/model"
	"github.com/xsjk/Sklearn-Freezer/internal/testutil"
)

func dialects() []Dialect {
	return []Dialect{CUE{}, Go{}, C{}}
}

func newGoldie(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func extract(t *testing.T, m model.Model) ir.Model {
	t.Helper()
	out, err := ir.Extract(m)
	require.NoError(t, err)
	return out
}

func TestGenerate_DepthOneGolden(t *testing.T) {
	g := newGoldie(t)
	m := extract(t, testutil.DepthOneTree())

	for _, d := range dialects() {
		for _, conv := range []Convention{Scalar, Batch} {
			name := "depth_one_" + string(d.Backend()) + "_" + string(conv)
			t.Run(name, func(t *testing.T) {
				art, err := Generate(d, m, conv, nil)
				require.NoError(t, err)
				g.Assert(t, name, art.Source)
			})
		}
	}
}

func TestGenerate_ForestGolden(t *testing.T) {
	g := newGoldie(t)
	m := extract(t, testutil.TwoTreeForest())

	for _, d := range []Dialect{CUE{}, C{}} {
		name := "forest_" + string(d.Backend()) + "_scalar"
		t.Run(name, func(t *testing.T) {
			art, err := Generate(d, m, Scalar, nil)
			require.NoError(t, err)
			g.Assert(t, name, art.Source)
		})
	}
}

func TestGenerate_ArtifactFields(t *testing.T) {
	m := extract(t, testutil.DepthTwoTree())

	tests := []struct {
		d     Dialect
		conv  Convention
		entry string
		ext   string
	}{
		{CUE{}, Scalar, CUEScalarEntry, "cue"},
		{CUE{}, Batch, CUEBatchEntry, "cue"},
		{Go{}, Scalar, GoScalarEntry, "go"},
		{Go{}, Batch, GoBatchEntry, "go"},
		{C{}, Scalar, CScalarEntry, "c"},
		{C{}, Batch, CBatchEntry, "c"},
	}
	for _, tt := range tests {
		t.Run(string(tt.d.Backend())+"/"+string(tt.conv), func(t *testing.T) {
			art, err := Generate(tt.d, m, tt.conv, nil)
			require.NoError(t, err)

			assert.Equal(t, tt.d.Backend(), art.Backend)
			assert.Equal(t, tt.conv, art.Convention)
			assert.Equal(t, tt.entry, art.Entry)
			assert.Equal(t, tt.ext, art.SourceExt)
			assert.Equal(t, RawFunc, art.Raw)
			assert.Equal(t, 2, art.FeatureCount)
			assert.Equal(t, []string{"x0", "x1"}, art.FeatureNames)
			assert.Equal(t, ir.SourceHash(string(tt.d.Backend()), art.Source), art.SourceHash)
			assert.Equal(t, ir.ModelHash(m), art.ModelHash)
			assert.Contains(t, string(art.Source), Header)
		})
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	m := extract(t, testutil.NestedForest())
	for _, d := range dialects() {
		a, err := Generate(d, m, Batch, nil)
		require.NoError(t, err)
		b, err := Generate(d, m, Batch, nil)
		require.NoError(t, err)
		assert.Equal(t, a.Source, b.Source, "backend %s", d.Backend())
	}
}

func TestGenerate_UsesFeatureNames(t *testing.T) {
	m := extract(t, testutil.DepthOneTree())

	art, err := Generate(C{}, m, Scalar, []string{"Petal Width"})
	require.NoError(t, err)
	assert.Equal(t, []string{"petal_width"}, art.FeatureNames)
	assert.Contains(t, string(art.Source), "TF_EXPORT double tf_predict(double petal_width) {")
	assert.Contains(t, string(art.Source), "if (petal_width <= 0.5) {")
}

func TestGenerate_RejectsFeatureNameCount(t *testing.T) {
	m := extract(t, testutil.DepthOneTree())
	_, err := Generate(C{}, m, Scalar, []string{"a", "b"})
	assert.True(t, errs.IsUnsupportedModel(err))
}

func TestEmitTree_FeatureIndexOutOfRange(t *testing.T) {
	tree := ir.NewTree([]ir.Node{
		{Feature: 3, Threshold: 1, Left: 1, Right: 2},
		{Leaf: true, Probability: 0},
		{Leaf: true, Probability: 1},
	}, 0, 2)

	for _, d := range dialects() {
		_, err := EmitTree(d, Func{Name: RawFunc, Params: []string{"x0", "x1"}}, tree)
		require.Error(t, err)
		assert.True(t, errs.IsUnsupportedModel(err), "backend %s", d.Backend())
	}
}

func TestEmitTree_LeafOnly(t *testing.T) {
	tree := ir.NewTree([]ir.Node{{Leaf: true, Probability: 1}}, 0, 1)
	fn := Func{Name: "f", Params: []string{"a"}, Exported: true}

	src, err := EmitTree(Go{}, fn, tree)
	require.NoError(t, err)
	assert.Equal(t, "func f(a float64) float64 {\n\treturn 1.0\n}\n", src)

	src, err = EmitTree(C{}, fn, tree)
	require.NoError(t, err)
	assert.Equal(t, "TF_EXPORT double f(double a) {\n\treturn 1.0;\n}\n", src)

	src, err = EmitTree(CUE{}, fn, tree)
	require.NoError(t, err)
	assert.Equal(t, "#f: {\n\ta: number\n\tout: 1.0\n}\n", src)
}

func TestAggregate_NestedNames(t *testing.T) {
	m := extract(t, testutil.NestedForest())
	fns, err := Aggregate(C{}, Func{Name: RawFunc, Params: []string{"x0", "x1"}, Exported: true}, m)
	require.NoError(t, err)

	// member 0, nested members 1_0 and 1_1, nested combiner 1, top combiner
	require.Len(t, fns, 5)
	assert.Contains(t, fns[0], "static double tf_predict_0(")
	assert.Contains(t, fns[1], "static double tf_predict_1_0(")
	assert.Contains(t, fns[2], "static double tf_predict_1_1(")
	assert.Contains(t, fns[3], "static double tf_predict_1(double x0, double x1) {\n\treturn (tf_predict_1_0(x0, x1) + tf_predict_1_1(x0, x1)) / 2.0;")
	assert.Contains(t, fns[4], "TF_EXPORT double tf_predict(double x0, double x1) {\n\treturn (tf_predict_0(x0, x1) + tf_predict_1(x0, x1)) / 2.0;")
}

func TestAggregate_RejectsEmptyEnsemble(t *testing.T) {
	_, err := Aggregate(Go{}, Func{Name: RawFunc}, ir.NewEnsemble(nil, 1))
	assert.True(t, errs.IsUnsupportedModel(err))
}

func TestWrap_BatchChecksColumns(t *testing.T) {
	params := []string{"a", "b", "c"}

	src, sym := Wrap(C{}, RawFunc, params, Batch)
	assert.Equal(t, CBatchEntry, sym)
	assert.Contains(t, src, "if (cols != 3 || rows < 0) {")
	assert.Contains(t, src, "#pragma omp parallel for")
	assert.Contains(t, src, "out[i] = tf_predict(row[0], row[1], row[2]);")

	src, sym = Wrap(Go{}, RawFunc, params, Batch)
	assert.Equal(t, GoBatchEntry, sym)
	assert.Contains(t, src, "if cols != 3 ||")
	assert.Contains(t, src, "out[i] = tf_predict(row[0], row[1], row[2])")

	src, sym = Wrap(CUE{}, RawFunc, params, Batch)
	assert.Equal(t, CUEBatchEntry, sym)
	assert.Contains(t, src, "{a: tf_row[0], b: tf_row[1], c: tf_row[2]}")
}
