package build

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xsjk/Sklearn-Freezer/internal/codegen"
	"github.com/xsjk/Sklearn-Freezer/internal/errs"
	"github.com/xsjk/Sklearn-Freezer/internal/tensor"
)

// countingUnit wraps a batch function that doubles column 0 and counts
// invocations.
func countingUnit(reuse bool) (*Unit, *int) {
	calls := 0
	u := newUnit(&codegen.Artifact{
		Backend:      codegen.UnmanagedNative,
		Convention:   codegen.Batch,
		FeatureNames: []string{"a", "b"},
		SourceHash:   "h",
	}, LoadOptions{ReuseOutputBuffer: reuse})
	u.call = &Callable{Batch: func(data []float64, rows, cols int, out []float64) error {
		calls++
		for i := 0; i < rows; i++ {
			out[i] = 2 * data[i*cols]
		}
		return nil
	}}
	return u, &calls
}

func TestUnit_BatchRejectsBeforeCalling(t *testing.T) {
	u, calls := countingUnit(false)

	square, err := tensor.FromSlice([]float64{1, 2, 3, 4}, 2, 2)
	require.NoError(t, err)
	f32, err := tensor.FromFloat32([]float32{1, 2}, 1, 2)
	require.NoError(t, err)

	bad := []tensor.Buffer{
		tensor.New(2),       // 1-D
		tensor.New(1, 2, 1), // 3-D
		tensor.New(2, 3),    // wrong columns
		f32,                 // wrong dtype
		square.T(),          // non-contiguous
	}
	for _, b := range bad {
		_, err := u.Batch(b)
		require.Error(t, err)
		assert.True(t, errs.IsTypeMismatch(err), "got %v", err)
	}
	assert.Equal(t, 0, *calls, "compiled function never invoked")

	out, err := u.Batch(square)
	require.NoError(t, err)
	assert.Equal(t, 1, *calls)
	assert.Equal(t, 2.0, out.At(0))
	assert.Equal(t, 6.0, out.At(1))
}

func TestUnit_BatchEmpty(t *testing.T) {
	u, _ := countingUnit(false)
	out, err := u.Batch(tensor.New(0, 2))
	require.NoError(t, err)
	assert.Equal(t, []int{0}, out.Shape())
}

func TestUnit_ReuseOutputBuffer(t *testing.T) {
	in, err := tensor.FromRows([][]float64{{1, 0}, {2, 0}})
	require.NoError(t, err)

	u, _ := countingUnit(true)
	a, err := u.Batch(in)
	require.NoError(t, err)
	b, err := u.Batch(in)
	require.NoError(t, err)
	assert.Same(t, a, b)

	shorter, err := tensor.FromRows([][]float64{{1, 0}})
	require.NoError(t, err)
	c, err := u.Batch(shorter)
	require.NoError(t, err)
	assert.NotSame(t, a, c, "row count change reallocates")
}

func TestUnit_FreshOutputByDefault(t *testing.T) {
	in, err := tensor.FromRows([][]float64{{1, 0}})
	require.NoError(t, err)

	u, _ := countingUnit(false)
	a, err := u.Batch(in)
	require.NoError(t, err)
	b, err := u.Batch(in)
	require.NoError(t, err)
	assert.NotSame(t, a, b)
}

func TestUnit_ConventionMismatch(t *testing.T) {
	u, _ := countingUnit(false)
	_, err := u.Scalar(1, 2)
	require.Error(t, err)
	assert.True(t, errs.IsTypeMismatch(err))
}

func TestUnit_ScalarArity(t *testing.T) {
	u := newUnit(&codegen.Artifact{Convention: codegen.Scalar, FeatureNames: []string{"a", "b"}}, LoadOptions{})
	u.call = &Callable{Scalar: func(x []float64) (float64, error) { return x[0] + x[1], nil }}

	_, err := u.Scalar(1)
	assert.True(t, errs.IsTypeMismatch(err))

	got, err := u.Scalar(1, 2)
	require.NoError(t, err)
	assert.Equal(t, 3.0, got)
}

func TestUnit_Close(t *testing.T) {
	released := 0
	u := newUnit(&codegen.Artifact{Convention: codegen.Scalar, FeatureNames: []string{"a"}}, LoadOptions{})
	u.call = &Callable{
		Scalar:  func(x []float64) (float64, error) { return x[0], nil },
		Release: func() error { released++; return nil },
	}

	require.NoError(t, u.Close())
	require.NoError(t, u.Close())
	assert.Equal(t, 1, released)
}

func TestFixedGenerator(t *testing.T) {
	g := NewFixedGenerator("a", "b")
	assert.Equal(t, "a", g.Generate())
	assert.Equal(t, "b", g.Generate())
	assert.Panics(t, func() { g.Generate() })
}

func TestUUIDv7Generator(t *testing.T) {
	var g UUIDv7Generator
	a, b := g.Generate(), g.Generate()
	assert.NotEqual(t, a, b)
	assert.Regexp(t, `^tf_[0-9a-f]{32}$`, a)
	assert.NoError(t, ValidateModuleName(a))
}
