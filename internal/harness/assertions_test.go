package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xsjk/Sklearn-Freezer/internal/testutil"
)

func ptr(v float64) *float64 { return &v }

func sampleTrace() []TraceEvent {
	return []TraceEvent{
		{Type: EventCompile, Backend: "interpreted", Convention: "scalar", States: []string{"source_generated", "loaded"}},
		{Type: EventPrediction, Backend: "interpreted", Convention: "scalar", Row: []float64{0.1}, Got: ptr(0.2)},
		{Type: EventCompileError, Backend: "unmanaged-native", Convention: "scalar", Code: "BUILD_FAILED"},
	}
}

func TestAssertMatchesModel(t *testing.T) {
	m := testutil.DepthOneTree()
	assert.NoError(t, assertMatchesModel(sampleTrace(), m, DefaultTolerance))

	trace := sampleTrace()
	trace[1].Got = ptr(0.9)
	err := assertMatchesModel(trace, m, DefaultTolerance)
	require.Error(t, err)

	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, AssertMatchesModel, ae.Type)
	assert.Contains(t, err.Error(), "Full trace:")
	assert.Contains(t, err.Error(), "predict interpreted/scalar [0.1] = 0.9")
}

func TestAssertStates(t *testing.T) {
	ok := Assertion{Type: AssertStates, Backend: "interpreted", States: []string{"source_generated", "loaded"}}
	assert.NoError(t, assertStates(sampleTrace(), ok))

	wrong := Assertion{Type: AssertStates, Backend: "interpreted", States: []string{"source_generated", "cache_hit", "loaded"}}
	assert.Error(t, assertStates(sampleTrace(), wrong))

	none := Assertion{Type: AssertStates, Backend: "managed-native", States: []string{"loaded"}}
	err := assertStates(sampleTrace(), none)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "managed-native/*")
}

func TestAssertCompileError(t *testing.T) {
	ok := Assertion{Type: AssertCompileError, Backend: "unmanaged-native", Code: "BUILD_FAILED"}
	assert.NoError(t, assertCompileError(sampleTrace(), ok))

	wrongCode := Assertion{Type: AssertCompileError, Backend: "unmanaged-native", Code: "TOOLCHAIN_UNAVAILABLE"}
	assert.Error(t, assertCompileError(sampleTrace(), wrongCode))

	compiled := Assertion{Type: AssertCompileError, Code: "BUILD_FAILED"}
	err := assertCompileError(sampleTrace(), compiled)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Actual: compiled")
}

func TestAssertNoUnexpectedErrors(t *testing.T) {
	err := assertNoUnexpectedErrors(sampleTrace(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected_compile_error")

	covered := []Assertion{{Type: AssertCompileError, Backend: "unmanaged-native", Code: "BUILD_FAILED"}}
	assert.NoError(t, assertNoUnexpectedErrors(sampleTrace(), covered))
}

func TestResult_AddError(t *testing.T) {
	r := NewResult()
	assert.True(t, r.Pass)
	r.AddError("boom")
	assert.False(t, r.Pass)
	assert.Equal(t, []string{"boom"}, r.Errors)
}
