package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xsjk/Sklearn-Freezer/internal/codegen"
	"github.com/xsjk/Sklearn-Freezer/internal/model"
	"github.com/xsjk/Sklearn-Freezer/internal/testutil"
)

type fixture struct {
	dir    string
	model  string
	config string
}

func newFixture(t *testing.T, cfg string) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{
		dir:    dir,
		model:  filepath.Join(dir, "model.yaml"),
		config: filepath.Join(dir, "treefreeze.yaml"),
	}
	data, err := model.Marshal(testutil.DepthOneTree())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(f.model, data, 0o644))
	require.NoError(t, os.WriteFile(f.config, []byte(cfg), 0o644))
	return f
}

const manifestConfig = "work_dir: work\ntemp_dir: tmp\nmanifest: state/manifest.db\n"

func (f fixture) execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append(args, "--config", f.config))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func decode[T any](t *testing.T, out string) T {
	t.Helper()
	var resp struct {
		Status string `json:"status"`
		Data   T      `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	require.Equal(t, "ok", resp.Status)
	return resp.Data
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "treefreeze", cmd.Use)

	for _, path := range [][]string{{"generate"}, {"compile"}, {"predict"}, {"cache", "ls"}} {
		sub, _, err := cmd.Find(path)
		require.NoError(t, err, "command %v should exist", path)
		assert.Equal(t, path[len(path)-1], sub.Name())
	}

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "treefreeze.yaml", configFlag.DefValue)
}

func TestRootCommand_RejectsFormat(t *testing.T) {
	f := newFixture(t, "")
	_, _, err := f.execute(t, "", "generate", f.model, "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestGenerate_Text(t *testing.T) {
	f := newFixture(t, "")
	out, _, err := f.execute(t, "", "generate", f.model)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, codegen.Header))
	assert.Contains(t, out, codegen.CUEScalarEntry)
}

func TestGenerate_JSONToFile(t *testing.T) {
	f := newFixture(t, "")
	dst := filepath.Join(f.dir, "predict.go")

	out, _, err := f.execute(t, "", "generate", f.model,
		"-b", "managed-native", "--batch", "-o", dst, "--format", "json")
	require.NoError(t, err)

	res := decode[GenerateResult](t, out)
	assert.Equal(t, "managed-native", res.Backend)
	assert.Equal(t, codegen.GoBatchEntry, res.Entry)
	assert.Equal(t, dst, res.Output)
	assert.Empty(t, res.Source)

	src, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Contains(t, string(src), "func "+codegen.GoBatchEntry)
}

func TestGenerate_UnknownBackend(t *testing.T) {
	f := newFixture(t, "")
	out, _, err := f.execute(t, "", "generate", f.model, "-b", "fortran")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error ["+ErrCodeUnknownBackend+"]")
}

func TestGenerate_ModelNotFound(t *testing.T) {
	f := newFixture(t, "")
	out, _, err := f.execute(t, "", "generate", filepath.Join(f.dir, "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, out, "Error ["+ErrCodeNotFound+"]")
}

func TestGenerate_UnsupportedModel(t *testing.T) {
	f := newFixture(t, "")
	require.NoError(t, os.WriteFile(f.model, []byte("kind: gradient_boosting\nn_features: 1\n"), 0o644))

	out, _, err := f.execute(t, "", "generate", f.model)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error ["+ErrCodeUnsupportedModel+"]")
}

func TestCompile_InterpretedJSON(t *testing.T) {
	f := newFixture(t, manifestConfig)
	out, _, err := f.execute(t, "", "compile", f.model, "--format", "json")
	require.NoError(t, err)

	res := decode[CompileResult](t, out)
	assert.Equal(t, "interpreted", res.Backend)
	assert.Equal(t, "scalar", res.Convention)
	assert.Equal(t, "ephemeral", res.Persistence)
	assert.Equal(t, []string{"source_generated", "loaded"}, res.States)
	assert.Equal(t, []string{"x0"}, res.Features)
}

func TestCompile_Text(t *testing.T) {
	f := newFixture(t, "")
	out, _, err := f.execute(t, "", "compile", f.model, "-m", "stump")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Compiled stump (interpreted, scalar, persistent)")
	assert.Contains(t, out, "source_generated → loaded")
}

func TestPredict_CSVFile(t *testing.T) {
	f := newFixture(t, manifestConfig)
	rows := filepath.Join(f.dir, "rows.csv")
	require.NoError(t, os.WriteFile(rows, []byte("0.1\n0.9\n0.5\n"), 0o644))

	out, _, err := f.execute(t, "", "predict", f.model, rows)
	require.NoError(t, err)
	assert.Equal(t, "0.2\n0.9\n0.2\n", out)
}

func TestPredict_StdinWithHeader(t *testing.T) {
	f := newFixture(t, "")
	out, _, err := f.execute(t, "x0\n0.1\n0.9\n", "predict", f.model, "-", "--header", "--format", "json")
	require.NoError(t, err)

	res := decode[PredictResult](t, out)
	assert.Equal(t, []float64{0.2, 0.9}, res.Predictions)
}

func TestPredict_WrongWidth(t *testing.T) {
	f := newFixture(t, "")
	out, _, err := f.execute(t, "0.1,1\n0.9,2\n", "predict", f.model, "-")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error ["+ErrCodeTypeMismatch+"]")
}

func TestPredict_BadCSV(t *testing.T) {
	f := newFixture(t, "")
	out, _, err := f.execute(t, "0.1\nabc\n", "predict", f.model, "-")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error ["+ErrCodeInvalidInput+"]")
}

func TestCacheList(t *testing.T) {
	f := newFixture(t, manifestConfig)
	_, _, err := f.execute(t, "", "compile", f.model)
	require.NoError(t, err)
	_, _, err = f.execute(t, "", "compile", f.model, "-m", "stump")
	require.NoError(t, err)

	out, _, err := f.execute(t, "", "cache", "ls", "--format", "json")
	require.NoError(t, err)
	entries := decode[[]CacheEntry](t, out)
	require.Len(t, entries, 2)
	assert.Equal(t, "evaluated", entries[0].Outcome)
	assert.Equal(t, "stump", entries[1].Identity)

	out, _, err = f.execute(t, "", "cache", "ls", "--identity", "stump")
	require.NoError(t, err)
	assert.Contains(t, out, "IDENTITY")
	assert.Contains(t, out, "stump")
	assert.Contains(t, out, "2 build(s): 0 built, 0 cache hit(s), 2 evaluated, 0 failed")
}

func TestCacheList_Empty(t *testing.T) {
	f := newFixture(t, manifestConfig)
	out, _, err := f.execute(t, "", "cache", "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "No builds recorded")
}

func TestCacheList_NoManifest(t *testing.T) {
	f := newFixture(t, "work_dir: work\n")
	out, _, err := f.execute(t, "", "cache", "ls")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error ["+ErrCodeConfig+"]")
}

func TestReadRows(t *testing.T) {
	a, err := readRows(strings.NewReader("1, 2\n3,4\n"), false)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2}, a.Shape())
	assert.Equal(t, []float64{1, 2, 3, 4}, a.Float64s())

	_, err = readRows(strings.NewReader("1,2\n3\n"), false)
	assert.Error(t, err)

	a, err = readRows(strings.NewReader(""), false)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0}, a.Shape())
}
