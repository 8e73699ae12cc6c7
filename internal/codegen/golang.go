package codegen

import (
	"fmt"
	"strings"
)

// Exported Go plugin symbols.
const (
	GoScalarEntry = "TFPredictVec"
	GoBatchEntry  = "TFPredictBatch"
)

// Go emits the managed-native backend: a main package built as a plugin.
// The raw function takes individually named float64 parameters; exported
// wrappers take flat slices so the host can call any arity.
type Go struct{}

var _ Dialect = Go{}

func (Go) Backend() Backend  { return ManagedNative }
func (Go) SourceExt() string { return "go" }

func (Go) Prologue(conv Convention) string {
	if conv == Batch {
		return "\npackage main\n\nimport (\n\t\"runtime\"\n\t\"sync\"\n)\n"
	}
	return "\npackage main\n"
}

func (Go) Tree(fn Func, body string) string {
	return fmt.Sprintf("func %s(%s) float64 {\n%s}\n", fn.Name, goParams(fn.Params), body)
}

func (Go) Leaf(literal string, depth int) string {
	return indent(depth) + "return " + literal + "\n"
}

func (Go) Branch(param, threshold, left, right string, depth int) string {
	ind := indent(depth)
	return ind + "if " + param + " <= " + threshold + " {\n" +
		left +
		ind + "} else {\n" +
		right +
		ind + "}\n"
}

func (Go) Mean(fn Func, members []string) string {
	args := strings.Join(fn.Params, ", ")
	calls := make([]string, len(members))
	for i, m := range members {
		calls[i] = m + "(" + args + ")"
	}
	return fmt.Sprintf("func %s(%s) float64 {\n\treturn (%s) / %s\n}\n",
		fn.Name, goParams(fn.Params), strings.Join(calls, " + "), FormatFloat(float64(len(members))))
}

func (Go) Wrapper(raw string, params []string, conv Convention) (string, string) {
	if conv == Batch {
		return fmt.Sprintf(goBatchTemplate, GoBatchEntry, GoBatchEntry, len(params), raw, indexArgs("row", len(params))), GoBatchEntry
	}
	return fmt.Sprintf(goScalarTemplate, GoScalarEntry, GoScalarEntry, raw, indexArgs("x", len(params))), GoScalarEntry
}

const goScalarTemplate = `// %s evaluates one sample given as a feature vector.
func %s(x []float64) float64 {
	return %s(%s)
}
`

const goBatchTemplate = `// %s evaluates rows samples of the row-major matrix data into out,
// splitting rows across GOMAXPROCS goroutines. It returns -1 without
// writing when the shape does not match.
func %s(data []float64, rows, cols int, out []float64) int {
	if cols != %d || rows < 0 || len(data) < rows*cols || len(out) < rows {
		return -1
	}
	workers := runtime.GOMAXPROCS(0)
	if workers > rows {
		workers = rows
	}
	if workers == 0 {
		return 0
	}
	chunk := (rows + workers - 1) / workers
	var wg sync.WaitGroup
	for lo := 0; lo < rows; lo += chunk {
		hi := lo + chunk
		if hi > rows {
			hi = rows
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				row := data[i*cols : (i+1)*cols]
				out[i] = %s(%s)
			}
		}(lo, hi)
	}
	wg.Wait()
	return 0
}
`

func goParams(params []string) string {
	ps := make([]string, len(params))
	for i, p := range params {
		ps[i] = p + " float64"
	}
	return strings.Join(ps, ", ")
}

func indexArgs(slice string, n int) string {
	args := make([]string, n)
	for i := range args {
		args[i] = fmt.Sprintf("%s[%d]", slice, i)
	}
	return strings.Join(args, ", ")
}
