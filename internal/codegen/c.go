package codegen

import (
	"fmt"
	"strings"
)

// Exported C symbols.
const (
	CScalarEntry = ReservedPrefix + "predict_vec"
	CBatchEntry  = ReservedPrefix + "predict_batch"
)

// C emits the unmanaged-native backend: a freestanding translation unit
// with no includes and no heap allocation. Ensemble members are static;
// the raw function and the wrapper are exported.
type C struct{}

var _ Dialect = C{}

func (C) Backend() Backend  { return UnmanagedNative }
func (C) SourceExt() string { return "c" }

func (C) Prologue(Convention) string {
	return `
#if defined(_WIN32)
#define TF_EXPORT __declspec(dllexport)
#else
#define TF_EXPORT __attribute__((visibility("default")))
#endif
`
}

func (C) Tree(fn Func, body string) string {
	return fmt.Sprintf("%s %s(%s) {\n%s}\n", cStorage(fn), fn.Name, cParams(fn.Params), body)
}

func (C) Leaf(literal string, depth int) string {
	return indent(depth) + "return " + literal + ";\n"
}

func (C) Branch(param, threshold, left, right string, depth int) string {
	ind := indent(depth)
	return ind + "if (" + param + " <= " + threshold + ") {\n" +
		left +
		ind + "} else {\n" +
		right +
		ind + "}\n"
}

func (C) Mean(fn Func, members []string) string {
	args := strings.Join(fn.Params, ", ")
	calls := make([]string, len(members))
	for i, m := range members {
		calls[i] = m + "(" + args + ")"
	}
	return fmt.Sprintf("%s %s(%s) {\n\treturn (%s) / %s;\n}\n",
		cStorage(fn), fn.Name, cParams(fn.Params), strings.Join(calls, " + "), FormatFloat(float64(len(members))))
}

func (C) Wrapper(raw string, params []string, conv Convention) (string, string) {
	if conv == Batch {
		return fmt.Sprintf(cBatchTemplate, CBatchEntry, len(params), raw, indexArgs("row", len(params))), CBatchEntry
	}
	return fmt.Sprintf(cScalarTemplate, CScalarEntry, raw, indexArgs("x", len(params))), CScalarEntry
}

const cScalarTemplate = `TF_EXPORT double %s(const double *x) {
	return %s(%s);
}
`

const cBatchTemplate = `TF_EXPORT int %s(const double *data, long long rows, long long cols, double *out) {
	long long i;
	if (cols != %d || rows < 0) {
		return -1;
	}
#pragma omp parallel for
	for (i = 0; i < rows; i++) {
		const double *row = data + i * cols;
		out[i] = %s(%s);
	}
	return 0;
}
`

func cStorage(fn Func) string {
	if fn.Exported {
		return "TF_EXPORT double"
	}
	return "static double"
}

func cParams(params []string) string {
	ps := make([]string, len(params))
	for i, p := range params {
		ps[i] = "double " + p
	}
	return strings.Join(ps, ", ")
}
