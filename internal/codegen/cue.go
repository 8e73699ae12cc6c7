package codegen

import (
	"fmt"
	"strings"
)

// CUE entry points. The scalar entry is a field unifying the raw
// definition; the host fills parameters by name and reads OutField.
const (
	CUEScalarEntry = ReservedPrefix + "scalar"
	CUEBatchEntry  = ReservedPrefix + "batch"
	CUERowsField   = ReservedPrefix + "rows"
	CUEOutField    = ReservedPrefix + "out"
	OutField       = "out"
)

// CUE emits the interpreted backend. Functions are closed definitions
// whose parameters are fields and whose result is the out field; branches
// are guarded list comprehensions indexed at [0].
type CUE struct{}

var _ Dialect = CUE{}

func (CUE) Backend() Backend           { return Interpreted }
func (CUE) SourceExt() string          { return "cue" }
func (CUE) Prologue(Convention) string { return "" }

func (CUE) Tree(fn Func, body string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%s: {\n", fn.Name)
	for _, p := range fn.Params {
		fmt.Fprintf(&b, "\t%s: number\n", p)
	}
	fmt.Fprintf(&b, "\t%s: %s\n}\n", OutField, body)
	return b.String()
}

func (CUE) Leaf(literal string, _ int) string { return literal }

func (CUE) Branch(param, threshold, left, right string, depth int) string {
	inner := indent(depth + 1)
	return "[\n" +
		inner + "if " + param + " <= " + threshold + " {" + left + "},\n" +
		inner + "if " + param + " > " + threshold + " {" + right + "},\n" +
		indent(depth) + "][0]"
}

func (CUE) Mean(fn Func, members []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%s: {\n", fn.Name)
	for _, p := range fn.Params {
		fmt.Fprintf(&b, "\t%s%s=%s: number\n", ReservedPrefix, p, p)
	}
	args := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		args[i] = p + ": " + ReservedPrefix + p
	}
	calls := make([]string, len(members))
	for i, m := range members {
		calls[i] = fmt.Sprintf("(#%s & {%s}).%s", m, strings.Join(args, ", "), OutField)
	}
	fmt.Fprintf(&b, "\t%s: (%s) / %s\n}\n", OutField, strings.Join(calls, " + "), FormatFloat(float64(len(members))))
	return b.String()
}

func (CUE) Wrapper(raw string, params []string, conv Convention) (string, string) {
	if conv == Batch {
		args := make([]string, len(params))
		for i, p := range params {
			args[i] = fmt.Sprintf("%s: %srow[%d]", p, ReservedPrefix, i)
		}
		return fmt.Sprintf("%s: {\n\t%s: [...[...number]]\n\t%s: [for %srow in %s {(#%s & {%s}).%s}]\n}\n",
			CUEBatchEntry, CUERowsField, CUEOutField, ReservedPrefix, CUERowsField, raw, strings.Join(args, ", "), OutField), CUEBatchEntry
	}
	return fmt.Sprintf("%s: #%s\n", CUEScalarEntry, raw), CUEScalarEntry
}
