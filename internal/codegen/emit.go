package codegen

import (
	"strings"

	"github.com/xsjk/Sklearn-Freezer/internal/errs"
	"github.com/xsjk/Sklearn-Freezer/internal/ir"
)

// Func names a generated function and its parameters.
type Func struct {
	Name   string
	Params []string

	// Exported marks the top-level raw function. Member functions of an
	// ensemble stay private to the generated unit.
	Exported bool
}

// Dialect renders generated units in one target language. The recursion
// over the tree is shared; a dialect supplies only surface syntax.
type Dialect interface {
	// Backend returns the backend this dialect emits for.
	Backend() Backend

	// SourceExt is the source file extension, without the dot.
	SourceExt() string

	// Prologue returns the text preceding all functions.
	Prologue(conv Convention) string

	// Tree renders a tree function whose body is the rendered root.
	Tree(fn Func, body string) string

	// Leaf renders a leaf at the given nesting depth.
	Leaf(literal string, depth int) string

	// Branch renders an internal node. left and right are the rendered
	// children at depth+1.
	Branch(param, threshold, left, right string, depth int) string

	// Mean renders a function returning the unweighted mean of members,
	// each called with fn's parameters.
	Mean(fn Func, members []string) string

	// Wrapper renders the calling-convention entry point around raw and
	// returns it with the symbol the host loads.
	Wrapper(raw string, params []string, conv Convention) (src, symbol string)
}

// EmitTree renders t as one function in d.
func EmitTree(d Dialect, fn Func, t *ir.Tree) (string, error) {
	body, err := emitNode(d, t, t.Root(), fn.Params, 1)
	if err != nil {
		return "", err
	}
	return d.Tree(fn, body), nil
}

func emitNode(d Dialect, t *ir.Tree, i int, params []string, depth int) (string, error) {
	n := t.Node(i)
	if n.Leaf {
		return d.Leaf(FormatFloat(n.Probability), depth), nil
	}
	if n.Feature < 0 || n.Feature >= len(params) {
		return "", errs.UnsupportedModel("feature index %d out of range [0, %d)", n.Feature, len(params))
	}
	left, err := emitNode(d, t, n.Left, params, depth+1)
	if err != nil {
		return "", err
	}
	right, err := emitNode(d, t, n.Right, params, depth+1)
	if err != nil {
		return "", err
	}
	return d.Branch(params[n.Feature], FormatFloat(n.Threshold), left, right, depth), nil
}

// Aggregate renders m under name. A tree becomes one function. An
// ensemble becomes its members, named name_0..name_{k-1} (recursively for
// nested ensembles), followed by a combiner named name. Functions are
// returned in definition order, dependencies first.
func Aggregate(d Dialect, fn Func, m ir.Model) ([]string, error) {
	switch v := m.(type) {
	case *ir.Tree:
		src, err := EmitTree(d, fn, v)
		if err != nil {
			return nil, err
		}
		return []string{src}, nil
	case *ir.Ensemble:
		if v.Len() == 0 {
			return nil, errs.UnsupportedModel("ensemble has no members")
		}
		var out []string
		members := make([]string, v.Len())
		for i := range members {
			member := Func{Name: memberName(fn.Name, i), Params: fn.Params}
			srcs, err := Aggregate(d, member, v.Member(i))
			if err != nil {
				return nil, err
			}
			out = append(out, srcs...)
			members[i] = member.Name
		}
		return append(out, d.Mean(fn, members)), nil
	default:
		return nil, errs.UnsupportedModel("unsupported IR node %T", m)
	}
}

func memberName(parent string, i int) string {
	var b strings.Builder
	b.WriteString(parent)
	b.WriteByte('_')
	b.WriteString(itoa(i))
	return b.String()
}

// Wrap renders the entry point for conv around raw.
func Wrap(d Dialect, raw string, params []string, conv Convention) (src, symbol string) {
	return d.Wrapper(raw, params, conv)
}

func indent(depth int) string {
	return strings.Repeat("\t", depth)
}
