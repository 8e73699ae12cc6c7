package ir

import (
	"fmt"
	"math"

	"github.com/xsjk/Sklearn-Freezer/internal/errs"
	"github.com/xsjk/Sklearn-Freezer/internal/model"
)

// Extractor converts a fitted model into IR.
type Extractor func(model.Model) (Model, error)

// Extract converts any model kind this package understands. Registries
// that add kinds compose ExtractTree and ExtractForest themselves.
func Extract(m model.Model) (Model, error) {
	switch m.Kind() {
	case model.KindDecisionTree:
		return ExtractTree(m)
	case model.KindRandomForest:
		return ExtractForest(Extract)(m)
	default:
		return nil, errs.UnsupportedModel("model kind %q is not supported", m.Kind())
	}
}

// ExtractTree converts a *model.DecisionTree. Nodes are renumbered in
// root-first order; unreachable nodes are dropped.
func ExtractTree(m model.Model) (Model, error) {
	t, ok := m.(*model.DecisionTree)
	if !ok {
		return nil, errs.UnsupportedModel("expected decision tree, got %T", m)
	}
	if t == nil {
		return nil, errs.UnsupportedModel("decision tree is nil")
	}
	if t.NFeatures <= 0 {
		return nil, errs.UnsupportedModel("tree declares %d features", t.NFeatures)
	}
	n := len(t.ChildrenLeft)
	if n == 0 {
		return nil, errs.UnsupportedModel("tree has no nodes")
	}
	if len(t.ChildrenRight) != n || len(t.Feature) != n || len(t.Threshold) != n || len(t.Value) != n {
		return nil, errs.UnsupportedModel(
			"node arrays disagree in length: children_left=%d children_right=%d feature=%d threshold=%d value=%d",
			n, len(t.ChildrenRight), len(t.Feature), len(t.Threshold), len(t.Value))
	}
	for i, counts := range t.Value {
		if len(counts) != 2 {
			return nil, errs.UnsupportedModel("only binary classifiers are supported: node %d has %d classes", i, len(counts))
		}
	}

	x := treeExtraction{src: t, seen: make([]bool, n)}
	if _, err := x.visit(0); err != nil {
		return nil, err
	}
	return NewTree(x.nodes, 0, t.NFeatures), nil
}

type treeExtraction struct {
	src   *model.DecisionTree
	seen  []bool
	nodes []Node
}

// visit appends node i and its subtree, returning i's new index.
func (x *treeExtraction) visit(i int) (int, error) {
	if i < 0 || i >= len(x.seen) {
		return 0, errs.UnsupportedModel("child index %d out of range [0, %d)", i, len(x.seen))
	}
	if x.seen[i] {
		return 0, errs.UnsupportedModel("node %d is reachable twice", i)
	}
	x.seen[i] = true

	t := x.src
	at := len(x.nodes)
	if t.IsLeaf(i) {
		p, err := leafProbability(i, t.Value[i])
		if err != nil {
			return 0, err
		}
		x.nodes = append(x.nodes, Node{Leaf: true, Probability: p})
		return at, nil
	}

	feature, threshold := t.Feature[i], t.Threshold[i]
	if feature < 0 || feature >= t.NFeatures {
		return 0, errs.UnsupportedModel("node %d: feature index %d out of range [0, %d)", i, feature, t.NFeatures)
	}
	if math.IsNaN(threshold) || math.IsInf(threshold, 0) {
		return 0, errs.UnsupportedModel("node %d: threshold %v is not finite", i, threshold)
	}
	x.nodes = append(x.nodes, Node{Feature: feature, Threshold: threshold})

	left, err := x.visit(t.ChildrenLeft[i])
	if err != nil {
		return 0, err
	}
	right, err := x.visit(t.ChildrenRight[i])
	if err != nil {
		return 0, err
	}
	x.nodes[at].Left = left
	x.nodes[at].Right = right
	return at, nil
}

func leafProbability(i int, counts []float64) (float64, error) {
	neg, pos := counts[0], counts[1]
	if neg < 0 || pos < 0 || math.IsNaN(neg) || math.IsNaN(pos) {
		return 0, errs.UnsupportedModel("leaf %d: invalid class counts %v", i, counts)
	}
	total := neg + pos
	if total <= 0 || math.IsInf(total, 0) {
		return 0, errs.UnsupportedModel("leaf %d: class counts %v do not form a distribution", i, counts)
	}
	return pos / total, nil
}

// ExtractForest returns an extractor for *model.Forest that converts each
// member with members, so nested ensembles resolve through the same
// dispatch as the top level.
func ExtractForest(members Extractor) Extractor {
	return func(m model.Model) (Model, error) {
		f, ok := m.(*model.Forest)
		if !ok {
			return nil, errs.UnsupportedModel("expected random forest, got %T", m)
		}
		if f == nil {
			return nil, errs.UnsupportedModel("random forest is nil")
		}
		if len(f.Estimators) == 0 {
			return nil, errs.UnsupportedModel("ensemble has no members")
		}
		if f.NFeatures <= 0 {
			return nil, errs.UnsupportedModel("ensemble declares %d features", f.NFeatures)
		}
		if err := checkUniformWeights(f.Weights, len(f.Estimators)); err != nil {
			return nil, err
		}

		out := make([]Model, 0, len(f.Estimators))
		for i, e := range f.Estimators {
			if e == nil {
				return nil, errs.UnsupportedModel("member %d is nil", i)
			}
			mem, err := members(e)
			if err != nil {
				return nil, fmt.Errorf("member %d: %w", i, err)
			}
			if mem.NumFeatures() != f.NFeatures {
				return nil, errs.UnsupportedModel("member %d declares %d features, ensemble declares %d",
					i, mem.NumFeatures(), f.NFeatures)
			}
			out = append(out, mem)
		}
		return NewEnsemble(out, f.NFeatures), nil
	}
}

func checkUniformWeights(weights []float64, members int) error {
	if weights == nil {
		return nil
	}
	if len(weights) != members {
		return errs.UnsupportedModel("ensemble has %d weights for %d members", len(weights), members)
	}
	for i, w := range weights {
		if w != weights[0] {
			return errs.UnsupportedModel("weighted ensembles are not supported: weight %d is %v, weight 0 is %v",
				i, w, weights[0])
		}
	}
	return nil
}
