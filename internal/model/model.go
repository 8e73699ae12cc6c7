// Package model defines the read-only contract for fitted tree models.
//
// Models are produced by an external training process and are consumed
// here as already-fitted structures. Nothing in the freezer mutates them.
// The node-array layout follows the common fitted-tree representation:
// parallel arrays indexed by node id, with a leaf marked by equal
// (negative) left and right child indices.
package model

import "fmt"

// Kind tags a model type. The registry resolves a Kind to its extractor and
// emitter set; no reflection is involved.
type Kind string

const (
	// KindDecisionTree is a single binary-classification tree.
	KindDecisionTree Kind = "decision_tree"

	// KindRandomForest is an ensemble of trees (or nested ensembles)
	// whose positive-class probabilities are averaged.
	KindRandomForest Kind = "random_forest"
)

// LeafChild is the child index stored for both children of a leaf.
const LeafChild = -1

// Model is implemented by every fitted model the freezer accepts.
type Model interface {
	// Kind returns the model-kind tag used for registry lookup.
	Kind() Kind

	// NumFeatures returns the number of input features.
	NumFeatures() int

	// FeatureNames returns the training feature names, or nil if the model
	// was fitted without names.
	FeatureNames() []string
}

// DecisionTree is a fitted tree exposed as node arrays.
type DecisionTree struct {
	NFeatures     int
	Names         []string
	ChildrenLeft  []int
	ChildrenRight []int
	Feature       []int
	Threshold     []float64
	// Value holds per-node class counts, indexed [node][class].
	Value [][]float64
}

// Kind implements Model.
func (t *DecisionTree) Kind() Kind { return KindDecisionTree }

// NumFeatures implements Model.
func (t *DecisionTree) NumFeatures() int { return t.NFeatures }

// FeatureNames implements Model.
func (t *DecisionTree) FeatureNames() []string { return t.Names }

// NodeCount returns the number of nodes in the tree.
func (t *DecisionTree) NodeCount() int { return len(t.ChildrenLeft) }

// IsLeaf reports whether node n is a leaf.
func (t *DecisionTree) IsLeaf(n int) bool {
	return t.ChildrenLeft[n] == t.ChildrenRight[n]
}

// PositiveProba walks the tree for x and returns the fraction of the
// positive (second) class at the leaf reached. It is the reference
// prediction compiled code is checked against.
func (t *DecisionTree) PositiveProba(x []float64) (float64, error) {
	if len(x) != t.NFeatures {
		return 0, fmt.Errorf("expected %d features, got %d", t.NFeatures, len(x))
	}
	n := 0
	for steps := 0; steps <= t.NodeCount(); steps++ {
		if t.IsLeaf(n) {
			counts := t.Value[n]
			if len(counts) != 2 {
				return 0, fmt.Errorf("node %d: expected 2 classes, got %d", n, len(counts))
			}
			return counts[1] / (counts[0] + counts[1]), nil
		}
		if x[t.Feature[n]] <= t.Threshold[n] {
			n = t.ChildrenLeft[n]
		} else {
			n = t.ChildrenRight[n]
		}
	}
	return 0, fmt.Errorf("tree traversal did not terminate")
}

// Forest is a fitted ensemble. Members are trees or nested forests.
type Forest struct {
	NFeatures  int
	Names      []string
	Estimators []Model
	// Weights is nil for an unweighted ensemble. Non-uniform weights are
	// rejected by the extractor.
	Weights []float64
}

// Kind implements Model.
func (f *Forest) Kind() Kind { return KindRandomForest }

// NumFeatures implements Model.
func (f *Forest) NumFeatures() int { return f.NFeatures }

// FeatureNames implements Model.
func (f *Forest) FeatureNames() []string { return f.Names }

// PositiveProba returns the unweighted mean of the members' positive-class
// probabilities for x.
func (f *Forest) PositiveProba(x []float64) (float64, error) {
	if len(f.Estimators) == 0 {
		return 0, fmt.Errorf("forest has no estimators")
	}
	var sum float64
	for i, e := range f.Estimators {
		p, ok := e.(interface {
			PositiveProba([]float64) (float64, error)
		})
		if !ok {
			return 0, fmt.Errorf("estimator %d: %s cannot predict", i, e.Kind())
		}
		v, err := p.PositiveProba(x)
		if err != nil {
			return 0, fmt.Errorf("estimator %d: %w", i, err)
		}
		sum += v
	}
	return sum / float64(len(f.Estimators)), nil
}
