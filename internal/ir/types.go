package ir

// Node is a decision node. Internal nodes populate Feature, Threshold,
// Left and Right; leaves populate Probability. Leaf selects which half is
// meaningful.
type Node struct {
	Feature     int
	Threshold   float64
	Left        int
	Right       int
	Probability float64
	Leaf        bool
}

// Model is a Tree or an Ensemble.
type Model interface {
	// NumFeatures returns the declared feature count.
	NumFeatures() int

	isModel()
}

// Tree is the IR of a single decision tree.
type Tree struct {
	nodes       []Node
	root        int
	numFeatures int
}

// NewTree builds a Tree from nodes in root-first order. The slice is
// copied.
func NewTree(nodes []Node, root, numFeatures int) *Tree {
	cp := make([]Node, len(nodes))
	copy(cp, nodes)
	return &Tree{nodes: cp, root: root, numFeatures: numFeatures}
}

func (*Tree) isModel() {}

// NumFeatures implements Model.
func (t *Tree) NumFeatures() int { return t.numFeatures }

// Root returns the index of the root node.
func (t *Tree) Root() int { return t.root }

// Len returns the number of nodes.
func (t *Tree) Len() int { return len(t.nodes) }

// Node returns node i by value.
func (t *Tree) Node(i int) Node { return t.nodes[i] }

// Depth returns the length of the longest root-to-leaf path.
func (t *Tree) Depth() int {
	var walk func(i int) int
	walk = func(i int) int {
		n := t.nodes[i]
		if n.Leaf {
			return 0
		}
		return 1 + max(walk(n.Left), walk(n.Right))
	}
	return walk(t.root)
}

// Predict walks the tree for x. It mirrors the generated code and exists
// for verification.
func (t *Tree) Predict(x []float64) float64 {
	n := t.nodes[t.root]
	for !n.Leaf {
		if x[n.Feature] <= n.Threshold {
			n = t.nodes[n.Left]
		} else {
			n = t.nodes[n.Right]
		}
	}
	return n.Probability
}

// Ensemble is the IR of an unweighted ensemble.
type Ensemble struct {
	members     []Model
	numFeatures int
}

// NewEnsemble builds an Ensemble. The slice is copied.
func NewEnsemble(members []Model, numFeatures int) *Ensemble {
	cp := make([]Model, len(members))
	copy(cp, members)
	return &Ensemble{members: cp, numFeatures: numFeatures}
}

func (*Ensemble) isModel() {}

// NumFeatures implements Model.
func (e *Ensemble) NumFeatures() int { return e.numFeatures }

// Len returns the number of members.
func (e *Ensemble) Len() int { return len(e.members) }

// Member returns member i.
func (e *Ensemble) Member(i int) Model { return e.members[i] }

// Predict returns the unweighted mean of the members' predictions.
func (e *Ensemble) Predict(x []float64) float64 {
	var sum float64
	for _, m := range e.members {
		sum += Predict(m, x)
	}
	return sum / float64(len(e.members))
}

// Predict evaluates any IR model for x.
func Predict(m Model, x []float64) float64 {
	switch v := m.(type) {
	case *Tree:
		return v.Predict(x)
	case *Ensemble:
		return v.Predict(x)
	default:
		panic("ir: unknown model type")
	}
}
