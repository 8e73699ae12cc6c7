package model

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// document is the on-disk model format. JSON documents are accepted too,
// since the YAML decoder reads JSON.
//
//	kind: random_forest
//	n_features: 2
//	estimators:
//	  - kind: decision_tree
//	    n_features: 2
//	    children_left: [1, -1, -1]
//	    children_right: [2, -1, -1]
//	    feature: [0, -2, -2]
//	    threshold: [0.5, -2, -2]
//	    value: [[5, 5], [4, 1], [1, 4]]
type document struct {
	Kind          Kind        `yaml:"kind"`
	NFeatures     int         `yaml:"n_features"`
	FeatureNames  []string    `yaml:"feature_names,omitempty"`
	ChildrenLeft  []int       `yaml:"children_left,omitempty"`
	ChildrenRight []int       `yaml:"children_right,omitempty"`
	Feature       []int       `yaml:"feature,omitempty"`
	Threshold     []float64   `yaml:"threshold,omitempty"`
	Value         [][]float64 `yaml:"value,omitempty"`
	Estimators    []document  `yaml:"estimators,omitempty"`
	Weights       []float64   `yaml:"weights,omitempty"`
}

// Load decodes a model document from r.
func Load(r io.Reader) (Model, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	return doc.toModel("model")
}

// LoadFile decodes the model document at path.
func LoadFile(path string) (Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	m, err := Load(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Marshal encodes m as a YAML model document.
func Marshal(m Model) ([]byte, error) {
	doc, err := fromModel(m)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(doc)
}

func (d document) toModel(path string) (Model, error) {
	switch d.Kind {
	case KindDecisionTree:
		return &DecisionTree{
			NFeatures:     d.NFeatures,
			Names:         d.FeatureNames,
			ChildrenLeft:  d.ChildrenLeft,
			ChildrenRight: d.ChildrenRight,
			Feature:       d.Feature,
			Threshold:     d.Threshold,
			Value:         d.Value,
		}, nil
	case KindRandomForest:
		f := &Forest{
			NFeatures: d.NFeatures,
			Names:     d.FeatureNames,
			Weights:   d.Weights,
		}
		for i, e := range d.Estimators {
			m, err := e.toModel(fmt.Sprintf("%s.estimators[%d]", path, i))
			if err != nil {
				return nil, err
			}
			f.Estimators = append(f.Estimators, m)
		}
		return f, nil
	case "":
		return nil, fmt.Errorf("%s: kind is required", path)
	default:
		// Unknown kinds are passed through as opaque models so the
		// registry can report them as unsupported.
		return opaque{kind: d.Kind, nFeatures: d.NFeatures, names: d.FeatureNames}, nil
	}
}

func fromModel(m Model) (document, error) {
	switch v := m.(type) {
	case *DecisionTree:
		return document{
			Kind:          KindDecisionTree,
			NFeatures:     v.NFeatures,
			FeatureNames:  v.Names,
			ChildrenLeft:  v.ChildrenLeft,
			ChildrenRight: v.ChildrenRight,
			Feature:       v.Feature,
			Threshold:     v.Threshold,
			Value:         v.Value,
		}, nil
	case *Forest:
		doc := document{
			Kind:         KindRandomForest,
			NFeatures:    v.NFeatures,
			FeatureNames: v.Names,
			Weights:      v.Weights,
		}
		for _, e := range v.Estimators {
			ed, err := fromModel(e)
			if err != nil {
				return document{}, err
			}
			doc.Estimators = append(doc.Estimators, ed)
		}
		return doc, nil
	default:
		return document{}, fmt.Errorf("cannot encode model kind %q", m.Kind())
	}
}

// opaque stands in for a model kind this package does not know.
type opaque struct {
	kind      Kind
	nFeatures int
	names     []string
}

func (o opaque) Kind() Kind             { return o.kind }
func (o opaque) NumFeatures() int       { return o.nFeatures }
func (o opaque) FeatureNames() []string { return o.names }
