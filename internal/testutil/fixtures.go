// Package testutil provides fitted-model fixtures and property generators
// shared by package tests.
package testutil

import "github.com/xsjk/Sklearn-Freezer/internal/model"

// DepthOneTree splits feature 0 at 0.5: left leaf 0.2, right leaf 0.9.
func DepthOneTree() *model.DecisionTree {
	return &model.DecisionTree{
		NFeatures:     1,
		ChildrenLeft:  []int{1, model.LeafChild, model.LeafChild},
		ChildrenRight: []int{2, model.LeafChild, model.LeafChild},
		Feature:       []int{0, -2, -2},
		Threshold:     []float64{0.5, -2, -2},
		Value:         [][]float64{{9, 11}, {8, 2}, {1, 9}},
	}
}

// DepthTwoTree has two features and four leaves (0.0, 0.25, 0.75, 1.0).
//
//	x1 <= 1.5 ? (x0 <= -1 ? 0 : 0.25) : (x0 <= 2 ? 0.75 : 1)
func DepthTwoTree() *model.DecisionTree {
	l := model.LeafChild
	return &model.DecisionTree{
		NFeatures:     2,
		ChildrenLeft:  []int{1, 2, l, l, 5, l, l},
		ChildrenRight: []int{4, 3, l, l, 6, l, l},
		Feature:       []int{1, 0, -2, -2, 0, -2, -2},
		Threshold:     []float64{1.5, -1, -2, -2, 2, -2, -2},
		Value: [][]float64{
			{8, 8},
			{7, 1},
			{4, 0}, {3, 1},
			{1, 7},
			{1, 3}, {0, 4},
		},
	}
}

// SingleLeafTree is a tree whose root is a leaf with probability 0.75.
func SingleLeafTree(nFeatures int) *model.DecisionTree {
	return &model.DecisionTree{
		NFeatures:     nFeatures,
		ChildrenLeft:  []int{model.LeafChild},
		ChildrenRight: []int{model.LeafChild},
		Feature:       []int{-2},
		Threshold:     []float64{-2},
		Value:         [][]float64{{1, 3}},
	}
}

// TwoTreeForest averages DepthTwoTree with a stump on feature 1.
func TwoTreeForest() *model.Forest {
	stump := &model.DecisionTree{
		NFeatures:     2,
		ChildrenLeft:  []int{1, model.LeafChild, model.LeafChild},
		ChildrenRight: []int{2, model.LeafChild, model.LeafChild},
		Feature:       []int{1, -2, -2},
		Threshold:     []float64{0, -2, -2},
		Value:         [][]float64{{5, 5}, {4, 1}, {1, 4}},
	}
	return &model.Forest{
		NFeatures:  2,
		Estimators: []model.Model{DepthTwoTree(), stump},
	}
}

// NestedForest is an ensemble whose second member is itself an ensemble.
func NestedForest() *model.Forest {
	return &model.Forest{
		NFeatures:  2,
		Estimators: []model.Model{DepthTwoTree(), TwoTreeForest()},
	}
}
