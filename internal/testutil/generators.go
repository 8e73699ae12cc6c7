package testutil

import (
	"math/rand"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"

	"github.com/xsjk/Sklearn-Freezer/internal/model"
)

// Lattice is the step between generated thresholds and feature values.
// Feature values land exactly on thresholds often enough to exercise the
// equality edge of the split comparison.
const Lattice = 0.25

// RandomTree builds a random fitted tree of at most maxDepth splits.
func RandomTree(rng *rand.Rand, nFeatures, maxDepth int) *model.DecisionTree {
	t := &model.DecisionTree{NFeatures: nFeatures}
	var grow func(depth int) int
	grow = func(depth int) int {
		id := len(t.ChildrenLeft)
		t.ChildrenLeft = append(t.ChildrenLeft, model.LeafChild)
		t.ChildrenRight = append(t.ChildrenRight, model.LeafChild)
		t.Feature = append(t.Feature, -2)
		t.Threshold = append(t.Threshold, -2)
		t.Value = append(t.Value, nil)

		if depth >= maxDepth || (depth > 0 && rng.Intn(4) == 0) {
			neg := float64(rng.Intn(20))
			pos := float64(rng.Intn(20))
			if neg+pos == 0 {
				pos = 1
			}
			t.Value[id] = []float64{neg, pos}
			return id
		}
		t.Feature[id] = rng.Intn(nFeatures)
		t.Threshold[id] = float64(rng.Intn(17)-8) * Lattice
		left := grow(depth + 1)
		right := grow(depth + 1)
		t.ChildrenLeft[id] = left
		t.ChildrenRight[id] = right
		t.Value[id] = sumCounts(t.Value[left], t.Value[right])
		return id
	}
	grow(0)
	return t
}

func sumCounts(a, b []float64) []float64 {
	return []float64{a[0] + b[0], a[1] + b[1]}
}

// RandomForest builds a forest of members random trees.
func RandomForest(rng *rand.Rand, nFeatures, members, maxDepth int) *model.Forest {
	f := &model.Forest{NFeatures: nFeatures}
	for i := 0; i < members; i++ {
		f.Estimators = append(f.Estimators, RandomTree(rng, nFeatures, maxDepth))
	}
	return f
}

// GenTree generates random trees over nFeatures features.
func GenTree(nFeatures, maxDepth int) gopter.Gen {
	return gen.Int64().Map(func(seed int64) *model.DecisionTree {
		return RandomTree(rand.New(rand.NewSource(seed)), nFeatures, maxDepth)
	})
}

// GenForest generates random forests of one to maxMembers trees.
func GenForest(nFeatures, maxMembers, maxDepth int) gopter.Gen {
	return gen.Int64().Map(func(seed int64) *model.Forest {
		rng := rand.New(rand.NewSource(seed))
		return RandomForest(rng, nFeatures, 1+rng.Intn(maxMembers), maxDepth)
	})
}

// GenRow generates feature rows on the threshold lattice, slightly wider
// than the threshold range.
func GenRow(nFeatures int) gopter.Gen {
	return gen.SliceOfN(nFeatures, gen.IntRange(-10, 10).Map(func(v int) float64 {
		return float64(v) * Lattice
	}))
}
