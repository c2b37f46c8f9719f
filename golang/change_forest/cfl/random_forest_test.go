package cfl

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestClassificationTreeSeparatesClasses(t *testing.T) {
	X := mat.NewDense(8, 2, []float64{
		0, 5,
		1, 3,
		2, 8,
		3, 1,
		10, 4,
		11, 9,
		12, 2,
		13, 6,
	})
	params := RandomForestParameters{MaxDepth: 4, MaxFeatures: 2, MinSamplesLeaf: 1}
	grower := newTreeGrower(X.RawRowView, func(p int) bool { return p >= 4 }, 2, params, rand.New(rand.NewSource(1)))

	tree := grower.Grow([]int{0, 1, 2, 3, 4, 5, 6, 7})
	require.Len(t, tree.Nodes, 3)
	root := tree.Nodes[0]
	assert.Equal(t, 0, root.FeatureNumber)
	assert.InDelta(t, 6.5, root.Threshold, 1e-12)
	assert.Equal(t, 8, root.NumberOfObjects)
	assert.Contains(t, root.GraphDescription(), "f_0 < ")

	for p := 0; p < 8; p++ {
		expected := 0.
		if p >= 4 {
			expected = 1
		}
		assert.Equal(t, expected, tree.Predict(X.RawRowView(p)))
	}
}

func TestClassificationTreeRespectsDepth(t *testing.T) {
	X := createNoiseMatrix(40, 3, 6)
	rng := rand.New(rand.NewSource(2))
	labels := make([]bool, 40)
	for p := range labels {
		labels[p] = rng.Intn(2) == 1
	}
	params := RandomForestParameters{MaxDepth: 2, MinSamplesLeaf: 3}
	grower := newTreeGrower(X.RawRowView, func(p int) bool { return labels[p] }, 3, params, rng)

	inx := make([]int, 40)
	for p := range inx {
		inx[p] = p
	}
	tree := grower.Grow(inx)
	assert.LessOrEqual(t, len(tree.Nodes), 7)
	for _, node := range tree.Nodes {
		assert.GreaterOrEqual(t, node.NumberOfObjects, 3)
	}
}

func TestRandomForestPredictsOutOfBag(t *testing.T) {
	X := createNoiseMatrix(60, 2, 7)
	for p := 30; p < 60; p++ {
		X.Set(p, 0, X.At(p, 0)+6)
	}
	rf := NewRandomForest(mustDMatrix(t, X), DefaultControl().RandomForestParameters, 0)

	predictions, err := rf.Predict(Segment{0, 60}, 30)
	require.NoError(t, err)
	require.Len(t, predictions, 60)
	for p, prediction := range predictions {
		if p < 30 {
			assert.Less(t, prediction, 0.5, "row %d", p)
		} else {
			assert.Greater(t, prediction, 0.5, "row %d", p)
		}
	}

	again, err := rf.Predict(Segment{0, 60}, 30)
	require.NoError(t, err)
	assert.Equal(t, predictions, again)
}

func TestRandomForestGainFindsShift(t *testing.T) {
	X := createNoiseMatrix(90, 2, 8)
	for p := 55; p < 90; p++ {
		X.Set(p, 1, X.At(p, 1)+5)
	}
	gain, err := NewGain(MethodRandomForest, mustDMatrix(t, X), DefaultControl())
	require.NoError(t, err)

	result, err := NewOptimizer(gain, 5, NewForbiddenSet(nil)).FindBestSplit(Segment{0, 90})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.InDelta(t, 55, result.BestSplit, 2)
	assert.Greater(t, result.MaxGain, 0.)
}
