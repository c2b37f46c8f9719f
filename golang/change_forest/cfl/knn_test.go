package cfl

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/tarstars/change_forest/golang/change_forest/cfdata"
)

func TestKNNNeighboursExcludeTheRowItself(t *testing.T) {
	X := mat.NewDense(6, 1, []float64{0, 1, 3, 10, 11, 13})
	knn := NewKNN(mustDMatrix(t, X), 2)

	neighbours := knn.segmentNeighbours(Segment{0, 6})
	assert.Equal(t, [][]int{
		{1, 2},
		{0, 2},
		{1, 0},
		{4, 5},
		{3, 5},
		{4, 3},
	}, neighbours)

	// neighbours only come from the segment
	neighbours = knn.segmentNeighbours(Segment{2, 5})
	assert.Equal(t, [][]int{{3, 4}, {4, 2}, {3, 2}}, neighbours)
}

func TestKNNPredict(t *testing.T) {
	X := mat.NewDense(6, 1, []float64{0, 1, 3, 10, 11, 13})
	knn := NewKNN(mustDMatrix(t, X), 2)

	predictions, err := knn.Predict(Segment{0, 6}, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0, 1, 1, 1}, predictions)

	predictions, err = knn.Predict(Segment{0, 6}, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 0.5, 0, 1, 1, 1}, predictions)
}

func TestKNNDefaultNeighbours(t *testing.T) {
	knn := NewKNN(mustDMatrix(t, createNoiseMatrix(100, 2, 4)), 0)
	assert.Equal(t, 10, knn.k(Segment{0, 100}))
	assert.Equal(t, 20, knn.MinimalRows(Segment{0, 100}))
	assert.Equal(t, 4, knn.MinimalRows(Segment{0, 5}))

	neighbours := knn.segmentNeighbours(Segment{0, 100})
	for i, rows := range neighbours {
		assert.Len(t, rows, 10)
		assert.NotContains(t, rows, i)
	}
}

func TestKNNGainFindsShift(t *testing.T) {
	X := createNoiseMatrix(80, 3, 5)
	for p := 40; p < 80; p++ {
		for q := 0; q < 3; q++ {
			X.Set(p, q, X.At(p, q)+4)
		}
	}
	gain, err := NewGain(MethodKNN, mustDMatrix(t, X), DefaultControl())
	require.NoError(t, err)

	optimizer := NewOptimizer(gain, 4, NewForbiddenSet(nil))
	require.IsType(t, &TwoStepSearch{}, optimizer)
	result, err := optimizer.FindBestSplit(Segment{0, 80})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.InDelta(t, 40, result.BestSplit, 2)
	assert.Len(t, result.GainResults, 4)
	assert.Len(t, result.NullResults, 3)
}

func TestKNNNeighboursWithDuplicateRows(t *testing.T) {
	X := mat.NewDense(6, 1, []float64{0, 5, 5, 5, 9, 5})
	expected := [][]int{
		{1, 2},
		{2, 3},
		{1, 3},
		{1, 2},
		{1, 2},
		{1, 2},
	}
	// every tree is built with different random pivots
	for i := 0; i < 20; i++ {
		knn := NewKNN(mustDMatrix(t, X), 2)
		assert.Equal(t, expected, knn.searchNeighbours(Segment{0, 6}))
		assert.Equal(t, expected, knn.searchNeighbours(Segment{0, 6}))
	}
}

func TestKNNIrisNeighboursAreStable(t *testing.T) {
	X, _, err := cfdata.ReadCSVFile(filepath.Join("..", "testdata", "iris.csv"))
	require.NoError(t, err)
	dm := mustDMatrix(t, X)
	segment := Segment{100, 150}

	first := NewKNN(dm, 0)
	neighbours := first.searchNeighbours(segment)
	predictions, err := first.Predict(segment, 125)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		knn := NewKNN(dm, 0)
		assert.Equal(t, neighbours, knn.searchNeighbours(segment))
		again, err := knn.Predict(segment, 125)
		require.NoError(t, err)
		assert.Equal(t, predictions, again)
	}
}
