package cfl

import (
	"math"
	"math/rand"
)

func defaultMaxFeatures(width int) int {
	return int(math.Ceil(math.Sqrt(float64(width))))
}

//RandomForest is a bagged ensemble of classification trees predicting for every row of a
//segment whether it lies after the guess. Every row is predicted only by the trees that
//did not see it, so the predictions are out-of-bag.
type RandomForest struct {
	dm     *DMatrix
	params RandomForestParameters
	seed   int64
}

//NewRandomForest creates a random forest classifier over dm.
func NewRandomForest(dm *DMatrix, params RandomForestParameters, seed int64) *RandomForest {
	return &RandomForest{dm: dm, params: params, seed: seed}
}

func (rf *RandomForest) Method() Method {
	return MethodRandomForest
}

func (rf *RandomForest) MinimalRows(Segment) int {
	if rows := 2 * rf.params.MinSamplesLeaf; rows > 4 {
		return rows
	}
	return 4
}

//Predict returns the mean out-of-bag probability of "after guess" for every row.
//A row no tree left out gets 0.5. The forest of a (segment, guess) pair is always the same.
func (rf *RandomForest) Predict(segment Segment, guess int) ([]float64, error) {
	length := segment.Len()
	rng := rand.New(rand.NewSource(derivedSeed(rf.seed, streamForest, int64(segment.Start), int64(segment.Stop), int64(guess))))

	grower := newTreeGrower(
		func(i int) []float64 { return rf.dm.Row(segment.Start + i) },
		func(i int) bool { return segment.Start+i >= guess },
		rf.dm.Width(), rf.params, rng,
	)

	votes := make([]float64, length)
	counts := make([]int, length)
	sample := make([]int, length)
	inBag := make([]bool, length)
	for t := 0; t < rf.params.NEstimators; t++ {
		for i := range inBag {
			inBag[i] = false
		}
		for i := range sample {
			sample[i] = rng.Intn(length)
			inBag[sample[i]] = true
		}

		tree := grower.Grow(sample)
		for i, seen := range inBag {
			if !seen {
				votes[i] += tree.Predict(rf.dm.Row(segment.Start + i))
				counts[i]++
			}
		}
	}

	predictions := make([]float64, length)
	for i := range predictions {
		if counts[i] == 0 {
			predictions[i] = 0.5
		} else {
			predictions[i] = votes[i] / float64(counts[i])
		}
	}
	return predictions, nil
}
