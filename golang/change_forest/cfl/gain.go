package cfl

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

//Method names a gain method.
type Method string

const (
	MethodKNN          Method = "knn"
	MethodChangeInMean Method = "change_in_mean"
	MethodRandomForest Method = "random_forest"
)

//ParseMethod converts a method name into a Method.
func ParseMethod(name string) (Method, error) {
	switch Method(name) {
	case MethodKNN, MethodChangeInMean, MethodRandomForest:
		return Method(name), nil
	}
	return "", fmt.Errorf("cfl: %w %q, expected knn, change_in_mean or random_forest", ErrUnknownMethod, name)
}

//GainResult is the gain of every split of a segment. Gain[i] belongs to the split
//Segment.Start+i, so Gain has Segment.Len()+1 entries including both borders.
type GainResult struct {
	Segment Segment
	// Guess is the split the classifier was fitted at, -1 for guess free methods.
	Guess int
	Gain  []float64
	// Likelihoods is the 2 x L matrix of per row log likelihood ratios of classifier gains:
	// row 0 for "before the split", row 1 for "after the split". nil for change_in_mean.
	Likelihoods *mat.Dense
	// Predictions are the clipped classifier probabilities of "after the guess".
	Predictions []float64
}

//At returns the gain of splitting at split.
func (gr *GainResult) At(split int) float64 {
	return gr.Gain[split-gr.Segment.Start]
}

//Best returns the candidate with the largest gain. Among equal gains the lowest split wins.
//ok is false when there are no candidates.
func (gr *GainResult) Best(candidates []int) (bestSplit int, maxGain float64, ok bool) {
	maxGain = math.Inf(-1)
	for _, split := range candidates {
		if g := gr.At(split); !ok || g > maxGain {
			bestSplit, maxGain, ok = split, g, true
		}
	}
	return
}

//NullSampler draws the maximal gain of a segment under the no-change null hypothesis.
//Implementations must be safe for concurrent Draw calls with distinct generators.
type NullSampler interface {
	Draw(rng *rand.Rand) float64
}

//Gain is a method scoring candidate splits of a segment. Implementations are stateless
//apart from caches keyed by segment, and safe for concurrent use.
type Gain interface {
	Method() Method
	// MinimalRows is the smallest segment length the method can score.
	MinimalRows(segment Segment) int
	// Evaluate returns the gain of every split of segment, the classifier being fitted
	// with the split at guess.
	Evaluate(segment Segment, guess int) (*GainResult, error)
	// NullSampler prepares permutation draws for the results of one optimization.
	NullSampler(results []*GainResult, candidates []int) (NullSampler, error)
}

//NewGain creates the gain method of the given name over dm.
func NewGain(method Method, dm *DMatrix, control *Control) (Gain, error) {
	switch method {
	case MethodChangeInMean:
		return NewChangeInMean(dm), nil
	case MethodKNN:
		return NewClassifierGain(NewKNN(dm, control.KNNNeighbours), control.PredictionClip), nil
	case MethodRandomForest:
		return NewClassifierGain(NewRandomForest(dm, control.RandomForestParameters, control.Seed), control.PredictionClip), nil
	}
	return nil, fmt.Errorf("cfl: %w %q", ErrUnknownMethod, method)
}

//GainAt evaluates a single split of segment.
func GainAt(gain Gain, segment Segment, split int) (float64, error) {
	result, err := gain.Evaluate(segment, split)
	if err != nil {
		return 0, err
	}
	return result.At(split), nil
}
