package cfl

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
	"gorgonia.org/tensor"
)

//Classifier predicts for every row of a segment the probability that the row lies
//after guess. Predictions are fitted without looking at the row itself.
type Classifier interface {
	Method() Method
	MinimalRows(segment Segment) int
	Predict(segment Segment, guess int) ([]float64, error)
}

//ClassifierGain turns the predictions of a classifier into a log likelihood ratio gain.
type ClassifierGain struct {
	classifier Classifier
	clip       float64
}

//NewClassifierGain wraps classifier. Predictions are clipped to [clip, 1-clip].
func NewClassifierGain(classifier Classifier, clip float64) *ClassifierGain {
	return &ClassifierGain{classifier: classifier, clip: clip}
}

func (cg *ClassifierGain) Method() Method {
	return cg.classifier.Method()
}

func (cg *ClassifierGain) MinimalRows(segment Segment) int {
	return cg.classifier.MinimalRows(segment)
}

//Evaluate fits the classifier with the split at guess and returns the gain of every split.
func (cg *ClassifierGain) Evaluate(segment Segment, guess int) (*GainResult, error) {
	if guess <= segment.Start || guess >= segment.Stop {
		return nil, fmt.Errorf("cfl: guess %d outside of the segment %v", guess, segment)
	}
	predictions, err := cg.classifier.Predict(segment, guess)
	if err != nil {
		return nil, err
	}
	likelihoods := cg.likelihoods(predictions, segment, guess)
	return &GainResult{
		Segment:     segment,
		Guess:       guess,
		Gain:        gainFromLikelihoods(likelihoods),
		Likelihoods: likelihoods,
		Predictions: predictions,
	}, nil
}

//likelihoods returns the 2 x L matrix of log((1-p)/pi0) and log(p/pi1), pi0 being the
//share of rows before guess.
func (cg *ClassifierGain) likelihoods(predictions []float64, segment Segment, guess int) *mat.Dense {
	length := segment.Len()
	pi0 := float64(guess-segment.Start) / float64(length)
	pi1 := 1 - pi0

	likelihoods := mat.NewDense(2, length, nil)
	for i, p := range predictions {
		p = math.Min(math.Max(p, cg.clip), 1-cg.clip)
		likelihoods.Set(0, i, math.Log((1-p)/pi0))
		likelihoods.Set(1, i, math.Log(p/pi1))
	}
	return likelihoods
}

//gainFromLikelihoods returns G(s) = sum of l0 over the rows left of s plus the sum of
//l1 over the rows right of s, for s = start, ..., stop.
func gainFromLikelihoods(likelihoods *mat.Dense) []float64 {
	_, length := likelihoods.Dims()
	gain := make([]float64, length+1)
	for i := 0; i < length; i++ {
		gain[0] += likelihoods.At(1, i)
	}
	for i := 1; i <= length; i++ {
		gain[i] = gain[i-1] + likelihoods.At(0, i-1) - likelihoods.At(1, i-1)
	}
	return gain
}

//NullSampler stacks the likelihoods of all results into a (results, 2, L) cube. A draw
//shuffles the order of the rows and takes the largest cumulative gain at any candidate.
//The classifier is not refitted.
func (cg *ClassifierGain) NullSampler(results []*GainResult, candidates []int) (NullSampler, error) {
	segment := results[0].Segment
	length := segment.Len()

	cube := tensor.New(tensor.WithShape(len(results), 2, length), tensor.Of(tensor.Float64))
	for r, result := range results {
		if result.Likelihoods == nil || result.Segment != segment {
			return nil, fmt.Errorf("cfl: gain result %d of %v has no likelihoods for %v", r, result.Segment, segment)
		}
		for k := 0; k < 2; k++ {
			for i := 0; i < length; i++ {
				if err := cube.SetAt(result.Likelihoods.At(k, i), r, k, i); err != nil {
					return nil, err
				}
			}
		}
	}

	isCandidate := make([]bool, length+1)
	for _, split := range candidates {
		isCandidate[split-segment.Start] = true
	}
	return &likelihoodNull{cube: cube, isCandidate: isCandidate}, nil
}

type likelihoodNull struct {
	cube        *tensor.Dense
	isCandidate []bool
}

func (nl *likelihoodNull) Draw(rng *rand.Rand) float64 {
	shape := nl.cube.Shape()
	results, length := shape[0], shape[2]
	data := nl.cube.Data().([]float64)

	values := make([]float64, results)
	for r := 0; r < results; r++ {
		base := r * 2 * length
		for i := 0; i < length; i++ {
			values[r] += data[base+length+i]
		}
	}

	maxGain := math.Inf(-1)
	for step, i := range rng.Perm(length) {
		for r := 0; r < results; r++ {
			base := r * 2 * length
			values[r] += data[base+i] - data[base+length+i]
			if nl.isCandidate[step+1] && values[r] > maxGain {
				maxGain = values[r]
			}
		}
	}
	return maxGain
}
