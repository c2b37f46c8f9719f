package cfl

//OptimizerResult is the best split of one interval.
type OptimizerResult struct {
	Segment    Segment
	BestSplit  int
	MaxGain    float64
	Candidates []int
	// GainResults are all curves evaluated, in order.
	GainResults []*GainResult
	// NullResults are the curves the permutation test resamples.
	NullResults []*GainResult
}

//Optimizer finds the best split of an interval.
type Optimizer interface {
	// FindBestSplit returns nil without an error when the interval has no admissible split.
	FindBestSplit(segment Segment) (*OptimizerResult, error)
	Gain() Gain
}

//NewOptimizer returns a grid search for gains whose curve does not depend on the guess
//and a two step search for classifier gains.
func NewOptimizer(gain Gain, minimalLength int, forbidden ForbiddenSet) Optimizer {
	if gain.Method() == MethodChangeInMean {
		return &GridSearch{gain: gain, minimalLength: minimalLength, forbidden: forbidden}
	}
	return &TwoStepSearch{gain: gain, minimalLength: minimalLength, forbidden: forbidden}
}

//GridSearch evaluates the gain curve once and takes its maximum.
type GridSearch struct {
	gain          Gain
	minimalLength int
	forbidden     ForbiddenSet
}

func (gs *GridSearch) Gain() Gain {
	return gs.gain
}

func (gs *GridSearch) FindBestSplit(segment Segment) (*OptimizerResult, error) {
	candidates := SplitCandidates(segment, gs.minimalLength, gs.forbidden)
	if len(candidates) == 0 || segment.Len() < gs.gain.MinimalRows(segment) {
		return nil, nil
	}

	result, err := gs.gain.Evaluate(segment, candidates[0])
	if err != nil {
		return nil, err
	}
	bestSplit, maxGain, _ := result.Best(candidates)
	return &OptimizerResult{
		Segment:     segment,
		BestSplit:   bestSplit,
		MaxGain:     maxGain,
		Candidates:  candidates,
		GainResults: []*GainResult{result},
		NullResults: []*GainResult{result},
	}, nil
}

//TwoStepSearch fits the classifier at the candidates closest to the quartiles of the
//segment, takes the best split over these fits and fits once more at that split.
type TwoStepSearch struct {
	gain          Gain
	minimalLength int
	forbidden     ForbiddenSet
}

func (ts *TwoStepSearch) Gain() Gain {
	return ts.gain
}

//guesses returns the candidates closest to start + q*L for q = 1/4, 1/2, 3/4 without
//repetitions. Equally close candidates resolve to the lower one.
func (ts *TwoStepSearch) guesses(segment Segment) []int {
	r := NewSplitRange(segment, ts.minimalLength, ts.forbidden)
	candidates := SplitCandidates(segment, ts.minimalLength, ts.forbidden)

	var guesses []int
	for _, q := range []float64{0.25, 0.5, 0.75} {
		best := candidates[0]
		for _, split := range candidates[1:] {
			if r.DistToQuantile(split, q) < r.DistToQuantile(best, q) {
				best = split
			}
		}
		if len(guesses) == 0 || guesses[len(guesses)-1] != best {
			guesses = append(guesses, best)
		}
	}
	return guesses
}

func (ts *TwoStepSearch) FindBestSplit(segment Segment) (*OptimizerResult, error) {
	candidates := SplitCandidates(segment, ts.minimalLength, ts.forbidden)
	if len(candidates) == 0 || segment.Len() < ts.gain.MinimalRows(segment) {
		return nil, nil
	}

	var (
		firstStep []*GainResult
		bestSplit int
		maxGain   float64
		firstIter = true
	)
	for _, guess := range ts.guesses(segment) {
		result, err := ts.gain.Evaluate(segment, guess)
		if err != nil {
			return nil, err
		}
		firstStep = append(firstStep, result)
		if split, gain, _ := result.Best(candidates); firstIter || gain > maxGain || (gain == maxGain && split < bestSplit) {
			bestSplit, maxGain = split, gain
			firstIter = false
		}
	}

	final, err := ts.gain.Evaluate(segment, bestSplit)
	if err != nil {
		return nil, err
	}
	bestSplit, maxGain, _ = final.Best(candidates)

	return &OptimizerResult{
		Segment:     segment,
		BestSplit:   bestSplit,
		MaxGain:     maxGain,
		Candidates:  candidates,
		GainResults: append(firstStep, final),
		NullResults: firstStep,
	}, nil
}
