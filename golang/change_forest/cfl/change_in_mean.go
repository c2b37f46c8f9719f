package cfl

import (
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

//ChangeInMean scores a split by the squared difference of the means of both children,
//every column scaled by its variance pooled within the children.
type ChangeInMean struct {
	dm *DMatrix
}

//NewChangeInMean creates the change_in_mean gain over dm.
func NewChangeInMean(dm *DMatrix) *ChangeInMean {
	return &ChangeInMean{dm: dm}
}

func (cim *ChangeInMean) Method() Method {
	return MethodChangeInMean
}

func (cim *ChangeInMean) MinimalRows(Segment) int {
	return 2
}

//pooledTolerance is the share of the matrix variance below which a pooled variance is
//taken for zero.
const pooledTolerance = 1e-9

//prefix holds the column prefix sums and prefix sums of squares of a row sequence.
type prefix struct {
	sums, squares *mat.Dense
}

//squaresAroundMean returns the sum of squared deviations from the mean of column q over (start, stop].
func (pf prefix) squaresAroundMean(start, stop, q int) float64 {
	sum := pf.sums.At(stop, q) - pf.sums.At(start, q)
	return pf.squares.At(stop, q) - pf.squares.At(start, q) - sum*sum/float64(stop-start)
}

//variance returns the variance of column q pooled within (start, split] and (split, stop].
//Children without degrees of freedom or without spread fall back to the variance of the
//column over the whole matrix.
func (cim *ChangeInMean) variance(pf prefix, start, stop, split, q int) float64 {
	whole := cim.dm.ColumnVariance()[q]
	if stop-start <= 2 {
		return whole
	}
	pooled := (pf.squaresAroundMean(start, split, q) + pf.squaresAroundMean(split, stop, q)) / float64(stop-start-2)
	if pooled <= pooledTolerance*whole {
		return whole
	}
	return pooled
}

//gain is (s1*s2)/(L*n) * sum_q (meanRight_q - meanLeft_q)^2 / v_q computed from prefix
//sums, v_q the pooled variance of column q. Constant columns are skipped.
func (cim *ChangeInMean) gain(pf prefix, start, stop, split int) float64 {
	if split == start || split == stop {
		return 0
	}
	s1 := float64(split - start)
	s2 := float64(stop - split)
	s := s1 + s2

	result := 0.
	for q, v := range cim.dm.ColumnVariance() {
		if v <= 0 {
			continue
		}
		// s1*s2*(meanRight - meanLeft)
		delta := s1*pf.sums.At(stop, q) + s2*pf.sums.At(start, q) - s*pf.sums.At(split, q)
		result += delta * delta / cim.variance(pf, start, stop, split, q)
	}
	return result / (s * s1 * s2 * float64(cim.dm.Height()))
}

//Evaluate returns the gain curve of segment. The guess is ignored.
func (cim *ChangeInMean) Evaluate(segment Segment, _ int) (*GainResult, error) {
	pf := prefix{sums: cim.dm.Cumsum(), squares: cim.dm.CumsumSquares()}
	gain := make([]float64, segment.Len()+1)
	for split := segment.Start; split <= segment.Stop; split++ {
		gain[split-segment.Start] = cim.gain(pf, segment.Start, segment.Stop, split)
	}
	return &GainResult{Segment: segment, Guess: -1, Gain: gain}, nil
}

//NullSampler permutes the rows of the segment and recomputes the maximal gain over the
//same candidates.
func (cim *ChangeInMean) NullSampler(results []*GainResult, candidates []int) (NullSampler, error) {
	return &changeInMeanNull{cim: cim, segment: results[0].Segment, candidates: candidates}, nil
}

type changeInMeanNull struct {
	cim        *ChangeInMean
	segment    Segment
	candidates []int
}

func (nl *changeInMeanNull) Draw(rng *rand.Rand) float64 {
	length := nl.segment.Len()
	rows := rng.Perm(length)
	for i := range rows {
		rows[i] += nl.segment.Start
	}
	pf := prefix{
		sums:    prefixSums(nl.cim.dm.X, rows, identity),
		squares: prefixSums(nl.cim.dm.X, rows, square),
	}

	gains := make([]float64, len(nl.candidates))
	for i, split := range nl.candidates {
		gains[i] = nl.cim.gain(pf, 0, length, split-nl.segment.Start)
	}
	return floats.Max(gains)
}
