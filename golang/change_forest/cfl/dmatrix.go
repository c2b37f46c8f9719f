package cfl

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

//DMatrix is the read-only data matrix of a change forest run. Rows are time-ordered
//observations, columns are features. It is shared by all nodes and workers of a build,
//the lazily computed caches are guarded by sync.Once.
type DMatrix struct {
	X *mat.Dense

	cumsumOnce sync.Once
	cumsum     *mat.Dense // (n+1) x d, row i is the sum of rows [0, i)

	squaresOnce sync.Once
	squares     *mat.Dense // (n+1) x d, row i is the sum of squared rows [0, i)

	varianceOnce sync.Once
	variance     []float64

	scaledOnce sync.Once
	scaled     [][]float64 // rows divided by the column standard deviation
}

//NewDMatrix checks the dimensions and the values of X and wraps it.
//X is not copied and must not be modified while a build is running.
func NewDMatrix(X *mat.Dense) (*DMatrix, error) {
	if X == nil || X.IsEmpty() {
		return nil, fmt.Errorf("cfl: %w: empty data", ErrInvalidMatrix)
	}
	h, w := X.Dims()
	for p := 0; p < h; p++ {
		for q := 0; q < w; q++ {
			if v := X.At(p, q); math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("cfl: %w: non finite value %v at row %d, column %d", ErrInvalidMatrix, v, p, q)
			}
		}
	}
	return &DMatrix{X: X}, nil
}

func identity(v float64) float64 { return v }

func square(v float64) float64 { return v * v }

//Height returns the number of observations.
func (dm *DMatrix) Height() int {
	h, _ := dm.X.Dims()
	return h
}

//Width returns the number of features.
func (dm *DMatrix) Width() int {
	_, w := dm.X.Dims()
	return w
}

//Cumsum returns the (n+1) x d matrix of column prefix sums.
func (dm *DMatrix) Cumsum() *mat.Dense {
	dm.cumsumOnce.Do(func() {
		dm.cumsum = prefixSums(dm.X, nil, identity)
	})
	return dm.cumsum
}

//CumsumSquares returns the (n+1) x d matrix of column prefix sums of squares.
func (dm *DMatrix) CumsumSquares() *mat.Dense {
	dm.squaresOnce.Do(func() {
		dm.squares = prefixSums(dm.X, nil, square)
	})
	return dm.squares
}

//prefixSums returns the (len(rows)+1) x d prefix sums of f applied to the rows of X
//in the given order. nil rows means the natural order.
func prefixSums(X *mat.Dense, rows []int, f func(float64) float64) *mat.Dense {
	h, w := X.Dims()
	if rows != nil {
		h = len(rows)
	}
	sums := mat.NewDense(h+1, w, nil)
	for i := 0; i < h; i++ {
		p := i
		if rows != nil {
			p = rows[i]
		}
		for q := 0; q < w; q++ {
			sums.Set(i+1, q, sums.At(i, q)+f(X.At(p, q)))
		}
	}
	return sums
}

//ColumnVariance returns the variance of every column over all rows.
func (dm *DMatrix) ColumnVariance() []float64 {
	dm.varianceOnce.Do(func() {
		h, w := dm.X.Dims()
		dm.variance = make([]float64, w)
		if h < 2 {
			return
		}
		column := make([]float64, h)
		for q := 0; q < w; q++ {
			mat.Col(column, q, dm.X)
			dm.variance[q] = stat.Variance(column, nil)
		}
	})
	return dm.variance
}

//ScaledRows returns the rows with every column divided by its standard deviation.
//Constant columns are left as they are.
func (dm *DMatrix) ScaledRows() [][]float64 {
	dm.scaledOnce.Do(func() {
		h, w := dm.X.Dims()
		variance := dm.ColumnVariance()
		dm.scaled = make([][]float64, h)
		for p := 0; p < h; p++ {
			row := make([]float64, w)
			for q := 0; q < w; q++ {
				row[q] = dm.X.At(p, q)
				if variance[q] > 0 {
					row[q] /= math.Sqrt(variance[q])
				}
			}
			dm.scaled[p] = row
		}
	})
	return dm.scaled
}

//Row returns a view of row p.
func (dm *DMatrix) Row(p int) []float64 {
	return dm.X.RawRowView(p)
}
