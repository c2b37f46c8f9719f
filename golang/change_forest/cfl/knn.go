package cfl

import (
	"math"
	"sort"
	"sync"

	"gonum.org/v1/gonum/spatial/kdtree"
)

//knnPoint is a standardized row of the matrix remembering its row index.
type knnPoint struct {
	row int
	x   []float64
}

func (p knnPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return p.x[d] - c.(knnPoint).x[d]
}

func (p knnPoint) Dims() int {
	return len(p.x)
}

//Distance returns the squared euclidean distance.
func (p knnPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(knnPoint)
	var dist float64
	for i, v := range p.x {
		d := v - q.x[i]
		dist += d * d
	}
	return dist
}

type knnPoints []knnPoint

func (p knnPoints) Index(i int) kdtree.Comparable { return p[i] }
func (p knnPoints) Len() int                      { return len(p) }
func (p knnPoints) Pivot(d kdtree.Dim) int        { return knnPlane{knnPoints: p, Dim: d}.Pivot() }
func (p knnPoints) Slice(start, end int) kdtree.Interface {
	return p[start:end]
}

type knnPlane struct {
	kdtree.Dim
	knnPoints
}

func (p knnPlane) Less(i, j int) bool {
	return p.knnPoints[i].x[p.Dim] < p.knnPoints[j].x[p.Dim]
}
func (p knnPlane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p knnPlane) Slice(start, end int) kdtree.SortSlicer {
	return knnPlane{Dim: p.Dim, knnPoints: p.knnPoints[start:end]}
}
func (p knnPlane) Swap(i, j int) {
	p.knnPoints[i], p.knnPoints[j] = p.knnPoints[j], p.knnPoints[i]
}

//KNN is a leave-one-out nearest neighbour classifier. The neighbours of the rows of a
//segment do not depend on the guess, so they are searched once per segment.
type KNN struct {
	dm         *DMatrix
	neighbours int // 0 means floor(sqrt(L))

	mu    sync.Mutex
	cache map[Segment]*neighboursEntry
}

type neighboursEntry struct {
	once       sync.Once
	neighbours [][]int
}

//NewKNN creates a knn classifier over the standardized rows of dm.
func NewKNN(dm *DMatrix, neighbours int) *KNN {
	return &KNN{dm: dm, neighbours: neighbours, cache: make(map[Segment]*neighboursEntry)}
}

func (knn *KNN) Method() Method {
	return MethodKNN
}

func (knn *KNN) k(segment Segment) int {
	k := knn.neighbours
	if k == 0 {
		k = int(math.Sqrt(float64(segment.Len())))
	}
	if k > segment.Len()-1 {
		k = segment.Len() - 1
	}
	if k < 1 {
		k = 1
	}
	return k
}

func (knn *KNN) MinimalRows(segment Segment) int {
	if rows := 2 * knn.k(segment); rows > 4 {
		return rows
	}
	return 4
}

//Predict returns for every row the share of its k nearest neighbours lying after guess.
func (knn *KNN) Predict(segment Segment, guess int) ([]float64, error) {
	neighbours := knn.segmentNeighbours(segment)
	predictions := make([]float64, segment.Len())
	for i, rows := range neighbours {
		after := 0
		for _, row := range rows {
			if row >= guess {
				after++
			}
		}
		predictions[i] = float64(after) / float64(len(rows))
	}
	return predictions, nil
}

func (knn *KNN) segmentNeighbours(segment Segment) [][]int {
	knn.mu.Lock()
	entry, ok := knn.cache[segment]
	if !ok {
		entry = &neighboursEntry{}
		knn.cache[segment] = entry
	}
	knn.mu.Unlock()

	entry.once.Do(func() {
		entry.neighbours = knn.searchNeighbours(segment)
	})
	return entry.neighbours
}

//radiusSlack widens the second search so that points lying exactly at the boundary
//distance are never pruned.
const radiusSlack = 1e-9

//searchNeighbours returns the row indices of the k nearest neighbours of every row of the
//segment, excluding the row itself. Among rows at equal distance the lower index is kept.
//The tree visits points in an order that depends on its random pivots, so the k+1 nearest
//points only give the boundary distance. All points within it are collected again and
//ordered by (distance, row).
func (knn *KNN) searchNeighbours(segment Segment) [][]int {
	k := knn.k(segment)
	scaled := knn.dm.ScaledRows()

	points := make(knnPoints, segment.Len())
	for i := range points {
		points[i] = knnPoint{row: segment.Start + i, x: scaled[segment.Start+i]}
	}
	queries := append(knnPoints(nil), points...)
	tree := kdtree.New(points, false)

	neighbours := make([][]int, len(queries))
	for i, query := range queries {
		nearest := kdtree.NewNKeeper(k + 1)
		tree.NearestSet(nearest, query)
		boundary := 0.
		for _, cd := range nearest.Heap {
			if cd.Comparable != nil && cd.Dist > boundary {
				boundary = cd.Dist
			}
		}

		within := kdtree.NewDistKeeper(boundary + radiusSlack*(1+boundary))
		tree.NearestSet(within, query)
		found := make([]kdtree.ComparableDist, 0, len(within.Heap))
		for _, cd := range within.Heap {
			if cd.Comparable != nil && cd.Dist <= boundary {
				found = append(found, cd)
			}
		}
		sort.Slice(found, func(a, b int) bool {
			if found[a].Dist == found[b].Dist {
				return found[a].Comparable.(knnPoint).row < found[b].Comparable.(knnPoint).row
			}
			return found[a].Dist < found[b].Dist
		})

		rows := make([]int, 0, k)
		for _, cd := range found {
			if row := cd.Comparable.(knnPoint).row; row != query.row && len(rows) < k {
				rows = append(rows, row)
			}
		}
		neighbours[i] = rows
	}
	return neighbours
}
