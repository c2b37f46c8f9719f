package cfl

import (
	"fmt"
	"math"
	"math/rand"
)

//SegmentationType names a search strategy.
type SegmentationType string

const (
	SegmentationBS  SegmentationType = "bs"
	SegmentationWBS SegmentationType = "wbs"
	SegmentationSBS SegmentationType = "sbs"
)

//ParseSegmentationType converts a segmentation type name into a SegmentationType.
func ParseSegmentationType(name string) (SegmentationType, error) {
	switch SegmentationType(name) {
	case SegmentationBS, SegmentationWBS, SegmentationSBS:
		return SegmentationType(name), nil
	}
	return "", fmt.Errorf("cfl: %w %q, expected bs, wbs or sbs", ErrUnknownSegmentationType, name)
}

//Segmentation chooses the intervals searched for the best split of a segment.
type Segmentation interface {
	Type() SegmentationType
	// Intervals returns segment itself followed by the other intervals lying within it.
	Intervals(segment Segment) []Segment
}

//NewSegmentation creates the search strategy for a matrix of n rows. Intervals shorter
//than twice the minimal segment length can not be split and are never produced.
func NewSegmentation(segmentationType SegmentationType, n, minimalLength int, control *Control) (Segmentation, error) {
	switch segmentationType {
	case SegmentationBS:
		return BinarySegmentation{}, nil
	case SegmentationWBS:
		return NewWildSegmentation(n, minimalLength, control.NumberOfWildSegments, control.Seed), nil
	case SegmentationSBS:
		return NewSeededSegmentation(n, minimalLength, control.SeededSegmentsAlpha), nil
	}
	return nil, fmt.Errorf("cfl: %w %q", ErrUnknownSegmentationType, segmentationType)
}

//BinarySegmentation searches every split of the segment.
type BinarySegmentation struct{}

func (BinarySegmentation) Type() SegmentationType {
	return SegmentationBS
}

func (BinarySegmentation) Intervals(segment Segment) []Segment {
	return []Segment{segment}
}

//intervalSegmentation keeps a fixed set of intervals drawn once for the whole matrix.
type intervalSegmentation struct {
	segmentationType SegmentationType
	intervals        []Segment
}

func (is *intervalSegmentation) Type() SegmentationType {
	return is.segmentationType
}

func (is *intervalSegmentation) Intervals(segment Segment) []Segment {
	intervals := []Segment{segment}
	for _, interval := range is.intervals {
		if interval != segment && segment.ContainsSegment(interval) {
			intervals = append(intervals, interval)
		}
	}
	return intervals
}

//Drawn returns all intervals of the strategy.
func (is *intervalSegmentation) Drawn() []Segment {
	return is.intervals
}

func appendUnique(intervals []Segment, seen map[Segment]bool, interval Segment) []Segment {
	if seen[interval] {
		return intervals
	}
	seen[interval] = true
	return append(intervals, interval)
}

//NewWildSegmentation draws numberOfWildSegments random intervals of (0, n] with both
//endpoints uniform on [0, n] and at least 2*minimalLength rows.
func NewWildSegmentation(n, minimalLength, numberOfWildSegments int, seed int64) *intervalSegmentation {
	is := &intervalSegmentation{segmentationType: SegmentationWBS}
	if n < 2*minimalLength {
		return is
	}

	rng := rand.New(rand.NewSource(seed))
	seen := make(map[Segment]bool)
	for drawn := 0; drawn < numberOfWildSegments; {
		a, b := rng.Intn(n+1), rng.Intn(n+1)
		if a > b {
			a, b = b, a
		}
		if b-a < 2*minimalLength {
			continue
		}
		drawn++
		is.intervals = appendUnique(is.intervals, seen, Segment{a, b})
	}
	return is
}

//NewSeededSegmentation creates the deterministic seeded intervals of (0, n]. Layer k has
//2*ceil((1/alpha)^(k-1)) - 1 evenly shifted intervals of length n*alpha^(k-1). Layers stop
//once the length drops below 2*minimalLength.
func NewSeededSegmentation(n, minimalLength int, alpha float64) *intervalSegmentation {
	is := &intervalSegmentation{segmentationType: SegmentationSBS}
	seen := make(map[Segment]bool)
	for k := 0; ; k++ {
		length := float64(n) * math.Pow(alpha, float64(k))
		if length < float64(2*minimalLength) {
			break
		}
		count := 2*int(math.Ceil(math.Pow(1/alpha, float64(k))-1e-9)) - 1
		shift := 0.
		if count > 1 {
			shift = (float64(n) - length) / float64(count-1)
		}
		for i := 0; i < count; i++ {
			start := int(math.Floor(float64(i)*shift + 1e-9))
			stop := int(math.Ceil(float64(i)*shift + length - 1e-9))
			if stop > n {
				stop = n
			}
			is.intervals = appendUnique(is.intervals, seen, Segment{start, stop})
		}
	}
	return is
}
