package cfl

import "math"

//IntIterable is the interface for iteration over a collection of split indices.
type IntIterable interface {
	HasNext() bool
	GetNext() int
}

//SplitRange is an iterator over the admissible splits of a segment in ascending order.
//A split s of (start, stop] is admissible when both children keep at least the minimal
//number of rows and s is not forbidden.
type SplitRange struct {
	segment   Segment
	begin     int
	end       int // exclusive
	pos       int
	forbidden ForbiddenSet
}

//NewSplitRange initializes an iterator over the admissible splits of segment.
func NewSplitRange(segment Segment, minimalLength int, forbidden ForbiddenSet) *SplitRange {
	r := &SplitRange{
		segment:   segment,
		begin:     segment.Start + minimalLength,
		end:       segment.Stop - minimalLength + 1,
		forbidden: forbidden,
	}
	r.pos = r.begin
	r.skipForbidden()
	return r
}

func (r *SplitRange) skipForbidden() {
	for r.pos < r.end && r.forbidden.Contains(r.pos) {
		r.pos++
	}
}

//GetNext returns the next split and moves the iterator to the next admissible position.
func (r *SplitRange) GetNext() int {
	val := r.pos
	r.pos++
	r.skipForbidden()
	return val
}

//HasNext checks whether there are more splits in the iterator.
func (r *SplitRange) HasNext() bool {
	return r.pos < r.end
}

//DistToQuantile calculates the distance from a split to the point start + q*(stop-start).
func (r *SplitRange) DistToQuantile(point int, q float64) float64 {
	return math.Abs(float64(point) - (float64(r.segment.Start) + q*float64(r.segment.Len())))
}

//Collect drains an iterator into a slice.
func Collect(it IntIterable) []int {
	var values []int
	for it.HasNext() {
		values = append(values, it.GetNext())
	}
	return values
}

//SplitCandidates returns the admissible splits of segment in ascending order.
func SplitCandidates(segment Segment, minimalLength int, forbidden ForbiddenSet) []int {
	return Collect(NewSplitRange(segment, minimalLength, forbidden))
}
