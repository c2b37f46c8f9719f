package cfl

import (
	"fmt"
	"sort"
)

//Segment is the half-open row interval (Start, Stop]. With 0-based rows it covers
//rows Start, ..., Stop-1, and a split s divides it into (Start, s] and (s, Stop].
type Segment struct {
	Start int `json:"start"`
	Stop  int `json:"stop"`
}

//Len returns the number of rows of the segment.
func (s Segment) Len() int {
	return s.Stop - s.Start
}

//String renders the segment the way the tree table shows it, e.g. "(0, 150]".
func (s Segment) String() string {
	return fmt.Sprintf("(%d, %d]", s.Start, s.Stop)
}

//ContainsSegment reports whether other lies within s.
func (s Segment) ContainsSegment(other Segment) bool {
	return s.Start <= other.Start && other.Stop <= s.Stop
}

//Split divides the segment at split.
func (s Segment) Split(split int) (left, right Segment) {
	return Segment{s.Start, split}, Segment{split, s.Stop}
}

//ForbiddenSet is a set of closed intervals [a, b] of split indices that must not be used.
type ForbiddenSet struct {
	intervals [][2]int
}

//NewForbiddenSet sorts the intervals by their start.
func NewForbiddenSet(intervals [][2]int) ForbiddenSet {
	sorted := append([][2]int(nil), intervals...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i][0] == sorted[j][0] {
			return sorted[i][1] < sorted[j][1]
		}
		return sorted[i][0] < sorted[j][0]
	})
	return ForbiddenSet{sorted}
}

//Empty reports whether no interval is forbidden.
func (fs ForbiddenSet) Empty() bool {
	return len(fs.intervals) == 0
}

//Contains reports whether split lies in a forbidden interval.
func (fs ForbiddenSet) Contains(split int) bool {
	for _, interval := range fs.intervals {
		if interval[0] > split {
			return false
		}
		if split <= interval[1] {
			return true
		}
	}
	return false
}

//Covers reports whether the whole segment lies inside a single forbidden interval.
func (fs ForbiddenSet) Covers(segment Segment) bool {
	for _, interval := range fs.intervals {
		if interval[0] <= segment.Start && segment.Stop <= interval[1] {
			return true
		}
	}
	return false
}
