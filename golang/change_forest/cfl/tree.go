package cfl

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

//SplitResult is the outcome of the search of one node. nil fields are absent: the node
//was too short, wholly forbidden or had no admissible split.
type SplitResult struct {
	BestSplit     *int     `json:"best_split,omitempty"`
	MaxGain       *float64 `json:"max_gain,omitempty"`
	PValue        *float64 `json:"p_value,omitempty"`
	IsSignificant bool     `json:"is_significant"`
}

//Absent reports whether the node was never evaluated.
func (sr SplitResult) Absent() bool {
	return sr.BestSplit == nil
}

//TreeNode is a node of the segmentation tree. The tree is stored in an array, LeftIndex
//and RightIndex are -1 when the node is a leaf, otherwise they are array indices of the
//children covering (start, best_split] and (best_split, stop].
type TreeNode struct {
	TreeNodeId int     `json:"id"`
	Segment    Segment `json:"segment"`
	// Optimized is the interval the best split was found in. It differs from Segment
	// only for wbs and sbs.
	Optimized  *Segment    `json:"optimized,omitempty"`
	Result     SplitResult `json:"result"`
	Depth      int         `json:"depth"`
	LeftIndex  int         `json:"left_index"`  // -1 if it is a leaf
	RightIndex int         `json:"right_index"` // -1 if it is a leaf
}

//IsLeaf returns whether the node was not split.
func (node TreeNode) IsLeaf() bool {
	return node.LeftIndex == -1
}

//GraphDescription returns the description of a node for rendering the tree as a graph.
func (node TreeNode) GraphDescription() string {
	var sb strings.Builder
	sb.WriteString(node.Segment.String())
	if node.Result.Absent() {
		return sb.String()
	}
	sb.WriteString(fmt.Sprintf("\nbest_split: %d", *node.Result.BestSplit))
	sb.WriteString(fmt.Sprintf("\nmax_gain: %s", formatValue(*node.Result.MaxGain)))
	sb.WriteString(fmt.Sprintf("\np_value: %s", formatValue(*node.Result.PValue)))
	return sb.String()
}

//BinarySegmentationResult is the segmentation tree of a matrix. TreeNodes[0] is the root
//covering (0, n], nodes are stored in pre-order.
type BinarySegmentationResult struct {
	Method           Method           `json:"method"`
	SegmentationType SegmentationType `json:"segmentation_type"`
	N                int              `json:"n"`
	TreeNodes        []TreeNode       `json:"tree_nodes"`
}

//Root returns the root node.
func (bsr *BinarySegmentationResult) Root() TreeNode {
	return bsr.TreeNodes[0]
}

//SplitPoints returns the best splits of all split nodes in ascending order.
func (bsr *BinarySegmentationResult) SplitPoints() []int {
	splitPoints := make([]int, 0)
	for _, node := range bsr.TreeNodes {
		if !node.IsLeaf() {
			splitPoints = append(splitPoints, *node.Result.BestSplit)
		}
	}
	sort.Ints(splitPoints)
	return splitPoints
}

//Segments returns the segments of the leaves from left to right.
func (bsr *BinarySegmentationResult) Segments() []Segment {
	splitPoints := bsr.SplitPoints()
	segments := make([]Segment, 0, len(splitPoints)+1)
	start := 0
	for _, split := range splitPoints {
		segments = append(segments, Segment{start, split})
		start = split
	}
	return append(segments, Segment{start, bsr.N})
}

//buildNode is a node while the tree grows. Children are built concurrently and the tree
//is flattened in pre-order once it is complete, so node ids do not depend on scheduling.
type buildNode struct {
	segment     Segment
	optimized   *Segment
	result      SplitResult
	depth       int
	left, right *buildNode
}

type intervalEntry struct {
	once   sync.Once
	result *OptimizerResult
	err    error
}

//treeBuilder grows the segmentation tree of one matrix.
type treeBuilder struct {
	control       *Control
	optimizer     Optimizer
	segmentation  Segmentation
	test          PermutationTest
	pool          *Pool
	minimalLength int
	forbidden     ForbiddenSet
	logger        *zap.Logger

	mu        sync.Mutex
	intervals map[Segment]*intervalEntry
}

func newTreeBuilder(control *Control, optimizer Optimizer, segmentation Segmentation, minimalLength int, forbidden ForbiddenSet) *treeBuilder {
	pool := NewPool(control.Workers)
	return &treeBuilder{
		control:       control,
		optimizer:     optimizer,
		segmentation:  segmentation,
		test:          PermutationTest{NPermutations: control.ModelSelectionNPermutations, Seed: control.Seed, pool: pool},
		pool:          pool,
		minimalLength: minimalLength,
		forbidden:     forbidden,
		logger:        control.Logger,
		intervals:     make(map[Segment]*intervalEntry),
	}
}

//optimizeInterval finds the best split of an interval once per build.
func (b *treeBuilder) optimizeInterval(interval Segment) (*OptimizerResult, error) {
	b.mu.Lock()
	entry, ok := b.intervals[interval]
	if !ok {
		entry = &intervalEntry{}
		b.intervals[interval] = entry
	}
	b.mu.Unlock()

	entry.once.Do(func() {
		entry.result, entry.err = b.optimizer.FindBestSplit(interval)
	})
	return entry.result, entry.err
}

//bestInterval returns the interval result with the largest gain. Equal gains resolve to
//the lowest split, then to the earliest interval. nil when no interval can be split.
func bestInterval(results []*OptimizerResult) *OptimizerResult {
	var best *OptimizerResult
	for _, result := range results {
		if result == nil {
			continue
		}
		if best == nil || result.MaxGain > best.MaxGain || (result.MaxGain == best.MaxGain && result.BestSplit < best.BestSplit) {
			best = result
		}
	}
	return best
}

//BuildTree recurrently builds the node of segment and its subtree.
func (b *treeBuilder) BuildTree(ctx context.Context, segment Segment, depth int) (*buildNode, error) {
	node := &buildNode{segment: segment, depth: depth}

	if segment.Len() < 2*b.minimalLength || b.forbidden.Covers(segment) {
		b.logger.Debug("segment can not be split", zap.Stringer("segment", segment))
		return node, nil
	}

	intervals := b.segmentation.Intervals(segment)
	results := make([]*OptimizerResult, len(intervals))
	err := b.pool.ForEach(ctx, len(intervals), func(_ context.Context, i int) (err error) {
		results[i], err = b.optimizeInterval(intervals[i])
		return
	})
	if err != nil {
		return nil, err
	}

	best := bestInterval(results)
	if best == nil {
		b.logger.Debug("no admissible split", zap.Stringer("segment", segment))
		return node, nil
	}

	sampler, err := b.optimizer.Gain().NullSampler(best.NullResults, best.Candidates)
	if err != nil {
		return nil, err
	}
	pValue, err := b.test.PValue(ctx, best.Segment, sampler, best.MaxGain)
	if err != nil {
		return nil, err
	}

	bestSplit, maxGain := best.BestSplit, best.MaxGain
	optimized := best.Segment
	node.optimized = &optimized
	node.result = SplitResult{
		BestSplit:     &bestSplit,
		MaxGain:       &maxGain,
		PValue:        &pValue,
		IsSignificant: pValue <= b.control.ModelSelectionAlpha,
	}
	if b.control.MinimalGainToSplit != nil && maxGain < *b.control.MinimalGainToSplit {
		node.result.IsSignificant = false
	}

	split := node.result.IsSignificant && (b.control.MaxDepth == 0 || depth < b.control.MaxDepth)
	b.logger.Debug("node evaluated",
		zap.Stringer("segment", segment),
		zap.Stringer("optimized", optimized),
		zap.Int("best_split", bestSplit),
		zap.Float64("max_gain", maxGain),
		zap.Float64("p_value", pValue),
		zap.Bool("split", split),
	)
	if !split {
		return node, nil
	}

	children := make([]*buildNode, 2)
	left, right := segment.Split(bestSplit)
	err = b.pool.ForEach(ctx, 2, func(ctx context.Context, i int) (err error) {
		child := left
		if i == 1 {
			child = right
		}
		children[i], err = b.BuildTree(ctx, child, depth+1)
		return
	})
	if err != nil {
		return nil, err
	}
	node.left, node.right = children[0], children[1]
	return node, nil
}

//flatten appends node and its subtree to treeNodes in pre-order and returns the node id.
func flatten(treeNodes []TreeNode, node *buildNode) ([]TreeNode, int) {
	nodeId := len(treeNodes)
	treeNodes = append(treeNodes, TreeNode{
		TreeNodeId: nodeId,
		Segment:    node.segment,
		Optimized:  node.optimized,
		Result:     node.result,
		Depth:      node.depth,
		LeftIndex:  -1,
		RightIndex: -1,
	})
	if node.left == nil {
		return treeNodes, nodeId
	}
	var leftIndex, rightIndex int
	treeNodes, leftIndex = flatten(treeNodes, node.left)
	treeNodes, rightIndex = flatten(treeNodes, node.right)
	treeNodes[nodeId].LeftIndex = leftIndex
	treeNodes[nodeId].RightIndex = rightIndex
	return treeNodes, nodeId
}
