package cfl

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//fixtureNode creates a leaf. values are best split, max gain and p-value, or nothing
//for a node without a result.
func fixtureNode(start, stop, depth int, values ...float64) TreeNode {
	node := TreeNode{Segment: Segment{start, stop}, Depth: depth, LeftIndex: -1, RightIndex: -1}
	if len(values) == 3 {
		bestSplit, maxGain, pValue := int(values[0]), values[1], values[2]
		node.Result = SplitResult{BestSplit: &bestSplit, MaxGain: &maxGain, PValue: &pValue, IsSignificant: pValue <= 0.02}
	}
	return node
}

//fixtureTree links nodes given in pre-order. links maps a parent id to its children.
func fixtureTree(nodes []TreeNode, links map[int][2]int) *BinarySegmentationResult {
	for i := range nodes {
		nodes[i].TreeNodeId = i
		if children, ok := links[i]; ok {
			nodes[i].LeftIndex, nodes[i].RightIndex = children[0], children[1]
		}
	}
	return &BinarySegmentationResult{Method: MethodRandomForest, SegmentationType: SegmentationBS, N: nodes[0].Segment.Stop, TreeNodes: nodes}
}

func createIrisTree() *BinarySegmentationResult {
	return fixtureTree([]TreeNode{
		fixtureNode(0, 150, 0, 50, 96.23312, 0.005),
		fixtureNode(0, 50, 1, 2, -14.19071, 1),
		fixtureNode(50, 150, 1, 100, 52.7989, 0.005),
		fixtureNode(50, 100, 2, 53, 5.4401, 0.245),
		fixtureNode(100, 150, 2, 136, -2.3976, 0.875),
	}, map[int][2]int{0: {1, 2}, 2: {3, 4}})
}

func TestRenderTree(t *testing.T) {
	expected := "" +
		"                    best_split max_gain p_value\n" +
		"(0, 150]                    50   96.233   0.005\n" +
		" ¦--(0, 50]                  2  -14.191       1\n" +
		" °--(50, 150]              100   52.799   0.005\n" +
		"     ¦--(50, 100]           53     5.44   0.245\n" +
		"     °--(100, 150]         136   -2.398   0.875"
	assert.Equal(t, expected, createIrisTree().String())
}

func TestRenderTreeWithForbiddenLeaf(t *testing.T) {
	tree := fixtureTree([]TreeNode{
		fixtureNode(0, 150, 0, 50, 95.09996, 0.005),
		fixtureNode(0, 50, 1),
		fixtureNode(50, 150, 1, 100, 52.799, 0.005),
		fixtureNode(50, 100, 2, 53, 6.892, 0.315),
		fixtureNode(100, 150, 2, 136, -3.516, 0.68),
	}, map[int][2]int{0: {1, 2}, 2: {3, 4}})

	expected := "" +
		"                    best_split max_gain p_value\n" +
		"(0, 150]                    50     95.1   0.005\n" +
		" ¦--(0, 50]                                    \n" +
		" °--(50, 150]              100   52.799   0.005\n" +
		"     ¦--(50, 100]           53    6.892   0.315\n" +
		"     °--(100, 150]         136   -3.516    0.68"
	assert.Equal(t, expected, tree.String())
}

func TestRenderTreeWithStraddlingForbiddenSegment(t *testing.T) {
	tree := fixtureTree([]TreeNode{
		fixtureNode(0, 150, 0, 48, 79.095, 0.005),
		fixtureNode(0, 48, 1, 2, -14.604, 1),
		fixtureNode(48, 150, 1, 102, 38.877, 0.005),
		fixtureNode(48, 102, 2),
		fixtureNode(102, 150, 2, 136, 1.114, 0.36),
	}, map[int][2]int{0: {1, 2}, 2: {3, 4}})

	expected := "" +
		"                    best_split max_gain p_value\n" +
		"(0, 150]                    48   79.095   0.005\n" +
		" ¦--(0, 48]                  2  -14.604       1\n" +
		" °--(48, 150]              102   38.877   0.005\n" +
		"     ¦--(48, 102]                              \n" +
		"     °--(102, 150]         136    1.114    0.36"
	assert.Equal(t, expected, tree.String())
	assert.Equal(t, []int{48, 102}, tree.SplitPoints())
}

func TestRenderDeepTreeContinuation(t *testing.T) {
	tree := fixtureTree([]TreeNode{
		fixtureNode(0, 40, 0, 20, 9, 0.005),
		fixtureNode(0, 20, 1, 10, 8, 0.005),
		fixtureNode(0, 10, 2, 5, 1, 0.5),
		fixtureNode(10, 20, 2, 15, 1, 0.5),
		fixtureNode(20, 40, 1, 30, 1, 0.5),
	}, map[int][2]int{0: {1, 4}, 1: {2, 3}})

	expected := "" +
		"                  best_split max_gain p_value\n" +
		"(0, 40]                   20        9   0.005\n" +
		" ¦--(0, 20]               10        8   0.005\n" +
		" ¦   ¦--(0, 10]            5        1     0.5\n" +
		" ¦   °--(10, 20]          15        1     0.5\n" +
		" °--(20, 40]              30        1     0.5"
	assert.Equal(t, expected, tree.String())
}

func TestRenderWritesTrailingNewline(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, createIrisTree().Render(&buf))
	assert.Equal(t, createIrisTree().String()+"\n", buf.String())
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "1", formatValue(1))
	assert.Equal(t, "0.005", formatValue(0.005))
	assert.Equal(t, "95.1", formatValue(95.1))
	assert.Equal(t, "-2.398", formatValue(-2.39765))
	assert.Equal(t, "0", formatValue(-0.0001))
}

func TestSplitPointsAndSegments(t *testing.T) {
	tree := createIrisTree()
	assert.Equal(t, []int{50, 100}, tree.SplitPoints())
	assert.Equal(t, []Segment{{0, 50}, {50, 100}, {100, 150}}, tree.Segments())

	leaf := fixtureTree([]TreeNode{fixtureNode(0, 10, 0)}, nil)
	assert.Empty(t, leaf.SplitPoints())
	assert.Equal(t, []Segment{{0, 10}}, leaf.Segments())
}
