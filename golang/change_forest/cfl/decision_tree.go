package cfl

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
)

//ClassificationNode is a node of a classification tree. The tree is stored in an array,
//LeftIndex and RightIndex are -1 for leaves.
type ClassificationNode struct {
	ClassificationNodeId  int
	FeatureNumber         int
	Threshold             float64
	LeftIndex, RightIndex int // -1, -1 if it is a leaf
	NumberOfObjects       int
	Probability           float64 // share of the positive class among the objects of the node
}

//GraphDescription returns the description of a node for debugging output.
func (node ClassificationNode) GraphDescription() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintln("#", node.NumberOfObjects))
	sb.WriteString(fmt.Sprintln("p: ", node.Probability))
	if !node.IsLeaf() {
		sb.WriteString(fmt.Sprintf("f_%d < %6.5f", node.FeatureNumber, node.Threshold))
	}
	return sb.String()
}

//IsLeaf returns whether the node has no children.
func (node ClassificationNode) IsLeaf() bool {
	return node.LeftIndex == -1
}

//ClassificationTree is a CART tree with gini impurity predicting the probability of
//the positive class.
type ClassificationTree struct {
	Nodes []ClassificationNode
}

//Predict returns the positive class probability of the leaf x falls into.
func (tree ClassificationTree) Predict(x []float64) float64 {
	ind := 0
	for !tree.Nodes[ind].IsLeaf() {
		node := tree.Nodes[ind]
		if x[node.FeatureNumber] < node.Threshold {
			ind = node.LeftIndex
		} else {
			ind = node.RightIndex
		}
	}
	return tree.Nodes[ind].Probability
}

//treeGrower grows one classification tree. It is not safe for concurrent use.
type treeGrower struct {
	rows        func(p int) []float64
	labels      func(p int) bool
	width       int
	maxDepth    int
	maxFeatures int
	minLeaf     int
	rng         *rand.Rand

	features []int
	values   []float64
}

func newTreeGrower(rows func(int) []float64, labels func(int) bool, width int, params RandomForestParameters, rng *rand.Rand) *treeGrower {
	g := &treeGrower{
		rows:        rows,
		labels:      labels,
		width:       width,
		maxDepth:    params.MaxDepth,
		maxFeatures: params.MaxFeatures,
		minLeaf:     params.MinSamplesLeaf,
		rng:         rng,
		features:    make([]int, width),
	}
	if g.maxFeatures == 0 || g.maxFeatures > width {
		g.maxFeatures = defaultMaxFeatures(width)
	}
	for q := range g.features {
		g.features[q] = q
	}
	return g
}

//Grow builds a tree on the objects inx. Objects may repeat, as in a bootstrap sample.
func (g *treeGrower) Grow(inx []int) ClassificationTree {
	tree := ClassificationTree{Nodes: make([]ClassificationNode, 0)}
	g.values = make([]float64, len(inx))
	g.grow(&tree, append([]int(nil), inx...), 0)
	return tree
}

func (g *treeGrower) grow(tree *ClassificationTree, inx []int, depth int) int {
	positive := 0
	for _, p := range inx {
		if g.labels(p) {
			positive++
		}
	}
	nodeId := len(tree.Nodes)
	tree.Nodes = append(tree.Nodes, ClassificationNode{
		ClassificationNodeId: nodeId,
		LeftIndex:            -1,
		RightIndex:           -1,
		NumberOfObjects:      len(inx),
		Probability:          float64(positive) / float64(len(inx)),
	})

	if depth >= g.maxDepth || positive == 0 || positive == len(inx) || len(inx) < 2*g.minLeaf {
		return nodeId
	}

	split := g.bestSplit(inx, positive)
	if !split.validSplit {
		return nodeId
	}

	i, j := 0, len(inx)
	for i < j {
		if g.rows(inx[i])[split.feature] < split.threshold {
			i++
		} else {
			j--
			inx[i], inx[j] = inx[j], inx[i]
		}
	}

	leftIndex := g.grow(tree, inx[:i], depth+1)
	rightIndex := g.grow(tree, inx[i:], depth+1)

	tree.Nodes[nodeId].FeatureNumber = split.feature
	tree.Nodes[nodeId].Threshold = split.threshold
	tree.Nodes[nodeId].LeftIndex = leftIndex
	tree.Nodes[nodeId].RightIndex = rightIndex
	return nodeId
}

type giniSplit struct {
	validSplit bool
	feature    int
	threshold  float64
	impurity   float64 // weighted gini impurity of both children
}

//bestSplit scans maxFeatures random columns for the threshold with the lowest weighted
//gini impurity of the children. Equal impurities keep the first split found.
func (g *treeGrower) bestSplit(inx []int, positive int) (best giniSplit) {
	n := len(inx)
	best.impurity = gini(positive, n)

	for visited := 0; visited < g.maxFeatures; visited++ {
		k := visited + g.rng.Intn(g.width-visited)
		g.features[visited], g.features[k] = g.features[k], g.features[visited]
		feature := g.features[visited]

		sorted := append([]int(nil), inx...)
		sort.Slice(sorted, func(a, b int) bool {
			return g.rows(sorted[a])[feature] < g.rows(sorted[b])[feature]
		})
		values := g.values[:n]
		for i, p := range sorted {
			values[i] = g.rows(p)[feature]
		}
		if values[n-1] <= values[0] {
			continue
		}

		leftPositive := 0
		for i := 1; i < n; i++ {
			if g.labels(sorted[i-1]) {
				leftPositive++
			}
			if values[i] <= values[i-1] || i < g.minLeaf || n-i < g.minLeaf {
				continue
			}
			impurity := (float64(i)*gini(leftPositive, i) + float64(n-i)*gini(positive-leftPositive, n-i)) / float64(n)
			if impurity < best.impurity-1e-12 {
				best = giniSplit{
					validSplit: true,
					feature:    feature,
					threshold:  (values[i-1] + values[i]) / 2,
					impurity:   impurity,
				}
			}
		}
	}
	return
}

func gini(positive, n int) float64 {
	p := float64(positive) / float64(n)
	return 2 * p * (1 - p)
}
