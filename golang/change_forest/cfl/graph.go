package cfl

import (
	"fmt"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
)

//GraphFormats maps file extensions to graphviz output formats.
var GraphFormats = map[string]graphviz.Format{
	"png": graphviz.PNG,
	"svg": graphviz.SVG,
	"jpg": graphviz.JPG,
	"dot": graphviz.XDOT,
}

func (bsr *BinarySegmentationResult) recurrentDraw(g *cgraph.Graph, nodeNumber int, parentNode *cgraph.Node) error {
	node := bsr.TreeNodes[nodeNumber]
	currentNode, err := g.CreateNode(fmt.Sprint(node.TreeNodeId))
	if err != nil {
		return err
	}

	if parentNode != nil {
		if _, err := g.CreateEdge("", parentNode, currentNode); err != nil {
			return err
		}
	}

	currentNode.Set("label", node.GraphDescription())
	if node.IsLeaf() {
		currentNode.Set("shape", "box")
		return nil
	}
	if err := bsr.recurrentDraw(g, node.LeftIndex, currentNode); err != nil {
		return err
	}
	return bsr.recurrentDraw(g, node.RightIndex, currentNode)
}

//DrawGraph renders the tree as a graphviz graph, split nodes as ellipses and leaves as boxes.
//The caller closes both returned values.
func (bsr *BinarySegmentationResult) DrawGraph() (*graphviz.Graphviz, *cgraph.Graph, error) {
	graphViz := graphviz.New()
	graph, err := graphViz.Graph()
	if err != nil {
		graphViz.Close()
		return nil, nil, err
	}

	if err := bsr.recurrentDraw(graph, 0, nil); err != nil {
		graph.Close()
		graphViz.Close()
		return nil, nil, err
	}
	return graphViz, graph, nil
}

//RenderGraph draws the tree into filename in the given format ("png", "svg", "jpg", "dot").
func (bsr *BinarySegmentationResult) RenderGraph(filename, format string) error {
	graphvizFormat, ok := GraphFormats[format]
	if !ok {
		return fmt.Errorf("cfl: unknown graph format %q", format)
	}
	graphViz, graph, err := bsr.DrawGraph()
	if err != nil {
		return err
	}
	defer graphViz.Close()
	defer graph.Close()
	return graphViz.RenderFilename(graph, graphvizFormat, filename)
}
