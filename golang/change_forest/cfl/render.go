package cfl

import (
	"bufio"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

var renderHeaders = []string{"best_split", "max_gain", "p_value"}

//formatValue rounds to three decimals and drops trailing zeros: 95.1, 1, 0.005.
func formatValue(value float64) string {
	value = math.Round(value*1000) / 1000
	if value == 0 {
		value = 0 // no "-0"
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

type renderRow struct {
	name   string
	values []string
}

//renderRows collects the rows of the subtree of nodeId in pre-order. continuation holds,
//for every ancestor below the root, whether a sibling follows it.
func (bsr *BinarySegmentationResult) renderRows(rows []renderRow, nodeId int, continuation []bool, last bool) []renderRow {
	node := bsr.TreeNodes[nodeId]

	var name strings.Builder
	if node.Depth > 0 {
		name.WriteString(" ")
		for _, more := range continuation {
			if more {
				name.WriteString("¦   ")
			} else {
				name.WriteString("    ")
			}
		}
		if last {
			name.WriteString("°--")
		} else {
			name.WriteString("¦--")
		}
	}
	name.WriteString(node.Segment.String())

	values := make([]string, len(renderHeaders))
	if !node.Result.Absent() {
		values[0] = strconv.Itoa(*node.Result.BestSplit)
		values[1] = formatValue(*node.Result.MaxGain)
		values[2] = formatValue(*node.Result.PValue)
	}
	rows = append(rows, renderRow{name.String(), values})

	if node.IsLeaf() {
		return rows
	}
	if node.Depth > 0 {
		continuation = append(continuation[:len(continuation):len(continuation)], !last)
	}
	rows = bsr.renderRows(rows, node.LeftIndex, continuation, false)
	return bsr.renderRows(rows, node.RightIndex, continuation, true)
}

func padRight(s string, width int) string {
	return s + strings.Repeat(" ", width-utf8.RuneCountInString(s))
}

func padLeft(s string, width int) string {
	return strings.Repeat(" ", width-utf8.RuneCountInString(s)) + s
}

//Render writes the tree as a table, one line per node in pre-order:
//
//	                    best_split max_gain p_value
//	(0, 150]                    50   96.233   0.005
//	 ¦--(0, 50]                  2  -14.191       1
//	 °--(50, 150]              100   52.799   0.005
//
//Nodes without a result have blank columns.
func (bsr *BinarySegmentationResult) Render(w io.Writer) error {
	rows := bsr.renderRows(nil, 0, nil, true)

	nameWidth := 0
	widths := make([]int, len(renderHeaders))
	for q, header := range renderHeaders {
		widths[q] = len(header)
	}
	for _, row := range rows {
		if l := utf8.RuneCountInString(row.name); l > nameWidth {
			nameWidth = l
		}
		for q, value := range row.values {
			if len(value) > widths[q] {
				widths[q] = len(value)
			}
		}
	}
	nameWidth++

	bw := bufio.NewWriter(w)
	writeLine := func(name string, values []string) {
		bw.WriteString(padRight(name, nameWidth))
		for q, value := range values {
			bw.WriteString(" ")
			bw.WriteString(padLeft(value, widths[q]))
		}
		bw.WriteString("\n")
	}
	writeLine("", renderHeaders)
	for _, row := range rows {
		writeLine(row.name, row.values)
	}
	return bw.Flush()
}

//String returns the table of Render without the final line break.
func (bsr *BinarySegmentationResult) String() string {
	var sb strings.Builder
	_ = bsr.Render(&sb)
	return strings.TrimSuffix(sb.String(), "\n")
}
