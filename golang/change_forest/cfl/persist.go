package cfl

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

//Encode writes the tree as indented JSON.
func (bsr *BinarySegmentationResult) Encode(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(bsr)
}

//Save writes the tree into filename as JSON.
func (bsr *BinarySegmentationResult) Save(filename string) (err error) {
	dest, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("cfl: can't open file %s to write: %w", filename, err)
	}
	defer func() {
		if closeErr := dest.Close(); err == nil {
			err = closeErr
		}
	}()
	return bsr.Encode(dest)
}

//DecodeResult reads a tree written by Encode and checks its links.
func DecodeResult(r io.Reader) (*BinarySegmentationResult, error) {
	var bsr BinarySegmentationResult
	if err := json.NewDecoder(r).Decode(&bsr); err != nil {
		return nil, fmt.Errorf("cfl: decoding tree: %w", err)
	}
	if len(bsr.TreeNodes) == 0 {
		return nil, fmt.Errorf("cfl: decoded tree has no nodes")
	}
	parents := make([]int, len(bsr.TreeNodes))
	for i, node := range bsr.TreeNodes {
		if node.TreeNodeId != i {
			return nil, fmt.Errorf("cfl: node %d is stored at position %d", node.TreeNodeId, i)
		}
		if (node.LeftIndex == -1) != (node.RightIndex == -1) {
			return nil, fmt.Errorf("cfl: node %d has a single child", i)
		}
		if node.IsLeaf() {
			continue
		}
		if node.LeftIndex == node.RightIndex {
			return nil, fmt.Errorf("cfl: node %d has the same left and right child %d", i, node.LeftIndex)
		}
		for _, child := range []int{node.LeftIndex, node.RightIndex} {
			if child <= i || child >= len(bsr.TreeNodes) {
				return nil, fmt.Errorf("cfl: node %d has an invalid child %d", i, child)
			}
			parents[child]++
		}
		if node.Result.Absent() {
			return nil, fmt.Errorf("cfl: split node %d has no best split", i)
		}
	}
	for i := 1; i < len(parents); i++ {
		if parents[i] != 1 {
			return nil, fmt.Errorf("cfl: node %d has %d parents", i, parents[i])
		}
	}
	return &bsr, nil
}

//LoadResult reads a tree saved by Save.
func LoadResult(filename string) (*BinarySegmentationResult, error) {
	source, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer source.Close()
	return DecodeResult(source)
}
