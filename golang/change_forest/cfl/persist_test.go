package cfl

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndLoadResult(t *testing.T) {
	tree := createIrisTree()
	fileName := filepath.Join(t.TempDir(), "tree.json")
	require.NoError(t, tree.Save(fileName))

	loaded, err := LoadResult(fileName)
	require.NoError(t, err)
	assert.Equal(t, tree, loaded)
	assert.Equal(t, tree.String(), loaded.String())
}

func TestDecodeResultKeepsAbsentValues(t *testing.T) {
	tree := fixtureTree([]TreeNode{
		fixtureNode(0, 150, 0, 50, 95.1, 0.005),
		fixtureNode(0, 50, 1),
		fixtureNode(50, 150, 1, 100, 52.799, 0.3),
	}, map[int][2]int{0: {1, 2}})

	var sb strings.Builder
	require.NoError(t, tree.Encode(&sb))
	assert.NotContains(t, sb.String(), "null")

	loaded, err := DecodeResult(strings.NewReader(sb.String()))
	require.NoError(t, err)
	assert.True(t, loaded.TreeNodes[1].Result.Absent())
	assert.Nil(t, loaded.TreeNodes[1].Result.PValue)
	assert.Equal(t, tree.String(), loaded.String())
}

func TestDecodeResultRejectsBrokenTrees(t *testing.T) {
	leaf := func(id int) string {
		return fmt.Sprintf(`{"id": %d, "left_index": -1, "right_index": -1}`, id)
	}
	split := func(id, left, right int) string {
		return fmt.Sprintf(`{"id": %d, "result": {"best_split": 5}, "left_index": %d, "right_index": %d}`, id, left, right)
	}
	decode := func(nodes ...string) error {
		_, err := DecodeResult(strings.NewReader(`{"tree_nodes": [` + strings.Join(nodes, ", ") + `]}`))
		return err
	}

	assert.NoError(t, decode(split(0, 1, 2), leaf(1), leaf(2)))

	assert.Error(t, decode())
	assert.ErrorContains(t, decode(split(0, 0, 0)), "same left and right child")
	assert.ErrorContains(t, decode(split(0, 1, 3), leaf(1), leaf(2)), "invalid child")
	assert.ErrorContains(t, decode(split(0, 1, -1), leaf(1)), "single child")
	assert.ErrorContains(t, decode(split(0, 1, 2), split(1, 2, 3), leaf(2), leaf(3)), "node 2 has 2 parents")
	assert.ErrorContains(t, decode(split(0, 1, 2), leaf(1), leaf(2), leaf(3)), "node 3 has 0 parents")
	assert.ErrorContains(t, decode(split(0, 1, 2), leaf(2), leaf(1)), "stored at position")
	assert.ErrorContains(t, decode(`{"id": 0, "left_index": 1, "right_index": 2}`, leaf(1), leaf(2)), "no best split")

	_, err := DecodeResult(strings.NewReader(`not json`))
	assert.Error(t, err)

	_, err = LoadResult(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestEncodeUsesSnakeCaseLinks(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, createIrisTree().Encode(&sb))
	assert.Contains(t, sb.String(), `"left_index": 1`)
	assert.Contains(t, sb.String(), `"right_index": 2`)
	assert.NotContains(t, sb.String(), "LeftIndex")
}

func TestRenderGraph(t *testing.T) {
	tree := createIrisTree()
	fileName := filepath.Join(t.TempDir(), "tree.dot")
	require.NoError(t, tree.RenderGraph(fileName, "dot"))

	content, err := os.ReadFile(fileName)
	require.NoError(t, err)
	assert.Contains(t, string(content), "best_split: 50")

	assert.Error(t, tree.RenderGraph(fileName, "bmp"))
}
