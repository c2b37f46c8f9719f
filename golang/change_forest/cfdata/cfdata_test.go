package cfdata

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sbinet/npyio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

func TestReadCSVSkipsLabelColumns(t *testing.T) {
	data, names, err := ReadCSV(strings.NewReader("a,label,b\n1,x,2\n3,y,4.5\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)
	assert.True(t, mat.Equal(mat.NewDense(2, 2, []float64{1, 2, 3, 4.5}), data))
}

func TestReadCSVSelectsColumnsByName(t *testing.T) {
	data, names, err := ReadCSV(strings.NewReader("a,b,c\n1,2,3\n4,5,6\n"), "c", "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, names)
	assert.True(t, mat.Equal(mat.NewDense(2, 2, []float64{3, 1, 6, 4}), data))

	_, _, err = ReadCSV(strings.NewReader("a,b\n1,2\n"), "z")
	assert.ErrorContains(t, err, `unknown column "z"`)
}

func TestReadCSVReportsLine(t *testing.T) {
	_, _, err := ReadCSV(strings.NewReader("a,b\n1,2\n3,oops\n"), "a", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3")

	_, _, err = ReadCSV(strings.NewReader("a,b\n"))
	assert.Error(t, err)
}

func TestReadIris(t *testing.T) {
	data, names, err := ReadCSVFile(filepath.Join("..", "testdata", "iris.csv"))
	require.NoError(t, err)
	assert.Equal(t, []string{"sepal_length", "sepal_width", "petal_length", "petal_width"}, names)

	h, w := data.Dims()
	require.Equal(t, 150, h)
	require.Equal(t, 4, w)

	expectedMeans := []float64{5.8433, 3.0573, 3.758, 1.1993}
	for q, expected := range expectedMeans {
		assert.InDelta(t, expected, stat.Mean(mat.Col(nil, q, data), nil), 1e-3, "column %d", q)
	}
}

func TestReadNpy(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "x.npy")
	expected := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})

	f, err := os.Create(fileName)
	require.NoError(t, err)
	require.NoError(t, npyio.Write(f, expected))
	require.NoError(t, f.Close())

	data, err := ReadMatrix(fileName)
	require.NoError(t, err)
	assert.True(t, mat.Equal(expected, data))
}

func TestReadMatrixUnknownExtension(t *testing.T) {
	_, err := ReadMatrix("x.parquet")
	assert.ErrorContains(t, err, "unknown file type")
}

func TestWriteSplitPoints(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSplitPoints(&buf, []int{50, 100}))

	var splitPoints []int64
	require.NoError(t, npyio.Read(&buf, &splitPoints))
	assert.Equal(t, []int64{50, 100}, splitPoints)
}
