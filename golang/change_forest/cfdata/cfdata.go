//Package cfdata loads the matrices change forest runs on and stores their split points.
package cfdata

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

//ReadNpy reads the content of an npy file holding a 2-D array of numbers.
func ReadNpy(fileName string) (denseMat *mat.Dense, err error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := npyio.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("cfdata: reading npy header of %s: %w", fileName, err)
	}
	if len(r.Header.Descr.Shape) != 2 {
		return nil, fmt.Errorf("cfdata: %s holds an array of shape %v, expected 2 dimensions", fileName, r.Header.Descr.Shape)
	}

	denseMat = &mat.Dense{}
	if err := r.Read(denseMat); err != nil {
		return nil, fmt.Errorf("cfdata: reading npy data of %s: %w", fileName, err)
	}
	return denseMat, nil
}

//WriteSplitPoints writes split points as a 1-D int64 npy array.
func WriteSplitPoints(w io.Writer, splitPoints []int) error {
	values := make([]int64, len(splitPoints))
	for i, split := range splitPoints {
		values[i] = int64(split)
	}
	return npyio.Write(w, values)
}

//ReadCSV parses a CSV stream whose first row is a header. columns selects the columns
//by name, in the given order. Without columns every column whose first value is a number
//is used, which skips label columns such as "species".
func ReadCSV(reader io.Reader, columns ...string) (*mat.Dense, []string, error) {
	r := csv.NewReader(reader)
	r.TrimLeadingSpace = true
	header, err := r.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("cfdata: reading header: %w", err)
	}
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("cfdata: reading body: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("cfdata: no rows after the header")
	}

	selected, err := selectColumns(header, records[0], columns)
	if err != nil {
		return nil, nil, err
	}

	names := make([]string, len(selected))
	for q, column := range selected {
		names[q] = header[column]
	}

	data := mat.NewDense(len(records), len(selected), nil)
	for p, record := range records {
		for q, column := range selected {
			if column >= len(record) {
				return nil, nil, fmt.Errorf("cfdata: line %d has no column %q", p+2, header[column])
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(record[column]), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("cfdata: parsing line %d, column %q: %w", p+2, header[column], err)
			}
			data.Set(p, q, v)
		}
	}
	return data, names, nil
}

func selectColumns(header, firstRecord []string, columns []string) ([]int, error) {
	var selected []int
	if len(columns) == 0 {
		for q, value := range firstRecord {
			if _, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
				selected = append(selected, q)
			}
		}
		if len(selected) == 0 {
			return nil, fmt.Errorf("cfdata: no numeric columns")
		}
		return selected, nil
	}

	positions := make(map[string]int, len(header))
	for q, name := range header {
		positions[name] = q
	}
	for _, name := range columns {
		q, ok := positions[name]
		if !ok {
			return nil, fmt.Errorf("cfdata: unknown column %q", name)
		}
		selected = append(selected, q)
	}
	return selected, nil
}

//ReadCSVFile reads a CSV file with ReadCSV.
func ReadCSVFile(fileName string, columns ...string) (*mat.Dense, []string, error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return ReadCSV(f, columns...)
}

//ReadMatrix reads a .npy or .csv file depending on its extension.
func ReadMatrix(fileName string, columns ...string) (*mat.Dense, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".npy":
		return ReadNpy(fileName)
	case ".csv":
		data, _, err := ReadCSVFile(fileName, columns...)
		return data, err
	}
	return nil, fmt.Errorf("cfdata: unknown file type of %s, expected .npy or .csv", fileName)
}
