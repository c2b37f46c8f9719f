// SPDX-License-Identifier: Apache-2.0

package main

/*
#cgo CFLAGS: -I.
#include <stdlib.h>
*/
import "C"

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"unsafe"

	"gonum.org/v1/gonum/mat"

	"github.com/tarstars/change_forest/golang/change_forest/cfl"
)

var (
	handleMu   sync.Mutex
	nextHandle uint64 = 1
	results           = make(map[uint64]*cfl.BinarySegmentationResult)

	lastErrorMu sync.Mutex
	lastError   string
)

func setLastError(err error) {
	lastErrorMu.Lock()
	defer lastErrorMu.Unlock()
	if err != nil {
		lastError = err.Error()
	} else {
		lastError = ""
	}
}

func getLastError() string {
	lastErrorMu.Lock()
	defer lastErrorMu.Unlock()
	return lastError
}

func storeResult(result *cfl.BinarySegmentationResult) uint64 {
	handleMu.Lock()
	defer handleMu.Unlock()
	handle := nextHandle
	results[handle] = result
	nextHandle++
	return handle
}

func fetchResult(handle uint64) (*cfl.BinarySegmentationResult, error) {
	handleMu.Lock()
	defer handleMu.Unlock()
	result, ok := results[handle]
	if !ok {
		return nil, errors.New("invalid result handle")
	}
	return result, nil
}

//export FreeResult
func FreeResult(handle C.ulonglong) {
	handleMu.Lock()
	defer handleMu.Unlock()
	delete(results, uint64(handle))
}

func buildDense(ptr *C.double, rows, cols C.int) (*mat.Dense, error) {
	r := int(rows)
	c := int(cols)
	if r <= 0 || c <= 0 {
		return nil, errors.New("invalid matrix dimensions")
	}
	if ptr == nil {
		return nil, errors.New("null pointer for non-empty matrix")
	}
	src := unsafe.Slice((*float64)(unsafe.Pointer(ptr)), r*c)
	data := make([]float64, r*c)
	copy(data, src)
	return mat.NewDense(r, c, data), nil
}

//decodeControl reads a json object over the default control. An empty string keeps the
//defaults.
func decodeControl(controlJSON string) (*cfl.Control, error) {
	control := cfl.DefaultControl()
	if strings.TrimSpace(controlJSON) == "" {
		return control, nil
	}
	decoder := json.NewDecoder(strings.NewReader(controlJSON))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(control); err != nil {
		return nil, err
	}
	return control, nil
}

//export ChangeForest
func ChangeForest(
	dataPtr *C.double,
	rows C.int,
	cols C.int,
	method *C.char,
	segmentationType *C.char,
	controlJSON *C.char,
) C.ulonglong {
	setLastError(nil)

	X, err := buildDense(dataPtr, rows, cols)
	if err != nil {
		setLastError(err)
		return 0
	}

	var goControl string
	if controlJSON != nil {
		goControl = C.GoString(controlJSON)
	}
	control, err := decodeControl(goControl)
	if err != nil {
		setLastError(err)
		return 0
	}

	result, err := cfl.ChangeForest(X, C.GoString(method), C.GoString(segmentationType), control)
	if err != nil {
		setLastError(err)
		return 0
	}
	return C.ulonglong(storeResult(result))
}

//export SplitPointsCount
func SplitPointsCount(handle C.ulonglong) C.int {
	setLastError(nil)
	result, err := fetchResult(uint64(handle))
	if err != nil {
		setLastError(err)
		return -1
	}
	return C.int(len(result.SplitPoints()))
}

//export SplitPoints
func SplitPoints(handle C.ulonglong, outputPtr *C.longlong, capacity C.int) C.int {
	setLastError(nil)
	result, err := fetchResult(uint64(handle))
	if err != nil {
		setLastError(err)
		return 1
	}
	splitPoints := result.SplitPoints()
	if int(capacity) < len(splitPoints) {
		setLastError(errors.New("output buffer is too small"))
		return 2
	}
	if len(splitPoints) == 0 {
		return 0
	}
	if outputPtr == nil {
		setLastError(errors.New("null pointer for output buffer"))
		return 3
	}
	out := unsafe.Slice((*int64)(unsafe.Pointer(outputPtr)), len(splitPoints))
	for i, split := range splitPoints {
		out[i] = int64(split)
	}
	return 0
}

//export RenderTree
func RenderTree(handle C.ulonglong) *C.char {
	setLastError(nil)
	result, err := fetchResult(uint64(handle))
	if err != nil {
		setLastError(err)
		return nil
	}
	return C.CString(result.String())
}

//export TreeJSON
func TreeJSON(handle C.ulonglong) *C.char {
	setLastError(nil)
	result, err := fetchResult(uint64(handle))
	if err != nil {
		setLastError(err)
		return nil
	}
	var sb strings.Builder
	if err := result.Encode(&sb); err != nil {
		setLastError(err)
		return nil
	}
	return C.CString(sb.String())
}

//export SaveResult
func SaveResult(handle C.ulonglong, path *C.char) C.int {
	setLastError(nil)
	result, err := fetchResult(uint64(handle))
	if err != nil {
		setLastError(err)
		return 1
	}
	if err := result.Save(C.GoString(path)); err != nil {
		setLastError(err)
		return 2
	}
	return 0
}

//export LoadResult
func LoadResult(path *C.char) C.ulonglong {
	setLastError(nil)
	result, err := cfl.LoadResult(C.GoString(path))
	if err != nil {
		setLastError(err)
		return 0
	}
	return C.ulonglong(storeResult(result))
}

//export RenderGraph
func RenderGraph(handle C.ulonglong, path, figureType *C.char) C.int {
	setLastError(nil)
	result, err := fetchResult(uint64(handle))
	if err != nil {
		setLastError(err)
		return 1
	}
	goFigureType := C.GoString(figureType)
	if goFigureType == "" {
		goFigureType = "svg"
	}
	if err := result.RenderGraph(C.GoString(path), goFigureType); err != nil {
		setLastError(err)
		return 2
	}
	return 0
}

//export GetLastError
func GetLastError() *C.char {
	errStr := getLastError()
	if errStr == "" {
		return nil
	}
	return C.CString(errStr)
}

//export FreeCString
func FreeCString(str *C.char) {
	if str != nil {
		C.free(unsafe.Pointer(str))
	}
}

func main() {}
