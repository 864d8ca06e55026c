// SPDX-License-Identifier: Apache-2.0

package main

/*
#cgo CFLAGS: -I.
#include <stdlib.h>
*/
import "C"

import (
	"errors"
	"math"
	"sync"
	"unsafe"

	"github.com/tarstars/bagged_id3/golang/bagged_id3/btl"
	"gonum.org/v1/gonum/mat"
)

var (
	handleMu   sync.Mutex
	nextHandle uint64 = 1
	models            = make(map[uint64]btl.Learner)

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

func storeModel(learner btl.Learner) uint64 {
	handleMu.Lock()
	defer handleMu.Unlock()
	handle := nextHandle
	models[handle] = learner
	nextHandle++
	return handle
}

func fetchModel(handle uint64) (btl.Learner, error) {
	handleMu.Lock()
	defer handleMu.Unlock()
	learner, ok := models[handle]
	if !ok {
		return nil, errors.New("invalid model handle")
	}
	return learner, nil
}

//export FreeModel
func FreeModel(handle C.ulonglong) {
	handleMu.Lock()
	defer handleMu.Unlock()
	delete(models, uint64(handle))
}

func copyFloatSlice(ptr *C.double, length int) ([]float64, error) {
	if length < 0 {
		return nil, errors.New("negative length")
	}
	if length == 0 {
		return nil, nil
	}
	if ptr == nil {
		return nil, errors.New("null pointer for non-empty slice")
	}
	src := unsafe.Slice((*float64)(unsafe.Pointer(ptr)), length)
	dst := make([]float64, length)
	copy(dst, src)
	return dst, nil
}

func sliceFromPtr(ptr *C.double, length int) ([]float64, error) {
	if length < 0 {
		return nil, errors.New("negative length")
	}
	if length == 0 {
		return nil, nil
	}
	if ptr == nil {
		return nil, errors.New("null pointer for non-empty slice")
	}
	return unsafe.Slice((*float64)(unsafe.Pointer(ptr)), length), nil
}

func buildDense(ptr *C.double, rows, cols C.int) (*mat.Dense, error) {
	r := int(rows)
	c := int(cols)
	if r <= 0 || c <= 0 {
		return nil, errors.New("invalid matrix dimensions")
	}
	data, err := copyFloatSlice(ptr, r*c)
	if err != nil {
		return nil, err
	}
	return mat.NewDense(r, c, data), nil
}

func buildDMatrix(featuresPtr *C.double, rows, cols C.int, targetPtr *C.double, discretePtr *C.int, discreteLen C.int) (btl.DMatrix, error) {
	features, err := buildDense(featuresPtr, rows, cols)
	if err != nil {
		return btl.DMatrix{}, err
	}
	target, err := buildDense(targetPtr, rows, 1)
	if err != nil {
		return btl.DMatrix{}, err
	}
	var columns []int
	if discreteLen > 0 {
		if discretePtr == nil {
			return btl.DMatrix{}, errors.New("null pointer for discrete columns")
		}
		for _, q := range unsafe.Slice(discretePtr, int(discreteLen)) {
			columns = append(columns, int(q))
		}
	}
	discrete, err := btl.DiscreteMask(int(cols), columns)
	if err != nil {
		return btl.DMatrix{}, err
	}
	recordIds := make([]int, int(rows))
	for p := range recordIds {
		recordIds[p] = p
	}
	return btl.DMatrix{Features: features, Target: target, RecordIds: recordIds, Discrete: discrete}, nil
}

func buildLearnerConfig(learner *C.char, maxDepth C.int, useGainRatio C.int, nIter C.int, seed C.longlong, threadsNum C.int) btl.LearnerConfig {
	name := btl.LearnerDecisionTree
	if learner != nil {
		name = C.GoString(learner)
	}
	return btl.LearnerConfig{
		Learner:      name,
		MaxDepth:     int(maxDepth),
		UseGainRatio: useGainRatio != 0,
		NIter:        int(nIter),
		Seed:         int64(seed),
		ThreadsNum:   int(math.Max(1, float64(threadsNum))),
	}
}

//export TrainModel
func TrainModel(
	featuresPtr *C.double,
	rows C.int,
	cols C.int,
	targetPtr *C.double,
	discretePtr *C.int,
	discreteLen C.int,
	learner *C.char,
	maxDepth C.int,
	useGainRatio C.int,
	nIter C.int,
	seed C.longlong,
	threadsNum C.int,
) C.ulonglong {
	setLastError(nil)

	dm, err := buildDMatrix(featuresPtr, rows, cols, targetPtr, discretePtr, discreteLen)
	if err != nil {
		setLastError(err)
		return 0
	}

	factory, err := buildLearnerConfig(learner, maxDepth, useGainRatio, nIter, seed, threadsNum).Factory()
	if err != nil {
		setLastError(err)
		return 0
	}
	clf, err := factory()
	if err != nil {
		setLastError(err)
		return 0
	}
	if err = clf.Fit(dm); err != nil {
		setLastError(err)
		return 0
	}
	return C.ulonglong(storeModel(clf))
}

//export Predict
func Predict(
	handle C.ulonglong,
	featuresPtr *C.double,
	rows C.int,
	cols C.int,
	outputPtr *C.double,
) C.int {
	setLastError(nil)
	clf, err := fetchModel(uint64(handle))
	if err != nil {
		setLastError(err)
		return 1
	}

	features, err := buildDense(featuresPtr, rows, cols)
	if err != nil {
		setLastError(err)
		return 2
	}

	prediction, err := btl.PredictDense(clf, features)
	if err != nil {
		setLastError(err)
		return 3
	}

	outSlice, err := sliceFromPtr(outputPtr, int(rows))
	if err != nil {
		setLastError(err)
		return 4
	}
	copy(outSlice, prediction.RawMatrix().Data)
	return 0
}

//export PredictScore
func PredictScore(
	handle C.ulonglong,
	featuresPtr *C.double,
	rows C.int,
	cols C.int,
	positiveLabel C.double,
	outputPtr *C.double,
) C.int {
	setLastError(nil)
	clf, err := fetchModel(uint64(handle))
	if err != nil {
		setLastError(err)
		return 1
	}
	scorer, ok := clf.(btl.Scorer)
	if !ok {
		setLastError(errors.New("the model does not produce scores"))
		return 2
	}

	features, err := buildDense(featuresPtr, rows, cols)
	if err != nil {
		setLastError(err)
		return 3
	}

	outSlice, err := sliceFromPtr(outputPtr, int(rows))
	if err != nil {
		setLastError(err)
		return 4
	}
	for p := range outSlice {
		if outSlice[p], err = scorer.Score(features.RawRowView(p), float64(positiveLabel)); err != nil {
			setLastError(err)
			return 5
		}
	}
	return 0
}

//export CrossValidate
func CrossValidate(
	featuresPtr *C.double,
	rows C.int,
	cols C.int,
	targetPtr *C.double,
	discretePtr *C.int,
	discreteLen C.int,
	learner *C.char,
	maxDepth C.int,
	useGainRatio C.int,
	nIter C.int,
	seed C.longlong,
	threadsNum C.int,
	k C.int,
	positiveLabel C.double,
	shuffle C.int,
	outputPtr *C.double,
) C.int {
	setLastError(nil)

	dm, err := buildDMatrix(featuresPtr, rows, cols, targetPtr, discretePtr, discreteLen)
	if err != nil {
		setLastError(err)
		return 1
	}

	learnerConfig := buildLearnerConfig(learner, maxDepth, useGainRatio, nIter, seed, threadsNum)
	factory, err := learnerConfig.Factory()
	if err != nil {
		setLastError(err)
		return 2
	}

	report, err := btl.KFoldCV(btl.CVParams{
		K:             int(k),
		Factory:       factory,
		PositiveLabel: float64(positiveLabel),
		Shuffle:       shuffle != 0,
		Seed:          learnerConfig.Seed,
		ThreadsNum:    learnerConfig.ThreadsNum,
	}, dm)
	if err != nil {
		setLastError(err)
		return 3
	}

	// accuracy, precision and recall as mean and stddev pairs, then the area under ROC
	outSlice, err := sliceFromPtr(outputPtr, 7)
	if err != nil {
		setLastError(err)
		return 4
	}
	copy(outSlice, []float64{
		report.Accuracy.Mean, report.Accuracy.StdDev,
		report.Precision.Mean, report.Precision.StdDev,
		report.Recall.Mean, report.Recall.StdDev,
		report.AreaUnderROC,
	})
	return 0
}

//export SaveModel
func SaveModel(handle C.ulonglong, path *C.char) C.int {
	setLastError(nil)
	clf, err := fetchModel(uint64(handle))
	if err != nil {
		setLastError(err)
		return 1
	}
	if err = btl.SaveLearner(clf, C.GoString(path)); err != nil {
		setLastError(err)
		return 2
	}
	return 0
}

//export LoadModel
func LoadModel(path *C.char) C.ulonglong {
	setLastError(nil)
	clf, err := btl.LoadLearner(C.GoString(path))
	if err != nil {
		setLastError(err)
		return 0
	}
	return C.ulonglong(storeModel(clf))
}

//export RenderTrees
func RenderTrees(handle C.ulonglong, prefix, figureType, directory *C.char) C.int {
	setLastError(nil)
	clf, err := fetchModel(uint64(handle))
	if err != nil {
		setLastError(err)
		return 1
	}
	goPrefix := C.GoString(prefix)
	goFigureType := C.GoString(figureType)
	goDir := C.GoString(directory)
	if goPrefix == "" {
		goPrefix = "tree"
	}
	if goFigureType == "" {
		goFigureType = "svg"
	}
	if goDir == "" {
		goDir = "."
	}
	if err = btl.RenderTrees(btl.TreesOf(clf), goPrefix, goFigureType, goDir); err != nil {
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
