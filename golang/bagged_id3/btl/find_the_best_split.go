package btl

import (
	"github.com/pkg/errors"
)

//BestSplit contains results of the split selection algorithm.
type BestSplit struct {
	bestValue, currentValue float64
	gain                    float64
	featureIndex            int
	orderIndex              int
	threshold               float64
	discrete                bool
	validSplit              bool
	numberOfObjects         int
}

//FeatureIndex returns the column of the split.
func (split BestSplit) FeatureIndex() int { return split.featureIndex }

//Threshold returns the threshold of a continuous split or the matched value of a discrete one.
func (split BestSplit) Threshold() float64 { return split.threshold }

//Gain returns the information gain of the split.
func (split BestSplit) Gain() float64 { return split.gain }

//Score returns the value the split was selected by: the gain or the gain ratio.
func (split BestSplit) Score() float64 { return split.bestValue }

//Discrete reports whether the split is an equality test.
func (split BestSplit) Discrete() bool { return split.discrete }

//Satisfied evaluates the split predicate on an attribute value.
func (split BestSplit) Satisfied(value float64) bool {
	if split.discrete {
		return value == split.threshold
	}
	return value <= split.threshold
}

//TaskFindBestSplit scans one column on a Pool and stores the result into its slot.
type TaskFindBestSplit struct {
	result        []BestSplit
	q             int
	bestSplitFunc func(int) BestSplit
}

//Execute runs the scan of the column.
func (t *TaskFindBestSplit) Execute() {
	t.result[t.q] = t.bestSplitFunc(t.q)
}

//scanForSplit evaluates one column with the discrete or the continuous routine.
//A column without a usable split comes back with validSplit == false.
func scanForSplit(dm DMatrix, q int, labels []float64, useGainRatio bool) BestSplit {
	var bestSplit BestSplit
	var err error
	if dm.IsDiscrete(q) {
		bestSplit, err = scanDiscrete(dm.Column(q), labels, useGainRatio)
	} else {
		bestSplit, err = scanContinuous(dm.Column(q), labels, useGainRatio)
	}
	bestSplit.featureIndex = q
	if err != nil {
		bestSplit.validSplit = false
	}
	return bestSplit
}

//BestAttribute finds the column and the split value with the best score across all columns.
//Columns are scanned on a pool when threadsNum > 1. Ties keep the lowest column index.
func BestAttribute(dm DMatrix, useGainRatio bool, threadsNum int) (*BestSplit, error) {
	h, w, err := dm.validatedDimensions()
	if err != nil {
		return nil, err
	}
	if h == 0 {
		return nil, errors.Wrap(ErrDomain, "best attribute of an empty dataset")
	}
	labels := dm.Labels()
	result := make([]BestSplit, w)

	if threadsNum <= 1 {
		for q := 0; q < w; q++ {
			result[q] = scanForSplit(dm, q, labels, useGainRatio)
		}
	} else {
		taskPool := NewPool(threadsNum)
		for q := 0; q < w; q++ {
			bestSplitFunc := func(localQ int) BestSplit {
				return scanForSplit(dm, localQ, labels, useGainRatio)
			}
			taskPool.AddTask(&TaskFindBestSplit{result, q, bestSplitFunc})
		}
		taskPool.Close()
		taskPool.WaitAll()
	}

	bestIndex := -1
	for ind, currentSplit := range result {
		if currentSplit.validSplit && (bestIndex == -1 || currentSplit.bestValue > result[bestIndex].bestValue) {
			bestIndex = ind
		}
	}

	if bestIndex == -1 {
		return nil, errors.Wrapf(ErrNoSplitAvailable, "none of %d columns gives a positive gain", w)
	}

	return &result[bestIndex], nil
}
