package btl

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

//Confusion holds the counts of a binary confusion matrix.
type Confusion struct {
	TP, FP, TN, FN int
}

//NewConfusion compares predictions with the truth for one positive label.
func NewConfusion(truth, predicted []float64, positive float64) (Confusion, error) {
	var c Confusion
	if len(truth) != len(predicted) {
		return c, errors.Errorf("%d labels for %d predictions", len(truth), len(predicted))
	}
	for ind := range truth {
		c.Add(truth[ind] == positive, predicted[ind] == positive)
	}
	return c, nil
}

//Add counts one observation.
func (c *Confusion) Add(isPositive, predictedPositive bool) {
	switch {
	case isPositive && predictedPositive:
		c.TP++
	case isPositive:
		c.FN++
	case predictedPositive:
		c.FP++
	default:
		c.TN++
	}
}

//Total returns the number of counted observations.
func (c Confusion) Total() int {
	return c.TP + c.FP + c.TN + c.FN
}

//Accuracy is the share of correct predictions. It is 0 for an empty matrix.
func (c Confusion) Accuracy() float64 {
	if c.Total() == 0 {
		return 0.0
	}
	return float64(c.TP+c.TN) / float64(c.Total())
}

//Precision returns TP/(TP+FP); ok is false when nothing was predicted positive.
func (c Confusion) Precision() (value float64, ok bool) {
	if c.TP+c.FP == 0 {
		return 0.0, false
	}
	return float64(c.TP) / float64(c.TP+c.FP), true
}

//Recall returns TP/(TP+FN); ok is false when there are no positives.
func (c Confusion) Recall() (value float64, ok bool) {
	if c.TP+c.FN == 0 {
		return 0.0, false
	}
	return float64(c.TP) / float64(c.TP+c.FN), true
}

//MeanStd is the mean and the sample standard deviation of a metric over folds.
type MeanStd struct {
	Mean   float64
	StdDev float64
}

//NewMeanStd summarises values. A single value has zero deviation.
func NewMeanStd(values []float64) MeanStd {
	switch len(values) {
	case 0:
		return MeanStd{}
	case 1:
		return MeanStd{Mean: values[0]}
	}
	mean, std := stat.MeanStdDev(values, nil)
	return MeanStd{Mean: mean, StdDev: std}
}

//AreaUnderROC integrates the ROC curve of scores against the true classes.
//Both classes must be present. The inputs are not modified.
func AreaUnderROC(scores []float64, classes []bool) (float64, error) {
	if len(scores) != len(classes) {
		return 0, errors.Errorf("%d scores for %d classes", len(scores), len(classes))
	}
	positives := 0
	for _, c := range classes {
		if c {
			positives++
		}
	}
	if positives == 0 || positives == len(classes) {
		return 0, errors.Wrap(ErrInsufficientData, "ROC needs both classes")
	}
	for _, s := range scores {
		if math.IsNaN(s) {
			return 0, errors.Wrap(ErrDomain, "NaN score")
		}
	}

	y := append([]float64(nil), scores...)
	labels := append([]bool(nil), classes...)
	stat.SortWeightedLabeled(y, labels, nil)
	tpr, fpr, _ := stat.ROC(nil, y, labels, nil)
	return integrate.Trapezoidal(fpr, tpr), nil
}
