package btl

import (
	"fmt"
	"math/rand"

	mapset "github.com/deckarep/golang-set"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorgonia.org/tensor"
)

//CVParams collect arguments of a k-fold cross-validation run.
type CVParams struct {
	K             int
	Factory       LearnerFactory
	PositiveLabel float64
	Shuffle       bool
	Rand          *rand.Rand
	Seed          int64
	ThreadsNum    int
}

//Validate checks the parameters.
func (params CVParams) Validate() error {
	if params.K < 2 {
		return errors.Wrapf(ErrInsufficientData, "%d folds, at least 2 are needed", params.K)
	}
	if params.Factory == nil {
		return errors.Wrap(ErrInvalidParams, "no learner factory")
	}
	if params.ThreadsNum < 0 {
		return errors.Wrapf(ErrInvalidParams, "threads number %d is negative", params.ThreadsNum)
	}
	return nil
}

//FoldMetrics are the metrics of one held-out fold.
type FoldMetrics struct {
	Fold      int
	Rows      int
	Accuracy  float64
	Precision float64
	Recall    float64
	Confusion Confusion
}

//CVReport summarises a cross-validation run.
//Caveats name the folds where a metric was undefined and reported as 0.
type CVReport struct {
	Accuracy     MeanStd
	Precision    MeanStd
	Recall       MeanStd
	AreaUnderROC float64
	Folds        []FoldMetrics
	Caveats      []string
}

//SplitFolds cuts h rows into k contiguous folds whose sizes differ by at most one.
//The first h mod k folds hold the extra row.
func SplitFolds(h, k int) ([]*Range, error) {
	if k < 1 {
		return nil, errors.Wrapf(ErrInsufficientData, "%d folds", k)
	}
	if k > h {
		return nil, errors.Wrapf(ErrInsufficientData, "%d folds for %d rows", k, h)
	}
	folds := make([]*Range, k)
	base, extra := h/k, h%k
	begin := 0
	for ind := range folds {
		size := base
		if ind < extra {
			size++
		}
		folds[ind] = NewRange(begin, begin+size, 1)
		begin += size
	}
	return folds, nil
}

//foldOutcome is what one fold produces before aggregation.
type foldOutcome struct {
	truth     []float64
	predicted []float64
	scores    []float64
	err       error
}

//KFoldCV trains a fresh learner on k-1 folds and evaluates it on the remaining fold, k times.
func KFoldCV(params CVParams, dm DMatrix) (*CVReport, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	h, _, err := dm.validatedDimensions()
	if err != nil {
		return nil, err
	}
	folds, err := SplitFolds(h, params.K)
	if err != nil {
		return nil, err
	}

	order := makeRecordIds(h)
	if params.Shuffle {
		rng := params.Rand
		if rng == nil {
			rng = rand.New(rand.NewSource(params.Seed))
		}
		rng.Shuffle(h, func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	// learners are created in fold order so that seeded factories stay reproducible
	models := make([]Learner, params.K)
	for ind := range models {
		if models[ind], err = params.Factory(); err != nil {
			return nil, errors.Wrapf(err, "create model for fold %d", ind)
		}
	}

	outcomes := make([]foldOutcome, params.K)
	runFold := func(ind int) {
		outcomes[ind] = evaluateFold(dm, order, folds[ind], models[ind], params.PositiveLabel)
	}
	if params.ThreadsNum <= 1 {
		for ind := range folds {
			runFold(ind)
		}
	} else {
		taskPool := NewPool(params.ThreadsNum)
		for ind := range folds {
			localInd := ind
			taskPool.AddTask(TaskFunc(func() { runFold(localInd) }))
		}
		taskPool.Close()
		taskPool.WaitAll()
	}

	for ind, outcome := range outcomes {
		if outcome.err != nil {
			return nil, errors.Wrapf(outcome.err, "fold %d", ind)
		}
	}

	return aggregateFolds(outcomes, params.PositiveLabel)
}

func evaluateFold(dm DMatrix, order []int, fold *Range, model Learner, positive float64) (outcome foldOutcome) {
	trainRows := make([]int, 0, len(order)-fold.Len())
	testRows := make([]int, 0, fold.Len())
	for ind, p := range order {
		if fold.Contains(ind) {
			testRows = append(testRows, p)
		} else {
			trainRows = append(trainRows, p)
		}
	}

	train, err := dm.Subset(trainRows)
	if err != nil {
		outcome.err = err
		return
	}
	if outcome.err = model.Fit(train); outcome.err != nil {
		return
	}

	outcome.truth = make([]float64, len(testRows))
	outcome.predicted = make([]float64, len(testRows))
	outcome.scores = make([]float64, len(testRows))
	for ind, p := range testRows {
		instance := dm.Features.RawRowView(p)
		outcome.truth[ind] = dm.Target.At(p, 0)
		if outcome.predicted[ind], outcome.err = model.Predict(instance); outcome.err != nil {
			return
		}
		if outcome.scores[ind], outcome.err = scoreOf(model, instance, positive); outcome.err != nil {
			return
		}
	}
	return
}

//aggregateFolds fills a k×2×2 confusion tensor indexed by fold, truth and prediction
//and turns it into the report.
func aggregateFolds(outcomes []foldOutcome, positive float64) (*CVReport, error) {
	k := len(outcomes)
	confusions := tensor.New(tensor.WithShape(k, 2, 2), tensor.Of(tensor.Float64))
	for fold, outcome := range outcomes {
		for ind := range outcome.truth {
			truthIndex, predictedIndex := 0, 0
			if outcome.truth[ind] == positive {
				truthIndex = 1
			}
			if outcome.predicted[ind] == positive {
				predictedIndex = 1
			}
			value, err := confusions.At(fold, truthIndex, predictedIndex)
			if err != nil {
				return nil, err
			}
			if err = confusions.SetAt(value.(float64)+1, fold, truthIndex, predictedIndex); err != nil {
				return nil, err
			}
		}
	}

	report := &CVReport{Folds: make([]FoldMetrics, k)}
	accuracies := make([]float64, k)
	precisions := make([]float64, k)
	recalls := make([]float64, k)
	var pooledScores []float64
	var pooledClasses []bool

	for fold, outcome := range outcomes {
		c, err := confusionAt(confusions, fold)
		if err != nil {
			return nil, err
		}
		accuracies[fold] = c.Accuracy()
		var ok bool
		if precisions[fold], ok = c.Precision(); !ok {
			report.Caveats = append(report.Caveats, fmt.Sprintf("fold %d: no positive predictions, precision reported as 0", fold))
		}
		if recalls[fold], ok = c.Recall(); !ok {
			report.Caveats = append(report.Caveats, fmt.Sprintf("fold %d: no positive samples, recall reported as 0", fold))
		}
		classes := mapset.NewSet()
		for _, label := range outcome.truth {
			classes.Add(label)
		}
		if classes.Cardinality() < 2 {
			report.Caveats = append(report.Caveats, fmt.Sprintf("fold %d: a single class in the held-out rows", fold))
		}

		report.Folds[fold] = FoldMetrics{
			Fold:      fold,
			Rows:      c.Total(),
			Accuracy:  accuracies[fold],
			Precision: precisions[fold],
			Recall:    recalls[fold],
			Confusion: c,
		}
		logger.Info("fold evaluated",
			zap.Int("fold", fold),
			zap.Int("rows", c.Total()),
			zap.Float64("accuracy", accuracies[fold]),
			zap.Float64("precision", precisions[fold]),
			zap.Float64("recall", recalls[fold]))

		pooledScores = append(pooledScores, outcome.scores...)
		for _, label := range outcome.truth {
			pooledClasses = append(pooledClasses, label == positive)
		}
	}

	report.Accuracy = NewMeanStd(accuracies)
	report.Precision = NewMeanStd(precisions)
	report.Recall = NewMeanStd(recalls)

	auc, err := AreaUnderROC(pooledScores, pooledClasses)
	switch {
	case errors.Is(err, ErrInsufficientData):
		report.Caveats = append(report.Caveats, "a single class in the data, area under ROC reported as 0")
	case err != nil:
		return nil, err
	default:
		report.AreaUnderROC = auc
	}
	return report, nil
}

func confusionAt(confusions *tensor.Dense, fold int) (c Confusion, err error) {
	cell := func(truthIndex, predictedIndex int) int {
		if err != nil {
			return 0
		}
		var value interface{}
		value, err = confusions.At(fold, truthIndex, predictedIndex)
		if err != nil {
			return 0
		}
		return int(value.(float64))
	}
	c.TN = cell(0, 0)
	c.FP = cell(0, 1)
	c.FN = cell(1, 0)
	c.TP = cell(1, 1)
	return c, err
}
