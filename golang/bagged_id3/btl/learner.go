package btl

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

//Learner is any model that can be fit on a dataset and predict the label of one instance.
type Learner interface {
	Fit(dm DMatrix) error
	Predict(instance []float64) (float64, error)
}

//Scorer is implemented by learners that can grade how positive an instance is.
type Scorer interface {
	Score(instance []float64, positive float64) (float64, error)
}

//LearnerFactory creates a fresh unfitted learner.
type LearnerFactory func() (Learner, error)

//ID3Factory returns a factory of trees with the given parameters.
func ID3Factory(params ID3Params) LearnerFactory {
	return func() (Learner, error) {
		return NewID3Tree(params)
	}
}

//MajorityFactory returns a factory of MajorityLearner.
func MajorityFactory() LearnerFactory {
	return func() (Learner, error) {
		return &MajorityLearner{}, nil
	}
}

//MajorityLearner predicts the most frequent training label for every instance.
//Bagging members that fail to fit fall back to it.
type MajorityLearner struct {
	Counts LabelCounts
	Width  int
}

//Fit counts the labels.
func (m *MajorityLearner) Fit(dm DMatrix) error {
	h, w, err := dm.validatedDimensions()
	if err != nil {
		return err
	}
	if h == 0 {
		return errors.Wrap(ErrDomain, "fit on an empty dataset")
	}
	m.Counts = CountLabels(dm.Labels())
	m.Width = w
	return nil
}

//Predict returns the majority label.
func (m *MajorityLearner) Predict(instance []float64) (float64, error) {
	if len(m.Counts.Classes) == 0 {
		return 0, ErrNotFitted
	}
	if len(instance) != m.Width {
		return 0, errors.Wrapf(ErrMalformedInstance, "instance has %d attributes, the model expects %d", len(instance), m.Width)
	}
	return m.Counts.Majority(), nil
}

//Score returns the training share of the positive label.
func (m *MajorityLearner) Score(instance []float64, positive float64) (float64, error) {
	if _, err := m.Predict(instance); err != nil {
		return 0, err
	}
	return float64(m.Counts.Count(positive)) / float64(m.Counts.Total()), nil
}

//scoreOf grades an instance with the Scorer of a learner or with its vote when it has none.
func scoreOf(learner Learner, instance []float64, positive float64) (float64, error) {
	if scorer, ok := learner.(Scorer); ok {
		return scorer.Score(instance, positive)
	}
	label, err := learner.Predict(instance)
	if err != nil {
		return 0, err
	}
	if label == positive {
		return 1.0, nil
	}
	return 0.0, nil
}

//PredictDense predicts every row of the features matrix into an h×1 matrix.
func PredictDense(learner Learner, features *mat.Dense) (*mat.Dense, error) {
	h := Height(features)
	if h == 0 {
		return nil, errors.Wrap(ErrDomain, "nothing to predict")
	}
	prediction := mat.NewDense(h, 1, nil)
	for p := 0; p < h; p++ {
		label, err := learner.Predict(features.RawRowView(p))
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", p)
		}
		prediction.Set(p, 0, label)
	}
	return prediction, nil
}
