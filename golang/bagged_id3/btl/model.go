package btl

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

//LearnerConfig selects a learner by name and describes how it is built.
//NIter above zero wraps the learner into a bagging ensemble of NIter members.
type LearnerConfig struct {
	Learner      string `json:"learner" mapstructure:"learner"`
	MaxDepth     int    `json:"max_depth" mapstructure:"max_depth"`
	UseGainRatio bool   `json:"use_gain_ratio" mapstructure:"use_gain_ratio"`
	NIter        int    `json:"n_iter" mapstructure:"n_iter"`
	Seed         int64  `json:"seed" mapstructure:"seed"`
	ThreadsNum   int    `json:"threads_num" mapstructure:"threads_num"`
}

//Learner names accepted by LearnerConfig.
const (
	LearnerDecisionTree = "dtree"
	LearnerMajority     = "majority"
)

//Factory returns a factory of fresh learners described by the config.
func (config LearnerConfig) Factory() (LearnerFactory, error) {
	var base LearnerFactory
	switch config.Learner {
	case LearnerDecisionTree:
		params := ID3Params{MaxDepth: config.MaxDepth, UseGainRatio: config.UseGainRatio, ThreadsNum: config.ThreadsNum}
		if err := params.Validate(); err != nil {
			return nil, err
		}
		base = ID3Factory(params)
	case LearnerMajority:
		base = MajorityFactory()
	default:
		return nil, errors.Wrapf(ErrInvalidParams, "unknown learner %q, expected %q or %q",
			config.Learner, LearnerDecisionTree, LearnerMajority)
	}
	if config.NIter <= 0 {
		return base, nil
	}
	params := BaggingParams{
		NIter:      config.NIter,
		Factory:    base,
		Seed:       config.Seed,
		ThreadsNum: config.ThreadsNum,
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return BaggingFactory(params), nil
}

//SaveLearner writes a fitted tree or ensemble of trees as JSON.
func SaveLearner(learner Learner, filename string) error {
	switch model := learner.(type) {
	case *ID3Tree:
		return model.Save(filename)
	case *Bagging:
		return model.Save(filename)
	}
	return errors.Errorf("learner %T can't be saved", learner)
}

//LoadLearner reads a model written by SaveLearner. The kind of model is detected from the file.
func LoadLearner(filename string) (Learner, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "can't read model %s", filename)
	}
	var probe struct {
		Trees []json.RawMessage
		Root  json.RawMessage
	}
	if err = json.Unmarshal(content, &probe); err != nil {
		return nil, errors.Wrapf(err, "decode %s", filename)
	}
	if probe.Trees != nil {
		return LoadEnsemble(filename)
	}
	return LoadTree(filename)
}

//TreesOf returns the ID3 trees inside a learner.
func TreesOf(learner Learner) []*ID3Tree {
	switch model := learner.(type) {
	case *ID3Tree:
		return []*ID3Tree{model}
	case *Bagging:
		return model.Trees()
	}
	return nil
}
