package btl

import (
	"math/rand"
	"sync"

	"github.com/pkg/errors"
	"github.com/yourbasic/bit"
	"go.uber.org/zap"
)

//Sampler draws the rows of one resample of a dataset with h rows.
type Sampler interface {
	Sample(rng *rand.Rand, h int) []int
}

//BootstrapSampler draws h rows with replacement.
type BootstrapSampler struct{}

//Sample draws the bootstrap rows.
func (BootstrapSampler) Sample(rng *rand.Rand, h int) []int {
	rows := make([]int, h)
	for ind := range rows {
		rows[ind] = rng.Intn(h)
	}
	return rows
}

//IdentitySampler returns every row exactly once, in order. It turns bagging into plain training.
type IdentitySampler struct{}

//Sample returns 0..h-1.
func (IdentitySampler) Sample(_ *rand.Rand, h int) []int {
	return makeRecordIds(h)
}

//BaggingParams collect arguments required to construct an ensemble.
type BaggingParams struct {
	NIter      int
	Factory    LearnerFactory
	Sampler    Sampler
	Rand       *rand.Rand
	Seed       int64
	ThreadsNum int
}

//Validate checks the parameters.
func (params BaggingParams) Validate() error {
	if params.NIter < 1 {
		return errors.Wrapf(ErrInvalidParams, "the number of iterations %d should be positive", params.NIter)
	}
	if params.Factory == nil {
		return errors.Wrap(ErrInvalidParams, "no learner factory")
	}
	if params.ThreadsNum < 0 {
		return errors.Wrapf(ErrInvalidParams, "threads number %d is negative", params.ThreadsNum)
	}
	return nil
}

//Bagging is an ensemble of learners fit on resamples of one dataset.
//Members are only written by Fit, so a fitted ensemble serves concurrent predictions.
type Bagging struct {
	Members     []Learner
	OOBAccuracy float64
	OOBCount    int

	params BaggingParams
	inBag  []*bit.Set
}

//NewBagging creates an unfitted ensemble. A nil Sampler means bootstrap,
//a nil Rand means a generator seeded with Seed.
func NewBagging(params BaggingParams) (*Bagging, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if params.Sampler == nil {
		params.Sampler = BootstrapSampler{}
	}
	if params.Rand == nil {
		params.Rand = rand.New(rand.NewSource(params.Seed))
	}
	return &Bagging{params: params}, nil
}

//BaggingFactory returns a factory of ensembles. The n-th created ensemble draws from a generator
//seeded with params.Seed+n so that every ensemble owns its random state.
func BaggingFactory(params BaggingParams) LearnerFactory {
	var mu sync.Mutex
	created := int64(0)
	return func() (Learner, error) {
		mu.Lock()
		seed := params.Seed + created
		created++
		mu.Unlock()
		memberParams := params
		memberParams.Rand = rand.New(rand.NewSource(seed))
		return NewBagging(memberParams)
	}
}

//Fit draws NIter resamples and fits one fresh learner on each.
//All draws happen before any member is fit. A member that fails to fit
//is replaced by a MajorityLearner on its own resample.
//An ensemble not built by NewBagging, such as one from LoadEnsemble, can't be fit.
func (b *Bagging) Fit(dm DMatrix) error {
	if err := b.params.Validate(); err != nil {
		return errors.Wrap(err, "the ensemble has no training parameters")
	}
	h, _, err := dm.validatedDimensions()
	if err != nil {
		return err
	}
	if h == 0 {
		return errors.Wrap(ErrDomain, "fit on an empty dataset")
	}

	nIter := b.params.NIter
	samples := make([][]int, nIter)
	for ind := range samples {
		samples[ind] = b.params.Sampler.Sample(b.params.Rand, h)
	}

	members := make([]Learner, nIter)
	memberErrors := make([]error, nIter)
	fitMember := func(ind int) {
		members[ind], memberErrors[ind] = b.fitMember(dm, samples[ind], ind)
	}

	if b.params.ThreadsNum <= 1 {
		for ind := 0; ind < nIter; ind++ {
			fitMember(ind)
		}
	} else {
		taskPool := NewPool(b.params.ThreadsNum)
		for ind := 0; ind < nIter; ind++ {
			localInd := ind
			taskPool.AddTask(TaskFunc(func() { fitMember(localInd) }))
		}
		taskPool.Close()
		taskPool.WaitAll()
	}

	for ind, err := range memberErrors {
		if err != nil {
			return errors.Wrapf(err, "member %d", ind)
		}
	}

	b.Members = members
	b.inBag = make([]*bit.Set, nIter)
	for ind, rows := range samples {
		b.inBag[ind] = bit.New(rows...)
	}
	b.OOBAccuracy, b.OOBCount = b.outOfBag(dm)
	logger.Debug("ensemble fitted",
		zap.Int("members", nIter),
		zap.Int("oob_rows", b.OOBCount),
		zap.Float64("oob_accuracy", b.OOBAccuracy))
	return nil
}

func (b *Bagging) fitMember(dm DMatrix, rows []int, ind int) (Learner, error) {
	resample, err := dm.Subset(rows)
	if err != nil {
		return nil, err
	}
	learner, err := b.params.Factory()
	if err != nil {
		return nil, err
	}
	if err = learner.Fit(resample); err != nil {
		logger.Warn("member degraded to the majority label", zap.Int("member", ind+1), zap.Error(err))
		fallback := &MajorityLearner{}
		if err = fallback.Fit(resample); err != nil {
			return nil, err
		}
		return fallback, nil
	}
	logger.Info("member fitted", zap.Int("member", ind+1))
	return learner, nil
}

//outOfBag votes every row only with the members that did not see it during training.
func (b *Bagging) outOfBag(dm DMatrix) (accuracy float64, count int) {
	h := Height(dm.Features)
	correct := 0
	for p := 0; p < h; p++ {
		instance := dm.Features.RawRowView(p)
		var votes LabelCounts
		for ind, member := range b.Members {
			if b.inBag[ind].Contains(p) {
				continue
			}
			label, err := member.Predict(instance)
			if err != nil {
				continue
			}
			votes.Add(label)
		}
		if len(votes.Classes) == 0 {
			continue
		}
		count++
		if votes.Majority() == dm.Target.At(p, 0) {
			correct++
		}
	}
	if count == 0 {
		return 0.0, 0
	}
	return float64(correct) / float64(count), count
}

//Predict returns the majority vote of the members. Ties go to the label voted first in member order.
func (b *Bagging) Predict(instance []float64) (float64, error) {
	if len(b.Members) == 0 {
		return 0, ErrEmptyEnsemble
	}
	var votes LabelCounts
	for ind, member := range b.Members {
		label, err := member.Predict(instance)
		if err != nil {
			return 0, errors.Wrapf(err, "member %d", ind)
		}
		votes.Add(label)
	}
	return votes.Majority(), nil
}

//Score averages the scores of the members. Members without a Scorer vote 1 or 0.
func (b *Bagging) Score(instance []float64, positive float64) (float64, error) {
	if len(b.Members) == 0 {
		return 0, ErrEmptyEnsemble
	}
	sum := 0.0
	for ind, member := range b.Members {
		score, err := scoreOf(member, instance, positive)
		if err != nil {
			return 0, errors.Wrapf(err, "member %d", ind)
		}
		sum += score
	}
	return sum / float64(len(b.Members)), nil
}

//Trees returns the members that are ID3 trees.
func (b *Bagging) Trees() []*ID3Tree {
	trees := make([]*ID3Tree, 0, len(b.Members))
	for _, member := range b.Members {
		if tree, ok := member.(*ID3Tree); ok {
			trees = append(trees, tree)
		}
	}
	return trees
}

//EnsembleDump is the JSON layout of an ensemble of trees.
type EnsembleDump struct {
	Trees       []*ID3Tree
	OOBAccuracy float64
	OOBCount    int
}

//Save writes an ensemble whose members are all ID3 trees.
func (b *Bagging) Save(filename string) error {
	if len(b.Members) == 0 {
		return ErrEmptyEnsemble
	}
	trees := b.Trees()
	if len(trees) != len(b.Members) {
		return errors.Errorf("only ensembles of trees can be saved, %d of %d members are trees", len(trees), len(b.Members))
	}
	return saveJSON(filename, EnsembleDump{Trees: trees, OOBAccuracy: b.OOBAccuracy, OOBCount: b.OOBCount})
}

//LoadEnsemble reads an ensemble written by Save. The result predicts but cannot be refit.
func LoadEnsemble(filename string) (*Bagging, error) {
	var dump EnsembleDump
	if err := loadJSON(filename, &dump); err != nil {
		return nil, err
	}
	if len(dump.Trees) == 0 {
		return nil, errors.Wrapf(ErrEmptyEnsemble, "%s holds no trees", filename)
	}
	b := &Bagging{OOBAccuracy: dump.OOBAccuracy, OOBCount: dump.OOBCount}
	for _, tree := range dump.Trees {
		b.Members = append(b.Members, tree)
	}
	return b, nil
}
