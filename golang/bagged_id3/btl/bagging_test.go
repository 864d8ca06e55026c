package btl

import (
	"path"
	"testing"

	"github.com/pkg/errors"
	"go.uber.org/zap/zaptest"
)

func TestSingleIdentityBaggingEqualsTree(t *testing.T) {
	dm := createRandomDMatrix(t, 4, 60, 3)
	params := ID3Params{MaxDepth: 4}

	tree, _ := NewID3Tree(params)
	if err := tree.Fit(dm); err != nil {
		t.Fatalf("fit tree: %v", err)
	}
	ensemble, err := NewBagging(BaggingParams{NIter: 1, Factory: ID3Factory(params), Sampler: IdentitySampler{}})
	if err != nil {
		t.Fatalf("bagging: %v", err)
	}
	if err = ensemble.Fit(dm); err != nil {
		t.Fatalf("fit bagging: %v", err)
	}

	for p := 0; p < Height(dm.Features); p++ {
		instance := dm.Row(p)
		expected, err := tree.Predict(instance)
		if err != nil {
			t.Fatalf("predict tree: %v", err)
		}
		actual, err := ensemble.Predict(instance)
		if err != nil {
			t.Fatalf("predict bagging: %v", err)
		}
		if expected != actual {
			t.Fatalf("row %d: tree %v, ensemble %v", p, expected, actual)
		}
	}
	// every row is in the bag of the only member
	if ensemble.OOBCount != 0 {
		t.Fatalf("out of bag rows = %d, want 0", ensemble.OOBCount)
	}
}

func TestEmptyEnsemble(t *testing.T) {
	var ensemble Bagging
	if _, err := ensemble.Predict([]float64{1}); !errors.Is(err, ErrEmptyEnsemble) {
		t.Fatalf("predict: got %v, want ErrEmptyEnsemble", err)
	}
	if _, err := ensemble.Score([]float64{1}, 1); !errors.Is(err, ErrEmptyEnsemble) {
		t.Fatalf("score: got %v, want ErrEmptyEnsemble", err)
	}
	if _, err := NewBagging(BaggingParams{NIter: 0, Factory: MajorityFactory()}); !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("zero iterations: got %v, want ErrInvalidParams", err)
	}
	if err := ensemble.Fit(createScenarioDMatrix(t)); !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("fit of a zero ensemble: got %v, want ErrInvalidParams", err)
	}
}

func TestBaggingIsReproducible(t *testing.T) {
	SetLogger(zaptest.NewLogger(t))
	defer SetLogger(nil)

	dm := createRandomDMatrix(t, 5, 80, 4)
	predictions := make([][]float64, 0, 3)
	for _, threadsNum := range []int{1, 1, 4} {
		ensemble, err := NewBagging(BaggingParams{
			NIter:      10,
			Factory:    ID3Factory(ID3Params{MaxDepth: 3}),
			Seed:       7,
			ThreadsNum: threadsNum,
		})
		if err != nil {
			t.Fatalf("bagging: %v", err)
		}
		if err = ensemble.Fit(dm); err != nil {
			t.Fatalf("fit: %v", err)
		}
		if len(ensemble.Members) != 10 {
			t.Fatalf("%d members, want 10", len(ensemble.Members))
		}
		if ensemble.OOBCount == 0 || ensemble.OOBAccuracy < 0 || ensemble.OOBAccuracy > 1 {
			t.Fatalf("out of bag estimate %v over %d rows", ensemble.OOBAccuracy, ensemble.OOBCount)
		}
		prediction, err := PredictDense(ensemble, dm.Features)
		if err != nil {
			t.Fatalf("predict: %v", err)
		}
		predictions = append(predictions, prediction.RawMatrix().Data)
	}
	for ind := 1; ind < len(predictions); ind++ {
		for p := range predictions[0] {
			if predictions[0][p] != predictions[ind][p] {
				t.Fatalf("run %d differs at row %d", ind, p)
			}
		}
	}
}

type failingLearner struct{}

func (failingLearner) Fit(DMatrix) error { return errors.New("no luck") }

func (failingLearner) Predict([]float64) (float64, error) { return 0, ErrNotFitted }

func TestFailedMemberDegradesToMajority(t *testing.T) {
	dm := createScenarioDMatrix(t)
	ensemble, err := NewBagging(BaggingParams{
		NIter:   3,
		Factory: func() (Learner, error) { return failingLearner{}, nil },
		Sampler: IdentitySampler{},
	})
	if err != nil {
		t.Fatalf("bagging: %v", err)
	}
	if err = ensemble.Fit(dm); err != nil {
		t.Fatalf("fit: %v", err)
	}
	for ind, member := range ensemble.Members {
		if _, ok := member.(*MajorityLearner); !ok {
			t.Fatalf("member %d is %T, want *MajorityLearner", ind, member)
		}
	}
	label, err := ensemble.Predict([]float64{9, 1})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	// the labels 1, 1, 0, 0 tie and the first seen wins
	if label != 1 {
		t.Fatalf("label = %v, want 1", label)
	}
}

func TestBaggingFactorySeedsEveryEnsemble(t *testing.T) {
	factory := BaggingFactory(BaggingParams{NIter: 2, Factory: MajorityFactory(), Seed: 11})
	first, err := factory()
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	second, err := factory()
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	if first.(*Bagging).params.Rand == second.(*Bagging).params.Rand {
		t.Fatalf("ensembles share a random generator")
	}
}

func TestSaveLoadEnsemble(t *testing.T) {
	dm := createRandomDMatrix(t, 6, 60, 3)
	ensemble, err := NewBagging(BaggingParams{NIter: 5, Factory: ID3Factory(ID3Params{MaxDepth: 3}), Seed: 3})
	if err != nil {
		t.Fatalf("bagging: %v", err)
	}
	if err = ensemble.Fit(dm); err != nil {
		t.Fatalf("fit: %v", err)
	}
	filename := path.Join(t.TempDir(), "ensemble.json")
	if err = SaveLearner(ensemble, filename); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := LoadLearner(filename)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	loadedEnsemble, ok := loaded.(*Bagging)
	if !ok {
		t.Fatalf("loaded %T, want *Bagging", loaded)
	}
	if len(loadedEnsemble.Trees()) != 5 || loadedEnsemble.OOBCount != ensemble.OOBCount {
		t.Fatalf("loaded %d trees with %d out of bag rows", len(loadedEnsemble.Trees()), loadedEnsemble.OOBCount)
	}
	for p := 0; p < Height(dm.Features); p++ {
		expected, _ := ensemble.Score(dm.Row(p), 1)
		actual, err := loadedEnsemble.Score(dm.Row(p), 1)
		if err != nil {
			t.Fatalf("score: %v", err)
		}
		if expected != actual {
			t.Fatalf("row %d: %v before save, %v after load", p, expected, actual)
		}
	}

	if err = loadedEnsemble.Fit(dm); !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("refit of a loaded ensemble: got %v, want ErrInvalidParams", err)
	}
	if len(loadedEnsemble.Trees()) != 5 {
		t.Fatalf("refit attempt left %d trees, want 5", len(loadedEnsemble.Trees()))
	}
}

func TestMajorityEnsembleCantBeSaved(t *testing.T) {
	ensemble, _ := NewBagging(BaggingParams{NIter: 2, Factory: MajorityFactory()})
	if err := ensemble.Fit(createScenarioDMatrix(t)); err != nil {
		t.Fatalf("fit: %v", err)
	}
	if err := SaveLearner(ensemble, path.Join(t.TempDir(), "m.json")); err == nil {
		t.Fatalf("an ensemble of majority learners was saved")
	}
}
