package btl

import (
	"os"
	"path"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

func TestLearnerConfigFactory(t *testing.T) {
	if _, err := (LearnerConfig{Learner: "svm"}).Factory(); !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("unknown learner: got %v, want ErrInvalidParams", err)
	}
	if _, err := (LearnerConfig{Learner: LearnerDecisionTree, MaxDepth: -2}).Factory(); !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("negative depth: got %v, want ErrInvalidParams", err)
	}

	for _, tc := range []struct {
		config LearnerConfig
		check  func(Learner) bool
	}{
		{LearnerConfig{Learner: LearnerDecisionTree, MaxDepth: 3}, func(l Learner) bool { _, ok := l.(*ID3Tree); return ok }},
		{LearnerConfig{Learner: LearnerMajority}, func(l Learner) bool { _, ok := l.(*MajorityLearner); return ok }},
		{LearnerConfig{Learner: LearnerDecisionTree, NIter: 3}, func(l Learner) bool { _, ok := l.(*Bagging); return ok }},
	} {
		factory, err := tc.config.Factory()
		if err != nil {
			t.Fatalf("%+v: %v", tc.config, err)
		}
		learner, err := factory()
		if err != nil {
			t.Fatalf("%+v: %v", tc.config, err)
		}
		if !tc.check(learner) {
			t.Fatalf("%+v gives %T", tc.config, learner)
		}
	}
}

func TestMajorityLearner(t *testing.T) {
	var m MajorityLearner
	if _, err := m.Predict([]float64{1}); !errors.Is(err, ErrNotFitted) {
		t.Fatalf("unfitted: got %v, want ErrNotFitted", err)
	}
	dm, _ := NewDMatrix([][]float64{{1}, {2}, {3}, {4}}, []float64{0, 1, 1, 1}, nil)
	if err := m.Fit(dm); err != nil {
		t.Fatalf("fit: %v", err)
	}
	label, err := m.Predict([]float64{100})
	if err != nil || label != 1 {
		t.Fatalf("predict = %v, %v, want 1", label, err)
	}
	score, err := m.Score([]float64{100}, 1)
	if err != nil || score != 0.75 {
		t.Fatalf("score = %v, %v, want 0.75", score, err)
	}
}

func TestDMatrixConstruction(t *testing.T) {
	if _, err := NewDMatrix([][]float64{{1, 2}, {3}}, []float64{0, 1}, nil); !errors.Is(err, ErrMalformedInstance) {
		t.Fatalf("ragged rows: got %v, want ErrMalformedInstance", err)
	}
	if _, err := NewDMatrix([][]float64{{1}}, []float64{0, 1}, nil); !errors.Is(err, ErrDomain) {
		t.Fatalf("extra labels: got %v, want ErrDomain", err)
	}
	dm, err := NewDMatrix([][]float64{{1}, {2}}, []float64{0, 1}, nil)
	if err != nil {
		t.Fatalf("matrix: %v", err)
	}
	if _, err = dm.Subset([]int{0, 2}); err == nil {
		t.Fatalf("subset with an out of range row succeeded")
	}
	bootstrap, err := dm.Subset([]int{1, 1, 0})
	if err != nil {
		t.Fatalf("subset: %v", err)
	}
	if !mat.Equal(bootstrap.Features, mat.NewDense(3, 1, []float64{2, 2, 1})) {
		t.Fatalf("subset features = %v", mat.Formatted(bootstrap.Features))
	}
	if _, err = DiscreteMask(1, []int{1}); !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("discrete mask: got %v, want ErrInvalidParams", err)
	}
}

func TestReadWriteNpy(t *testing.T) {
	dir := t.TempDir()
	featuresFile, targetFile := path.Join(dir, "features.npy"), path.Join(dir, "target.npy")
	features := mat.NewDense(4, 2, []float64{1, 5, 2, 5, 8, 1, 9, 1})
	if err := WriteNpy(featuresFile, features); err != nil {
		t.Fatalf("write features: %v", err)
	}
	if err := WriteNpy(targetFile, mat.NewDense(4, 1, []float64{1, 1, 0, 0})); err != nil {
		t.Fatalf("write target: %v", err)
	}
	dm, err := ReadDMatrix(featuresFile, targetFile, []bool{false, true})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !mat.Equal(dm.Features, features) || !dm.IsDiscrete(1) || dm.IsDiscrete(0) {
		t.Fatalf("read back %v", mat.Formatted(dm.Features))
	}
	if _, err = ReadDMatrix(path.Join(dir, "missing.npy"), targetFile, nil); !os.IsNotExist(errors.Cause(err)) {
		t.Fatalf("missing file: got %v", err)
	}
}

func TestNpyErrorsAreReturned(t *testing.T) {
	dir := t.TempDir()
	if err := WriteNpy(path.Join(dir, "absent", "features.npy"), mat.NewDense(1, 1, []float64{1})); err == nil {
		t.Fatalf("write into a missing directory succeeded")
	}
	garbage := path.Join(dir, "garbage.npy")
	if err := os.WriteFile(garbage, []byte("not an npy file"), 0o600); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	if _, err := ReadNpy(garbage); err == nil {
		t.Fatalf("garbage was read as npy")
	}
	if _, err := LoadTree(garbage); err == nil {
		t.Fatalf("garbage was read as a tree")
	}
}

func TestDotString(t *testing.T) {
	tree, _ := NewID3Tree(ID3Params{MaxDepth: 2})
	if _, err := tree.DotString(); !errors.Is(err, ErrNotFitted) {
		t.Fatalf("unfitted: got %v, want ErrNotFitted", err)
	}
	if err := tree.Fit(createScenarioDMatrix(t)); err != nil {
		t.Fatalf("fit: %v", err)
	}
	dot, err := tree.DotString()
	if err != nil {
		t.Fatalf("dot: %v", err)
	}
	for _, fragment := range []string{"digraph tree", "->", "yes", "no", "box"} {
		if !strings.Contains(dot, fragment) {
			t.Errorf("dot output misses %q:\n%s", fragment, dot)
		}
	}
}
