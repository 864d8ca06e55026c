package btl

import (
	"math/rand"
	"path"
	"testing"

	"github.com/pkg/errors"
)

func createScenarioDMatrix(t *testing.T) DMatrix {
	dm, err := NewDMatrix(
		[][]float64{{1, 5}, {2, 5}, {8, 1}, {9, 1}},
		[]float64{1, 1, 0, 0},
		nil,
	)
	if err != nil {
		t.Fatalf("matrix: %v", err)
	}
	return dm
}

func createRandomDMatrix(t *testing.T, seed int64, h, w int) DMatrix {
	rng := rand.New(rand.NewSource(seed))
	rows := make([][]float64, h)
	labels := make([]float64, h)
	for p := range rows {
		rows[p] = make([]float64, w)
		for q := range rows[p] {
			rows[p][q] = float64(rng.Intn(10))
		}
		// the label depends on the first two columns with some noise
		if rows[p][0]+rows[p][1] > 9 || rng.Float64() < 0.1 {
			labels[p] = 1
		}
	}
	dm, err := NewDMatrix(rows, labels, nil)
	if err != nil {
		t.Fatalf("matrix: %v", err)
	}
	return dm
}

func TestEndToEndScenario(t *testing.T) {
	tree, err := NewID3Tree(ID3Params{MaxDepth: 3})
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	if err = tree.Fit(createScenarioDMatrix(t)); err != nil {
		t.Fatalf("fit: %v", err)
	}
	if tree.Root.FeatureNumber != 0 || tree.Root.Threshold != 5 {
		t.Fatalf("root splits f_%d at %v, want f_0 at 5", tree.Root.FeatureNumber, tree.Root.Threshold)
	}
	if tree.Root.Depth() != 1 || tree.Root.NumberOfLeaves() != 2 || tree.Root.NumberOfNodes() != 3 {
		t.Fatalf("unexpected shape: depth %d, leaves %d, nodes %d",
			tree.Root.Depth(), tree.Root.NumberOfLeaves(), tree.Root.NumberOfNodes())
	}
	for _, tc := range []struct {
		instance []float64
		want     float64
	}{
		{[]float64{1, 5}, 1},
		{[]float64{9, 1}, 0},
		{[]float64{1.5, 5}, 1},
		{[]float64{5, 0}, 1},
		{[]float64{8.5, 1}, 0},
		{[]float64{100, 5}, 0},
	} {
		got, err := tree.Predict(tc.instance)
		if err != nil {
			t.Fatalf("predict %v: %v", tc.instance, err)
		}
		if got != tc.want {
			t.Errorf("predict %v = %v, want %v", tc.instance, got, tc.want)
		}
	}
}

func TestDepthZeroIsMajorityLeaf(t *testing.T) {
	dm, err := NewDMatrix([][]float64{{1}, {2}, {3}}, []float64{1, 0, 0}, nil)
	if err != nil {
		t.Fatalf("matrix: %v", err)
	}
	tree, _ := NewID3Tree(ID3Params{MaxDepth: 0})
	if err = tree.Fit(dm); err != nil {
		t.Fatalf("fit: %v", err)
	}
	if !tree.Root.IsLeaf() || tree.Root.Label != 0 {
		t.Fatalf("root = %+v, want a leaf labeled 0", tree.Root)
	}
}

func TestPureLabelsGiveLeaf(t *testing.T) {
	dm, err := NewDMatrix([][]float64{{1, 7}, {2, 3}, {3, 5}}, []float64{4, 4, 4}, nil)
	if err != nil {
		t.Fatalf("matrix: %v", err)
	}
	tree, _ := NewID3Tree(ID3Params{MaxDepth: 10})
	if err = tree.Fit(dm); err != nil {
		t.Fatalf("fit: %v", err)
	}
	if !tree.Root.IsLeaf() || tree.Root.Label != 4 || tree.Root.Entropy != 0 {
		t.Fatalf("root = %+v, want a pure leaf labeled 4", tree.Root)
	}
}

func TestIndistinguishableRowsGiveLeaf(t *testing.T) {
	dm, err := NewDMatrix([][]float64{{1, 1}, {1, 1}, {1, 1}}, []float64{1, 0, 0}, nil)
	if err != nil {
		t.Fatalf("matrix: %v", err)
	}
	tree, _ := NewID3Tree(ID3Params{MaxDepth: 5})
	if err = tree.Fit(dm); err != nil {
		t.Fatalf("fit: %v", err)
	}
	if !tree.Root.IsLeaf() || tree.Root.Label != 0 {
		t.Fatalf("root = %+v, want a leaf labeled 0", tree.Root)
	}
}

func TestSplitPartitionsExactly(t *testing.T) {
	dm := createRandomDMatrix(t, 1, 50, 3)
	split, err := BestAttribute(dm, false, 1)
	if err != nil {
		t.Fatalf("best attribute: %v", err)
	}
	positive, negative, err := dm.Split(*split)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if Height(positive.Features)+Height(negative.Features) != Height(dm.Features) {
		t.Fatalf("%d + %d rows after the split of %d", Height(positive.Features), Height(negative.Features), Height(dm.Features))
	}
	seen := make(map[int]bool)
	for _, part := range []struct {
		dm        DMatrix
		satisfied bool
	}{{positive, true}, {negative, false}} {
		for p := 0; p < Height(part.dm.Features); p++ {
			if split.Satisfied(part.dm.Features.At(p, split.FeatureIndex())) != part.satisfied {
				t.Fatalf("row %d is on the wrong side", part.dm.RecordIds[p])
			}
			seen[part.dm.RecordIds[p]] = true
		}
	}
	if len(seen) != Height(dm.Features) {
		t.Fatalf("%d distinct rows after the split of %d", len(seen), Height(dm.Features))
	}
}

func TestParallelBestAttributeMatchesSequential(t *testing.T) {
	dm := createRandomDMatrix(t, 2, 80, 6)
	for _, useGainRatio := range []bool{false, true} {
		sequential, err := BestAttribute(dm, useGainRatio, 1)
		if err != nil {
			t.Fatalf("sequential: %v", err)
		}
		parallel, err := BestAttribute(dm, useGainRatio, 4)
		if err != nil {
			t.Fatalf("parallel: %v", err)
		}
		if sequential.FeatureIndex() != parallel.FeatureIndex() || sequential.Threshold() != parallel.Threshold() {
			t.Fatalf("sequential f_%d at %v, parallel f_%d at %v",
				sequential.FeatureIndex(), sequential.Threshold(), parallel.FeatureIndex(), parallel.Threshold())
		}
	}
}

func TestDiscreteColumnSplitsByEquality(t *testing.T) {
	dm, err := NewDMatrix(
		[][]float64{{0}, {2}, {1}, {2}, {0}, {1}},
		[]float64{0, 1, 0, 1, 0, 0},
		[]bool{true},
	)
	if err != nil {
		t.Fatalf("matrix: %v", err)
	}
	tree, _ := NewID3Tree(ID3Params{MaxDepth: 2})
	if err = tree.Fit(dm); err != nil {
		t.Fatalf("fit: %v", err)
	}
	if !tree.Root.Discrete || tree.Root.Threshold != 2 {
		t.Fatalf("root = %+v, want an equality test on 2", tree.Root)
	}
	for value, want := range map[float64]float64{0: 0, 1: 0, 2: 1, 3: 0} {
		got, err := tree.Predict([]float64{value})
		if err != nil {
			t.Fatalf("predict: %v", err)
		}
		if got != want {
			t.Errorf("predict %v = %v, want %v", value, got, want)
		}
	}
}

func TestPredictErrors(t *testing.T) {
	tree, _ := NewID3Tree(ID3Params{MaxDepth: 2})
	if _, err := tree.Predict([]float64{1, 2}); !errors.Is(err, ErrNotFitted) {
		t.Fatalf("unfitted: got %v, want ErrNotFitted", err)
	}
	if err := tree.Fit(createScenarioDMatrix(t)); err != nil {
		t.Fatalf("fit: %v", err)
	}
	if _, err := tree.Predict([]float64{1}); !errors.Is(err, ErrMalformedInstance) {
		t.Fatalf("short instance: got %v, want ErrMalformedInstance", err)
	}
	if _, err := NewID3Tree(ID3Params{MaxDepth: -1}); !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("negative depth: got %v, want ErrInvalidParams", err)
	}
}

func TestTreeScore(t *testing.T) {
	tree, _ := NewID3Tree(ID3Params{MaxDepth: 0})
	if err := tree.Fit(createScenarioDMatrix(t)); err != nil {
		t.Fatalf("fit: %v", err)
	}
	score, err := tree.Score([]float64{1, 5}, 1)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if score != 0.5 {
		t.Fatalf("score = %v, want 0.5", score)
	}
}

func TestSaveLoadTree(t *testing.T) {
	dm := createRandomDMatrix(t, 3, 60, 4)
	tree, _ := NewID3Tree(ID3Params{MaxDepth: 4})
	if err := tree.Fit(dm); err != nil {
		t.Fatalf("fit: %v", err)
	}
	filename := path.Join(t.TempDir(), "tree.json")
	if err := SaveLearner(tree, filename); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := LoadLearner(filename)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, ok := loaded.(*ID3Tree); !ok {
		t.Fatalf("loaded %T, want *ID3Tree", loaded)
	}
	expected, err := PredictDense(tree, dm.Features)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	actual, err := PredictDense(loaded, dm.Features)
	if err != nil {
		t.Fatalf("predict loaded: %v", err)
	}
	for p := 0; p < Height(dm.Features); p++ {
		if expected.At(p, 0) != actual.At(p, 0) {
			t.Fatalf("row %d: %v before save, %v after load", p, expected.At(p, 0), actual.At(p, 0))
		}
	}
}
