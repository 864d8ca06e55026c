package btl

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
)

//ID3Params collect the hyperparameters of a tree.
type ID3Params struct {
	MaxDepth     int  `json:"max_depth" mapstructure:"max_depth"`
	UseGainRatio bool `json:"use_gain_ratio" mapstructure:"use_gain_ratio"`
	ThreadsNum   int  `json:"threads_num" mapstructure:"threads_num"`
}

//Validate checks the ranges of the parameters.
func (params ID3Params) Validate() error {
	if params.MaxDepth < 0 {
		return errors.Wrapf(ErrInvalidParams, "max depth %d is negative", params.MaxDepth)
	}
	if params.ThreadsNum < 0 {
		return errors.Wrapf(ErrInvalidParams, "threads number %d is negative", params.ThreadsNum)
	}
	return nil
}

//TreeNode is a node of a tree. A leaf has no children and FeatureNumber == -1.
//An internal node sends the samples that satisfy its predicate to Positive and the rest to Negative.
type TreeNode struct {
	FeatureNumber   int
	Threshold       float64
	Discrete        bool
	Positive        *TreeNode `json:",omitempty"`
	Negative        *TreeNode `json:",omitempty"`
	Label           float64
	Classes         []float64
	Counts          []int
	NumberOfObjects int
	Entropy         float64
	Gain            float64
	MaxDepth        int
}

//IsLeaf returns whether this node is a leaf.
func (node *TreeNode) IsLeaf() bool {
	return node.Positive == nil && node.Negative == nil
}

func newLeaf(lc LabelCounts, maxDepth int) *TreeNode {
	return &TreeNode{
		FeatureNumber:   -1,
		Label:           lc.Majority(),
		Classes:         lc.Classes,
		Counts:          lc.Counts,
		NumberOfObjects: lc.Total(),
		Entropy:         lc.Entropy(),
		MaxDepth:        maxDepth,
	}
}

//Satisfied evaluates the predicate of an internal node.
func (node *TreeNode) Satisfied(value float64) bool {
	if node.Discrete {
		return value == node.Threshold
	}
	return value <= node.Threshold
}

//leafFor walks from the node down to the leaf that receives the instance.
func (node *TreeNode) leafFor(instance []float64) (*TreeNode, error) {
	current := node
	for !current.IsLeaf() {
		if current.FeatureNumber < 0 || current.FeatureNumber >= len(instance) {
			return nil, errors.Wrapf(ErrMalformedInstance, "feature %d is out of an instance of length %d", current.FeatureNumber, len(instance))
		}
		if current.Satisfied(instance[current.FeatureNumber]) {
			current = current.Positive
		} else {
			current = current.Negative
		}
		if current == nil {
			return nil, errors.New("internal node with a single child")
		}
	}
	return current, nil
}

//Predict returns the label of the leaf that receives the instance.
func (node *TreeNode) Predict(instance []float64) (float64, error) {
	leaf, err := node.leafFor(instance)
	if err != nil {
		return 0, err
	}
	return leaf.Label, nil
}

//Depth returns the number of edges on the longest path down from the node.
func (node *TreeNode) Depth() int {
	if node.IsLeaf() {
		return 0
	}
	left, right := node.Positive.Depth(), node.Negative.Depth()
	if left > right {
		return left + 1
	}
	return right + 1
}

//NumberOfLeaves counts the leaves under the node.
func (node *TreeNode) NumberOfLeaves() int {
	if node.IsLeaf() {
		return 1
	}
	return node.Positive.NumberOfLeaves() + node.Negative.NumberOfLeaves()
}

//NumberOfNodes counts the nodes under the node including itself.
func (node *TreeNode) NumberOfNodes() int {
	if node.IsLeaf() {
		return 1
	}
	return 1 + node.Positive.NumberOfNodes() + node.Negative.NumberOfNodes()
}

//GraphDescription returns the description of a tree node for tree rendering as a graph
func (node *TreeNode) GraphDescription() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintln("#", node.NumberOfObjects))
	sb.WriteString(fmt.Sprintf("entropy: %6.4f\n", node.Entropy))
	if node.IsLeaf() {
		sb.WriteString(fmt.Sprintf("label: %g", node.Label))
		return sb.String()
	}
	sb.WriteString(fmt.Sprintf("gain: %6.4f\n", node.Gain))
	if node.Discrete {
		sb.WriteString(fmt.Sprintf("f_%d == %g", node.FeatureNumber, node.Threshold))
	} else {
		sb.WriteString(fmt.Sprintf("f_%d <= %6.5f", node.FeatureNumber, node.Threshold))
	}
	return sb.String()
}

//ID3Tree is a binary decision tree grown with an entropy criterion.
type ID3Tree struct {
	Params ID3Params
	Width  int
	Root   *TreeNode
}

//NewID3Tree creates an unfitted tree.
func NewID3Tree(params ID3Params) (*ID3Tree, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &ID3Tree{Params: params}, nil
}

//Fit grows the tree on the dataset. It is the only method that mutates the tree.
func (tree *ID3Tree) Fit(dm DMatrix) error {
	h, w, err := dm.validatedDimensions()
	if err != nil {
		return err
	}
	if h == 0 {
		return errors.Wrap(ErrDomain, "fit on an empty dataset")
	}
	root, err := tree.BuildTree(dm, tree.Params.MaxDepth)
	if err != nil {
		return err
	}
	tree.Width = w
	tree.Root = root
	return nil
}

//BuildTree recurrently builds a tree node with maxDepth levels left below it.
func (tree *ID3Tree) BuildTree(dm DMatrix, maxDepth int) (*TreeNode, error) {
	lc := CountLabels(dm.Labels())
	if len(lc.Classes) == 0 {
		return nil, errors.Wrap(ErrDomain, "node without samples")
	}
	node := newLeaf(lc, maxDepth)
	if maxDepth <= 0 || len(lc.Classes) == 1 {
		return node, nil
	}

	bestSplit, err := BestAttribute(dm, tree.Params.UseGainRatio, tree.Params.ThreadsNum)
	if errors.Is(err, ErrNoSplitAvailable) {
		return node, nil
	}
	if err != nil {
		return nil, err
	}

	positive, negative, err := dm.Split(*bestSplit)
	if errors.Is(err, ErrNoSplitAvailable) {
		return node, nil
	}
	if err != nil {
		return nil, err
	}

	node.FeatureNumber = bestSplit.featureIndex
	node.Threshold = bestSplit.threshold
	node.Discrete = bestSplit.discrete
	node.Gain = bestSplit.gain

	if node.Positive, err = tree.BuildTree(positive, maxDepth-1); err != nil {
		return nil, err
	}
	if node.Negative, err = tree.BuildTree(negative, maxDepth-1); err != nil {
		return nil, err
	}
	return node, nil
}

//Predict returns the label predicted for one instance.
func (tree *ID3Tree) Predict(instance []float64) (float64, error) {
	if tree.Root == nil {
		return 0, ErrNotFitted
	}
	if len(instance) != tree.Width {
		return 0, errors.Wrapf(ErrMalformedInstance, "instance has %d attributes, the tree expects %d", len(instance), tree.Width)
	}
	return tree.Root.Predict(instance)
}

//Score returns the share of training samples in the reached leaf that carry the positive label.
func (tree *ID3Tree) Score(instance []float64, positive float64) (float64, error) {
	if tree.Root == nil {
		return 0, ErrNotFitted
	}
	if len(instance) != tree.Width {
		return 0, errors.Wrapf(ErrMalformedInstance, "instance has %d attributes, the tree expects %d", len(instance), tree.Width)
	}
	leaf, err := tree.Root.leafFor(instance)
	if err != nil {
		return 0, err
	}
	lc := LabelCounts{Classes: leaf.Classes, Counts: leaf.Counts}
	if leaf.NumberOfObjects == 0 {
		return 0, nil
	}
	return float64(lc.Count(positive)) / float64(leaf.NumberOfObjects), nil
}

//Save writes the tree as JSON.
func (tree *ID3Tree) Save(filename string) (err error) {
	if tree.Root == nil {
		return ErrNotFitted
	}
	return saveJSON(filename, tree)
}

//LoadTree reads a tree written by Save.
func LoadTree(filename string) (*ID3Tree, error) {
	tree := &ID3Tree{}
	if err := loadJSON(filename, tree); err != nil {
		return nil, err
	}
	if tree.Root == nil {
		return nil, errors.Wrapf(ErrNotFitted, "%s holds no tree", filename)
	}
	return tree, nil
}

func saveJSON(filename string, v interface{}) (err error) {
	dest, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "can't open file %s to write", filename)
	}
	defer func() {
		if closeErr := dest.Close(); err == nil && closeErr != nil {
			err = errors.Wrapf(closeErr, "close %s", filename)
		}
	}()

	byteRepr, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = dest.Write(byteRepr)
	return err
}

func loadJSON(filename string, v interface{}) (err error) {
	source, err := os.Open(filename)
	if err != nil {
		return errors.Wrapf(err, "can't open file %s to read", filename)
	}
	defer func() {
		if closeErr := source.Close(); err == nil && closeErr != nil {
			err = errors.Wrapf(closeErr, "close %s", filename)
		}
	}()

	return errors.Wrapf(json.NewDecoder(source).Decode(v), "decode %s", filename)
}
