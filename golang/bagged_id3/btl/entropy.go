package btl

import (
	"math"

	"github.com/emirpasic/gods/sets/linkedhashset"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/stat"
)

// gainEpsilon absorbs rounding noise: a gain not above it counts as no gain.
const gainEpsilon = 1e-12

//LabelCounts keeps the distinct labels of a sample in first-seen order together with their counts.
type LabelCounts struct {
	Classes []float64
	Counts  []int
}

//CountLabels counts the labels in insertion order.
func CountLabels(labels []float64) LabelCounts {
	var lc LabelCounts
	for _, label := range labels {
		lc.Add(label)
	}
	return lc
}

//Add registers one more occurrence of a label.
func (lc *LabelCounts) Add(label float64) {
	if ind := slices.Index(lc.Classes, label); ind >= 0 {
		lc.Counts[ind]++
		return
	}
	lc.Classes = append(lc.Classes, label)
	lc.Counts = append(lc.Counts, 1)
}

//Total returns the number of counted labels.
func (lc LabelCounts) Total() int {
	total := 0
	for _, c := range lc.Counts {
		total += c
	}
	return total
}

//Count returns how many times a label was counted.
func (lc LabelCounts) Count(label float64) int {
	if ind := slices.Index(lc.Classes, label); ind >= 0 {
		return lc.Counts[ind]
	}
	return 0
}

//Majority returns the most frequent label. Ties go to the label seen first.
func (lc LabelCounts) Majority() float64 {
	best := 0
	for ind, c := range lc.Counts {
		if c > lc.Counts[best] {
			best = ind
		}
	}
	return lc.Classes[best]
}

//Entropy returns the entropy in bits of the counted distribution; an empty distribution has zero entropy.
func (lc LabelCounts) Entropy() float64 {
	return entropyOfCounts(lc.Counts)
}

func entropyOfCounts(counts []int) float64 {
	total := 0
	nonZero := 0
	for _, c := range counts {
		total += c
		if c > 0 {
			nonZero++
		}
	}
	if nonZero <= 1 {
		return 0.0
	}
	p := make([]float64, len(counts))
	for ind, c := range counts {
		p[ind] = float64(c) / float64(total)
	}
	return stat.Entropy(p) / math.Ln2
}

//Entropy returns the Shannon entropy in bits of a label sequence.
func Entropy(labels []float64) (float64, error) {
	if len(labels) == 0 {
		return 0, errors.Wrap(ErrDomain, "entropy of an empty label set")
	}
	return CountLabels(labels).Entropy(), nil
}

//weightedEntropy is p*H(positive) + (1-p)*H(negative) where p is the share of the positive side.
func weightedEntropy(positive, negative []int) float64 {
	nPositive, nNegative := 0, 0
	for ind := range positive {
		nPositive += positive[ind]
		nNegative += negative[ind]
	}
	total := nPositive + nNegative
	if total == 0 {
		return 0.0
	}
	positiveShare := float64(nPositive) / float64(total)
	return positiveShare*entropyOfCounts(positive) + (1-positiveShare)*entropyOfCounts(negative)
}

//splitScore turns the entropy of a parent and of its binary partition into the selection score.
//A positive splitInfo divides the gain, zero leaves the plain gain.
func splitScore(parentEntropy float64, positive, negative []int, splitInfo float64) (score, gain float64) {
	childEntropy := weightedEntropy(positive, negative)
	gain = math.Max(0.0, parentEntropy-childEntropy)
	if gain <= gainEpsilon {
		return 0.0, 0.0
	}
	if splitInfo == 0 {
		return gain, gain
	}
	return gain / splitInfo, gain
}

//splitInfoOf is the entropy of the attribute's own value distribution, the gain ratio divisor.
//Without useGainRatio it is 0. ok is false when the attribute holds a single value.
func splitInfoOf(attr []float64, useGainRatio bool) (splitInfo float64, ok bool) {
	if !useGainRatio {
		return 0.0, true
	}
	splitInfo = CountLabels(attr).Entropy()
	return splitInfo, splitInfo > gainEpsilon
}

//classIndices maps each label to the index of its class in lc.
func classIndices(lc LabelCounts, labels []float64) []int {
	out := make([]int, len(labels))
	for p, label := range labels {
		out[p] = slices.Index(lc.Classes, label)
	}
	return out
}

func validateColumn(attr, labels []float64) error {
	if len(labels) == 0 {
		return errors.Wrap(ErrDomain, "information gain of an empty label set")
	}
	if len(attr) != len(labels) {
		return errors.Wrapf(ErrDomain, "%d attribute values for %d labels", len(attr), len(labels))
	}
	return nil
}

//InformationGainDiscrete evaluates every distinct value of a discrete attribute as an
//equals / not-equals partition and returns the best gain with the winning value.
func InformationGainDiscrete(attr, labels []float64) (gain, value float64, err error) {
	split, err := scanDiscrete(attr, labels, false)
	if err != nil {
		return 0.0, 0.0, err
	}
	return split.bestValue, split.threshold, nil
}

//InformationGainContinuous evaluates thresholds at label transitions of the sorted attribute
//and returns the best gain with the winning threshold.
func InformationGainContinuous(attr, labels []float64) (gain, threshold float64, err error) {
	split, err := scanContinuous(attr, labels, false)
	if err != nil {
		return 0.0, 0.0, err
	}
	return split.bestValue, split.threshold, nil
}

//GainRatioDiscrete is InformationGainDiscrete scored by gain ratio: the gain divided by the
//entropy of the attribute's value distribution, so attributes with many distinct values score lower.
func GainRatioDiscrete(attr, labels []float64) (ratio, value float64, err error) {
	split, err := scanDiscrete(attr, labels, true)
	if err != nil {
		return 0.0, 0.0, err
	}
	return split.bestValue, split.threshold, nil
}

//GainRatioContinuous is InformationGainContinuous scored by gain ratio.
func GainRatioContinuous(attr, labels []float64) (ratio, threshold float64, err error) {
	split, err := scanContinuous(attr, labels, true)
	if err != nil {
		return 0.0, 0.0, err
	}
	return split.bestValue, split.threshold, nil
}

func scanDiscrete(attr, labels []float64, useGainRatio bool) (bestSplit BestSplit, err error) {
	if err = validateColumn(attr, labels); err != nil {
		return
	}
	splitInfo, ok := splitInfoOf(attr, useGainRatio)
	if !ok {
		err = errors.Wrap(ErrNoSplitAvailable, "a single attribute value has no split info")
		return
	}
	lc := CountLabels(labels)
	parentEntropy := lc.Entropy()
	classOf := classIndices(lc, labels)

	symbols := linkedhashset.New()
	for _, v := range attr {
		symbols.Add(v)
	}

	bestSplit.discrete = true
	bestSplit.currentValue = parentEntropy
	bestSplit.numberOfObjects = len(labels)

	positive := make([]int, len(lc.Classes))
	negative := make([]int, len(lc.Classes))
	for _, symbol := range symbols.Values() {
		value := symbol.(float64)
		for ind := range positive {
			positive[ind], negative[ind] = 0, 0
		}
		for p, v := range attr {
			if v == value {
				positive[classOf[p]]++
			} else {
				negative[classOf[p]]++
			}
		}
		score, gain := splitScore(parentEntropy, positive, negative, splitInfo)
		if score > bestSplit.bestValue {
			bestSplit.bestValue = score
			bestSplit.gain = gain
			bestSplit.threshold = value
			bestSplit.validSplit = true
		}
	}

	if !bestSplit.validSplit {
		err = errors.Wrapf(ErrNoSplitAvailable, "%d distinct values give no gain", symbols.Size())
	}
	return
}

func scanContinuous(attr, labels []float64, useGainRatio bool) (bestSplit BestSplit, err error) {
	if err = validateColumn(attr, labels); err != nil {
		return
	}
	splitInfo, ok := splitInfoOf(attr, useGainRatio)
	if !ok {
		err = errors.Wrap(ErrNoSplitAvailable, "a single attribute value has no split info")
		return
	}
	h := len(labels)
	lc := CountLabels(labels)
	parentEntropy := lc.Entropy()
	classOf := classIndices(lc, labels)
	order := sliceArgsort(attr)

	bestSplit.currentValue = parentEntropy
	bestSplit.numberOfObjects = h

	sortedValues := make([]float64, h)
	for ind, p := range order {
		sortedValues[ind] = attr[p]
	}

	// cumulative class counts along the sorted order
	prefix := make([][]int, h+1)
	prefix[0] = make([]int, len(lc.Classes))
	for ind, p := range order {
		prefix[ind+1] = append([]int(nil), prefix[ind]...)
		prefix[ind+1][classOf[p]]++
	}
	total := prefix[h]

	candidates := 0
	negative := make([]int, len(lc.Classes))
	for ind := 1; ind < h; ind++ {
		if labels[order[ind]] == labels[order[ind-1]] {
			continue
		}
		candidates++
		threshold := (sortedValues[ind-1] + sortedValues[ind]) / 2.0
		// rows equal to the threshold belong to the positive side
		cut := ind
		for cut < h && sortedValues[cut] <= threshold {
			cut++
		}
		if cut == h {
			continue
		}
		positive := prefix[cut]
		for c := range negative {
			negative[c] = total[c] - positive[c]
		}
		score, gain := splitScore(parentEntropy, positive, negative, splitInfo)
		if score > bestSplit.bestValue {
			bestSplit.bestValue = score
			bestSplit.gain = gain
			bestSplit.threshold = threshold
			bestSplit.orderIndex = cut
			bestSplit.validSplit = true
		}
	}

	if !bestSplit.validSplit {
		err = errors.Wrapf(ErrNoSplitAvailable, "%d label transitions give no gain", candidates)
	}
	return
}
