package ml

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// Isolation forest over two features (quantity, unit price). Anomalous
// points isolate in fewer random splits, so shorter average path lengths
// mean more suspicious. Scores follow the decision-function convention:
// negative means flagged.

const (
	numTrees       = 100
	maxSampleSize  = 256
	eulerMascheroni = 0.5772156649015329
)

// treeNode is one node of an isolation tree. Leaves have nil children and
// remember how many training points they absorbed.
type treeNode struct {
	SplitDim int       `json:"d,omitempty"`
	SplitVal float64   `json:"v,omitempty"`
	Left     *treeNode `json:"l,omitempty"`
	Right    *treeNode `json:"r,omitempty"`
	Size     int       `json:"n"`
}

// IsolationForest is a fitted ensemble. Offset is the score-samples value at
// the contamination quantile of the training data; decision scores are
// measured relative to it.
type IsolationForest struct {
	Trees      []*treeNode `json:"trees"`
	SampleSize int         `json:"sample_size"`
	Offset     float64     `json:"offset"`
}

// Fit trains a forest on the given rows. Contamination sets the fraction of
// training data expected to score as anomalous, which fixes the decision
// offset.
func Fit(data [][2]float64, contamination float64, seed int64) (*IsolationForest, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot fit isolation forest on empty data")
	}
	if contamination <= 0 || contamination >= 1 {
		return nil, fmt.Errorf("contamination must be in (0, 1), got %v", contamination)
	}

	rng := rand.New(rand.NewSource(seed))
	sampleSize := len(data)
	if sampleSize > maxSampleSize {
		sampleSize = maxSampleSize
	}
	maxDepth := int(math.Ceil(math.Log2(float64(sampleSize))))

	forest := &IsolationForest{SampleSize: sampleSize}
	for t := 0; t < numTrees; t++ {
		sample := subsample(data, sampleSize, rng)
		forest.Trees = append(forest.Trees, buildTree(sample, 0, maxDepth, rng))
	}

	// The offset is the contamination quantile of the training scores, so
	// that roughly that fraction of training points lands below zero.
	scores := make([]float64, len(data))
	for i, row := range data {
		scores[i] = forest.scoreSamples(row)
	}
	sort.Float64s(scores)
	idx := int(contamination * float64(len(scores)))
	if idx >= len(scores) {
		idx = len(scores) - 1
	}
	forest.Offset = scores[idx]

	return forest, nil
}

// DecisionFunction scores a point relative to the fitted offset. Negative
// means anomalous, positive means normal.
func (f *IsolationForest) DecisionFunction(point [2]float64) float64 {
	return f.scoreSamples(point) - f.Offset
}

// scoreSamples is the negated anomaly score 2^(-E[h(x)]/c(psi)), in (-1, 0).
// Lower means more anomalous.
func (f *IsolationForest) scoreSamples(point [2]float64) float64 {
	total := 0.0
	for _, tree := range f.Trees {
		total += pathLength(point, tree, 0)
	}
	avg := total / float64(len(f.Trees))
	return -math.Pow(2, -avg/averagePathLength(f.SampleSize))
}

func subsample(data [][2]float64, size int, rng *rand.Rand) [][2]float64 {
	if size >= len(data) {
		return data
	}
	perm := rng.Perm(len(data))
	sample := make([][2]float64, size)
	for i := 0; i < size; i++ {
		sample[i] = data[perm[i]]
	}
	return sample
}

func buildTree(data [][2]float64, depth, maxDepth int, rng *rand.Rand) *treeNode {
	n := len(data)
	if n <= 1 || depth >= maxDepth {
		return &treeNode{Size: n}
	}

	dim := rng.Intn(2)
	lo, hi := minMax(data, dim)
	if hi <= lo {
		dim = 1 - dim
		lo, hi = minMax(data, dim)
		if hi <= lo {
			// All points identical in both dimensions.
			return &treeNode{Size: n}
		}
	}

	split := lo + rng.Float64()*(hi-lo)
	var left, right [][2]float64
	for _, row := range data {
		if row[dim] < split {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}

	return &treeNode{
		SplitDim: dim,
		SplitVal: split,
		Left:     buildTree(left, depth+1, maxDepth, rng),
		Right:    buildTree(right, depth+1, maxDepth, rng),
		Size:     n,
	}
}

func minMax(data [][2]float64, dim int) (lo, hi float64) {
	lo, hi = data[0][dim], data[0][dim]
	for _, row := range data[1:] {
		if row[dim] < lo {
			lo = row[dim]
		}
		if row[dim] > hi {
			hi = row[dim]
		}
	}
	return lo, hi
}

func pathLength(point [2]float64, node *treeNode, depth int) float64 {
	if node.Left == nil {
		return float64(depth) + averagePathLength(node.Size)
	}
	if point[node.SplitDim] < node.SplitVal {
		return pathLength(point, node.Left, depth+1)
	}
	return pathLength(point, node.Right, depth+1)
}

// averagePathLength is c(n), the expected path length of an unsuccessful
// search in a binary search tree of n nodes.
func averagePathLength(n int) float64 {
	if n <= 1 {
		return 0
	}
	if n == 2 {
		return 1
	}
	fn := float64(n)
	return 2*(math.Log(fn-1)+eulerMascheroni) - 2*(fn-1)/fn
}
