// Package iforest implements an isolation forest over small dense feature
// matrices. Trees isolate points by random axis-aligned splits; points that
// isolate in few splits are outliers. Scores follow the convention of the
// reference implementation this model replaces: negated and in (-1, 0),
// lower meaning more anomalous.
package iforest

import (
	"math"
	"math/rand"
	"sort"
)

const (
	// MinTrainingSamples is the row floor below which Fit leaves the
	// model untrained.
	MinTrainingSamples = 10

	// maxSubSample caps the per-tree sample, after which isolation depth
	// stops improving.
	maxSubSample = 256

	// eulerMascheroni approximates H(n) as ln(n) + gamma.
	eulerMascheroni = 0.5772156649
)

// Config tunes a Fit call.
type Config struct {
	// Trees is the ensemble size.
	Trees int
	// Contamination is the expected outlier fraction; the score cutoff is
	// placed at this quantile of the training scores. Clamped to (0, 0.5].
	Contamination float64
	// Seed fixes the sampling RNG so retraining on the same matrix
	// reproduces the same model.
	Seed int64
}

// DefaultConfig mirrors the deployment defaults: 100 trees, 1%
// contamination, fixed seed.
func DefaultConfig() Config {
	return Config{Trees: 100, Contamination: 0.01, Seed: 42}
}

func (c Config) normalized() Config {
	if c.Trees <= 0 {
		c.Trees = 100
	}
	if c.Contamination <= 0 {
		c.Contamination = 0.01
	}
	if c.Contamination > 0.5 {
		c.Contamination = 0.5
	}
	return c
}

// Node is one split (or leaf) of an isolation tree. Fields are exported for
// gob round-trips of the trained model.
type Node struct {
	SplitFeature int
	SplitValue   float64
	Left         *Node
	Right        *Node
	Size         int
	Leaf         bool
}

// Forest is a trained (or deliberately untrained) model. All state needed
// to reproduce predictions survives serialization.
type Forest struct {
	Trees     []*Node
	SubSample int
	Features  int
	Offset    float64
	Trained   bool
}

// Prediction is one scoring verdict. Score is meaningless unless the model
// is trained.
type Prediction struct {
	IsOutlier bool
	Score     float64
}

// Fit trains a forest on the feature matrix. Fewer than MinTrainingSamples
// rows yield an untrained forest rather than an error; training is
// best-effort.
func Fit(x [][]float64, cfg Config) *Forest {
	if len(x) < MinTrainingSamples || len(x[0]) == 0 {
		return &Forest{}
	}
	cfg = cfg.normalized()

	subSample := len(x)
	if subSample > maxSubSample {
		subSample = maxSubSample
	}
	maxDepth := int(math.Ceil(math.Log2(float64(subSample))))
	if maxDepth < 1 {
		maxDepth = 1
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	f := &Forest{
		Trees:     make([]*Node, 0, cfg.Trees),
		SubSample: subSample,
		Features:  len(x[0]),
		Trained:   true,
	}
	for i := 0; i < cfg.Trees; i++ {
		sample := sampleRows(rng, x, subSample)
		f.Trees = append(f.Trees, buildNode(rng, sample, 0, maxDepth))
	}

	// Cutoff at the contamination quantile of the training scores: the
	// lowest-scoring contamination fraction of training rows lands below
	// it and would be flagged.
	scores := make([]float64, len(x))
	for i, row := range x {
		scores[i] = f.Score(row)
	}
	sort.Float64s(scores)
	f.Offset = quantile(scores, cfg.Contamination)

	return f
}

// Score returns the anomaly score for one feature vector, in (-1, 0) with
// lower meaning more anomalous. Untrained or mis-shaped input scores 0.
func (f *Forest) Score(x []float64) float64 {
	if !f.Trained || len(f.Trees) == 0 || len(x) != f.Features {
		return 0
	}

	total := 0.0
	for _, tree := range f.Trees {
		total += pathLength(tree, x, 0)
	}
	avg := total / float64(len(f.Trees))

	return -math.Pow(2, -avg/averagePathLength(f.SubSample))
}

// Predict scores one feature vector against the trained cutoff.
func (f *Forest) Predict(x []float64) Prediction {
	if !f.Trained {
		return Prediction{}
	}
	score := f.Score(x)
	return Prediction{IsOutlier: score < f.Offset, Score: score}
}

// sampleRows takes subSample rows without replacement.
func sampleRows(rng *rand.Rand, x [][]float64, subSample int) [][]float64 {
	shuffled := make([][]float64, len(x))
	copy(shuffled, x)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled[:subSample]
}

func buildNode(rng *rand.Rand, data [][]float64, depth, maxDepth int) *Node {
	if len(data) <= 1 || depth >= maxDepth || allIdentical(data) {
		return &Node{Size: len(data), Leaf: true}
	}

	feature := rng.Intn(len(data[0]))
	minVal, maxVal := featureRange(data, feature)
	if minVal == maxVal {
		// Constant feature; treat as unsplittable here.
		return &Node{Size: len(data), Leaf: true}
	}
	split := minVal + rng.Float64()*(maxVal-minVal)

	var left, right [][]float64
	for _, row := range data {
		if row[feature] < split {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return &Node{Size: len(data), Leaf: true}
	}

	return &Node{
		SplitFeature: feature,
		SplitValue:   split,
		Left:         buildNode(rng, left, depth+1, maxDepth),
		Right:        buildNode(rng, right, depth+1, maxDepth),
		Size:         len(data),
	}
}

func pathLength(node *Node, x []float64, depth int) float64 {
	if node.Leaf {
		return float64(depth) + averagePathLength(node.Size)
	}
	if x[node.SplitFeature] < node.SplitValue {
		return pathLength(node.Left, x, depth+1)
	}
	return pathLength(node.Right, x, depth+1)
}

// averagePathLength is c(n), the expected unsuccessful-search depth in a
// BST of n points: 2H(n-1) - 2(n-1)/n.
func averagePathLength(n int) float64 {
	if n <= 1 {
		return 0
	}
	if n == 2 {
		return 1
	}
	h := math.Log(float64(n-1)) + eulerMascheroni
	return 2*h - 2*float64(n-1)/float64(n)
}

func allIdentical(data [][]float64) bool {
	first := data[0]
	for _, row := range data[1:] {
		for j := range first {
			if math.Abs(row[j]-first[j]) > 1e-10 {
				return false
			}
		}
	}
	return true
}

func featureRange(data [][]float64, feature int) (float64, float64) {
	minVal := data[0][feature]
	maxVal := data[0][feature]
	for _, row := range data {
		v := row[feature]
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	return minVal, maxVal
}

// quantile interpolates linearly over sorted ascending values, q in [0, 1].
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	rank := q * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower < 0 {
		return sorted[0]
	}
	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	if lower == upper {
		return sorted[lower]
	}
	frac := rank - float64(lower)
	return sorted[lower] + (sorted[upper]-sorted[lower])*frac
}
