package ml

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// TreeNode is one node of a regression tree. Fields are exported so trained
// trees survive a gob round-trip.
type TreeNode struct {
	Leaf      bool
	Value     float64
	Feature   int
	Threshold float64
	Left      *TreeNode
	Right     *TreeNode
}

func (n *TreeNode) predict(row []float64) float64 {
	if n.Leaf {
		return n.Value
	}
	if row[n.Feature] <= n.Threshold {
		return n.Left.predict(row)
	}
	return n.Right.predict(row)
}

// ForestOptions control random forest fitting.
type ForestOptions struct {
	NEstimators int
	MaxDepth    int
	MinLeaf     int
	Seed        int64
}

// RandomForest is a bagged ensemble of depth-limited regression trees.
type RandomForest struct {
	Trees       []*TreeNode
	NFeatures   int
	Importances []float64
	Options     ForestOptions
}

// NewRandomForest applies defaults matching the offline training setup.
func NewRandomForest(opts ForestOptions) *RandomForest {
	if opts.NEstimators <= 0 {
		opts.NEstimators = 100
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = 3
	}
	if opts.MinLeaf <= 0 {
		opts.MinLeaf = 1
	}
	return &RandomForest{Options: opts}
}

// Fit trains the forest on X (rows x features) against target y. Each tree
// sees a seeded bootstrap sample and considers a random feature subset per
// split, so repeated runs with the same seed reproduce the same model.
func (f *RandomForest) Fit(X [][]float64, y []float64) error {
	if len(X) == 0 {
		return fmt.Errorf("fit: empty training matrix")
	}
	if len(X) != len(y) {
		return fmt.Errorf("fit: %d rows but %d targets", len(X), len(y))
	}

	f.NFeatures = len(X[0])
	f.Trees = make([]*TreeNode, 0, f.Options.NEstimators)
	f.Importances = make([]float64, f.NFeatures)

	mtry := f.NFeatures / 3
	if mtry < 1 {
		mtry = 1
	}

	for i := 0; i < f.Options.NEstimators; i++ {
		rng := rand.New(rand.NewSource(f.Options.Seed + int64(i)))
		indices := make([]int, len(X))
		for j := range indices {
			indices[j] = rng.Intn(len(X))
		}
		builder := &treeBuilder{
			x:           X,
			y:           y,
			maxDepth:    f.Options.MaxDepth,
			minLeaf:     f.Options.MinLeaf,
			mtry:        mtry,
			rng:         rng,
			importances: f.Importances,
		}
		f.Trees = append(f.Trees, builder.build(indices, 0))
	}

	normalize(f.Importances)
	return nil
}

// Predict averages the per-tree predictions for every row.
func (f *RandomForest) Predict(X [][]float64) ([]float64, error) {
	if len(f.Trees) == 0 {
		return nil, fmt.Errorf("predict: forest not fitted")
	}
	out := make([]float64, len(X))
	for i, row := range X {
		if len(row) != f.NFeatures {
			return nil, fmt.Errorf("predict: row %d has %d features, model expects %d", i, len(row), f.NFeatures)
		}
		sum := 0.0
		for _, tree := range f.Trees {
			sum += tree.predict(row)
		}
		out[i] = sum / float64(len(f.Trees))
	}
	return out, nil
}

// FeatureImportances returns normalised impurity-decrease importances in the
// model's column order.
func (f *RandomForest) FeatureImportances() []float64 {
	return append([]float64(nil), f.Importances...)
}

type treeBuilder struct {
	x           [][]float64
	y           []float64
	maxDepth    int
	minLeaf     int
	mtry        int
	rng         *rand.Rand
	importances []float64
}

func (b *treeBuilder) build(indices []int, depth int) *TreeNode {
	mean, sse := meanSSE(b.y, indices)
	if depth >= b.maxDepth || len(indices) < 2*b.minLeaf || sse == 0 {
		return &TreeNode{Leaf: true, Value: mean}
	}

	feature, threshold, gain, ok := b.bestSplit(indices, sse)
	if !ok {
		return &TreeNode{Leaf: true, Value: mean}
	}

	left := make([]int, 0, len(indices))
	right := make([]int, 0, len(indices))
	for _, idx := range indices {
		if b.x[idx][feature] <= threshold {
			left = append(left, idx)
		} else {
			right = append(right, idx)
		}
	}
	if len(left) < b.minLeaf || len(right) < b.minLeaf {
		return &TreeNode{Leaf: true, Value: mean}
	}

	b.importances[feature] += gain

	return &TreeNode{
		Feature:   feature,
		Threshold: threshold,
		Left:      b.build(left, depth+1),
		Right:     b.build(right, depth+1),
	}
}

// bestSplit scans a random feature subset and returns the split that most
// reduces the sum of squared errors.
func (b *treeBuilder) bestSplit(indices []int, parentSSE float64) (feature int, threshold, gain float64, ok bool) {
	features := b.rng.Perm(len(b.x[0]))[:b.mtry]

	bestGain := 0.0
	for _, feat := range features {
		pairs := make([]valueTarget, len(indices))
		for i, idx := range indices {
			pairs[i] = valueTarget{value: b.x[idx][feat], target: b.y[idx]}
		}
		sort.Slice(pairs, func(i, j int) bool { return pairs[i].value < pairs[j].value })

		total := 0.0
		totalSq := 0.0
		for _, p := range pairs {
			total += p.target
			totalSq += p.target * p.target
		}

		leftSum := 0.0
		leftSq := 0.0
		n := float64(len(pairs))
		for i := 0; i < len(pairs)-1; i++ {
			leftSum += pairs[i].target
			leftSq += pairs[i].target * pairs[i].target
			if pairs[i].value == pairs[i+1].value {
				continue
			}
			nl := float64(i + 1)
			nr := n - nl
			sseLeft := leftSq - leftSum*leftSum/nl
			rightSum := total - leftSum
			sseRight := (totalSq - leftSq) - rightSum*rightSum/nr
			g := parentSSE - sseLeft - sseRight
			if g > bestGain {
				bestGain = g
				feature = feat
				threshold = (pairs[i].value + pairs[i+1].value) / 2
			}
		}
	}

	if bestGain <= 0 {
		return 0, 0, 0, false
	}
	return feature, threshold, bestGain, true
}

type valueTarget struct {
	value  float64
	target float64
}

func meanSSE(y []float64, indices []int) (mean, sse float64) {
	if len(indices) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, idx := range indices {
		sum += y[idx]
	}
	mean = sum / float64(len(indices))
	for _, idx := range indices {
		d := y[idx] - mean
		sse += d * d
	}
	if math.IsNaN(sse) {
		sse = 0
	}
	return mean, sse
}

func normalize(values []float64) {
	total := 0.0
	for _, v := range values {
		total += v
	}
	if total == 0 {
		return
	}
	for i := range values {
		values[i] /= total
	}
}
