package tree

import (
	"math"
	"math/rand/v2"
	"sort"
)

// featureThreshold is the smallest gap between two feature values that is
// treated as distinct.
const featureThreshold = 1e-7

// Node is one node of a fitted tree. Leaves have Feature == -1.
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	// Value holds the class distribution of the training samples in the
	// node, normalised to sum to 1.
	Value            []float64
	Impurity         float64
	NSamples         int
	WeightedNSamples float64
	Depth            int
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool { return n.Feature < 0 }

type impurityFunc func(counts []float64, total float64) float64

func gini(counts []float64, total float64) float64 {
	if total <= 0 {
		return 0
	}
	sum := 0.0
	for _, c := range counts {
		p := c / total
		sum += p * p
	}
	return 1 - sum
}

func entropy(counts []float64, total float64) float64 {
	if total <= 0 {
		return 0
	}
	h := 0.0
	for _, c := range counts {
		if c > 0 {
			p := c / total
			h -= p * math.Log2(p)
		}
	}
	return h
}

// builder grows a CART tree depth first. samples holds the indices of the
// training rows with non-zero weight; each node owns samples[start:end].
type builder struct {
	cols        [][]float64
	y           []int
	w           []float64
	nClasses    int
	impurity    impurityFunc
	maxDepth    int
	minSplit    int
	minLeaf     int
	maxFeatures int
	rng         *rand.Rand

	samples     []int
	xf          []float64
	nodes       []Node
	importances []float64
}

type split struct {
	feature     int
	threshold   float64
	pos         int
	improvement float64
	impLeft     float64
	impRight    float64
	wLeft       float64
	wRight      float64
}

type pending struct {
	start, end int
	depth      int
	parent     int
	isLeft     bool
}

func (b *builder) build() {
	nFeatures := len(b.cols)
	b.importances = make([]float64, nFeatures)
	b.samples = b.samples[:0]
	for i, w := range b.w {
		if w > 0 {
			b.samples = append(b.samples, i)
		}
	}
	b.xf = make([]float64, len(b.samples))

	stack := []pending{{start: 0, end: len(b.samples), depth: 0, parent: -1}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		counts, wN := b.classCounts(p.start, p.end)
		imp := b.impurity(counts, wN)
		nNode := p.end - p.start

		id := len(b.nodes)
		value := make([]float64, b.nClasses)
		for k, c := range counts {
			if wN > 0 {
				value[k] = c / wN
			}
		}
		b.nodes = append(b.nodes, Node{
			Feature:          -1,
			Left:             -1,
			Right:            -1,
			Value:            value,
			Impurity:         imp,
			NSamples:         nNode,
			WeightedNSamples: wN,
			Depth:            p.depth,
		})
		if p.parent >= 0 {
			if p.isLeft {
				b.nodes[p.parent].Left = id
			} else {
				b.nodes[p.parent].Right = id
			}
		}

		isLeaf := (b.maxDepth > 0 && p.depth >= b.maxDepth) ||
			nNode < b.minSplit ||
			nNode < 2*b.minLeaf ||
			imp <= 1e-12
		if isLeaf {
			continue
		}

		best, ok := b.findSplit(p.start, p.end, counts, wN, imp)
		if !ok {
			continue
		}
		b.partition(p.start, p.end, best)

		b.nodes[id].Feature = best.feature
		b.nodes[id].Threshold = best.threshold
		b.importances[best.feature] += wN*imp - best.wLeft*best.impLeft - best.wRight*best.impRight

		// right first so the left subtree is built first
		stack = append(stack,
			pending{start: best.pos, end: p.end, depth: p.depth + 1, parent: id, isLeft: false},
			pending{start: p.start, end: best.pos, depth: p.depth + 1, parent: id, isLeft: true},
		)
	}
}

func (b *builder) classCounts(start, end int) ([]float64, float64) {
	counts := make([]float64, b.nClasses)
	total := 0.0
	for _, s := range b.samples[start:end] {
		counts[b.y[s]] += b.w[s]
		total += b.w[s]
	}
	return counts, total
}

// findSplit examines features in random order until maxFeatures
// non-constant ones were seen and returns the split with the largest
// impurity decrease. A valid split is returned even if the decrease is zero.
func (b *builder) findSplit(start, end int, counts []float64, wN, parentImp float64) (split, bool) {
	best := split{improvement: math.Inf(-1)}
	found := false

	left := make([]float64, b.nClasses)
	right := make([]float64, b.nClasses)
	samples := b.samples[start:end]
	xf := b.xf[start:end]

	visited := 0
	for _, f := range b.rng.Perm(len(b.cols)) {
		if visited >= b.maxFeatures {
			break
		}
		col := b.cols[f]
		for k, s := range samples {
			xf[k] = col[s]
		}
		sort.Sort(byValue{x: xf, s: samples})
		if xf[len(xf)-1] <= xf[0]+featureThreshold {
			continue
		}
		visited++

		for k := range left {
			left[k] = 0
		}
		copy(right, counts)
		wl, wr := 0.0, wN

		for p := 1; p < len(samples); p++ {
			s := samples[p-1]
			left[b.y[s]] += b.w[s]
			right[b.y[s]] -= b.w[s]
			wl += b.w[s]
			wr -= b.w[s]

			if xf[p] <= xf[p-1]+featureThreshold {
				continue
			}
			if p < b.minLeaf || len(samples)-p < b.minLeaf {
				continue
			}

			impL := b.impurity(left, wl)
			impR := b.impurity(right, wr)
			improvement := parentImp - (wl/wN)*impL - (wr/wN)*impR
			if improvement > best.improvement {
				threshold := (xf[p-1] + xf[p]) / 2
				if threshold == xf[p] || math.IsInf(threshold, 0) {
					threshold = xf[p-1]
				}
				best = split{
					feature:     f,
					threshold:   threshold,
					pos:         start + p,
					improvement: improvement,
					impLeft:     impL,
					impRight:    impR,
					wLeft:       wl,
					wRight:      wr,
				}
				found = true
			}
		}
	}
	return best, found
}

// partition reorders samples[start:end] so that rows going left come first.
func (b *builder) partition(start, end int, sp split) {
	col := b.cols[sp.feature]
	i, j := start, end-1
	for i <= j {
		if col[b.samples[i]] <= sp.threshold {
			i++
			continue
		}
		b.samples[i], b.samples[j] = b.samples[j], b.samples[i]
		j--
	}
}

type byValue struct {
	x []float64
	s []int
}

func (v byValue) Len() int           { return len(v.x) }
func (v byValue) Less(i, j int) bool { return v.x[i] < v.x[j] }
func (v byValue) Swap(i, j int) {
	v.x[i], v.x[j] = v.x[j], v.x[i]
	v.s[i], v.s[j] = v.s[j], v.s[i]
}
