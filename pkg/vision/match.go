package vision

import (
	"math"
	"sort"
)

// DMatch pairs a query descriptor with a train descriptor.
type DMatch struct {
	QueryIdx int
	TrainIdx int
	Distance float64
}

// Matcher returns, for every query descriptor, its k nearest train
// descriptors ordered by distance.
type Matcher interface {
	KnnMatch(query, train [][]float32, k int) [][]DMatch
}

// BruteForce is an exhaustive L2 matcher.
type BruteForce struct{}

func (BruteForce) KnnMatch(query, train [][]float32, k int) [][]DMatch {
	out := make([][]DMatch, 0, len(query))
	for qi, q := range query {
		best := make([]DMatch, 0, k+1)
		for ti, t := range train {
			d := L2(q, t)
			if len(best) == k && d >= best[k-1].Distance {
				continue
			}
			best = append(best, DMatch{QueryIdx: qi, TrainIdx: ti, Distance: d})
			sort.SliceStable(best, func(i, j int) bool { return best[i].Distance < best[j].Distance })
			if len(best) > k {
				best = best[:k]
			}
		}
		out = append(out, best)
	}
	return out
}

// L2 is the euclidean distance between two descriptors. Extra trailing
// components of the longer one are ignored.
func L2(a, b []float32) float64 {
	n := min(len(a), len(b))
	var sum float64
	for i := 0; i < n; i++ {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// RatioTest keeps the nearest neighbour of each query when it is closer
// than ratio times the second nearest. Queries with fewer than two
// neighbours are dropped.
func RatioTest(knn [][]DMatch, ratio float64) []DMatch {
	good := make([]DMatch, 0, len(knn))
	for _, pair := range knn {
		if len(pair) < 2 {
			continue
		}
		if pair[0].Distance < ratio*pair[1].Distance {
			good = append(good, pair[0])
		}
	}
	return good
}
