package variogram

import (
	"fmt"
	"math"
	"sort"

	"github.com/RoaringBitmap/roaring"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// excluded marks a pair that belongs to no lag class.
const excluded = -1

// maxPairs is the number of pairs the class bitmaps can index.
var maxPairs uint64 = math.MaxUint32 + 1

type lagClasses struct {
	maxlag  float64
	edges   []float64
	groups  []int
	members []*roaring.Bitmap
}

func validBinFunc(fn BinFunc) error {
	switch fn {
	case Even, Uniform:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBinningStrategy, fn)
	}
}

// resolveMaxLag turns the configured max lag into a distance. Zero means the
// largest distance, a value in (0, 1) a fraction of it.
func resolveMaxLag(maxlag, maxDist float64) float64 {
	switch {
	case maxlag <= 0:
		return maxDist
	case maxlag < 1:
		return maxlag * maxDist
	default:
		return maxlag
	}
}

// binLags assigns every pair to a lag class. keep may be nil, otherwise pairs
// with keep[k] == false are excluded. Classes are left-closed and right-open,
// the last one also holds the pairs at exactly maxlag.
func binLags(dist []float64, keep []bool, fn BinFunc, lags int, width, maxlag float64) (*lagClasses, error) {
	if err := validBinFunc(fn); err != nil {
		return nil, err
	}
	if len(dist) == 0 {
		return nil, ErrTooFewSamples
	}
	if uint64(len(dist)) > maxPairs {
		return nil, fmt.Errorf("%w: %d pairs, at most %d can be binned", ErrInvalidParameter, len(dist), maxPairs)
	}

	ml := resolveMaxLag(maxlag, floats.Max(dist))
	if ml <= 0 {
		return nil, fmt.Errorf("%w: max lag is %v, all points coincide", ErrInvalidParameter, ml)
	}

	n := lags
	if width > 0 {
		// a width deriving more classes than pairs is rejected before allocating
		limit := len(dist)
		if limit < defaultLags {
			limit = defaultLags
		}
		c := math.Ceil(ml / width)
		if c > float64(limit) {
			return nil, fmt.Errorf("%w: bin width %v gives %v lag classes for %d pairs", ErrInvalidParameter, width, c, len(dist))
		}
		n = int(c)
	}
	if n < 1 {
		return nil, fmt.Errorf("%w: %d lag classes", ErrInvalidParameter, n)
	}

	retained := func(k int) bool {
		return dist[k] <= ml && (keep == nil || keep[k])
	}

	var edges []float64
	switch fn {
	case Even:
		edges = evenEdges(n, width, ml)
	case Uniform:
		var kept []float64
		for k := range dist {
			if retained(k) {
				kept = append(kept, dist[k])
			}
		}
		edges = uniformEdges(kept, n, ml)
	}

	lc := &lagClasses{
		maxlag:  ml,
		edges:   edges,
		groups:  make([]int, len(dist)),
		members: make([]*roaring.Bitmap, n),
	}
	for b := range lc.members {
		lc.members[b] = roaring.New()
	}

	for k, d := range dist {
		if !retained(k) {
			lc.groups[k] = excluded
			continue
		}
		b := sort.Search(n, func(i int) bool { return edges[i] > d })
		if b == n {
			b = n - 1
		}
		lc.groups[k] = b
		lc.members[b].Add(uint32(k))
	}
	return lc, nil
}

func evenEdges(n int, width, maxlag float64) []float64 {
	if width <= 0 {
		width = maxlag / float64(n)
	}
	edges := make([]float64, n)
	for b := range edges {
		edges[b] = math.Min(width*float64(b+1), maxlag)
	}
	edges[n-1] = maxlag
	return edges
}

func uniformEdges(lags []float64, n int, maxlag float64) []float64 {
	if len(lags) == 0 {
		return evenEdges(n, 0, maxlag)
	}
	sort.Float64s(lags)

	edges := make([]float64, n)
	for b := range edges {
		edges[b] = stat.Quantile(float64(b+1)/float64(n), stat.LinInterp, lags, nil)
	}
	edges[n-1] = maxlag
	return edges
}

// lower returns the lower edge of class b.
func (lc *lagClasses) lower(b int) float64 {
	if b == 0 {
		return 0
	}
	return lc.edges[b-1]
}

func (lc *lagClasses) centers() []float64 {
	ret := make([]float64, len(lc.edges))
	for b := range lc.edges {
		ret[b] = (lc.lower(b) + lc.edges[b]) / 2
	}
	return ret
}

func (lc *lagClasses) counts() []int {
	ret := make([]int, len(lc.members))
	for b, m := range lc.members {
		ret[b] = int(m.GetCardinality())
	}
	return ret
}

// emptyInner returns the empty classes that lie between two non-empty ones.
func (lc *lagClasses) emptyInner() []int {
	first, last := -1, -1
	for b, m := range lc.members {
		if !m.IsEmpty() {
			if first < 0 {
				first = b
			}
			last = b
		}
	}

	var ret []int
	for b := first + 1; b < last; b++ {
		if lc.members[b].IsEmpty() {
			ret = append(ret, b)
		}
	}
	return ret
}

// gather collects the values of the pairs in class b.
func (lc *lagClasses) gather(b int, values []float64) []float64 {
	m := lc.members[b]
	ret := make([]float64, 0, m.GetCardinality())
	for it := m.Iterator(); it.HasNext(); {
		ret = append(ret, values[it.Next()])
	}
	return ret
}

func (lc *lagClasses) clone() *lagClasses {
	c := &lagClasses{
		maxlag:  lc.maxlag,
		edges:   append([]float64(nil), lc.edges...),
		groups:  append([]int(nil), lc.groups...),
		members: make([]*roaring.Bitmap, len(lc.members)),
	}
	for b, m := range lc.members {
		c.members[b] = m.Clone()
	}
	return c
}
