// Package entropy holds the pure, storage-independent statistics shared by
// both trie realizations: the node entropy formula, entropy variation,
// Welford's online normalization accumulator and the autonomy z-score.
package entropy

import "math"

// ChildCount is one positive-count child's contribution to its parent's
// entropy: its occurrence count and whether its symbol is a terminal.
type ChildCount struct {
	Count    uint64
	Terminal bool
}

// Compute returns the Shannon entropy of a node's successor distribution
// (spec §4.2). Terminal children fold into the "bounded by the prefix count"
// regime: they contribute as though they were a single fully-predictable
// event weighted by their relative frequency. Children with Count == 0 are
// skipped. Returns NaN if count is 0 or no child has a positive count.
func Compute(count uint64, children []ChildCount) float64 {
	if count == 0 {
		return math.NaN()
	}
	var h float64
	sawChild := false
	for _, c := range children {
		if c.Count == 0 {
			continue
		}
		sawChild = true
		p := float64(c.Count) / float64(count)
		if c.Terminal {
			h += p * math.Log2(float64(count))
		} else {
			h += -p * math.Log2(p)
		}
	}
	if !sawChild {
		return math.NaN()
	}
	if h < 0 {
		// guard against floating point noise; entropy is non-negative by construction (P5)
		h = 0
	}
	return h
}

// EV computes the entropy variation between a node and its parent. NaN
// propagates from either side; if both entropies are exactly zero the
// variation is defined as NaN ("no information"), per spec §4.1.
func EV(nodeEntropy, parentEntropy float64) float64 {
	if math.IsNaN(nodeEntropy) || math.IsNaN(parentEntropy) {
		return math.NaN()
	}
	if nodeEntropy == 0 && parentEntropy == 0 {
		return math.NaN()
	}
	return nodeEntropy - parentEntropy
}

// NormEntry summarizes the distribution of entropy variations observed at
// one depth during the last update_stats recomputation.
type NormEntry struct {
	Mean  float64
	Stdev float64
	Count uint64
}

// Accumulator computes NormEntry incrementally with Welford's online
// mean/variance algorithm, avoiding a second pass over the observations.
type Accumulator struct {
	count uint64
	mean  float64
	m2    float64
}

func (a *Accumulator) Add(x float64) {
	a.count++
	d := x - a.mean
	a.mean += d / float64(a.count)
	a.m2 += d * (x - a.mean)
}

// Finalize returns the (mean, stdev, count) triple. An accumulator that
// never saw a sample finalizes to the zero NormEntry, per spec §4.4.
func (a *Accumulator) Finalize() NormEntry {
	if a.count == 0 {
		return NormEntry{}
	}
	return NormEntry{
		Mean:  a.mean,
		Stdev: math.Sqrt(a.m2 / float64(a.count)),
		Count: a.count,
	}
}

// Autonomy z-scores an entropy variation against the per-depth
// normalization entry, making ev comparable across n-gram lengths. NaN if
// ev is NaN, the entry has no samples (normalization vector not deep
// enough), or its stdev is zero.
func Autonomy(ev float64, entry NormEntry) float64 {
	if math.IsNaN(ev) || entry.Count == 0 || entry.Stdev == 0 {
		return math.NaN()
	}
	return (ev - entry.Mean) / entry.Stdev
}
