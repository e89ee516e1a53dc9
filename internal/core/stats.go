package core

import (
	"math"
	"slices"

	"github.com/JonMunkholm/datacleaner/internal/dataset"
)

// numbers returns the non-null numeric values of vs.
func numbers(vs []dataset.Value) []float64 {
	out := make([]float64, 0, len(vs))
	for _, v := range vs {
		if f, ok := v.Number(); ok {
			out = append(out, f)
		}
	}
	return out
}

func mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range x {
		sum += v
	}
	return sum / float64(len(x))
}

// sampleStd is the n-1 standard deviation. It is zero for fewer than two values.
func sampleStd(x []float64) float64 {
	n := len(x)
	if n < 2 {
		return 0
	}
	m := mean(x)
	ss := 0.0
	for _, v := range x {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}

// median averages the two middle values for even lengths.
func median(x []float64) float64 {
	n := len(x)
	if n == 0 {
		return 0
	}
	cp := slices.Clone(x)
	slices.Sort(cp)
	mid := n / 2
	if n%2 == 0 {
		return (cp[mid-1] + cp[mid]) / 2
	}
	return cp[mid]
}

// quantile uses linear interpolation between closest ranks, q in [0,1].
func quantile(x []float64, q float64) float64 {
	n := len(x)
	if n == 0 {
		return 0
	}
	cp := slices.Clone(x)
	slices.Sort(cp)
	if q <= 0 {
		return cp[0]
	}
	if q >= 1 {
		return cp[n-1]
	}
	rank := q * float64(n-1)
	lo := int(rank)
	if lo+1 >= n {
		return cp[lo]
	}
	w := rank - float64(lo)
	return cp[lo]*(1-w) + cp[lo+1]*w
}

// mode returns the most frequent non-null value. Among tied values the one
// seen first wins. ok is false when every value is null.
func mode(vs []dataset.Value) (dataset.Value, bool) {
	counts := make(map[string]int)
	first := make(map[string]dataset.Value)
	var order []string
	for _, v := range vs {
		if v.IsNull() {
			continue
		}
		k := v.Key()
		if _, seen := first[k]; !seen {
			first[k] = v
			order = append(order, k)
		}
		counts[k]++
	}
	if len(order) == 0 {
		return dataset.Null(), false
	}

	best := order[0]
	for _, k := range order[1:] {
		if counts[k] > counts[best] {
			best = k
		}
	}
	return first[best], true
}

func isIntegral(f float64) bool {
	return f == math.Trunc(f) && !math.IsInf(f, 0)
}

// numberValue returns Int for integral f when preferInt is set, Float otherwise.
func numberValue(f float64, preferInt bool) dataset.Value {
	if preferInt && isIntegral(f) && math.Abs(f) < 1<<62 {
		return dataset.Int(int64(f))
	}
	return dataset.Float(f)
}
