package clustering

import (
	"errors"
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Metric names, matching SciPy's pdist
const (
	MetricBrayCurtis     = "braycurtis"
	MetricCanberra       = "canberra"
	MetricChebyshev      = "chebyshev"
	MetricCityBlock      = "cityblock"
	MetricCorrelation    = "correlation"
	MetricCosine         = "cosine"
	MetricDice           = "dice"
	MetricEuclidean      = "euclidean"
	MetricHamming        = "hamming"
	MetricJaccard        = "jaccard"
	MetricJensenShannon  = "jensenshannon"
	MetricKulsinski      = "kulsinski"
	MetricMahalanobis    = "mahalanobis"
	MetricMatching       = "matching"
	MetricMinkowski      = "minkowski"
	MetricRogersTanimoto = "rogerstanimoto"
	MetricRussellRao     = "russellrao"
	MetricSEuclidean     = "seuclidean"
	MetricSokalMichener  = "sokalmichener"
	MetricSokalSneath    = "sokalsneath"
	MetricSqEuclidean    = "sqeuclidean"
	MetricYule           = "yule"
)

var (
	ErrUnknownMetric = errors.New("unknown distance metric")
	ErrEmptyInput    = errors.New("no observations to cluster")
	ErrRagged        = errors.New("observations differ in length")
	ErrNonFinite     = errors.New("non-finite value")
	ErrUndefined     = errors.New("distance is undefined")
)

// ObservationError names an observation for which the metric is undefined
type ObservationError struct {
	Row    int
	Key    string
	Metric string
	Reason string
}

func (e *ObservationError) Error() string {
	who := fmt.Sprintf("observation %d", e.Row)
	if e.Key != "" {
		who = "row " + e.Key
	}
	return fmt.Sprintf("%s: %s, the %s distance is undefined", who, e.Reason, e.Metric)
}

func (e *ObservationError) Unwrap() error {
	return ErrUndefined
}

// undefinedReason explains why metric has no value for row, or returns ""
func undefinedReason(metric string, row []float64) string {
	if len(row) == 0 {
		return ""
	}
	switch metric {
	case MetricCosine:
		if floats.Norm(row, 2) == 0 {
			return "all values are zero"
		}
	case MetricCorrelation:
		if floats.Max(row) == floats.Min(row) {
			if row[0] == 0 {
				return "all values are zero"
			}
			return "all values are equal"
		}
	}
	return ""
}

// minkowskiP is the default Minkowski order
const minkowskiP = 2

// distanceFunc returns the dissimilarity of two observations
type distanceFunc func(u, v []float64) float64

// Pdist returns the condensed pairwise distance vector of the observations:
// entry condensedIndex(n, i, j) holds d(i, j) for i < j
func Pdist(data [][]float64, metric string) ([]float64, error) {
	n := len(data)
	if n == 0 {
		return nil, ErrEmptyInput
	}
	width := len(data[0])
	for i, row := range data {
		if len(row) != width {
			return nil, fmt.Errorf("%w: row %d has %d values, expected %d", ErrRagged, i, len(row), width)
		}
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w in observation %d", ErrNonFinite, i)
			}
		}
	}

	dist, err := newDistance(metric, data)
	if err != nil {
		return nil, err
	}
	if n > 1 {
		for i, row := range data {
			if reason := undefinedReason(metric, row); reason != "" {
				return nil, &ObservationError{Row: i, Metric: metric, Reason: reason}
			}
		}
	}

	condensed := make([]float64, n*(n-1)/2)
	k := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := dist(data[i], data[j])
			if math.IsNaN(d) || math.IsInf(d, 0) {
				return nil, fmt.Errorf("%w: %s distance between observations %d and %d", ErrNonFinite, metric, i, j)
			}
			condensed[k] = d
			k++
		}
	}
	return condensed, nil
}

// condensedIndex maps i != j to its position in a condensed vector
func condensedIndex(n, i, j int) int {
	if i > j {
		i, j = j, i
	}
	return n*i - i*(i+1)/2 + j - i - 1
}

func newDistance(metric string, data [][]float64) (distanceFunc, error) {
	switch metric {
	case MetricBrayCurtis:
		return brayCurtis, nil
	case MetricCanberra:
		return canberra, nil
	case MetricChebyshev:
		return func(u, v []float64) float64 { return floats.Distance(u, v, math.Inf(1)) }, nil
	case MetricCityBlock:
		return func(u, v []float64) float64 { return floats.Distance(u, v, 1) }, nil
	case MetricCorrelation:
		return func(u, v []float64) float64 { return 1 - stat.Correlation(u, v, nil) }, nil
	case MetricCosine:
		return cosine, nil
	case MetricEuclidean:
		return func(u, v []float64) float64 { return floats.Distance(u, v, 2) }, nil
	case MetricMinkowski:
		return func(u, v []float64) float64 { return floats.Distance(u, v, minkowskiP) }, nil
	case MetricSqEuclidean:
		return sqEuclidean, nil
	case MetricHamming:
		return hamming, nil
	case MetricJaccard:
		return jaccard, nil
	case MetricJensenShannon:
		return jensenShannon, nil
	case MetricSEuclidean:
		return newSEuclidean(data)
	case MetricMahalanobis:
		return newMahalanobis(data)
	case MetricDice:
		return booleanMetric(func(c boolCounts) float64 {
			return ratio(c.tf+c.ft, 2*c.tt+c.tf+c.ft)
		}), nil
	case MetricKulsinski:
		return booleanMetric(func(c boolCounts) float64 {
			return (c.tf + c.ft - c.tt + c.n) / (c.tf + c.ft + c.n)
		}), nil
	case MetricMatching:
		return booleanMetric(func(c boolCounts) float64 {
			return (c.tf + c.ft) / c.n
		}), nil
	case MetricRogersTanimoto:
		return booleanMetric(func(c boolCounts) float64 {
			r := 2 * (c.tf + c.ft)
			return r / (c.tt + c.ff + r)
		}), nil
	case MetricRussellRao:
		return booleanMetric(func(c boolCounts) float64 {
			return (c.n - c.tt) / c.n
		}), nil
	case MetricSokalMichener:
		return booleanMetric(func(c boolCounts) float64 {
			r := 2 * (c.tf + c.ft)
			return r / (c.tt + c.ff + r)
		}), nil
	case MetricSokalSneath:
		return booleanMetric(func(c boolCounts) float64 {
			r := 2 * (c.tf + c.ft)
			return r / (c.tt + r)
		}), nil
	case MetricYule:
		return booleanMetric(func(c boolCounts) float64 {
			half := c.tf * c.ft
			if half == 0 {
				return 0
			}
			return 2 * half / (c.tt*c.ff + half)
		}), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMetric, metric)
}

func brayCurtis(u, v []float64) float64 {
	var num, den float64
	for i := range u {
		num += math.Abs(u[i] - v[i])
		den += math.Abs(u[i] + v[i])
	}
	return num / den
}

// canberra skips terms where both values are zero
func canberra(u, v []float64) float64 {
	var d float64
	for i := range u {
		den := math.Abs(u[i]) + math.Abs(v[i])
		if den == 0 {
			continue
		}
		d += math.Abs(u[i]-v[i]) / den
	}
	return d
}

func cosine(u, v []float64) float64 {
	return 1 - floats.Dot(u, v)/(floats.Norm(u, 2)*floats.Norm(v, 2))
}

func sqEuclidean(u, v []float64) float64 {
	var d float64
	for i := range u {
		diff := u[i] - v[i]
		d += diff * diff
	}
	return d
}

// hamming is the fraction of positions that differ
func hamming(u, v []float64) float64 {
	if len(u) == 0 {
		return 0
	}
	var differ float64
	for i := range u {
		if u[i] != v[i] {
			differ++
		}
	}
	return differ / float64(len(u))
}

// jaccard is the fraction of differing positions among those where either
// value is non-zero; zero when no position is non-zero
func jaccard(u, v []float64) float64 {
	var nonzero, differ float64
	for i := range u {
		if u[i] != 0 || v[i] != 0 {
			nonzero++
			if u[i] != v[i] {
				differ++
			}
		}
	}
	if nonzero == 0 {
		return 0
	}
	return differ / nonzero
}

// jensenShannon normalises both observations to probability vectors and
// returns the square root of the Jensen-Shannon divergence (natural log)
func jensenShannon(u, v []float64) float64 {
	su, sv := floats.Sum(u), floats.Sum(v)
	var div float64
	for i := range u {
		p, q := u[i]/su, v[i]/sv
		m := (p + q) / 2
		div += relEntropy(p, m) + relEntropy(q, m)
	}
	return math.Sqrt(div / 2)
}

func relEntropy(x, y float64) float64 {
	switch {
	case x > 0 && y > 0:
		return x * math.Log(x/y)
	case x == 0 && y >= 0:
		return 0
	default:
		return math.Inf(1)
	}
}

// newSEuclidean weights squared differences by the inverse sample variance
// of each component
func newSEuclidean(data [][]float64) (distanceFunc, error) {
	width := len(data[0])
	variances := make([]float64, width)
	column := make([]float64, len(data))
	for c := 0; c < width; c++ {
		for r, row := range data {
			column[r] = row[c]
		}
		v, err := stats.SampleVariance(column)
		if err != nil {
			return nil, fmt.Errorf("seuclidean variance of component %d: %w", c, err)
		}
		variances[c] = v
	}

	return func(u, v []float64) float64 {
		var d float64
		for i := range u {
			diff := u[i] - v[i]
			d += diff * diff / variances[i]
		}
		return math.Sqrt(d)
	}, nil
}

// newMahalanobis uses the inverse of the sample covariance of the components
func newMahalanobis(data [][]float64) (distanceFunc, error) {
	n, width := len(data), len(data[0])
	if n <= width {
		return nil, fmt.Errorf("mahalanobis needs more observations (%d) than components (%d)", n, width)
	}

	x := mat.NewDense(n, width, nil)
	for r, row := range data {
		x.SetRow(r, row)
	}
	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, x, nil)

	var inv mat.Dense
	if err := inv.Inverse(&cov); err != nil {
		return nil, fmt.Errorf("covariance matrix is not invertible: %w", err)
	}

	diff := mat.NewVecDense(width, nil)
	return func(u, v []float64) float64 {
		for i := range u {
			diff.SetVec(i, u[i]-v[i])
		}
		return math.Sqrt(mat.Inner(diff, &inv, diff))
	}, nil
}

// boolCounts tallies positions by truth of u and v; non-zero is true
type boolCounts struct {
	tt, tf, ft, ff, n float64
}

func countBooleans(u, v []float64) boolCounts {
	var c boolCounts
	for i := range u {
		a, b := u[i] != 0, v[i] != 0
		switch {
		case a && b:
			c.tt++
		case a:
			c.tf++
		case b:
			c.ft++
		default:
			c.ff++
		}
	}
	c.n = float64(len(u))
	return c
}

func booleanMetric(f func(boolCounts) float64) distanceFunc {
	return func(u, v []float64) float64 {
		return f(countBooleans(u, v))
	}
}

// ratio returns num/den, treating 0/0 as zero
func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
