// Package distance provides the scoring functions used to rank vectors.
//
// Every score is "smaller is better": L2 returns the squared Euclidean distance,
// IP returns the negated inner product and COSINE the negated cosine similarity,
// so a single ascending ordering ranks results for all metrics.
package distance

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrUnsupportedMetric is returned when a metric name is not recognized.
var ErrUnsupportedMetric = errors.New("unsupported metric")

// Metric represents the distance metric used for vector comparison.
type Metric int

const (
	// L2 is the squared Euclidean distance.
	L2 Metric = iota
	// IP is the inner product, scored negated.
	IP
	// Cosine is the cosine similarity, scored negated.
	Cosine
)

func (m Metric) String() string {
	switch m {
	case L2:
		return "L2"
	case IP:
		return "IP"
	case Cosine:
		return "COSINE"
	default:
		return fmt.Sprintf("Unknown(%d)", m)
	}
}

// ParseMetric parses a metric name case-insensitively.
func ParseMetric(name string) (Metric, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "L2":
		return L2, nil
	case "IP":
		return IP, nil
	case "COSINE":
		return Cosine, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedMetric, name)
	}
}

// Metrics returns the names of all supported metrics.
func Metrics() []string {
	return []string{L2.String(), IP.String(), Cosine.String()}
}

// Func scores two vectors of equal length.
type Func func(a, b []float32) float32

// Score returns the scoring function for the given metric.
func Score(m Metric) (Func, error) {
	switch m {
	case L2:
		return SquaredL2, nil
	case IP:
		return NegatedDot, nil
	case Cosine:
		return NegatedCosine, nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedMetric, m)
	}
}

// Dot calculates the dot product of two vectors.
// Assumes vectors are the same length (caller's responsibility).
func Dot(a, b []float32) float32 {
	b = b[:len(a)]

	var s0, s1, s2, s3 float32
	i := 0
	for ; i+4 <= len(a); i += 4 {
		s0 += a[i] * b[i]
		s1 += a[i+1] * b[i+1]
		s2 += a[i+2] * b[i+2]
		s3 += a[i+3] * b[i+3]
	}
	for ; i < len(a); i++ {
		s0 += a[i] * b[i]
	}
	return s0 + s1 + s2 + s3
}

// SquaredL2 calculates the squared L2 (Euclidean) distance between two vectors.
// Assumes vectors are the same length (caller's responsibility).
func SquaredL2(a, b []float32) float32 {
	b = b[:len(a)]

	var s0, s1, s2, s3 float32
	i := 0
	for ; i+4 <= len(a); i += 4 {
		d0 := a[i] - b[i]
		d1 := a[i+1] - b[i+1]
		d2 := a[i+2] - b[i+2]
		d3 := a[i+3] - b[i+3]
		s0 += d0 * d0
		s1 += d1 * d1
		s2 += d2 * d2
		s3 += d3 * d3
	}
	for ; i < len(a); i++ {
		d := a[i] - b[i]
		s0 += d * d
	}
	return s0 + s1 + s2 + s3
}

// NegatedDot returns -Dot(a, b).
func NegatedDot(a, b []float32) float32 {
	return -Dot(a, b)
}

// NegatedCosine returns the negated cosine similarity of a and b.
// Zero vectors have similarity 0.
func NegatedCosine(a, b []float32) float32 {
	na := Dot(a, a)
	nb := Dot(b, b)
	if na == 0 || nb == 0 {
		return 0
	}
	return -Dot(a, b) / float32(math.Sqrt(float64(na)*float64(nb)))
}
