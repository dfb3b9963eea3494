// Package distance provides vector distance calculations.
//
// # Supported Metrics
//
//   - L2: Squared Euclidean distance (default)
//   - IP: Inner product, negated so that smaller scores rank first
//   - COSINE: Cosine similarity, negated the same way
//
// # Usage
//
//	score, _ := distance.Score(distance.L2)
//	d := score(a, b)
package distance
