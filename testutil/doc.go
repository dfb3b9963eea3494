// Package testutil provides testing utilities for vecmod.
//
// This package is intended for use in tests, examples and the demo command.
// It provides deterministic random matrices, an exact nearest-neighbor oracle
// that is independent of any index implementation, and a recall helper.
//
// # Random Matrices
//
//	rng := testutil.NewRNG(seed)
//	data := rng.Matrix(1000, 128)     // uniform [0, 1), row-major
//	unit := rng.UnitMatrix(1000, 128) // rows on the unit hypersphere
//
// # Exact Search (Ground Truth)
//
//	ids := testutil.ExactTopK(data, 128, query, k, distance.SquaredL2)
//
// # Recall Verification
//
//	recall := testutil.Recall(truthIDs, approxIDs)
package testutil
