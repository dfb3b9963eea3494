// Package index defines the contract every vector index implementation
// satisfies, the settings and filters passed to it, and the process-wide
// registry that maps index type names to constructors.
//
// # Lifecycle
//
// An index starts Unbuilt. Build (from a dataset) or Deserialize (from a
// binaryset.Set) moves it to Built; there is no way back. Search, RangeSearch,
// VectorsByIDs and Serialize on an Unbuilt index fail with ErrNotBuilt.
//
// # Scores
//
// Every score is "smaller is better": squared L2 distance, negated inner
// product or negated cosine similarity. Result rows are ordered by ascending
// (score, row) and padded with id -1 and math.MaxFloat32 when fewer than k
// rows qualify.
//
// # Registry
//
// Built-in types register from init():
//
//	func init() {
//	    index.MustRegister("FLAT", func() (index.Index, error) { return New(), nil }, caps)
//	}
//
// Types contributed by dynamically loaded modules are registered by package
// bridge under a "PLUGIN_" prefix.
package index
