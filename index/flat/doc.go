// Package flat provides the exhaustive (brute-force) reference index.
//
// Flat keeps a full copy of the built vectors and scores every stored row
// against every query, so its results are exact. It serves as the
// correctness oracle for other index implementations and is registered in
// index.DefaultRegistry under the type name "FLAT".
//
// # Settings
//
//	dim          int     vector dimension; 0 takes the dimension of the build dataset
//	metric_type  string  "L2" (default), "IP" or "COSINE"
//	k            int     neighbors per query, in [1, 1024]; default 10
//	radius       float   RangeSearch threshold on the smaller-is-better score
//
// # Persistence
//
// Serialize produces a "meta" blob (JSON: num_vectors, dim, metric_type,
// version) and, when the index holds vectors, a "vectors" blob with the raw
// little-endian float32 values in row order.
package flat
