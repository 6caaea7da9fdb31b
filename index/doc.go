// Package index implements an exact nearest-neighbour index over
// fixed-dimension float32 vectors.
//
// Vectors are stored row-major in one flat slice; row i is the vector added
// i-th. Search computes the squared Euclidean distance from the query to
// every row and returns the k closest positions, ascending by distance with
// ties broken by ascending position. Rows and queries are used exactly as
// given: no normalization is applied.
//
// An Index is built once and then only read. Search, Len, Dim and Vector may
// be called from any number of goroutines as long as no Add runs concurrently.
//
// # Binary format
//
//	"RDXI" | version byte | varint dim | varint count | count*dim float32
//
// Floats are written with the mus raw encoding, so a round trip through
// MarshalBinary and Deserialize is bit-exact.
package index
