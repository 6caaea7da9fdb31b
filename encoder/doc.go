// Package encoder turns text and employee records into fixed-dimension
// embeddings.
//
// An Encoder wraps an ai.Embedder and enforces the contract the index relies
// on: one vector per input, in input order, all of the same dimension.
// Inputs are validated before any model call, so a malformed query never
// reaches the embedding service.
//
// Records are encoded through their canonical text projection
// (core.RecordText). Vectors are only comparable when produced under the same
// ModelID and core.ProjectionVersion; both are recorded in stored artifacts.
package encoder
