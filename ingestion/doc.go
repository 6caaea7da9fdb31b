// Package ingestion builds and persists the retrieval artifact.
//
// The Pipeline type manages the build workflow for employee records:
//   - Validating records and assigning content IDs
//   - Encoding record projections in batches on a worker pool
//   - Assembling the index and metadata in input order
//   - Saving the pair with a manifest through a storage.ArtifactStore
//
// Batches are encoded concurrently, but positions always follow the input
// order, so position i of the index describes the i-th input record. Any
// failure aborts the build; nothing is saved and the stored artifact is
// left as it was.
//
// LoadDataset reads records from JSON or YAML files. Rebuild re-encodes the
// records already held by a store, which is how an artifact is migrated to a
// new encoder model.
package ingestion
