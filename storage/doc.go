// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package storage persists built artifacts: the embedding index, the
// employee metadata it indexes, and a manifest describing both.
//
// The two halves are only meaningful together. Every ArtifactStore writes
// them as one unit and validates them as one unit on load, so a reader never
// observes an index from one build paired with metadata from another.
//
// # Constructor Return Type Pattern
//
// Public constructors return the storage.ArtifactStore interface:
//
//	store, err := badger.Open("/var/lib/rolodex")   // returns storage.ArtifactStore
//	store, err := file.Open("/var/lib/rolodex")     // returns storage.ArtifactStore
//
// # Backends
//
//   - storage/badger: keys in a BadgerDB database; a generation pointer is
//     flipped in one transaction to publish a new artifact
//   - storage/file: a directory holding manifest.json, index.rdx and
//     metadata.bin, replaced by an atomic rename
//
// # Compatibility
//
// The Manifest records the encoder model ID and the projection version.
// Manifest.Check rejects artifacts whose vectors are not comparable with the
// running encoder; ValidatePair rejects artifacts whose halves disagree.
//
// # Thread Safety
//
// All implementations must be thread-safe. Save calls are serialized.
package storage
