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


// Package corpus pairs an embedding index with the employee records it was
// built from. Row i of the index is the embedding of record i; the pairing
// is positional only and is kept by growing both sides together.
package corpus

import (
	"fmt"

	"github.com/poiesic/rolodex/core"
	"github.com/poiesic/rolodex/index"
)

// Corpus is the single owner of the index and the metadata list.
// Reads are safe for concurrent use once building has finished.
type Corpus struct {
	idx     *index.Index
	records []core.Record
}

// New creates an empty corpus for embeddings of dimension dim.
func New(dim int) (*Corpus, error) {
	idx, err := index.New(dim)
	if err != nil {
		return nil, err
	}
	return &Corpus{idx: idx}, nil
}

// Assemble pairs a loaded index with its records. Both must have the same
// length; a mismatch means the artifact is corrupt.
func Assemble(idx *index.Index, records []core.Record) (*Corpus, error) {
	if idx == nil {
		return nil, fmt.Errorf("%w: index is nil", core.ErrArtifact)
	}
	if idx.Len() != len(records) {
		return nil, fmt.Errorf("%w: %w: index holds %d vectors, metadata holds %d records",
			core.ErrArtifact, core.ErrDesynchronized, idx.Len(), len(records))
	}
	return &Corpus{idx: idx, records: records}, nil
}

// Append adds records and their embeddings. The index append is validated
// first, so on any error neither side changes.
func (c *Corpus) Append(records []core.Record, embeddings [][]float32) error {
	if len(records) != len(embeddings) {
		return fmt.Errorf("%w: %d records but %d embeddings", core.ErrInput, len(records), len(embeddings))
	}
	if err := c.idx.Add(embeddings); err != nil {
		return err
	}
	for i := range records {
		c.records = append(c.records, records[i].Clone())
	}
	return nil
}

// Search returns the k nearest index positions to query.
func (c *Corpus) Search(query []float32, k int) ([]index.Hit, error) {
	return c.idx.Search(query, k)
}

// Resolve maps positions to copies of their records, in the order given.
// A position outside [0, Len) means index and metadata disagree.
func (c *Corpus) Resolve(positions []int) ([]core.Record, error) {
	out := make([]core.Record, len(positions))
	for i, p := range positions {
		if p < 0 || p >= len(c.records) {
			return nil, fmt.Errorf("%w: %w: position %d, metadata holds %d records",
				core.ErrDesynchronized, core.ErrIndexOutOfRange, p, len(c.records))
		}
		out[i] = c.records[p].Clone()
	}
	return out, nil
}

// Len returns the number of paired entries.
func (c *Corpus) Len() int {
	return len(c.records)
}

// Dim returns the embedding dimension.
func (c *Corpus) Dim() int {
	return c.idx.Dim()
}

// Records returns copies of every record in index order.
func (c *Corpus) Records() []core.Record {
	out := make([]core.Record, len(c.records))
	for i := range c.records {
		out[i] = c.records[i].Clone()
	}
	return out
}

// MarshalIndex encodes the index half of the pair.
func (c *Corpus) MarshalIndex() ([]byte, error) {
	return c.idx.MarshalBinary()
}
