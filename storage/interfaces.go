package storage

import (
	"context"

	"github.com/poiesic/rolodex/core"
	"github.com/poiesic/rolodex/corpus"
)

// ArtifactStore persists the paired index and metadata as one unit.
// Implementations must be thread-safe.
type ArtifactStore interface {
	// Save replaces the stored artifact with c. The write is atomic: a
	// concurrent or later Load sees either the previous pair or the new one,
	// never a mix. m must describe c (see ValidatePair).
	Save(ctx context.Context, c *corpus.Corpus, m Manifest) error

	// Load reads the current pair and its manifest. The pair is validated
	// before it is returned; a missing artifact is ErrNotFound.
	Load(ctx context.Context) (*corpus.Corpus, *Manifest, error)

	// LoadRecords reads only the metadata half, in index order. Used to
	// rebuild the index with a different encoder.
	LoadRecords(ctx context.Context) ([]core.Record, error)

	// Close releases resources held by the store.
	Close() error
}
