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


package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/rolodex/core"
	"github.com/poiesic/rolodex/corpus"
	"github.com/poiesic/rolodex/storage"
)

// ArtifactStore implements storage.ArtifactStore for BadgerDB.
//
// Each Save writes a complete generation under fresh keys, then publishes it
// by pointing artcur at it in a single transaction. Readers resolve artcur
// and read the generation from the same snapshot, so they see either the
// previous pair or the new one.
type ArtifactStore struct {
	backend     *Backend
	ownsBackend bool
	genSeq      *badger.Sequence
	logger      *slog.Logger

	mu     sync.Mutex
	closed bool
}

var _ storage.ArtifactStore = (*ArtifactStore)(nil)

// Option configures an ArtifactStore.
type Option func(*ArtifactStore) error

// WithLogger sets the logger used by the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *ArtifactStore) error {
		if logger == nil {
			return fmt.Errorf("%w: logger is nil", core.ErrInput)
		}
		s.logger = logger
		return nil
	}
}

// NewArtifactStore creates an ArtifactStore on an open backend. The caller
// keeps ownership of the backend.
func NewArtifactStore(backend *Backend, opts ...Option) (*ArtifactStore, error) {
	genSeq, err := backend.GetSequence(artifactGenerationSeq)
	if err != nil {
		return nil, err
	}

	s := &ArtifactStore{
		backend: backend,
		genSeq:  genSeq,
		logger:  slog.Default().With("component", "artifact-store", "backend", "badger"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			_ = genSeq.Release()
			return nil, err
		}
	}
	return s, nil
}

// Open opens (or creates) a BadgerDB database at path and returns an artifact
// store that closes the database when it is closed.
func Open(path string, opts ...Option) (storage.ArtifactStore, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, err
	}

	s, err := NewArtifactStore(backend, opts...)
	if err != nil {
		backend.Close()
		return nil, err
	}
	s.ownsBackend = true
	return s, nil
}

// Save writes c as a new generation and makes it current.
func (s *ArtifactStore) Save(ctx context.Context, c *corpus.Corpus, m storage.Manifest) error {
	if c == nil {
		return fmt.Errorf("%w: corpus is nil", core.ErrInput)
	}
	if err := storage.ValidatePair(&m, c.Len(), c.Dim(), c.Len()); err != nil {
		return err
	}

	indexBlob, err := c.MarshalIndex()
	if err != nil {
		return err
	}
	manifestBlob, err := storage.MarshalManifest(&m)
	if err != nil {
		return fmt.Errorf("%w: manifest: %w", storage.ErrSerializationFailed, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrStorageClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	gen, err := s.nextGeneration()
	if err != nil {
		return err
	}

	records := c.Records()
	err = s.backend.WithBatch(func(wb *badger.WriteBatch) error {
		if err := wb.Set(makeGenerationKey(artifactManifestPrefix, gen), manifestBlob); err != nil {
			return err
		}
		if err := wb.Set(makeGenerationKey(artifactIndexPrefix, gen), indexBlob); err != nil {
			return err
		}
		for i := range records {
			if err := wb.Set(makeRecordKey(gen, i), storage.MarshalRecord(&records[i])); err != nil {
				return err
			}
		}
		return nil
	})
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		s.sweep(gen, 0)
		return fmt.Errorf("writing generation %d: %w", gen, err)
	}

	// Publish
	err = s.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set([]byte(artifactCurrentKey), encodeGeneration(gen)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		s.sweep(gen, 0)
		return fmt.Errorf("publishing generation %d: %w", gen, err)
	}

	s.logger.Info("artifact saved", "generation", gen, "records", c.Len(), "dimension", c.Dim(), "model", m.ModelID)
	s.sweep(0, gen)
	return nil
}

// Load reads the current generation and validates the pair.
func (s *ArtifactStore) Load(ctx context.Context) (*corpus.Corpus, *storage.Manifest, error) {
	g, err := s.readCurrent(ctx, true)
	if err != nil {
		return nil, nil, err
	}

	c, err := storage.Decode(g.manifest, g.indexBlob, g.records)
	if err != nil {
		return nil, nil, err
	}
	s.logger.Debug("artifact loaded", "generation", g.gen, "records", c.Len())
	return c, g.manifest, nil
}

// LoadRecords reads the metadata half of the current generation.
func (s *ArtifactStore) LoadRecords(ctx context.Context) ([]core.Record, error) {
	g, err := s.readCurrent(ctx, false)
	if err != nil {
		return nil, err
	}
	if g.manifest.Count != len(g.records) {
		return nil, fmt.Errorf("%w: %w: manifest count %d, metadata holds %d records",
			core.ErrArtifact, core.ErrDesynchronized, g.manifest.Count, len(g.records))
	}
	return g.records, nil
}

// Close releases the generation sequence and, when the store opened the
// database itself, closes it.
func (s *ArtifactStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	err := s.genSeq.Release()
	if s.ownsBackend {
		err = errors.Join(err, s.backend.Close())
	}
	return err
}

// generation is one stored artifact as read from a single snapshot.
type generation struct {
	gen       uint64
	manifest  *storage.Manifest
	indexBlob []byte
	records   []core.Record
}

func (s *ArtifactStore) readCurrent(ctx context.Context, withIndex bool) (*generation, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed || s.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var g generation
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get([]byte(artifactCurrentKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return storage.ErrNotFound
		}
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if g.gen, err = decodeGeneration(val); err != nil {
			return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
		}

		manifestBlob, err := getValue(tx, makeGenerationKey(artifactManifestPrefix, g.gen))
		if err != nil {
			return fmt.Errorf("manifest of generation %d: %w", g.gen, err)
		}
		if g.manifest, err = storage.UnmarshalManifest(manifestBlob); err != nil {
			return err
		}

		if withIndex {
			if g.indexBlob, err = getValue(tx, makeGenerationKey(artifactIndexPrefix, g.gen)); err != nil {
				return fmt.Errorf("index of generation %d: %w", g.gen, err)
			}
		}

		g.records, err = readRecords(tx, g.gen)
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// getValue reads a required key. A missing key means the generation is
// incomplete.
func getValue(tx *badger.Txn, key []byte) ([]byte, error) {
	item, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: key missing", core.ErrArtifact)
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

// readRecords reads a generation's records in position order. Positions must
// be contiguous from zero.
func readRecords(tx *badger.Txn, gen uint64) ([]core.Record, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = makeGenerationKey(artifactRecordPrefix, gen)
	iter := tx.NewIterator(opts)
	defer iter.Close()

	records := make([]core.Record, 0)
	for iter.Rewind(); iter.Valid(); iter.Next() {
		item := iter.Item()
		pos, err := parseRecordPosition(item.Key())
		if err != nil {
			return nil, fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
		}
		if pos != len(records) {
			return nil, fmt.Errorf("%w: %w: record at position %d missing",
				core.ErrArtifact, core.ErrDesynchronized, len(records))
		}

		var record *core.Record
		err = item.Value(func(val []byte) error {
			record, err = storage.UnmarshalRecord(val)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", pos, err)
		}
		records = append(records, *record)
	}
	return records, nil
}

func (s *ArtifactStore) nextGeneration() (uint64, error) {
	gen, err := s.genSeq.Next()
	if err != nil {
		return 0, err
	}
	// BadgerDB sequences can return 0 on first call, so we skip it
	if gen == 0 {
		gen, err = s.genSeq.Next()
		if err != nil {
			return 0, err
		}
	}
	return gen, nil
}

// sweep deletes generation data. With drop set, only that generation is
// removed; otherwise every generation except keep is removed, which also
// clears generations left behind by an interrupted Save. Failures are logged:
// unreferenced generations never affect reads.
func (s *ArtifactStore) sweep(drop, keep uint64) {
	var keys [][]byte
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		for _, prefix := range generationPrefixes {
			opts := badger.DefaultIteratorOptions
			opts.PrefetchValues = false
			opts.Prefix = []byte(prefix + ":")
			if drop != 0 {
				opts.Prefix = makeGenerationKey(prefix, drop)
			}

			iter := tx.NewIterator(opts)
			for iter.Rewind(); iter.Valid(); iter.Next() {
				key := iter.Item().KeyCopy(nil)
				gen, err := parseGeneration(prefix, key)
				if err != nil || gen == keep {
					continue
				}
				keys = append(keys, key)
			}
			iter.Close()
		}
		return nil
	}, false)
	if err == nil && len(keys) > 0 {
		err = s.backend.WithBatch(func(wb *badger.WriteBatch) error {
			for _, key := range keys {
				if err := wb.Delete(key); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err != nil {
		s.logger.Warn("failed to remove stale generations", "err", err)
		return
	}
	if len(keys) > 0 {
		s.logger.Debug("removed stale generation keys", "keys", len(keys), "current", keep)
	}
}
