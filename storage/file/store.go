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


package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/klauspost/compress/zstd"
	"github.com/poiesic/rolodex/core"
	"github.com/poiesic/rolodex/corpus"
	"github.com/poiesic/rolodex/storage"
)

// File names inside an artifact directory.
const (
	ManifestFile = "manifest.json"
	IndexFile    = "index.rdx"
	MetadataFile = "metadata.bin"
)

const (
	lockRetryDelay     = 50 * time.Millisecond
	defaultLockTimeout = 10 * time.Second
)

var (
	zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	zstdDecoder, _ = zstd.NewReader(nil)
)

// ArtifactStore implements storage.ArtifactStore on a directory of plain
// files.
//
// Save writes a sibling temporary directory and swaps it in by rename while
// holding an exclusive lock on <dir>.lock. Load holds a shared lock on the
// same file, so it never observes a half-swapped directory.
type ArtifactStore struct {
	dir         string
	lockPath    string
	lockTimeout time.Duration
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

// WithLockTimeout bounds how long Save waits for the exclusive lock before
// failing with storage.ErrLocked.
func WithLockTimeout(d time.Duration) Option {
	return func(s *ArtifactStore) error {
		if d <= 0 {
			return fmt.Errorf("%w: lock timeout must be positive", core.ErrInput)
		}
		s.lockTimeout = d
		return nil
	}
}

// Open returns a store for the artifact directory dir. The directory does
// not need to exist until the first Save.
func Open(dir string, opts ...Option) (storage.ArtifactStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: artifact directory is required", core.ErrInput)
	}
	dir = filepath.Clean(dir)

	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return nil, fmt.Errorf("cannot create parent directory: %w", err)
	}
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	s := &ArtifactStore{
		dir:         dir,
		lockPath:    dir + ".lock",
		lockTimeout: defaultLockTimeout,
		logger:      slog.Default().With("component", "artifact-store", "backend", "file"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Save writes c and m to a temporary directory and swaps it in.
func (s *ArtifactStore) Save(ctx context.Context, c *corpus.Corpus, m storage.Manifest) error {
	if c == nil {
		return fmt.Errorf("%w: corpus is nil", core.ErrInput)
	}
	if err := storage.ValidatePair(&m, c.Len(), c.Dim(), c.Len()); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrStorageClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	unlock, err := s.writeLock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	s.restoreBackup()

	tmpDir, err := os.MkdirTemp(filepath.Dir(s.dir), filepath.Base(s.dir)+".tmp-")
	if err != nil {
		return fmt.Errorf("cannot create staging directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	if err := writeArtifact(ctx, tmpDir, c, &m); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := atomicSwap(tmpDir, s.dir); err != nil {
		return fmt.Errorf("cannot publish artifact: %w", err)
	}

	s.logger.Info("artifact saved", "dir", s.dir, "records", c.Len(), "dimension", c.Dim(), "model", m.ModelID)
	return nil
}

// Load reads and validates the artifact in the store directory.
func (s *ArtifactStore) Load(ctx context.Context) (*corpus.Corpus, *storage.Manifest, error) {
	unlock, err := s.readLock(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer unlock()

	m, err := s.readManifest()
	if err != nil {
		return nil, nil, err
	}

	compressed, err := s.readFile(IndexFile)
	if err != nil {
		return nil, nil, err
	}
	indexBlob, err := zstdDecoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %w", storage.ErrSerializationFailed, IndexFile, err)
	}

	records, err := s.readRecords()
	if err != nil {
		return nil, nil, err
	}

	c, err := storage.Decode(m, indexBlob, records)
	if err != nil {
		return nil, nil, err
	}
	s.logger.Debug("artifact loaded", "dir", s.dir, "records", c.Len())
	return c, m, nil
}

// LoadRecords reads the metadata half of the artifact.
func (s *ArtifactStore) LoadRecords(ctx context.Context) ([]core.Record, error) {
	unlock, err := s.readLock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	m, err := s.readManifest()
	if err != nil {
		return nil, err
	}
	records, err := s.readRecords()
	if err != nil {
		return nil, err
	}
	if m.Count != len(records) {
		return nil, fmt.Errorf("%w: %w: manifest count %d, metadata holds %d records",
			core.ErrArtifact, core.ErrDesynchronized, m.Count, len(records))
	}
	return records, nil
}

// Close marks the store closed. Files are left in place.
func (s *ArtifactStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// writeLock takes the exclusive lock, waiting up to the lock timeout for
// readers and other builders.
func (s *ArtifactStore) writeLock(ctx context.Context) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	lock := flock.New(s.lockPath)
	locked, err := lock.TryLockContext(lockCtx, lockRetryDelay)
	if locked {
		return func() { _ = lock.Unlock() }, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("cannot acquire artifact lock: %w", err)
	}
	return nil, fmt.Errorf("%w (lock: %s)", storage.ErrLocked, s.lockPath)
}

// readLock takes the shared lock, waiting for an in-flight Save to finish.
func (s *ArtifactStore) readLock(ctx context.Context) (func(), error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, storage.ErrStorageClosed
	}

	lock := flock.New(s.lockPath)
	locked, err := lock.TryRLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("cannot acquire artifact lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w (lock: %s)", storage.ErrLocked, s.lockPath)
	}
	return func() { _ = lock.Unlock() }, nil
}

func (s *ArtifactStore) readManifest() (*storage.Manifest, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, ManifestFile))
	if errors.Is(err, fs.ErrNotExist) {
		if _, statErr := os.Stat(s.dir); errors.Is(statErr, fs.ErrNotExist) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %s missing in %s", core.ErrArtifact, ManifestFile, s.dir)
	}
	if err != nil {
		return nil, err
	}
	return storage.UnmarshalManifest(data)
}

func (s *ArtifactStore) readRecords() ([]core.Record, error) {
	data, err := s.readFile(MetadataFile)
	if err != nil {
		return nil, err
	}
	return storage.UnmarshalRecords(data)
}

// readFile reads a required artifact file.
func (s *ArtifactStore) readFile(name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s missing in %s", core.ErrArtifact, name, s.dir)
	}
	return data, err
}

// restoreBackup puts back a directory left renamed aside by an interrupted
// swap. Callers hold the exclusive lock.
func (s *ArtifactStore) restoreBackup() {
	backup := s.dir + ".bak"
	if _, err := os.Stat(s.dir); !errors.Is(err, fs.ErrNotExist) {
		return
	}
	if _, err := os.Stat(backup); err != nil {
		return
	}
	if err := os.Rename(backup, s.dir); err != nil {
		s.logger.Warn("failed to restore artifact backup", "backup", backup, "err", err)
		return
	}
	s.logger.Warn("restored artifact from interrupted save", "dir", s.dir)
}

func writeArtifact(ctx context.Context, dir string, c *corpus.Corpus, m *storage.Manifest) error {
	indexBlob, err := c.MarshalIndex()
	if err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, IndexFile), zstdEncoder.EncodeAll(indexBlob, nil)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := writeFile(filepath.Join(dir, MetadataFile), storage.MarshalRecords(c.Records())); err != nil {
		return err
	}

	manifestBlob, err := storage.MarshalManifest(m)
	if err != nil {
		return fmt.Errorf("%w: manifest: %w", storage.ErrSerializationFailed, err)
	}
	return writeFile(filepath.Join(dir, ManifestFile), manifestBlob)
}

// writeFile writes data and syncs it to disk.
func writeFile(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// atomicSwap replaces destDir with srcDir by renaming.
func atomicSwap(srcDir, destDir string) error {
	backup := destDir + ".bak"
	_ = os.RemoveAll(backup)
	if _, err := os.Stat(destDir); err == nil {
		if err := os.Rename(destDir, backup); err != nil {
			return err
		}
	}
	if err := os.Rename(srcDir, destDir); err != nil {
		// rollback best-effort
		if _, stErr := os.Stat(backup); stErr == nil {
			_ = os.Rename(backup, destDir)
		}
		return err
	}
	_ = os.RemoveAll(backup)
	return nil
}
