package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/rolodex/core"
	"github.com/poiesic/rolodex/corpus"
	"github.com/poiesic/rolodex/encoder"
	"github.com/poiesic/rolodex/storage"
)

const (
	// DefaultBatchSize is the number of records encoded per embedder call.
	DefaultBatchSize = 32

	// DefaultMaxAttempts is the number of tries per batch, first one included.
	DefaultMaxAttempts = 3

	// DefaultRetryDelay is the base delay for exponential backoff.
	DefaultRetryDelay = 1 * time.Second
)

// Pipeline orchestrates building the retrieval artifact from employee
// records. It encodes batches concurrently and persists the result.
type Pipeline struct {
	encoder        *encoder.Encoder
	store          storage.ArtifactStore
	embeddingPool  *ants.Pool
	embeddingProc  processor
	batchSize      int
	maxAttempts    int
	retryDelay     time.Duration
	progress       io.Writer
	reportInterval int
	logger         *slog.Logger

	mu       sync.Mutex
	released bool
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent encoding.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		// Release old pool
		if p.embeddingPool != nil {
			p.embeddingPool.Release()
		}

		embeddingPool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.embeddingPool = embeddingPool
		return nil
	}
}

// WithBatchSize sets how many records are encoded per embedder call.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			return fmt.Errorf("%w: batch size must be positive, got %d", core.ErrInput, size)
		}
		p.batchSize = size
		return nil
	}
}

// WithRetry sets how many times a failed batch is tried and the base delay
// between tries. maxAttempts of 1 disables retries.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(p *Pipeline) error {
		if maxAttempts < 1 {
			return encoder.ErrInvalidMaxAttempts
		}
		if baseDelay < 0 {
			return fmt.Errorf("%w: retry delay must not be negative", core.ErrInput)
		}
		p.maxAttempts = maxAttempts
		p.retryDelay = baseDelay
		return nil
	}
}

// WithProgress reports build progress to w: the encoding count every
// interval records, then the save.
func WithProgress(w io.Writer, interval int) Option {
	return func(p *Pipeline) error {
		p.progress = w
		p.reportInterval = interval
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new build pipeline.
func NewPipeline(enc *encoder.Encoder, store storage.ArtifactStore, opts ...Option) (*Pipeline, error) {
	if enc == nil {
		return nil, ErrEncoderRequired
	}
	if core.IsNil(store) {
		return nil, ErrStoreRequired
	}

	// Default pool size
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	embeddingPool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	// Create pipeline with defaults
	p := &Pipeline{
		encoder:       enc,
		store:         store,
		embeddingPool: embeddingPool,
		batchSize:     DefaultBatchSize,
		maxAttempts:   DefaultMaxAttempts,
		retryDelay:    DefaultRetryDelay,
		logger:        slog.Default().With("component", "ingestion"),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	// Create processor after options are applied (so it gets final config)
	embeddingProc, err := newEmbeddingProcessor(enc, p.maxAttempts, p.retryDelay, p.logger)
	if err != nil {
		p.Release()
		return nil, err
	}
	p.embeddingProc = embeddingProc

	return p, nil
}

// Build validates records, encodes them and saves the resulting corpus.
// Records without an ID get one derived from their projection. The returned
// corpus holds record i at position i.
func (p *Pipeline) Build(ctx context.Context, records []core.Record) (*corpus.Corpus, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no records to build", core.ErrInput)
	}

	prepared, err := p.prepare(records)
	if err != nil {
		return nil, err
	}

	p.logger.Info("building artifact", "records", len(prepared), "batchSize", p.batchSize, "model", p.encoder.ModelID())
	start := time.Now()

	var progress *BuildProgress
	if p.progress != nil {
		progress = NewBuildProgress(p.progress, len(prepared), p.batchCount(len(prepared)), p.reportInterval)
	}

	embeddings, err := p.encodeAll(ctx, prepared, progress)
	if err != nil {
		return nil, err
	}
	progress.EncodingDone()

	c, err := corpus.New(len(embeddings[0][0]))
	if err != nil {
		return nil, err
	}
	offset := 0
	for _, batch := range embeddings {
		if err := c.Append(prepared[offset:offset+len(batch)], batch); err != nil {
			return nil, fmt.Errorf("assembling records %d-%d: %w", offset, offset+len(batch)-1, err)
		}
		offset += len(batch)
	}

	manifest := storage.NewManifest(p.encoder.ModelID(), c)
	progress.Persisting(c.Dim())
	if err := p.store.Save(ctx, c, manifest); err != nil {
		return nil, fmt.Errorf("saving artifact: %w", err)
	}
	progress.Persisted()

	p.logger.Info("artifact built", "records", c.Len(), "dimension", c.Dim(), "elapsed", time.Since(start).Round(time.Millisecond))
	return c, nil
}

// Rebuild re-encodes the records held by the store with this pipeline's
// encoder and replaces the stored artifact.
func (p *Pipeline) Rebuild(ctx context.Context) (*corpus.Corpus, error) {
	records, err := p.store.LoadRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading stored records: %w", err)
	}
	p.logger.Info("rebuilding artifact", "records", len(records))
	return p.Build(ctx, records)
}

// Release releases resources including the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.released = true
	if p.embeddingPool != nil {
		p.embeddingPool.Release()
	}
}

// prepare validates and copies records, assigning content IDs where missing.
func (p *Pipeline) prepare(records []core.Record) ([]core.Record, error) {
	prepared := make([]core.Record, len(records))
	seen := make(map[core.ID]int, len(records))

	for i := range records {
		if err := core.ValidateRecord(&records[i]); err != nil {
			return nil, fmt.Errorf("%w: record %d: %w", core.ErrInput, i, err)
		}

		prepared[i] = records[i].Clone()
		// list fields are never nil, matching records decoded from a store
		if prepared[i].Skills == nil {
			prepared[i].Skills = []string{}
		}
		if prepared[i].Projects == nil {
			prepared[i].Projects = []string{}
		}
		if prepared[i].Id == 0 {
			prepared[i].Id = core.IDFromContent(core.RecordText(&prepared[i]))
		}

		if first, ok := seen[prepared[i].Id]; ok {
			p.logger.Warn("duplicate record id", "id", prepared[i].Id, "first", first, "duplicate", i)
		} else {
			seen[prepared[i].Id] = i
		}
	}
	return prepared, nil
}

// encodeAll encodes records in batches on the worker pool. The result holds
// one entry per batch, in input order. The first failure cancels the
// remaining batches.
func (p *Pipeline) encodeAll(ctx context.Context, records []core.Record, progress *BuildProgress) ([][][]float32, error) {
	p.mu.Lock()
	released := p.released
	p.mu.Unlock()
	if released {
		return nil, ErrPipelineReleased
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	batchCount := p.batchCount(len(records))
	results := make([][][]float32, batchCount)
	errs := make([]error, batchCount)

	var wg sync.WaitGroup
	for b := 0; b < batchCount; b++ {
		lo := b * p.batchSize
		hi := min(lo+p.batchSize, len(records))
		batch := records[lo:hi]

		wg.Add(1)
		err := p.embeddingPool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				errs[b] = ctx.Err()
				return
			}

			embeddings, err := p.embeddingProc.process(ctx, batch)
			if err != nil {
				errs[b] = fmt.Errorf("batch %d (records %d-%d): %w", b, lo, hi-1, err)
				cancel()
				return
			}
			results[b] = embeddings
			progress.BatchEncoded(len(batch))
		})
		if err != nil {
			wg.Done()
			errs[b] = fmt.Errorf("submitting batch %d: %w", b, err)
			cancel()
			break
		}
	}
	wg.Wait()

	if err := firstError(errs); err != nil {
		return nil, err
	}
	return results, nil
}

func (p *Pipeline) batchCount(records int) int {
	return (records + p.batchSize - 1) / p.batchSize
}

// firstError returns the root failure among batch errors, preferring a real
// failure over the cancellations it caused.
func firstError(errs []error) error {
	var canceled error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if errors.Is(err, context.Canceled) && canceled == nil {
			canceled = err
			continue
		}
		if !errors.Is(err, context.Canceled) {
			return err
		}
	}
	return canceled
}
