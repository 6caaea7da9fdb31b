package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/rolodex/core"
	"github.com/poiesic/rolodex/encoder"
)

// embeddingProcessor encodes batches of employee records.
type embeddingProcessor struct {
	encoder     *encoder.Encoder
	maxAttempts int
	retryDelay  time.Duration
	logger      *slog.Logger
}

var _ processor = (*embeddingProcessor)(nil)

// newEmbeddingProcessor creates a new embedding processor. maxAttempts of 1
// disables retries.
func newEmbeddingProcessor(enc *encoder.Encoder, maxAttempts int, retryDelay time.Duration, logger *slog.Logger) (processor, error) {
	if enc == nil {
		return nil, ErrEncoderRequired
	}
	if maxAttempts < 1 {
		return nil, encoder.ErrInvalidMaxAttempts
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &embeddingProcessor{
		encoder:     enc,
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
		logger:      logger.With("processor", "embeddings"),
	}, nil
}

// process encodes the projection of each record. Transient encoder failures
// are retried with exponential backoff.
func (ep *embeddingProcessor) process(ctx context.Context, records []core.Record) ([][]float32, error) {
	ep.logger.Debug("encoding batch", "records", len(records))

	var embeddings [][]float32
	err := encoder.RetryWithBackoff(ctx, func() error {
		var err error
		embeddings, err = ep.encoder.EncodeRecords(ctx, records)
		return err
	}, ep.maxAttempts, ep.retryDelay)
	if err != nil {
		ep.logger.Error("error encoding batch", "records", len(records), "err", err)
		return nil, err
	}

	if len(embeddings) != len(records) {
		return nil, fmt.Errorf("embedding result mismatch. expected %d, received %d", len(records), len(embeddings))
	}
	return embeddings, nil
}
