package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/rolodex/core"
)

// Retriever finds the records nearest to a query. *retrieval.Service
// satisfies it.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]core.Record, error)
}

// Service answers queries with retrieval followed by generation.
type Service struct {
	retriever Retriever
	generator Generator
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*Service) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewService creates a chat service.
func NewService(retriever Retriever, generator Generator, opts ...Option) (*Service, error) {
	if core.IsNil(retriever) {
		return nil, ErrRetrieverRequired
	}
	if core.IsNil(generator) {
		return nil, ErrGeneratorRequired
	}

	s := &Service{
		retriever: retriever,
		generator: generator,
		logger:    slog.Default().With("component", "chat"),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Respond retrieves up to k records for query and asks the generator for an
// answer. With no records it returns NoCandidatesMessage without calling the
// generator.
func (s *Service) Respond(ctx context.Context, query string, k int) (string, error) {
	records, err := s.retriever.Retrieve(ctx, query, k)
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return NoCandidatesMessage, nil
	}

	start := time.Now()
	answer, err := s.generator.Generate(ctx, query, records)
	if err != nil {
		s.logger.Error("generation failed", "candidates", len(records), "err", err)
		if !errors.Is(err, ErrGeneration) {
			err = fmt.Errorf("%w: %w", ErrGeneration, err)
		}
		return "", err
	}

	s.logger.Debug("generated answer", "candidates", len(records), "elapsed", time.Since(start).Round(time.Millisecond))
	return answer, nil
}
