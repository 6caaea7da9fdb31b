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


package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/poiesic/rolodex/core"
	"github.com/poiesic/rolodex/index"
)

// QueryEncoder turns query text into an embedding. *encoder.Encoder
// satisfies it.
type QueryEncoder interface {
	EncodeOne(ctx context.Context, text string) ([]float32, error)
}

// Corpus is the read side of a paired index and metadata store.
// *corpus.Corpus satisfies it.
type Corpus interface {
	Search(query []float32, k int) ([]index.Hit, error)
	Resolve(positions []int) ([]core.Record, error)
	Len() int
	Dim() int
}

// Service retrieves the employee records nearest to a query.
type Service struct {
	encoder QueryEncoder
	corpus  Corpus
	monitor Monitor
	logger  *slog.Logger

	desynchronized atomic.Bool
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

// WithMonitor sets the monitor notified on every search.
func WithMonitor(monitor Monitor) Option {
	return func(s *Service) error {
		if monitor == nil {
			monitor = &noopMonitor{}
		}
		s.monitor = monitor
		return nil
	}
}

// NewService creates a retrieval service over a loaded corpus. The encoder
// must be the one the corpus was built with.
func NewService(enc QueryEncoder, c Corpus, opts ...Option) (*Service, error) {
	if core.IsNil(enc) {
		return nil, ErrEncoderRequired
	}
	if core.IsNil(c) {
		return nil, ErrCorpusRequired
	}

	s := &Service{
		encoder: enc,
		corpus:  c,
		monitor: &noopMonitor{},
		logger:  slog.Default().With("component", "retrieval"),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Retrieve returns up to k records nearest to query, most similar first.
func (s *Service) Retrieve(ctx context.Context, query string, k int) ([]core.Record, error) {
	results, err := s.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}

	records := make([]core.Record, len(results))
	for i, result := range results {
		records[i] = result.Record
	}
	return records, nil
}

// Search is Retrieve with index positions and distances kept.
func (s *Service) Search(ctx context.Context, query string, k int) ([]*core.SearchResult, error) {
	return s.SearchWithMonitor(ctx, query, k, nil)
}

// SearchWithMonitor searches with an extra monitor for this call only. The
// service's own monitor is notified as well.
func (s *Service) SearchWithMonitor(ctx context.Context, query string, k int, monitor Monitor) ([]*core.SearchResult, error) {
	monitors := []Monitor{s.monitor}
	if monitor != nil {
		monitors = append(monitors, monitor)
	}

	start := time.Now()
	for _, m := range monitors {
		m.Start(query, k)
	}

	results, err := s.search(ctx, query, k, monitors)

	elapsed := time.Since(start)
	for _, m := range monitors {
		m.Finish(results, elapsed, err)
	}
	return results, err
}

func (s *Service) search(ctx context.Context, query string, k int, monitors []Monitor) ([]*core.SearchResult, error) {
	if s.desynchronized.Load() {
		return nil, fmt.Errorf("%w: rebuild the artifact before serving", core.ErrDesynchronized)
	}
	if err := core.ValidateK(k); err != nil {
		return nil, err
	}

	// 1. Encode the query
	embedding, err := s.encoder.EncodeOne(ctx, query)
	if err != nil {
		if !errors.Is(err, core.ErrInput) {
			s.logger.Error("error generating embedding for query", "err", err)
		}
		return nil, err
	}

	// 2. Find the nearest positions
	hits, err := s.corpus.Search(embedding, k)
	if err != nil {
		s.logger.Error("error searching index", "k", k, "err", err)
		return nil, err
	}
	for _, m := range monitors {
		m.AfterSearch(hits)
	}

	// 3. Resolve positions to records
	positions := make([]int, len(hits))
	for i, hit := range hits {
		positions[i] = hit.Position
	}
	records, err := s.corpus.Resolve(positions)
	if err != nil {
		if errors.Is(err, core.ErrDesynchronized) && s.desynchronized.CompareAndSwap(false, true) {
			s.logger.Error("index and metadata are desynchronized, refusing further queries", "err", err)
		}
		return nil, err
	}

	results := make([]*core.SearchResult, len(hits))
	for i, hit := range hits {
		results[i] = &core.SearchResult{
			Record:   records[i],
			Position: hit.Position,
			Distance: hit.Distance,
		}
	}

	s.logger.Debug("retrieved records", "k", k, "results", len(results))
	return results, nil
}

// Healthy reports whether the service can still answer queries.
func (s *Service) Healthy() bool {
	return !s.desynchronized.Load()
}

// Len returns the number of indexed records.
func (s *Service) Len() int {
	return s.corpus.Len()
}

// Dim returns the embedding dimension of the index.
func (s *Service) Dim() int {
	return s.corpus.Dim()
}
