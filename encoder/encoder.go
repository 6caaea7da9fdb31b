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


package encoder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/rolodex/ai"
	"github.com/poiesic/rolodex/core"
)

// Encoder maps text to embeddings of a single dimension.
// It is safe for concurrent use if the underlying embedder is.
type Encoder struct {
	embedder ai.Embedder
	dim      int
	logger   *slog.Logger
}

// Option is a functional option for configuring an Encoder.
type Option func(*Encoder) error

// WithDimension pins the expected vector dimension. Any vector of another
// size is rejected with a *core.DimensionMismatchError.
func WithDimension(dim int) Option {
	return func(e *Encoder) error {
		if dim < 0 {
			return fmt.Errorf("%w: dimension must not be negative, got %d", core.ErrInput, dim)
		}
		e.dim = dim
		return nil
	}
}

// WithLogger sets a custom logger for the encoder.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Encoder) error {
		e.logger = logger
		return nil
	}
}

// New creates an Encoder over embedder.
func New(embedder ai.Embedder, opts ...Option) (*Encoder, error) {
	if core.IsNil(embedder) {
		return nil, ErrEmbedderRequired
	}

	e := &Encoder{
		embedder: embedder,
		logger:   slog.Default().With("component", "encoder"),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// EncodeBatch embeds texts in order. An empty batch returns an empty result
// without calling the embedder. Every text must be non-blank valid UTF-8.
func (e *Encoder) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	for i, text := range texts {
		if err := core.ValidateText(text); err != nil {
			return nil, fmt.Errorf("text %d: %w", i, err)
		}
	}

	vectors, err := e.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		e.logger.Error("embedding failed", "count", len(texts), "model", e.embedder.ModelID(), "err", err)
		return nil, fmt.Errorf("embedding %d texts: %w", len(texts), err)
	}

	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d for %d texts", ErrVectorCount, len(vectors), len(texts))
	}

	expected := e.dim
	if expected == 0 {
		expected = len(vectors[0])
	}
	if expected == 0 {
		return nil, ErrEmptyVector
	}
	for _, v := range vectors {
		if len(v) != expected {
			return nil, core.NewDimensionMismatch(expected, len(v))
		}
	}

	e.logger.Debug("encoded batch", "count", len(texts), "dimension", expected)
	return vectors, nil
}

// EncodeOne embeds a single text. It is exactly EncodeBatch([text])[0].
func (e *Encoder) EncodeOne(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EncodeBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EncodeRecords embeds the canonical projection of each record, in order.
func (e *Encoder) EncodeRecords(ctx context.Context, records []core.Record) ([][]float32, error) {
	return e.EncodeBatch(ctx, core.RecordTexts(records))
}

// ModelID identifies the underlying embedding model.
func (e *Encoder) ModelID() string {
	return e.embedder.ModelID()
}

// Dim returns the pinned dimension, or 0 if the encoder accepts whatever
// dimension the first vector of a batch has.
func (e *Encoder) Dim() int {
	return e.dim
}

// IsRetryable reports whether a failed encode may succeed when repeated.
// Input and dimension errors are properties of the request or the model and
// never change between attempts.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, core.ErrInput) || errors.Is(err, core.ErrDimensionMismatch) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var p *permanentError
	return !errors.As(err, &p)
}
