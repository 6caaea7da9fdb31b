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


// Package rolodex wires the artifact store, encoder, retrieval and answer
// generation into a ready-to-query engine.
package rolodex

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/poiesic/rolodex/ai"
	"github.com/poiesic/rolodex/ai/hashing"
	"github.com/poiesic/rolodex/ai/ollama"
	"github.com/poiesic/rolodex/ai/openai"
	"github.com/poiesic/rolodex/chat"
	"github.com/poiesic/rolodex/encoder"
	"github.com/poiesic/rolodex/ingestion"
	"github.com/poiesic/rolodex/retrieval"
	"github.com/poiesic/rolodex/storage"
	"github.com/poiesic/rolodex/storage/badger"
	"github.com/poiesic/rolodex/storage/file"
)

// Artifact store backends.
const (
	BackendBadger = "badger"
	BackendFile   = "file"
)

// Engine answers queries over a loaded artifact.
type Engine struct {
	store     storage.ArtifactStore
	provider  ai.AIProvider
	manifest  *storage.Manifest
	retrieval *retrieval.Service
	chat      *chat.Service
	logger    *slog.Logger
}

// Option configures Open and OpenBuilder.
type Option func(*options)

type options struct {
	aiConfig   *ai.Config
	backend    string
	generation bool
	monitor    retrieval.Monitor
	logger     *slog.Logger
}

// WithAIConfig sets the embedder and generator configuration.
// Default is ai.DefaultConfig().
func WithAIConfig(cfg *ai.Config) Option {
	return func(o *options) {
		o.aiConfig = cfg
	}
}

// WithBackend selects the artifact store backend. Empty means detect from
// the store directory, falling back to badger.
func WithBackend(backend string) Option {
	return func(o *options) {
		o.backend = backend
	}
}

// WithGeneration enables the chat service. The generator half of the AI
// config must then be valid.
func WithGeneration() Option {
	return func(o *options) {
		o.generation = true
	}
}

// WithMonitor sets the retrieval monitor.
func WithMonitor(monitor retrieval.Monitor) Option {
	return func(o *options) {
		o.monitor = monitor
	}
}

// WithLogger sets the logger used by every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func applyOptions(opts []Option) *options {
	o := &options{
		aiConfig: ai.DefaultConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// Open loads the artifact at storePath and prepares it for queries. It fails
// if the artifact is missing, corrupt, or was built with a different
// embedding model than the configured one.
func Open(ctx context.Context, storePath string, opts ...Option) (*Engine, error) {
	o := applyOptions(opts)

	store, err := OpenStore(storePath, o.backend, o.logger)
	if err != nil {
		return nil, err
	}

	c, manifest, err := store.Load(ctx)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("loading artifact from %s: %w", storePath, err)
	}

	provider, err := NewProvider(o.aiConfig, o.generation)
	if err != nil {
		store.Close()
		return nil, err
	}

	e := &Engine{
		store:    store,
		provider: provider,
		manifest: manifest,
		logger:   o.logger.With("component", "engine"),
	}

	enc, err := encoder.New(provider.Embedder(),
		encoder.WithDimension(manifest.Dimension),
		encoder.WithLogger(o.logger.With("component", "encoder")))
	if err != nil {
		e.Close()
		return nil, err
	}
	if err := manifest.Check(enc.ModelID()); err != nil {
		e.Close()
		return nil, err
	}

	retrievalOpts := []retrieval.Option{retrieval.WithLogger(o.logger.With("component", "retrieval"))}
	if o.monitor != nil {
		retrievalOpts = append(retrievalOpts, retrieval.WithMonitor(o.monitor))
	}
	e.retrieval, err = retrieval.NewService(enc, c, retrievalOpts...)
	if err != nil {
		e.Close()
		return nil, err
	}

	if o.generation {
		gen, err := chat.NewLLMGenerator(provider.Generator())
		if err != nil {
			e.Close()
			return nil, err
		}
		e.chat, err = chat.NewService(e.retrieval, gen, chat.WithLogger(o.logger.With("component", "chat")))
		if err != nil {
			e.Close()
			return nil, err
		}
	}

	e.logger.Info("artifact loaded", "store", storePath, "records", c.Len(), "dimension", c.Dim(), "model", manifest.ModelID)
	return e, nil
}

// Retrieval returns the retrieval service.
func (e *Engine) Retrieval() *retrieval.Service {
	return e.retrieval
}

// Chat returns the chat service, or nil when generation is disabled.
func (e *Engine) Chat() *chat.Service {
	return e.chat
}

// Manifest returns the manifest of the loaded artifact.
func (e *Engine) Manifest() storage.Manifest {
	return *e.manifest
}

// Close releases the AI provider and the store.
func (e *Engine) Close() error {
	if err := e.provider.Close(); err != nil {
		e.logger.Error("error closing AI provider", "err", err)
	}
	if err := e.store.Close(); err != nil {
		e.logger.Error("error closing artifact store", "err", err)
		return err
	}
	return nil
}

// Builder builds and rebuilds the artifact at a store path.
type Builder struct {
	store    storage.ArtifactStore
	provider ai.AIProvider
	encoder  *encoder.Encoder
	logger   *slog.Logger
}

// OpenBuilder opens the store at storePath for building. The store does not
// need to hold an artifact yet.
func OpenBuilder(storePath string, opts ...Option) (*Builder, error) {
	o := applyOptions(opts)
	if o.backend == "" {
		o.backend = DetectBackend(storePath)
	}

	store, err := OpenStore(storePath, o.backend, o.logger)
	if err != nil {
		return nil, err
	}

	provider, err := NewProvider(o.aiConfig, false)
	if err != nil {
		store.Close()
		return nil, err
	}

	encOpts := []encoder.Option{encoder.WithLogger(o.logger.With("component", "encoder"))}
	if o.aiConfig.EmbeddingDimension > 0 {
		encOpts = append(encOpts, encoder.WithDimension(o.aiConfig.EmbeddingDimension))
	}
	enc, err := encoder.New(provider.Embedder(), encOpts...)
	if err != nil {
		provider.Close()
		store.Close()
		return nil, err
	}

	return &Builder{
		store:    store,
		provider: provider,
		encoder:  enc,
		logger:   o.logger,
	}, nil
}

// NewPipeline creates a build pipeline writing to the builder's store.
// Callers must Release it.
func (b *Builder) NewPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	opts = append([]ingestion.Option{ingestion.WithLogger(b.logger.With("component", "ingestion"))}, opts...)
	return ingestion.NewPipeline(b.encoder, b.store, opts...)
}

// Store returns the builder's artifact store.
func (b *Builder) Store() storage.ArtifactStore {
	return b.store
}

// Close releases the AI provider and the store.
func (b *Builder) Close() error {
	if err := b.provider.Close(); err != nil {
		b.logger.Error("error closing AI provider", "err", err)
	}
	return b.store.Close()
}

// OpenStore opens the artifact store at path with the named backend. An
// empty backend is detected from the directory contents.
func OpenStore(path, backend string, logger *slog.Logger) (storage.ArtifactStore, error) {
	if backend == "" {
		backend = DetectBackend(path)
	}
	if logger == nil {
		logger = slog.Default()
	}

	switch backend {
	case BackendBadger:
		return badger.Open(path, badger.WithLogger(logger.With("component", "artifact-store", "backend", BackendBadger)))
	case BackendFile:
		return file.Open(path, file.WithLogger(logger.With("component", "artifact-store", "backend", BackendFile)))
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}

// DetectBackend reports which backend wrote the artifact at path. A
// directory holding a file-store manifest is a file store; anything else,
// including a missing directory, is treated as badger.
func DetectBackend(path string) string {
	if _, err := os.Stat(filepath.Join(path, file.ManifestFile)); err == nil {
		return BackendFile
	} else if !errors.Is(err, fs.ErrNotExist) {
		slog.Debug("cannot inspect store directory", "path", path, "err", err)
	}
	return BackendBadger
}

// NewEmbedder creates the embedder selected by cfg.EmbeddingProvider.
func NewEmbedder(cfg *ai.Config) (ai.Embedder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.EmbeddingProvider {
	case ai.ProviderHashing:
		return hashing.NewEmbedder(cfg)
	default:
		return openai.NewEmbedder(cfg)
	}
}

// NewGenerator creates the text generator selected by cfg.GeneratorProvider.
func NewGenerator(cfg *ai.Config) (ai.TextGenerator, error) {
	if err := cfg.ValidateGenerator(); err != nil {
		return nil, err
	}
	switch cfg.GeneratorProvider {
	case ai.ProviderOllama:
		return ollama.NewGenerator(cfg)
	default:
		return openai.NewGenerator(cfg)
	}
}

// NewProvider assembles the AI services for cfg. The generator is only
// created when generation is true.
func NewProvider(cfg *ai.Config, generation bool) (ai.AIProvider, error) {
	if cfg == nil {
		cfg = ai.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if generation && cfg.EmbeddingProvider == ai.ProviderOpenAI && cfg.GeneratorProvider == ai.ProviderOpenAI {
		if err := cfg.ValidateGenerator(); err != nil {
			return nil, err
		}
		return openai.NewProvider(cfg)
	}

	embedder, err := NewEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	var generator ai.TextGenerator
	if generation {
		generator, err = NewGenerator(cfg)
		if err != nil {
			return nil, err
		}
	}
	return ai.Compose(embedder, generator), nil
}
