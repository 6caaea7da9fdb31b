package rolodex

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/rolodex/ai"
	"github.com/poiesic/rolodex/core"
	"github.com/poiesic/rolodex/storage"
	"github.com/poiesic/rolodex/storage/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exampleRecords() []core.Record {
	return []core.Record{
		{Name: "Alice", Skills: []string{"Python", "ML"}, ExperienceYears: 4, Projects: []string{"Churn Model"}, Availability: core.AvailabilityAvailable},
		{Name: "Bob", Skills: []string{"Java"}, ExperienceYears: 2, Projects: []string{"Payments API"}, Availability: core.AvailabilityAvailable},
		{Name: "Carol", Skills: []string{"Python", "NLP"}, ExperienceYears: 5, Projects: []string{"Chatbot"}, Availability: core.AvailabilityBusy},
	}
}

func hashingConfig(dim int) *ai.Config {
	return ai.NewConfig(
		ai.WithEmbeddingProvider(ai.ProviderHashing),
		ai.WithEmbeddingDimension(dim),
	)
}

func build(t *testing.T, storePath string, opts ...Option) {
	t.Helper()

	builder, err := OpenBuilder(storePath, opts...)
	require.NoError(t, err)
	defer builder.Close()

	pipeline, err := builder.NewPipeline()
	require.NoError(t, err)
	defer pipeline.Release()

	_, err = pipeline.Build(context.Background(), exampleRecords())
	require.NoError(t, err)
}

func TestOpen_BuildThenQuery(t *testing.T) {
	for _, backend := range []string{BackendBadger, BackendFile} {
		t.Run(backend, func(t *testing.T) {
			storePath := filepath.Join(t.TempDir(), "artifact")
			build(t, storePath, WithAIConfig(hashingConfig(384)), WithBackend(backend))

			assert.Equal(t, backend, DetectBackend(storePath))

			engine, err := Open(context.Background(), storePath, WithAIConfig(hashingConfig(384)))
			require.NoError(t, err)
			defer engine.Close()

			assert.Nil(t, engine.Chat(), "generation is off by default")
			assert.Equal(t, "hashing-fnv1a-384", engine.Manifest().ModelID)
			assert.Equal(t, 3, engine.Manifest().Count)

			records, err := engine.Retrieval().Retrieve(context.Background(), "Python developer with 3+ years experience", 2)
			require.NoError(t, err)
			names := []string{records[0].Name, records[1].Name}
			assert.ElementsMatch(t, []string{"Alice", "Carol"}, names)
		})
	}
}

func TestOpen_NoArtifact(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "empty")

	_, err := Open(context.Background(), storePath, WithAIConfig(hashingConfig(384)))
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, err, core.ErrArtifact)
}

func TestOpen_ModelMismatch(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "artifact")
	build(t, storePath, WithAIConfig(hashingConfig(64)))

	_, err := Open(context.Background(), storePath, WithAIConfig(hashingConfig(384)))
	assert.ErrorIs(t, err, storage.ErrIncompatibleArtifact)
	assert.ErrorIs(t, err, core.ErrArtifact)
}

func TestOpen_CorruptFileStore(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "artifact")
	build(t, storePath, WithAIConfig(hashingConfig(32)), WithBackend(BackendFile))
	require.NoError(t, os.Remove(filepath.Join(storePath, file.MetadataFile)))

	_, err := Open(context.Background(), storePath, WithAIConfig(hashingConfig(32)))
	assert.ErrorIs(t, err, core.ErrArtifact)
}

func TestOpen_WithGeneration(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "artifact")
	build(t, storePath, WithAIConfig(hashingConfig(32)))

	cfg := hashingConfig(32)
	engine, err := Open(context.Background(), storePath, WithAIConfig(cfg), WithGeneration())
	require.NoError(t, err)
	defer engine.Close()
	assert.NotNil(t, engine.Chat())

	cfg = hashingConfig(32)
	cfg.GeneratorModel = ""
	_, err = Open(context.Background(), storePath, WithAIConfig(cfg), WithGeneration())
	assert.Error(t, err)
}

func TestBuilder_Rebuild(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "artifact")
	build(t, storePath, WithAIConfig(hashingConfig(64)))

	builder, err := OpenBuilder(storePath, WithAIConfig(hashingConfig(128)))
	require.NoError(t, err)
	pipeline, err := builder.NewPipeline()
	require.NoError(t, err)
	c, err := pipeline.Rebuild(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 128, c.Dim())
	pipeline.Release()
	require.NoError(t, builder.Close())

	engine, err := Open(context.Background(), storePath, WithAIConfig(hashingConfig(128)))
	require.NoError(t, err)
	defer engine.Close()
	assert.Equal(t, 3, engine.Retrieval().Len())
}

func TestOpenStore(t *testing.T) {
	t.Run("unknown backend", func(t *testing.T) {
		_, err := OpenStore(t.TempDir(), "sqlite", nil)
		assert.Error(t, err)
	})

	t.Run("path is a file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "not_a_dir")
		require.NoError(t, os.WriteFile(path, []byte("test"), 0o644))

		_, err := OpenStore(path, BackendBadger, nil)
		assert.Error(t, err)
	})
}

func TestNewProvider(t *testing.T) {
	t.Run("hashing without generator", func(t *testing.T) {
		provider, err := NewProvider(hashingConfig(16), false)
		require.NoError(t, err)
		defer provider.Close()
		assert.Equal(t, "hashing-fnv1a-16", provider.Embedder().ModelID())
		assert.Nil(t, provider.Generator())
	})

	t.Run("openai pair", func(t *testing.T) {
		cfg := ai.NewConfig(ai.WithGeneratorProvider(ai.ProviderOpenAI), ai.WithGeneratorHost("http://localhost:11434"))
		provider, err := NewProvider(cfg, true)
		require.NoError(t, err)
		defer provider.Close()
		assert.NotNil(t, provider.Embedder())
		assert.NotNil(t, provider.Generator())
	})

	t.Run("unknown embedding provider", func(t *testing.T) {
		cfg := ai.NewConfig(ai.WithEmbeddingProvider("word2vec"))
		_, err := NewProvider(cfg, false)
		assert.Error(t, err)
	})

	t.Run("nil config uses defaults", func(t *testing.T) {
		provider, err := NewProvider(nil, false)
		require.NoError(t, err)
		assert.Equal(t, "openai:all-minilm", provider.Embedder().ModelID())
	})
}
