package ingestion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/rolodex/ai/hashing"
	"github.com/poiesic/rolodex/ai/mock"
	"github.com/poiesic/rolodex/core"
	"github.com/poiesic/rolodex/encoder"
	"github.com/poiesic/rolodex/storage"
	"github.com/poiesic/rolodex/storage/badger"
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

func manyRecords(n int) []core.Record {
	records := make([]core.Record, n)
	for i := range records {
		records[i] = core.Record{
			Name:            fmt.Sprintf("Employee %d", i),
			Skills:          []string{fmt.Sprintf("skill-%d", i%7)},
			ExperienceYears: i % 12,
			Projects:        []string{fmt.Sprintf("project-%d", i)},
			Availability:    core.AvailabilityAvailable,
		}
	}
	return records
}

func setupTestStore(t *testing.T) storage.ArtifactStore {
	t.Helper()

	store, backend, err := badger.NewMemoryArtifactStore()
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
		backend.Close()
	})
	return store
}

func setupTestPipeline(t *testing.T, embedder *mock.MockEmbedder, store storage.ArtifactStore, opts ...Option) *Pipeline {
	t.Helper()

	enc, err := encoder.New(embedder)
	require.NoError(t, err)

	p, err := NewPipeline(enc, store, opts...)
	require.NoError(t, err)
	t.Cleanup(p.Release)
	return p
}

func TestNewPipeline_Validation(t *testing.T) {
	enc, err := encoder.New(mock.NewMockEmbedder())
	require.NoError(t, err)
	store := setupTestStore(t)

	tests := []struct {
		name    string
		enc     *encoder.Encoder
		store   storage.ArtifactStore
		opts    []Option
		wantErr error
	}{
		{"missing encoder", nil, store, nil, ErrEncoderRequired},
		{"missing store", enc, nil, nil, ErrStoreRequired},
		{"typed nil store", enc, (*badger.ArtifactStore)(nil), nil, ErrStoreRequired},
		{"zero batch size", enc, store, []Option{WithBatchSize(0)}, core.ErrInput},
		{"zero attempts", enc, store, []Option{WithRetry(0, time.Second)}, encoder.ErrInvalidMaxAttempts},
		{"negative delay", enc, store, []Option{WithRetry(2, -time.Second)}, core.ErrInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPipeline(tt.enc, tt.store, tt.opts...)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("valid options", func(t *testing.T) {
		p, err := NewPipeline(enc, store,
			WithPoolSize(0),
			WithBatchSize(8),
			WithRetry(1, 0),
			WithLogger(nil),
		)
		require.NoError(t, err)
		defer p.Release()

		assert.Equal(t, 1, p.embeddingPool.Cap())
		assert.Equal(t, 8, p.batchSize)
		assert.Equal(t, 1, p.maxAttempts)
		assert.NotNil(t, p.logger)
	})
}

func TestBuild_ExampleScenario(t *testing.T) {
	embedder, err := hashing.New(384)
	require.NoError(t, err)
	enc, err := encoder.New(embedder)
	require.NoError(t, err)
	store := setupTestStore(t)

	p, err := NewPipeline(enc, store, WithBatchSize(2), WithPoolSize(2))
	require.NoError(t, err)
	defer p.Release()

	ctx := context.Background()
	c, err := p.Build(ctx, exampleRecords())
	require.NoError(t, err)
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, 384, c.Dim())

	query, err := enc.EncodeOne(ctx, "Python developer with 3+ years experience")
	require.NoError(t, err)

	hits, err := c.Search(query, 2)
	require.NoError(t, err)
	positions := []int{hits[0].Position, hits[1].Position}
	found, err := c.Resolve(positions)
	require.NoError(t, err)

	names := []string{found[0].Name, found[1].Name}
	assert.ElementsMatch(t, []string{"Alice", "Carol"}, names)

	hits, err = c.Search(query, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 3)

	loaded, manifest, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, c.Records(), loaded.Records())
	assert.Equal(t, "hashing-fnv1a-384", manifest.ModelID)
	assert.Equal(t, core.ProjectionVersion, manifest.ProjectionVersion)
}

func TestBuild_PreservesInputOrder(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.Dimension = 8
	// Finish batches out of order.
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		time.Sleep(time.Duration(len(texts[0])%4) * time.Millisecond)
		inner := mock.MockEmbedder{Dimension: 8}
		return inner.EmbedTexts(ctx, texts)
	}

	records := manyRecords(50)
	p := setupTestPipeline(t, embedder, setupTestStore(t), WithBatchSize(3), WithPoolSize(4))

	c, err := p.Build(context.Background(), records)
	require.NoError(t, err)
	require.Equal(t, len(records), c.Len())

	stored := c.Records()
	reference := mock.MockEmbedder{Dimension: 8}
	for i := range records {
		assert.Equal(t, records[i].Name, stored[i].Name, "position %d", i)

		vector, err := reference.EmbedText(context.Background(), core.RecordText(&records[i]))
		require.NoError(t, err)
		hits, err := c.Search(vector, 1)
		require.NoError(t, err)
		assert.Equal(t, i, hits[0].Position, "vector of record %d", i)
	}
}

func TestBuild_AssignsContentIDs(t *testing.T) {
	records := exampleRecords()
	records[1].Id = 42

	p := setupTestPipeline(t, mock.NewMockEmbedder(), setupTestStore(t))
	c, err := p.Build(context.Background(), records)
	require.NoError(t, err)

	stored := c.Records()
	assert.Equal(t, core.IDFromContent(core.RecordText(&records[0])), stored[0].Id)
	assert.Equal(t, core.ID(42), stored[1].Id)
	assert.NotZero(t, stored[2].Id)
	assert.Zero(t, records[0].Id, "input is not modified")
}

func TestBuild_EmptyInput(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	p := setupTestPipeline(t, embedder, setupTestStore(t))

	_, err := p.Build(context.Background(), nil)
	assert.ErrorIs(t, err, core.ErrInput)
	assert.Equal(t, 0, embedder.CallCount())
}

func TestBuild_InvalidRecord(t *testing.T) {
	store := setupTestStore(t)
	embedder := mock.NewMockEmbedder()
	p := setupTestPipeline(t, embedder, store)

	records := exampleRecords()
	records[2].ExperienceYears = -1

	_, err := p.Build(context.Background(), records)
	assert.ErrorIs(t, err, core.ErrInput)
	assert.ErrorIs(t, err, core.ErrNegativeExperience)
	assert.Equal(t, 0, embedder.CallCount())

	_, _, err = store.Load(context.Background())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestBuild_RetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("service unavailable")
		}
		inner := mock.MockEmbedder{}
		return inner.EmbedTexts(ctx, texts)
	}

	p := setupTestPipeline(t, embedder, setupTestStore(t), WithRetry(3, time.Millisecond))
	c, err := p.Build(context.Background(), exampleRecords())
	require.NoError(t, err)
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, int32(2), calls.Load())
}

func TestBuild_DimensionMismatchIsNotRetried(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		vectors := make([][]float32, len(texts))
		for i := range vectors {
			vectors[i] = []float32{1, 2, 3}
		}
		return vectors, nil
	}

	enc, err := encoder.New(embedder, encoder.WithDimension(4))
	require.NoError(t, err)
	p, err := NewPipeline(enc, setupTestStore(t), WithRetry(5, time.Millisecond))
	require.NoError(t, err)
	defer p.Release()

	_, err = p.Build(context.Background(), exampleRecords())
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)
	assert.Equal(t, 1, embedder.CallCount())
}

func TestBuild_FailureKeepsPreviousArtifact(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	first := setupTestPipeline(t, mock.NewMockEmbedder(), store)
	_, err := first.Build(ctx, exampleRecords())
	require.NoError(t, err)

	failing := mock.NewMockEmbedder()
	failing.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("connection refused")
	}
	second := setupTestPipeline(t, failing, store, WithRetry(2, time.Millisecond), WithBatchSize(1))

	_, err = second.Build(ctx, manyRecords(10))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	loaded, _, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Len())
}

func TestBuild_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := setupTestPipeline(t, mock.NewMockEmbedder(), setupTestStore(t))
	_, err := p.Build(ctx, exampleRecords())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuild_Progress(t *testing.T) {
	var buf bytes.Buffer
	p := setupTestPipeline(t, mock.NewMockEmbedder(), setupTestStore(t), WithProgress(&buf, 1), WithBatchSize(1))

	_, err := p.Build(context.Background(), exampleRecords())
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Encoded: 3/3 records, batch 3/3")
	assert.Contains(t, buf.String(), "Saving: 3 records (dimension 384)... done in ")
}

func TestBuild_EmptyLists(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	records := []core.Record{
		{Name: "Dana", Skills: []string{"Go"}, ExperienceYears: 1, Availability: core.AvailabilityAvailable},
		{Name: "Eve", Skills: []string{}, ExperienceYears: 0, Projects: []string{}, Availability: core.AvailabilityBusy},
	}

	c, err := setupTestPipeline(t, mock.NewMockEmbedder(), store).Build(ctx, records)
	require.NoError(t, err)
	for _, r := range c.Records() {
		assert.NotNil(t, r.Skills, r.Name)
		assert.NotNil(t, r.Projects, r.Name)
	}
	assert.Nil(t, records[0].Projects, "input is not modified")

	loaded, _, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, c.Records(), loaded.Records())

	data, err := json.Marshal(loaded.Records())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "null")
	assert.Contains(t, string(data), `"skills":[],"experience_years":0,"projects":[]`)
}

func TestRebuild(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	oldModel := mock.NewMockEmbedder()
	oldModel.Model = "old"
	built, err := setupTestPipeline(t, oldModel, store).Build(ctx, exampleRecords())
	require.NoError(t, err)

	newModel := mock.NewMockEmbedder()
	newModel.Model = "new"
	newModel.Dimension = 16
	rebuilt, err := setupTestPipeline(t, newModel, store).Rebuild(ctx)
	require.NoError(t, err)

	assert.Equal(t, built.Records(), rebuilt.Records())
	assert.Equal(t, 16, rebuilt.Dim())

	_, manifest, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new", manifest.ModelID)
	assert.NoError(t, manifest.Check("new"))
	assert.ErrorIs(t, manifest.Check("old"), storage.ErrIncompatibleArtifact)
}

func TestRebuild_NothingStored(t *testing.T) {
	p := setupTestPipeline(t, mock.NewMockEmbedder(), setupTestStore(t))

	_, err := p.Rebuild(context.Background())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRelease(t *testing.T) {
	p := setupTestPipeline(t, mock.NewMockEmbedder(), setupTestStore(t))
	p.Release()

	_, err := p.Build(context.Background(), exampleRecords())
	assert.ErrorIs(t, err, ErrPipelineReleased)
}
