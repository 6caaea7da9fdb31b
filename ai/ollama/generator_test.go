package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/poiesic/rolodex/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(host string) *ai.Config {
	return ai.NewConfig(
		ai.WithGeneratorProvider(ai.ProviderOllama),
		ai.WithGeneratorHost(host),
		ai.WithGeneratorModel("llama2"),
	)
}

func TestGenerator_Generate(t *testing.T) {
	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Model string `json:"model"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotModel = req.Model

		w.Header().Set("Content-Type", "application/x-ndjson")
		_, _ = w.Write([]byte(`{"model":"llama2","message":{"role":"assistant","content":"\nCarol is a strong fit.  "},"done":true}` + "\n"))
	}))
	defer srv.Close()

	generator, err := NewGenerator(testConfig(srv.URL))
	require.NoError(t, err)

	answer, err := generator.Generate(context.Background(), "Who knows NLP?")
	require.NoError(t, err)
	assert.Equal(t, "Carol is a strong fit.", answer)
	assert.Equal(t, "llama2", gotModel)
}

func TestGenerator_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model 'llama2' not found"}` + "\n"))
	}))
	defer srv.Close()

	generator, err := NewGenerator(testConfig(srv.URL))
	require.NoError(t, err)

	_, err = generator.Generate(context.Background(), "Who knows NLP?")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestNewGenerator_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  *ai.Config
	}{
		{
			name: "wrong provider",
			cfg: ai.NewConfig(
				ai.WithGeneratorProvider(ai.ProviderOpenAI),
				ai.WithGeneratorHost("http://localhost:11434"),
			),
		},
		{
			name: "relative host",
			cfg:  ai.NewConfig(ai.WithGeneratorHost("localhost")),
		},
		{
			name: "missing model",
			cfg:  ai.NewConfig(ai.WithGeneratorModel("")),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGenerator(tt.cfg)
			assert.Error(t, err)
		})
	}
}
