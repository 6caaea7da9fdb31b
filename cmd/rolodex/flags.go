package main

import (
	"github.com/poiesic/rolodex"
	"github.com/poiesic/rolodex/ai"
	"github.com/poiesic/rolodex/ingestion"
	"github.com/poiesic/rolodex/server"
	"github.com/urfave/cli/v2"
)

func envVar(name string) []string {
	return []string{"ROLODEX_" + name}
}

func storeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "store",
			Aliases:  []string{"s"},
			Usage:    "Path to the artifact store directory",
			EnvVars:  envVar("STORE"),
			Required: true,
		},
		&cli.StringFlag{
			Name:    "backend",
			Usage:   "Artifact store backend (badger, file); detected from the store when empty",
			EnvVars: envVar("BACKEND"),
		},
	}
}

func embeddingFlags() []cli.Flag {
	defaults := ai.DefaultConfig()
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "embedding-provider",
			Usage:   "Embedding provider (openai, hashing)",
			EnvVars: envVar("EMBEDDING_PROVIDER"),
			Value:   defaults.EmbeddingProvider,
		},
		&cli.StringFlag{
			Name:    "embedding-host",
			Usage:   "Embedding service host URL",
			EnvVars: envVar("EMBEDDING_HOST"),
			Value:   defaults.EmbeddingHost,
		},
		&cli.StringFlag{
			Name:    "embedding-model",
			Usage:   "Embedding model name",
			EnvVars: envVar("EMBEDDING_MODEL"),
			Value:   defaults.EmbeddingModel,
		},
		&cli.IntFlag{
			Name:    "embedding-dimension",
			Usage:   "Expected embedding dimension (0 accepts what the model returns)",
			EnvVars: envVar("EMBEDDING_DIMENSION"),
		},
		&cli.StringFlag{
			Name:    "api-key",
			Usage:   "API key for OpenAI-compatible services",
			EnvVars: append(envVar("API_KEY"), "OPENAI_API_KEY"),
			Value:   defaults.APIKey,
		},
	}
}

func generatorFlags() []cli.Flag {
	defaults := ai.DefaultConfig()
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "generator-provider",
			Usage:   "Text generation provider (ollama, openai)",
			EnvVars: envVar("GENERATOR_PROVIDER"),
			Value:   defaults.GeneratorProvider,
		},
		&cli.StringFlag{
			Name:    "generator-host",
			Usage:   "Text generation service host URL",
			EnvVars: envVar("GENERATOR_HOST"),
			Value:   defaults.GeneratorHost,
		},
		&cli.StringFlag{
			Name:    "generator-model",
			Usage:   "Text generation model name",
			EnvVars: envVar("GENERATOR_MODEL"),
			Value:   defaults.GeneratorModel,
		},
	}
}

func pipelineFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "batch-size",
			Usage:   "Number of records encoded per embedder call",
			EnvVars: envVar("BATCH_SIZE"),
			Value:   ingestion.DefaultBatchSize,
		},
		&cli.IntFlag{
			Name:    "pool-size",
			Usage:   "Number of batches encoded concurrently (0 picks from CPU count)",
			EnvVars: envVar("POOL_SIZE"),
		},
		&cli.IntFlag{
			Name:    "max-retries",
			Usage:   "Maximum attempts per batch",
			EnvVars: envVar("MAX_RETRIES"),
			Value:   ingestion.DefaultMaxAttempts,
		},
		&cli.DurationFlag{
			Name:    "retry-delay",
			Usage:   "Base delay for exponential backoff",
			EnvVars: envVar("RETRY_DELAY"),
			Value:   ingestion.DefaultRetryDelay,
		},
		&cli.IntFlag{
			Name:    "report-interval",
			Usage:   "Report progress every N records",
			EnvVars: envVar("REPORT_INTERVAL"),
			Value:   100,
		},
	}
}

func serveFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "addr",
			Usage:   "Address the HTTP API listens on",
			EnvVars: envVar("ADDR"),
			Value:   ":8000",
		},
		&cli.StringFlag{
			Name:    "metrics-addr",
			Usage:   "Serve /metrics on a separate address instead of the API address",
			EnvVars: envVar("METRICS_ADDR"),
		},
		&cli.DurationFlag{
			Name:    "request-timeout",
			Usage:   "Maximum time spent on one request",
			EnvVars: envVar("REQUEST_TIMEOUT"),
			Value:   server.DefaultRequestTimeout,
		},
		&cli.Float64Flag{
			Name:    "rate-limit",
			Usage:   "Query requests per second (0 disables limiting)",
			EnvVars: envVar("RATE_LIMIT"),
		},
		&cli.IntFlag{
			Name:    "rate-burst",
			Usage:   "Burst size for the rate limit",
			EnvVars: envVar("RATE_BURST"),
			Value:   10,
		},
		&cli.BoolFlag{
			Name:    "no-generation",
			Usage:   "Disable POST /chat and skip generator setup",
			EnvVars: envVar("NO_GENERATION"),
		},
	}
}

func topKFlag() cli.Flag {
	return &cli.IntFlag{
		Name:    "top-k",
		Aliases: []string{"k"},
		Usage:   "Number of candidates to return",
		EnvVars: envVar("TOP_K"),
		Value:   server.DefaultTopK,
	}
}

func concat(groups ...[]cli.Flag) []cli.Flag {
	var flags []cli.Flag
	for _, g := range groups {
		flags = append(flags, g...)
	}
	return flags
}

// aiConfig builds the AI configuration from the command's flags. Generator
// flags are read only when generation is true.
func aiConfig(c *cli.Context, generation bool) *ai.Config {
	cfg := ai.NewConfig(
		ai.WithEmbeddingProvider(c.String("embedding-provider")),
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithEmbeddingDimension(c.Int("embedding-dimension")),
		ai.WithAPIKey(c.String("api-key")),
	)
	if generation {
		cfg.GeneratorProvider = c.String("generator-provider")
		cfg.GeneratorHost = c.String("generator-host")
		cfg.GeneratorModel = c.String("generator-model")
	}
	return cfg
}

func engineOptions(c *cli.Context, generation bool) []rolodex.Option {
	opts := []rolodex.Option{
		rolodex.WithAIConfig(aiConfig(c, generation)),
		rolodex.WithBackend(c.String("backend")),
	}
	if generation {
		opts = append(opts, rolodex.WithGeneration())
	}
	return opts
}
