package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poiesic/rolodex/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

const dataset = `{"employees": [
  {"name": "Alice", "skills": ["Python", "ML"], "experience_years": 4, "projects": ["Churn Model"], "availability": "available"},
  {"name": "Bob", "skills": ["Java"], "experience_years": 2, "projects": ["Payments API"], "availability": "available"},
  {"name": "Carol", "skills": ["Python", "NLP"], "experience_years": 5, "projects": ["Chatbot"], "availability": "busy"}
]}`

func writeDataset(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "employees.json")
	require.NoError(t, os.WriteFile(path, []byte(dataset), 0o644))
	return path
}

// runApp runs the CLI with args and returns what it wrote to stdout and
// stderr.
func runApp(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	app := newApp()
	app.Writer = &stdout
	app.ErrWriter = &stderr
	app.Reader = strings.NewReader(stdin)

	err := app.Run(append([]string{"rolodex", "--log-level", "error"}, args...))
	return stdout.String(), stderr.String(), err
}

func hashingArgs(dim string) []string {
	return []string{"--embedding-provider", "hashing", "--embedding-dimension", dim}
}

func TestBuildAndQuery(t *testing.T) {
	data := writeDataset(t)
	store := filepath.Join(t.TempDir(), "artifact")

	stdout, stderr, err := runApp(t, "", append([]string{"build", "--data", data, "--store", store, "--report-interval", "1"}, hashingArgs("384")...)...)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Stored 3 records (dimension 384)")
	assert.Contains(t, stderr, "Dataset: "+data+" (3 records)")
	assert.Contains(t, stderr, "Encoded: 3/3")

	stdout, _, err = runApp(t, "", append([]string{"query", "--store", store, "-k", "2"}, append(hashingArgs("384"), "Python", "developer", "with", "3+", "years", "experience")...)...)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Top Candidates:")
	assert.Contains(t, stdout, "**Alice**")
	assert.Contains(t, stdout, "**Carol**")
	assert.NotContains(t, stdout, "**Bob**")
	assert.Contains(t, stdout, "• Availability: Busy")
}

func TestQuery_Interactive(t *testing.T) {
	data := writeDataset(t)
	store := filepath.Join(t.TempDir(), "artifact")

	_, _, err := runApp(t, "", append([]string{"build", "--data", data, "--store", store}, hashingArgs("384")...)...)
	require.NoError(t, err)

	stdout, _, err := runApp(t, "\n  \nPython developer\nexit\nJava\n", append([]string{"query", "--store", store, "--top-k", "3"}, hashingArgs("384")...)...)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(stdout, "Top Candidates:"), "stops at exit")
	assert.Equal(t, 4, strings.Count(stdout, ">> "))
	assert.Contains(t, stdout, "\n---\n")
}

func TestQuery_EndOfInput(t *testing.T) {
	data := writeDataset(t)
	store := filepath.Join(t.TempDir(), "artifact")

	_, _, err := runApp(t, "", append([]string{"build", "--data", data, "--store", store}, hashingArgs("32")...)...)
	require.NoError(t, err)

	stdout, _, err := runApp(t, "Java", append([]string{"query", "--store", store}, hashingArgs("32")...)...)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Top Candidates:")
}

func TestReindex_FileBackend(t *testing.T) {
	data := writeDataset(t)
	store := filepath.Join(t.TempDir(), "artifact")

	_, _, err := runApp(t, "", append([]string{"build", "--data", data, "--store", store, "--backend", "file"}, hashingArgs("64")...)...)
	require.NoError(t, err)

	stdout, _, err := runApp(t, "", append([]string{"reindex", "--store", store}, hashingArgs("128")...)...)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Re-encoded 3 records (dimension 128)")

	_, _, err = runApp(t, "", append([]string{"query", "--store", store}, append(hashingArgs("64"), "Java")...)...)
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrIncompatibleArtifact)

	stdout, _, err = runApp(t, "", append([]string{"query", "--store", store}, append(hashingArgs("128"), "Java")...)...)
	require.NoError(t, err)
	assert.Contains(t, stdout, "**Bob**")
}

func TestBuild_Validation(t *testing.T) {
	data := writeDataset(t)
	store := filepath.Join(t.TempDir(), "artifact")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing data", []string{"build", "--store", store}, "data"},
		{"missing store", []string{"build", "--data", data}, "store"},
		{"zero batch size", []string{"build", "--data", data, "--store", store, "--batch-size", "0"}, "batch-size"},
		{"zero report interval", []string{"build", "--data", data, "--store", store, "--report-interval", "0"}, "report-interval"},
		{"zero max retries", []string{"build", "--data", data, "--store", store, "--max-retries", "0"}, "max-retries"},
		{"negative pool size", []string{"build", "--data", data, "--store", store, "--pool-size", "-1"}, "pool-size"},
		{"missing dataset", []string{"build", "--data", filepath.Join(t.TempDir(), "nope.json"), "--store", store}, "failed to load dataset"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runApp(t, "", append(tt.args, hashingArgs("16")...)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestQuery_MissingArtifact(t *testing.T) {
	store := filepath.Join(t.TempDir(), "nothing")

	_, _, err := runApp(t, "", append([]string{"query", "--store", store}, append(hashingArgs("16"), "Java")...)...)
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestServe_MissingArtifact(t *testing.T) {
	store := filepath.Join(t.TempDir(), "nothing")

	_, _, err := runApp(t, "", append([]string{"serve", "--store", store, "--addr", "127.0.0.1:0"}, hashingArgs("16")...)...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open store")
}

func TestStoreFromEnvironment(t *testing.T) {
	data := writeDataset(t)
	store := filepath.Join(t.TempDir(), "artifact")
	t.Setenv("ROLODEX_STORE", store)
	t.Setenv("ROLODEX_EMBEDDING_PROVIDER", "hashing")
	t.Setenv("ROLODEX_EMBEDDING_DIMENSION", "48")

	_, _, err := runApp(t, "", "build", "--data", data)
	require.NoError(t, err)

	stdout, _, err := runApp(t, "", "query", "Java")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Top Candidates:")
}

func TestCommandFlags(t *testing.T) {
	app := newApp()

	find := func(command, name string) cli.Flag {
		for _, cmd := range app.Commands {
			if cmd.Name != command {
				continue
			}
			for _, flag := range cmd.Flags {
				for _, n := range flag.Names() {
					if n == name {
						return flag
					}
				}
			}
		}
		return nil
	}

	t.Run("every command takes a store", func(t *testing.T) {
		for _, command := range []string{"build", "reindex", "query", "serve"} {
			flag, ok := find(command, "store").(*cli.StringFlag)
			require.True(t, ok, command)
			assert.True(t, flag.Required)
			assert.Equal(t, []string{"ROLODEX_STORE"}, flag.EnvVars)
		}
	})

	t.Run("api key falls back to OPENAI_API_KEY", func(t *testing.T) {
		flag, ok := find("serve", "api-key").(*cli.StringFlag)
		require.True(t, ok)
		assert.Equal(t, []string{"ROLODEX_API_KEY", "OPENAI_API_KEY"}, flag.EnvVars)
	})

	t.Run("serve defaults", func(t *testing.T) {
		addr, ok := find("serve", "addr").(*cli.StringFlag)
		require.True(t, ok)
		assert.Equal(t, ":8000", addr.Value)

		model, ok := find("serve", "generator-model").(*cli.StringFlag)
		require.True(t, ok)
		assert.Equal(t, "llama2", model.Value)
	})

	t.Run("query has no generator flags", func(t *testing.T) {
		assert.Nil(t, find("query", "generator-model"))
		topK, ok := find("query", "top-k").(*cli.IntFlag)
		require.True(t, ok)
		assert.Equal(t, 3, topK.Value)
	})
}

func TestSetupLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	t.Run("valid log levels", func(t *testing.T) {
		testCases := []string{"debug", "info", "warn", "error", "DEBUG", "WaRn"}

		for _, tc := range testCases {
			t.Run(tc, func(t *testing.T) {
				app := &cli.App{
					Name: "test",
					Flags: []cli.Flag{
						&cli.StringFlag{
							Name:  "log-level",
							Value: "info",
						},
					},
					Before: setupLogger,
					Action: func(c *cli.Context) error {
						return nil
					},
				}

				err := app.Run([]string{"test", "--log-level", tc})
				require.NoError(t, err)
			})
		}
	})

	t.Run("invalid log level returns error", func(t *testing.T) {
		_, _, err := runApp(t, "", "--log-level", "verbose", "query")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})

	t.Run("log-level flag has alias -l", func(t *testing.T) {
		app := newApp()
		app.Commands = nil
		app.Action = func(c *cli.Context) error {
			assert.Equal(t, "debug", c.String("log-level"))
			return nil
		}

		err := app.Run([]string{"rolodex", "-l", "debug"})
		require.NoError(t, err)
	})
}
