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


package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "rolodex",
		Usage: "Semantic search over employee records",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				EnvVars: envVar("LOG_LEVEL"),
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "build",
				Usage:  "Encode a dataset of employee records and store the artifact",
				Action: buildCommand,
				Flags: concat(
					[]cli.Flag{
						&cli.StringFlag{
							Name:     "data",
							Aliases:  []string{"f"},
							Usage:    "Path to the dataset (.json, .yaml or .yml)",
							EnvVars:  envVar("DATA"),
							Required: true,
						},
					},
					storeFlags(),
					embeddingFlags(),
					pipelineFlags(),
				),
			},
			{
				Name:   "reindex",
				Usage:  "Re-encode the stored records with the configured embedding model",
				Action: reindexCommand,
				Flags:  concat(storeFlags(), embeddingFlags(), pipelineFlags()),
			},
			{
				Name:      "query",
				Usage:     "Find the employees closest to a query",
				ArgsUsage: "[QUERY...]",
				Action:    queryCommand,
				Flags:     concat(storeFlags(), embeddingFlags(), []cli.Flag{topKFlag()}),
			},
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API",
				Action: serveCommand,
				Flags:  concat(storeFlags(), embeddingFlags(), generatorFlags(), serveFlags()),
			},
		},
	}
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
