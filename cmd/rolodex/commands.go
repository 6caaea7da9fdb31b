package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/poiesic/rolodex"
	"github.com/poiesic/rolodex/chat"
	"github.com/poiesic/rolodex/core"
	"github.com/poiesic/rolodex/ingestion"
	"github.com/poiesic/rolodex/retrieval"
	"github.com/poiesic/rolodex/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

func buildCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	records, err := ingestion.LoadDataset(c.String("data"))
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}

	return withPipeline(c, func(p *ingestion.Pipeline) error {
		fmt.Fprintf(c.App.ErrWriter, "Dataset: %s (%d records)\n", c.String("data"), len(records))
		fmt.Fprintln(c.App.ErrWriter)

		built, err := p.Build(ctx, records)
		if err != nil {
			return fmt.Errorf("build failed: %w", err)
		}
		fmt.Fprintf(c.App.Writer, "Stored %d records (dimension %d) in %s\n", built.Len(), built.Dim(), c.String("store"))
		return nil
	})
}

func reindexCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return withPipeline(c, func(p *ingestion.Pipeline) error {
		built, err := p.Rebuild(ctx)
		if err != nil {
			return fmt.Errorf("reindex failed: %w", err)
		}
		fmt.Fprintf(c.App.Writer, "Re-encoded %d records (dimension %d) in %s\n", built.Len(), built.Dim(), c.String("store"))
		return nil
	})
}

// withPipeline opens the store for building and runs fn with a configured
// pipeline.
func withPipeline(c *cli.Context, fn func(*ingestion.Pipeline) error) error {
	if c.Int("batch-size") <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if c.Int("report-interval") <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if c.Int("max-retries") <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}
	if c.Int("pool-size") < 0 {
		return fmt.Errorf("pool-size must not be negative")
	}

	builder, err := rolodex.OpenBuilder(c.String("store"), engineOptions(c, false)...)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer builder.Close()

	opts := []ingestion.Option{
		ingestion.WithBatchSize(c.Int("batch-size")),
		ingestion.WithRetry(c.Int("max-retries"), c.Duration("retry-delay")),
		ingestion.WithProgress(c.App.ErrWriter, c.Int("report-interval")),
	}
	if size := c.Int("pool-size"); size > 0 {
		opts = append(opts, ingestion.WithPoolSize(size))
	}
	pipeline, err := builder.NewPipeline(opts...)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer pipeline.Release()

	fmt.Fprintf(c.App.ErrWriter, "Store: %s\n", c.String("store"))
	fmt.Fprintf(c.App.ErrWriter, "Embedding provider: %s\n", c.String("embedding-provider"))
	fmt.Fprintf(c.App.ErrWriter, "Embedding model: %s\n", c.String("embedding-model"))

	return fn(pipeline)
}

func queryCommand(c *cli.Context) error {
	ctx := c.Context
	k := c.Int("top-k")

	engine, err := rolodex.Open(ctx, c.String("store"), engineOptions(c, false)...)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer engine.Close()

	if c.Args().Present() {
		return printCandidates(ctx, c, engine.Retrieval(), strings.Join(c.Args().Slice(), " "), k)
	}

	fmt.Fprintln(c.App.Writer, "Enter your query (e.g. 'Find Python devs with 3+ years experience'), or 'exit' to quit.")
	scanner := bufio.NewScanner(c.App.Reader)
	for {
		fmt.Fprint(c.App.Writer, ">> ")
		if !scanner.Scan() {
			fmt.Fprintln(c.App.Writer)
			return scanner.Err()
		}

		query := strings.TrimSpace(scanner.Text())
		switch query {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		err := printCandidates(ctx, c, engine.Retrieval(), query, k)
		if errors.Is(err, core.ErrInput) {
			fmt.Fprintf(c.App.ErrWriter, "Error: %v\n", err)
			continue
		}
		if err != nil {
			return err
		}
	}
}

func printCandidates(ctx context.Context, c *cli.Context, svc *retrieval.Service, query string, k int) error {
	records, err := svc.Retrieve(ctx, query, k)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(c.App.Writer, chat.NoCandidatesMessage)
		return nil
	}
	fmt.Fprint(c.App.Writer, "\nTop Candidates:\n\n")
	fmt.Fprintln(c.App.Writer, chat.FormatCandidates(records))
	return nil
}

func serveCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	monitor, err := retrieval.NewPrometheusMonitor(reg)
	if err != nil {
		return err
	}

	generation := !c.Bool("no-generation")
	opts := append(engineOptions(c, generation), rolodex.WithMonitor(monitor))
	engine, err := rolodex.Open(ctx, c.String("store"), opts...)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer engine.Close()

	serverOpts := []server.Option{server.WithRequestTimeout(c.Duration("request-timeout"))}
	if engine.Chat() != nil {
		serverOpts = append(serverOpts, server.WithResponder(engine.Chat()))
	}
	if rps := c.Float64("rate-limit"); rps > 0 {
		serverOpts = append(serverOpts, server.WithRateLimit(rps, c.Int("rate-burst")))
	}
	metricsAddr := c.String("metrics-addr")
	if metricsAddr == "" {
		serverOpts = append(serverOpts, server.WithMetrics(reg))
	}

	srv, err := server.New(engine.Retrieval(), serverOpts...)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx, c.String("addr"))
	})
	if metricsAddr != "" {
		g.Go(func() error {
			return serveMetrics(gctx, metricsAddr, reg)
		})
	}
	return g.Wait()
}

// serveMetrics exposes reg on addr until ctx is canceled.
func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
