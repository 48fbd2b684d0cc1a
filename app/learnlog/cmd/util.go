package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"

	"github.com/cchalm/learnlog/internal/ai"
	"github.com/cchalm/learnlog/internal/metadata"
	"github.com/cchalm/learnlog/internal/notion"
	"github.com/cchalm/learnlog/internal/record"
	"github.com/cchalm/learnlog/internal/telemetry"
	"github.com/cchalm/learnlog/internal/transport"
)

func setupContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	// Setup graceful shutdown
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	go func() {
		<-interrupt
		log.Warn("interrupt signal detected, finishing the current pair; interrupt again to force exit")
		cancel()
		<-interrupt
		log.Error("forcing shutdown")
		log.Sync()
		os.Exit(1)
	}()

	return ctx
}

func createHTTPClient() *http.Client {
	return &http.Client{
		Transport: transport.WithRateLimiting(nil, log, transport.DefaultMaxRetries),
	}
}

func createEnricher(httpClient *http.Client) *metadata.Enricher {
	anthropicClient := ai.NewClient(cfg.AnthropicAPIKey, httpClient)
	completer := ai.NewCompleter(anthropicClient, cfg.Model, ai.DefaultMaxTokens)
	return metadata.NewEnricher(completer, cfg.CompletionTimeout)
}

// createStore returns a file store for dry runs and a verified Notion store otherwise
func createStore(ctx context.Context, httpClient *http.Client) (record.Store, error) {
	if cfg.DryRun {
		log.Info("dry run, writing records to files", "dir", cfg.OutDir)
		return record.NewFileStore(cfg.OutDir)
	}
	store := notion.NewStore(cfg.NotionToken, cfg.NotionDatabaseID, httpClient)
	if err := store.Check(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func createTelemetryProvider(ctx context.Context) (*telemetry.Provider, error) {
	telemetryConfig := telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		ServiceVersion: versionInfo.Version,
	}
	return telemetry.NewProvider(ctx, telemetryConfig, log)
}
