package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/docfill/internal/api"
	"github.com/dgallion1/docfill/internal/assistant"
	"github.com/dgallion1/docfill/internal/config"
	"github.com/dgallion1/docfill/internal/pipeline"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: config.ParseLevel(cfg.LogLevel)}))
	if err != nil {
		log.Error("load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Replies come from the model when a key is configured, templates otherwise.
	var (
		phraser assistant.Phraser
		stats   *assistant.LLMStats
		claude  *assistant.ClaudeClient
	)
	if cfg.AnthropicAPIKey != "" {
		stats = assistant.NewLLMStats(time.Hour)
		claude = assistant.NewClaudeClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.AnthropicTimeout)
		phraser = assistant.NewClaudePhraser(claude, stats, cfg.HistoryTokenBudget, log)
	} else {
		log.Info("ANTHROPIC_API_KEY not set, using template replies")
	}

	orch := pipeline.NewOrchestrator(cfg, phraser, log)
	orch.Start(ctx)

	srv := api.NewServer(orch, stats, log, cfg)
	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting docfill", "port", cfg.Port, "scan_headers", cfg.ScanHeaders)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := httpServer.Shutdown(shutdownCtx)
		if claude != nil {
			claude.Close()
		}
		return err
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
