// hia-server runs the health report chat API: upload a report, get an
// analysis, then ask follow-up questions answered from report context.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hia-ai/hia/internal/adapters/embedding"
	"github.com/hia-ai/hia/internal/adapters/filewatcher"
	"github.com/hia-ai/hia/internal/adapters/llm"
	"github.com/hia-ai/hia/internal/adapters/loader"
	"github.com/hia-ai/hia/internal/adapters/parser"
	"github.com/hia-ai/hia/internal/adapters/store"
	"github.com/hia-ai/hia/internal/adapters/vectordb"
	"github.com/hia-ai/hia/internal/app/chat"
	"github.com/hia-ai/hia/internal/app/inbox"
	"github.com/hia-ai/hia/internal/config"
	"github.com/hia-ai/hia/internal/domain/ports"
	"github.com/hia-ai/hia/internal/domain/usecases"
	httpserver "github.com/hia-ai/hia/internal/infrastructure/http"
	"github.com/hia-ai/hia/internal/logging"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger, err := logging.New(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("error initializing logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupts
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	// Storage
	st, err := store.NewSQLiteStore(cfg.Storage.DataDir)
	if err != nil {
		logger.Fatal("error opening store", zap.Error(err))
	}
	defer st.Close()

	// PDF extraction sidecar
	pdfParser := parser.NewPythonPDFParser(cfg.Parser.PDFServiceURL)
	if cfg.Parser.PDFScriptDir != "" && !pdfParser.IsServiceHealthy(ctx) {
		stop, err := pdfParser.StartService(cfg.Parser.PDFScriptDir)
		if err != nil {
			logger.Warn("PDF sidecar not started, PDF uploads will fail", zap.Error(err))
		} else {
			defer stop()
		}
	}

	// Agents are built on first use so a missing API key degrades to an
	// in-chat error instead of a crash.
	newCompleter := func() (ports.ChatCompletionService, error) {
		return llm.New(ctx, llm.Config{
			Provider: cfg.Chat.Provider,
			BaseURL:  cfg.Chat.BaseURL,
			APIKey:   cfg.Chat.APIKey,
		})
	}

	chatAgentFactory := func() (*usecases.ChatAgent, error) {
		completer, err := newCompleter()
		if err != nil {
			return nil, err
		}
		embedder, err := embedding.New(ctx, embedding.Config{
			Provider: cfg.Embedding.Provider,
			BaseURL:  cfg.Embedding.BaseURL,
			APIKey:   cfg.Embedding.APIKey,
			Model:    cfg.Embedding.Model,
		})
		if err != nil {
			return nil, err
		}
		return usecases.NewChatAgent(embedder, completer, vectordb.NewBuilder(), usecases.ChatAgentConfig{
			Model: cfg.Chat.Model,
		}), nil
	}

	analyzerFactory := func() (*usecases.AnalysisAgent, error) {
		completer, err := newCompleter()
		if err != nil {
			return nil, err
		}
		// Only the analysis path retries transient provider failures.
		retrying := llm.NewRetryingService(completer, 3, time.Second)
		return usecases.NewAnalysisAgent(retrying, usecases.AnalysisConfig{
			Models:      cfg.Analysis.Models,
			MaxAnalyses: cfg.Analysis.MaxAnalyses,
			Window:      cfg.AnalysisWindow(),
		}), nil
	}

	orchestrator := usecases.NewOrchestrator(chatAgentFactory, analyzerFactory)
	svc := chat.NewService(orchestrator, st, st, parser.NewMultiParser(cfg.Parser.PDFServiceURL), logger)

	g, ctx := errgroup.WithContext(ctx)

	server := httpserver.NewServer(svc, cfg.HTTP.Addr, logger)
	g.Go(func() error {
		if err := server.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if cfg.Inbox.Enabled {
		if err := os.MkdirAll(cfg.Inbox.Dir, 0755); err != nil {
			logger.Fatal("error creating inbox dir", zap.Error(err))
		}
		watcher, err := filewatcher.NewFSNotifyWatcher(nil, logger)
		if err != nil {
			logger.Fatal("error creating inbox watcher", zap.Error(err))
		}
		ingestor := inbox.NewIngestor(watcher, loader.NewMultiLoader(pdfParser), svc, logger)
		g.Go(func() error {
			return ingestor.Run(ctx, cfg.Inbox.Dir)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("server error", zap.Error(err))
	}
	logger.Info("stopped")
}
