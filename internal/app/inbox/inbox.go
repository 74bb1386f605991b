// Package inbox turns a watched directory into a report source:
// dropping a report file creates a session, ingests the text, and runs
// the analysis headlessly.
package inbox

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hia-ai/hia/internal/app/chat"
	"github.com/hia-ai/hia/internal/domain/ports"
)

// settleDelay gives the writer a moment to finish after Create fires,
// which happens before the file contents land.
const settleDelay = 200 * time.Millisecond

// Ingestor consumes file events from a reports directory and feeds
// them through the chat service.
type Ingestor struct {
	watcher ports.FileWatcher
	loader  ports.ReportLoader
	service *chat.Service
	logger  *zap.Logger

	seen map[string]bool
}

// NewIngestor creates a reports-inbox ingestor.
func NewIngestor(watcher ports.FileWatcher, loader ports.ReportLoader, service *chat.Service, logger *zap.Logger) *Ingestor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingestor{
		watcher: watcher,
		loader:  loader,
		service: service,
		logger:  logger,
		seen:    make(map[string]bool),
	}
}

// Run watches dir and ingests dropped report files until ctx is done.
// Each path ingests once per process: the Write events that follow a
// Create are not a second report.
func (i *Ingestor) Run(ctx context.Context, dir string) error {
	events, err := i.watcher.Watch(ctx, dir)
	if err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	i.logger.Info("reports inbox open", zap.String("dir", dir))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if event.Operation != ports.FileCreated || i.seen[event.Path] {
				continue
			}
			i.seen[event.Path] = true

			if err := i.ingest(ctx, event.Path); err != nil {
				i.logger.Warn("inbox ingestion failed",
					zap.String("path", event.Path),
					zap.Error(err))
			}
		}
	}
}

// ingest loads one report file into a fresh session.
func (i *Ingestor) ingest(ctx context.Context, path string) error {
	select {
	case <-time.After(settleDelay):
	case <-ctx.Done():
		return ctx.Err()
	}

	report, err := i.loader.Load(ctx, path)
	if err != nil {
		return fmt.Errorf("loading report: %w", err)
	}

	name := filepath.Base(path)
	title := strings.TrimSuffix(name, filepath.Ext(name))
	out, err := i.service.StartSession(ctx, chat.StartSessionInput{Title: title})
	if err != nil {
		return fmt.Errorf("starting session: %w", err)
	}

	report.SessionID = out.Session.ID
	if _, err := i.service.IngestReport(ctx, *report); err != nil {
		return fmt.Errorf("ingesting %s: %w", name, err)
	}

	i.logger.Info("inbox report ingested",
		zap.String("file", name),
		zap.String("session_id", out.Session.ID))
	return nil
}
