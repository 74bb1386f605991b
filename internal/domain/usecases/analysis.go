// Package usecases - analysis.go runs the one-shot report analysis:
// rate limited per process, with an ordered model fallback chain.
package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hia-ai/hia/internal/domain/entities"
	"github.com/hia-ai/hia/internal/domain/ports"
)

// ErrRateLimited is returned when the analysis budget for the current
// window is spent.
var ErrRateLimited = errors.New("analysis rate limit reached")

// ErrEmptyReport is returned when there is no report text to analyze.
var ErrEmptyReport = errors.New("report text is empty")

// DefaultAnalysisPrompt drives the report breakdown when the caller does
// not supply its own instructions.
const DefaultAnalysisPrompt = "You are a medical report analysis assistant. " +
	"Break down the provided health report for a non-expert: summarize the key findings, " +
	"flag any values outside their reference ranges, and explain in plain language what " +
	"each flagged value can indicate. Structure the response as Summary, Flagged Values, " +
	"and Follow-up Suggestions. Close by noting this is informational and not medical advice."

const (
	defaultAnalysisLimit  = 5
	defaultAnalysisWindow = time.Hour
	analysisTemperature   = 0.3
	analysisMaxTokens     = 1024
)

// Tried in order until one produces an answer.
var defaultAnalysisModels = []string{
	"llama-3.3-70b-versatile",
	"llama-3.1-8b-instant",
}

// AnalysisConfig carries the analysis agent tunables.
type AnalysisConfig struct {
	Models      []string
	MaxAnalyses int
	Window      time.Duration
}

// AnalysisAgent produces the structured breakdown of a freshly uploaded
// report. Analyses are expensive, so the agent enforces a fixed-window
// budget and walks a fallback chain of models when the primary fails.
type AnalysisAgent struct {
	completer ports.ChatCompletionService
	models    []string
	limit     int
	window    time.Duration

	mu          sync.Mutex
	windowStart time.Time
	used        int

	now func() time.Time
}

// NewAnalysisAgent creates an AnalysisAgent with injected dependencies.
func NewAnalysisAgent(completer ports.ChatCompletionService, cfg AnalysisConfig) *AnalysisAgent {
	if len(cfg.Models) == 0 {
		cfg.Models = defaultAnalysisModels
	}
	if cfg.MaxAnalyses <= 0 {
		cfg.MaxAnalyses = defaultAnalysisLimit
	}
	if cfg.Window <= 0 {
		cfg.Window = defaultAnalysisWindow
	}
	return &AnalysisAgent{
		completer: completer,
		models:    cfg.Models,
		limit:     cfg.MaxAnalyses,
		window:    cfg.Window,
		now:       time.Now,
	}
}

// CheckRateLimit reports whether another analysis is allowed, how many
// remain in the current window, and when the window resets.
func (a *AnalysisAgent) CheckRateLimit() (bool, int, time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.roll(a.now())
	remaining := a.limit - a.used
	return remaining > 0, remaining, a.windowStart.Add(a.window)
}

// AnalyzeReport generates the analysis for one report. The budget is
// consumed per attempt, not per success, so a failing provider cannot
// be hammered for free.
func (a *AnalysisAgent) AnalyzeReport(ctx context.Context, reportText, systemPrompt string) (entities.AnalysisResult, error) {
	if strings.TrimSpace(reportText) == "" {
		return entities.AnalysisResult{}, ErrEmptyReport
	}
	if systemPrompt == "" {
		systemPrompt = DefaultAnalysisPrompt
	}

	if err := a.consume(); err != nil {
		return entities.AnalysisResult{}, err
	}

	messages := []ports.PromptMessage{
		{Role: entities.RoleSystem, Content: systemPrompt},
		{Role: entities.RoleUser, Content: reportText},
	}

	var lastErr error
	for _, model := range a.models {
		text, err := a.completer.Complete(ctx, ports.CompletionRequest{
			Model:       model,
			Messages:    messages,
			Temperature: analysisTemperature,
			MaxTokens:   analysisMaxTokens,
		})
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}
		return entities.AnalysisResult{
			Text:        text,
			Model:       model,
			GeneratedAt: a.now(),
		}, nil
	}
	return entities.AnalysisResult{}, fmt.Errorf("all analysis models failed: %w", lastErr)
}

func (a *AnalysisAgent) consume() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	now := a.now()
	a.roll(now)
	if a.used >= a.limit {
		return ErrRateLimited
	}
	a.used++
	return nil
}

// roll starts a fresh window once the current one has expired.
// Callers must hold a.mu.
func (a *AnalysisAgent) roll(now time.Time) {
	if now.Sub(a.windowStart) >= a.window {
		a.windowStart = now
		a.used = 0
	}
}
