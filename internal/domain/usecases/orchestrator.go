// Package usecases - orchestrator.go mediates between the chat surface
// and the agents: lazy construction, report-context recovery, and the
// per-session index cache.
package usecases

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hia-ai/hia/internal/domain/entities"
	"github.com/hia-ai/hia/internal/domain/ports"
)

// historyOnlyContext is indexed when no report text can be found at all.
// It is deliberately a different string from placeholderContext: the
// retrieval path only suppresses the short placeholder, so this one
// flows through and tells the model to lean on the chat history.
const historyOnlyContext = "No report context available. Relying on chat history only."

// maxRecoveredContext caps report text recovered from an assistant
// message, which can be an entire analysis.
const maxRecoveredContext = 5000

// minRecoveredAnswer is the smallest assistant message worth treating
// as recovered report context. Shorter ones are chit-chat.
const minRecoveredAnswer = 100

// ChatAgentFactory constructs the responder on first use. Construction
// can fail (missing credentials); the orchestrator remembers the failure
// instead of propagating it.
type ChatAgentFactory func() (*ChatAgent, error)

// AnalysisAgentFactory constructs the analysis agent on first use.
type AnalysisAgentFactory func() (*AnalysisAgent, error)

// sessionState is the per-conversation cache: the current report text
// and the index built over it, keyed by text length.
type sessionState struct {
	mu         sync.Mutex
	reportText string
	index      ports.VectorIndex
	indexKey   int
}

// Orchestrator owns the agents and the per-session retrieval state.
// Agents are built lazily on the first call that needs them; a failed
// build is stored as a message and replayed as a canned error response,
// so a misconfigured deployment degrades instead of crashing.
type Orchestrator struct {
	newAgent    ChatAgentFactory
	newAnalyzer AnalysisAgentFactory

	initOnce    sync.Once
	agent       *ChatAgent
	agentErr    string
	analyzer    *AnalysisAgent
	analyzerErr string

	mu       sync.Mutex
	sessions map[string]*sessionState
}

// NewOrchestrator creates an Orchestrator. The factories run on first use.
func NewOrchestrator(newAgent ChatAgentFactory, newAnalyzer AnalysisAgentFactory) *Orchestrator {
	return &Orchestrator{
		newAgent:    newAgent,
		newAnalyzer: newAnalyzer,
		sessions:    make(map[string]*sessionState),
	}
}

func (o *Orchestrator) init() {
	o.initOnce.Do(func() {
		if agent, err := o.newAgent(); err != nil {
			o.agentErr = err.Error()
		} else {
			o.agent = agent
		}
		if analyzer, err := o.newAnalyzer(); err != nil {
			o.analyzerErr = err.Error()
		} else {
			o.analyzer = analyzer
		}
	})
}

func (o *Orchestrator) state(sessionID string) *sessionState {
	o.mu.Lock()
	defer o.mu.Unlock()
	st, ok := o.sessions[sessionID]
	if !ok {
		st = &sessionState{}
		o.sessions[sessionID] = st
	}
	return st
}

// SetReportText records the active report for a session. The cached
// index is not touched here: invalidation happens on the next chat call
// when the context length changes.
func (o *Orchestrator) SetReportText(sessionID, text string) {
	st := o.state(sessionID)
	st.mu.Lock()
	defer st.mu.Unlock()
	st.reportText = text
}

// ReportText returns the session's active report text, if any.
func (o *Orchestrator) ReportText(sessionID string) string {
	st := o.state(sessionID)
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.reportText
}

// GetChatResponse produces the assistant's reply for one chat turn.
// Everything that can go wrong comes back as a reply string: the chat
// surface never sees an error, it sees a message.
//
// When contextText is empty the report is recovered from history: first
// from a system message carrying marker-framed report text, then from a
// substantial assistant message (a prior analysis), and failing both the
// model is told to rely on history alone.
func (o *Orchestrator) GetChatResponse(ctx context.Context, sessionID, query, contextText string, history []entities.ChatMessage) string {
	o.init()
	if o.agent == nil {
		return "Error: " + o.agentErr
	}

	st := o.state(sessionID)
	st.mu.Lock()
	defer st.mu.Unlock()

	if contextText == "" && len(history) > 0 {
		contextText = recoverReportContext(history)
	}
	if contextText == "" {
		contextText = historyOnlyContext
	}

	// The index is rebuilt only when the context length changes. Length
	// is a weak key - same-length texts collide - but report swaps in
	// practice change the length, and rebuilds are expensive.
	key := len(contextText)
	if st.index == nil || st.indexKey != key {
		index, err := o.agent.BuildIndex(ctx, contextText)
		if err != nil {
			// Retry over the bare placeholder so chat can continue on
			// history alone. The reported error stays the original one.
			buildErr := err
			index, err = o.agent.BuildIndex(ctx, placeholderContext)
			if err != nil {
				return fmt.Sprintf("Error: Could not initialize vector store. %v", buildErr)
			}
			key = 0
		}
		st.index = index
		st.indexKey = key
	}

	return o.agent.GetResponse(ctx, query, st.index, history)
}

// AnalyzeReport runs the rate-limited analysis agent over report text.
// Unlike chat, analysis failures are real errors: the upload flow wants
// to map them onto proper HTTP statuses.
func (o *Orchestrator) AnalyzeReport(ctx context.Context, reportText, systemPrompt string) (entities.AnalysisResult, error) {
	o.init()
	if o.analyzer == nil {
		return entities.AnalysisResult{}, fmt.Errorf("analysis agent unavailable: %s", o.analyzerErr)
	}
	return o.analyzer.AnalyzeReport(ctx, reportText, systemPrompt)
}

// CheckRateLimit reports whether another analysis is allowed right now,
// how many remain in the window, and when the window resets.
func (o *Orchestrator) CheckRateLimit() (bool, int, time.Time) {
	o.init()
	if o.analyzer == nil {
		return false, 0, time.Time{}
	}
	return o.analyzer.CheckRateLimit()
}

// recoverReportContext digs report text out of chat history.
func recoverReportContext(history []entities.ChatMessage) string {
	for _, m := range history {
		if m.Role == entities.RoleSystem && entities.HasReportContext(m.Content) {
			if text, ok := entities.ExtractReportContext(m.Content); ok {
				return text
			}
		}
	}

	// No framed report text: fall back to the newest assistant message
	// long enough to be an analysis rather than chit-chat.
	for i := len(history) - 1; i >= 0; i-- {
		m := history[i]
		if m.Role == entities.RoleAssistant && len(m.Content) > minRecoveredAnswer {
			if len(m.Content) > maxRecoveredContext {
				return m.Content[:maxRecoveredContext]
			}
			return m.Content
		}
	}
	return ""
}
