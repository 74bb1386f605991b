// Package chat binds the stores, the orchestrator and the report parser
// into the session flows that both the HTTP surface and the reports
// inbox drive.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hia-ai/hia/internal/domain/entities"
	"github.com/hia-ai/hia/internal/domain/ports"
	"github.com/hia-ai/hia/internal/domain/usecases"
)

// ErrEmptyMessage is returned when a chat turn carries no text.
var ErrEmptyMessage = errors.New("message text is empty")

// defaultSessionTitle names sessions created without one.
const defaultSessionTitle = "New Analysis"

// Service wires one session's flows end to end: persistence, the
// orchestrator's retrieval state, and report analysis.
type Service struct {
	orchestrator *usecases.Orchestrator
	sessions     ports.SessionStore
	messages     ports.MessageStore
	parser       ports.ReportParser
	now          func() time.Time
	logger       *zap.Logger
}

// NewService creates the chat service.
func NewService(
	orchestrator *usecases.Orchestrator,
	sessions ports.SessionStore,
	messages ports.MessageStore,
	parser ports.ReportParser,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		orchestrator: orchestrator,
		sessions:     sessions,
		messages:     messages,
		parser:       parser,
		now:          time.Now,
		logger:       logger,
	}
}

// StartSessionInput names the session to create.
type StartSessionInput struct {
	UserID string
	Title  string
}

// StartSessionOutput carries the created session.
type StartSessionOutput struct {
	Session entities.Session
}

// StartSession creates and persists a new analysis session. Sessions
// start empty: the first content is either a report upload or a chat
// turn answered from history alone.
func (s *Service) StartSession(ctx context.Context, in StartSessionInput) (*StartSessionOutput, error) {
	now := s.now()
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = defaultSessionTitle
	}

	session := entities.Session{
		ID:        uuid.NewString(),
		UserID:    in.UserID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	s.logger.Info("session started",
		zap.String("session_id", session.ID),
		zap.String("title", session.Title))

	return &StartSessionOutput{Session: session}, nil
}

// SendMessageInput carries one user chat turn.
type SendMessageInput struct {
	SessionID string
	Text      string
}

// SendMessageOutput carries the persisted turn: the user's message and
// the assistant's reply.
type SendMessageOutput struct {
	UserMessage      entities.ChatMessage
	AssistantMessage entities.ChatMessage
}

// SendMessage runs one chat turn. The history handed to the
// orchestrator is loaded before the new user message is persisted, so
// the model sees the question once, as the current query.
//
// The orchestrator never returns an error here: failures come back as
// reply text and are persisted like any other assistant message.
func (s *Service) SendMessage(ctx context.Context, in SendMessageInput) (*SendMessageOutput, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	session, err := s.sessions.GetSession(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}

	history, err := s.messages.ListMessages(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}

	userMsg := entities.ChatMessage{
		ID:        uuid.NewString(),
		SessionID: session.ID,
		Role:      entities.RoleUser,
		Content:   text,
		CreatedAt: s.now(),
	}
	if err := s.messages.AppendMessage(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("saving user message: %w", err)
	}

	contextText := s.orchestrator.ReportText(session.ID)
	reply := s.orchestrator.GetChatResponse(ctx, session.ID, text, contextText, history)

	assistantMsg := entities.ChatMessage{
		ID:        uuid.NewString(),
		SessionID: session.ID,
		Role:      entities.RoleAssistant,
		Content:   reply,
		CreatedAt: s.now(),
	}
	if err := s.messages.AppendMessage(ctx, assistantMsg); err != nil {
		return nil, fmt.Errorf("saving assistant message: %w", err)
	}

	if err := s.sessions.TouchSession(ctx, session.ID); err != nil {
		return nil, fmt.Errorf("touching session: %w", err)
	}

	s.logger.Info("chat turn completed",
		zap.String("session_id", session.ID),
		zap.Int("query_chars", len(text)),
		zap.Int("reply_chars", len(reply)))

	return &SendMessageOutput{
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
	}, nil
}

// UploadReportInput carries a raw report file for a session.
type UploadReportInput struct {
	SessionID string
	Filename  string
	Data      []byte
}

// UploadReportOutput carries the ingested report and its analysis.
type UploadReportOutput struct {
	Report          entities.Report
	Analysis        entities.AnalysisResult
	AnalysisMessage entities.ChatMessage
}

// UploadReport extracts text from an uploaded report file, ingests it
// into the session, and runs the rate-limited analysis.
func (s *Service) UploadReport(ctx context.Context, in UploadReportInput) (*UploadReportOutput, error) {
	session, err := s.sessions.GetSession(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}

	text, err := s.parser.Parse(ctx, in.Data, in.Filename)
	if err != nil {
		return nil, fmt.Errorf("parsing report %s: %w", in.Filename, err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, usecases.ErrEmptyReport
	}

	report := entities.Report{
		ID:         uuid.NewString(),
		SessionID:  session.ID,
		Filename:   in.Filename,
		Text:       text,
		UploadedAt: s.now(),
	}

	return s.IngestReport(ctx, report)
}

// IngestReport stores already-extracted report text into a session and
// analyzes it. The inbox flow calls this directly with loader output.
//
// The marker-framed system message and the orchestrator's report text
// are written before analysis runs: a rate-limited analysis still
// leaves the session able to answer questions about the report.
func (s *Service) IngestReport(ctx context.Context, report entities.Report) (*UploadReportOutput, error) {
	if strings.TrimSpace(report.Text) == "" {
		return nil, usecases.ErrEmptyReport
	}

	systemMsg := entities.ChatMessage{
		ID:        uuid.NewString(),
		SessionID: report.SessionID,
		Role:      entities.RoleSystem,
		Content:   entities.EncodeReportContext(report.Text),
		CreatedAt: s.now(),
	}
	if err := s.messages.AppendMessage(ctx, systemMsg); err != nil {
		return nil, fmt.Errorf("saving report context: %w", err)
	}

	s.orchestrator.SetReportText(report.SessionID, report.Text)

	s.logger.Info("report ingested",
		zap.String("session_id", report.SessionID),
		zap.String("filename", report.Filename),
		zap.Int("text_chars", len(report.Text)))

	result, err := s.orchestrator.AnalyzeReport(ctx, report.Text, "")
	if err != nil {
		return nil, err
	}

	analysisMsg := entities.ChatMessage{
		ID:        uuid.NewString(),
		SessionID: report.SessionID,
		Role:      entities.RoleAssistant,
		Content:   result.Text,
		CreatedAt: s.now(),
	}
	if err := s.messages.AppendMessage(ctx, analysisMsg); err != nil {
		return nil, fmt.Errorf("saving analysis message: %w", err)
	}

	if err := s.sessions.TouchSession(ctx, report.SessionID); err != nil {
		return nil, fmt.Errorf("touching session: %w", err)
	}

	s.logger.Info("report analyzed",
		zap.String("session_id", report.SessionID),
		zap.String("model", result.Model))

	return &UploadReportOutput{
		Report:          report,
		Analysis:        result,
		AnalysisMessage: analysisMsg,
	}, nil
}

// AnalysisBudget reports the analysis rate-limit state: whether another
// analysis is allowed, how many remain in the window, and when the
// window resets.
func (s *Service) AnalysisBudget() (bool, int, time.Time) {
	return s.orchestrator.CheckRateLimit()
}

// Timeline returns a session and its full ordered message history,
// system messages included. Clients skip rendering those.
func (s *Service) Timeline(ctx context.Context, sessionID string) (entities.Session, []entities.ChatMessage, error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return entities.Session{}, nil, err
	}

	msgs, err := s.messages.ListMessages(ctx, sessionID)
	if err != nil {
		return entities.Session{}, nil, fmt.Errorf("loading messages: %w", err)
	}

	return session, msgs, nil
}
