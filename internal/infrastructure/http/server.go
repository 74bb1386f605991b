// Package http provides the HTTP server for the session API.
// Clean Architecture: Framework/driver layer - outermost circle.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hia-ai/hia/internal/app/chat"
	"github.com/hia-ai/hia/internal/domain/entities"
	"github.com/hia-ai/hia/internal/domain/ports"
	"github.com/hia-ai/hia/internal/domain/usecases"
)

// maxUploadBytes caps the multipart memory budget for report uploads.
const maxUploadBytes = 32 << 20

// Server is the HTTP server for the session API.
type Server struct {
	service *chat.Service
	addr    string
	logger  *zap.Logger
}

// NewServer creates a new HTTP server.
func NewServer(service *chat.Service, addr string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		service: service,
		addr:    addr,
		logger:  logger,
	}
}

// Handler builds the routed handler with logging and CORS applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// /api/sessions → create session (POST)
	mux.HandleFunc("/api/sessions", s.handleSessions)

	// /api/sessions/{id}          →  GET: session + messages
	// /api/sessions/{id}/messages → POST: chat turn
	// /api/sessions/{id}/report   → POST: report upload
	mux.HandleFunc("/api/sessions/", s.handleSessionWithID)

	mux.HandleFunc("/api/health", s.handleHealth)

	return corsMiddleware(loggingMiddleware(s.logger, mux))
}

// Start runs the HTTP server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 300 * time.Second, // completion calls can run long
	}

	s.logger.Info("hia server starting", zap.String("addr", s.addr))

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	return server.ListenAndServe()
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type createSessionRequest struct {
	UserID string `json:"user_id,omitempty"`
	Title  string `json:"title,omitempty"`
}

type createSessionResponse struct {
	Session sessionResponse `json:"session"`
}

type sessionResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type messageResponse struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

type sendMessageResponse struct {
	UserMessage      messageResponse `json:"user_message"`
	AssistantMessage messageResponse `json:"assistant_message"`
}

type getSessionResponse struct {
	Session  sessionResponse   `json:"session"`
	Messages []messageResponse `json:"messages"`
}

// uploadReportRequest is the JSON alternative to a multipart upload.
type uploadReportRequest struct {
	Filename string `json:"filename"`
	Text     string `json:"text"`
}

type uploadReportResponse struct {
	Report          reportResponse  `json:"report"`
	AnalysisMessage messageResponse `json:"analysis_message"`
}

// reportResponse echoes upload metadata, not the extracted text.
type reportResponse struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	Filename   string    `json:"filename"`
	TextChars  int       `json:"text_chars"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// ─────────────────────────────────────────────
// Basic routing
// ─────────────────────────────────────────────

// /api/sessions
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateSession(w, r)
	default:
		methodNotAllowed(w)
	}
}

// /api/sessions/{id}, /api/sessions/{id}/messages or /api/sessions/{id}/report
func (s *Server) handleSessionWithID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	if path == "" {
		http.NotFound(w, r)
		return
	}

	parts := strings.Split(path, "/")
	id := parts[0]

	if id == "" {
		http.NotFound(w, r)
		return
	}

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			s.handleGetSession(w, r, id)
		default:
			methodNotAllowed(w)
		}
		return
	}

	if len(parts) == 2 {
		switch parts[1] {
		case "messages":
			if r.Method != http.MethodPost {
				methodNotAllowed(w)
				return
			}
			s.handleSendMessage(w, r, id)
			return
		case "report":
			if r.Method != http.MethodPost {
				methodNotAllowed(w)
				return
			}
			s.handleUploadReport(w, r, id)
			return
		}
	}

	http.NotFound(w, r)
}

// ─────────────────────────────────────────────
// Concrete handlers
// ─────────────────────────────────────────────

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	// An empty body creates a session with the default title.
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(w, "invalid JSON body")
		return
	}

	out, err := s.service.StartSession(r.Context(), chat.StartSessionInput{
		UserID: req.UserID,
		Title:  req.Title,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, createSessionResponse{
		Session: toSessionResponse(out.Session),
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request, id string) {
	session, msgs, err := s.service.Timeline(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, getSessionResponse{
		Session:  toSessionResponse(session),
		Messages: toMessagesResponse(msgs),
	})
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request, sessionID string) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	out, err := s.service.SendMessage(r.Context(), chat.SendMessageInput{
		SessionID: sessionID,
		Text:      req.Text,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sendMessageResponse{
		UserMessage:      toMessageResponse(out.UserMessage),
		AssistantMessage: toMessageResponse(out.AssistantMessage),
	})
}

func (s *Server) handleUploadReport(w http.ResponseWriter, r *http.Request, sessionID string) {
	filename, data, err := readReportPayload(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	out, err := s.service.UploadReport(r.Context(), chat.UploadReportInput{
		SessionID: sessionID,
		Filename:  filename,
		Data:      data,
	})
	if err != nil {
		if errors.Is(err, usecases.ErrRateLimited) {
			if _, _, reset := s.service.AnalysisBudget(); !reset.IsZero() {
				secs := int(time.Until(reset).Seconds()) + 1
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
			}
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, uploadReportResponse{
		Report:          toReportResponse(out.Report),
		AnalysisMessage: toMessageResponse(out.AnalysisMessage),
	})
}

// readReportPayload accepts a multipart "file" field or a JSON
// {filename, text} body.
func readReportPayload(r *http.Request) (string, []byte, error) {
	contentType := r.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(contentType, "multipart/form-data"):
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return "", nil, errors.New("invalid multipart body")
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return "", nil, errors.New("multipart field 'file' is required")
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return "", nil, errors.New("reading upload failed")
		}
		return header.Filename, data, nil

	case strings.HasPrefix(contentType, "application/json"):
		var req uploadReportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return "", nil, errors.New("invalid JSON body")
		}
		if req.Filename == "" {
			req.Filename = "report.txt"
		}
		return req.Filename, []byte(req.Text), nil

	default:
		return "", nil, errors.New("expected multipart/form-data or application/json")
	}
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// ─────────────────────────────────────────────
// Conversation helpers
// ─────────────────────────────────────────────

func toSessionResponse(s entities.Session) sessionResponse {
	return sessionResponse{
		ID:        s.ID,
		UserID:    s.UserID,
		Title:     s.Title,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func toMessageResponse(m entities.ChatMessage) messageResponse {
	return messageResponse{
		ID:        m.ID,
		SessionID: m.SessionID,
		Role:      string(m.Role),
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}

func toMessagesResponse(msgs []entities.ChatMessage) []messageResponse {
	out := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toMessageResponse(m))
	}
	return out
}

func toReportResponse(r entities.Report) reportResponse {
	return reportResponse{
		ID:         r.ID,
		SessionID:  r.SessionID,
		Filename:   r.Filename,
		TextChars:  len(r.Text),
		UploadedAt: r.UploadedAt,
	}
}

// ─────────────────────────────────────────────
// HTTP helpers
// ─────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps service errors to statuses. Orchestrator failures never
// reach here: they come back as "Error: ..." reply text with status 200.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ports.ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
	case errors.Is(err, chat.ErrEmptyMessage), errors.Is(err, usecases.ErrEmptyReport):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, usecases.ErrRateLimited):
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error": msg,
	})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{
		"error": "method not allowed",
	})
}

func loggingMiddleware(logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			return
		}
		next.ServeHTTP(w, r)
	})
}
