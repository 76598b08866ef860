package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/halcyon-app/halcyon/internal/chat"
	"github.com/halcyon-app/halcyon/internal/config"
	"github.com/halcyon-app/halcyon/internal/observability"
	"github.com/halcyon-app/halcyon/internal/protocol"
	"github.com/halcyon-app/halcyon/internal/report"
)

type Server struct {
	cfg      config.Config
	sessions *chat.Manager
	metrics  *observability.Metrics
	upgrader websocket.Upgrader
}

func New(cfg config.Config, sessions *chat.Manager, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:      cfg,
		sessions: sessions,
		metrics:  metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Default: only allow browser websocket connections from the
				// same origin, so other websites cannot drive a user's
				// session if the service is ever exposed beyond localhost.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})
	r.Get("/v1/perf/latency", s.handlePerfLatency)

	r.Post("/v1/chat/session", s.handleCreateSession)
	r.Get("/v1/chat/session/ws", s.handleSessionWS)
	r.Get("/v1/chat/session/{id}", s.handleGetSession)
	r.Post("/v1/chat/session/{id}/message", s.handleMessage)
	r.Post("/v1/chat/session/{id}/clear", s.handleClearSession)
	r.Get("/v1/chat/session/{id}/report", s.handleReport)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "ready",
		"active_sessions": s.sessions.ActiveCount(),
	})
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
	IdleTTLMS int64  `json:"idle_ttl_ms"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	e := s.sessions.Create(r.Context())
	respondJSON(w, http.StatusCreated, createSessionResponse{
		SessionID: e.SessionID(),
		IdleTTLMS: s.cfg.SessionIdleTimeout.Milliseconds(),
	})
}

type messageRequest struct {
	Message string `json:"message"`
}

type messageResponse struct {
	SessionID   string `json:"session_id"`
	Reply       string `json:"reply"`
	RiskLevel   string `json:"risk_level"`
	RiskSource  string `json:"risk_source"`
	Phase       string `json:"phase"`
	SafetyReply bool   `json:"safety_reply"`
	ElapsedMS   int64  `json:"elapsed_ms"`
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	e, ok := s.engineFor(w, r)
	if !ok {
		return
	}

	var req messageRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	res, err := e.Submit(r.Context(), req.Message)
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		respondError(w, http.StatusBadRequest, "empty_message", "message text is required")
		return
	case errors.Is(err, chat.ErrBusy):
		respondError(w, http.StatusConflict, "turn_in_progress", "a turn is already being processed for this session")
		return
	case errors.Is(err, chat.ErrAborted):
		respondError(w, http.StatusConflict, "turn_aborted", "the session was cleared while the turn was in flight")
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, messageResponse{
		SessionID:   e.SessionID(),
		Reply:       res.AssistantText,
		RiskLevel:   string(res.RiskLevel),
		RiskSource:  string(res.RiskSource),
		Phase:       string(res.Phase),
		SafetyReply: res.SafetyReply,
		ElapsedMS:   res.Elapsed.Milliseconds(),
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	e, ok := s.engineFor(w, r)
	if !ok {
		return
	}
	state, rec := e.Snapshot()
	respondJSON(w, http.StatusOK, map[string]any{
		"session_id": e.SessionID(),
		"state":      string(state),
		"record":     rec,
	})
}

func (s *Server) handleClearSession(w http.ResponseWriter, r *http.Request) {
	e, ok := s.engineFor(w, r)
	if !ok {
		return
	}
	if err := e.Clear(r.Context()); err != nil {
		respondError(w, http.StatusInternalServerError, "clear_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"session_id": e.SessionID(),
		"cleared":    true,
	})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	e, ok := s.engineFor(w, r)
	if !ok {
		return
	}
	_, rec := e.Snapshot()
	sections := report.Compile(rec)

	if strings.EqualFold(r.URL.Query().Get("format"), "text") {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(report.RenderText(sections)))
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"session_id": e.SessionID(),
		"sections":   sections,
	})
}

func (s *Server) handleSessionWS(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session_id", "query parameter session_id is required")
		return
	}

	e, err := s.sessions.Get(r.Context(), sessionID)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	if s.metrics != nil {
		s.metrics.SessionEvents.WithLabelValues("ws_connected").Inc()
	}

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		return nil
	})

	// Turns are strictly sequential per session, so the connection is
	// handled request/response style: one reader goroutine does all writes.
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))

		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			s.writeWS(conn, protocol.ErrorEvent{
				Type:      protocol.TypeErrorEvent,
				SessionID: sessionID,
				Code:      "invalid_client_message",
				Retryable: false,
				Detail:    err.Error(),
			})
			continue
		}

		switch msg := parsed.(type) {
		case protocol.UserMessage:
			res, err := e.Submit(r.Context(), msg.Text)
			if err != nil {
				s.writeWS(conn, protocol.ErrorEvent{
					Type:      protocol.TypeErrorEvent,
					SessionID: sessionID,
					Code:      wsErrorCode(err),
					Retryable: errors.Is(err, chat.ErrBusy),
					Detail:    err.Error(),
				})
				continue
			}
			s.writeWS(conn, protocol.AssistantMessage{
				Type:        protocol.TypeAssistantMessage,
				SessionID:   sessionID,
				Text:        res.AssistantText,
				RiskLevel:   string(res.RiskLevel),
				Phase:       string(res.Phase),
				SafetyReply: res.SafetyReply,
			})
		case protocol.ClearSession:
			if err := e.Clear(r.Context()); err != nil {
				s.writeWS(conn, protocol.ErrorEvent{
					Type:      protocol.TypeErrorEvent,
					SessionID: sessionID,
					Code:      "clear_failed",
					Retryable: true,
					Detail:    err.Error(),
				})
				continue
			}
			s.writeWS(conn, protocol.SessionCleared{
				Type:      protocol.TypeSessionCleared,
				SessionID: sessionID,
			})
		}
	}

	if s.metrics != nil {
		s.metrics.SessionEvents.WithLabelValues("ws_disconnected").Inc()
	}
}

func (s *Server) writeWS(conn *websocket.Conn, msg any) {
	_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	_ = conn.WriteJSON(msg)
}

func wsErrorCode(err error) string {
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		return "empty_message"
	case errors.Is(err, chat.ErrBusy):
		return "turn_in_progress"
	case errors.Is(err, chat.ErrAborted):
		return "turn_aborted"
	default:
		return "internal_error"
	}
}

// engineFor resolves the {id} route parameter to a live engine, writing the
// error response itself when the session cannot be found.
func (s *Server) engineFor(w http.ResponseWriter, r *http.Request) (*chat.Engine, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return nil, false
	}
	e, err := s.sessions.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, chat.ErrNotFound) {
			respondError(w, http.StatusNotFound, "session_not_found", "no session with that id")
			return nil, false
		}
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return nil, false
	}
	return e, true
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
