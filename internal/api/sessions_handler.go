package api

import (
	"net/http"
	"time"

	"github.com/srtux/sre-agent-sub000/internal/logging"
	"github.com/srtux/sre-agent-sub000/internal/orchestrator"
	"github.com/srtux/sre-agent-sub000/internal/session"
)

// sessionSummary is the list-view projection of a session; history and state
// stay server-side.
type sessionSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	ProjectID string    `json:"project_id,omitempty"`
	Messages  int       `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SessionsHandler serves session listings for the conversation picker.
type SessionsHandler struct {
	sessions session.Service
	logger   *logging.Logger
}

// NewSessionsHandler creates a sessions handler.
func NewSessionsHandler(svc session.Service, logger *logging.Logger) *SessionsHandler {
	return &SessionsHandler{sessions: svc, logger: logger}
}

// Handle processes GET /api/sessions.
func (h *SessionsHandler) Handle(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		userID = orchestrator.DefaultUserID
	}

	sessions, err := h.sessions.List(r.Context(), userID)
	if err != nil {
		h.logger.ErrorWithErr("failed to list sessions", err)
		writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "failed to list sessions")
		return
	}

	summaries := make([]sessionSummary, 0, len(sessions))
	for _, sess := range sessions {
		summaries = append(summaries, sessionSummary{
			ID:        sess.ID,
			Title:     sess.Title,
			ProjectID: sess.ProjectID,
			Messages:  len(sess.History),
			CreatedAt: sess.CreatedAt,
			UpdatedAt: sess.UpdatedAt,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = WriteJSON(w, map[string]interface{}{"sessions": summaries})
}
