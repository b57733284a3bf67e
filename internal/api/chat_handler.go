package api

import (
	"encoding/json"
	"net/http"

	"github.com/srtux/sre-agent-sub000/internal/logging"
	"github.com/srtux/sre-agent-sub000/internal/orchestrator"
)

// chatRequest is the wire form of a turn request. The investigation window
// arrives as strings so clients can send Unix seconds or human-readable
// dates.
type chatRequest struct {
	orchestrator.TurnRequest
	StartTime string `json:"start_time,omitempty"`
	EndTime   string `json:"end_time,omitempty"`
}

// ChatHandler streams one conversational turn as NDJSON.
type ChatHandler struct {
	orchestrator *orchestrator.Orchestrator
	logger       *logging.Logger
}

// NewChatHandler creates a chat handler.
func NewChatHandler(o *orchestrator.Orchestrator, logger *logging.Logger) *ChatHandler {
	return &ChatHandler{orchestrator: o, logger: logger}
}

// Handle processes POST /api/chat. Request validation failures are plain
// JSON errors; once streaming starts every failure is carried inside the
// stream itself.
func (h *ChatHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid request body: "+err.Error())
		return
	}

	startTime, err := ParseOptionalTimestamp(req.StartTime, "start_time", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, err.Error())
		return
	}
	endTime, err := ParseOptionalTimestamp(req.EndTime, "end_time", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, err.Error())
		return
	}

	turn := req.TurnRequest
	turn.StartTime = startTime
	turn.EndTime = endTime

	w.Header().Set("Content-Type", orchestrator.ContentTypeNDJSON)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	h.orchestrator.ExecuteTurn(r.Context(), turn, orchestrator.NewStreamWriter(w))
}
