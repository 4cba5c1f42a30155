package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/IvanVatroslav/SQLoslav/internal/pipeline"
	"github.com/IvanVatroslav/SQLoslav/internal/slack"
)

// handleSlackEvents acknowledges within Slack's three second window. The
// message itself is processed after the response is written.
func handleSlackEvents(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Events == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "EVENTS_NOT_CONFIGURED", "slack events are not configured", false, nil)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error(), false, nil)
		return
	}
	var envelope slack.Envelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_PAYLOAD", "event envelope is not valid json", false, nil)
		return
	}

	challenge, err := deps.Events.Accept(r.Context(), envelope)
	if err != nil {
		if errors.Is(err, pipeline.ErrClaimUnavailable) {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "IDEMPOTENCY_UNAVAILABLE", err.Error(), true, map[string]any{"event_id": envelope.EventID})
			return
		}
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_EVENT", err.Error(), false, map[string]any{"event_id": envelope.EventID})
		return
	}
	if envelope.Type == slack.EnvelopeURLVerification {
		writeJSON(w, http.StatusOK, map[string]string{"challenge": challenge})
		return
	}
	w.WriteHeader(http.StatusOK)
}
