package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	apperrors "online-admission/errors"
	"online-admission/logger"
	"online-admission/services/kafka"
)

// GetDLQMessages retrieves unresolved DLQ messages
// GET /api/dlq/messages?limit=50
func (h *Handler) GetDLQMessages(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 {
			limit = parsedLimit
		}
	}

	messages, err := kafka.GetDLQMessages(r.Context(), limit)
	if err != nil {
		logger.Error("Error fetching DLQ messages: %v", err)
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, "DLQ messages retrieved", map[string]interface{}{
		"count":    len(messages),
		"messages": messages,
	})
}

// RetryDLQMessage reprocesses a specific DLQ message
// POST /api/dlq/messages/{id}/retry
func (h *Handler) RetryDLQMessage(w http.ResponseWriter, r *http.Request) {
	messageID := r.PathValue("id")
	if messageID == "" {
		respondError(w, apperrors.E(apperrors.Invalid, "missing message id"))
		return
	}

	resolved, err := kafka.RetryDLQMessage(r.Context(), messageID)
	if err != nil {
		logger.Error("Error retrying DLQ message %s: %v", messageID, err)
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, "Message retried", map[string]interface{}{
		"messageId": messageID,
		"resolved":  resolved,
	})
}

// ResolveDLQMessage marks a DLQ message as resolved
// POST /api/dlq/messages/{id}/resolve
func (h *Handler) ResolveDLQMessage(w http.ResponseWriter, r *http.Request) {
	messageID := r.PathValue("id")
	if messageID == "" {
		respondError(w, apperrors.E(apperrors.Invalid, "missing message id"))
		return
	}

	var req struct {
		Notes string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Notes == "" {
		req.Notes = "Manually resolved"
	}

	if err := kafka.ResolveDLQMessage(r.Context(), messageID, req.Notes); err != nil {
		logger.Error("Error resolving DLQ message %s: %v", messageID, err)
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, "Message marked as resolved", map[string]interface{}{
		"messageId": messageID,
	})
}

// GetDLQStats retrieves statistics about DLQ messages
// GET /api/dlq/stats
func (h *Handler) GetDLQStats(w http.ResponseWriter, r *http.Request) {
	stats, err := kafka.GetDLQStats(r.Context())
	if err != nil {
		logger.Error("Error fetching DLQ statistics: %v", err)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, "DLQ statistics", stats)
}

// Health reports liveness and the Kafka connection.
// GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, "ok", map[string]interface{}{
		"kafka_enabled":   kafka.Enabled(),
		"kafka_connected": kafka.IsConnected(),
		"consumer":        kafka.IsConsumerRunning(),
	})
}
