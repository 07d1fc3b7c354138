package http

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/ProjectMarket/internal/logger"
)

// Assistant defines the AI operations required by AIHandler.
type Assistant interface {
	Suggestions(ctx context.Context, query string) (json.RawMessage, error)
	Websites(ctx context.Context, query string) ([]any, error)
	Improve(ctx context.Context, idea string) (map[string]any, error)
	Chat(ctx context.Context, message string) (string, error)
}

// AIHandler serves the /ai endpoints.
type AIHandler struct {
	Assistant Assistant
	Log       *zap.Logger
}

// NewAIHandler creates an AIHandler over a.
func NewAIHandler(a Assistant, log *zap.Logger) *AIHandler {
	return &AIHandler{Assistant: a, Log: logger.OrNop(log)}
}

// IdeaRequest is the JSON payload of POST /ai/improve.
type IdeaRequest struct {
	Idea string `json:"idea" validate:"notblank"`
}

// ChatRequest is the JSON payload of POST /ai/chat.
type ChatRequest struct {
	Message string `json:"message" validate:"notblank"`
}

const msgAssistantDown = "The AI assistant is unavailable. Please try again later."

// Suggestions answers {"suggestions": [...]}.
func (h *AIHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := h.Assistant.Suggestions(r.Context(), req.Query)
	if err != nil {
		h.fail(w, "suggestions", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": out})
}

// Websites answers with a bare JSON list of sites.
func (h *AIHandler) Websites(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := h.Assistant.Websites(r.Context(), req.Query)
	if err != nil {
		h.fail(w, "websites", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// Improve answers {"improvement": {...}}.
func (h *AIHandler) Improve(w http.ResponseWriter, r *http.Request) {
	var req IdeaRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := h.Assistant.Improve(r.Context(), req.Idea)
	if err != nil {
		h.fail(w, "improve", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"improvement": out})
}

// Chat answers {"response": "..."}.
func (h *AIHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := h.Assistant.Chat(r.Context(), req.Message)
	if err != nil {
		h.fail(w, "chat", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"response": out})
}

func (h *AIHandler) fail(w http.ResponseWriter, op string, err error) {
	h.Log.Warn("assistant call failed", zap.String("op", op), zap.Error(err))
	writeError(w, http.StatusBadGateway, msgAssistantDown)
}
