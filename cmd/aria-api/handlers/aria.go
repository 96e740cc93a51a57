package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/proingenius/aria-banking/internal/aria"
	"github.com/proingenius/aria-banking/internal/observability"
)

// maxAskBodyBytes caps the request body read by Ask.
const maxAskBodyBytes = 64 << 10

// Assistant answers a free-text question.
type Assistant interface {
	Ask(ctx context.Context, question string) aria.Answer
}

// AriaHandler serves POST /api/aria/ask.
type AriaHandler struct {
	logger    *observability.Logger
	assistant Assistant
	maxLength int
}

// NewAriaHandler creates a new assistant handler. A nil assistant answers 503.
func NewAriaHandler(logger *observability.Logger, assistant Assistant, maxLength int) *AriaHandler {
	return &AriaHandler{
		logger:    logger,
		assistant: assistant,
		maxLength: maxLength,
	}
}

// AskRequest is the body of POST /api/aria/ask.
type AskRequest struct {
	Message string `json:"message"`
}

// MessageTooLongResponse reports the accepted maximum.
type MessageTooLongResponse struct {
	Error     string `json:"error"`
	MaxLength int    `json:"maxLength"`
}

// Ask handles POST /api/aria/ask. Validation runs before any outbound call.
func (h *AriaHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	body := http.MaxBytesReader(w, r.Body, maxAskBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		writeDomainError(w, errMessageRequired)
		return
	}

	if utf8.RuneCountInString(req.Message) > h.maxLength {
		writeDomainBody(w, errMessageTooLong, MessageTooLongResponse{
			Error:     errMessageTooLong.Message,
			MaxLength: h.maxLength,
		})
		return
	}

	if h.assistant == nil {
		writeDomainError(w, errAINotConfigured)
		return
	}

	answer := h.assistant.Ask(r.Context(), req.Message)
	h.logger.WithContext(r.Context()).Info().
		Str("intent", string(answer.Intent)).
		Int("message_length", utf8.RuneCountInString(req.Message)).
		Msg("ARIA question answered")

	writeJSON(w, http.StatusOK, answer)
}
