package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"lmrelay/internal/models"
	"lmrelay/internal/services"
)

const maxRequestBytes = 1 << 20

type relayService interface {
	Handle(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error)
}

type ChatHandler struct {
	relay  relayService
	logger *zap.Logger
}

func NewChatHandler(relay relayService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		relay:  relay,
		logger: logger.Named("chat"),
	}
}

// Chat handles POST /chat.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, models.DetailResponse{Detail: "Request body too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, models.DetailResponse{Detail: "Could not read request body"})
		return
	}

	req, fieldErrs := decodeChatRequest(raw)
	if len(fieldErrs) > 0 {
		h.logger.Debug("rejected chat request", zap.Any("detail", fieldErrs))
		writeJSON(w, http.StatusUnprocessableEntity, models.ValidationResponse{Detail: fieldErrs})
		return
	}

	resp, err := h.relay.Handle(r.Context(), req)
	if err != nil {
		handleRelayError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func handleRelayError(w http.ResponseWriter, err error) {
	var upErr *services.UpstreamError
	switch {
	case errors.As(err, &upErr):
		writeJSON(w, http.StatusInternalServerError, models.DetailResponse{Detail: upErr.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, models.DetailResponse{Detail: "LM Studio call failed: " + err.Error()})
	}
}

// decodeChatRequest validates the body before anything is sent upstream.
// prompt must be present and a JSON string; an empty string is allowed.
func decodeChatRequest(raw []byte) (models.ChatRequest, []models.FieldError) {
	if strings.TrimSpace(string(raw)) == "" {
		return models.ChatRequest{}, []models.FieldError{missingField("body")}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return models.ChatRequest{}, []models.FieldError{{
				Loc:  []string{"body"},
				Msg:  "JSON decode error",
				Type: "json_invalid",
			}}
		}
		return models.ChatRequest{}, []models.FieldError{{
			Loc:  []string{"body"},
			Msg:  "Input should be a valid dictionary or object to extract fields from",
			Type: "model_attributes_type",
		}}
	}

	promptRaw, ok := fields["prompt"]
	if !ok {
		return models.ChatRequest{}, []models.FieldError{missingField("body", "prompt")}
	}

	var prompt *string
	if err := json.Unmarshal(promptRaw, &prompt); err != nil || prompt == nil {
		return models.ChatRequest{}, []models.FieldError{{
			Loc:  []string{"body", "prompt"},
			Msg:  "Input should be a valid string",
			Type: "string_type",
		}}
	}

	return models.ChatRequest{Prompt: *prompt}, nil
}

func missingField(loc ...string) models.FieldError {
	return models.FieldError{Loc: loc, Msg: "Field required", Type: "missing"}
}
