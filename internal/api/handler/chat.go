package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rensmac/chat-gateway/internal/api/response"
	"github.com/rensmac/chat-gateway/internal/domain"
	"github.com/rensmac/chat-gateway/internal/service"
	"github.com/rs/zerolog/log"
)

var validate = validator.New()

// ChatHandler handles the /ask and /stats endpoints
type ChatHandler struct {
	chatService *service.ChatService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// Ask answers a question with conversation context
func (h *ChatHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req domain.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := validate.Struct(req); err != nil {
		response.BadRequest(w, "missing 'question' in request body")
		return
	}

	result, err := h.chatService.Ask(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, result)
}

// Stats returns the current connection-pool snapshot
func (h *ChatHandler) Stats(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.chatService.Stats())
}

// writeError maps the error taxonomy onto status codes: input errors are
// the client's fault, everything else is a 500 carrying the category.
func writeError(w http.ResponseWriter, err error) {
	var gwErr *domain.Error
	if errors.As(err, &gwErr) {
		switch gwErr.Kind {
		case domain.ErrInput:
			response.BadRequest(w, gwErr.Message)
			return
		default:
			log.Error().Err(err).Str("kind", string(gwErr.Kind)).Msg("request failed")
			response.InternalError(w, gwErr.Error())
			return
		}
	}

	log.Error().Err(err).Msg("request failed")
	response.InternalError(w, err.Error())
}
