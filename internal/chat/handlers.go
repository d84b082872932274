package chat

import (
	"encoding/json"
	"net/http"

	"github.com/noah-isme/bakery-quote/internal/common"
)

// Handler exposes the assistant over HTTP.
type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

type turnRequest struct {
	Messages []Message `json:"messages"`
}

// Respond handles POST /api/v1/chat.
func (h *Handler) Respond(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	if len(req.Messages) == 0 {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "messages must not be empty", nil)
		return
	}
	resp := h.Svc.Respond(r.Context(), req.Messages)
	common.JSONData(w, http.StatusOK, resp)
}
