package history

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/peoplegrid/backend/internal/model/chat"
	historyService "github.com/peoplegrid/backend/internal/service/history"
	"github.com/peoplegrid/backend/pkg/utils"
)

// Handler serves conversation history reads.
type Handler struct {
	historySvc *historyService.Service
}

// New creates a history handler.
func New(historySvc *historyService.Service) *Handler {
	return &Handler{historySvc: historySvc}
}

// RegisterRoutes mounts the history routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/history", h.handleHistory)
}

// handleHistory returns the stored messages between two users in order. A
// pair with no traffic yields an empty list.
func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	user1 := r.URL.Query().Get("user1")
	user2 := r.URL.Query().Get("user2")
	if user1 == "" || user2 == "" {
		utils.RespondError(w, http.StatusBadRequest, "user1 and user2 query parameters are required")
		return
	}

	messages, err := h.historySvc.History(r.Context(), chat.NewKey(user1, user2))
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, messages)
}
