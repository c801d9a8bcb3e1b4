package directory

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/peoplegrid/backend/internal/directory"
	model "github.com/peoplegrid/backend/internal/model/directory"
	"github.com/peoplegrid/backend/pkg/utils"
)

// Handler serves the profile directory endpoints.
type Handler struct {
	store directory.Store
}

// New creates a directory handler.
func New(store directory.Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes mounts the directory routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/search", h.handleSearch)
	r.Get("/profile/exists", h.handleProfileExists)
}

// handleSearch lists directory records matching q. Contact details are
// redacted according to each record's privacy flags.
func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	records := h.store.Search(r.URL.Query().Get("q"))

	out := make([]model.Participant, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.Redacted())
	}
	utils.RespondJSON(w, http.StatusOK, out)
}

// handleProfileExists reports whether an identity is registered.
func (h *Handler) handleProfileExists(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		utils.RespondError(w, http.StatusBadRequest, "email query parameter is required")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]bool{
		"exists": h.store.Exists(email),
	})
}
