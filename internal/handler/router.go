package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/peoplegrid/backend/internal/directory"
	directoryHandler "github.com/peoplegrid/backend/internal/handler/directory"
	historyHandler "github.com/peoplegrid/backend/internal/handler/history"
	"github.com/peoplegrid/backend/internal/handler/ws"
	middlewarePkg "github.com/peoplegrid/backend/internal/middleware"
	historyService "github.com/peoplegrid/backend/internal/service/history"
	"github.com/peoplegrid/backend/internal/service/room"
	"github.com/peoplegrid/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(store directory.Store, historySvc *historyService.Service, hub *room.Hub, chatBuffer int) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	dirHandler := directoryHandler.New(store)
	histHandler := historyHandler.New(historySvc)
	wsHandler := ws.New(hub, historySvc, chatBuffer)

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		dirHandler.RegisterRoutes(api)
		histHandler.RegisterRoutes(api)
	})

	wsHandler.RegisterRoutes(r)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
