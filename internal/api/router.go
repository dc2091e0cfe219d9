package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/skyfleet/takeoff-tracker/internal/websocket"
)

// Router wires the API handlers and the WebSocket hub into an HTTP handler.
type Router struct {
	handler  *Handler
	wsServer *websocket.Server
}

// NewRouter creates a new API router
func NewRouter(handler *Handler, wsServer *websocket.Server) *Router {
	return &Router{
		handler:  handler,
		wsServer: wsServer,
	}
}

// Routes returns the HTTP handler for all API routes.
func (rt *Router) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", rt.handler.GetHealth)
		r.Get("/status", rt.handler.GetStatus)
		r.Get("/flights", rt.handler.GetFlights)
		r.Get("/flights/inprogress", rt.handler.GetInProgressFlights)
		r.Get("/airports/nearest", rt.handler.GetNearestAirport)
	})

	r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		rt.wsServer.HandleConnection(w, r)
	})

	return r
}
