// Package server exposes the scenario card service over HTTP. Routes
// under /cards and /favorites require a bearer token; /presets and
// /healthz are public.
package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/tabletoptools/scenoforge/internal/domain/table"
	"github.com/tabletoptools/scenoforge/internal/service"
)

// Server routes HTTP requests to the card service.
type Server struct {
	svc    *service.Service
	router *mux.Router
}

// New wires routes for the card service behind the authenticator.
func New(svc *service.Service, auth *TokenAuthenticator) *Server {
	s := &Server{svc: svc, router: mux.NewRouter()}

	s.router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	s.router.HandleFunc("/presets", s.handlePresets).Methods(http.MethodGet)

	cards := s.router.PathPrefix("/cards").Subrouter()
	cards.Use(auth.Middleware)
	cards.HandleFunc("", s.handleCreateCard).Methods(http.MethodPost)
	cards.HandleFunc("", s.handleListCards).Methods(http.MethodGet)
	cards.HandleFunc("/{id}", s.handleGetCard).Methods(http.MethodGet)
	cards.HandleFunc("/{id}", s.handleDeleteCard).Methods(http.MethodDelete)
	cards.HandleFunc("/{id}/svg", s.handleGetCardSVG).Methods(http.MethodGet)
	cards.HandleFunc("/{id}/sharing", s.handleUpdateSharing).Methods(http.MethodPatch)
	cards.HandleFunc("/{id}/variant", s.handleCreateVariant).Methods(http.MethodPost)

	favorites := s.router.PathPrefix("/favorites").Subrouter()
	favorites.Use(auth.Middleware)
	favorites.HandleFunc("", s.handleListFavorites).Methods(http.MethodGet)
	favorites.HandleFunc("/{id}/toggle", s.handleToggleFavorite).Methods(http.MethodPost)

	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// presetResponse describes one selectable table size.
type presetResponse struct {
	Name     string  `json:"name"`
	WidthMM  int     `json:"width_mm"`
	HeightMM int     `json:"height_mm"`
	WidthCm  float64 `json:"width_cm"`
	HeightCm float64 `json:"height_cm"`
}

func (s *Server) handlePresets(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, []presetResponse{
		presetFor("standard", table.Standard()),
		presetFor("massive", table.Massive()),
	})
}

func presetFor(name string, size table.Size) presetResponse {
	return presetResponse{
		Name:     name,
		WidthMM:  size.WidthMM,
		HeightMM: size.HeightMM,
		WidthCm:  size.WidthCm(),
		HeightCm: size.HeightCm(),
	}
}
