package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/tabletoptools/scenoforge/internal/domain"
	"github.com/tabletoptools/scenoforge/internal/domain/card"
	"github.com/tabletoptools/scenoforge/internal/domain/mapspec"
	"github.com/tabletoptools/scenoforge/internal/generator"
)

// createCardRequest is the POST /cards payload. Seed stays a pointer:
// absent means "draw one", zero is a legitimate seed.
type createCardRequest struct {
	Mode   string                 `json:"mode"`
	Seed   *int64                 `json:"seed,omitempty"`
	Table  generator.TableRequest `json:"table"`
	Shapes []mapspec.RawShape     `json:"shapes,omitempty"`
}

// updateSharingRequest is the PATCH /cards/{id}/sharing payload.
type updateSharingRequest struct {
	Visibility string   `json:"visibility"`
	SharedWith []string `json:"shared_with,omitempty"`
}

// cardResponse is the wire form of a card.
type cardResponse struct {
	ID         string             `json:"id"`
	OwnerID    string             `json:"owner_id"`
	Visibility string             `json:"visibility"`
	SharedWith []string           `json:"shared_with,omitempty"`
	Mode       string             `json:"mode"`
	Seed       int64              `json:"seed"`
	Replicable bool               `json:"replicable"`
	Table      tableResponse      `json:"table"`
	Shapes     []mapspec.RawShape `json:"shapes"`
	Content    card.Content       `json:"content"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

type tableResponse struct {
	WidthMM  int     `json:"width_mm"`
	HeightMM int     `json:"height_mm"`
	WidthCm  float64 `json:"width_cm"`
	HeightCm float64 `json:"height_cm"`
}

func toCardResponse(c card.Card) cardResponse {
	shapes := make([]mapspec.RawShape, len(c.Map.Shapes))
	for i, shape := range c.Map.Shapes {
		shapes[i] = mapspec.Raw(shape)
	}
	return cardResponse{
		ID:         c.ID,
		OwnerID:    c.OwnerID,
		Visibility: string(c.Visibility),
		SharedWith: c.SharedWith,
		Mode:       string(c.Mode),
		Seed:       c.Seed,
		Replicable: c.Replicable,
		Table: tableResponse{
			WidthMM:  c.Table.WidthMM,
			HeightMM: c.Table.HeightMM,
			WidthCm:  c.Table.WidthCm(),
			HeightCm: c.Table.HeightCm(),
		},
		Shapes:    shapes,
		Content:   c.Content,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	var req createCardRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, err)
		return
	}

	mode, err := card.ParseMode(req.Mode)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	c, err := s.svc.GenerateCard(r.Context(), ActorID(r.Context()), generator.Request{
		Mode:   mode,
		Seed:   req.Seed,
		Table:  req.Table,
		Shapes: req.Shapes,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCardResponse(c))
}

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	cards, err := s.svc.ListCards(r.Context(), ActorID(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]cardResponse, len(cards))
	for i, c := range cards {
		out[i] = toCardResponse(c)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetCard(w http.ResponseWriter, r *http.Request) {
	c, err := s.svc.GetCard(r.Context(), ActorID(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCardResponse(c))
}

func (s *Server) handleGetCardSVG(w http.ResponseWriter, r *http.Request) {
	doc, err := s.svc.RenderCardSVG(r.Context(), ActorID(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc))
}

func (s *Server) handleUpdateSharing(w http.ResponseWriter, r *http.Request) {
	var req updateSharingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, err)
		return
	}

	c, err := s.svc.UpdateSharing(r.Context(), ActorID(r.Context()), mux.Vars(r)["id"],
		card.Visibility(req.Visibility), req.SharedWith)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCardResponse(c))
}

// createVariantRequest is the POST /cards/{id}/variant payload. The
// body may be omitted entirely; a nil seed draws a fresh one.
type createVariantRequest struct {
	Seed *int64 `json:"seed,omitempty"`
}

func (s *Server) handleCreateVariant(w http.ResponseWriter, r *http.Request) {
	var req createVariantRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeDomainError(w, err)
		return
	}

	c, err := s.svc.CreateVariant(r.Context(), ActorID(r.Context()), mux.Vars(r)["id"], req.Seed)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCardResponse(c))
}

func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	favorite, err := s.svc.ToggleFavorite(r.Context(), ActorID(r.Context()), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"card_id":     id,
		"is_favorite": favorite,
	})
}

func (s *Server) handleListFavorites(w http.ResponseWriter, r *http.Request) {
	ids, err := s.svc.ListFavorites(r.Context(), ActorID(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"card_ids": ids})
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteCard(r.Context(), ActorID(r.Context()), mux.Vars(r)["id"]); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

const maxRequestBody = 1 << 20 // 1 MiB

func decodeJSON(r *http.Request, target any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", domain.ErrValidation, err)
	}
	return nil
}

// decodeOptionalJSON is decodeJSON with an empty body allowed: the
// target keeps its zero value.
func decodeOptionalJSON(r *http.Request, target any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: invalid request body: %v", domain.ErrValidation, err)
	}
	return nil
}
