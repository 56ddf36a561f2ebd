// Package service implements the scenario card use cases: generate,
// fetch, list, render, share, and delete. It owns identity assignment
// and access control; transports above it only translate requests, and
// stores below it only persist.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tabletoptools/scenoforge/internal/domain"
	"github.com/tabletoptools/scenoforge/internal/domain/card"
	"github.com/tabletoptools/scenoforge/internal/generator"
	"github.com/tabletoptools/scenoforge/internal/render/svg"
	"github.com/tabletoptools/scenoforge/internal/storage"
)

// Service binds the generator and card store behind the use cases.
type Service struct {
	generator *generator.Generator
	store     storage.CardStore
	tracer    trace.Tracer
	now       func() time.Time
	newID     func() string
}

// New creates a Service. Both dependencies are required.
func New(gen *generator.Generator, store storage.CardStore) (*Service, error) {
	if gen == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if store == nil {
		return nil, fmt.Errorf("card store is required")
	}
	return &Service{
		generator: gen,
		store:     store,
		tracer:    otel.Tracer("scenoforge/service"),
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}, nil
}

// GenerateCard builds a new card for the actor and persists it. The
// returned card carries its assigned ID and the resolved seed.
func (s *Service) GenerateCard(ctx context.Context, actorID string, req generator.Request) (card.Card, error) {
	ctx, span := s.tracer.Start(ctx, "service.GenerateCard",
		trace.WithAttributes(attribute.String("card.mode", string(req.Mode))))
	defer span.End()

	if actorID == "" {
		return card.Card{}, spanErr(span, fmt.Errorf("%w: actor is required", domain.ErrForbidden))
	}

	c, err := s.generator.Generate(req)
	if err != nil {
		return card.Card{}, spanErr(span, err)
	}

	now := s.now()
	c.ID = s.newID()
	c.OwnerID = actorID
	c.CreatedAt = now
	c.UpdatedAt = now

	if err := s.store.CreateCard(ctx, c); err != nil {
		return card.Card{}, spanErr(span, fmt.Errorf("persist card: %w", err))
	}

	span.SetAttributes(
		attribute.String("card.id", c.ID),
		attribute.Int64("card.seed", c.Seed),
		attribute.Bool("card.replicable", c.Replicable),
	)
	return c, nil
}

// GetCard returns one card the actor may read. Cards the actor cannot
// see surface as not found, never as forbidden, so probing IDs reveals
// nothing about which ones exist.
func (s *Service) GetCard(ctx context.Context, actorID, id string) (card.Card, error) {
	ctx, span := s.tracer.Start(ctx, "service.GetCard",
		trace.WithAttributes(attribute.String("card.id", id)))
	defer span.End()

	c, err := s.store.GetCard(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return card.Card{}, spanErr(span, fmt.Errorf("%w: card %s", domain.ErrNotFound, id))
		}
		return card.Card{}, spanErr(span, fmt.Errorf("load card: %w", err))
	}
	if !c.CanUserRead(actorID) {
		return card.Card{}, spanErr(span, fmt.Errorf("%w: card %s", domain.ErrNotFound, id))
	}
	return c, nil
}

// ListCards returns every card visible to the actor, newest first.
func (s *Service) ListCards(ctx context.Context, actorID string) ([]card.Card, error) {
	ctx, span := s.tracer.Start(ctx, "service.ListCards")
	defer span.End()

	if actorID == "" {
		return nil, spanErr(span, fmt.Errorf("%w: actor is required", domain.ErrForbidden))
	}

	cards, err := s.store.ListCardsForUser(ctx, actorID)
	if err != nil {
		return nil, spanErr(span, fmt.Errorf("list cards: %w", err))
	}
	span.SetAttributes(attribute.Int("cards.count", len(cards)))
	return cards, nil
}

// RenderCardSVG renders a card's map and normalizes the result before it
// leaves the service. Read access follows the same rules as GetCard.
func (s *Service) RenderCardSVG(ctx context.Context, actorID, id string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "service.RenderCardSVG",
		trace.WithAttributes(attribute.String("card.id", id)))
	defer span.End()

	c, err := s.GetCard(ctx, actorID, id)
	if err != nil {
		return "", spanErr(span, err)
	}

	normalized, err := svg.Normalize(svg.Render(c))
	if err != nil {
		return "", spanErr(span, fmt.Errorf("normalize rendered svg: %w", err))
	}
	return normalized, nil
}

// UpdateSharing replaces a card's visibility and share list. Only the
// owner may change sharing; readers who are not owners get forbidden.
func (s *Service) UpdateSharing(ctx context.Context, actorID, id string, visibility card.Visibility, sharedWith []string) (card.Card, error) {
	ctx, span := s.tracer.Start(ctx, "service.UpdateSharing",
		trace.WithAttributes(
			attribute.String("card.id", id),
			attribute.String("card.visibility", string(visibility)),
		))
	defer span.End()

	if _, err := card.ParseVisibility(string(visibility)); err != nil {
		return card.Card{}, spanErr(span, err)
	}

	c, err := s.store.GetCard(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return card.Card{}, spanErr(span, fmt.Errorf("%w: card %s", domain.ErrNotFound, id))
		}
		return card.Card{}, spanErr(span, fmt.Errorf("load card: %w", err))
	}
	if !c.CanUserWrite(actorID) {
		if c.CanUserRead(actorID) {
			return card.Card{}, spanErr(span, fmt.Errorf("%w: only the owner may share card %s", domain.ErrForbidden, id))
		}
		return card.Card{}, spanErr(span, fmt.Errorf("%w: card %s", domain.ErrNotFound, id))
	}

	if err := s.store.UpdateCardSharing(ctx, id, visibility, sharedWith); err != nil {
		return card.Card{}, spanErr(span, fmt.Errorf("update sharing: %w", err))
	}

	c, err = s.store.GetCard(ctx, id)
	if err != nil {
		return card.Card{}, spanErr(span, fmt.Errorf("reload card: %w", err))
	}
	return c, nil
}

// DeleteCard removes a card. Owner-only, with the same not-found masking
// as UpdateSharing.
func (s *Service) DeleteCard(ctx context.Context, actorID, id string) error {
	ctx, span := s.tracer.Start(ctx, "service.DeleteCard",
		trace.WithAttributes(attribute.String("card.id", id)))
	defer span.End()

	c, err := s.store.GetCard(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return spanErr(span, fmt.Errorf("%w: card %s", domain.ErrNotFound, id))
		}
		return spanErr(span, fmt.Errorf("load card: %w", err))
	}
	if !c.CanUserWrite(actorID) {
		if c.CanUserRead(actorID) {
			return spanErr(span, fmt.Errorf("%w: only the owner may delete card %s", domain.ErrForbidden, id))
		}
		return spanErr(span, fmt.Errorf("%w: card %s", domain.ErrNotFound, id))
	}

	if err := s.store.DeleteCard(ctx, id); err != nil {
		return spanErr(span, fmt.Errorf("delete card: %w", err))
	}
	return nil
}

// CreateVariant derives a new card from one the actor owns: same mode,
// table, visibility, and share list, but a fresh layout from the given
// seed (or a drawn one when nil). Only the owner may derive variants;
// readers who are not owners get forbidden.
func (s *Service) CreateVariant(ctx context.Context, actorID, baseID string, seed *int64) (card.Card, error) {
	ctx, span := s.tracer.Start(ctx, "service.CreateVariant",
		trace.WithAttributes(attribute.String("card.base_id", baseID)))
	defer span.End()

	if actorID == "" {
		return card.Card{}, spanErr(span, fmt.Errorf("%w: actor is required", domain.ErrForbidden))
	}

	base, err := s.store.GetCard(ctx, baseID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return card.Card{}, spanErr(span, fmt.Errorf("%w: card %s", domain.ErrNotFound, baseID))
		}
		return card.Card{}, spanErr(span, fmt.Errorf("load card: %w", err))
	}
	if !base.CanUserWrite(actorID) {
		if base.CanUserRead(actorID) {
			return card.Card{}, spanErr(span, fmt.Errorf("%w: only the owner may derive a variant of card %s", domain.ErrForbidden, baseID))
		}
		return card.Card{}, spanErr(span, fmt.Errorf("%w: card %s", domain.ErrNotFound, baseID))
	}

	variant, err := s.generator.Generate(generator.Request{
		Mode: base.Mode,
		Seed: seed,
		Table: generator.TableRequest{
			Preset:   "custom",
			WidthCm:  base.Table.WidthCm(),
			HeightCm: base.Table.HeightCm(),
		},
	})
	if err != nil {
		return card.Card{}, spanErr(span, err)
	}

	now := s.now()
	variant.ID = s.newID()
	variant.OwnerID = actorID
	variant.Visibility = base.Visibility
	variant.SharedWith = base.SharedWith
	variant.CreatedAt = now
	variant.UpdatedAt = now

	if err := s.store.CreateCard(ctx, variant); err != nil {
		return card.Card{}, spanErr(span, fmt.Errorf("persist variant: %w", err))
	}

	span.SetAttributes(
		attribute.String("card.id", variant.ID),
		attribute.Int64("card.seed", variant.Seed),
	)
	return variant, nil
}

// ToggleFavorite flips the actor's favorite mark on a card and returns
// the new state. Favoriting requires read access, with the same
// not-found masking as GetCard.
func (s *Service) ToggleFavorite(ctx context.Context, actorID, id string) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "service.ToggleFavorite",
		trace.WithAttributes(attribute.String("card.id", id)))
	defer span.End()

	if actorID == "" {
		return false, spanErr(span, fmt.Errorf("%w: actor is required", domain.ErrForbidden))
	}
	if _, err := s.GetCard(ctx, actorID, id); err != nil {
		return false, spanErr(span, err)
	}

	current, err := s.store.IsFavorite(ctx, actorID, id)
	if err != nil {
		return false, spanErr(span, fmt.Errorf("query favorite: %w", err))
	}
	next := !current
	if err := s.store.SetFavorite(ctx, actorID, id, next); err != nil {
		return false, spanErr(span, fmt.Errorf("store favorite: %w", err))
	}

	span.SetAttributes(attribute.Bool("card.favorite", next))
	return next, nil
}

// ListFavorites returns the IDs of favorited cards the actor can still
// read. Marks on deleted or no-longer-visible cards are silently
// filtered, never surfaced.
func (s *Service) ListFavorites(ctx context.Context, actorID string) ([]string, error) {
	ctx, span := s.tracer.Start(ctx, "service.ListFavorites")
	defer span.End()

	if actorID == "" {
		return nil, spanErr(span, fmt.Errorf("%w: actor is required", domain.ErrForbidden))
	}

	ids, err := s.store.ListFavorites(ctx, actorID)
	if err != nil {
		return nil, spanErr(span, fmt.Errorf("list favorites: %w", err))
	}

	visible := make([]string, 0, len(ids))
	for _, id := range ids {
		c, err := s.store.GetCard(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, spanErr(span, fmt.Errorf("load card: %w", err))
		}
		if c.CanUserRead(actorID) {
			visible = append(visible, id)
		}
	}
	span.SetAttributes(attribute.Int("favorites.count", len(visible)))
	return visible, nil
}

func spanErr(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
