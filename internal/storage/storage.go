// Package storage defines persistence contracts for scenario card state.
package storage

import (
	"context"
	"errors"

	"github.com/tabletoptools/scenoforge/internal/domain/card"
)

var (
	// ErrNotFound indicates a requested card record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a card with the same ID already exists.
	ErrAlreadyExists = errors.New("record already exists")
)

// CardStore persists scenario cards.
type CardStore interface {
	// CreateCard inserts one card record. The card's ID must be set.
	CreateCard(ctx context.Context, c card.Card) error
	// GetCard returns one card by ID, ErrNotFound when missing.
	GetCard(ctx context.Context, id string) (card.Card, error)
	// ListCardsForUser returns the cards a user may read: their own plus
	// every public card and any card shared with them, newest first.
	ListCardsForUser(ctx context.Context, userID string) ([]card.Card, error)
	// UpdateCardSharing replaces a card's visibility and share list.
	UpdateCardSharing(ctx context.Context, id string, visibility card.Visibility, sharedWith []string) error
	// DeleteCard removes one card by ID, ErrNotFound when missing.
	DeleteCard(ctx context.Context, id string) error
	// SetFavorite marks or unmarks a card as a favorite of an actor.
	// Both directions are idempotent.
	SetFavorite(ctx context.Context, actorID, cardID string, favorite bool) error
	// IsFavorite reports whether an actor has favorited a card.
	IsFavorite(ctx context.Context, actorID, cardID string) (bool, error)
	// ListFavorites returns the card IDs an actor has favorited, newest
	// first. IDs of deleted cards may still appear; callers filter.
	ListFavorites(ctx context.Context, actorID string) ([]string, error)
}
