// Package card provides the scenario card aggregate: identity, ownership,
// visibility, the generated table layout, and the access-control
// predicates guarding it.
package card

import (
	"fmt"
	"strings"
	"time"

	"github.com/tabletoptools/scenoforge/internal/domain"
	"github.com/tabletoptools/scenoforge/internal/domain/mapspec"
	"github.com/tabletoptools/scenoforge/internal/domain/table"
)

// Mode governs which catalogue entries and scoring rules apply.
type Mode string

const (
	ModeCasual    Mode = "casual"
	ModeNarrative Mode = "narrative"
	ModeMatched   Mode = "matched"
)

// Visibility controls who may read a card. Writes are always owner-only.
type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityShared  Visibility = "shared"
	VisibilityPublic  Visibility = "public"
)

// ParseMode parses a mode string, trimming and lowercasing first.
func ParseMode(value string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case ModeCasual:
		return ModeCasual, nil
	case ModeNarrative:
		return ModeNarrative, nil
	case ModeMatched:
		return ModeMatched, nil
	default:
		return "", fmt.Errorf("%w: unknown mode %q, must be one of: casual, matched, narrative",
			domain.ErrValidation, value)
	}
}

// ParseVisibility parses a visibility string, trimming and lowercasing first.
func ParseVisibility(value string) (Visibility, error) {
	switch Visibility(strings.ToLower(strings.TrimSpace(value))) {
	case VisibilityPrivate:
		return VisibilityPrivate, nil
	case VisibilityShared:
		return VisibilityShared, nil
	case VisibilityPublic:
		return VisibilityPublic, nil
	default:
		return "", fmt.Errorf("%w: unknown visibility %q, must be one of: private, public, shared",
			domain.ErrValidation, value)
	}
}

// DeploymentZone is a border rectangle a force deploys from.
type DeploymentZone struct {
	Name  string       `json:"name"`
	Edge  string       `json:"edge"`
	Shape mapspec.Rect `json:"shape"`
}

// ScenographyPiece is a named terrain element on the table.
type ScenographyPiece struct {
	Name     string `json:"name"`
	Passable bool   `json:"passable"`
}

// Objective is a fixed-radius marker contested during play.
type Objective struct {
	Name string `json:"name"`
	CX   int    `json:"cx"`
	CY   int    `json:"cy"`
}

// SpecialRule is a scenario rule drawn from the content catalogue.
type SpecialRule struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// VictoryCondition awards points for an in-game achievement.
type VictoryCondition struct {
	Name   string `json:"name"`
	Points int    `json:"points"`
}

// Content holds the generated scenario blocks beyond raw geometry.
type Content struct {
	DeploymentZones   []DeploymentZone   `json:"deployment_zones"`
	Scenography       []ScenographyPiece `json:"scenography"`
	Objectives        []Objective        `json:"objectives"`
	SpecialRules      []SpecialRule      `json:"special_rules"`
	VictoryConditions []VictoryCondition `json:"victory_conditions"`
	NarrativeHooks    []string           `json:"narrative_hooks,omitempty"`
	MatchedScore      int                `json:"matched_score,omitempty"`
}

// Card binds identity, ownership, mode, seed, table geometry, and the
// generated content. Mutation happens only through whole-field
// replacement; the map spec itself is frozen at construction.
type Card struct {
	ID         string
	OwnerID    string
	Visibility Visibility
	SharedWith []string
	Mode       Mode
	Seed       int64
	Replicable bool
	Table      table.Size
	Map        mapspec.Spec
	Content    Content
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CanUserRead reports whether an actor may read this card. Deny by
// default: an empty actor or owner never grants access.
func (c Card) CanUserRead(actorID string) bool {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" || c.OwnerID == "" {
		return false
	}
	if actorID == c.OwnerID {
		return true
	}
	switch c.Visibility {
	case VisibilityPublic:
		return true
	case VisibilityShared:
		for _, shared := range c.SharedWith {
			if strings.TrimSpace(shared) == actorID {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// CanUserWrite reports whether an actor may modify this card. Writes are
// owner-only regardless of visibility.
func (c Card) CanUserWrite(actorID string) bool {
	actorID = strings.TrimSpace(actorID)
	return actorID != "" && c.OwnerID != "" && actorID == c.OwnerID
}
