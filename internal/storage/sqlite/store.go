// Package sqlite provides a SQLite-backed card storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/tabletoptools/scenoforge/internal/domain/card"
	"github.com/tabletoptools/scenoforge/internal/domain/mapspec"
	"github.com/tabletoptools/scenoforge/internal/domain/table"
	sqlitemigrate "github.com/tabletoptools/scenoforge/internal/platform/storage/sqlitemigrate"
	"github.com/tabletoptools/scenoforge/internal/storage"
	"github.com/tabletoptools/scenoforge/internal/storage/sqlite/migrations"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Store persists scenario cards in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite card store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// CreateCard inserts one card record.
func (s *Store) CreateCard(ctx context.Context, c card.Card) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	id := strings.TrimSpace(c.ID)
	if id == "" {
		return fmt.Errorf("card id is required")
	}
	if strings.TrimSpace(c.OwnerID) == "" {
		return fmt.Errorf("owner id is required")
	}

	createdAt := c.CreatedAt.UTC()
	updatedAt := c.UpdatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	sharedJSON, err := encodeSharedWith(c.SharedWith)
	if err != nil {
		return fmt.Errorf("encode shared_with: %w", err)
	}
	shapesJSON, err := encodeShapes(c.Map.Shapes)
	if err != nil {
		return fmt.Errorf("encode map shapes: %w", err)
	}
	contentJSON, err := json.Marshal(c.Content)
	if err != nil {
		return fmt.Errorf("encode content: %w", err)
	}

	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO scenario_cards (
		   id,
		   owner_id,
		   visibility,
		   shared_with,
		   mode,
		   seed,
		   replicable,
		   table_width_mm,
		   table_height_mm,
		   map_shapes,
		   content,
		   created_at,
		   updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		c.OwnerID,
		string(c.Visibility),
		sharedJSON,
		string(c.Mode),
		c.Seed,
		boolToInt(c.Replicable),
		c.Table.WidthMM,
		c.Table.HeightMM,
		shapesJSON,
		string(contentJSON),
		toMillis(createdAt),
		toMillis(updatedAt),
	)
	if err != nil {
		if isCardUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create card: %w", err)
	}
	return nil
}

const cardColumns = `id, owner_id, visibility, shared_with, mode, seed, replicable,
	table_width_mm, table_height_mm, map_shapes, content, created_at, updated_at`

// GetCard returns one card by ID.
func (s *Store) GetCard(ctx context.Context, id string) (card.Card, error) {
	if err := ctx.Err(); err != nil {
		return card.Card{}, err
	}
	if s == nil || s.sqlDB == nil {
		return card.Card{}, fmt.Errorf("storage is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return card.Card{}, fmt.Errorf("card id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT `+cardColumns+` FROM scenario_cards WHERE id = ?`, id)
	c, err := scanCard(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return card.Card{}, storage.ErrNotFound
		}
		return card.Card{}, fmt.Errorf("get card: %w", err)
	}
	return c, nil
}

// ListCardsForUser returns every card the user may read, newest first.
// The visibility filter mirrors card.CanUserRead so no record the domain
// would deny ever leaves the store.
func (s *Store) ListCardsForUser(ctx context.Context, userID string) ([]card.Card, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT `+cardColumns+` FROM scenario_cards
		 WHERE owner_id = ?
		    OR visibility = ?
		    OR (visibility = ? AND EXISTS (
		        SELECT 1 FROM json_each(scenario_cards.shared_with) WHERE value = ?))
		 ORDER BY created_at DESC, id`,
		userID, string(card.VisibilityPublic), string(card.VisibilityShared), userID)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var cards []card.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cards: %w", err)
	}
	return cards, nil
}

// UpdateCardSharing replaces a card's visibility and share list.
func (s *Store) UpdateCardSharing(ctx context.Context, id string, visibility card.Visibility, sharedWith []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("card id is required")
	}

	sharedJSON, err := encodeSharedWith(sharedWith)
	if err != nil {
		return fmt.Errorf("encode shared_with: %w", err)
	}

	result, err := s.sqlDB.ExecContext(ctx,
		`UPDATE scenario_cards SET visibility = ?, shared_with = ?, updated_at = ? WHERE id = ?`,
		string(visibility), sharedJSON, toMillis(time.Now()), id)
	if err != nil {
		return fmt.Errorf("update card sharing: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update card sharing: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteCard removes one card by ID.
func (s *Store) DeleteCard(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("card id is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM scenario_cards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) SetFavorite(ctx context.Context, actorID, cardID string, favorite bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	actorID = strings.TrimSpace(actorID)
	cardID = strings.TrimSpace(cardID)
	if actorID == "" || cardID == "" {
		return fmt.Errorf("actor id and card id are required")
	}

	if !favorite {
		if _, err := s.sqlDB.ExecContext(ctx,
			`DELETE FROM favorites WHERE actor_id = ? AND card_id = ?`, actorID, cardID); err != nil {
			return fmt.Errorf("unset favorite: %w", err)
		}
		return nil
	}
	if _, err := s.sqlDB.ExecContext(ctx,
		`INSERT OR IGNORE INTO favorites (actor_id, card_id, created_at) VALUES (?, ?, ?)`,
		actorID, cardID, toMillis(time.Now().UTC())); err != nil {
		return fmt.Errorf("set favorite: %w", err)
	}
	return nil
}

func (s *Store) IsFavorite(ctx context.Context, actorID, cardID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s == nil || s.sqlDB == nil {
		return false, fmt.Errorf("storage is not configured")
	}

	var found int
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT 1 FROM favorites WHERE actor_id = ? AND card_id = ?`, actorID, cardID).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query favorite: %w", err)
	}
	return true, nil
}

func (s *Store) ListFavorites(ctx context.Context, actorID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT card_id FROM favorites WHERE actor_id = ? ORDER BY created_at DESC, card_id`, actorID)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan favorite: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	return ids, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (card.Card, error) {
	var (
		c           card.Card
		visibility  string
		mode        string
		sharedJSON  string
		replicable  int
		widthMM     int
		heightMM    int
		shapesJSON  string
		contentJSON string
		createdAt   int64
		updatedAt   int64
	)
	if err := row.Scan(
		&c.ID,
		&c.OwnerID,
		&visibility,
		&sharedJSON,
		&mode,
		&c.Seed,
		&replicable,
		&widthMM,
		&heightMM,
		&shapesJSON,
		&contentJSON,
		&createdAt,
		&updatedAt,
	); err != nil {
		return card.Card{}, err
	}

	parsedVisibility, err := card.ParseVisibility(visibility)
	if err != nil {
		return card.Card{}, fmt.Errorf("stored visibility: %w", err)
	}
	parsedMode, err := card.ParseMode(mode)
	if err != nil {
		return card.Card{}, fmt.Errorf("stored mode: %w", err)
	}
	tbl, err := table.New(widthMM, heightMM)
	if err != nil {
		return card.Card{}, fmt.Errorf("stored table: %w", err)
	}

	var shared []string
	if err := json.Unmarshal([]byte(sharedJSON), &shared); err != nil {
		return card.Card{}, fmt.Errorf("decode shared_with: %w", err)
	}
	var raws []mapspec.RawShape
	if err := json.Unmarshal([]byte(shapesJSON), &raws); err != nil {
		return card.Card{}, fmt.Errorf("decode map shapes: %w", err)
	}
	spec, err := mapspec.FromRaw(tbl, raws)
	if err != nil {
		return card.Card{}, fmt.Errorf("decode map shapes: %w", err)
	}
	if err := json.Unmarshal([]byte(contentJSON), &c.Content); err != nil {
		return card.Card{}, fmt.Errorf("decode content: %w", err)
	}

	c.Visibility = parsedVisibility
	c.SharedWith = shared
	c.Mode = parsedMode
	c.Replicable = replicable != 0
	c.Table = tbl
	c.Map = spec
	c.CreatedAt = fromMillis(createdAt)
	c.UpdatedAt = fromMillis(updatedAt)
	return c, nil
}

func encodeSharedWith(sharedWith []string) (string, error) {
	if sharedWith == nil {
		sharedWith = []string{}
	}
	data, err := json.Marshal(sharedWith)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func encodeShapes(shapes []mapspec.Shape) (string, error) {
	raws := make([]mapspec.RawShape, len(shapes))
	for i, shape := range shapes {
		raws[i] = mapspec.Raw(shape)
	}
	data, err := json.Marshal(raws)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func isCardUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint failed") &&
		strings.Contains(message, "scenario_cards.id")
}

var _ storage.CardStore = (*Store)(nil)
