package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/tabletoptools/scenoforge/internal/domain/card"
	"github.com/tabletoptools/scenoforge/internal/domain/mapspec"
	"github.com/tabletoptools/scenoforge/internal/domain/table"
	"github.com/tabletoptools/scenoforge/internal/storage"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "cards.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleCard(t *testing.T, id, owner string) card.Card {
	t.Helper()
	tbl := table.Standard()
	spec, err := mapspec.New(tbl, []mapspec.Shape{
		mapspec.Rect{X: 0, Y: 0, Width: 200, Height: 1200, Label: "West zone", AllowOverlap: true},
		mapspec.Circle{CX: 600, CY: 600, R: 80, Label: "Plaza fountain"},
		mapspec.Polygon{
			Points: []mapspec.Point{{X: 300, Y: 300}, {X: 420, Y: 340}, {X: 360, Y: 240}},
			Label:  "Rubble field", AllowOverlap: true,
		},
	})
	if err != nil {
		t.Fatalf("build spec: %v", err)
	}
	now := time.Date(2026, time.March, 12, 9, 30, 0, 0, time.UTC)
	return card.Card{
		ID:         id,
		OwnerID:    owner,
		Visibility: card.VisibilityPrivate,
		Mode:       card.ModeCasual,
		Seed:       42,
		Replicable: true,
		Table:      tbl,
		Map:        spec,
		Content: card.Content{
			DeploymentZones: []card.DeploymentZone{
				{Name: "West zone", Edge: "west", Shape: mapspec.Rect{X: 0, Y: 0, Width: 200, Height: 1200, Label: "West zone", AllowOverlap: true}},
			},
			Scenography: []card.ScenographyPiece{{Name: "Plaza fountain"}},
			Objectives:  []card.Objective{{Name: "Field altar", CX: 800, CY: 400}},
			SpecialRules: []card.SpecialRule{
				{Name: "Fog of war", Description: "Shooting beyond 12in is at -1."},
			},
			VictoryConditions: []card.VictoryCondition{{Name: "Hold the center", Points: 3}},
			NarrativeHooks:    []string{"Smoke from the burned granary drew both warbands here."},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(""); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestCreateGetCardRoundTrip(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	input := sampleCard(t, "card-1", "user-1")
	if err := store.CreateCard(context.Background(), input); err != nil {
		t.Fatalf("create card: %v", err)
	}

	got, err := store.GetCard(context.Background(), "card-1")
	if err != nil {
		t.Fatalf("get card: %v", err)
	}
	if got.OwnerID != input.OwnerID {
		t.Fatalf("owner_id = %q, want %q", got.OwnerID, input.OwnerID)
	}
	if got.Mode != input.Mode || got.Seed != input.Seed || !got.Replicable {
		t.Fatalf("identity fields mangled: %+v", got)
	}
	if got.Table != input.Table {
		t.Fatalf("table = %s, want %s", got.Table, input.Table)
	}
	if !reflect.DeepEqual(got.Map.Shapes, input.Map.Shapes) {
		t.Fatalf("shapes round trip:\ngot  %+v\nwant %+v", got.Map.Shapes, input.Map.Shapes)
	}
	if !reflect.DeepEqual(got.Content, input.Content) {
		t.Fatalf("content round trip:\ngot  %+v\nwant %+v", got.Content, input.Content)
	}
	if !got.CreatedAt.Equal(input.CreatedAt) {
		t.Fatalf("created_at = %v, want %v", got.CreatedAt, input.CreatedAt)
	}
}

func TestCreateCardReturnsAlreadyExistsOnDuplicate(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	input := sampleCard(t, "card-dup", "user-1")
	if err := store.CreateCard(context.Background(), input); err != nil {
		t.Fatalf("create card: %v", err)
	}

	err := store.CreateCard(context.Background(), input)
	if !errors.Is(err, storage.ErrAlreadyExists) {
		t.Fatalf("err = %v, want storage.ErrAlreadyExists", err)
	}
}

func TestGetCardReturnsNotFound(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	_, err := store.GetCard(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want storage.ErrNotFound", err)
	}
}

func TestListCardsForUserVisibility(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()

	own := sampleCard(t, "card-own", "alice")
	if err := store.CreateCard(ctx, own); err != nil {
		t.Fatalf("create own card: %v", err)
	}

	public := sampleCard(t, "card-public", "bob")
	public.Visibility = card.VisibilityPublic
	public.CreatedAt = own.CreatedAt.Add(time.Minute)
	public.UpdatedAt = public.CreatedAt
	if err := store.CreateCard(ctx, public); err != nil {
		t.Fatalf("create public card: %v", err)
	}

	shared := sampleCard(t, "card-shared", "bob")
	shared.Visibility = card.VisibilityShared
	shared.SharedWith = []string{"alice", "carol"}
	shared.CreatedAt = own.CreatedAt.Add(2 * time.Minute)
	shared.UpdatedAt = shared.CreatedAt
	if err := store.CreateCard(ctx, shared); err != nil {
		t.Fatalf("create shared card: %v", err)
	}

	hidden := sampleCard(t, "card-hidden", "bob")
	if err := store.CreateCard(ctx, hidden); err != nil {
		t.Fatalf("create hidden card: %v", err)
	}

	cards, err := store.ListCardsForUser(ctx, "alice")
	if err != nil {
		t.Fatalf("list cards: %v", err)
	}

	ids := make([]string, len(cards))
	for i, c := range cards {
		ids[i] = c.ID
	}
	want := []string{"card-shared", "card-public", "card-own"}
	if !reflect.DeepEqual(ids, want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
}

func TestListCardsForUserExcludesForeignShares(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()

	shared := sampleCard(t, "card-shared", "bob")
	shared.Visibility = card.VisibilityShared
	shared.SharedWith = []string{"carol"}
	if err := store.CreateCard(ctx, shared); err != nil {
		t.Fatalf("create shared card: %v", err)
	}

	cards, err := store.ListCardsForUser(ctx, "alice")
	if err != nil {
		t.Fatalf("list cards: %v", err)
	}
	if len(cards) != 0 {
		t.Fatalf("expected no visible cards, got %d", len(cards))
	}
}

func TestUpdateCardSharing(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()

	input := sampleCard(t, "card-1", "alice")
	if err := store.CreateCard(ctx, input); err != nil {
		t.Fatalf("create card: %v", err)
	}

	if err := store.UpdateCardSharing(ctx, "card-1", card.VisibilityShared, []string{"bob"}); err != nil {
		t.Fatalf("update sharing: %v", err)
	}

	got, err := store.GetCard(ctx, "card-1")
	if err != nil {
		t.Fatalf("get card: %v", err)
	}
	if got.Visibility != card.VisibilityShared {
		t.Fatalf("visibility = %q, want shared", got.Visibility)
	}
	if !reflect.DeepEqual(got.SharedWith, []string{"bob"}) {
		t.Fatalf("shared_with = %v, want [bob]", got.SharedWith)
	}
	if !got.UpdatedAt.After(input.UpdatedAt) {
		t.Fatalf("updated_at not advanced: %v", got.UpdatedAt)
	}

	err = store.UpdateCardSharing(ctx, "missing", card.VisibilityPublic, nil)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want storage.ErrNotFound", err)
	}
}

func TestFavoriteRoundTrip(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()

	on, err := store.IsFavorite(ctx, "alice", "card-a")
	if err != nil {
		t.Fatalf("is favorite: %v", err)
	}
	if on {
		t.Fatal("card favorited before any mark")
	}

	if err := store.SetFavorite(ctx, "alice", "card-a", true); err != nil {
		t.Fatalf("set favorite: %v", err)
	}
	// Marking twice is a no-op, not an error.
	if err := store.SetFavorite(ctx, "alice", "card-a", true); err != nil {
		t.Fatalf("repeat set favorite: %v", err)
	}
	on, err = store.IsFavorite(ctx, "alice", "card-a")
	if err != nil {
		t.Fatalf("is favorite: %v", err)
	}
	if !on {
		t.Fatal("mark not recorded")
	}

	if err := store.SetFavorite(ctx, "alice", "card-a", false); err != nil {
		t.Fatalf("unset favorite: %v", err)
	}
	// Unmarking an absent row is also a no-op.
	if err := store.SetFavorite(ctx, "alice", "card-a", false); err != nil {
		t.Fatalf("repeat unset favorite: %v", err)
	}
	on, err = store.IsFavorite(ctx, "alice", "card-a")
	if err != nil {
		t.Fatalf("is favorite: %v", err)
	}
	if on {
		t.Fatal("mark survived removal")
	}

	if err := store.SetFavorite(ctx, "", "card-a", true); err == nil {
		t.Fatal("expected missing actor error")
	}
	if err := store.SetFavorite(ctx, "alice", "  ", true); err == nil {
		t.Fatal("expected missing card error")
	}
}

func TestListFavoritesIsPerActor(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()

	for _, id := range []string{"card-b", "card-a"} {
		if err := store.SetFavorite(ctx, "alice", id, true); err != nil {
			t.Fatalf("set favorite %s: %v", id, err)
		}
	}
	if err := store.SetFavorite(ctx, "bob", "card-c", true); err != nil {
		t.Fatalf("set favorite card-c: %v", err)
	}

	ids, err := store.ListFavorites(ctx, "alice")
	if err != nil {
		t.Fatalf("list favorites: %v", err)
	}
	if !reflect.DeepEqual(ids, []string{"card-a", "card-b"}) {
		t.Fatalf("ids = %v, want [card-a card-b]", ids)
	}

	ids, err = store.ListFavorites(ctx, "carol")
	if err != nil {
		t.Fatalf("list favorites: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected no favorites for carol, got %v", ids)
	}
}

func TestDeleteCard(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()

	if err := store.CreateCard(ctx, sampleCard(t, "card-1", "alice")); err != nil {
		t.Fatalf("create card: %v", err)
	}
	if err := store.DeleteCard(ctx, "card-1"); err != nil {
		t.Fatalf("delete card: %v", err)
	}
	if _, err := store.GetCard(ctx, "card-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want storage.ErrNotFound", err)
	}
	if err := store.DeleteCard(ctx, "card-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("second delete err = %v, want storage.ErrNotFound", err)
	}
}
