package store

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"testing"
	"time"

	"waypost/internal/directory"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func setupIntegrationStore(t *testing.T) (*PostgresStore, context.Context) {
	t.Helper()
	dsn := strings.TrimSpace(os.Getenv("WAYPOST_TEST_DATABASE_URL"))
	if dsn == "" {
		t.Skip("WAYPOST_TEST_DATABASE_URL is not set")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	t.Cleanup(cancel)

	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("ping postgres: %v", err)
	}
	if _, err := db.ExecContext(ctx, `DROP SCHEMA IF EXISTS public CASCADE; CREATE SCHEMA public;`); err != nil {
		t.Fatalf("reset schema: %v", err)
	}
	if err := EnsureSchema(ctx, db); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return NewPostgresStore(db), ctx
}

func integrationTree() []directory.Category {
	return []directory.Category{
		{ID: "c1", Name: "Tools", SortOrder: 0, Links: []directory.Link{
			{ID: "l1", Name: "A", URL: "https://a.example", SortOrder: 0, CategoryID: "c1"},
			{ID: "l2", Name: "B", URL: "https://b.example", SortOrder: 1, CategoryID: "c1"},
		}},
		{ID: "c2", Name: "Reading", SortOrder: 1, Links: []directory.Link{}},
	}
}

func TestEnsureSchemaIsIdempotent(t *testing.T) {
	store, ctx := setupIntegrationStore(t)
	if err := EnsureSchema(ctx, store.DB()); err != nil {
		t.Fatalf("second EnsureSchema failed: %v", err)
	}
}

func TestGetSettingsReturnsDefaultsWhenAbsent(t *testing.T) {
	store, ctx := setupIntegrationStore(t)

	settings, err := store.GetSettings(ctx)
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if settings != directory.DefaultSettings() {
		t.Fatalf("expected defaults, got %+v", settings)
	}
}

func TestReplaceSettingsReadYourWrites(t *testing.T) {
	store, ctx := setupIntegrationStore(t)

	want := directory.Settings{
		Title:          "Integration Title",
		Logo:           "https://cdn.example/logo.png",
		Copyright:      "© test",
		SearchEnabled:  false,
		Theme:          "theme-blue",
		AppearanceMode: "mint",
	}
	if err := store.ReplaceSettings(ctx, want); err != nil {
		t.Fatalf("replace settings: %v", err)
	}
	got, err := store.GetSettings(ctx)
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}

	// A second replace overwrites, never merges.
	want.Title = "Replaced Again"
	if err := store.ReplaceSettings(ctx, want); err != nil {
		t.Fatalf("replace settings again: %v", err)
	}
	got, err = store.GetSettings(ctx)
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if got.Title != "Replaced Again" {
		t.Fatalf("expected overwrite, got %+v", got)
	}
}

func TestReplaceCategoriesRoundTrip(t *testing.T) {
	store, ctx := setupIntegrationStore(t)

	if err := store.ReplaceCategories(ctx, integrationTree()); err != nil {
		t.Fatalf("replace categories: %v", err)
	}
	got, err := store.GetCategories(ctx)
	if err != nil {
		t.Fatalf("get categories: %v", err)
	}
	if len(got) != 2 || got[0].ID != "c1" || got[1].ID != "c2" {
		t.Fatalf("unexpected tree %+v", got)
	}
	if len(got[0].Links) != 2 || got[0].Links[0].ID != "l1" {
		t.Fatalf("unexpected links %+v", got[0].Links)
	}

	// Full replace drops everything not resubmitted.
	if err := store.ReplaceCategories(ctx, integrationTree()[:1]); err != nil {
		t.Fatalf("replace categories: %v", err)
	}
	got, err = store.GetCategories(ctx)
	if err != nil {
		t.Fatalf("get categories: %v", err)
	}
	if len(got) != 1 || got[0].ID != "c1" {
		t.Fatalf("expected [c1], got %+v", got)
	}
}

func TestDeleteCategoryCascadesToLinks(t *testing.T) {
	store, ctx := setupIntegrationStore(t)

	if err := store.ReplaceCategories(ctx, integrationTree()); err != nil {
		t.Fatalf("replace categories: %v", err)
	}
	if _, err := store.DB().ExecContext(ctx, `DELETE FROM categories WHERE id='c1'`); err != nil {
		t.Fatalf("delete category: %v", err)
	}

	var orphans int
	if err := store.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM links WHERE category_id='c1'`).Scan(&orphans); err != nil {
		t.Fatalf("count links: %v", err)
	}
	if orphans != 0 {
		t.Fatalf("expected cascade delete, %d links survived", orphans)
	}
}

func TestImportSnapshotReplacesEverythingAtomically(t *testing.T) {
	store, ctx := setupIntegrationStore(t)

	if err := store.ReplaceCategories(ctx, integrationTree()); err != nil {
		t.Fatalf("seed categories: %v", err)
	}

	settings := directory.DefaultSettings()
	settings.Title = "Imported"
	snapshot := directory.Snapshot{
		Version:  directory.SnapshotVersion,
		Settings: &settings,
		Categories: []directory.Category{
			// Gapped sort orders are reindexed positionally on import.
			{ID: "c9", Name: "New", SortOrder: 14, Links: []directory.Link{
				{ID: "l9", Name: "N", URL: "https://n.example", SortOrder: 8},
			}},
		},
	}
	if err := store.ImportSnapshot(ctx, snapshot); err != nil {
		t.Fatalf("import snapshot: %v", err)
	}

	got, err := store.GetCategories(ctx)
	if err != nil {
		t.Fatalf("get categories: %v", err)
	}
	if len(got) != 1 || got[0].ID != "c9" || got[0].SortOrder != 0 {
		t.Fatalf("expected [c9@0], got %+v", got)
	}
	if len(got[0].Links) != 1 || got[0].Links[0].SortOrder != 0 {
		t.Fatalf("expected reindexed link, got %+v", got[0].Links)
	}
	gotSettings, err := store.GetSettings(ctx)
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if gotSettings.Title != "Imported" {
		t.Fatalf("expected imported settings, got %+v", gotSettings)
	}
}

func TestImportSnapshotSettingsOnlyPreservesCategories(t *testing.T) {
	store, ctx := setupIntegrationStore(t)

	if err := store.ReplaceCategories(ctx, integrationTree()); err != nil {
		t.Fatalf("seed categories: %v", err)
	}

	settings := directory.DefaultSettings()
	settings.Title = "Settings Only"
	if err := store.ImportSnapshot(ctx, directory.Snapshot{Settings: &settings}); err != nil {
		t.Fatalf("import snapshot: %v", err)
	}

	gotSettings, err := store.GetSettings(ctx)
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if gotSettings.Title != "Settings Only" {
		t.Fatalf("expected imported settings, got %+v", gotSettings)
	}
	got, err := store.GetCategories(ctx)
	if err != nil {
		t.Fatalf("get categories: %v", err)
	}
	if len(got) != 2 || got[0].ID != "c1" || len(got[0].Links) != 2 {
		t.Fatalf("categories absent from the snapshot must survive, got %+v", got)
	}
}

func TestImportSnapshotCategoriesOnlyPreservesSettings(t *testing.T) {
	store, ctx := setupIntegrationStore(t)

	prior := directory.DefaultSettings()
	prior.Title = "Keep Me"
	if err := store.ReplaceSettings(ctx, prior); err != nil {
		t.Fatalf("seed settings: %v", err)
	}

	snapshot := directory.Snapshot{Categories: integrationTree()}
	if err := store.ImportSnapshot(ctx, snapshot); err != nil {
		t.Fatalf("import snapshot: %v", err)
	}

	gotSettings, err := store.GetSettings(ctx)
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if gotSettings.Title != "Keep Me" {
		t.Fatalf("settings absent from the snapshot must survive, got %+v", gotSettings)
	}
	got, err := store.GetCategories(ctx)
	if err != nil {
		t.Fatalf("get categories: %v", err)
	}
	if len(got) != 2 || got[0].ID != "c1" {
		t.Fatalf("expected imported tree, got %+v", got)
	}
}

func TestImportSnapshotEmptyCategoriesIsExplicitWipe(t *testing.T) {
	store, ctx := setupIntegrationStore(t)

	if err := store.ReplaceCategories(ctx, integrationTree()); err != nil {
		t.Fatalf("seed categories: %v", err)
	}

	snapshot := directory.Snapshot{Categories: []directory.Category{}}
	if err := store.ImportSnapshot(ctx, snapshot); err != nil {
		t.Fatalf("import snapshot: %v", err)
	}

	got, err := store.GetCategories(ctx)
	if err != nil {
		t.Fatalf("get categories: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("present-but-empty collection must clear the tree, got %+v", got)
	}
}

func TestImportSnapshotFailureKeepsPriorState(t *testing.T) {
	store, ctx := setupIntegrationStore(t)

	if err := store.ReplaceCategories(ctx, integrationTree()); err != nil {
		t.Fatalf("seed categories: %v", err)
	}

	// Duplicate link ids violate the primary key mid-transaction.
	bad := directory.Snapshot{
		Categories: []directory.Category{
			{ID: "cx", Name: "X", Links: []directory.Link{
				{ID: "dup", Name: "One", URL: "https://one.example"},
				{ID: "dup", Name: "Two", URL: "https://two.example"},
			}},
		},
	}
	if err := store.ImportSnapshot(ctx, bad); err == nil {
		t.Fatalf("expected import to fail")
	}

	got, err := store.GetCategories(ctx)
	if err != nil {
		t.Fatalf("get categories: %v", err)
	}
	if len(got) != 2 || got[0].ID != "c1" {
		t.Fatalf("prior state must survive a failed import, got %+v", got)
	}
}

func TestExportSnapshotCarriesVersionMarker(t *testing.T) {
	store, ctx := setupIntegrationStore(t)

	if err := store.ReplaceCategories(ctx, integrationTree()); err != nil {
		t.Fatalf("seed categories: %v", err)
	}
	snapshot, err := store.ExportSnapshot(ctx)
	if err != nil {
		t.Fatalf("export snapshot: %v", err)
	}
	if snapshot.Version != directory.SnapshotVersion {
		t.Fatalf("expected version %s, got %s", directory.SnapshotVersion, snapshot.Version)
	}
	if snapshot.Settings == nil || snapshot.ExportedAt.IsZero() {
		t.Fatalf("incomplete snapshot %+v", snapshot)
	}
	if len(snapshot.Categories) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(snapshot.Categories))
	}
}

func TestAdminSessionLifecycle(t *testing.T) {
	store, ctx := setupIntegrationStore(t)

	hash := "integration-token-hash"
	if err := store.SaveAdminSession(ctx, hash, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("save session: %v", err)
	}
	live, err := store.LookupAdminSession(ctx, hash)
	if err != nil {
		t.Fatalf("lookup session: %v", err)
	}
	if !live {
		t.Fatalf("expected live session")
	}

	if err := store.RevokeAdminSession(ctx, hash); err != nil {
		t.Fatalf("revoke session: %v", err)
	}
	live, err = store.LookupAdminSession(ctx, hash)
	if err != nil {
		t.Fatalf("lookup session: %v", err)
	}
	if live {
		t.Fatalf("expected revoked session to be dead")
	}

	if err := store.SaveAdminSession(ctx, "expired-hash", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("save expired session: %v", err)
	}
	live, err = store.LookupAdminSession(ctx, "expired-hash")
	if err != nil {
		t.Fatalf("lookup session: %v", err)
	}
	if live {
		t.Fatalf("expected expired session to be dead")
	}
}
