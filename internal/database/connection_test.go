package database

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/choplin/unblockpreview/internal/allowlist"
	"github.com/choplin/unblockpreview/internal/config"
	sqldb "github.com/choplin/unblockpreview/internal/database/sqlc"
)

func setupTestDB(t *testing.T) *Context {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("UNBLOCKPREVIEW_DIR", tmp)

	ctx, err := CreateDatabase("")
	if err != nil {
		t.Fatalf("CreateDatabase returned error: %v", err)
	}

	t.Cleanup(func() {
		if err := CloseDatabase(ctx); err != nil {
			t.Fatalf("CloseDatabase error: %v", err)
		}
	})

	return ctx
}

func setupMemoryDB(t *testing.T) *Context {
	t.Helper()
	ctx, err := CreateDatabase(":memory:")
	if err != nil {
		t.Fatalf("CreateDatabase returned error: %v", err)
	}
	t.Cleanup(func() {
		_ = CloseDatabase(ctx)
	})
	return ctx
}

func TestDatabaseCreationAndMigration(t *testing.T) {
	ctx := setupTestDB(t)

	dbPath := filepath.Join(config.GetStateDir(), "state.db")
	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("expected database file to exist at %s: %v", dbPath, err)
	}

	for _, table := range []string{"allowlist", "operations", "schema_migrations"} {
		if !tableExists(t, ctx.DB, table) {
			t.Fatalf("expected table %s to exist", table)
		}
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	first, err := CreateDatabase(path)
	if err != nil {
		t.Fatalf("CreateDatabase returned error: %v", err)
	}
	if _, err := NewAllowlistRepository(first).Add(context.Background(), ".docx"); err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	if err := CloseDatabase(first); err != nil {
		t.Fatalf("CloseDatabase returned error: %v", err)
	}

	second, err := CreateDatabase(path)
	if err != nil {
		t.Fatalf("reopening returned error: %v", err)
	}
	defer CloseDatabase(second) //nolint:errcheck

	exts, err := NewAllowlistRepository(second).List(context.Background())
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(exts) != 16 {
		t.Fatalf("expected the seeded 15 plus .docx, got %v", exts)
	}
}

func TestSeededAllowlistMatchesDefault(t *testing.T) {
	ctx := setupMemoryDB(t)

	exts, err := NewAllowlistRepository(ctx).List(context.Background())
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}

	want := allowlist.Default().Slice()
	if len(exts) != len(want) {
		t.Fatalf("expected %v, got %v", want, exts)
	}
	for i := range want {
		if exts[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, exts)
		}
	}
}

func TestAllowlistRepository(t *testing.T) {
	ctx := setupMemoryDB(t)
	repo := NewAllowlistRepository(ctx)
	bg := context.Background()

	added, err := repo.Add(bg, ".docx")
	if err != nil || !added {
		t.Fatalf("Add(.docx) = %v, %v", added, err)
	}
	added, err = repo.Add(bg, ".docx")
	if err != nil || added {
		t.Fatalf("second Add(.docx) = %v, %v", added, err)
	}

	removed, err := repo.Remove(bg, ".pdf")
	if err != nil || !removed {
		t.Fatalf("Remove(.pdf) = %v, %v", removed, err)
	}
	removed, err = repo.Remove(bg, ".pdf")
	if err != nil || removed {
		t.Fatalf("second Remove(.pdf) = %v, %v", removed, err)
	}

	if err := repo.Replace(bg, []string{".md", ".csv"}); err != nil {
		t.Fatalf("Replace returned error: %v", err)
	}
	exts, err := repo.List(bg)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(exts) != 2 || exts[0] != ".csv" || exts[1] != ".md" {
		t.Fatalf("unexpected allowlist %v", exts)
	}
}

func TestAllowlistRejectsUnnormalizedValues(t *testing.T) {
	ctx := setupMemoryDB(t)

	if _, err := NewAllowlistRepository(ctx).Add(context.Background(), "PDF"); err == nil {
		t.Fatal("expected the schema to reject an extension without a leading dot")
	}
}

func TestReplaceRollsBackOnFailure(t *testing.T) {
	ctx := setupMemoryDB(t)
	repo := NewAllowlistRepository(ctx)
	bg := context.Background()

	if err := repo.Replace(bg, []string{".md", "bad"}); err == nil {
		t.Fatal("expected Replace to fail")
	}

	exts, err := repo.List(bg)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(exts) != allowlist.Default().Len() {
		t.Fatalf("expected the original allowlist after rollback, got %v", exts)
	}
}

func TestOperationRepository(t *testing.T) {
	ctx := setupMemoryDB(t)
	repo := NewOperationRepository(ctx)
	bg := context.Background()

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	records := []OperationRecord{
		{ID: "a", Kind: "scan", Dir: `C:\Downloads`, Recursive: true, Count: 3, StartedAt: base, FinishedAt: base.Add(time.Second)},
		{ID: "b", Kind: "unblock", DryRun: true, Count: 2, StartedAt: base.Add(time.Minute), FinishedAt: base.Add(time.Minute + 500*time.Millisecond)},
		{ID: "c", Kind: "scan", Dir: `C:\Downloads`, ExitCode: 1, Error: "scan failed", StartedAt: base.Add(2 * time.Minute), FinishedAt: base.Add(2 * time.Minute)},
	}
	for _, rec := range records {
		if err := repo.Insert(bg, rec); err != nil {
			t.Fatalf("Insert(%s) returned error: %v", rec.ID, err)
		}
	}

	got, err := repo.Recent(bg, 2)
	if err != nil {
		t.Fatalf("Recent returned error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "c" || got[1].ID != "b" {
		t.Fatalf("expected newest first, got %+v", got)
	}
	if got[0].ExitCode != 1 || got[0].Error != "scan failed" {
		t.Errorf("failure details lost: %+v", got[0])
	}
	if !got[1].DryRun || got[1].Dir != "" || got[1].Duration() != 500*time.Millisecond {
		t.Errorf("unexpected record %+v", got[1])
	}
	if !got[1].StartedAt.Equal(records[1].StartedAt) {
		t.Errorf("start time %v, want %v", got[1].StartedAt, records[1].StartedAt)
	}

	if err := ClearHistory(bg, ctx); err != nil {
		t.Fatalf("ClearHistory returned error: %v", err)
	}
	got, err = repo.Recent(bg, 10)
	if err != nil {
		t.Fatalf("Recent returned error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty history, got %d", len(got))
	}
}

func TestRepositoriesWithoutDatabase(t *testing.T) {
	if _, err := NewAllowlistRepository(nil).List(context.Background()); !errors.Is(err, ErrNoDatabase) {
		t.Fatalf("expected ErrNoDatabase, got %v", err)
	}
	if err := NewOperationRepository(nil).Insert(context.Background(), OperationRecord{}); !errors.Is(err, ErrNoDatabase) {
		t.Fatalf("expected ErrNoDatabase, got %v", err)
	}
	if err := WithTx(context.Background(), nil, func(*sqldb.Queries) error { return nil }); !errors.Is(err, ErrNoDatabase) {
		t.Fatalf("expected ErrNoDatabase, got %v", err)
	}
}

func tableExists(t *testing.T, db *sql.DB, table string) bool {
	t.Helper()
	var name string
	err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
	if err == sql.ErrNoRows {
		return false
	}
	if err != nil {
		t.Fatalf("tableExists query failed for %s: %v", table, err)
	}
	return true
}
