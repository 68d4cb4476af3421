package archive

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"

	"github.com/park285/annan-shogi-server/internal/domain"
)

func sampleGame(session string, ended time.Time) *domain.AnnanGame {
	return &domain.AnnanGame{
		SessionUUID: session,
		Result:      "BLACK_WIN",
		Winner:      "BLACK",
		MovesUSI:    []string{"7g7f", "3c3d"},
		KIF:         "   1 ７六歩(77)\n   2 ３四歩(33)",
		Ply:         2,
		StartedAt:   ended.Add(-time.Minute),
		EndedAt:     ended,
		Duration:    time.Minute,
	}
}

func TestMemoryRepositoryInsertAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	now := time.Now()

	id, err := repo.InsertGame(ctx, sampleGame("s-1", now))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if id != 1 {
		t.Fatalf("expected id 1, got %d", id)
	}
	if _, err := repo.InsertGame(ctx, sampleGame("s-1", now)); !errors.Is(err, ErrDuplicateGame) {
		t.Fatalf("expected duplicate error, got %v", err)
	}

	got, err := repo.GetGame(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	got.MovesUSI[0] = "mutated"
	again, _ := repo.GetGameBySession(ctx, "s-1")
	if again.MovesUSI[0] != "7g7f" {
		t.Fatalf("stored game was mutated through a returned copy")
	}
	if _, err := repo.GetGame(ctx, 99); !errors.Is(err, ErrGameNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryRepositoryRecentOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, s := range []string{"a", "b", "c"} {
		if _, err := repo.InsertGame(ctx, sampleGame(s, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("insert %s: %v", s, err)
		}
	}
	games, err := repo.GetRecentGames(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(games) != 2 || games[0].SessionUUID != "c" || games[1].SessionUUID != "b" {
		t.Fatalf("unexpected order: %+v", games)
	}
}

func TestExportParquet(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, s := range []string{"a", "b"} {
		if _, err := repo.InsertGame(ctx, sampleGame(s, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	path := filepath.Join(t.TempDir(), "games.parquet")
	n, err := ExportParquet(ctx, repo, path, 10)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 rows, got %d", n)
	}

	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer fr.Close()
	pr, err := reader.NewParquetReader(fr, new(GameRow), 1)
	if err != nil {
		t.Fatalf("reader: %v", err)
	}
	defer pr.ReadStop()

	if got := int(pr.GetNumRows()); got != 2 {
		t.Fatalf("expected 2 rows in file, got %d", got)
	}
	rows := make([]GameRow, 2)
	if err := pr.Read(&rows); err != nil {
		t.Fatalf("read: %v", err)
	}
	if rows[0].SessionUUID != "b" || rows[0].Moves != "7g7f 3c3d" || rows[0].Ply != 2 {
		t.Fatalf("unexpected first row: %+v", rows[0])
	}
}
