package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/NikitaDmitryuk/mediagram/internal/logutils"
)

func TestMain(m *testing.M) {
	logutils.InitLogger("debug")
	os.Exit(m.Run())
}

func newTestDatabase(t *testing.T) *SQLiteDatabase {
	t.Helper()
	db := NewSQLiteDatabase()
	if err := db.Init(":memory:"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestRecordAndListDownloads(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i, outcome := range []string{OutcomeDone, OutcomeVanished, OutcomeAborted} {
		err := db.RecordDownload(ctx, &Download{
			TorrentID:  "hash",
			Name:       outcome + ".iso",
			Kind:       "Magnet link",
			Outcome:    outcome,
			StartedAt:  base,
			FinishedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("RecordDownload: %v", err)
		}
	}

	recent, err := db.RecentDownloads(ctx, 2)
	if err != nil {
		t.Fatalf("RecentDownloads: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("len = %d, want 2", len(recent))
	}
	if recent[0].Outcome != OutcomeAborted || recent[1].Outcome != OutcomeVanished {
		t.Errorf("order = %s, %s", recent[0].Outcome, recent[1].Outcome)
	}
}
