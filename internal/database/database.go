package database

import (
	"context"

	"github.com/NikitaDmitryuk/mediagram/internal/logutils"
)

// HistoryReader is the read side used by the /history command.
type HistoryReader interface {
	RecentDownloads(ctx context.Context, limit int) ([]Download, error)
}

// HistoryWriter is the write side used by download sessions.
type HistoryWriter interface {
	RecordDownload(ctx context.Context, entry *Download) error
}

// Database is the full history store.
type Database interface {
	HistoryReader
	HistoryWriter
	Close() error
}

func NewDatabase(path string) (Database, error) {
	database := NewSQLiteDatabase()
	if err := database.Init(path); err != nil {
		logutils.Log.WithError(err).Error("Failed to initialize the database")
		return nil, err
	}
	return database, nil
}
