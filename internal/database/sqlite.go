package database

import (
	"context"
	"fmt"

	"github.com/NikitaDmitryuk/mediagram/internal/logutils"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type SQLiteDatabase struct {
	db *gorm.DB
}

var _ Database = (*SQLiteDatabase)(nil)

func NewSQLiteDatabase() *SQLiteDatabase {
	return &SQLiteDatabase{}
}

// Init opens path, or an in-memory database for ":memory:".
func (s *SQLiteDatabase) Init(path string) error {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	s.db = db

	if path == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := s.db.AutoMigrate(&Download{}); err != nil {
		return fmt.Errorf("auto migration failed: %w", err)
	}

	logutils.Log.WithField("path", path).Info("Database initialized successfully")
	return nil
}

func (s *SQLiteDatabase) RecordDownload(ctx context.Context, entry *Download) error {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to record download: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) RecentDownloads(ctx context.Context, limit int) ([]Download, error) {
	var downloads []Download
	err := s.db.WithContext(ctx).
		Order("finished_at desc").
		Order("id desc").
		Limit(limit).
		Find(&downloads).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list downloads: %w", err)
	}
	return downloads, nil
}

func (s *SQLiteDatabase) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
