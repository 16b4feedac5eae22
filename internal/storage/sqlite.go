package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const defaultSQLitePath = "state.db"

// slotRecord is one row of the slots table.
type slotRecord struct {
	Name      string `gorm:"primaryKey;size:128"`
	Data      []byte
	UpdatedAt time.Time
}

func (slotRecord) TableName() string { return "slots" }

// SQLiteSlots stores slots in a local SQLite file through gorm and the
// pure-Go glebarez driver.
type SQLiteSlots struct {
	db *gorm.DB
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLiteSlots, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = defaultSQLitePath
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("storage.OpenSQLite: create dir: %w", err)
		}
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("storage.OpenSQLite: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	if err := db.AutoMigrate(&slotRecord{}); err != nil {
		return nil, fmt.Errorf("storage.OpenSQLite: migrate: %w", err)
	}
	return &SQLiteSlots{db: db}, nil
}

func (s *SQLiteSlots) Get(ctx context.Context, name string) ([]byte, error) {
	var rec slotRecord
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage.SQLiteSlots.Get: %w", err)
	}
	return rec.Data, nil
}

func (s *SQLiteSlots) Put(ctx context.Context, name string, data []byte) error {
	rec := slotRecord{Name: name, Data: data, UpdatedAt: time.Now()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("storage.SQLiteSlots.Put: %w", err)
	}
	return nil
}

func (s *SQLiteSlots) Delete(ctx context.Context, name string) error {
	if err := s.db.WithContext(ctx).Where("name = ?", name).Delete(&slotRecord{}).Error; err != nil {
		return fmt.Errorf("storage.SQLiteSlots.Delete: %w", err)
	}
	return nil
}

func (s *SQLiteSlots) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
