package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"equidify/internal/domain"
	"equidify/internal/infra"
)

// Storage is the local key-value store backed by SQLite
type Storage struct {
	db *gorm.DB
}

var _ domain.WatchlistRepository = (*Storage)(nil)

// NewStorage opens (or creates) the database at path.
// An empty path resolves to the per-user data directory.
func NewStorage(path string) (*Storage, error) {
	dbPath := path
	if dbPath == "" {
		var err error
		dbPath, err = getDBPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve DB path: %w", err)
		}
	}

	// Ensure directory exists
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto Migration
	if err := db.AutoMigrate(&domain.AppConfig{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db}, nil
}

// getDBPath resolves the default database file path
func getDBPath() (string, error) {
	dir, err := infra.UserDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "data", "equidify.db"), nil
}

// Close releases the underlying connection
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ======================================================================================
// Config Operations
// ======================================================================================

// SaveConfig saves a key-value pair
func (s *Storage) SaveConfig(key, value string) error {
	config := domain.AppConfig{
		Key:   key,
		Value: value,
	}
	return s.db.Save(&config).Error
}

// LoadConfig loads one value. Missing keys return ("", false, nil).
func (s *Storage) LoadConfig(key string) (string, bool, error) {
	if key == "" {
		return "", false, nil
	}
	var config domain.AppConfig
	err := s.db.Where(&domain.AppConfig{Key: key}).First(&config).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil // Not found is not an error
	}
	if err != nil {
		return "", false, err
	}
	return config.Value, true, nil
}

// LoadConfigMap loads all key-value pairs as a map
func (s *Storage) LoadConfigMap() (map[string]string, error) {
	var configs []domain.AppConfig
	if err := s.db.Find(&configs).Error; err != nil {
		return nil, err
	}

	result := make(map[string]string)
	for _, cfg := range configs {
		result[cfg.Key] = cfg.Value
	}
	return result, nil
}

// ======================================================================================
// Watchlist Operations
// ======================================================================================

// LoadWatchlist reads the serialized watchlist. A missing key is an empty list.
func (s *Storage) LoadWatchlist() ([]domain.WatchlistItem, error) {
	raw, ok, err := s.LoadConfig(domain.WatchlistKey)
	if err != nil {
		return nil, err
	}
	if !ok || raw == "" {
		return []domain.WatchlistItem{}, nil
	}

	var items []domain.WatchlistItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("corrupt watchlist: %w", err)
	}
	return items, nil
}

// SaveWatchlist rewrites the whole watchlist.
func (s *Storage) SaveWatchlist(items []domain.WatchlistItem) error {
	if items == nil {
		items = []domain.WatchlistItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return s.SaveConfig(domain.WatchlistKey, string(data))
}
