package database

import (
	"crowned-trader/models"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrSelectionNotFound is returned when no selection has the requested ID
var ErrSelectionNotFound = errors.New("selection not found")

// LocalStorage persists selection outcomes in SQLite
type LocalStorage struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewLocalStorage creates a new local storage service
func NewLocalStorage(dbPath string) (*LocalStorage, error) {
	// Ensure the directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&models.DBSelection{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	return &LocalStorage{
		db:     db,
		logger: logger,
	}, nil
}

// SaveSelection stores a selection outcome
func (s *LocalStorage) SaveSelection(selection *models.DBSelection) error {
	if err := s.db.Create(selection).Error; err != nil {
		return fmt.Errorf("failed to save selection: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"selection_id": selection.SelectionID,
		"underlying":   selection.Underlying,
		"status":       selection.Status,
	}).Debug("Selection saved")
	return nil
}

// GetSelection retrieves a selection by its ID
func (s *LocalStorage) GetSelection(selectionID string) (*models.DBSelection, error) {
	var selection models.DBSelection
	err := s.db.Where("selection_id = ?", selectionID).First(&selection).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSelectionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get selection: %w", err)
	}
	return &selection, nil
}

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

// SelectionFilter narrows ListSelections; zero values match everything.
// Limit defaults to 100 and is capped at 500.
type SelectionFilter struct {
	Underlying string
	Strategy   string
	Status     string
	Limit      int
}

// ListSelections returns selections newest first
func (s *LocalStorage) ListSelections(filter SelectionFilter) ([]*models.DBSelection, error) {
	query := s.db.Model(&models.DBSelection{})
	if filter.Underlying != "" {
		query = query.Where("underlying = ?", filter.Underlying)
	}
	if filter.Strategy != "" {
		query = query.Where("strategy = ?", filter.Strategy)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)

	var selections []*models.DBSelection
	if err := query.Order("evaluated_at DESC").Limit(limit).Find(&selections).Error; err != nil {
		return nil, fmt.Errorf("failed to list selections: %w", err)
	}
	return selections, nil
}

// CleanupOldData removes selections evaluated before the given time
func (s *LocalStorage) CleanupOldData(before time.Time) error {
	s.logger.WithField("before", before).Info("Cleaning up old data")

	result := s.db.Unscoped().Where("evaluated_at < ?", before).Delete(&models.DBSelection{})
	if result.Error != nil {
		return fmt.Errorf("failed to cleanup selections: %w", result.Error)
	}

	s.logger.WithField("deleted", result.RowsAffected).Info("Old data cleaned up")
	return nil
}

// Close closes the database connection
func (s *LocalStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
