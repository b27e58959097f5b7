package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/user/hours-bot-go/internal/config"
	"github.com/user/hours-bot-go/internal/model"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// MySQLStore implements Store using a MySQL documents table
type MySQLStore struct {
	db *gorm.DB
}

// NewMySQLStore creates a new MySQL store instance
func NewMySQLStore(cfg *config.DBConfig) (*MySQLStore, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(mysql.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(cfg.MaxConns)
	sqlDB.SetMaxIdleConns(cfg.MaxConns / 2)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&model.Document{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &MySQLStore{db: db}, nil
}

// Get retrieves a document body by name
func (s *MySQLStore) Get(ctx context.Context, name string) ([]byte, error) {
	var doc model.Document
	result := s.db.WithContext(ctx).Where("name = ?", name).First(&doc)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", result.Error)
	}
	return []byte(doc.Body), nil
}

// Put upserts a document body
func (s *MySQLStore) Put(ctx context.Context, name string, data []byte) error {
	doc := &model.Document{
		Name:      name,
		Body:      string(data),
		UpdatedAt: time.Now(),
	}
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"body", "updated_at"}),
	}).Create(doc)
	if result.Error != nil {
		return fmt.Errorf("failed to put document: %w", result.Error)
	}
	return nil
}

// Ping checks database connectivity
func (s *MySQLStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying db: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (s *MySQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying db: %w", err)
	}
	return sqlDB.Close()
}
