package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	slogGorm "github.com/orandin/slog-gorm"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/quarrydev/quarry/pkg/collector"
)

// Store persists the collection pointer and collected rows in a local sqlite
// database. It satisfies collector.PointerStore and collector.Sink.
type Store struct {
	logger *slog.Logger
	db     *gorm.DB
	source string
}

func NewStore(sqlitePath, source string, logger *slog.Logger) (*Store, error) {
	gormLogger := slogGorm.New()

	db, err := gorm.Open(sqlite.Open(sqlitePath), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}

	if err := db.AutoMigrate(&Pointer{}, &Row{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	// Set pragmas for performance
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=normal;")

	return &Store{
		logger: logger.With("module", "store"),
		db:     db,
		source: source,
	}, nil
}

// GetPointer loads the stored pointer for the store's source. found is false
// when no pointer has ever been persisted.
func (s *Store) GetPointer(ctx context.Context) (string, bool, error) {
	var p Pointer
	err := s.db.WithContext(ctx).Where("source = ?", s.source).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get pointer: %w", err)
	}
	return p.Value, true, nil
}

// SetPointer upserts the stored pointer for the store's source.
func (s *Store) SetPointer(ctx context.Context, value string) error {
	var p Pointer
	err := s.db.WithContext(ctx).Where("source = ?", s.source).First(&p).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to load pointer: %w", err)
		}
		p = Pointer{Source: s.source}
	}

	p.Value = value
	if err := s.db.WithContext(ctx).Save(&p).Error; err != nil {
		return fmt.Errorf("failed to save pointer: %w", err)
	}

	s.logger.Debug("pointer saved", "source", s.source, "value", value)

	return nil
}

// Save appends collected records as JSON rows.
func (s *Store) Save(ctx context.Context, records []collector.Record) error {
	if len(records) == 0 {
		return nil
	}

	rows := make([]*Row, 0, len(records))
	for _, record := range records {
		raw, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to marshal record: %w", err)
		}
		rows = append(rows, &Row{Source: s.source, Raw: raw})
	}

	if err := s.db.WithContext(ctx).CreateInBatches(rows, 100).Error; err != nil {
		return fmt.Errorf("failed to save rows: %w", err)
	}

	s.logger.Debug("rows saved", "source", s.source, "rows", len(rows))

	return nil
}

// RecentRows returns up to limit of the most recently collected rows, newest
// first.
func (s *Store) RecentRows(ctx context.Context, limit int) ([]Row, error) {
	var rows []Row
	err := s.db.WithContext(ctx).
		Where("source = ?", s.source).
		Order("id desc").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load rows: %w", err)
	}
	return rows, nil
}
