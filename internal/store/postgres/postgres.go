// Package postgres is the record store for a self-hosted Postgres database,
// reached directly over gorm with the lib/pq driver. It keeps the same
// schema as the hosted remote backend.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kutbudev/promptvault/internal/apperr"
	"github.com/kutbudev/promptvault/internal/logging"
	"github.com/kutbudev/promptvault/internal/models"
	"github.com/kutbudev/promptvault/internal/store"
)

// schemaRevision is written to schema_version after AutoMigrate
const schemaRevision = 3

// Store implements store.Store with gorm
type Store struct {
	db       *gorm.DB
	location string
	logger   *zap.Logger
}

var (
	_ store.Store       = (*Store)(nil)
	_ store.MergeTarget = (*Store)(nil)
	_ store.Tombstones  = (*Store)(nil)
	_ store.Snapshot    = (*Store)(nil)
)

// Open connects to dsn and migrates the schema
func Open(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	log = logging.OrNop(log)

	db, err := gorm.Open(postgres.New(postgres.Config{
		DriverName: "postgres",
		DSN:        dsn,
	}), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: models.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get SQL DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)

	s := &Store{db: db, location: redact(dsn), logger: log}
	if err := s.migrate(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Info("Database connection established", zap.String("location", s.location))
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	db := s.with(ctx)
	if err := db.AutoMigrate(
		&schemaVersion{},
		&promptRecord{},
		&categoryRecord{},
		&groupRecord{},
		&managementPromptRecord{},
		&resultRecord{},
	); err != nil {
		return err
	}
	return db.Where(schemaVersion{Version: schemaRevision}).
		Attrs(schemaVersion{AppliedAt: models.Now()}).
		FirstOrCreate(&schemaVersion{}).Error
}

// redact hides the password of a URL-style DSN
func redact(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" {
		return "postgres"
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}

// with returns a session bound to ctx
func (s *Store) with(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return apperr.Storage(err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return apperr.Storage(err)
	}
	var n int64
	if err := s.with(ctx).Model(&schemaVersion{}).Count(&n).Error; err != nil {
		return apperr.Storage(err)
	}
	return nil
}

func (s *Store) Location() string {
	return s.location
}

// transaction runs fn on a transaction-bound copy of the store
func (s *Store) transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.with(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, location: s.location, logger: s.logger})
	})
}

// classify turns driver errors into application errors
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("record not found")
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return apperr.Storage(fmt.Errorf("duplicate record: %s: %w", pqErr.Detail, err))
		case "23503":
			return apperr.NotFound("referenced record does not exist")
		}
	}
	return apperr.Storage(err)
}

// first loads one record matching uuid, or nil
func first[R any](db *gorm.DB, uuid string) (*R, error) {
	var rec R
	res := db.Where("uuid = ?", uuid).Limit(1).Find(&rec)
	if res.Error != nil {
		return nil, classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &rec, nil
}

// updateOne applies fields to the row with uuid; notFound is reported when
// nothing matched.
func updateOne(db *gorm.DB, model any, uuid string, fields map[string]any, notFound string) error {
	fields["updated_at"] = models.Now()
	res := db.Model(model).Where("uuid = ?", uuid).Updates(fields)
	if res.Error != nil {
		return classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("%s", notFound)
	}
	return nil
}

func deleteOne(db *gorm.DB, model any, uuid, notFound string) error {
	res := db.Where("uuid = ?", uuid).Delete(model)
	if res.Error != nil {
		return classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("%s", notFound)
	}
	return nil
}

// nextOrder returns max(display_order)+1 among the children of parent, or 0
func nextOrder(db *gorm.DB, model any, parentCol, parent string) (int, error) {
	var agg struct {
		Count   int64
		Highest int
	}
	err := db.Model(model).
		Select("COUNT(*) AS count, COALESCE(MAX(display_order), 0) AS highest").
		Where(parentCol+" = ?", parent).
		Scan(&agg).Error
	if err != nil {
		return 0, classify(err)
	}
	return store.NextDisplayOrder(agg.Highest, agg.Count > 0), nil
}

func (s *Store) reorder(ctx context.Context, model any, items []models.ReorderItem) error {
	err := s.transaction(ctx, func(tx *Store) error {
		for _, item := range items {
			if err := tx.db.Model(model).Where("uuid = ?", item.UUID).
				UpdateColumn("display_order", item.DisplayOrder).Error; err != nil {
				return classify(err)
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Error reordering", zap.Error(err))
		return err
	}
	s.logger.Info("Reordered", zap.Int("count", len(items)))
	return nil
}
