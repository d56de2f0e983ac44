// Package repository provides a small generic gorm store for models
// whose access patterns are plain CRUD.
package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Option mutates the query before execution.
type Option func(*gorm.DB) *gorm.DB

// WithOrder appends an ORDER BY clause.
func WithOrder(order string) Option {
	return func(db *gorm.DB) *gorm.DB { return db.Order(order) }
}

// WithLimit caps the result set.
func WithLimit(limit int) Option {
	return func(db *gorm.DB) *gorm.DB { return db.Limit(limit) }
}

// Repository is a typed store over a single model.
type Repository[T any] interface {
	Create(ctx context.Context, record *T) error
	Upsert(ctx context.Context, record *T, conflictColumns []string, updateColumns []string) error
	Find(ctx context.Context, filter T, opts ...Option) ([]T, error)
	FindOne(ctx context.Context, filter T) (*T, error)
}

type store[T any] struct {
	db *gorm.DB
}

// ProvideStore constructs a Repository bound to the shared connection.
func ProvideStore[T any](db *gorm.DB) Repository[T] {
	return &store[T]{db: db}
}

func (s *store[T]) Create(ctx context.Context, record *T) error {
	return s.db.WithContext(ctx).Create(record).Error
}

func (s *store[T]) Upsert(ctx context.Context, record *T, conflictColumns []string, updateColumns []string) error {
	columns := make([]clause.Column, 0, len(conflictColumns))
	for _, name := range conflictColumns {
		columns = append(columns, clause.Column{Name: name})
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   columns,
		DoUpdates: clause.AssignmentColumns(updateColumns),
	}).Create(record).Error
}

func (s *store[T]) Find(ctx context.Context, filter T, opts ...Option) ([]T, error) {
	query := s.db.WithContext(ctx).Where(&filter)
	for _, opt := range opts {
		query = opt(query)
	}
	var records []T
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (s *store[T]) FindOne(ctx context.Context, filter T) (*T, error) {
	var records []T
	if err := s.db.WithContext(ctx).Where(&filter).Limit(1).Find(&records).Error; err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}
