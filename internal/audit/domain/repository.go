package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// ListFilter narrows an audit log listing. Zero-value fields are ignored.
type ListFilter struct {
	Action     string
	ActorType  string
	TargetType string
	Before     *time.Time
	Limit      int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*AuditLog, error)
}
