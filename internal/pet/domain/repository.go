package domain

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var ErrPetNotFound = errors.New("pet_not_found")

// Repository reads and flags pet rows. Methods accept the handle to run
// on so callers can pass an open transaction.
type Repository interface {
	ListAll(ctx context.Context, db *gorm.DB) ([]Pet, error)
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*Pet, error)
	MarkAnnounced(ctx context.Context, db *gorm.DB, code string, kind string) error
}
