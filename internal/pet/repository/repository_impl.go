package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	petdomain "github.com/nooogy1/FantasyPetDiscord/internal/pet/domain"
)

type repositoryImpl struct{}

// Provide constructs the pet repository.
func Provide() petdomain.Repository {
	return &repositoryImpl{}
}

func (r *repositoryImpl) ListAll(ctx context.Context, db *gorm.DB) ([]petdomain.Pet, error) {
	var pets []petdomain.Pet
	err := db.WithContext(ctx).Raw(
		`SELECT code, name, species, breed, status, photo_url, brought_in_at,
		        first_seen_at, available_announced, adopted_announced,
		        created_at, updated_at
		 FROM pets
		 ORDER BY code`,
	).Scan(&pets).Error
	if err != nil {
		return nil, err
	}
	return pets, nil
}

func (r *repositoryImpl) FindByCode(ctx context.Context, db *gorm.DB, code string) (*petdomain.Pet, error) {
	var pet petdomain.Pet
	err := db.WithContext(ctx).Raw(
		`SELECT code, name, species, breed, status, photo_url, brought_in_at,
		        first_seen_at, available_announced, adopted_announced,
		        created_at, updated_at
		 FROM pets
		 WHERE code = ?`,
		code,
	).Scan(&pet).Error
	if err != nil {
		return nil, err
	}
	if pet.Code == "" {
		return nil, nil
	}
	return &pet, nil
}

func (r *repositoryImpl) MarkAnnounced(ctx context.Context, db *gorm.DB, code string, kind string) error {
	var column string
	switch kind {
	case petdomain.AnnouncedAvailable:
		column = "available_announced"
	case petdomain.AnnouncedAdopted:
		column = "adopted_announced"
	default:
		return errors.New("unknown_announcement_kind")
	}
	return db.WithContext(ctx).Exec(
		`UPDATE pets SET `+column+` = TRUE, updated_at = ? WHERE code = ?`,
		time.Now().UTC(),
		code,
	).Error
}
