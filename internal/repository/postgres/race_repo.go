package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/mafuth/drive-to-iftar/internal/domain"
	"gorm.io/gorm"
)

type raceRepository struct {
	db *gorm.DB
}

func NewRaceRepository(db *gorm.DB) *raceRepository {
	return &raceRepository{db: db}
}

func (r *raceRepository) Create(ctx context.Context, race *domain.Race) error {
	return r.db.WithContext(ctx).Create(race).Error
}

func (r *raceRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Race, error) {
	var race domain.Race
	err := r.db.WithContext(ctx).First(&race, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &race, nil
}

func (r *raceRepository) Update(ctx context.Context, race *domain.Race) error {
	return r.db.WithContext(ctx).Save(race).Error
}
