package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/mafuth/drive-to-iftar/internal/domain"
	"gorm.io/gorm"
)

type participantRepository struct {
	db *gorm.DB
}

func NewParticipantRepository(db *gorm.DB) *participantRepository {
	return &participantRepository{db: db}
}

func (r *participantRepository) Create(ctx context.Context, participant *domain.Participant) error {
	return r.db.WithContext(ctx).Create(participant).Error
}

func (r *participantRepository) Update(ctx context.Context, participant *domain.Participant) error {
	return r.db.WithContext(ctx).Save(participant).Error
}

func (r *participantRepository) GetBySessionAndUser(ctx context.Context, sessionID, userID uuid.UUID) (*domain.Participant, error) {
	var participant domain.Participant
	err := r.db.WithContext(ctx).
		First(&participant, "session_id = ? AND user_id = ?", sessionID, userID).Error
	if err != nil {
		return nil, err
	}
	return &participant, nil
}

func (r *participantRepository) GetBySessionID(ctx context.Context, sessionID uuid.UUID) ([]*domain.Participant, error) {
	var participants []*domain.Participant
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&participants).Error
	if err != nil {
		return nil, err
	}
	return participants, nil
}

func (r *participantRepository) CountBySessionID(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Participant{}).
		Where("session_id = ?", sessionID).
		Count(&count).Error
	return count, err
}

func (r *participantRepository) GetByRaceAndUser(ctx context.Context, raceID, userID uuid.UUID) (*domain.Participant, error) {
	var participant domain.Participant
	err := r.db.WithContext(ctx).
		First(&participant, "race_id = ? AND user_id = ?", raceID, userID).Error
	if err != nil {
		return nil, err
	}
	return &participant, nil
}
