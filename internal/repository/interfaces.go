package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/mafuth/drive-to-iftar/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error

	// Challenge reconciliation queries.
	GetWithPositiveScore(ctx context.Context) ([]*domain.User, error)
	GetByLastChallengeDate(ctx context.Context, day string) ([]*domain.User, error)
	ResetAllDailyCollections(ctx context.Context) error
	DailyLeaderboard(ctx context.Context, day string, limit int) ([]*domain.User, error)
	TopByScore(ctx context.Context, limit int) ([]*domain.User, error)
	CountNonGuestWithScoreAbove(ctx context.Context, score int) (int64, error)
}

type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error)
	// GetByIDForUpdate takes a row lock so capacity checks and status
	// transitions serialize against concurrent joins. Only meaningful
	// inside a transaction.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Session, error)
	Update(ctx context.Context, session *domain.Session) error
}

type ParticipantRepository interface {
	Create(ctx context.Context, participant *domain.Participant) error
	Update(ctx context.Context, participant *domain.Participant) error
	GetBySessionAndUser(ctx context.Context, sessionID, userID uuid.UUID) (*domain.Participant, error)
	GetBySessionID(ctx context.Context, sessionID uuid.UUID) ([]*domain.Participant, error)
	CountBySessionID(ctx context.Context, sessionID uuid.UUID) (int64, error)
	GetByRaceAndUser(ctx context.Context, raceID, userID uuid.UUID) (*domain.Participant, error)
}

type RaceRepository interface {
	Create(ctx context.Context, race *domain.Race) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Race, error)
	Update(ctx context.Context, race *domain.Race) error
}

// TxManager runs fn with a Repositories bound to a single database
// transaction; fn's error rolls back, nil commits.
type TxManager interface {
	WithTx(ctx context.Context, fn func(r *Repositories) error) error
}

type Repositories struct {
	User        UserRepository
	Session     SessionRepository
	Participant ParticipantRepository
	Race        RaceRepository
	Tx          TxManager
}
