package postgres

import (
	"context"

	"github.com/mafuth/drive-to-iftar/internal/domain"
	"github.com/mafuth/drive-to-iftar/internal/repository"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewConnection(databaseURL string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	// Auto-migrate tables
	err = db.AutoMigrate(
		&domain.User{},
		&domain.Session{},
		&domain.Participant{},
		&domain.Race{},
	)
	if err != nil {
		return nil, err
	}

	return db, nil
}

func NewRepositories(db *gorm.DB) *repository.Repositories {
	return &repository.Repositories{
		User:        NewUserRepository(db),
		Session:     NewSessionRepository(db),
		Participant: NewParticipantRepository(db),
		Race:        NewRaceRepository(db),
		Tx:          NewTxManager(db),
	}
}

type txManager struct {
	db *gorm.DB
}

func NewTxManager(db *gorm.DB) *txManager {
	return &txManager{db: db}
}

// WithTx binds a fresh Repositories to one gorm transaction. Row locks taken
// through the ForUpdate getters hold until commit or rollback.
func (m *txManager) WithTx(ctx context.Context, fn func(r *repository.Repositories) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&repository.Repositories{
			User:        NewUserRepository(tx),
			Session:     NewSessionRepository(tx),
			Participant: NewParticipantRepository(tx),
			Race:        NewRaceRepository(tx),
			Tx:          NewTxManager(tx),
		})
	})
}
