package service

import (
	"github.com/jonboulle/clockwork"
	"github.com/mafuth/drive-to-iftar/internal/config"
	"github.com/mafuth/drive-to-iftar/internal/repository"
)

// Broadcaster is the realtime fan-out consumed by the session service. The
// websocket hub satisfies it; publishing never blocks a state mutation.
type Broadcaster interface {
	Publish(sessionID string, payload any)
}

type Services struct {
	Auth      *AuthService
	Session   *SessionService
	Challenge *ChallengeService
}

func NewServices(repos *repository.Repositories, broadcaster Broadcaster, clock clockwork.Clock, cfg *config.Config) *Services {
	return &Services{
		Auth:      NewAuthService(repos.User, cfg),
		Session:   NewSessionService(repos, broadcaster, cfg),
		Challenge: NewChallengeService(repos, clock, cfg),
	}
}
