package domain

import (
	"time"

	"github.com/google/uuid"
)

type SessionStatus string

const (
	SessionStatusWaiting SessionStatus = "waiting"
	SessionStatusStarted SessionStatus = "started"
	SessionStatusEnded   SessionStatus = "ended"
)

// Session is a multiplayer lobby. It is created in waiting, moves to started
// when the host launches a race and to ended once a score comes in for the
// active race. A retry re-enters started with a fresh seed and race.
type Session struct {
	ID         uuid.UUID     `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	HostID     uuid.UUID     `json:"hostId" gorm:"type:uuid;not null"`
	MaxPlayers int           `json:"maxPlayers" gorm:"not null;default:5"`
	GameSeed   string        `json:"gameSeed" gorm:"not null"`
	Status     SessionStatus `json:"status" gorm:"not null;default:'waiting'"`
	CreatedAt  time.Time     `json:"createdAt"`

	Host *User `json:"host,omitempty" gorm:"foreignKey:HostID"`
}

// Participant links a user to a session and, once a race generation starts,
// to that race. SessionID is nil for single-player runs.
type Participant struct {
	ID           uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID       uuid.UUID  `json:"userId" gorm:"type:uuid;not null;index"`
	SessionID    *uuid.UUID `json:"sessionId" gorm:"type:uuid;index"`
	RaceID       *uuid.UUID `json:"raceId" gorm:"type:uuid;index"`
	CarIndex     int        `json:"carIndex" gorm:"not null;default:0"`
	AssignedLane *int       `json:"assignedLane"`
	Score        int        `json:"score" gorm:"not null;default:0"`
	FinishedAt   *time.Time `json:"finishedAt"`
	CreatedAt    time.Time  `json:"createdAt"`

	User *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}
