package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	OAuthID      *string   `json:"-" gorm:"uniqueIndex"`
	Email        *string   `json:"email" gorm:"uniqueIndex"`
	Username     *string   `json:"username" gorm:"index"`
	PasswordHash *string   `json:"-"`
	ProfilePhoto *string   `json:"profilePhoto"`
	Score        int       `json:"score" gorm:"not null;default:0"`
	IsGuest      bool      `json:"isGuest" gorm:"not null;default:false"`

	// Daily challenge ledger. Mutated only by the challenge service;
	// DatesCollectedToday is meaningful only for LastChallengeDate.
	DatesCollectedToday int     `json:"datesCollectedToday" gorm:"not null;default:0"`
	LastChallengeDate   *string `json:"lastChallengeDate" gorm:"index"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DisplayTag renders the public "name#id" handle used across lobby rosters
// and leaderboards.
func (u *User) DisplayTag() string {
	if u.Username != nil && *u.Username != "" {
		return fmt.Sprintf("%s#%s", *u.Username, shortID(u.ID))
	}
	return fmt.Sprintf("User#%s", shortID(u.ID))
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}
