package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type RaceStatus string

const (
	RaceStatusActive   RaceStatus = "active"
	RaceStatusFinished RaceStatus = "finished"
)

// Race is a materialized snapshot of one generation of a session (or a
// single-player run): the serialized world config including seed and lane
// count. Prior generations are kept as history.
type Race struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name      string         `json:"name" gorm:"index"`
	Config    datatypes.JSON `json:"config"`
	Status    RaceStatus     `json:"status" gorm:"not null;default:'active'"`
	CreatedAt time.Time      `json:"createdAt"`
}
