package entity

import (
	"time"

	"github.com/google/uuid"
)

// Session is a persisted wizard snapshot.
type Session struct {
	ID          uuid.UUID `json:"id"`
	CurrentStep string    `json:"current_step"`
	Snapshot    []byte    `json:"snapshot"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
