package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/policy-intake/constants"
)

// Submission records one hand-off of a policy to Velneo.
type Submission struct {
	ID              uuid.UUID                  `json:"id"`
	SessionID       uuid.UUID                  `json:"session_id"`
	PolicyNumber    string                     `json:"policy_number"`
	ClientID        string                     `json:"client_id"`
	CompanyID       string                     `json:"company_id"`
	Operation       string                     `json:"operation"`
	ProcessedWithAI bool                       `json:"processed_with_ai"`
	Status          constants.SubmissionStatus `json:"status"`
	VelneoID        string                     `json:"velneo_id,omitempty"`
	ErrorMessage    string                     `json:"error_message,omitempty"`
	Payload         []byte                     `json:"payload"`
	CreatedAt       time.Time                  `json:"created_at"`
}
