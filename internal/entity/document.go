package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/policy-intake/constants"
)

// Document is an uploaded policy PDF and the state of its processing.
type Document struct {
	ID                  uuid.UUID                `json:"id"`
	SessionID           uuid.UUID                `json:"session_id"`
	Filename            string                   `json:"filename"`
	SHA256              string                   `json:"sha256"`
	Size                int64                    `json:"size"`
	Pages               int                      `json:"pages"`
	Status              constants.DocumentStatus `json:"status"`
	ErrorMessage        string                   `json:"error_message,omitempty"`
	CompletenessPercent float64                  `json:"completeness_percent"`
	UploadedAt          time.Time                `json:"uploaded_at"`
	ProcessedAt         *time.Time               `json:"processed_at,omitempty"`
}
