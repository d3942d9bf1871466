package constants

// DocumentStatus is the processing status stored with an uploaded policy document.
type DocumentStatus string

// Stable values (store these exact strings in DB).
const (
	DocumentStatusUploaded  DocumentStatus = "UPLOADED"
	DocumentStatusRunning   DocumentStatus = "RUNNING"   // sent to the document-AI service
	DocumentStatusAIOK      DocumentStatus = "AI_OK"     // fields extracted
	DocumentStatusFailed    DocumentStatus = "FAILED"    // terminal failure
	DocumentStatusCancelled DocumentStatus = "CANCELLED" // caller gave up; nothing applied
)

// SubmissionStatus is the outcome of handing a record to Velneo.
type SubmissionStatus string

const (
	SubmissionStatusSent     SubmissionStatus = "SENT"
	SubmissionStatusRejected SubmissionStatus = "REJECTED"
)
