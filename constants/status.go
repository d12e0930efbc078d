package constants

// SubmissionStatus is the canonical status for rows in submissions.
type SubmissionStatus string

// Stable values (store these exact strings in DB).
const (
	SubmissionStatusExtracted SubmissionStatus = "EXTRACTED" // rules only, nothing sent to the model
	SubmissionStatusInferred  SubmissionStatus = "INFERRED"  // at least one field filled by the model
	SubmissionStatusFailed    SubmissionStatus = "FAILED"    // terminal failure, no record
)
