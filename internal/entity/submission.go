package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/access-form-extractor/constants"
)

// Submission is one processed form, for data transfer between layers.
type Submission struct {
	ID               uuid.UUID                  `json:"id"`
	SourcePath       string                     `json:"source_path"`
	Filename         string                     `json:"filename"`
	ContentHash      string                     `json:"content_hash,omitempty"`
	Status           constants.SubmissionStatus `json:"status"`
	Method           string                     `json:"method,omitempty"`
	Pages            int                        `json:"pages"`
	Record           json.RawMessage            `json:"record,omitempty"`
	MissingFields    []string                   `json:"missing_fields"`
	InferredFields   []string                   `json:"inferred_fields"`
	ErrorMessage     *string                    `json:"error_message,omitempty"`
	ResolverAttempts int                        `json:"resolver_attempts"`
	DurationMS       int64                      `json:"duration_ms"`
	CreatedAt        time.Time                  `json:"created_at"`
}
