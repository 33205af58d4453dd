// internal/questionnaire/dto.go
package questionnaire

import (
	"time"

	"github.com/amoura-app/amoura-backend/internal/identity"
)

// DTOs for API requests/responses

// ProfilePayload carries category vectors on a submission. A nil slice
// leaves the stored vector untouched; a present slice replaces it.
type ProfilePayload struct {
	Values        []float64 `json:"values,omitempty" validate:"omitempty,dive,gte=0,lte=100"`
	Lifestyle     []float64 `json:"lifestyle,omitempty" validate:"omitempty,dive,gte=0,lte=100"`
	Interests     []float64 `json:"interests,omitempty" validate:"omitempty,dive,gte=0,lte=100"`
	Personality   []float64 `json:"personality,omitempty" validate:"omitempty,dive,gte=0,lte=100"`
	Communication []float64 `json:"communication,omitempty" validate:"omitempty,dive,gte=0,lte=100"`
}

// SubmitRequest is a full or partial questionnaire submission. Raw
// responses merge into any existing response record.
type SubmitRequest struct {
	Responses            ResponseMap     `json:"responses" validate:"required,min=1"`
	CompatibilityProfile *ProfilePayload `json:"compatibilityProfile,omitempty"`
	Questionnaire        *Questionnaire  `json:"questionnaire,omitempty"`
	CompletionTime       float64         `json:"completionTime" validate:"gte=0"`
}

// CompatibilityResult is the pairwise score between the requester and one
// other user.
type CompatibilityResult struct {
	CompatibilityScore int                `json:"compatibilityScore"`
	User               *identity.UserInfo `json:"user"`
	CalculatedAt       time.Time          `json:"calculatedAt"`
}

// MatchesResponse wraps a ranked candidate list.
type MatchesResponse struct {
	Matches []*CandidateMatch `json:"matches"`
}
