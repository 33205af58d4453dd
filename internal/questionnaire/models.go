package questionnaire

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/amoura-app/amoura-backend/internal/identity"
)

var (
	ErrScoreOutOfRange = errors.New("category score out of range")
	ErrUnknownCategory = errors.New("unknown question category")
)

// Category identifies one of the five fixed life-compatibility dimensions.
type Category string

const (
	CategoryValues        Category = "values"
	CategoryLifestyle     Category = "lifestyle"
	CategoryInterests     Category = "interests"
	CategoryPersonality   Category = "personality"
	CategoryCommunication Category = "communication"
)

// Categories returns all categories in their canonical order.
func Categories() []Category {
	return []Category{
		CategoryValues,
		CategoryLifestyle,
		CategoryInterests,
		CategoryPersonality,
		CategoryCommunication,
	}
}

// CategoryWeights are the fixed pairwise-scoring weights. They sum to 1.0;
// categories without data on either side are excluded from the denominator
// rather than renormalized.
var CategoryWeights = map[Category]float64{
	CategoryValues:        0.30,
	CategoryLifestyle:     0.20,
	CategoryInterests:     0.20,
	CategoryPersonality:   0.20,
	CategoryCommunication: 0.10,
}

// QuestionnaireType selects the expected question count.
type QuestionnaireType string

const (
	TypeBasic    QuestionnaireType = "basic"
	TypeDetailed QuestionnaireType = "detailed"
	TypePremium  QuestionnaireType = "premium"
)

// ExpectedQuestionTotal returns the question count a questionnaire type is
// expected to cover. Unknown types fall back to basic.
func ExpectedQuestionTotal(t QuestionnaireType) int {
	switch t {
	case TypeDetailed:
		return 50
	case TypePremium:
		return 75
	default:
		return 25
	}
}

// CompleteThreshold is the completion percentage at which a response counts
// as complete and becomes eligible for match ranking.
const CompleteThreshold = 80.0

// Vector is an ordered list of per-question scores for one category.
// Order is significant: pairwise comparison is positional, so it must be
// preserved exactly as the questionnaire UI emitted it.
type Vector []float64

// Value implements driver.Valuer for JSONB storage.
func (v Vector) Value() (driver.Value, error) {
	if v == nil {
		return json.Marshal([]float64{})
	}
	return json.Marshal(v)
}

// Scan implements sql.Scanner for JSONB storage.
func (v *Vector) Scan(src interface{}) error {
	switch data := src.(type) {
	case []byte:
		return json.Unmarshal(data, v)
	case string:
		return json.Unmarshal([]byte(data), v)
	case nil:
		*v = nil
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Vector", src)
	}
}

// ResponseMap holds raw question-id to answer pairs. Answers are free-form
// and never feed scoring; the typed vectors do.
type ResponseMap map[string]interface{}

// Value implements driver.Valuer for JSONB storage.
func (m ResponseMap) Value() (driver.Value, error) {
	if m == nil {
		return json.Marshal(map[string]interface{}{})
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for JSONB storage.
func (m *ResponseMap) Scan(src interface{}) error {
	switch data := src.(type) {
	case []byte:
		return json.Unmarshal(data, m)
	case string:
		return json.Unmarshal([]byte(data), m)
	case nil:
		*m = nil
		return nil
	default:
		return fmt.Errorf("cannot scan %T into ResponseMap", src)
	}
}

// Clone returns a shallow copy so callers can mutate independently.
func (m ResponseMap) Clone() ResponseMap {
	out := make(ResponseMap, len(m))
	for id, answer := range m {
		out[id] = answer
	}
	return out
}

// CompatibilityProfile holds one user's category vectors plus the derived
// overall score.
type CompatibilityProfile struct {
	Values        Vector `json:"values"`
	Lifestyle     Vector `json:"lifestyle"`
	Interests     Vector `json:"interests"`
	Personality   Vector `json:"personality"`
	Communication Vector `json:"communication"`

	// OverallScore is the rounded mean of every element across all five
	// vectors; 0 when all vectors are empty. Derived, never set by callers.
	OverallScore int `json:"overallCompatibilityScore"`
}

// Vector returns the named category vector.
func (p *CompatibilityProfile) Vector(c Category) Vector {
	switch c {
	case CategoryValues:
		return p.Values
	case CategoryLifestyle:
		return p.Lifestyle
	case CategoryInterests:
		return p.Interests
	case CategoryPersonality:
		return p.Personality
	case CategoryCommunication:
		return p.Communication
	default:
		return nil
	}
}

// SetVector replaces the named category vector.
func (p *CompatibilityProfile) SetVector(c Category, v Vector) error {
	switch c {
	case CategoryValues:
		p.Values = v
	case CategoryLifestyle:
		p.Lifestyle = v
	case CategoryInterests:
		p.Interests = v
	case CategoryPersonality:
		p.Personality = v
	case CategoryCommunication:
		p.Communication = v
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCategory, c)
	}
	return nil
}

// Validate rejects any element outside [0,100]. Violations fail the whole
// write; elements are never clamped.
func (p *CompatibilityProfile) Validate() error {
	for _, c := range Categories() {
		for i, score := range p.Vector(c) {
			if score < 0 || score > 100 {
				return fmt.Errorf("%w: %s[%d] = %v", ErrScoreOutOfRange, c, i, score)
			}
		}
	}
	return nil
}

// IsEmpty reports whether every category vector is empty.
func (p *CompatibilityProfile) IsEmpty() bool {
	for _, c := range Categories() {
		if len(p.Vector(c)) > 0 {
			return false
		}
	}
	return true
}

// RecomputeOverallScore recalculates the derived overall score from the
// current vectors. Runs synchronously as part of every profile write so the
// score can never go stale relative to the vectors backing it.
func (p *CompatibilityProfile) RecomputeOverallScore() {
	var sum float64
	var count int

	for _, c := range Categories() {
		for _, score := range p.Vector(c) {
			sum += score
			count++
		}
	}

	if count == 0 {
		p.OverallScore = 0
		return
	}

	p.OverallScore = int(math.Round(sum / float64(count)))
}

// Questionnaire describes which questionnaire a response answers.
type Questionnaire struct {
	Version  string            `json:"version"`
	Type     QuestionnaireType `json:"type"`
	Language string            `json:"language"`
}

// QuestionnaireResponse is the envelope around a compatibility profile.
// At most one exists per user; partial submissions merge into it.
type QuestionnaireResponse struct {
	ID            int64                `json:"id"`
	UserID        int64                `json:"userId"`
	Responses     ResponseMap          `json:"responses"`
	Profile       CompatibilityProfile `json:"compatibilityProfile"`
	Questionnaire Questionnaire        `json:"questionnaire"`

	// CompletionTime is self-reported, in minutes.
	CompletionTime float64 `json:"completionTime"`

	// Derived fields, recomputed on every mutation.
	CompletionPercentage float64    `json:"completionPercentage"`
	IsComplete           bool       `json:"isComplete"`
	CompletedAt          *time.Time `json:"completedAt,omitempty"`

	// Version backs the optimistic compare-and-swap on updates.
	Version   int       `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// MergeResponses merges incoming raw answers into the existing map.
// Existing answers are overwritten per question id, never dropped.
func (r *QuestionnaireResponse) MergeResponses(incoming ResponseMap) {
	if r.Responses == nil {
		r.Responses = make(ResponseMap, len(incoming))
	}
	for id, answer := range incoming {
		r.Responses[id] = answer
	}
}

// RecomputeCompleteness recalculates the derived completion fields. Runs
// synchronously on every mutation of Responses or Questionnaire.Type.
func (r *QuestionnaireResponse) RecomputeCompleteness(now time.Time) {
	expected := ExpectedQuestionTotal(r.Questionnaire.Type)

	pct := 100 * float64(len(r.Responses)) / float64(expected)
	if pct > 100 {
		pct = 100
	}
	r.CompletionPercentage = pct

	wasComplete := r.IsComplete
	r.IsComplete = pct >= CompleteThreshold

	if r.IsComplete && !wasComplete {
		t := now
		r.CompletedAt = &t
	}
	if !r.IsComplete {
		r.CompletedAt = nil
	}
}

// CandidateMatch pairs a candidate with their score against the requesting
// user. Computed per ranking query, never persisted.
type CandidateMatch struct {
	User               *identity.UserInfo     `json:"user"`
	CompatibilityScore int                    `json:"compatibilityScore"`
	Questionnaire      Questionnaire          `json:"questionnaire"`
	CompletedAt        *time.Time             `json:"completedAt,omitempty"`
	Response           *QuestionnaireResponse `json:"-"`
}
