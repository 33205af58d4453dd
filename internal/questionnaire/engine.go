package questionnaire

import (
	"context"
	"errors"
	"math"
	"sort"

	"github.com/amoura-app/amoura-backend/internal/identity"
)

var (
	ErrNoCompletedQuestionnaire = errors.New("user has no completed questionnaire")
)

// Directory is the slice of the user directory the engine needs: candidate
// liveness and public metadata. Passed in explicitly, never reached through
// ambient state.
type Directory interface {
	IsActive(ctx context.Context, userID int64) (bool, error)
	GetUser(ctx context.Context, userID int64) (*identity.UserInfo, error)
}

type Engine interface {
	CalculateCompatibility(mine, theirs *CompatibilityProfile) int
	FindCandidates(ctx context.Context, userID int64, minCompatibility, limit int) ([]*CandidateMatch, error)
}

type engine struct {
	repo      Repository
	directory Directory
	sampling  int // sample multiplier over limit
}

func NewEngine(repo Repository, directory Directory, sampling int) Engine {
	if sampling < 1 {
		sampling = 2
	}
	return &engine{
		repo:      repo,
		directory: directory,
		sampling:  sampling,
	}
}

// CalculateCompatibility scores two profiles against each other on a 0-100
// scale. Each category is compared positionally and averaged; categories
// where either side has no entries contribute nothing and drop out of the
// weight denominator. Returns 0 when the users share no non-empty category.
func (e *engine) CalculateCompatibility(mine, theirs *CompatibilityProfile) int {
	var weightedSum, weightTotal float64

	for _, c := range Categories() {
		a := mine.Vector(c)
		b := theirs.Vector(c)
		if len(a) == 0 || len(b) == 0 {
			continue
		}

		weightedSum += categoryScore(a, b) * CategoryWeights[c]
		weightTotal += CategoryWeights[c]
	}

	if weightTotal == 0 {
		return 0
	}

	return int(math.Round(weightedSum / weightTotal))
}

// categoryScore is the mean positional similarity over the overlapping
// prefix of the two vectors. Comparison is by index, not by question id:
// both sides must emit answers in the same per-category order or the
// comparison is meaningless. Trailing entries of the longer vector are
// ignored.
func categoryScore(a, b Vector) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var sum float64
	for i := 0; i < n; i++ {
		sum += 100 - math.Abs(a[i]-b[i])
	}

	return sum / float64(n)
}

// FindCandidates ranks a sampled pool of complete questionnaire responses
// by compatibility with the requesting user.
func (e *engine) FindCandidates(ctx context.Context, userID int64, minCompatibility, limit int) ([]*CandidateMatch, error) {
	// Precondition: cannot rank candidates against an empty profile.
	// Checked before any scan.
	mine, err := e.repo.GetByUserID(ctx, userID)
	if errors.Is(err, ErrResponseNotFound) {
		return nil, ErrNoCompletedQuestionnaire
	}
	if err != nil {
		return nil, err
	}
	if !mine.IsComplete {
		return nil, ErrNoCompletedQuestionnaire
	}

	// Sampling a superset instead of scanning the whole store is a
	// performance shortcut; the pool is filtered and re-ranked below.
	sampled, err := e.repo.SampleComplete(ctx, userID, e.sampling*limit)
	if err != nil {
		return nil, err
	}

	matches := make([]*CandidateMatch, 0, len(sampled))
	for _, candidate := range sampled {
		active, err := e.directory.IsActive(ctx, candidate.UserID)
		if err != nil {
			return nil, err
		}
		if !active {
			continue
		}

		score := e.CalculateCompatibility(&mine.Profile, &candidate.Profile)
		RecordCompatibilityScore(score)
		if score < minCompatibility {
			continue
		}

		user, err := e.directory.GetUser(ctx, candidate.UserID)
		if err != nil {
			return nil, err
		}

		matches = append(matches, &CandidateMatch{
			User:               user,
			CompatibilityScore: score,
			Questionnaire:      candidate.Questionnaire,
			CompletedAt:        candidate.CompletedAt,
			Response:           candidate,
		})
	}

	// Descending by score; ties go to the more recently completed
	// questionnaire, then user id so ordering is always deterministic.
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].CompatibilityScore != matches[j].CompatibilityScore {
			return matches[i].CompatibilityScore > matches[j].CompatibilityScore
		}
		ti, tj := matches[i].CompletedAt, matches[j].CompletedAt
		if ti != nil && tj != nil && !ti.Equal(*tj) {
			return ti.After(*tj)
		}
		return matches[i].User.ID < matches[j].User.ID
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}

	return matches, nil
}
