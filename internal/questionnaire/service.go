// internal/questionnaire/service.go
package questionnaire

import (
	"context"
	"errors"
	"time"

	"github.com/amoura-app/amoura-backend/internal/common/utils"
)

// Submit retries a few times on write races before giving up.
const submitMaxAttempts = 3

var ErrTooManyConflicts = errors.New("questionnaire update conflicted too many times, try again")

// Service exposes questionnaire submission, retrieval, pairwise
// compatibility and match discovery.
type Service interface {
	Submit(ctx context.Context, userID int64, req *SubmitRequest) (*QuestionnaireResponse, error)
	GetMine(ctx context.Context, userID int64) (*QuestionnaireResponse, error)
	Delete(ctx context.Context, userID int64) error
	CompatibilityWith(ctx context.Context, userID, otherID int64) (*CompatibilityResult, error)
	Matches(ctx context.Context, userID int64, minCompatibility, limit int) ([]*CandidateMatch, error)
}

type service struct {
	repo      Repository
	engine    Engine
	directory Directory
	cache     *ScoreCache
	now       func() time.Time
}

// NewService wires the questionnaire service. cache may be nil, in which
// case every compatibility lookup is computed fresh.
func NewService(repo Repository, engine Engine, directory Directory, cache *ScoreCache) Service {
	return &service{
		repo:      repo,
		engine:    engine,
		directory: directory,
		cache:     cache,
		now:       time.Now,
	}
}

func (s *service) Submit(ctx context.Context, userID int64, req *SubmitRequest) (*QuestionnaireResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < submitMaxAttempts; attempt++ {
		resp, err := s.submitOnce(ctx, userID, req)
		if err == nil {
			s.cache.InvalidateUser(ctx, userID)
			RecordSubmission(resp.Questionnaire.Type)
			return resp, nil
		}
		// Another writer got in between our read and write. Re-read and
		// merge again.
		if errors.Is(err, ErrVersionConflict) || errors.Is(err, ErrDuplicateResponse) {
			continue
		}
		return nil, err
	}
	return nil, ErrTooManyConflicts
}

func (s *service) submitOnce(ctx context.Context, userID int64, req *SubmitRequest) (*QuestionnaireResponse, error) {
	existing, err := s.repo.GetByUserID(ctx, userID)
	if err != nil && !errors.Is(err, ErrResponseNotFound) {
		return nil, err
	}

	var resp *QuestionnaireResponse
	if existing != nil {
		resp = existing
		resp.MergeResponses(req.Responses)
	} else {
		resp = &QuestionnaireResponse{
			UserID:    userID,
			Responses: req.Responses.Clone(),
		}
	}

	if req.Questionnaire != nil {
		resp.Questionnaire = *req.Questionnaire
	}
	if req.CompletionTime > 0 {
		resp.CompletionTime = req.CompletionTime
	}
	if req.CompatibilityProfile != nil {
		applyProfile(&resp.Profile, req.CompatibilityProfile)
	}

	if err := resp.Profile.Validate(); err != nil {
		return nil, err
	}
	resp.Profile.RecomputeOverallScore()
	resp.RecomputeCompleteness(s.now())

	if existing != nil {
		if err := s.repo.Update(ctx, resp); err != nil {
			return nil, err
		}
	} else {
		if err := s.repo.Create(ctx, resp); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// applyProfile replaces only the vectors the payload provides.
func applyProfile(p *CompatibilityProfile, in *ProfilePayload) {
	if in.Values != nil {
		p.Values = Vector(in.Values)
	}
	if in.Lifestyle != nil {
		p.Lifestyle = Vector(in.Lifestyle)
	}
	if in.Interests != nil {
		p.Interests = Vector(in.Interests)
	}
	if in.Personality != nil {
		p.Personality = Vector(in.Personality)
	}
	if in.Communication != nil {
		p.Communication = Vector(in.Communication)
	}
}

func (s *service) GetMine(ctx context.Context, userID int64) (*QuestionnaireResponse, error) {
	return s.repo.GetByUserID(ctx, userID)
}

func (s *service) Delete(ctx context.Context, userID int64) error {
	if err := s.repo.Delete(ctx, userID); err != nil {
		return err
	}
	s.cache.InvalidateUser(ctx, userID)
	return nil
}

func (s *service) CompatibilityWith(ctx context.Context, userID, otherID int64) (*CompatibilityResult, error) {
	mine, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	theirs, err := s.repo.GetByUserID(ctx, otherID)
	if err != nil {
		return nil, err
	}

	user, err := s.directory.GetUser(ctx, otherID)
	if err != nil {
		return nil, err
	}

	if score, calculatedAt, ok := s.cache.Get(ctx, userID, otherID); ok {
		return &CompatibilityResult{
			CompatibilityScore: score,
			User:               user,
			CalculatedAt:       calculatedAt,
		}, nil
	}

	score := s.engine.CalculateCompatibility(&mine.Profile, &theirs.Profile)
	RecordCompatibilityScore(score)
	calculatedAt := s.now()
	s.cache.Set(ctx, userID, otherID, score, calculatedAt)

	return &CompatibilityResult{
		CompatibilityScore: score,
		User:               user,
		CalculatedAt:       calculatedAt,
	}, nil
}

func (s *service) Matches(ctx context.Context, userID int64, minCompatibility, limit int) ([]*CandidateMatch, error) {
	RecordMatchQuery()
	return s.engine.FindCandidates(ctx, userID, minCompatibility, limit)
}
