package swipe

import (
	"context"
	"sync"

	"github.com/amoura-app/amoura-backend/internal/questionnaire"
)

// MatchesProvider supplies ranked candidate batches. Implemented by the
// questionnaire service.
type MatchesProvider interface {
	Matches(ctx context.Context, userID int64, minCompatibility, limit int) ([]*questionnaire.CandidateMatch, error)
}

// Notifier pushes match events to connected clients. Implemented by the Hub.
type Notifier interface {
	NotifyMatch(userID, candidateID int64, candidate *questionnaire.CandidateMatch)
}

// Config carries the per-session defaults.
type Config struct {
	MinCompatibility   int
	BatchLimit         int
	SuperLikeAllowance int
}

// Service owns the per-user swipe sessions.
type Service struct {
	mu       sync.Mutex
	sessions map[int64]*Session

	provider MatchesProvider
	notifier Notifier
	policy   MatchPolicy
	config   Config
}

func NewService(provider MatchesProvider, notifier Notifier, policy MatchPolicy, config Config) *Service {
	return &Service{
		sessions: make(map[int64]*Session),
		provider: provider,
		notifier: notifier,
		policy:   policy,
		config:   config,
	}
}

// session returns the user's session, creating and loading it on first use.
func (s *Service) session(ctx context.Context, userID int64) (*Session, error) {
	s.mu.Lock()
	sess, ok := s.sessions[userID]
	s.mu.Unlock()
	if ok {
		return sess, nil
	}

	candidates, err := s.provider.Matches(ctx, userID, s.config.MinCompatibility, s.config.BatchLimit)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Another request may have created the session while we were loading.
	if sess, ok = s.sessions[userID]; ok {
		return sess, nil
	}
	sess = NewSession(userID, candidates, s.config.SuperLikeAllowance, s.policy)
	s.sessions[userID] = sess
	return sess, nil
}

// Swipe applies one gesture for the user and fans out match notifications.
func (s *Service) Swipe(ctx context.Context, userID int64, action Action, candidateID int64) (*Result, error) {
	sess, err := s.session(ctx, userID)
	if err != nil {
		return nil, err
	}

	result, err := sess.Swipe(action, candidateID)
	if err != nil {
		return nil, err
	}

	if result.Matched && s.notifier != nil && result.Candidate.User != nil {
		s.notifier.NotifyMatch(userID, result.Candidate.User.ID, result.Candidate)
	}
	return result, nil
}

// Session returns the user's current session snapshot.
func (s *Service) Session(ctx context.Context, userID int64) (*Snapshot, error) {
	sess, err := s.session(ctx, userID)
	if err != nil {
		return nil, err
	}
	return sess.Snapshot(), nil
}

// Refresh fetches a new candidate batch and restarts browsing.
func (s *Service) Refresh(ctx context.Context, userID int64) (*Snapshot, error) {
	candidates, err := s.provider.Matches(ctx, userID, s.config.MinCompatibility, s.config.BatchLimit)
	if err != nil {
		return nil, err
	}

	sess, err := s.session(ctx, userID)
	if err != nil {
		return nil, err
	}
	sess.LoadBatch(candidates)
	return sess.Snapshot(), nil
}

// GrantSuperLikes raises the user's allowance, e.g. after an entitlement
// upgrade.
func (s *Service) GrantSuperLikes(ctx context.Context, userID int64, n int) (*Snapshot, error) {
	sess, err := s.session(ctx, userID)
	if err != nil {
		return nil, err
	}
	sess.GrantSuperLikes(n)
	return sess.Snapshot(), nil
}

// EndSession drops the user's session, e.g. on logout or account deletion.
func (s *Service) EndSession(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}
