package swipe

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/amoura-app/amoura-backend/internal/questionnaire"
)

var (
	ErrOutOfProfiles  = errors.New("no more profiles in this batch")
	ErrOutOfAllowance = errors.New("no super likes remaining")
	ErrUnknownAction  = errors.New("unknown swipe action")
	ErrStaleCandidate = errors.New("swipe targets a candidate the session has moved past")
)

// State is the session's position in the swipe loop.
type State string

const (
	// StateBrowsing means the session is pointed at a candidate.
	StateBrowsing State = "browsing"
	// StateOutOfProfiles means the batch is exhausted. Only loading a new
	// batch leaves this state.
	StateOutOfProfiles State = "out_of_profiles"
	// StateOutOfAllowance means the last super like was refused. Passing
	// and liking still work; granting allowance clears it.
	StateOutOfAllowance State = "out_of_allowance"
)

// Action is one swipe gesture.
type Action string

const (
	ActionPass      Action = "pass"
	ActionLike      Action = "like"
	ActionSuperLike Action = "super_like"
)

// MatchPolicy decides whether a like or super like becomes a mutual match.
// Injected so tests can force deterministic outcomes.
type MatchPolicy interface {
	Decide(action Action, candidate *questionnaire.CandidateMatch) bool
}

// RandomPolicy matches with a fixed chance per action.
type RandomPolicy struct {
	LikeChance      float64
	SuperLikeChance float64

	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandomPolicy(likeChance, superLikeChance float64) *RandomPolicy {
	return &RandomPolicy{
		LikeChance:      likeChance,
		SuperLikeChance: superLikeChance,
		rng:             rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (p *RandomPolicy) Decide(action Action, _ *questionnaire.CandidateMatch) bool {
	p.mu.Lock()
	roll := p.rng.Float64()
	p.mu.Unlock()

	switch action {
	case ActionSuperLike:
		return roll < p.SuperLikeChance
	case ActionLike:
		return roll < p.LikeChance
	default:
		return false
	}
}

// Session walks one user through an ordered candidate batch.
// Holds 0 <= index <= len(candidates) and superLikesRemaining >= 0 at all
// times; index == len(candidates) is the out-of-profiles position.
type Session struct {
	mu sync.Mutex

	userID              int64
	candidates          []*questionnaire.CandidateMatch
	index               int
	superLikesRemaining int
	state               State
	policy              MatchPolicy
}

// Result reports the outcome of one swipe.
type Result struct {
	Action              Action                        `json:"action"`
	Candidate           *questionnaire.CandidateMatch `json:"candidate"`
	Matched             bool                          `json:"matched"`
	State               State                         `json:"state"`
	Index               int                           `json:"index"`
	Remaining           int                           `json:"remaining"`
	SuperLikesRemaining int                           `json:"superLikesRemaining"`
}

// Snapshot is the session state as reported to the client.
type Snapshot struct {
	UserID              int64                         `json:"userId"`
	State               State                         `json:"state"`
	Index               int                           `json:"index"`
	BatchSize           int                           `json:"batchSize"`
	Current             *questionnaire.CandidateMatch `json:"current,omitempty"`
	SuperLikesRemaining int                           `json:"superLikesRemaining"`
}

func NewSession(userID int64, candidates []*questionnaire.CandidateMatch, superLikes int, policy MatchPolicy) *Session {
	s := &Session{
		userID:              userID,
		superLikesRemaining: superLikes,
		policy:              policy,
	}
	s.resetBatch(candidates)
	return s
}

func (s *Session) resetBatch(candidates []*questionnaire.CandidateMatch) {
	s.candidates = candidates
	s.index = 0
	if len(candidates) == 0 {
		s.state = StateOutOfProfiles
	} else {
		s.state = StateBrowsing
	}
}

// LoadBatch replaces the candidate list and restarts browsing from the top.
// This is the only way out of StateOutOfProfiles.
func (s *Session) LoadBatch(candidates []*questionnaire.CandidateMatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetBatch(candidates)
}

// GrantSuperLikes adds allowance and clears StateOutOfAllowance.
func (s *Session) GrantSuperLikes(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 {
		return
	}
	s.superLikesRemaining += n
	if s.state == StateOutOfAllowance {
		s.state = StateBrowsing
	}
}

// Swipe applies one gesture to the current candidate and advances.
// candidateID guards against a client acting on an out-of-date card;
// zero skips the check.
func (s *Session) Swipe(action Action, candidateID int64) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateOutOfProfiles || s.index >= len(s.candidates) {
		return nil, ErrOutOfProfiles
	}

	candidate := s.candidates[s.index]
	if candidateID != 0 && (candidate.User == nil || candidate.User.ID != candidateID) {
		return nil, ErrStaleCandidate
	}
	var matched bool

	switch action {
	case ActionPass:
	case ActionLike:
		matched = s.policy.Decide(action, candidate)
	case ActionSuperLike:
		if s.superLikesRemaining <= 0 {
			s.state = StateOutOfAllowance
			return nil, ErrOutOfAllowance
		}
		matched = s.policy.Decide(action, candidate)
		s.superLikesRemaining--
	default:
		return nil, ErrUnknownAction
	}

	// Acting on a candidate means the allowance refusal no longer blocks.
	if s.state == StateOutOfAllowance {
		s.state = StateBrowsing
	}

	s.index++
	if s.index >= len(s.candidates) {
		s.state = StateOutOfProfiles
	}

	return &Result{
		Action:              action,
		Candidate:           candidate,
		Matched:             matched,
		State:               s.state,
		Index:               s.index,
		Remaining:           len(s.candidates) - s.index,
		SuperLikesRemaining: s.superLikesRemaining,
	}, nil
}

// Snapshot returns the current session state.
func (s *Session) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := &Snapshot{
		UserID:              s.userID,
		State:               s.state,
		Index:               s.index,
		BatchSize:           len(s.candidates),
		SuperLikesRemaining: s.superLikesRemaining,
	}
	if s.index < len(s.candidates) {
		snap.Current = s.candidates[s.index]
	}
	return snap
}
