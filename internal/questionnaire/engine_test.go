package questionnaire

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/amoura-app/amoura-backend/internal/identity"
)

// fakeRepository keeps responses in memory for engine and service tests.
type fakeRepository struct {
	responses map[int64]*QuestionnaireResponse
	sampled   []*QuestionnaireResponse

	createErr error
	updateErr error
	sampleErr error
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{responses: make(map[int64]*QuestionnaireResponse)}
}

func (f *fakeRepository) Create(_ context.Context, resp *QuestionnaireResponse) error {
	if f.createErr != nil {
		return f.createErr
	}
	if _, exists := f.responses[resp.UserID]; exists {
		return ErrDuplicateResponse
	}
	resp.ID = int64(len(f.responses) + 1)
	resp.Version = 1
	clone := *resp
	f.responses[resp.UserID] = &clone
	return nil
}

func (f *fakeRepository) Update(_ context.Context, resp *QuestionnaireResponse) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	existing, ok := f.responses[resp.UserID]
	if !ok || existing.Version != resp.Version {
		return ErrVersionConflict
	}
	resp.Version++
	clone := *resp
	f.responses[resp.UserID] = &clone
	return nil
}

func (f *fakeRepository) GetByUserID(_ context.Context, userID int64) (*QuestionnaireResponse, error) {
	resp, ok := f.responses[userID]
	if !ok {
		return nil, ErrResponseNotFound
	}
	clone := *resp
	return &clone, nil
}

func (f *fakeRepository) Delete(_ context.Context, userID int64) error {
	if _, ok := f.responses[userID]; !ok {
		return ErrResponseNotFound
	}
	delete(f.responses, userID)
	return nil
}

func (f *fakeRepository) SampleComplete(_ context.Context, excludeUserID int64, sampleSize int) ([]*QuestionnaireResponse, error) {
	if f.sampleErr != nil {
		return nil, f.sampleErr
	}
	out := make([]*QuestionnaireResponse, 0, len(f.sampled))
	for _, resp := range f.sampled {
		if resp.UserID == excludeUserID || !resp.IsComplete {
			continue
		}
		out = append(out, resp)
		if len(out) == sampleSize {
			break
		}
	}
	return out, nil
}

func (f *fakeRepository) CountComplete(_ context.Context) (int64, error) {
	var n int64
	for _, resp := range f.responses {
		if resp.IsComplete {
			n++
		}
	}
	return n, nil
}

// fakeDirectory treats every user as active unless listed.
type fakeDirectory struct {
	inactive map[int64]bool
}

func (f *fakeDirectory) IsActive(_ context.Context, userID int64) (bool, error) {
	return !f.inactive[userID], nil
}

func (f *fakeDirectory) GetUser(_ context.Context, userID int64) (*identity.UserInfo, error) {
	return &identity.UserInfo{
		ID:          userID,
		Username:    fmt.Sprintf("user%d", userID),
		DisplayName: fmt.Sprintf("User %d", userID),
	}, nil
}

func newTestEngine(repo Repository, dir Directory) Engine {
	return NewEngine(repo, dir, 2)
}

func TestCalculateCompatibilityWorkedExample(t *testing.T) {
	userA := &CompatibilityProfile{
		Values:        Vector{80, 90},
		Lifestyle:     Vector{70},
		Interests:     Vector{},
		Personality:   Vector{60, 60},
		Communication: Vector{50},
	}
	userB := &CompatibilityProfile{
		Values:        Vector{85, 95},
		Lifestyle:     Vector{75},
		Interests:     Vector{40},
		Personality:   Vector{60, 60},
		Communication: Vector{50},
	}

	eng := newTestEngine(newFakeRepository(), &fakeDirectory{})

	got := eng.CalculateCompatibility(userA, userB)
	if got != 97 {
		t.Errorf("Expected compatibility 97, got %d", got)
	}

	// Symmetric: interests is empty on A's side either way.
	if back := eng.CalculateCompatibility(userB, userA); back != got {
		t.Errorf("Expected symmetric score, got %d and %d", got, back)
	}
}

func TestCalculateCompatibilityProperties(t *testing.T) {
	eng := newTestEngine(newFakeRepository(), &fakeDirectory{})

	testCases := []struct {
		name     string
		mine     *CompatibilityProfile
		theirs   *CompatibilityProfile
		expected int
	}{
		{
			name:     "both empty",
			mine:     &CompatibilityProfile{},
			theirs:   &CompatibilityProfile{},
			expected: 0,
		},
		{
			name: "no shared category",
			mine: &CompatibilityProfile{
				Values: Vector{80, 90},
			},
			theirs: &CompatibilityProfile{
				Lifestyle: Vector{70},
			},
			expected: 0,
		},
		{
			name: "identical vectors score 100",
			mine: &CompatibilityProfile{
				Values:        Vector{10, 50, 90},
				Lifestyle:     Vector{30},
				Interests:     Vector{60, 70},
				Personality:   Vector{80},
				Communication: Vector{100},
			},
			theirs: &CompatibilityProfile{
				Values:        Vector{10, 50, 90},
				Lifestyle:     Vector{30},
				Interests:     Vector{60, 70},
				Personality:   Vector{80},
				Communication: Vector{100},
			},
			expected: 100,
		},
		{
			name: "maximally different score 0",
			mine: &CompatibilityProfile{
				Values: Vector{0, 0},
			},
			theirs: &CompatibilityProfile{
				Values: Vector{100, 100},
			},
			expected: 0,
		},
		{
			name: "longer vector tail ignored",
			mine: &CompatibilityProfile{
				Values: Vector{50},
			},
			theirs: &CompatibilityProfile{
				Values: Vector{50, 0, 0, 0},
			},
			expected: 100,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := eng.CalculateCompatibility(tc.mine, tc.theirs)
			if got != tc.expected {
				t.Errorf("Expected %d, got %d", tc.expected, got)
			}
			if got < 0 || got > 100 {
				t.Errorf("Score %d out of [0,100]", got)
			}
		})
	}
}

func TestCalculateCompatibilityEmptyCategoryDropsWeight(t *testing.T) {
	eng := newTestEngine(newFakeRepository(), &fakeDirectory{})

	// Only values is shared; its similarity should carry the whole score
	// instead of being diluted by the empty categories.
	mine := &CompatibilityProfile{Values: Vector{90}}
	theirs := &CompatibilityProfile{Values: Vector{80}, Interests: Vector{10, 10}}

	if got := eng.CalculateCompatibility(mine, theirs); got != 90 {
		t.Errorf("Expected 90, got %d", got)
	}
}

func completeResponse(userID int64, profile CompatibilityProfile, completedAt time.Time) *QuestionnaireResponse {
	t := completedAt
	return &QuestionnaireResponse{
		ID:          userID,
		UserID:      userID,
		Profile:     profile,
		IsComplete:  true,
		CompletedAt: &t,
	}
}

func TestFindCandidatesRequiresCompleteQuestionnaire(t *testing.T) {
	repo := newFakeRepository()
	eng := newTestEngine(repo, &fakeDirectory{})

	// No response at all.
	if _, err := eng.FindCandidates(context.Background(), 1, 70, 10); err != ErrNoCompletedQuestionnaire {
		t.Errorf("Expected ErrNoCompletedQuestionnaire, got %v", err)
	}

	// Incomplete response.
	repo.responses[1] = &QuestionnaireResponse{UserID: 1, IsComplete: false}
	if _, err := eng.FindCandidates(context.Background(), 1, 70, 10); err != ErrNoCompletedQuestionnaire {
		t.Errorf("Expected ErrNoCompletedQuestionnaire, got %v", err)
	}
}

func TestFindCandidatesFiltersAndRanks(t *testing.T) {
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	repo := newFakeRepository()
	mine := completeResponse(1, CompatibilityProfile{Values: Vector{80, 90}}, base)
	repo.responses[1] = mine

	repo.sampled = []*QuestionnaireResponse{
		// Score 100.
		completeResponse(2, CompatibilityProfile{Values: Vector{80, 90}}, base),
		// Score 90.
		completeResponse(3, CompatibilityProfile{Values: Vector{70, 80}}, base),
		// Score 100 but completed earlier than user 2.
		completeResponse(4, CompatibilityProfile{Values: Vector{80, 90}}, base.Add(-time.Hour)),
		// Score 50, below the floor.
		completeResponse(5, CompatibilityProfile{Values: Vector{30, 40}}, base),
		// Score 100 but inactive.
		completeResponse(6, CompatibilityProfile{Values: Vector{80, 90}}, base),
	}

	dir := &fakeDirectory{inactive: map[int64]bool{6: true}}
	eng := newTestEngine(repo, dir)

	matches, err := eng.FindCandidates(context.Background(), 1, 70, 10)
	if err != nil {
		t.Fatalf("FindCandidates failed: %v", err)
	}

	wantOrder := []int64{2, 4, 3}
	if len(matches) != len(wantOrder) {
		t.Fatalf("Expected %d matches, got %d", len(wantOrder), len(matches))
	}
	for i, want := range wantOrder {
		if matches[i].User.ID != want {
			t.Errorf("Position %d: expected user %d, got %d", i, want, matches[i].User.ID)
		}
	}

	for _, m := range matches {
		if m.CompatibilityScore < 70 {
			t.Errorf("Match below floor: user %d scored %d", m.User.ID, m.CompatibilityScore)
		}
		if m.User.ID == 1 {
			t.Error("Requesting user returned as their own candidate")
		}
	}
}

func TestFindCandidatesTruncatesToLimit(t *testing.T) {
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	repo := newFakeRepository()
	repo.responses[1] = completeResponse(1, CompatibilityProfile{Values: Vector{50}}, base)
	for id := int64(2); id <= 9; id++ {
		repo.sampled = append(repo.sampled,
			completeResponse(id, CompatibilityProfile{Values: Vector{50}}, base))
	}

	eng := newTestEngine(repo, &fakeDirectory{})

	matches, err := eng.FindCandidates(context.Background(), 1, 70, 3)
	if err != nil {
		t.Fatalf("FindCandidates failed: %v", err)
	}
	if len(matches) != 3 {
		t.Errorf("Expected 3 matches, got %d", len(matches))
	}

	// Equal scores and timestamps: user id breaks the tie, ascending.
	for i := 1; i < len(matches); i++ {
		if matches[i-1].User.ID > matches[i].User.ID {
			t.Errorf("Tie-break ordering not deterministic: %d before %d",
				matches[i-1].User.ID, matches[i].User.ID)
		}
	}
}
