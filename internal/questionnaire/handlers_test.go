package questionnaire

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
)

// stubService returns canned results so handler tests can exercise the
// status mapping without a repository behind them.
type stubService struct {
	submitErr  error
	getErr     error
	compatErr  error
	matchesErr error

	response *QuestionnaireResponse
	result   *CompatibilityResult
	matches  []*CandidateMatch

	gotMin   int
	gotLimit int
}

func (s *stubService) Submit(ctx context.Context, userID int64, req *SubmitRequest) (*QuestionnaireResponse, error) {
	if s.submitErr != nil {
		return nil, s.submitErr
	}
	return s.response, nil
}

func (s *stubService) GetMine(ctx context.Context, userID int64) (*QuestionnaireResponse, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.response, nil
}

func (s *stubService) Delete(ctx context.Context, userID int64) error {
	return s.getErr
}

func (s *stubService) CompatibilityWith(ctx context.Context, userID, otherID int64) (*CompatibilityResult, error) {
	if s.compatErr != nil {
		return nil, s.compatErr
	}
	return s.result, nil
}

func (s *stubService) Matches(ctx context.Context, userID int64, minCompatibility, limit int) ([]*CandidateMatch, error) {
	s.gotMin = minCompatibility
	s.gotLimit = limit
	if s.matchesErr != nil {
		return nil, s.matchesErr
	}
	return s.matches, nil
}

func newTestHandler(svc Service) *Handler {
	return NewHandler(svc, HandlerConfig{MinCompatibility: 70, MatchLimit: 10})
}

func authenticatedRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	ctx := context.WithValue(req.Context(), "userID", int64(1))
	return req.WithContext(ctx)
}

func TestSubmitStatusMapping(t *testing.T) {
	validBody := `{"responses":{"q1":"a"},"compatibilityProfile":{"values":[80]}}`

	testCases := []struct {
		name       string
		body       string
		serviceErr error
		wantStatus int
	}{
		{
			name:       "success",
			body:       validBody,
			wantStatus: http.StatusOK,
		},
		{
			name:       "malformed json",
			body:       `{"responses":`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "empty responses rejected by validation",
			body:       `{"responses":{}}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "score out of range",
			body:       validBody,
			serviceErr: ErrScoreOutOfRange,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "version conflicts exhausted",
			body:       validBody,
			serviceErr: ErrTooManyConflicts,
			wantStatus: http.StatusConflict,
		},
		{
			name:       "unexpected failure",
			body:       validBody,
			serviceErr: errors.New("connection reset"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubService{
				submitErr: tc.serviceErr,
				response:  &QuestionnaireResponse{UserID: 1},
			}
			handler := newTestHandler(svc)

			rec := httptest.NewRecorder()
			handler.Submit(rec, authenticatedRequest("POST", "/api/v1/questionnaires", tc.body))

			if rec.Code != tc.wantStatus {
				t.Errorf("Expected status %d, got %d", tc.wantStatus, rec.Code)
			}
		})
	}
}

func TestSubmitRequiresAuth(t *testing.T) {
	handler := newTestHandler(&stubService{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/questionnaires", strings.NewReader(`{}`))
	handler.Submit(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without user context, got %d", rec.Code)
	}
}

func TestGetMineNotFound(t *testing.T) {
	handler := newTestHandler(&stubService{getErr: ErrResponseNotFound})

	rec := httptest.NewRecorder()
	handler.GetMine(rec, authenticatedRequest("GET", "/api/v1/questionnaires/me", ""))

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

func TestCompatibilityStatusMapping(t *testing.T) {
	testCases := []struct {
		name       string
		serviceErr error
		wantStatus int
	}{
		{name: "success", wantStatus: http.StatusOK},
		{name: "missing questionnaire", serviceErr: ErrResponseNotFound, wantStatus: http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubService{
				compatErr: tc.serviceErr,
				result:    &CompatibilityResult{CompatibilityScore: 90},
			}
			handler := newTestHandler(svc)

			req := authenticatedRequest("GET", "/api/v1/questionnaires/compatibility/2", "")
			req = mux.SetURLVars(req, map[string]string{"userId": "2"})

			rec := httptest.NewRecorder()
			handler.Compatibility(rec, req)

			if rec.Code != tc.wantStatus {
				t.Errorf("Expected status %d, got %d", tc.wantStatus, rec.Code)
			}
		})
	}
}

func TestMatchesRequiresCompletedQuestionnaire(t *testing.T) {
	handler := newTestHandler(&stubService{matchesErr: ErrNoCompletedQuestionnaire})

	rec := httptest.NewRecorder()
	handler.Matches(rec, authenticatedRequest("GET", "/api/v1/questionnaires/matches", ""))

	if rec.Code != http.StatusPreconditionFailed {
		t.Errorf("Expected 412, got %d", rec.Code)
	}
}

func TestMatchesDegradesToEmptyFeed(t *testing.T) {
	handler := newTestHandler(&stubService{matchesErr: errors.New("directory unavailable")})

	rec := httptest.NewRecorder()
	handler.Matches(rec, authenticatedRequest("GET", "/api/v1/questionnaires/matches", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 on collaborator failure, got %d", rec.Code)
	}

	var resp MatchesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Matches == nil || len(resp.Matches) != 0 {
		t.Errorf("Expected empty match list, got %v", resp.Matches)
	}
}

func TestMatchesQueryParams(t *testing.T) {
	testCases := []struct {
		name       string
		query      string
		wantStatus int
		wantMin    int
		wantLimit  int
	}{
		{name: "defaults", query: "", wantStatus: http.StatusOK, wantMin: 70, wantLimit: 10},
		{name: "overrides", query: "?min_compatibility=85&limit=5", wantStatus: http.StatusOK, wantMin: 85, wantLimit: 5},
		{name: "limit clamped to ceiling", query: "?limit=1000000", wantStatus: http.StatusOK, wantMin: 70, wantLimit: maxMatchLimit},
		{name: "min out of range", query: "?min_compatibility=101", wantStatus: http.StatusBadRequest},
		{name: "negative limit", query: "?limit=-1", wantStatus: http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubService{matches: []*CandidateMatch{}}
			handler := newTestHandler(svc)

			rec := httptest.NewRecorder()
			handler.Matches(rec, authenticatedRequest("GET", "/api/v1/questionnaires/matches"+tc.query, ""))

			if rec.Code != tc.wantStatus {
				t.Fatalf("Expected status %d, got %d", tc.wantStatus, rec.Code)
			}
			if tc.wantStatus != http.StatusOK {
				return
			}
			if svc.gotMin != tc.wantMin || svc.gotLimit != tc.wantLimit {
				t.Errorf("Service called with (%d, %d), want (%d, %d)",
					svc.gotMin, svc.gotLimit, tc.wantMin, tc.wantLimit)
			}
		})
	}
}
