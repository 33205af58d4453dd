package questionnaire

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/amoura-app/amoura-backend/internal/common/utils"
	"github.com/amoura-app/amoura-backend/internal/identity"
)

type Handler struct {
	service Service
	config  HandlerConfig
}

// HandlerConfig carries the query-parameter defaults.
type HandlerConfig struct {
	MinCompatibility int
	MatchLimit       int
}

// maxMatchLimit caps the request-supplied page size. The sampling
// multiplier turns the limit into a database scan size, so it gets the
// same ceiling the configured default has.
const maxMatchLimit = 100

func NewHandler(service Service, config HandlerConfig) *Handler {
	return &Handler{service: service, config: config}
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity.GetUserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.service.Submit(r.Context(), userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrScoreOutOfRange), errors.Is(err, ErrUnknownCategory):
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrTooManyConflicts):
			utils.RespondWithError(w, http.StatusConflict, err.Error())
		default:
			log.Printf("questionnaire submit failed for user %d: %v", userID, err)
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to save questionnaire")
		}
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity.GetUserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	resp, err := h.service.GetMine(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrResponseNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, "No questionnaire response found")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to load questionnaire")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity.GetUserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := h.service.Delete(r.Context(), userID); err != nil {
		if errors.Is(err, ErrResponseNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, "No questionnaire response found")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to delete questionnaire")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "questionnaire deleted"})
}

func (h *Handler) Compatibility(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity.GetUserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	otherID, err := strconv.ParseInt(mux.Vars(r)["userId"], 10, 64)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	result, err := h.service.CompatibilityWith(r.Context(), userID, otherID)
	if err != nil {
		switch {
		case errors.Is(err, ErrResponseNotFound):
			utils.RespondWithError(w, http.StatusNotFound, "No questionnaire response found")
		case errors.Is(err, identity.ErrUserNotFound):
			utils.RespondWithError(w, http.StatusNotFound, "User not found")
		default:
			log.Printf("compatibility lookup %d->%d failed: %v", userID, otherID, err)
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to calculate compatibility")
		}
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, result)
}

func (h *Handler) Matches(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity.GetUserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	minCompatibility := h.config.MinCompatibility
	if raw := r.URL.Query().Get("min_compatibility"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 || v > 100 {
			utils.RespondWithError(w, http.StatusBadRequest, "min_compatibility must be between 0 and 100")
			return
		}
		minCompatibility = v
	}

	limit := h.config.MatchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			utils.RespondWithError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if v > maxMatchLimit {
			v = maxMatchLimit
		}
		limit = v
	}

	matches, err := h.service.Matches(r.Context(), userID, minCompatibility, limit)
	if err != nil {
		if errors.Is(err, ErrNoCompletedQuestionnaire) {
			utils.RespondWithError(w, http.StatusPreconditionFailed, "Complete your questionnaire before requesting matches")
			return
		}
		// The feed tolerates collaborator failures; serve an empty page
		// instead of an error so clients keep working.
		log.Printf("match query for user %d failed: %v", userID, err)
		matches = nil
	}

	if matches == nil {
		matches = []*CandidateMatch{}
	}
	utils.RespondWithJSON(w, http.StatusOK, MatchesResponse{Matches: matches})
}
