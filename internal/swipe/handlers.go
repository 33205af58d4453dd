package swipe

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/amoura-app/amoura-backend/internal/common/utils"
	"github.com/amoura-app/amoura-backend/internal/identity"
	"github.com/amoura-app/amoura-backend/internal/questionnaire"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type swipeRequest struct {
	Action      Action `json:"action" validate:"required,oneof=pass like super_like"`
	CandidateID int64  `json:"candidateId" validate:"omitempty,gte=1"`
}

type grantRequest struct {
	SuperLikes int `json:"superLikes" validate:"required,gte=1"`
}

func (h *Handler) Swipe(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity.GetUserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req swipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.Swipe(r.Context(), userID, req.Action, req.CandidateID)
	if err != nil {
		switch {
		case errors.Is(err, ErrStaleCandidate):
			utils.RespondWithError(w, http.StatusConflict, err.Error())
		case errors.Is(err, ErrOutOfProfiles):
			utils.RespondWithError(w, http.StatusConflict, "No more profiles, refresh for a new batch")
		case errors.Is(err, ErrOutOfAllowance):
			utils.RespondWithError(w, http.StatusPaymentRequired, "No super likes remaining")
		case errors.Is(err, questionnaire.ErrNoCompletedQuestionnaire):
			utils.RespondWithError(w, http.StatusPreconditionFailed, "Complete your questionnaire before swiping")
		default:
			log.Printf("swipe failed for user %d: %v", userID, err)
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to process swipe")
		}
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, result)
}

func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity.GetUserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	snap, err := h.service.Session(r.Context(), userID)
	if err != nil {
		if errors.Is(err, questionnaire.ErrNoCompletedQuestionnaire) {
			utils.RespondWithError(w, http.StatusPreconditionFailed, "Complete your questionnaire before swiping")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to load swipe session")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, snap)
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity.GetUserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	snap, err := h.service.Refresh(r.Context(), userID)
	if err != nil {
		if errors.Is(err, questionnaire.ErrNoCompletedQuestionnaire) {
			utils.RespondWithError(w, http.StatusPreconditionFailed, "Complete your questionnaire before swiping")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to refresh candidates")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, snap)
}

func (h *Handler) Grant(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity.GetUserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req grantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap, err := h.service.GrantSuperLikes(r.Context(), userID, req.SuperLikes)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to grant super likes")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, snap)
}
