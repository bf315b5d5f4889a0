package handlers

import (
	"errors"
	"net/http"
	"strings"

	pgrepo "github.com/Douba03/Datingapp-sub001/internal/repo/postgres"
	authsvc "github.com/Douba03/Datingapp-sub001/internal/services/auth"
	swipesvc "github.com/Douba03/Datingapp-sub001/internal/services/swipes"
	"github.com/Douba03/Datingapp-sub001/internal/transport/http/dto"
	httperrors "github.com/Douba03/Datingapp-sub001/internal/transport/http/errors"
)

type SwipeHandler struct {
	service *swipesvc.Service
}

func NewSwipeHandler(service *swipesvc.Service) *SwipeHandler {
	return &SwipeHandler{service: service}
}

func (h *SwipeHandler) Handle(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "SWIPE_SERVICE_UNAVAILABLE", "swipe service is unavailable")
		return
	}

	var req dto.SwipeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}
	if req.TargetID <= 0 || strings.TrimSpace(req.Action) == "" {
		writeBadRequest(w, "VALIDATION_ERROR", "target_id and action are required")
		return
	}

	result, err := h.service.RecordSwipe(r.Context(), identity.UserID, req.TargetID, req.Action)
	if err != nil {
		switch {
		case errors.Is(err, swipesvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid swipe request")
		case errors.Is(err, swipesvc.ErrUnsupportedAction):
			writeBadRequest(w, "VALIDATION_ERROR", "unsupported action")
		case errors.Is(err, swipesvc.ErrAlreadySwiped):
			httperrors.Write(w, http.StatusConflict, httperrors.APIError{
				Code:    "ALREADY_SWIPED",
				Message: "a swipe on this profile is already recorded",
			})
		case errors.Is(err, pgrepo.ErrUnavailable), errors.Is(err, pgrepo.ErrTxConflict):
			writeUnavailable(w, "STORE_UNAVAILABLE", "swipe could not be recorded, try again")
		default:
			if oos, ok := swipesvc.IsOutOfSwipes(err); ok {
				httperrors.Write(w, http.StatusTooManyRequests, httperrors.OutOfSwipesError{
					Code:         "OUT_OF_SWIPES",
					Message:      "swipe allowance is exhausted",
					NextRefillAt: oos.NextRefillAt,
				})
				return
			}
			if tf, ok := swipesvc.IsTooFast(err); ok {
				httperrors.Write(w, http.StatusTooManyRequests, httperrors.RateLimitError{
					Code:          "TOO_FAST",
					Message:       "too many swipes, slow down",
					RetryAfterSec: tf.RetryAfter(),
				})
				return
			}
			writeInternal(w, "INTERNAL_ERROR", "failed to process swipe")
		}
		return
	}

	resp := dto.SwipeResponse{
		OK:           true,
		MatchCreated: result.MatchCreated,
		Allowance: dto.AllowancePayload{
			Remaining:    result.Remaining,
			NextRefillAt: result.NextRefillAt,
		},
	}
	if result.MatchCreated {
		matchID := result.MatchID
		resp.MatchID = &matchID
	}
	httperrors.Write(w, http.StatusOK, resp)
}
