package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	pgrepo "github.com/Douba03/Datingapp-sub001/internal/repo/postgres"
	authsvc "github.com/Douba03/Datingapp-sub001/internal/services/auth"
	matchessvc "github.com/Douba03/Datingapp-sub001/internal/services/matches"
	"github.com/Douba03/Datingapp-sub001/internal/transport/http/dto"
	httperrors "github.com/Douba03/Datingapp-sub001/internal/transport/http/errors"
)

const (
	defaultMatchesLimit = 50
	maxMatchesLimit     = 200
)

type MatchesHandler struct {
	service *matchessvc.Service
}

func NewMatchesHandler(service *matchessvc.Service) *MatchesHandler {
	return &MatchesHandler{service: service}
}

func (h *MatchesHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MATCHES_SERVICE_UNAVAILABLE", "matches service is unavailable")
		return
	}

	limit := defaultMatchesLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeBadRequest(w, "VALIDATION_ERROR", "limit must be a positive integer")
			return
		}
		limit = min(parsed, maxMatchesLimit)
	}

	matches, err := h.service.List(r.Context(), identity.UserID, limit)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUnavailable) || errors.Is(err, pgrepo.ErrTxConflict) {
			writeUnavailable(w, "STORE_UNAVAILABLE", "matches are temporarily unavailable")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to load matches")
		return
	}

	items := make([]dto.MatchItemResponse, 0, len(matches))
	for _, m := range matches {
		target := m.UserAID
		if target == identity.UserID {
			target = m.UserBID
		}
		items = append(items, dto.MatchItemResponse{
			ID:           m.ID,
			TargetUserID: target,
			Status:       string(m.Status),
			CreatedAt:    m.CreatedAt,
		})
	}

	httperrors.Write(w, http.StatusOK, dto.MatchesResponse{Items: items})
}
