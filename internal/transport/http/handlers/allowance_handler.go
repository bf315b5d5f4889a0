package handlers

import (
	"errors"
	"net/http"

	pgrepo "github.com/Douba03/Datingapp-sub001/internal/repo/postgres"
	allowancesvc "github.com/Douba03/Datingapp-sub001/internal/services/allowance"
	authsvc "github.com/Douba03/Datingapp-sub001/internal/services/auth"
	"github.com/Douba03/Datingapp-sub001/internal/transport/http/dto"
	httperrors "github.com/Douba03/Datingapp-sub001/internal/transport/http/errors"
)

type AllowanceHandler struct {
	manager *allowancesvc.Manager
}

func NewAllowanceHandler(manager *allowancesvc.Manager) *AllowanceHandler {
	return &AllowanceHandler{manager: manager}
}

func (h *AllowanceHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.manager == nil {
		writeInternal(w, "ALLOWANCE_SERVICE_UNAVAILABLE", "allowance service is unavailable")
		return
	}

	snapshot, err := h.manager.Get(r.Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUnavailable) || errors.Is(err, pgrepo.ErrTxConflict) {
			writeUnavailable(w, "STORE_UNAVAILABLE", "allowance is temporarily unavailable")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to load allowance")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.AllowanceResponse{
		Remaining:    snapshot.Remaining,
		Full:         h.manager.FullAllowance(),
		NextRefillAt: snapshot.NextRefillAt,
	})
}
