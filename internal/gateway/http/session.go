package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/denkrupka/portalgate/internal/gateway/service"
	"github.com/denkrupka/portalgate/pkg/gatesdk"
	"github.com/denkrupka/portalgate/pkg/httpx"
	"github.com/denkrupka/portalgate/pkg/slogx"
)

// SessionHandler handles logout and session introspection.
type SessionHandler struct {
	Gateway *service.Gateway
}

// HandleLogout handles POST /v1/logout.
func (h *SessionHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	id := sessionID(r)
	if id == "" {
		gatesdk.ErrInvalidRequest.WithDescription("a session id is required").WriteError(w)
		return
	}

	if err := h.Gateway.Logout(ctx, id); err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			gatesdk.ErrSessionNotFound.WriteError(w)
			return
		}
		log.Error("logout failed", "session_id", id, "err", err)
		gatesdk.ErrServerError.WriteError(w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleInfo handles GET /v1/session.
func (h *SessionHandler) HandleInfo(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	if id == "" {
		gatesdk.ErrInvalidRequest.WithDescription("a session id is required").WriteError(w)
		return
	}

	sess, err := h.Gateway.SessionInfo(id)
	if err != nil {
		gatesdk.ErrSessionNotFound.WriteError(w)
		return
	}

	sess.Lock()
	resp := gatesdk.SessionResponse{
		SessionID: sess.ID,
		Profile: gatesdk.Profile{
			UserName:     sess.Profile.UserName,
			Email:        sess.Profile.Email,
			CustomerName: sess.Profile.CustomerName,
			CustomerID:   sess.Profile.CustomerID,
			PriceTier:    sess.Profile.PriceTier,
		},
		CreatedAt:       sess.CreatedAt.Format(time.RFC3339),
		LastUsedAt:      sess.LastUsedAt.Format(time.RFC3339),
		LastRefreshedAt: sess.LastRefreshedAt.Format(time.RFC3339),
	}
	sess.Unlock()

	httpx.WriteJSON(w, http.StatusOK, resp)
}
