package http

import (
	"net/http"
	"time"

	"github.com/denkrupka/portalgate/internal/gateway/service"
	"github.com/denkrupka/portalgate/pkg/gatesdk"
	"github.com/denkrupka/portalgate/pkg/httpx"
)

// StatusHandler reports process health and the size of the live session
// and challenge tables. Always 200 while the process is up.
func StatusHandler(gw *service.Gateway, startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, gatesdk.StatusResponse{
			Status:            "ok",
			Uptime:            time.Since(startTime).String(),
			Version:           version,
			Sessions:          gw.SessionCount(),
			PendingChallenges: gw.PendingChallengeCount(),
		})
	}
}
