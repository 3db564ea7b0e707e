package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/denkrupka/portalgate/internal/gateway/service"
	"github.com/denkrupka/portalgate/internal/gateway/upstream"
	"github.com/denkrupka/portalgate/pkg/gatesdk"
	"github.com/denkrupka/portalgate/pkg/httpx"
	"github.com/denkrupka/portalgate/pkg/slogx"
)

// ProxyHandler relays business calls to the portal, over an established
// session or anonymously when no session id is supplied.
type ProxyHandler struct {
	Gateway *service.Gateway
}

// HandleGet handles GET /v1/proxy?path=/api/...
func (h *ProxyHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	// No session id means an anonymous call; the portal serves public
	// data without cookies.
	id := sessionID(r)

	path := r.URL.Query().Get("path")
	if !strings.HasPrefix(path, "/") {
		gatesdk.ErrInvalidRequest.WithDescription("path must be absolute, e.g. /api/products").WriteError(w)
		return
	}

	resp, err := h.Gateway.Call(ctx, id, path)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			gatesdk.ErrSessionNotFound.WriteError(w)
			return
		}

		// A surviving auth failure means the refresh-and-replay did not
		// rescue the call; relay the portal's own status.
		var statusErr *upstream.StatusError
		if errors.As(err, &statusErr) {
			log.Warn("portal rejected proxied call", "session_id", id, "path", path, "status", statusErr.Status)
			gatesdk.ErrUpstreamFailure.WithDescription(statusErr.Error()).WriteError(w)
			return
		}

		log.Warn("proxied call failed", "session_id", id, "path", path, "err", err)
		writeUpstreamError(w, err)
		return
	}

	httpx.NoCache(w)
	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(resp.Body)
}
