package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/denkrupka/portalgate/internal/gateway/service"
	"github.com/denkrupka/portalgate/pkg/gatesdk"
	"github.com/denkrupka/portalgate/pkg/httpx"
	"github.com/denkrupka/portalgate/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	Gateway *service.Gateway
}

func NewRouter(gw *service.Gateway, buildVersion string, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		Gateway:      gw,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerLogin()
	r.registerSessions()
	r.registerProxy()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerLogin() {
	loginHandler := &LoginHandler{
		Gateway: r.Gateway,
	}

	// Credential and code submissions hit the portal's login endpoint;
	// keep them strictly limited so the gateway cannot be used to
	// hammer the portal's lockout counters.
	r.Mux.Handle("POST /v1/login",
		httpx.Chain(http.HandlerFunc(loginHandler.HandleLogin),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /v1/login/code",
		httpx.Chain(http.HandlerFunc(loginHandler.HandleCode),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /v1/login/resend",
		httpx.Chain(http.HandlerFunc(loginHandler.HandleResend),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerSessions() {
	sessionHandler := &SessionHandler{
		Gateway: r.Gateway,
	}

	r.Mux.Handle("POST /v1/logout",
		httpx.Chain(http.HandlerFunc(sessionHandler.HandleLogout),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("GET /v1/session",
		httpx.Chain(http.HandlerFunc(sessionHandler.HandleInfo),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerProxy() {
	proxyHandler := &ProxyHandler{
		Gateway: r.Gateway,
	}

	// The proxy is the hot path; throttle it only enough to keep one
	// caller from monopolizing the portal.
	r.Mux.Handle("GET /v1/proxy",
		httpx.Chain(http.HandlerFunc(proxyHandler.HandleGet),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /v1/status", StatusHandler(r.Gateway, r.startTime, r.buildVersion))
}

// sessionID pulls the caller's session id from the X-Session-ID header,
// falling back to the sid query parameter.
func sessionID(req *http.Request) string {
	if id := req.Header.Get(gatesdk.SessionHeader); id != "" {
		return id
	}
	return req.URL.Query().Get("sid")
}
