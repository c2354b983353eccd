// Package httptransport is the thin HTTP layer. Handlers delegate to domain
// services without embedding business logic so transport concerns remain
// isolated.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"afyalink/internal/auth"
	"afyalink/internal/platform/health"
	"afyalink/internal/platform/middleware"
)

// Handlers bundles the per-domain handlers mounted by NewRouter.
type Handlers struct {
	Auth          *AuthHandler
	Directory     *DirectoryHandler
	Consent       *ConsentHandler
	Records       *RecordsHandler
	Notifications *NotificationsHandler
	Dashboard     *DashboardHandler
}

// NewRouter wires all endpoints with the middleware stack. Everything except
// token issuance, patient registration, health probes, and metrics sits
// behind bearer auth.
func NewRouter(h Handlers, tokens *auth.TokenService, probes *health.Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ContentTypeJSON)

	probes.Register(r)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Post("/auth/token", h.Auth.handleIssueToken)
	h.Directory.RegisterPublic(r)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(tokens))

		h.Directory.Register(r)
		h.Consent.Register(r)
		h.Records.Register(r)
		h.Notifications.Register(r)
		h.Dashboard.Register(r)
	})

	return r
}

// principalFrom pulls the authenticated principal attached by the auth
// middleware. Missing principals mean a route was mounted outside the auth
// group, which is a wiring bug.
func principalFrom(r *http.Request) (*auth.Principal, bool) {
	return auth.FromContext(r.Context())
}
