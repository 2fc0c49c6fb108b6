// Package provisionapi is the operator/merchant-facing HTTP surface of the
// provisioning plane: Shopify install flow, manual provisioning, run status.
package provisionapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"provisor/internal/provision"
	"provisor/pkg/config"
	"provisor/pkg/middleware"
	"provisor/pkg/tenants"
)

// TenantProvisioner is the slice of the provisioner the API needs.
type TenantProvisioner interface {
	Provision(ctx context.Context, cfg tenants.TenantConfig) (provision.ServiceURLs, error)
}

// App is the provision-service application container.
// Shared deps and config only; request-scoped work uses context.
type App struct {
	log    *zap.SugaredLogger
	cfg    config.Config
	prov   TenantProvisioner
	reg    tenants.Registry
	status *StatusStore
	http   *http.Client

	// shopifyTokenURL builds the OAuth token endpoint for a shop domain.
	// Overridable in tests.
	shopifyTokenURL func(shop string) string
}

func New(log *zap.SugaredLogger, cfg config.Config, prov TenantProvisioner, reg tenants.Registry, status *StatusStore) *App {
	return &App{
		log:    log,
		cfg:    cfg,
		prov:   prov,
		reg:    reg,
		status: status,
		http:   &http.Client{Timeout: 30 * time.Second},
		shopifyTokenURL: func(shop string) string {
			return fmt.Sprintf("https://%s/admin/oauth/access_token", shop)
		},
	}
}

// Handler builds the HTTP handler with routes and middleware.
func (a *App) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID())
	r.Use(middleware.Recover(a.log))
	// Public service: allow cross-origin for the install flow and tooling.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" { // echo origin to allow credentials if needed later
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
			} else {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			w.Header().Set("Access-Control-Max-Age", "86400")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})
	r.Use(middleware.Tracing(a.cfg))

	r.Get("/", a.root)
	r.Get("/health", a.health)
	r.Get("/shopify/install", a.shopifyInstall)
	r.Get("/shopify/callback", a.shopifyCallback)
	r.Post("/manual/provision", a.manualProvision)
	r.Get("/provision/status/{businessID}", a.getStatus)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
