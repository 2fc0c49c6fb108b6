package provisionapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"provisor/internal/provision"
	"provisor/pkg/tenants"
)

// ProvisioningRequest is the body of POST /manual/provision.
type ProvisioningRequest struct {
	BusinessID     string            `json:"business_id"`
	Provider       string            `json:"provider"`
	ShopURL        string            `json:"shop_url"`
	AccessToken    string            `json:"access_token"`
	ProviderConfig map[string]string `json:"provider_config,omitempty"`
}

func (a *App) root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"service": "provision-service", "status": "running"})
}

func (a *App) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// manualProvision provisions synchronously; used for testing and operator
// runs outside the OAuth flow.
func (a *App) manualProvision(w http.ResponseWriter, r *http.Request) {
	var req ProvisioningRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "error": "invalid JSON body"})
		return
	}
	prov, err := tenants.ParseProvider(req.Provider)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "error": err.Error()})
		return
	}
	cfg := tenants.TenantConfig{
		BusinessID:     req.BusinessID,
		Provider:       prov,
		ShopURL:        req.ShopURL,
		AccessToken:    req.AccessToken,
		ProviderConfig: req.ProviderConfig,
	}
	urls, err := a.runProvision(r.Context(), cfg, req.ShopURL)
	if err != nil {
		var cerr *tenants.ConfigurationError
		if errors.As(err, &cerr) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "error": cerr.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "error": "provisioning failed: " + err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "success",
		"business_id": cfg.BusinessID,
		"services":    urls,
	})
}

func (a *App) getStatus(w http.ResponseWriter, r *http.Request) {
	businessID := chi.URLParam(r, "businessID")
	st, ok, err := a.status.Get(r.Context(), businessID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "error": err.Error()})
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"status": "error", "error": "no provisioning run recorded for " + businessID})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "run": st})
}

// runProvision is the shared provisioning path for manual and OAuth-driven
// runs: record intent, apply, record outcome. Validation failures surface
// before anything is written against infrastructure.
func (a *App) runProvision(ctx context.Context, cfg tenants.TenantConfig, shop string) (provision.ServiceURLs, error) {
	start := time.Now()
	a.setStatus(ctx, RunStatus{BusinessID: cfg.BusinessID, State: StateProvisioning})
	a.recordInstallation(ctx, tenants.Installation{
		BusinessID:  cfg.BusinessID,
		Provider:    cfg.Provider,
		Shop:        shop,
		AccessToken: cfg.AccessToken,
		Status:      StateProvisioning,
	})

	res, err := a.prov.Provision(ctx, cfg)
	outcome := "success"
	if err != nil {
		outcome = "error"
		a.setStatus(ctx, RunStatus{BusinessID: cfg.BusinessID, State: StateFailed, Error: err.Error()})
		a.recordInstallation(ctx, tenants.Installation{
			BusinessID:  cfg.BusinessID,
			Provider:    cfg.Provider,
			Shop:        shop,
			AccessToken: cfg.AccessToken,
			Status:      StateFailed,
		})
	} else {
		a.setStatus(ctx, RunStatus{
			BusinessID:  cfg.BusinessID,
			State:       StateReady,
			AdminAPIURL: res.AdminAPIURL,
			AgentURL:    res.AgentURL,
		})
		a.recordInstallation(ctx, tenants.Installation{
			BusinessID:  cfg.BusinessID,
			Provider:    cfg.Provider,
			Shop:        shop,
			AccessToken: cfg.AccessToken,
			AdminAPIURL: res.AdminAPIURL,
			AgentURL:    res.AgentURL,
			Status:      StateReady,
		})
	}
	provisionRuns.WithLabelValues(string(cfg.Provider), outcome).Inc()
	provisionDuration.WithLabelValues(string(cfg.Provider)).Observe(time.Since(start).Seconds())
	return res, err
}

// setStatus and recordInstallation are best effort: a broken status or
// registry backend must not fail a provisioning run, but it has to be
// visible in the logs.
func (a *App) setStatus(ctx context.Context, st RunStatus) {
	if err := a.status.Set(ctx, st); err != nil {
		a.log.Warnw("status write failed", "business_id", st.BusinessID, "state", st.State, "err", err)
	}
}

func (a *App) recordInstallation(ctx context.Context, inst tenants.Installation) {
	if err := a.reg.Upsert(ctx, inst); err != nil {
		a.log.Warnw("registry write failed", "business_id", inst.BusinessID, "status", inst.Status, "err", err)
	}
}
