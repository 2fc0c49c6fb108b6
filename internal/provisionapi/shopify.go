package provisionapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"provisor/pkg/tenants"
)

const shopifyScopes = "read_products,read_orders,read_customers"

// shopifyInstall starts the OAuth flow for a shop. The app's client_id comes
// from the installation request; we merely redirect into Shopify's consent
// screen with our callback as redirect_uri.
func (a *App) shopifyInstall(w http.ResponseWriter, r *http.Request) {
	shop := normalizeShopDomain(r.URL.Query().Get("shop"))
	clientID := r.URL.Query().Get("client_id")
	if shop == "" || clientID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "error": "shop and client_id are required"})
		return
	}
	q := url.Values{}
	q.Set("client_id", clientID)
	q.Set("scope", shopifyScopes)
	q.Set("redirect_uri", a.cfg.AuthURL+"/shopify/callback")
	q.Set("state", "shopify:"+shop+":"+clientID)

	http.Redirect(w, r, fmt.Sprintf("https://%s/admin/oauth/authorize?%s", shop, q.Encode()), http.StatusFound)
}

// shopifyCallback completes the flow: exchange the code for an access token,
// derive the business id from the shop domain and provision in the
// background. The merchant gets an immediate acknowledgement; progress is
// visible via /provision/status/{businessID}.
func (a *App) shopifyCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	code, shop, state, clientSecret := q.Get("code"), q.Get("shop"), q.Get("state"), q.Get("client_secret")

	stateShop, clientID, err := parseState(state)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "error": err.Error()})
		return
	}
	if shop == "" {
		shop = stateShop
	}
	shop = normalizeShopDomain(shop)
	if code == "" || clientSecret == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "error": "code and client_secret are required"})
		return
	}

	token, err := a.exchangeCode(r.Context(), shop, clientID, clientSecret, code)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"status": "error", "error": err.Error()})
		return
	}

	businessID := tenants.BusinessIDFromShop(shop)
	a.setStatus(r.Context(), RunStatus{BusinessID: businessID, State: StatePending})
	go a.provisionAndWarmup(businessID, shop, token)

	writeJSON(w, http.StatusOK, map[string]string{
		"status":      "success",
		"message":     "Infrastructure provisioning started",
		"business_id": businessID,
	})
}

// provisionAndWarmup runs in the background after an OAuth install: apply the
// tenant's infrastructure, then hit the admin API warmup endpoint so the
// first customer interaction is not cold.
func (a *App) provisionAndWarmup(businessID, shop, accessToken string) {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.WarmupTimeout*2)
	defer cancel()

	urls, err := a.runProvision(ctx, tenants.TenantConfig{
		BusinessID:  businessID,
		Provider:    tenants.ProviderShopify,
		ShopURL:     shop,
		AccessToken: accessToken,
	}, shop)
	if err != nil {
		a.log.Errorw("setup failed", "business_id", businessID, "err", err)
		return
	}
	if err := a.warmup(ctx, urls.AdminAPIURL); err != nil {
		a.log.Warnw("warmup failed", "business_id", businessID, "err", err)
		return
	}
	a.log.Infow("customer fully set up", "business_id", businessID)
}

func (a *App) warmup(ctx context.Context, adminAPIURL string) error {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.WarmupTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, adminAPIURL+"/api/system-warmup", nil)
	if err != nil {
		return err
	}
	resp, err := a.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("warmup: status %d", resp.StatusCode)
	}
	return nil
}

// exchangeCode trades the OAuth authorization code for a permanent access
// token. The token is a secret; it is returned, stored, and never logged.
func (a *App) exchangeCode(ctx context.Context, shop, clientID, clientSecret, code string) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"client_id":     clientID,
		"client_secret": clientSecret,
		"code":          code,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.shopifyTokenURL(shop), strings.NewReader(string(payload)))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := a.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("token exchange: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("token exchange: status %d: %s", resp.StatusCode, string(body))
	}
	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("token exchange: %w", err)
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("token exchange: empty access_token")
	}
	return out.AccessToken, nil
}

// parseState validates the round-tripped OAuth state ("shopify:{shop}:{client_id}").
func parseState(state string) (shop, clientID string, err error) {
	if !strings.HasPrefix(state, "shopify:") {
		return "", "", fmt.Errorf("invalid state")
	}
	parts := strings.Split(state, ":")
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		return "", "", fmt.Errorf("invalid state format")
	}
	return parts[1], parts[2], nil
}

// normalizeShopDomain accepts "acme" or "acme.myshopify.com" and returns the
// full domain.
func normalizeShopDomain(shop string) string {
	shop = strings.TrimSpace(shop)
	if shop == "" {
		return ""
	}
	return strings.TrimSuffix(shop, ".myshopify.com") + ".myshopify.com"
}
