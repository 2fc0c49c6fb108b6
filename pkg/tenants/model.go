package tenants

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Provider identifies the e-commerce backend a tenant integrates with.
type Provider string

const (
	ProviderShopify     Provider = "shopify"
	ProviderWooCommerce Provider = "woocommerce"
	ProviderMock        Provider = "mock"
)

// Valid reports whether p is a recognized provider value.
func (p Provider) Valid() bool {
	switch p {
	case ProviderShopify, ProviderWooCommerce, ProviderMock:
		return true
	}
	return false
}

// ParseProvider converts a raw string into a Provider, rejecting anything
// outside the recognized set before provisioning is attempted.
func ParseProvider(s string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", &ConfigurationError{Field: "ecommerce_provider", Reason: fmt.Sprintf("must be one of shopify, woocommerce, mock (got %q)", s)}
	}
	return p, nil
}

// TenantConfig is everything an operator supplies for one provisioning run.
// AccessToken is a secret and must never appear in logs or error messages.
type TenantConfig struct {
	BusinessID     string
	Provider       Provider
	ShopURL        string
	AccessToken    string
	ProviderConfig map[string]string
}

// businessIDRe matches the platform naming constraint for service suffixes:
// lowercase alphanumeric plus hyphens, starting with a letter.
var businessIDRe = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

// Service names cap at 63 characters on the platform. The longest kind
// prefix is "customer-agent-" (15), so 40 keeps every derived name under the
// limit with headroom for future kinds.
const maxBusinessIDLen = 40

// Validate checks the run input. It is called before any resource is touched
// so a bad config can never leave partial state behind.
func (c TenantConfig) Validate() error {
	if c.BusinessID == "" {
		return &ConfigurationError{Field: "business_id", Reason: "is required"}
	}
	if len(c.BusinessID) > maxBusinessIDLen || !businessIDRe.MatchString(c.BusinessID) || strings.HasSuffix(c.BusinessID, "-") {
		return &ConfigurationError{Field: "business_id", Reason: fmt.Sprintf("%q must be lowercase alphanumeric plus hyphens, start with a letter, not end with a hyphen, and be at most 40 characters", c.BusinessID)}
	}
	if !c.Provider.Valid() {
		return &ConfigurationError{Field: "ecommerce_provider", Reason: fmt.Sprintf("must be one of shopify, woocommerce, mock (got %q)", string(c.Provider))}
	}
	return nil
}

// ConfigurationError is raised for invalid operator input, always before any
// provisioning side effect.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s %s", e.Field, e.Reason)
}

var shopSuffixes = []string{".myshopify.com"}

// BusinessIDFromShop derives a platform-safe business id from a shop domain,
// e.g. "Acme-Store.myshopify.com" -> "acme-store". Characters outside the
// allowed set collapse to single hyphens.
func BusinessIDFromShop(shop string) string {
	s := strings.ToLower(strings.TrimSpace(shop))
	for _, suf := range shopSuffixes {
		s = strings.TrimSuffix(s, suf)
	}
	var b strings.Builder
	lastHyphen := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen && b.Len() > 0 {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	out := strings.Trim(b.String(), "-")
	// Service names require a leading letter.
	if out != "" && out[0] >= '0' && out[0] <= '9' {
		out = "shop-" + out
	}
	if len(out) > maxBusinessIDLen {
		out = strings.Trim(out[:maxBusinessIDLen], "-")
	}
	return out
}

// Installation records one shop's provisioning outcome.
type Installation struct {
	ID          string // uuid
	BusinessID  string
	Provider    Provider
	Shop        string
	AccessToken string
	AdminAPIURL string
	AgentURL    string
	Status      string // pending | provisioning | ready | failed
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
