// Package profile maps a tenant's e-commerce provider onto the environment
// variables its runtime containers need to reach that backend.
package profile

import (
	"fmt"

	"provisor/pkg/tenants"
)

// Profile is an environment-variable name to value mapping. Exactly one
// profile shape exists per provider.
type Profile map[string]string

// Variable names consumed by the deployed services.
const (
	EnvShopifyShopURL     = "SHOPIFY_SHOP_URL"
	EnvShopifyAccessToken = "SHOPIFY_ACCESS_TOKEN"

	EnvWooCommerceURL       = "WOOCOMMERCE_URL"
	EnvWooCommerceAPIKey    = "WOOCOMMERCE_API_KEY"
	EnvWooCommerceAPISecret = "WOOCOMMERCE_API_SECRET"
)

// Resolve computes the provider profile for a tenant. Pure function: same
// inputs always yield the same mapping, and no side effects occur.
//
// Values pass through unchanged; shop URLs and tokens are not normalized or
// truncated here. An unrecognized provider fails with a ConfigurationError
// before any provisioning is attempted.
func Resolve(provider tenants.Provider, shopURL, accessToken string, extraConfig map[string]string) (Profile, error) {
	switch provider {
	case tenants.ProviderShopify:
		return Profile{
			EnvShopifyShopURL:     shopURL,
			EnvShopifyAccessToken: accessToken,
		}, nil
	case tenants.ProviderWooCommerce:
		// WooCommerce splits credentials into a key/secret pair; the secret
		// rides in provider_config. An absent secret silently defaults to ""
		// (matches current product behavior; see DESIGN.md open questions).
		return Profile{
			EnvWooCommerceURL:       shopURL,
			EnvWooCommerceAPIKey:    accessToken,
			EnvWooCommerceAPISecret: extraConfig["api_secret"],
		}, nil
	case tenants.ProviderMock:
		return Profile{}, nil
	}
	return nil, &tenants.ConfigurationError{
		Field:  "ecommerce_provider",
		Reason: fmt.Sprintf("must be one of shopify, woocommerce, mock (got %q)", string(provider)),
	}
}
