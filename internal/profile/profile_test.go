package profile

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"provisor/pkg/tenants"
)

func TestResolveUnknownProviderFails(t *testing.T) {
	for _, bad := range []string{"", "bigcommerce", "SHOPIFY", "shopify "} {
		_, err := Resolve(tenants.Provider(bad), "acme.myshopify.com", "tok", nil)
		require.Error(t, err, "provider %q", bad)

		var cerr *tenants.ConfigurationError
		require.True(t, errors.As(err, &cerr), "want ConfigurationError for %q", bad)
		assert.Equal(t, "ecommerce_provider", cerr.Field)
	}
}

func TestResolveShopify(t *testing.T) {
	p, err := Resolve(tenants.ProviderShopify, "acme.myshopify.com", "shpat_secret-token", nil)
	require.NoError(t, err)

	// Exactly two entries, values passed through unchanged.
	assert.Len(t, p, 2)
	assert.Equal(t, "acme.myshopify.com", p[EnvShopifyShopURL])
	assert.Equal(t, "shpat_secret-token", p[EnvShopifyAccessToken])
}

func TestResolveWooCommerceSecretDefaultsEmpty(t *testing.T) {
	for _, extra := range []map[string]string{nil, {}, {"other_key": "x"}} {
		p, err := Resolve(tenants.ProviderWooCommerce, "https://shop.example.com", "ck_key", extra)
		require.NoError(t, err)
		assert.Len(t, p, 3)
		assert.Equal(t, "", p[EnvWooCommerceAPISecret])
	}
}

func TestResolveWooCommerce(t *testing.T) {
	p, err := Resolve(tenants.ProviderWooCommerce, "https://shop.example.com", "ck_key", map[string]string{"api_secret": "xyz"})
	require.NoError(t, err)

	assert.Equal(t, Profile{
		EnvWooCommerceURL:       "https://shop.example.com",
		EnvWooCommerceAPIKey:    "ck_key",
		EnvWooCommerceAPISecret: "xyz",
	}, p)
}

func TestResolveMockIsEmpty(t *testing.T) {
	p, err := Resolve(tenants.ProviderMock, "ignored", "ignored", map[string]string{"api_secret": "ignored"})
	require.NoError(t, err)
	assert.Empty(t, p)
}

func TestResolveIsPure(t *testing.T) {
	a, err := Resolve(tenants.ProviderShopify, "acme.myshopify.com", "tok", nil)
	require.NoError(t, err)
	b, err := Resolve(tenants.ProviderShopify, "acme.myshopify.com", "tok", nil)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
