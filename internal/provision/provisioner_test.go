package provision

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"provisor/pkg/config"
	"provisor/pkg/tenants"
)

type fakeApplier struct {
	runs []Run
	urls ServiceURLs
	err  error
}

func (f *fakeApplier) Apply(_ context.Context, run Run) (ServiceURLs, error) {
	f.runs = append(f.runs, run)
	return f.urls, f.err
}

func testStack() config.StackProfile {
	return config.StackProfile{
		ProjectID:      "test-project",
		Location:       "us-central1",
		SearchProvider: "elasticsearch",
		UseVertexAI:    true,
		AdminAPIImage:  "gcr.io/test-project/admin-api",
		AgentImage:     "gcr.io/test-project/customer-agent",
		Search: config.SearchBackend{
			URL:         "http://search.internal:9200",
			Username:    "elastic",
			Password:    "s3cret",
			VerifyCerts: false,
		},
	}
}

func newTestProvisioner(a Applier) *Provisioner {
	return New(zap.NewNop().Sugar(), testStack(), a)
}

func TestDeclarationsNamesAreDeterministic(t *testing.T) {
	p := newTestProvisioner(&fakeApplier{})
	decls, err := p.Declarations(tenants.TenantConfig{BusinessID: "acme", Provider: tenants.ProviderMock})
	require.NoError(t, err)
	require.Len(t, decls, 2)

	assert.Equal(t, "admin-api-acme", decls[0].Name)
	assert.Equal(t, "customer-agent-acme", decls[1].Name)
	assert.NotEqual(t, decls[0].Name, decls[1].Name)
	assert.Equal(t, "gcr.io/test-project/admin-api", decls[0].Image)
	assert.Equal(t, "gcr.io/test-project/customer-agent", decls[1].Image)
}

func TestDeclarationsMockStillGetsSharedVars(t *testing.T) {
	p := newTestProvisioner(&fakeApplier{})
	decls, err := p.Declarations(tenants.TenantConfig{BusinessID: "acme", Provider: tenants.ProviderMock})
	require.NoError(t, err)

	for _, d := range decls {
		assert.Equal(t, "acme", d.Env["BUSINESS_ID"])
		assert.Equal(t, "mock", d.Env["INTEGRATION_MODE"])
		assert.Equal(t, "elasticsearch", d.Env["SEARCH_PROVIDER"])
		assert.Equal(t, "test-project", d.Env["GOOGLE_CLOUD_PROJECT"])
		assert.Equal(t, "us-central1", d.Env["GOOGLE_CLOUD_LOCATION"])
		assert.Equal(t, "1", d.Env["GOOGLE_GENAI_USE_VERTEXAI"])
		assert.Equal(t, "http://search.internal:9200", d.Env["ELASTICSEARCH_URL"])
		assert.Equal(t, "elastic", d.Env["ELASTICSEARCH_USER"])
		assert.Equal(t, "s3cret", d.Env["ELASTICSEARCH_PASSWORD"])
		assert.Equal(t, "0", d.Env["ELASTICSEARCH_VERIFY_CERTS"])
		// mock contributes no provider variables
		assert.NotContains(t, d.Env, "SHOPIFY_SHOP_URL")
	}
}

func TestDeclarationsMergeProviderProfile(t *testing.T) {
	p := newTestProvisioner(&fakeApplier{})
	decls, err := p.Declarations(tenants.TenantConfig{
		BusinessID:  "acme",
		Provider:    tenants.ProviderShopify,
		ShopURL:     "acme.myshopify.com",
		AccessToken: "shpat_tok",
	})
	require.NoError(t, err)

	for _, d := range decls {
		assert.Equal(t, "acme.myshopify.com", d.Env["SHOPIFY_SHOP_URL"])
		assert.Equal(t, "shpat_tok", d.Env["SHOPIFY_ACCESS_TOKEN"])
		assert.True(t, d.AllowUnauthenticated)
	}
}

func TestDeclarationsDoNotAliasEnvMaps(t *testing.T) {
	p := newTestProvisioner(&fakeApplier{})
	decls, err := p.Declarations(tenants.TenantConfig{BusinessID: "acme", Provider: tenants.ProviderMock})
	require.NoError(t, err)

	decls[0].Env["BUSINESS_ID"] = "mutated"
	assert.Equal(t, "acme", decls[1].Env["BUSINESS_ID"])
}

func TestDeclarationsIdempotent(t *testing.T) {
	p := newTestProvisioner(&fakeApplier{})
	cfg := tenants.TenantConfig{
		BusinessID:     "acme",
		Provider:       tenants.ProviderWooCommerce,
		ShopURL:        "https://shop.example.com",
		AccessToken:    "ck_key",
		ProviderConfig: map[string]string{"api_secret": "xyz"},
	}
	first, err := p.Declarations(cfg)
	require.NoError(t, err)
	second, err := p.Declarations(cfg)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestProvisionFailsFastOnBadConfig(t *testing.T) {
	applier := &fakeApplier{}
	p := newTestProvisioner(applier)

	_, err := p.Provision(context.Background(), tenants.TenantConfig{BusinessID: "acme", Provider: "bigcommerce"})
	require.Error(t, err)

	var cerr *tenants.ConfigurationError
	assert.True(t, errors.As(err, &cerr))
	assert.Empty(t, applier.runs, "applier must not be touched on validation failure")
}

func TestProvisionReturnsAppliedURLs(t *testing.T) {
	applier := &fakeApplier{urls: ServiceURLs{
		AdminAPIURL: "https://admin-api-acme-abc.a.run.app",
		AgentURL:    "https://customer-agent-acme-abc.a.run.app",
	}}
	p := newTestProvisioner(applier)

	urls, err := p.Provision(context.Background(), tenants.TenantConfig{BusinessID: "acme", Provider: tenants.ProviderMock})
	require.NoError(t, err)
	assert.Equal(t, applier.urls, urls)
	require.Len(t, applier.runs, 1)
	assert.Equal(t, "acme", applier.runs[0].Tenant.BusinessID)
	require.Len(t, applier.runs[0].Services, 2)
}

func TestProvisionPropagatesApplyError(t *testing.T) {
	applier := &fakeApplier{err: &ApplyError{Stage: "apply", Err: errors.New("exit status 1")}}
	p := newTestProvisioner(applier)

	_, err := p.Provision(context.Background(), tenants.TenantConfig{BusinessID: "acme", Provider: tenants.ProviderMock})
	var aerr *ApplyError
	require.True(t, errors.As(err, &aerr))
	assert.Equal(t, "apply", aerr.Stage)
}
