package terraform

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"provisor/internal/provision"
	"provisor/pkg/tenants"
)

const outputFixture = `{
  "admin_api_url": {
    "sensitive": false,
    "type": "string",
    "value": "https://admin-api-acme-uc.a.run.app"
  },
  "agent_url": {
    "sensitive": false,
    "type": "string",
    "value": "https://customer-agent-acme-uc.a.run.app"
  },
  "business_id": {
    "sensitive": false,
    "type": "string",
    "value": "acme"
  }
}`

func TestParseOutputs(t *testing.T) {
	urls, err := parseOutputs([]byte(outputFixture))
	require.NoError(t, err)
	assert.Equal(t, "https://admin-api-acme-uc.a.run.app", urls.AdminAPIURL)
	assert.Equal(t, "https://customer-agent-acme-uc.a.run.app", urls.AgentURL)
}

func TestParseOutputsMissingKey(t *testing.T) {
	_, err := parseOutputs([]byte(`{"admin_api_url":{"value":"https://x"}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "agent_url")
}

func TestParseOutputsBadJSON(t *testing.T) {
	_, err := parseOutputs([]byte("Apply complete!"))
	require.Error(t, err)
}

func TestVarArgs(t *testing.T) {
	args, err := varArgs(provision.Run{Tenant: tenants.TenantConfig{
		BusinessID:     "acme",
		Provider:       tenants.ProviderWooCommerce,
		ShopURL:        "https://shop.example.com",
		AccessToken:    "ck_key",
		ProviderConfig: map[string]string{"api_secret": "xyz"},
	}})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"-var=business_id=acme",
		"-var=ecommerce_provider=woocommerce",
		"-var=shop_url=https://shop.example.com",
		"-var=access_token=ck_key",
		`-var=provider_config={"api_secret":"xyz"}`,
	}, args)
}

func TestVarArgsNilProviderConfig(t *testing.T) {
	args, err := varArgs(provision.Run{Tenant: tenants.TenantConfig{
		BusinessID: "acme",
		Provider:   tenants.ProviderMock,
	}})
	require.NoError(t, err)
	assert.Contains(t, args, "-var=provider_config={}")
}

// stubTerraform writes a shell script that records every invocation and
// answers `output -json` with the fixture, standing in for the real CLI.
func stubTerraform(t *testing.T) (bin, argsLog string) {
	t.Helper()
	dir := t.TempDir()
	bin = filepath.Join(dir, "terraform")
	argsLog = filepath.Join(dir, "args.log")
	fixture := filepath.Join(dir, "outputs.json")
	require.NoError(t, os.WriteFile(fixture, []byte(outputFixture), 0o644))
	script := "#!/bin/sh\n" +
		"echo \"$@\" >> " + argsLog + "\n" +
		"if [ \"$1\" = output ]; then cat " + fixture + "; fi\n"
	require.NoError(t, os.WriteFile(bin, []byte(script), 0o755))
	return bin, argsLog
}

func TestApplyRunsPipelineAndParsesOutputs(t *testing.T) {
	bin, argsLog := stubTerraform(t)
	r := NewRunner(t.TempDir(), zap.NewNop().Sugar())
	r.Binary = bin
	r.ProjectID = "acme-prod"

	urls, err := r.Apply(context.Background(), provision.Run{Tenant: tenants.TenantConfig{
		BusinessID:     "acme",
		Provider:       tenants.ProviderShopify,
		ShopURL:        "https://acme.myshopify.com",
		AccessToken:    "shpat_tok",
		ProviderConfig: map[string]string{},
	}})
	require.NoError(t, err)
	assert.Equal(t, "https://admin-api-acme-uc.a.run.app", urls.AdminAPIURL)
	assert.Equal(t, "https://customer-agent-acme-uc.a.run.app", urls.AgentURL)

	raw, err := os.ReadFile(argsLog)
	require.NoError(t, err)
	calls := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, calls, 3)
	assert.Equal(t, "init -input=false", calls[0])
	assert.Contains(t, calls[1], "apply -auto-approve")
	assert.Contains(t, calls[1], "-var=business_id=acme")
	assert.Contains(t, calls[1], "-var=access_token=shpat_tok")
	assert.Contains(t, calls[1], "-var=project_id=acme-prod")
	assert.Equal(t, "output -json", calls[2])
}

func TestApplyWrapsInitFailure(t *testing.T) {
	r := NewRunner(t.TempDir(), zap.NewNop().Sugar())
	r.Binary = "false" // always exits 1

	_, err := r.Apply(context.Background(), provision.Run{Tenant: tenants.TenantConfig{
		BusinessID: "acme",
		Provider:   tenants.ProviderMock,
	}})
	var aerr *provision.ApplyError
	require.True(t, errors.As(err, &aerr))
	assert.Equal(t, "init", aerr.Stage)
}
