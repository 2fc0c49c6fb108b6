// Package provision turns a tenant config into per-tenant service
// declarations and applies them through a pluggable infrastructure backend.
package provision

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"provisor/internal/profile"
	"provisor/pkg/config"
	"provisor/pkg/tenants"
)

// Service kinds provisioned for every tenant.
const (
	KindAdminAPI = "admin-api"
	KindAgent    = "customer-agent"
)

// ServiceDeclaration describes one deployable unit before it is applied to
// the cloud control plane: image, merged environment, access policy.
type ServiceDeclaration struct {
	Name  string            `json:"name"`
	Image string            `json:"image"`
	Env   map[string]string `json:"env"`
	// Both tenant services are reachable without platform auth in the
	// current design.
	AllowUnauthenticated bool `json:"allow_unauthenticated"`
}

// Run is one provisioning unit of work handed to an Applier: the raw tenant
// input (terraform consumes variables) plus the computed declarations.
type Run struct {
	Tenant   tenants.TenantConfig
	Services []ServiceDeclaration
}

// ServiceURLs are the addresses of the two applied services.
type ServiceURLs struct {
	AdminAPIURL string `json:"admin_api_url"`
	AgentURL    string `json:"agent_url"`
}

// Applier applies a run against real infrastructure. Implementations are
// expected to be idempotent on re-apply; they are NOT expected to roll back,
// so a failure mid-apply can leave the first service created without the
// second. Callers surface that by re-running with the same config.
type Applier interface {
	Apply(ctx context.Context, run Run) (ServiceURLs, error)
}

// ApplyError wraps an infrastructure apply failure. Partial state is
// possible; Output carries the tail of the tool's output for the operator.
type ApplyError struct {
	Stage  string // init | apply | output
	Output string
	Err    error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("apply (%s): %v", e.Stage, e.Err)
}

func (e *ApplyError) Unwrap() error { return e.Err }

// Provisioner builds and applies per-tenant service declarations.
type Provisioner struct {
	log     *zap.SugaredLogger
	stack   config.StackProfile
	applier Applier
}

func New(log *zap.SugaredLogger, stack config.StackProfile, applier Applier) *Provisioner {
	return &Provisioner{log: log, stack: stack, applier: applier}
}

// Declarations is the pure computation layer: validate, resolve the provider
// profile, merge environments and name the services. Deterministic for a
// given tenant config and stack profile.
func (p *Provisioner) Declarations(cfg tenants.TenantConfig) ([]ServiceDeclaration, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	prof, err := profile.Resolve(cfg.Provider, cfg.ShopURL, cfg.AccessToken, cfg.ProviderConfig)
	if err != nil {
		return nil, err
	}

	decls := make([]ServiceDeclaration, 0, 2)
	for _, kind := range []string{KindAdminAPI, KindAgent} {
		image := p.stack.AdminAPIImage
		if kind == KindAgent {
			image = p.stack.AgentImage
		}
		decls = append(decls, ServiceDeclaration{
			Name:                 ServiceName(kind, cfg.BusinessID),
			Image:                image,
			Env:                  p.mergedEnv(cfg, prof),
			AllowUnauthenticated: true,
		})
	}
	return decls, nil
}

// Provision computes the declarations and applies them. Validation failures
// return before the applier is touched.
func (p *Provisioner) Provision(ctx context.Context, cfg tenants.TenantConfig) (ServiceURLs, error) {
	decls, err := p.Declarations(cfg)
	if err != nil {
		return ServiceURLs{}, err
	}
	start := time.Now()
	p.log.Infow("provisioning tenant",
		"business_id", cfg.BusinessID,
		"provider", string(cfg.Provider),
		"services", []string{decls[0].Name, decls[1].Name})

	urls, err := p.applier.Apply(ctx, Run{Tenant: cfg, Services: decls})
	if err != nil {
		p.log.Errorw("provisioning failed", "business_id", cfg.BusinessID, "err", err)
		return ServiceURLs{}, err
	}
	p.log.Infow("provisioning complete",
		"business_id", cfg.BusinessID,
		"admin_api_url", urls.AdminAPIURL,
		"agent_url", urls.AgentURL,
		"took", time.Since(start))
	return urls, nil
}

// ServiceName derives the deterministic service name for a kind/tenant pair,
// e.g. ("admin-api", "acme") -> "admin-api-acme".
func ServiceName(kind, businessID string) string {
	return kind + "-" + businessID
}

// mergedEnv assembles the full container environment: fixed core vars, the
// provider profile and the shared search backend triple. Each declaration
// gets its own copy so applied runs never alias maps.
func (p *Provisioner) mergedEnv(cfg tenants.TenantConfig, prof profile.Profile) map[string]string {
	env := map[string]string{
		"BUSINESS_ID":                cfg.BusinessID,
		"INTEGRATION_MODE":           string(cfg.Provider),
		"SEARCH_PROVIDER":            p.stack.SearchProvider,
		"GOOGLE_CLOUD_PROJECT":       p.stack.ProjectID,
		"GOOGLE_CLOUD_LOCATION":      p.stack.Location,
		"GOOGLE_GENAI_USE_VERTEXAI":  boolFlag(p.stack.UseVertexAI),
		"ELASTICSEARCH_URL":          p.stack.Search.URL,
		"ELASTICSEARCH_USER":         p.stack.Search.Username,
		"ELASTICSEARCH_PASSWORD":     p.stack.Search.Password,
		"ELASTICSEARCH_VERIFY_CERTS": boolFlag(p.stack.Search.VerifyCerts),
	}
	for k, v := range prof {
		env[k] = v
	}
	return env
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
