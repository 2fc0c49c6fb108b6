package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SearchBackend is the shared search node every tenant service talks to.
// Credentials are injected here (file or env), never hard-coded; production
// deployments are expected to resolve the password from a secret store and
// pass it via ELASTICSEARCH_PASSWORD.
type SearchBackend struct {
	URL         string `yaml:"url"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	VerifyCerts bool   `yaml:"verify_certs"`
}

// StackProfile carries the fixed, tenant-independent settings stamped into
// every provisioned service: cloud project/location, container images and the
// shared search backend connection.
type StackProfile struct {
	ProjectID      string        `yaml:"project_id"`
	Location       string        `yaml:"location"`
	SearchProvider string        `yaml:"search_provider"`
	UseVertexAI    bool          `yaml:"use_vertex_ai"`
	AdminAPIImage  string        `yaml:"admin_api_image"`
	AgentImage     string        `yaml:"agent_image"`
	Search         SearchBackend `yaml:"search"`
}

// LoadStackProfile reads the yaml profile at path (optional), applies env
// overrides on top and validates the result. Env wins over file so a single
// profile file can be shared across environments.
func LoadStackProfile(path string) (StackProfile, error) {
	p := StackProfile{
		Location:       "us-central1",
		SearchProvider: "elasticsearch",
		UseVertexAI:    true,
		Search:         SearchBackend{Username: "elastic", VerifyCerts: true},
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return StackProfile{}, fmt.Errorf("stack profile %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &p); err != nil {
			return StackProfile{}, fmt.Errorf("stack profile %s: %w", path, err)
		}
	}

	p.ProjectID = env("GOOGLE_CLOUD_PROJECT", p.ProjectID)
	p.Location = env("GOOGLE_CLOUD_LOCATION", p.Location)
	p.SearchProvider = env("SEARCH_PROVIDER", p.SearchProvider)
	p.UseVertexAI = envBool("GOOGLE_GENAI_USE_VERTEXAI", p.UseVertexAI)
	p.AdminAPIImage = env("ADMIN_API_IMAGE", p.AdminAPIImage)
	p.AgentImage = env("AGENT_IMAGE", p.AgentImage)
	p.Search.URL = env("ELASTICSEARCH_URL", p.Search.URL)
	p.Search.Username = env("ELASTICSEARCH_USER", p.Search.Username)
	p.Search.Password = env("ELASTICSEARCH_PASSWORD", p.Search.Password)
	p.Search.VerifyCerts = envBool("ELASTICSEARCH_VERIFY_CERTS", p.Search.VerifyCerts)

	if p.AdminAPIImage == "" && p.ProjectID != "" {
		p.AdminAPIImage = fmt.Sprintf("gcr.io/%s/admin-api", p.ProjectID)
	}
	if p.AgentImage == "" && p.ProjectID != "" {
		p.AgentImage = fmt.Sprintf("gcr.io/%s/customer-agent", p.ProjectID)
	}
	if err := p.Validate(); err != nil {
		return StackProfile{}, err
	}
	return p, nil
}

// Validate reports the first missing required field.
func (p StackProfile) Validate() error {
	switch {
	case p.ProjectID == "":
		return fmt.Errorf("stack profile: project_id is required")
	case p.Location == "":
		return fmt.Errorf("stack profile: location is required")
	case p.AdminAPIImage == "":
		return fmt.Errorf("stack profile: admin_api_image is required")
	case p.AgentImage == "":
		return fmt.Errorf("stack profile: agent_image is required")
	case p.Search.URL == "":
		return fmt.Errorf("stack profile: search.url is required")
	}
	return nil
}
