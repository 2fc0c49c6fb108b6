// Package terraform applies tenant runs by shelling out to the terraform CLI
// over the per-tenant infrastructure definition.
package terraform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/jmespath/go-jmespath"
	"go.uber.org/zap"

	"provisor/internal/provision"
)

// Runner implements provision.Applier with terraform init/apply/output.
// Terraform's own state gives re-apply idempotence; there is no rollback, so
// a failure after the first service is created leaves it standing.
type Runner struct {
	Dir    string // working directory with the .tf definition
	Binary string // defaults to "terraform"
	// ProjectID overrides the definition's default project when set.
	ProjectID string
	log       *zap.SugaredLogger
}

func NewRunner(dir string, log *zap.SugaredLogger) *Runner {
	return &Runner{Dir: dir, Binary: "terraform", log: log}
}

func (r *Runner) Apply(ctx context.Context, run provision.Run) (provision.ServiceURLs, error) {
	vars, err := varArgs(run)
	if err != nil {
		return provision.ServiceURLs{}, err
	}
	if r.ProjectID != "" {
		vars = append(vars, "-var=project_id="+r.ProjectID)
	}

	r.log.Infow("terraform init", "dir", r.Dir)
	if out, err := r.exec(ctx, "init", "-input=false"); err != nil {
		return provision.ServiceURLs{}, &provision.ApplyError{Stage: "init", Output: tail(out), Err: err}
	}

	// Secrets travel as -var values; never log the argument list.
	r.log.Infow("terraform apply", "dir", r.Dir, "business_id", run.Tenant.BusinessID)
	args := append([]string{"apply", "-auto-approve", "-input=false"}, vars...)
	if out, err := r.exec(ctx, args...); err != nil {
		return provision.ServiceURLs{}, &provision.ApplyError{Stage: "apply", Output: tail(out), Err: err}
	}

	out, err := r.exec(ctx, "output", "-json")
	if err != nil {
		return provision.ServiceURLs{}, &provision.ApplyError{Stage: "output", Output: tail(out), Err: err}
	}
	urls, err := parseOutputs(out)
	if err != nil {
		return provision.ServiceURLs{}, &provision.ApplyError{Stage: "output", Output: tail(out), Err: err}
	}
	return urls, nil
}

func (r *Runner) exec(ctx context.Context, args ...string) ([]byte, error) {
	bin := r.Binary
	if bin == "" {
		bin = "terraform"
	}
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = r.Dir
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	return buf.Bytes(), err
}

// varArgs builds the -var flags for one run. provider_config is passed as a
// JSON object literal, which terraform accepts for map(string) variables.
func varArgs(run provision.Run) ([]string, error) {
	t := run.Tenant
	pc := t.ProviderConfig
	if pc == nil {
		pc = map[string]string{}
	}
	raw, err := json.Marshal(pc)
	if err != nil {
		return nil, fmt.Errorf("encode provider_config: %w", err)
	}
	return []string{
		"-var=business_id=" + t.BusinessID,
		"-var=ecommerce_provider=" + string(t.Provider),
		"-var=shop_url=" + t.ShopURL,
		"-var=access_token=" + t.AccessToken,
		"-var=provider_config=" + string(raw),
	}, nil
}

// parseOutputs extracts the service URLs from `terraform output -json`.
func parseOutputs(raw []byte) (provision.ServiceURLs, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return provision.ServiceURLs{}, fmt.Errorf("decode outputs: %w", err)
	}
	admin, err := stringAt(doc, "admin_api_url.value")
	if err != nil {
		return provision.ServiceURLs{}, err
	}
	agent, err := stringAt(doc, "agent_url.value")
	if err != nil {
		return provision.ServiceURLs{}, err
	}
	return provision.ServiceURLs{AdminAPIURL: admin, AgentURL: agent}, nil
}

func stringAt(doc any, path string) (string, error) {
	v, err := jmespath.Search(path, doc)
	if err != nil {
		return "", fmt.Errorf("outputs %s: %w", path, err)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("outputs %s: missing or not a string", path)
	}
	return s, nil
}

func tail(out []byte) string {
	const max = 2048
	s := strings.TrimSpace(string(out))
	if len(s) > max {
		s = "…" + s[len(s)-max:]
	}
	return s
}
