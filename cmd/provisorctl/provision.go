package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"provisor/internal/provision"
	"provisor/internal/terraform"
	"provisor/pkg/config"
	"provisor/pkg/logger"
	"provisor/pkg/tenants"
)

var provisionFlags struct {
	businessID  string
	provider    string
	shopURL     string
	accessToken string
	extra       map[string]string
	plan        bool
}

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Provision the service pair for one tenant",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		log := logger.New(cfg.Env)
		defer log.Sync()

		stack, err := config.LoadStackProfile(cfg.StackProfilePath)
		if err != nil {
			return err
		}
		provider, err := tenants.ParseProvider(provisionFlags.provider)
		if err != nil {
			return err
		}
		tc := tenants.TenantConfig{
			BusinessID:     provisionFlags.businessID,
			Provider:       provider,
			ShopURL:        provisionFlags.shopURL,
			AccessToken:    provisionFlags.accessToken,
			ProviderConfig: provisionFlags.extra,
		}

		runner := terraform.NewRunner(cfg.TerraformDir, log)
		runner.ProjectID = stack.ProjectID
		p := provision.New(log, stack, runner)
		if provisionFlags.plan {
			decls, err := p.Declarations(tc)
			if err != nil {
				return err
			}
			return printPlan(decls)
		}

		urls, err := p.Provision(cmd.Context(), tc)
		if err != nil {
			return err
		}
		fmt.Printf("admin_api_url: %s\nagent_url:     %s\n", urls.AdminAPIURL, urls.AgentURL)
		return nil
	},
}

// secretEnvKeys are masked in plan output; the real values only ever travel
// to the infrastructure tool.
var secretEnvKeys = map[string]bool{
	"SHOPIFY_ACCESS_TOKEN":   true,
	"WOOCOMMERCE_API_KEY":    true,
	"WOOCOMMERCE_API_SECRET": true,
	"ELASTICSEARCH_PASSWORD": true,
}

func printPlan(decls []provision.ServiceDeclaration) error {
	masked := make([]provision.ServiceDeclaration, len(decls))
	for i, d := range decls {
		env := make(map[string]string, len(d.Env))
		for k, v := range d.Env {
			if secretEnvKeys[k] && v != "" {
				v = "****"
			}
			env[k] = v
		}
		d.Env = env
		masked[i] = d
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(masked)
}

func init() {
	f := provisionCmd.Flags()
	f.StringVar(&provisionFlags.businessID, "business-id", "", "tenant business id (lowercase alphanumeric plus hyphens)")
	f.StringVar(&provisionFlags.provider, "provider", "", "e-commerce provider: shopify, woocommerce or mock")
	f.StringVar(&provisionFlags.shopURL, "shop-url", "", "shop URL for the provider integration")
	f.StringVar(&provisionFlags.accessToken, "access-token", "", "provider access token (kept out of logs)")
	f.StringToStringVar(&provisionFlags.extra, "set", nil, "extra provider config as key=value (e.g. api_secret=...)")
	f.BoolVar(&provisionFlags.plan, "plan", false, "print the computed service declarations without applying")
	_ = provisionCmd.MarkFlagRequired("business-id")
	_ = provisionCmd.MarkFlagRequired("provider")
	rootCmd.AddCommand(provisionCmd)
}
