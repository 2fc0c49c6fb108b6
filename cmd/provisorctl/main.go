// provisorctl is the operator CLI for the tenant provisioning plane.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "provisorctl",
	Short: "Operate the tenant provisioning plane",
	Long: `provisorctl provisions per-tenant services and bootstraps the shared
search node. Provisioning applies the terraform definition for one tenant;
bootstrap-wait polls a freshly installed search node until it answers.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
