package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"provisor/internal/bootstrap"
	"provisor/pkg/config"
	"provisor/pkg/logger"
)

var bootstrapFlags struct {
	url               string
	username          string
	bootstrapPassword string
	newPassword       string
	attempts          int
	interval          time.Duration
	credentialsFile   string
}

var bootstrapWaitCmd = &cobra.Command{
	Use:   "bootstrap-wait",
	Short: "Wait for the shared search node, then secure it",
	Long: `Polls the search node at a fixed interval until it answers or the
attempt budget is exhausted. Exhaustion is not an error: the install pipeline
treats warmup as best effort. With --new-password the admin credential is
reset once the node is up, and --credentials-file records the connection
details (plain text; move to a secret store for production).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		log := logger.New(cfg.Env)
		defer log.Sync()

		client := &http.Client{Timeout: 5 * time.Second}
		w := bootstrap.NewWaiter(
			bootstrap.HTTPProbe(client, bootstrapFlags.url, bootstrapFlags.username, bootstrapFlags.bootstrapPassword),
			log,
		)
		w.Attempts = bootstrapFlags.attempts
		w.Interval = bootstrapFlags.interval

		ready, attempts := w.Wait(cmd.Context())
		if !ready {
			fmt.Printf("search node not ready after %d attempts, continuing\n", attempts)
			return nil
		}
		fmt.Printf("search node ready after %d attempts\n", attempts)

		password := bootstrapFlags.bootstrapPassword
		if bootstrapFlags.newPassword != "" {
			if err := bootstrap.ResetPassword(cmd.Context(), client, bootstrapFlags.url,
				bootstrapFlags.username, bootstrapFlags.bootstrapPassword, bootstrapFlags.newPassword); err != nil {
				// Non-fatal, same as the install pipeline: report and carry on.
				log.Errorw("credential reset failed", "err", err)
			} else {
				password = bootstrapFlags.newPassword
			}
		}
		if bootstrapFlags.credentialsFile != "" {
			return bootstrap.WriteCredentialsFile(bootstrapFlags.credentialsFile, bootstrap.Credentials{
				URL:      bootstrapFlags.url,
				Username: bootstrapFlags.username,
				Password: password,
			})
		}
		return nil
	},
}

func init() {
	f := bootstrapWaitCmd.Flags()
	f.StringVar(&bootstrapFlags.url, "url", "http://localhost:9200", "search node base URL")
	f.StringVar(&bootstrapFlags.username, "user", "elastic", "administrative user")
	f.StringVar(&bootstrapFlags.bootstrapPassword, "password", "", "bootstrap password used while polling")
	f.StringVar(&bootstrapFlags.newPassword, "new-password", "", "reset the admin credential to this value once up")
	f.IntVar(&bootstrapFlags.attempts, "attempts", bootstrap.DefaultAttempts, "poll attempts before giving up")
	f.DurationVar(&bootstrapFlags.interval, "interval", bootstrap.DefaultInterval, "fixed delay between polls")
	f.StringVar(&bootstrapFlags.credentialsFile, "credentials-file", "", "write connection details to this file")
	rootCmd.AddCommand(bootstrapWaitCmd)
}
