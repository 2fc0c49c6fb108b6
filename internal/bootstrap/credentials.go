package bootstrap

import (
	"fmt"
	"os"
)

// Credentials is what the bootstrap run hands to operators once the node is
// secured.
type Credentials struct {
	URL      string
	Username string
	Password string
}

// WriteCredentialsFile records the connection details as plain text, the
// format downstream provisioning reads today. The file contains the password
// in the clear — a known weakness of the current pipeline; production setups
// must move this into a secret store.
func WriteCredentialsFile(path string, c Credentials) error {
	body := fmt.Sprintf(`Elasticsearch connection details
================================
URL:      %s
Username: %s
Password: %s

Test with:
  curl -u %s:%s %s
`, c.URL, c.Username, c.Password, c.Username, c.Password, c.URL)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		return fmt.Errorf("write credentials file: %w", err)
	}
	return nil
}
