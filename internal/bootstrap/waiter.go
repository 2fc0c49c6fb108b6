// Package bootstrap brings the shared search node into service: wait for the
// HTTP port, reset the admin credential, record the connection details.
package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Defaults match the install pipeline: 30 polls, 10s apart, no backoff.
const (
	DefaultAttempts = 30
	DefaultInterval = 10 * time.Second
)

// ProbeFunc reports nil once the node is ready.
type ProbeFunc func(ctx context.Context) error

// Waiter polls a probe at a fixed interval for a fixed number of attempts.
// Exhaustion is non-fatal: callers proceed best-effort, the same way the
// install pipeline does. Cancellation is honored between polls via ctx.
type Waiter struct {
	Attempts int
	Interval time.Duration
	Probe    ProbeFunc
	Log      *zap.SugaredLogger
}

func NewWaiter(probe ProbeFunc, log *zap.SugaredLogger) *Waiter {
	return &Waiter{Attempts: DefaultAttempts, Interval: DefaultInterval, Probe: probe, Log: log}
}

// Wait returns whether the node became ready and how many polls were made.
// A probe success on attempt N returns (true, N) without further polling.
func (w *Waiter) Wait(ctx context.Context) (ready bool, attempts int) {
	for i := 1; i <= w.Attempts; i++ {
		if err := ctx.Err(); err != nil {
			w.Log.Warnw("bootstrap wait canceled", "attempts", i-1, "err", err)
			return false, i - 1
		}
		err := w.Probe(ctx)
		if err == nil {
			w.Log.Infow("search node is up", "attempts", i)
			return true, i
		}
		w.Log.Debugw("search node not ready", "attempt", i, "err", err)
		if i < w.Attempts && !sleep(ctx, w.Interval) {
			w.Log.Warnw("bootstrap wait canceled", "attempts", i)
			return false, i
		}
	}
	w.Log.Warnw("search node did not become ready, continuing anyway", "attempts", w.Attempts)
	return false, w.Attempts
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// HTTPProbe probes the node's root endpoint with basic auth. Any response
// below 500 counts as up; the node answers 401 before credentials are reset.
func HTTPProbe(client *http.Client, baseURL, username, password string) ProbeFunc {
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL, nil)
		if err != nil {
			return err
		}
		if username != "" {
			req.SetBasicAuth(username, password)
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 500 {
			return fmt.Errorf("status %d", resp.StatusCode)
		}
		return nil
	}
}

// ResetPassword sets the administrative user's password through the security
// API, authenticating with the bootstrap credential. Failures are reported to
// the caller but are treated as non-fatal by the pipeline.
func ResetPassword(ctx context.Context, client *http.Client, baseURL, username, bootstrapPassword, newPassword string) error {
	body, err := json.Marshal(map[string]string{"password": newPassword})
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/_security/user/%s/_password", baseURL, username)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(username, bootstrapPassword)
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("password reset: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("password reset: status %d", resp.StatusCode)
	}
	return nil
}
