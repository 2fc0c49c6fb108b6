package provisionapi

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Run states reported through /provision/status.
const (
	StatePending      = "pending"
	StateProvisioning = "provisioning"
	StateReady        = "ready"
	StateFailed       = "failed"
)

// RunStatus is the externally visible state of one provisioning run.
type RunStatus struct {
	BusinessID  string    `json:"business_id"`
	State       string    `json:"state"`
	AdminAPIURL string    `json:"admin_api_url,omitempty"`
	AgentURL    string    `json:"agent_url,omitempty"`
	Error       string    `json:"error,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

const statusTTL = 24 * time.Hour

// StatusStore keeps run status in redis so status survives service restarts
// during long background provisions. With no redis configured it degrades to
// an in-process map, which is enough for dev.
type StatusStore struct {
	rdb *redis.Client

	mu  sync.RWMutex
	mem map[string]RunStatus
}

func NewStatusStore(rdb *redis.Client) *StatusStore {
	return &StatusStore{rdb: rdb, mem: map[string]RunStatus{}}
}

func statusKey(businessID string) string { return "provision:" + businessID }

func (s *StatusStore) Set(ctx context.Context, st RunStatus) error {
	st.UpdatedAt = time.Now().UTC()
	if s.rdb == nil {
		s.mu.Lock()
		s.mem[st.BusinessID] = st
		s.mu.Unlock()
		return nil
	}
	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, statusKey(st.BusinessID), raw, statusTTL).Err()
}

func (s *StatusStore) Get(ctx context.Context, businessID string) (RunStatus, bool, error) {
	if s.rdb == nil {
		s.mu.RLock()
		st, ok := s.mem[businessID]
		s.mu.RUnlock()
		return st, ok, nil
	}
	raw, err := s.rdb.Get(ctx, statusKey(businessID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return RunStatus{}, false, nil
	}
	if err != nil {
		return RunStatus{}, false, err
	}
	var st RunStatus
	if err := json.Unmarshal(raw, &st); err != nil {
		return RunStatus{}, false, err
	}
	return st, true, nil
}
