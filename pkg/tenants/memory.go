// pkg/tenants/memory.go
package tenants

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("installation not found")

type memRegistry struct {
	log *zap.SugaredLogger
	mu  sync.RWMutex
	byB map[string]Installation
}

// NewMemoryRegistry is the dev fallback used when no DATABASE_URL is set.
// Background provisioning goroutines share it, hence the lock.
func NewMemoryRegistry(log *zap.SugaredLogger) Registry {
	return &memRegistry{log: log, byB: map[string]Installation{}}
}

func (m *memRegistry) Upsert(ctx context.Context, inst Installation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	if prev, ok := m.byB[inst.BusinessID]; ok {
		inst.ID = prev.ID
		inst.CreatedAt = prev.CreatedAt
	} else {
		if inst.ID == "" {
			inst.ID = uuid.NewString()
		}
		inst.CreatedAt = now
	}
	inst.UpdatedAt = now
	m.byB[inst.BusinessID] = inst
	m.log.Debugw("installation recorded", "business_id", inst.BusinessID, "status", inst.Status)
	return nil
}

func (m *memRegistry) Get(ctx context.Context, businessID string) (Installation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if inst, ok := m.byB[businessID]; ok {
		return inst, nil
	}
	return Installation{}, ErrNotFound
}

func (m *memRegistry) List(ctx context.Context) ([]Installation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Installation, 0, len(m.byB))
	for _, inst := range m.byB {
		out = append(out, inst)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BusinessID < out[j].BusinessID })
	return out, nil
}
