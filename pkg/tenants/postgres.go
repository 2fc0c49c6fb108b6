// pkg/tenants/postgres.go
package tenants

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// pgRegistry implements Registry backed by PostgreSQL.
type pgRegistry struct {
	dbPool *pgxpool.Pool      // Connection pool to PostgreSQL
	log    *zap.SugaredLogger // Logger for diagnostic output
}

// NewPostgresRegistry constructs a PostgreSQL-backed installation registry.
func NewPostgresRegistry(dbPool *pgxpool.Pool, log *zap.SugaredLogger) Registry {
	return &pgRegistry{dbPool: dbPool, log: log}
}

// EnsureSchema creates required tables if they do not already exist.
// Safe to call repeatedly (idempotent).
func EnsureSchema(ctx context.Context, dbPool *pgxpool.Pool) error {
	_, err := dbPool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS installations (
  id uuid PRIMARY KEY,
  business_id text UNIQUE NOT NULL,
  provider text NOT NULL,
  shop text,
  access_token text,
  admin_api_url text,
  agent_url text,
  status text NOT NULL DEFAULT 'pending',
  created_at timestamptz NOT NULL DEFAULT NOW(),
  updated_at timestamptz NOT NULL DEFAULT NOW()
);
-- Backfill / ensure new columns exist (for upgrades)
ALTER TABLE installations ADD COLUMN IF NOT EXISTS admin_api_url text;
ALTER TABLE installations ADD COLUMN IF NOT EXISTS agent_url text;
ALTER TABLE installations ADD COLUMN IF NOT EXISTS status text NOT NULL DEFAULT 'pending';
`)
	return err
}

func (p *pgRegistry) Upsert(ctx context.Context, inst Installation) error {
	if inst.ID == "" {
		inst.ID = uuid.NewString()
	}
	_, err := p.dbPool.Exec(ctx, `
INSERT INTO installations (id, business_id, provider, shop, access_token, admin_api_url, agent_url, status)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (business_id) DO UPDATE SET
  provider=EXCLUDED.provider,
  shop=EXCLUDED.shop,
  access_token=EXCLUDED.access_token,
  admin_api_url=EXCLUDED.admin_api_url,
  agent_url=EXCLUDED.agent_url,
  status=EXCLUDED.status,
  updated_at=NOW()`,
		inst.ID, inst.BusinessID, string(inst.Provider), inst.Shop, inst.AccessToken,
		inst.AdminAPIURL, inst.AgentURL, inst.Status)
	if err != nil {
		return err
	}
	p.log.Debugw("installation recorded", "business_id", inst.BusinessID, "status", inst.Status)
	return nil
}

func (p *pgRegistry) Get(ctx context.Context, businessID string) (Installation, error) {
	row := p.dbPool.QueryRow(ctx, `
SELECT id, business_id, provider, shop, COALESCE(access_token,''), COALESCE(admin_api_url,''), COALESCE(agent_url,''), status, created_at, updated_at
FROM installations WHERE business_id=$1`, businessID)
	var inst Installation
	var prov string
	err := row.Scan(&inst.ID, &inst.BusinessID, &prov, &inst.Shop, &inst.AccessToken,
		&inst.AdminAPIURL, &inst.AgentURL, &inst.Status, &inst.CreatedAt, &inst.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Installation{}, ErrNotFound
	}
	if err != nil {
		return Installation{}, err
	}
	inst.Provider = Provider(prov)
	return inst, nil
}

func (p *pgRegistry) List(ctx context.Context) ([]Installation, error) {
	rows, err := p.dbPool.Query(ctx, `
SELECT id, business_id, provider, shop, COALESCE(access_token,''), COALESCE(admin_api_url,''), COALESCE(agent_url,''), status, created_at, updated_at
FROM installations ORDER BY business_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Installation
	for rows.Next() {
		var inst Installation
		var prov string
		if err := rows.Scan(&inst.ID, &inst.BusinessID, &prov, &inst.Shop, &inst.AccessToken,
			&inst.AdminAPIURL, &inst.AgentURL, &inst.Status, &inst.CreatedAt, &inst.UpdatedAt); err != nil {
			return nil, err
		}
		inst.Provider = Provider(prov)
		out = append(out, inst)
	}
	return out, rows.Err()
}
