package tenants

import (
	"context"
)

type Registry interface {
	// Upsert writes the installation keyed by business id.
	Upsert(ctx context.Context, inst Installation) error
	// Get resolves an installation by business id.
	Get(ctx context.Context, businessID string) (Installation, error)
	// List returns all recorded installations.
	List(ctx context.Context) ([]Installation, error)
}
