package metadata

import "context"

// Repository indexes and queries metadata documents keyed by
// (entityType, entityID). entityType is a collection discriminator —
// "transactions" or "accounts" in this service.
type Repository interface {
	Upsert(ctx context.Context, entityType, entityID string, data map[string]any) error
	FindByEntity(ctx context.Context, entityType, entityID string) (*Document, error)
	Query(ctx context.Context, entityType string, filter map[string]any, limit, skip int64) ([]*Document, error)
	Delete(ctx context.Context, entityType, entityID string) error
}
