package ports

import (
	"context"
	"time"

	"github.com/nexora/backend/internal/domain/models"
)

// IVRFlowRepository stores flow documents. Every call is scoped to one tenant.
type IVRFlowRepository interface {
	// Get returns NotFoundError when the flow does not exist for the tenant.
	Get(ctx context.Context, tenantID, id string) (*models.IVRFlow, error)
	List(ctx context.Context, tenantID string) ([]models.IVRFlowSummary, error)
	// Create stores flow at version 1; an existing id is a ConflictError.
	Create(ctx context.Context, flow *models.IVRFlow) error
	// Update replaces the stored document when its version equals
	// expectedVersion and bumps the version. A stale version is a ConflictError.
	Update(ctx context.Context, flow *models.IVRFlow, expectedVersion int64) error
	Delete(ctx context.Context, tenantID, id string) error
}

// FlowCache holds recently read flows
type FlowCache interface {
	// Get reports a miss as (nil, nil)
	Get(ctx context.Context, tenantID, id string) (*models.IVRFlow, error)
	// Set stores flow unless the cache already holds the same or a newer
	// version of it, so a slow reader cannot overwrite a fresher save.
	Set(ctx context.Context, flow *models.IVRFlow) error
	Invalidate(ctx context.Context, tenantID, id string) error
}

// UnlockFunc releases a lock taken by Locker
type UnlockFunc func(ctx context.Context) error

// Locker serializes writers of the same key across server replicas
type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
