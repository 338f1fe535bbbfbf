package bootstrap

import (
	"context"
	"fmt"
	"log"

	"github.com/nexora/backend/internal/domain/ivr"
	"github.com/nexora/backend/internal/domain/models"
	"github.com/nexora/backend/pkg/auth"
	appErrors "github.com/nexora/backend/pkg/errors"
)

// Migrator is the schema side of the database connection
type Migrator interface {
	Migrate() error
	MigrationVersion() (int64, error)
}

// FlowStore is the part of the flow service used for seeding
type FlowStore interface {
	Get(ctx context.Context, tenantID, id string) (*models.IVRFlow, error)
	Create(ctx context.Context, user auth.UserSession, flow *models.IVRFlow) (*models.IVRFlow, error)
}

// InitializeSchema applies all pending migrations
func InitializeSchema(db Migrator) error {
	log.Println("🔧 Initializing schema...")
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	version, err := db.MigrationVersion()
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	log.Printf("   ✅ Schema at version %d", version)
	return nil
}

// SeedSampleFlow creates the sample flow for tenantID unless it already exists.
// An edited sample is left alone.
func SeedSampleFlow(ctx context.Context, flows FlowStore, tenantID string) error {
	log.Println("🔧 Initializing sample IVR flow...")

	sample := ivr.SampleFlow()
	_, err := flows.Get(ctx, tenantID, sample.ID)
	if err == nil {
		log.Printf("   🔄 Flow %s already exists, skipping", sample.Name)
		return nil
	}
	if !appErrors.IsNotFound(err) {
		return fmt.Errorf("failed to look up sample flow: %w", err)
	}

	system := auth.UserSession{ID: "system", Name: "System", TenantID: tenantID, Role: auth.RoleAdmin}
	if _, err := flows.Create(ctx, system, sample); err != nil {
		if appErrors.IsConflict(err) {
			// another replica seeded it first
			return nil
		}
		return fmt.Errorf("failed to create sample flow: %w", err)
	}
	log.Printf("   ✅ Flow %s created", sample.Name)
	return nil
}
