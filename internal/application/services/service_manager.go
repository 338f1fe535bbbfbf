package services

import (
	"context"
	"fmt"
	"log"

	"github.com/nexora/backend/internal/domain/events"
	"github.com/nexora/backend/internal/domain/ports"
	"github.com/nexora/backend/internal/infrastructure/metrics"
)

// Dependencies are the adapters the services run on. Cache and Locker may be
// nil for a single process without Redis.
type Dependencies struct {
	Repo    ports.IVRFlowRepository
	Cache   ports.FlowCache
	Locker  ports.Locker
	Metrics *metrics.Metrics
	Retry   RetryPolicy
}

// ServiceManager orchestrates all services with dependency injection
type ServiceManager struct {
	EventBus *EventBus
	Flows    *IVRFlowService
	Metrics  *metrics.Metrics

	cache ports.FlowCache
}

// NewServiceManager creates a new service manager with all dependencies wired
func NewServiceManager(deps Dependencies) *ServiceManager {
	if deps.Retry.MaxAttempts == 0 {
		deps.Retry = DefaultRetryPolicy()
	}

	sm := &ServiceManager{
		EventBus: NewEventBus(),
		Metrics:  deps.Metrics,
		cache:    deps.Cache,
	}

	sm.Flows = NewIVRFlowService(deps.Repo, sm.EventBus,
		WithCache(deps.Cache),
		WithLocker(deps.Locker),
		WithMetrics(deps.Metrics),
		WithRetryPolicy(deps.Retry),
	)

	sm.registerFlowHandlers()
	return sm
}

// registerFlowHandlers keeps the flow cache in step with saves and deletes.
// A saved flow replaces the cached copy; if that write fails the entry is
// dropped instead.
func (sm *ServiceManager) registerFlowHandlers() {
	payloadOf := func(payload interface{}) (events.IVRFlowEvent, error) {
		ev, ok := payload.(events.IVRFlowEvent)
		if !ok {
			return ev, fmt.Errorf("unexpected IVR flow event payload %T", payload)
		}
		return ev, nil
	}

	sm.EventBus.Subscribe(events.IVRFlowSaved, func(ctx context.Context, payload interface{}) error {
		ev, err := payloadOf(payload)
		if err != nil {
			return err
		}
		log.Printf("📦 IVR flow %s saved (tenant %s, version %d)", ev.FlowID, ev.TenantID, ev.Version)
		if sm.cache == nil {
			return nil
		}
		if ev.Flow != nil {
			err := sm.cache.Set(ctx, ev.Flow)
			if err == nil {
				return nil
			}
			log.Printf("⚠️  Flow cache write failed for %s: %v", ev.FlowID, err)
		}
		return sm.cache.Invalidate(ctx, ev.TenantID, ev.FlowID)
	})

	sm.EventBus.Subscribe(events.IVRFlowDeleted, func(ctx context.Context, payload interface{}) error {
		ev, err := payloadOf(payload)
		if err != nil {
			return err
		}
		log.Printf("🗑️  IVR flow %s removed from cache (tenant %s)", ev.FlowID, ev.TenantID)
		if sm.cache == nil {
			return nil
		}
		return sm.cache.Invalidate(ctx, ev.TenantID, ev.FlowID)
	})
}
