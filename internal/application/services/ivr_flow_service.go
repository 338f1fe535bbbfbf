package services

import (
	"context"
	"log"
	"time"

	"github.com/nexora/backend/internal/domain/events"
	"github.com/nexora/backend/internal/domain/ivr"
	"github.com/nexora/backend/internal/domain/models"
	"github.com/nexora/backend/internal/domain/ports"
	"github.com/nexora/backend/internal/infrastructure/metrics"
	"github.com/nexora/backend/pkg/auth"
	"github.com/nexora/backend/pkg/constants"
	appErrors "github.com/nexora/backend/pkg/errors"
	"github.com/nexora/backend/pkg/utils"
)

// How long a writer waits for the save lock of a flow
const defaultLockWait = 5 * time.Second

// IVRFlowService reads and writes IVR flows for one tenant at a time.
// Every write is validated before storage is touched, serialized per flow by
// the Locker and retried on transient storage failures.
type IVRFlowService struct {
	repo    ports.IVRFlowRepository
	events  ports.EventPublisher
	cache   ports.FlowCache
	locker  ports.Locker
	metrics *metrics.Metrics
	retry   RetryPolicy
	eval    ivr.ConditionEvaluator

	lockTTL  time.Duration
	lockWait time.Duration
}

type FlowOption func(*IVRFlowService)

// WithCache enables read-through caching; nil disables it.
func WithCache(c ports.FlowCache) FlowOption {
	return func(s *IVRFlowService) { s.cache = c }
}

// WithLocker serializes writers of the same flow; nil disables locking.
func WithLocker(l ports.Locker) FlowOption {
	return func(s *IVRFlowService) { s.locker = l }
}

func WithMetrics(m *metrics.Metrics) FlowOption {
	return func(s *IVRFlowService) { s.metrics = m }
}

func WithRetryPolicy(p RetryPolicy) FlowOption {
	return func(s *IVRFlowService) { s.retry = p }
}

// WithLockWait bounds how long a writer waits for a busy flow.
func WithLockWait(d time.Duration) FlowOption {
	return func(s *IVRFlowService) { s.lockWait = d }
}

// WithConditionEvaluator replaces the engine used for hours conditions in traces.
func WithConditionEvaluator(e ivr.ConditionEvaluator) FlowOption {
	return func(s *IVRFlowService) { s.eval = e }
}

// NewIVRFlowService creates a new IVRFlowService
func NewIVRFlowService(repo ports.IVRFlowRepository, publisher ports.EventPublisher, opts ...FlowOption) *IVRFlowService {
	s := &IVRFlowService{
		repo:     repo,
		events:   publisher,
		retry:    DefaultRetryPolicy(),
		lockTTL:  constants.SaveLockTTLSec * time.Second,
		lockWait: defaultLockWait,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns a flow, from the cache when possible.
func (s *IVRFlowService) Get(ctx context.Context, tenantID, id string) (*models.IVRFlow, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, tenantID, id)
		if err != nil {
			log.Printf("⚠️  Flow cache read failed for %s: %v", id, err)
		} else if cached != nil {
			s.metrics.CacheLookup(true)
			return cached, nil
		}
		s.metrics.CacheLookup(false)
	}

	var flow *models.IVRFlow
	err := withRetry(ctx, s.retry, s.metrics, "get flow", func() error {
		var err error
		flow, err = s.repo.Get(ctx, tenantID, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, flow); err != nil {
			log.Printf("⚠️  Flow cache write failed for %s: %v", id, err)
		}
	}
	return flow, nil
}

func (s *IVRFlowService) List(ctx context.Context, tenantID string) ([]models.IVRFlowSummary, error) {
	var list []models.IVRFlowSummary
	err := withRetry(ctx, s.retry, s.metrics, "list flows", func() error {
		var err error
		list, err = s.repo.List(ctx, tenantID)
		return err
	})
	return list, err
}

// Validate checks a draft without saving it.
func (s *IVRFlowService) Validate(flow *models.IVRFlow) ivr.Report {
	return ivr.ValidateModel(flow)
}

// prepare validates flow and returns its canonical wire form.
func (s *IVRFlowService) prepare(flow *models.IVRFlow) (*models.IVRFlow, error) {
	if err := ivr.ValidateModel(flow).Err(); err != nil {
		return nil, err
	}
	doc, err := ivr.FromModel(flow)
	if err != nil {
		return nil, err
	}
	return doc.ToModel(), nil
}

// Create stores a new flow at version 1. An empty id is generated.
func (s *IVRFlowService) Create(ctx context.Context, user auth.UserSession, flow *models.IVRFlow) (*models.IVRFlow, error) {
	if flow.ID == "" {
		flow.ID = utils.GenerateID()
	}
	flow.TenantID = user.TenantID

	saved, err := s.prepare(flow)
	if err != nil {
		s.metrics.FlowSave("create", saveResult(err))
		return nil, err
	}

	err = withRetry(ctx, s.retry, s.metrics, "create flow", func() error {
		return s.repo.Create(ctx, saved)
	})
	s.metrics.FlowSave("create", saveResult(err))
	if err != nil {
		return nil, err
	}

	log.Printf("✅ IVR flow %s created by %s", saved.ID, user.ID)
	s.publish(ctx, events.IVRFlowSaved, user, saved)
	return saved, nil
}

// Replace overwrites the whole document when expectedVersion is still the
// stored version. A stale version is a ConflictError and is never merged.
func (s *IVRFlowService) Replace(ctx context.Context, user auth.UserSession, id string, flow *models.IVRFlow, expectedVersion int64) (*models.IVRFlow, error) {
	if flow.ID != "" && flow.ID != id {
		return nil, appErrors.NewValidationError("id", "does not match the flow being replaced")
	}
	if expectedVersion <= 0 {
		return nil, appErrors.NewValidationError("version", "is required; send the version you loaded or an If-Match header")
	}
	flow.ID = id
	flow.TenantID = user.TenantID
	// timestamps come from storage, never from the request
	flow.CreatedAt, flow.UpdatedAt = 0, 0

	saved, err := s.prepare(flow)
	if err != nil {
		s.metrics.FlowSave("replace", saveResult(err))
		return nil, err
	}

	unlock, err := s.lock(ctx, user.TenantID, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	err = withRetry(ctx, s.retry, s.metrics, "update flow", func() error {
		return s.repo.Update(ctx, saved, expectedVersion)
	})
	s.metrics.FlowSave("replace", saveResult(err))
	if err != nil {
		return nil, err
	}

	log.Printf("✅ IVR flow %s saved at version %d by %s", id, saved.Version, user.ID)
	s.publish(ctx, events.IVRFlowSaved, user, saved)
	return saved, nil
}

func (s *IVRFlowService) Delete(ctx context.Context, user auth.UserSession, id string) error {
	unlock, err := s.lock(ctx, user.TenantID, id)
	if err != nil {
		return err
	}
	defer unlock()

	err = withRetry(ctx, s.retry, s.metrics, "delete flow", func() error {
		return s.repo.Delete(ctx, user.TenantID, id)
	})
	s.metrics.FlowSave("delete", saveResult(err))
	if err != nil {
		return err
	}

	log.Printf("🗑️  IVR flow %s deleted by %s", id, user.ID)
	s.publish(ctx, events.IVRFlowDeleted, user, &models.IVRFlow{ID: id, TenantID: user.TenantID})
	return nil
}

// Document loads a stored flow as an editable document.
func (s *IVRFlowService) Document(ctx context.Context, tenantID, id string) (*ivr.Document, error) {
	flow, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	return ivr.FromModel(flow)
}

func (s *IVRFlowService) Canvas(ctx context.Context, tenantID, id string) (ivr.Canvas, error) {
	doc, err := s.Document(ctx, tenantID, id)
	if err != nil {
		return ivr.Canvas{}, err
	}
	return ivr.BuildCanvas(doc), nil
}

// Trace simulates a call through a stored flow. A zero call time means now.
func (s *IVRFlowService) Trace(ctx context.Context, tenantID, id string, call ivr.Call) (ivr.TraceResult, error) {
	doc, err := s.Document(ctx, tenantID, id)
	if err != nil {
		return ivr.TraceResult{}, err
	}
	if call.At.IsZero() {
		call.At = time.Now()
	}
	return ivr.Trace(doc, call, s.eval)
}

// lock takes the per-flow save lock. Failure to get it in time is transient.
func (s *IVRFlowService) lock(ctx context.Context, tenantID, id string) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.lockWait)
	defer cancel()

	unlock, err := s.locker.Lock(waitCtx, "flow:"+tenantID+":"+id, s.lockTTL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, appErrors.NewTransientError("lock flow "+id, err)
	}

	return func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			log.Printf("⚠️  Failed to release lock on flow %s: %v", id, err)
		}
	}, nil
}

// publish reports handler failures without failing the write that already happened.
func (s *IVRFlowService) publish(ctx context.Context, eventType events.EventType, user auth.UserSession, flow *models.IVRFlow) {
	if s.events == nil {
		return
	}
	payload := events.IVRFlowEvent{
		TenantID: flow.TenantID,
		FlowID:   flow.ID,
		Version:  flow.Version,
		UserID:   user.ID,
	}
	if eventType == events.IVRFlowSaved {
		payload.Flow = flow
	}
	if err := s.events.Publish(ctx, eventType, payload); err != nil {
		log.Printf("⚠️  Failed to publish %s for flow %s: %v", eventType, flow.ID, err)
	}
}

func saveResult(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case appErrors.IsValidation(err):
		return metrics.ResultInvalid
	case appErrors.IsConflict(err):
		return metrics.ResultConflict
	default:
		return metrics.ResultError
	}
}
