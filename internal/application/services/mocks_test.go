package services

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/nexora/backend/internal/domain/models"
)

// MockFlowRepository is a mock implementation of ports.IVRFlowRepository
type MockFlowRepository struct {
	mock.Mock
}

func (m *MockFlowRepository) Get(ctx context.Context, tenantID, id string) (*models.IVRFlow, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.IVRFlow), args.Error(1)
}

func (m *MockFlowRepository) List(ctx context.Context, tenantID string) ([]models.IVRFlowSummary, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.IVRFlowSummary), args.Error(1)
}

func (m *MockFlowRepository) Create(ctx context.Context, flow *models.IVRFlow) error {
	args := m.Called(ctx, flow)
	return args.Error(0)
}

func (m *MockFlowRepository) Update(ctx context.Context, flow *models.IVRFlow, expectedVersion int64) error {
	args := m.Called(ctx, flow, expectedVersion)
	return args.Error(0)
}

func (m *MockFlowRepository) Delete(ctx context.Context, tenantID, id string) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

// memoryCache is a map-backed ports.FlowCache that, like the Redis one,
// ignores writes of an older or equal version
type memoryCache struct {
	mu    sync.Mutex
	flows map[string]*models.IVRFlow
}

func newMemoryCache() *memoryCache {
	return &memoryCache{flows: make(map[string]*models.IVRFlow)}
}

func (c *memoryCache) Get(_ context.Context, tenantID, id string) (*models.IVRFlow, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flows[tenantID+"/"+id], nil
}

func (c *memoryCache) Set(_ context.Context, flow *models.IVRFlow) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := flow.TenantID + "/" + flow.ID
	if cur, ok := c.flows[key]; ok && cur.Version >= flow.Version {
		return nil
	}
	c.flows[key] = flow
	return nil
}

func (c *memoryCache) Invalidate(_ context.Context, tenantID, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.flows, tenantID+"/"+id)
	return nil
}

func (c *memoryCache) has(tenantID, id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.flows[tenantID+"/"+id]
	return ok
}

func (c *memoryCache) version(tenantID, id string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f, ok := c.flows[tenantID+"/"+id]; ok {
		return f.Version
	}
	return 0
}
