package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nexora/backend/internal/domain/events"
	"github.com/nexora/backend/internal/domain/ivr"
	"github.com/nexora/backend/internal/domain/models"
	"github.com/nexora/backend/internal/infrastructure/cache"
	"github.com/nexora/backend/pkg/auth"
	appErrors "github.com/nexora/backend/pkg/errors"
)

var editor = auth.UserSession{ID: "u1", Name: "Editor", TenantID: "t1", Role: auth.RoleEditor}

var fastRetry = RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}

func storedSample(version int64) *models.IVRFlow {
	flow := ivr.SampleFlow()
	flow.TenantID = "t1"
	flow.Version = version
	return flow
}

func bumpVersion(args mock.Arguments) {
	flow := args.Get(1).(*models.IVRFlow)
	flow.Version = args.Get(2).(int64) + 1
}

func TestReplace_InvalidFlowNeverReachesStorage(t *testing.T) {
	repo := new(MockFlowRepository)
	svc := NewIVRFlowService(repo, nil, WithRetryPolicy(fastRetry))

	flow := ivr.SampleFlow()
	flow.Nodes[0].Next = nil
	flow.Nodes = append(flow.Nodes, models.IVRNode{ID: "fax-1", Type: "fax"})
	flow.Name = ""

	_, err := svc.Replace(context.Background(), editor, flow.ID, flow, 1)

	var ve *appErrors.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.NotEmpty(t, ve.Fields)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestReplace_RetriesTransientFailures(t *testing.T) {
	repo := new(MockFlowRepository)
	svc := NewIVRFlowService(repo, nil, WithRetryPolicy(fastRetry))

	transient := appErrors.NewTransientError("update flow", errors.New("i/o timeout"))
	repo.On("Update", mock.Anything, mock.Anything, int64(4)).Return(transient).Twice()
	repo.On("Update", mock.Anything, mock.Anything, int64(4)).Run(bumpVersion).Return(nil).Once()

	saved, err := svc.Replace(context.Background(), editor, "sample-flow", ivr.SampleFlow(), 4)
	require.NoError(t, err)
	assert.Equal(t, int64(5), saved.Version)
	assert.Equal(t, "t1", saved.TenantID)
	repo.AssertNumberOfCalls(t, "Update", 3)
}

func TestReplace_TransientSurfacesAfterRetries(t *testing.T) {
	repo := new(MockFlowRepository)
	svc := NewIVRFlowService(repo, nil, WithRetryPolicy(fastRetry))

	repo.On("Update", mock.Anything, mock.Anything, int64(1)).
		Return(appErrors.NewTransientError("update flow", errors.New("connection refused")))

	_, err := svc.Replace(context.Background(), editor, "sample-flow", ivr.SampleFlow(), 1)
	assert.True(t, appErrors.IsTransient(err))
	repo.AssertNumberOfCalls(t, "Update", 3)
}

func TestReplace_ConflictIsSurfacedNotRetried(t *testing.T) {
	repo := new(MockFlowRepository)
	svc := NewIVRFlowService(repo, nil, WithRetryPolicy(fastRetry))

	repo.On("Update", mock.Anything, mock.Anything, int64(1)).
		Return(appErrors.NewVersionConflictError("IVR flow", 1, 2)).Once()

	_, err := svc.Replace(context.Background(), editor, "sample-flow", ivr.SampleFlow(), 1)
	assert.True(t, appErrors.IsConflict(err))
	repo.AssertNumberOfCalls(t, "Update", 1)
}

func TestReplace_TimestampsComeFromStorage(t *testing.T) {
	repo := new(MockFlowRepository)
	svc := NewIVRFlowService(repo, nil, WithRetryPolicy(fastRetry))

	var sentCreatedAt int64 = -1
	repo.On("Update", mock.Anything, mock.Anything, int64(4)).Run(func(args mock.Arguments) {
		flow := args.Get(1).(*models.IVRFlow)
		sentCreatedAt = flow.CreatedAt
		flow.Version = 5
		flow.CreatedAt = 1700000000000
		flow.UpdatedAt = 1700000500000
	}).Return(nil).Once()

	body := ivr.SampleFlow()
	body.CreatedAt = 42
	body.UpdatedAt = 43
	saved, err := svc.Replace(context.Background(), editor, "sample-flow", body, 4)
	require.NoError(t, err)

	assert.Zero(t, sentCreatedAt)
	assert.Equal(t, int64(1700000000000), saved.CreatedAt)
	assert.Equal(t, int64(1700000500000), saved.UpdatedAt)
}

func TestReplace_RequestChecks(t *testing.T) {
	repo := new(MockFlowRepository)
	svc := NewIVRFlowService(repo, nil)

	_, err := svc.Replace(context.Background(), editor, "other-id", ivr.SampleFlow(), 1)
	assert.True(t, appErrors.IsValidation(err), "body id must match")

	_, err = svc.Replace(context.Background(), editor, "sample-flow", ivr.SampleFlow(), 0)
	assert.True(t, appErrors.IsValidation(err), "version is required")

	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestReplace_BusyFlowIsTransient(t *testing.T) {
	repo := new(MockFlowRepository)
	locker := cache.NewLocalLocker()
	svc := NewIVRFlowService(repo, nil, WithLocker(locker), WithLockWait(20*time.Millisecond))

	unlock, err := locker.Lock(context.Background(), "flow:t1:sample-flow", time.Second)
	require.NoError(t, err)
	defer unlock(context.Background())

	_, err = svc.Replace(context.Background(), editor, "sample-flow", ivr.SampleFlow(), 1)
	assert.True(t, appErrors.IsTransient(err))
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreate_AssignsIDAndPublishes(t *testing.T) {
	repo := new(MockFlowRepository)
	bus := NewEventBus()
	svc := NewIVRFlowService(repo, bus)

	var published []events.IVRFlowEvent
	bus.Subscribe(events.IVRFlowSaved, func(_ context.Context, p interface{}) error {
		published = append(published, p.(events.IVRFlowEvent))
		return nil
	})

	repo.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		args.Get(1).(*models.IVRFlow).Version = 1
	}).Return(nil).Once()

	flow := ivr.SampleFlow()
	flow.ID = ""
	saved, err := svc.Create(context.Background(), editor, flow)
	require.NoError(t, err)

	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, "t1", saved.TenantID)
	assert.Len(t, saved.Nodes, 7)
	require.Len(t, published, 1)
	assert.Equal(t, events.IVRFlowEvent{TenantID: "t1", FlowID: saved.ID, Version: 1, UserID: "u1", Flow: saved}, published[0])
}

func TestGet_ReadThroughCacheRefreshedBySave(t *testing.T) {
	repo := new(MockFlowRepository)
	memo := newMemoryCache()
	sm := NewServiceManager(Dependencies{Repo: repo, Cache: memo, Locker: cache.NewLocalLocker(), Retry: fastRetry})
	ctx := context.Background()

	repo.On("Get", mock.Anything, "t1", "sample-flow").Return(storedSample(1), nil)

	_, err := sm.Flows.Get(ctx, "t1", "sample-flow")
	require.NoError(t, err)
	_, err = sm.Flows.Get(ctx, "t1", "sample-flow")
	require.NoError(t, err)
	repo.AssertNumberOfCalls(t, "Get", 1)
	assert.Equal(t, int64(1), memo.version("t1", "sample-flow"))

	repo.On("Update", mock.Anything, mock.Anything, int64(1)).Run(bumpVersion).Return(nil).Once()
	_, err = sm.Flows.Replace(ctx, editor, "sample-flow", ivr.SampleFlow(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), memo.version("t1", "sample-flow"), "save must replace the cached copy")

	got, err := sm.Flows.Get(ctx, "t1", "sample-flow")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version)
	repo.AssertNumberOfCalls(t, "Get", 1)
}

func TestGet_SlowReadDoesNotOverwriteNewerSave(t *testing.T) {
	repo := new(MockFlowRepository)
	memo := newMemoryCache()
	sm := NewServiceManager(Dependencies{Repo: repo, Cache: memo, Locker: cache.NewLocalLocker(), Retry: fastRetry})
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	repo.On("Get", mock.Anything, "t1", "sample-flow").Run(func(mock.Arguments) {
		close(started)
		<-release
	}).Return(storedSample(1), nil).Once()
	repo.On("Update", mock.Anything, mock.Anything, int64(1)).Run(bumpVersion).Return(nil).Once()

	done := make(chan *models.IVRFlow)
	go func() {
		flow, err := sm.Flows.Get(ctx, "t1", "sample-flow")
		assert.NoError(t, err)
		done <- flow
	}()

	<-started
	saved, err := sm.Flows.Replace(ctx, editor, "sample-flow", ivr.SampleFlow(), 1)
	require.NoError(t, err)
	require.Equal(t, int64(2), saved.Version)

	close(release)
	assert.Equal(t, int64(1), (<-done).Version)

	got, err := sm.Flows.Get(ctx, "t1", "sample-flow")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version, "the late read must not bring version 1 back")
	repo.AssertExpectations(t)
}

func TestDelete_InvalidatesAndReportsMissing(t *testing.T) {
	repo := new(MockFlowRepository)
	memo := newMemoryCache()
	sm := NewServiceManager(Dependencies{Repo: repo, Cache: memo})
	ctx := context.Background()

	require.NoError(t, memo.Set(ctx, storedSample(3)))
	repo.On("Delete", mock.Anything, "t1", "sample-flow").Return(nil).Once()
	repo.On("Delete", mock.Anything, "t1", "ghost").Return(appErrors.NewNotFoundError("IVR flow", "ghost")).Once()

	require.NoError(t, sm.Flows.Delete(ctx, editor, "sample-flow"))
	assert.False(t, memo.has("t1", "sample-flow"))

	assert.True(t, appErrors.IsNotFound(sm.Flows.Delete(ctx, editor, "ghost")))
}

func TestCanvasAndTrace(t *testing.T) {
	repo := new(MockFlowRepository)
	svc := NewIVRFlowService(repo, nil)
	repo.On("Get", mock.Anything, "t1", "sample-flow").Return(storedSample(2), nil)

	canvas, err := svc.Canvas(context.Background(), "t1", "sample-flow")
	require.NoError(t, err)
	assert.Len(t, canvas.Cards, 7)
	assert.Equal(t, "greeting-1", canvas.Cards[0].NodeID)

	// Tuesday 10:00 in New York
	at := time.Date(2026, 10, 13, 14, 0, 0, 0, time.UTC)
	res, err := svc.Trace(context.Background(), "t1", "sample-flow", ivr.Call{At: at, Digits: []string{"2"}})
	require.NoError(t, err)
	assert.Equal(t, ivr.OutcomeQueued, res.Outcome)
	assert.Equal(t, "support", res.Target)
}

func TestList(t *testing.T) {
	repo := new(MockFlowRepository)
	svc := NewIVRFlowService(repo, nil)
	want := []models.IVRFlowSummary{storedSample(1).Summary()}
	repo.On("List", mock.Anything, "t1").Return(want, nil)

	got, err := svc.List(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

type stubEvaluator struct{ mock.Mock }

func (s *stubEvaluator) EvaluateBool(expression string, env map[string]interface{}) (bool, error) {
	args := s.Called(expression, env)
	return args.Bool(0), args.Error(1)
}

func TestTrace_UsesConfiguredConditionEvaluator(t *testing.T) {
	repo := new(MockFlowRepository)
	eval := new(stubEvaluator)
	svc := NewIVRFlowService(repo, nil, WithConditionEvaluator(eval))

	flow := storedSample(2)
	for i := range flow.Nodes {
		if flow.Nodes[i].ID == "hours-1" {
			flow.Nodes[i].Config["condition"] = "caller != 'blocked'"
		}
	}
	repo.On("Get", mock.Anything, "t1", "sample-flow").Return(flow, nil)
	eval.On("EvaluateBool", "caller != 'blocked'", mock.Anything).Return(false, nil).Once()

	// open by schedule, closed by the condition
	at := time.Date(2026, 10, 13, 14, 0, 0, 0, time.UTC)
	res, err := svc.Trace(context.Background(), "t1", "sample-flow", ivr.Call{At: at, Caller: "+15550100"})
	require.NoError(t, err)
	assert.Equal(t, ivr.OutcomeVoicemail, res.Outcome)
	eval.AssertExpectations(t)
}
