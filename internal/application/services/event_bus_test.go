package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexora/backend/internal/domain/events"
)

func TestEventBus_PublishInOrder(t *testing.T) {
	eb := NewEventBus()
	var got []string

	eb.Subscribe(events.IVRFlowSaved, func(_ context.Context, p interface{}) error {
		got = append(got, "first:"+p.(string))
		return nil
	})
	eb.Subscribe(events.IVRFlowSaved, func(_ context.Context, p interface{}) error {
		got = append(got, "second:"+p.(string))
		return nil
	})

	require.NoError(t, eb.Publish(context.Background(), events.IVRFlowSaved, "x"))
	assert.Equal(t, []string{"first:x", "second:x"}, got)

	assert.NoError(t, eb.Publish(context.Background(), events.IVRFlowDeleted, "nobody listens"))
}

func TestEventBus_UnsubscribeRemovesOnlyThatHandler(t *testing.T) {
	eb := NewEventBus()
	var calls []string

	unsubA := eb.Subscribe(events.IVRFlowSaved, func(context.Context, interface{}) error {
		calls = append(calls, "a")
		return nil
	})
	eb.Subscribe(events.IVRFlowSaved, func(context.Context, interface{}) error {
		calls = append(calls, "b")
		return nil
	})

	unsubA()
	unsubA()

	require.NoError(t, eb.Publish(context.Background(), events.IVRFlowSaved, nil))
	assert.Equal(t, []string{"b"}, calls)
}

func TestEventBus_HandlerErrorStopsDispatch(t *testing.T) {
	eb := NewEventBus()
	boom := errors.New("boom")
	called := false

	eb.Subscribe(events.IVRFlowSaved, func(context.Context, interface{}) error { return boom })
	eb.Subscribe(events.IVRFlowSaved, func(context.Context, interface{}) error {
		called = true
		return nil
	})

	err := eb.Publish(context.Background(), events.IVRFlowSaved, nil)
	assert.ErrorIs(t, err, boom)
	assert.False(t, called)
}

func TestEventBus_PublishAsyncAndClear(t *testing.T) {
	eb := NewEventBus()
	var wg sync.WaitGroup
	wg.Add(1)
	eb.Subscribe(events.IVRFlowDeleted, func(context.Context, interface{}) error {
		wg.Done()
		return nil
	})

	eb.PublishAsync(events.IVRFlowDeleted, nil)

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("async handler did not run")
	}

	eb.Clear()
	assert.NoError(t, eb.Publish(context.Background(), events.IVRFlowDeleted, nil))
}
