package cache

import (
	"context"
	"sync"
	"time"

	"github.com/nexora/backend/internal/domain/models"
	"github.com/nexora/backend/internal/domain/ports"
)

// NopCache never stores anything; every Get is a miss.
type NopCache struct{}

var _ ports.FlowCache = NopCache{}

func (NopCache) Get(context.Context, string, string) (*models.IVRFlow, error) { return nil, nil }
func (NopCache) Set(context.Context, *models.IVRFlow) error                   { return nil }
func (NopCache) Invalidate(context.Context, string, string) error             { return nil }

// LocalLocker serializes writers within one process. The ttl is ignored:
// a holder keeps the lock until it unlocks.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

var _ ports.Locker = (*LocalLocker)(nil)

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: make(map[string]chan struct{})}
}

func (l *LocalLocker) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[key] = ch
	}
	return ch
}

func (l *LocalLocker) Lock(ctx context.Context, key string, _ time.Duration) (ports.UnlockFunc, error) {
	ch := l.slot(key)
	select {
	case ch <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() { <-ch })
		return nil
	}, nil
}
