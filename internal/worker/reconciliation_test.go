package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	"storefront/internal/logging"
	"storefront/internal/repo"
	"storefront/internal/service"
)

type stuckRepo struct {
	repo.OrderRepo
	orders    []domain.Order
	err       error
	olderThan time.Duration
	calls     atomic.Int32
}

func (r *stuckRepo) FindStuckOrders(_ context.Context, olderThan time.Duration) ([]domain.Order, error) {
	r.calls.Add(1)
	r.olderThan = olderThan
	return r.orders, r.err
}

type cancelRecorder struct {
	service.OrderService
	fail      map[uuid.UUID]bool
	movedOn   map[uuid.UUID]bool
	cancelled []uuid.UUID
}

func (c *cancelRecorder) CancelStale(_ context.Context, id uuid.UUID) (bool, error) {
	if c.fail[id] {
		return false, errors.New("write failed")
	}
	if c.movedOn[id] {
		return false, nil
	}
	c.cancelled = append(c.cancelled, id)
	return true, nil
}

func TestSweep_CancelsStuckOrders(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	orders := &stuckRepo{orders: []domain.Order{{ID: a}, {ID: b}, {ID: c}}}
	svc := &cancelRecorder{fail: map[uuid.UUID]bool{b: true}}
	w := NewReconciliationWorker(orders, svc, 24*time.Hour, time.Minute, logging.Discard())

	n, err := w.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []uuid.UUID{a, c}, svc.cancelled)
	assert.Equal(t, 24*time.Hour, orders.olderThan)
}

func TestSweep_SkipsOrdersThatMovedOn(t *testing.T) {
	paid, stale := uuid.New(), uuid.New()
	orders := &stuckRepo{orders: []domain.Order{{ID: paid}, {ID: stale}}}
	// paid was confirmed after the lookup, so its conditional cancel matches nothing
	svc := &cancelRecorder{movedOn: map[uuid.UUID]bool{paid: true}}
	w := NewReconciliationWorker(orders, svc, time.Hour, time.Minute, logging.Discard())

	n, err := w.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []uuid.UUID{stale}, svc.cancelled)
}

func TestSweep_RepoError(t *testing.T) {
	orders := &stuckRepo{err: errors.New("db down")}
	w := NewReconciliationWorker(orders, &cancelRecorder{}, time.Hour, time.Minute, logging.Discard())

	_, err := w.Sweep(context.Background())
	assert.Error(t, err)
}

func TestRun_DisabledReturnsImmediately(t *testing.T) {
	w := NewReconciliationWorker(&stuckRepo{}, &cancelRecorder{}, 0, time.Minute, logging.Discard())

	done := make(chan struct{})
	go func() {
		w.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled worker kept running")
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	svc := &cancelRecorder{}
	orders := &stuckRepo{orders: []domain.Order{{ID: uuid.New()}}}
	w := NewReconciliationWorker(orders, svc, time.Hour, 10*time.Millisecond, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return orders.calls.Load() > 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
