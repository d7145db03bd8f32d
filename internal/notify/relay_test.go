package notify

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	"storefront/internal/logging"
)

type recorder struct {
	ch chan domain.Event
}

func (r *recorder) Notify(_ context.Context, ev domain.Event) { r.ch <- ev }

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisRelay_FansOutAcrossInstances(t *testing.T) {
	_, client := newRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	localA := &recorder{ch: make(chan domain.Event, 4)}
	localB := &recorder{ch: make(chan domain.Event, 4)}
	a := NewRedisRelay(client, "orders-test", localA, logging.Discard())
	b := NewRedisRelay(client, "orders-test", localB, logging.Discard())
	go a.Run(ctx)
	go b.Run(ctx)

	require.Eventually(t, func() bool {
		n, err := client.PubSubNumSub(ctx, "orders-test").Result()
		return err == nil && n["orders-test"] == 2
	}, 2*time.Second, 10*time.Millisecond)

	ev := domain.Event{Room: domain.AdminRoom, OrderID: uuid.New(), NewStatus: domain.OrderConfirmed, Message: "confirmed"}
	a.Notify(ctx, ev)

	for _, local := range []*recorder{localA, localB} {
		select {
		case got := <-local.ch:
			assert.Equal(t, ev.OrderID, got.OrderID)
			assert.Equal(t, domain.AdminRoom, got.Room)
		case <-time.After(2 * time.Second):
			t.Fatal("relayed event not delivered")
		}
	}
}

func TestRedisRelay_PublishFailureDeliversLocally(t *testing.T) {
	mr, client := newRedis(t)
	local := &recorder{ch: make(chan domain.Event, 1)}
	relay := NewRedisRelay(client, "orders-test", local, logging.Discard())
	mr.Close()

	ev := domain.Event{Room: domain.AdminRoom, OrderID: uuid.New()}
	relay.Notify(context.Background(), ev)

	select {
	case got := <-local.ch:
		assert.Equal(t, ev.OrderID, got.OrderID)
	default:
		t.Fatal("expected local fallback delivery")
	}
}

func TestRedisRelay_SubscribesOnceRedisIsUp(t *testing.T) {
	mr, client := newRedis(t)
	mr.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	local := &recorder{ch: make(chan domain.Event, 1)}
	relay := NewRedisRelay(client, "orders-test", local, logging.Discard())
	relay.retry = func() backoff.BackOff { return backoff.NewConstantBackOff(20 * time.Millisecond) }
	done := make(chan struct{})
	go func() {
		relay.Run(ctx)
		close(done)
	}()

	// let a few subscribe attempts fail first
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, mr.Restart())

	require.Eventually(t, func() bool {
		n, err := client.PubSubNumSub(ctx, "orders-test").Result()
		return err == nil && n["orders-test"] == 1
	}, 3*time.Second, 20*time.Millisecond)

	ev := domain.Event{Room: domain.AdminRoom, OrderID: uuid.New(), NewStatus: domain.OrderShipped}
	relay.Notify(ctx, ev)
	select {
	case got := <-local.ch:
		assert.Equal(t, ev.OrderID, got.OrderID)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered after reconnect")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}
