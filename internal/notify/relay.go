package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"

	"storefront/internal/domain"
)

// RedisRelay shares events between instances. Notify publishes to the channel; Run
// subscribes and hands every received event to the local hub.
type RedisRelay struct {
	client  *redis.Client
	channel string
	local   Notifier
	log     *slog.Logger
	retry   func() backoff.BackOff
}

func NewRedisRelay(client *redis.Client, channel string, local Notifier, log *slog.Logger) *RedisRelay {
	return &RedisRelay{client: client, channel: channel, local: local, log: log, retry: subscribeBackOff}
}

func subscribeBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0
	return b
}

func (r *RedisRelay) Notify(ctx context.Context, ev domain.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		r.log.Warn("encode event", "err", err)
		return
	}
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		// fall back to this instance's subscribers
		r.log.Warn("publish event failed, delivering locally", "channel", r.channel, "err", err)
		r.local.Notify(ctx, ev)
	}
}

// Run keeps the subscription open until ctx is cancelled. A subscription that fails to
// start or is lost is retried with exponential backoff.
func (r *RedisRelay) Run(ctx context.Context) {
	retry := r.retry()
	for {
		subscribed, err := r.listen(ctx)
		if ctx.Err() != nil {
			return
		}
		if subscribed {
			retry.Reset()
		}
		wait := retry.NextBackOff()
		r.log.Warn("relay not subscribed, retrying", "channel", r.channel, "err", err, "retry_in", wait)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// listen forwards events until ctx is done or the subscription ends. It reports whether
// the subscription was established.
func (r *RedisRelay) listen(ctx context.Context) (bool, error) {
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return false, fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	r.log.Info("relay subscribed", "channel", r.channel)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return true, nil
		case msg, ok := <-ch:
			if !ok {
				return true, errors.New("subscription closed")
			}
			var ev domain.Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				r.log.Warn("decode relayed event", "err", err)
				continue
			}
			r.local.Notify(ctx, ev)
		}
	}
}
