package notify

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"storefront/internal/domain"
)

var ErrHubStopped = errors.New("notify: hub stopped")

// Notifier delivers order events to a room. Delivery is fire-and-forget.
type Notifier interface {
	Notify(ctx context.Context, ev domain.Event)
}

// Subscriber is one connected client. Send must not block; it reports false when the
// event was dropped.
type Subscriber interface {
	Send(ev domain.Event) bool
}

type command interface{}

type joinCmd struct {
	sub  Subscriber
	room string
}

type leaveCmd struct {
	sub  Subscriber
	room string // empty leaves every room
}

type broadcastCmd struct {
	ev domain.Event
}

type membersCmd struct {
	room  string
	reply chan int
}

// Hub owns room membership. Every mutation and broadcast runs on the Run goroutine, so
// no operation observes a partially updated membership set.
type Hub struct {
	log     *slog.Logger
	metrics *Metrics
	cmds    chan command
	done    chan struct{}

	rooms    map[string]map[Subscriber]struct{}
	memberOf map[Subscriber]map[string]struct{}
}

func NewHub(log *slog.Logger, metrics *Metrics) *Hub {
	return &Hub{
		log:      log,
		metrics:  metrics,
		cmds:     make(chan command, 256),
		done:     make(chan struct{}),
		rooms:    make(map[string]map[Subscriber]struct{}),
		memberOf: make(map[Subscriber]map[string]struct{}),
	}
}

// Run processes commands until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	h.log.Info("notification hub started")
	for {
		select {
		case <-ctx.Done():
			h.log.Info("notification hub stopped", "rooms", len(h.rooms))
			return
		case cmd := <-h.cmds:
			h.apply(cmd)
		}
	}
}

func (h *Hub) apply(cmd command) {
	switch c := cmd.(type) {
	case joinCmd:
		h.join(c.sub, c.room)
	case leaveCmd:
		if c.room == "" {
			h.leaveAll(c.sub)
		} else {
			h.leave(c.sub, c.room)
		}
	case broadcastCmd:
		h.broadcast(c.ev)
	case membersCmd:
		c.reply <- len(h.rooms[c.room])
	}
}

func (h *Hub) join(sub Subscriber, room string) {
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[Subscriber]struct{})
		h.rooms[room] = members
	}
	members[sub] = struct{}{}

	joined, ok := h.memberOf[sub]
	if !ok {
		joined = make(map[string]struct{})
		h.memberOf[sub] = joined
	}
	joined[room] = struct{}{}
}

func (h *Hub) leave(sub Subscriber, room string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, sub)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	if joined, ok := h.memberOf[sub]; ok {
		delete(joined, room)
		if len(joined) == 0 {
			delete(h.memberOf, sub)
		}
	}
}

func (h *Hub) leaveAll(sub Subscriber) {
	for room := range h.memberOf[sub] {
		if members, ok := h.rooms[room]; ok {
			delete(members, sub)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	delete(h.memberOf, sub)
}

func (h *Hub) broadcast(ev domain.Event) {
	h.metrics.broadcast(roomKind(ev.Room))
	for sub := range h.rooms[ev.Room] {
		if !sub.Send(ev) {
			h.metrics.dropped()
			h.log.Warn("notification dropped", "room", ev.Room, "order_id", ev.OrderID)
		}
	}
}

func (h *Hub) submit(ctx context.Context, cmd command) error {
	select {
	case h.cmds <- cmd:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Join adds sub to room. A subscriber may belong to any number of rooms.
func (h *Hub) Join(ctx context.Context, sub Subscriber, room string) error {
	return h.submit(ctx, joinCmd{sub: sub, room: room})
}

// Leave removes sub from room.
func (h *Hub) Leave(ctx context.Context, sub Subscriber, room string) error {
	return h.submit(ctx, leaveCmd{sub: sub, room: room})
}

// LeaveAll removes sub from every room it joined.
func (h *Hub) LeaveAll(ctx context.Context, sub Subscriber) error {
	return h.submit(ctx, leaveCmd{sub: sub})
}

// Notify queues ev for the members of ev.Room at the time the loop handles it. It never
// blocks: with the command queue full the event is dropped.
func (h *Hub) Notify(_ context.Context, ev domain.Event) {
	select {
	case <-h.done:
		h.log.Warn("notification not queued", "room", ev.Room, "err", ErrHubStopped)
		return
	default:
	}
	select {
	case h.cmds <- broadcastCmd{ev: ev}:
	default:
		h.metrics.dropped()
		h.log.Warn("notification dropped, hub queue full", "room", ev.Room)
	}
}

// Members reports the current size of room.
func (h *Hub) Members(ctx context.Context, room string) (int, error) {
	reply := make(chan int, 1)
	if err := h.submit(ctx, membersCmd{room: room, reply: reply}); err != nil {
		return 0, err
	}
	select {
	case n := <-reply:
		return n, nil
	case <-h.done:
		return 0, ErrHubStopped
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func roomKind(room string) string {
	switch {
	case room == domain.AdminRoom:
		return "admin"
	case strings.HasPrefix(room, "user_"):
		return "user"
	}
	return "other"
}
