package notify

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"storefront/internal/domain"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	maxMessage = 4096
)

// TokenParser resolves a bearer token to the caller.
type TokenParser interface {
	ParseToken(raw string) (domain.Principal, error)
}

type WSOptions struct {
	AllowedOrigins     []string
	AllowAnonymousJoin bool
	SendBuffer         int
}

// WSServer upgrades /ws requests and binds each connection to hub rooms on request.
type WSServer struct {
	hub      *Hub
	tokens   TokenParser
	opts     WSOptions
	metrics  *Metrics
	log      *slog.Logger
	upgrader websocket.Upgrader
}

func NewWSServer(hub *Hub, tokens TokenParser, opts WSOptions, metrics *Metrics, log *slog.Logger) *WSServer {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 32
	}
	s := &WSServer{hub: hub, tokens: tokens, opts: opts, metrics: metrics, log: log}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

func (s *WSServer) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(s.opts.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range s.opts.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

type inbound struct {
	Type   string `json:"type"`
	UserID string `json:"userId,omitempty"`
}

type outbound struct {
	Type    string `json:"type"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// statusUpdate is the client payload of an event. The room stays server side.
type statusUpdate struct {
	OrderID   uuid.UUID          `json:"orderId"`
	NewStatus domain.OrderStatus `json:"newStatus"`
	Message   string             `json:"message"`
	Timestamp time.Time          `json:"timestamp"`
}

type client struct {
	conn      *websocket.Conn
	send      chan outbound
	done      chan struct{}
	closeOnce sync.Once
	principal *domain.Principal
}

// Send implements Subscriber. It never blocks the hub loop.
func (c *client) Send(ev domain.Event) bool {
	return c.enqueue(outbound{Type: "order_status_update", Data: statusUpdate{
		OrderID:   ev.OrderID,
		NewStatus: ev.NewStatus,
		Message:   ev.Message,
		Timestamp: ev.Timestamp,
	}})
}

func (c *client) enqueue(msg outbound) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (s *WSServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var principal *domain.Principal
	if raw := bearer(r); raw != "" {
		p, err := s.tokens.ParseToken(raw)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		principal = &p
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "err", err)
		return
	}

	c := &client{
		conn:      conn,
		send:      make(chan outbound, s.opts.SendBuffer),
		done:      make(chan struct{}),
		principal: principal,
	}
	s.metrics.connOpened()
	defer s.metrics.connClosed()

	go s.writePump(c)
	s.readPump(r.Context(), c)
}

func bearer(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

func (s *WSServer) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}

func (s *WSServer) readPump(ctx context.Context, c *client) {
	defer func() {
		// hub may already be stopped during shutdown
		leaveCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		_ = s.hub.LeaveAll(leaveCtx, c)
		cancel()
		c.close()
	}()

	c.conn.SetReadLimit(maxMessage)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg inbound
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug("websocket closed", "err", err)
			}
			return
		}
		s.handle(ctx, c, msg)
	}
}

func (s *WSServer) handle(ctx context.Context, c *client, msg inbound) {
	switch msg.Type {
	case "join":
		room, err := s.userRoom(c, msg.UserID)
		if err != nil {
			c.enqueue(outbound{Type: "error", Message: err.Error()})
			return
		}
		s.join(ctx, c, room)
	case "join_admin":
		if c.principal == nil || !c.principal.IsAdmin() {
			c.enqueue(outbound{Type: "error", Message: domain.ErrForbidden.Error()})
			return
		}
		s.join(ctx, c, domain.AdminRoom)
	case "leave":
		if err := s.hub.LeaveAll(ctx, c); err != nil {
			c.enqueue(outbound{Type: "error", Message: err.Error()})
			return
		}
		c.enqueue(outbound{Type: "left"})
	case "ping":
		c.enqueue(outbound{Type: "pong"})
	default:
		c.enqueue(outbound{Type: "error", Message: "unknown message type"})
	}
}

func (s *WSServer) join(ctx context.Context, c *client, room string) {
	if err := s.hub.Join(ctx, c, room); err != nil {
		c.enqueue(outbound{Type: "error", Message: err.Error()})
		return
	}
	c.enqueue(outbound{Type: "joined", Data: map[string]string{"room": room}})
}

// userRoom checks that the caller may follow the given user's orders.
func (s *WSServer) userRoom(c *client, raw string) (string, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", domain.ErrInvalidInput
	}
	switch {
	case c.principal == nil && !s.opts.AllowAnonymousJoin:
		return "", domain.ErrUnauthorized
	case c.principal != nil && !c.principal.IsAdmin() && c.principal.ID != id:
		return "", domain.ErrForbidden
	}
	return domain.UserRoom(id), nil
}
