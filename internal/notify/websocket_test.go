package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	"storefront/internal/logging"
)

type staticTokens map[string]domain.Principal

func (s staticTokens) ParseToken(raw string) (domain.Principal, error) {
	p, ok := s[raw]
	if !ok {
		return domain.Principal{}, domain.ErrUnauthorized
	}
	return p, nil
}

type frame struct {
	Type    string         `json:"type"`
	Data    map[string]any `json:"data"`
	Message string         `json:"message"`
}

type wsFixture struct {
	hub    *Hub
	srv    *httptest.Server
	user   domain.Principal
	admin  domain.Principal
	tokens staticTokens
}

func newWSFixture(t *testing.T, opts WSOptions) wsFixture {
	t.Helper()
	hub, _ := startHub(t)
	f := wsFixture{
		hub:   hub,
		user:  domain.Principal{ID: uuid.New(), Role: domain.RoleUser},
		admin: domain.Principal{ID: uuid.New(), Role: domain.RoleAdmin},
	}
	f.tokens = staticTokens{"user-token": f.user, "admin-token": f.admin}
	ws := NewWSServer(hub, f.tokens, opts, NewMetrics(prometheus.NewRegistry()), logging.Discard())
	f.srv = httptest.NewServer(ws)
	t.Cleanup(f.srv.Close)
	return f
}

func (f wsFixture) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(f.srv.URL, "http")
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	conn, _, err := websocket.DefaultDialer.Dial(u, header)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(v))
}

func read(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func TestWS_UserJoinReceivesOwnUpdates(t *testing.T) {
	f := newWSFixture(t, WSOptions{})
	conn := f.dial(t, "user-token")

	send(t, conn, map[string]string{"type": "join", "userId": f.user.ID.String()})
	joined := read(t, conn)
	require.Equal(t, "joined", joined.Type)
	assert.Equal(t, domain.UserRoom(f.user.ID), joined.Data["room"])

	order := &domain.Order{ID: uuid.New(), UserID: f.user.ID, Status: domain.OrderShipped}
	f.hub.Notify(context.Background(), domain.NewStatusEvent(domain.UserRoom(f.user.ID), order, time.Now()))

	update := read(t, conn)
	assert.Equal(t, "order_status_update", update.Type)
	assert.Equal(t, order.ID.String(), update.Data["orderId"])
	assert.Equal(t, "shipped", update.Data["newStatus"])
	assert.NotContains(t, update.Data, "room")
}

func TestWS_MismatchedJoinRejected(t *testing.T) {
	f := newWSFixture(t, WSOptions{})
	conn := f.dial(t, "user-token")

	send(t, conn, map[string]string{"type": "join", "userId": uuid.NewString()})
	reply := read(t, conn)
	assert.Equal(t, "error", reply.Type)
	assert.Equal(t, domain.ErrForbidden.Error(), reply.Message)

	send(t, conn, map[string]string{"type": "join_admin"})
	assert.Equal(t, "error", read(t, conn).Type)
}

func TestWS_AnonymousJoin(t *testing.T) {
	strict := newWSFixture(t, WSOptions{})
	conn := strict.dial(t, "")
	send(t, conn, map[string]string{"type": "join", "userId": uuid.NewString()})
	reply := read(t, conn)
	assert.Equal(t, "error", reply.Type)
	assert.Equal(t, domain.ErrUnauthorized.Error(), reply.Message)

	open := newWSFixture(t, WSOptions{AllowAnonymousJoin: true})
	conn = open.dial(t, "")
	send(t, conn, map[string]string{"type": "join", "userId": uuid.NewString()})
	assert.Equal(t, "joined", read(t, conn).Type)
}

func TestWS_AdminRoom(t *testing.T) {
	f := newWSFixture(t, WSOptions{})
	conn := f.dial(t, "admin-token")

	send(t, conn, map[string]string{"type": "join_admin"})
	require.Equal(t, "joined", read(t, conn).Type)

	// admins may also follow any user
	send(t, conn, map[string]string{"type": "join", "userId": f.user.ID.String()})
	require.Equal(t, "joined", read(t, conn).Type)

	n, err := f.hub.Members(context.Background(), domain.AdminRoom)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestWS_LeavePingAndUnknown(t *testing.T) {
	f := newWSFixture(t, WSOptions{})
	conn := f.dial(t, "user-token")

	send(t, conn, map[string]string{"type": "ping"})
	assert.Equal(t, "pong", read(t, conn).Type)

	send(t, conn, map[string]string{"type": "join", "userId": f.user.ID.String()})
	require.Equal(t, "joined", read(t, conn).Type)
	send(t, conn, map[string]string{"type": "leave"})
	assert.Equal(t, "left", read(t, conn).Type)

	n, err := f.hub.Members(context.Background(), domain.UserRoom(f.user.ID))
	require.NoError(t, err)
	assert.Zero(t, n)

	send(t, conn, map[string]string{"type": "dance"})
	assert.Equal(t, "error", read(t, conn).Type)
}

func TestWS_DisconnectLeavesRooms(t *testing.T) {
	f := newWSFixture(t, WSOptions{})
	conn := f.dial(t, "admin-token")
	send(t, conn, map[string]string{"type": "join_admin"})
	require.Equal(t, "joined", read(t, conn).Type)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool {
		n, err := f.hub.Members(context.Background(), domain.AdminRoom)
		return err == nil && n == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWS_InvalidTokenRejectedBeforeUpgrade(t *testing.T) {
	f := newWSFixture(t, WSOptions{})
	u := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "?token=bogus"

	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
