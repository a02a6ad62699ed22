package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tourbooking/internal/domain/auth"
	"tourbooking/internal/metrics"
	"tourbooking/internal/pkg/jwt"
)

type socketEnv struct {
	srv  *httptest.Server
	jwt  *jwt.Service
	hub    *Hub
	reg    *metrics.Registry
	notify *mockDispatcher
	base   string
}

func newSocketEnv(t *testing.T) *socketEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	reg := metrics.New()
	notify := quietDispatcher()
	svc := NewService(NewRepository(db), auth.NewUserRepository(db), notify, WithMetrics(reg))
	hub := NewHub(reg)
	tokens := jwt.New("test-secret", time.Hour)

	r := gin.New()
	NewWSHandler(hub, tokens, svc, nil).RegisterSocketRoute(r.Group("/api/v1"))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &socketEnv{
		srv:    srv,
		jwt:    tokens,
		hub:    hub,
		reg:    reg,
		notify: notify,
		base:   "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/chat/ws",
	}
}

func (e *socketEnv) dial(t *testing.T, p auth.Principal) *websocket.Conn {
	t.Helper()
	token, err := e.jwt.GenerateToken(p.UserID, string(p.Role))
	require.NoError(t, err)
	conn, _, err := websocket.DefaultDialer.Dial(e.base+"?token="+token, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	hello := readEvent(t, conn)
	require.Equal(t, EventConnected, hello["type"])
	assert.Equal(t, p.Role.UserType(), hello["user_type"])
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event map[string]any
	require.NoError(t, conn.ReadJSON(&event))
	return event
}

func TestWebSocket_RequiresToken(t *testing.T) {
	env := newSocketEnv(t)

	_, resp, err := websocket.DefaultDialer.Dial(env.base, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(env.base+"?token=garbage", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebSocket_CustomerMessageFansOut(t *testing.T) {
	env := newSocketEnv(t)
	desk := env.dial(t, staff)
	nour := env.dial(t, customer)
	omar := env.dial(t, other)

	assert.Equal(t, 1, env.hub.Online(StaffRoom))
	assert.Equal(t, 3.0, testutil.ToFloat64(env.reg.ChatConnections))

	require.NoError(t, nour.WriteJSON(WSClientMessage{Type: "message", Message: "Can I bring kids?"}))

	own := readEvent(t, nour)
	assert.Equal(t, EventMessage, own["type"])
	assert.Equal(t, false, own["is_new_user_message"])
	data := own["data"].(map[string]any)
	assert.Equal(t, "Can I bring kids?", data["message"])
	assert.Equal(t, "Nour Hassan", data["sender_name"])

	inbox := readEvent(t, desk)
	assert.Equal(t, EventMessage, inbox["type"])
	assert.Equal(t, true, inbox["is_new_user_message"])
	assert.Equal(t, own["conversation_id"], inbox["conversation_id"])

	// socket messages reach staff live; the inbox email is for HTTP sends
	env.notify.AssertNotCalled(t, "NotifyStaffMessage", mock.Anything, mock.Anything)

	// other customers never see it
	require.NoError(t, omar.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := omar.ReadMessage()
	assert.Error(t, err)
}

func TestWebSocket_StaffReply(t *testing.T) {
	env := newSocketEnv(t)
	desk := env.dial(t, staff)
	nour := env.dial(t, customer)

	require.NoError(t, desk.WriteJSON(map[string]any{"type": "message", "message": "Hi"}))
	errEvent := readEvent(t, desk)
	assert.Equal(t, EventError, errEvent["type"])
	assert.Equal(t, "user_id is required for admin messages", errEvent["error"])

	require.NoError(t, desk.WriteJSON(map[string]any{"type": "message", "message": "Of course!", "user_id": 7}))

	echo := readEvent(t, desk)
	assert.Equal(t, EventMessage, echo["type"])
	assert.Equal(t, false, echo["is_new_user_message"])

	got := readEvent(t, nour)
	assert.Equal(t, EventMessage, got["type"])
	data := got["data"].(map[string]any)
	assert.Equal(t, true, data["is_from_admin"])
	assert.Equal(t, "Of course!", data["message"])
}

func TestWebSocket_ProtocolErrors(t *testing.T) {
	env := newSocketEnv(t)
	nour := env.dial(t, customer)

	require.NoError(t, nour.WriteMessage(websocket.TextMessage, []byte("{not json")))
	assert.Equal(t, "Invalid JSON format", readEvent(t, nour)["error"])

	require.NoError(t, nour.WriteJSON(WSClientMessage{Type: "message", Message: "   "}))
	assert.Equal(t, "Message cannot be empty", readEvent(t, nour)["error"])

	require.NoError(t, nour.WriteJSON(WSClientMessage{Type: "typing"}))
	assert.Equal(t, "Unknown message type: typing", readEvent(t, nour)["error"])

	require.NoError(t, nour.WriteJSON(WSClientMessage{Type: "ping"}))
	assert.Equal(t, EventPong, readEvent(t, nour)["type"])

	// the socket is still usable after errors
	require.NoError(t, nour.WriteJSON(WSClientMessage{Message: "still here"}))
	assert.Equal(t, EventMessage, readEvent(t, nour)["type"])
}

func TestHub_LeaveIsIdempotent(t *testing.T) {
	reg := metrics.New()
	h := NewHub(reg)
	c := &client{hub: h, rooms: []Room{UserRoom(7)}, send: make(chan []byte, 1)}

	h.join(c)
	assert.Equal(t, 1, h.Online(UserRoom(7)))

	h.leave(c)
	h.leave(c)
	assert.Equal(t, 0, h.Online(UserRoom(7)))
	assert.Equal(t, 0.0, testutil.ToFloat64(reg.ChatConnections))

	_, open := <-c.send
	assert.False(t, open)
}

func TestHub_DeliverLocalOncePerClient(t *testing.T) {
	h := NewHub(nil)
	c := &client{hub: h, rooms: []Room{StaffRoom, UserRoom(1)}, send: make(chan []byte, 4)}
	h.join(c)

	h.deliverLocal([]Room{StaffRoom, UserRoom(1)}, []byte(`{}`))
	assert.Len(t, c.send, 1)
}

func TestHub_SlowClientIsSkipped(t *testing.T) {
	h := NewHub(nil)
	slow := &client{hub: h, rooms: []Room{StaffRoom}, send: make(chan []byte, 1)}
	h.join(slow)

	h.deliverLocal([]Room{StaffRoom}, []byte(`1`))
	h.deliverLocal([]Room{StaffRoom}, []byte(`2`))
	assert.Len(t, slow.send, 1)
}

type capturePublisher struct {
	mu    sync.Mutex
	rooms [][]Room
}

func (p *capturePublisher) Publish(_ context.Context, rooms []Room, _ []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rooms = append(p.rooms, rooms)
	return nil
}

func TestHub_DeliverRoutes(t *testing.T) {
	h := NewHub(nil)
	pub := &capturePublisher{}
	h.SetPublisher(pub)

	h.Deliver(context.Background(), &Delivery{UserID: 7, ConversationID: 3, IsNewUserMessage: true})
	h.Deliver(context.Background(), &Delivery{UserID: 7, ConversationID: 3, FromStaff: true})

	require.Len(t, pub.rooms, 3)
	assert.Equal(t, []Room{UserRoom(7)}, pub.rooms[0])
	assert.Equal(t, []Room{StaffRoom}, pub.rooms[1])
	assert.Equal(t, []Room{StaffRoom, UserRoom(7)}, pub.rooms[2])
}

func TestRelay_HandleSkipsOwnOrigin(t *testing.T) {
	h := NewHub(nil)
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { rdb.Close() })
	relay := NewRelay(rdb, h)

	c := &client{hub: h, rooms: []Room{UserRoom(7)}, send: make(chan []byte, 4)}
	h.join(c)

	own, err := json.Marshal(relayEnvelope{Origin: relay.instanceID, Rooms: []Room{UserRoom(7)}, Payload: json.RawMessage(`{"type":"message"}`)})
	require.NoError(t, err)
	assert.False(t, relay.handle(own))
	assert.Len(t, c.send, 0)

	foreign, err := json.Marshal(relayEnvelope{Origin: "other-node", Rooms: []Room{UserRoom(7)}, Payload: json.RawMessage(`{"type":"message"}`)})
	require.NoError(t, err)
	assert.True(t, relay.handle(foreign))
	require.Len(t, c.send, 1)
	assert.JSONEq(t, `{"type":"message"}`, string(<-c.send))

	assert.False(t, relay.handle([]byte("nope")))
}

func TestUserRoom(t *testing.T) {
	assert.Equal(t, Room("user:42"), UserRoom(42))
	assert.Equal(t, []Room{StaffRoom}, roomsFor(staff))
	assert.Equal(t, []Room{UserRoom(7)}, roomsFor(customer))
}
