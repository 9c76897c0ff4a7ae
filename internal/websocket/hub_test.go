package websocket_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dom/stay-portal/internal/domain"
	"github.com/dom/stay-portal/internal/repository/memory"
	"github.com/dom/stay-portal/internal/session"
	"github.com/dom/stay-portal/internal/testutil"
	"github.com/dom/stay-portal/internal/websocket"
	"github.com/google/uuid"
	gorillaWS "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultTimeout = 5 * time.Second

func startHub(t *testing.T) (*websocket.Hub, *httptest.Server) {
	t.Helper()

	hub := websocket.NewHub("/")
	go hub.Run()
	t.Cleanup(hub.Stop)

	upgrader := gorillaWS.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid, err := uuid.Parse(r.URL.Query().Get("sid"))
		if err != nil {
			http.Error(w, "bad session", http.StatusBadRequest)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := websocket.NewClient(hub, conn, sid)
		hub.Register(client)
		go client.WritePump()
		go client.ReadPump()
	}))
	t.Cleanup(srv.Close)
	return hub, srv
}

func connect(t *testing.T, hub *websocket.Hub, srv *httptest.Server, sid uuid.UUID, want int) *testutil.WSClient {
	t.Helper()
	c := testutil.NewWSClient(t, srv.URL+"?sid="+sid.String(), nil)
	require.Eventually(t, func() bool { return hub.Connections(sid) == want }, defaultTimeout, 10*time.Millisecond)
	return c
}

func TestHub_NotifyReachesOnlyThatSession(t *testing.T) {
	hub, srv := startHub(t)
	sidA, sidB := uuid.New(), uuid.New()

	tab1 := connect(t, hub, srv, sidA, 1)
	tab2 := connect(t, hub, srv, sidA, 2)
	other := connect(t, hub, srv, sidB, 1)

	hub.Notify(sidA, domain.Flash{ID: "f1", Level: domain.FlashSuccess, Message: "Booking created"})

	for _, tab := range []*testutil.WSClient{tab1, tab2} {
		msg := tab.Expect(string(websocket.MessageTypeNotification), defaultTimeout)
		var payload websocket.NotificationPayload
		msg.Decode(t, &payload)
		assert.Equal(t, "f1", payload.ID)
		assert.Equal(t, "success", payload.Level)
		assert.Equal(t, "Booking created", payload.Message)
	}
	other.ExpectNone(string(websocket.MessageTypeNotification), 200*time.Millisecond)
}

func TestHub_DismissIsMirroredToOtherTabs(t *testing.T) {
	hub, srv := startHub(t)
	sid := uuid.New()
	tab1 := connect(t, hub, srv, sid, 1)
	tab2 := connect(t, hub, srv, sid, 2)

	tab1.Send(string(websocket.MessageTypeDismiss), websocket.DismissPayload{ID: "f9"})

	msg := tab2.Expect(string(websocket.MessageTypeDismissed), defaultTimeout)
	var payload websocket.DismissPayload
	msg.Decode(t, &payload)
	assert.Equal(t, "f9", payload.ID)
	tab1.ExpectNone(string(websocket.MessageTypeDismissed), 200*time.Millisecond)
}

func TestHub_InvalidMessagesGetAnError(t *testing.T) {
	hub, srv := startHub(t)
	tab := connect(t, hub, srv, uuid.New(), 1)

	tab.Send("SELECT_CHAMPION", map[string]string{"id": "x"})
	msg := tab.Expect(string(websocket.MessageTypeError), defaultTimeout)
	var payload websocket.ErrorPayload
	msg.Decode(t, &payload)
	assert.Equal(t, "UNKNOWN_TYPE", payload.Code)

	tab.Send(string(websocket.MessageTypeDismiss), map[string]string{})
	msg = tab.Expect(string(websocket.MessageTypeError), defaultTimeout)
	msg.Decode(t, &payload)
	assert.Equal(t, "INVALID_PAYLOAD", payload.Code)
}

func TestHub_SessionClearedEndsEveryTab(t *testing.T) {
	hub, srv := startHub(t)
	sealer, err := session.NewRandomSealer()
	require.NoError(t, err)
	sessions := session.NewManager(memory.NewSessionRepository(), sealer, time.Hour)
	sessions.Subscribe(hub.SessionCleared)

	sid := uuid.New()
	tab1 := connect(t, hub, srv, sid, 1)
	tab2 := connect(t, hub, srv, sid, 2)

	require.NoError(t, sessions.For(sid).Clear(context.Background(), session.ReasonUnauthorized))

	for _, tab := range []*testutil.WSClient{tab1, tab2} {
		msg := tab.Expect(string(websocket.MessageTypeSessionEnded), defaultTimeout)
		var payload websocket.SessionEndedPayload
		msg.Decode(t, &payload)
		assert.Equal(t, "unauthorized", payload.Reason)
		assert.Equal(t, "/", payload.Redirect)
	}
}

func TestHub_ClosedTabIsUnregistered(t *testing.T) {
	hub, srv := startHub(t)
	sid := uuid.New()
	connect(t, hub, srv, sid, 1)
	tab2 := connect(t, hub, srv, sid, 2)

	tab2.Close()
	require.Eventually(t, func() bool { return hub.Connections(sid) == 1 }, defaultTimeout, 10*time.Millisecond)
}

func TestHub_StopClosesConnections(t *testing.T) {
	hub, srv := startHub(t)
	sid := uuid.New()
	connect(t, hub, srv, sid, 1)

	hub.Stop()
	assert.Equal(t, 0, hub.Connections(sid))

	// publishing after stop is a no-op rather than a deadlock
	hub.Notify(sid, domain.Flash{ID: "late", Message: "ignored"})
}
