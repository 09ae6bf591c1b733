package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/warehouse-sim/sim/engine"
	"github.com/wricardo/warehouse-sim/sim/state"
)

func newTestHub() (*Hub, *test.Hook) {
	logger, hook := test.NewNullLogger()
	return NewHub(logger), hook
}

func newTestSubscriber(hub *Hub, sessionID string) *subscriber {
	return &subscriber{
		hub:       hub,
		sessionID: sessionID,
		out:       make(chan []byte, subscriberBuffer),
	}
}

func testSnapshot() state.Snapshot {
	return state.Snapshot{
		GridID:         "default",
		SimulationTime: 7,
		RunStatus:      state.RunRunning,
		Robots: []state.Robot{
			{ID: "r1", Battery: 80, CurrentLocation: state.Coordinates{X: 5, Y: 3}},
		},
	}
}

func TestNewHub(t *testing.T) {
	hub, _ := newTestHub()

	require.NotNil(t, hub)
	assert.NotNil(t, hub.rooms)
	assert.NotNil(t, hub.join)
	assert.NotNil(t, hub.leave)
	assert.Equal(t, broadcastQueueSize, cap(hub.outbox))
}

func TestHubAddSubscriber(t *testing.T) {
	hub, _ := newTestHub()
	sub := newTestSubscriber(hub, "test-session")

	hub.addSubscriber(sub)

	require.Contains(t, hub.rooms, "test-session")
	assert.Contains(t, hub.rooms["test-session"], sub)
	assert.Len(t, hub.rooms["test-session"], 1)
}

func TestHubRemoveSubscriber(t *testing.T) {
	hub, _ := newTestHub()
	sub := newTestSubscriber(hub, "test-session")

	hub.addSubscriber(sub)
	hub.removeSubscriber(sub)

	assert.NotContains(t, hub.rooms, "test-session")

	_, open := <-sub.out
	assert.False(t, open, "queue should be closed")

	// removing twice is harmless
	hub.removeSubscriber(sub)
}

func TestHubSeveralSubscribersPerSession(t *testing.T) {
	hub, _ := newTestHub()
	sessionID := "shared-session"

	first := newTestSubscriber(hub, sessionID)
	second := newTestSubscriber(hub, sessionID)

	hub.addSubscriber(first)
	hub.addSubscriber(second)
	assert.Len(t, hub.rooms[sessionID], 2)

	hub.removeSubscriber(first)
	assert.Len(t, hub.rooms[sessionID], 1)
	assert.Contains(t, hub.rooms[sessionID], second)
}

func TestHubBroadcastSnapshot(t *testing.T) {
	hub, _ := newTestHub()
	sessionID := "broadcast-test"

	sub := newTestSubscriber(hub, sessionID)
	other := newTestSubscriber(hub, "other-session")
	hub.addSubscriber(sub)
	hub.addSubscriber(other)

	hub.BroadcastSnapshot(sessionID, testSnapshot())
	require.Len(t, hub.outbox, 1)
	hub.deliver(<-hub.outbox)

	select {
	case data := <-sub.out:
		var message Envelope
		require.NoError(t, json.Unmarshal(data, &message))
		assert.Equal(t, sessionID, message.SessionID)
		assert.Equal(t, EventStateUpdate, message.Event)
		require.NotNil(t, message.Snapshot)
		assert.Equal(t, 7, message.Snapshot.SimulationTime)
		require.Len(t, message.Snapshot.Robots, 1)
		assert.Equal(t, state.Coordinates{X: 5, Y: 3}, message.Snapshot.Robots[0].CurrentLocation)
	default:
		t.Fatal("no frame delivered to the session subscriber")
	}

	assert.Empty(t, other.out, "other sessions must not receive the update")
}

func TestHubBroadcastEvent(t *testing.T) {
	hub, _ := newTestHub()

	hub.BroadcastEvent("event-test", "custom-event", "test-data")

	select {
	case message := <-hub.outbox:
		assert.Equal(t, "event-test", message.SessionID)
		assert.Equal(t, "custom-event", message.Event)
		assert.Equal(t, "test-data", message.Data)
		assert.Nil(t, message.Snapshot)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("no broadcast message queued")
	}
}

func TestHubBroadcastNeverBlocks(t *testing.T) {
	hub, hook := newTestHub()

	// nothing drains the queue
	done := make(chan struct{})
	go func() {
		for i := 0; i < broadcastQueueSize+5; i++ {
			hub.BroadcastSnapshot("full", testSnapshot())
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a full queue")
	}

	assert.Len(t, hub.outbox, broadcastQueueSize)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "broadcast queue full, dropping message", hook.LastEntry().Message)
}

func TestHubMatchesSessionIDsCaseInsensitively(t *testing.T) {
	hub, _ := newTestHub()
	sub := newTestSubscriber(hub, "AB12")
	hub.addSubscriber(sub)

	hub.Observer("ab12").StateChanged(testSnapshot())
	hub.deliver(<-hub.outbox)

	select {
	case data := <-sub.out:
		var message Envelope
		require.NoError(t, json.Unmarshal(data, &message))
		assert.Equal(t, EventStateUpdate, message.Event)
	default:
		t.Fatal("subscriber with different casing received nothing")
	}

	hub.removeSubscriber(sub)
	assert.Empty(t, hub.rooms)
}

func TestHubSlowSubscriberIsDropped(t *testing.T) {
	hub, hook := newTestHub()
	sub := &subscriber{hub: hub, sessionID: "slow", out: make(chan []byte, 1)}
	hub.addSubscriber(sub)

	hub.deliver(&Envelope{SessionID: "slow", Event: "one"})
	hub.deliver(&Envelope{SessionID: "slow", Event: "two"})

	assert.NotContains(t, hub.rooms, "slow")
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "subscriber too slow, disconnecting", hook.LastEntry().Message)
}

func TestHubObserver(t *testing.T) {
	hub, _ := newTestHub()
	observer := hub.Observer("obs")

	observer.StateChanged(testSnapshot())
	observer.SimulationEnded(engine.FinalMetrics{GridID: "default", TotalTime: 12, TotalRecharges: 2})

	require.Len(t, hub.outbox, 2)

	update := <-hub.outbox
	assert.Equal(t, "obs", update.SessionID)
	assert.Equal(t, EventStateUpdate, update.Event)
	require.NotNil(t, update.Snapshot)

	ended := <-hub.outbox
	assert.Equal(t, EventSimulationEnded, ended.Event)
	metrics, ok := ended.Data.(engine.FinalMetrics)
	require.True(t, ok)
	assert.Equal(t, 12, metrics.TotalTime)
	assert.Equal(t, 2, metrics.TotalRecharges)
}

// newWSServer serves the hub and signals on registered once each
// subscriber has been handed to the hub loop
func newWSServer(t *testing.T, hub *Hub) (*httptest.Server, <-chan struct{}) {
	t.Helper()
	registered := make(chan struct{}, 8)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.URL.Query().Get("session")
		if sessionID == "" {
			sessionID = "default"
		}
		hub.ServeWS(w, r, sessionID)
		registered <- struct{}{}
	}))
	t.Cleanup(server.Close)
	return server, registered
}

func dial(t *testing.T, server *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "?session=" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebSocketMessageReceive(t *testing.T) {
	hub, _ := newTestHub()
	go hub.Run()

	server, registered := newWSServer(t, hub)
	conn := dial(t, server, "msg-test")

	select {
	case <-registered:
	case <-time.After(time.Second):
		t.Fatal("subscriber was not registered")
	}

	hub.BroadcastSnapshot("msg-test", testSnapshot())
	hub.BroadcastEvent("msg-test", EventSessionDeleted, nil)

	conn.SetReadDeadline(time.Now().Add(time.Second))

	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var update Envelope
	require.NoError(t, json.Unmarshal(data, &update))
	assert.Equal(t, "msg-test", update.SessionID)
	require.NotNil(t, update.Snapshot)
	assert.Equal(t, state.RunRunning, update.Snapshot.RunStatus)
	assert.Equal(t, 80.0, update.Snapshot.Robots[0].Battery)

	_, data, err = conn.ReadMessage()
	require.NoError(t, err)
	var deleted Envelope
	require.NoError(t, json.Unmarshal(data, &deleted))
	assert.Equal(t, EventSessionDeleted, deleted.Event)
}

func TestWebSocketTicksReachSubscriberWithDifferentCasing(t *testing.T) {
	hub, _ := newTestHub()
	go hub.Run()

	server, registered := newWSServer(t, hub)
	conn := dial(t, server, "AB12")
	select {
	case <-registered:
	case <-time.After(time.Second):
		t.Fatal("subscriber was not registered")
	}

	observer := hub.Observer("ab12")
	observer.StateChanged(testSnapshot())
	observer.SimulationEnded(engine.FinalMetrics{GridID: "default", TotalTime: 3})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	for _, want := range []string{EventStateUpdate, EventSimulationEnded} {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var message Envelope
		require.NoError(t, json.Unmarshal(data, &message))
		assert.Equal(t, want, message.Event)
	}
}

func TestWebSocketSessionIsolation(t *testing.T) {
	hub, _ := newTestHub()
	go hub.Run()

	server, registered := newWSServer(t, hub)
	a := dial(t, server, "iso-a")
	b := dial(t, server, "iso-b")
	for i := 0; i < 2; i++ {
		select {
		case <-registered:
		case <-time.After(time.Second):
			t.Fatal("subscriber was not registered")
		}
	}

	hub.BroadcastEvent("iso-b", "only-b", "payload")

	b.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := b.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(data), "only-b")

	a.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err = a.ReadMessage()
	assert.Error(t, err, "a subscriber of another session must not receive the event")
}
