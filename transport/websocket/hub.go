package websocket

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/wricardo/warehouse-sim/sim/engine"
	"github.com/wricardo/warehouse-sim/sim/state"
)

const (
	writeTimeout = 10 * time.Second
	// a subscriber that sends no pong within this window is gone
	pongTimeout  = 60 * time.Second
	pingInterval = pongTimeout * 9 / 10
	// subscribers never send payloads, only control frames
	readLimit = 512

	subscriberBuffer   = 64
	broadcastQueueSize = 256
)

// Event names carried by Envelope.Event
const (
	EventStateUpdate     = "state_update"
	EventSimulationEnded = "simulation_ended"
	EventSessionDeleted  = "session_deleted"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Envelope is one frame pushed to the subscribers of a session
type Envelope struct {
	SessionID string          `json:"session_id"`
	Snapshot  *state.Snapshot `json:"snapshot,omitempty"`
	Event     string          `json:"event,omitempty"`
	Data      interface{}     `json:"data,omitempty"`
}

// subscriber is one WebSocket connection watching a session
type subscriber struct {
	hub       *Hub
	conn      *websocket.Conn
	out       chan []byte
	sessionID string
}

type room map[*subscriber]struct{}

// Hub fans simulation updates out to the subscribers of each session. All
// room bookkeeping happens on the Run goroutine.
type Hub struct {
	rooms  map[string]room
	outbox chan *Envelope
	join   chan *subscriber
	leave  chan *subscriber
	logger logrus.FieldLogger
}

// NewHub creates a hub. A nil logger uses the standard logger.
func NewHub(logger logrus.FieldLogger) *Hub {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Hub{
		rooms:  make(map[string]room),
		outbox: make(chan *Envelope, broadcastQueueSize),
		join:   make(chan *subscriber),
		leave:  make(chan *subscriber),
		logger: logger.WithField("component", "websocket"),
	}
}

// Run processes joins, leaves and broadcasts until the process exits
func (h *Hub) Run() {
	for {
		select {
		case sub := <-h.join:
			h.addSubscriber(sub)
		case sub := <-h.leave:
			h.removeSubscriber(sub)
		case env := <-h.outbox:
			h.deliver(env)
		}
	}
}

// ServeWS upgrades the request and subscribes the connection to sessionID
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, sessionID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}

	sub := &subscriber{
		hub:       h,
		conn:      conn,
		out:       make(chan []byte, subscriberBuffer),
		sessionID: sessionID,
	}
	h.join <- sub

	go sub.flush()
	go sub.listen()
}

// BroadcastSnapshot queues a state update for a session. It never blocks;
// when the queue is full the update is dropped.
func (h *Hub) BroadcastSnapshot(sessionID string, snapshot state.Snapshot) {
	h.enqueue(&Envelope{SessionID: sessionID, Snapshot: &snapshot, Event: EventStateUpdate})
}

// BroadcastEvent queues a named event for a session
func (h *Hub) BroadcastEvent(sessionID string, event string, data interface{}) {
	h.enqueue(&Envelope{SessionID: sessionID, Event: event, Data: data})
}

// Observer returns an engine observer that pushes one session's progress
// to its subscribers
func (h *Hub) Observer(sessionID string) engine.Observer {
	return engine.ObserverFuncs{
		OnStateChanged: func(snapshot state.Snapshot) {
			h.BroadcastSnapshot(sessionID, snapshot)
		},
		OnSimulationEnded: func(metrics engine.FinalMetrics) {
			h.BroadcastEvent(sessionID, EventSimulationEnded, metrics)
		},
	}
}

func (h *Hub) enqueue(env *Envelope) {
	select {
	case h.outbox <- env:
	default:
		h.logger.WithFields(logrus.Fields{
			"session": env.SessionID,
			"event":   env.Event,
		}).Warn("broadcast queue full, dropping message")
	}
}

// roomKey matches session ids case-insensitively, like the session manager
func roomKey(sessionID string) string {
	return strings.ToLower(sessionID)
}

func (h *Hub) addSubscriber(sub *subscriber) {
	key := roomKey(sub.sessionID)
	r, ok := h.rooms[key]
	if !ok {
		r = make(room)
		h.rooms[key] = r
	}
	r[sub] = struct{}{}

	h.logger.WithFields(logrus.Fields{"session": sub.sessionID, "subscribers": len(r)}).Debug("subscriber joined")
}

// removeSubscriber closes the subscriber's queue. Removing twice is a no-op.
func (h *Hub) removeSubscriber(sub *subscriber) {
	key := roomKey(sub.sessionID)
	r := h.rooms[key]
	if _, ok := r[sub]; !ok {
		return
	}

	delete(r, sub)
	close(sub.out)
	if len(r) == 0 {
		delete(h.rooms, key)
	}

	h.logger.WithFields(logrus.Fields{"session": sub.sessionID, "subscribers": len(r)}).Debug("subscriber left")
}

// deliver encodes env once and hands it to every subscriber of its session.
// Subscribers whose queue is full are disconnected.
func (h *Hub) deliver(env *Envelope) {
	r := h.rooms[roomKey(env.SessionID)]
	if len(r) == 0 {
		return
	}

	frame, err := json.Marshal(env)
	if err != nil {
		h.logger.WithError(err).Error("failed to encode broadcast")
		return
	}

	for sub := range r {
		select {
		case sub.out <- frame:
		default:
			h.logger.WithField("session", env.SessionID).Warn("subscriber too slow, disconnecting")
			h.removeSubscriber(sub)
		}
	}
}

// listen drains control frames so pongs are seen, and leaves the hub when
// the peer goes away
func (s *subscriber) listen() {
	defer func() {
		s.hub.leave <- s
		s.conn.Close()
	}()

	s.conn.SetReadLimit(readLimit)
	s.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.hub.logger.WithError(err).Warn("websocket read error")
			}
			return
		}
	}
}

// flush writes queued frames and keepalive pings until the hub closes the
// queue or a write fails
func (s *subscriber) flush() {
	ping := time.NewTicker(pingInterval)
	defer func() {
		ping.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-s.out:
			if !ok {
				s.write(websocket.CloseMessage, nil)
				return
			}
			if s.write(websocket.TextMessage, frame) != nil {
				return
			}
		case <-ping.C:
			if s.write(websocket.PingMessage, nil) != nil {
				return
			}
		}
	}
}

func (s *subscriber) write(messageType int, data []byte) error {
	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteMessage(messageType, data)
}
