// Package relay fans realtime events out to connected sessions. Sessions
// subscribe to topics; publishing to a topic reaches only its subscribers.
// Delivery is best effort: there is no ordering across topics, no replay and
// no acknowledgement, and a session whose buffer is full misses the frame.
package relay

import (
	"encoding/json"
	"strconv"
	"sync"

	"campusride/pkg/logger"
	"campusride/pkg/metrics"
)

const TopicDrivers = "drivers"

func UserTopic(userID int64) string   { return "user:" + strconv.FormatInt(userID, 10) }
func RideTopic(rideID int64) string   { return "ride:" + strconv.FormatInt(rideID, 10) }
func DriverTopic(userID int64) string { return "driver:" + strconv.FormatInt(userID, 10) }

type Session interface {
	ID() string
	// Send queues an encoded frame and reports false if it was dropped.
	Send(frame []byte) bool
}

type Frame struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type Hub struct {
	mu       sync.RWMutex
	sessions map[string]Session
	topics   map[string]map[string]struct{}
	// subs is the reverse of topics so Unregister does not scan every topic.
	subs map[string]map[string]struct{}
	log  logger.ILogger
}

func NewHub(log logger.ILogger) *Hub {
	return &Hub{
		sessions: make(map[string]Session),
		topics:   make(map[string]map[string]struct{}),
		subs:     make(map[string]map[string]struct{}),
		log:      log,
	}
}

func (h *Hub) Register(s Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sessions[s.ID()]; !ok {
		metrics.ConnectedSessions.Inc()
	}
	h.sessions[s.ID()] = s
}

// Unregister drops the session and all of its subscriptions. Unknown ids are ignored.
func (h *Hub) Unregister(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sessions[sessionID]; !ok {
		return
	}
	delete(h.sessions, sessionID)
	metrics.ConnectedSessions.Dec()

	for topic := range h.subs[sessionID] {
		members := h.topics[topic]
		delete(members, sessionID)
		if len(members) == 0 {
			delete(h.topics, topic)
		}
	}
	delete(h.subs, sessionID)
}

// Subscribe adds the session to topic. It is a no-op for unregistered sessions.
func (h *Hub) Subscribe(sessionID, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sessions[sessionID]; !ok {
		return
	}
	if h.topics[topic] == nil {
		h.topics[topic] = make(map[string]struct{})
	}
	h.topics[topic][sessionID] = struct{}{}
	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[string]struct{})
	}
	h.subs[sessionID][topic] = struct{}{}
}

func (h *Hub) Unsubscribe(sessionID, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.topics[topic]; ok {
		delete(members, sessionID)
		if len(members) == 0 {
			delete(h.topics, topic)
		}
	}
	delete(h.subs[sessionID], topic)
}

func (h *Hub) Subscribed(sessionID, topic string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, ok := h.topics[topic][sessionID]
	return ok
}

func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Publish delivers event to every subscriber of topic except the listed
// sessions and returns how many sessions accepted the frame.
func (h *Hub) Publish(topic, event string, payload interface{}, except ...string) int {
	frame, ok := h.encode(event, payload)
	if !ok {
		return 0
	}

	h.mu.RLock()
	targets := make([]Session, 0, len(h.topics[topic]))
	for id := range h.topics[topic] {
		if s, ok := h.sessions[id]; ok && !contains(except, id) {
			targets = append(targets, s)
		}
	}
	h.mu.RUnlock()

	return h.deliver(event, frame, targets)
}

// Broadcast delivers event to every connected session except the listed ones.
func (h *Hub) Broadcast(event string, payload interface{}, except ...string) int {
	frame, ok := h.encode(event, payload)
	if !ok {
		return 0
	}

	h.mu.RLock()
	targets := make([]Session, 0, len(h.sessions))
	for id, s := range h.sessions {
		if !contains(except, id) {
			targets = append(targets, s)
		}
	}
	h.mu.RUnlock()

	return h.deliver(event, frame, targets)
}

// SendTo delivers event to a single session.
func (h *Hub) SendTo(sessionID, event string, payload interface{}) bool {
	frame, ok := h.encode(event, payload)
	if !ok {
		return false
	}

	h.mu.RLock()
	s, found := h.sessions[sessionID]
	h.mu.RUnlock()
	if !found {
		return false
	}
	return h.deliver(event, frame, []Session{s}) == 1
}

func (h *Hub) encode(event string, payload interface{}) ([]byte, bool) {
	frame, err := json.Marshal(Frame{Event: event, Data: payload})
	if err != nil {
		h.log.Error("failed to encode realtime frame", logger.String("event", event), logger.Error(err))
		return nil, false
	}
	return frame, true
}

func (h *Hub) deliver(event string, frame []byte, targets []Session) int {
	delivered := 0
	for _, s := range targets {
		if s.Send(frame) {
			delivered++
			continue
		}
		metrics.RelayFramesTotal.WithLabelValues(event, "dropped").Inc()
		h.log.Debug("realtime frame dropped", logger.String("event", event), logger.String("session_id", s.ID()))
	}
	metrics.RelayFramesTotal.WithLabelValues(event, "delivered").Add(float64(delivered))
	return delivered
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
