package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"campusride/pkg/apperr"
	"campusride/pkg/logger"
	"campusride/pkg/models"
	"campusride/pkg/relay"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 64
	handlerTimeout = 5 * time.Second
)

// Realtime events.
const (
	evAuthenticate   = "authenticate"
	evDriverOnline   = "driverOnline"
	evDriverOffline  = "driverOffline"
	evLocationUpdate = "locationUpdate"
	evChatMessage    = "chatMessage"
	evTyping         = "typing"
	evJoinRide       = "joinRide"

	evDriverLocationUpdate = "driverLocationUpdate"
	evUserTyping           = "userTyping"
	evError                = "error"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

type inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// wsSession is one connected client. The hub writes into send; only
// writePump touches the connection for writing.
type wsSession struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (s *wsSession) ID() string { return s.id }

func (s *wsSession) Send(frame []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- frame:
		return true
	default:
		return false
	}
}

func (s *wsSession) close() {
	s.once.Do(func() { close(s.done) })
}

func (h *handler) serveWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warning("websocket upgrade failed", logger.Error(err))
		return
	}

	s := &wsSession{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
	h.hub.Register(s)
	h.log.Debug("realtime session connected", logger.String("session_id", s.id))

	go h.writePump(s)
	h.readPump(s)
}

func (h *handler) readPump(s *wsSession) {
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
		userID, bound := h.presence.OnDisconnect(ctx, s.id)
		cancel()
		h.hub.Unregister(s.id)
		s.close()
		_ = s.conn.Close()
		if bound {
			h.log.Debug("realtime session disconnected", logger.String("session_id", s.id), logger.Int64("user_id", userID))
		}
	}()

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warning("realtime read failed", logger.String("session_id", s.id), logger.Error(err))
			}
			return
		}
		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			h.hub.SendTo(s.id, evError, gin.H{"error": "malformed frame"})
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
		h.dispatch(ctx, s, msg)
		cancel()
	}
}

func (h *handler) writePump(s *wsSession) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case frame := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (h *handler) dispatch(ctx context.Context, s *wsSession, msg inbound) {
	switch msg.Event {
	case evAuthenticate:
		h.onAuthenticate(s, msg.Data)
	case evDriverOnline:
		h.onDriverOnline(ctx, s, msg.Data)
	case evDriverOffline:
		h.onDriverOffline(ctx, s, msg.Data)
	case evLocationUpdate:
		h.onLocationUpdate(ctx, s, msg.Data)
	case evChatMessage:
		h.onChatMessage(ctx, s, msg.Data)
	case evTyping:
		h.onTyping(s, msg.Data)
	case evJoinRide:
		h.onJoinRide(ctx, s, msg.Data)
	default:
		h.sendError(s, "unknown event "+msg.Event)
	}
}

func (h *handler) sendError(s *wsSession, msg string) {
	h.hub.SendTo(s.id, evError, gin.H{"error": msg})
}

// onAuthenticate accepts a bare user id, or {"token": "..."} which is
// verified and wins over any id in the same frame.
func (h *handler) onAuthenticate(s *wsSession, data json.RawMessage) {
	var userID int64
	if err := json.Unmarshal(data, &userID); err != nil {
		var body struct {
			UserID int64  `json:"userId"`
			Token  string `json:"token"`
		}
		if err := json.Unmarshal(data, &body); err != nil {
			h.sendError(s, "malformed authenticate")
			return
		}
		userID = body.UserID
		if body.Token != "" {
			claims, err := h.tokens.Validate(body.Token)
			if err != nil {
				h.sendError(s, "invalid token")
				return
			}
			userID = claims.UserID
		}
	}
	if userID <= 0 {
		h.sendError(s, "malformed authenticate")
		return
	}

	h.presence.Bind(userID, s.id)
	h.hub.Subscribe(s.id, relay.UserTopic(userID))
	h.log.Debug("realtime session authenticated", logger.String("session_id", s.id), logger.Int64("user_id", userID))
}

type driverOnlineData struct {
	DriverID int64           `json:"driverId"`
	Location models.Location `json:"location"`
}

func (h *handler) onDriverOnline(ctx context.Context, s *wsSession, data json.RawMessage) {
	var body driverOnlineData
	if err := json.Unmarshal(data, &body); err != nil || body.DriverID <= 0 {
		h.sendError(s, "malformed driverOnline")
		return
	}
	h.hub.Subscribe(s.id, relay.TopicDrivers)
	if err := h.presence.MarkOnline(ctx, body.DriverID, s.id, body.Location); err != nil {
		h.log.Error("failed to persist driver online", logger.Int64("driver_id", body.DriverID), logger.Error(err))
		return
	}
	h.log.Info("driver online", logger.Int64("driver_id", body.DriverID))
}

func (h *handler) onDriverOffline(ctx context.Context, s *wsSession, data json.RawMessage) {
	var driverID int64
	if err := json.Unmarshal(data, &driverID); err != nil || driverID <= 0 {
		h.sendError(s, "malformed driverOffline")
		return
	}
	h.hub.Unsubscribe(s.id, relay.TopicDrivers)
	if err := h.presence.MarkOffline(ctx, driverID); err != nil {
		h.log.Error("failed to persist driver offline", logger.Int64("driver_id", driverID), logger.Error(err))
		return
	}
	h.log.Info("driver offline", logger.Int64("driver_id", driverID))
}

type locationUpdateData struct {
	UserID   int64           `json:"userId"`
	Location models.Location `json:"location"`
}

// onLocationUpdate relays a move to whoever follows the driver. Updates from
// drivers that are not online are dropped.
func (h *handler) onLocationUpdate(ctx context.Context, s *wsSession, data json.RawMessage) {
	var body locationUpdateData
	if err := json.Unmarshal(data, &body); err != nil || body.UserID <= 0 {
		h.sendError(s, "malformed locationUpdate")
		return
	}
	if !h.presence.UpdateLocation(ctx, body.UserID, body.Location) {
		return
	}
	h.hub.Publish(relay.DriverTopic(body.UserID), evDriverLocationUpdate,
		models.DriverLocation{DriverID: body.UserID, Location: body.Location}, s.id)
}

func (h *handler) onChatMessage(ctx context.Context, s *wsSession, data json.RawMessage) {
	var req models.SendMessageRequest
	if err := json.Unmarshal(data, &req); err != nil {
		h.sendError(s, "malformed chatMessage")
		return
	}
	if _, err := h.svc.Chat().Send(ctx, req); err != nil {
		if apperr.KindOf(err) == apperr.KindInternal {
			h.log.Error("failed to store chat message", logger.Int64("ride_id", req.RideID), logger.Error(err))
			return
		}
		h.sendError(s, err.Error())
	}
}

func (h *handler) onTyping(s *wsSession, data json.RawMessage) {
	var body struct {
		RideID int64 `json:"rideId"`
	}
	if err := json.Unmarshal(data, &body); err != nil || body.RideID <= 0 {
		h.sendError(s, "malformed typing")
		return
	}
	topic := relay.RideTopic(body.RideID)
	if !h.hub.Subscribed(s.id, topic) {
		return
	}
	h.hub.Publish(topic, evUserTyping, data, s.id)
}

// onJoinRide subscribes an authenticated participant to the ride and, for
// the student, to the assigned driver's location.
func (h *handler) onJoinRide(ctx context.Context, s *wsSession, data json.RawMessage) {
	var body struct {
		RideID int64 `json:"rideId"`
	}
	if err := json.Unmarshal(data, &body); err != nil || body.RideID <= 0 {
		h.sendError(s, "malformed joinRide")
		return
	}
	userID, ok := h.presence.UserOf(s.id)
	if !ok {
		h.sendError(s, "authenticate first")
		return
	}

	ride, err := h.svc.Ride().Get(ctx, body.RideID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInternal {
			h.log.Error("failed to load ride", logger.Int64("ride_id", body.RideID), logger.Error(err))
			return
		}
		h.sendError(s, err.Error())
		return
	}
	if ride.StudentID != userID && !ride.AssignedTo(userID) {
		h.sendError(s, "Not a participant of this ride")
		return
	}

	h.hub.Subscribe(s.id, relay.RideTopic(ride.ID))
	if ride.StudentID == userID && ride.DriverID != nil && ride.Status.Open() {
		h.hub.Subscribe(s.id, relay.DriverTopic(*ride.DriverID))
	}
}
