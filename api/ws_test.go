package api

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusride/pkg/models"
	"campusride/pkg/relay"
)

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func emit(t *testing.T, conn *websocket.Conn, event string, data interface{}) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]interface{}{"event": event, "data": data}))
}

// expect reads frames until one named event arrives.
func expect(t *testing.T, conn *websocket.Conn, event string) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var f frame
		require.NoError(t, conn.ReadJSON(&f), "waiting for %s", event)
		if f.Event == event {
			return f
		}
	}
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	assert.Eventually(t, cond, 2*time.Second, 10*time.Millisecond)
}

func registerUser(t *testing.T, e *testEnv, name string) *models.User {
	t.Helper()
	_, u, err := e.svc.User().Register(context.Background(), models.RegisterRequest{
		Username: name, Email: name + "@uni.edu", Password: "pw", StudentID: "S-" + name,
	})
	require.NoError(t, err)
	return u
}

// connect dials and authenticates as userID, returning the bound session id.
func connect(t *testing.T, e *testEnv, srv *httptest.Server, userID int64) (*websocket.Conn, string) {
	t.Helper()
	conn := dial(t, srv)
	emit(t, conn, evAuthenticate, userID)
	eventually(t, func() bool {
		_, ok := e.presence.SessionOf(userID)
		return ok
	})
	sess, _ := e.presence.SessionOf(userID)
	return conn, sess
}

func goOnline(t *testing.T, e *testEnv, conn *websocket.Conn, driverID int64) {
	t.Helper()
	emit(t, conn, evDriverOnline, driverOnlineData{
		DriverID: driverID,
		Location: models.Location{Location: "Quad", Lat: 40.1, Lng: -88.2},
	})
	eventually(t, func() bool { return e.presence.IsOnline(driverID) })
}

func createRide(t *testing.T, e *testEnv, studentID int64) *models.Ride {
	t.Helper()
	ride, err := e.svc.Ride().Create(context.Background(), models.CreateRideRequest{
		StudentID:   studentID,
		Pickup:      models.Location{Location: "Dorm"},
		Destination: models.Location{Location: "Gym"},
		Passengers:  1,
		Fare:        10,
	})
	require.NoError(t, err)
	return ride
}

func TestRealtimeRideFlow(t *testing.T) {
	e := newTestEnv(t)
	srv := httptest.NewServer(e.router)
	defer srv.Close()
	ctx := context.Background()

	_, student, err := e.svc.User().Register(ctx, models.RegisterRequest{
		Username: "sarah", Email: "sarah@uni.edu", Password: "pw", StudentID: "S1",
	})
	require.NoError(t, err)
	_, driver, err := e.svc.User().Register(ctx, models.RegisterRequest{
		Username: "mike", Email: "mike@uni.edu", Password: "pw", StudentID: "S2",
	})
	require.NoError(t, err)

	driverConn := dial(t, srv)
	emit(t, driverConn, evAuthenticate, driver.ID)
	emit(t, driverConn, evDriverOnline, driverOnlineData{
		DriverID: driver.ID,
		Location: models.Location{Location: "Quad", Lat: 40.1, Lng: -88.2},
	})
	eventually(t, func() bool { return e.presence.IsOnline(driver.ID) })

	studentConn := dial(t, srv)
	token, err := e.tokens.Generate(student.ID, student.Email, false)
	require.NoError(t, err)
	emit(t, studentConn, evAuthenticate, map[string]string{"token": token})
	eventually(t, func() bool {
		_, ok := e.presence.SessionOf(student.ID)
		return ok
	})

	ride, err := e.svc.Ride().Create(ctx, models.CreateRideRequest{
		StudentID:   student.ID,
		Pickup:      models.Location{Location: "Dorm"},
		Destination: models.Location{Location: "Gym"},
		Passengers:  1,
		Fare:        10,
	})
	require.NoError(t, err)

	f := expect(t, driverConn, "newRideRequest")
	var created struct {
		Ride models.Ride `json:"ride"`
	}
	require.NoError(t, json.Unmarshal(f.Data, &created))
	assert.Equal(t, ride.ID, created.Ride.ID)

	_, err = e.svc.Ride().Accept(ctx, ride.ID, models.AcceptRideRequest{DriverID: driver.ID})
	require.NoError(t, err)
	expect(t, studentConn, "rideAccepted")
	expect(t, driverConn, "rideAccepted")

	emit(t, driverConn, evLocationUpdate, locationUpdateData{
		UserID:   driver.ID,
		Location: models.Location{Location: "Main St", Lat: 40.11, Lng: -88.21},
	})
	f = expect(t, studentConn, evDriverLocationUpdate)
	var moved models.DriverLocation
	require.NoError(t, json.Unmarshal(f.Data, &moved))
	assert.Equal(t, driver.ID, moved.DriverID)
	assert.Equal(t, "Main St", moved.Location.Location)

	emit(t, studentConn, evChatMessage, map[string]interface{}{
		"rideId": ride.ID, "senderId": student.ID, "message": "outside",
	})
	f = expect(t, driverConn, evChatMessage)
	var msg models.Message
	require.NoError(t, json.Unmarshal(f.Data, &msg))
	assert.Equal(t, "outside", msg.Message)

	emit(t, driverConn, evTyping, map[string]interface{}{"rideId": ride.ID, "userId": driver.ID})
	expect(t, studentConn, evUserTyping)

	require.NoError(t, driverConn.Close())
	eventually(t, func() bool { return !e.presence.IsOnline(driver.ID) })
	eventually(t, func() bool { return e.hub.SessionCount() == 1 })
}

func TestRealtimeErrors(t *testing.T) {
	e := newTestEnv(t)
	srv := httptest.NewServer(e.router)
	defer srv.Close()

	conn := dial(t, srv)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	expect(t, conn, evError)

	emit(t, conn, "nope", nil)
	expect(t, conn, evError)

	emit(t, conn, evJoinRide, map[string]int{"rideId": 1})
	f := expect(t, conn, evError)
	assert.Contains(t, string(f.Data), "authenticate first")
}

func TestLocationUpdateFromOfflineDriverIsDropped(t *testing.T) {
	e := newTestEnv(t)
	srv := httptest.NewServer(e.router)
	defer srv.Close()

	watcher := dial(t, srv)
	emit(t, watcher, evAuthenticate, 1)
	eventually(t, func() bool {
		_, ok := e.presence.SessionOf(1)
		return ok
	})
	sess, _ := e.presence.SessionOf(1)
	e.hub.Subscribe(sess, "driver:9")

	mover := dial(t, srv)
	emit(t, mover, evLocationUpdate, locationUpdateData{UserID: 9, Location: models.Location{Location: "X"}})
	// The unknown event errors after the update was handled, so anything
	// relayed to the watcher would arrive before this point.
	emit(t, mover, "nope", nil)
	expect(t, mover, evError)

	require.NoError(t, watcher.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	var f frame
	err := watcher.ReadJSON(&f)
	assert.Error(t, err, "no frame expected, got %s", f.Event)
	_, ok := e.presence.Location(9)
	assert.False(t, ok)
}

func TestJoinRideAfterReconnect(t *testing.T) {
	e := newTestEnv(t)
	srv := httptest.NewServer(e.router)
	defer srv.Close()
	ctx := context.Background()

	student := registerUser(t, e, "sarah")
	driver := registerUser(t, e, "mike")
	driverConn, _ := connect(t, e, srv, driver.ID)
	goOnline(t, e, driverConn, driver.ID)

	// Created while the student has no connection, so nothing subscribes them.
	ride := createRide(t, e, student.ID)

	studentConn, sess := connect(t, e, srv, student.ID)
	assert.False(t, e.hub.Subscribed(sess, relay.RideTopic(ride.ID)))
	emit(t, studentConn, evJoinRide, map[string]int64{"rideId": ride.ID})
	eventually(t, func() bool { return e.hub.Subscribed(sess, relay.RideTopic(ride.ID)) })

	_, err := e.svc.Ride().Accept(ctx, ride.ID, models.AcceptRideRequest{DriverID: driver.ID})
	require.NoError(t, err)
	f := expect(t, studentConn, "rideAccepted")
	var accepted struct {
		Ride models.Ride `json:"ride"`
	}
	require.NoError(t, json.Unmarshal(f.Data, &accepted))
	assert.Equal(t, ride.ID, accepted.Ride.ID)

	emit(t, driverConn, evLocationUpdate, locationUpdateData{
		UserID:   driver.ID,
		Location: models.Location{Location: "Main St", Lat: 40.11, Lng: -88.21},
	})
	f = expect(t, studentConn, evDriverLocationUpdate)
	var moved models.DriverLocation
	require.NoError(t, json.Unmarshal(f.Data, &moved))
	assert.Equal(t, "Main St", moved.Location.Location)
}

func TestJoinAcceptedRideFollowsDriver(t *testing.T) {
	e := newTestEnv(t)
	srv := httptest.NewServer(e.router)
	defer srv.Close()

	student := registerUser(t, e, "sarah")
	driver := registerUser(t, e, "mike")
	ride := createRide(t, e, student.ID)
	_, err := e.svc.Ride().Accept(context.Background(), ride.ID, models.AcceptRideRequest{DriverID: driver.ID})
	require.NoError(t, err)

	studentConn, sess := connect(t, e, srv, student.ID)
	emit(t, studentConn, evJoinRide, map[string]int64{"rideId": ride.ID})
	eventually(t, func() bool { return e.hub.Subscribed(sess, relay.DriverTopic(driver.ID)) })
	assert.True(t, e.hub.Subscribed(sess, relay.RideTopic(ride.ID)))
}

func TestJoinRideRejectsOutsider(t *testing.T) {
	e := newTestEnv(t)
	srv := httptest.NewServer(e.router)
	defer srv.Close()

	student := registerUser(t, e, "sarah")
	outsider := registerUser(t, e, "eve")
	ride := createRide(t, e, student.ID)

	conn, sess := connect(t, e, srv, outsider.ID)
	emit(t, conn, evJoinRide, map[string]int64{"rideId": ride.ID})
	f := expect(t, conn, evError)
	assert.Contains(t, string(f.Data), "Not a participant of this ride")
	assert.False(t, e.hub.Subscribed(sess, relay.RideTopic(ride.ID)))
}

func TestDriverOfflineStopsRideRequests(t *testing.T) {
	e := newTestEnv(t)
	srv := httptest.NewServer(e.router)
	defer srv.Close()
	ctx := context.Background()

	student := registerUser(t, e, "sarah")
	driver := registerUser(t, e, "mike")
	app, err := e.svc.Driver().Apply(ctx, models.DriverApplicationRequest{
		UserID:        driver.ID,
		LicenseNumber: "L-1",
		VehicleMake:   "Toyota",
		VehicleModel:  "Camry",
		VehicleYear:   2020,
		VehicleColor:  "white",
		PlateNumber:   "P-1",
	})
	require.NoError(t, err)
	reviewer := registerUser(t, e, "dean")
	_, err = e.svc.Admin().ReviewDriver(ctx, models.ReviewDriverRequest{ApplicationID: app.ID, AdminID: reviewer.ID, Approved: true})
	require.NoError(t, err)

	conn, sess := connect(t, e, srv, driver.ID)
	goOnline(t, e, conn, driver.ID)
	assert.True(t, e.hub.Subscribed(sess, relay.TopicDrivers))
	storedOnline := func() bool {
		app, err := e.store.Driver().GetByUserID(ctx, driver.ID)
		return err == nil && app != nil && app.IsOnline
	}
	eventually(t, storedOnline)

	emit(t, conn, evDriverOffline, driver.ID)
	eventually(t, func() bool { return !e.presence.IsOnline(driver.ID) && !storedOnline() })
	assert.False(t, e.hub.Subscribed(sess, relay.TopicDrivers))

	createRide(t, e, student.ID)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	var f frame
	err = conn.ReadJSON(&f)
	assert.Error(t, err, "no frame expected after going offline, got %s", f.Event)
}
