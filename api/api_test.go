package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusride/pkg/auth"
	"campusride/pkg/logger"
	"campusride/pkg/models"
	"campusride/pkg/presence"
	"campusride/pkg/relay"
	"campusride/service"
	"campusride/storage/memory"
)

type testEnv struct {
	router   *gin.Engine
	store    *memory.Store
	svc      service.IServiceManager
	hub      *relay.Hub
	presence *presence.Registry
	tokens   *auth.Issuer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.NewNop()
	store := memory.New()
	hub := relay.NewHub(log)
	reg := presence.New(store.Driver(), nil, log)
	tokens := auth.NewIssuer("test-secret", time.Hour)
	svc := service.New(store, service.Options{Tokens: tokens, Relay: hub, Sessions: reg}, log)

	return &testEnv{
		router: NewRouter(Options{
			Services: svc,
			Hub:      hub,
			Presence: reg,
			Tokens:   tokens,
			Log:      log,
		}),
		store:    store,
		svc:      svc,
		hub:      hub,
		presence: reg,
		tokens:   tokens,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, token string) (int, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	out := map[string]interface{}{}
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "" {
		_ = json.Unmarshal(w.Body.Bytes(), &out)
	}
	return w.Code, out
}

func (e *testEnv) adminToken(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.svc.Admin().EnsureAdmin(ctx, "admin@uni.edu", "root"))
	token, _, err := e.svc.User().Login(ctx, models.LoginRequest{Email: "admin@uni.edu", Password: "root"})
	require.NoError(t, err)
	return token
}

func register(name string) gin.H {
	return gin.H{
		"username":  name,
		"email":     name + "@uni.edu",
		"password":  "pw-" + name,
		"studentId": "S-" + name,
	}
}

func TestRegisterAndLoginFlow(t *testing.T) {
	e := newTestEnv(t)

	code, body := e.do(t, http.MethodPost, "/api/register", register("sarah"), "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["token"])
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "S-sarah", user["studentId"])
	userID := int64(user["id"].(float64))

	code, body = e.do(t, http.MethodPost, "/api/login", gin.H{"email": "sarah@uni.edu", "password": "wrong"}, "")
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "Account not verified by admin yet", body["error"])

	admin := e.adminToken(t)
	code, body = e.do(t, http.MethodPost, "/api/admin/approve-student", gin.H{"studentId": userID}, admin)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Student approved", body["message"])

	code, body = e.do(t, http.MethodPost, "/api/login", gin.H{"email": "sarah@uni.edu", "password": "wrong"}, "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Invalid credentials", body["error"])

	code, body = e.do(t, http.MethodPost, "/api/login", gin.H{"email": "sarah@uni.edu", "password": "pw-sarah"}, "")
	require.Equal(t, http.StatusOK, code)
	profile := body["user"].(map[string]interface{})
	assert.Equal(t, false, profile["hasDriverApp"])
	assert.Nil(t, profile["driverStats"])
}

func TestRegisterErrors(t *testing.T) {
	e := newTestEnv(t)

	req := register("sarah")
	req["email"] = "sarah@gmail.com"
	code, body := e.do(t, http.MethodPost, "/api/register", req, "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Must use university email (.edu)", body["error"])

	code, _ = e.do(t, http.MethodPost, "/api/register", register("sarah"), "")
	require.Equal(t, http.StatusOK, code)
	code, body = e.do(t, http.MethodPost, "/api/register", register("sarah"), "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Username, email, or student ID already exists", body["error"])

	r := httptest.NewRequest(http.MethodPost, "/api/register", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, r)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminRoutesRequireAdminToken(t *testing.T) {
	e := newTestEnv(t)

	code, _ := e.do(t, http.MethodGet, "/api/admin/stats", nil, "")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = e.do(t, http.MethodGet, "/api/admin/stats", nil, "garbage")
	assert.Equal(t, http.StatusUnauthorized, code)

	student, err := e.tokens.Generate(7, "s@uni.edu", false)
	require.NoError(t, err)
	code, _ = e.do(t, http.MethodGet, "/api/admin/stats", nil, student)
	assert.Equal(t, http.StatusForbidden, code)

	code, body := e.do(t, http.MethodGet, "/api/admin/stats", nil, e.adminToken(t))
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "stats")
}

func TestDriverApplicationRoutes(t *testing.T) {
	e := newTestEnv(t)
	admin := e.adminToken(t)
	_, body := e.do(t, http.MethodPost, "/api/register", register("mike"), "")
	userID := body["user"].(map[string]interface{})["id"]

	code, body := e.do(t, http.MethodGet, "/api/driver-application/1000", nil, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["hasApplication"])

	apply := gin.H{
		"userId": userID, "licenseNumber": "L1", "vehicleMake": "Toyota", "vehicleModel": "Prius",
		"vehicleYear": 2021, "vehicleColor": "silver", "plateNumber": "ABC123",
	}
	code, body = e.do(t, http.MethodPost, "/api/driver-application", apply, "")
	require.Equal(t, http.StatusOK, code)
	appID := body["application"].(map[string]interface{})["id"]

	code, body = e.do(t, http.MethodPost, "/api/driver-application", apply, "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "You already have a driver application", body["error"])

	code, body = e.do(t, http.MethodGet, "/api/admin/pending-drivers", nil, admin)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["applications"], 1)

	code, body = e.do(t, http.MethodPost, "/api/admin/review-driver", gin.H{"applicationId": appID, "approved": true}, admin)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Driver application approved", body["message"])

	code, body = e.do(t, http.MethodPost, "/api/admin/review-driver", gin.H{"applicationId": 999, "approved": true}, admin)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Application not found", body["error"])

	code, body = e.do(t, http.MethodGet, "/api/driver-application/"+jsonID(userID), nil, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["hasApplication"])
	assert.Equal(t, true, body["application"].(map[string]interface{})["is_active_driver"])
}

func jsonID(v interface{}) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func TestRideRoutes(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	_, student, err := e.svc.User().Register(ctx, models.RegisterRequest{
		Username: "sarah", Email: "sarah@uni.edu", Password: "pw", StudentID: "S1",
	})
	require.NoError(t, err)
	_, driver, err := e.svc.User().Register(ctx, models.RegisterRequest{
		Username: "mike", Email: "mike@uni.edu", Password: "pw", StudentID: "S2",
	})
	require.NoError(t, err)
	_, other, err := e.svc.User().Register(ctx, models.RegisterRequest{
		Username: "john", Email: "john@uni.edu", Password: "pw", StudentID: "S3",
	})
	require.NoError(t, err)

	code, body := e.do(t, http.MethodPost, "/api/rides", gin.H{
		"studentId":   student.ID,
		"pickup":      gin.H{"location": "Dorm", "lat": 40.1, "lng": -88.2},
		"destination": gin.H{"location": "Gym", "lat": 40.2, "lng": -88.3},
		"passengers":  2,
		"fare":        10,
	}, "")
	require.Equal(t, http.StatusOK, code)
	ride := body["ride"].(map[string]interface{})
	assert.Equal(t, "pending", ride["status"])
	rideID := jsonID(ride["id"])

	code, body = e.do(t, http.MethodGet, "/api/rides/available", nil, "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["rides"], 1)

	code, _ = e.do(t, http.MethodPost, "/api/rides/"+rideID+"/accept", gin.H{"driverId": driver.ID}, "")
	require.Equal(t, http.StatusOK, code)

	code, body = e.do(t, http.MethodPost, "/api/rides/"+rideID+"/accept", gin.H{"driverId": other.ID}, "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Ride not available", body["error"])

	code, body = e.do(t, http.MethodPost, "/api/rides/"+rideID+"/complete", gin.H{"driverId": other.ID, "fare": 10}, "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Ride not found", body["error"])

	code, body = e.do(t, http.MethodGet, "/api/rides/student/"+jsonID(student.ID), nil, "")
	require.Equal(t, http.StatusOK, code)
	require.Len(t, body["rides"], 1)
	assert.Equal(t, "mike", body["rides"].([]interface{})[0].(map[string]interface{})["driver_name"])

	code, body = e.do(t, http.MethodPost, "/api/rides/"+rideID+"/complete", gin.H{"driverId": driver.ID, "fare": 10}, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "completed", body["ride"].(map[string]interface{})["status"])

	code, body = e.do(t, http.MethodGet, "/api/rides/"+rideID+"/messages", nil, "")
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, body["messages"])

	code, _ = e.do(t, http.MethodPost, "/api/rides/abc/accept", gin.H{"driverId": driver.ID}, "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestDriversOnlineAndNearby(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, e.presence.MarkOnline(ctx, 3, "s3", models.Location{Location: "Quad", Lat: 40.1, Lng: -88.2}))

	code, body := e.do(t, http.MethodGet, "/api/drivers/online", nil, "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["drivers"], 1)

	code, body = e.do(t, http.MethodGet, "/api/drivers/nearby?lat=40.1&lng=-88.2&radius=1", nil, "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["drivers"], 1)

	code, _ = e.do(t, http.MethodGet, "/api/drivers/nearby?lat=x", nil, "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)
	code, body := e.do(t, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}
