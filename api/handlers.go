package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"campusride/pkg/models"
)

const (
	defaultNearbyRadiusKm = 5.0
	nearbyLimit           = 20
)

func (h *handler) register(c *gin.Context) {
	var req models.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}
	token, user, err := h.svc.User().Register(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err, "Registration failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   token,
		"user": gin.H{
			"id":        user.ID,
			"username":  user.Username,
			"email":     user.Email,
			"studentId": user.StudentID,
		},
	})
}

func (h *handler) login(c *gin.Context) {
	var req models.LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	token, profile, err := h.svc.User().Login(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err, "Login failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "token": token, "user": profile})
}

func (h *handler) applyDriver(c *gin.Context) {
	var req models.DriverApplicationRequest
	if !bindJSON(c, &req) {
		return
	}
	app, err := h.svc.Driver().Apply(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err, "Application submission failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "application": app})
}

func (h *handler) getApplication(c *gin.Context) {
	userID, ok := idParam(c, "userId")
	if !ok {
		return
	}
	app, err := h.svc.Driver().GetApplication(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err, "Failed to get application")
		return
	}
	if app == nil {
		c.JSON(http.StatusOK, gin.H{"hasApplication": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"hasApplication": true, "application": app})
}

func (h *handler) pendingStudents(c *gin.Context) {
	students, err := h.svc.Admin().PendingStudents(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Failed to get pending students")
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": students})
}

func (h *handler) pendingDrivers(c *gin.Context) {
	apps, err := h.svc.Admin().PendingDrivers(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Failed to get pending applications")
		return
	}
	c.JSON(http.StatusOK, gin.H{"applications": apps})
}

func (h *handler) approveStudent(c *gin.Context) {
	var req models.ApproveStudentRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.svc.Admin().ApproveStudent(c.Request.Context(), req.StudentID); err != nil {
		h.fail(c, err, "Failed to approve student")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Student approved"})
}

func (h *handler) reviewDriver(c *gin.Context) {
	var req models.ReviewDriverRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.AdminID == 0 {
		if claims := claimsFrom(c); claims != nil {
			req.AdminID = claims.UserID
		}
	}
	status, err := h.svc.Admin().ReviewDriver(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err, "Failed to review application")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Driver application " + string(status)})
}

func (h *handler) stats(c *gin.Context) {
	stats, err := h.svc.Admin().Stats(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Failed to get stats")
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

func (h *handler) createRide(c *gin.Context) {
	var req models.CreateRideRequest
	if !bindJSON(c, &req) {
		return
	}
	ride, err := h.svc.Ride().Create(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err, "Failed to create ride")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "ride": ride})
}

func (h *handler) studentRides(c *gin.Context) {
	studentID, ok := idParam(c, "studentId")
	if !ok {
		return
	}
	rides, err := h.svc.Ride().StudentRides(c.Request.Context(), studentID)
	if err != nil {
		h.fail(c, err, "Failed to get rides")
		return
	}
	c.JSON(http.StatusOK, gin.H{"rides": rides})
}

func (h *handler) availableRides(c *gin.Context) {
	rides, err := h.svc.Ride().Available(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Failed to get available rides")
		return
	}
	c.JSON(http.StatusOK, gin.H{"rides": rides})
}

func (h *handler) acceptRide(c *gin.Context) {
	rideID, ok := idParam(c, "rideId")
	if !ok {
		return
	}
	var req models.AcceptRideRequest
	if !bindJSON(c, &req) {
		return
	}
	ride, err := h.svc.Ride().Accept(c.Request.Context(), rideID, req)
	if err != nil {
		h.fail(c, err, "Failed to accept ride")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "ride": ride})
}

func (h *handler) completeRide(c *gin.Context) {
	rideID, ok := idParam(c, "rideId")
	if !ok {
		return
	}
	var req models.CompleteRideRequest
	if !bindJSON(c, &req) {
		return
	}
	ride, err := h.svc.Ride().Complete(c.Request.Context(), rideID, req)
	if err != nil {
		h.fail(c, err, "Failed to complete ride")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "ride": ride})
}

func (h *handler) rideMessages(c *gin.Context) {
	rideID, ok := idParam(c, "rideId")
	if !ok {
		return
	}
	msgs, err := h.svc.Chat().History(c.Request.Context(), rideID)
	if err != nil {
		h.fail(c, err, "Failed to get messages")
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (h *handler) onlineDrivers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"drivers": h.presence.Online()})
}

func (h *handler) nearbyDrivers(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		badRequest(c, "lat and lng are required")
		return
	}
	radius := defaultNearbyRadiusKm
	if v := c.Query("radius"); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil || r <= 0 {
			badRequest(c, "Invalid radius")
			return
		}
		radius = r
	}

	drivers, err := h.nearby.Nearby(c.Request.Context(), lat, lng, radius, nearbyLimit)
	if err != nil {
		h.fail(c, err, "Failed to find nearby drivers")
		return
	}
	c.JSON(http.StatusOK, gin.H{"drivers": drivers})
}
