package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"campusride/pkg/auth"
	"campusride/pkg/logger"
	"campusride/pkg/models"
	"campusride/pkg/presence"
	"campusride/pkg/relay"
	"campusride/service"
)

// NearbyFinder answers radius queries over online drivers.
type NearbyFinder interface {
	Nearby(ctx context.Context, lat, lng, radiusKm float64, limit int) ([]models.DriverLocation, error)
}

type Options struct {
	Services service.IServiceManager
	Hub      *relay.Hub
	Presence *presence.Registry
	Tokens   *auth.Issuer
	// Nearby defaults to the presence registry.
	Nearby NearbyFinder
	Log    logger.ILogger
}

type handler struct {
	svc      service.IServiceManager
	hub      *relay.Hub
	presence *presence.Registry
	tokens   *auth.Issuer
	nearby   NearbyFinder
	log      logger.ILogger
}

func NewRouter(opts Options) *gin.Engine {
	h := &handler{
		svc:      opts.Services,
		hub:      opts.Hub,
		presence: opts.Presence,
		tokens:   opts.Tokens,
		nearby:   opts.Nearby,
		log:      opts.Log,
	}
	if h.nearby == nil {
		h.nearby = opts.Presence
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors())
	r.Use(requestMetrics())
	r.Use(requestLogger(h.log))

	r.GET("/health", func(c *gin.Context) {
		sessions, drivers := h.presence.Counts()
		c.JSON(http.StatusOK, gin.H{
			"status":         "ok",
			"sessions":       h.hub.SessionCount(),
			"authenticated":  sessions,
			"online_drivers": drivers,
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/ws", h.serveWS)

	api := r.Group("/api")
	{
		api.POST("/register", h.register)
		api.POST("/login", h.login)

		api.POST("/driver-application", h.applyDriver)
		api.GET("/driver-application/:userId", h.getApplication)

		api.POST("/rides", h.createRide)
		api.GET("/rides/student/:studentId", h.studentRides)
		api.GET("/rides/available", h.availableRides)
		api.POST("/rides/:rideId/accept", h.acceptRide)
		api.POST("/rides/:rideId/complete", h.completeRide)
		api.GET("/rides/:rideId/messages", h.rideMessages)

		api.GET("/drivers/online", h.onlineDrivers)
		api.GET("/drivers/nearby", h.nearbyDrivers)

		admin := api.Group("/admin", h.requireAdmin())
		{
			admin.GET("/pending-students", h.pendingStudents)
			admin.GET("/pending-drivers", h.pendingDrivers)
			admin.POST("/approve-student", h.approveStudent)
			admin.POST("/review-driver", h.reviewDriver)
			admin.GET("/stats", h.stats)
		}
	}
	return r
}
