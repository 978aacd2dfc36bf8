package service

import (
	"campusride/pkg/auth"
	"campusride/pkg/logger"
	"campusride/pkg/models"
	"campusride/storage"
)

// Relay fans events out to subscribed realtime sessions.
type Relay interface {
	Publish(topic, event string, payload interface{}, except ...string) int
	Subscribe(sessionID, topic string)
	Unsubscribe(sessionID, topic string)
}

// Sessions resolves the realtime session an identity is bound to.
type Sessions interface {
	SessionOf(userID int64) (string, bool)
}

// AdminNotifier is told about new work waiting for an admin.
type AdminNotifier interface {
	StudentRegistered(user *models.User)
	DriverApplied(app *models.DriverApplication, user *models.User)
}

type Options struct {
	Tokens   *auth.Issuer
	Relay    Relay
	Sessions Sessions
	Notifier AdminNotifier
}

type IServiceManager interface {
	User() UserService
	Driver() DriverService
	Ride() RideService
	Admin() AdminService
	Chat() ChatService
}

type service struct {
	userService   UserService
	driverService DriverService
	rideService   RideService
	adminService  AdminService
	chatService   ChatService
}

func New(stg storage.IStorage, opts Options, log logger.ILogger) IServiceManager {
	if opts.Relay == nil {
		opts.Relay = nopRelay{}
	}
	if opts.Sessions == nil {
		opts.Sessions = nopSessions{}
	}
	if opts.Notifier == nil {
		opts.Notifier = nopNotifier{}
	}
	return &service{
		userService:   NewUserService(stg, opts, log),
		driverService: NewDriverService(stg, opts, log),
		rideService:   NewRideService(stg, opts, log),
		adminService:  NewAdminService(stg, log),
		chatService:   NewChatService(stg, opts, log),
	}
}

func (s *service) User() UserService {
	return s.userService
}

func (s *service) Driver() DriverService {
	return s.driverService
}

func (s *service) Ride() RideService {
	return s.rideService
}

func (s *service) Admin() AdminService {
	return s.adminService
}

func (s *service) Chat() ChatService {
	return s.chatService
}

type nopRelay struct{}

func (nopRelay) Publish(string, string, interface{}, ...string) int { return 0 }
func (nopRelay) Subscribe(string, string)                           {}
func (nopRelay) Unsubscribe(string, string)                         {}

type nopSessions struct{}

func (nopSessions) SessionOf(int64) (string, bool) { return "", false }

type nopNotifier struct{}

func (nopNotifier) StudentRegistered(*models.User)                        {}
func (nopNotifier) DriverApplied(*models.DriverApplication, *models.User) {}
