package storage

import (
	"context"
	"errors"

	"campusride/pkg/models"
)

var (
	// ErrNotFound means the row addressed by the statement does not exist or
	// did not satisfy the statement's guard.
	ErrNotFound = errors.New("storage: not found")
	// ErrDuplicate is a unique constraint violation.
	ErrDuplicate = errors.New("storage: duplicate")
	// ErrReference is a foreign key violation.
	ErrReference = errors.New("storage: missing reference")
)

// Lookups (Get*) return (nil, nil) when the row does not exist.
type IStorage interface {
	User() IUserStorage
	Driver() IDriverStorage
	Ride() IRideStorage
	Message() IMessageStorage
	Stats() IStatsStorage
	Close()
}

type IUserStorage interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetPendingStudents(ctx context.Context) ([]*models.User, error)
	SetVerified(ctx context.Context, id int64) error
	PromoteAdmin(ctx context.Context, id int64) error
}

type IDriverStorage interface {
	// Create fails with ErrDuplicate when the user already applied.
	Create(ctx context.Context, app *models.DriverApplication) (*models.DriverApplication, error)
	GetByUserID(ctx context.Context, userID int64) (*models.DriverApplication, error)
	GetPending(ctx context.Context) ([]*models.DriverApplication, error)
	Review(ctx context.Context, appID, adminID int64, status models.ApplicationStatus, reason *string) error
	SetOnline(ctx context.Context, userID int64, online bool) error
}

type IRideStorage interface {
	Create(ctx context.Context, ride *models.Ride) (*models.Ride, error)
	GetByID(ctx context.Context, id int64) (*models.Ride, error)
	// Accept assigns driverID only while the ride is still pending, in one
	// statement. ErrNotFound when the guard did not match.
	Accept(ctx context.Context, rideID, driverID int64) (*models.Ride, error)
	// Complete finishes a ride held by driverID and credits fare to the
	// driver's application in the same transaction.
	Complete(ctx context.Context, rideID, driverID int64, fare *float64) (*models.Ride, error)
	GetStudentRides(ctx context.Context, studentID int64) ([]*models.StudentRide, error)
	GetAvailable(ctx context.Context, limit int) ([]*models.AvailableRide, error)
}

type IMessageStorage interface {
	Create(ctx context.Context, msg *models.Message) (*models.Message, error)
	GetByRide(ctx context.Context, rideID int64) ([]*models.Message, error)
}

type IStatsStorage interface {
	Get(ctx context.Context) (*models.AdminStats, error)
	TableCounts(ctx context.Context) (map[string]int, error)
}
