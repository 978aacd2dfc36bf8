package service

import (
	"context"
	"errors"
	"fmt"

	"campusride/pkg/apperr"
	"campusride/pkg/auth"
	"campusride/pkg/logger"
	"campusride/pkg/models"
	"campusride/storage"
)

type AdminService interface {
	PendingStudents(ctx context.Context) ([]*models.User, error)
	PendingDrivers(ctx context.Context) ([]*models.DriverApplication, error)
	// ApproveStudent is idempotent and succeeds for unknown ids.
	ApproveStudent(ctx context.Context, userID int64) error
	ReviewDriver(ctx context.Context, req models.ReviewDriverRequest) (models.ApplicationStatus, error)
	Stats(ctx context.Context) (*models.AdminStats, error)
	// EnsureAdmin creates or promotes the configured admin account.
	EnsureAdmin(ctx context.Context, email, password string) error
}

type adminService struct {
	users   storage.IUserStorage
	drivers storage.IDriverStorage
	stats   storage.IStatsStorage
	log     logger.ILogger
}

func NewAdminService(stg storage.IStorage, log logger.ILogger) AdminService {
	return &adminService{
		users:   stg.User(),
		drivers: stg.Driver(),
		stats:   stg.Stats(),
		log:     log,
	}
}

func (s *adminService) PendingStudents(ctx context.Context) ([]*models.User, error) {
	users, err := s.users.GetPendingStudents(ctx)
	if err != nil {
		return nil, fmt.Errorf("get pending students: %w", err)
	}
	return users, nil
}

func (s *adminService) PendingDrivers(ctx context.Context) ([]*models.DriverApplication, error) {
	apps, err := s.drivers.GetPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("get pending drivers: %w", err)
	}
	return apps, nil
}

func (s *adminService) ApproveStudent(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return apperr.Validation("studentId is required")
	}
	if err := s.users.SetVerified(ctx, userID); err != nil {
		return fmt.Errorf("approve student: %w", err)
	}
	s.log.Info("student approved", logger.Int64("user_id", userID))
	return nil
}

// ReviewDriver sets the decision on an application. A second review simply
// overwrites the first.
func (s *adminService) ReviewDriver(ctx context.Context, req models.ReviewDriverRequest) (models.ApplicationStatus, error) {
	if err := validateRequest(req); err != nil {
		return "", err
	}

	status := models.ReviewDecision(req.Approved)
	reason := req.Reason
	if req.Approved {
		reason = nil
	}

	err := s.drivers.Review(ctx, req.ApplicationID, req.AdminID, status, reason)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", apperr.NotFound("Application not found")
		}
		return "", fmt.Errorf("review driver application: %w", err)
	}

	s.log.Info("driver application reviewed",
		logger.Int64("application_id", req.ApplicationID),
		logger.Int64("admin_id", req.AdminID),
		logger.String("status", string(status)),
	)
	return status, nil
}

func (s *adminService) Stats(ctx context.Context) (*models.AdminStats, error) {
	stats, err := s.stats.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	return stats, nil
}

func (s *adminService) EnsureAdmin(ctx context.Context, email, password string) error {
	if email == "" {
		return nil
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("get admin: %w", err)
	}
	if user != nil {
		if user.IsAdmin {
			return nil
		}
		if err := s.users.PromoteAdmin(ctx, user.ID); err != nil {
			return fmt.Errorf("promote admin: %w", err)
		}
		s.log.Info("existing user promoted to admin", logger.String("email", email))
		return nil
	}

	if password == "" {
		return apperr.Validation("admin password is required to create %s", email)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	_, err = s.users.Create(ctx, &models.User{
		Username:     "admin",
		Email:        email,
		PasswordHash: hash,
		IsVerified:   true,
		IsAdmin:      true,
	})
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	s.log.Info("admin account created", logger.String("email", email))
	return nil
}
