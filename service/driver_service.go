package service

import (
	"context"
	"errors"
	"fmt"

	"campusride/pkg/apperr"
	"campusride/pkg/logger"
	"campusride/pkg/models"
	"campusride/storage"
)

const msgDuplicateApplication = "You already have a driver application"

type DriverService interface {
	Apply(ctx context.Context, req models.DriverApplicationRequest) (*models.DriverApplication, error)
	// GetApplication returns nil when the user never applied.
	GetApplication(ctx context.Context, userID int64) (*models.DriverApplication, error)
}

type driverService struct {
	users    storage.IUserStorage
	drivers  storage.IDriverStorage
	notifier AdminNotifier
	log      logger.ILogger
}

func NewDriverService(stg storage.IStorage, opts Options, log logger.ILogger) DriverService {
	return &driverService{
		users:    stg.User(),
		drivers:  stg.Driver(),
		notifier: opts.Notifier,
		log:      log,
	}
}

func (s *driverService) Apply(ctx context.Context, req models.DriverApplicationRequest) (*models.DriverApplication, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	app, err := s.drivers.Create(ctx, &models.DriverApplication{
		UserID:        req.UserID,
		LicenseNumber: req.LicenseNumber,
		VehicleMake:   req.VehicleMake,
		VehicleModel:  req.VehicleModel,
		VehicleYear:   req.VehicleYear,
		VehicleColor:  req.VehicleColor,
		PlateNumber:   req.PlateNumber,
	})
	switch {
	case errors.Is(err, storage.ErrDuplicate):
		return nil, apperr.Conflict(msgDuplicateApplication)
	case errors.Is(err, storage.ErrReference):
		return nil, apperr.NotFound("User not found")
	case err != nil:
		return nil, fmt.Errorf("create driver application: %w", err)
	}

	s.log.Info("driver application submitted", logger.Int64("user_id", req.UserID), logger.Int64("application_id", app.ID))

	user, err := s.users.GetByID(ctx, req.UserID)
	if err != nil {
		s.log.Warning("failed to load applicant for notification", logger.Int64("user_id", req.UserID), logger.Error(err))
	}
	s.notifier.DriverApplied(app, user)
	return app, nil
}

func (s *driverService) GetApplication(ctx context.Context, userID int64) (*models.DriverApplication, error) {
	app, err := s.drivers.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get driver application: %w", err)
	}
	return app, nil
}
