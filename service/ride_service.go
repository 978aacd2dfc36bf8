package service

import (
	"context"
	"errors"
	"fmt"

	"campusride/pkg/apperr"
	"campusride/pkg/logger"
	"campusride/pkg/metrics"
	"campusride/pkg/models"
	"campusride/pkg/relay"
	"campusride/storage"
)

const (
	msgRideNotAvailable = "Ride not available"
	msgRideNotFound     = "Ride not found"

	availableRidesLimit = 20
)

// Realtime events published by the ride lifecycle.
const (
	EventNewRideRequest = "newRideRequest"
	EventRideAccepted   = "rideAccepted"
	EventRideCompleted  = "rideCompleted"
)

type RideEvent struct {
	Ride *models.Ride `json:"ride"`
}

type RideService interface {
	Create(ctx context.Context, req models.CreateRideRequest) (*models.Ride, error)
	Accept(ctx context.Context, rideID int64, req models.AcceptRideRequest) (*models.Ride, error)
	Complete(ctx context.Context, rideID int64, req models.CompleteRideRequest) (*models.Ride, error)
	Get(ctx context.Context, rideID int64) (*models.Ride, error)
	StudentRides(ctx context.Context, studentID int64) ([]*models.StudentRide, error)
	Available(ctx context.Context) ([]*models.AvailableRide, error)
}

type rideService struct {
	rides    storage.IRideStorage
	relay    Relay
	sessions Sessions
	log      logger.ILogger
}

func NewRideService(stg storage.IStorage, opts Options, log logger.ILogger) RideService {
	return &rideService{
		rides:    stg.Ride(),
		relay:    opts.Relay,
		sessions: opts.Sessions,
		log:      log,
	}
}

func (s *rideService) Create(ctx context.Context, req models.CreateRideRequest) (*models.Ride, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	ride, err := s.rides.Create(ctx, models.NewRide(req.StudentID, req.Pickup, req.Destination, req.Passengers, req.Fare))
	if err != nil {
		if errors.Is(err, storage.ErrReference) {
			return nil, apperr.NotFound("Student not found")
		}
		return nil, fmt.Errorf("create ride: %w", err)
	}
	metrics.RidesTotal.WithLabelValues(string(models.RidePending)).Inc()

	// The student follows their own ride from the moment it exists.
	if sess, ok := s.sessions.SessionOf(ride.StudentID); ok {
		s.relay.Subscribe(sess, relay.RideTopic(ride.ID))
	}
	n := s.relay.Publish(relay.TopicDrivers, EventNewRideRequest, RideEvent{Ride: ride})
	s.log.Info("ride requested",
		logger.Int64("ride_id", ride.ID),
		logger.Int64("student_id", ride.StudentID),
		logger.Int("notified_drivers", n),
	)
	return ride, nil
}

// Accept assigns the ride to the first driver whose update matches a pending
// row. Losers of the race get a conflict.
func (s *rideService) Accept(ctx context.Context, rideID int64, req models.AcceptRideRequest) (*models.Ride, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	ride, err := s.rides.Accept(ctx, rideID, req.DriverID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return nil, apperr.Conflict(msgRideNotAvailable)
	case errors.Is(err, storage.ErrReference):
		return nil, apperr.NotFound("Driver not found")
	case err != nil:
		return nil, fmt.Errorf("accept ride: %w", err)
	}
	metrics.RidesTotal.WithLabelValues(string(models.RideMatched)).Inc()

	rideTopic := relay.RideTopic(ride.ID)
	driverSess, driverOnline := s.sessions.SessionOf(req.DriverID)
	if driverOnline {
		s.relay.Subscribe(driverSess, rideTopic)
	}
	if sess, ok := s.sessions.SessionOf(ride.StudentID); ok {
		s.relay.Subscribe(sess, rideTopic)
		s.relay.Subscribe(sess, relay.DriverTopic(req.DriverID))
	}

	event := RideEvent{Ride: ride}
	s.relay.Publish(rideTopic, EventRideAccepted, event)
	// Other drivers drop the ride from their list.
	var except []string
	if driverOnline {
		except = append(except, driverSess)
	}
	s.relay.Publish(relay.TopicDrivers, EventRideAccepted, event, except...)

	s.log.Info("ride accepted", logger.Int64("ride_id", ride.ID), logger.Int64("driver_id", req.DriverID))
	return ride, nil
}

// Complete finishes a ride held by the driver and credits the fare. With no
// fare in the request the ride's own fare is credited.
func (s *rideService) Complete(ctx context.Context, rideID int64, req models.CompleteRideRequest) (*models.Ride, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	ride, err := s.rides.Complete(ctx, rideID, req.DriverID, req.Fare)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.NotFound(msgRideNotFound)
		}
		return nil, fmt.Errorf("complete ride: %w", err)
	}
	metrics.RidesTotal.WithLabelValues(string(models.RideCompleted)).Inc()

	s.relay.Publish(relay.RideTopic(ride.ID), EventRideCompleted, RideEvent{Ride: ride})
	if sess, ok := s.sessions.SessionOf(ride.StudentID); ok {
		s.relay.Unsubscribe(sess, relay.DriverTopic(req.DriverID))
	}

	s.log.Info("ride completed", logger.Int64("ride_id", ride.ID), logger.Int64("driver_id", req.DriverID))
	return ride, nil
}

func (s *rideService) Get(ctx context.Context, rideID int64) (*models.Ride, error) {
	ride, err := s.rides.GetByID(ctx, rideID)
	if err != nil {
		return nil, fmt.Errorf("get ride: %w", err)
	}
	if ride == nil {
		return nil, apperr.NotFound(msgRideNotFound)
	}
	return ride, nil
}

func (s *rideService) StudentRides(ctx context.Context, studentID int64) ([]*models.StudentRide, error) {
	rides, err := s.rides.GetStudentRides(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("get student rides: %w", err)
	}
	return rides, nil
}

func (s *rideService) Available(ctx context.Context) ([]*models.AvailableRide, error) {
	rides, err := s.rides.GetAvailable(ctx, availableRidesLimit)
	if err != nil {
		return nil, fmt.Errorf("get available rides: %w", err)
	}
	return rides, nil
}
