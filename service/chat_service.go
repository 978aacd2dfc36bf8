package service

import (
	"context"
	"fmt"

	"campusride/pkg/apperr"
	"campusride/pkg/logger"
	"campusride/pkg/models"
	"campusride/pkg/relay"
	"campusride/storage"
)

const EventChatMessage = "chatMessage"

type ChatService interface {
	// Send stores a message from a ride participant and relays it to the ride.
	Send(ctx context.Context, req models.SendMessageRequest) (*models.Message, error)
	History(ctx context.Context, rideID int64) ([]*models.Message, error)
	// Participant reports whether userID is the student or driver of the ride.
	Participant(ctx context.Context, rideID, userID int64) (bool, error)
}

type chatService struct {
	rides    storage.IRideStorage
	messages storage.IMessageStorage
	relay    Relay
	log      logger.ILogger
}

func NewChatService(stg storage.IStorage, opts Options, log logger.ILogger) ChatService {
	return &chatService{
		rides:    stg.Ride(),
		messages: stg.Message(),
		relay:    opts.Relay,
		log:      log,
	}
}

func (s *chatService) Participant(ctx context.Context, rideID, userID int64) (bool, error) {
	ride, err := s.rides.GetByID(ctx, rideID)
	if err != nil {
		return false, fmt.Errorf("get ride: %w", err)
	}
	if ride == nil {
		return false, apperr.NotFound(msgRideNotFound)
	}
	return ride.StudentID == userID || ride.AssignedTo(userID), nil
}

func (s *chatService) Send(ctx context.Context, req models.SendMessageRequest) (*models.Message, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	ok, err := s.Participant(ctx, req.RideID, req.SenderID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Forbidden("Not a participant of this ride")
	}

	msg, err := s.messages.Create(ctx, &models.Message{
		RideID:   req.RideID,
		SenderID: req.SenderID,
		Message:  req.Message,
	})
	if err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}

	s.relay.Publish(relay.RideTopic(msg.RideID), EventChatMessage, msg)
	return msg, nil
}

func (s *chatService) History(ctx context.Context, rideID int64) ([]*models.Message, error) {
	msgs, err := s.messages.GetByRide(ctx, rideID)
	if err != nil {
		return nil, fmt.Errorf("get messages: %w", err)
	}
	return msgs, nil
}
