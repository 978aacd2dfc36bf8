package memory

import (
	"context"

	"campusride/pkg/models"
	"campusride/storage"
)

type messageRepo struct{ s *Store }

func (r messageRepo) Create(_ context.Context, msg *models.Message) (*models.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.rides[msg.RideID]; !ok {
		return nil, storage.ErrReference
	}
	if _, ok := r.s.users[msg.SenderID]; !ok {
		return nil, storage.ErrReference
	}

	r.s.nextMessageID++
	msg.ID = r.s.nextMessageID
	msg.CreatedAt = r.s.now()
	stored := *msg
	r.s.messages = append(r.s.messages, &stored)
	return msg, nil
}

func (r messageRepo) GetByRide(_ context.Context, rideID int64) ([]*models.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	msgs := []*models.Message{}
	for _, m := range r.s.messages {
		if m.RideID == rideID {
			c := *m
			msgs = append(msgs, &c)
		}
	}
	return msgs, nil
}
