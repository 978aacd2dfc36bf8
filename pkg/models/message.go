package models

import "time"

type Message struct {
	ID        int64     `json:"id"`
	RideID    int64     `json:"rideId"`
	SenderID  int64     `json:"senderId"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"timestamp"`
}
