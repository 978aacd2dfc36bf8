package models

import "time"

type RideStatus string

const (
	RidePending   RideStatus = "pending"
	RideMatched   RideStatus = "matched"
	RideActive    RideStatus = "active"
	RideCompleted RideStatus = "completed"
)

var rideTransitions = map[RideStatus][]RideStatus{
	RidePending: {RideMatched},
	RideMatched: {RideActive, RideCompleted},
	RideActive:  {RideCompleted},
}

// CanTransition reports whether a ride may move from one status to another.
// Rides only move forward and completed is terminal.
func CanTransition(from, to RideStatus) bool {
	for _, s := range rideTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Open is true for every status a student still sees in their ride list.
func (s RideStatus) Open() bool {
	return s == RidePending || s == RideMatched || s == RideActive
}

// Ride serializes as the flat rides row.
type Ride struct {
	ID                  int64      `json:"id"`
	StudentID           int64      `json:"student_id"`
	DriverID            *int64     `json:"driver_id"`
	PickupLocation      string     `json:"pickup_location"`
	PickupLat           float64    `json:"pickup_lat"`
	PickupLng           float64    `json:"pickup_lng"`
	DestinationLocation string     `json:"destination_location"`
	DestinationLat      float64    `json:"destination_lat"`
	DestinationLng      float64    `json:"destination_lng"`
	Passengers          int        `json:"passengers"`
	Fare                float64    `json:"fare"`
	Status              RideStatus `json:"status"`
	RequestedAt         time.Time  `json:"requested_at"`
	AcceptedAt          *time.Time `json:"accepted_at"`
	CompletedAt         *time.Time `json:"completed_at"`
}

// NewRide builds a ride request between two points.
func NewRide(studentID int64, pickup, destination Location, passengers int, fare float64) *Ride {
	return &Ride{
		StudentID:           studentID,
		PickupLocation:      pickup.Location,
		PickupLat:           pickup.Lat,
		PickupLng:           pickup.Lng,
		DestinationLocation: destination.Location,
		DestinationLat:      destination.Lat,
		DestinationLng:      destination.Lng,
		Passengers:          passengers,
		Fare:                fare,
	}
}

func (r *Ride) Pickup() Location {
	return Location{Location: r.PickupLocation, Lat: r.PickupLat, Lng: r.PickupLng}
}

func (r *Ride) Destination() Location {
	return Location{Location: r.DestinationLocation, Lat: r.DestinationLat, Lng: r.DestinationLng}
}

// AssignedTo reports whether driverID currently holds the ride.
func (r *Ride) AssignedTo(driverID int64) bool {
	return r.DriverID != nil && *r.DriverID == driverID
}

// StudentRide is a ride as the requesting student sees it.
type StudentRide struct {
	Ride
	DriverName   *string `json:"driver_name"`
	DriverPhone  *string `json:"driver_phone"`
	VehicleMake  *string `json:"vehicle_make"`
	VehicleModel *string `json:"vehicle_model"`
	VehicleColor *string `json:"vehicle_color"`
	PlateNumber  *string `json:"plate_number"`
}

// AvailableRide is a pending ride as drivers see it.
type AvailableRide struct {
	Ride
	StudentName  string  `json:"student_name"`
	StudentPhone *string `json:"student_phone"`
}
