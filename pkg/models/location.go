package models

// Location is a labelled point. The label is what the student typed, the
// coordinates may be zero when the client could not geolocate.
type Location struct {
	Location string  `json:"location" validate:"required"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
}

type DriverLocation struct {
	DriverID int64    `json:"driverId"`
	Location Location `json:"location"`
	Distance float64  `json:"distance,omitempty"`
}
