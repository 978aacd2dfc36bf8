package models

// Request bodies accepted by the HTTP and realtime surfaces. Validation tags
// are checked by the service layer, not by the transport.

type RegisterRequest struct {
	Username   string  `json:"username" validate:"required"`
	Email      string  `json:"email" validate:"required,email"`
	Password   string  `json:"password" validate:"required"`
	StudentID  string  `json:"studentId" validate:"required"`
	University string  `json:"university"`
	Major      string  `json:"major"`
	Phone      *string `json:"phone"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type DriverApplicationRequest struct {
	UserID        int64  `json:"userId" validate:"required"`
	LicenseNumber string `json:"licenseNumber" validate:"required"`
	VehicleMake   string `json:"vehicleMake" validate:"required"`
	VehicleModel  string `json:"vehicleModel" validate:"required"`
	VehicleYear   int    `json:"vehicleYear" validate:"required,gte=1950,lte=2100"`
	VehicleColor  string `json:"vehicleColor" validate:"required"`
	PlateNumber   string `json:"plateNumber" validate:"required"`
}

type CreateRideRequest struct {
	StudentID   int64    `json:"studentId" validate:"required"`
	Pickup      Location `json:"pickup"`
	Destination Location `json:"destination"`
	Passengers  int      `json:"passengers" validate:"min=1"`
	Fare        float64  `json:"fare" validate:"gte=0"`
}

type AcceptRideRequest struct {
	DriverID int64 `json:"driverId" validate:"required"`
}

// CompleteRideRequest carries an optional fare. When it is missing the fare
// stored on the ride is credited.
type CompleteRideRequest struct {
	DriverID int64    `json:"driverId" validate:"required"`
	Fare     *float64 `json:"fare" validate:"omitempty,gte=0"`
}

type ApproveStudentRequest struct {
	StudentID int64 `json:"studentId" validate:"required"`
}

type ReviewDriverRequest struct {
	ApplicationID int64   `json:"applicationId" validate:"required"`
	AdminID       int64   `json:"adminId" validate:"required"`
	Approved      bool    `json:"approved"`
	Reason        *string `json:"reason"`
}

type SendMessageRequest struct {
	RideID   int64  `json:"rideId" validate:"required"`
	SenderID int64  `json:"senderId" validate:"required"`
	Message  string `json:"message" validate:"required,max=2000"`
}
