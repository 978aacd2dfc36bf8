package models

import "time"

type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationApproved ApplicationStatus = "approved"
	ApplicationRejected ApplicationStatus = "rejected"
)

type DriverApplication struct {
	ID              int64             `json:"id"`
	UserID          int64             `json:"user_id"`
	LicenseNumber   string            `json:"license_number"`
	VehicleMake     string            `json:"vehicle_make"`
	VehicleModel    string            `json:"vehicle_model"`
	VehicleYear     int               `json:"vehicle_year"`
	VehicleColor    string            `json:"vehicle_color"`
	PlateNumber     string            `json:"plate_number"`
	Status          ApplicationStatus `json:"status"`
	IsActiveDriver  bool              `json:"is_active_driver"`
	IsOnline        bool              `json:"is_online"`
	TotalRides      int               `json:"total_rides"`
	TotalEarnings   float64           `json:"total_earnings"`
	Rating          float64           `json:"rating"`
	AppliedAt       time.Time         `json:"applied_at"`
	ReviewedAt      *time.Time        `json:"reviewed_at"`
	ReviewedBy      *int64            `json:"reviewed_by"`
	RejectionReason *string           `json:"rejection_reason"`

	// Joined from users when listing.
	Username   string `json:"username,omitempty"`
	Email      string `json:"email,omitempty"`
	StudentID  string `json:"student_id,omitempty"`
	University string `json:"university,omitempty"`
}

type DriverStats struct {
	TotalRides    int     `json:"totalRides"`
	Rating        float64 `json:"rating"`
	TotalEarnings float64 `json:"totalEarnings"`
}

// ReviewDecision maps an approve/reject flag to the resulting status.
func ReviewDecision(approved bool) ApplicationStatus {
	if approved {
		return ApplicationApproved
	}
	return ApplicationRejected
}
