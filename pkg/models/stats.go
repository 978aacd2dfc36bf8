package models

type AdminStats struct {
	PendingStudents  int `json:"pending_students"`
	ApprovedStudents int `json:"approved_students"`
	PendingDrivers   int `json:"pending_drivers"`
	ApprovedDrivers  int `json:"approved_drivers"`
	TotalRides       int `json:"total_rides"`
	CompletedRides   int `json:"completed_rides"`
}
