package models

import "time"

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	StudentID    string    `json:"student_id"`
	University   string    `json:"university"`
	Major        string    `json:"major"`
	Phone        *string   `json:"phone"`
	IsVerified   bool      `json:"is_verified"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
}

// CanLogin reports whether the account passed admin verification. Admins skip it.
func (u *User) CanLogin() bool {
	return u.IsVerified || u.IsAdmin
}

// UserProfile is the login view of a user joined with its driver application.
type UserProfile struct {
	ID             int64        `json:"id"`
	Username       string       `json:"username"`
	Email          string       `json:"email"`
	StudentID      string       `json:"studentId"`
	University     string       `json:"university"`
	Major          string       `json:"major"`
	IsAdmin        bool         `json:"isAdmin"`
	IsVerified     bool         `json:"isVerified"`
	HasDriverApp   bool         `json:"hasDriverApp"`
	DriverStatus   *string      `json:"driverStatus"`
	IsActiveDriver bool         `json:"isActiveDriver"`
	DriverStats    *DriverStats `json:"driverStats"`
}

func NewUserProfile(u *User, app *DriverApplication) *UserProfile {
	p := &UserProfile{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		StudentID:  u.StudentID,
		University: u.University,
		Major:      u.Major,
		IsAdmin:    u.IsAdmin,
		IsVerified: u.IsVerified,
	}
	if app == nil {
		return p
	}
	status := string(app.Status)
	p.HasDriverApp = true
	p.DriverStatus = &status
	p.IsActiveDriver = app.IsActiveDriver
	if app.IsActiveDriver {
		p.DriverStats = &DriverStats{
			TotalRides:    app.TotalRides,
			Rating:        app.Rating,
			TotalEarnings: app.TotalEarnings,
		}
	}
	return p
}
