package memory

import (
	"context"

	"campusride/pkg/models"
)

type statsRepo struct{ s *Store }

func (r statsRepo) Get(_ context.Context) (*models.AdminStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var st models.AdminStats
	for _, u := range r.s.users {
		if u.IsAdmin {
			continue
		}
		if u.IsVerified {
			st.ApprovedStudents++
		} else {
			st.PendingStudents++
		}
	}
	for _, a := range r.s.apps {
		switch a.Status {
		case models.ApplicationPending:
			st.PendingDrivers++
		case models.ApplicationApproved:
			st.ApprovedDrivers++
		}
	}
	for _, ride := range r.s.rides {
		st.TotalRides++
		if ride.Status == models.RideCompleted {
			st.CompletedRides++
		}
	}
	return &st, nil
}

func (r statsRepo) TableCounts(_ context.Context) (map[string]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return map[string]int{
		"users":               len(r.s.users),
		"driver_applications": len(r.s.apps),
		"rides":               len(r.s.rides),
		"messages":            len(r.s.messages),
	}, nil
}
