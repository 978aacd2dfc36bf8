package memory

import (
	"context"
	"sort"

	"campusride/pkg/models"
	"campusride/storage"
)

type driverRepo struct{ s *Store }

func (r driverRepo) Create(_ context.Context, app *models.DriverApplication) (*models.DriverApplication, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[app.UserID]; !ok {
		return nil, storage.ErrReference
	}
	if r.s.appByUser(app.UserID) != nil {
		return nil, storage.ErrDuplicate
	}

	r.s.nextAppID++
	app.ID = r.s.nextAppID
	app.Status = models.ApplicationPending
	app.IsActiveDriver = false
	app.IsOnline = false
	app.TotalRides = 0
	app.TotalEarnings = 0
	app.Rating = 5
	app.AppliedAt = r.s.now()
	stored := *app
	r.s.apps[app.ID] = &stored
	return app, nil
}

func (r driverRepo) GetByUserID(_ context.Context, userID int64) (*models.DriverApplication, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a := r.s.appByUser(userID)
	if a == nil {
		return nil, nil
	}
	return r.s.copyApp(a), nil
}

func (r driverRepo) GetPending(_ context.Context) ([]*models.DriverApplication, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	apps := []*models.DriverApplication{}
	for _, a := range r.s.apps {
		if a.Status == models.ApplicationPending {
			apps = append(apps, r.s.copyApp(a))
		}
	}
	sort.Slice(apps, func(i, j int) bool { return apps[i].ID > apps[j].ID })
	return apps, nil
}

func (r driverRepo) Review(_ context.Context, appID, adminID int64, status models.ApplicationStatus, reason *string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.apps[appID]
	if !ok {
		return storage.ErrNotFound
	}
	now := r.s.now()
	a.Status = status
	a.ReviewedAt = &now
	a.ReviewedBy = &adminID
	a.RejectionReason = reason
	a.IsActiveDriver = status == models.ApplicationApproved
	return nil
}

func (r driverRepo) SetOnline(_ context.Context, userID int64, online bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if a := r.s.appByUser(userID); a != nil {
		a.IsOnline = online
	}
	return nil
}
