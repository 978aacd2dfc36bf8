package memory

import (
	"context"

	"campusride/pkg/models"
	"campusride/storage"
)

type rideRepo struct{ s *Store }

func (r rideRepo) Create(_ context.Context, ride *models.Ride) (*models.Ride, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[ride.StudentID]; !ok {
		return nil, storage.ErrReference
	}

	r.s.nextRideID++
	stored := copyRide(ride)
	stored.ID = r.s.nextRideID
	stored.DriverID = nil
	stored.Status = models.RidePending
	stored.RequestedAt = r.s.now()
	stored.AcceptedAt = nil
	stored.CompletedAt = nil
	r.s.rides[stored.ID] = stored
	return copyRide(stored), nil
}

func (r rideRepo) GetByID(_ context.Context, id int64) (*models.Ride, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	ride, ok := r.s.rides[id]
	if !ok {
		return nil, nil
	}
	return copyRide(ride), nil
}

func (r rideRepo) Accept(_ context.Context, rideID, driverID int64) (*models.Ride, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	ride, ok := r.s.rides[rideID]
	if !ok || ride.Status != models.RidePending {
		return nil, storage.ErrNotFound
	}
	if _, ok := r.s.users[driverID]; !ok {
		return nil, storage.ErrReference
	}
	now := r.s.now()
	ride.DriverID = &driverID
	ride.Status = models.RideMatched
	ride.AcceptedAt = &now
	return copyRide(ride), nil
}

func (r rideRepo) Complete(_ context.Context, rideID, driverID int64, fare *float64) (*models.Ride, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	ride, ok := r.s.rides[rideID]
	if !ok || !ride.AssignedTo(driverID) || !models.CanTransition(ride.Status, models.RideCompleted) {
		return nil, storage.ErrNotFound
	}

	now := r.s.now()
	ride.Status = models.RideCompleted
	ride.CompletedAt = &now

	credit := ride.Fare
	if fare != nil {
		credit = *fare
	}
	if a := r.s.appByUser(driverID); a != nil {
		a.TotalRides++
		a.TotalEarnings += credit
	}
	return copyRide(ride), nil
}

func (r rideRepo) GetStudentRides(_ context.Context, studentID int64) ([]*models.StudentRide, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var open []*models.Ride
	for _, ride := range r.s.rides {
		if ride.StudentID == studentID && ride.Status.Open() {
			open = append(open, copyRide(ride))
		}
	}
	sortRidesNewestFirst(open)

	rides := make([]*models.StudentRide, 0, len(open))
	for _, ride := range open {
		sr := &models.StudentRide{Ride: *ride}
		if ride.DriverID != nil {
			if d, ok := r.s.users[*ride.DriverID]; ok {
				d := copyUser(d)
				sr.DriverName = &d.Username
				sr.DriverPhone = d.Phone
			}
			if a := r.s.appByUser(*ride.DriverID); a != nil {
				a := r.s.copyApp(a)
				sr.VehicleMake = &a.VehicleMake
				sr.VehicleModel = &a.VehicleModel
				sr.VehicleColor = &a.VehicleColor
				sr.PlateNumber = &a.PlateNumber
			}
		}
		rides = append(rides, sr)
	}
	return rides, nil
}

func (r rideRepo) GetAvailable(_ context.Context, limit int) ([]*models.AvailableRide, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var pending []*models.Ride
	for _, ride := range r.s.rides {
		if ride.Status == models.RidePending {
			pending = append(pending, copyRide(ride))
		}
	}
	sortRidesNewestFirst(pending)
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}

	rides := make([]*models.AvailableRide, 0, len(pending))
	for _, ride := range pending {
		ar := &models.AvailableRide{Ride: *ride}
		if u, ok := r.s.users[ride.StudentID]; ok {
			ar.StudentName = u.Username
			ar.StudentPhone = u.Phone
		}
		rides = append(rides, ar)
	}
	return rides, nil
}
