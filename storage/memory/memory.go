// Package memory is a process-local store with the same guarded-update
// semantics as the postgres store. Every statement runs under one mutex, which
// stands in for the row-level atomicity postgres gives us.
package memory

import (
	"sort"
	"sync"
	"time"

	"campusride/pkg/models"
	"campusride/storage"
)

type Store struct {
	mu sync.Mutex

	now func() time.Time

	nextUserID    int64
	nextAppID     int64
	nextRideID    int64
	nextMessageID int64

	users    map[int64]*models.User
	apps     map[int64]*models.DriverApplication
	rides    map[int64]*models.Ride
	messages []*models.Message
}

func New() *Store {
	return &Store{
		now:   time.Now,
		users: make(map[int64]*models.User),
		apps:  make(map[int64]*models.DriverApplication),
		rides: make(map[int64]*models.Ride),
	}
}

func (s *Store) User() storage.IUserStorage       { return userRepo{s} }
func (s *Store) Driver() storage.IDriverStorage   { return driverRepo{s} }
func (s *Store) Ride() storage.IRideStorage       { return rideRepo{s} }
func (s *Store) Message() storage.IMessageStorage { return messageRepo{s} }
func (s *Store) Stats() storage.IStatsStorage     { return statsRepo{s} }
func (s *Store) Close()                           {}

// appByUser must be called with mu held.
func (s *Store) appByUser(userID int64) *models.DriverApplication {
	for _, a := range s.apps {
		if a.UserID == userID {
			return a
		}
	}
	return nil
}

func copyUser(u *models.User) *models.User {
	c := *u
	return &c
}

func (s *Store) copyApp(a *models.DriverApplication) *models.DriverApplication {
	c := *a
	if u, ok := s.users[a.UserID]; ok {
		c.Username = u.Username
		c.Email = u.Email
		c.StudentID = u.StudentID
		c.University = u.University
	}
	return &c
}

func copyRide(r *models.Ride) *models.Ride {
	c := *r
	return &c
}

func sortRidesNewestFirst(rides []*models.Ride) {
	sort.Slice(rides, func(i, j int) bool {
		if rides[i].RequestedAt.Equal(rides[j].RequestedAt) {
			return rides[i].ID > rides[j].ID
		}
		return rides[i].RequestedAt.After(rides[j].RequestedAt)
	})
}
