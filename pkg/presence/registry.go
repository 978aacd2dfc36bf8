// Package presence tracks which identities are connected and which drivers
// are online, with their last reported location. State is volatile: a
// restart forgets everything and clients re-announce after reconnecting.
// There is no liveness timeout, so a driver whose connection dies without a
// disconnect stays online until they go offline or reconnect.
package presence

import (
	"context"
	"sort"
	"sync"
	"time"

	"campusride/pkg/logger"
	"campusride/pkg/metrics"
	"campusride/pkg/models"
)

// OnlineStore persists the boolean online flag of a driver.
type OnlineStore interface {
	SetOnline(ctx context.Context, userID int64, online bool) error
}

// LocationCache mirrors last known locations somewhere other processes can read.
type LocationCache interface {
	Put(ctx context.Context, driverID int64, loc models.Location) error
	Remove(ctx context.Context, driverID int64) error
}

type DriverPresence struct {
	DriverID  int64           `json:"driverId"`
	SessionID string          `json:"-"`
	Location  models.Location `json:"location"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type Registry struct {
	mu sync.RWMutex
	// cacheMu orders cache writes so the cache ends at the registry's state.
	cacheMu sync.Mutex

	sessions     map[int64]string
	bySession    map[string]int64
	drivers      map[int64]*DriverPresence
	driverBySess map[string]int64

	store OnlineStore
	cache LocationCache
	log   logger.ILogger
	now   func() time.Time
}

// New builds an empty registry. cache may be nil.
func New(store OnlineStore, cache LocationCache, log logger.ILogger) *Registry {
	return &Registry{
		sessions:     make(map[int64]string),
		bySession:    make(map[string]int64),
		drivers:      make(map[int64]*DriverPresence),
		driverBySess: make(map[string]int64),
		store:        store,
		cache:        cache,
		log:          log,
		now:          time.Now,
	}
}

// Bind records that userID is reachable through sessionID. A later bind for
// the same user replaces the earlier session.
func (r *Registry) Bind(userID int64, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.sessions[userID]; ok && old != sessionID {
		delete(r.bySession, old)
	}
	if prev, ok := r.bySession[sessionID]; ok && prev != userID {
		delete(r.sessions, prev)
	}
	r.sessions[userID] = sessionID
	r.bySession[sessionID] = userID
}

func (r *Registry) SessionOf(userID int64) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.sessions[userID]
	return id, ok
}

func (r *Registry) UserOf(sessionID string) (int64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.bySession[sessionID]
	return id, ok
}

func (r *Registry) MarkOnline(ctx context.Context, driverID int64, sessionID string, loc models.Location) error {
	r.mu.Lock()
	if prev, ok := r.drivers[driverID]; ok && prev.SessionID != sessionID {
		delete(r.driverBySess, prev.SessionID)
	}
	replaced, swapped := r.driverBySess[sessionID]
	swapped = swapped && replaced != driverID
	if swapped {
		r.evictDriver(replaced)
	}
	r.drivers[driverID] = &DriverPresence{
		DriverID:  driverID,
		SessionID: sessionID,
		Location:  loc,
		UpdatedAt: r.now(),
	}
	r.driverBySess[sessionID] = driverID
	metrics.OnlineDrivers.Set(float64(len(r.drivers)))
	r.mu.Unlock()

	if swapped {
		r.mirror(ctx, replaced)
	}
	r.mirror(ctx, driverID)
	return r.store.SetOnline(ctx, driverID, true)
}

func (r *Registry) MarkOffline(ctx context.Context, driverID int64) error {
	r.mu.Lock()
	r.evictDriver(driverID)
	r.mu.Unlock()

	r.mirror(ctx, driverID)
	return r.store.SetOnline(ctx, driverID, false)
}

// UpdateLocation moves an online driver. It reports false and changes nothing
// when the driver is not online.
func (r *Registry) UpdateLocation(ctx context.Context, driverID int64, loc models.Location) bool {
	r.mu.Lock()
	p, ok := r.drivers[driverID]
	if ok {
		p.Location = loc
		p.UpdatedAt = r.now()
	}
	r.mu.Unlock()

	if ok {
		r.mirror(ctx, driverID)
	}
	return ok
}

// OnDisconnect evicts whatever identity and presence entry were bound to
// sessionID. The online flag in the store is left as is. Calling it again for
// the same session does nothing.
func (r *Registry) OnDisconnect(ctx context.Context, sessionID string) (int64, bool) {
	r.mu.Lock()
	userID, bound := r.bySession[sessionID]
	if bound {
		delete(r.bySession, sessionID)
		delete(r.sessions, userID)
	}

	var evicted []int64
	if bound {
		if _, online := r.drivers[userID]; online {
			r.evictDriver(userID)
			evicted = append(evicted, userID)
		}
	}
	if driverID, ok := r.driverBySess[sessionID]; ok {
		r.evictDriver(driverID)
		evicted = append(evicted, driverID)
	}
	r.mu.Unlock()

	for _, id := range evicted {
		r.mirror(ctx, id)
	}
	return userID, bound
}

func (r *Registry) Location(driverID int64) (models.Location, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.drivers[driverID]
	if !ok {
		return models.Location{}, false
	}
	return p.Location, true
}

func (r *Registry) IsOnline(driverID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.drivers[driverID]
	return ok
}

// Online returns a snapshot of online drivers ordered by id.
func (r *Registry) Online() []DriverPresence {
	r.mu.RLock()
	out := make([]DriverPresence, 0, len(r.drivers))
	for _, p := range r.drivers {
		out = append(out, *p)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].DriverID < out[j].DriverID })
	return out
}

// Counts returns bound identities and online drivers.
func (r *Registry) Counts() (sessions, drivers int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions), len(r.drivers)
}

// evictDriver must be called with mu held.
func (r *Registry) evictDriver(driverID int64) {
	p, ok := r.drivers[driverID]
	if !ok {
		return
	}
	delete(r.drivers, driverID)
	if r.driverBySess[p.SessionID] == driverID {
		delete(r.driverBySess, p.SessionID)
	}
	metrics.OnlineDrivers.Set(float64(len(r.drivers)))
}

// mirror copies the registry's current entry for driverID to the cache, or
// removes it when the driver is no longer online.
func (r *Registry) mirror(ctx context.Context, driverID int64) {
	if r.cache == nil {
		return
	}
	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	r.mu.RLock()
	p, online := r.drivers[driverID]
	var loc models.Location
	if online {
		loc = p.Location
	}
	r.mu.RUnlock()

	var err error
	if online {
		err = r.cache.Put(ctx, driverID, loc)
	} else {
		err = r.cache.Remove(ctx, driverID)
	}
	if err != nil {
		r.log.Warning("location cache update failed", logger.Int64("driver_id", driverID), logger.Error(err))
	}
}
