package main

import (
	"sync"

	"campusride/pkg/models"
	"campusride/service"
)

// lateNotifier lets the services start before the bot exists. Notifications
// sent before set are dropped.
type lateNotifier struct {
	mu     sync.RWMutex
	target service.AdminNotifier
}

func (n *lateNotifier) set(t service.AdminNotifier) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.target = t
}

func (n *lateNotifier) get() service.AdminNotifier {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.target
}

func (n *lateNotifier) StudentRegistered(u *models.User) {
	if t := n.get(); t != nil {
		t.StudentRegistered(u)
	}
}

func (n *lateNotifier) DriverApplied(app *models.DriverApplication, u *models.User) {
	if t := n.get(); t != nil {
		t.DriverApplied(app, u)
	}
}
