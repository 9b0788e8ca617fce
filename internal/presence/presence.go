// Package presence tracks who is online and who is typing, driven purely by
// connection and typing events from the websocket layer. There are no timers:
// every transition is caused by an explicit event, which keeps the state
// machine testable without wall-clock dependence.
package presence

import "sync"

// Connection status.
const (
	StatusOffline = "offline"
	StatusOnline  = "online"
)

// Activity sub-state, only meaningful while online.
const (
	ActivityIdle   = "idle"
	ActivityTyping = "typing"
)

type state struct {
	status   string
	activity string
}

// Tracker is the in-memory presence state machine, keyed by user id.
type Tracker struct {
	mu    sync.Mutex
	users map[string]*state
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{users: make(map[string]*state)}
}

// Connect transitions a user offline → online. Returns true when the status
// actually changed.
func (t *Tracker) Connect(userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if s, ok := t.users[userID]; ok && s.status == StatusOnline {
		return false
	}
	t.users[userID] = &state{status: StatusOnline, activity: ActivityIdle}
	return true
}

// Disconnect transitions a user online → offline. Returns true when the
// status actually changed.
func (t *Tracker) Disconnect(userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.users[userID]
	if !ok || s.status == StatusOffline {
		return false
	}
	delete(t.users, userID)
	return true
}

// StartTyping transitions idle → typing. Only online users can type; the
// event is ignored otherwise. Returns true when the activity changed.
func (t *Tracker) StartTyping(userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.users[userID]
	if !ok || s.status != StatusOnline || s.activity == ActivityTyping {
		return false
	}
	s.activity = ActivityTyping
	return true
}

// StopTyping transitions typing → idle. Sending a message counts as stopping.
// Returns true when the activity changed.
func (t *Tracker) StopTyping(userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.users[userID]
	if !ok || s.activity != ActivityTyping {
		return false
	}
	s.activity = ActivityIdle
	return true
}

// Status returns the user's connection status.
func (t *Tracker) Status(userID string) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	if s, ok := t.users[userID]; ok {
		return s.status
	}
	return StatusOffline
}

// IsTyping reports whether the user is currently typing.
func (t *Tracker) IsTyping(userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.users[userID]
	return ok && s.activity == ActivityTyping
}

// Online returns the ids of all currently online users.
func (t *Tracker) Online() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	ids := make([]string, 0, len(t.users))
	for id := range t.users {
		ids = append(ids, id)
	}
	return ids
}
