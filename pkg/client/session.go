package client

import (
	"sync"
	"time"

	"coupon-scheduler/internal/model"
)

// SessionState is the lifecycle of a Session: Init until the first login,
// Populated while a token is held, Cleared after logout or expiry.
type SessionState int

const (
	StateInit SessionState = iota
	StatePopulated
	StateCleared
)

func (s SessionState) String() string {
	switch s {
	case StatePopulated:
		return "populated"
	case StateCleared:
		return "cleared"
	default:
		return "init"
	}
}

// SessionData is the persistable part of a session.
type SessionData struct {
	Token     string                 `json:"token"`
	ExpiresAt time.Time              `json:"expires_at"`
	Operator  *model.OperatorProfile `json:"operator,omitempty"`
}

// Session holds the operator's credentials. It is safe for concurrent use.
type Session struct {
	mu    sync.RWMutex
	state SessionState
	data  SessionData
	now   func() time.Time
}

func NewSession() *Session {
	return &Session{now: time.Now}
}

// Populate stores a fresh login.
func (s *Session) Populate(resp *model.LoginResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := resp.User
	s.data = SessionData{Token: resp.Token, ExpiresAt: resp.ExpiresAt, Operator: &user}
	s.state = StatePopulated
}

// Restore loads persisted credentials. Expired or empty data leaves the
// session cleared.
func (s *Session) Restore(d SessionData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.Token == "" || !s.now().Before(d.ExpiresAt) {
		s.data = SessionData{}
		s.state = StateCleared
		return
	}
	s.data = d
	s.state = StatePopulated
}

// Clear drops the credentials.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = SessionData{}
	s.state = StateCleared
}

func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Token returns the bearer token, or "" when not populated.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Token
}

func (s *Session) Operator() *model.OperatorProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Operator
}

// Snapshot returns the data to persist and whether there is any.
func (s *Session) Snapshot() (SessionData, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data, s.state == StatePopulated
}
