package auth

import (
	"sync"

	"classroom-photo-sync/internal/model"
)

// Session holds at most one authenticated teacher. The owner of the session
// (a server, a CLI command) decides its lifetime; nothing here persists it.
type Session struct {
	mu      sync.RWMutex
	teacher *model.Teacher
}

func NewSession() *Session {
	return &Session{}
}

func (s *Session) set(t model.Teacher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teacher = &t
}

func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teacher = nil
}

// Current returns the authenticated teacher, if any.
func (s *Session) Current() (model.Teacher, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.teacher == nil {
		return model.Teacher{}, false
	}
	return *s.teacher, true
}

func (s *Session) IsLoggedIn() bool {
	_, ok := s.Current()
	return ok
}
