package inmemstore

import (
	"context"
	"sync"

	"github.com/trezcool/masomo-portal/core/session"
	"github.com/trezcool/masomo-portal/core/user"
)

// Store keeps the credentials in memory; they do not survive a restart.
type Store struct {
	mutex sync.RWMutex
	token *string
	user  *user.User
}

var _ session.Repository = (*Store)(nil)

func New() *Store {
	return &Store{}
}

func (s *Store) Load(_ context.Context) (session.Credentials, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	switch {
	case s.token == nil && s.user == nil:
		return session.Credentials{}, session.ErrNotFound
	case s.token == nil || s.user == nil:
		return session.Credentials{}, session.ErrIncomplete
	}
	return session.Credentials{Token: *s.token, User: *s.user}, nil
}

func (s *Store) Save(_ context.Context, creds session.Credentials) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	token, usr := creds.Token, creds.User
	s.token, s.user = &token, &usr
	return nil
}

func (s *Store) Clear(_ context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.token, s.user = nil, nil
	return nil
}

// SetToken writes the token key alone.
func (s *Store) SetToken(token string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.token = &token
}

// Len returns how many of the two keys are present.
func (s *Store) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	n := 0
	if s.token != nil {
		n++
	}
	if s.user != nil {
		n++
	}
	return n
}
