package session

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core/user"
)

// Status is the lifecycle status of the session.
type Status int

// Statuses
const (
	StatusInitializing Status = iota
	StatusAuthenticated
	StatusAnonymous
)

func (s Status) String() string {
	switch s {
	case StatusInitializing:
		return "initializing"
	case StatusAuthenticated:
		return "authenticated"
	case StatusAnonymous:
		return "anonymous"
	}
	return "unknown"
}

var (
	// ErrNotFound is returned by a Repository holding no credentials.
	ErrNotFound = errors.New("no persisted session")

	// ErrIncomplete is returned by a Repository holding only one of the token and the user.
	ErrIncomplete = errors.New("incomplete persisted session")
)

// State is the session held by the Store.
// Identity is set if and only if Token is set and Status is StatusAuthenticated.
type State struct {
	Status   Status
	Token    string
	Identity *user.User
}

func (s State) Role() user.Role {
	if s.Identity == nil {
		return ""
	}
	return s.Identity.Role
}

// Snapshot is an immutable copy of the session, safe to hand out to readers.
type Snapshot struct {
	Status    Status
	Token     string
	Identity  *user.User
	Role      user.Role
	ExpiresAt time.Time // zero if the token carries no readable expiry
}

func (s Snapshot) IsAuthenticated() bool { return s.Status == StatusAuthenticated }

// User returns the identity, or the zero User when anonymous.
func (s Snapshot) User() user.User {
	if s.Identity == nil {
		return user.User{}
	}
	return *s.Identity
}

// Credentials is what gets persisted: the `token` and `user` keys.
type Credentials struct {
	Token string
	User  user.User
}

// Repository persists the session credentials.
// Load returns ErrNotFound when nothing is stored, and ErrIncomplete when only one key is.
type Repository interface {
	Load(ctx context.Context) (Credentials, error)
	Save(ctx context.Context, creds Credentials) error
	Clear(ctx context.Context) error
}

// Authenticator is the remote authentication service.
type Authenticator interface {
	Login(ctx context.Context, creds user.Credentials) (user.AuthResult, error)
	Signup(ctx context.Context, acct user.NewAccount) (user.AuthResult, error)
	CurrentUser(ctx context.Context, token string) (user.User, error)
}

// Observer is notified of every committed transition.
type Observer interface {
	Transition(from, to Status, reason string)
}

// AuthError is a rejected sign-in or sign-up.
type AuthError struct {
	Op      string // login | signup
	Message string
	Err     error
}

func (e *AuthError) Error() string { return e.Message }

func (e *AuthError) Unwrap() error { return e.Err }

// serverMessenger is implemented by remote errors carrying a message from the response payload.
type serverMessenger interface {
	ServerMessage() string
}

func newAuthError(op, fallback string, err error) *AuthError {
	msg := fallback
	var sm serverMessenger
	if errors.As(err, &sm) && sm.ServerMessage() != "" {
		msg = sm.ServerMessage()
	}
	return &AuthError{Op: op, Message: msg, Err: err}
}
