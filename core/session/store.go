package session

import (
	"context"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/user"
)

// Transition reasons
const (
	ReasonRestored      = "restored"
	ReasonRestoreFailed = "restore_failed"
	ReasonSignedIn      = "signed_in"
	ReasonSignedUp      = "signed_up"
	ReasonSignedOut     = "signed_out"
	ReasonExpired       = "expired"
)

type Option func(*Store)

func WithObserver(obs Observer) Option {
	return func(s *Store) { s.observer = obs }
}

// WithClock overrides the time source used to stamp synthesized identities.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store is the single authority on who is signed in.
// Network calls never hold the lock; each completed operation commits its transition atomically,
// so the last operation to complete wins.
type Store struct {
	api      Authenticator
	repo     Repository
	validate *validator.Validate
	logger   core.Logger
	observer Observer
	now      func() time.Time

	mu        sync.RWMutex
	state     State
	expiresAt time.Time
	commits   uint64 // explicit transitions committed so far

	persistMu sync.Mutex // serializes repository writes with their commit

	ready     chan struct{}
	readyOnce sync.Once
}

func NewStore(api Authenticator, repo Repository, validate *validator.Validate, logger core.Logger, opts ...Option) *Store {
	s := &Store{
		api:      api,
		repo:     repo,
		validate: validate,
		logger:   logger,
		now:      time.Now,
		state:    State{Status: StatusInitializing},
		ready:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ready is closed once the store has left StatusInitializing.
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot()
}

func (s *Store) snapshot() Snapshot {
	snap := Snapshot{
		Status:    s.state.Status,
		Token:     s.state.Token,
		Role:      s.state.Role(),
		ExpiresAt: s.expiresAt,
	}
	if s.state.Identity != nil {
		usr := *s.state.Identity
		snap.Identity = &usr
	}
	return snap
}

// commit applies e under the lock. A non-explicit event is dropped when an explicit transition
// was committed after `since`. The caller must hold persistMu.
func (s *Store) commit(e event, reason string, explicit bool, since uint64) (Snapshot, bool) {
	s.mu.Lock()
	if !explicit && s.commits != since {
		snap := s.snapshot()
		s.mu.Unlock()
		return snap, false
	}
	from := s.state.Status
	s.state = reduce(s.state, e)
	s.expiresAt = tokenExpiry(s.state.Token)
	if explicit {
		s.commits++
	}
	to := s.state.Status
	snap := s.snapshot()
	s.mu.Unlock()

	if to != StatusInitializing {
		s.readyOnce.Do(func() { close(s.ready) })
	}
	if s.observer != nil {
		s.observer.Transition(from, to, reason)
	}
	return snap, true
}

func (s *Store) explicitCommits() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.commits
}

// Restore validates the persisted credentials against the remote service.
// Any failure leaves the session anonymous with the persisted credentials cleared.
// The result is discarded if a sign-in, sign-up or sign-out completed in the meantime.
func (s *Store) Restore(ctx context.Context) Snapshot {
	since := s.explicitCommits()

	creds, err := s.repo.Load(ctx)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn("session: discarding unreadable session", err)
		}
		return s.restoreFailed(ctx, since, err, !errors.Is(err, ErrNotFound))
	}

	usr, err := s.api.CurrentUser(ctx, creds.Token)
	if err != nil {
		s.logger.Info("session: persisted session rejected", err)
		return s.restoreFailed(ctx, since, err, true)
	}

	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	if s.explicitCommits() != since {
		return s.Snapshot()
	}
	if err := s.repo.Save(ctx, Credentials{Token: creds.Token, User: usr}); err != nil {
		s.logger.Error("session: refreshing persisted identity", err, usr)
	}
	snap, _ := s.commit(restored(restoreResult{token: creds.Token, identity: usr}), ReasonRestored, false, since)
	return snap
}

func (s *Store) restoreFailed(ctx context.Context, since uint64, cause error, clear bool) Snapshot {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	if s.explicitCommits() != since {
		return s.Snapshot()
	}
	if clear {
		if err := s.repo.Clear(ctx); err != nil {
			s.logger.Error("session: clearing persisted session", err)
		}
	}
	snap, _ := s.commit(restored(restoreResult{err: cause}), ReasonRestoreFailed, false, since)
	return snap
}

// SignIn authenticates with email and password. On failure the session is left unchanged.
func (s *Store) SignIn(ctx context.Context, email, password string) (Snapshot, error) {
	creds := user.Credentials{Email: email, Password: password}
	if err := creds.Validate(s.validate); err != nil {
		return s.Snapshot(), err
	}

	res, err := s.api.Login(ctx, creds)
	if err != nil {
		return s.Snapshot(), newAuthError("login", "Login failed", err)
	}
	return s.adopt(ctx, res, "login", "Login failed", ReasonSignedIn)
}

// SignUp registers a new account and signs it in, with the same contract as SignIn.
func (s *Store) SignUp(ctx context.Context, acct user.NewAccount) (Snapshot, error) {
	if err := acct.Validate(s.validate); err != nil {
		return s.Snapshot(), err
	}

	res, err := s.api.Signup(ctx, acct)
	if err != nil {
		return s.Snapshot(), newAuthError("signup", "Signup failed", err)
	}
	return s.adopt(ctx, res, "signup", "Signup failed", ReasonSignedUp)
}

func (s *Store) adopt(ctx context.Context, res user.AuthResult, op, fallback, reason string) (Snapshot, error) {
	if res.Token == "" || !res.Role.IsValid() {
		return s.Snapshot(), newAuthError(op, fallback, errors.Errorf("%s: malformed auth result", op))
	}
	usr := res.User(s.now())

	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	// a failed Save leaves the previous credentials in place, matching the unchanged state
	if err := s.repo.Save(ctx, Credentials{Token: res.Token, User: usr}); err != nil {
		return s.Snapshot(), errors.Wrap(err, "persisting session")
	}
	snap, _ := s.commit(authenticated(res.Token, usr), reason, true, 0)
	s.logger.Info("session: "+reason, usr)
	return snap, nil
}

// SignOut forgets the session. It never fails and is idempotent.
func (s *Store) SignOut(ctx context.Context) Snapshot {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	return s.signOut(ctx, ReasonSignedOut)
}

// Expire signs out after the remote service rejected token.
// It does nothing if the session has moved on to another token in the meantime.
func (s *Store) Expire(ctx context.Context, token string) Snapshot {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	if cur := s.Snapshot(); !cur.IsAuthenticated() || cur.Token != token {
		return cur
	}
	s.logger.Info("session: token rejected by the remote service, signing out")
	return s.signOut(ctx, ReasonExpired)
}

// signOut must be called with persistMu held.
func (s *Store) signOut(ctx context.Context, reason string) Snapshot {
	if err := s.repo.Clear(ctx); err != nil {
		s.logger.Error("session: clearing persisted session", err)
	}
	snap, _ := s.commit(signedOut(), reason, true, 0)
	return snap
}
