// Package session holds the signed-in user for the lifetime of the process
// and tells subscribers whenever that changes.
package session

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/tuningstudio/tuning/pkg/client"
	"github.com/tuningstudio/tuning/pkg/domain"
)

// ErrNotAuthenticated is returned by operations that need a signed-in user.
var ErrNotAuthenticated = errors.New("session: not authenticated")

// Authenticator is the part of the API client the store talks to.
type Authenticator interface {
	Me(ctx context.Context) (*domain.User, error)
	Login(ctx context.Context, creds client.Credentials) (*domain.User, error)
	Register(ctx context.Context, reg client.Registration) (*domain.User, error)
	Logout(ctx context.Context) error
	UpdateProfile(ctx context.Context, upd client.ProfileUpdate) (*domain.User, error)
}

// Event names what caused a snapshot.
type Event string

const (
	EventInitialize Event = "initialize"
	EventSignIn     Event = "sign_in"
	EventRegister   Event = "register"
	EventSignOut    Event = "sign_out"
	EventRefresh    Event = "refresh"
	EventProfile    Event = "profile"
)

// Snapshot is the state handed to subscribers.
type Snapshot struct {
	User    *domain.User
	Loading bool
	Event   Event
}

// Authenticated reports whether the snapshot carries a user.
func (s Snapshot) Authenticated() bool {
	return s.User != nil
}

type subscriber struct {
	id int
	fn func(Snapshot)
}

// Store is the session store. All methods are safe for concurrent use.
// Listeners run synchronously in registration order, outside the lock.
type Store struct {
	auth Authenticator
	log  *zap.Logger

	mu      sync.RWMutex
	user    *domain.User
	loading bool

	subMu  sync.Mutex
	subs   []subscriber
	nextID int
}

// New builds an anonymous store. A nil logger is replaced with a no-op one.
func New(auth Authenticator, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{auth: auth, log: log}
}

// Initialize asks the API who the current user is. Any failure leaves the
// store anonymous; the error is logged, not returned.
func (s *Store) Initialize(ctx context.Context) {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()
	s.notify(EventInitialize)

	u, err := s.auth.Me(ctx)
	if err != nil {
		if client.IsUnauthorized(err) {
			s.log.Debug("session_anonymous")
		} else {
			s.log.Warn("session_initialize_failed", zap.Error(err))
		}
		u = nil
	} else {
		s.log.Info("session_restored", zap.Int64("user_id", u.ID), zap.String("username", u.Username))
	}

	s.mu.Lock()
	s.user = u
	s.loading = false
	s.mu.Unlock()
	s.notify(EventInitialize)
}

// SignIn exchanges credentials for a session. On failure the state is left
// as it was and the API error is returned so callers can show field messages.
func (s *Store) SignIn(ctx context.Context, creds client.Credentials) (*domain.User, error) {
	u, err := s.auth.Login(ctx, creds)
	if err != nil {
		return nil, err
	}
	s.set(u, EventSignIn)
	s.log.Info("session_signed_in", zap.Int64("user_id", u.ID), zap.String("username", u.Username))
	return clone(u), nil
}

// Register creates an account and signs it in.
func (s *Store) Register(ctx context.Context, reg client.Registration) (*domain.User, error) {
	u, err := s.auth.Register(ctx, reg)
	if err != nil {
		return nil, err
	}
	s.set(u, EventRegister)
	s.log.Info("session_registered", zap.Int64("user_id", u.ID), zap.String("username", u.Username))
	return clone(u), nil
}

// SignOut ends the session. The store is cleared whatever the API answers;
// the API error, if any, is still returned.
func (s *Store) SignOut(ctx context.Context) error {
	err := s.auth.Logout(ctx)
	if err != nil {
		s.log.Warn("session_sign_out_failed", zap.Error(err))
	}
	s.set(nil, EventSignOut)
	s.log.Info("session_signed_out")
	return err
}

// Refresh re-reads the current user. A failure clears the store.
func (s *Store) Refresh(ctx context.Context) (*domain.User, error) {
	u, err := s.auth.Me(ctx)
	if err != nil {
		s.set(nil, EventRefresh)
		return nil, err
	}
	s.set(u, EventRefresh)
	return clone(u), nil
}

// UpdateProfile applies upd to the signed-in user's profile.
func (s *Store) UpdateProfile(ctx context.Context, upd client.ProfileUpdate) (*domain.User, error) {
	if !s.IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}
	u, err := s.auth.UpdateProfile(ctx, upd)
	if err != nil {
		return nil, err
	}
	s.set(u, EventProfile)
	return clone(u), nil
}

// Current returns a copy of the signed-in user, or nil.
func (s *Store) Current() *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.user)
}

// IsAuthenticated reports whether a user is signed in.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}

// Loading reports whether Initialize is in flight.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Subscribe registers fn for every state change and returns a function that
// removes it. The returned function is idempotent.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.subMu.Lock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			for i, sub := range s.subs {
				if sub.id == id {
					s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (s *Store) set(u *domain.User, ev Event) {
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()
	s.notify(ev)
}

func (s *Store) notify(ev Event) {
	s.mu.RLock()
	snap := Snapshot{User: clone(s.user), Loading: s.loading, Event: ev}
	s.mu.RUnlock()

	s.subMu.Lock()
	subs := append([]subscriber(nil), s.subs...)
	s.subMu.Unlock()

	for _, sub := range subs {
		sub.fn(snap)
	}
}

func clone(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	cp := *u
	return &cp
}
