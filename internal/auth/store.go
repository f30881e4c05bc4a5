package auth

import (
	"context"
	"log/slog"
	"sync"

	"github.com/sagehealth/sage/internal/api"
)

// State is the store's view of the session.
type State int

const (
	// StateUnauthenticated means no usable session exists.
	StateUnauthenticated State = iota

	// StateUnresolved means a token is held but the identity could not be
	// resolved yet (the last refresh failed transiently).
	StateUnresolved

	// StateAuthenticated means the session resolved to a user.
	StateAuthenticated
)

// Service is the slice of the api client the store needs.
type Service interface {
	Signup(ctx context.Context, req api.SignupRequest) (*api.AuthResponse, error)
	Login(ctx context.Context, email, password string) (*api.AuthResponse, error)
	Me(ctx context.Context) (*api.User, error)
	Logout(ctx context.Context) error
}

// Store is the process-wide authentication state.
type Store struct {
	svc    Service
	tokens TokenStore
	logger *slog.Logger

	mu    sync.Mutex
	state State
	user  *api.User
}

// NewStore creates a session store over the given service and token storage.
func NewStore(svc Service, tokens TokenStore, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		svc:    svc,
		tokens: tokens,
		logger: logger,
	}
}

// Login starts a session and persists its token.
func (s *Store) Login(ctx context.Context, email, password string) (*api.User, error) {
	resp, err := s.svc.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.establish(resp)
}

// Signup creates an account and starts a session.
func (s *Store) Signup(ctx context.Context, req api.SignupRequest) (*api.User, error) {
	resp, err := s.svc.Signup(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.establish(resp)
}

func (s *Store) establish(resp *api.AuthResponse) (*api.User, error) {
	if err := s.tokens.Set(resp.SessionID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateAuthenticated
	user := resp.User
	s.user = &user
	s.logger.Info("session established", "user_id", user.ID, "role", user.Role)
	return &user, nil
}

// Logout ends the session. The local token is cleared unconditionally, even
// when the server-side logout call fails.
func (s *Store) Logout(ctx context.Context) {
	if _, ok := s.tokens.Token(); ok {
		if err := s.svc.Logout(ctx); err != nil {
			s.logger.Warn("server logout failed, clearing session locally", "error", err)
		}
	}
	s.clear()
}

// Refresh resolves the persisted token to a user. A definitive rejection
// clears the token; a transient failure keeps it and leaves the store
// unresolved until a later refresh settles it.
func (s *Store) Refresh(ctx context.Context) error {
	if _, ok := s.tokens.Token(); !ok {
		s.clear()
		return nil
	}

	user, err := s.svc.Me(ctx)
	if err != nil {
		if api.IsUnauthorized(err) {
			s.clear()
			return nil
		}
		s.mu.Lock()
		s.state = StateUnresolved
		s.user = nil
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	s.state = StateAuthenticated
	s.user = user
	s.mu.Unlock()
	return nil
}

// SessionExpired is the 401 interrupt entry point: drop the token and the
// identity, whatever call noticed the rejection.
func (s *Store) SessionExpired() {
	s.clear()
}

func (s *Store) clear() {
	if err := s.tokens.Clear(); err != nil {
		s.logger.Warn("failed to clear token", "error", err)
	}
	s.mu.Lock()
	s.state = StateUnauthenticated
	s.user = nil
	s.mu.Unlock()
}

// State returns the current session state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// User returns the resolved identity, or nil when not authenticated.
func (s *Store) User() *api.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	user := *s.user
	return &user
}

// Authenticated reports whether the session resolved to a user.
func (s *Store) Authenticated() bool {
	return s.State() == StateAuthenticated
}
