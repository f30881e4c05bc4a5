package auth

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagehealth/sage/internal/api"
)

type fakeService struct {
	loginResp  *api.AuthResponse
	loginErr   error
	meResp     *api.User
	meErr      error
	logoutErr  error
	logoutN    int
	signupResp *api.AuthResponse
	signupErr  error
}

func (f *fakeService) Signup(ctx context.Context, req api.SignupRequest) (*api.AuthResponse, error) {
	return f.signupResp, f.signupErr
}

func (f *fakeService) Login(ctx context.Context, email, password string) (*api.AuthResponse, error) {
	return f.loginResp, f.loginErr
}

func (f *fakeService) Me(ctx context.Context) (*api.User, error) {
	return f.meResp, f.meErr
}

func (f *fakeService) Logout(ctx context.Context) error {
	f.logoutN++
	return f.logoutErr
}

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestLoginPersistsToken(t *testing.T) {
	svc := &fakeService{
		loginResp: &api.AuthResponse{
			SessionID: "sess_abc",
			User:      api.User{ID: "u1", Email: "a@b.c", Name: "Ada", Role: api.RoleClient},
		},
	}
	tokens := &MemTokenStore{}
	store := NewStore(svc, tokens, discard())

	user, err := store.Login(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, StateAuthenticated, store.State())

	token, ok := tokens.Token()
	require.True(t, ok)
	assert.Equal(t, "sess_abc", token)
}

func TestLogoutClearsLocallyEvenOnServerFailure(t *testing.T) {
	svc := &fakeService{logoutErr: errors.New("network down")}
	tokens := &MemTokenStore{}
	require.NoError(t, tokens.Set("sess_abc"))
	store := NewStore(svc, tokens, discard())

	store.Logout(context.Background())

	assert.Equal(t, 1, svc.logoutN)
	_, ok := tokens.Token()
	assert.False(t, ok, "token must be cleared regardless of server outcome")
	assert.Equal(t, StateUnauthenticated, store.State())
}

func TestRefreshWithoutToken(t *testing.T) {
	store := NewStore(&fakeService{}, &MemTokenStore{}, discard())

	require.NoError(t, store.Refresh(context.Background()))
	assert.Equal(t, StateUnauthenticated, store.State())
	assert.Nil(t, store.User())
}

func TestRefreshUnauthorizedClearsToken(t *testing.T) {
	svc := &fakeService{meErr: &api.Error{Status: 401, Kind: api.KindUnauthorized, Message: "expired"}}
	tokens := &MemTokenStore{}
	require.NoError(t, tokens.Set("stale"))
	store := NewStore(svc, tokens, discard())

	require.NoError(t, store.Refresh(context.Background()))

	_, ok := tokens.Token()
	assert.False(t, ok, "a definitive rejection must clear the token")
	assert.Equal(t, StateUnauthenticated, store.State())
}

func TestRefreshTransientFailureKeepsToken(t *testing.T) {
	svc := &fakeService{meErr: &api.Error{Status: 503, Kind: api.KindServer, Message: "unavailable"}}
	tokens := &MemTokenStore{}
	require.NoError(t, tokens.Set("sess_abc"))
	store := NewStore(svc, tokens, discard())

	err := store.Refresh(context.Background())
	require.Error(t, err)

	token, ok := tokens.Token()
	require.True(t, ok, "transient failures must not destroy the session")
	assert.Equal(t, "sess_abc", token)
	assert.Equal(t, StateUnresolved, store.State())

	// A later refresh settles the state.
	svc.meErr = nil
	svc.meResp = &api.User{ID: "u1", Role: api.RoleClient}
	require.NoError(t, store.Refresh(context.Background()))
	assert.Equal(t, StateAuthenticated, store.State())
}

func TestSessionExpiredInterrupt(t *testing.T) {
	tokens := &MemTokenStore{}
	require.NoError(t, tokens.Set("sess_abc"))
	store := NewStore(&fakeService{}, tokens, discard())

	store.SessionExpired()

	_, ok := tokens.Token()
	assert.False(t, ok)
	assert.Equal(t, StateUnauthenticated, store.State())
}

func TestFileTokenStoreRoundTrip(t *testing.T) {
	path := t.TempDir() + "/nested/session"
	store := NewFileTokenStore(path)

	_, ok := store.Token()
	assert.False(t, ok)

	require.NoError(t, store.Set("sess_abc"))
	token, ok := store.Token()
	require.True(t, ok)
	assert.Equal(t, "sess_abc", token)

	require.NoError(t, store.Clear())
	_, ok = store.Token()
	assert.False(t, ok)

	// Clearing twice is fine.
	require.NoError(t, store.Clear())
}
