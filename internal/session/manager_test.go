package session

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"finitefield.org/retail-console/internal/api"
	"finitefield.org/retail-console/internal/rbac"
	"finitefield.org/retail-console/internal/transport"
)

type stubAuth struct {
	loginCalls    int
	registerCalls int
	loginErr      error
	registerErr   error
	user          api.User
	lastRegister  api.CreateUserRequest
}

func (s *stubAuth) Login(_ context.Context, req api.LoginRequest) (api.LoginResponse, error) {
	s.loginCalls++
	if s.loginErr != nil {
		return api.LoginResponse{}, s.loginErr
	}
	user := s.user
	user.Email = req.Email
	return api.LoginResponse{Message: "Login successful", User: user}, nil
}

func (s *stubAuth) CreateUser(_ context.Context, req api.CreateUserRequest) (api.CreateUserResponse, error) {
	s.registerCalls++
	s.lastRegister = req
	if s.registerErr != nil {
		return api.CreateUserResponse{}, s.registerErr
	}
	return api.CreateUserResponse{Message: "User created", UserID: 77}, nil
}

type failingStore struct {
	MemoryStore
	loadErr  error
	clearErr error
	cleared  int
}

func (f *failingStore) Load(ctx context.Context) (Session, bool, error) {
	if f.loadErr != nil {
		return Session{}, false, f.loadErr
	}
	return f.MemoryStore.Load(ctx)
}

func (f *failingStore) Clear(ctx context.Context) error {
	f.cleared++
	if f.clearErr != nil {
		return f.clearErr
	}
	return f.MemoryStore.Clear(ctx)
}

func newManager(t *testing.T, auth Authenticator, store Store, opts ...Option) *Manager {
	t.Helper()
	m, err := NewManager(auth, store, opts...)
	require.NoError(t, err)
	return m
}

func TestNewManagerValidates(t *testing.T) {
	t.Parallel()

	_, err := NewManager(nil, NewMemoryStore())
	require.ErrorIs(t, err, ErrInvalidConfig)
	_, err = NewManager(&stubAuth{}, nil)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoginPersistsSession(t *testing.T) {
	t.Parallel()

	auth := &stubAuth{user: api.User{UserID: 1, FullName: "Admin User", Role: "Admin"}}
	store := NewMemoryStore()
	m := newManager(t, auth, store)
	require.Equal(t, StateAnonymous, m.State())

	sess, err := m.Login(context.Background(), " admin@shop.test ", "admin123")
	require.NoError(t, err)
	require.Equal(t, Session{UserID: 1, FullName: "Admin User", Email: "admin@shop.test", Role: "admin"}, sess)
	require.Equal(t, StateAuthenticated, m.State())
	require.True(t, m.Can(rbac.CapDashboardView))

	stored, ok, err := store.Load(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, sess, stored)
}

func TestLoginFailureReturnsToAnonymous(t *testing.T) {
	t.Parallel()

	serverErr := &transport.Error{Kind: transport.KindServer, Status: http.StatusUnauthorized, Message: "Invalid email or password"}
	auth := &stubAuth{loginErr: serverErr}
	m := newManager(t, auth, NewMemoryStore())

	_, err := m.Login(context.Background(), "ayse@shop.test", "nope")
	require.Error(t, err)

	var formErr *FormError
	require.True(t, errors.As(err, &formErr))
	require.Equal(t, "login", formErr.Form)
	require.Equal(t, "Invalid email or password", formErr.Message)
	require.Equal(t, transport.KindServer, transport.KindOf(err))
	require.Equal(t, StateAnonymous, m.State())

	_, err = m.Login(context.Background(), "", "")
	require.ErrorIs(t, err, ErrMissingCredentials)
	require.Equal(t, 1, auth.loginCalls)
}

func TestLoginRefusedWhileAuthenticated(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	auth := &stubAuth{user: api.User{UserID: 3, FullName: "Ayşe Yılmaz", Role: "customer"}}
	store := NewMemoryStore()
	m := newManager(t, auth, store)

	first, err := m.Login(ctx, "ayse@shop.test", "secret1")
	require.NoError(t, err)

	auth.loginErr = &transport.Error{Kind: transport.KindServer, Status: http.StatusUnauthorized, Message: "Invalid email or password"}
	_, err = m.Login(ctx, "admin@shop.test", "wrong")
	require.ErrorIs(t, err, ErrAlreadyAuthenticated)
	var formErr *FormError
	require.True(t, errors.As(err, &formErr))
	require.Equal(t, MessageAlreadyAuthenticated, formErr.Message)
	require.Equal(t, transport.KindValidation, transport.KindOf(err))
	require.Equal(t, 1, auth.loginCalls)

	require.Equal(t, StateAuthenticated, m.State())
	current, ok := m.Current()
	require.True(t, ok)
	require.Equal(t, first, current)

	restarted := newManager(t, &stubAuth{}, store)
	restored, err := restarted.Restore(ctx)
	require.NoError(t, err)
	require.True(t, restored)
	sess, ok := restarted.Current()
	require.True(t, ok)
	require.Equal(t, current, sess)

	require.NoError(t, m.Logout(ctx))
	auth.loginErr = nil
	_, err = m.Login(ctx, "ayse@shop.test", "secret1")
	require.NoError(t, err)
	require.Equal(t, 2, auth.loginCalls)
}

func TestRegisterChecksPasswordLocally(t *testing.T) {
	t.Parallel()

	auth := &stubAuth{}
	m := newManager(t, auth, NewMemoryStore())

	_, err := m.Register(context.Background(), RegisterRequest{FullName: "Can", Email: "can@shop.test", Password: "12345"})
	require.ErrorIs(t, err, ErrPasswordTooShort)
	require.Equal(t, transport.KindValidation, transport.KindOf(err))
	require.Zero(t, auth.registerCalls)

	res, err := m.Register(context.Background(), RegisterRequest{FullName: " Can ", Email: " can@shop.test ", Password: "şifre1"})
	require.NoError(t, err)
	require.Equal(t, "can@shop.test", res.PrefillEmail)
	require.Equal(t, int64(77), res.UserID)
	require.Equal(t, "customer", auth.lastRegister.Role)
	require.Equal(t, "Can", auth.lastRegister.FullName)
	require.Nil(t, auth.lastRegister.PhoneNumber)

	require.Equal(t, StateAnonymous, m.State())
	_, ok := m.Current()
	require.False(t, ok)
}

func TestRegisterSurfacesServerMessage(t *testing.T) {
	t.Parallel()

	auth := &stubAuth{registerErr: &transport.Error{Kind: transport.KindServer, Status: http.StatusBadRequest, Message: "Email already registered"}}
	m := newManager(t, auth, NewMemoryStore())

	_, err := m.Register(context.Background(), RegisterRequest{Email: "ayse@shop.test", Password: "secret1", PhoneNumber: "555"})
	var formErr *FormError
	require.True(t, errors.As(err, &formErr))
	require.Equal(t, "register", formErr.Form)
	require.Equal(t, "Email already registered", formErr.Message)
	require.Equal(t, "555", *auth.lastRegister.PhoneNumber)
}

func TestRestoreWithoutNetwork(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), testSession))

	auth := &stubAuth{}
	m := newManager(t, auth, store)

	restored, err := m.Restore(context.Background())
	require.NoError(t, err)
	require.True(t, restored)
	require.Equal(t, StateAuthenticated, m.State())
	require.Equal(t, "customer", m.Role())
	require.Zero(t, auth.loginCalls)

	sess, ok := m.Current()
	require.True(t, ok)
	require.Equal(t, testSession, sess)
}

func TestRestoreDiscardsCorruptEntry(t *testing.T) {
	t.Parallel()

	store := &failingStore{loadErr: ErrCorrupt}
	m := newManager(t, &stubAuth{}, store)

	restored, err := m.Restore(context.Background())
	require.NoError(t, err)
	require.False(t, restored)
	require.Equal(t, 1, store.cleared)
	require.Equal(t, StateAnonymous, m.State())

	boom := errors.New("disk unavailable")
	store.loadErr = boom
	_, err = m.Restore(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestLogoutClearsEverythingAndRunsHooks(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	var hookRuns int
	m := newManager(t, &stubAuth{user: api.User{UserID: 3, Role: "customer"}}, store,
		WithLogoutHook(func(context.Context) { hookRuns++ }),
	)
	m.OnLogout(func(context.Context) { hookRuns++ })

	_, err := m.Login(context.Background(), "ayse@shop.test", "secret1")
	require.NoError(t, err)

	require.NoError(t, m.Logout(context.Background()))
	require.Equal(t, 2, hookRuns)
	require.Equal(t, StateAnonymous, m.State())
	require.Empty(t, m.Role())
	_, ok, err := store.Load(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLogoutReportsStoreFailure(t *testing.T) {
	t.Parallel()

	store := &failingStore{clearErr: errors.New("read-only")}
	var hookRan bool
	m := newManager(t, &stubAuth{user: api.User{UserID: 3, Role: "customer"}}, store,
		WithLogoutHook(func(context.Context) { hookRan = true }),
	)
	_, err := m.Login(context.Background(), "ayse@shop.test", "secret1")
	require.NoError(t, err)

	err = m.Logout(context.Background())
	require.Error(t, err)
	require.True(t, hookRan)
	require.Equal(t, StateAnonymous, m.State())
}

func TestStateString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "anonymous", StateAnonymous.String())
	require.Equal(t, "authenticating", StateAuthenticating.String())
	require.Equal(t, "authenticated", StateAuthenticated.String())
}
