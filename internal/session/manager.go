package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"go.uber.org/zap"

	"finitefield.org/retail-console/internal/api"
	"finitefield.org/retail-console/internal/rbac"
	"finitefield.org/retail-console/internal/transport"
)

// MinPasswordLength is enforced locally before registration reaches the API.
const MinPasswordLength = 6

var (
	// ErrInvalidConfig indicates the manager or a store was initialised with missing options.
	ErrInvalidConfig = errors.New("session: invalid config")
	// ErrPasswordTooShort is returned by Register before any request is made.
	ErrPasswordTooShort = errors.New("session: password too short")
	// ErrMissingCredentials is returned by Login when email or password is blank.
	ErrMissingCredentials = errors.New("session: missing credentials")
	// ErrAlreadyAuthenticated is returned by Login while a session is active or being established.
	ErrAlreadyAuthenticated = errors.New("session: already authenticated")
)

// MessageAlreadyAuthenticated asks the user to log out before switching accounts.
const MessageAlreadyAuthenticated = "You are already logged in. Please log out first"

// State is the authentication lifecycle position.
type State int

const (
	StateAnonymous State = iota
	StateAuthenticating
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

// Session is the authenticated identity. The JSON shape is the durable storage format.
type Session struct {
	UserID   int64  `json:"userid"`
	FullName string `json:"fullname"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

func (s Session) valid() bool {
	return s.UserID > 0 && strings.TrimSpace(s.Role) != ""
}

// FormError is a failure rendered inline by the login or registration form.
type FormError struct {
	Form    string
	Message string
	Err     error
}

func (e *FormError) Error() string {
	return fmt.Sprintf("session: %s: %s", e.Form, e.Message)
}

func (e *FormError) Unwrap() error {
	return e.Err
}

// Authenticator is the subset of the API client the manager depends on.
type Authenticator interface {
	Login(ctx context.Context, req api.LoginRequest) (api.LoginResponse, error)
	CreateUser(ctx context.Context, req api.CreateUserRequest) (api.CreateUserResponse, error)
}

// RegisterRequest carries the registration form.
type RegisterRequest struct {
	FullName    string
	Email       string
	Password    string
	PhoneNumber string
}

// RegisterResult tells the caller which email to prefill on the login form.
type RegisterResult struct {
	UserID       int64
	PrefillEmail string
	Message      string
}

// LogoutHook runs after the session is cleared.
type LogoutHook func(ctx context.Context)

// Option customises a Manager.
type Option func(*Manager)

// WithLogger sets the manager logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithLogoutHook registers a hook run on every logout.
func WithLogoutHook(hook LogoutHook) Option {
	return func(m *Manager) {
		if hook != nil {
			m.hooks = append(m.hooks, hook)
		}
	}
}

// Manager owns the authenticated identity and its persistence.
type Manager struct {
	auth   Authenticator
	store  Store
	logger *zap.Logger

	mu      sync.RWMutex
	state   State
	current *Session
	hooks   []LogoutHook
}

// NewManager constructs a Manager in the anonymous state.
func NewManager(auth Authenticator, store Store, opts ...Option) (*Manager, error) {
	if auth == nil {
		return nil, fmt.Errorf("%w: authenticator is required", ErrInvalidConfig)
	}
	if store == nil {
		return nil, fmt.Errorf("%w: store is required", ErrInvalidConfig)
	}
	m := &Manager{
		auth:   auth,
		store:  store,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.Named("session")
	return m, nil
}

// OnLogout registers a hook after construction.
func (m *Manager) OnLogout(hook LogoutHook) {
	if hook == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, hook)
}

// Login authenticates and persists the session. It is refused while a session is active;
// switching accounts goes through Logout so the cart and storage are cleared first.
func (m *Manager) Login(ctx context.Context, email, password string) (Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return Session{}, &FormError{
			Form:    "login",
			Message: "Please enter your email and password",
			Err:     transport.Invalid("Please enter your email and password", ErrMissingCredentials),
		}
	}

	m.mu.Lock()
	if m.state != StateAnonymous {
		m.mu.Unlock()
		return Session{}, &FormError{
			Form:    "login",
			Message: MessageAlreadyAuthenticated,
			Err:     transport.Invalid(MessageAlreadyAuthenticated, ErrAlreadyAuthenticated),
		}
	}
	m.state = StateAuthenticating
	m.mu.Unlock()

	resp, err := m.auth.Login(ctx, api.LoginRequest{Email: email, Password: password})
	if err != nil {
		m.mu.Lock()
		m.state = StateAnonymous
		m.current = nil
		m.mu.Unlock()
		m.logger.Info("login failed", zap.String("kind", string(transport.KindOf(err))))
		return Session{}, &FormError{Form: "login", Message: transport.MessageOf(err), Err: err}
	}

	sess := Session{
		UserID:   resp.User.UserID,
		FullName: resp.User.FullName,
		Email:    resp.User.Email,
		Role:     string(rbac.Normalise(resp.User.Role)),
	}

	m.mu.Lock()
	m.current = &sess
	m.state = StateAuthenticated
	m.mu.Unlock()

	if err := m.store.Save(ctx, sess); err != nil {
		m.logger.Warn("persist session failed", zap.Error(err))
	}
	m.logger.Info("logged in", zap.Int64("userID", sess.UserID), zap.String("role", sess.Role))
	return sess, nil
}

// Register creates a customer account. It never authenticates; the caller shows the login
// form prefilled with the returned email.
func (m *Manager) Register(ctx context.Context, req RegisterRequest) (RegisterResult, error) {
	if utf8.RuneCountInString(req.Password) < MinPasswordLength {
		message := fmt.Sprintf("Password must be at least %d characters", MinPasswordLength)
		return RegisterResult{}, &FormError{
			Form:    "register",
			Message: message,
			Err:     transport.Invalid(message, ErrPasswordTooShort),
		}
	}

	email := strings.TrimSpace(req.Email)
	var phone *string
	if p := strings.TrimSpace(req.PhoneNumber); p != "" {
		phone = &p
	}
	resp, err := m.auth.CreateUser(ctx, api.CreateUserRequest{
		FullName:    strings.TrimSpace(req.FullName),
		Email:       email,
		Password:    req.Password,
		PhoneNumber: phone,
		Role:        string(rbac.RoleCustomer),
	})
	if err != nil {
		return RegisterResult{}, &FormError{Form: "register", Message: transport.MessageOf(err), Err: err}
	}

	m.logger.Info("registered", zap.Int64("userID", resp.UserID))
	return RegisterResult{UserID: resp.UserID, PrefillEmail: email, Message: resp.Message}, nil
}

// Restore rehydrates the session from the store without contacting the API. A missing or
// corrupt entry leaves the manager anonymous.
func (m *Manager) Restore(ctx context.Context) (bool, error) {
	sess, ok, err := m.store.Load(ctx)
	if errors.Is(err, ErrCorrupt) {
		m.logger.Warn("discarding corrupt session", zap.Error(err))
		if clearErr := m.store.Clear(ctx); clearErr != nil {
			m.logger.Warn("clear corrupt session failed", zap.Error(clearErr))
		}
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	m.mu.Lock()
	m.current = &sess
	m.state = StateAuthenticated
	m.mu.Unlock()
	return true, nil
}

// Logout clears the session everywhere and runs the logout hooks.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.current = nil
	m.state = StateAnonymous
	hooks := append([]LogoutHook(nil), m.hooks...)
	m.mu.Unlock()

	err := m.store.Clear(ctx)
	for _, hook := range hooks {
		hook(ctx)
	}
	if err != nil {
		return fmt.Errorf("session: logout: %w", err)
	}
	return nil
}

// State returns the lifecycle position.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Current returns the authenticated session, if any.
func (m *Manager) Current() (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil || m.state != StateAuthenticated {
		return Session{}, false
	}
	return *m.current, true
}

// Role returns the current role, or an empty string when anonymous.
func (m *Manager) Role() string {
	sess, ok := m.Current()
	if !ok {
		return ""
	}
	return sess.Role
}

// Can reports whether the current role grants capability.
func (m *Manager) Can(capability rbac.Capability) bool {
	return rbac.HasCapability(m.Role(), capability)
}
