package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"strings"

	"github.com/iLink-CyberShARE/swim-api/pkg/audit"
	"github.com/iLink-CyberShARE/swim-api/pkg/observability"
)

// TokenPrefix is the scheme prepended to issued tokens in session responses
const TokenPrefix = "JWT "

const decoyPassword = "swim-decoy-password"

// Controller handles registration, login and password change
type Controller struct {
	store   CredentialStore
	hasher  Hasher
	tokens  *TokenService
	audit   audit.Logger
	guest   GuestAccount
	logger  *observability.Logger

	// decoy is compared against on unknown emails so every failed login costs one hash comparison
	decoy string
	metrics *observability.Metrics
}

// ControllerOption configures a Controller
type ControllerOption func(*Controller)

// WithLogger sets the application logger
func WithLogger(logger *observability.Logger) ControllerOption {
	return func(c *Controller) { c.logger = logger }
}

// WithMetrics records login and registration outcomes
func WithMetrics(m *observability.Metrics) ControllerOption {
	return func(c *Controller) { c.metrics = m }
}

// NewController creates an authentication controller
func NewController(store CredentialStore, hasher Hasher, tokens *TokenService, auditLogger audit.Logger, guest GuestAccount, opts ...ControllerOption) *Controller {
	if auditLogger == nil {
		auditLogger = audit.NopLogger{}
	}
	c := &Controller{
		store:  store,
		hasher: hasher,
		tokens: tokens,
		audit:  auditLogger,
		guest:  guest,
		logger: observability.NewLogger(observability.InfoLevel, io.Discard),
	}
	for _, opt := range opts {
		opt(c)
	}
	if digest, err := hasher.Hash(decoyPassword); err == nil {
		c.decoy = digest
	}
	return c
}

// Register creates a guest identity and returns a session for it.
// Registration never grants content-manager status.
func (c *Controller) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		c.registration("invalid")
		c.record(ctx, audit.LevelError, "signup error: missing email or password", nil)
		return nil, ErrMissingInput
	}
	if err := validateEmail(req.Email); err != nil {
		c.registration("invalid")
		c.record(ctx, audit.LevelError, fmt.Sprintf("signup error: invalid email %s", req.Email), nil)
		return nil, err
	}

	digest, err := c.hasher.Hash(req.Password)
	if err != nil {
		c.registration("invalid")
		c.record(ctx, audit.LevelError, fmt.Sprintf("signup error: %v", err), nil)
		return nil, err
	}

	identity := &Identity{
		Email:        req.Email,
		PasswordHash: digest,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Institution:  req.Institution,
		Department:   req.Department,
		ProfileRole:  req.Role,
		Role:         RoleGuest,
		Active:       true,
	}

	id, err := c.store.Create(ctx, identity)
	if err != nil {
		c.record(ctx, audit.LevelError, fmt.Sprintf("signup error: %v", err), nil)
		if errors.Is(err, ErrDuplicateIdentity) {
			c.registration("duplicate")
			return nil, ErrDuplicateIdentity
		}
		c.registration("error")
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	identity.ID = id

	token, err := c.tokens.Issue(ctx, Claims{Email: identity.Email, ID: id})
	if err != nil {
		c.registration("error")
		c.record(ctx, audit.LevelError, fmt.Sprintf("signup error: %v", err), audit.UserID(id))
		return nil, err
	}

	c.registration("success")
	return &Session{
		IDToken:   TokenPrefix + token,
		Email:     identity.Email,
		Role:      identity.ProfileRole,
		ExpiresIn: c.tokens.TTLMillis(),
		ID:        id,
		Success:   true,
	}, nil
}

// Login verifies credentials and returns a session. A guest login always
// authenticates as the configured guest account.
func (c *Controller) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	email, password := req.Email, req.Password
	if req.IsGuest {
		email, password = c.guest.Email, c.guest.Password
	}

	if strings.TrimSpace(email) == "" || password == "" {
		c.login("failed")
		c.record(ctx, audit.LevelWarning, "login error: missing email or password", nil)
		return nil, ErrMissingInput
	}

	identity, err := c.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			c.hasher.Compare(password, c.decoy)
			c.login("not_found")
			c.record(ctx, audit.LevelWarning, fmt.Sprintf("user not found: %s", email), nil)
			return nil, fmt.Errorf("%w: %w", ErrLoginFailed, ErrIdentityNotFound)
		}
		c.login("error")
		c.record(ctx, audit.LevelError, fmt.Sprintf("login error: %v", err), nil)
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	if err := c.checkCredential(identity, password, ErrLoginFailed); err != nil {
		c.login("failed")
		c.record(ctx, audit.LevelWarning, "error on login, password incorrect", audit.UserID(identity.ID))
		return nil, err
	}

	cont := identity.Role.Cont()
	token, err := c.tokens.Issue(ctx, Claims{Email: identity.Email, ID: identity.ID, Cont: cont})
	if err != nil {
		c.login("error")
		c.record(ctx, audit.LevelError, fmt.Sprintf("login error: %v", err), audit.UserID(identity.ID))
		return nil, err
	}

	if req.IsGuest {
		c.login("guest")
	} else {
		c.login("success")
		c.record(ctx, audit.LevelInfo, "User logged in or renewed token", audit.UserID(identity.ID))
	}

	return &Session{
		IDToken:   TokenPrefix + token,
		Email:     identity.Email,
		Role:      identity.ProfileRole,
		ExpiresIn: c.tokens.TTLMillis(),
		ID:        identity.ID,
		Cont:      &cont,
		Success:   true,
	}, nil
}

// ChangePassword replaces the password of the identity named by claims
// after checking the old password
func (c *Controller) ChangePassword(ctx context.Context, claims *Claims, req ChangePasswordRequest) error {
	if claims == nil {
		return ErrUserNotFound
	}
	actor := audit.UserID(claims.ID)

	if req.OldPassword == "" || req.NewPassword == "" {
		c.record(ctx, audit.LevelWarning, "password change error: missing old or new password", actor)
		return ErrMissingInput
	}

	identity, err := c.store.FindByID(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			c.record(ctx, audit.LevelWarning, fmt.Sprintf("user not found: %d", claims.ID), actor)
			return ErrUserNotFound
		}
		c.record(ctx, audit.LevelError, fmt.Sprintf("password change error: %v", err), actor)
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	if err := c.checkCredential(identity, req.OldPassword, ErrPasswordIncorrect); err != nil {
		c.record(ctx, audit.LevelWarning, fmt.Sprintf("error on change, password incorrect: %s", identity.Email), actor)
		return err
	}

	digest, err := c.hasher.Hash(req.NewPassword)
	if err != nil {
		c.record(ctx, audit.LevelError, fmt.Sprintf("password change error: %v", err), actor)
		return err
	}

	if err := c.store.UpdatePassword(ctx, identity.ID, digest); err != nil {
		c.record(ctx, audit.LevelError, fmt.Sprintf("password change error: %v", err), actor)
		if errors.Is(err, ErrIdentityNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	c.record(ctx, audit.LevelInfo, "password changed", actor)
	return nil
}

// checkCredential requires both a matching password and an active account.
// Both failures surface as failure so callers cannot tell them apart.
func (c *Controller) checkCredential(identity *Identity, password string, failure error) error {
	if !c.hasher.Compare(password, identity.PasswordHash) {
		return failure
	}
	if !identity.Active {
		return fmt.Errorf("%w: %w", failure, ErrInactive)
	}
	return nil
}

// record appends an auth event; a failure to log never fails the request
func (c *Controller) record(ctx context.Context, level audit.Level, message string, userID *int64) {
	if err := c.audit.Log(ctx, audit.NewEvent(level, audit.CategoryAuth, message, userID)); err != nil {
		observability.UpdateLoggerWithTraceContext(ctx, c.logger).
			WithError(err).
			Warn("failed to record auth event")
	}
}

func (c *Controller) login(result string) {
	if c.metrics != nil {
		c.metrics.LoginsTotal.WithLabelValues(result).Inc()
	}
}

func (c *Controller) registration(result string) {
	if c.metrics != nil {
		c.metrics.RegistrationsTotal.WithLabelValues(result).Inc()
	}
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmail
	}
	return nil
}
