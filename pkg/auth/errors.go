package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is the base for client input errors
	ErrInvalidInput = errors.New("invalid input")

	// ErrMissingInput is returned when a required field is absent
	ErrMissingInput = fmt.Errorf("%w: missing required field", ErrInvalidInput)

	// ErrInvalidEmail is returned when an email address does not parse
	ErrInvalidEmail = fmt.Errorf("%w: invalid email address", ErrInvalidInput)

	// ErrPasswordTooLong is returned when a password exceeds what the hasher accepts
	ErrPasswordTooLong = fmt.Errorf("%w: password too long", ErrInvalidInput)

	// ErrNotFound is the base for missing identity errors
	ErrNotFound = errors.New("not found")

	// ErrUserNotFound is returned when a claimed identity id no longer exists
	ErrUserNotFound = fmt.Errorf("%w: user not found", ErrNotFound)

	// ErrInvalidCredential is the base for password mismatch errors
	ErrInvalidCredential = errors.New("invalid credential")

	// ErrLoginFailed is returned on an unknown email, a wrong password or an
	// inactive account at login
	ErrLoginFailed = fmt.Errorf("%w: login failed", ErrInvalidCredential)

	// ErrPasswordIncorrect is returned when the old password does not match on change
	ErrPasswordIncorrect = fmt.Errorf("%w: current password is incorrect", ErrInvalidCredential)

	// ErrInactive marks a credential failure caused by a deactivated account
	ErrInactive = errors.New("account inactive")

	// ErrDuplicateIdentity is returned when an email is already registered
	ErrDuplicateIdentity = errors.New("email address already registered")

	// ErrIdentityNotFound is returned by a CredentialStore when no row matches
	ErrIdentityNotFound = errors.New("identity not found")

	// ErrStoreUnavailable wraps unexpected credential store failures
	ErrStoreUnavailable = errors.New("credential store unavailable")

	// ErrInvalidRole is returned for an identity flagged as both guest and content manager
	ErrInvalidRole = errors.New("identity cannot be both guest and content manager")

	// ErrSecretNotFound is returned when the signing secret row is absent or empty
	ErrSecretNotFound = errors.New("signing secret not found")

	// ErrSecretUnavailable wraps failures reading the signing secret
	ErrSecretUnavailable = errors.New("signing secret unavailable")

	// ErrTokenExpired is returned when a token's expiry has elapsed
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid is returned for malformed tokens and bad signatures
	ErrTokenInvalid = errors.New("token invalid")
)
