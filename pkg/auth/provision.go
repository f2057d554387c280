package auth

import (
	"context"
	"errors"
	"fmt"
)

// Provisioner creates the fixed accounts the service expects at startup
type Provisioner struct {
	store  CredentialStore
	hasher Hasher
}

// NewProvisioner creates a provisioner
func NewProvisioner(store CredentialStore, hasher Hasher) *Provisioner {
	return &Provisioner{store: store, hasher: hasher}
}

// EnsureAccount creates an active account with role unless the email is
// already registered. Existing accounts are left untouched.
func (p *Provisioner) EnsureAccount(ctx context.Context, email, password string, role Role) (bool, error) {
	if email == "" || password == "" {
		return false, ErrMissingInput
	}

	_, err := p.store.FindByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrIdentityNotFound) {
		return false, fmt.Errorf("failed to look up %s: %w", email, err)
	}

	digest, err := p.hasher.Hash(password)
	if err != nil {
		return false, err
	}

	_, err = p.store.Create(ctx, &Identity{
		Email:        email,
		PasswordHash: digest,
		Role:         role,
		Active:       true,
	})
	if err != nil {
		// another instance created it first
		if errors.Is(err, ErrDuplicateIdentity) {
			return false, nil
		}
		return false, fmt.Errorf("failed to provision %s: %w", email, err)
	}
	return true, nil
}
