package auth

import "context"

// CredentialStore persists identities.
// Implementations return ErrIdentityNotFound when no row matches and
// ErrDuplicateIdentity when an email is already registered.
type CredentialStore interface {
	// Create inserts the identity and returns its new id
	Create(ctx context.Context, identity *Identity) (int64, error)

	FindByEmail(ctx context.Context, email string) (*Identity, error)

	FindByID(ctx context.Context, id int64) (*Identity, error)

	// UpdatePassword replaces the stored digest and nothing else
	UpdatePassword(ctx context.Context, id int64, digest string) error
}
