package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iLink-CyberShARE/swim-api/pkg/auth"
)

// secretRowID is the id of the single signing secret row in hush
const secretRowID = 1

// SecretSource reads the signing secret from the hush table
type SecretSource struct {
	db *sql.DB
}

// NewSecretSource creates a secret source
func NewSecretSource(db *sql.DB) *SecretSource {
	return &SecretSource{db: db}
}

// ReadSecret returns the secret value, or auth.ErrSecretNotFound when the row is absent
func (s *SecretSource) ReadSecret(ctx context.Context) (string, error) {
	var value sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT value FROM hush WHERE id = $1`, secretRowID).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", auth.ErrSecretNotFound
		}
		return "", fmt.Errorf("failed to read secret: %w", err)
	}
	if !value.Valid || value.String == "" {
		return "", auth.ErrSecretNotFound
	}
	return value.String, nil
}
