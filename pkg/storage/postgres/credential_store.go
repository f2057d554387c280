package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/iLink-CyberShARE/swim-api/pkg/auth"
)

const uniqueViolationCode = "23505"

const identityColumns = `uid, uemail, upassword, ufirst_name, ulast_name,
	COALESCE(uinstitution, ''), COALESCE(udepartment, ''), COALESCE(urole, ''),
	is_guest, is_contentmanager, is_active`

// CredentialStore implements auth.CredentialStore over the users table
type CredentialStore struct {
	db *sql.DB
}

// NewCredentialStore creates a credential store
func NewCredentialStore(db *sql.DB) *CredentialStore {
	return &CredentialStore{db: db}
}

// Create inserts identity and returns its id
func (s *CredentialStore) Create(ctx context.Context, identity *auth.Identity) (int64, error) {
	isGuest, isCM := identity.Role.Flags()

	query := `
		INSERT INTO users (uemail, upassword, ufirst_name, ulast_name, uinstitution, udepartment, urole,
			is_guest, is_contentmanager, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING uid
	`

	var id int64
	err := s.db.QueryRowContext(ctx, query,
		identity.Email,
		identity.PasswordHash,
		identity.FirstName,
		identity.LastName,
		nullString(identity.Institution),
		nullString(identity.Department),
		nullString(identity.ProfileRole),
		flag(isGuest),
		flag(isCM),
		flag(identity.Active),
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, auth.ErrDuplicateIdentity
		}
		return 0, fmt.Errorf("failed to insert user: %w", err)
	}

	return id, nil
}

// FindByEmail returns the identity registered with email
func (s *CredentialStore) FindByEmail(ctx context.Context, email string) (*auth.Identity, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+identityColumns+` FROM users WHERE uemail = $1`, email)
	return scanIdentity(row)
}

// FindByID returns the identity with id
func (s *CredentialStore) FindByID(ctx context.Context, id int64) (*auth.Identity, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+identityColumns+` FROM users WHERE uid = $1`, id)
	return scanIdentity(row)
}

// UpdatePassword sets upassword and leaves every other column untouched
func (s *CredentialStore) UpdatePassword(ctx context.Context, id int64, digest string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE users SET upassword = $1 WHERE uid = $2`, digest, id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if n == 0 {
		return auth.ErrIdentityNotFound
	}
	return nil
}

func scanIdentity(row *sql.Row) (*auth.Identity, error) {
	var (
		identity            auth.Identity
		isGuest, isCM, isOn int
	)
	err := row.Scan(
		&identity.ID,
		&identity.Email,
		&identity.PasswordHash,
		&identity.FirstName,
		&identity.LastName,
		&identity.Institution,
		&identity.Department,
		&identity.ProfileRole,
		&isGuest,
		&isCM,
		&isOn,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrIdentityNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	role, err := auth.RoleFromFlags(isGuest == 1, isCM == 1)
	if err != nil {
		return nil, fmt.Errorf("user %d: %w", identity.ID, err)
	}
	identity.Role = role
	identity.Active = isOn == 1

	return &identity, nil
}

// isUniqueViolation recognises a unique constraint failure from any supported driver
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolationCode
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolationCode
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}

	return false
}

func flag(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
