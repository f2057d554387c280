// Package auth implements the credential layer: the cached signing secret,
// password hashing, bearer token issue and verification, and the controller
// behind signup, login and password change.
//
// # Tokens
//
// Tokens are HS256 JWTs signed with the single secret read through a
// SecretStore. The secret is loaded once and kept in memory; a rotation needs a
// restart or an explicit Invalidate. Claims carry email, id and, for logins,
// the content-manager marker:
//
//	secrets := auth.NewCachedSecretStore(source, metrics)
//	tokens := auth.NewTokenService(secrets, 90*time.Minute)
//
//	token, _ := tokens.Issue(ctx, auth.Claims{Email: "a@b.org", ID: 7, Cont: 1})
//	claims, err := tokens.Verify(ctx, token)
//
// Claims are trusted until expiry. A demoted or deactivated user keeps access
// until the token runs out, so the TTL bounds the staleness window.
//
// # Roles
//
// Storage keeps independent is_guest and is_contentmanager flags. They decode
// into a Role with RoleFromFlags, which rejects an identity flagged as both.
// Self-registration always yields RoleGuest; only startup provisioning creates
// content managers.
//
// # Login failures
//
// An unknown email, a wrong password and an inactive account all return
// ErrLoginFailed, and each costs one password comparison. The cause is only
// visible through errors.Is (ErrIdentityNotFound, ErrInactive) and the audit
// event every failure appends.
package auth
