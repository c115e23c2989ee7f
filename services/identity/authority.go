package identity

import "github.com/docsmith/backend/models"

// Authority is the single canonical permission token derived from a user's
// role. The model is one authority per user, not a set.
type Authority string

const (
	AuthorityUser  Authority = "ROLE_USER"
	AuthorityAdmin Authority = "ROLE_ADMIN"

	// AuthorityNone marks an authenticated principal that carries no
	// authority, e.g. when the token claims were incomplete.
	AuthorityNone Authority = ""
)

// AuthorityFor maps a role to its authority token.
func AuthorityFor(role models.Role) Authority {
	switch role {
	case models.RoleAdmin:
		return AuthorityAdmin
	default:
		return AuthorityUser
	}
}
