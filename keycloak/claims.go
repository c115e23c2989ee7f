package keycloak

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// Claims represents the token claims issued by a Keycloak realm that this
// service consumes. The cpf claim is a realm-specific mapper carrying the
// caller's national identifier in whatever formatting the realm stores.
type Claims struct {
	jwt.RegisteredClaims

	PreferredUsername string `json:"preferred_username"`
	Name              string `json:"name"`
	Email             string `json:"email"`
	EmailVerified     bool   `json:"email_verified"`
	CPF               string `json:"cpf"`
}

// ExtractClaimsFromValidatedToken extracts claims from an already validated jwt.Token
func ExtractClaimsFromValidatedToken(token *jwt.Token) (*Claims, error) {
	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, errors.New("invalid claims type")
	}
	return claims, nil
}

// Complete reports whether the claims carry everything reconciliation
// requires. Incomplete claims still authenticate the caller; they just grant
// no authority.
func (c *Claims) Complete() bool {
	return c.PreferredUsername != "" && c.Name != ""
}
