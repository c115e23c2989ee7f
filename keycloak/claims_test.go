package keycloak

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractClaimsFromValidatedToken(t *testing.T) {
	t.Run("valid claims type", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{PreferredUsername: "alice", Name: "Alice A"})

		claims, err := ExtractClaimsFromValidatedToken(token)
		require.NoError(t, err)
		assert.Equal(t, "alice", claims.PreferredUsername)
	})

	t.Run("wrong claims type", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "x"})

		_, err := ExtractClaimsFromValidatedToken(token)
		assert.Error(t, err)
	})
}

func TestClaimsComplete(t *testing.T) {
	tests := []struct {
		name     string
		claims   Claims
		expected bool
	}{
		{"username and name present", Claims{PreferredUsername: "alice", Name: "Alice A"}, true},
		{"missing username", Claims{Name: "Alice A"}, false},
		{"missing name", Claims{PreferredUsername: "alice"}, false},
		{"empty", Claims{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.claims.Complete())
		})
	}
}
