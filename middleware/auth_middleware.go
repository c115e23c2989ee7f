package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/docsmith/backend/keycloak"
	"github.com/docsmith/backend/services/identity"
	"github.com/docsmith/backend/utils"
	"go.uber.org/zap"
)

// TokenValidator defines the interface for validating bearer tokens.
// Signature and issuer verification live behind it; this layer only
// consumes the resulting claims.
type TokenValidator interface {
	// ValidateToken validates a bearer token and returns its claims
	ValidateToken(ctx context.Context, token string) (*keycloak.Claims, error)
}

// Reconciler maps a normalized identity assertion to a principal.
type Reconciler interface {
	Reconcile(ctx context.Context, assertion *identity.Assertion) (*identity.Principal, error)
}

// AuthMiddleware authenticates bearer tokens and reconciles their claims
// into a request principal.
type AuthMiddleware struct {
	validator  TokenValidator
	reconciler Reconciler
	logger     *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(validator TokenValidator, reconciler Reconciler, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		validator:  validator,
		reconciler: reconciler,
		logger:     logger,
	}
}

// Authenticate validates the request's bearer token, reconciles the claims
// into a user record, and attaches the resulting principal to the context.
//
// Requests without a token pass through unauthenticated; the policy layer
// decides what they may reach. A present-but-invalid token is rejected
// outright. Verified tokens with incomplete claims yield an authenticated
// principal with no authority rather than falling back to anonymous access.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		token := extractBearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := m.validator.ValidateToken(ctx, token)
		if err != nil {
			m.logger.Warn("token validation failed",
				zap.String("request_id", requestID),
				zap.Error(err))
			_ = utils.WriteUnauthorized(w, "Invalid or expired token")
			return
		}

		principal, err := m.reconcile(ctx, claims)
		if err != nil {
			m.logger.Error("identity reconciliation failed",
				zap.String("request_id", requestID),
				zap.String("username", claims.PreferredUsername),
				zap.Error(err))
			_ = utils.WriteInternalServerError(w, "Failed to resolve identity")
			return
		}

		m.logger.Debug("authentication successful",
			zap.String("request_id", requestID),
			zap.String("username", principal.Username),
			zap.String("authority", string(principal.Authority)))

		next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, principal)))
	})
}

func (m *AuthMiddleware) reconcile(ctx context.Context, claims *keycloak.Claims) (*identity.Principal, error) {
	if !claims.Complete() {
		// Recoverable: the caller proved who they are but the realm gave
		// us too little to reconcile. Authenticated, zero authorities.
		m.logger.Warn("incomplete identity claims, granting no authority",
			zap.String("username", claims.PreferredUsername))
		return identity.Unprivileged(), nil
	}

	assertion, err := identity.NewAssertion(claims.PreferredUsername, claims.Name, claims.Email, claims.CPF)
	if err != nil {
		return nil, err
	}

	return m.reconciler.Reconcile(ctx, assertion)
}

// extractBearerToken extracts the Bearer token from the Authorization header
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
